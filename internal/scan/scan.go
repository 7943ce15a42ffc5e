// Package scan 从按类别分目录存放的图像集（分类器训练集/输出目录）里提取类别标签。
package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ClassDirs 扫描 root，返回所有“直接包含图像文件”的目录名（即类别标签）。
//
// 规则：
// - 以 '.' 开头的目录整体跳过
// - excludeDirs 为相对 root 的路径（绝对路径按原样处理），命中即整棵子树跳过
// - root 自身不算类别
// - 输出按相对路径排序，同名目录只保留第一次出现
//
// 只看文件名与扩展名，不读文件内容。
func ClassDirs(root string, excludeDirs []string) ([]string, error) {
	root = filepath.Clean(root)
	excluded := buildExcluded(root, excludeDirs)

	hasImage := make(map[string]bool, 64)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || isExcluded(path, excluded)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !isImageExt(strings.ToLower(filepath.Ext(d.Name()))) {
			return nil
		}
		dir := filepath.Dir(path)
		if dir == root {
			return nil
		}
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			return err
		}
		hasImage[rel] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	rels := make([]string, 0, len(hasImage))
	for rel := range hasImage {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	seen := make(map[string]struct{}, len(rels))
	labels := make([]string, 0, len(rels))
	for _, rel := range rels {
		name := filepath.Base(rel)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		labels = append(labels, name)
	}
	return labels, nil
}

func isImageExt(ext string) bool {
	switch ext {
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp":
		return true
	default:
		return false
	}
}

func buildExcluded(root string, excludeDirs []string) []string {
	excluded := make([]string, 0, len(excludeDirs))
	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	return strings.HasPrefix(path, base+string(filepath.Separator))
}
