package genus

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/John-Robertt/planktax/internal/domain"
)

// Entry 是一条输入标签及其解析结果（Err 非空时 Genus 为空）。
type Entry struct {
	Label string
	Genus domain.Genus
	Err   error
}

// Collect 把标签解析为属名并去重：
// - 保持首次出现的顺序（输出顺序即输入顺序）
// - 同一属名的后续标签直接丢弃（批内属名唯一）
// - 解析失败的标签原样保留在返回值中，由上层写入报告
// - 空标签直接忽略
func Collect(labels []string) []Entry {
	seen := make(map[domain.Genus]struct{}, len(labels))
	entries := make([]Entry, 0, len(labels))

	for _, l := range labels {
		g, err := Extract(l)
		if err != nil {
			var ie *InvalidError
			if errors.As(err, &ie) && ie.Kind == "empty" {
				continue
			}
			entries = append(entries, Entry{Label: l, Err: err})
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		entries = append(entries, Entry{Label: l, Genus: g})
	}
	return entries
}

// ReadLabels 逐行读取标签：
// - 空行与 '#' 开头的注释行忽略
// - 含逗号的行只取第一列（兼容分类结果 CSV）
func ReadLabels(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	out := make([]string, 0, 64)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexByte(line, ','); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		line = strings.Trim(line, `"`)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
