package genus

import (
	"regexp"
	"strings"

	"github.com/John-Robertt/planktax/internal/domain"
)

// 分类器标签的首个片段即属名候选，例如 "Chaetoceros_socialis" -> "Chaetoceros"。
// '-' 不是分隔符：Pseudo-nitzschia 这类属名本身带连字符。
var (
	tokenSepRE = regexp.MustCompile(`[\s_./]+`)
	genusRE    = regexp.MustCompile(`^[A-Za-z][A-Za-z]+(-[A-Za-z]+)?$`)
)

type InvalidError struct {
	// Kind: "empty" 或 "no_match"
	Kind  string
	Label string
}

func (e *InvalidError) Error() string {
	switch e.Kind {
	case "empty":
		return "标签为空"
	case "no_match":
		return "无法从标签解析出属名：" + e.Label
	default:
		return "invalid label"
	}
}

// Extract 从分类器标签中提取属名：取首个片段，要求只含字母（允许一个连字符），规范为首字母大写。
// 若提取失败，返回 *InvalidError（empty / no_match）。
func Extract(label string) (domain.Genus, error) {
	s := strings.TrimSpace(label)
	if s == "" {
		return "", &InvalidError{Kind: "empty", Label: label}
	}

	tok := tokenSepRE.Split(s, 2)[0]
	if !genusRE.MatchString(tok) {
		return "", &InvalidError{Kind: "no_match", Label: label}
	}
	return domain.Genus(strings.ToUpper(tok[:1]) + strings.ToLower(tok[1:])), nil
}
