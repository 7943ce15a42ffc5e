package worms

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxDetailLen = 160

// summarizeBody 把错误响应体压缩成一行摘要。
//
// 规则：
// - HTML：取 <title>，没有则取首个 h1，再没有则取 body 文本
// - 其他：直接取文本
// - 统一去多余空白并截断，避免把整页 HTML 塞进 error_msg
func summarizeBody(contentType string, body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	if isHTML(contentType, body) {
		if s := summarizeHTML(body); s != "" {
			return s
		}
	}
	return truncate(normSpace(string(body)), maxDetailLen)
}

func summarizeHTML(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	for _, sel := range []string{"title", "h1", "body"} {
		s := normSpace(doc.Find(sel).First().Text())
		if s != "" {
			return truncate(s, maxDetailLen)
		}
	}
	return ""
}

func isHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(body))
	if len(head) > 64 {
		head = head[:64]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
