package worms

import (
	"fmt"
	"strings"
)

// HTTPStatusError 表示 WoRMS 返回了非预期的 HTTP 状态码。
// Detail 是响应体的简短摘要（HTML 错误页取标题），便于直接写入 error_msg。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Detail     string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	d := strings.TrimSpace(e.Detail)
	if d == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, d)
}

// FaultError 表示 SOAP 服务返回了 Fault。
type FaultError struct {
	Code   string
	String string
}

func (e *FaultError) Error() string {
	if e == nil {
		return "soap fault"
	}
	if strings.TrimSpace(e.String) == "" {
		return "soap fault: " + strings.TrimSpace(e.Code)
	}
	return fmt.Sprintf("soap fault %s: %s", strings.TrimSpace(e.Code), strings.TrimSpace(e.String))
}

// UnexpectedContentError 表示 2xx 响应的内容类型不是约定的 JSON/XML（常见于网关错误页）。
type UnexpectedContentError struct {
	URL         string
	ContentType string
	Detail      string
}

func (e *UnexpectedContentError) Error() string {
	if e == nil {
		return "unexpected content"
	}
	msg := fmt.Sprintf("非预期的响应类型 %q", e.ContentType)
	if d := strings.TrimSpace(e.Detail); d != "" {
		msg += "：" + d
	}
	return msg
}
