package httpx

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "planktax/1 (+https://www.marinespecies.org/rest/)"

	defaultRetryMax = 2
)

// Transport 把“固定 UA + 代理 + 有界重试”固化为统一策略。
//
// 设计目标：worms 客户端只负责“拼请求 + 解码响应”，不关心网络策略细节。
type Transport struct {
	Base *http.Transport

	UserAgent string

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对“可重放”的请求做重试：GET/HEAD 且无 body。SOAP 的 POST 只发一次。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 {
		max = 0
	}
	if !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" && t.UserAgent != "" {
			r.Header.Set("User-Agent", t.UserAgent)
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			// ctx 已取消：不再重试，直接返回最后错误（更可解释）。
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// Options 是构造 client 的全部输入；零值字段使用默认值。
type Options struct {
	ProxyURL  string
	UserAgent string
	Timeout   time.Duration
	RetryMax  *int
}

// NewClient 构造访问 WoRMS（REST + SOAP）的 HTTP client。
//
// 规则：
// - proxyURL 非空：所有请求走代理
// - 固定 UA（WoRMS 按 UA 识别调用方，不做 UA 轮换）
// - 有界重试（仅 GET/HEAD）+ 总超时
func NewClient(opts Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
	}

	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy url 缺少 scheme 或 host")
		}
		base.Proxy = http.ProxyURL(u)
	}

	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retry := defaultRetryMax
	if opts.RetryMax != nil {
		retry = *opts.RetryMax
	}

	return &http.Client{
		Transport: &Transport{
			Base:      base,
			UserAgent: ua,
			RetryMax:  retry,
		},
		Timeout: timeout,
	}, nil
}
