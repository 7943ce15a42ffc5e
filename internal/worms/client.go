// Package worms 封装 WoRMS（World Register of Marine Species）的两个入口：
// REST 记录查询（AphiaRecordsByName）与 SOAP 模糊匹配（matchAphiaRecordsByNames）。
//
// 约束：
// - 不做缓存、不做限速（非目标）；重试由 httpx 层统一实现
// - 传输错误、Fault、非预期状态码一律返回 error，由上层决定终止批处理
package worms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/John-Robertt/planktax/internal/domain"
)

const (
	DefaultRESTBaseURL = "https://www.marinespecies.org/rest"
	DefaultSOAPURL     = "https://www.marinespecies.org/aphia.php?p=soap"
	// WSDLURL 仅用于展示；请求直接发往 DefaultSOAPURL。
	WSDLURL = "https://www.marinespecies.org/aphia.php?p=soap&wsdl=1"

	// 响应体读取上限：WoRMS 单次返回最多 50 条记录，远小于该值。
	maxBodyBytes = 8 << 20
)

// Client 持有一次运行内复用的连接配置（创建一次，跨调用复用，不使用全局状态）。
type Client struct {
	RESTBaseURL string
	SOAPURL     string
	HTTP        *http.Client
}

// New 构造 Client；空 URL 使用 WoRMS 官方地址。
func New(restBaseURL, soapURL string, c *http.Client) (*Client, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	restBaseURL = strings.TrimRight(strings.TrimSpace(restBaseURL), "/")
	if restBaseURL == "" {
		restBaseURL = DefaultRESTBaseURL
	}
	soapURL = strings.TrimSpace(soapURL)
	if soapURL == "" {
		soapURL = DefaultSOAPURL
	}
	return &Client{RESTBaseURL: restBaseURL, SOAPURL: soapURL, HTTP: c}, nil
}

// RecordsByName 查询与 name 完全/部分匹配的 Aphia 记录：
// GET <rest>/AphiaRecordsByName/<name>?like=true&marine_only=<bool>&offset=1
//
// 无匹配（HTTP 204 或空数组）返回 nil, nil。
func (c *Client) RecordsByName(ctx context.Context, name string, marineOnly bool) ([]domain.Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("name 不能为空")
	}

	q := url.Values{}
	q.Set("like", "true")
	q.Set("marine_only", fmt.Sprint(marineOnly))
	q.Set("offset", "1")
	u := c.RESTBaseURL + "/AphiaRecordsByName/" + url.PathEscape(name) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	ct := resp.Header.Get("Content-Type")

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Detail: summarizeBody(ct, body)}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	if isHTML(ct, body) {
		return nil, &UnexpectedContentError{URL: u, ContentType: ct, Detail: summarizeBody(ct, body)}
	}

	var records []domain.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("解码 AphiaRecordsByName 响应失败：%w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records, nil
}
