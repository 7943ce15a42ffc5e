package worms

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/John-Robertt/planktax/internal/domain"
)

const (
	nsSOAPEnv  = "http://schemas.xmlsoap.org/soap/envelope/"
	nsSOAPEnc  = "http://schemas.xmlsoap.org/soap/encoding/"
	nsXSD      = "http://www.w3.org/2001/XMLSchema"
	nsXSI      = "http://www.w3.org/2001/XMLSchema-instance"
	nsAphia    = "http://aphia/v1.0"
	soapAction = nsAphia + "#matchAphiaRecordsByNames"
)

// 请求侧：rpc/encoded 风格，前缀写死在 tag 里（encoding/xml 不会替我们分配前缀）。
type envelopeOut struct {
	XMLName       xml.Name `xml:"SOAP-ENV:Envelope"`
	NSEnv         string   `xml:"xmlns:SOAP-ENV,attr"`
	NSEnc         string   `xml:"xmlns:SOAP-ENC,attr"`
	NSXSD         string   `xml:"xmlns:xsd,attr"`
	NSXSI         string   `xml:"xmlns:xsi,attr"`
	NSAphia       string   `xml:"xmlns:ns1,attr"`
	EncodingStyle string   `xml:"SOAP-ENV:encodingStyle,attr"`
	Body          bodyOut  `xml:"SOAP-ENV:Body"`
}

type bodyOut struct {
	Call matchCall `xml:"ns1:matchAphiaRecordsByNames"`
}

type matchCall struct {
	Names      stringArray `xml:"scientificnames"`
	Fuzzy      xsdString   `xml:"fuzzy"`
	MarineOnly xsdString   `xml:"marine_only"`
}

type stringArray struct {
	Type      string      `xml:"xsi:type,attr"`
	ArrayType string      `xml:"SOAP-ENC:arrayType,attr"`
	Items     []xsdString `xml:"item"`
}

type xsdString struct {
	Type  string `xml:"xsi:type,attr"`
	Value string `xml:",chardata"`
}

func str(v string) xsdString { return xsdString{Type: "xsd:string", Value: v} }

// 响应侧：只按 local name 匹配（不声明 namespace 即匹配任意 namespace）。
type envelopeIn struct {
	Body struct {
		Fault *faultIn `xml:"Fault"`
		Match *struct {
			Return struct {
				Lists []recordList `xml:"item"`
			} `xml:"return"`
		} `xml:"matchAphiaRecordsByNamesResponse"`
	} `xml:"Body"`
}

type faultIn struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type recordList struct {
	Records []recordIn `xml:"item"`
}

type recordIn struct {
	AphiaID        int    `xml:"AphiaID"`
	URL            string `xml:"url"`
	ScientificName string `xml:"scientificname"`
	Authority      string `xml:"authority"`
	Status         string `xml:"status"`
	Rank           string `xml:"rank"`
	ValidAphiaID   int    `xml:"valid_AphiaID"`
	ValidName      string `xml:"valid_name"`
	Kingdom        string `xml:"kingdom"`
	Phylum         string `xml:"phylum"`
	Class          string `xml:"class"`
	Order          string `xml:"order"`
	Family         string `xml:"family"`
	Genus          string `xml:"genus"`
	MatchType      string `xml:"match_type"`
}

func (r recordIn) record() domain.Record {
	return domain.Record{
		AphiaID:        r.AphiaID,
		URL:            strings.TrimSpace(r.URL),
		ScientificName: strings.TrimSpace(r.ScientificName),
		Authority:      strings.TrimSpace(r.Authority),
		Status:         strings.TrimSpace(r.Status),
		Rank:           strings.TrimSpace(r.Rank),
		ValidAphiaID:   r.ValidAphiaID,
		ValidName:      strings.TrimSpace(r.ValidName),
		Kingdom:        strings.TrimSpace(r.Kingdom),
		Phylum:         strings.TrimSpace(r.Phylum),
		Class:          strings.TrimSpace(r.Class),
		Order:          strings.TrimSpace(r.Order),
		Family:         strings.TrimSpace(r.Family),
		Genus:          strings.TrimSpace(r.Genus),
		MatchType:      strings.TrimSpace(r.MatchType),
	}
}

// encodeMatchRequest 生成 matchAphiaRecordsByNames 的 SOAP 请求体。
// fuzzy/marine_only 按服务约定以字符串 "true"/"false" 传递。
func encodeMatchRequest(names []string, fuzzy, marineOnly bool) ([]byte, error) {
	items := make([]xsdString, 0, len(names))
	for _, n := range names {
		items = append(items, str(n))
	}

	env := envelopeOut{
		NSEnv:         nsSOAPEnv,
		NSEnc:         nsSOAPEnc,
		NSXSD:         nsXSD,
		NSXSI:         nsXSI,
		NSAphia:       nsAphia,
		EncodingStyle: nsSOAPEnc,
		Body: bodyOut{Call: matchCall{
			Names: stringArray{
				Type:      "SOAP-ENC:Array",
				ArrayType: fmt.Sprintf("xsd:string[%d]", len(items)),
				Items:     items,
			},
			Fuzzy:      str(fmt.Sprint(fuzzy)),
			MarineOnly: str(fmt.Sprint(marineOnly)),
		}},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeMatchResponse 解析响应体；Fault 转为 *FaultError。
func decodeMatchResponse(body []byte) ([][]domain.Record, error) {
	var env envelopeIn
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("解码 matchAphiaRecordsByNames 响应失败：%w", err)
	}
	if f := env.Body.Fault; f != nil {
		return nil, &FaultError{Code: f.Code, String: f.String}
	}
	if env.Body.Match == nil {
		return nil, errors.New("响应中缺少 matchAphiaRecordsByNamesResponse")
	}

	lists := env.Body.Match.Return.Lists
	out := make([][]domain.Record, 0, len(lists))
	for _, l := range lists {
		recs := make([]domain.Record, 0, len(l.Records))
		for _, r := range l.Records {
			recs = append(recs, r.record())
		}
		out = append(out, recs)
	}
	return out, nil
}

// MatchRecordsByNames 通过 SOAP 调用 matchAphiaRecordsByNames。
// 返回值与请求的 names 一一对应：out[i] 是 names[i] 的候选记录（可能为空）。
func (c *Client) MatchRecordsByNames(ctx context.Context, names []string, fuzzy, marineOnly bool) ([][]domain.Record, error) {
	if len(names) == 0 {
		return nil, errors.New("names 不能为空")
	}
	payload, err := encodeMatchRequest(names, fuzzy, marineOnly)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.SOAPURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"`+soapAction+`"`)

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

	if isHTML(ct, body) {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &HTTPStatusError{URL: c.SOAPURL, StatusCode: resp.StatusCode, Detail: summarizeBody(ct, body)}
		}
		return nil, &UnexpectedContentError{URL: c.SOAPURL, ContentType: ct, Detail: summarizeBody(ct, body)}
	}

	// SOAP 1.1 的 Fault 通常伴随 HTTP 500：非 HTML 就先尝试解析 Fault。
	out, err := decodeMatchResponse(body)
	if err != nil {
		var fe *FaultError
		if errors.As(err, &fe) {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &HTTPStatusError{URL: c.SOAPURL, StatusCode: resp.StatusCode, Detail: summarizeBody(ct, body)}
		}
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: c.SOAPURL, StatusCode: resp.StatusCode, Detail: summarizeBody(ct, body)}
	}
	return out, nil
}
