package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/John-Robertt/planktax/internal/classify"
	"github.com/John-Robertt/planktax/internal/infra/httpx"
	"github.com/John-Robertt/planktax/internal/worms"
)

const (
	// ErrCodeNotFound 表示 --config 指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

// FileName 是工作目录下自动发现的配置文件名。
const FileName = "planktax.json"

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --fuzzy=false 必须能覆盖 config.fuzzy=true。
type CLIArgs struct {
	ConfigPath string

	Fuzzy    bool
	FuzzySet bool

	MarineOnly    bool
	MarineOnlySet bool
}

// FileConfig 对应 planktax.json 的解析结构。
type FileConfig struct {
	RESTBaseURL    string       `json:"rest_base_url" validate:"omitempty,http_url"`
	SOAPURL        string       `json:"soap_url" validate:"omitempty,http_url"`
	MarineOnly     *bool        `json:"marine_only"`
	Fuzzy          *bool        `json:"fuzzy"`
	MaxSynonymHops int          `json:"max_synonym_hops" validate:"gte=0,lte=64"`
	TimeoutSeconds int          `json:"timeout_seconds" validate:"gte=0,lte=600"`
	UserAgent      string       `json:"user_agent" validate:"omitempty,max=200"`
	Proxy          *ProxyConfig `json:"proxy"`
	ExcludeDirs    []string     `json:"exclude_dirs" validate:"dive,required"`
}

type ProxyConfig struct {
	URL string `json:"url" validate:"omitempty,url"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件（未读取任何文件时为空）。
	ConfigPath string

	RESTBaseURL string
	SOAPURL     string

	MarineOnly bool
	Fuzzy      bool

	MaxSynonymHops int
	Timeout        time.Duration
	UserAgent      string
	ProxyURL       string

	// ExcludeDirs 只对 --input-dir 生效（相对输入目录）。
	ExcludeDirs []string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在（相对路径以 cwd 为基准）
// 2) 未提供：尝试读取 <cwd>/planktax.json（可选）
//
// 覆盖优先级（固定）：
// - fuzzy / marine_only：CLI > config > 默认（fuzzy=true，marine_only=false）
// - 其他字段：仅由 config 控制（CLI 不暴露）
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	required := strings.TrimSpace(cli.ConfigPath) != ""
	cfgPath := filepath.Join(cwdAbs, FileName)
	if required {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		if required {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		cfgPath = ""
	}

	if err := validate(fc); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	return merge(cli, fc, cfgPath), nil
}

func merge(cli CLIArgs, fc FileConfig, cfgPath string) EffectiveConfig {
	fuzzy := true
	if cli.FuzzySet {
		fuzzy = cli.Fuzzy
	} else if fc.Fuzzy != nil {
		fuzzy = *fc.Fuzzy
	}

	marineOnly := false
	if cli.MarineOnlySet {
		marineOnly = cli.MarineOnly
	} else if fc.MarineOnly != nil {
		marineOnly = *fc.MarineOnly
	}

	hops := fc.MaxSynonymHops
	if hops == 0 {
		hops = classify.DefaultMaxHops
	}

	timeout := httpx.DefaultTimeout
	if fc.TimeoutSeconds > 0 {
		timeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}

	rest := strings.TrimRight(strings.TrimSpace(fc.RESTBaseURL), "/")
	if rest == "" {
		rest = worms.DefaultRESTBaseURL
	}
	soap := strings.TrimSpace(fc.SOAPURL)
	if soap == "" {
		soap = worms.DefaultSOAPURL
	}

	ua := strings.TrimSpace(fc.UserAgent)
	if ua == "" {
		ua = httpx.DefaultUserAgent
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}

	return EffectiveConfig{
		ConfigPath:     cfgPath,
		RESTBaseURL:    rest,
		SOAPURL:        soap,
		MarineOnly:     marineOnly,
		Fuzzy:          fuzzy,
		MaxSynonymHops: hops,
		Timeout:        timeout,
		UserAgent:      ua,
		ProxyURL:       proxyURL,
		ExcludeDirs:    append([]string(nil), fc.ExcludeDirs...),
	}
}

var validate = newValidator()

// newValidator 用 json tag 作为字段名，错误信息能直接对应到配置文件里的键。
func newValidator() func(any) error {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return func(s any) error {
		err := v.Struct(s)
		if err == nil {
			return nil
		}
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return err
		}
		msgs := make([]string, 0, len(ves))
		for _, fe := range ves {
			msgs = append(msgs, fieldMessage(fe))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "FileConfig.")
	switch fe.Tag() {
	case "http_url", "url":
		return fmt.Sprintf("%s 必须是合法的 URL：%v", field, fe.Value())
	case "gte":
		return fmt.Sprintf("%s 不能小于 %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s 不能大于 %s", field, fe.Param())
	case "required":
		return fmt.Sprintf("%s 不能为空", field)
	default:
		return fmt.Sprintf("%s 校验失败（%s）", field, fe.Tag())
	}
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
// 未知字段视为错误。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
