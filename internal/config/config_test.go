package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/planktax/internal/classify"
	"github.com/John-Robertt/planktax/internal/infra/httpx"
	"github.com/John-Robertt/planktax/internal/worms"
)

func TestLoadEffective_Defaults(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != "" {
		t.Fatalf("未提供配置文件时 ConfigPath 应为空，实际=%q", eff.ConfigPath)
	}
	if !eff.Fuzzy || eff.MarineOnly {
		t.Fatalf("默认值不符合预期：fuzzy=%v marine_only=%v", eff.Fuzzy, eff.MarineOnly)
	}
	if eff.RESTBaseURL != worms.DefaultRESTBaseURL || eff.SOAPURL != worms.DefaultSOAPURL {
		t.Fatalf("默认 URL 不符合预期：rest=%q soap=%q", eff.RESTBaseURL, eff.SOAPURL)
	}
	if eff.MaxSynonymHops != classify.DefaultMaxHops {
		t.Fatalf("期望 max_synonym_hops=%d，实际=%d", classify.DefaultMaxHops, eff.MaxSynonymHops)
	}
	if eff.Timeout != httpx.DefaultTimeout || eff.UserAgent != httpx.DefaultUserAgent {
		t.Fatalf("默认 HTTP 参数不符合预期：timeout=%v ua=%q", eff.Timeout, eff.UserAgent)
	}
}

func TestLoadEffective_ConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{ConfigPath: "missing.json"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_ReadsCwdFile(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{
		"rest_base_url": "http://127.0.0.1:8080/rest/",
		"marine_only": true,
		"max_synonym_hops": 3,
		"timeout_seconds": 5,
		"proxy": {"url": "http://127.0.0.1:7890"},
		"exclude_dirs": ["unclassified"]
	}`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != filepath.Join(cwd, FileName) {
		t.Fatalf("ConfigPath 不符合预期：%q", eff.ConfigPath)
	}
	if eff.RESTBaseURL != "http://127.0.0.1:8080/rest" {
		t.Fatalf("rest_base_url 应去掉末尾 /，实际=%q", eff.RESTBaseURL)
	}
	if !eff.MarineOnly || eff.MaxSynonymHops != 3 || eff.Timeout != 5*time.Second {
		t.Fatalf("配置未生效：%+v", eff)
	}
	if eff.ProxyURL != "http://127.0.0.1:7890" {
		t.Fatalf("期望 proxy=%q，实际=%q", "http://127.0.0.1:7890", eff.ProxyURL)
	}
	if len(eff.ExcludeDirs) != 1 || eff.ExcludeDirs[0] != "unclassified" {
		t.Fatalf("exclude_dirs 不符合预期：%v", eff.ExcludeDirs)
	}
}

func TestLoadEffective_ExplicitConfigRelativeToCwd(t *testing.T) {
	cwd := t.TempDir()
	if err := os.MkdirAll(filepath.Join(cwd, "conf"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	writeFile(t, filepath.Join(cwd, "conf", "worms.json"), []byte(`{"fuzzy":false}`))

	eff, err := LoadEffective(cwd, CLIArgs{ConfigPath: "conf/worms.json"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Fuzzy {
		t.Fatalf("期望 fuzzy=false，实际=%v", eff.Fuzzy)
	}
}

func TestLoadEffective_CLIOverridesFile(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"fuzzy":true,"marine_only":true}`))

	eff, err := LoadEffective(cwd, CLIArgs{
		Fuzzy:         false,
		FuzzySet:      true, // --fuzzy=false
		MarineOnly:    false,
		MarineOnlySet: true,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Fuzzy || eff.MarineOnly {
		t.Fatalf("CLI 未覆盖配置：fuzzy=%v marine_only=%v", eff.Fuzzy, eff.MarineOnly)
	}

	// 未显式指定时沿用配置文件。
	eff2, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !eff2.Fuzzy || !eff2.MarineOnly {
		t.Fatalf("期望沿用配置文件：fuzzy=%v marine_only=%v", eff2.Fuzzy, eff2.MarineOnly)
	}
}

func TestLoadEffective_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"malformed json", `{`, ""},
		{"unknown field", `{"fuzy":true}`, "fuzy"},
		{"bad rest url", `{"rest_base_url":"not a url"}`, "rest_base_url"},
		{"hops too large", `{"max_synonym_hops":1000}`, "max_synonym_hops"},
		{"negative timeout", `{"timeout_seconds":-1}`, "timeout_seconds"},
		{"bad proxy url", `{"proxy":{"url":"http://[::1"}}`, "proxy.url"},
		{"empty exclude dir", `{"exclude_dirs":["ok",""]}`, "exclude_dirs[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cwd := t.TempDir()
			writeFile(t, filepath.Join(cwd, FileName), []byte(tt.body))

			_, err := LoadEffective(cwd, CLIArgs{})
			if Code(err) != ErrCodeInvalid {
				t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("错误信息应包含 %q，实际=%v", tt.wantMsg, err)
			}
		})
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
