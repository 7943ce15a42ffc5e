package main

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/planktax/internal/app/run"
	"github.com/John-Robertt/planktax/internal/config"
	"github.com/John-Robertt/planktax/internal/domain"
)

var _ run.Observer = (*logObserver)(nil)

// logObserver 把 run 事件转为 stderr 上的日志行（进度轨迹）。
// 每条输入一行；未解析的条目用 warn，便于 --log-level=warn 时只看问题条目。
type logObserver struct {
	log zerolog.Logger
}

func newLogObserver(l zerolog.Logger) *logObserver {
	return &logObserver{log: l}
}

func (o *logObserver) OnStart(runID string, total int) {
	o.log.Info().Str("run_id", runID).Int("total", total).Msg("开始解析")
}

func (o *logObserver) OnGenusStart(idx, total int, g domain.Genus) {
	o.log.Info().Str("progress", progress(idx, total)).Str("genus", string(g)).Msg("查询")
}

func (o *logObserver) OnGenusDone(idx, total int, it domain.ItemResult, dur time.Duration) {
	var ev *zerolog.Event
	switch it.Status {
	case domain.ItemResolved:
		ev = o.log.Info().Str("group", string(it.Group))
		if it.Via == domain.ViaFuzzy {
			ev = ev.Str("matched", it.MatchedName)
		}
		if len(it.Chain) > 0 {
			ev = ev.Str("chain", strings.Join(it.Chain, " -> "))
		}
	case domain.ItemInvalid:
		ev = o.log.Warn().Str("input", truncate(it.Input, 80)).Str("error", it.ErrorMsg)
	default:
		ev = o.log.Warn().Str("error_code", it.ErrorCode).Str("error", it.ErrorMsg)
		if it.Reason != "" {
			ev = ev.Str("reason", it.Reason)
		}
	}

	ev.Str("progress", progress(idx, total)).
		Str("genus", string(it.Genus)).
		Str("status", it.Status).
		Str("took", formatShortDuration(dur)).
		Msg(statusLabel(it.Status))
}

func (o *logObserver) OnFinish(rr domain.RunReport, elapsed time.Duration) {
	s := rr.Summary
	o.log.Info().
		Int("input", s.Input).
		Int("resolved", s.Resolved).
		Int("unmatched", s.Unmatched).
		Int("unclassified", s.Unclassified).
		Int("invalid", s.Invalid).
		Str("elapsed", formatShortDuration(elapsed)).
		Msg("完成")
}

// logEffective 打印生效配置（debug 级别；代理凭据不落日志）。
func logEffective(l zerolog.Logger, eff config.EffectiveConfig) {
	cfg := eff.ConfigPath
	if cfg == "" {
		cfg = "(none)"
	}
	l.Debug().
		Str("config", cfg).
		Str("rest", eff.RESTBaseURL).
		Str("soap", eff.SOAPURL).
		Bool("fuzzy", eff.Fuzzy).
		Bool("marine_only", eff.MarineOnly).
		Int("max_synonym_hops", eff.MaxSynonymHops).
		Dur("timeout", eff.Timeout).
		Str("proxy", formatProxy(eff.ProxyURL)).
		Msg("配置（生效）")
}

func statusLabel(status string) string {
	switch status {
	case domain.ItemResolved:
		return "已归类"
	case domain.ItemUnmatched:
		return "无匹配，跳过"
	case domain.ItemUnclassified:
		return "无法归类，跳过"
	case domain.ItemInvalid:
		return "无效标签，跳过"
	default:
		return status
	}
}

func progress(idx, total int) string { return fmt.Sprintf("%d/%d", idx, total) }

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
