package run

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/planktax/internal/classify"
	"github.com/John-Robertt/planktax/internal/config"
	"github.com/John-Robertt/planktax/internal/domain"
	"github.com/John-Robertt/planktax/internal/genus"
	"github.com/John-Robertt/planktax/internal/infra/httpx"
	"github.com/John-Robertt/planktax/internal/resolve"
	"github.com/John-Robertt/planktax/internal/worms"
)

// Resolver 是 resolve.Resolver 的抽象（测试可替换）。
type Resolver interface {
	Resolve(ctx context.Context, g domain.Genus) (resolve.Resolution, error)
}

// Classifier 是 classify.Classifier 的抽象（测试可替换）。
type Classifier interface {
	Classify(ctx context.Context, g domain.Genus, records []domain.Record) (classify.Outcome, error)
}

// Pipeline 是一次 run 用到的两个步骤。
type Pipeline struct {
	Resolver   Resolver
	Classifier Classifier
}

// NewPipeline 按最终配置构建 HTTP client 与 WoRMS client，并组装 resolver/classifier。
// 同一个 worms.Client 供主查询、模糊匹配与异名跳转共用。
func NewPipeline(eff config.EffectiveConfig) (Pipeline, error) {
	hc, err := httpx.NewClient(httpx.Options{
		ProxyURL:  eff.ProxyURL,
		UserAgent: eff.UserAgent,
		Timeout:   eff.Timeout,
	})
	if err != nil {
		return Pipeline{}, fmt.Errorf("proxy.url 无效：%w", err)
	}
	wc, err := worms.New(eff.RESTBaseURL, eff.SOAPURL, hc)
	if err != nil {
		return Pipeline{}, err
	}
	return Pipeline{
		Resolver: resolve.Resolver{
			Lookup:       wc,
			Fuzzy:        wc,
			MarineOnly:   eff.MarineOnly,
			DisableFuzzy: !eff.Fuzzy,
		},
		Classifier: classify.Classifier{
			Lookup:     wc,
			MaxHops:    eff.MaxSynonymHops,
			MarineOnly: eff.MarineOnly,
		},
	}, nil
}

// Execute 按输入顺序逐个处理属名，返回 RunReport。
//
// 约束：
// - 串行执行；条目顺序即输入顺序
// - 无匹配/无法归类只影响该条目（不输出 assignment）
// - 任一查询故障终止整批，返回 error，不保留部分结果
func Execute(ctx context.Context, entries []genus.Entry, p Pipeline) (domain.RunReport, error) {
	return ExecuteWithObserver(ctx, entries, p, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 输出进度。
func ExecuteWithObserver(ctx context.Context, entries []genus.Entry, p Pipeline, obs Observer) (domain.RunReport, error) {
	if p.Resolver == nil || p.Classifier == nil {
		return domain.RunReport{}, errors.New("pipeline 不完整：缺少 resolver 或 classifier")
	}

	started := time.Now().UTC()
	rr := domain.RunReport{
		RunID:       uuid.NewString(),
		StartedAt:   started,
		Assignments: make([]domain.Assignment, 0, len(entries)),
		Items:       make([]domain.ItemResult, 0, len(entries)),
	}

	if obs != nil {
		obs.OnStart(rr.RunID, len(entries))
	}

	total := len(entries)
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return domain.RunReport{}, err
		}

		if e.Err != nil {
			it := invalidItem(e)
			rr.Items = append(rr.Items, it)
			if obs != nil {
				obs.OnGenusDone(i+1, total, it, 0)
			}
			continue
		}

		if obs != nil {
			obs.OnGenusStart(i+1, total, e.Genus)
		}
		oneStarted := time.Now()

		it, a, ok, err := processOne(ctx, e, p)
		if err != nil {
			return domain.RunReport{}, err
		}
		if ok {
			rr.Assignments = append(rr.Assignments, a)
		}
		rr.Items = append(rr.Items, it)

		if obs != nil {
			obs.OnGenusDone(i+1, total, it, time.Since(oneStarted))
		}
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()

	if obs != nil {
		obs.OnFinish(rr, time.Since(started))
	}
	return rr, nil
}

// Assign 是只关心映射结果的入口：给定有序属名，返回有序的 assignment 列表。
// 未解析或无法归类的属名不出现在结果中。
func Assign(ctx context.Context, genera []domain.Genus, p Pipeline) ([]domain.Assignment, error) {
	entries := make([]genus.Entry, 0, len(genera))
	for _, g := range genera {
		entries = append(entries, genus.Entry{Label: string(g), Genus: g})
	}
	rr, err := Execute(ctx, entries, p)
	if err != nil {
		return nil, err
	}
	return rr.Assignments, nil
}

func processOne(ctx context.Context, e genus.Entry, p Pipeline) (domain.ItemResult, domain.Assignment, bool, error) {
	it := domain.ItemResult{
		Input: e.Label,
		Genus: e.Genus,
		Chain: []string{},
	}

	res, err := p.Resolver.Resolve(ctx, e.Genus)
	if err != nil {
		return it, domain.Assignment{}, false, err
	}
	it.Attempts = toLookupAttempts(res.Attempts)

	if !res.Found() {
		it.Status = domain.ItemUnmatched
		it.ErrorCode = domain.ErrCodeNoRecords
		it.ErrorMsg = "主查询与模糊匹配均无结果"
		return it, domain.Assignment{}, false, nil
	}
	it.MatchedName = res.MatchedName
	it.Via = res.Via

	out, err := p.Classifier.Classify(ctx, e.Genus, res.Records)
	if err != nil {
		return it, domain.Assignment{}, false, err
	}
	if len(out.Chain) > 0 {
		it.Chain = out.Chain
	}

	a, ok := out.Assignment(e.Genus)
	if !ok {
		it.Status = domain.ItemUnclassified
		it.Reason = out.Reason
		it.ErrorCode = domain.ErrCodeUnclassified
		it.ErrorMsg = reasonMessage(out.Reason)
		return it, domain.Assignment{}, false, nil
	}
	it.Status = domain.ItemResolved
	it.Group = a.Group
	return it, a, true, nil
}

func invalidItem(e genus.Entry) domain.ItemResult {
	return domain.ItemResult{
		Input:     e.Label,
		Status:    domain.ItemInvalid,
		Chain:     []string{},
		ErrorCode: domain.ErrCodeInvalidLabel,
		ErrorMsg:  e.Err.Error(),
		Attempts:  []domain.LookupAttempt{},
	}
}

func toLookupAttempts(in []resolve.Attempt) []domain.LookupAttempt {
	out := make([]domain.LookupAttempt, 0, len(in))
	for _, a := range in {
		out = append(out, domain.LookupAttempt{Stage: a.Stage, Name: a.Name, Records: a.Records})
	}
	return out
}

func reasonMessage(reason string) string {
	switch reason {
	case classify.ReasonExhausted:
		return "候选记录中没有 accepted 的属级记录"
	case classify.ReasonNoRecords:
		return "有效名查不到记录"
	case classify.ReasonCycle:
		return "valid_name 形成环"
	case classify.ReasonHopLimit:
		return "异名跳转次数超过上限（max_synonym_hops）"
	default:
		return reason
	}
}

// HumanizeError 把终止批处理的错误转为一行可操作的提示。
func HumanizeError(err error) string {
	if err == nil {
		return ""
	}

	prefix := ""
	var re *resolve.Error
	if errors.As(err, &re) {
		prefix = fmt.Sprintf("%s（%s 阶段）：", re.Genus, re.Stage)
	}

	var fe *worms.FaultError
	if errors.As(err, &fe) {
		return fmt.Sprintf("%sWoRMS SOAP 服务返回 fault：%s", prefix, strings.TrimSpace(fe.String))
	}

	var hs *worms.HTTPStatusError
	if errors.As(err, &hs) {
		detail := ""
		if hs.Detail != "" {
			detail = "：" + hs.Detail
		}
		switch {
		case hs.StatusCode == 429:
			return fmt.Sprintf("%sWoRMS 返回 HTTP 429（限流）。请稍后重试%s", prefix, detail)
		case hs.StatusCode >= 500:
			return fmt.Sprintf("%sWoRMS 服务端错误 HTTP %d%s。请稍后重试", prefix, hs.StatusCode, detail)
		default:
			return fmt.Sprintf("%sWoRMS 返回 HTTP %d%s", prefix, hs.StatusCode, detail)
		}
	}

	var ue *worms.UnexpectedContentError
	if errors.As(err, &ue) {
		return fmt.Sprintf("%sWoRMS 返回了非预期内容（%s）：%s", prefix, ue.ContentType, ue.Detail)
	}

	if errors.Is(err, context.Canceled) {
		return "已取消"
	}
	low := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		return fmt.Sprintf("%s请求超时。建议检查网络/代理，或在配置中调大 timeout_seconds", prefix)
	}
	if strings.Contains(low, "tls") || strings.Contains(low, "handshake") {
		return fmt.Sprintf("%s连接失败（TLS/SSL）。建议配置 proxy.url 或稍后重试", prefix)
	}
	return err.Error()
}
