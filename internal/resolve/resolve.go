// Package resolve 实现“属名 -> 候选记录”的查询链：先精确/部分匹配，失败后走模糊匹配纠正名称再查一次。
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/planktax/internal/domain"
)

const (
	StageExact   = "exact"
	StageFuzzy   = "fuzzy"
	StageRefetch = "refetch"
)

// NameLookup 是主查询入口（WoRMS REST AphiaRecordsByName）。
// 无匹配必须返回 nil/空切片且 err=nil；err 只表示传输/服务故障。
type NameLookup interface {
	RecordsByName(ctx context.Context, name string, marineOnly bool) ([]domain.Record, error)
}

// FuzzyMatcher 是兜底入口（WoRMS SOAP matchAphiaRecordsByNames）。
type FuzzyMatcher interface {
	MatchRecordsByNames(ctx context.Context, names []string, fuzzy, marineOnly bool) ([][]domain.Record, error)
}

// Attempt 记录一次查询（用于解释为何走了 fuzzy）。
type Attempt struct {
	Stage   string // "exact" / "fuzzy" / "refetch"
	Name    string // 本次查询使用的名称
	Records int    // 返回的候选数
	Err     error
}

// Resolution 是一次解析的结果。Records 为空表示该属名无匹配（应跳过，不是错误）。
type Resolution struct {
	Records     []domain.Record
	MatchedName string // 最终查询到记录所用的名称（fuzzy 纠正后可能与输入不同）
	Via         string // domain.ViaExact / domain.ViaFuzzy；无匹配时为空
	Attempts    []Attempt
}

// Found 判断是否拿到了候选记录。
func (r Resolution) Found() bool { return len(r.Records) > 0 }

// Resolver 组合主查询与模糊兜底。
//
// 约束：
// - 这一层不做重试（HTTP 层已对 GET 做有界重试）
// - 任一服务故障直接返回 *Error，由上层终止批处理
type Resolver struct {
	Lookup NameLookup
	Fuzzy  FuzzyMatcher

	// MarineOnly 传给两个服务；默认 false（包含非海洋类群）。
	MarineOnly bool
	// DisableFuzzy 关闭模糊兜底（Fuzzy 为 nil 时同样视为关闭）。
	DisableFuzzy bool
}

// Error 是 resolver 阶段的可追溯错误。
type Error struct {
	Genus domain.Genus
	Stage string // "exact" / "fuzzy" / "refetch"
	Name  string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("genus=%s stage=%s name=%q: %v", e.Genus, e.Stage, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Resolve 按“主查询 -> 模糊匹配 -> 纠正名再查”的顺序取候选记录。
func (r Resolver) Resolve(ctx context.Context, genus domain.Genus) (Resolution, error) {
	name := strings.TrimSpace(string(genus))
	if name == "" {
		return Resolution{}, errors.New("genus 不能为空")
	}
	if r.Lookup == nil {
		return Resolution{}, errors.New("resolver 缺少 NameLookup")
	}

	var res Resolution

	recs, err := r.Lookup.RecordsByName(ctx, name, r.MarineOnly)
	res.Attempts = append(res.Attempts, Attempt{Stage: StageExact, Name: name, Records: len(recs), Err: err})
	if err != nil {
		return res, &Error{Genus: genus, Stage: StageExact, Name: name, Err: err}
	}
	if len(recs) > 0 {
		res.Records, res.MatchedName, res.Via = recs, name, domain.ViaExact
		return res, nil
	}

	if r.DisableFuzzy || r.Fuzzy == nil {
		return res, nil
	}

	matches, err := r.Fuzzy.MatchRecordsByNames(ctx, []string{name}, true, r.MarineOnly)
	corrected := firstGenus(matches)
	res.Attempts = append(res.Attempts, Attempt{Stage: StageFuzzy, Name: name, Records: countFirst(matches), Err: err})
	if err != nil {
		return res, &Error{Genus: genus, Stage: StageFuzzy, Name: name, Err: err}
	}
	if corrected == "" {
		return res, nil
	}

	recs, err = r.Lookup.RecordsByName(ctx, corrected, r.MarineOnly)
	res.Attempts = append(res.Attempts, Attempt{Stage: StageRefetch, Name: corrected, Records: len(recs), Err: err})
	if err != nil {
		return res, &Error{Genus: genus, Stage: StageRefetch, Name: corrected, Err: err}
	}
	if len(recs) > 0 {
		res.Records, res.MatchedName, res.Via = recs, corrected, domain.ViaFuzzy
	}
	return res, nil
}

// firstGenus 取模糊匹配结果中第一条记录的 genus 字段；结果为空或字段缺失返回空串。
func firstGenus(matches [][]domain.Record) string {
	if len(matches) == 0 || len(matches[0]) == 0 {
		return ""
	}
	return strings.TrimSpace(matches[0][0].Genus)
}

func countFirst(matches [][]domain.Record) int {
	if len(matches) == 0 {
		return 0
	}
	return len(matches[0])
}
