// Package classify 把一组候选记录归到粗粒度类群（Diatom/Dinoflagellate/Haptophyte/Other）。
package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/John-Robertt/planktax/internal/domain"
)

// DefaultMaxHops 是同物异名跳转的默认上限。
const DefaultMaxHops = 8

// 未归类的原因（Outcome.Reason）。
const (
	ReasonExhausted = "exhausted"  // 扫完记录也没有 accepted 的属级记录或可跳转的异名
	ReasonNoRecords = "no_records" // 跳转到的有效名查不到记录
	ReasonCycle     = "cycle"      // valid_name 形成环
	ReasonHopLimit  = "hop_limit"  // 跳转次数超过上限
)

// Lookup 是跳转有效名时使用的主查询（与 resolver 的主查询是同一个服务）。
type Lookup interface {
	RecordsByName(ctx context.Context, name string, marineOnly bool) ([]domain.Record, error)
}

// Outcome 是归类结果：Found=false 表示显式“无归类”，Reason 说明原因。
type Outcome struct {
	Found bool
	Group domain.Group

	// Record 是最终用于归类的记录（Found=true 时有效）。
	Record domain.Record
	// Chain 是依次跳转过的有效名（不含起点）。
	Chain  []string
	Reason string
}

// Assignment 把 Outcome 转为单条映射；Found=false 时 ok=false。
func (o Outcome) Assignment(genus domain.Genus) (domain.Assignment, bool) {
	if !o.Found {
		return domain.Assignment{}, false
	}
	return domain.Assignment{Genus: genus, Group: o.Group}, true
}

// Classifier 顺序扫描记录，遇到同物异名则跳转到有效名的记录重新扫描。
//
// 规则（固定）：
// - 状态不是 accepted/nomen dubium：valid_name 缺失或指向自身则跳过；否则查询 valid_name，
//   用新记录重新扫描，当前列表剩余记录不再看（首个异名跳转优先）
// - 状态是 accepted/nomen dubium：rank=Genus 则按 phylum 归类并结束；否则跳过
// - 跳转用显式循环 + 已访问集合 + 次数上限，环或超限直接返回“无归类”
type Classifier struct {
	Lookup Lookup

	// MaxHops <= 0 时使用 DefaultMaxHops。
	MaxHops int
	// MarineOnly 传给跳转查询；默认 false。
	MarineOnly bool
}

// Classify 对 records 归类。genus 只用于错误信息与访问集合的起点。
// 查询失败返回 error；其余情况一律返回 Outcome。
func (c Classifier) Classify(ctx context.Context, genus domain.Genus, records []domain.Record) (Outcome, error) {
	maxHops := c.MaxHops
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}

	visited := map[string]struct{}{string(genus): {}}
	var chain []string
	current := records

	for {
		next, redirect, out, done := scan(current)
		if done {
			out.Chain = chain
			return out, nil
		}
		if !redirect {
			return Outcome{Chain: chain, Reason: ReasonExhausted}, nil
		}

		if _, seen := visited[next]; seen {
			return Outcome{Chain: append(chain, next), Reason: ReasonCycle}, nil
		}
		if len(chain) >= maxHops {
			return Outcome{Chain: chain, Reason: ReasonHopLimit}, nil
		}
		visited[next] = struct{}{}
		chain = append(chain, next)

		if c.Lookup == nil {
			return Outcome{}, errors.New("classifier 缺少 Lookup，无法跳转有效名")
		}
		recs, err := c.Lookup.RecordsByName(ctx, next, c.MarineOnly)
		if err != nil {
			return Outcome{}, fmt.Errorf("genus=%s 跳转有效名 %q 失败：%w", genus, next, err)
		}
		if len(recs) == 0 {
			return Outcome{Chain: chain, Reason: ReasonNoRecords}, nil
		}
		current = recs
	}
}

// scan 扫描一个记录列表，返回三种结果之一：
// - done=true：找到 accepted 属级记录，out 已填好
// - redirect=true：遇到可跳转的异名，next 为有效名
// - 都为 false：列表扫完无结果
func scan(records []domain.Record) (next string, redirect bool, out Outcome, done bool) {
	for _, r := range records {
		if !r.IsAccepted() {
			name, ok := r.Redirect()
			if !ok {
				continue
			}
			return name, true, Outcome{}, false
		}
		if r.Rank != domain.RankGenus {
			continue
		}
		return "", false, Outcome{Found: true, Group: domain.GroupForPhylum(r.Phylum), Record: r}, true
	}
	return "", false, Outcome{}, false
}
