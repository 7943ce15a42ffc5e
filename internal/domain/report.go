package domain

import (
	"encoding/json"
	"time"
)

const (
	ItemResolved     = "resolved"
	ItemUnmatched    = "unmatched"
	ItemUnclassified = "unclassified"
	ItemInvalid      = "invalid"
)

const (
	ViaExact = "exact"
	ViaFuzzy = "fuzzy"
)

const (
	ErrCodeNoRecords    = "no_records"
	ErrCodeUnclassified = "unclassified"
	ErrCodeInvalidLabel = "invalid_label"
)

// RunReport 是对外稳定输出（--report 的 stdout / --out 文件）的结构。
type RunReport struct {
	RunID string `json:"run_id" yaml:"run_id"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	Summary     ReportSummary `json:"summary" yaml:"summary"`
	Assignments []Assignment  `json:"assignments" yaml:"assignments"`
	Items       []ItemResult  `json:"items" yaml:"items"`
}

type ReportSummary struct {
	Input        int `json:"input" yaml:"input"`
	Resolved     int `json:"resolved" yaml:"resolved"`
	Unmatched    int `json:"unmatched" yaml:"unmatched"`
	Unclassified int `json:"unclassified" yaml:"unclassified"`
	Invalid      int `json:"invalid" yaml:"invalid"`
}

type ItemResult struct {
	Input string `json:"input" yaml:"input"`
	Genus Genus  `json:"genus" yaml:"genus"`

	Status string `json:"status" yaml:"status"`
	Group  Group  `json:"group,omitempty" yaml:"group,omitempty"`

	MatchedName string   `json:"matched_name,omitempty" yaml:"matched_name,omitempty"`
	Via         string   `json:"via,omitempty" yaml:"via,omitempty"`
	Chain       []string `json:"chain" yaml:"chain"`
	Reason      string   `json:"reason,omitempty" yaml:"reason,omitempty"`

	ErrorCode string `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty" yaml:"error_msg,omitempty"`

	Attempts []LookupAttempt `json:"attempts" yaml:"attempts"`
}

// LookupAttempt 是 resolver 一次查询的对外表示（解释为何走了 fuzzy）。
type LookupAttempt struct {
	Stage   string `json:"stage" yaml:"stage"`
	Name    string `json:"name" yaml:"name"`
	Records int    `json:"records" yaml:"records"`
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) summary 由 items 计算得出
//
// items 与 assignments 保持输入顺序，不排序。
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Assignments == nil {
		r.Assignments = []Assignment{}
	}
	if r.Items == nil {
		r.Items = []ItemResult{}
	}

	s := ReportSummary{Input: len(r.Items)}
	for _, it := range r.Items {
		switch it.Status {
		case ItemResolved:
			s.Resolved++
		case ItemUnmatched:
			s.Unmatched++
		case ItemUnclassified:
			s.Unclassified++
		case ItemInvalid:
			s.Invalid++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
