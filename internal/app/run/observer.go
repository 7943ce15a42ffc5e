package run

import (
	"time"

	"github.com/John-Robertt/planktax/internal/domain"
)

// Observer 用于把“运行进度/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的输出契约）。
// - 事件按输入顺序串行触发；idx 从 1 开始。
type Observer interface {
	// OnStart 在开始处理第一条之前调用。
	OnStart(runID string, total int)
	// OnGenusStart 在查询某个属名之前调用（进度轨迹）。无效标签不会触发。
	OnGenusStart(idx, total int, g domain.Genus)
	// OnGenusDone 在某条输入处理完成时调用（含无效标签）。
	OnGenusDone(idx, total int, item domain.ItemResult, dur time.Duration)
	// OnFinish 只在整批成功结束时调用；终止批处理时不会触发。
	OnFinish(rr domain.RunReport, elapsed time.Duration)
}
