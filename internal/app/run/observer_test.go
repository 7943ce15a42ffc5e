package run

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/John-Robertt/planktax/internal/classify"
	"github.com/John-Robertt/planktax/internal/domain"
	"github.com/John-Robertt/planktax/internal/genus"
	"github.com/John-Robertt/planktax/internal/resolve"
)

type recordObserver struct {
	startTotal int
	started    []domain.Genus
	done       []string
	finished   int
}

func (o *recordObserver) OnStart(runID string, total int) { o.startTotal = total }

func (o *recordObserver) OnGenusStart(idx, total int, g domain.Genus) {
	o.started = append(o.started, g)
}

func (o *recordObserver) OnGenusDone(idx, total int, item domain.ItemResult, dur time.Duration) {
	o.done = append(o.done, item.Status)
}

func (o *recordObserver) OnFinish(rr domain.RunReport, elapsed time.Duration) { o.finished++ }

type stubResolver struct {
	byGenus map[domain.Genus][]domain.Record
	err     error
}

func (s stubResolver) Resolve(ctx context.Context, g domain.Genus) (resolve.Resolution, error) {
	if s.err != nil {
		return resolve.Resolution{}, &resolve.Error{Genus: g, Stage: resolve.StageExact, Name: string(g), Err: s.err}
	}
	recs := s.byGenus[g]
	res := resolve.Resolution{Attempts: []resolve.Attempt{{Stage: resolve.StageExact, Name: string(g), Records: len(recs)}}}
	if len(recs) > 0 {
		res.Records = recs
		res.MatchedName = string(g)
		res.Via = domain.ViaExact
	}
	return res, nil
}

func TestExecuteWithObserver_EmitsEventsInOrder(t *testing.T) {
	p := Pipeline{
		Resolver: stubResolver{byGenus: map[domain.Genus][]domain.Record{
			"Emiliania": {acceptedGenus("Emiliania", "Haptophyta")},
		}},
		Classifier: classify.Classifier{},
	}
	entries := genus.Collect([]string{"Emiliania", "??", "Nopeia"})

	obs := &recordObserver{}
	rr, err := ExecuteWithObserver(context.Background(), entries, p, obs)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	if obs.startTotal != 3 || obs.finished != 1 {
		t.Fatalf("start/finish 事件不符合预期：total=%d finished=%d", obs.startTotal, obs.finished)
	}
	if !reflect.DeepEqual(obs.started, []domain.Genus{"Emiliania", "Nopeia"}) {
		t.Fatalf("OnGenusStart 不符合预期：%v", obs.started)
	}
	wantDone := []string{domain.ItemResolved, domain.ItemInvalid, domain.ItemUnmatched}
	if !reflect.DeepEqual(obs.done, wantDone) {
		t.Fatalf("OnGenusDone 不符合预期：got=%v want=%v", obs.done, wantDone)
	}
	if len(rr.Assignments) != 1 || rr.Assignments[0].Group != domain.GroupHaptophyte {
		t.Fatalf("assignments 不符合预期：%+v", rr.Assignments)
	}
}

func TestExecuteWithObserver_NilObserver_SameResultAsExecute(t *testing.T) {
	p := Pipeline{
		Resolver: stubResolver{byGenus: map[domain.Genus][]domain.Record{
			"Gymnodinium": {acceptedGenus("Gymnodinium", "Myzozoa")},
		}},
		Classifier: classify.Classifier{},
	}
	entries := genus.Collect([]string{"Gymnodinium", "Nopeia"})

	a, err := Execute(context.Background(), entries, p)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b, err := ExecuteWithObserver(context.Background(), entries, p, &recordObserver{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	// run_id 与时间字段每次不同；对比时归零。
	for _, rr := range []*domain.RunReport{&a, &b} {
		rr.RunID = ""
		rr.StartedAt, rr.FinishedAt = time.Time{}, time.Time{}
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("observer 不应改变结果：\nExecute=%+v\nWithObs=%+v", a, b)
	}
}

func TestExecuteWithObserver_AbortSkipsFinish(t *testing.T) {
	p := Pipeline{
		Resolver:   stubResolver{err: errors.New("connection reset")},
		Classifier: classify.Classifier{},
	}
	obs := &recordObserver{}
	_, err := ExecuteWithObserver(context.Background(), genus.Collect([]string{"Emiliania"}), p, obs)

	var re *resolve.Error
	if !errors.As(err, &re) || re.Genus != "Emiliania" {
		t.Fatalf("期望 *resolve.Error，实际 %v", err)
	}
	if obs.finished != 0 || len(obs.done) != 0 {
		t.Fatalf("终止时不应触发 done/finish：%+v", obs)
	}
}

func TestExecute_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Pipeline{Resolver: stubResolver{}, Classifier: classify.Classifier{}}
	_, err := Execute(ctx, genus.Collect([]string{"Emiliania"}), p)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("期望 context.Canceled，实际 %v", err)
	}
	if HumanizeError(err) != "已取消" {
		t.Fatalf("取消提示不符合预期：%q", HumanizeError(err))
	}
}

func TestExecute_IncompletePipeline(t *testing.T) {
	if _, err := Execute(context.Background(), nil, Pipeline{}); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}
