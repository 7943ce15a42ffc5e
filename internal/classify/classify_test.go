package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/planktax/internal/domain"
)

type mapLookup struct {
	byName map[string][]domain.Record
	err    error
	calls  []string
}

func (m *mapLookup) RecordsByName(ctx context.Context, name string, marineOnly bool) ([]domain.Record, error) {
	m.calls = append(m.calls, name)
	if m.err != nil {
		return nil, m.err
	}
	return m.byName[name], nil
}

func accepted(name, rank, phylum string) domain.Record {
	return domain.Record{ScientificName: name, Status: domain.StatusAccepted, Rank: rank, Phylum: phylum}
}

func synonym(name, valid string) domain.Record {
	return domain.Record{ScientificName: name, Status: "unaccepted", Rank: domain.RankGenus, ValidName: valid}
}

func TestClassify_PhylumMapping(t *testing.T) {
	tests := []struct {
		name   string
		phylum string
		want   domain.Group
	}{
		{"diatom", "Ochrophyta", domain.GroupDiatom},
		{"dinoflagellate", "Myzozoa", domain.GroupDinoflagellate},
		{"haptophyte", "Haptophyta", domain.GroupHaptophyte},
		{"other phylum", "Ciliophora", domain.GroupOther},
		{"absent phylum", "", domain.GroupOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Classifier{}.Classify(context.Background(), "G", []domain.Record{accepted("G", domain.RankGenus, tt.phylum)})
			require.NoError(t, err)
			require.True(t, out.Found)
			assert.Equal(t, tt.want, out.Group)

			a, ok := out.Assignment("G")
			require.True(t, ok)
			assert.Equal(t, domain.Assignment{Genus: "G", Group: tt.want}, a)
		})
	}
}

func TestClassify_NomenDubiumCounts(t *testing.T) {
	r := domain.Record{ScientificName: "Dubia", Status: domain.StatusNomenDubium, Rank: domain.RankGenus, Phylum: "Myzozoa"}
	out, err := Classifier{}.Classify(context.Background(), "Dubia", []domain.Record{r})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, domain.GroupDinoflagellate, out.Group)
}

func TestClassify_SkipsNonGenusRanks(t *testing.T) {
	recs := []domain.Record{
		accepted("Gymnodiniaceae", "Family", "Myzozoa"),
		accepted("Gymnodinium catenatum", "Species", "Myzozoa"),
		accepted("Gymnodinium", domain.RankGenus, "Myzozoa"),
	}
	out, err := Classifier{}.Classify(context.Background(), "Gymnodinium", recs)
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, "Gymnodinium", out.Record.ScientificName)
}

func TestClassify_FollowsSynonym(t *testing.T) {
	lk := &mapLookup{byName: map[string][]domain.Record{
		"Emiliania": {accepted("Emiliania", domain.RankGenus, "Haptophyta")},
	}}
	out, err := Classifier{Lookup: lk}.Classify(context.Background(), "Pontosphaera", []domain.Record{synonym("Pontosphaera", "Emiliania")})
	require.NoError(t, err)
	require.True(t, out.Found)
	assert.Equal(t, domain.GroupHaptophyte, out.Group)
	if diff := cmp.Diff([]string{"Emiliania"}, out.Chain); diff != "" {
		t.Fatalf("chain 不符合预期 (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"Emiliania"}, lk.calls)
}

func TestClassify_FirstSynonymWins(t *testing.T) {
	// 首个可跳转的异名优先：后面的 accepted 属级记录不会再被看。
	lk := &mapLookup{byName: map[string][]domain.Record{
		"B": {accepted("B", domain.RankGenus, "Myzozoa")},
	}}
	recs := []domain.Record{
		synonym("A", "B"),
		accepted("A", domain.RankGenus, "Ochrophyta"),
	}
	out, err := Classifier{Lookup: lk}.Classify(context.Background(), "A", recs)
	require.NoError(t, err)
	assert.Equal(t, domain.GroupDinoflagellate, out.Group)
}

func TestClassify_SkipsSelfAndMissingValidName(t *testing.T) {
	lk := &mapLookup{}
	recs := []domain.Record{
		synonym("A", "A"),
		synonym("A", ""),
		accepted("A", domain.RankGenus, "Ochrophyta"),
	}
	out, err := Classifier{Lookup: lk}.Classify(context.Background(), "A", recs)
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, domain.GroupDiatom, out.Group)
	assert.Empty(t, lk.calls)
}

func TestClassify_ExhaustedIsExplicitAbsence(t *testing.T) {
	recs := []domain.Record{
		accepted("Ceratiaceae", "Family", "Myzozoa"),
		synonym("X", ""),
	}
	out, err := Classifier{}.Classify(context.Background(), "X", recs)
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Equal(t, ReasonExhausted, out.Reason)
	_, ok := out.Assignment("X")
	assert.False(t, ok)
}

func TestClassify_Cycle(t *testing.T) {
	lk := &mapLookup{byName: map[string][]domain.Record{
		"B": {synonym("B", "C")},
		"C": {synonym("C", "A")},
	}}
	out, err := Classifier{Lookup: lk}.Classify(context.Background(), "A", []domain.Record{synonym("A", "B")})
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Equal(t, ReasonCycle, out.Reason)
	if diff := cmp.Diff([]string{"B", "C", "A"}, out.Chain); diff != "" {
		t.Fatalf("chain 不符合预期 (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"B", "C"}, lk.calls)
}

func TestClassify_HopLimit(t *testing.T) {
	lk := &mapLookup{byName: map[string][]domain.Record{
		"B": {synonym("B", "C")},
		"C": {synonym("C", "D")},
		"D": {accepted("D", domain.RankGenus, "Ochrophyta")},
	}}
	out, err := Classifier{Lookup: lk, MaxHops: 2}.Classify(context.Background(), "A", []domain.Record{synonym("A", "B")})
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Equal(t, ReasonHopLimit, out.Reason)
	assert.Len(t, lk.calls, 2)

	out, err = Classifier{Lookup: lk, MaxHops: 3}.Classify(context.Background(), "A", []domain.Record{synonym("A", "B")})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, domain.GroupDiatom, out.Group)
}

func TestClassify_RedirectWithoutRecords(t *testing.T) {
	out, err := Classifier{Lookup: &mapLookup{}}.Classify(context.Background(), "A", []domain.Record{synonym("A", "Gone")})
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Equal(t, ReasonNoRecords, out.Reason)
}

func TestClassify_LookupErrorPropagates(t *testing.T) {
	boom := errors.New("timeout")
	_, err := Classifier{Lookup: &mapLookup{err: boom}}.Classify(context.Background(), "A", []domain.Record{synonym("A", "B")})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
