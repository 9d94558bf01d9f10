package engine

import (
	"math"
	"testing"

	"mdpvis/internal/ensemble"
	"mdpvis/internal/filter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(values ...[]float64) []ensemble.Trajectory {
	out := make([]ensemble.Trajectory, len(values))
	for i, vs := range values {
		traj := make(ensemble.Trajectory, len(vs))
		for step, v := range vs {
			traj[step] = ensemble.Event{"x": v, "Discounted Reward": 1.0, "images": "frame.png"}
		}
		out[i] = traj
	}
	return out
}

func scenario(t *testing.T) (*Engine, Result) {
	t.Helper()
	e := New(DefaultConfig(), nil)
	r := e.OnNewEnsemble("scenario", "", series([]float64{1, 10}, []float64{2, 20}, []float64{3, 30}))
	require.Equal(t, StatusOK, r.Status)
	return e, r
}

type recordingView struct {
	updates []Update
	brushes int
	counts  []map[string]Counts
}

func (v *recordingView) UpdateData(u Update)                  { v.updates = append(v.updates, u) }
func (v *recordingView) UpdateBrush(_ []filter.Filter, _ int) { v.brushes++ }
func (v *recordingView) BrushCounts(c map[string]Counts)      { v.counts = append(v.counts, c) }

func TestEngine_FilterScenario(t *testing.T) {
	e, r := scenario(t)
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 3, r.Active)
	assert.Equal(t, StateIdle, r.State)
	assert.Equal(t, []string{"Discounted Reward", "x"}, e.Variables())

	r = e.AddFilter("x", 0, 1.5, 3)
	require.Equal(t, StatusOK, r.Status)
	assert.Equal(t, 2, r.Active)
	require.NotNil(t, r.Change)
	assert.Equal(t, filter.Added, r.Change.Op)

	filtered := e.FilteredTrajectories()
	assert.Equal(t, []int{1, 2}, filtered.Indices)
	assert.Len(t, filtered.Trajectories, 2)

	st := e.Statistics()
	require.Equal(t, StatusOK, st.Status)
	row, ok := st.Statistics.Row("x", 0)
	require.True(t, ok)
	assert.Equal(t, 3.0, row.P100)
	assert.Equal(t, 2.0, row.P0)

	r = e.RemoveFilter("x", 0)
	assert.Equal(t, 3, r.Active)
	assert.Equal(t, []int{0, 1, 2}, e.FilteredTrajectories().Indices)
}

func TestEngine_AddFilterIdempotent(t *testing.T) {
	e, _ := scenario(t)

	first := e.AddFilter("x", 0, 1.5, 3)
	second := e.AddFilter("x", 0, 1.5, 3)

	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, filter.Unchanged, second.Change.Op)
	assert.Len(t, e.Filters(), 1)
}

func TestEngine_DegenerateRangeRemovesFilter(t *testing.T) {
	e, _ := scenario(t)
	e.AddFilter("x", 0, 1.5, 3)

	r := e.AddFilter("x", 0, 2, 2)

	assert.Equal(t, filter.Removed, r.Change.Op)
	assert.Empty(t, e.Filters())
	assert.Equal(t, 3, r.Active)
}

func TestEngine_InvalidInputs(t *testing.T) {
	tests := []struct {
		name   string
		apply  func(e *Engine) Result
		status Status
	}{
		{"unknown variable", func(e *Engine) Result { return e.AddFilter("y", 0, 0, 1) }, StatusMissingVariable},
		{"denylisted variable", func(e *Engine) Result { return e.AddFilter("images", 0, 0, 1) }, StatusMissingVariable},
		{"NaN bound", func(e *Engine) Result { return e.AddFilter("x", 0, math.NaN(), 1) }, StatusInvalidRange},
		{"negative anchor", func(e *Engine) Result { return e.AddFilter("x", -1, 0, 1) }, StatusInvalidRange},
		{"negative anchor change", func(e *Engine) Result { return e.ChangeAnchorTime(-2) }, StatusInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, before := scenario(t)

			r := tt.apply(e)

			assert.Equal(t, tt.status, r.Status)
			assert.Equal(t, before.Version, r.Version)
			assert.Empty(t, e.Filters())
			assert.Equal(t, 0, e.AnchorTime())
		})
	}
}

func TestEngine_InvertedRangeIsNormalized(t *testing.T) {
	e, _ := scenario(t)

	r := e.AddFilter("x", 0, 3, 1.5)

	require.Equal(t, StatusOK, r.Status)
	assert.True(t, r.Change.Normalized)
	assert.Equal(t, 2, r.Active)
}

func TestEngine_NoDataAndRecovery(t *testing.T) {
	e, _ := scenario(t)

	r := e.AddFilter("x", 0, 100, 200)
	assert.Equal(t, StatusNoData, r.Status)
	assert.Equal(t, StateIdle, r.State)
	assert.Equal(t, StatusNoData, e.Statistics().Status)
	assert.Nil(t, e.Statistics().Statistics)
	assert.Equal(t, StatusNoData, e.FilteredTrajectories().Status)

	r = e.ClearFilters()
	assert.Equal(t, StatusOK, r.Status)
	assert.Equal(t, 3, r.Active)
}

func TestEngine_EmptyEnsembleDiscardsFilters(t *testing.T) {
	e, _ := scenario(t)
	e.AddFilter("x", 0, 1.5, 3)

	r := e.OnNewEnsemble("empty", "", nil)

	assert.Equal(t, StatusNoData, r.Status)
	assert.Equal(t, StateIdle, e.State())
	assert.Empty(t, e.Filters())
	assert.Equal(t, 1, e.Archive().Count())
	assert.Equal(t, StatusNoData, e.Statistics().Status)
}

func TestEngine_ChangeAnchorTime(t *testing.T) {
	e, _ := scenario(t)
	r := e.AddFilter("x", 0, 15, 25)
	require.Equal(t, StatusNoData, r.Status)

	r = e.ChangeAnchorTime(1)
	assert.Equal(t, StatusOK, r.Status)
	assert.Equal(t, 1, r.Active)
	assert.Equal(t, []filter.Filter{{Variable: "x", AnchorTime: 1, Lower: 15, Upper: 25}}, e.Filters())

	// Every trajectory has ended by step 5.
	r = e.ChangeAnchorTime(5)
	assert.Equal(t, StatusNoData, r.Status)
}

func TestEngine_Comparison(t *testing.T) {
	e, first := scenario(t)
	e.OnNewEnsemble("other", "", series([]float64{0, 5}, []float64{1, 5}, []float64{2, 5}))
	e.AddFilter("x", 0, 0.5, 2)

	r, err := e.CompareTo(first.EnsembleID)
	require.NoError(t, err)

	assert.Equal(t, StateComparison, r.State)
	assert.Empty(t, e.Filters())
	d := e.ComparisonDiff()
	require.Equal(t, StatusOK, d.Status)
	row := d.Diff.Percentiles["x"][0]
	assert.Equal(t, -1.0, row.P100) // 2 - 3
	assert.Equal(t, -1.0, row.P0)   // 0 - 1
	require.NotNil(t, d.Diff.ExpectedValue)
	assert.Equal(t, 0.0, *d.Diff.ExpectedValue)
	assert.NotNil(t, e.Statistics().Comparator)

	// Filters apply to both ensembles while comparing.
	r = e.AddFilter("x", 0, 1, 2)
	assert.Equal(t, StateComparison, r.State)
	d = e.ComparisonDiff()
	require.Equal(t, StatusOK, d.Status)
	assert.Equal(t, 0.0, d.Diff.Percentiles["x"][0].P100) // 2 - 2
	assert.Equal(t, 0.0, d.Diff.Percentiles["x"][0].P0)   // 1 - 1

	r = e.ExitComparison()
	assert.Equal(t, StateIdle, r.State)
	assert.Equal(t, StatusNotComparing, e.ComparisonDiff().Status)
	assert.Equal(t, StatusNotComparing, e.ExitComparison().Status)
}

func TestEngine_ViewEnsembleLeavesComparison(t *testing.T) {
	e, first := scenario(t)
	second := e.OnNewEnsemble("other", "", series([]float64{4}))
	_, err := e.CompareTo(first.EnsembleID)
	require.NoError(t, err)

	r, err := e.ViewEnsemble(first.EnsembleID)
	require.NoError(t, err)

	assert.Equal(t, StateIdle, r.State)
	assert.Equal(t, first.EnsembleID, r.EnsembleID)
	infos := e.Ensembles()
	require.Len(t, infos, 2)
	assert.True(t, infos[0].Primary)
	assert.False(t, infos[1].Secondary)
	assert.Equal(t, second.EnsembleID, infos[1].ID)
}

func TestEngine_UnknownEnsemble(t *testing.T) {
	e, _ := scenario(t)

	_, err := e.CompareTo("missing")
	assert.True(t, IsNotFound(err))
	_, err = e.ViewEnsemble("missing")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, StateIdle, e.State())
}

func TestEngine_CheckVersion(t *testing.T) {
	e, r := scenario(t)
	require.NoError(t, e.CheckVersion(r.Version))

	e.AddFilter("x", 0, 1.5, 3)

	assert.ErrorIs(t, e.CheckVersion(r.Version), ErrStale)
}

func TestEngine_SnapshotRestore(t *testing.T) {
	e, _ := scenario(t)
	e.ChangeAnchorTime(1)
	e.AddFilter("x", 1, 15, 35)
	snap := e.Snapshot()

	other := New(DefaultConfig(), e.Archive())
	r, err := other.Restore(snap)
	require.NoError(t, err)

	assert.Equal(t, StatusOK, r.Status)
	assert.Equal(t, e.FilteredTrajectories().Indices, other.FilteredTrajectories().Indices)
	assert.Equal(t, e.Statistics().Statistics, other.Statistics().Statistics)
	assert.Equal(t, snap, other.Snapshot())

	_, err = other.Restore(Snapshot{EnsembleID: snap.EnsembleID, ComparatorID: "missing"})
	assert.True(t, IsNotFound(err))
	assert.Equal(t, snap, other.Snapshot())
}

func TestEngine_RestoreMissingVariable(t *testing.T) {
	e, _ := scenario(t)
	e.AddFilter("x", 0, 1.5, 3)
	before := e.Snapshot()

	r := e.AddFilter("y", 0, 0, 1)
	assert.Equal(t, StatusMissingVariable, r.Status)

	snap := before
	snap.Filters = append(snap.Filters, filter.Filter{Variable: "y", AnchorTime: 0, Lower: 0, Upper: 1})
	_, err := e.Restore(snap)
	assert.ErrorIs(t, err, ErrMissingVariable)

	assert.Equal(t, before, e.Snapshot())
	assert.Equal(t, []int{1, 2}, e.FilteredTrajectories().Indices)
	assert.Equal(t, StatusOK, e.Statistics().Status)
}

func TestEngine_RestoreComparison(t *testing.T) {
	e, first := scenario(t)
	e.OnNewEnsemble("second", "", series([]float64{4, 40}, []float64{5, 50}))
	_, err := e.CompareTo(first.EnsembleID)
	require.NoError(t, err)
	e.AddFilter("x", 0, 2, 5)
	snap := e.Snapshot()
	require.Equal(t, first.EnsembleID, snap.ComparatorID)

	other := New(DefaultConfig(), e.Archive())
	r, err := other.Restore(snap)
	require.NoError(t, err)

	assert.Equal(t, StateComparison, r.State)
	assert.Equal(t, StateComparison, other.State())
	diff := other.ComparisonDiff()
	assert.Equal(t, StatusOK, diff.Status)
	assert.Equal(t, e.ComparisonDiff().Diff, diff.Diff)
	assert.Equal(t, snap, other.Snapshot())
}

func TestEngine_NotifiesSubscribers(t *testing.T) {
	e := New(DefaultConfig(), nil)
	view := &recordingView{}
	e.Subscribe(view)

	e.OnNewEnsemble("scenario", "", series([]float64{1, 10}, []float64{2, 20}))
	e.AddFilter("x", 0, 1.5, 3)
	e.AddFilter("x", 0, 1.5, 3)

	require.Len(t, view.updates, 2)
	assert.Equal(t, 2, view.brushes)
	last := view.updates[1]
	assert.Equal(t, StateFiltering, last.State)
	assert.Equal(t, []int{1}, last.Active)
	assert.Contains(t, view.counts[1], "x")
}

func TestEngine_BrushCounts(t *testing.T) {
	e, _ := scenario(t)
	e.AddFilter("x", 0, 1.5, 3)

	r := e.BrushCounts("x")

	require.Equal(t, StatusOK, r.Status)
	assert.Equal(t, 1.0, r.Counts.Domain.Min)
	assert.Equal(t, 3.0, r.Counts.Domain.Max)
	assert.Equal(t, []int{1, 0, 0, 0, 1, 0, 0, 0, 0, 1}, r.Counts.Total)
	assert.Equal(t, []int{0, 0, 0, 0, 1, 0, 0, 0, 0, 1}, r.Counts.Active)
	assert.Nil(t, r.Counts.Comparator)

	assert.Equal(t, StatusMissingVariable, e.BrushCounts("nope").Status)
}

func TestEngine_EnsembleExpectedValue(t *testing.T) {
	e, _ := scenario(t)

	infos := e.Ensembles()

	require.Len(t, infos, 1)
	require.NotNil(t, infos[0].ExpectedValue)
	assert.Equal(t, 2.0, *infos[0].ExpectedValue)
	assert.Equal(t, 2, infos[0].MaxLength)
}
