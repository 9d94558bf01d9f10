package mcp

import (
	"errors"
	"fmt"

	"mdpvis/internal/engine"
	"mdpvis/internal/ensemble"
	"mdpvis/internal/filter"
	"mdpvis/internal/stats"
	"mdpvis/internal/visuals"
)

type emptyInput struct{}

type filterInput struct {
	Variable   string  `json:"variable" jsonschema:"variable name as it appears in the events"`
	AnchorTime *int    `json:"anchor_time,omitempty" jsonschema:"time step the range applies to (default: current anchor time)"`
	Lower      float64 `json:"lower" jsonschema:"inclusive lower bound"`
	Upper      float64 `json:"upper" jsonschema:"inclusive upper bound"`
}

type removeFilterInput struct {
	Variable   string `json:"variable" jsonschema:"variable name"`
	AnchorTime *int   `json:"anchor_time,omitempty" jsonschema:"time step of the filter (default: current anchor time)"`
}

type anchorInput struct {
	AnchorTime int `json:"anchor_time" jsonschema:"new anchor time step, zero or greater"`
}

type filteredInput struct {
	IncludeTrajectories bool    `json:"include_trajectories,omitempty" jsonschema:"also return the filtered trajectories"`
	ExpectVersion       *uint64 `json:"expect_version,omitempty" jsonschema:"fail if the session has changed since this version"`
}

type variablesInput struct {
	Variables     []string `json:"variables,omitempty" jsonschema:"restrict the output to these variables"`
	ExpectVersion *uint64  `json:"expect_version,omitempty" jsonschema:"fail if the session has changed since this version"`
}

type brushInput struct {
	Variable      string  `json:"variable" jsonschema:"variable to bin at the anchor time"`
	ExpectVersion *uint64 `json:"expect_version,omitempty" jsonschema:"fail if the session has changed since this version"`
}

type ensembleInput struct {
	EnsembleID string `json:"ensemble_id" jsonschema:"ID from list_ensembles"`
}

type snapshotInput struct {
	EnsembleID   string          `json:"ensemble_id" jsonschema:"primary ensemble ID"`
	ComparatorID string          `json:"comparator_id,omitempty" jsonschema:"comparator ensemble ID; enters comparison mode"`
	AnchorTime   int             `json:"anchor_time,omitempty" jsonschema:"anchor time step"`
	Filters      []filter.Filter `json:"filters,omitempty" jsonschema:"filters to apply"`
}

type filteredOutput struct {
	Status       engine.Status         `json:"status"`
	Version      uint64                `json:"version"`
	Count        int                   `json:"count"`
	Total        int                   `json:"total"`
	Indices      []int                 `json:"indices"`
	Trajectories []ensemble.Trajectory `json:"trajectories,omitempty"`
}

type statisticsOutput struct {
	Status     engine.Status     `json:"status"`
	Version    uint64            `json:"version"`
	Summary    *stats.Summary    `json:"summary,omitempty"`
	Statistics *stats.Table      `json:"statistics,omitempty"`
	Comparator *stats.Table      `json:"comparator,omitempty"`
	Missing    []string          `json:"missing,omitempty"`
	Charts     map[string]string `json:"charts,omitempty"`
}

type brushOutput struct {
	engine.BrushResult
	Chart string `json:"chart,omitempty"`
}

type diffOutput struct {
	engine.DiffResult
	Charts map[string]string `json:"charts,omitempty"`
}

func (s *Server) handleAddFilter(in filterInput) (any, error) {
	if in.Variable == "" {
		return nil, errors.New("variable is required")
	}
	return s.engine.AddFilter(in.Variable, s.anchorOr(in.AnchorTime), in.Lower, in.Upper), nil
}

func (s *Server) handleRemoveFilter(in removeFilterInput) (any, error) {
	if in.Variable == "" {
		return nil, errors.New("variable is required")
	}
	return s.engine.RemoveFilter(in.Variable, s.anchorOr(in.AnchorTime)), nil
}

func (s *Server) handleClearFilters(emptyInput) (any, error) {
	return s.engine.ClearFilters(), nil
}

func (s *Server) handleChangeAnchorTime(in anchorInput) (any, error) {
	return s.engine.ChangeAnchorTime(in.AnchorTime), nil
}

func (s *Server) handleGetFilteredTrajectories(in filteredInput) (any, error) {
	if err := s.checkVersion(in.ExpectVersion); err != nil {
		return nil, err
	}
	r := s.engine.FilteredTrajectories()
	out := filteredOutput{
		Status:  r.Status,
		Version: r.Version,
		Count:   len(r.Indices),
		Total:   r.Total,
		Indices: r.Indices,
	}
	if in.IncludeTrajectories {
		out.Trajectories = r.Trajectories
	}
	return out, nil
}

func (s *Server) handleGetStatistics(in variablesInput) (any, error) {
	if err := s.checkVersion(in.ExpectVersion); err != nil {
		return nil, err
	}
	r := s.engine.Statistics()
	out := statisticsOutput{Status: r.Status, Version: r.Version}
	if r.Statistics == nil {
		return out, nil
	}

	summary := r.Statistics.Summarize()
	out.Summary = &summary
	out.Statistics, out.Missing = restrict(r.Statistics, in.Variables)
	out.Comparator, _ = restrict(r.Comparator, in.Variables)

	if s.cfg.EnableMermaidCharts {
		out.Charts = make(map[string]string)
		for _, v := range out.Statistics.Variables() {
			out.Charts[v] = visuals.FanChart(v, out.Statistics.Percentiles[v])
		}
	}
	return out, nil
}

func (s *Server) handleGetBrushCounts(in brushInput) (any, error) {
	if in.Variable == "" {
		return nil, errors.New("variable is required")
	}
	if err := s.checkVersion(in.ExpectVersion); err != nil {
		return nil, err
	}
	out := brushOutput{BrushResult: s.engine.BrushCounts(in.Variable)}
	if s.cfg.EnableMermaidCharts && out.Counts != nil {
		out.Chart = visuals.Histogram(*out.Counts)
	}
	return out, nil
}

func (s *Server) handleListEnsembles(emptyInput) (any, error) {
	return map[string]any{
		"state":     s.engine.State(),
		"ensembles": s.engine.Ensembles(),
	}, nil
}

func (s *Server) handleViewEnsemble(in ensembleInput) (any, error) {
	r, err := s.engine.ViewEnsemble(in.EnsembleID)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (s *Server) handleCompareTo(in ensembleInput) (any, error) {
	r, err := s.engine.CompareTo(in.EnsembleID)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (s *Server) handleExitComparison(emptyInput) (any, error) {
	return s.engine.ExitComparison(), nil
}

func (s *Server) handleGetComparisonDiff(in variablesInput) (any, error) {
	if err := s.checkVersion(in.ExpectVersion); err != nil {
		return nil, err
	}
	out := diffOutput{DiffResult: s.engine.ComparisonDiff()}
	if out.Diff == nil {
		return out, nil
	}
	if len(in.Variables) > 0 {
		out.Diff = restrictDiff(out.Diff, in.Variables)
	}
	if s.cfg.EnableMermaidCharts {
		out.Charts = make(map[string]string)
		for _, v := range out.Diff.Variables() {
			out.Charts[v] = visuals.DiffChart(v, out.Diff)
		}
	}
	return out, nil
}

func (s *Server) handleGetSnapshot(emptyInput) (any, error) {
	snap := s.engine.Snapshot()
	return snapshotInput{
		EnsembleID:   snap.EnsembleID,
		ComparatorID: snap.ComparatorID,
		AnchorTime:   snap.AnchorTime,
		Filters:      snap.Filters,
	}, nil
}

func (s *Server) handleRestoreSnapshot(in snapshotInput) (any, error) {
	r, err := s.engine.Restore(engine.Snapshot{
		EnsembleID:   in.EnsembleID,
		ComparatorID: in.ComparatorID,
		AnchorTime:   in.AnchorTime,
		Filters:      in.Filters,
	})
	if err != nil {
		if errors.Is(err, filter.ErrInvalidRange) || errors.Is(err, engine.ErrMissingVariable) {
			return nil, fmt.Errorf("snapshot is invalid: %w", err)
		}
		return nil, notFound(err)
	}
	return r, nil
}

func (s *Server) anchorOr(anchorTime *int) int {
	if anchorTime != nil {
		return *anchorTime
	}
	return s.engine.AnchorTime()
}

func (s *Server) checkVersion(v *uint64) error {
	if v == nil {
		return nil
	}
	return s.engine.CheckVersion(*v)
}

func notFound(err error) error {
	if engine.IsNotFound(err) {
		return fmt.Errorf("%w (call list_ensembles for valid IDs)", err)
	}
	return err
}
