package mcp

import (
	"encoding/json"
	"slices"

	"mdpvis/internal/compare"
	"mdpvis/internal/percentile"
	"mdpvis/internal/stats"

	"github.com/rs/zerolog/log"
)

func formatResult(data any) string {
	out, _ := json.MarshalIndent(data, "", "  ")
	return string(out)
}

// restrict returns a copy of table holding only the named variables, and
// the names the table does not have. No names means the whole table.
func restrict(table *stats.Table, variables []string) (*stats.Table, []string) {
	if table == nil || len(variables) == 0 {
		return table, nil
	}
	out := *table
	out.Percentiles = make(map[string][]percentile.Row, len(variables))
	var missing []string
	for _, v := range variables {
		rows, ok := table.Percentiles[v]
		if !ok {
			missing = append(missing, v)
			continue
		}
		out.Percentiles[v] = rows
	}
	return &out, missing
}

func restrictDiff(diff *compare.DiffTable, variables []string) *compare.DiffTable {
	out := &compare.DiffTable{
		Percentiles:   make(map[string][]percentile.Row, len(variables)),
		ExpectedValue: diff.ExpectedValue,
	}
	for _, v := range variables {
		if rows, ok := diff.Percentiles[v]; ok {
			out.Percentiles[v] = rows
		}
		if slices.Contains(diff.Truncated, v) {
			out.Truncated = append(out.Truncated, v)
		}
	}
	return out
}

// saveArchive persists the session's ensembles so a restarted server can
// view and compare them again.
func (s *Server) saveArchive() {
	if s.cfg.CacheDir == "" {
		return
	}
	if err := s.engine.Archive().Save(s.cfg.CacheDir); err != nil {
		log.Warn().Err(err).Str("dir", s.cfg.CacheDir).Msg("Failed to save ensemble archive")
	}
}
