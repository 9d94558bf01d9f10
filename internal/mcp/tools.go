package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

func (s *Server) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "ingest_ensemble",
		Description: "Load a batch of trajectories and make it the primary ensemble. " +
			"Pass either 'path' (a JSONL file, one trajectory per line as an array of events) or inline 'trajectories'. " +
			"Filters and any comparison are discarded.",
	}, tool("ingest_ensemble", s.handleIngestEnsemble))

	mcp.AddTool(server, &mcp.Tool{
		Name: "generate_ensemble",
		Description: "Simulate an Electric Car ensemble and make it the primary ensemble. " +
			"'query' maps parameter names (e.g. 'Sample Count', 'Seed', 'Evaluation Policy', 'Use MFMC') to numeric strings; omitted parameters use their defaults.",
	}, tool("generate_ensemble", s.handleGenerateEnsemble))

	mcp.AddTool(server, &mcp.Tool{
		Name: "add_filter",
		Description: "Keep only trajectories whose 'variable' at 'anchor_time' lies in [lower, upper]. " +
			"Replaces the filter for the same variable and time step. Equal bounds remove the filter; swapped bounds are normalized.",
	}, tool("add_filter", s.handleAddFilter))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_filter",
		Description: "Remove the filter for a variable at a time step (default: the current anchor time).",
	}, tool("remove_filter", s.handleRemoveFilter))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_filters",
		Description: "Remove every filter.",
	}, tool("clear_filters", s.handleClearFilters))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "change_anchor_time",
		Description: "Move the anchor time step. Every existing filter moves with it.",
	}, tool("change_anchor_time", s.handleChangeAnchorTime))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_filtered_trajectories",
		Description: "List the indices of the trajectories passing every filter, optionally with the trajectories themselves.",
	}, tool("get_filtered_trajectories", s.handleGetFilteredTrajectories))

	mcp.AddTool(server, &mcp.Tool{
		Name: "get_statistics",
		Description: "Percentile table (p0..p100 without p50) for every variable and time step of the filtered ensemble, plus the expected cumulative reward. " +
			"Restrict output with 'variables'. In comparison mode the comparator's table is included.",
	}, tool("get_statistics", s.handleGetStatistics))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_brush_counts",
		Description: "Histogram of a variable at the anchor time: all eligible trajectories versus the filtered ones, and the comparator difference in comparison mode.",
	}, tool("get_brush_counts", s.handleGetBrushCounts))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_ensembles",
		Description: "List every ensemble fetched in this session with its size, query and expected value.",
	}, tool("list_ensembles", s.handleListEnsembles))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "view_ensemble",
		Description: "Make an archived ensemble primary again. Leaves comparison mode and clears filters.",
	}, tool("view_ensemble", s.handleViewEnsemble))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "compare_to",
		Description: "Enter comparison mode against an archived ensemble. Filters are cleared and then apply to both ensembles.",
	}, tool("compare_to", s.handleCompareTo))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "exit_comparison",
		Description: "Leave comparison mode.",
	}, tool("exit_comparison", s.handleExitComparison))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_comparison_diff",
		Description: "Primary minus comparator percentiles, aligned by time step index and truncated to the shorter ensemble.",
	}, tool("get_comparison_diff", s.handleGetComparisonDiff))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_snapshot",
		Description: "Capture the current view (ensemble, comparator, anchor time and filters) so it can be restored later.",
	}, tool("get_snapshot", s.handleGetSnapshot))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "restore_snapshot",
		Description: "Rebuild a view captured by get_snapshot.",
	}, tool("restore_snapshot", s.handleRestoreSnapshot))
}

// tool adapts a plain handler to the SDK signature. Handler errors become
// tool errors the client can read.
func tool[In any](name string, h func(In) (any, error)) mcp.ToolHandlerFor[In, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		log.Debug().Str("tool", name).Msg("Tool called")
		data, err := h(in)
		if err != nil {
			log.Warn().Err(err).Str("tool", name).Msg("Tool failed")
			return nil, nil, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: formatResult(data)}},
		}, nil, nil
	}
}
