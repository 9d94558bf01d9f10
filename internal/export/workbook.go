// Package export writes statistics tables to Excel workbooks.
package export

import (
	"errors"
	"fmt"
	"strings"

	"mdpvis/internal/percentile"
	"mdpvis/internal/stats"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// SummarySheet is the first sheet of every workbook.
const SummarySheet = "summary"

const maxSheetName = 31

// ErrNoTable is returned when there is nothing to export.
var ErrNoTable = errors.New("no statistics to export")

// Header is the column layout of every variable sheet.
func Header() []string {
	h := []string{"time"}
	for _, label := range percentile.Labels {
		h = append(h, fmt.Sprintf("p%d", label))
	}
	return append(h, "count")
}

// WriteWorkbook saves the table to path, one sheet per variable.
func WriteWorkbook(path string, table *stats.Table) error {
	f, err := Build(table)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("variables", len(table.Percentiles)).Msg("Statistics exported")
	return nil
}

// Build lays the table out in a new workbook.
func Build(table *stats.Table) (*excelize.File, error) {
	if table == nil {
		return nil, ErrNoTable
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, err
	}

	summary := [][]any{
		{"trajectories", table.Trajectories},
		{"time steps", table.MaxLength},
		{"variables", len(table.Percentiles)},
	}
	if table.ExpectedValue != nil {
		summary = append(summary, []any{"expected value", *table.ExpectedValue})
	}
	if table.Sampled {
		summary = append(summary, []any{"sample size", table.SampleSize})
	}
	if err := writeRows(f, SummarySheet, summary); err != nil {
		f.Close()
		return nil, err
	}

	used := map[string]bool{SummarySheet: true}
	for _, variable := range table.Variables() {
		sheet := sheetName(variable, used)
		if _, err := f.NewSheet(sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("creating sheet for %s: %w", variable, err)
		}
		if err := writeRows(f, sheet, variableRows(table.Percentiles[variable])); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func variableRows(rows []percentile.Row) [][]any {
	header := Header()
	out := make([][]any, 0, len(rows)+1)
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	out = append(out, head)

	for _, r := range rows {
		line := make([]any, 0, len(header))
		line = append(line, r.Time)
		for _, v := range r.Values() {
			line = append(line, v)
		}
		out = append(out, append(line, r.Count))
	}
	return out
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("writing %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

// sheetName makes a variable name a valid, unique sheet name.
func sheetName(variable string, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, variable)
	name = strings.Trim(name, "'")
	if name == "" {
		name = "variable"
	}
	name = truncate(name, maxSheetName)

	candidate := name
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		candidate = truncate(name, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
