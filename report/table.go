// Package report renders and persists evaluation results.
package report

import (
	"fmt"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/viam-modules/motmetrics/metrics"
)

// RenderSummary formats a summary as a text table. Column headers come from headers, falling
// back to the metric name. Ratios print as percentages, distances with three decimals and
// counts as integers.
func RenderSummary(s metrics.Summary, headers map[string]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, 0, len(s.Metrics)+1)
	header = append(header, "")
	for _, name := range s.Metrics {
		label := headers[name]
		if label == "" {
			label = name
		}
		header = append(header, label)
	}
	tw.AppendHeader(header)

	for i, row := range s.Rows {
		if i == len(s.Rows)-1 && row.Name == metrics.OverallName && i > 0 {
			tw.AppendSeparator()
		}
		r := make(table.Row, 0, len(s.Metrics)+1)
		r = append(r, row.Name)
		for _, name := range s.Metrics {
			r = append(r, FormatValue(name, row.Values[name]))
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(s.Metrics)+1)
	configs = append(configs, table.ColumnConfig{Number: 1, Align: text.AlignLeft})
	for i := range s.Metrics {
		configs = append(configs, table.ColumnConfig{
			Number:      i + 2,
			Align:       text.AlignRight,
			AlignHeader: text.AlignRight,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// FormatValue formats one metric value according to its kind in the standard registry.
func FormatValue(name string, v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	kind := metrics.Count
	if d, ok := metrics.Standard().Lookup(name); ok {
		kind = d.Kind
	}
	switch kind {
	case metrics.Ratio:
		return fmt.Sprintf("%.1f%%", v*100)
	case metrics.Distance:
		return fmt.Sprintf("%.3f", v)
	default:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	}
}
