package performance

import (
	"fmt"
	"strings"
)

const ruleWidth = 72

// FormatReport renders a single report as a two-column table.
func FormatReport(title string, r Report) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	fmt.Fprintf(&b, "%-25s %15s\n", "Metric", "Value")
	b.WriteString(strings.Repeat("-", ruleWidth) + "\n")
	for _, m := range r.OrderedMetrics() {
		fmt.Fprintf(&b, "%-25s %15s\n", m.Name, formatValue(m))
	}
	return b.String()
}

// FormatComparison renders portfolio, benchmark and difference columns.
func FormatComparison(title string, c Comparison) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	fmt.Fprintf(&b, "%-25s %15s %15s %15s\n", "Metric", "Portfolio", "Benchmark", "Difference")
	b.WriteString(strings.Repeat("-", ruleWidth) + "\n")

	portfolio := c.Portfolio.OrderedMetrics()
	benchmark := c.Benchmark.OrderedMetrics()
	diff := c.Difference.OrderedMetrics()
	for i, m := range portfolio {
		fmt.Fprintf(&b, "%-25s %15s %15s %15s\n", m.Name, formatValue(m), formatValue(benchmark[i]), formatValue(diff[i]))
	}
	return b.String()
}

func formatValue(m Metric) string {
	if m.Percent {
		return fmt.Sprintf("%.2f%%", m.Value*100)
	}
	return fmt.Sprintf("%.4f", m.Value)
}
