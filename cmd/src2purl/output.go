package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"src2purl/internal/api"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderReport(out io.Writer, report api.Report, explain bool) {
	footer := "Strategies run: " + joinOr(report.StrategiesRun, "none")
	if len(report.StrategiesFailed) > 0 {
		footer += " | unavailable: " + strings.Join(report.StrategiesFailed, ", ")
	}
	if len(report.Matches) == 0 {
		fmt.Fprintln(out, "No package matches found.")
		fmt.Fprintln(out, footer)
		return
	}

	cols := []column{col("Name"), col("Version"), numCol("Confidence"), col("Type"), col("License"), col("PURL"), col("Official")}
	if explain {
		cols = append(cols, numCol("Base"), numCol("Recency"), numCol("Popularity"), numCol("Authority"), col("Provider"))
	}

	rows := make([][]string, 0, len(report.Matches))
	for _, m := range report.Matches {
		row := []string{
			orDefault(m.Name, "Unknown"),
			orDefault(m.Version, "Unknown"),
			fmt.Sprintf("%.2f", m.Confidence),
			m.Type,
			orDefault(m.License, "Unknown"),
			orDefault(m.Purl, "N/A"),
			yesNo(m.Official),
		}
		if explain && m.Explain != nil {
			ex := m.Explain
			row = append(row,
				fmt.Sprintf("%.3f", ex.Base),
				fmt.Sprintf("%.3f", ex.Recency),
				fmt.Sprintf("%.3f", ex.Popularity),
				fmt.Sprintf("%.3f", ex.Authority),
				ex.Provider,
			)
		}
		rows = append(rows, row)
	}
	fmt.Fprintln(out, renderTable(cols, rows, footer))
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
