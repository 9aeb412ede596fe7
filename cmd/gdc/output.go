package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gooddata/gdc/pkg/declarative"
)

// outputFormat specifies how the step report is rendered.
type outputFormat string

const (
	outputTable outputFormat = "table"
	outputJSON  outputFormat = "json"
	outputYAML  outputFormat = "yaml"
)

// parseOutputFormat parses and validates the output format flag.
func parseOutputFormat(s string) (outputFormat, error) {
	switch strings.ToLower(s) {
	case "table", "":
		return outputTable, nil
	case "json":
		return outputJSON, nil
	case "yaml":
		return outputYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (supported: table, json, yaml)", s)
	}
}

// stepRow is the serialized form of a step report.
type stepRow struct {
	Action  string  `json:"action" yaml:"action"`
	Step    string  `json:"step" yaml:"step"`
	Seconds float64 `json:"seconds" yaml:"seconds"`
	Status  string  `json:"status" yaml:"status"`
	Error   string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// printReport renders the steps of a run.
func printReport(w io.Writer, format outputFormat, reports []declarative.StepReport) error {
	data := make([]stepRow, 0, len(reports))
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		row := stepRow{
			Action:  string(r.Action),
			Step:    r.Step,
			Seconds: r.Duration.Seconds(),
			Status:  "ok",
			Error:   r.Error,
		}
		if r.Error != "" {
			row.Status = "failed"
		}
		data = append(data, row)
		rows = append(rows, []string{row.Action, row.Step, r.Duration.Round(time.Millisecond).String(), row.Status})
	}

	switch format {
	case outputJSON:
		return printJSON(w, map[string]any{"steps": data})
	case outputYAML:
		return printYAML(w, map[string]any{"steps": data})
	default:
		return printTable(w, []string{"action", "step", "duration", "status"}, rows)
	}
}

// printJSON writes pretty-printed JSON to the writer.
func printJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(data)
}

// printTable writes aligned columnar output to the writer.
func printTable(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, strings.ToUpper(strings.Join(headers, "\t")))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	return tw.Flush()
}
