package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/signalnine/crucible/internal/result"
)

type EvaluationSummary struct {
	Engine      string   `json:"engine"`
	Scheme      string   `json:"scheme"`
	Mode        string   `json:"mode"`
	Status      string   `json:"status"`
	Metric      string   `json:"metric,omitempty"`
	Value       *float64 `json:"value,omitempty"`
	Correlation *float64 `json:"correlation,omitempty"`
	DurationMS  int64    `json:"duration_ms"`
}

// Generate reads evaluation results under runDir and produces a summary report.
func Generate(runDir, format string, w io.Writer) error {
	metas, err := result.CollectEvaluations(runDir)
	if err != nil {
		return err
	}
	return Write(Summarize(metas), format, w)
}

// Write renders summaries as table, markdown or json.
func Write(summaries []EvaluationSummary, format string, w io.Writer) error {
	switch format {
	case "markdown":
		return writeMarkdown(summaries, w)
	case "json":
		return writeJSON(summaries, w)
	default:
		return writeTable(summaries, w)
	}
}

func Summarize(metas []*result.EvaluationMeta) []EvaluationSummary {
	var summaries []EvaluationSummary
	for _, m := range metas {
		s := EvaluationSummary{
			Engine:     m.Engine,
			Scheme:     m.Scheme,
			Mode:       m.Mode,
			Status:     status(m),
			DurationMS: m.DurationMS,
		}
		if name, v, ok := m.Headline(); ok {
			s.Metric = name
			s.Value = &v
		}
		if !m.Nominal {
			if c, ok := m.Number("Correlation coefficient"); ok {
				s.Correlation = &c
			}
		}
		summaries = append(summaries, s)
	}
	return summaries
}

func status(m *result.EvaluationMeta) string {
	switch {
	case m.Error != "":
		return "failed"
	case m.Performed:
		return "ok"
	default:
		return "skipped"
	}
}

func number(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func writeTable(summaries []EvaluationSummary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENGINE\tSCHEME\tMODE\tSTATUS\tMETRIC\tVALUE\tCORRELATION\tDURATION")
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%dms\n",
			s.Engine, s.Scheme, s.Mode, s.Status, orDash(s.Metric),
			number(s.Value, "%.4f"), number(s.Correlation, "%.4f"), s.DurationMS)
	}
	return tw.Flush()
}

func writeMarkdown(summaries []EvaluationSummary, w io.Writer) error {
	fmt.Fprintln(w, "| Engine | Scheme | Mode | Status | Metric | Value | Correlation | Duration |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|---|---|")
	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s | %s | %dms |\n",
			s.Engine, s.Scheme, s.Mode, s.Status, orDash(s.Metric),
			number(s.Value, "%.4f"), number(s.Correlation, "%.4f"), s.DurationMS)
	}
	return nil
}

func writeJSON(summaries []EvaluationSummary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// WriteHistory renders the recorded evaluations of one scheme across runs.
func WriteHistory(entries []result.HistoryEntry, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tENGINE\tMODE\tMETRIC\tVALUE\tRUN")
	for _, e := range entries {
		name, v, ok := e.Meta.Headline()
		value := "-"
		if ok {
			value = fmt.Sprintf("%.4f", v)
		} else {
			name = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Meta.CreatedAt.Format("2006-01-02 15:04:05"), e.Meta.Engine, e.Meta.Mode, name, value, e.RunDir)
	}
	return tw.Flush()
}
