package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/groundcheck/internal/model"
)

// Renderer writes reports as JSON, Markdown and terminal summaries
type Renderer struct {
	out io.Writer
}

// NewRenderer creates a renderer whose summaries go to out
func NewRenderer(out io.Writer) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	return &Renderer{out: out}
}

// RenderJSON writes the report as indented JSON to path
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := MarshalReport(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// MarshalReport encodes a report as indented JSON
func MarshalReport(report *model.Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// RenderMarkdown writes the Markdown audit of a report to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	if err := os.WriteFile(path, []byte(Markdown(report)), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Markdown renders the audit: verdict, corrections table, claims and signals
func Markdown(report *model.Report) string {
	var b strings.Builder
	resp := report.Response

	b.WriteString("# Groundcheck Report\n\n")
	fmt.Fprintf(&b, "- **Check ID:** `%s`\n", report.CheckID)
	fmt.Fprintf(&b, "- **Checked:** %s\n", report.CheckedAt.Format("2006-01-02 15:04:05 UTC"))
	if report.Source != "" {
		fmt.Fprintf(&b, "- **Source:** %s\n", report.Source)
	}
	fmt.Fprintf(&b, "- **Accuracy index:** %d/100 (%s confidence)\n", report.Score.Index, report.Score.Confidence)
	fmt.Fprintf(&b, "- **Verdict:** %s\n\n", verdict(resp))

	b.WriteString("## Corrections\n\n")
	if len(resp.Corrections) == 0 {
		b.WriteString("No corrections.\n\n")
	} else {
		b.WriteString("| Kind | Class | Severity | Original | Replacement | Reason |\n")
		b.WriteString("|------|-------|----------|----------|-------------|--------|\n")
		for _, c := range resp.Corrections {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				c.Kind, c.Class, c.Severity, cell(c.Original), cell(c.Replacement), cell(c.Reason))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Claims\n\n")
	if len(resp.Validations) == 0 {
		b.WriteString("No numeric claims found.\n\n")
	} else {
		b.WriteString("| Line | Claim | Kind | Claimed | Actual | Severity | Source |\n")
		b.WriteString("|------|-------|------|---------|--------|----------|--------|\n")
		for _, v := range resp.Validations {
			actual := "n/a"
			if v.ActualValue != nil {
				actual = fmt.Sprintf("%g", *v.ActualValue)
			}
			src := "-"
			if v.GroundTruth != nil {
				src = v.GroundTruth.ToolName
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %g | %s | %s | %s |\n",
				v.Claim.Line, cell(v.Claim.RawText), v.Claim.Kind, v.ClaimedValue, actual, v.Severity, src)
		}
		b.WriteString("\n")
	}

	if len(report.Parsed.Mismatches) > 0 {
		b.WriteString("## List Mismatches\n\n")
		for _, lm := range report.Parsed.Mismatches {
			status := "left as written, no ground truth"
			if listCorrected(resp, lm.List) {
				status = "reconciled"
			}
			fmt.Fprintf(&b, "- line %d: %s claimed %g, list has %d items (%s)\n",
				lm.Claim.Line, cell(lm.Claim.RawText), lm.Claim.Value, lm.List.ItemCount, status)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Signals\n\n")
	for _, s := range report.Score.Signals {
		fmt.Fprintf(&b, "- **%s** (%s): %s", s.Type, s.Severity, s.Description)
		if f, ok := s.Data["formula"].(string); ok {
			fmt.Fprintf(&b, " `%s`", f)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if resp.CorrectionsMade && !resp.Blocked {
		b.WriteString("## Corrected Answer\n\n")
		b.WriteString(resp.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSummary prints a short verdict to the renderer's writer
func (r *Renderer) RenderSummary(report *model.Report) {
	resp := report.Response
	m := resp.Metadata
	fmt.Fprintf(r.out, "\n")
	fmt.Fprintf(r.out, "  Verdict:      %s\n", verdict(resp))
	fmt.Fprintf(r.out, "  Index:        %d/100 (%s confidence)\n", report.Score.Index, report.Score.Confidence)
	fmt.Fprintf(r.out, "  Claims:       %d found, %d verified, %d corrected\n",
		len(resp.Validations), m.ClaimsValidated, m.ClaimsCorrected)
	fmt.Fprintf(r.out, "  Lists:        %d found, %d mismatched, %d verified, %d corrected\n",
		len(report.Parsed.Lists), len(report.Parsed.Mismatches), m.ListsValidated, m.ListsCorrected)
	if m.SkippedOverlaps > 0 {
		fmt.Fprintf(r.out, "  Overlaps:     %d skipped\n", m.SkippedOverlaps)
	}
	for _, c := range resp.Corrections {
		fmt.Fprintf(r.out, "  [%s] %s\n", c.Severity, c.Reason)
	}
	fmt.Fprintf(r.out, "\n")
}

// listCorrected reports whether an applied or proposed action targets the list
func listCorrected(resp model.CorrectedResponse, list model.ExtractedList) bool {
	for _, c := range resp.Corrections {
		if c.List != nil && c.List.Start == list.Start {
			return true
		}
	}
	return false
}

func verdict(resp model.CorrectedResponse) string {
	switch {
	case resp.Blocked:
		return "BLOCKED (critical mismatch)"
	case resp.Metadata.ReportOnly && len(resp.Corrections) > 0:
		return fmt.Sprintf("%d correction(s) proposed, max severity %s", len(resp.Corrections), resp.Severity)
	case resp.CorrectionsMade:
		return fmt.Sprintf("%d correction(s) applied, max severity %s", len(resp.Corrections), resp.Severity)
	default:
		return "no corrections needed"
	}
}

// cell flattens text for a Markdown table cell
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", "<br>")
	if r := []rune(s); len(r) > 80 {
		s = string(r[:77]) + "..."
	}
	return s
}
