package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/ericfisherdev/credaudit/internal/application"
	"github.com/ericfisherdev/credaudit/internal/domain/model"
)

var severityOrder = []model.Severity{
	model.SeverityCritical,
	model.SeverityHigh,
	model.SeverityMedium,
	model.SeverityLow,
}

// reportRow is the JSON shape of one scored record. Secrets are omitted.
type reportRow struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Identity string   `json:"identity"`
	Score    int      `json:"score"`
	Severity string   `json:"severity"`
	Factors  []string `json:"factors"`
}

// sortByRisk orders scored records by score descending, then name, then ID.
// Unscored records sort last.
func sortByRisk(records []model.Credential) []model.Credential {
	out := append([]model.Credential(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := scoreOf(out[i]), scoreOf(out[j])
		if si != sj {
			return si > sj
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func scoreOf(c model.Credential) int {
	if c.Risk == nil {
		return -1
	}
	return c.Risk.Score
}

// RenderRiskReport writes a deterministic text report of scored records.
func RenderRiskReport(w io.Writer, records []model.Credential) error {
	sorted := sortByRisk(records)

	counts := make(map[model.Severity]int, len(severityOrder))
	for _, r := range sorted {
		if r.Risk != nil {
			counts[r.Risk.Severity]++
		}
	}

	fmt.Fprintf(w, "Risk report: %d record(s)\n", len(sorted))
	parts := make([]string, 0, len(severityOrder))
	for _, s := range severityOrder {
		parts = append(parts, fmt.Sprintf("%s %d", s, counts[s]))
	}
	fmt.Fprintf(w, "%s\n\n", strings.Join(parts, " | "))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tSEVERITY\tNAME\tIDENTITY")
	for _, r := range sorted {
		if r.Risk == nil {
			fmt.Fprintf(tw, "-\t-\t%s\t%s\n", r.Name, r.Identity)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Risk.Score, r.Risk.Severity, r.Name, r.Identity)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, r := range sorted {
		if r.Risk == nil || len(r.Risk.Factors) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s (%s)\n", r.Name, r.Identity)
		for _, f := range r.Risk.Factors {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
	return nil
}

// RenderRiskJSON writes the scored records as a JSON array.
func RenderRiskJSON(w io.Writer, records []model.Credential) error {
	sorted := sortByRisk(records)
	rows := make([]reportRow, 0, len(sorted))
	for _, r := range sorted {
		row := reportRow{ID: r.ID, Name: r.Name, Identity: r.Identity, Factors: []string{}}
		if r.Risk != nil {
			row.Score = r.Risk.Score
			row.Severity = string(r.Risk.Severity)
			row.Factors = append(row.Factors, r.Risk.Factors...)
		}
		rows = append(rows, row)
	}
	return writeJSON(w, rows)
}

// RenderRunSummary writes the end-of-run summary and, when identities were
// left unresolved, the resume hint.
func RenderRunSummary(w io.Writer, s application.RunSummary) {
	fmt.Fprintf(w, "Checked %d of %d identities: %d breached, %d safe, %d errors",
		s.Processed, s.Groups, s.Breached, s.Safe, s.Errors)
	if s.RateLimited > 0 {
		fmt.Fprintf(w, " (%d rate limited)", s.RateLimited)
	}
	fmt.Fprintln(w)

	if s.Interrupted {
		fmt.Fprintln(w, "Run interrupted before all identities were checked.")
	}
	if s.NeedsResume() {
		fmt.Fprintln(w, "Some identities are still unchecked. Run `credaudit check --resume` to continue.")
	}
}

// RenderProgress writes progress as a single line.
func RenderProgress(w io.Writer, p model.Progress) {
	fmt.Fprintf(w, "Identities: %d total, %d checked (%d breached, %d safe), %d remaining\n",
		p.Total, p.Checked, p.Breached, p.Safe, p.Remaining)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
