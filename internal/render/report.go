package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/wikigap/internal/audit"
	"github.com/ppiankov/wikigap/internal/model"
	"github.com/ppiankov/wikigap/internal/score"
)

const footer = "_Generated by wikigap " + model.Version + ". Scores measure structural completeness against a template, not accuracy._\n"

// Renderer writes analysis reports
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer; includeFooter appends the tool footer to Markdown
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	return writeJSON(report, path)
}

// RenderMarkdown writes the Markdown form of the report
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(r.Markdown(report)))
}

// Markdown renders one article report
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Completeness report: %s\n\n", report.Subject)
	fmt.Fprintf(&b, "- **Source:** %s\n", report.SourceURL)
	fmt.Fprintf(&b, "- **Analyzed:** %s\n", report.FetchedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "- **Article type:** %s\n", report.Archetype)
	fmt.Fprintf(&b, "- **Analysis:** %s", report.Source)
	if report.Model != "" {
		fmt.Fprintf(&b, " (%s)", report.Model)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- **Score:** %s (%s)\n\n", scoreText(report.Result.Score), scoreBand(report.Result.Score))

	b.WriteString("## Gaps\n\n")
	if len(report.Result.Gaps) == 0 {
		b.WriteString("No gaps detected.\n\n")
	} else {
		b.WriteString("| Severity | Type | Detail |\n|---|---|---|\n")
		for _, g := range report.Result.Gaps {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", g.Severity, g.Kind, escapeCell(g.Detail))
		}
		b.WriteString("\n")
	}

	if report.Sections != nil && len(report.Sections.IncompleteSections) > 0 {
		b.WriteString("## Incomplete sections\n\n")
		for _, s := range report.Sections.IncompleteSections {
			fmt.Fprintf(&b, "- **%s**: %s\n", s.Title, s.Reason)
		}
		b.WriteString("\n")
	}

	if len(report.Result.Suggestions) > 0 {
		b.WriteString("## Suggestions\n\n")
		for _, s := range report.Result.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}

	if guidance := guidelines(report.Result.Gaps); len(guidance) > 0 {
		b.WriteString("## Writing guidance\n\n")
		for _, g := range guidance {
			fmt.Fprintf(&b, "- %s\n", g)
		}
		b.WriteString("\n")
	}

	if len(report.Result.NewArticles) > 0 {
		b.WriteString("## Suggested new articles\n\n")
		for _, a := range report.Result.NewArticles {
			fmt.Fprintf(&b, "- **%s**", a.Name)
			if a.Rationale != "" {
				fmt.Fprintf(&b, ": %s", a.Rationale)
			}
			b.WriteString("\n")
			if len(a.SuggestedSections) > 0 {
				fmt.Fprintf(&b, "  - Sections: %s\n", strings.Join(a.SuggestedSections, ", "))
			}
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString(footer)
	}
	return b.String()
}

// guidelines returns writing guidance for missing sections and fields
func guidelines(gaps []model.Gap) []string {
	var out []string
	for _, g := range gaps {
		switch g.Kind {
		case model.GapMissingSection:
			out = append(out, fmt.Sprintf("%s: %s", g.Detail, score.SectionGuideline(g.Detail)))
		case model.GapMissingField:
			out = append(out, fmt.Sprintf("%s: %s", g.Detail, score.EntityGuideline(g.Detail)))
		}
	}
	return out
}

// RenderSummary prints a short console summary of the report
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	_, _ = fmt.Fprintf(w, "\n%s\n", report.Subject)
	_, _ = fmt.Fprintf(w, "  Type:  %s\n", report.Archetype)
	_, _ = fmt.Fprintf(w, "  Score: %s (%s)\n", scoreText(report.Result.Score), scoreBand(report.Result.Score))
	_, _ = fmt.Fprintf(w, "  Gaps:  %d\n", len(report.Result.Gaps))
	for _, g := range report.Result.Gaps {
		marker := " "
		if g.Severity == model.SeverityHigh {
			marker = "!"
		}
		_, _ = fmt.Fprintf(w, "   %s [%s] %s\n", marker, g.Severity, g.Detail)
	}
}

// AuditMarkdown renders the bulk audit as one table per entity type
func (r *Renderer) AuditMarkdown(results []audit.Result) string {
	var b strings.Builder
	summary := audit.Summarize(results)

	b.WriteString("# Coverage audit\n\n")
	fmt.Fprintf(&b, "%d entities, %d with articles, %d missing, average score %.1f\n\n",
		summary.Total, summary.Existing, summary.Missing, summary.AverageScore)

	for _, t := range []audit.EntityType{audit.TypeUniversity, audit.TypeCouncil} {
		rows := filterResults(results, t)
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", pluralType(t))
		b.WriteString("| Entity | Status | Score | Gaps |\n|---|---|---|---|\n")
		for _, res := range rows {
			status := "Missing"
			if res.Exists {
				status = "Exists"
			}
			labels := make([]string, 0, len(res.Gaps))
			for _, g := range res.Gaps {
				labels = append(labels, score.AuditLabel(g))
			}
			scoreCell := "-"
			if res.Exists {
				scoreCell = scoreText(res.Score)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", escapeCell(res.Entity.Name), status, scoreCell, escapeCell(strings.Join(labels, "; ")))
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString(footer)
	}
	return b.String()
}

// WriteAuditJSON writes audit results with their summary
func WriteAuditJSON(results []audit.Result, path string) error {
	return writeJSON(struct {
		Summary audit.Summary  `json:"summary"`
		Results []audit.Result `json:"results"`
	}{audit.Summarize(results), results}, path)
}

func filterResults(results []audit.Result, t audit.EntityType) []audit.Result {
	var out []audit.Result
	for _, r := range results {
		if r.Entity.Type == t {
			out = append(out, r)
		}
	}
	return out
}

func pluralType(t audit.EntityType) string {
	switch t {
	case audit.TypeUniversity:
		return "Universities"
	case audit.TypeCouncil:
		return "Councils"
	}
	return string(t)
}

func scoreBand(s model.Score) string {
	if s == model.ScoreNA {
		return "not scored"
	}
	return score.Classify(int(s))
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func writeJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
