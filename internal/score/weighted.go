package score

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/wikigap/internal/model"
)

// Weighted scores a record by counting failed checks against the template.
// Sections and fields match by case-insensitive substring. Every required
// section, every required entity and the citation floor is one check, and
// score = round(100 * passed / total).
func Weighted(tpl *model.Template, rec model.ContentRecord) model.AnalysisResult {
	gaps := make([]model.Gap, 0)

	for _, required := range tpl.RequiredSections {
		if !anyContains(rec.SectionTitles(), required) {
			gaps = append(gaps, model.Gap{
				Kind:     model.GapMissingSection,
				Detail:   required,
				Severity: model.SeverityHigh,
			})
		}
	}

	keys := make([]string, 0, len(rec.FieldTable))
	for k := range rec.FieldTable {
		keys = append(keys, k)
	}
	for _, entity := range tpl.RequiredEntities {
		if !anyContains(keys, entity) {
			gaps = append(gaps, model.Gap{
				Kind:     model.GapMissingField,
				Detail:   entity,
				Severity: model.SeverityMedium,
			})
		}
	}

	if rec.CitationCount < tpl.MinCitations {
		gaps = append(gaps, model.Gap{
			Kind:     model.GapInsufficientCitations,
			Detail:   fmt.Sprintf("Only %d citations found, minimum %d recommended", rec.CitationCount, tpl.MinCitations),
			Severity: model.SeverityHigh,
		})
	}

	total := len(tpl.RequiredSections) + len(tpl.RequiredEntities) + 1
	passed := total - len(gaps)
	score := int(math.Round(float64(passed) / float64(total) * 100))

	suggestions := make([]string, 0, len(gaps)+len(tpl.Suggestions))
	for _, g := range gaps {
		suggestions = append(suggestions, SuggestionFor(g))
	}
	suggestions = append(suggestions, tpl.Suggestions...)

	return model.AnalysisResult{
		Score:       model.Score(clamp(score)),
		Gaps:        gaps,
		Suggestions: suggestions,
	}
}

// Unrecognized is the result for articles without a template
func Unrecognized() model.AnalysisResult {
	return model.AnalysisResult{
		Score:       50,
		Gaps:        []model.Gap{},
		Suggestions: []string{"Article type not recognized for detailed analysis"},
	}
}

// anyContains reports whether any candidate contains needle, ignoring case
func anyContains(candidates []string, needle string) bool {
	n := strings.ToLower(needle)
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c), n) {
			return true
		}
	}
	return false
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
