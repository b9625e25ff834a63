package score

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/wikigap/internal/model"
)

// Penalties of the additive strategy
const (
	penaltyMissingSection = 5
	penaltyLowCoverage    = 3
	penaltyShortSection   = 2
	penaltyPerReference   = 2

	// coverageThreshold is the minimum fraction of section entities that must appear
	coverageThreshold = 0.7
)

// Additive starts at 100 and subtracts fixed penalties for missing sections,
// thin or short sections and each reference below the template minimum.
// Section titles must match exactly, ignoring case.
func Additive(tpl *model.Template, rec model.ContentRecord) model.SectionReport {
	report := model.SectionReport{
		MissingSections:    []string{},
		IncompleteSections: []model.IncompleteSection{},
	}
	score := 100.0

	for _, required := range tpl.RequiredSections {
		if !hasSection(rec.Sections, required) {
			report.MissingSections = append(report.MissingSections, required)
			score -= penaltyMissingSection
		}
	}

	for _, sec := range rec.Sections {
		spec, ok := tpl.Section(strings.TrimSpace(sec.Title))
		if !ok {
			continue
		}

		coverage := entityCoverage(sec.Body, spec.Entities)
		if coverage < coverageThreshold {
			report.IncompleteSections = append(report.IncompleteSections, model.IncompleteSection{
				Title:  sec.Title,
				Reason: fmt.Sprintf("Low coverage of required entities (%d%%)", int(math.Round(coverage*100))),
				Kind:   model.GapLowEntityCoverage,
			})
			score -= penaltyLowCoverage
		}

		words := len(strings.Fields(sec.Body))
		if words < spec.MinWords {
			report.IncompleteSections = append(report.IncompleteSections, model.IncompleteSection{
				Title:  sec.Title,
				Reason: fmt.Sprintf("Section too short (%d words, minimum %d required)", words, spec.MinWords),
				Kind:   model.GapShortSection,
			})
			score -= penaltyShortSection
		}
	}

	if rec.CitationCount < tpl.MinCitations {
		score -= float64((tpl.MinCitations - rec.CitationCount) * penaltyPerReference)
		report.IncompleteSections = append(report.IncompleteSections, model.IncompleteSection{
			Title:  "References",
			Reason: fmt.Sprintf("Insufficient references (%d/%d)", rec.CitationCount, tpl.MinCitations),
			Kind:   model.GapInsufficientCitations,
		})
	}

	report.Score = clamp(int(math.Round(math.Max(0, score))))
	return report
}

func hasSection(sections []model.Section, title string) bool {
	want := strings.TrimSpace(title)
	for _, s := range sections {
		if strings.EqualFold(strings.TrimSpace(s.Title), want) {
			return true
		}
	}
	return false
}

// entityCoverage is the fraction of entities found in text; none required counts as full
func entityCoverage(text string, entities []string) float64 {
	if len(entities) == 0 {
		return 1
	}
	lower := strings.ToLower(text)
	found := 0
	for _, e := range entities {
		if strings.Contains(lower, strings.ToLower(e)) {
			found++
		}
	}
	return float64(found) / float64(len(entities))
}
