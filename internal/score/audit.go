package score

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/wikigap/internal/extract"
	"github.com/ppiankov/wikigap/internal/model"
)

// Audit weights and thresholds
const (
	auditSectionWeight = 0.5
	auditInfoboxWeight = 0.2
	auditRefWeight     = 0.3

	// MinAuditReferences is the reference count below which the audit reports a gap
	MinAuditReferences = 5
)

// AuditScore rates raw wikitext by section coverage, infobox presence and
// reference density: round(section*0.5 + infobox*0.2 + ref*0.3).
// refScore saturates at one reference per 100 words.
func AuditScore(required []string, wt extract.Wikitext) int {
	sectionScore := 0.0
	if len(required) > 0 {
		matched := 0
		for _, r := range required {
			if anyContains(wt.Sections, r) {
				matched++
			}
		}
		sectionScore = float64(matched) / float64(len(required)) * 100
	}

	infoboxScore := 0.0
	if wt.HasInfobox {
		infoboxScore = 100
	}

	refScore := math.Min(wt.RefsPer100Words()*100, 100)

	return int(math.Round(sectionScore*auditSectionWeight + infoboxScore*auditInfoboxWeight + refScore*auditRefWeight))
}

// AuditGaps lists what the wikitext lacks relative to required sections
func AuditGaps(required []string, wt extract.Wikitext) ([]model.Gap, []string) {
	gaps := make([]model.Gap, 0)
	suggestions := make([]string, 0)

	for _, r := range required {
		if !anyContains(wt.Sections, r) {
			gaps = append(gaps, model.Gap{Kind: model.GapMissingSection, Detail: r, Severity: model.SeverityHigh})
			suggestions = append(suggestions, fmt.Sprintf("Add a '%s' section to improve completeness.", r))
		}
	}
	if !wt.HasInfobox {
		gaps = append(gaps, model.Gap{Kind: model.GapMissingField, Detail: "infobox", Severity: model.SeverityMedium})
		suggestions = append(suggestions, "Add an infobox for key facts.")
	}
	if wt.RefCount < MinAuditReferences {
		gaps = append(gaps, model.Gap{
			Kind:     model.GapInsufficientCitations,
			Detail:   fmt.Sprintf("Only %d references found, minimum %d recommended", wt.RefCount, MinAuditReferences),
			Severity: model.SeverityHigh,
		})
		suggestions = append(suggestions, "Add more reliable sources and citations.")
	}
	return gaps, suggestions
}

// Audit combines AuditScore and AuditGaps into one result
func Audit(required []string, wt extract.Wikitext) model.AnalysisResult {
	gaps, suggestions := AuditGaps(required, wt)
	return model.AnalysisResult{
		Score:       model.Score(AuditScore(required, wt)),
		Gaps:        gaps,
		Suggestions: suggestions,
	}
}

// AuditLabel renders a gap the way the audit listing shows it
func AuditLabel(g model.Gap) string {
	switch g.Kind {
	case model.GapMissingSection:
		return "Missing section: " + g.Detail
	case model.GapMissingField:
		return "Missing " + strings.ToLower(g.Detail)
	case model.GapInsufficientCitations:
		return "Insufficient references"
	}
	return g.Detail
}
