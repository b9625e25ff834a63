package score

import (
	"fmt"

	"github.com/ppiankov/wikigap/internal/model"
)

var sectionGuidelines = map[string]string{
	"History":           "Include founding date, key milestones, and significant changes over time.",
	"Academic programs": "List major departments, degrees offered, and special programs.",
	"Notable alumni":    "Mention graduates who have made significant contributions.",
	"Research":          "Highlight major research areas, projects, and achievements.",
	"Geography":         "Describe location, terrain, climate, and neighbouring areas.",
	"Demographics":      "Give census population figures, languages, and growth trends.",
	"Economy":           "Cover major industries, employers, and economic initiatives.",
	"Administration":    "Describe the governing body, leadership, and organisational structure.",
}

var entityGuidelines = map[string]string{
	"founded":     "Add the establishment date and founding context.",
	"location":    "Include city, region, and geographical coordinates.",
	"type":        "Specify the type of institution or organization.",
	"students":    "Add current enrollment numbers and demographics.",
	"population":  "Add the latest census population with its year.",
	"mayor":       "Name the current mayor or council chairperson.",
	"established": "Add the date the council or settlement was established.",
	"area":        "Give the total area in square kilometres.",
}

// CitationSources are the source types recommended for citation gaps
var CitationSources = []string{"Academic journals", "Official documents", "Reliable news sources"}

// SectionGuideline returns writing guidance for a missing section
func SectionGuideline(section string) string {
	if g, ok := sectionGuidelines[section]; ok {
		return g
	}
	return "Add relevant information about this topic."
}

// EntityGuideline returns writing guidance for a missing infobox field
func EntityGuideline(entity string) string {
	if g, ok := entityGuidelines[entity]; ok {
		return g
	}
	return "Add this important information to the infobox."
}

// SuggestionFor renders the fixed suggestion for one gap
func SuggestionFor(g model.Gap) string {
	switch g.Kind {
	case model.GapMissingSection:
		return fmt.Sprintf("Add a '%s' section to improve article completeness", g.Detail)
	case model.GapMissingField:
		return fmt.Sprintf("Include '%s' information in the infobox", g.Detail)
	case model.GapInsufficientCitations:
		return "Add more reliable sources and citations"
	case model.GapLowEntityCoverage:
		return fmt.Sprintf("Expand coverage of key topics in %s", g.Detail)
	case model.GapShortSection:
		return fmt.Sprintf("Lengthen %s", g.Detail)
	}
	return g.Detail
}
