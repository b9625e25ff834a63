package extract

import (
	"strings"

	"github.com/ppiankov/wikigap/internal/model"
)

// ArchetypeGeneral is returned when no archetype keywords match
const ArchetypeGeneral = "general"

type archetypeRule struct {
	archetype string
	keywords  []string
}

// Rules are checked in order; the first archetype with a hit wins
var archetypeRules = []archetypeRule{
	{"university", []string{"university", "college", "institute", "school", "academy"}},
	{"municipalCouncil", []string{"council", "municipality", "district", "city", "town"}},
}

// DefaultRegionKeywords are the place names that mark an article as in focus
var DefaultRegionKeywords = []string{
	"zambia", "zambian", "lusaka", "copperbelt", "ndola", "kitwe",
	"livingstone", "chipata", "kasama", "mongu", "solwezi", "kabwe",
}

// DetectArchetype classifies a record by keyword hits in its title or body
func DetectArchetype(rec model.ContentRecord) string {
	title := strings.ToLower(rec.Title)
	text := strings.ToLower(rec.RawText)
	for _, rule := range archetypeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(title, kw) || strings.Contains(text, kw) {
				return rule.archetype
			}
		}
	}
	return ArchetypeGeneral
}

// IsRegionRelevant reports whether the body mentions any of keywords.
// A nil keywords slice uses DefaultRegionKeywords.
func IsRegionRelevant(rec model.ContentRecord, keywords []string) bool {
	if keywords == nil {
		keywords = DefaultRegionKeywords
	}
	text := strings.ToLower(rec.RawText)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
