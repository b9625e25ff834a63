package model

import "strings"

// Template is the gold-standard definition of an article archetype
type Template struct {
	RequiredSections []string      `json:"requiredSections" yaml:"requiredSections"`
	RequiredEntities []string      `json:"requiredEntities" yaml:"requiredEntities"`
	MinCitations     int           `json:"minCitations" yaml:"minCitations"`
	Sections         []SectionSpec `json:"sections,omitempty" yaml:"sections,omitempty"`
	// GoldSections is the bulk audit section list
	GoldSections []string `json:"goldSections,omitempty" yaml:"goldSections,omitempty"`
	// Suggestions are appended unconditionally by the weighted strategy
	Suggestions []string `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

// SectionSpec holds the per-section expectations of a template
type SectionSpec struct {
	Title    string   `json:"title" yaml:"title"`
	MinWords int      `json:"minWords" yaml:"minWords"`
	Entities []string `json:"entities" yaml:"entities"`
}

// Section finds the section spec whose title matches case-insensitively
func (t *Template) Section(title string) (SectionSpec, bool) {
	for _, s := range t.Sections {
		if strings.EqualFold(s.Title, title) {
			return s, true
		}
	}
	return SectionSpec{}, false
}

// AuditSections returns the section list used for wikitext auditing
func (t *Template) AuditSections() []string {
	if len(t.GoldSections) > 0 {
		return t.GoldSections
	}
	return t.RequiredSections
}
