package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// GapKind classifies a detected deficiency
type GapKind string

const (
	GapMissingSection        GapKind = "missing_section"
	GapMissingField          GapKind = "missing_entity"
	GapInsufficientCitations GapKind = "insufficient_citations"
	GapLowEntityCoverage     GapKind = "low_entity_coverage"
	GapShortSection          GapKind = "short_section"
)

// Severity indicates how much a gap matters
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Valid reports whether s is one of high, medium, low
func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Gap is a deficiency between a content record and its template.
// JSON keys keep the wire vocabulary consumed by the panel and the popup.
type Gap struct {
	Kind     GapKind  `json:"type"`
	Detail   string   `json:"content"`
	Severity Severity `json:"severity"`
}

// Score is a completeness score in [0,100], or ScoreNA for degraded results
type Score int

// ScoreNA marks a result that could not be scored
const ScoreNA Score = -1

// Valid reports whether the score lies within [0,100]
func (s Score) Valid() bool {
	return s >= 0 && s <= 100
}

func (s Score) String() string {
	if s == ScoreNA {
		return "N/A"
	}
	return strconv.Itoa(int(s))
}

// MarshalJSON renders ScoreNA as the string "N/A"
func (s Score) MarshalJSON() ([]byte, error) {
	if s == ScoreNA {
		return []byte(`"N/A"`), nil
	}
	return []byte(strconv.Itoa(int(s))), nil
}

// UnmarshalJSON accepts a number (rounded) or the string "N/A"
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if str == "N/A" {
			*s = ScoreNA
			return nil
		}
		return fmt.Errorf("invalid score %q", str)
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid score: %w", err)
	}
	*s = Score(math.Round(f))
	return nil
}

// NewArticle is a model recommendation for an article that does not exist yet
type NewArticle struct {
	Name              string   `json:"name"`
	Rationale         string   `json:"rationale,omitempty"`
	SuggestedSections []string `json:"suggested_sections,omitempty"`
}

// AnalysisResult is the outcome of scoring one article
type AnalysisResult struct {
	Score       Score        `json:"score"`
	Gaps        []Gap        `json:"gaps"`
	Suggestions []string     `json:"suggestions"`
	NewArticles []NewArticle `json:"new_articles,omitempty"`
}

// Degraded builds the result shown when analysis could not complete
func Degraded(message string) AnalysisResult {
	return AnalysisResult{
		Score:       ScoreNA,
		Gaps:        []Gap{},
		Suggestions: []string{message},
	}
}

// Validate checks the result before it is persisted
func (r AnalysisResult) Validate() error {
	if !r.Score.Valid() {
		return &ValidationError{Field: "score", Msg: fmt.Sprintf("invalid score value %s", r.Score)}
	}
	if r.Gaps == nil {
		return &ValidationError{Field: "gaps", Msg: "gaps must be an array"}
	}
	for i, gap := range r.Gaps {
		if gap.Kind == "" || gap.Detail == "" || gap.Severity == "" {
			return &ValidationError{Field: fmt.Sprintf("gaps[%d]", i), Msg: "invalid gap object"}
		}
		if !gap.Severity.Valid() {
			return &ValidationError{Field: fmt.Sprintf("gaps[%d].severity", i), Msg: fmt.Sprintf("invalid severity value %q", gap.Severity)}
		}
	}
	return nil
}

// IncompleteSection is a per-section finding of the additive strategy
type IncompleteSection struct {
	Title  string  `json:"title"`
	Reason string  `json:"reason"`
	Kind   GapKind `json:"-"`
}

// SectionReport is the outcome of the additive strategy
type SectionReport struct {
	Score              int                 `json:"score"`
	MissingSections    []string            `json:"missingSections"`
	IncompleteSections []IncompleteSection `json:"incompleteSections"`
}

// Gaps converts the report into typed gaps
func (r SectionReport) Gaps() []Gap {
	gaps := make([]Gap, 0, len(r.MissingSections)+len(r.IncompleteSections))
	for _, title := range r.MissingSections {
		gaps = append(gaps, Gap{Kind: GapMissingSection, Detail: title, Severity: SeverityHigh})
	}
	for _, inc := range r.IncompleteSections {
		severity := SeverityMedium
		switch inc.Kind {
		case GapShortSection:
			severity = SeverityLow
		case GapInsufficientCitations:
			severity = SeverityHigh
		}
		gaps = append(gaps, Gap{Kind: inc.Kind, Detail: inc.Title + ": " + inc.Reason, Severity: severity})
	}
	return gaps
}
