package llm

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/wikigap/internal/model"
)

func TestParseResult_ValidJSON(t *testing.T) {
	raw := "Here is the review:\n```json\n" + `{
  "score": 85.6,
  "gaps": [{"type": "Missing_Section", "content": "Research", "severity": "High"}],
  "suggestions": ["Add a <b>Research</b> section", "<i></i>"],
  "new_articles": [{"name": "Jane <em>Doe</em>", "rationale": "Founding vice-chancellor", "suggested_sections": ["Early life"]}]
}` + "\n```"

	got := ParseResult(raw)

	want := model.AnalysisResult{
		Score:       86,
		Gaps:        []model.Gap{{Kind: model.GapMissingSection, Detail: "Research", Severity: model.SeverityHigh}},
		Suggestions: []string{"Add a Research section"},
		NewArticles: []model.NewArticle{{Name: "Jane Doe", Rationale: "Founding vice-chancellor", SuggestedSections: []string{"Early life"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseResult mismatch (-want +got):\n%s", diff)
	}
}

func TestParseResult_MissingArraysDefaultEmpty(t *testing.T) {
	got := ParseResult(`{"score": 50}`)
	if got.Score != 50 {
		t.Errorf("Expected score 50, got %v", got.Score)
	}
	if got.Gaps == nil || len(got.Gaps) != 0 {
		t.Errorf("Expected empty gaps, got %#v", got.Gaps)
	}
	if got.Suggestions == nil || len(got.Suggestions) != 0 {
		t.Errorf("Expected empty suggestions, got %#v", got.Suggestions)
	}
}

func TestParseResult_Degraded(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		suggestion string
	}{
		{"prose", "The article looks fine overall.", "The article looks fine overall."},
		{"broken json", `{"score": 40, "gaps": [`, `{"score": 40, "gaps": [`},
		{"score out of range", `{"score": 140, "gaps": []}`, `{"score": 140, "gaps": []}`},
		{"score not available", `{"score": "N/A", "gaps": []}`, `{"score": "N/A", "gaps": []}`},
		{"invalid severity", `{"score": 40, "gaps": [{"type": "missing_section", "content": "History", "severity": "urgent"}]}`, `{"score": 40, "gaps": [{"type": "missing_section", "content": "History", "severity": "urgent"}]}`},
		{"markup stripped", "<script>alert(1)</script><p>No JSON here</p>", "No JSON here"},
		{"empty", "   ", emptyResponseMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseResult(tt.raw)
			if got.Score != model.ScoreNA {
				t.Errorf("Expected N/A score, got %v", got.Score)
			}
			if len(got.Gaps) != 0 || got.Gaps == nil {
				t.Errorf("Expected empty non-nil gaps, got %#v", got.Gaps)
			}
			if len(got.Suggestions) != 1 || got.Suggestions[0] != tt.suggestion {
				t.Errorf("Suggestions = %q, want [%q]", got.Suggestions, tt.suggestion)
			}
		})
	}
}

func TestParseResult_EmptyGapContentRejected(t *testing.T) {
	got := ParseResult(`{"score": 60, "gaps": [{"type": "missing_section", "content": "<br>", "severity": "low"}]}`)
	if got.Score != model.ScoreNA {
		t.Errorf("Expected degraded result, got score %v", got.Score)
	}
}

func TestSanitize(t *testing.T) {
	if got := Sanitize("  Add an <a href=\"javascript:x()\">infobox</a> "); got != "Add an infobox" {
		t.Errorf("Sanitize = %q", got)
	}
}
