package extract

import (
	"strings"
	"testing"

	"github.com/ppiankov/wikigap/internal/model"
)

func TestExtractor_ExtractHTML(t *testing.T) {
	extractor := NewExtractor()

	page := `
	<html>
	<head><title>Copperbelt University - Wikipedia</title></head>
	<body>
		<div id="mw-content-text">
			<table class="infobox"><tr><th>Founded</th><td>1987</td></tr></table>
			<p>Copperbelt University is a public university in Kitwe.<sup class="reference">[1]</sup></p>
			<h2>History</h2>
			<p>It was established by an act of parliament.</p>
		</div>
	</body>
	</html>
	`

	rec, err := extractor.ExtractHTML(page, "https://en.wikipedia.org/wiki/Copperbelt_University")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Title != "Copperbelt University" {
		t.Errorf("Expected title without suffix, got %q", rec.Title)
	}
	if rec.CitationCount != 1 {
		t.Errorf("Expected 1 citation, got %d", rec.CitationCount)
	}
	if rec.FieldTable["founded"] != "1987" {
		t.Errorf("Expected founded=1987, got %v", rec.FieldTable)
	}
	if len(rec.Sections) != 1 || rec.Sections[0].Title != "History" {
		t.Errorf("Expected one History section, got %+v", rec.Sections)
	}
	if !strings.Contains(rec.Sections[0].Body, "act of parliament") {
		t.Errorf("Expected History body, got %q", rec.Sections[0].Body)
	}
}

func TestExtractor_AdapterName(t *testing.T) {
	extractor := NewExtractor()
	if got := extractor.AdapterName("https://en.wikipedia.org/wiki/Lusaka"); got != "wikipedia" {
		t.Errorf("Expected wikipedia adapter, got %s", got)
	}
	if got := extractor.AdapterName("https://wiki.example.org/Lusaka"); got != "generic" {
		t.Errorf("Expected generic adapter, got %s", got)
	}
}

func TestDetectArchetype(t *testing.T) {
	tests := []struct {
		name string
		rec  model.ContentRecord
		want string
	}{
		{"university by title", model.ContentRecord{Title: "University of Zambia"}, "university"},
		{"academy by text", model.ContentRecord{Title: "Mulungushi", RawText: "a military academy"}, "university"},
		{"council by title", model.ContentRecord{Title: "Ndola City Council"}, "municipalCouncil"},
		{"university wins over council", model.ContentRecord{Title: "Kitwe", RawText: "the city hosts a college"}, "university"},
		{"general", model.ContentRecord{Title: "Victoria Falls", RawText: "a waterfall on the zambezi"}, ArchetypeGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectArchetype(tt.rec); got != tt.want {
				t.Errorf("DetectArchetype() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsRegionRelevant(t *testing.T) {
	rec := model.ContentRecord{RawText: "a town in the copperbelt province"}

	if !IsRegionRelevant(rec, nil) {
		t.Error("Expected default keywords to match copperbelt")
	}
	if IsRegionRelevant(rec, []string{"nairobi"}) {
		t.Error("Expected custom keywords not to match")
	}
	if IsRegionRelevant(model.ContentRecord{}, nil) {
		t.Error("Expected empty record not to be relevant")
	}
}

func TestParseWikitext(t *testing.T) {
	text := `{{Infobox university
| name = University of Zambia
}}
The '''University of Zambia''' is in [[Lusaka]].<ref name="a">Smith 2001</ref>

== History ==
Founded in 1966.<ref>Jones</ref>

=== Early years ===
Some text here.

== References ==
{{reflist}}`

	wt := ParseWikitext(text)

	if !wt.HasInfobox {
		t.Error("Expected infobox to be detected")
	}
	if wt.RefCount != 2 {
		t.Errorf("Expected 2 refs, got %d", wt.RefCount)
	}

	want := []string{"History", "Early years", "References"}
	if strings.Join(wt.Sections, "|") != strings.Join(want, "|") {
		t.Errorf("Expected sections %v, got %v", want, wt.Sections)
	}

	// "The '''University of Zambia''' is in ." "== History ==" "Founded in 1966."
	// "=== Early years ===" "Some text here." "== References =="
	if wt.WordCount != 23 {
		t.Errorf("Expected 23 words, got %d", wt.WordCount)
	}
}

func TestParseWikitext_Empty(t *testing.T) {
	wt := ParseWikitext("")
	if wt.HasInfobox || wt.RefCount != 0 || len(wt.Sections) != 0 {
		t.Errorf("Expected empty summary, got %+v", wt)
	}
	if wt.WordCount != 1 {
		t.Errorf("Expected word count floor of 1, got %d", wt.WordCount)
	}
	if wt.RefsPer100Words() != 0 {
		t.Errorf("Expected zero density, got %f", wt.RefsPer100Words())
	}
}
