package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ppiankov/wikigap/internal/model"
	"github.com/ppiankov/wikigap/internal/templates"
	"github.com/ppiankov/wikigap/internal/wiki"
)

type fakeWiki struct {
	mu      sync.Mutex
	pages   map[string]*wiki.Page
	failing map[string]error
	checked []string
}

func (f *fakeWiki) Exists(ctx context.Context, title string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checked = append(f.checked, title)
	if err, ok := f.failing[title]; ok {
		return false, err
	}
	_, ok := f.pages[title]
	return ok, nil
}

func (f *fakeWiki) Parse(ctx context.Context, title string) (*wiki.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[title]
	if !ok || p == nil {
		return nil, wiki.ErrNotFound
	}
	return p, nil
}

func newTemplates(t *testing.T) *templates.Store {
	t.Helper()
	s, err := templates.NewStore(nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func unzaPage() *wiki.Page {
	return &wiki.Page{
		Title:    "University of Zambia",
		RevID:    4242,
		Sections: []string{"History", "Campus", "Research", "References"},
		Wikitext: "{{Infobox university}}\n== History ==\nFounded in 1966.<ref>Act</ref>",
	}
}

func TestDefaultEntities(t *testing.T) {
	entities := DefaultEntities()

	universities := FilterByType(entities, TypeUniversity)
	councils := FilterByType(entities, TypeCouncil)
	if len(universities) != 18 {
		t.Errorf("Expected 18 universities, got %d", len(universities))
	}
	if len(councils) != 20 {
		t.Errorf("Expected 20 councils, got %d", len(councils))
	}
	if len(FilterByType(entities, "")) != len(entities) {
		t.Error("Empty type should keep every entity")
	}
	if entities[0].Name != "University of Zambia" {
		t.Errorf("First entity = %q", entities[0].Name)
	}
}

func TestParseEntities_Invalid(t *testing.T) {
	tests := []string{
		"- type: University\n",
		"- name: Kabwe Municipal Council\n",
		"not: [a list",
	}
	for _, in := range tests {
		if _, err := ParseEntities([]byte(in)); err == nil {
			t.Errorf("ParseEntities(%q) expected error", in)
		}
	}
}

func TestEntity_Titles(t *testing.T) {
	e := Entity{Name: "University of Zambia", Aliases: []string{"university of zambia", "UNZA", ""}}
	got := e.Titles()
	if len(got) != 2 || got[0] != "University of Zambia" || got[1] != "UNZA" {
		t.Errorf("Titles() = %v", got)
	}
}

func TestEntityType_Archetype(t *testing.T) {
	if TypeUniversity.Archetype() != "university" || TypeCouncil.Archetype() != "municipalCouncil" {
		t.Error("unexpected archetype mapping")
	}
}

func TestAuditEntity_Scored(t *testing.T) {
	fw := &fakeWiki{pages: map[string]*wiki.Page{"University of Zambia": unzaPage()}}
	a := New(Options{Client: fw, Templates: newTemplates(t)})

	r := a.AuditEntity(context.Background(), Entity{Name: "University of Zambia", Type: TypeUniversity})

	if !r.Exists || r.Title != "University of Zambia" || r.RevID != 4242 {
		t.Fatalf("Unexpected result %+v", r)
	}
	// sections 4/9 -> 22.2, infobox 20, refs saturated 30
	if r.Score != 72 {
		t.Errorf("Score = %v, want 72", r.Score)
	}
	// 5 missing gold sections and too few references
	if len(r.Gaps) != 6 || len(r.Suggestions) != 6 {
		t.Errorf("Expected 6 gaps and suggestions, got %d/%d", len(r.Gaps), len(r.Suggestions))
	}
	if r.Suggestions[0] != "Add a 'Academics' section to improve completeness." {
		t.Errorf("Unexpected first suggestion %q", r.Suggestions[0])
	}
}

func TestAuditEntity_Missing(t *testing.T) {
	fw := &fakeWiki{pages: map[string]*wiki.Page{}}
	a := New(Options{Client: fw, Templates: newTemplates(t)})

	r := a.AuditEntity(context.Background(), Entity{Name: "Chibombo Municipal Council", Type: TypeCouncil})
	if r.Exists || r.Score != model.ScoreNA || r.Error != "" {
		t.Errorf("Unexpected result %+v", r)
	}
	if r.Gaps == nil || r.Suggestions == nil {
		t.Error("Expected empty, non-nil slices")
	}
}

func TestAuditEntity_Aliases(t *testing.T) {
	fw := &fakeWiki{pages: map[string]*wiki.Page{"Cavendish University": {Title: "Cavendish University"}}}
	entity := Entity{Name: "Cavendish University Zambia", Type: TypeUniversity, Aliases: []string{"Cavendish University"}}

	without := New(Options{Client: fw, Templates: newTemplates(t)}).AuditEntity(context.Background(), entity)
	if without.Exists {
		t.Error("Aliases should not be tried unless enabled")
	}

	with := New(Options{Client: fw, Templates: newTemplates(t), TryAliases: true}).AuditEntity(context.Background(), entity)
	if !with.Exists || with.Title != "Cavendish University" {
		t.Errorf("Expected alias to resolve, got %+v", with)
	}
}

func TestAuditEntity_ParseFailureScoresZero(t *testing.T) {
	fw := &fakeWiki{pages: map[string]*wiki.Page{"Kitwe City Council": nil}}
	a := New(Options{Client: fw, Templates: newTemplates(t)})

	r := a.AuditEntity(context.Background(), Entity{Name: "Kitwe City Council", Type: TypeCouncil})
	if !r.Exists || r.Score != 0 || r.Error == "" {
		t.Errorf("Expected existing page scored 0 with error, got %+v", r)
	}
}

func TestAuditEntity_ExistsError(t *testing.T) {
	fw := &fakeWiki{failing: map[string]error{"Mansa Municipal Council": errors.New("api down")}}
	a := New(Options{Client: fw})

	r := a.AuditEntity(context.Background(), Entity{Name: "Mansa Municipal Council", Type: TypeCouncil})
	if r.Exists || r.Error != "api down" {
		t.Errorf("Unexpected result %+v", r)
	}
}

func TestRun_OrderAndProgress(t *testing.T) {
	fw := &fakeWiki{pages: map[string]*wiki.Page{
		"University of Zambia": unzaPage(),
		"Lusaka City Council":  {Title: "Lusaka City Council", Sections: []string{"History", "Geography"}, Wikitext: "{{Infobox settlement}}"},
	}}

	var mu sync.Mutex
	seen := 0
	a := New(Options{
		Client:    fw,
		Templates: newTemplates(t),
		Workers:   3,
		Progress: func(Result) {
			mu.Lock()
			seen++
			mu.Unlock()
		},
	})

	entities := []Entity{
		{Name: "University of Zambia", Type: TypeUniversity},
		{Name: "Eden University", Type: TypeUniversity},
		{Name: "Lusaka City Council", Type: TypeCouncil},
	}
	results := a.Run(context.Background(), entities)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Entity.Name != entities[i].Name {
			t.Errorf("results[%d] = %q, want %q", i, r.Entity.Name, entities[i].Name)
		}
	}
	if seen != 3 {
		t.Errorf("Progress called %d times, want 3", seen)
	}

	s := Summarize(results)
	if s.Total != 3 || s.Existing != 2 || s.Missing != 1 || s.Errors != 0 {
		t.Errorf("Unexpected summary %+v", s)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New(Options{Client: &fakeWiki{}})
	results := a.Run(ctx, DefaultEntities())
	for _, r := range results {
		if r.Exists {
			t.Fatalf("Expected no existing results after cancel, got %+v", r)
		}
	}
}

func TestSummarize_Average(t *testing.T) {
	results := []Result{
		{Exists: true, Score: 70},
		{Exists: true, Score: 75},
		{Exists: true, Score: 0, Error: "parse failed"},
		{Exists: false, Score: model.ScoreNA},
	}
	s := Summarize(results)
	if s.AverageScore != 48.3 {
		t.Errorf("AverageScore = %v, want 48.3", s.AverageScore)
	}
	if s.Errors != 1 || s.Missing != 1 || s.Existing != 3 {
		t.Errorf("Unexpected summary %+v", s)
	}
}

func TestAuditor_WithWikiClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("action") {
		case "query":
			if q.Get("titles") == "Mongu Municipal Council" {
				_, _ = w.Write([]byte(`{"query":{"pages":{"-1":{"missing":""}}}}`))
				return
			}
			_, _ = w.Write([]byte(`{"query":{"pages":{"77":{"pageid":77}}}}`))
		case "parse":
			_, _ = w.Write([]byte(`{"parse":{"title":"Ndola City Council","revid":9,"sections":[{"line":"History"},{"line":"Governance"}],"wikitext":{"*":"Ndola council text"}}}`))
		}
	}))
	defer server.Close()

	client := wiki.NewClient(wiki.Options{APIURL: server.URL, UserAgent: "wikigap-test"})
	a := New(Options{Client: client, Templates: newTemplates(t), Workers: 2})

	results := a.Run(context.Background(), []Entity{
		{Name: "Ndola City Council", Type: TypeCouncil},
		{Name: "Mongu Municipal Council", Type: TypeCouncil},
	})

	if !results[0].Exists || results[0].RevID != 9 {
		t.Errorf("Unexpected first result %+v", results[0])
	}
	// 2/12 gold sections, no infobox, no references
	if results[0].Score != 8 {
		t.Errorf("Score = %v, want 8", results[0].Score)
	}
	if results[1].Exists {
		t.Errorf("Expected Mongu to be missing, got %+v", results[1])
	}
}
