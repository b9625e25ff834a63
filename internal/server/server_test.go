package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/wikigap/internal/dispatch"
	"github.com/ppiankov/wikigap/internal/model"
	"github.com/ppiankov/wikigap/internal/store"
)

func newTestServer(t *testing.T, analyzer Analyzer) (*httptest.Server, *store.Manager) {
	t.Helper()
	m := store.NewManager(store.NewMemoryKV(), nil)
	if err := m.InitOrMigrate(context.Background()); err != nil {
		t.Fatalf("InitOrMigrate: %v", err)
	}
	d := dispatch.New(m, model.DispatchConfig{
		RateLimits:    map[string]model.RateLimit{dispatch.ActionGetRepository: {MaxRequests: 1, Window: time.Hour}},
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	}, nil)

	srv := New(Options{Dispatcher: d, Manager: m, Analyzer: analyzer})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, m
}

func post(t *testing.T, url, body string) (*http.Response, dispatch.Response) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	var out dispatch.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["version"] != model.Version {
		t.Errorf("unexpected body %v", body)
	}
}

func TestDispatch_RoundTrip(t *testing.T) {
	ts, m := newTestServer(t, nil)

	resp, out := post(t, ts.URL+"/dispatch", `{"action":"log_gap","data":{"page":"Kabwe Municipal Council","gap":"missing history"},"source":"https://en.wikipedia.org/wiki/Kabwe"}`)
	if resp.StatusCode != http.StatusOK || !out.Success {
		t.Fatalf("log_gap failed: %d %+v", resp.StatusCode, out)
	}

	items, _, err := m.Repository(context.Background())
	if err != nil {
		t.Fatalf("Repository: %v", err)
	}
	if len(items) != 1 || items[0]["page"] != "Kabwe Municipal Council" {
		t.Errorf("unexpected repository %+v", items)
	}

	_, out = post(t, ts.URL+"/dispatch", `{"action":"toggle_offline_mode"}`)
	if !out.Success || out.OfflineMode == nil || !*out.OfflineMode {
		t.Errorf("toggle failed: %+v", out)
	}
}

func TestDispatch_UnknownAndInvalid(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	_, out := post(t, ts.URL+"/dispatch", `{"action":"nope"}`)
	if out.Success || out.Error != "Unknown action" {
		t.Errorf("unexpected response %+v", out)
	}

	resp, out := post(t, ts.URL+"/dispatch", `{not json`)
	if resp.StatusCode != http.StatusBadRequest || out.Success {
		t.Errorf("expected 400, got %d %+v", resp.StatusCode, out)
	}
}

func TestDispatch_RateLimited(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	if _, out := post(t, ts.URL+"/dispatch", `{"action":"get_repository"}`); !out.Success {
		t.Fatalf("first call failed: %+v", out)
	}
	resp, out := post(t, ts.URL+"/dispatch", `{"action":"get_repository"}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
	if out.RetryAfter != time.Hour.Milliseconds() || resp.Header.Get("Retry-After") != "3600" {
		t.Errorf("unexpected retry hint %d / %q", out.RetryAfter, resp.Header.Get("Retry-After"))
	}
}

func TestExport(t *testing.T) {
	ts, m := newTestServer(t, nil)
	_, err := m.SaveAnalysis(context.Background(), "Ndola City Council", "https://en.wikipedia.org/wiki/Ndola_City_Council", model.AnalysisResult{
		Score:       70,
		Gaps:        []model.Gap{{Kind: model.GapMissingSection, Detail: "Budget", Severity: model.SeverityHigh}},
		Suggestions: []string{},
	})
	if err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	resp, err := http.Get(ts.URL + "/export")
	if err != nil {
		t.Fatalf("GET /export: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !strings.Contains(resp.Header.Get("Content-Disposition"), "gap-detector-export-") {
		t.Errorf("Content-Disposition = %q", resp.Header.Get("Content-Disposition"))
	}
	var artifact model.ExportArtifact
	if err := json.NewDecoder(resp.Body).Decode(&artifact); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if artifact.Summary.TotalGaps != 1 || artifact.Summary.PagesAnalyzed != 1 || artifact.Summary.AverageScore != 70 {
		t.Errorf("unexpected summary %+v", artifact.Summary)
	}
}

type stubAnalyzer struct {
	err error
}

func (s stubAnalyzer) AnalyzeURL(ctx context.Context, rawURL string) (*model.Report, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Report{
		Subject:   "Eden University",
		SourceURL: rawURL,
		Result:    model.AnalysisResult{Score: 85, Gaps: []model.Gap{}, Suggestions: []string{}},
	}, nil
}

func TestAnalyze(t *testing.T) {
	ts, _ := newTestServer(t, stubAnalyzer{})

	resp, err := http.Post(ts.URL+"/analyze", "application/json", strings.NewReader(`{"url":"https://en.wikipedia.org/wiki/Eden_University"}`))
	if err != nil {
		t.Fatalf("POST /analyze: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Report == nil || out.Report.Subject != "Eden University" {
		t.Fatalf("unexpected report %+v", out.Report)
	}
	if len(out.Patches) == 0 || out.Patches[0].Text != "85%" {
		t.Errorf("unexpected patches %+v", out.Patches)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	ts, _ := newTestServer(t, stubAnalyzer{err: errors.New("fetch: connection refused")})

	resp, out := post(t, ts.URL+"/analyze", `{}`)
	if resp.StatusCode != http.StatusBadRequest || out.Success {
		t.Errorf("expected 400 for missing url, got %d", resp.StatusCode)
	}

	resp, out = post(t, ts.URL+"/analyze", `{"url":"https://en.wikipedia.org/wiki/X"}`)
	if resp.StatusCode != http.StatusBadGateway || !strings.Contains(out.Error, "connection refused") {
		t.Errorf("expected 502, got %d %+v", resp.StatusCode, out)
	}
}

func TestAnalyze_NotMountedWithoutAnalyzer(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Post(ts.URL+"/analyze", "application/json", strings.NewReader(`{"url":"x"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRun_Shutdown(t *testing.T) {
	m := store.NewManager(store.NewMemoryKV(), nil)
	srv := New(Options{Dispatcher: dispatch.New(m, model.DispatchConfig{}, nil), Manager: m})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDispatch_FailureWithRateLimitText(t *testing.T) {
	m := store.NewManager(store.NewMemoryKV(), nil)
	if err := m.InitOrMigrate(context.Background()); err != nil {
		t.Fatalf("InitOrMigrate: %v", err)
	}
	d := dispatch.New(m, model.DispatchConfig{RetryAttempts: 1, RetryDelay: time.Second}, nil)
	d.Register("upstream", func(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
		return dispatch.Response{}, errors.New("Rate limit exceeded")
	})
	ts := httptest.NewServer(New(Options{Dispatcher: d, Manager: m}).Handler())
	t.Cleanup(ts.Close)

	resp, out := post(t, ts.URL+"/dispatch", `{"action":"upstream"}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 for a handler failure", resp.StatusCode)
	}
	if out.Success || out.RetryAfter != time.Second.Milliseconds() {
		t.Errorf("unexpected response %+v", out)
	}
}
