package wiki

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/wikigap/internal/cache"
	"github.com/ppiankov/wikigap/internal/worker"
)

const parseBody = `{"parse":{"title":"University of Zambia","pageid":1,"revid":4242,
"sections":[{"line":"History"},{"line":"<i>Student</i> life"},{"line":"Research &amp; outreach"}],
"wikitext":{"*":"{{Infobox university}}\n== History ==\nFounded in 1966.<ref>Act</ref>"}}}`

type fakeAPI struct {
	queries int32
	parses  int32
	agent   atomic.Value
}

func (f *fakeAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.agent.Store(r.Header.Get("User-Agent"))
		q := r.URL.Query()
		switch q.Get("action") {
		case "query":
			atomic.AddInt32(&f.queries, 1)
			if q.Get("titles") == "Missing Council" {
				_, _ = w.Write([]byte(`{"query":{"pages":{"-1":{"ns":0,"title":"Missing Council","missing":""}}}}`))
				return
			}
			_, _ = w.Write([]byte(`{"query":{"pages":{"31337":{"pageid":31337,"ns":0,"title":"x"}}}}`))
		case "parse":
			atomic.AddInt32(&f.parses, 1)
			if q.Get("prop") != "sections|wikitext|revid" {
				t.Errorf("unexpected prop %q", q.Get("prop"))
			}
			if q.Get("page") == "Missing Council" {
				_, _ = w.Write([]byte(`{"error":{"code":"missingtitle","info":"The page you specified doesn't exist."}}`))
				return
			}
			if q.Get("page") == "Broken" {
				_, _ = w.Write([]byte(`{"error":{"code":"internal_api_error","info":"boom"}}`))
				return
			}
			_, _ = w.Write([]byte(parseBody))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}
}

func newTestClient(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)

	return NewClient(Options{
		APIURL:    server.URL + "/w/api.php",
		UserAgent: "wikigap-test/1.0",
		Cache:     cache.NewMemoryCache(time.Minute),
		Limiter:   worker.NewLimiter(1000, 10),
	}), api
}

func TestClient_Exists(t *testing.T) {
	c, api := newTestClient(t)
	ctx := context.Background()

	ok, err := c.Exists(ctx, "University of Zambia")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true", ok, err)
	}
	ok, err = c.Exists(ctx, "Missing Council")
	if err != nil || ok {
		t.Fatalf("Exists = %v, %v; want false", ok, err)
	}

	// both answers are served from the LRU now
	_, _ = c.Exists(ctx, "University of Zambia")
	_, _ = c.Exists(ctx, "Missing Council")
	if n := atomic.LoadInt32(&api.queries); n != 2 {
		t.Errorf("expected 2 API queries, got %d", n)
	}
	if got := api.agent.Load(); got != "wikigap-test/1.0" {
		t.Errorf("User-Agent = %v", got)
	}
}

func TestClient_Parse(t *testing.T) {
	c, api := newTestClient(t)
	ctx := context.Background()

	page, err := c.Parse(ctx, "University of Zambia")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if page.RevID != 4242 || page.Title != "University of Zambia" {
		t.Errorf("unexpected page %+v", page)
	}
	want := []string{"History", "Student life", "Research & outreach"}
	if len(page.Sections) != len(want) {
		t.Fatalf("Sections = %q, want %q", page.Sections, want)
	}
	for i := range want {
		if page.Sections[i] != want[i] {
			t.Errorf("Sections[%d] = %q, want %q", i, page.Sections[i], want[i])
		}
	}

	sum := page.Summary()
	if !sum.HasInfobox || sum.RefCount != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if len(sum.Sections) != 3 {
		t.Errorf("summary should use API sections, got %q", sum.Sections)
	}

	if _, err := c.Parse(ctx, "University of Zambia"); err != nil {
		t.Fatalf("second Parse: %v", err)
	}
	if n := atomic.LoadInt32(&api.parses); n != 1 {
		t.Errorf("expected cached second parse, got %d API calls", n)
	}
}

func TestClient_ParseMissing(t *testing.T) {
	c, api := newTestClient(t)

	for i := 0; i < 2; i++ {
		_, err := c.Parse(context.Background(), "Missing Council")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	if n := atomic.LoadInt32(&api.parses); n != 2 {
		t.Errorf("missing pages must not be cached, got %d calls", n)
	}
}

func TestClient_ParseAPIError(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Parse(context.Background(), "Broken")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected API error, got %v", err)
	}
}

func TestClient_HTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(Options{APIURL: server.URL})
	if _, err := c.Exists(context.Background(), "X"); err == nil {
		t.Fatal("expected error")
	}
	// failures are not cached
	if _, ok := c.exists.Get("X"); ok {
		t.Error("failed lookup was cached")
	}
}
