package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewProxyFunc_Environment(t *testing.T) {
	f := NewProxyFunc("", "", "")
	req, _ := http.NewRequest(http.MethodGet, "https://en.wikipedia.org", nil)
	if _, err := f(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewProxyFunc_Explicit(t *testing.T) {
	f := NewProxyFunc("http://proxy.local:3128", "http://secure.local:3128", "internal.example,localhost")

	tests := []struct {
		url  string
		want string
	}{
		{"http://en.wikipedia.org/wiki/Kitwe", "http://proxy.local:3128"},
		{"https://en.wikipedia.org/wiki/Kitwe", "http://secure.local:3128"},
		{"https://internal.example/x", ""},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
		got, err := f(req)
		if err != nil {
			t.Fatalf("%s: %v", tt.url, err)
		}
		gotStr := ""
		if got != nil {
			gotStr = got.String()
		}
		if gotStr != tt.want {
			t.Errorf("%s: proxy = %q, want %q", tt.url, gotStr, tt.want)
		}
	}
}

func TestNewProxyFunc_HTTPSFallsBackToHTTPProxy(t *testing.T) {
	f := NewProxyFunc("http://proxy.local:3128", "", "")
	req, _ := http.NewRequest(http.MethodGet, "https://en.wikipedia.org", nil)
	got, err := f(req)
	if err != nil || got == nil || got.Host != "proxy.local:3128" {
		t.Errorf("proxy = %v, %v", got, err)
	}
}

func TestRobotsChecker(t *testing.T) {
	var fetches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&fetches, 1)
		_, _ = w.Write([]byte("User-agent: wikigap\nDisallow: /w/index.php\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n"))
	}))
	defer server.Close()

	rc := NewRobotsChecker("wikigap/1.0 (+https://github.com/ppiankov/wikigap)", nil)
	ctx := context.Background()

	allowed, delay, err := rc.CanFetch(ctx, server.URL+"/wiki/Lusaka")
	if err != nil || !allowed {
		t.Fatalf("CanFetch = %v, %v; want allowed", allowed, err)
	}
	if delay != 2*time.Second {
		t.Errorf("crawl delay = %v, want 2s", delay)
	}

	if rc.IsAllowed(ctx, server.URL+"/w/index.php?title=Lusaka&action=edit") {
		t.Error("expected edit URL to be disallowed")
	}

	if n := atomic.LoadInt32(&fetches); n != 1 {
		t.Errorf("robots.txt fetched %d times, want 1", n)
	}

	rc.Clear()
	rc.IsAllowed(ctx, server.URL+"/wiki/Lusaka")
	if n := atomic.LoadInt32(&fetches); n != 2 {
		t.Errorf("expected refetch after Clear, got %d fetches", n)
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	rc := NewRobotsChecker("wikigap/1.0", nil)
	if !rc.IsAllowed(context.Background(), server.URL+"/anything") {
		t.Error("missing robots.txt should allow everything")
	}
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	rc := NewRobotsChecker("wikigap/1.0", &http.Client{Timeout: 100 * time.Millisecond})
	if !rc.IsAllowed(context.Background(), "http://127.0.0.1:1/page") {
		t.Error("unreachable robots.txt should allow")
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"wikigap/1.0.0 (+https://github.com/ppiankov/wikigap)": "wikigap",
		"curl":     "curl",
		"":         "",
		"  spaced": "spaced",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}
