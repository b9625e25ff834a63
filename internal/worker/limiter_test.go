package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	if l := NewLimiter(10, 5); l.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", l.defaultBurst)
	}
	if l := NewLimiter(10, -1); l.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l.defaultBurst)
	}
}

func TestLimiter_PerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if !limiter.Allow("https://en.wikipedia.org/w/api.php") {
		t.Fatal("first request should be allowed")
	}
	if limiter.Allow("https://EN.wikipedia.org/wiki/Kitwe") {
		t.Error("second request to the same host should be throttled")
	}
	if !limiter.Allow("https://api-inference.huggingface.co/models/x") {
		t.Error("other hosts have their own bucket")
	}
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	limiter := NewLimiter(0.1, 1)
	url := "https://en.wikipedia.org"

	if err := limiter.Wait(context.Background(), url); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, url); err == nil {
		t.Error("expected wait to fail before the next token")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("https://example.org") {
			t.Fatalf("request %d throttled", i)
		}
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(1, 1)
	limiter.SetHostRate("Example.org", 1000, 50)

	for i := 0; i < 20; i++ {
		if !limiter.Allow("https://example.org/x") {
			t.Fatalf("request %d throttled despite override", i)
		}
	}
}

func TestLimiter_BadURL(t *testing.T) {
	limiter := NewLimiter(1, 1)
	if limiter.Allow("://bad") {
		t.Error("expected bad URL to be refused")
	}
	if err := limiter.Wait(context.Background(), "://bad"); err == nil {
		t.Error("expected error for bad URL")
	}
}
