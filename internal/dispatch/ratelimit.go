package dispatch

import (
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/wikigap/internal/model"
)

// RateLimiter admits at most MaxRequests per action in each fixed window.
// Counters are keyed by action and window index and expire with the window.
type RateLimiter struct {
	mu       sync.Mutex
	limits   map[string]model.RateLimit
	counters *gocache.Cache
	now      func() time.Time
}

// NewRateLimiter creates a limiter; actions without a limit are never rejected
func NewRateLimiter(limits map[string]model.RateLimit) *RateLimiter {
	cleaned := make(map[string]model.RateLimit, len(limits))
	for action, l := range limits {
		if l.MaxRequests > 0 && l.Window > 0 {
			cleaned[action] = l
		}
	}
	return &RateLimiter{
		limits:   cleaned,
		counters: gocache.New(gocache.NoExpiration, time.Minute),
		now:      time.Now,
	}
}

// Allow consumes one slot for action. When rejected it returns the window
// as the retry hint.
func (r *RateLimiter) Allow(action string) (bool, time.Duration) {
	limit, ok := r.limits[action]
	if !ok {
		return true, 0
	}

	window := limit.Window.Milliseconds()
	if window <= 0 {
		window = 1
	}
	key := action + "_" + strconv.FormatInt(r.now().UnixMilli()/window, 10)

	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	if v, found := r.counters.Get(key); found {
		count = v.(int)
	}
	if count >= limit.MaxRequests {
		return false, limit.Window
	}
	r.counters.Set(key, count+1, limit.Window)
	return true, 0
}
