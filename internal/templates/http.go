package templates

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/wikigap/internal/cache"
	"github.com/ppiankov/wikigap/internal/model"
)

// HTTPLoader fetches templates from {BaseURL}/{archetype}_template.json
type HTTPLoader struct {
	BaseURL string
	Client  *http.Client
	Cache   cache.Cache
	TTL     time.Duration
	Store   *Store
	Logger  *zap.Logger
}

// NewHTTPLoader creates a loader that registers fetched templates into store
func NewHTTPLoader(baseURL string, store *Store, c cache.Cache, logger *zap.Logger) *HTTPLoader {
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPLoader{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
		Cache:   c,
		TTL:     time.Hour,
		Store:   store,
		Logger:  logger,
	}
}

// Fetch returns the template for archetype, consulting the cache first
func (l *HTTPLoader) Fetch(ctx context.Context, archetype string) (*model.Template, error) {
	if archetype == "" {
		return nil, fmt.Errorf("archetype is required")
	}
	key := cache.Key("template", l.BaseURL+"/"+archetype)

	if body, ok := l.Cache.Get(key); ok {
		tpl, err := Decode(archetype+".json", body)
		if err == nil {
			l.register(archetype, tpl)
			return tpl, nil
		}
		_ = l.Cache.Delete(key)
	}

	target := l.BaseURL + "/" + url.PathEscape(archetype) + "_template.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch template: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch template %s: HTTP %d", archetype, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	tpl, err := Decode(archetype+".json", body)
	if err != nil {
		return nil, err
	}

	if err := l.Cache.Set(key, body, l.TTL); err != nil {
		l.Logger.Warn("template cache write failed", zap.Error(err))
	}
	l.register(archetype, tpl)
	return tpl, nil
}

// Resolve returns the stored template, fetching it when BaseURL is set
func (l *HTTPLoader) Resolve(ctx context.Context, archetype string) (*model.Template, bool) {
	if l.Store != nil {
		if tpl, ok := l.Store.Get(archetype); ok {
			return tpl, true
		}
	}
	if l.BaseURL == "" {
		return nil, false
	}
	tpl, err := l.Fetch(ctx, archetype)
	if err != nil {
		l.Logger.Debug("remote template unavailable", zap.String("archetype", archetype), zap.Error(err))
		return nil, false
	}
	return tpl, true
}

func (l *HTTPLoader) register(archetype string, tpl *model.Template) {
	if l.Store != nil {
		l.Store.Put(archetype, tpl)
	}
}
