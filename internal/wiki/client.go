// Package wiki is a small client for the MediaWiki action API: page
// existence checks and section/wikitext retrieval for the bulk audit.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/ppiankov/wikigap/internal/cache"
	"github.com/ppiankov/wikigap/internal/extract"
	"github.com/ppiankov/wikigap/internal/worker"
)

// DefaultAPIURL is the English Wikipedia action API
const DefaultAPIURL = "https://en.wikipedia.org/w/api.php"

const maxBodyBytes = 8 << 20

// ErrNotFound is returned by Parse for pages that do not exist
var ErrNotFound = errors.New("page not found")

// Options configures a Client
type Options struct {
	APIURL     string
	HTTPClient *http.Client
	UserAgent  string

	// Cache holds parse responses; nil disables response caching
	Cache    cache.Cache
	CacheTTL time.Duration

	// Limiter throttles requests to the API host; nil means unthrottled
	Limiter *worker.Limiter

	// ExistsCacheSize bounds the in-process existence cache
	ExistsCacheSize int

	Logger *zap.Logger
}

// Client queries one MediaWiki installation
type Client struct {
	apiURL    string
	http      *http.Client
	userAgent string
	cache     cache.Cache
	cacheTTL  time.Duration
	limiter   *worker.Limiter
	exists    *lru.Cache[string, bool]
	logger    *zap.Logger
}

// Page is the parsed form of one article
type Page struct {
	Title    string
	RevID    int64
	Sections []string
	Wikitext string
}

// Summary derives the audit summary, taking section titles from the API
// rather than from heading markup
func (p *Page) Summary() extract.Wikitext {
	wt := extract.ParseWikitext(p.Wikitext)
	if len(p.Sections) > 0 {
		wt.Sections = append([]string(nil), p.Sections...)
	}
	return wt
}

// NewClient creates a client
func NewClient(opts Options) *Client {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Cache == nil {
		opts.Cache = cache.Nop{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.ExistsCacheSize <= 0 {
		opts.ExistsCacheSize = 512
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	exists, _ := lru.New[string, bool](opts.ExistsCacheSize)

	return &Client{
		apiURL:    opts.APIURL,
		http:      opts.HTTPClient,
		userAgent: opts.UserAgent,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		limiter:   opts.Limiter,
		exists:    exists,
		logger:    opts.Logger,
	}
}

type queryResponse struct {
	Query struct {
		Pages map[string]json.RawMessage `json:"pages"`
	} `json:"query"`
}

// Exists reports whether an article with this title exists. Results are
// cached in memory; failed lookups are not.
func (c *Client) Exists(ctx context.Context, title string) (bool, error) {
	if v, ok := c.exists.Get(title); ok {
		return v, nil
	}

	params := url.Values{
		"action": {"query"},
		"titles": {title},
		"format": {"json"},
	}
	body, err := c.get(ctx, params)
	if err != nil {
		return false, fmt.Errorf("query %q: %w", title, err)
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("decode query response: %w", err)
	}

	found := false
	for id := range resp.Query.Pages {
		if id != "-1" {
			found = true
			break
		}
	}
	c.exists.Add(title, found)
	return found, nil
}

type parseResponse struct {
	Parse *struct {
		Title    string `json:"title"`
		RevID    int64  `json:"revid"`
		Sections []struct {
			Line string `json:"line"`
		} `json:"sections"`
		Wikitext struct {
			Text string `json:"*"`
		} `json:"wikitext"`
	} `json:"parse"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Parse fetches the section list and wikitext of a page
func (c *Client) Parse(ctx context.Context, title string) (*Page, error) {
	key := cache.Key("wiki-parse", c.apiURL+"|"+title)

	body, hit := c.cache.Get(key)
	if !hit {
		params := url.Values{
			"action":    {"parse"},
			"page":      {title},
			"prop":      {"sections|wikitext|revid"},
			"redirects": {"1"},
			"format":    {"json"},
		}
		var err error
		body, err = c.get(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", title, err)
		}
	}

	var resp parseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode parse response: %w", err)
	}
	if resp.Parse == nil {
		if resp.Error != nil && resp.Error.Code != "missingtitle" {
			return nil, fmt.Errorf("parse %q: %s: %s", title, resp.Error.Code, resp.Error.Info)
		}
		return nil, ErrNotFound
	}

	if !hit {
		if err := c.cache.Set(key, body, c.cacheTTL); err != nil {
			c.logger.Warn("cache write failed", zap.String("title", title), zap.Error(err))
		}
	}

	page := &Page{
		Title:    resp.Parse.Title,
		RevID:    resp.Parse.RevID,
		Sections: make([]string, 0, len(resp.Parse.Sections)),
		Wikitext: resp.Parse.Wikitext.Text,
	}
	for _, s := range resp.Parse.Sections {
		page.Sections = append(page.Sections, sectionLine(s.Line))
	}
	return page, nil
}

var linePolicy = bluemonday.StrictPolicy()

// sectionLine strips inline markup the API leaves in section titles
func sectionLine(line string) string {
	return strings.TrimSpace(html.UnescapeString(linePolicy.Sanitize(line)))
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.apiURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
