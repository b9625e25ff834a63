package cli

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ppiankov/wikigap/internal/cache"
	"github.com/ppiankov/wikigap/internal/llm"
	"github.com/ppiankov/wikigap/internal/model"
	"github.com/ppiankov/wikigap/internal/pipeline"
	"github.com/ppiankov/wikigap/internal/store"
	"github.com/ppiankov/wikigap/internal/templates"
	"github.com/ppiankov/wikigap/internal/util"
	"github.com/ppiankov/wikigap/internal/wiki"
	"github.com/ppiankov/wikigap/internal/worker"
)

// openManager opens the configured backend and brings its state to the current version
func openManager(ctx context.Context, cfg *model.Config) (*store.Manager, error) {
	kv, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	m := store.NewManager(kv, logger.Named("store"))
	if err := m.InitOrMigrate(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

func newCache(cfg *model.Config) cache.Cache {
	return cache.FromConfig(cfg.Cache, expandHome(cfg.Cache.Dir))
}

// newTemplates builds the template store with directory overrides and the
// optional remote loader
func newTemplates(cfg *model.Config, c cache.Cache) (*templates.Store, *templates.HTTPLoader, error) {
	ts, err := templates.NewStore(logger.Named("templates"))
	if err != nil {
		return nil, nil, err
	}
	if dir := expandHome(cfg.Templates.Dir); dir != "" {
		n, err := ts.LoadDir(dir)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("template overrides loaded", zap.Int("count", n), zap.String("dir", dir))
	}
	return ts, templates.NewHTTPLoader(cfg.Templates.BaseURL, ts, c, logger.Named("templates")), nil
}

// newAnalyzer returns nil when no provider is configured
func newAnalyzer(ctx context.Context, cfg *model.Config) (*llm.Analyzer, error) {
	provider, err := llm.NewProvider(ctx, llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	if provider == nil {
		return nil, nil
	}
	return llm.NewAnalyzer(provider, logger.Named("llm")), nil
}

// newPipeline wires fetcher, templates, model analyzer and store. A nil
// manager disables persistence.
func newPipeline(ctx context.Context, cfg *model.Config, m *store.Manager, strategy pipeline.Strategy) (*pipeline.Pipeline, error) {
	_, loader, err := newTemplates(cfg, newCache(cfg))
	if err != nil {
		return nil, err
	}

	var analyzer *llm.Analyzer
	if strategy == pipeline.StrategyLLM {
		analyzer, err = newAnalyzer(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if analyzer == nil {
			return nil, fmt.Errorf("strategy llm needs llm.provider to be configured")
		}
	}

	return pipeline.New(pipeline.Options{
		Fetcher:   pipeline.NewFetcherFromConfig(cfg.HTTP),
		Templates: loader,
		Analyzer:  analyzer,
		Store:     m,
		Strategy:  strategy,
		Logger:    logger.Named("pipeline"),
	}), nil
}

func newWikiClient(cfg *model.Config, c cache.Cache) *wiki.Client {
	return wiki.NewClient(wiki.Options{
		APIURL: cfg.Audit.APIURL,
		HTTPClient: &http.Client{
			Timeout:   cfg.HTTP.Timeout,
			Transport: &http.Transport{Proxy: util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)},
		},
		UserAgent: cfg.HTTP.UserAgent,
		Cache:     c,
		CacheTTL:  cfg.Cache.DiskTTL,
		Limiter:   worker.NewLimiter(cfg.Audit.RequestsPerSecond, cfg.Audit.BurstSize),
		Logger:    logger.Named("wiki"),
	})
}
