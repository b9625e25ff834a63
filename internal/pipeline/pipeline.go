package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/wikigap/internal/extract"
	"github.com/ppiankov/wikigap/internal/llm"
	"github.com/ppiankov/wikigap/internal/model"
	"github.com/ppiankov/wikigap/internal/score"
	"github.com/ppiankov/wikigap/internal/store"
	"github.com/ppiankov/wikigap/internal/worker"
)

// Strategy selects how an article is scored
type Strategy string

const (
	// StrategyWeighted counts failed template checks
	StrategyWeighted Strategy = "weighted"
	// StrategyAdditive deducts points per missing or thin section
	StrategyAdditive Strategy = "additive"
	// StrategyLLM asks the configured model provider
	StrategyLLM Strategy = "llm"
)

// ParseStrategy validates a strategy name; "" selects weighted
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case "", StrategyWeighted:
		return StrategyWeighted, nil
	case StrategyAdditive:
		return StrategyAdditive, nil
	case StrategyLLM:
		return StrategyLLM, nil
	}
	return "", fmt.Errorf("unknown strategy %q (use weighted, additive or llm)", s)
}

// TemplateResolver looks up the template of an archetype
type TemplateResolver interface {
	Resolve(ctx context.Context, archetype string) (*model.Template, bool)
}

// Options wires the pipeline's collaborators. Analyzer and Store are optional.
type Options struct {
	Fetcher        *Fetcher
	Templates      TemplateResolver
	Analyzer       *llm.Analyzer
	Store          *store.Manager
	Strategy       Strategy
	RegionKeywords []string
	Logger         *zap.Logger
}

// Pipeline orchestrates fetch, extraction, scoring and persistence
type Pipeline struct {
	fetcher   *Fetcher
	extractor *extract.Extractor
	templates TemplateResolver
	analyzer  *llm.Analyzer
	store     *store.Manager
	strategy  Strategy
	keywords  []string
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a pipeline
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategyWeighted
	}
	return &Pipeline{
		fetcher:   opts.Fetcher,
		extractor: extract.NewExtractor(),
		templates: opts.Templates,
		analyzer:  opts.Analyzer,
		store:     opts.Store,
		strategy:  strategy,
		keywords:  opts.RegionKeywords,
		logger:    logger,
		now:       time.Now,
	}
}

// AnalyzeURL fetches and analyzes one article
func (p *Pipeline) AnalyzeURL(ctx context.Context, rawURL string) (*model.Report, error) {
	if p.fetcher == nil {
		return nil, errors.New("pipeline has no fetcher")
	}
	fetched, err := p.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return p.AnalyzeHTML(ctx, fetched.HTML, fetched.FinalURL, fetched.Meta)
}

// AnalyzeHTML analyzes an already fetched page. A model failure still
// yields a report whose result is degraded.
func (p *Pipeline) AnalyzeHTML(ctx context.Context, htmlContent, pageURL string, meta model.FetchMeta) (*model.Report, error) {
	rec, err := p.extractor.ExtractHTML(htmlContent, pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if rec.Title == "" {
		rec.Title = extractSubject(pageURL)
	}

	archetype := extract.DetectArchetype(rec)
	report := &model.Report{
		Subject:   rec.Title,
		SourceURL: pageURL,
		FetchedAt: p.now().UTC(),
		FetchMeta: meta,
		Archetype: archetype,
		Relevant:  extract.IsRegionRelevant(rec, p.keywords),
		Source:    model.AnalysisSourceTemplate,
	}

	tpl := p.template(ctx, archetype)

	switch {
	case p.strategy == StrategyLLM:
		if p.analyzer == nil {
			return nil, errors.New("llm strategy requires a configured provider")
		}
		report.Source = p.analyzer.Provider().Name()
		result, err := p.analyzer.Analyze(ctx, llm.Page{
			Title:    rec.Title,
			URL:      pageURL,
			HTML:     htmlContent,
			Text:     rec.RawText,
			Template: tpl,
		})
		report.Result = result
		if err != nil {
			p.logger.Warn("model analysis degraded", zap.String("page", rec.Title), zap.Error(err))
			p.logError(ctx, err)
		}
	case tpl == nil:
		report.Result = score.Unrecognized()
	case p.strategy == StrategyAdditive:
		sections := score.Additive(tpl, rec)
		report.Sections = &sections
		report.Result = additiveResult(sections)
	default:
		report.Result = score.Weighted(tpl, rec)
	}

	p.logger.Debug("analysis complete",
		zap.String("page", rec.Title),
		zap.String("archetype", archetype),
		zap.String("strategy", string(p.strategy)),
		zap.Stringer("score", report.Result.Score),
		zap.Int("gaps", len(report.Result.Gaps)),
	)

	p.save(ctx, report)
	return report, nil
}

// template returns nil for the general archetype or when no template resolves
func (p *Pipeline) template(ctx context.Context, archetype string) *model.Template {
	if archetype == extract.ArchetypeGeneral || p.templates == nil {
		return nil
	}
	tpl, ok := p.templates.Resolve(ctx, archetype)
	if !ok {
		p.logger.Debug("no template for archetype", zap.String("archetype", archetype))
		return nil
	}
	return tpl
}

// save records scored results; degraded results are not persisted
func (p *Pipeline) save(ctx context.Context, report *model.Report) {
	if p.store == nil || report.Result.Score == model.ScoreNA {
		return
	}
	if _, err := p.store.SaveAnalysis(ctx, report.Subject, report.SourceURL, report.Result); err != nil {
		p.logger.Warn("failed to save analysis", zap.String("page", report.Subject), zap.Error(err))
	}
}

// logError records a caught analysis failure in the persisted error log
func (p *Pipeline) logError(ctx context.Context, err error) {
	if p.store == nil {
		return
	}
	if _, logErr := p.store.AppendError(ctx, "analysis", err.Error(), store.SeverityError); logErr != nil {
		p.logger.Error("failed to record analysis error", zap.Error(logErr))
	}
}

// additiveResult converts a section report into a displayable result
func additiveResult(r model.SectionReport) model.AnalysisResult {
	gaps := r.Gaps()
	suggestions := make([]string, 0, len(gaps))
	for _, g := range gaps {
		suggestions = append(suggestions, score.SuggestionFor(g))
	}
	return model.AnalysisResult{
		Score:       model.Score(r.Score),
		Gaps:        gaps,
		Suggestions: suggestions,
	}
}

// BatchItem is the outcome of analyzing one URL in a batch
type BatchItem struct {
	URL    string
	Report *model.Report
	Err    error
}

// AnalyzeURLs analyzes urls concurrently, throttled per host by limiter
// when it is non-nil. Results keep input order.
func (p *Pipeline) AnalyzeURLs(ctx context.Context, urls []string, concurrency int, limiter *worker.Limiter) []BatchItem {
	bp := worker.NewBatchProcessor(func(ctx context.Context, u string) BatchItem {
		report, err := p.AnalyzeURL(ctx, u)
		return BatchItem{URL: u, Report: report, Err: err}
	}, concurrency)
	if limiter != nil {
		bp.WithLimiter(limiter, func(u string) string { return u })
	}
	return bp.Process(ctx, urls, func(u string, err error) BatchItem {
		return BatchItem{URL: u, Err: err}
	})
}
