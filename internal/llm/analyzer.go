package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/ppiankov/wikigap/internal/model"
)

// Page is the input of one model analysis
type Page struct {
	Title string
	URL   string
	// HTML is the main content region; Text is used when it is empty
	HTML     string
	Text     string
	Template *model.Template
}

// Analyzer runs model-backed gap analysis
type Analyzer struct {
	provider Provider
	markdown *MarkdownConverter
	logger   *zap.Logger
}

// NewAnalyzer wraps p
func NewAnalyzer(p Provider, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{provider: p, markdown: NewMarkdownConverter(), logger: logger}
}

// Provider returns the wrapped provider
func (a *Analyzer) Provider() Provider {
	return a.provider
}

// Analyze always returns a displayable result. When the provider call
// fails the result is degraded and the error is an *model.UpstreamError.
func (a *Analyzer) Analyze(ctx context.Context, page Page) (model.AnalysisResult, error) {
	article := a.markdown.Convert(page.HTML, page.URL, page.Text)
	prompt := BuildPrompt(page.Title, article, page.Template)

	resp, err := a.provider.Complete(ctx, CompletionRequest{
		Prompt: prompt,
		System: systemPrompt,
		JSON:   true,
	})
	if err != nil {
		uerr := &model.UpstreamError{Provider: a.provider.Name(), Err: err}
		a.logger.Warn("model analysis failed", zap.String("page", page.Title), zap.Error(uerr))
		return degradedFrom(err.Error()), uerr
	}

	result := ParseResult(resp.Text)
	a.logger.Debug("model analysis complete",
		zap.String("page", page.Title),
		zap.String("model", resp.Model),
		zap.Int("tokens", resp.TokensUsed),
		zap.Stringer("score", result.Score),
	)
	return result, nil
}
