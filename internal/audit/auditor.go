package audit

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/ppiankov/wikigap/internal/model"
	"github.com/ppiankov/wikigap/internal/score"
	"github.com/ppiankov/wikigap/internal/wiki"
	"github.com/ppiankov/wikigap/internal/worker"
)

// WikiClient is the part of the wiki API the audit needs
type WikiClient interface {
	Exists(ctx context.Context, title string) (bool, error)
	Parse(ctx context.Context, title string) (*wiki.Page, error)
}

// TemplateSource looks up the template of an archetype
type TemplateSource interface {
	Get(archetype string) (*model.Template, bool)
}

// Result is the audit outcome of one entity. Score is N/A when the
// article does not exist and 0 when it exists but could not be parsed.
type Result struct {
	Entity      Entity      `json:"entity"`
	Title       string      `json:"title,omitempty"`
	Exists      bool        `json:"exists"`
	Score       model.Score `json:"score"`
	RevID       int64       `json:"revid,omitempty"`
	Gaps        []model.Gap `json:"gaps"`
	Suggestions []string    `json:"suggestions"`
	Error       string      `json:"error,omitempty"`
}

// Options configures an Auditor
type Options struct {
	Client    WikiClient
	Templates TemplateSource
	Workers   int
	// TryAliases checks aliases in order when the canonical name has no article
	TryAliases bool
	// Progress is called once per finished entity, possibly concurrently
	Progress func(Result)
	Logger   *zap.Logger
}

// Auditor runs the bulk repository audit
type Auditor struct {
	client     WikiClient
	templates  TemplateSource
	workers    int
	tryAliases bool
	progress   func(Result)
	logger     *zap.Logger
}

// New creates an Auditor
func New(opts Options) *Auditor {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Auditor{
		client:     opts.Client,
		templates:  opts.Templates,
		workers:    opts.Workers,
		tryAliases: opts.TryAliases,
		progress:   opts.Progress,
		logger:     opts.Logger,
	}
}

// Run audits entities concurrently and returns results in input order
func (a *Auditor) Run(ctx context.Context, entities []Entity) []Result {
	bp := worker.NewBatchProcessor(a.AuditEntity, a.workers)
	return bp.Process(ctx, entities, func(e Entity, err error) Result {
		r := missing(e)
		r.Error = err.Error()
		return r
	})
}

// AuditEntity checks that the entity's article exists and scores its wikitext
func (a *Auditor) AuditEntity(ctx context.Context, e Entity) Result {
	r := a.audit(ctx, e)
	a.logger.Debug("audited entity",
		zap.String("entity", e.Name),
		zap.Bool("exists", r.Exists),
		zap.Stringer("score", r.Score),
	)
	if a.progress != nil {
		a.progress(r)
	}
	return r
}

func (a *Auditor) audit(ctx context.Context, e Entity) Result {
	r := missing(e)

	titles := []string{e.Name}
	if a.tryAliases {
		titles = e.Titles()
	}

	for _, title := range titles {
		ok, err := a.client.Exists(ctx, title)
		if err != nil {
			a.logger.Warn("existence check failed", zap.String("title", title), zap.Error(err))
			r.Error = err.Error()
			continue
		}
		if ok {
			r.Title = title
			r.Exists = true
			r.Error = ""
			break
		}
	}
	if !r.Exists {
		return r
	}

	r.Score = 0
	page, err := a.client.Parse(ctx, r.Title)
	if err != nil {
		if !errors.Is(err, wiki.ErrNotFound) {
			a.logger.Warn("parse failed", zap.String("title", r.Title), zap.Error(err))
		}
		r.Error = err.Error()
		return r
	}

	required := a.requiredSections(e)
	result := score.Audit(required, page.Summary())
	r.RevID = page.RevID
	r.Score = result.Score
	r.Gaps = result.Gaps
	r.Suggestions = result.Suggestions
	return r
}

func (a *Auditor) requiredSections(e Entity) []string {
	if a.templates == nil {
		return nil
	}
	tpl, ok := a.templates.Get(e.Type.Archetype())
	if !ok {
		a.logger.Warn("no template for entity type", zap.String("type", string(e.Type)))
		return nil
	}
	return tpl.AuditSections()
}

func missing(e Entity) Result {
	return Result{
		Entity:      e,
		Score:       model.ScoreNA,
		Gaps:        []model.Gap{},
		Suggestions: []string{},
	}
}

// Summary aggregates audit results
type Summary struct {
	Total        int     `json:"total"`
	Existing     int     `json:"existing"`
	Missing      int     `json:"missing"`
	Errors       int     `json:"errors"`
	AverageScore float64 `json:"averageScore"`
}

// Summarize counts results and averages the scores of existing articles
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	sum, scored := 0, 0
	for _, r := range results {
		if r.Error != "" {
			s.Errors++
		}
		if !r.Exists {
			s.Missing++
			continue
		}
		s.Existing++
		if r.Score.Valid() {
			sum += int(r.Score)
			scored++
		}
	}
	if scored > 0 {
		s.AverageScore = math.Round(float64(sum)/float64(scored)*10) / 10
	}
	return s
}
