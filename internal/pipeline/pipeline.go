// Package pipeline drives the targeted lookup and the broad scan: fetch
// through the source chain and fetch cache, deduplicate, extract, then
// aggregate per company and persist.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/leadmaster/internal/budget"
	"github.com/ppiankov/leadmaster/internal/cache"
	"github.com/ppiankov/leadmaster/internal/llm"
	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/source"
)

// Locator resolves a company's coordinates; *geo.SafeGeocoder satisfies it
type Locator interface {
	GeocodeFor(ctx context.Context, hint, company string) (lat, lon *float64)
}

// Writer persists company groups and the scan keyword list; *store.Store
// satisfies it
type Writer interface {
	UpsertCompanyGroup(ctx context.Context, client model.Client, signals []model.Signal) (int, error)
	GetKeywords(ctx context.Context) ([]string, time.Time, error)
	PutKeywords(ctx context.Context, keywords []string) error
}

// Deps are the collaborators of a Pipeline. Cache, Governor and Locator
// may be nil.
type Deps struct {
	Chain    *source.Chain
	Cache    *cache.FetchCache
	Engine   *llm.Engine
	Governor *budget.Governor
	Locator  Locator
	Writer   Writer
}

// Options tune the pipeline
type Options struct {
	MaxResults     int
	MaxProspects   int
	KeywordLimit   int
	KeywordTTL     time.Duration
	ExpandLimit    int
	Cutoff         float64
	FuzzyThreshold float64
	Concurrency    int
}

// OptionsFromConfig maps configuration onto pipeline options
func OptionsFromConfig(cfg *model.Config) Options {
	return Options{
		MaxResults:     cfg.Search.MaxResults,
		MaxProspects:   cfg.Search.MaxProspects,
		KeywordLimit:   cfg.Search.KeywordLimit,
		KeywordTTL:     cfg.Search.KeywordTTL,
		Cutoff:         cfg.Search.RelevanceCutoff,
		FuzzyThreshold: cfg.Search.FuzzyThreshold,
		Concurrency:    cfg.Search.Concurrency,
	}
}

// Pipeline orchestrates lookups and scans
type Pipeline struct {
	chain    *source.Chain
	cache    *cache.FetchCache
	engine   *llm.Engine
	governor *budget.Governor
	locator  Locator
	writer   Writer
	opts     Options
	now      func() time.Time
}

// New creates a pipeline
func New(deps Deps, opts Options) *Pipeline {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 10
	}
	if opts.MaxProspects <= 0 {
		opts.MaxProspects = 50
	}
	if opts.KeywordLimit <= 0 {
		opts.KeywordLimit = 10
	}
	if opts.KeywordTTL <= 0 {
		opts.KeywordTTL = 7 * 24 * time.Hour
	}
	if opts.ExpandLimit <= 0 {
		opts.ExpandLimit = 60
	}
	if opts.Cutoff <= 0 {
		opts.Cutoff = 0.5
	}
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = 0.8
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if deps.Chain == nil {
		deps.Chain = source.NewChain()
	}
	if deps.Engine == nil {
		deps.Engine = llm.NewEngine(nil, deps.Governor, llm.Options{})
	}

	return &Pipeline{
		chain:    deps.Chain,
		cache:    deps.Cache,
		engine:   deps.Engine,
		governor: deps.Governor,
		locator:  deps.Locator,
		writer:   deps.Writer,
		opts:     opts,
		now:      time.Now,
	}
}

// fetch is the read-through path for one query
func (p *Pipeline) fetch(ctx context.Context, query string, b *source.Breaker) []model.Candidate {
	key := fmt.Sprintf("q=%s|n=%d", query, p.opts.MaxResults)
	return p.cache.Fetch(ctx, key, func(ctx context.Context) []model.Candidate {
		return p.chain.Fetch(ctx, query, p.opts.MaxResults, b)
	})
}

// extract runs batched extraction and pairs each candidate with its result
func (p *Pipeline) extract(ctx context.Context, candidates []model.Candidate) []model.Scored {
	if len(candidates) == 0 {
		return nil
	}
	headlines := make([]string, len(candidates))
	for i, c := range candidates {
		headlines[i] = c.Headline
	}
	results := p.engine.ExtractBatch(ctx, headlines)

	scored := make([]model.Scored, len(candidates))
	for i, c := range candidates {
		ex := model.DefaultExtraction()
		if i < len(results) {
			ex = results[i]
		}
		scored[i] = model.Scored{Candidate: c, Extraction: ex}
	}
	return scored
}

// relevant keeps items at or above the cutoff
func (p *Pipeline) relevant(items []model.Scored) []model.Scored {
	var out []model.Scored
	for _, it := range items {
		if it.Extraction.Relevance >= p.opts.Cutoff {
			out = append(out, it)
		}
	}
	return out
}

func (p *Pipeline) budgetState() (exhausted bool, spent int64) {
	if p.governor == nil {
		return false, 0
	}
	return p.governor.Exhausted(), p.governor.Spent()
}

func emit(progress model.ProgressFunc, ev model.Progress) {
	if progress == nil {
		return
	}
	if ev.Total > 0 {
		ev.Percent = float64(ev.Done) / float64(ev.Total) * 100
	}
	progress(ev)
}
