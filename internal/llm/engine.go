package llm

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ppiankov/leadmaster/internal/budget"
	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/score"
)

// SummaryPolicy decides what Summarize does inside the cooldown window
type SummaryPolicy string

const (
	// PolicyWait blocks until the window opens (or the context ends)
	PolicyWait SummaryPolicy = "wait"
	// PolicySkip returns the heuristic summary immediately
	PolicySkip SummaryPolicy = "skip"
)

// Costs are the per-call prices charged to the budget, in cents
type Costs struct {
	Extract int64
	Summary int64
	Keyword int64
}

// Options configures an Engine
type Options struct {
	Costs        Costs
	Keywords     []string // vocabulary for the heuristic scorer
	Cooldown     time.Duration
	Policy       SummaryPolicy
	MaxHeadlines int
	BatchSize    int
}

// Engine runs headline extraction, aggregate summaries and keyword expansion
// against a provider, charging every paid call to the budget first. It never
// returns an error: failures degrade to safe defaults or heuristics.
//
// Fallback rules:
//   - no provider or budget denied: heuristic extraction/summary
//   - provider error, rate limit or unparsable reply on extraction: default extraction
//   - any failure on summary: heuristic summary
type Engine struct {
	provider     Provider
	governor     *budget.Governor
	costs        Costs
	heuristics   atomic.Pointer[score.Scorer]
	cooldown     *rate.Limiter
	policy       SummaryPolicy
	maxHeadlines int
	batchSize    int
}

// NewEngine creates an engine. provider may be nil (heuristics only);
// governor may be nil (no ceiling).
func NewEngine(provider Provider, governor *budget.Governor, opts Options) *Engine {
	if opts.MaxHeadlines <= 0 {
		opts.MaxHeadlines = 10
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Policy != PolicySkip {
		opts.Policy = PolicyWait
	}

	e := &Engine{
		provider:     provider,
		governor:     governor,
		costs:        opts.Costs,
		policy:       opts.Policy,
		maxHeadlines: opts.MaxHeadlines,
		batchSize:    opts.BatchSize,
	}
	e.heuristics.Store(score.NewScorer(opts.Keywords))
	if opts.Cooldown > 0 {
		e.cooldown = rate.NewLimiter(rate.Every(opts.Cooldown), 1)
	}
	return e
}

// Enabled reports whether a provider is configured
func (e *Engine) Enabled() bool {
	return e.provider != nil
}

// Heuristics exposes the fallback scorer
func (e *Engine) Heuristics() *score.Scorer {
	return e.heuristics.Load()
}

// SetKeywords replaces the heuristic vocabulary, e.g. with a scan's
// expanded keyword list, so fallback scoring recognises every phrase the
// scan searched for
func (e *Engine) SetKeywords(keywords []string) {
	e.heuristics.Store(score.NewScorer(keywords))
}

func (e *Engine) charge(cents int64) bool {
	if e.governor == nil {
		return true
	}
	return e.governor.Charge(cents)
}

func (e *Engine) affordable(cents int64) bool {
	return e.governor == nil || e.governor.Affordable(cents)
}

func (e *Engine) refund(cents int64) {
	if e.governor != nil {
		e.governor.Refund(cents)
	}
}

// Extract analyses one headline
func (e *Engine) Extract(ctx context.Context, headline string) model.Extraction {
	if strings.TrimSpace(headline) == "" {
		return model.DefaultExtraction()
	}
	if e.provider == nil || ctx.Err() != nil {
		return e.Heuristics().Extract(headline)
	}
	if !e.charge(e.costs.Extract) {
		return e.Heuristics().Extract(headline)
	}

	resp, err := e.provider.Complete(ctx, CompletionRequest{
		System: extractSystem,
		Prompt: ExtractionPrompt(headline),
		JSON:   true,
	})
	if err != nil {
		logCallFailure("extract", err)
		return model.DefaultExtraction()
	}

	ext, err := ParseExtraction(resp.Text)
	if err != nil {
		zap.L().Warn("unparsable extraction reply", zap.String("headline", headline), zap.Error(err))
	}
	return ext
}

// ExtractBatch analyses headlines in chunks of the configured batch size.
// A chunk whose batched reply cannot be used falls back to one Extract call
// per headline. The result has one entry per input, in input order.
func (e *Engine) ExtractBatch(ctx context.Context, headlines []string) []model.Extraction {
	out := make([]model.Extraction, 0, len(headlines))
	for start := 0; start < len(headlines); start += e.batchSize {
		end := start + e.batchSize
		if end > len(headlines) {
			end = len(headlines)
		}
		out = append(out, e.extractChunk(ctx, headlines[start:end])...)
	}
	return out
}

func (e *Engine) extractChunk(ctx context.Context, chunk []string) []model.Extraction {
	if e.provider == nil || ctx.Err() != nil {
		out := make([]model.Extraction, len(chunk))
		for i, h := range chunk {
			out[i] = e.Heuristics().Extract(h)
		}
		return out
	}

	// A batch that does not fit is not attempted, so the governor only sees
	// the per-headline charges below
	batchCost := e.costs.Extract * int64(len(chunk))
	if len(chunk) > 1 && e.affordable(batchCost) && e.charge(batchCost) {
		resp, err := e.provider.Complete(ctx, CompletionRequest{
			System: extractSystem,
			Prompt: BatchExtractionPrompt(chunk),
			JSON:   true,
		})
		if err != nil {
			logCallFailure("extract_batch", err)
		} else if results, perr := ParseExtractionBatch(resp.Text, len(chunk)); perr != nil {
			zap.L().Warn("unusable batch reply, extracting one by one", zap.Int("size", len(chunk)), zap.Error(perr))
		} else {
			return results
		}
	}

	out := make([]model.Extraction, len(chunk))
	for i, h := range chunk {
		out[i] = e.Extract(ctx, h)
	}
	return out
}

// Summarize produces one aggregate summary for a company from at most the
// configured number of most recent headlines. The call is paced by the
// process-wide cooldown. The budget is reserved before waiting, so a spent
// budget returns the heuristic summary at once; the reservation is
// returned when the wait is abandoned.
func (e *Engine) Summarize(ctx context.Context, company string, items []model.Scored) model.Summary {
	items = mostRecent(items, e.maxHeadlines)
	fallback := score.Summarize(company, items, e.maxHeadlines)

	if e.provider == nil || len(items) == 0 {
		return fallback
	}

	if !e.charge(e.costs.Summary) {
		return fallback
	}

	if e.cooldown != nil {
		switch e.policy {
		case PolicySkip:
			if !e.cooldown.Allow() {
				e.refund(e.costs.Summary)
				zap.L().Info("summary cooldown active, using heuristic summary", zap.String("company", company))
				return fallback
			}
		default:
			if err := e.cooldown.Wait(ctx); err != nil {
				e.refund(e.costs.Summary)
				zap.L().Warn("summary cooldown wait aborted", zap.String("company", company), zap.Error(err))
				return fallback
			}
		}
	}

	headlines := make([]string, len(items))
	for i, it := range items {
		headlines[i] = it.Candidate.Headline
	}

	resp, err := e.provider.Complete(ctx, CompletionRequest{
		System: summarySystem,
		Prompt: SummaryPrompt(company, headlines),
		JSON:   true,
	})
	if err != nil {
		logCallFailure("summarize", err)
		return fallback
	}

	sum, err := ParseSummary(resp.Text)
	if err != nil {
		zap.L().Warn("unparsable summary reply", zap.String("company", company), zap.Error(err))
		return fallback
	}
	if sum.Sector == "" {
		sum.Sector = fallback.Sector
	}
	sum.LandPurchase = sum.LandPurchase || fallback.LandPurchase
	return sum
}

// ExpandKeywords grows the seed list with generated phrases, keeping seeds
// first and returning at most limit entries. The bool reports whether
// expansion happened; on any failure the seeds come back unchanged.
func (e *Engine) ExpandKeywords(ctx context.Context, seeds []string, limit int) ([]string, bool) {
	if e.provider == nil || !e.charge(e.costs.Keyword) {
		return seeds, false
	}

	resp, err := e.provider.Complete(ctx, CompletionRequest{
		System: keywordSystem,
		Prompt: KeywordPrompt(seeds, limit),
	})
	if err != nil {
		logCallFailure("expand_keywords", err)
		return seeds, false
	}

	generated := ParseKeywords(resp.Text, 0)
	if len(generated) == 0 {
		return seeds, false
	}

	merged := ParseKeywords(strings.Join(append(append([]string{}, seeds...), generated...), ","), limit)
	return merged, true
}

// mostRecent keeps the n newest items by date (YYYYMMDD sorts lexically),
// preserving input order among equal dates.
func mostRecent(items []model.Scored, n int) []model.Scored {
	if len(items) <= n {
		return items
	}
	sorted := append([]model.Scored(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Candidate.Date > sorted[j].Candidate.Date
	})
	return sorted[:n]
}

func logCallFailure(op string, err error) {
	if eris.Is(err, ErrRateLimited) {
		zap.L().Warn("llm rate limited, using fallback", zap.String("op", op))
		return
	}
	zap.L().Warn("llm call failed, using fallback", zap.String("op", op), zap.Error(err))
}
