package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/leadmaster/internal/dedup"
	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/score"
	"github.com/ppiankov/leadmaster/internal/source"
	"github.com/ppiankov/leadmaster/internal/worker"
)

// ScanLabel is the source label prefix of signals written by a broad scan
const ScanLabel = "scan"

// NationalScan runs the broad scan: keywords are fetched on a bounded
// worker pool, merged in keyword order, fuzzy-deduplicated, prefiltered
// by keyword, capped, extracted and aggregated per company.
//
// Cancelling ctx stops the scan at the next stage boundary. Keywords not
// yet started are never fetched, and work already written is kept. The
// report always carries the partial counts.
func (p *Pipeline) NationalScan(ctx context.Context, progress model.ProgressFunc) *model.ScanReport {
	report := &model.ScanReport{
		RunID:     uuid.NewString(),
		StartedAt: p.now().UTC(),
	}
	log := zap.L().With(zap.String("run_id", report.RunID))
	defer func() {
		report.Duration = p.now().Sub(report.StartedAt)
		report.BudgetExhausted, report.SpentCents = p.budgetState()
		emit(progress, model.Progress{RunID: report.RunID, Stage: model.StageDone, Done: 1, Total: 1,
			Message: doneMessage(report)})
		log.Info("scan finished",
			zap.Int("keywords_fetched", report.KeywordsFetched),
			zap.Int("fetched", report.Fetched),
			zap.Int("relevant", report.Relevant),
			zap.Int("companies_written", report.CompaniesWritten),
			zap.Int("companies_failed", report.CompaniesFailed),
			zap.Int("signals_written", report.SignalsWritten),
			zap.Bool("budget_exhausted", report.BudgetExhausted),
			zap.Bool("cancelled", report.Cancelled))
	}()

	emit(progress, model.Progress{RunID: report.RunID, Stage: model.StageKeywords, Message: "loading keywords"})
	all := p.Keywords(ctx)
	keywords := p.scanKeywords(all)
	p.engine.SetKeywords(all)
	report.Keywords = len(keywords)

	breaker := source.NewBreaker()
	results := worker.FanOut(ctx, keywords, p.opts.Concurrency,
		func(ctx context.Context, kw string) []model.Candidate {
			return p.fetch(ctx, kw, breaker)
		},
		func(done, total int) {
			emit(progress, model.Progress{RunID: report.RunID, Stage: model.StageFetch, Done: done, Total: total})
		})

	var fetched []model.Candidate
	for _, r := range results {
		fetched = append(fetched, r.Candidates...)
	}
	report.KeywordsFetched = len(results)
	report.Fetched = len(fetched)
	if f := breaker.Failures(); len(f) > 0 {
		log.Warn("source adapters tripped during scan", zap.Any("failures", f))
	}
	if ctx.Err() != nil {
		report.Cancelled = true
		return report
	}

	emit(progress, model.Progress{RunID: report.RunID, Stage: model.StageDedup, Total: len(fetched)})
	unique := dedup.Fuzzy(fetched, p.opts.FuzzyThreshold)
	report.Unique = len(unique)

	var prospects []model.Candidate
	for _, c := range unique {
		if score.MatchesAny(c.Headline, all) {
			prospects = append(prospects, c)
		}
	}
	report.Matched = len(prospects)
	if len(prospects) > p.opts.MaxProspects {
		prospects = prospects[:p.opts.MaxProspects]
	}

	emit(progress, model.Progress{RunID: report.RunID, Stage: model.StageExtract, Total: len(prospects)})
	scored := p.extract(ctx, prospects)
	if ctx.Err() != nil {
		report.Cancelled = true
		return report
	}
	report.Relevant = len(p.relevant(scored))

	emit(progress, model.Progress{RunID: report.RunID, Stage: model.StageAggregate, Total: report.Relevant})
	stats := p.AggregateAndWrite(ctx, scored, ScanLabel)
	report.Companies = stats.Companies
	report.CompaniesWritten = stats.Written
	report.CompaniesFailed = stats.Failed
	report.SignalsWritten = stats.Signals
	report.Cancelled = ctx.Err() != nil || stats.Skipped > 0

	return report
}

func doneMessage(r *model.ScanReport) string {
	if r.Cancelled {
		return fmt.Sprintf("cancelled: %d companies written before stop", r.CompaniesWritten)
	}
	return fmt.Sprintf("%d companies, %d signals written", r.CompaniesWritten, r.SignalsWritten)
}
