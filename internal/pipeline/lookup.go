package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/leadmaster/internal/dedup"
	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/source"
)

// LookupLabel is the source label prefix of signals written by a lookup
const LookupLabel = "lookup"

// ManualSearch runs a targeted lookup for one company: fetch, exact dedup,
// extraction, then one summary and one geocode for the relevant headlines,
// which are persisted under the requested name. When nothing relevant is
// found the result has NoSignals set and nothing is written.
//
// A persistence failure is returned alongside a fully populated result.
func (p *Pipeline) ManualSearch(ctx context.Context, company string) (*model.LookupResult, error) {
	company = strings.Join(strings.Fields(company), " ")
	if company == "" {
		return nil, eris.New("pipeline: company name is required")
	}

	log := zap.L().With(zap.String("company", company))
	result := &model.LookupResult{Company: company}

	candidates := dedup.Exact(p.fetch(ctx, company, source.NewBreaker()))
	if len(candidates) == 0 {
		log.Info("lookup: no candidates from any source")
		result.NoSignals = true
		return result, nil
	}

	relevant := p.relevant(p.extract(ctx, candidates))
	if len(relevant) == 0 {
		log.Info("lookup: no relevant headlines", zap.Int("candidates", len(candidates)))
		result.NoSignals = true
		return result, nil
	}

	summary, lat, lon := p.profile(ctx, company, relevant)
	result.Summary = summary
	result.Lat, result.Lon = lat, lon
	result.Headlines = make([]model.LookupHeadline, len(relevant))
	for i, it := range relevant {
		result.Headlines[i] = model.LookupHeadline{Candidate: it.Candidate, Extraction: it.Extraction}
	}

	if p.writer == nil {
		return result, nil
	}
	client, signals := buildRecords(company, relevant, summary, lat, lon, LookupLabel)
	n, err := p.writer.UpsertCompanyGroup(ctx, client, signals)
	if err != nil {
		return result, eris.Wrapf(err, "pipeline: persist lookup for %s", company)
	}
	result.Written = n

	log.Info("lookup complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("relevant", len(relevant)),
		zap.Int("signals_written", n))
	return result, nil
}
