package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/leadmaster/internal/score"
	"github.com/ppiankov/leadmaster/internal/store"
)

// Keywords returns the broad-scan keyword list. A stored list younger than
// the keyword TTL is reused; otherwise the seeds are expanded by the engine
// and stored. When expansion is unavailable the seeds are used as-is and
// nothing is stored, so the next run tries again.
func (p *Pipeline) Keywords(ctx context.Context) []string {
	if p.writer != nil {
		kws, updated, err := p.writer.GetKeywords(ctx)
		switch {
		case eris.Is(err, store.ErrNotFound):
		case err != nil:
			zap.L().Warn("keyword cache read failed", zap.Error(err))
		case len(kws) > 0 && p.now().Sub(updated) < p.opts.KeywordTTL:
			return kws
		}
	}

	expanded, ok := p.engine.ExpandKeywords(ctx, score.SeedKeywords, p.opts.ExpandLimit)
	if !ok {
		return append([]string(nil), score.SeedKeywords...)
	}

	if p.writer != nil {
		if err := p.writer.PutKeywords(ctx, expanded); err != nil {
			zap.L().Warn("keyword cache write failed", zap.Error(err))
		}
	}
	zap.L().Info("keyword list expanded", zap.Int("keywords", len(expanded)))
	return expanded
}

// scanKeywords is the slice of the list the scan actually iterates
func (p *Pipeline) scanKeywords(all []string) []string {
	if len(all) > p.opts.KeywordLimit {
		return all[:p.opts.KeywordLimit]
	}
	return all
}
