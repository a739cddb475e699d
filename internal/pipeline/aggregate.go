package pipeline

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/source"
)

// WriteStats counts what AggregateAndWrite did
type WriteStats struct {
	Companies int // groups formed
	Written   int // groups persisted
	Failed    int // groups whose write failed
	Skipped   int // groups never started because the context ended
	Signals   int // signal rows written
}

// companyGroup is every relevant item resolved to one company
type companyGroup struct {
	name  string
	items []model.Scored
}

// groupByCompany keeps relevant items with a usable company and groups
// them case-insensitively under the first spelling seen. Group order is
// first appearance.
func (p *Pipeline) groupByCompany(items []model.Scored) []*companyGroup {
	index := make(map[string]*companyGroup)
	var groups []*companyGroup

	for _, it := range p.relevant(items) {
		if !it.Extraction.HasCompany() {
			continue
		}
		name := strings.Join(strings.Fields(it.Extraction.Company), " ")
		key := strings.ToLower(name)
		g, ok := index[key]
		if !ok {
			g = &companyGroup{name: name}
			index[key] = g
			groups = append(groups, g)
		}
		g.items = append(g.items, it)
	}
	return groups
}

// AggregateAndWrite groups relevant items by company, summarizes and
// geocodes each company once, and upserts its profile together with its
// signals. A failed company group is counted and logged; it never stops
// the others. Once ctx ends no further groups are started. Groups already
// running stop waiting on the summary cooldown and the geocoder, fall back
// to heuristic data, and still write.
func (p *Pipeline) AggregateAndWrite(ctx context.Context, items []model.Scored, label string) WriteStats {
	groups := p.groupByCompany(items)
	stats := WriteStats{Companies: len(groups)}
	if len(groups) == 0 {
		return stats
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(p.opts.Concurrency)

	for _, grp := range groups {
		if ctx.Err() != nil {
			mu.Lock()
			stats.Skipped++
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			n, err := p.writeGroup(ctx, grp.name, grp.items, label)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				zap.L().Warn("company group write failed",
					zap.String("company", grp.name),
					zap.Int("signals", len(grp.items)),
					zap.Error(err))
				return nil
			}
			stats.Written++
			stats.Signals += n
			return nil
		})
	}
	_ = g.Wait()

	return stats
}

// writeGroup summarizes and locates one company concurrently, then
// persists the profile and its signals in one transaction. The write is
// detached from ctx so a started group is never half written.
func (p *Pipeline) writeGroup(ctx context.Context, company string, items []model.Scored, label string) (int, error) {
	summary, lat, lon := p.profile(ctx, company, items)
	client, signals := buildRecords(company, items, summary, lat, lon, label)

	if p.writer == nil {
		return 0, eris.New("pipeline: no store configured")
	}
	n, err := p.writer.UpsertCompanyGroup(context.WithoutCancel(ctx), client, signals)
	if err != nil {
		return 0, eris.Wrapf(err, "pipeline: write %s", company)
	}
	return n, nil
}

// profile runs the aggregate summary and the geocode for one company in
// parallel. Neither step can fail; both degrade to fallbacks.
func (p *Pipeline) profile(ctx context.Context, company string, items []model.Scored) (model.Summary, *float64, *float64) {
	var (
		summary  model.Summary
		lat, lon *float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary = p.engine.Summarize(gctx, company, items)
		return nil
	})
	if p.locator != nil {
		g.Go(func() error {
			lat, lon = p.locator.GeocodeFor(gctx, locationHint(items), company)
			return nil
		})
	}
	_ = g.Wait()

	return summary, lat, lon
}

// locationHint picks the headline most likely to carry a place name: the
// one with the highest relevance, earliest on ties.
func locationHint(items []model.Scored) string {
	if len(items) == 0 {
		return ""
	}
	best := 0
	for i, it := range items {
		if it.Extraction.Relevance > items[best].Extraction.Relevance {
			best = i
		}
	}
	return items[best].Candidate.Headline
}

// buildRecords turns one company group into its profile row and signal rows
func buildRecords(company string, items []model.Scored, summary model.Summary, lat, lon *float64, label string) (model.Client, []model.Signal) {
	tagSet := make(map[string]bool)
	var tags []string
	addTag := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" || tagSet[strings.ToLower(t)] {
			return
		}
		tagSet[strings.ToLower(t)] = true
		tags = append(tags, t)
	}
	addTag(summary.Sector)

	land := summary.LandPurchase
	signals := make([]model.Signal, 0, len(items))
	for _, it := range items {
		addTag(it.Extraction.Sector)
		land = land || it.Extraction.LandPurchase

		date := it.Candidate.Date
		if date == "" {
			date = source.Today()
		}
		signals = append(signals, model.Signal{
			Company:     company,
			Headline:    it.Candidate.Headline,
			URL:         it.Candidate.URL,
			Date:        date,
			SourceLabel: sourceLabel(label, it.Candidate.Origin),
			LandFlag:    it.Extraction.LandPurchase,
			SectorGuess: it.Extraction.Sector,
			Relevance:   model.Clamp01(it.Extraction.Relevance),
			Lat:         lat,
			Lon:         lon,
		})
	}
	sort.Strings(tags)

	client := model.Client{
		Name:       company,
		Summary:    summary.Summary,
		SectorTags: tags,
		Lat:        lat,
		Lon:        lon,
		Confidence: model.Clamp01(summary.Confidence),
		LandFlag:   land,
	}
	return client, signals
}

// sourceLabel records which run and which adapter produced a signal
func sourceLabel(run string, origin model.Origin) string {
	switch {
	case run == "":
		return string(origin)
	case origin == "":
		return run
	default:
		return run + ":" + string(origin)
	}
}
