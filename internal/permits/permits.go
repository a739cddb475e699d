// Package permits lists recent building-permit notices from a national
// government feed and a fixed set of large county sites.
package permits

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/leadmaster/internal/dedup"
	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/source"
	"github.com/ppiankov/leadmaster/internal/worker"
)

// NationalQuery is the feed query for government permit notices
const NationalQuery = "building permit site:gov"

// NationalFeed labels permits from the national query
const NationalFeed = "national"

// CountyDomains are the county sites queried individually, largest
// construction markets first
var CountyDomains = []string{
	"maricopa.gov",
	"harriscountytx.gov",
	"lacounty.gov",
	"cookcountyil.gov",
	"sandiegocounty.gov",
	"ocgov.com",
	"miamidade.gov",
	"dallascounty.org",
	"kingcounty.gov",
	"clarkcountynv.gov",
	"tarrantcounty.com",
	"sbcounty.gov",
	"bexar.org",
	"broward.org",
	"rivco.org",
}

// Searcher runs one feed query; *source.GoogleNews satisfies it
type Searcher interface {
	Fetch(ctx context.Context, query string, maxResults int) ([]model.Candidate, error)
}

// Permit is one permit headline and the feed it came from
type Permit struct {
	model.Candidate
	Feed string `json:"feed"`
}

// Fetcher queries the national and county permit feeds
type Fetcher struct {
	search      Searcher
	domains     []string
	concurrency int
}

// NewFetcher creates a fetcher; nil domains means CountyDomains
func NewFetcher(search Searcher, domains []string, concurrency int) *Fetcher {
	if domains == nil {
		domains = CountyDomains
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Fetcher{search: search, domains: domains, concurrency: concurrency}
}

// CountyQuery is the feed query for one county site
func CountyQuery(domain string) string {
	return fmt.Sprintf("%q site:%s", "building permit", domain)
}

// Fetch returns up to maxPerFeed items from every feed. Notices that
// mention a contractor are dropped since the work is already awarded, and
// repeats across feeds are removed, keeping the first feed's copy. A feed
// that fails is logged and skipped.
func (f *Fetcher) Fetch(ctx context.Context, maxPerFeed int) []Permit {
	queries := make([]string, 0, len(f.domains)+1)
	labels := make([]string, 0, len(f.domains)+1)
	queries = append(queries, NationalQuery)
	labels = append(labels, NationalFeed)
	for _, d := range f.domains {
		queries = append(queries, CountyQuery(d))
		labels = append(labels, d)
	}

	results := worker.FanOut(ctx, queries, f.concurrency, func(ctx context.Context, q string) []model.Candidate {
		items, err := f.search.Fetch(ctx, q, maxPerFeed)
		if err != nil {
			zap.L().Warn("permit feed failed", zap.String("query", q), zap.Error(err))
			return nil
		}
		return items
	}, nil)

	seenTitle := make(map[string]bool)
	seenURL := make(map[string]bool)
	var out []Permit
	for _, r := range results {
		for _, c := range r.Candidates {
			if strings.Contains(strings.ToLower(c.Headline), "contractor") {
				continue
			}
			title, url := dedup.Key(c)
			if seenTitle[title] || (url != "" && seenURL[url]) {
				continue
			}
			seenTitle[title] = true
			if url != "" {
				seenURL[url] = true
			}
			if c.Date == "" {
				c.Date = source.Today()
			}
			out = append(out, Permit{Candidate: c, Feed: labels[r.Index]})
		}
	}
	return out
}
