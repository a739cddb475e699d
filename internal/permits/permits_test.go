package permits

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/source"
)

type stubSearcher struct {
	mu      sync.Mutex
	queries []string
	byQuery map[string][]model.Candidate
	fail    map[string]bool
}

func (s *stubSearcher) Fetch(_ context.Context, query string, max int) ([]model.Candidate, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.fail[query] {
		return nil, errors.New("feed down")
	}
	items := s.byQuery[query]
	if max > 0 && len(items) > max {
		items = items[:max]
	}
	return items, nil
}

func TestCountyQuery(t *testing.T) {
	if got := CountyQuery("maricopa.gov"); got != `"building permit" site:maricopa.gov` {
		t.Errorf("CountyQuery = %s", got)
	}
}

func TestFetcher_FiltersAndDedups(t *testing.T) {
	s := &stubSearcher{
		byQuery: map[string][]model.Candidate{
			NationalQuery: {
				{Headline: "County issues building permit for new warehouse", URL: "https://n.example/1", Date: "20260301"},
				{Headline: "Permit awarded to General Contractor LLC", URL: "https://n.example/2"},
			},
			CountyQuery("a.gov"): {
				{Headline: "County issues building permit for new warehouse", URL: "https://a.gov/x"},
				{Headline: "Data center permit filed", URL: "https://a.gov/y"},
			},
			CountyQuery("b.gov"): {
				{Headline: "Different title same link", URL: "https://a.gov/y"},
			},
		},
		fail: map[string]bool{CountyQuery("c.gov"): true},
	}

	got := NewFetcher(s, []string{"a.gov", "b.gov", "c.gov"}, 2).Fetch(context.Background(), 10)

	if len(got) != 2 {
		t.Fatalf("got %d permits: %+v", len(got), got)
	}
	if got[0].Feed != NationalFeed || got[0].Date != "20260301" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Feed != "a.gov" || got[1].Headline != "Data center permit filed" {
		t.Errorf("second = %+v", got[1])
	}
	if got[1].Date != source.Today() {
		t.Errorf("missing date should default to today, got %q", got[1].Date)
	}
	if len(s.queries) != 4 {
		t.Errorf("queries = %v", s.queries)
	}
}

func TestFetcher_DefaultDomains(t *testing.T) {
	s := &stubSearcher{}
	NewFetcher(s, nil, 0).Fetch(context.Background(), 5)
	if len(s.queries) != len(CountyDomains)+1 {
		t.Errorf("queries = %d, want %d", len(s.queries), len(CountyDomains)+1)
	}
}

func TestFetcher_WithGoogleNewsFeed(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		link := fmt.Sprintf("https://example.gov/notice/%d", hits.Add(1))
		w.Header().Set("Content-Type", "application/rss+xml")
		title := "Building permit issued for " + strings.ReplaceAll(q, `"`, "")
		_, _ = w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>
<item><title>` + title + `</title><link>` + link + `</link>
<pubDate>Mon, 02 Mar 2026 10:00:00 GMT</pubDate></item></channel></rss>`))
	}))
	defer server.Close()

	feeds := source.NewGoogleNews(server.URL, &http.Client{Timeout: 5 * time.Second}, nil)
	got := NewFetcher(feeds, []string{"maricopa.gov"}, 1).Fetch(context.Background(), 5)

	if len(got) != 2 {
		t.Fatalf("got %d permits: %+v", len(got), got)
	}
	if got[0].Date != "20260302" || got[0].Origin != model.OriginFeedSearch {
		t.Errorf("national permit = %+v", got[0])
	}
}
