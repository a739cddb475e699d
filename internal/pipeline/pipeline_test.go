package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/leadmaster/internal/budget"
	"github.com/ppiankov/leadmaster/internal/cache"
	"github.com/ppiankov/leadmaster/internal/llm"
	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/score"
	"github.com/ppiankov/leadmaster/internal/source"
	"github.com/ppiankov/leadmaster/internal/store"
)

// stubAdapter answers queries from a fixed table
type stubAdapter struct {
	name    string
	origin  model.Origin
	byQuery map[string][]model.Candidate
	err     error

	mu    sync.Mutex
	calls int
}

func (s *stubAdapter) Name() string         { return s.name }
func (s *stubAdapter) Origin() model.Origin { return s.origin }

func (s *stubAdapter) Fetch(_ context.Context, query string, _ int) ([]model.Candidate, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.byQuery[query], nil
}

func (s *stubAdapter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubProvider routes replies by prompt shape
type stubProvider struct {
	extract func(prompt string) string
	summary string

	mu    sync.Mutex
	calls int
}

func (p *stubProvider) Name() string                     { return "stub" }
func (p *stubProvider) IsAvailable(context.Context) bool { return true }

func (p *stubProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	switch {
	case strings.HasPrefix(req.Prompt, "Headlines:"):
		return &llm.CompletionResponse{Text: "not a batch reply"}, nil
	case strings.HasPrefix(req.Prompt, "Headline:"):
		return &llm.CompletionResponse{Text: p.extract(req.Prompt)}, nil
	case strings.HasPrefix(req.Prompt, "Company:"):
		return &llm.CompletionResponse{Text: p.summary}, nil
	}
	return nil, errors.New("unexpected prompt")
}

// stubLocator always resolves to the same point
type stubLocator struct {
	lat, lon float64

	mu    sync.Mutex
	hints []string
}

func (l *stubLocator) GeocodeFor(_ context.Context, hint, _ string) (*float64, *float64) {
	l.mu.Lock()
	l.hints = append(l.hints, hint)
	l.mu.Unlock()
	lat, lon := l.lat, l.lon
	return &lat, &lon
}

// failingWriter fails every write for one company
type failingWriter struct {
	*store.Store
	company string
}

func (w *failingWriter) UpsertCompanyGroup(ctx context.Context, c model.Client, s []model.Signal) (int, error) {
	if c.Name == w.company {
		return 0, errors.New("disk full")
	}
	return w.Store.UpsertCompanyGroup(ctx, c, s)
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "leads.db"), 3)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedKeywords(t *testing.T, st *store.Store, kws ...string) {
	t.Helper()
	if err := st.PutKeywords(context.Background(), kws); err != nil {
		t.Fatalf("put keywords: %v", err)
	}
}

type testSetup struct {
	adapters []source.Adapter
	provider llm.Provider
	governor *budget.Governor
	writer   Writer
	cache    *cache.FetchCache
	opts     Options
	batch    int
}

func newTestPipeline(ts testSetup) (*Pipeline, *stubLocator) {
	loc := &stubLocator{lat: 40.0, lon: -75.0}
	engine := llm.NewEngine(ts.provider, ts.governor, llm.Options{
		Costs:     llm.Costs{Extract: 1, Summary: 2, Keyword: 1},
		Keywords:  score.SeedKeywords,
		BatchSize: ts.batch,
	})
	p := New(Deps{
		Chain:    source.NewChain(ts.adapters...),
		Cache:    ts.cache,
		Engine:   engine,
		Governor: ts.governor,
		Locator:  loc,
		Writer:   ts.writer,
	}, ts.opts)
	return p, loc
}

func cand(headline, url, date string) model.Candidate {
	return model.Candidate{Headline: headline, URL: url, Date: date, Origin: model.OriginFeedSearch}
}

func signalsFor(t *testing.T, st *store.Store, company string) []model.Signal {
	t.Helper()
	sigs, err := st.ListSignals(context.Background(), store.SignalFilter{Company: company})
	if err != nil {
		t.Fatalf("list signals: %v", err)
	}
	return sigs
}

// cancellingWriter cancels the scan from inside the first write
type cancellingWriter struct {
	*store.Store
	cancel context.CancelFunc
}

func (w *cancellingWriter) UpsertCompanyGroup(ctx context.Context, c model.Client, s []model.Signal) (int, error) {
	w.cancel()
	return w.Store.UpsertCompanyGroup(ctx, c, s)
}

func TestNationalScan_NearDuplicateHeadlinesPersistOnce(t *testing.T) {
	st := openStore(t)
	seedKeywords(t, st, "breaks ground", "new plant")

	feed := &stubAdapter{name: "feed", origin: model.OriginFeedSearch, byQuery: map[string][]model.Candidate{
		"breaks ground": {cand("Acme Corp breaks ground on new plant", "https://a.example/1", "20260301")},
		"new plant":     {cand("Acme Corp breaks ground on new plant ", "https://b.example/2", "20260302")},
	}}
	p, _ := newTestPipeline(testSetup{adapters: []source.Adapter{feed}, writer: st})

	report := p.NationalScan(context.Background(), nil)

	if report.Fetched != 2 || report.Unique != 1 {
		t.Errorf("fetched=%d unique=%d, want 2/1", report.Fetched, report.Unique)
	}
	if report.CompaniesWritten != 1 || report.SignalsWritten != 1 {
		t.Errorf("report = %+v", report)
	}
	if got := len(signalsFor(t, st, "Acme Corp")); got != 1 {
		t.Errorf("signals = %d, want 1", got)
	}
	if report.RunID == "" {
		t.Error("run id not set")
	}
}

func TestNationalScan_PreservesUserStatus(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	seedKeywords(t, st, "plant")

	if _, err := st.UpsertCompanyGroup(ctx, model.Client{Name: "Acme Corp"},
		[]model.Signal{{Headline: "Acme Corp picks site for plant", Date: "20250101"}}); err != nil {
		t.Fatal(err)
	}
	if err := st.SetStatus(ctx, "Acme Corp", model.StatusContacted); err != nil {
		t.Fatal(err)
	}

	feed := &stubAdapter{name: "feed", byQuery: map[string][]model.Candidate{
		"plant": {cand("Acme Corp breaks ground on new plant", "https://a.example/1", "20260301")},
	}}
	p, _ := newTestPipeline(testSetup{adapters: []source.Adapter{feed}, writer: st})
	p.NationalScan(ctx, nil)

	c, err := st.GetClient(ctx, "Acme Corp")
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != model.StatusContacted {
		t.Errorf("status = %s, want Contacted", c.Status)
	}
	if got := len(signalsFor(t, st, "Acme Corp")); got != 2 {
		t.Errorf("signals = %d, want 2", got)
	}
}

func TestNationalScan_CutoffDecidesRetention(t *testing.T) {
	st := openStore(t)
	seedKeywords(t, st, "plant")

	keep := "Acme Corp breaks ground on new plant"
	drop := "Mayor tours old plant site"
	feed := &stubAdapter{name: "feed", byQuery: map[string][]model.Candidate{
		"plant": {cand(keep, "https://a.example/1", "20260301"), cand(drop, "https://a.example/2", "20260301")},
	}}
	prov := &stubProvider{
		extract: func(prompt string) string {
			if strings.Contains(prompt, "Acme") {
				return `{"company": "Acme Corp", "score": 0.9}`
			}
			return `{"score": 0.2}`
		},
		summary: `{"summary": "Acme is building a plant.", "sector": "Manufacturing", "confidence": 0.8, "land_flag": false}`,
	}
	p, _ := newTestPipeline(testSetup{adapters: []source.Adapter{feed}, provider: prov, writer: st})

	report := p.NationalScan(context.Background(), nil)

	if report.Relevant != 1 || report.Companies != 1 {
		t.Fatalf("report = %+v", report)
	}
	sigs := signalsFor(t, st, "Acme Corp")
	if len(sigs) != 1 || sigs[0].Headline != keep {
		t.Fatalf("signals = %+v", sigs)
	}
	if sigs[0].Relevance != 0.9 || sigs[0].SourceLabel != "scan:feed_search" {
		t.Errorf("signal = %+v", sigs[0])
	}
	c, err := st.GetClient(context.Background(), "Acme Corp")
	if err != nil {
		t.Fatal(err)
	}
	if c.Summary != "Acme is building a plant." || c.Lat == nil || *c.Lat != 40.0 {
		t.Errorf("client = %+v", c)
	}
}

func TestNationalScan_BudgetExhaustedStillWritesSignals(t *testing.T) {
	st := openStore(t)
	seedKeywords(t, st, "plant", "cold storage")

	feed := &stubAdapter{name: "feed", byQuery: map[string][]model.Candidate{
		"plant":        {cand("Acme Corp breaks ground on new plant", "https://a.example/1", "20260301")},
		"cold storage": {cand("Beta Foods buys land for cold storage warehouse", "https://b.example/1", "20260302")},
	}}
	prov := &stubProvider{
		extract: func(string) string { return `{"company": "Acme Corp", "score": 0.9}` },
		summary: `{"summary": "unused"}`,
	}
	gov := budget.NewGovernor(1)
	p, _ := newTestPipeline(testSetup{
		adapters: []source.Adapter{feed},
		provider: prov,
		governor: gov,
		writer:   st,
		batch:    1,
		opts:     Options{Concurrency: 1},
	})

	report := p.NationalScan(context.Background(), nil)

	if !report.BudgetExhausted || report.SpentCents != 1 {
		t.Errorf("budget exhausted=%v spent=%d", report.BudgetExhausted, report.SpentCents)
	}
	if report.CompaniesWritten != 2 {
		t.Fatalf("companies written = %d, want 2 (report %+v)", report.CompaniesWritten, report)
	}
	beta := signalsFor(t, st, "Beta Foods")
	if len(beta) != 1 || !beta[0].LandFlag {
		t.Errorf("heuristic signal = %+v", beta)
	}
	if prov.calls != 1 {
		t.Errorf("provider calls = %d, want 1", prov.calls)
	}
}

func TestNationalScan_StickyBreakerSkipsFailedAdapter(t *testing.T) {
	st := openStore(t)
	seedKeywords(t, st, "plant", "factory", "warehouse")

	primary := &stubAdapter{name: "primary", err: errors.New("timeout")}
	feed := &stubAdapter{name: "feed", byQuery: map[string][]model.Candidate{
		"plant": {cand("Acme Corp breaks ground on new plant", "https://a.example/1", "20260301")},
	}}
	p, _ := newTestPipeline(testSetup{
		adapters: []source.Adapter{primary, feed},
		writer:   st,
		opts:     Options{Concurrency: 1},
	})

	report := p.NationalScan(context.Background(), nil)

	if primary.callCount() != 1 {
		t.Errorf("primary calls = %d, want 1", primary.callCount())
	}
	if feed.callCount() != 3 {
		t.Errorf("feed calls = %d, want 3", feed.callCount())
	}
	if report.KeywordsFetched != 3 {
		t.Errorf("keywords fetched = %d", report.KeywordsFetched)
	}
}

func TestNationalScan_PrefilterAndProspectCap(t *testing.T) {
	st := openStore(t)
	seedKeywords(t, st, "plant")

	feed := &stubAdapter{name: "feed", byQuery: map[string][]model.Candidate{
		"plant": {
			cand("Acme Corp breaks ground on new plant", "https://a.example/1", "20260301"),
			cand("Stocks rally on earnings", "https://a.example/2", "20260301"),
			cand("Beta Mills opens plant in Ohio", "https://a.example/3", "20260301"),
			cand("Gamma Steel plant to add 200 jobs", "https://a.example/4", "20260301"),
		},
	}}
	p, _ := newTestPipeline(testSetup{adapters: []source.Adapter{feed}, writer: st, opts: Options{MaxProspects: 2}})

	report := p.NationalScan(context.Background(), nil)

	if report.Matched != 3 {
		t.Errorf("matched = %d, want 3", report.Matched)
	}
	if report.Relevant > 2 {
		t.Errorf("relevant = %d exceeds prospect cap", report.Relevant)
	}
}

func TestNationalScan_CancelledBeforeStart(t *testing.T) {
	st := openStore(t)
	seedKeywords(t, st, "plant")
	feed := &stubAdapter{name: "feed"}
	p, _ := newTestPipeline(testSetup{adapters: []source.Adapter{feed}, writer: st})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var mu sync.Mutex
	var stages []model.Stage
	report := p.NationalScan(ctx, func(ev model.Progress) {
		mu.Lock()
		stages = append(stages, ev.Stage)
		mu.Unlock()
	})

	if !report.Cancelled {
		t.Error("report should be marked cancelled")
	}
	if feed.callCount() != 0 || report.KeywordsFetched != 0 {
		t.Errorf("no keyword should be fetched after cancel, got %d calls", feed.callCount())
	}
	if len(stages) == 0 || stages[len(stages)-1] != model.StageDone {
		t.Errorf("stages = %v, want trailing done", stages)
	}
}

func TestNationalScan_ProgressStages(t *testing.T) {
	st := openStore(t)
	seedKeywords(t, st, "plant", "factory")
	feed := &stubAdapter{name: "feed", byQuery: map[string][]model.Candidate{
		"plant": {cand("Acme Corp breaks ground on new plant", "https://a.example/1", "20260301")},
	}}
	p, _ := newTestPipeline(testSetup{adapters: []source.Adapter{feed}, writer: st})

	var mu sync.Mutex
	seen := make(map[model.Stage]int)
	var last model.Progress
	p.NationalScan(context.Background(), func(ev model.Progress) {
		mu.Lock()
		seen[ev.Stage]++
		last = ev
		mu.Unlock()
	})

	for _, s := range []model.Stage{model.StageKeywords, model.StageDedup, model.StageExtract, model.StageAggregate, model.StageDone} {
		if seen[s] == 0 {
			t.Errorf("stage %s not reported", s)
		}
	}
	if seen[model.StageFetch] != 2 {
		t.Errorf("fetch progress = %d, want one per keyword", seen[model.StageFetch])
	}
	if last.Stage != model.StageDone || last.Percent != 100 {
		t.Errorf("last progress = %+v", last)
	}
}

func TestAggregateAndWrite_Idempotent(t *testing.T) {
	st := openStore(t)
	p, _ := newTestPipeline(testSetup{writer: st})

	items := []model.Scored{
		{Candidate: cand("Acme Corp breaks ground on new plant", "u1", "20260301"),
			Extraction: model.Extraction{Company: "Acme Corp", Relevance: 0.9, Sector: "Manufacturing"}},
		{Candidate: cand("ACME CORP buys 40 acres", "u2", "20260302"),
			Extraction: model.Extraction{Company: "acme corp", Relevance: 0.7, LandPurchase: true}},
		{Candidate: cand("Nobody knows", "u3", "20260302"),
			Extraction: model.Extraction{Company: model.UnknownCompany, Relevance: 0.9}},
		{Candidate: cand("Weak signal", "u4", "20260302"),
			Extraction: model.Extraction{Company: "Weak Co", Relevance: 0.4}},
	}

	first := p.AggregateAndWrite(context.Background(), items, "scan")
	second := p.AggregateAndWrite(context.Background(), items, "scan")

	if first.Companies != 1 || first.Written != 1 || first.Signals != 2 {
		t.Errorf("first = %+v", first)
	}
	if second != first {
		t.Errorf("second run %+v differs from first %+v", second, first)
	}
	n, err := st.CountSignals(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("signal rows = %d, want 2", n)
	}
	c, err := st.GetClient(context.Background(), "Acme Corp")
	if err != nil {
		t.Fatal(err)
	}
	if !c.LandFlag {
		t.Error("land flag should be set from any signal")
	}
}

func TestAggregateAndWrite_FailedGroupDoesNotStopOthers(t *testing.T) {
	st := openStore(t)
	p, _ := newTestPipeline(testSetup{writer: &failingWriter{Store: st, company: "Beta Foods"}})

	items := []model.Scored{
		{Candidate: cand("Acme Corp breaks ground", "u1", "20260301"), Extraction: model.Extraction{Company: "Acme Corp", Relevance: 0.9}},
		{Candidate: cand("Beta Foods buys land", "u2", "20260301"), Extraction: model.Extraction{Company: "Beta Foods", Relevance: 0.9}},
	}
	stats := p.AggregateAndWrite(context.Background(), items, "scan")

	if stats.Written != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if got := len(signalsFor(t, st, "Acme Corp")); got != 1 {
		t.Errorf("acme signals = %d", got)
	}
}

func TestAggregateAndWrite_GeocodesWithBestHeadline(t *testing.T) {
	st := openStore(t)
	p, loc := newTestPipeline(testSetup{writer: st})

	items := []model.Scored{
		{Candidate: cand("Acme Corp expands", "u1", "20260301"), Extraction: model.Extraction{Company: "Acme Corp", Relevance: 0.6}},
		{Candidate: cand("Acme Corp buys site in Reno", "u2", "20260301"), Extraction: model.Extraction{Company: "Acme Corp", Relevance: 0.9}},
	}
	p.AggregateAndWrite(context.Background(), items, "scan")

	if len(loc.hints) != 1 || loc.hints[0] != "Acme Corp buys site in Reno" {
		t.Errorf("geocode hints = %v", loc.hints)
	}
}

func TestManualSearch(t *testing.T) {
	st := openStore(t)
	feed := &stubAdapter{name: "feed", byQuery: map[string][]model.Candidate{
		"Acme Corp": {
			cand("Acme Corp breaks ground on new plant", "https://a.example/1", "20260301"),
			cand("Acme Corp breaks ground on new plant", "https://a.example/1", "20260301"),
			cand("Acme Corp quarterly earnings beat", "https://a.example/2", "20260302"),
		},
	}}
	p, _ := newTestPipeline(testSetup{adapters: []source.Adapter{feed}, writer: st})

	res, err := p.ManualSearch(context.Background(), "  Acme   Corp ")
	if err != nil {
		t.Fatalf("ManualSearch: %v", err)
	}
	if res.NoSignals || res.Company != "Acme Corp" {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Headlines) != 1 || res.Written != 1 {
		t.Errorf("headlines=%d written=%d, want 1/1", len(res.Headlines), res.Written)
	}
	if res.Lat == nil || *res.Lat != 40.0 || res.Lon == nil || *res.Lon != -75.0 {
		t.Errorf("coords = %v,%v", res.Lat, res.Lon)
	}
	if !strings.HasPrefix(res.Summary.Summary, "• ") {
		t.Errorf("summary = %q", res.Summary.Summary)
	}
	sigs := signalsFor(t, st, "Acme Corp")
	if len(sigs) != 1 || sigs[0].SourceLabel != "lookup:feed_search" {
		t.Errorf("signals = %+v", sigs)
	}
}

func TestManualSearch_NoSignals(t *testing.T) {
	st := openStore(t)
	down := &stubAdapter{name: "down", err: errors.New("503")}
	p, _ := newTestPipeline(testSetup{adapters: []source.Adapter{down}, writer: st})

	res, err := p.ManualSearch(context.Background(), "Nobody Inc")
	if err != nil {
		t.Fatalf("ManualSearch: %v", err)
	}
	if !res.NoSignals || len(res.Headlines) != 0 {
		t.Errorf("result = %+v", res)
	}
	clients, err := st.ListClients(context.Background(), store.ClientFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(clients) != 0 {
		t.Errorf("nothing should be written, got %d clients", len(clients))
	}
}

func TestManualSearch_EmptyName(t *testing.T) {
	p, _ := newTestPipeline(testSetup{})
	if _, err := p.ManualSearch(context.Background(), "   "); err == nil {
		t.Error("expected error for empty company")
	}
}

func TestManualSearch_UsesFetchCache(t *testing.T) {
	st := openStore(t)
	feed := &stubAdapter{name: "feed", byQuery: map[string][]model.Candidate{
		"Acme Corp": {cand("Acme Corp breaks ground on new plant", "https://a.example/1", "20260301")},
	}}
	fc := cache.NewFetchCache(cache.NewMemoryCache(time.Hour, time.Minute), time.Hour)
	p, _ := newTestPipeline(testSetup{adapters: []source.Adapter{feed}, writer: st, cache: fc})

	for i := 0; i < 3; i++ {
		if _, err := p.ManualSearch(context.Background(), "Acme Corp"); err != nil {
			t.Fatal(err)
		}
	}
	if feed.callCount() != 1 {
		t.Errorf("adapter calls = %d, want 1", feed.callCount())
	}
}

func TestKeywords_ExpandsAndCaches(t *testing.T) {
	st := openStore(t)
	prov := &keywordProvider{reply: "steel mill, data center campus"}
	engine := llm.NewEngine(prov, nil, llm.Options{})
	p := New(Deps{Engine: engine, Writer: st}, Options{})

	first := p.Keywords(context.Background())
	if len(first) != len(score.SeedKeywords)+2 || first[0] != score.SeedKeywords[0] {
		t.Fatalf("keywords = %v", first)
	}
	second := p.Keywords(context.Background())
	if len(second) != len(first) || prov.calls != 1 {
		t.Errorf("second call should come from cache, provider calls = %d", prov.calls)
	}

	p.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	p.Keywords(context.Background())
	if prov.calls != 2 {
		t.Errorf("stale list should be re-expanded, provider calls = %d", prov.calls)
	}
}

func TestKeywords_SeedsWithoutProvider(t *testing.T) {
	st := openStore(t)
	p := New(Deps{Writer: st}, Options{KeywordLimit: 3})

	kws := p.Keywords(context.Background())
	if len(kws) != len(score.SeedKeywords) {
		t.Errorf("keywords = %v", kws)
	}
	if got := p.scanKeywords(kws); len(got) != 3 {
		t.Errorf("scan keywords = %v", got)
	}
	if _, _, err := st.GetKeywords(context.Background()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("seeds should not be stored, err = %v", err)
	}
}

type keywordProvider struct {
	reply string
	calls int
}

func (p *keywordProvider) Name() string                     { return "kw" }
func (p *keywordProvider) IsAvailable(context.Context) bool { return true }
func (p *keywordProvider) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.calls++
	return &llm.CompletionResponse{Text: p.reply}, nil
}

func TestNationalScan_BudgetExhaustedKeepsExpandedKeywordSignals(t *testing.T) {
	st := openStore(t)
	seedKeywords(t, st, "plant", "industrial park")

	feed := &stubAdapter{name: "feed", byQuery: map[string][]model.Candidate{
		"industrial park": {cand("Orion Logistics picks spot for industrial park", "https://o.example/1", "20260305")},
	}}
	prov := &stubProvider{
		extract: func(string) string { return `{"company": "Wrong", "score": 0.9}` },
		summary: `{"summary": "unused"}`,
	}
	p, _ := newTestPipeline(testSetup{
		adapters: []source.Adapter{feed},
		provider: prov,
		governor: budget.NewGovernor(0),
		writer:   st,
		batch:    1,
		opts:     Options{Concurrency: 1},
	})

	report := p.NationalScan(context.Background(), nil)

	if report.Matched != 1 || report.Relevant != 1 {
		t.Fatalf("matched=%d relevant=%d, want 1 and 1", report.Matched, report.Relevant)
	}
	if sigs := signalsFor(t, st, "Orion Logistics"); len(sigs) != 1 {
		t.Errorf("signals for expanded-keyword headline = %+v", sigs)
	}
	if prov.calls != 0 {
		t.Errorf("provider calls = %d, want 0", prov.calls)
	}
}

func TestNationalScan_CancelDuringLastGroupIsReported(t *testing.T) {
	st := openStore(t)
	seedKeywords(t, st, "new plant")

	feed := &stubAdapter{name: "feed", byQuery: map[string][]model.Candidate{
		"new plant": {cand("Acme Corp breaks ground on new plant", "https://a.example/1", "20260301")},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p, _ := newTestPipeline(testSetup{
		adapters: []source.Adapter{feed},
		writer:   &cancellingWriter{Store: st, cancel: cancel},
		opts:     Options{Concurrency: 1},
	})

	report := p.NationalScan(ctx, nil)

	if report.CompaniesWritten != 1 {
		t.Fatalf("companies written = %d, want 1", report.CompaniesWritten)
	}
	if !report.Cancelled {
		t.Error("scan cancelled during its last write should be reported as cancelled")
	}
}
