package worker

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/ppiankov/leadmaster/internal/model"
)

// FetchFunc fetches candidate headlines for one keyword
type FetchFunc func(ctx context.Context, keyword string) []model.Candidate

// KeywordJob fetches one keyword of a broad scan
type KeywordJob struct {
	Index   int
	Keyword string
	Fetch   FetchFunc
	onDone  func()
}

// Execute implements Job
func (j *KeywordJob) Execute(ctx context.Context) Result {
	res := &KeywordResult{Index: j.Index, Keyword: j.Keyword}
	res.Candidates = j.Fetch(ctx, j.Keyword)
	if j.onDone != nil {
		j.onDone()
	}
	return res
}

// KeywordResult is what one keyword produced. A fetch that fails comes
// back as no candidates: the source chain absorbs adapter errors.
type KeywordResult struct {
	Index      int
	Keyword    string
	Candidates []model.Candidate
}

// GetError implements Result; a keyword fetch never fails
func (r *KeywordResult) GetError() error {
	return nil
}

// FanOut fetches every keyword on at most concurrency workers and
// returns the results ordered by keyword position. Keywords not yet
// started when ctx is cancelled are absent from the output. onDone, if
// set, is called after each keyword with the running count; it may be
// called from several goroutines.
func FanOut(ctx context.Context, keywords []string, concurrency int, fetch FetchFunc, onDone func(done, total int)) []*KeywordResult {
	if len(keywords) == 0 {
		return nil
	}
	if concurrency > len(keywords) {
		concurrency = len(keywords)
	}

	pool := NewPool(ctx, concurrency)
	pool.Start()

	var done atomic.Int32
	total := len(keywords)
	for i, kw := range keywords {
		job := &KeywordJob{Index: i, Keyword: kw, Fetch: fetch}
		if onDone != nil {
			job.onDone = func() { onDone(int(done.Add(1)), total) }
		}
		if !pool.Submit(job) {
			break
		}
	}

	results := pool.Wait()
	out := make([]*KeywordResult, 0, len(results))
	for _, r := range results {
		if kr, ok := r.(*KeywordResult); ok {
			out = append(out, kr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
