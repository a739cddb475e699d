package model

import "time"

// LookupHeadline is one relevant headline returned by a targeted lookup
type LookupHeadline struct {
	Candidate
	Extraction
}

// LookupResult is the outcome of a targeted single-company lookup
type LookupResult struct {
	Company   string           `json:"company"`
	Summary   Summary          `json:"summary"`
	Headlines []LookupHeadline `json:"headlines"`
	Lat       *float64         `json:"lat"`
	Lon       *float64         `json:"lon"`
	NoSignals bool             `json:"no_signals"`
	Written   int              `json:"signals_written"`
}

// ScanReport summarises a broad scan, including partial completion
type ScanReport struct {
	RunID            string        `json:"run_id"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
	Keywords         int           `json:"keywords"`
	KeywordsFetched  int           `json:"keywords_fetched"`
	Fetched          int           `json:"fetched"`
	Unique           int           `json:"unique"`
	Matched          int           `json:"matched"`
	Relevant         int           `json:"relevant"`
	Companies        int           `json:"companies"`
	CompaniesWritten int           `json:"companies_written"`
	CompaniesFailed  int           `json:"companies_failed"`
	SignalsWritten   int           `json:"signals_written"`
	BudgetExhausted  bool          `json:"budget_exhausted"`
	SpentCents       int64         `json:"spent_cents"`
	Cancelled        bool          `json:"cancelled"`
}

// Stage names a phase of a broad scan for progress reporting
type Stage string

const (
	StageKeywords  Stage = "keywords"
	StageFetch     Stage = "fetch"
	StageDedup     Stage = "dedup"
	StageExtract   Stage = "extract"
	StageAggregate Stage = "aggregate"
	StageDone      Stage = "done"
)

// Progress is one progress update emitted during a scan
type Progress struct {
	RunID   string  `json:"run_id"`
	Stage   Stage   `json:"stage"`
	Done    int     `json:"done"`
	Total   int     `json:"total"`
	Message string  `json:"message,omitempty"`
	Percent float64 `json:"percent"`
}

// ProgressFunc receives progress updates; it must not block for long
type ProgressFunc func(Progress)
