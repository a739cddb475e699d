package model

import "strings"

// Origin identifies which source adapter produced a candidate
type Origin string

const (
	OriginPrimarySearch  Origin = "primary_search"  // Paid news-search API
	OriginFeedSearch     Origin = "feed_search"     // Syndicated feed search
	OriginFallbackSearch Origin = "fallback_search" // Alternate search API
	OriginManual         Origin = "manual"          // Entered by hand
)

// Candidate is a headline surfaced by a source adapter, not yet confirmed relevant
type Candidate struct {
	Headline  string `json:"headline"`
	URL       string `json:"url"`
	Date      string `json:"date"` // YYYYMMDD, best effort
	Origin    Origin `json:"origin"`
	Publisher string `json:"publisher,omitempty"`
}

// NormalizeText lowercases, trims and collapses internal whitespace
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Scored pairs a candidate with its extraction result
type Scored struct {
	Candidate  Candidate  `json:"candidate"`
	Extraction Extraction `json:"extraction"`
}
