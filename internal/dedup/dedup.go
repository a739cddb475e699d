// Package dedup removes repeated candidate headlines across fetch batches.
package dedup

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/ppiankov/leadmaster/internal/model"
)

// DefaultFuzzyThreshold is the title similarity above which two headlines are
// treated as syndicated rewrites of the same story
const DefaultFuzzyThreshold = 0.8

// Key returns the normalized (headline, url) pair used for exact matching
func Key(c model.Candidate) (string, string) {
	return model.NormalizeText(c.Headline), NormalizeURL(c.URL)
}

// Exact drops any candidate whose normalized headline OR normalized URL was
// already seen earlier in the list. First-seen order is preserved.
func Exact(candidates []model.Candidate) []model.Candidate {
	return filter(candidates, 0)
}

// Fuzzy applies Exact and additionally drops candidates whose headline
// similarity to an already kept headline exceeds threshold.
// threshold <= 0 uses DefaultFuzzyThreshold.
func Fuzzy(candidates []model.Candidate, threshold float64) []model.Candidate {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	return filter(candidates, threshold)
}

func filter(candidates []model.Candidate, threshold float64) []model.Candidate {
	out := make([]model.Candidate, 0, len(candidates))
	seenTitles := make(map[string]bool, len(candidates))
	seenURLs := make(map[string]bool, len(candidates))
	var kept []string

	for _, c := range candidates {
		title, link := Key(c)
		if title == "" {
			continue
		}
		if seenTitles[title] {
			continue
		}
		if link != "" && seenURLs[link] {
			continue
		}
		if threshold > 0 && similarToAny(title, kept, threshold) {
			continue
		}

		seenTitles[title] = true
		if link != "" {
			seenURLs[link] = true
		}
		kept = append(kept, title)
		out = append(out, c)
	}

	return out
}

func similarToAny(title string, kept []string, threshold float64) bool {
	for _, k := range kept {
		if Similarity(title, k) > threshold {
			return true
		}
	}
	return false
}

// Similarity returns a normalized edit-distance similarity in [0,1]
// (1 means identical) between two already-normalized strings.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// NormalizeURL lowercases scheme and host, drops the fragment, tracking
// parameters and any trailing slash. Unparseable input is lowercased.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return strings.ToLower(strings.TrimRight(u.String(), "/"))
}
