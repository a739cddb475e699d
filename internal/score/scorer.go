// Package score holds the cheap heuristics used whenever the text-analysis
// service is unavailable or the budget is spent.
package score

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/ppiankov/leadmaster/internal/model"
)

// SeedKeywords is the starting phrase list for the broad scan
var SeedKeywords = []string{
	"plant expansion",
	"groundbreaking",
	"distribution center",
	"warehouse",
	"cold storage",
	"factory",
	"manufacturing facility",
	"acquire site",
	"buys land",
	"facility renovation",
}

// constructionTerms are always counted as relevance hits in addition to the
// configured keywords
var constructionTerms = []string{
	"breaks ground",
	"new plant",
	"plant",
	"facility",
	"headquarters",
	"expansion",
	"expands",
	"construction",
	"acres",
	"site",
	"campus",
	"mill",
	"data center",
}

var landPattern = regexp.MustCompile(`(?i)\b(buys?|bought|purchases?|purchased|acquires?|acquired|closes on)\b.*\b(land|acres?|site|parcel|property|lots?|tract)\b|\bland (deal|purchase|sale)\b|\b\d+(\.\d+)?[- ]acres?\b`)

type sectorRule struct {
	sector string
	terms  []string
}

// Ordered: the first matching rule wins
var sectorRules = []sectorRule{
	{"Food & Beverage", []string{"cold storage", "food", "beverage", "brewery", "dairy", "bakery", "meat", "poultry"}},
	{"Logistics & Warehousing", []string{"warehouse", "distribution center", "logistics", "fulfillment", "freight", "cross-dock"}},
	{"Technology", []string{"data center", "semiconductor", "chip", "software"}},
	{"Energy", []string{"battery", "solar", "wind", "energy", "hydrogen", "refinery"}},
	{"Healthcare & Life Sciences", []string{"hospital", "medical", "pharma", "biotech", "clinic"}},
	{"Automotive", []string{"automotive", "vehicle", "ev ", "auto parts", "truck"}},
	{"Manufacturing", []string{"factory", "manufacturing", "plant", "mill", "foundry", "assembly"}},
	{"Retail", []string{"retail", "store", "shopping"}},
}

// DefaultSector is used when no rule matches
const DefaultSector = "Industrial"

// companyStops end a leading run of capitalized words
var companyStops = map[string]bool{
	"to": true, "will": true, "plans": true, "plan": true, "breaks": true, "buys": true, "buy": true,
	"acquires": true, "acquire": true, "announces": true, "opens": true, "open": true, "expands": true,
	"expand": true, "invests": true, "purchases": true, "builds": true, "build": true, "unveils": true,
	"selects": true, "picks": true, "files": true, "gets": true, "eyes": true, "closes": true,
	"moves": true, "says": true, "completes": true, "starts": true, "begins": true, "launches": true,
	"signs": true, "secures": true, "seeks": true, "proposes": true, "adds": true, "is": true, "to-build": true,
	"in": true, "on": true, "at": true, "for": true, "of": true, "near": true, "with": true, "after": true,
	"sets": true, "lands": true, "chooses": true, "wins": true, "nears": true, "submits": true,
}

// leadingNoise are capitalized words that start headlines without naming a company
var leadingNoise = map[string]bool{
	"the": true, "a": true, "an": true, "new": true, "exclusive": true, "report": true,
	"breaking": true, "update": true, "updated": true, "watch": true, "video": true,
}

// notCompanies are single-word runs that are never companies on their own
var notCompanies = map[string]bool{
	"company": true, "officials": true, "county": true, "city": true, "state": true, "developer": true,
	"manufacturer": true, "firm": true, "startup": true, "retailer": true, "local": true,
}

// Scorer scores headlines against a keyword list
type Scorer struct {
	terms []string
}

// NewScorer creates a scorer for the given keywords (lowercased, deduplicated)
func NewScorer(keywords []string) *Scorer {
	seen := make(map[string]bool)
	var terms []string
	for _, list := range [][]string{keywords, constructionTerms} {
		for _, k := range list {
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			terms = append(terms, k)
		}
	}
	return &Scorer{terms: terms}
}

// Hits counts how many terms the headline contains
func (s *Scorer) Hits(headline string) int {
	low := strings.ToLower(headline)
	hits := 0
	for _, t := range s.terms {
		if strings.Contains(low, t) {
			hits++
		}
	}
	return hits
}

// Extract produces a heuristic extraction result for one headline
func (s *Scorer) Extract(headline string) model.Extraction {
	headline = strings.TrimSpace(headline)
	if headline == "" {
		return model.DefaultExtraction()
	}

	land := LandPurchase(headline)
	return model.Extraction{
		Company:      GuessCompany(headline),
		Relevance:    s.relevance(headline, land),
		Sector:       GuessSector(headline),
		LandPurchase: land,
		Source:       "heuristic",
	}
}

func (s *Scorer) relevance(headline string, land bool) float64 {
	hits := s.Hits(headline)
	if hits == 0 {
		if land {
			return 0.5
		}
		return 0.1
	}
	score := 0.5 + 0.1*float64(hits-1)
	if land {
		score += 0.1
	}
	if score > 0.9 {
		score = 0.9
	}
	return model.Clamp01(score)
}

// MatchesAny reports whether the headline contains any of the keywords
func MatchesAny(headline string, keywords []string) bool {
	low := strings.ToLower(headline)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(low, k) {
			return true
		}
	}
	return false
}

// LandPurchase reports whether the headline implies acquiring real property
func LandPurchase(headline string) bool {
	return landPattern.MatchString(headline)
}

// GuessSector maps headline vocabulary to a sector label
func GuessSector(headline string) string {
	low := " " + strings.ToLower(headline) + " "
	for _, rule := range sectorRules {
		for _, term := range rule.terms {
			if strings.Contains(low, term) {
				return rule.sector
			}
		}
	}
	return DefaultSector
}

// GuessCompany takes the leading run of capitalized words as the company
// name, e.g. "Acme Corp breaks ground on new plant" -> "Acme Corp".
func GuessCompany(headline string) string {
	words := strings.Fields(headline)
	var name []string

	for i, w := range words {
		clean := strings.Trim(w, `"'“”‘’:,;.!?()[]`)
		clean = strings.TrimSuffix(strings.TrimSuffix(clean, "'s"), "’s")
		if clean == "" {
			break
		}
		low := strings.ToLower(clean)

		if len(name) == 0 && leadingNoise[low] {
			continue
		}
		if companyStops[low] {
			break
		}
		if !startsUpperOrDigit(clean) && clean != "&" {
			break
		}

		name = append(name, clean)

		// A possessive or trailing colon/comma closes the name
		if strings.HasSuffix(w, "'s") || strings.HasSuffix(w, "’s") || strings.ContainsAny(w[len(w)-1:], ":,;") {
			break
		}
		if len(name) >= 5 || i == len(words)-1 {
			break
		}
	}

	for len(name) > 0 && name[len(name)-1] == "&" {
		name = name[:len(name)-1]
	}
	if len(name) == 0 {
		return model.UnknownCompany
	}
	if len(name) == 1 && notCompanies[strings.ToLower(name[0])] {
		return model.UnknownCompany
	}
	return strings.Join(name, " ")
}

func startsUpperOrDigit(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r) || unicode.IsDigit(r)
	}
	return false
}

// Summarize builds the cheap aggregate summary used when the summary call is
// skipped: a bullet list of headlines, the dominant sector, mean relevance as
// confidence and whether any headline implies a land purchase.
func Summarize(company string, items []model.Scored, maxHeadlines int) model.Summary {
	if maxHeadlines <= 0 {
		maxHeadlines = 10
	}
	if len(items) == 0 {
		return model.Summary{
			Summary: fmt.Sprintf("No signals found for %s.", company),
			Sector:  DefaultSector,
			Source:  "heuristic",
		}
	}

	var b strings.Builder
	sectors := make(map[string]int)
	var total float64
	land := false

	for i, it := range items {
		if i < maxHeadlines {
			fmt.Fprintf(&b, "• %s\n", strings.TrimSpace(it.Candidate.Headline))
		}
		if it.Extraction.Sector != "" {
			sectors[it.Extraction.Sector]++
		}
		total += it.Extraction.Relevance
		land = land || it.Extraction.LandPurchase
	}

	return model.Summary{
		Summary:      strings.TrimSpace(b.String()),
		Sector:       dominant(sectors),
		Confidence:   model.Clamp01(total / float64(len(items))),
		LandPurchase: land,
		Source:       "heuristic",
	}
}

func dominant(counts map[string]int) string {
	if len(counts) == 0 {
		return DefaultSector
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys[0]
}
