package llm

import (
	"fmt"
	"strings"
)

const extractSystem = `You analyse news headlines for a commercial construction firm looking for new projects.
A headline is relevant when it signals a company building, expanding, renovating or buying land for
a physical facility (plant, warehouse, distribution center, cold storage, factory, campus).
Reply with JSON only. Never invent a company that is not named in the headline.`

const summarySystem = `You write short lead briefs for a commercial construction sales team.
Use only the headlines you are given. Reply with JSON only.`

const keywordSystem = `You generate search phrases that surface news about companies planning new
physical facilities in the United States. Reply with a comma separated list only.`

// ExtractionPrompt asks for the extraction fields of one headline
func ExtractionPrompt(headline string) string {
	return fmt.Sprintf(`Headline: %q

Return a JSON object with exactly these fields:
  "company": the company name or "Unknown",
  "relevance_score": number from 0.0 to 1.0,
  "sector_guess": short industry label,
  "land_purchase_flag": true if the headline implies acquiring land or a new site`, strings.TrimSpace(headline))
}

// BatchExtractionPrompt asks for one extraction object per numbered headline
func BatchExtractionPrompt(headlines []string) string {
	var b strings.Builder
	b.WriteString("Headlines:\n")
	for i, h := range headlines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(h))
	}
	fmt.Fprintf(&b, `
Return a JSON object {"results": [...]} with exactly %d entries in the same order as the headlines.
Each entry has the fields "index" (1-based), "company" (or "Unknown"), "relevance_score" (0.0 to 1.0),
"sector_guess" and "land_purchase_flag".`, len(headlines))
	return b.String()
}

// SummaryPrompt asks for one aggregate brief covering a company's headlines
func SummaryPrompt(company string, headlines []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nRecent headlines:\n", company)
	for _, h := range headlines {
		fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(h))
	}
	b.WriteString(`
Return a JSON object with the fields:
  "summary": 2-3 sentences on what the company is building or buying and where,
  "sector": short industry label,
  "confidence": number from 0.0 to 1.0 that this is a real construction opportunity,
  "land_flag": true if any headline implies acquiring land or a new site`)
	return b.String()
}

// KeywordPrompt asks for up to limit search phrases seeded from seeds
func KeywordPrompt(seeds []string, limit int) string {
	return fmt.Sprintf(`Starting from these phrases: %s
List up to %d short search phrases (2-4 words each) a news search could use to find companies
announcing new plants, warehouses, expansions, site selections or land purchases.`,
		strings.Join(seeds, ", "), limit)
}
