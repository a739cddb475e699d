package llm

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/leadmaster/internal/model"
)

// Accepted spellings for each field, in priority order
var (
	companyKeys   = []string{"company", "company_name", "name"}
	relevanceKeys = []string{"relevance_score", "score", "relevance", "confidence"}
	sectorKeys    = []string{"sector_guess", "sector", "industry"}
	landKeys      = []string{"land_purchase_flag", "land_flag", "land_purchase"}
)

// ParseExtraction turns a reply into an extraction. The returned value is
// always usable: on error it is the default extraction.
func ParseExtraction(text string) (model.Extraction, error) {
	obj, err := decodeObject(text)
	if err != nil {
		return model.DefaultExtraction(), err
	}
	return extractionFrom(obj), nil
}

// ParseExtractionBatch parses a batched reply holding exactly n entries,
// either as a bare array or wrapped in {"results": [...]}. Entries carrying an
// "index" field are placed by index. Any shape mismatch is an error so the
// caller can fall back to single-item calls.
func ParseExtractionBatch(text string, n int) ([]model.Extraction, error) {
	raw := stripFences(text)

	var items []any
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, eris.Wrap(err, "llm: decode batch array")
		}
	} else {
		obj, err := decodeObject(raw)
		if err != nil {
			return nil, eris.Wrap(err, "llm: batch reply is neither array nor object")
		}
		list, ok := firstOf(obj, "results", "items", "headlines").([]any)
		if !ok {
			return nil, eris.New("llm: batch reply has no results array")
		}
		items = list
	}

	if len(items) != n {
		return nil, eris.Errorf("llm: batch reply has %d entries, want %d", len(items), n)
	}

	out := make([]model.Extraction, n)
	placed := make([]bool, n)
	for i, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			return nil, eris.Errorf("llm: batch entry %d is not an object", i)
		}
		pos := i
		if idx, ok := obj["index"].(float64); ok && int(idx) >= 1 && int(idx) <= n {
			pos = int(idx) - 1
		}
		if placed[pos] {
			return nil, eris.Errorf("llm: batch entry %d duplicated", pos+1)
		}
		placed[pos] = true
		out[pos] = extractionFrom(obj)
	}

	return out, nil
}

// ParseSummary turns a reply into an aggregate summary. A reply without a
// summary text is an error.
func ParseSummary(text string) (model.Summary, error) {
	obj, err := decodeObject(text)
	if err != nil {
		return model.Summary{}, err
	}

	sum := model.Summary{
		Summary:      model.StringFromAny(firstOf(obj, "summary", "brief")),
		Sector:       model.StringFromAny(firstOf(obj, sectorKeys...)),
		Confidence:   model.ScoreFromAny(firstOf(obj, "confidence", "score", "relevance_score")),
		LandPurchase: model.BoolFromAny(firstOf(obj, landKeys...)),
		Source:       "llm",
	}
	if sum.Summary == "" {
		return model.Summary{}, eris.New("llm: summary reply has no summary text")
	}
	return sum, nil
}

// ParseKeywords reads a comma or newline separated phrase list (or a JSON
// array / {"keywords": [...]}) and returns at most limit distinct lowercase
// phrases.
func ParseKeywords(text string, limit int) []string {
	raw := stripFences(text)

	var parts []string
	var arr []string
	var obj struct {
		Keywords []string `json:"keywords"`
	}
	switch {
	case json.Unmarshal([]byte(raw), &arr) == nil:
		parts = arr
	case json.Unmarshal([]byte(raw), &obj) == nil && len(obj.Keywords) > 0:
		parts = obj.Keywords
	default:
		parts = strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' || r == ';' })
	}

	seen := make(map[string]bool)
	var out []string
	for _, p := range parts {
		p = strings.TrimLeft(strings.TrimSpace(p), "-*•0123456789.) ")
		p = strings.ToLower(strings.Trim(p, `"' `))
		p = strings.Join(strings.Fields(p), " ")
		if p == "" || seen[p] || len(p) > 60 {
			continue
		}
		seen[p] = true
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func extractionFrom(obj map[string]any) model.Extraction {
	company := model.StringFromAny(firstOf(obj, companyKeys...))
	if company == "" || strings.EqualFold(company, "none") || strings.EqualFold(company, "n/a") {
		company = model.UnknownCompany
	}
	return model.Extraction{
		Company:      company,
		Relevance:    model.ScoreFromAny(firstOf(obj, relevanceKeys...)),
		Sector:       model.StringFromAny(firstOf(obj, sectorKeys...)),
		LandPurchase: model.BoolFromAny(firstOf(obj, landKeys...)),
		Source:       "llm",
	}
}

func decodeObject(text string) (map[string]any, error) {
	raw := sliceBetween(stripFences(text), '{', '}')
	if raw == "" {
		return nil, eris.New("llm: reply holds no JSON object")
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, eris.Wrap(err, "llm: decode reply")
	}
	return obj, nil
}

func firstOf(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	// Fall back to case-insensitive keys, checked in a stable order
	lower := make([]string, 0, len(obj))
	for k := range obj {
		lower = append(lower, k)
	}
	sort.Strings(lower)
	for _, want := range keys {
		for _, k := range lower {
			if strings.EqualFold(k, want) && obj[k] != nil {
				return obj[k]
			}
		}
	}
	return nil
}

// stripFences removes a surrounding ``` or ```json block
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

func sliceBetween(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
