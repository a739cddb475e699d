package model

import (
	"math"
	"strconv"
	"strings"
)

// UnknownCompany is used when no company could be extracted
const UnknownCompany = "Unknown"

// Extraction is the structured result of analysing one headline
type Extraction struct {
	Company      string  `json:"company"`
	Relevance    float64 `json:"relevance_score"`
	Sector       string  `json:"sector_guess"`
	LandPurchase bool    `json:"land_purchase_flag"`
	Source       string  `json:"source,omitempty"` // "llm" or "heuristic"
}

// DefaultExtraction is the safe value used when analysis fails
func DefaultExtraction() Extraction {
	return Extraction{
		Company:   UnknownCompany,
		Relevance: 0,
		Source:    "default",
	}
}

// HasCompany reports whether a usable company name was extracted
func (e Extraction) HasCompany() bool {
	name := strings.TrimSpace(e.Company)
	return name != "" && !strings.EqualFold(name, UnknownCompany)
}

// Summary is the aggregate synopsis for one company
type Summary struct {
	Summary      string  `json:"summary"`
	Sector       string  `json:"sector"`
	Confidence   float64 `json:"confidence"`
	LandPurchase bool    `json:"land_flag"`
	Source       string  `json:"source,omitempty"`
}

// Clamp01 bounds v to [0,1]; NaN and infinities become 0
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ScoreFromAny converts an untrusted decoded JSON value into a score in [0,1].
// Numbers and numeric strings are accepted, anything else becomes 0.
func ScoreFromAny(v any) float64 {
	switch n := v.(type) {
	case float64:
		return Clamp01(n)
	case float32:
		return Clamp01(float64(n))
	case int:
		return Clamp01(float64(n))
	case int64:
		return Clamp01(float64(n))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return Clamp01(f)
	default:
		return 0
	}
}

// BoolFromAny converts an untrusted decoded JSON value into a bool
func BoolFromAny(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "y", "1":
			return true
		}
	}
	return false
}

// StringFromAny converts an untrusted decoded JSON value into a trimmed string
func StringFromAny(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
