package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/worker"
)

// GDELT searches the GDELT DOC 2.0 article list
type GDELT struct {
	baseURL string
	client  *http.Client
	limiter *worker.Limiter
}

type gdeltResponse struct {
	Articles []struct {
		URL      string `json:"url"`
		Title    string `json:"title"`
		SeenDate string `json:"seendate"` // 20240102T150405Z
		Domain   string `json:"domain"`
		Language string `json:"language"`
	} `json:"articles"`
}

// NewGDELT creates the fallback-search adapter
func NewGDELT(baseURL string, client *http.Client, limiter *worker.Limiter) *GDELT {
	return &GDELT{baseURL: baseURL, client: client, limiter: limiter}
}

func (g *GDELT) Name() string         { return "gdelt" }
func (g *GDELT) Origin() model.Origin { return model.OriginFallbackSearch }

// Fetch returns up to maxResults articles for query, newest first
func (g *GDELT) Fetch(ctx context.Context, query string, maxResults int) ([]model.Candidate, error) {
	if maxResults <= 0 || maxResults > 250 {
		maxResults = 250
	}

	params := url.Values{}
	params.Set("query", gdeltQuery(query))
	params.Set("mode", "artlist")
	params.Set("format", "json")
	params.Set("sort", "datedesc")
	params.Set("maxrecords", strconv.Itoa(maxResults))

	body, err := getBody(ctx, g.client, g.limiter, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "gdelt")
	}

	// Query errors come back as 200 with a plain-text message
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "{}" {
		return nil, nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		return nil, eris.Errorf("gdelt: %s", firstLine(trimmed))
	}

	var resp gdeltResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "gdelt: decode response")
	}

	out := make([]model.Candidate, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		title := plainText(a.Title)
		if title == "" || a.URL == "" {
			continue
		}
		if a.Language != "" && !strings.EqualFold(a.Language, "English") {
			continue
		}
		date := ""
		if len(a.SeenDate) >= 8 {
			date = a.SeenDate[:8]
		}
		out = append(out, model.Candidate{
			Headline:  title,
			URL:       a.URL,
			Date:      date,
			Origin:    model.OriginFallbackSearch,
			Publisher: a.Domain,
		})
		if len(out) >= maxResults {
			break
		}
	}
	return out, nil
}

// gdeltQuery quotes multi-word phrases, which GDELT otherwise ANDs loosely
func gdeltQuery(q string) string {
	q = strings.TrimSpace(q)
	if strings.ContainsAny(q, `"():`) || !strings.Contains(q, " ") {
		return q
	}
	return `"` + q + `"`
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
