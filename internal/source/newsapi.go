package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/worker"
)

// NewsAPI searches the paid newsapi.org "everything" endpoint
type NewsAPI struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *worker.Limiter
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// NewNewsAPI creates the primary-search adapter
func NewNewsAPI(baseURL, apiKey string, client *http.Client, limiter *worker.Limiter) *NewsAPI {
	return &NewsAPI{baseURL: baseURL, apiKey: apiKey, client: client, limiter: limiter}
}

func (n *NewsAPI) Name() string         { return "newsapi" }
func (n *NewsAPI) Origin() model.Origin { return model.OriginPrimarySearch }

// Fetch returns the newest English articles matching query
func (n *NewsAPI) Fetch(ctx context.Context, query string, maxResults int) ([]model.Candidate, error) {
	if n.apiKey == "" {
		return nil, eris.New("newsapi: no API key configured")
	}
	if maxResults <= 0 || maxResults > 100 {
		maxResults = 100
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(maxResults))

	header := http.Header{}
	header.Set("X-Api-Key", n.apiKey)
	header.Set("Accept", "application/json")

	body, err := getBody(ctx, n.client, n.limiter, n.baseURL+"?"+params.Encode(), header)
	if err != nil {
		return nil, eris.Wrap(err, "newsapi")
	}

	var resp newsAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "newsapi: decode response")
	}
	if resp.Status != "ok" {
		return nil, eris.Errorf("newsapi: %s: %s", resp.Code, resp.Message)
	}

	out := make([]model.Candidate, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		title := plainText(a.Title)
		if title == "" || a.URL == "" || title == "[Removed]" {
			continue
		}
		out = append(out, model.Candidate{
			Headline:  stripPublisher(title, a.Source.Name),
			URL:       a.URL,
			Date:      newsAPIDate(a.PublishedAt),
			Origin:    model.OriginPrimarySearch,
			Publisher: a.Source.Name,
		})
		if len(out) >= maxResults {
			break
		}
	}
	return out, nil
}

func newsAPIDate(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		if len(s) >= 10 {
			return strings.ReplaceAll(s[:10], "-", "")
		}
		return ""
	}
	return dateStamp(t)
}

// stripPublisher removes a trailing " - Publisher" suffix from a title
func stripPublisher(title, publisher string) string {
	if publisher == "" {
		return title
	}
	suffix := " - " + publisher
	if strings.HasSuffix(title, suffix) {
		return strings.TrimSpace(strings.TrimSuffix(title, suffix))
	}
	return title
}
