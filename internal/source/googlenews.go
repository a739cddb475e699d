package source

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"

	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/worker"
)

// GoogleNews searches the Google News RSS endpoint
type GoogleNews struct {
	baseURL string
	client  *http.Client
	limiter *worker.Limiter
}

// NewGoogleNews creates the feed-search adapter
func NewGoogleNews(baseURL string, client *http.Client, limiter *worker.Limiter) *GoogleNews {
	return &GoogleNews{baseURL: baseURL, client: client, limiter: limiter}
}

func (g *GoogleNews) Name() string         { return "googlenews" }
func (g *GoogleNews) Origin() model.Origin { return model.OriginFeedSearch }

// SearchURL builds the US English feed URL for query
func (g *GoogleNews) SearchURL(query string) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", "en-US")
	params.Set("gl", "US")
	params.Set("ceid", "US:en")
	return g.baseURL + "?" + params.Encode()
}

// Fetch returns up to maxResults feed items for query
func (g *GoogleNews) Fetch(ctx context.Context, query string, maxResults int) ([]model.Candidate, error) {
	return g.FetchURL(ctx, g.SearchURL(query), maxResults)
}

// FetchURL reads an arbitrary RSS/Atom feed URL
func (g *GoogleNews) FetchURL(ctx context.Context, feedURL string, maxResults int) ([]model.Candidate, error) {
	header := http.Header{}
	header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.8")

	body, err := getBody(ctx, g.client, g.limiter, feedURL, header)
	if err != nil {
		return nil, eris.Wrap(err, "googlenews")
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "googlenews: parse feed")
	}

	count := len(feed.Items)
	if maxResults > 0 && count > maxResults {
		count = maxResults
	}

	out := make([]model.Candidate, 0, count)
	for _, item := range feed.Items[:count] {
		title := plainText(item.Title)
		if title == "" || item.Link == "" {
			continue
		}

		publisher := fontText(item.Description)
		if publisher == "" {
			publisher = trailingPublisher(title)
		}

		date := ""
		if item.PublishedParsed != nil {
			date = dateStamp(*item.PublishedParsed)
		} else if item.UpdatedParsed != nil {
			date = dateStamp(*item.UpdatedParsed)
		}

		out = append(out, model.Candidate{
			Headline:  stripPublisher(title, publisher),
			URL:       item.Link,
			Date:      date,
			Origin:    model.OriginFeedSearch,
			Publisher: publisher,
		})
	}
	return out, nil
}

// trailingPublisher returns "Publisher" from "Headline - Publisher"
func trailingPublisher(title string) string {
	idx := strings.LastIndex(title, " - ")
	if idx <= 0 {
		return ""
	}
	return strings.TrimSpace(title[idx+3:])
}
