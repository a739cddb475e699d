// Package geo resolves place hints to coordinates through a Nominatim
// compatible search endpoint.
package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/leadmaster/internal/worker"
)

// Point is a resolved coordinate pair
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geocoder resolves a free-form query. found is false when the upstream has
// no match; err is reserved for transport and decoding failures.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (p Point, found bool, err error)
}

// Nominatim queries the OpenStreetMap search API
type Nominatim struct {
	baseURL string
	client  *http.Client
	limiter *worker.Limiter
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatim creates a client. The client should carry an identifying
// User-Agent, which the public instance requires.
func NewNominatim(baseURL string, client *http.Client, limiter *worker.Limiter) *Nominatim {
	return &Nominatim{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		limiter: limiter,
	}
}

// Geocode returns the best match for query
func (n *Nominatim) Geocode(ctx context.Context, query string) (Point, bool, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Point{}, false, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	endpoint := n.baseURL + "/search?" + params.Encode()

	if n.limiter != nil {
		if err := n.limiter.Wait(ctx, endpoint); err != nil {
			return Point{}, false, eris.Wrap(err, "geo: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Point{}, false, eris.Wrap(err, "geo: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return Point{}, false, eris.Wrap(err, "geo: search")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Point{}, false, eris.Errorf("geo: unexpected status %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Point{}, false, eris.Wrap(err, "geo: decode response")
	}
	if len(places) == 0 {
		return Point{}, false, nil
	}

	lat, latErr := strconv.ParseFloat(places[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(places[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return Point{}, false, eris.Errorf("geo: bad coordinates %q,%q", places[0].Lat, places[0].Lon)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Point{}, false, eris.Errorf("geo: coordinates out of range %v,%v", lat, lon)
	}

	return Point{Lat: lat, Lon: lon}, true, nil
}
