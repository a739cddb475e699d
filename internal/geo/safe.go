package geo

import (
	"context"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const missTTL = time.Hour

// placePattern picks "in Dayton, Ohio" style locations out of a headline
var placePattern = regexp.MustCompile(`\b(?:in|near|outside)\s+((?:[A-Z][\w.'-]*,?\s?){1,4})`)

type cachedResult struct {
	point Point
	found bool
}

// SafeGeocoder never fails: it tries the most specific hint, then the
// company headquarters, and reports nil coordinates when both miss. Results
// (including misses) are cached.
type SafeGeocoder struct {
	geocoder Geocoder
	cache    *gocache.Cache
	ttl      time.Duration
}

// NewSafeGeocoder wraps g with a result cache holding hits for ttl
func NewSafeGeocoder(g Geocoder, ttl time.Duration) *SafeGeocoder {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SafeGeocoder{
		geocoder: g,
		cache:    gocache.New(ttl, time.Hour),
		ttl:      ttl,
	}
}

// Geocode resolves one query, returning nil coordinates on any failure
func (s *SafeGeocoder) Geocode(ctx context.Context, query string) (lat, lon *float64) {
	p, ok := s.lookup(ctx, query)
	if !ok {
		return nil, nil
	}
	return &p.Lat, &p.Lon
}

// GeocodeFor resolves a company location: first a place named in hint (or
// the hint itself), then "<company> headquarters".
func (s *SafeGeocoder) GeocodeFor(ctx context.Context, hint, company string) (lat, lon *float64) {
	if q := PlaceHint(hint); q != "" {
		if p, ok := s.lookup(ctx, q); ok {
			return &p.Lat, &p.Lon
		}
	}

	company = strings.TrimSpace(company)
	if company == "" {
		return nil, nil
	}
	if p, ok := s.lookup(ctx, company+" headquarters"); ok {
		return &p.Lat, &p.Lon
	}

	zap.L().Debug("geocode miss", zap.String("company", company), zap.String("hint", hint))
	return nil, nil
}

func (s *SafeGeocoder) lookup(ctx context.Context, query string) (Point, bool) {
	query = strings.TrimSpace(query)
	if query == "" || s.geocoder == nil {
		return Point{}, false
	}

	key := strings.ToLower(query)
	if v, ok := s.cache.Get(key); ok {
		r := v.(cachedResult)
		return r.point, r.found
	}

	p, found, err := s.geocoder.Geocode(ctx, query)
	if err != nil {
		// Transport errors are not cached so a later run can retry
		zap.L().Warn("geocode failed", zap.String("query", query), zap.Error(err))
		return Point{}, false
	}

	ttl := s.ttl
	if !found {
		ttl = missTTL
	}
	s.cache.Set(key, cachedResult{point: p, found: found}, ttl)
	return p, found
}

// PlaceHint extracts a place name following "in", "near" or "outside" from
// a headline, falling back to the whole text.
func PlaceHint(hint string) string {
	hint = strings.TrimSpace(hint)
	if m := placePattern.FindStringSubmatch(hint); m != nil {
		if place := strings.Trim(strings.TrimSpace(m[1]), ",."); place != "" {
			return place
		}
	}
	return hint
}
