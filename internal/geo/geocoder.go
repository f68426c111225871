// Package geo resolves free-text place names to coordinates through an
// external Nominatim-compatible lookup API.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"laborgrow/internal/config"
	"laborgrow/internal/constants"
	"laborgrow/internal/logger"
	"laborgrow/internal/tracing"
)

// ErrPlaceNotFound means the lookup ran but produced no match.
var ErrPlaceNotFound = errors.New("place not found")

// Suggestion is one autocomplete candidate.
type Suggestion struct {
	DisplayName string  `json:"display_name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Geocoder looks up coordinates for place names. A single call, no retry:
// callers degrade gracefully when the service is unreachable.
type Geocoder interface {
	Resolve(ctx context.Context, place string) (lat, lng float64, err error)
	Autocomplete(ctx context.Context, prefix string, limit int) ([]Suggestion, error)
}

// Cache stores resolved places. Satisfied by the Redis adapter; nil
// disables caching.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// HTTPGeocoder talks to a Nominatim-style search endpoint.
type HTTPGeocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
	cache     Cache
	tracer    trace.Tracer
}

var _ Geocoder = (*HTTPGeocoder)(nil)

// NewHTTPGeocoder builds a client from config. cache may be nil.
func NewHTTPGeocoder(cfg *config.GeocoderConfig, cache Cache) *HTTPGeocoder {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGeocoder{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
		cache:     cache,
		tracer:    otel.Tracer("laborgrow/geo"),
	}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type cachedPlace struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Resolve returns the best-match coordinates for place. Results are
// cached; cache failures never fail the lookup.
func (g *HTTPGeocoder) Resolve(ctx context.Context, place string) (float64, float64, error) {
	ctx, span := g.tracer.Start(ctx, "Geocoder.Resolve", trace.WithAttributes(attribute.String("geo.place", place)))
	defer span.End()

	place = strings.TrimSpace(place)
	if place == "" {
		return 0, 0, ErrPlaceNotFound
	}

	cacheKey := constants.GeocodeCachePrefix + strings.ToLower(place)
	if g.cache != nil {
		var hit cachedPlace
		if err := g.cache.GetJSON(ctx, cacheKey, &hit); err == nil {
			span.SetAttributes(attribute.Bool("geo.cache_hit", true))
			return hit.Lat, hit.Lng, nil
		}
	}

	results, err := g.search(ctx, place, 1)
	if err != nil {
		tracing.RecordError(span, err)
		return 0, 0, err
	}
	if len(results) == 0 {
		return 0, 0, ErrPlaceNotFound
	}

	lat, lng, err := parseCoordinates(results[0])
	if err != nil {
		err = fmt.Errorf("parse geocoder response for %q: %w", place, err)
		tracing.RecordError(span, err)
		return 0, 0, err
	}

	if g.cache != nil {
		if err := g.cache.SetJSON(ctx, cacheKey, cachedPlace{Lat: lat, Lng: lng}, constants.GeocodeCacheDuration); err != nil {
			logger.Warn().Err(err).Str("place", place).Msg("Failed to cache geocode result")
		}
	}
	return lat, lng, nil
}

// Autocomplete returns up to limit place suggestions for a prefix.
func (g *HTTPGeocoder) Autocomplete(ctx context.Context, prefix string, limit int) ([]Suggestion, error) {
	ctx, span := g.tracer.Start(ctx, "Geocoder.Autocomplete")
	defer span.End()

	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []Suggestion{}, nil
	}
	if limit <= 0 || limit > 10 {
		limit = 5
	}

	results, err := g.search(ctx, prefix, limit)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(results))
	for _, r := range results {
		lat, lng, err := parseCoordinates(r)
		if err != nil {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			DisplayName: r.DisplayName,
			Latitude:    lat,
			Longitude:   lng,
		})
	}
	return suggestions, nil
}

func (g *HTTPGeocoder) search(ctx context.Context, query string, limit int) ([]nominatimResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build geocoder request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoder request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode geocoder response: %w", err)
	}
	return results, nil
}

func parseCoordinates(r nominatimResult) (float64, float64, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad latitude %q: %w", r.Lat, err)
	}
	lng, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad longitude %q: %w", r.Lon, err)
	}
	return lat, lng, nil
}
