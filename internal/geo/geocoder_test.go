package geo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laborgrow/internal/config"
)

var errMiss = errors.New("cache miss")

type memoryCache struct {
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	b, ok := c.data[key]
	if !ok {
		return errMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *memoryCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func newGeocoderServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *HTTPGeocoder, *memoryCache) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cache := newMemoryCache()
	g := NewHTTPGeocoder(&config.GeocoderConfig{
		BaseURL:        srv.URL,
		UserAgent:      "laborgrow-test/1.0",
		TimeoutSeconds: 2,
	}, cache)
	return srv, g, cache
}

func TestResolveReturnsBestMatch(t *testing.T) {
	var gotQuery string
	_, g, _ := newGeocoderServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "laborgrow-test/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"18.5204","lon":"73.8567","display_name":"Pune, Maharashtra, India"}]`))
	})

	lat, lng, err := g.Resolve(context.Background(), "Pune")
	require.NoError(t, err)
	assert.Equal(t, "Pune", gotQuery)
	assert.InDelta(t, 18.5204, lat, 1e-6)
	assert.InDelta(t, 73.8567, lng, 1e-6)
}

func TestResolveNotFound(t *testing.T) {
	_, g, _ := newGeocoderServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, _, err := g.Resolve(context.Background(), "Nowhereville")
	assert.ErrorIs(t, err, ErrPlaceNotFound)
}

func TestResolveUsesCacheOnSecondCall(t *testing.T) {
	calls := 0
	_, g, _ := newGeocoderServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[{"lat":"12.9716","lon":"77.5946","display_name":"Bengaluru"}]`))
	})

	_, _, err := g.Resolve(context.Background(), "Bengaluru")
	require.NoError(t, err)
	lat, lng, err := g.Resolve(context.Background(), "Bengaluru")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.InDelta(t, 12.9716, lat, 1e-6)
	assert.InDelta(t, 77.5946, lng, 1e-6)
}

func TestResolveEmptyPlace(t *testing.T) {
	_, g, _ := newGeocoderServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty place")
	})

	_, _, err := g.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrPlaceNotFound)
}

func TestResolveServerError(t *testing.T) {
	_, g, _ := newGeocoderServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, _, err := g.Resolve(context.Background(), "Pune")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPlaceNotFound)
}

func TestAutocompleteReturnsSuggestions(t *testing.T) {
	_, g, _ := newGeocoderServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		w.Write([]byte(`[
			{"lat":"18.5204","lon":"73.8567","display_name":"Pune, Maharashtra"},
			{"lat":"18.7200","lon":"73.6800","display_name":"Pune District"}
		]`))
	})

	suggestions, err := g.Autocomplete(context.Background(), "Pun", 3)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "Pune, Maharashtra", suggestions[0].DisplayName)
	assert.InDelta(t, 18.5204, suggestions[0].Latitude, 1e-6)
}

func TestAutocompleteSkipsMalformedEntries(t *testing.T) {
	_, g, _ := newGeocoderServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"lat":"not-a-number","lon":"73.8567","display_name":"Broken"},
			{"lat":"18.5204","lon":"73.8567","display_name":"Pune"}
		]`))
	})

	suggestions, err := g.Autocomplete(context.Background(), "Pun", 5)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Pune", suggestions[0].DisplayName)
}
