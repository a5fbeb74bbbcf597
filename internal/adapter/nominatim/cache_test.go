package nominatim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietwatch/report-triage/internal/domain"
	"github.com/vietwatch/report-triage/internal/observability"
)

type countingGeocoder struct {
	result domain.GeocodingResult
	found  bool
	err    error
	calls  int
}

func (g *countingGeocoder) Geocode(_ context.Context, _ string) (domain.GeocodingResult, bool, error) {
	g.calls++
	return g.result, g.found, g.err
}

func TestCachedGeocoder_HitSkipsInner(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{Lat: 16.0, Lon: 108.0}, found: true}
	c := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	ctx := context.Background()
	first, found, err := c.Geocode(ctx, "Hội An")
	require.NoError(t, err)
	require.True(t, found)

	second, found, err := c.Geocode(ctx, "Hội An")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedGeocoder_FoldedKeysShareEntries(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{Lat: 16.0}, found: true}
	c := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	ctx := context.Background()
	_, _, err := c.Geocode(ctx, "Đà Nẵng")
	require.NoError(t, err)
	_, _, err = c.Geocode(ctx, "da nang")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls, "diacritic variants should share a cache entry")
}

func TestCachedGeocoder_NotFoundNotCached(t *testing.T) {
	inner := &countingGeocoder{found: false}
	c := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	ctx := context.Background()
	_, _, _ = c.Geocode(ctx, "vô danh")
	_, _, _ = c.Geocode(ctx, "vô danh")

	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_ErrorNotCached(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("boom")}
	c := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	ctx := context.Background()
	_, _, err := c.Geocode(ctx, "Hội An")
	require.Error(t, err)
	_, _, err = c.Geocode(ctx, "Hội An")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := newLRUCache(2)

	cache.put("a", domain.GeocodingResult{Lat: 1})
	cache.put("b", domain.GeocodingResult{Lat: 2})

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := cache.get("a")
	require.True(t, ok)

	cache.put("c", domain.GeocodingResult{Lat: 3})

	_, ok = cache.get("b")
	assert.False(t, ok)
	_, ok = cache.get("a")
	assert.True(t, ok)
	_, ok = cache.get("c")
	assert.True(t, ok)
}

func TestLRUCache_UpdateExistingKey(t *testing.T) {
	cache := newLRUCache(2)

	cache.put("a", domain.GeocodingResult{Lat: 1})
	cache.put("a", domain.GeocodingResult{Lat: 9})

	got, ok := cache.get("a")
	require.True(t, ok)
	assert.InDelta(t, 9.0, got.Lat, 1e-9)
}
