package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawEvent(t *testing.T, rec RawReport) RawEvent {
	t.Helper()
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	return RawEvent{Key: []byte(rec.ID), Value: data}
}

func TestParseRawReport(t *testing.T) {
	raw := rawEvent(t, RawReport{
		ID:          "rpt-1",
		Title:       "Ngập sâu tại Hải Châu",
		Description: "Nước dâng 1m trên đường Nguyễn Văn Linh",
		Source:      "COMMUNITY",
		Type:        TypeSOS,
		Lat:         ptr(16.0678),
		Lon:         ptr(108.2208),
		Province:    ptr("Đà Nẵng"),
		Media:       []string{"https://example.com/a.jpg"},
		CreatedAt:   "2025-10-27T08:30:00Z",
	})

	r, err := ParseRawReport(raw)
	require.NoError(t, err)

	assert.Equal(t, "rpt-1", r.ID)
	assert.Equal(t, TypeSOS, r.Type)
	assert.Equal(t, "COMMUNITY", r.Source)
	require.NotNil(t, r.Lat)
	assert.Equal(t, 16.0678, *r.Lat)
	assert.Equal(t, time.Date(2025, time.October, 27, 8, 30, 0, 0, time.UTC), r.CreatedAt)
	assert.True(t, r.ProcessedAt.IsZero())
}

func TestParseRawReport_InvalidJSON(t *testing.T) {
	_, err := ParseRawReport(RawEvent{Value: []byte("not json")})
	assert.Error(t, err)
}

func TestParseRawReport_MalformedTimestamp(t *testing.T) {
	raw := rawEvent(t, RawReport{
		Title:     "Mưa lớn",
		Source:    "PRESS",
		Type:      TypeRain,
		CreatedAt: "yesterday evening",
	})

	r, err := ParseRawReport(raw)
	require.NoError(t, err, "a bad timestamp must not fail the report")
	assert.True(t, r.CreatedAt.IsZero())
}

func TestParseRawReport_LegacyTimestamp(t *testing.T) {
	raw := rawEvent(t, RawReport{
		Title:     "Cảnh báo lũ",
		Source:    "KTTV",
		Type:      TypeAlert,
		CreatedAt: "2025-10-27 08:30:00",
	})

	r, err := ParseRawReport(raw)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.October, 27, 8, 30, 0, 0, time.UTC), r.CreatedAt)
}

func TestParseRawReport_GeneratedIDIsDeterministic(t *testing.T) {
	rec := RawReport{
		Title:     "Sạt lở Đèo Hải Vân",
		Source:    "GOV",
		Type:      TypeRoad,
		CreatedAt: "2025-10-27T08:30:00Z",
	}

	a, err := ParseRawReport(rawEvent(t, rec))
	require.NoError(t, err)
	b, err := ParseRawReport(rawEvent(t, rec))
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Contains(t, a.ID, "rpt-")
}

func TestSerializeReport(t *testing.T) {
	now := time.Date(2025, time.October, 27, 9, 0, 0, 0, time.UTC)
	r := Report{
		ID:          "rpt-1",
		Title:       "Ngập lụt Hội An",
		Source:      "PRESS",
		Type:        TypeAlert,
		TrustScore:  0.7,
		ProcessedAt: now,
		Geo: &GeocodingResult{
			Lat: 15.8801, Lon: 108.3380,
			Accuracy: AccuracyLandmark, Confidence: 0.95,
			Source: GeoSourceInternal,
		},
	}

	out, err := SerializeReport(r)
	require.NoError(t, err)

	assert.Equal(t, []byte("rpt-1"), out.Key)
	assert.Equal(t, TypeAlert, out.Headers["report_type"])
	assert.Equal(t, now.Format(time.RFC3339), out.Headers["processed_at"])

	var roundtrip Report
	require.NoError(t, json.Unmarshal(out.Value, &roundtrip))
	assert.Equal(t, 0.7, roundtrip.TrustScore)
	require.NotNil(t, roundtrip.Geo)
	assert.Equal(t, AccuracyLandmark, roundtrip.Geo.Accuracy)
}

func TestReportCoordinates(t *testing.T) {
	none := Report{}
	_, _, ok := none.Coordinates()
	assert.False(t, ok)

	supplied := Report{Lat: ptr(16.0), Lon: ptr(108.0)}
	lat, lon, ok := supplied.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 16.0, lat)
	assert.Equal(t, 108.0, lon)

	resolved := Report{Geo: &GeocodingResult{Lat: 15.5, Lon: 107.5}}
	lat, lon, ok = resolved.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 15.5, lat)
	assert.Equal(t, 107.5, lon)
}

func TestSnapshotOf(t *testing.T) {
	r := Report{
		ID:              "rpt-1",
		Source:          "COMMUNITY",
		Title:           "Ngập lụt Hội An",
		NormalizedTitle: "ngap lut hoi an",
		Geo:             &GeocodingResult{Lat: 15.88, Lon: 108.33},
		TrustScore:      0.6,
	}

	s := SnapshotOf(r)
	assert.Equal(t, "rpt-1", s.ID)
	assert.Equal(t, "ngap lut hoi an", s.NormalizedTitle)
	require.NotNil(t, s.Lat)
	assert.Equal(t, 15.88, *s.Lat)
	assert.Equal(t, 0.6, s.TrustScore)
}
