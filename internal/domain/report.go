package domain

import (
	"context"
	"time"
)

// Report types accepted from producers.
const (
	TypeAlert = "ALERT"
	TypeSOS   = "SOS"
	TypeRoad  = "ROAD"
	TypeNeeds = "NEEDS"
	TypeRain  = "RAIN"
)

// Geocoding accuracy tiers, highest confidence first.
const (
	AccuracyLandmark = "landmark"
	AccuracyDistrict = "district"
	AccuracyProvince = "province"
	AccuracyExternal = "external"
	AccuracyUnknown  = "unknown"
)

// Geocoding result provenance.
const (
	GeoSourceInternal = "internal"
	GeoSourceExternal = "external"
)

// RawReport represents the flat JSON structure produced by the collectors.
// Optional fields are pointers so absence is distinguishable from zero.
type RawReport struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Source      string   `json:"source"` // agency code, "COMMUNITY", or "PRESS"
	Type        string   `json:"type"`   // ALERT, SOS, ROAD, NEEDS, RAIN
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	Province    *string  `json:"province,omitempty"`
	District    *string  `json:"district,omitempty"`
	Media       []string `json:"media,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"`
	CreatedAt   string   `json:"created_at"` // RFC3339
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// GeocodingResult is a tier-resolved location. A nil *GeocodingResult means
// no confident match was found; coordinates are never fabricated.
type GeocodingResult struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Accuracy    string  `json:"accuracy"` // landmark, district, province, external, unknown
	Confidence  float64 `json:"confidence"`
	MatchedName string  `json:"matched_name,omitempty"`
	Province    string  `json:"province,omitempty"`
	District    string  `json:"district,omitempty"`
	Source      string  `json:"source"` // internal or external
}

// Report is the domain-rich representation after parsing and triage.
type Report struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Source      string   `json:"source"`
	Type        string   `json:"type"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	Province    *string  `json:"province,omitempty"`
	District    *string  `json:"district,omitempty"`
	Media       []string `json:"media,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"`

	// CreatedAt is zero when the producer timestamp was missing or
	// malformed; age decay and window checks are skipped in that case.
	CreatedAt time.Time `json:"created_at,omitempty"`

	// Triage enrichment fields.
	Geo                 *GeocodingResult `json:"geo,omitempty"`
	TrustScore          float64          `json:"trust_score"`
	NormalizedTitle     string           `json:"normalized_title,omitempty"`
	DuplicateCandidates []string         `json:"duplicate_candidates,omitempty"`

	RawPayload  []byte    `json:"-"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Coordinates returns the report's effective position: producer-supplied
// coordinates when present, otherwise the resolved geocoding result.
func (r Report) Coordinates() (lat, lon float64, ok bool) {
	if r.Lat != nil && r.Lon != nil {
		return *r.Lat, *r.Lon, true
	}
	if r.Geo != nil {
		return r.Geo.Lat, r.Geo.Lon, true
	}
	return 0, 0, false
}

// Snapshot is the persistence collaborator's view of an existing report,
// supplied to scoring and duplicate-candidate checks as a recent window.
type Snapshot struct {
	ID              string    `json:"id"`
	Source          string    `json:"source"`
	Title           string    `json:"title,omitempty"`
	NormalizedTitle string    `json:"normalized_title,omitempty"`
	Lat             *float64  `json:"lat,omitempty"`
	Lon             *float64  `json:"lon,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	TrustScore      float64   `json:"trust_score"`
}

// SnapshotOf projects a triaged report into the window/corroboration view.
func SnapshotOf(r Report) Snapshot {
	s := Snapshot{
		ID:              r.ID,
		Source:          r.Source,
		Title:           r.Title,
		NormalizedTitle: r.NormalizedTitle,
		CreatedAt:       r.CreatedAt,
		TrustScore:      r.TrustScore,
	}
	if lat, lon, ok := r.Coordinates(); ok {
		s.Lat = &lat
		s.Lon = &lon
	}
	return s
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
