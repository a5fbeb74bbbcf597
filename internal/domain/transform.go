package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// ParseRawReport deserializes a RawEvent's value into a Report.
// It expects the flat JSON produced by the collector services. A missing or
// malformed created_at is tolerated: CreatedAt stays zero and the time-based
// scoring terms are skipped downstream.
func ParseRawReport(raw RawEvent) (Report, error) {
	var rec RawReport
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Report{}, fmt.Errorf("parse raw report: %w", err)
	}

	createdAt, tsOK := parseTimestamp(rec.CreatedAt)

	id := rec.ID
	if id == "" {
		id = generateID(rec.Source, rec.Type, rec.Title, rec.CreatedAt)
	}

	r := Report{
		ID:          id,
		Title:       rec.Title,
		Description: rec.Description,
		Source:      rec.Source,
		Type:        rec.Type,
		Lat:         rec.Lat,
		Lon:         rec.Lon,
		Province:    rec.Province,
		District:    rec.District,
		Media:       rec.Media,
		SourceURL:   rec.SourceURL,

		RawPayload: raw.Value,
	}
	if tsOK {
		r.CreatedAt = createdAt
	}
	return r, nil
}

// parseTimestamp accepts RFC3339 and the legacy "2006-01-02 15:04:05" form
// some agency feeds still emit. Both are interpreted as UTC.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// generateID produces a deterministic ID from the report's key fields.
// Reprocessing the same raw message yields the same ID, keeping downstream
// upserts idempotent (ON CONFLICT DO NOTHING) under replay.
func generateID(source, reportType, title, createdAt string) string {
	input := fmt.Sprintf("%s|%s|%s|%s", source, reportType, title, createdAt)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if reportType == "" {
		return short
	}
	return "rpt-" + short
}

// SerializeReport marshals a triaged report into an output event with
// report_type and processed_at headers for sink-side routing.
func SerializeReport(r Report) (OutputEvent, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize report: %w", err)
	}
	return OutputEvent{
		Key:   []byte(r.ID),
		Value: data,
		Headers: map[string]string{
			"report_type":  r.Type,
			"processed_at": r.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}
