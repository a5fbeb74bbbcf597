// Package domain models crowd- and agency-sourced disaster reports for the
// central Vietnam coastal region and implements the triage core: trust
// scoring, duplicate-candidate detection, and deduplication.
//
// # Data Source
//
// Reports arrive as flat JSON on the source Kafka topic. Producers are the
// public report form (source "COMMUNITY"), news monitors (source "PRESS"),
// and agency feeds identified by their agency code:
//
//	KTTV   Trung tâm Dự báo Khí tượng Thủy văn (hydro-met observation network)
//	NCHMF  National Centre for Hydro-Meteorological Forecasting feed
//	GOV    provincial disaster-management committee bulletins
//
// Agency codes are treated as official sources and weigh heavily in trust
// scoring. Report types are ALERT, SOS, ROAD, NEEDS, and RAIN.
//
// # Trust Scoring
//
// Additive rule scoring over a report's own attributes, then a corroboration
// check against a caller-supplied window of recent reports:
//
//	official source            +0.5
//	resolved coordinates       +0.3
//	at least one media item    +0.2
//	province identified        +0.1 (missing: −0.1, an explicit penalty)
//	type SOS +0.1, NEEDS +0.05
//	age decay                  −0.1 per full 6-hour period
//	corroboration              +0.2 once, if a report from a different source
//	                           within the last 60 minutes lies within 5 km
//
// The result is clamped to [0, 1]. Scoring is deterministic for a given
// report, window snapshot, and clock — re-evaluation after more reports
// arrive is safe and idempotent.
//
// # Title Normalization
//
// Duplicate grouping keys on a normalized title: lowercased, Vietnamese
// diacritics stripped (đ→d included), everything but letters, digits, and
// inter-word spaces removed, whitespace collapsed, capped at 100 characters.
// The same normalization runs everywhere a key is produced, so batch
// backfills over historical rows group identically to live ingestion.
// Titleless reports get a synthetic per-report key and never group together.
//
// # Distances
//
// Corroboration (5 km) and proximity duplicate candidates (1 km) use the
// haversine great-circle distance on a sphere of radius 6371 km.
//
// # ID Generation
//
// Reports without a producer-assigned ID get a deterministic SHA-256 hash of
// source|type|title|created_at. Reprocessing the same raw message yields the
// same ID, which keeps downstream upserts idempotent under replay.
package domain
