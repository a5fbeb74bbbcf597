package domain

import "time"

// Scoring rule weights and windows. See the package documentation for the
// full rule table.
const (
	officialSourceBonus = 0.5
	coordinatesBonus    = 0.3
	mediaBonus          = 0.2
	provinceBonus       = 0.1
	provincePenalty     = 0.1
	sosBonus            = 0.1
	needsBonus          = 0.05
	corroborationBonus  = 0.2

	decayStep        = 0.1
	decayPeriodHours = 6

	// CorroborationWindow bounds how old an existing report may be to count
	// as independent agreement or a duplicate candidate.
	CorroborationWindow = 60 // minutes

	corroborationRadiusKm = 5.0
	duplicateRadiusKm     = 1.0

	// titleSimilarityThreshold is the ratio above which two normalized
	// titles flag a duplicate candidate.
	titleSimilarityThreshold = 0.88
)

// officialSources are the agency codes whose reports carry the official
// source bonus. Everything else (COMMUNITY, PRESS, unknown) does not.
var officialSources = map[string]struct{}{
	"KTTV":  {},
	"NCHMF": {},
	"GOV":   {},
}

// IsOfficialSource reports whether source is a recognized agency code.
func IsOfficialSource(source string) bool {
	_, ok := officialSources[source]
	return ok
}

// ComputeScore computes the bounded trust score for a report. existing is an
// optional recent window of already-persisted reports used for the single
// corroboration bonus; pass nil when no window is available. The score is
// clamped to [0,1] and the function is pure: same inputs and clock, same
// score.
func ComputeScore(r Report, existing []Snapshot) float64 {
	score := 0.0

	if IsOfficialSource(r.Source) {
		score += officialSourceBonus
	}

	lat, lon, hasCoords := r.Coordinates()
	if hasCoords {
		score += coordinatesBonus
	}

	if len(r.Media) > 0 {
		score += mediaBonus
	}

	if hasProvince(r) {
		score += provinceBonus
	} else {
		score -= provincePenalty
	}

	switch r.Type {
	case TypeSOS:
		score += sosBonus
	case TypeNeeds:
		score += needsBonus
	}

	// Age decay: one step per full 6-hour period. A malformed or missing
	// created_at skips the term entirely rather than failing the report.
	if !r.CreatedAt.IsZero() {
		if age := clock.Now().Sub(r.CreatedAt); age > 0 {
			periods := int(age.Hours()) / decayPeriodHours
			score -= decayStep * float64(periods)
		}
	}

	if hasCoords && isCorroborated(r, lat, lon, existing) {
		score += corroborationBonus
	}

	return clamp01(score)
}

// hasProvince reports whether a province was identified, either supplied by
// the producer or resolved by geocoding.
func hasProvince(r Report) bool {
	if r.Province != nil && *r.Province != "" {
		return true
	}
	return r.Geo != nil && r.Geo.Province != ""
}

// isCorroborated reports whether any existing report from a different source,
// created within the corroboration window, lies within 5 km. The bonus is
// applied at most once regardless of how many reports agree.
func isCorroborated(r Report, lat, lon float64, existing []Snapshot) bool {
	now := clock.Now()
	for _, s := range existing {
		if s.ID == r.ID || s.Source == r.Source {
			continue
		}
		if !withinWindow(now, s.CreatedAt) {
			continue
		}
		if s.Lat == nil || s.Lon == nil {
			continue
		}
		if Haversine(lat, lon, *s.Lat, *s.Lon) <= corroborationRadiusKm {
			return true
		}
	}
	return false
}

// FindDuplicates flags existing reports from the last 60 minutes that look
// like the same incident: normalized-title similarity at or above 0.88, or
// coordinates within 1 km. The returned IDs are an advisory candidate list;
// authoritative grouping is the deduplication engine's normalized-title
// bucketing, which is keyed and indexable.
func FindDuplicates(r Report, existing []Snapshot) []string {
	title := r.NormalizedTitle
	if title == "" {
		title = NormalizeTitle(r.Title)
	}
	lat, lon, hasCoords := r.Coordinates()

	now := clock.Now()
	var candidates []string
	for _, s := range existing {
		if s.ID == r.ID {
			continue
		}
		if !withinWindow(now, s.CreatedAt) {
			continue
		}

		otherTitle := s.NormalizedTitle
		if otherTitle == "" {
			otherTitle = NormalizeTitle(s.Title)
		}
		if TitleSimilarity(title, otherTitle) >= titleSimilarityThreshold {
			candidates = append(candidates, s.ID)
			continue
		}

		if hasCoords && s.Lat != nil && s.Lon != nil &&
			Haversine(lat, lon, *s.Lat, *s.Lon) < duplicateRadiusKm {
			candidates = append(candidates, s.ID)
		}
	}
	return candidates
}

// withinWindow reports whether t falls inside the trailing corroboration
// window ending at now. Zero timestamps never qualify.
func withinWindow(now, t time.Time) bool {
	if t.IsZero() {
		return false
	}
	age := now.Sub(t)
	return age >= 0 && age <= CorroborationWindow*time.Minute
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
