// Package resolver locates Vietnamese disaster reports on the map. It walks a
// cascade from most to least specific: known landmarks, then districts, then
// provinces out of the embedded gazetteer, and finally an optional external
// geocoding service for text the gazetteer does not know.
package resolver

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/vietwatch/report-triage/internal/domain"
	"github.com/vietwatch/report-triage/internal/gazetteer"
	"github.com/vietwatch/report-triage/internal/observability"
)

// Confidence assigned per cascade tier. More specific matches score higher.
const (
	landmarkConfidence = 0.95
	districtConfidence = 0.7
	provinceConfidence = 0.4
)

// ExternalGeocoder is the fallback for free-text the gazetteer cannot place.
// found is false when the service answered but had no result.
type ExternalGeocoder interface {
	Geocode(ctx context.Context, query string) (domain.GeocodingResult, bool, error)
}

// Hints carry the structured location fields a producer may have set
// alongside the free text.
type Hints struct {
	Province string
	District string
}

// Resolver resolves report text to coordinates via the gazetteer cascade.
type Resolver struct {
	table   *gazetteer.Table
	logger  *slog.Logger
	metrics *observability.Metrics

	external        ExternalGeocoder
	externalLimiter *rate.Limiter
	externalTimeout time.Duration
}

// New builds a Resolver over the given gazetteer. The external fallback is
// off until EnableExternal is called.
func New(table *gazetteer.Table, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		table:   table,
		logger:  logger,
		metrics: metrics,
	}
}

// EnableExternal turns on the external geocoder fallback. minInterval spaces
// out requests to respect the provider's usage policy; timeout bounds each call.
func (r *Resolver) EnableExternal(g ExternalGeocoder, minInterval, timeout time.Duration) {
	r.external = g
	r.externalLimiter = rate.NewLimiter(rate.Every(minInterval), 1)
	r.externalTimeout = timeout
}

// Resolve runs the cascade over the report's free text. It returns nil when
// every tier misses; callers treat that as an unlocated report, not an error.
func (r *Resolver) Resolve(ctx context.Context, text string, hints Hints) *domain.GeocodingResult {
	folded := domain.FoldKey(text)

	if g := r.resolveLandmark(folded, hints); g != nil {
		r.metrics.GeocodeResolutions.WithLabelValues("landmark", "hit").Inc()
		return g
	}
	r.metrics.GeocodeResolutions.WithLabelValues("landmark", "miss").Inc()

	if g := r.resolveDistrict(folded, hints); g != nil {
		r.metrics.GeocodeResolutions.WithLabelValues("district", "hit").Inc()
		return g
	}
	r.metrics.GeocodeResolutions.WithLabelValues("district", "miss").Inc()

	if g := r.resolveProvince(folded, hints); g != nil {
		r.metrics.GeocodeResolutions.WithLabelValues("province", "hit").Inc()
		return g
	}
	r.metrics.GeocodeResolutions.WithLabelValues("province", "miss").Inc()

	if g := r.resolveExternal(ctx, text); g != nil {
		return g
	}

	r.logger.Warn("report location unresolved", "text_len", len(text),
		"province_hint", hints.Province, "district_hint", hints.District)
	return nil
}

func (r *Resolver) resolveLandmark(folded string, hints Hints) *domain.GeocodingResult {
	candidates := r.table.MatchLandmarks(folded)
	if len(candidates) == 0 {
		return nil
	}

	lm := r.pickLandmark(folded, candidates, hints)
	return &domain.GeocodingResult{
		Lat:         lm.Lat,
		Lon:         lm.Lon,
		Accuracy:    domain.AccuracyLandmark,
		Confidence:  landmarkConfidence,
		MatchedName: lm.Name,
		Province:    lm.Province,
		District:    lm.District,
		Source:      domain.GeoSourceInternal,
	}
}

// pickLandmark disambiguates landmarks that share a name across provinces.
// Narrowing order: district hint, then districts mentioned in the text, then
// province hint. A filter that would leave nothing is skipped, and ties fall
// back to gazetteer order.
func (r *Resolver) pickLandmark(folded string, candidates []gazetteer.Landmark, hints Hints) gazetteer.Landmark {
	if len(candidates) == 1 {
		return candidates[0]
	}

	if hints.District != "" {
		if filtered := filterByDistrict(candidates, domain.FoldKey(hints.District)); len(filtered) > 0 {
			candidates = filtered
		}
	}

	if len(candidates) > 1 {
		if mentioned := r.table.MatchDistricts(folded); len(mentioned) > 0 {
			keys := make(map[string]bool, len(mentioned))
			for _, d := range mentioned {
				keys[domain.FoldKey(d.Name)] = true
			}
			var filtered []gazetteer.Landmark
			for _, lm := range candidates {
				if keys[domain.FoldKey(lm.District)] {
					filtered = append(filtered, lm)
				}
			}
			if len(filtered) > 0 {
				candidates = filtered
			}
		}
	}

	if len(candidates) > 1 && hints.Province != "" {
		if filtered := filterByProvince(candidates, domain.FoldKey(hints.Province)); len(filtered) > 0 {
			candidates = filtered
		}
	}

	return candidates[0]
}

func filterByDistrict(candidates []gazetteer.Landmark, foldedDistrict string) []gazetteer.Landmark {
	var out []gazetteer.Landmark
	for _, lm := range candidates {
		if domain.FoldKey(lm.District) == foldedDistrict {
			out = append(out, lm)
		}
	}
	return out
}

func filterByProvince(candidates []gazetteer.Landmark, foldedProvince string) []gazetteer.Landmark {
	var out []gazetteer.Landmark
	for _, lm := range candidates {
		if domain.FoldKey(lm.Province) == foldedProvince {
			out = append(out, lm)
		}
	}
	return out
}

func (r *Resolver) resolveDistrict(folded string, hints Hints) *domain.GeocodingResult {
	candidates := r.table.MatchDistricts(folded)

	if len(candidates) > 1 && hints.Province != "" {
		foldedProvince := domain.FoldKey(hints.Province)
		var filtered []gazetteer.District
		for _, d := range candidates {
			if domain.FoldKey(d.Province) == foldedProvince {
				filtered = append(filtered, d)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	if len(candidates) == 0 && hints.District != "" {
		if d, ok := r.table.FindDistrict(hints.District); ok {
			candidates = []gazetteer.District{d}
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	d := candidates[0]
	return &domain.GeocodingResult{
		Lat:         d.Lat,
		Lon:         d.Lon,
		Accuracy:    domain.AccuracyDistrict,
		Confidence:  districtConfidence,
		MatchedName: d.Name,
		Province:    d.Province,
		District:    d.Name,
		Source:      domain.GeoSourceInternal,
	}
}

func (r *Resolver) resolveProvince(folded string, hints Hints) *domain.GeocodingResult {
	candidates := r.table.MatchProvinces(folded)

	if len(candidates) == 0 && hints.Province != "" {
		if p, ok := r.table.FindProvince(hints.Province); ok {
			candidates = []gazetteer.Province{p}
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	p := candidates[0]
	return &domain.GeocodingResult{
		Lat:         p.Lat,
		Lon:         p.Lon,
		Accuracy:    domain.AccuracyProvince,
		Confidence:  provinceConfidence,
		MatchedName: p.Name,
		Province:    p.Name,
		Source:      domain.GeoSourceInternal,
	}
}

func (r *Resolver) resolveExternal(ctx context.Context, text string) *domain.GeocodingResult {
	if r.external == nil {
		return nil
	}
	if !r.externalLimiter.Allow() {
		r.logger.Debug("external geocoder throttled")
		r.metrics.GeocodeResolutions.WithLabelValues("external", "throttled").Inc()
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.externalTimeout)
	defer cancel()

	start := time.Now()
	result, found, err := r.external.Geocode(ctx, text)
	r.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		r.logger.Warn("external geocoder failed", "error", err)
		r.metrics.GeocodeResolutions.WithLabelValues("external", "error").Inc()
		return nil
	}
	if !found {
		r.metrics.GeocodeResolutions.WithLabelValues("external", "miss").Inc()
		return nil
	}

	r.metrics.GeocodeResolutions.WithLabelValues("external", "hit").Inc()
	return &result
}
