package pipeline

import (
	"context"
	"log/slog"

	"github.com/vietwatch/report-triage/internal/domain"
	"github.com/vietwatch/report-triage/internal/observability"
	"github.com/vietwatch/report-triage/internal/resolver"
	"github.com/vietwatch/report-triage/internal/window"
)

// ReportTransformer triages one raw report: parse, resolve location, score
// trust against the recent window, and flag cross-batch duplicate candidates.
type ReportTransformer struct {
	resolver *resolver.Resolver
	window   *window.Window
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewTransformer creates a ReportTransformer. Pass a nil resolver to disable
// location resolution.
func NewTransformer(res *resolver.Resolver, win *window.Window, metrics *observability.Metrics, logger *slog.Logger) *ReportTransformer {
	return &ReportTransformer{
		resolver: res,
		window:   win,
		metrics:  metrics,
		logger:   logger,
	}
}

func (t *ReportTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.Report, error) {
	report, err := domain.ParseRawReport(raw)
	if err != nil {
		return domain.Report{}, err
	}

	// Producer coordinates win; the cascade only runs for unlocated reports.
	if report.Lat == nil || report.Lon == nil {
		if t.resolver != nil {
			report.Geo = t.resolver.Resolve(ctx, locationText(report), hintsFor(report))
		}
	}

	report.NormalizedTitle = domain.NormalizeTitle(report.Title)

	recent := t.window.Recent()
	report.TrustScore = domain.ComputeScore(report, recent)
	report.DuplicateCandidates = domain.FindDuplicates(report, recent)

	t.window.Add(domain.SnapshotOf(report))

	t.metrics.TrustScore.Observe(report.TrustScore)
	if n := len(report.DuplicateCandidates); n > 0 {
		t.metrics.DuplicateCandidates.Add(float64(n))
	}

	report.ProcessedAt = domain.Now()
	return report, nil
}

// locationText is what the resolver scans for place names. The title alone
// is often just "Cảnh báo lũ"; the description carries the landmark.
func locationText(r domain.Report) string {
	if r.Description == "" {
		return r.Title
	}
	return r.Title + ". " + r.Description
}

func hintsFor(r domain.Report) resolver.Hints {
	var h resolver.Hints
	if r.Province != nil {
		h.Province = *r.Province
	}
	if r.District != nil {
		h.District = *r.District
	}
	return h
}
