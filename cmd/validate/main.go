// Command validate performs integrity checks over the triage fixtures:
// raw report JSON, and the triaged JSON produced by genreports. It verifies
// field presence, re-runs the triage under the same frozen clock to confirm
// the triaged fixture is reproducible, and checks output schema constraints.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -raw-json data/fixtures/reports_raw.json \
//	  -triaged-json data/fixtures/reports_triaged.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vietwatch/report-triage/internal/domain"
	"github.com/vietwatch/report-triage/internal/gazetteer"
	"github.com/vietwatch/report-triage/internal/observability"
	"github.com/vietwatch/report-triage/internal/pipeline"
	"github.com/vietwatch/report-triage/internal/resolver"
	"github.com/vietwatch/report-triage/internal/window"
)

// frozenNow must match the clock genreports used to build the fixtures.
var frozenNow = time.Date(2025, time.October, 27, 9, 0, 0, 0, time.UTC)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	rawJSON := flag.String("raw-json", "", "path to the raw report JSON fixture")
	triagedJSON := flag.String("triaged-json", "", "path to the triaged report JSON fixture")
	flag.Parse()

	if *rawJSON == "" || *triagedJSON == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*rawJSON, *triagedJSON); code != 0 {
		os.Exit(code)
	}
}

func run(rawPath, triagedPath string) int {
	domain.SetClock(clockwork.NewFakeClockAt(frozenNow))
	defer domain.SetClock(nil)

	fmt.Println("=== Report Triage Fixture Validation ===")
	fmt.Println()

	raws, err := loadJSON[domain.RawReport](rawPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load raw JSON: %v\n", err)
		return 1
	}

	triaged, err := loadJSON[domain.Report](triagedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load triaged JSON: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateRawIntegrity(raws),
		validateReproducibility(raws, triaged),
		validateOutputSchema(triaged),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d raw, %d triaged\n", len(raws), len(triaged))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ── Phase 1: Raw Integrity ──
// Validates required fields and enums on the raw fixture. Malformed
// timestamps are allowed (the pipeline tolerates them) but flagged fields
// like an empty title are not.

var validTypes = map[string]bool{
	domain.TypeAlert: true,
	domain.TypeSOS:   true,
	domain.TypeRoad:  true,
	domain.TypeNeeds: true,
	domain.TypeRain:  true,
}

func validateRawIntegrity(raws []domain.RawReport) *phase {
	p := &phase{name: "Phase 1: Raw Integrity"}

	for i, r := range raws {
		if r.Title == "" {
			p.errorf("raw record %d: missing title", i)
		}
		if r.Source == "" {
			p.errorf("raw record %d: missing source", i)
		}
		if !validTypes[r.Type] {
			p.errorf("raw record %d: invalid type %q", i, r.Type)
		}
		if (r.Lat == nil) != (r.Lon == nil) {
			p.errorf("raw record %d: lat/lon must be set together", i)
		}
	}
	return p
}

// ── Phase 2: Reproducibility ──
// Re-runs the triage over the raw fixture under the frozen clock and checks
// that the triaged fixture matches the canonical output field by field.

func validateReproducibility(raws []domain.RawReport, triaged []domain.Report) *phase {
	p := &phase{name: "Phase 2: Triage Reproducibility"}

	expected, err := retriage(raws)
	if err != nil {
		p.errorf("re-run triage: %v", err)
		return p
	}

	if len(expected) != len(triaged) {
		p.errorf("canonical count: expected %d, got %d", len(expected), len(triaged))
	}

	byID := map[string]*domain.Report{}
	for i := range triaged {
		byID[triaged[i].ID] = &triaged[i]
	}

	for i := range expected {
		want := &expected[i]
		got, ok := byID[want.ID]
		if !ok {
			p.errorf("ID %s: missing from triaged fixture", want.ID)
			continue
		}
		compareReports(p, want, got)
	}
	return p
}

func retriage(raws []domain.RawReport) ([]domain.Report, error) {
	table, err := gazetteer.Load()
	if err != nil {
		return nil, fmt.Errorf("load gazetteer: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	res := resolver.New(table, logger, metrics)
	win := window.New(domain.CorroborationWindow*time.Minute, 1000, clockwork.NewFakeClockAt(frozenNow))
	transformer := pipeline.NewTransformer(res, win, metrics, logger)

	reports := make([]domain.Report, 0, len(raws))
	for _, raw := range raws {
		value, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("marshal raw report: %w", err)
		}
		report, err := transformer.Transform(context.Background(), domain.RawEvent{Value: value})
		if err != nil {
			return nil, fmt.Errorf("transform %q: %w", raw.ID, err)
		}
		reports = append(reports, report)
	}

	return domain.Deduplicate(reports), nil
}

func compareReports(p *phase, want, got *domain.Report) {
	id := want.ID

	if got.NormalizedTitle != want.NormalizedTitle {
		p.errorf("ID %s: normalized_title: expected %q, got %q", id, want.NormalizedTitle, got.NormalizedTitle)
	}
	if !floatEq(got.TrustScore, want.TrustScore) {
		p.errorf("ID %s: trust_score: expected %g, got %g", id, want.TrustScore, got.TrustScore)
	}

	if (got.Geo == nil) != (want.Geo == nil) {
		p.errorf("ID %s: geo presence mismatch", id)
	} else if want.Geo != nil {
		if got.Geo.Accuracy != want.Geo.Accuracy {
			p.errorf("ID %s: geo.accuracy: expected %q, got %q", id, want.Geo.Accuracy, got.Geo.Accuracy)
		}
		if got.Geo.MatchedName != want.Geo.MatchedName {
			p.errorf("ID %s: geo.matched_name: expected %q, got %q", id, want.Geo.MatchedName, got.Geo.MatchedName)
		}
		if !floatEq(got.Geo.Lat, want.Geo.Lat) || !floatEq(got.Geo.Lon, want.Geo.Lon) {
			p.errorf("ID %s: geo coordinates mismatch", id)
		}
	}

	if len(got.DuplicateCandidates) != len(want.DuplicateCandidates) {
		p.errorf("ID %s: duplicate_candidates: expected %v, got %v", id, want.DuplicateCandidates, got.DuplicateCandidates)
	}
}

// ── Phase 3: Output Schema ──
// Validates triaged records against the sink contract.

var validAccuracies = map[string]bool{
	domain.AccuracyLandmark: true,
	domain.AccuracyDistrict: true,
	domain.AccuracyProvince: true,
	domain.AccuracyExternal: true,
}

func validateOutputSchema(triaged []domain.Report) *phase {
	p := &phase{name: "Phase 3: Output Schema"}
	for i := range triaged {
		checkSchemaRecord(p, i, &triaged[i])
	}
	return p
}

func checkSchemaRecord(p *phase, i int, r *domain.Report) {
	pf := func(format string, args ...any) {
		p.errorf("record %d (ID %s): "+format, append([]any{i, r.ID}, args...)...)
	}

	if r.ID == "" {
		pf("id is empty")
	}
	if r.TrustScore < 0 || r.TrustScore > 1 {
		pf("trust_score %g outside [0,1]", r.TrustScore)
	}
	if len(r.NormalizedTitle) > 100 {
		pf("normalized_title longer than 100 bytes")
	}
	for _, c := range r.NormalizedTitle {
		if !(c >= 'a' && c <= 'z') && !(c >= '0' && c <= '9') && c != ' ' {
			pf("normalized_title contains invalid rune %q", c)
			break
		}
	}
	if r.Geo != nil {
		if !validAccuracies[r.Geo.Accuracy] {
			pf("geo.accuracy %q not in enum", r.Geo.Accuracy)
		}
		if r.Geo.Source != domain.GeoSourceInternal && r.Geo.Source != domain.GeoSourceExternal {
			pf("geo.source %q not in enum", r.Geo.Source)
		}
		if r.Geo.Confidence <= 0 || r.Geo.Confidence > 1 {
			pf("geo.confidence %g outside (0,1]", r.Geo.Confidence)
		}
	}
	if r.ProcessedAt.IsZero() {
		pf("processed_at is zero")
	}
}

// ── Helpers ──

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
