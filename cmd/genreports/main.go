// Command genreports generates deterministic disaster-report fixtures for the
// triage test suites. It runs a fixed set of realistic raw reports through the
// actual triage transformer under a frozen clock, so the triaged fixture
// matches real pipeline behavior exactly.
//
// Usage:
//
//	go run ./cmd/genreports \
//	  -raw-out data/fixtures/reports_raw.json \
//	  -triaged-out data/fixtures/reports_triaged.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vietwatch/report-triage/internal/domain"
	"github.com/vietwatch/report-triage/internal/gazetteer"
	"github.com/vietwatch/report-triage/internal/observability"
	"github.com/vietwatch/report-triage/internal/pipeline"
	"github.com/vietwatch/report-triage/internal/resolver"
	"github.com/vietwatch/report-triage/internal/window"
)

// frozenNow anchors age decay and the corroboration window.
var frozenNow = time.Date(2025, time.October, 27, 9, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rawOut := flag.String("raw-out", "", "output path for the raw report fixture")
	triagedOut := flag.String("triaged-out", "", "output path for the triaged report fixture")
	flag.Parse()

	if *rawOut == "" || *triagedOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -raw-out, -triaged-out")
	}

	domain.SetClock(clockwork.NewFakeClockAt(frozenNow))
	defer domain.SetClock(nil)

	table, err := gazetteer.Load()
	if err != nil {
		return fmt.Errorf("load gazetteer: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	res := resolver.New(table, logger, metrics)
	win := window.New(domain.CorroborationWindow*time.Minute, 1000, clockwork.NewFakeClockAt(frozenNow))
	transformer := pipeline.NewTransformer(res, win, metrics, logger)

	raws := seedReports()

	triaged := make([]domain.Report, 0, len(raws))
	for _, raw := range raws {
		value, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("marshal raw report: %w", err)
		}
		report, err := transformer.Transform(context.Background(), domain.RawEvent{Value: value})
		if err != nil {
			return fmt.Errorf("transform report %q: %w", raw.ID, err)
		}
		triaged = append(triaged, report)
	}

	canonical, stats := domain.DeduplicateWithStats(triaged)
	log.Printf("reports: %d raw, %d triaged, %d removed as duplicates", len(raws), len(canonical), stats.Removed)

	if err := writeJSON(*rawOut, raws); err != nil {
		return fmt.Errorf("writing raw fixture: %w", err)
	}
	log.Printf("wrote raw fixture: %s", *rawOut)

	if err := writeJSON(*triagedOut, canonical); err != nil {
		return fmt.Errorf("writing triaged fixture: %w", err)
	}
	log.Printf("wrote triaged fixture: %s", *triagedOut)

	printStats(canonical)
	return nil
}

func ptr[T any](v T) *T { return &v }

// seedReports covers the triage surface: official alerts, community SOS with
// and without coordinates, press reports with media, duplicate titles across
// sources, and a report only the landmark tier can place.
func seedReports() []domain.RawReport {
	at := func(minutesAgo int) string {
		return frozenNow.Add(-time.Duration(minutesAgo) * time.Minute).Format(time.RFC3339)
	}

	return []domain.RawReport{
		{
			ID:        "fx-001",
			Title:     "Cảnh báo lũ khẩn cấp trên sông Thu Bồn",
			Source:    "KTTV",
			Type:      domain.TypeAlert,
			Province:  ptr("Quảng Nam"),
			CreatedAt: at(50),
		},
		{
			ID:          "fx-002",
			Title:       "Ngập lụt nghiêm trọng tại Hội An",
			Description: "Phố cổ Hội An ngập sâu hơn một mét, nhiều nhà dân bị cô lập.",
			Source:      "PRESS",
			Type:        domain.TypeAlert,
			Media:       []string{"https://img.example.vn/hoian-1.jpg"},
			SourceURL:   "https://vnexpress.net/ngap-lut-hoi-an",
			CreatedAt:   at(40),
		},
		{
			ID:        "fx-003",
			Title:     "Ngập lụt nghiêm trọng tại hội an!",
			Source:    "COMMUNITY",
			Type:      domain.TypeAlert,
			CreatedAt: at(35),
		},
		{
			ID:          "fx-004",
			Title:       "SOS nước dâng rất nhanh cần cứu hộ gấp",
			Description: "Gia đình 4 người mắc kẹt trên mái nhà gần chợ Hội An.",
			Source:      "COMMUNITY",
			Type:        domain.TypeSOS,
			Lat:         ptr(15.8795),
			Lon:         ptr(108.3371),
			CreatedAt:   at(30),
		},
		{
			ID:          "fx-005",
			Title:       "Sạt lở nghiêm trọng trên Đèo Hải Vân",
			Description: "Đất đá tràn xuống mặt đường, giao thông tê liệt hai hướng.",
			Source:      "GOV",
			Type:        domain.TypeRoad,
			CreatedAt:   at(25),
		},
		{
			ID:        "fx-006",
			Title:     "Cần nhu yếu phẩm cho khu vực Nam Trà My",
			Source:    "COMMUNITY",
			Type:      domain.TypeNeeds,
			Province:  ptr("Quảng Nam"),
			District:  ptr("Nam Trà My"),
			CreatedAt: at(20),
		},
		{
			ID:        "fx-007",
			Title:     "Mưa rất to kéo dài tại Quảng Ngãi",
			Source:    "NCHMF",
			Type:      domain.TypeRain,
			CreatedAt: at(400), // old enough for one decay step
		},
		{
			// No ID: exercises deterministic ID generation.
			Title:     "Cây đổ chắn ngang quốc lộ 1A đoạn qua Đèo Ngang",
			Source:    "COMMUNITY",
			Type:      domain.TypeRoad,
			CreatedAt: at(15),
		},
		{
			ID:        "fx-009",
			Title:     "Thông báo xả lũ hồ chứa",
			Source:    "GOV",
			Type:      domain.TypeAlert,
			CreatedAt: "not-a-timestamp", // malformed on purpose
		},
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(reports []domain.Report) {
	typeCounts := map[string]int{}
	accuracyCounts := map[string]int{}
	located := 0
	for i := range reports {
		r := &reports[i]
		typeCounts[r.Type]++
		if _, _, ok := r.Coordinates(); ok {
			located++
		}
		if r.Geo != nil {
			accuracyCounts[r.Geo.Accuracy]++
		}
	}

	log.Printf("by type: %v", typeCounts)
	log.Printf("by geocoding accuracy: %v", accuracyCounts)
	log.Printf("located: %d/%d", located, len(reports))
}
