package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietwatch/report-triage/internal/domain"
	"github.com/vietwatch/report-triage/internal/gazetteer"
	"github.com/vietwatch/report-triage/internal/observability"
)

const testYAML = `
provinces:
  - name: Đà Nẵng
    lat: 16.0544
    lon: 108.2022
    districts:
      - name: Hải Châu
        lat: 16.0471
        lon: 108.2203
      - name: Liên Chiểu
        lat: 16.0944
        lon: 108.1544
  - name: Quảng Nam
    lat: 15.5394
    lon: 108.0191
    districts:
      - name: Hội An
        lat: 15.8801
        lon: 108.3380
  - name: Thừa Thiên Huế
    lat: 16.4637
    lon: 107.5909
    aliases: ["Huế"]
    districts:
      - name: Phú Lộc
        lat: 16.2744
        lon: 107.8882
landmarks:
  - name: Đèo Hải Vân
    type: pass
    province: Đà Nẵng
    district: Liên Chiểu
    lat: 16.1997
    lon: 108.1331
  - name: Chợ Lớn
    type: market
    province: Đà Nẵng
    district: Hải Châu
    lat: 16.0600
    lon: 108.2100
  - name: Chợ Lớn
    type: market
    province: Quảng Nam
    district: Hội An
    lat: 15.8900
    lon: 108.3300
`

type stubGeocoder struct {
	result domain.GeocodingResult
	found  bool
	err    error
	calls  int
}

func (s *stubGeocoder) Geocode(_ context.Context, _ string) (domain.GeocodingResult, bool, error) {
	s.calls++
	return s.result, s.found, s.err
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	table, err := gazetteer.Parse([]byte(testYAML))
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(table, logger, observability.NewMetricsForTesting())
}

func TestResolve_LandmarkBeatsProvince(t *testing.T) {
	r := newTestResolver(t)

	// Text mentions both a landmark and a province; the landmark must win.
	got := r.Resolve(context.Background(), "Sạt lở nghiêm trọng trên Đèo Hải Vân, Đà Nẵng", Hints{})
	require.NotNil(t, got)
	assert.Equal(t, domain.AccuracyLandmark, got.Accuracy)
	assert.Equal(t, "Đèo Hải Vân", got.MatchedName)
	assert.InDelta(t, 16.1997, got.Lat, 1e-6)
	assert.InDelta(t, 108.1331, got.Lon, 1e-6)
	assert.InDelta(t, 0.95, got.Confidence, 1e-9)
	assert.Equal(t, domain.GeoSourceInternal, got.Source)
}

func TestResolve_DiacriticFreeText(t *testing.T) {
	r := newTestResolver(t)

	got := r.Resolve(context.Background(), "ket xe keo dai tren deo hai van", Hints{})
	require.NotNil(t, got)
	assert.Equal(t, "Đèo Hải Vân", got.MatchedName)
}

func TestResolve_AmbiguousLandmarkDistrictHint(t *testing.T) {
	r := newTestResolver(t)

	got := r.Resolve(context.Background(), "Cháy tại Chợ Lớn", Hints{District: "Hội An"})
	require.NotNil(t, got)
	assert.Equal(t, "Quảng Nam", got.Province)
	assert.Equal(t, "Hội An", got.District)
}

func TestResolve_AmbiguousLandmarkDistrictInText(t *testing.T) {
	r := newTestResolver(t)

	got := r.Resolve(context.Background(), "Cháy tại Chợ Lớn, Hội An", Hints{})
	require.NotNil(t, got)
	assert.Equal(t, "Quảng Nam", got.Province)
}

func TestResolve_AmbiguousLandmarkProvinceHint(t *testing.T) {
	r := newTestResolver(t)

	got := r.Resolve(context.Background(), "Cháy tại Chợ Lớn", Hints{Province: "Quảng Nam"})
	require.NotNil(t, got)
	assert.Equal(t, "Quảng Nam", got.Province)
}

func TestResolve_AmbiguousLandmarkFallsBackToTableOrder(t *testing.T) {
	r := newTestResolver(t)

	got := r.Resolve(context.Background(), "Cháy tại Chợ Lớn", Hints{})
	require.NotNil(t, got)
	assert.Equal(t, "Đà Nẵng", got.Province)
}

func TestResolve_DistrictTier(t *testing.T) {
	r := newTestResolver(t)

	got := r.Resolve(context.Background(), "Ngập sâu nhiều tuyến đường ở Hải Châu", Hints{})
	require.NotNil(t, got)
	assert.Equal(t, domain.AccuracyDistrict, got.Accuracy)
	assert.Equal(t, "Hải Châu", got.MatchedName)
	assert.Equal(t, "Đà Nẵng", got.Province)
	assert.InDelta(t, 0.7, got.Confidence, 1e-9)
}

func TestResolve_DistrictFromHint(t *testing.T) {
	r := newTestResolver(t)

	got := r.Resolve(context.Background(), "Nước dâng nhanh, cần hỗ trợ", Hints{District: "Phú Lộc"})
	require.NotNil(t, got)
	assert.Equal(t, domain.AccuracyDistrict, got.Accuracy)
	assert.Equal(t, "Phú Lộc", got.MatchedName)
	assert.Equal(t, "Thừa Thiên Huế", got.Province)
}

func TestResolve_ProvinceTier(t *testing.T) {
	r := newTestResolver(t)

	got := r.Resolve(context.Background(), "Mưa lớn diện rộng tại Quảng Nam", Hints{})
	require.NotNil(t, got)
	assert.Equal(t, domain.AccuracyProvince, got.Accuracy)
	assert.Equal(t, "Quảng Nam", got.MatchedName)
	assert.InDelta(t, 0.4, got.Confidence, 1e-9)
}

func TestResolve_ProvinceAlias(t *testing.T) {
	r := newTestResolver(t)

	got := r.Resolve(context.Background(), "Lũ trên sông Hương tại Huế", Hints{})
	require.NotNil(t, got)
	assert.Equal(t, domain.AccuracyProvince, got.Accuracy)
	assert.Equal(t, "Thừa Thiên Huế", got.MatchedName)
}

func TestResolve_ProvinceFromHint(t *testing.T) {
	r := newTestResolver(t)

	got := r.Resolve(context.Background(), "Cây đổ chắn ngang quốc lộ", Hints{Province: "Huế"})
	require.NotNil(t, got)
	assert.Equal(t, domain.AccuracyProvince, got.Accuracy)
	assert.Equal(t, "Thừa Thiên Huế", got.Province)
}

func TestResolve_MissWithoutExternal(t *testing.T) {
	r := newTestResolver(t)

	got := r.Resolve(context.Background(), "Sự cố tại khu vực không xác định", Hints{})
	assert.Nil(t, got)
}

func TestResolve_ExternalOnlyOnGazetteerMiss(t *testing.T) {
	r := newTestResolver(t)
	stub := &stubGeocoder{
		result: domain.GeocodingResult{
			Lat: 10.5, Lon: 106.4,
			Accuracy:   domain.AccuracyExternal,
			Confidence: 0.5,
			Source:     domain.GeoSourceExternal,
		},
		found: true,
	}
	r.EnableExternal(stub, time.Millisecond, time.Second)

	// Gazetteer hit must not reach the external service.
	got := r.Resolve(context.Background(), "Ngập tại Hội An", Hints{})
	require.NotNil(t, got)
	assert.Equal(t, domain.GeoSourceInternal, got.Source)
	assert.Zero(t, stub.calls)

	got = r.Resolve(context.Background(), "Sạt lở bờ sông Vàm Cỏ Đông", Hints{})
	require.NotNil(t, got)
	assert.Equal(t, domain.GeoSourceExternal, got.Source)
	assert.Equal(t, 1, stub.calls)
}

func TestResolve_ExternalNotFound(t *testing.T) {
	r := newTestResolver(t)
	stub := &stubGeocoder{found: false}
	r.EnableExternal(stub, time.Millisecond, time.Second)

	got := r.Resolve(context.Background(), "Địa điểm hoàn toàn vô danh", Hints{})
	assert.Nil(t, got)
	assert.Equal(t, 1, stub.calls)
}

func TestResolve_ExternalErrorDegradesToMiss(t *testing.T) {
	r := newTestResolver(t)
	stub := &stubGeocoder{err: errors.New("connection refused")}
	r.EnableExternal(stub, time.Millisecond, time.Second)

	got := r.Resolve(context.Background(), "Địa điểm hoàn toàn vô danh", Hints{})
	assert.Nil(t, got)
}

func TestResolve_ExternalRateLimited(t *testing.T) {
	r := newTestResolver(t)
	stub := &stubGeocoder{found: true, result: domain.GeocodingResult{Source: domain.GeoSourceExternal}}
	// One token per hour, so only the first call goes through.
	r.EnableExternal(stub, time.Hour, time.Second)

	first := r.Resolve(context.Background(), "Địa điểm hoàn toàn vô danh", Hints{})
	require.NotNil(t, first)
	second := r.Resolve(context.Background(), "Một nơi khác cũng vô danh", Hints{})
	assert.Nil(t, second)
	assert.Equal(t, 1, stub.calls)
}
