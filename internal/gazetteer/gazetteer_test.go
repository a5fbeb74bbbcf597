package gazetteer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietwatch/report-triage/internal/domain"
)

const syntheticYAML = `
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
    aliases: ["Quang Nam Province"]
    districts:
      - name: Hội An
        lat: 15.8801
        lon: 108.3380
landmarks:
  - name: Cầu Đỏ
    type: bridge
    province: Đà Nẵng
    district: Hải Châu
    lat: 16.0200
    lon: 108.2000
  - name: Cầu Đỏ
    type: bridge
    province: Quảng Nam
    district: Hội An
    lat: 15.8800
    lon: 108.3300
  - name: Đèo Hải Vân
    type: pass
    province: Đà Nẵng
    district: Liên Chiểu
    lat: 16.1997
    lon: 108.1331
    aliases: ["Hai Van Pass"]
`

func syntheticTable(t *testing.T) *Table {
	t.Helper()
	table, err := Parse([]byte(syntheticYAML))
	require.NoError(t, err)
	return table
}

func TestLoad_EmbeddedData(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)

	landmarks, districts, provinces := table.Size()
	assert.Greater(t, landmarks, 10)
	assert.Greater(t, districts, 20)
	assert.GreaterOrEqual(t, provinces, 9)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("provinces: ["))
	assert.Error(t, err)

	_, err = Parse([]byte("landmarks: []"))
	assert.Error(t, err, "a gazetteer without provinces is unusable")

	_, err = Parse([]byte("provinces:\n  - name: X\nlandmarks:\n  - type: pass"))
	assert.Error(t, err, "landmarks need a name and province")
}

func TestMatchLandmarks_NameAndAlias(t *testing.T) {
	table := syntheticTable(t)

	byName := table.MatchLandmarks(domain.FoldKey("sạt lở tại Đèo Hải Vân sáng nay"))
	require.Len(t, byName, 1)
	assert.Equal(t, "Đèo Hải Vân", byName[0].Name)

	byAlias := table.MatchLandmarks(domain.FoldKey("landslide near Hai Van Pass"))
	require.Len(t, byAlias, 1)
	assert.Equal(t, "Đèo Hải Vân", byAlias[0].Name)
}

func TestMatchLandmarks_DiacriticTolerant(t *testing.T) {
	table := syntheticTable(t)

	// Community reports often type without diacritics.
	got := table.MatchLandmarks(domain.FoldKey("ket xe tai deo hai van"))
	require.Len(t, got, 1)
	assert.Equal(t, "Đèo Hải Vân", got[0].Name)
}

func TestMatchLandmarks_SharedNameReturnsAllInTableOrder(t *testing.T) {
	table := syntheticTable(t)

	got := table.MatchLandmarks(domain.FoldKey("ngập nặng ở Cầu Đỏ"))
	require.Len(t, got, 2)
	assert.Equal(t, "Đà Nẵng", got[0].Province)
	assert.Equal(t, "Quảng Nam", got[1].Province)
}

func TestMatchDistrictsAndProvinces(t *testing.T) {
	table := syntheticTable(t)

	districts := table.MatchDistricts(domain.FoldKey("mưa lớn ở Hội An"))
	require.Len(t, districts, 1)
	assert.Equal(t, "Hội An", districts[0].Name)
	assert.Equal(t, "Quảng Nam", districts[0].Province)

	provinces := table.MatchProvinces(domain.FoldKey("cảnh báo lũ Quảng Nam"))
	require.Len(t, provinces, 1)
	assert.Equal(t, "Quảng Nam", provinces[0].Name)
}

func TestFindDistrict(t *testing.T) {
	table := syntheticTable(t)

	d, ok := table.FindDistrict("hai chau")
	require.True(t, ok)
	assert.Equal(t, "Hải Châu", d.Name)

	_, ok = table.FindDistrict("Thanh Khê")
	assert.False(t, ok)
}

func TestFindProvince_ByAlias(t *testing.T) {
	table := syntheticTable(t)

	p, ok := table.FindProvince("quang nam province")
	require.True(t, ok)
	assert.Equal(t, "Quảng Nam", p.Name)
}

func TestEmbedded_HaiVanPresent(t *testing.T) {
	table, err := Load()
	require.NoError(t, err)

	got := table.MatchLandmarks(domain.FoldKey("Sạt lở nghiêm trọng trên Đèo Hải Vân, Đà Nẵng"))
	require.NotEmpty(t, got)
	assert.Equal(t, "Đèo Hải Vân", got[0].Name)
	assert.Equal(t, "pass", got[0].Type)
}
