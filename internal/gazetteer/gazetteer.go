// Package gazetteer holds the curated reference tables the geocoding
// resolver matches against: verified landmarks, district representative
// points, and province centroids for the central Vietnam coastal region.
//
// The table is loaded once at startup from a versioned YAML file owned by an
// out-of-band curation process and is immutable afterwards, so lookups are
// safe from any number of goroutines without locking.
package gazetteer

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/cloudflare/ahocorasick"
	"gopkg.in/yaml.v3"

	"github.com/vietwatch/report-triage/internal/domain"
)

//go:embed data/gazetteer.yaml
var embeddedData []byte

// Landmark is a manually verified named location. Aliases cover common
// spelling variants seen in community reports.
type Landmark struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"` // pass, bridge, road, area
	Province string   `yaml:"province"`
	District string   `yaml:"district,omitempty"`
	Lat      float64  `yaml:"lat"`
	Lon      float64  `yaml:"lon"`
	Aliases  []string `yaml:"aliases,omitempty"`
	Notes    string   `yaml:"notes,omitempty"`
}

// District is a district-level representative coordinate.
type District struct {
	Name     string  `yaml:"name"`
	Province string  `yaml:"-"`
	Lat      float64 `yaml:"lat"`
	Lon      float64 `yaml:"lon"`
}

// Province is a province centroid.
type Province struct {
	Name    string   `yaml:"name"`
	Lat     float64  `yaml:"lat"`
	Lon     float64  `yaml:"lon"`
	Aliases []string `yaml:"aliases,omitempty"`
}

type provinceEntry struct {
	Province  `yaml:",inline"`
	Districts []District `yaml:"districts,omitempty"`
}

type dataFile struct {
	Provinces []provinceEntry `yaml:"provinces"`
	Landmarks []Landmark      `yaml:"landmarks"`
}

// Table is the immutable, process-wide gazetteer. Construct it once with
// Load or Parse and share it freely.
type Table struct {
	landmarks []Landmark
	districts []District
	provinces []Province

	landmarkMatcher *ahocorasick.Matcher
	landmarkIndex   []int // pattern index → landmarks index
	districtMatcher *ahocorasick.Matcher
	districtIndex   []int
	provinceMatcher *ahocorasick.Matcher
	provinceIndex   []int
}

// Load builds the table from the embedded curated data file.
func Load() (*Table, error) {
	return Parse(embeddedData)
}

// Parse builds a table from YAML, for tests that need a synthetic gazetteer.
func Parse(data []byte) (*Table, error) {
	var f dataFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse gazetteer: %w", err)
	}
	if len(f.Provinces) == 0 {
		return nil, fmt.Errorf("gazetteer has no provinces")
	}

	t := &Table{}
	for _, p := range f.Provinces {
		t.provinces = append(t.provinces, p.Province)
		for _, d := range p.Districts {
			d.Province = p.Name
			t.districts = append(t.districts, d)
		}
	}
	t.landmarks = f.Landmarks

	for i, lm := range t.landmarks {
		if lm.Name == "" || lm.Province == "" {
			return nil, fmt.Errorf("landmark %d: name and province are required", i)
		}
	}

	t.landmarkMatcher, t.landmarkIndex = buildMatcher(len(t.landmarks), func(i int) []string {
		return append([]string{t.landmarks[i].Name}, t.landmarks[i].Aliases...)
	})
	t.districtMatcher, t.districtIndex = buildMatcher(len(t.districts), func(i int) []string {
		return []string{t.districts[i].Name}
	})
	t.provinceMatcher, t.provinceIndex = buildMatcher(len(t.provinces), func(i int) []string {
		return append([]string{t.provinces[i].Name}, t.provinces[i].Aliases...)
	})

	return t, nil
}

// buildMatcher collects the folded names of n entries into one Aho-Corasick
// automaton, recording which entry each pattern belongs to.
func buildMatcher(n int, names func(i int) []string) (*ahocorasick.Matcher, []int) {
	var patterns []string
	var index []int
	for i := 0; i < n; i++ {
		for _, name := range names(i) {
			patterns = append(patterns, domain.FoldKey(name))
			index = append(index, i)
		}
	}
	return ahocorasick.NewStringMatcher(patterns), index
}

// matchEntries runs the automaton over folded text and returns the distinct
// entry indices in table order.
func matchEntries(m *ahocorasick.Matcher, index []int, foldedText string) []int {
	hits := m.MatchThreadSafe([]byte(foldedText))
	if len(hits) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(hits))
	var out []int
	for _, h := range hits {
		i := index[h]
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// MatchLandmarks returns every landmark whose name or alias occurs in the
// folded text, in table order.
func (t *Table) MatchLandmarks(foldedText string) []Landmark {
	var out []Landmark
	for _, i := range matchEntries(t.landmarkMatcher, t.landmarkIndex, foldedText) {
		out = append(out, t.landmarks[i])
	}
	return out
}

// MatchDistricts returns every district whose name occurs in the folded text.
func (t *Table) MatchDistricts(foldedText string) []District {
	var out []District
	for _, i := range matchEntries(t.districtMatcher, t.districtIndex, foldedText) {
		out = append(out, t.districts[i])
	}
	return out
}

// MatchProvinces returns every province whose name or alias occurs in the
// folded text.
func (t *Table) MatchProvinces(foldedText string) []Province {
	var out []Province
	for _, i := range matchEntries(t.provinceMatcher, t.provinceIndex, foldedText) {
		out = append(out, t.provinces[i])
	}
	return out
}

// FindDistrict looks a district up by name, diacritic- and case-insensitive.
func (t *Table) FindDistrict(name string) (District, bool) {
	key := domain.FoldKey(name)
	for _, d := range t.districts {
		if domain.FoldKey(d.Name) == key {
			return d, true
		}
	}
	return District{}, false
}

// FindProvince looks a province up by name or alias.
func (t *Table) FindProvince(name string) (Province, bool) {
	key := domain.FoldKey(name)
	for _, p := range t.provinces {
		if domain.FoldKey(p.Name) == key {
			return p, true
		}
		for _, a := range p.Aliases {
			if domain.FoldKey(a) == key {
				return p, true
			}
		}
	}
	return Province{}, false
}

// Landmarks exposes the landmark table for fixtures and diagnostics.
func (t *Table) Landmarks() []Landmark { return t.landmarks }

// Size returns entry counts for startup logging.
func (t *Table) Size() (landmarks, districts, provinces int) {
	return len(t.landmarks), len(t.districts), len(t.provinces)
}
