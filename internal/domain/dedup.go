package domain

import (
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// DuplicateGroup is an ephemeral cluster of reports sharing a normalized
// title. A group with one member is its own canonical.
type DuplicateGroup struct {
	Key       string
	Members   []Report
	Canonical Report
}

// GroupStat describes one multi-member group for operator review.
type GroupStat struct {
	NormalizedTitle string   `json:"normalized_title"`
	Members         int      `json:"members"`
	Sources         []string `json:"sources"` // distinct source-URL domains
	MemberIDs       []string `json:"member_ids"`
}

// DedupStats summarizes one deduplication pass.
type DedupStats struct {
	Original int         `json:"original"`
	Deduped  int         `json:"deduped"`
	Removed  int         `json:"removed"`
	Groups   []GroupStat `json:"groups,omitempty"`
}

// Deduplicate groups reports by normalized title and returns one canonical
// representative per group, in first-seen group order. Every input report
// belongs to exactly one group; reports without a usable title stand alone.
func Deduplicate(reports []Report) []Report {
	groups := groupByTitle(reports)
	out := make([]Report, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Canonical)
	}
	return out
}

// DeduplicateWithStats is Deduplicate plus per-group statistics for groups
// with more than one member. The stats never alter selection.
func DeduplicateWithStats(reports []Report) ([]Report, DedupStats) {
	groups := groupByTitle(reports)

	stats := DedupStats{Original: len(reports), Deduped: len(groups)}
	stats.Removed = stats.Original - stats.Deduped

	out := make([]Report, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Canonical)
		if len(g.Members) < 2 {
			continue
		}
		gs := GroupStat{
			NormalizedTitle: g.Key,
			Members:         len(g.Members),
			Sources:         sourceDomains(g.Members),
		}
		for _, m := range g.Members {
			gs.MemberIDs = append(gs.MemberIDs, m.ID)
		}
		stats.Groups = append(stats.Groups, gs)
	}
	return out, stats
}

// groupByTitle buckets reports by normalized title, preserving first-seen
// group order, and selects each group's canonical as it goes.
func groupByTitle(reports []Report) []DuplicateGroup {
	index := make(map[string]int, len(reports))
	groups := make([]DuplicateGroup, 0, len(reports))

	for _, r := range reports {
		key := r.NormalizedTitle
		if key == "" {
			key = NormalizeTitle(r.Title)
		}
		if key == "" {
			// Titleless reports never group with each other.
			key = "untitled-" + uuid.NewString()
		}

		i, seen := index[key]
		if !seen {
			index[key] = len(groups)
			groups = append(groups, DuplicateGroup{Key: key, Members: []Report{r}, Canonical: r})
			continue
		}
		groups[i].Members = append(groups[i].Members, r)
		// Strictly-better comparison keeps selection stable: on a full tie
		// the earlier input remains canonical.
		if betterCanonical(r, groups[i].Canonical) {
			groups[i].Canonical = r
		}
	}
	return groups
}

// betterCanonical reports whether candidate should replace current as the
// group representative. Strict total order: trust score, then media
// presence, then description length, then recency.
func betterCanonical(candidate, current Report) bool {
	if candidate.TrustScore != current.TrustScore {
		return candidate.TrustScore > current.TrustScore
	}
	candMedia, currMedia := len(candidate.Media) > 0, len(current.Media) > 0
	if candMedia != currMedia {
		return candMedia
	}
	if len(candidate.Description) != len(current.Description) {
		return len(candidate.Description) > len(current.Description)
	}
	return candidate.CreatedAt.After(current.CreatedAt)
}

// sourceDomains extracts the distinct source-URL hosts of a group's members,
// with any leading "www." stripped, sorted for stable output.
func sourceDomains(members []Report) []string {
	seen := make(map[string]struct{})
	for _, m := range members {
		if m.SourceURL == "" {
			continue
		}
		u, err := url.Parse(m.SourceURL)
		if err != nil || u.Hostname() == "" {
			continue
		}
		host := strings.TrimPrefix(u.Hostname(), "www.")
		seen[host] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	domains := make([]string, 0, len(seen))
	for d := range seen {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}
