// Package aggregate groups matched tickets by region and scope for the
// status report.
package aggregate

import (
	"sort"

	"critreport/internal/domain"
)

type RegionAggregate struct {
	Region      string
	Occurrences int
	ImpactSum   int
}

type ScopeAggregate struct {
	Scope       string
	Occurrences int
}

// DetailLine is one matched ticket as rendered. Label and Indicator come
// from the raw status code, so unknown codes still render.
type DetailLine struct {
	Record    domain.LiveRecord
	Label     string
	Indicator domain.Indicator
}

type RegionDetail struct {
	Region string
	Lines  []DetailLine
}

type Summary struct {
	Total            int
	DistinctClusters int
	Regions          []RegionAggregate // by impact sum, descending
	Scopes           []ScopeAggregate  // by count, descending
	RegionOrder      []string
	Details          []RegionDetail // one per entry of RegionOrder
}

// Summarize computes every block of the report from a match set.
func Summarize(m *domain.MatchSet) Summary {
	var s Summary
	if m.Empty() {
		return s
	}
	s.Total = len(m.Records)
	if m.Roles.Has(domain.RoleCluster) {
		s.DistinctClusters = distinctClusters(m.Records)
	}
	if m.Roles.Has(domain.RoleRegion) && m.Roles.Has(domain.RoleImpact) {
		s.Regions = byRegion(m.Records)
	}
	if m.Roles.Has(domain.RoleScope) {
		s.Scopes = byScope(m.Records)
	}
	if m.Roles.Has(domain.RoleRegion) {
		s.RegionOrder = regionOrder(s.Regions, m.Records)
		s.Details = details(s.RegionOrder, m.Records)
	}
	return s
}

func distinctClusters(records []domain.LiveRecord) int {
	seen := make(map[string]bool)
	for _, r := range records {
		seen[r.Cluster] = true
	}
	return len(seen)
}

func byRegion(records []domain.LiveRecord) []RegionAggregate {
	idx := make(map[string]int)
	var out []RegionAggregate
	for _, r := range records {
		if r.Region == "" {
			continue
		}
		i, ok := idx[r.Region]
		if !ok {
			i = len(out)
			idx[r.Region] = i
			out = append(out, RegionAggregate{Region: r.Region})
		}
		out[i].Occurrences++
		out[i].ImpactSum += r.Impact
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ImpactSum != out[j].ImpactSum {
			return out[i].ImpactSum > out[j].ImpactSum
		}
		return out[i].Region < out[j].Region
	})
	return out
}

func byScope(records []domain.LiveRecord) []ScopeAggregate {
	idx := make(map[string]int)
	var out []ScopeAggregate
	for _, r := range records {
		i, ok := idx[r.Scope]
		if !ok {
			i = len(out)
			idx[r.Scope] = i
			out = append(out, ScopeAggregate{Scope: r.Scope})
		}
		out[i].Occurrences++
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Occurrences != out[j].Occurrences {
			return out[i].Occurrences > out[j].Occurrences
		}
		return out[i].Scope < out[j].Scope
	})
	return out
}

// regionOrder follows the regional ranking; without one it falls back to
// the distinct regions in lexical order. Records without a region count in
// the totals but belong to no region.
func regionOrder(regions []RegionAggregate, records []domain.LiveRecord) []string {
	if len(regions) > 0 {
		out := make([]string, len(regions))
		for i, r := range regions {
			out[i] = r.Region
		}
		return out
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if r.Region != "" && !seen[r.Region] {
			seen[r.Region] = true
			out = append(out, r.Region)
		}
	}
	sort.Strings(out)
	return out
}

func details(order []string, records []domain.LiveRecord) []RegionDetail {
	out := make([]RegionDetail, 0, len(order))
	for _, region := range order {
		d := RegionDetail{Region: region}
		for _, r := range records {
			if r.Region != region {
				continue
			}
			d.Lines = append(d.Lines, DetailLine{
				Record:    r,
				Label:     domain.StatusLabel(r.Status),
				Indicator: domain.IndicatorFor(r.Status),
			})
		}
		sort.SliceStable(d.Lines, func(i, j int) bool {
			return d.Lines[i].Record.Impact > d.Lines[j].Record.Impact
		})
		out = append(out, d)
	}
	return out
}
