package domain

import (
	"database/sql"
	"sort"
)

// Role is a semantic column of the live ticket data.
type Role uint16

const (
	RoleRegion Role = 1 << iota
	RoleOccurrence
	RoleScope
	RoleCluster
	RoleStatus
	RoleComplaintAt
	RoleLoadedAt
	RoleImpact
)

var roleNames = map[Role]string{
	RoleRegion:      "region",
	RoleOccurrence:  "occurrence",
	RoleScope:       "scope",
	RoleCluster:     "cluster",
	RoleStatus:      "status",
	RoleComplaintAt: "complaint_at",
	RoleLoadedAt:    "loaded_at",
	RoleImpact:      "impact",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Roles is the set of semantic columns present in a batch.
type Roles uint16

func (rs Roles) Has(r Role) bool { return rs&Roles(r) != 0 }

func (rs Roles) With(r Role) Roles { return rs | Roles(r) }

type LiveRecord struct {
	Region      string
	Occurrence  string
	Scope       string
	Cluster     string
	Status      string
	ComplaintAt sql.NullTime // Valid=false is the missing marker
	LoadedAt    sql.NullTime
	Impact      int
}

// LiveBatch is the typed, normalized live data. A nil *LiveBatch means the
// source was unavailable; an empty one means it answered with no rows.
type LiveBatch struct {
	Roles   Roles
	Records []LiveRecord
}

func (b *LiveBatch) Empty() bool {
	return b == nil || len(b.Records) == 0
}

// AllowList holds canonical cluster names marked critical. A nil AllowList
// means the reference list could not be loaded.
type AllowList map[string]struct{}

func NewAllowList(names ...string) AllowList {
	out := make(AllowList, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

func (a AllowList) Contains(name string) bool {
	_, ok := a[name]
	return ok
}

func (a AllowList) Names() []string {
	out := make([]string, 0, len(a))
	for n := range a {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// MatchSet is the inner join of live records and the allow-list. Records
// carry every live attribute; the allow-list only contributes the join.
type MatchSet struct {
	Roles   Roles
	Records []LiveRecord
}

func (m *MatchSet) Empty() bool {
	return m == nil || len(m.Records) == 0
}

func (m *MatchSet) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Records)
}
