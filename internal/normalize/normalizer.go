// Package normalize turns raw tabular rows from either source into the
// canonical shape the rest of the pipeline relies on.
package normalize

import (
	"database/sql"
	"strings"
	"time"

	"critreport/internal/domain"

	"go.uber.org/zap"
)

type Normalizer struct {
	roles map[domain.Role]map[string]bool // folded column names per role
	order []domain.Role
	loc   *time.Location
	log   *zap.Logger
}

// New builds a Normalizer from a role → column-names mapping. A nil logger
// is replaced with a no-op one.
func New(columns map[domain.Role][]string, loc *time.Location, log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	n := &Normalizer{
		roles: make(map[domain.Role]map[string]bool, len(columns)),
		loc:   loc,
		log:   log,
	}
	for role, names := range columns {
		set := make(map[string]bool, len(names))
		for _, name := range names {
			if f := Fold(name); f != "" {
				set[f] = true
			}
		}
		n.roles[role] = set
	}
	for role := domain.RoleRegion; role <= domain.RoleImpact; role <<= 1 {
		if _, ok := n.roles[role]; ok {
			n.order = append(n.order, role)
		}
	}
	return n
}

// RoleOf reports which role a column identifier carries.
func (n *Normalizer) RoleOf(column string) (domain.Role, bool) {
	f := Fold(column)
	for _, role := range n.order {
		if n.roles[role][f] {
			return role, true
		}
	}
	return 0, false
}

// Table returns a copy of t with canonical column identifiers and values.
// Nil and row-less tables pass through unchanged.
func (n *Normalizer) Table(t *domain.Table) *domain.Table {
	if t == nil || len(t.Rows) == 0 {
		return t
	}

	type column struct {
		raw, canon string
		role       domain.Role
		hasRole    bool
	}
	var cols []column
	seen := make(map[string]bool, len(t.Columns))
	for _, raw := range t.Columns {
		canon := Column(raw)
		if seen[canon] {
			n.log.Warn("duplicate column after normalization, keeping first", zap.String("column", canon))
			continue
		}
		seen[canon] = true
		role, ok := n.RoleOf(canon)
		cols = append(cols, column{raw: raw, canon: canon, role: role, hasRole: ok})
	}

	out := &domain.Table{
		Columns: make([]string, 0, len(cols)),
		Rows:    make([]domain.Row, 0, len(t.Rows)),
	}
	for _, c := range cols {
		out.Columns = append(out.Columns, c.canon)
	}

	fallbacks := make(map[string]int)
	for _, row := range t.Rows {
		nr := make(domain.Row, len(cols))
		for _, c := range cols {
			v := row[c.raw]
			if !c.hasRole {
				nr[c.canon] = v
				continue
			}
			switch c.role {
			case domain.RoleCluster:
				nr[c.canon] = Cluster(v)
			case domain.RoleOccurrence:
				nr[c.canon] = Occurrence(v)
			case domain.RoleComplaintAt, domain.RoleLoadedAt:
				d, err := Date(c.canon, v, n.loc)
				if err != nil {
					fallbacks[c.canon]++
				}
				nr[c.canon] = d
			case domain.RoleImpact:
				i, err := Impact(c.canon, v)
				if err != nil {
					fallbacks[c.canon]++
				}
				nr[c.canon] = i
			default:
				nr[c.canon] = v
			}
		}
		out.Rows = append(out.Rows, nr)
	}

	for col, count := range fallbacks {
		n.log.Debug("unparsable values replaced by fallback", zap.String("column", col), zap.Int("count", count))
	}
	return out
}

// Records types a table into a LiveBatch. The table is normalized first, so
// callers may pass raw or already-normalized tables. A nil table yields a
// nil batch.
func (n *Normalizer) Records(t *domain.Table) *domain.LiveBatch {
	if t == nil {
		return nil
	}
	t = n.Table(t)

	columnFor := make(map[domain.Role]string)
	var roles domain.Roles
	for _, c := range t.Columns {
		role, ok := n.RoleOf(c)
		if !ok {
			continue
		}
		if _, taken := columnFor[role]; taken {
			continue
		}
		columnFor[role] = Column(c)
		roles = roles.With(role)
	}

	batch := &domain.LiveBatch{Roles: roles, Records: make([]domain.LiveRecord, 0, len(t.Rows))}
	for _, row := range t.Rows {
		get := func(role domain.Role) any {
			col, ok := columnFor[role]
			if !ok {
				return nil
			}
			return row[col]
		}
		rec := domain.LiveRecord{
			Region:     strings.TrimSpace(Text(get(domain.RoleRegion))),
			Occurrence: Occurrence(get(domain.RoleOccurrence)),
			Scope:      strings.TrimSpace(Text(get(domain.RoleScope))),
			Cluster:    Cluster(get(domain.RoleCluster)),
			Status:     strings.TrimSpace(Text(get(domain.RoleStatus))),
		}
		rec.ComplaintAt = nullTime(get(domain.RoleComplaintAt))
		rec.LoadedAt = nullTime(get(domain.RoleLoadedAt))
		if i, ok := get(domain.RoleImpact).(int); ok {
			rec.Impact = i
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch
}

func nullTime(v any) sql.NullTime {
	if t, ok := v.(sql.NullTime); ok {
		return t
	}
	return sql.NullTime{}
}
