// Package reference reduces the seasonal critical-cluster spreadsheet to the
// allow-list the reconciliation joins against.
package reference

import (
	"fmt"
	"strings"

	"critreport/internal/domain"
	"critreport/internal/normalize"

	"go.uber.org/zap"
)

// Layout maps the spreadsheet's columns to their roles.
type Layout struct {
	ClusterColumn      string // exact column name, compared folded
	CriticalityPattern string // substring of the criticality column name, compared folded
	CriticalMarker     string // value a row must carry to count as critical
}

func DefaultLayout() Layout {
	return Layout{
		ClusterColumn:      "CONJUNTO",
		CriticalityPattern: "CRITICO",
		CriticalMarker:     "Conj Crítico",
	}
}

// Columns are the resolved column identifiers for one table.
type Columns struct {
	Cluster     string
	Criticality string
}

// Resolve locates the layout's columns among the given identifiers. A
// missing role is reported as a *domain.ConfigurationError.
func (l Layout) Resolve(columns []string) (Columns, error) {
	var out Columns
	wantCluster := normalize.Fold(l.ClusterColumn)
	pattern := normalize.Fold(l.CriticalityPattern)
	for _, c := range columns {
		f := normalize.Fold(c)
		if out.Cluster == "" && f == wantCluster {
			out.Cluster = c
		}
		if out.Criticality == "" && pattern != "" && strings.Contains(f, pattern) {
			out.Criticality = c
		}
	}

	var missing []string
	if out.Criticality == "" {
		missing = append(missing, fmt.Sprintf("criticality column matching %q", l.CriticalityPattern))
	}
	if out.Cluster == "" {
		missing = append(missing, fmt.Sprintf("cluster column %q", l.ClusterColumn))
	}
	if len(missing) > 0 {
		return out, &domain.ConfigurationError{What: "reference list lacks " + strings.Join(missing, " and ")}
	}
	return out, nil
}

// Filter keeps the rows whose criticality value equals the marker and
// returns their canonical cluster names. A nil table yields a nil list;
// a table without the expected columns yields a *domain.ConfigurationError.
func Filter(t *domain.Table, layout Layout, log *zap.Logger) (domain.AllowList, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if t == nil {
		return nil, nil
	}
	cols, err := layout.Resolve(t.Columns)
	if err != nil {
		return nil, err
	}

	marker := normalize.NFC(strings.TrimSpace(layout.CriticalMarker))
	allow := make(domain.AllowList)
	for _, row := range t.Rows {
		value := normalize.NFC(strings.TrimSpace(normalize.Text(row[cols.Criticality])))
		if value != marker {
			continue
		}
		name := normalize.Cluster(row[cols.Cluster])
		if name == "" {
			continue
		}
		allow[name] = struct{}{}
	}
	log.Info("reference list loaded", zap.Int("rows", len(t.Rows)), zap.Int("critical_clusters", len(allow)))
	return allow, nil
}

// Simulated is the stand-in list used when the workbook is missing and
// simulation is enabled.
func Simulated() *domain.Table {
	const marker = "Conj Crítico"
	names := []string{"CAMPO GRANDE", "DUQUE DE CAXIAS", "JACAREPAGUA"}
	t := &domain.Table{Columns: []string{"CONJUNTO", "CRITICO?"}}
	for _, n := range names {
		t.Rows = append(t.Rows, domain.Row{"CONJUNTO": n, "CRITICO?": marker})
	}
	return t
}
