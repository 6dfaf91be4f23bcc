// Package source fetches the live ticket rows from the operational database.
package source

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"time"

	"critreport/internal/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

//go:embed live_tickets.sql
var defaultQuery string

// DefaultQuery is the built-in live ticket query.
func DefaultQuery() string { return defaultQuery }

// LoadQuery returns the query stored at path, or the built-in one when path
// is empty.
func LoadQuery(path string) (string, error) {
	if path == "" {
		return defaultQuery, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &domain.ConfigurationError{What: "source query file " + path, Err: err}
	}
	return string(data), nil
}

// SQL runs one query through database/sql and returns every row. Driver is
// "pgx" or "sqlite3".
type SQL struct {
	Driver  string
	DSN     string
	Query   string
	Timeout time.Duration // zero leaves the deadline to ctx
	Log     *zap.Logger
}

// Fetch connects, runs the query and closes the connection. An unreachable
// database is reported as *domain.ConnectionError.
func (s *SQL) Fetch(ctx context.Context) (*domain.Table, error) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	db, err := sql.Open(s.Driver, s.DSN)
	if err != nil {
		return nil, &domain.ConnectionError{Source: s.Driver, Err: err}
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, &domain.ConnectionError{Source: s.Driver, Err: err}
	}

	started := time.Now()
	rows, err := db.QueryContext(ctx, s.Query)
	if err != nil {
		return nil, fmt.Errorf("run live query: %w", err)
	}
	defer rows.Close()

	t, err := scanTable(rows)
	if err != nil {
		return nil, fmt.Errorf("scan live rows: %w", err)
	}
	log.Info("live rows fetched", zap.Int("rows", t.Len()), zap.Duration("elapsed", time.Since(started)))
	return t, nil
}

func scanTable(rows *sql.Rows) (*domain.Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	t := &domain.Table{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(domain.Row, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		t.Rows = append(t.Rows, row)
	}
	return t, rows.Err()
}

// Simulated is the stand-in dataset used when the database is unreachable
// and simulation is enabled.
func Simulated(now time.Time) *domain.Table {
	t := &domain.Table{Columns: []string{"REGIONAL", "OCORRENCIA", "ABRANGENCIA", "DES_CONJUNTO", "SITUACAO", "DH_RECLA", "CI"}}
	data := []struct {
		region, occ, scope, cluster, status string
		ci                                  int
	}{
		{"01", "001", "A", "CAMPO GRANDE", "P", 150},
		{"02", "002", "B", "DUQUE DE CAXIAS", "A", 2000},
		{"03", "003", "C", "BANGU", "P", 50},
		{"04", "004", "D", "CAMPO GRANDE", "D", 300},
		{"05", "005", "E", "JACAREPAGUA", "P", 96},
	}
	for _, d := range data {
		t.Rows = append(t.Rows, domain.Row{
			"REGIONAL":     d.region,
			"OCORRENCIA":   d.occ,
			"ABRANGENCIA":  d.scope,
			"DES_CONJUNTO": d.cluster,
			"SITUACAO":     d.status,
			"DH_RECLA":     now,
			"CI":           d.ci,
		})
	}
	return t
}
