package source

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"critreport/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func seedTickets(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tickets.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE tickets (
			regional TEXT, num_ocorr TEXT, abrangencia TEXT,
			conjunto TEXT, situacao TEXT, dh_recla TEXT, clientes INTEGER
		);
		INSERT INTO tickets VALUES
			('OESTE', '00123', 'RAMAL', 'campo grande ', 'P', '2026-10-14 08:30:00', 150),
			('OESTE', '00124', 'TRAFO', 'Bangu', 'D', NULL, 40);
	`)
	require.NoError(t, err)
	return path
}

const testQuery = `SELECT regional AS REGIONAL, num_ocorr AS OCORRENCIA, abrangencia AS ABRANGENCIA,
	conjunto AS DES_CONJUNTO, situacao AS SITUACAO, dh_recla AS DH_RECLA, clientes AS CI
	FROM tickets ORDER BY num_ocorr`

func TestFetchSQLite(t *testing.T) {
	src := &SQL{Driver: "sqlite3", DSN: seedTickets(t), Query: testQuery, Timeout: 5 * time.Second, Log: zaptest.NewLogger(t)}

	table, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"REGIONAL", "OCORRENCIA", "ABRANGENCIA", "DES_CONJUNTO", "SITUACAO", "DH_RECLA", "CI"}, table.Columns)
	require.Equal(t, 2, table.Len())

	first := table.Rows[0]
	assert.Equal(t, "00123", first["OCORRENCIA"])
	assert.Equal(t, "campo grande ", first["DES_CONJUNTO"])
	assert.EqualValues(t, 150, first["CI"])
	assert.Nil(t, table.Rows[1]["DH_RECLA"])
}

func TestFetchEmptyResult(t *testing.T) {
	src := &SQL{Driver: "sqlite3", DSN: seedTickets(t), Query: testQuery + " LIMIT 0"}
	table, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, table.Empty())
	assert.Len(t, table.Columns, 7)
}

func TestFetchUnreachable(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "missing", "x.db") + "?mode=ro"
	src := &SQL{Driver: "sqlite3", DSN: dsn, Query: testQuery}

	_, err := src.Fetch(context.Background())
	var connErr *domain.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "sqlite3", connErr.Source)
}

func TestFetchUnknownDriver(t *testing.T) {
	src := &SQL{Driver: "oracle", DSN: "x", Query: testQuery}
	_, err := src.Fetch(context.Background())
	var connErr *domain.ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func TestFetchBadQuery(t *testing.T) {
	src := &SQL{Driver: "sqlite3", DSN: seedTickets(t), Query: "SELECT * FROM nowhere"}
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	var connErr *domain.ConnectionError
	assert.False(t, strings.Contains(err.Error(), "connect"))
	assert.False(t, errors.As(err, &connErr))
}

func TestLoadQuery(t *testing.T) {
	q, err := LoadQuery("")
	require.NoError(t, err)
	assert.Equal(t, DefaultQuery(), q)
	assert.Contains(t, q, "DES_CONJUNTO")

	path := filepath.Join(t.TempDir(), "q.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT 1"), 0644))
	q, err = LoadQuery(path)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", q)

	_, err = LoadQuery(filepath.Join(t.TempDir(), "absent.sql"))
	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestSimulated(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	table := Simulated(now)
	require.Equal(t, 5, table.Len())
	assert.Equal(t, "CAMPO GRANDE", table.Rows[0]["DES_CONJUNTO"])
	assert.Equal(t, now, table.Rows[4]["DH_RECLA"])
}
