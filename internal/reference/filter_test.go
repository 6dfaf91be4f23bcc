package reference

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"critreport/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestResolve(t *testing.T) {
	cols, err := DefaultLayout().Resolve([]string{"Regional", " conjunto ", "Crítico?"})
	require.NoError(t, err)
	assert.Equal(t, " conjunto ", cols.Cluster)
	assert.Equal(t, "Crítico?", cols.Criticality)
}

func TestResolveMissingColumns(t *testing.T) {
	tests := map[string][]string{
		"no criticality": {"CONJUNTO", "REGIONAL"},
		"no cluster":     {"CONJUNTOS", "CRITICO?"},
		"neither":        {"A", "B"},
	}
	for name, columns := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DefaultLayout().Resolve(columns)
			var cfgErr *domain.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, cfgErr.What, "reference list lacks")
		})
	}
}

func TestFilterKeepsMarkedClusters(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	table := &domain.Table{
		Columns: []string{"CONJUNTO", "CRITICO?"},
		Rows: []domain.Row{
			{"CONJUNTO": " campo grande ", "CRITICO?": "Conj Crítico"},
			// decomposed accent compares equal after composition
			{"CONJUNTO": "Bangu", "CRITICO?": "Conj Cri\u0301tico "},
			{"CONJUNTO": "Madureira", "CRITICO?": "Conj Normal"},
			{"CONJUNTO": "Meier", "CRITICO?": "conj crítico"},
			{"CONJUNTO": "", "CRITICO?": "Conj Crítico"},
		},
	}

	allow, err := Filter(table, DefaultLayout(), zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, []string{"BANGU", "CAMPO GRANDE"}, allow.Names())

	entries := logs.FilterMessage("reference list loaded").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 2, entries[0].ContextMap()["critical_clusters"])
}

func TestFilterNilAndEmpty(t *testing.T) {
	allow, err := Filter(nil, DefaultLayout(), nil)
	require.NoError(t, err)
	assert.Nil(t, allow)

	allow, err = Filter(&domain.Table{Columns: []string{"CONJUNTO", "CRITICO?"}}, DefaultLayout(), nil)
	require.NoError(t, err)
	require.NotNil(t, allow)
	assert.Empty(t, allow)
}

func TestFilterMissingColumn(t *testing.T) {
	_, err := Filter(&domain.Table{Columns: []string{"CONJUNTO"}}, DefaultLayout(), nil)
	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestSimulated(t *testing.T) {
	allow, err := Filter(Simulated(), DefaultLayout(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"CAMPO GRANDE", "DUQUE DE CAXIAS", "JACAREPAGUA"}, allow.Names())
}

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	path := filepath.Join(t.TempDir(), "critico.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestWorkbookLoad(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"REGIONAL", "CONJUNTO", "CRITICO?"},
		{"OESTE", "CAMPO GRANDE", "Conj Crítico"},
		{"NORTE", "MADUREIRA"},
	})

	table, err := Workbook{Path: path}.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"REGIONAL", "CONJUNTO", "CRITICO?"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "CAMPO GRANDE", table.Rows[0]["CONJUNTO"])
	assert.Equal(t, "", table.Rows[1]["CRITICO?"])

	allow, err := Filter(table, DefaultLayout(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"CAMPO GRANDE"}, allow.Names())
}

func TestWorkbookMissingFile(t *testing.T) {
	_, err := Workbook{Path: filepath.Join(t.TempDir(), "absent.xlsx")}.Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWorkbookUnknownSheet(t *testing.T) {
	path := writeWorkbook(t, [][]any{{"CONJUNTO", "CRITICO?"}})
	_, err := Workbook{Path: path, Sheet: "Planilha9"}.Load()
	assert.Error(t, err)
}
