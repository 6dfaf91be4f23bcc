package reference

import (
	"errors"
	"fmt"
	"os"

	"critreport/internal/domain"

	"github.com/xuri/excelize/v2"
)

// Workbook reads one sheet of an .xlsx file; the first non-empty row is
// the header.
type Workbook struct {
	Path  string
	Sheet string // empty means the first sheet
}

// Load returns the sheet as a Table. A missing file is reported with an
// error wrapping os.ErrNotExist so callers can fall back.
func (w Workbook) Load() (*domain.Table, error) {
	if _, err := os.Stat(w.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("workbook %s: %w", w.Path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("stat workbook %s: %w", w.Path, err)
	}

	f, err := excelize.OpenFile(w.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", w.Path, err)
	}
	defer f.Close()

	sheet := w.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &domain.ConfigurationError{What: fmt.Sprintf("workbook %s has no sheets", w.Path)}
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return tableFromRows(rows), nil
}

func tableFromRows(rows [][]string) *domain.Table {
	t := &domain.Table{}
	start := -1
	for i, r := range rows {
		if len(r) > 0 {
			start = i
			break
		}
	}
	if start < 0 {
		return t
	}

	t.Columns = append(t.Columns, rows[start]...)
	for _, r := range rows[start+1:] {
		if len(r) == 0 {
			continue
		}
		row := make(domain.Row, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(r) {
				row[col] = r[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
