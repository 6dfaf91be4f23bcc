package domain

// Row is one raw record keyed by column identifier.
type Row map[string]any

// Table is an ordered sequence of rows plus the column identifiers the
// source reported, so an absent column is observable even with zero rows.
type Table struct {
	Columns []string
	Rows    []Row
}

func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
