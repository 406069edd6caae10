package table

import (
	"fmt"
	"sort"
)

// Table is the in-memory frame passed between pipeline stages: an ordered
// set of column names plus one map per row. Cell values are nil, string,
// int64, float64, bool or time.Time.
type Table struct {
	Columns []string
	Rows    []map[string]interface{}
}

// New creates an empty table with the given column order.
func New(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols, Rows: []map[string]interface{}{}}
}

// Append adds a row. Keys not present in the column set are ignored by
// consumers; missing keys read back as nil.
func (t *Table) Append(row map[string]interface{}) {
	t.Rows = append(t.Rows, row)
}

// Len returns the row count.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the named column is declared.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Get returns the value at (row, column); nil when absent.
func (t *Table) Get(row int, column string) interface{} {
	if row < 0 || row >= len(t.Rows) {
		return nil
	}
	return t.Rows[row][column]
}

// Select returns a new table restricted to the given columns, in the given
// order. Unknown columns come back as all-nil.
func (t *Table) Select(columns ...string) *Table {
	out := New(columns...)
	for _, row := range t.Rows {
		nr := make(map[string]interface{}, len(columns))
		for _, c := range columns {
			nr[c] = row[c]
		}
		out.Append(nr)
	}
	return out
}

// RenameColumns returns a new table with matching columns renamed; columns
// absent from the mapping pass through unchanged. The receiver is never
// mutated.
func (t *Table) RenameColumns(mapping map[string]string) *Table {
	renamed := func(c string) string {
		if n, ok := mapping[c]; ok {
			return n
		}
		return c
	}
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = renamed(c)
	}
	out := New(cols...)
	for _, row := range t.Rows {
		nr := make(map[string]interface{}, len(row))
		for k, v := range row {
			nr[renamed(k)] = v
		}
		out.Append(nr)
	}
	return out
}

// AddColumn declares a new column and fills it from values. Values shorter
// than the row count leave the remainder nil.
func (t *Table) AddColumn(name string, values []interface{}) error {
	if t.HasColumn(name) {
		return fmt.Errorf("column %q already exists", name)
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		if i < len(values) {
			t.Rows[i][name] = values[i]
		}
	}
	return nil
}

// SetConstant declares a new column holding the same value in every row.
func (t *Table) SetConstant(name string, value interface{}) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
	for i := range t.Rows {
		t.Rows[i][name] = value
	}
}

// Copy returns a deep copy (column slice and row maps) so callers can
// mutate the result without aliasing the source.
func (t *Table) Copy() *Table {
	out := New(t.Columns...)
	out.Rows = make([]map[string]interface{}, 0, len(t.Rows))
	for _, row := range t.Rows {
		nr := make(map[string]interface{}, len(row))
		for k, v := range row {
			nr[k] = v
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// SortBy sorts rows in place with a stable sort.
func (t *Table) SortBy(less func(a, b map[string]interface{}) bool) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return less(t.Rows[i], t.Rows[j])
	})
}

// Concat appends the rows of others to a copy of t, unioning column sets in
// first-seen order.
func Concat(tables ...*Table) *Table {
	out := New()
	seen := map[string]bool{}
	for _, tbl := range tables {
		if tbl == nil {
			continue
		}
		for _, c := range tbl.Columns {
			if !seen[c] {
				seen[c] = true
				out.Columns = append(out.Columns, c)
			}
		}
		out.Rows = append(out.Rows, tbl.Rows...)
	}
	return out
}
