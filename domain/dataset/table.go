package dataset

import (
	"fmt"
	"math"

	"tumorexpr/domain/core"
)

// StatisticalType defines variable types for analysis
type StatisticalType string

const (
	TypeNumeric     StatisticalType = "numeric"
	TypeCategorical StatisticalType = "categorical"
)

// RawTable is a header plus string rows exactly as read from a CSV or spreadsheet.
type RawTable struct {
	Source string
	Header []string
	Rows   [][]string
}

// RowCount returns the number of data rows (header excluded)
func (r *RawTable) RowCount() int {
	return len(r.Rows)
}

// ColumnCount returns the number of header columns
func (r *RawTable) ColumnCount() int {
	return len(r.Header)
}

// ColumnIndex returns the position of a header name, or -1
func (r *RawTable) ColumnIndex(name string) int {
	for i, h := range r.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the cell text, treating short rows as padded with empty cells
func (r *RawTable) Cell(row, col int) string {
	if row < 0 || row >= len(r.Rows) || col < 0 || col >= len(r.Rows[row]) {
		return ""
	}
	return r.Rows[row][col]
}

// ColumnText returns every cell of column col in row order
func (r *RawTable) ColumnText(col int) []string {
	out := make([]string, len(r.Rows))
	for i := range r.Rows {
		out[i] = r.Cell(i, col)
	}
	return out
}

// Column is one named column of a Table. Text always holds the original cell
// text; Values is populated for numeric columns with NaN marking missing cells.
type Column struct {
	Name   string
	Type   StatisticalType
	Text   []string
	Values []float64
}

// Len returns the number of cells in the column
func (c Column) Len() int {
	if c.Type == TypeNumeric {
		return len(c.Values)
	}
	return len(c.Text)
}

// NewNumericColumn builds a numeric column, rendering text with 4 decimals
func NewNumericColumn(name string, values []float64) Column {
	text := make([]string, len(values))
	for i, v := range values {
		text[i] = FormatFloat(v)
	}
	return Column{Name: name, Type: TypeNumeric, Text: text, Values: values}
}

// NewCategoricalColumn builds a text column
func NewCategoricalColumn(name string, text []string) Column {
	return Column{Name: name, Type: TypeCategorical, Text: text}
}

// FormatFloat renders a value the way every output artifact does: '.' decimal
// separator, 4 fixed decimals, empty for missing.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.4f", v)
}

// Table is the merged, row-aligned dataset. It is never mutated in place;
// WithColumn returns a new Table sharing the untouched columns.
type Table struct {
	columns []Column
	index   map[string]int
	rows    int
}

// NewTable validates that all columns have the same length and unique names
func NewTable(columns ...Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(columns))}
	for i, col := range columns {
		if _, dup := t.index[col.Name]; dup {
			return nil, core.NewSchemaError(fmt.Sprintf("duplicate column %q", col.Name))
		}
		if i == 0 {
			t.rows = col.Len()
		} else if col.Len() != t.rows {
			return nil, core.NewSchemaError(fmt.Sprintf("column %q has %d rows, expected %d", col.Name, col.Len(), t.rows))
		}
		t.index[col.Name] = i
		t.columns = append(t.columns, col)
	}
	return t, nil
}

// RowCount returns the number of samples
func (t *Table) RowCount() int {
	return t.rows
}

// ColumnCount returns the number of columns
func (t *Table) ColumnCount() int {
	return len(t.columns)
}

// ColumnNames returns column names in table order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in table order
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether the named column exists
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// RequireColumns returns a MissingColumnError naming every absent column
func (t *Table) RequireColumns(names ...string) error {
	var missing []string
	for _, n := range names {
		if !t.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return core.NewMissingColumnError("merged", missing...)
	}
	return nil
}

// WithColumn returns a new Table with col appended, or replacing the column of
// the same name in place.
func (t *Table) WithColumn(col Column) (*Table, error) {
	if len(t.columns) > 0 && col.Len() != t.rows {
		return nil, core.NewSchemaError(fmt.Sprintf("column %q has %d rows, expected %d", col.Name, col.Len(), t.rows))
	}
	cols := t.Columns()
	if i, ok := t.index[col.Name]; ok {
		cols[i] = col
	} else {
		cols = append(cols, col)
	}
	return NewTable(cols...)
}

// Records renders the table as header plus text rows, ready for CSV output
func (t *Table) Records() [][]string {
	out := make([][]string, 0, t.rows+1)
	out = append(out, t.ColumnNames())
	for r := 0; r < t.rows; r++ {
		row := make([]string, len(t.columns))
		for c, col := range t.columns {
			if col.Type == TypeNumeric {
				row[c] = FormatFloat(col.Values[r])
			} else {
				row[c] = col.Text[r]
			}
		}
		out = append(out, row)
	}
	return out
}
