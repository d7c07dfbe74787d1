package dataset

import "fmt"

// WarningKind classifies a recoverable problem noticed during a run
type WarningKind string

const (
	WarnCoercion      WarningKind = "coercion"
	WarnExcludedGroup WarningKind = "excluded_group"
	WarnDroppedRow    WarningKind = "dropped_row"
	WarnNormality     WarningKind = "normality"
	WarnConvergence   WarningKind = "convergence"
	WarnExtraGenes    WarningKind = "extra_genes"
	WarnTies          WarningKind = "ties"
)

// Warning is returned alongside results, never instead of them.
// Row is the zero-based sample index, or -1 when the warning is not about a row.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
	Row     int         `json:"row"`
	Column  string      `json:"column,omitempty"`
	Value   string      `json:"value,omitempty"`
}

// CoercionWarning records a cell that failed numeric parsing and became missing
func CoercionWarning(row int, column, value string) Warning {
	return Warning{
		Kind:    WarnCoercion,
		Message: fmt.Sprintf("value %q in column %s is not numeric, treated as missing", value, column),
		Row:     row,
		Column:  column,
		Value:   value,
	}
}

// DroppedRowWarning records a row excluded from a computation
func DroppedRowWarning(row int, column, reason string) Warning {
	return Warning{
		Kind:    WarnDroppedRow,
		Message: fmt.Sprintf("row %d dropped: %s", row, reason),
		Row:     row,
		Column:  column,
	}
}

// NewWarning builds a warning that is not tied to a specific row
func NewWarning(kind WarningKind, format string, args ...interface{}) Warning {
	return Warning{Kind: kind, Message: fmt.Sprintf(format, args...), Row: -1}
}

// CountWarnings returns how many warnings have the given kind
func CountWarnings(ws []Warning, kind WarningKind) int {
	n := 0
	for _, w := range ws {
		if w.Kind == kind {
			n++
		}
	}
	return n
}
