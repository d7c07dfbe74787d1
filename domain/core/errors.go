package core

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - centralized error definitions
var (
	// Input contract errors
	ErrSchema        = errors.New("schema error")
	ErrMissingColumn = fmt.Errorf("%w: missing column", ErrSchema)

	// Analysis errors
	ErrInsufficientGroups       = errors.New("insufficient groups")
	ErrInsufficientData         = errors.New("insufficient data for analysis")
	ErrDegenerateStratification = errors.New("degenerate stratification")
	ErrConvergence              = errors.New("model did not converge")

	// Request errors
	ErrValidation = errors.New("validation failed")
)

// Error constructors with context
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w for %s: %s", ErrValidation, field, reason)
}

func NewMissingColumnError(table string, columns ...string) error {
	return fmt.Errorf("%w: %s table lacks %s", ErrMissingColumn, table, strings.Join(columns, ", "))
}

func NewRowCountMismatchError(metadataRows, sampleColumns int) error {
	return fmt.Errorf("%w: metadata has %d rows but expression matrix has %d sample columns",
		ErrSchema, metadataRows, sampleColumns)
}

func NewSchemaError(reason string) error {
	return fmt.Errorf("%w: %s", ErrSchema, reason)
}

func NewInsufficientGroupsError(column string, groups int) error {
	return fmt.Errorf("%w: column %s has %d usable groups, need at least 2", ErrInsufficientGroups, column, groups)
}

func NewDegenerateStratificationError(column string, median float64) error {
	return fmt.Errorf("%w: every %s value falls in one stratum around median %.4f", ErrDegenerateStratification, column, median)
}

// Error checking helpers
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

func IsAnalysisError(err error) bool {
	return errors.Is(err, ErrInsufficientGroups) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrDegenerateStratification) ||
		errors.Is(err, ErrConvergence)
}
