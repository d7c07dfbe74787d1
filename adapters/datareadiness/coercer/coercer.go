package coercer

import (
	"math"
	"strconv"
	"strings"

	"tumorexpr/domain/dataset"
)

// Outcome classifies what happened to a single cell
type Outcome int

const (
	Parsed Outcome = iota
	Missing
	Failed
)

// TypeCoercer handles deterministic, permissive numeric coercion: a cell that
// does not parse becomes missing and never aborts the run.
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the coercion thresholds and rules
type CoercionConfig struct {
	NumericThreshold float64  `json:"numeric_threshold"` // share of non-missing cells that must parse for a column to count as numeric
	MissingTokens    []string `json:"missing_tokens"`    // cells read as missing without a warning
}

// DefaultCoercionConfig returns sensible defaults
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		NumericThreshold: 1.0,
		MissingTokens:    []string{"", "na", "n/a", "nan", "null", "none", "#n/a", "-"},
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	return &TypeCoercer{config: config}
}

// Default returns a coercer using DefaultCoercionConfig
func Default() *TypeCoercer {
	return NewTypeCoercer(DefaultCoercionConfig())
}

// Coerce parses one cell. Missing tokens yield (NaN, Missing); anything else
// that is not a finite number yields (NaN, Failed).
func (c *TypeCoercer) Coerce(raw string) (float64, Outcome) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, `"'`)
	clean = strings.TrimSpace(clean)

	if c.isMissingToken(clean) {
		return math.NaN(), Missing
	}

	// Handle parentheses for negative numbers: (123) -> -123
	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		clean = "-" + strings.TrimSuffix(strings.TrimPrefix(clean, "("), ")")
	}

	// Handles scientific notation; rejects ',' decimals on purpose since
	// every input uses '.' as the decimal separator.
	val, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return math.NaN(), Failed
	}
	return val, Parsed
}

// CoerceColumn converts a text column, returning one CoercionWarning per
// non-empty cell that failed to parse.
func (c *TypeCoercer) CoerceColumn(name string, text []string) ([]float64, []dataset.Warning) {
	values := make([]float64, len(text))
	var warnings []dataset.Warning
	for i, raw := range text {
		v, outcome := c.Coerce(raw)
		values[i] = v
		if outcome == Failed {
			warnings = append(warnings, dataset.CoercionWarning(i, name, raw))
		}
	}
	return values, warnings
}

// Numeric returns the numeric view of a table column: the stored values for
// numeric columns, a coerced copy of the text otherwise.
func (c *TypeCoercer) Numeric(col dataset.Column) ([]float64, []dataset.Warning) {
	if col.Type == dataset.TypeNumeric {
		out := make([]float64, len(col.Values))
		copy(out, col.Values)
		return out, nil
	}
	return c.CoerceColumn(col.Name, col.Text)
}

// AnalyzeTypeDistribution counts how many cells of a column parse as numbers
func (c *TypeCoercer) AnalyzeTypeDistribution(text []string) TypeAnalysis {
	analysis := TypeAnalysis{TotalCount: len(text)}
	for _, raw := range text {
		_, outcome := c.Coerce(raw)
		switch outcome {
		case Parsed:
			analysis.ValidCount++
			analysis.NumericCount++
		case Failed:
			analysis.ValidCount++
		}
	}
	if analysis.ValidCount > 0 {
		analysis.NumericRatio = float64(analysis.NumericCount) / float64(analysis.ValidCount)
	}
	analysis.RecommendedType = c.determineRecommendedType(analysis)
	return analysis
}

// InferType reports whether a column should be treated as numeric
func (c *TypeCoercer) InferType(col dataset.Column) dataset.StatisticalType {
	if col.Type == dataset.TypeNumeric {
		return dataset.TypeNumeric
	}
	return c.AnalyzeTypeDistribution(col.Text).RecommendedType
}

func (c *TypeCoercer) isMissingToken(s string) bool {
	lower := strings.ToLower(s)
	for _, tok := range c.config.MissingTokens {
		if lower == tok {
			return true
		}
	}
	return false
}

// determineRecommendedType chooses the best type based on analysis
func (c *TypeCoercer) determineRecommendedType(analysis TypeAnalysis) dataset.StatisticalType {
	if analysis.NumericCount > 0 && analysis.NumericRatio >= c.config.NumericThreshold {
		return dataset.TypeNumeric
	}
	return dataset.TypeCategorical
}

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount      int                     `json:"total_count"`
	ValidCount      int                     `json:"valid_count"`
	NumericCount    int                     `json:"numeric_count"`
	NumericRatio    float64                 `json:"numeric_ratio"`
	RecommendedType dataset.StatisticalType `json:"recommended_type"`
}
