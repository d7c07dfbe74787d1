// Package annotation turns a post-hoc p-value matrix into significance
// brackets for a grouped plot: which pairs to connect, at what height, and
// with which star marker.
package annotation

import (
	"math"

	"tumorexpr/domain/stats"
)

// Bounds is the value range of the plotted data
type Bounds struct {
	Min float64
	Max float64
}

// Options controls bracket selection and spacing
type Options struct {
	Alpha       float64 // pairs with adjusted p below Alpha get a bracket
	OffsetRatio float64 // bracket offset as a share of the value range
	StepFactor  float64 // spacing between stacked brackets, in offsets
}

// DefaultOptions returns the standard 5% offset with 1.5 offsets per step
func DefaultOptions() Options {
	return Options{Alpha: stats.DefaultAlpha, OffsetRatio: 0.05, StepFactor: 1.5}
}

// Offset returns the base bracket offset for the given bounds. A zero range
// falls back to a share of the magnitude of Max, or of 1 when Max is 0.
func (o Options) Offset(b Bounds) float64 {
	span := b.Max - b.Min
	if span <= 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		span = math.Max(math.Abs(b.Max), 1)
	}
	return o.OffsetRatio * span
}

// Annotate emits one annotation per significant pair (i<j by index in
// groupOrder), stacking heights upward in that order. The output depends only
// on its inputs.
func Annotate(matrix *stats.PosthocMatrix, groupOrder []string, bounds Bounds, opts Options) []stats.Annotation {
	if matrix == nil {
		return nil
	}
	if opts.OffsetRatio <= 0 {
		opts.OffsetRatio = DefaultOptions().OffsetRatio
	}
	if opts.StepFactor <= 0 {
		opts.StepFactor = DefaultOptions().StepFactor
	}
	if opts.Alpha <= 0 {
		opts.Alpha = stats.DefaultAlpha
	}

	offset := opts.Offset(bounds)
	height := bounds.Max + offset

	var out []stats.Annotation
	for i := range groupOrder {
		for j := i + 1; j < len(groupOrder); j++ {
			p, ok := matrix.PValue(groupOrder[i], groupOrder[j])
			if !ok || math.IsNaN(p) || p >= opts.Alpha {
				continue
			}
			out = append(out, stats.Annotation{
				PairIndexA: i,
				PairIndexB: j,
				GroupA:     groupOrder[i],
				GroupB:     groupOrder[j],
				PValue:     p,
				Height:     height,
				Marker:     Marker(p),
			})
			height += opts.StepFactor * offset
		}
	}
	return out
}

// Marker maps a p-value to the usual star notation
func Marker(p float64) string {
	switch {
	case p < 0.001:
		return "***"
	case p < 0.01:
		return "**"
	default:
		return "*"
	}
}
