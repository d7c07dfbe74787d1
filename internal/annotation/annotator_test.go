package annotation

import (
	"testing"

	"tumorexpr/domain/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeGroupMatrix() *stats.PosthocMatrix {
	return &stats.PosthocMatrix{
		Groups: []string{"A", "B", "C"},
		Adjusted: [][]float64{
			{1, 0.0004, 0.2},
			{0.0004, 1, 0.03},
			{0.2, 0.03, 1},
		},
	}
}

func TestAnnotateHeights(t *testing.T) {
	anns := Annotate(threeGroupMatrix(), []string{"A", "B", "C"}, Bounds{Min: 0, Max: 10}, DefaultOptions())

	require.Len(t, anns, 2)
	assert.Equal(t, 0, anns[0].PairIndexA)
	assert.Equal(t, 1, anns[0].PairIndexB)
	assert.Equal(t, "***", anns[0].Marker)
	assert.InDelta(t, 10.5, anns[0].Height, 1e-12)

	assert.Equal(t, "B", anns[1].GroupA)
	assert.Equal(t, "C", anns[1].GroupB)
	assert.Equal(t, "*", anns[1].Marker)
	assert.InDelta(t, 11.25, anns[1].Height, 1e-12)
}

func TestAnnotateFollowsGroupOrder(t *testing.T) {
	anns := Annotate(threeGroupMatrix(), []string{"C", "B", "A"}, Bounds{Min: 0, Max: 10}, DefaultOptions())

	require.Len(t, anns, 2)
	assert.Equal(t, "C", anns[0].GroupA)
	assert.Equal(t, "B", anns[0].GroupB)
	assert.Equal(t, 1, anns[1].PairIndexA)
	assert.Equal(t, 2, anns[1].PairIndexB)
}

func TestAnnotateDeterministic(t *testing.T) {
	order := []string{"A", "B", "C"}
	first := Annotate(threeGroupMatrix(), order, Bounds{Min: -2, Max: 3}, DefaultOptions())
	second := Annotate(threeGroupMatrix(), order, Bounds{Min: -2, Max: 3}, DefaultOptions())
	assert.Equal(t, first, second)
}

func TestAnnotateNothingSignificant(t *testing.T) {
	m := &stats.PosthocMatrix{Groups: []string{"A", "B"}, Adjusted: [][]float64{{1, 0.5}, {0.5, 1}}}
	assert.Empty(t, Annotate(m, []string{"A", "B"}, Bounds{Min: 0, Max: 1}, DefaultOptions()))
	assert.Nil(t, Annotate(nil, []string{"A", "B"}, Bounds{Min: 0, Max: 1}, DefaultOptions()))
}

func TestOffsetZeroRange(t *testing.T) {
	opts := DefaultOptions()
	assert.InDelta(t, 0.25, opts.Offset(Bounds{Min: 5, Max: 5}), 1e-12)
	assert.InDelta(t, 0.05, opts.Offset(Bounds{Min: 0, Max: 0}), 1e-12)
}

func TestMarker(t *testing.T) {
	assert.Equal(t, "***", Marker(0.0001))
	assert.Equal(t, "**", Marker(0.005))
	assert.Equal(t, "*", Marker(0.04))
}
