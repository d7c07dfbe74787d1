package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantile(t *testing.T) {
	values := []float64{12, 1, 11, 2, 10, 3}

	assert.InDelta(t, 2.25, Quantile(values, 0.25), 1e-12)
	assert.InDelta(t, 6.5, Quantile(values, 0.5), 1e-12)
	assert.InDelta(t, 10.75, Quantile(values, 0.75), 1e-12)
	assert.Equal(t, 1.0, Quantile(values, 0))
	assert.Equal(t, 12.0, Quantile(values, 1))
	assert.Equal(t, []float64{12, 1, 11, 2, 10, 3}, values)
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}
