package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-12)
}

func TestStdDev(t *testing.T) {
	assert.Equal(t, 0.0, StdDev([]float64{1}))
	// sample variance of 1..4 is 5/3
	assert.InDelta(t, math.Sqrt(5.0/3.0), StdDev([]float64{1, 2, 3, 4}), 1e-12)
}

func TestAnnualizedVolatility(t *testing.T) {
	daily := []float64{0.01, -0.01, 0.01, -0.01}
	assert.InDelta(t, StdDev(daily)*math.Sqrt(252), AnnualizedVolatility(daily), 1e-12)
}

func TestLogReturns(t *testing.T) {
	returns, err := LogReturns([]float64{100, 110, 99})
	require.NoError(t, err)
	require.Len(t, returns, 2)
	assert.InDelta(t, math.Log(1.1), returns[0], 1e-12)
	assert.InDelta(t, math.Log(0.9), returns[1], 1e-12)

	empty, err := LogReturns([]float64{100})
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = LogReturns([]float64{100, 0, 50})
	assert.Error(t, err)
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.0, Correlation(x, []float64{2, 4, 6, 8}), 1e-12)
	assert.InDelta(t, -1.0, Correlation(x, []float64{4, 3, 2, 1}), 1e-12)
	assert.Equal(t, 0.0, Correlation(x, []float64{1, 2}))
}

func TestCorrelationMatrix(t *testing.T) {
	corr, err := CorrelationMatrix([][]float64{
		{1, 2, 3, 4},
		{2, 4, 6, 8},
		{4, 3, 2, 1},
	})
	require.NoError(t, err)
	require.Len(t, corr, 3)

	for i := range corr {
		assert.InDelta(t, 1.0, corr[i][i], 1e-12)
	}
	assert.InDelta(t, 1.0, corr[0][1], 1e-12)
	assert.InDelta(t, -1.0, corr[0][2], 1e-12)
	assert.InDelta(t, corr[1][2], corr[2][1], 1e-15)

	_, err = CorrelationMatrix(nil)
	assert.Error(t, err)
	_, err = CorrelationMatrix([][]float64{{1, 2, 3}, {1, 2}})
	assert.Error(t, err)
}
