package statistics

import (
	"math"
	"testing"

	"github.com/aristath/riskmap/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zigzag prices give simple returns of +10%, -10%, +10%.
var zigzag = []float64{100, 110, 99, 108.9}

func TestEstimate_KnownValues(t *testing.T) {
	tbl := buildTable(t, 4, map[string]func(int) float64{
		"A": func(i int) float64 { return zigzag[i] },
		"B": func(int) float64 { return 1500 },
		"C": func(i int) float64 { return 2 * zigzag[i] },
	}, []string{"A", "B", "C"})

	est, err := NewEstimator(ReturnArithmetic, 12).Estimate(tbl)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, est.Assets)

	// mean 1/30, sample variance 0.04/3; annualized x12
	assert.InDelta(t, 0.4, est.Returns[0], 1e-12)
	assert.InDelta(t, 0.16, est.Covariance[0][0], 1e-12)
	assert.InDelta(t, 0.4, est.Risks[0], 1e-12)

	// constant series has zero variance and zero covariance
	assert.Equal(t, 0.0, est.Risks[1])
	assert.InDelta(t, 0.0, est.Covariance[0][1], 1e-15)
	assert.InDelta(t, 0.0, est.Returns[1], 1e-15)

	// scaled prices share returns
	assert.InDelta(t, est.Covariance[0][0], est.Covariance[0][2], 1e-12)
}

func TestEstimate_CompoundedReturn(t *testing.T) {
	tbl := buildTable(t, 4, map[string]func(int) float64{
		"A": func(i int) float64 { return zigzag[i] },
		"B": func(i int) float64 { return 10 * math.Pow(1.01, float64(i)) },
	}, []string{"A", "B"})

	est, err := NewEstimator(ReturnCompounded, 12).Estimate(tbl)
	require.NoError(t, err)

	assert.InDelta(t, math.Pow(108.9/100, 12.0/3)-1, est.Returns[0], 1e-12)
	assert.InDelta(t, math.Pow(1.01, 12)-1, est.Returns[1], 1e-12)
}

func TestEstimate_LogReturnsUseLogCovariance(t *testing.T) {
	tbl := buildTable(t, 4, map[string]func(int) float64{
		"A": func(i int) float64 { return zigzag[i] },
		"B": func(i int) float64 { return 10 * math.Pow(1.01, float64(i)) },
	}, []string{"A", "B"})

	est, err := NewEstimator(ReturnLog, 12).Estimate(tbl)
	require.NoError(t, err)

	logs := []float64{math.Log(1.1), math.Log(0.9), math.Log(1.1)}
	mean := (logs[0] + logs[1] + logs[2]) / 3
	var ss float64
	for _, l := range logs {
		ss += (l - mean) * (l - mean)
	}
	assert.InDelta(t, mean*12, est.Returns[0], 1e-12)
	assert.InDelta(t, ss/2*12, est.Covariance[0][0], 1e-12)
	assert.InDelta(t, math.Log(1.01)*12, est.Returns[1], 1e-12)
}

func TestEstimate_InvariantsOnRandomishData(t *testing.T) {
	n := 60
	tbl := buildTable(t, n, map[string]func(int) float64{
		"A": func(i int) float64 { return 100 * (1 + 0.05*math.Sin(float64(i))) },
		"B": func(i int) float64 { return 50 * (1 + 0.03*math.Cos(float64(i)*1.7)) },
		"C": func(i int) float64 { return 20 + float64(i%7) },
	}, []string{"A", "B", "C"})

	est, err := NewEstimator(ReturnCompounded, 12).Estimate(tbl)
	require.NoError(t, err)

	require.Len(t, est.Covariance, 3)
	for i := range est.Covariance {
		require.Len(t, est.Covariance[i], 3)
		assert.InEpsilon(t, est.Risks[i]*est.Risks[i], est.Covariance[i][i], 1e-9)
		for j := range est.Covariance {
			assert.Equal(t, est.Covariance[i][j], est.Covariance[j][i])
		}
	}
}

func TestEstimate_TooFewRows(t *testing.T) {
	tbl := buildTable(t, 2, map[string]func(int) float64{
		"A": func(i int) float64 { return 1 + float64(i) },
		"B": func(i int) float64 { return 2 + float64(i) },
	}, []string{"A", "B"})

	_, err := NewEstimator(ReturnCompounded, 12).Estimate(tbl)
	assert.ErrorIs(t, err, domain.ErrInsufficientObservations)
}

func TestParseReturnMethod(t *testing.T) {
	m, err := ParseReturnMethod("")
	require.NoError(t, err)
	assert.Equal(t, ReturnCompounded, m)

	m, err = ParseReturnMethod("log")
	require.NoError(t, err)
	assert.Equal(t, ReturnLog, m)

	_, err = ParseReturnMethod("geometric")
	assert.Error(t, err)
}
