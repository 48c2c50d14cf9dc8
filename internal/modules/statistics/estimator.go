package statistics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/riskmap/internal/domain"
	"github.com/aristath/riskmap/internal/timeseries"
)

// ReturnMethod selects how per-period returns are computed and annualized.
type ReturnMethod string

const (
	// ReturnCompounded is the geometric mean of simple returns: (Π(1+r))^(f/n) - 1.
	ReturnCompounded ReturnMethod = "compounded"
	// ReturnArithmetic is the arithmetic mean of simple returns times f.
	ReturnArithmetic ReturnMethod = "arithmetic"
	// ReturnLog is the mean of log returns times f; covariance uses log returns too.
	ReturnLog ReturnMethod = "log"
)

// ParseReturnMethod validates a configured return method name.
func ParseReturnMethod(s string) (ReturnMethod, error) {
	switch m := ReturnMethod(s); m {
	case ReturnCompounded, ReturnArithmetic, ReturnLog:
		return m, nil
	case "":
		return ReturnCompounded, nil
	default:
		return "", fmt.Errorf("unknown return method %q", s)
	}
}

// Estimate holds annualized statistics over one window. Slices and the
// covariance rows/columns share the order of Assets.
type Estimate struct {
	Assets     []string
	Returns    []float64
	Risks      []float64
	Covariance [][]float64
}

// Estimator computes annualized statistics from a window's price table.
type Estimator struct {
	method         ReturnMethod
	periodsPerYear float64
}

// NewEstimator creates an estimator for the given return method and sampling frequency.
func NewEstimator(method ReturnMethod, periodsPerYear int) *Estimator {
	if method == "" {
		method = ReturnCompounded
	}
	return &Estimator{method: method, periodsPerYear: float64(periodsPerYear)}
}

// Estimate computes per-asset return and risk and the sample covariance
// matrix (N-1 denominator) of periodic returns, all annualized.
// Risk is the square root of the covariance diagonal.
func (e *Estimator) Estimate(prices *timeseries.Table) (*Estimate, error) {
	assets := prices.Columns()
	k := len(assets)
	if k == 0 {
		return nil, fmt.Errorf("%w: no assets in window", domain.ErrInsufficientUniverse)
	}
	obs := prices.Len() - 1
	if obs < 2 {
		return nil, fmt.Errorf("%w: %d return(s), need at least 2", domain.ErrInsufficientObservations, obs)
	}

	simple := mat.NewDense(obs, k, nil)
	for j, name := range assets {
		p, _ := prices.Column(name)
		for i := 1; i < len(p); i++ {
			simple.Set(i-1, j, p[i]/p[i-1]-1)
		}
	}

	series := simple
	if e.method == ReturnLog {
		series = mat.NewDense(obs, k, nil)
		series.Apply(func(_, _ int, v float64) float64 { return math.Log1p(v) }, simple)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, series, nil)

	est := &Estimate{
		Assets:     assets,
		Returns:    make([]float64, k),
		Risks:      make([]float64, k),
		Covariance: make([][]float64, k),
	}
	for i := 0; i < k; i++ {
		est.Covariance[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			est.Covariance[i][j] = cov.At(i, j) * e.periodsPerYear
		}
		est.Risks[i] = math.Sqrt(est.Covariance[i][i])
		est.Returns[i] = e.annualizedReturn(mat.Col(nil, i, simple))
	}

	for i, r := range est.Returns {
		if math.IsNaN(r) || math.IsInf(r, 0) || math.IsNaN(est.Risks[i]) {
			return nil, fmt.Errorf("non-finite statistic for %s", assets[i])
		}
	}

	return est, nil
}

func (e *Estimator) annualizedReturn(simple []float64) float64 {
	switch e.method {
	case ReturnArithmetic:
		return stat.Mean(simple, nil) * e.periodsPerYear
	case ReturnLog:
		logs := make([]float64, len(simple))
		for i, r := range simple {
			logs[i] = math.Log1p(r)
		}
		return stat.Mean(logs, nil) * e.periodsPerYear
	default:
		growth := 1.0
		for _, r := range simple {
			growth *= 1 + r
		}
		return math.Pow(growth, e.periodsPerYear/float64(len(simple))) - 1
	}
}
