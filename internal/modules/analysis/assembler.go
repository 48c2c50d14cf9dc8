package analysis

import (
	"time"

	"github.com/aristath/riskmap/internal/domain"
	"github.com/aristath/riskmap/internal/modules/statistics"
)

// assemblePeriod orders one horizon's estimate by the registry order restricted
// to survivors. The covariance matrix is permuted the same way, so row i,
// column i and assets[i] always name the same asset.
func assemblePeriod(order []string, est *statistics.Estimate) domain.PeriodResult {
	pos := make(map[string]int, len(est.Assets))
	for i, id := range est.Assets {
		pos[id] = i
	}

	var idx []int
	for _, id := range order {
		if i, ok := pos[id]; ok {
			idx = append(idx, i)
		}
	}

	period := domain.PeriodResult{
		Assets:           make([]domain.AssetStatistic, len(idx)),
		CovarianceMatrix: make(domain.CovarianceMatrix, len(idx)),
	}
	for r, i := range idx {
		period.Assets[r] = domain.AssetStatistic{
			Name:   est.Assets[i],
			Return: est.Returns[i],
			Risk:   est.Risks[i],
		}
		row := make([]float64, len(idx))
		for c, j := range idx {
			row[c] = est.Covariance[i][j]
		}
		period.CovarianceMatrix[r] = row
	}
	return period
}

// Assemble packages per-horizon estimates into the final result. Horizons
// without an estimate are absent from Periods; TickerOrder is always the full
// registry order.
func Assemble(generatedAt time.Time, order []string, horizons []int, estimates map[int]*statistics.Estimate) *domain.AnalysisResult {
	result := &domain.AnalysisResult{
		GeneratedAt: generatedAt,
		TickerOrder: append([]string(nil), order...),
		Periods:     make(map[string]domain.PeriodResult),
	}
	for _, years := range horizons {
		est, ok := estimates[years]
		if !ok || est == nil {
			continue
		}
		result.Periods[domain.HorizonLabel(years)] = assemblePeriod(order, est)
	}
	return result
}
