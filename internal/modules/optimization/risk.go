package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear annualises daily return statistics.
const TradingDaysPerYear = 252

const (
	correlationDiagonalTolerance = 1e-6
	symmetryTolerance            = 1e-9
)

// CovarianceFromCorrelation scales a correlation matrix by per-asset volatilities.
// Formula: Σ_ij = σ_i · σ_j · ρ_ij
func CovarianceFromCorrelation(correlation [][]float64, volatilities []float64) ([][]float64, error) {
	n := len(volatilities)
	if n == 0 {
		return nil, fmt.Errorf("no volatilities provided")
	}
	if len(correlation) != n {
		return nil, fmt.Errorf("correlation matrix size %d does not match %d volatilities", len(correlation), n)
	}

	for i, vol := range volatilities {
		if vol < 0 || math.IsNaN(vol) || math.IsInf(vol, 0) {
			return nil, fmt.Errorf("volatility %d is invalid: %v", i, vol)
		}
	}

	cov := make([][]float64, n)
	for i := 0; i < n; i++ {
		if len(correlation[i]) != n {
			return nil, fmt.Errorf("correlation row %d has size %d, expected %d", i, len(correlation[i]), n)
		}
		if math.Abs(correlation[i][i]-1) > correlationDiagonalTolerance {
			return nil, fmt.Errorf("correlation diagonal %d is %v, expected 1", i, correlation[i][i])
		}
		cov[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			rho := correlation[i][j]
			if math.IsNaN(rho) {
				return nil, fmt.Errorf("correlation (%d, %d) is NaN", i, j)
			}
			if math.Abs(rho-correlation[j][i]) > symmetryTolerance {
				return nil, fmt.Errorf("correlation matrix is not symmetric at (%d, %d)", i, j)
			}
			if rho < -1 || rho > 1 {
				return nil, fmt.Errorf("correlation (%d, %d) = %v is outside [-1, 1]", i, j, rho)
			}
			cov[i][j] = volatilities[i] * volatilities[j] * rho
		}
	}

	return cov, nil
}

// CovarianceOptions controls CovarianceFromReturns.
type CovarianceOptions struct {
	// PeriodsPerYear scales per-period covariance to annual; 0 means TradingDaysPerYear,
	// 1 leaves it unscaled.
	PeriodsPerYear int
	// Shrink applies constant-correlation shrinkage to the sample estimate.
	Shrink bool
}

// CovarianceFromReturns estimates an annualised covariance matrix from aligned
// per-asset return series, ordered by assets.
func CovarianceFromReturns(returns map[string][]float64, assets []string, opts CovarianceOptions) ([][]float64, error) {
	sampleCov, err := sampleCovariance(returns, assets)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate sample covariance: %w", err)
	}

	if opts.Shrink {
		sampleCov, err = applyShrinkage(sampleCov)
		if err != nil {
			return nil, fmt.Errorf("failed to apply shrinkage: %w", err)
		}
	}

	periods := opts.PeriodsPerYear
	if periods <= 0 {
		periods = TradingDaysPerYear
	}
	for i := range sampleCov {
		for j := range sampleCov[i] {
			sampleCov[i][j] *= float64(periods)
		}
	}

	return sampleCov, nil
}

// sampleCovariance computes the N-1 sample covariance of aligned return series.
func sampleCovariance(returns map[string][]float64, assets []string) ([][]float64, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("no assets provided")
	}

	var observations int
	for i, asset := range assets {
		ret, ok := returns[asset]
		if !ok {
			return nil, fmt.Errorf("missing returns for %s", asset)
		}
		if i == 0 {
			observations = len(ret)
		}
		if len(ret) != observations {
			return nil, fmt.Errorf("inconsistent return lengths: expected %d, got %d for %s", observations, len(ret), asset)
		}
	}
	if observations < 2 {
		return nil, fmt.Errorf("insufficient data: need at least 2 observations, got %d", observations)
	}

	// Rows are observations, columns are assets.
	n := len(assets)
	data := mat.NewDense(observations, n, nil)
	for j, asset := range assets {
		data.SetCol(j, returns[asset])
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)

	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			out[i][j] = cov.At(i, j)
		}
	}
	return out, nil
}

// applyShrinkage pulls the sample covariance toward a constant-covariance target
// (average variance on the diagonal, average covariance elsewhere).
//
// Formula: Σ_shrunk = (1-s)·Σ_sample + s·T, with s estimated from the dispersion of
// Σ_sample around T and capped at 0.5.
func applyShrinkage(sampleCov [][]float64) ([][]float64, error) {
	n := len(sampleCov)
	if n == 0 {
		return nil, fmt.Errorf("empty covariance matrix")
	}
	if n == 1 {
		return sampleCov, nil
	}

	var avgVar, avgCov float64
	for i := 0; i < n; i++ {
		avgVar += sampleCov[i][i]
		for j := 0; j < n; j++ {
			if i != j {
				avgCov += sampleCov[i][j]
			}
		}
	}
	avgVar /= float64(n)
	avgCov /= float64(n * (n - 1))

	target := func(i, j int) float64 {
		if i == j {
			return avgVar
		}
		return avgCov
	}

	shrinkage := 0.2
	if n > 2 && avgVar > 0 {
		var sumSqDiff float64
		values := make([]float64, 0, n*n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				diff := sampleCov[i][j] - target(i, j)
				sumSqDiff += diff * diff
				values = append(values, sampleCov[i][j])
			}
		}
		meanSqDiff := sumSqDiff / float64(n*n)
		_, varSample := stat.PopMeanVariance(values, nil)

		if varSample > 0 && meanSqDiff > 0 {
			shrinkage = math.Min(0.5, math.Max(0.0, varSample/(varSample+meanSqDiff)))
		}
	}

	shrunk := make([][]float64, n)
	for i := 0; i < n; i++ {
		shrunk[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			shrunk[i][j] = (1-shrinkage)*sampleCov[i][j] + shrinkage*target(i, j)
		}
	}
	return shrunk, nil
}

// VolatilitiesFromCovariance returns √Σ_ii for each asset.
func VolatilitiesFromCovariance(covariance [][]float64) []float64 {
	vols := make([]float64, len(covariance))
	for i := range covariance {
		vols[i] = math.Sqrt(covariance[i][i])
	}
	return vols
}
