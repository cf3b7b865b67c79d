// Package optimization provides the Black-Litterman allocation engine and the
// service, storage and input helpers around it.
package optimization

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Model defaults.
const (
	DefaultRiskAversion = 2.5
	DefaultTau          = 0.05

	// zeroSumTolerance bounds |Σraw| below which max-Sharpe weights cannot be normalised.
	zeroSumTolerance = 1e-12
)

// Config holds allocator defaults applied to requests that leave a parameter unset.
type Config struct {
	RiskAversion float64
	Tau          float64
	OmegaMethod  OmegaMethod
}

// DefaultConfig returns δ = 2.5, τ = 0.05 and the prior-variance omega method.
func DefaultConfig() Config {
	return Config{
		RiskAversion: DefaultRiskAversion,
		Tau:          DefaultTau,
		OmegaMethod:  DefaultOmegaMethod,
	}
}

// Request is the input to one allocation.
//
// Covariance is N×N and MarketWeights has length N. Views (Q) and Picks have one
// entry per view. Zero-valued RiskAversion, Tau and OmegaMethod take the allocator
// defaults. When Omega is set it replaces the derived view uncertainty and is used
// as-is. Asset labels come from Assets, then CovarianceLabels, then "0".."N-1".
type Request struct {
	Covariance       [][]float64 `msgpack:"covariance"`
	CovarianceLabels []string    `msgpack:"covariance_labels,omitempty"`
	MarketWeights    []float64   `msgpack:"market_weights"`
	Views            []float64   `msgpack:"views,omitempty"`
	Picks            []Pick      `msgpack:"picks,omitempty"`
	Omega            [][]float64 `msgpack:"omega,omitempty"`
	RiskAversion     float64     `msgpack:"risk_aversion,omitempty"`
	Tau              float64     `msgpack:"tau,omitempty"`
	OmegaMethod      OmegaMethod `msgpack:"omega_method,omitempty"`
	ViewConfidences  []float64   `msgpack:"view_confidences,omitempty"`
	Assets           []string    `msgpack:"assets,omitempty"`
}

// Allocator runs the Black-Litterman pipeline. It keeps no per-call state and is
// safe for concurrent use.
type Allocator struct {
	cfg Config
	log zerolog.Logger
}

// NewAllocator creates an allocator. Zero fields in cfg fall back to DefaultConfig.
func NewAllocator(cfg Config, log zerolog.Logger) *Allocator {
	defaults := DefaultConfig()
	if cfg.RiskAversion == 0 {
		cfg.RiskAversion = defaults.RiskAversion
	}
	if cfg.Tau == 0 {
		cfg.Tau = defaults.Tau
	}
	if cfg.OmegaMethod == "" {
		cfg.OmegaMethod = defaults.OmegaMethod
	}
	return &Allocator{
		cfg: cfg,
		log: log.With().Str("component", "black_litterman").Logger(),
	}
}

// Config returns the allocator defaults.
func (a *Allocator) Config() Config {
	return a.cfg
}

// Allocate derives implied equilibrium returns, blends them with the request's views
// and returns posterior returns, posterior covariance and max-Sharpe weights.
func (a *Allocator) Allocate(req Request) (*Result, error) {
	riskAversion := req.RiskAversion
	if riskAversion == 0 {
		riskAversion = a.cfg.RiskAversion
	}
	tau := req.Tau
	if tau == 0 {
		tau = a.cfg.Tau
	}
	method := req.OmegaMethod
	if method == "" {
		method = a.cfg.OmegaMethod.orDefault()
	}

	// 1. Validation
	if err := validateRequest(&req, method, riskAversion, tau); err != nil {
		a.log.Warn().Err(err).Msg("Rejected allocation request")
		return nil, err
	}

	universe, err := resolveUniverse(req)
	if err != nil {
		return nil, err
	}
	sigma, wMkt, q, err := buildInputs(req, universe.Len())
	if err != nil {
		return nil, err
	}

	numViews := len(req.Views)
	a.log.Debug().
		Int("num_assets", universe.Len()).
		Int("num_views", numViews).
		Float64("risk_aversion", riskAversion).
		Float64("tau", tau).
		Str("omega_method", string(method)).
		Bool("omega_supplied", req.Omega != nil).
		Msg("Starting Black-Litterman allocation")

	// 2. Equilibrium returns
	pi := ImpliedEquilibriumReturns(riskAversion, sigma, wMkt)

	var (
		pick, omega  *mat.Dense
		posterior    *mat.VecDense
		posteriorCov *mat.Dense
	)

	if numViews == 0 {
		// Without views the update term vanishes: π_post = π, Σ_post = (1+τ)Σ.
		posterior = mat.VecDenseCopyOf(pi)
		posteriorCov = mat.NewDense(universe.Len(), universe.Len(), nil)
		posteriorCov.Scale(1+tau, sigma)
	} else {
		// 3. Pick matrix
		pick, err = BuildPickMatrix(universe, req.Picks)
		if err != nil {
			return nil, err
		}

		// 4. Omega
		if req.Omega != nil {
			omega, err = reshapeOmega(req.Omega, numViews)
		} else {
			omega, err = calculateOmega(method, sigma, tau, pick, req.ViewConfidences)
		}
		if err != nil {
			return nil, err
		}

		// 5-6. Posterior returns and covariance share one inversion
		posterior, posteriorCov, err = posteriorEstimates(sigma, tau, pick, omega, q, pi)
		if err != nil {
			a.log.Warn().Err(err).Msg("Posterior estimation failed")
			return nil, err
		}
	}

	// 7. Max-Sharpe weights
	weights, err := MaxSharpeWeights(posteriorCov, posterior)
	if err != nil {
		a.log.Warn().Err(err).Msg("Max-Sharpe weight derivation failed")
		return nil, err
	}

	// 8. Packaging
	result, err := packageResult(universe, pi, posterior, weights, posteriorCov, pick, omega)
	if err != nil {
		return nil, err
	}
	result.OmegaMethod = method
	result.OmegaSupplied = req.Omega != nil
	result.RiskAversion = riskAversion
	result.Tau = tau

	a.log.Debug().
		Float64("weight_sum", result.Weights.Sum()).
		Msg("Black-Litterman allocation complete")

	return result, nil
}

// resolveUniverse picks the asset labels: explicit Assets, then CovarianceLabels,
// then stringified indices.
func resolveUniverse(req Request) (*Universe, error) {
	switch {
	case len(req.Assets) > 0:
		return NewUniverse(req.Assets)
	case len(req.CovarianceLabels) > 0:
		return NewUniverse(req.CovarianceLabels)
	default:
		n := len(req.MarketWeights)
		if n == 0 {
			n = len(req.Covariance)
		}
		return IndexedUniverse(n)
	}
}

// buildInputs converts the request's slices into gonum structures after checking shapes.
func buildInputs(req Request, n int) (*mat.Dense, *mat.VecDense, *mat.VecDense, error) {
	if len(req.MarketWeights) != n {
		return nil, nil, nil, configError(StageInputs, ErrDimensionMismatch,
			"%d market weights for %d assets", len(req.MarketWeights), n)
	}
	if len(req.Covariance) != n {
		return nil, nil, nil, configError(StageInputs, ErrDimensionMismatch,
			"covariance has %d rows for %d assets", len(req.Covariance), n)
	}

	sigma := mat.NewDense(n, n, nil)
	for i, row := range req.Covariance {
		if len(row) != n {
			return nil, nil, nil, configError(StageInputs, ErrDimensionMismatch,
				"covariance row %d has %d columns, expected %d", i, len(row), n)
		}
		if !allFinite(row) {
			return nil, nil, nil, configError(StageInputs, ErrNonFinite, "covariance row %d", i)
		}
		sigma.SetRow(i, row)
	}

	if !allFinite(req.MarketWeights) {
		return nil, nil, nil, configError(StageInputs, ErrNonFinite, "market weights")
	}
	w := mat.NewVecDense(n, append([]float64(nil), req.MarketWeights...))

	var q *mat.VecDense
	if len(req.Views) > 0 {
		if !allFinite(req.Views) {
			return nil, nil, nil, configError(StageInputs, ErrNonFinite, "views")
		}
		q = mat.NewVecDense(len(req.Views), append([]float64(nil), req.Views...))
	}

	return sigma, w, q, nil
}

// ImpliedEquilibriumReturns computes the reverse-optimisation returns.
// Formula: Π = δ · Σ · w_mkt
func ImpliedEquilibriumReturns(riskAversion float64, sigma mat.Matrix, marketWeights mat.Vector) *mat.VecDense {
	n, _ := sigma.Dims()
	pi := mat.NewVecDense(n, nil)
	pi.MulVec(sigma, marketWeights)
	pi.ScaleVec(riskAversion, pi)
	return pi
}

// BuildPickMatrix places each view's coefficients in its own row of a K×N matrix.
// Assets a view does not name get 0. len(picks) must be positive.
func BuildPickMatrix(universe *Universe, picks []Pick) (*mat.Dense, error) {
	p := mat.NewDense(len(picks), universe.Len(), nil)
	for k, pick := range picks {
		vec, err := universe.Resolve(pick)
		if err != nil {
			return nil, err
		}
		for _, term := range vec {
			p.Set(k, term.Index, term.Coefficient)
		}
	}
	return p, nil
}

// posteriorEstimates computes the Black-Litterman posterior mean and covariance.
//
// Formula:
//
//	M      = [P(τΣ)Pᵗ + Ω]⁻¹
//	π_post = π + (τΣ)Pᵗ M (Q − Pπ)
//	Σ_post = Σ + τΣ − (τΣ)Pᵗ M P(τΣ)
func posteriorEstimates(sigma *mat.Dense, tau float64, pick, omega *mat.Dense, q, pi *mat.VecDense) (*mat.VecDense, *mat.Dense, error) {
	n, _ := sigma.Dims()

	var tauSigma mat.Dense
	tauSigma.Scale(tau, sigma)

	// P(τΣ), K×N
	var pTauSigma mat.Dense
	pTauSigma.Mul(pick, &tauSigma)

	// P(τΣ)Pᵗ + Ω, K×K
	var middle mat.Dense
	middle.Mul(&pTauSigma, pick.T())
	middle.Add(&middle, omega)

	var middleInv mat.Dense
	if err := middleInv.Inverse(&middle); err != nil {
		return nil, nil, numericError(StagePosteriorReturns, "P(τΣ)Pᵗ+Ω", ErrSingularMatrix, err)
	}

	// (τΣ)Pᵗ M, N×K; reused by both estimates.
	var tauSigmaPt mat.Dense
	tauSigmaPt.Mul(&tauSigma, pick.T())
	var gain mat.Dense
	gain.Mul(&tauSigmaPt, &middleInv)

	// Q − Pπ
	var viewGap mat.VecDense
	viewGap.MulVec(pick, pi)
	viewGap.SubVec(q, &viewGap)

	posterior := mat.NewVecDense(n, nil)
	posterior.MulVec(&gain, &viewGap)
	posterior.AddVec(pi, posterior)
	if !allFinite(posterior.RawVector().Data) {
		return nil, nil, numericError(StagePosteriorReturns, "π_post", ErrNonFinite, nil)
	}

	var reduction mat.Dense
	reduction.Mul(&gain, &pTauSigma)

	posteriorCov := mat.NewDense(n, n, nil)
	posteriorCov.Add(sigma, &tauSigma)
	posteriorCov.Sub(posteriorCov, &reduction)
	if !allFinite(posteriorCov.RawMatrix().Data) {
		return nil, nil, numericError(StagePosteriorCov, "Σ_post", ErrNonFinite, nil)
	}

	return posterior, posteriorCov, nil
}

// MaxSharpeWeights returns the unconstrained tangency portfolio normalised to sum to 1.
// Short positions are allowed.
//
// Formula: w = Σ⁻¹μ / 1ᵗΣ⁻¹μ
func MaxSharpeWeights(covariance mat.Matrix, expectedReturns mat.Vector) (*mat.VecDense, error) {
	var covInv mat.Dense
	if err := covInv.Inverse(covariance); err != nil {
		return nil, numericError(StageMaxSharpeWeights, "Σ_post", ErrSingularMatrix, err)
	}

	n, _ := covariance.Dims()
	raw := mat.NewVecDense(n, nil)
	raw.MulVec(&covInv, expectedReturns)

	sum := mat.Sum(raw)
	if math.IsNaN(sum) || math.Abs(sum) < zeroSumTolerance {
		return nil, numericError(StageMaxSharpeWeights, "Σ_post⁻¹π_post", ErrZeroWeightSum, nil)
	}
	raw.ScaleVec(1/sum, raw)

	if !allFinite(raw.RawVector().Data) {
		return nil, numericError(StageMaxSharpeWeights, "w", ErrNonFinite, nil)
	}
	return raw, nil
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
