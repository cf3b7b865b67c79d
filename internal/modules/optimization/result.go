package optimization

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LabeledVector is a vector indexed by asset (or view) labels.
type LabeledVector struct {
	Labels []string  `json:"labels" msgpack:"labels"`
	Values []float64 `json:"values" msgpack:"values"`
}

// Get returns the value for label.
func (v LabeledVector) Get(label string) (float64, bool) {
	for i, l := range v.Labels {
		if l == label {
			return v.Values[i], true
		}
	}
	return 0, false
}

// Map returns the vector keyed by label.
func (v LabeledVector) Map() map[string]float64 {
	out := make(map[string]float64, len(v.Labels))
	for i, l := range v.Labels {
		out[l] = v.Values[i]
	}
	return out
}

// Sum returns the sum of the values.
func (v LabeledVector) Sum() float64 {
	return floats.Sum(v.Values)
}

// LabeledMatrix is a square matrix labelled identically on both axes.
type LabeledMatrix struct {
	Labels []string    `json:"labels" msgpack:"labels"`
	Values [][]float64 `json:"values" msgpack:"values"`
}

// Get returns the entry at (row, col).
func (m LabeledMatrix) Get(row, col string) (float64, bool) {
	i, j := -1, -1
	for k, l := range m.Labels {
		if l == row {
			i = k
		}
		if l == col {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

// Dense returns the matrix as a gonum Dense.
func (m LabeledMatrix) Dense() *mat.Dense {
	n := len(m.Values)
	if n == 0 {
		return nil
	}
	out := mat.NewDense(n, len(m.Values[0]), nil)
	for i, row := range m.Values {
		out.SetRow(i, row)
	}
	return out
}

// Result is the outcome of one allocation. It shares no memory with the Allocator
// or the Request and is never modified after Allocate returns.
type Result struct {
	Assets                    []string      `json:"assets" msgpack:"assets"`
	Weights                   LabeledVector `json:"weights" msgpack:"weights"`
	ImpliedEquilibriumReturns LabeledVector `json:"implied_equilibrium_returns" msgpack:"implied_equilibrium_returns"`
	PosteriorExpectedReturns  LabeledVector `json:"posterior_expected_returns" msgpack:"posterior_expected_returns"`
	PosteriorCovariance       LabeledMatrix `json:"posterior_covariance" msgpack:"posterior_covariance"`

	// Diagnostics
	PickMatrix    [][]float64 `json:"pick_matrix,omitempty" msgpack:"pick_matrix,omitempty"`
	Omega         [][]float64 `json:"omega,omitempty" msgpack:"omega,omitempty"`
	OmegaMethod   OmegaMethod `json:"omega_method" msgpack:"omega_method"`
	OmegaSupplied bool        `json:"omega_supplied" msgpack:"omega_supplied"`
	RiskAversion  float64     `json:"risk_aversion" msgpack:"risk_aversion"`
	Tau           float64     `json:"tau" msgpack:"tau"`
}

// WeightsMap returns the weights keyed by asset.
func (r *Result) WeightsMap() map[string]float64 {
	return r.Weights.Map()
}

// packageResult labels the computed matrices with the universe's assets.
func packageResult(
	universe *Universe,
	implied, posterior, weights *mat.VecDense,
	posteriorCov mat.Matrix,
	pick, omega *mat.Dense,
) (*Result, error) {
	assets := universe.Assets()
	n := len(assets)

	if implied.Len() != n || posterior.Len() != n || weights.Len() != n {
		return nil, configError(StageResultPackaging, ErrDimensionMismatch,
			"outputs do not match %d assets", n)
	}
	if r, c := posteriorCov.Dims(); r != n || c != n {
		return nil, configError(StageResultPackaging, ErrDimensionMismatch,
			"posterior covariance is %dx%d, expected %dx%d", r, c, n, n)
	}

	return &Result{
		Assets:                    assets,
		Weights:                   labelVector(assets, weights),
		ImpliedEquilibriumReturns: labelVector(assets, implied),
		PosteriorExpectedReturns:  labelVector(assets, posterior),
		PosteriorCovariance: LabeledMatrix{
			Labels: universe.Assets(),
			Values: rowsOf(posteriorCov),
		},
		PickMatrix: rowsOf(pick),
		Omega:      rowsOf(omega),
	}, nil
}

func labelVector(labels []string, v *mat.VecDense) LabeledVector {
	values := make([]float64, v.Len())
	for i := range values {
		values[i] = v.AtVec(i)
	}
	owned := make([]string, len(labels))
	copy(owned, labels)
	return LabeledVector{Labels: owned, Values: values}
}

// rowsOf copies m into a fresh [][]float64. A nil matrix yields nil.
func rowsOf(m mat.Matrix) [][]float64 {
	if m == nil {
		return nil
	}
	if d, ok := m.(*mat.Dense); ok && d == nil {
		return nil
	}
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

// String renders the weights for logs and the CLI.
func (r *Result) String() string {
	var b strings.Builder
	for i, asset := range r.Weights.Labels {
		fmt.Fprintf(&b, "%-8s %8.4f\n", asset, r.Weights.Values[i])
	}
	return b.String()
}
