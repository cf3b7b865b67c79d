package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// OmegaMethod selects how view uncertainty is derived.
type OmegaMethod string

const (
	// OmegaPriorVariance uses the variance of each view portfolio under τΣ.
	OmegaPriorVariance OmegaMethod = "prior-variance"
	// OmegaUserConfidence uses Idzorek's confidence scaling of PΣPᵗ.
	OmegaUserConfidence OmegaMethod = "user-confidence"
)

// DefaultOmegaMethod is used when a request leaves the method empty.
const DefaultOmegaMethod = OmegaPriorVariance

// Valid reports whether m is a recognised method.
func (m OmegaMethod) Valid() bool {
	return m == OmegaPriorVariance || m == OmegaUserConfidence
}

func (m OmegaMethod) orDefault() OmegaMethod {
	if m == "" {
		return DefaultOmegaMethod
	}
	return m
}

// calculateOmega derives the K×K view-uncertainty matrix. Off-diagonal terms are
// always discarded: views are treated as independent.
func calculateOmega(method OmegaMethod, covariance *mat.Dense, tau float64, pick *mat.Dense, confidences []float64) (*mat.Dense, error) {
	switch method {
	case OmegaPriorVariance:
		var tauSigma mat.Dense
		tauSigma.Scale(tau, covariance)
		return diagonalOf(quadraticForm(pick, &tauSigma), nil)
	case OmegaUserConfidence:
		alpha := make([]float64, len(confidences))
		for i, c := range confidences {
			alpha[i] = IdzorekAlpha(c)
		}
		return diagonalOf(quadraticForm(pick, covariance), alpha)
	default:
		return nil, configError(StageOmega, ErrUnknownOmegaMethod, "%q", method)
	}
}

// IdzorekAlpha maps a view confidence c in (0, 1] to the uncertainty scale (1-c)/c.
// Full confidence gives 0; confidence approaching 0 grows without bound.
func IdzorekAlpha(confidence float64) float64 {
	return (1 - confidence) / confidence
}

// quadraticForm returns A·B·Aᵗ.
func quadraticForm(a, b *mat.Dense) *mat.Dense {
	var ab mat.Dense
	ab.Mul(a, b)
	var out mat.Dense
	out.Mul(&ab, a.T())
	return &out
}

// diagonalOf keeps only the diagonal of m, optionally scaling entry i by scale[i].
func diagonalOf(m *mat.Dense, scale []float64) (*mat.Dense, error) {
	k, _ := m.Dims()
	out := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		v := m.At(i, i)
		if scale != nil {
			v *= scale[i]
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, numericError(StageOmega, "Ω", ErrNonFinite, nil)
		}
		out.Set(i, i, v)
	}
	return out, nil
}

// reshapeOmega turns a caller-supplied Ω into a K×K matrix, reading its values row-major.
// The supplied matrix is used as-is; no diagonal is enforced.
func reshapeOmega(omega [][]float64, k int) (*mat.Dense, error) {
	flat := make([]float64, 0, k*k)
	for _, row := range omega {
		flat = append(flat, row...)
	}
	if len(flat) != k*k {
		return nil, configError(StageOmega, ErrDimensionMismatch, "omega has %d values, need %d for %d views", len(flat), k*k, k)
	}
	for _, v := range flat {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, numericError(StageOmega, "Ω", ErrNonFinite, nil)
		}
	}
	return mat.NewDense(k, k, flat), nil
}
