package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestIdzorekAlpha(t *testing.T) {
	tests := []struct {
		confidence float64
		want       float64
	}{
		{confidence: 1.0, want: 0},
		{confidence: 0.5, want: 1},
		{confidence: 0.25, want: 3},
		{confidence: 0.1, want: 9},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, IdzorekAlpha(tt.confidence), 1e-12, "confidence %v", tt.confidence)
	}
}

func TestCalculateOmega(t *testing.T) {
	sigma := mat.NewDense(2, 2, []float64{
		0.04, 0.01,
		0.01, 0.09,
	})
	pick := mat.NewDense(2, 2, []float64{
		1, 0,
		1, -1,
	})

	t.Run("prior variance", func(t *testing.T) {
		omega, err := calculateOmega(OmegaPriorVariance, sigma, 0.05, pick, nil)
		require.NoError(t, err)
		// diag(P τΣ Pᵗ): 0.05*0.04, 0.05*(0.04 - 2*0.01 + 0.09)
		assert.InDelta(t, 0.002, omega.At(0, 0), 1e-12)
		assert.InDelta(t, 0.0055, omega.At(1, 1), 1e-12)
		assert.Equal(t, 0.0, omega.At(0, 1))
		assert.Equal(t, 0.0, omega.At(1, 0))
	})

	t.Run("user confidence", func(t *testing.T) {
		omega, err := calculateOmega(OmegaUserConfidence, sigma, 0.05, pick, []float64{0.5, 0.25})
		require.NoError(t, err)
		// diag(α · PΣPᵗ): 1*0.04, 3*0.11
		assert.InDelta(t, 0.04, omega.At(0, 0), 1e-12)
		assert.InDelta(t, 0.33, omega.At(1, 1), 1e-12)
		assert.Equal(t, 0.0, omega.At(0, 1))
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := calculateOmega("bogus", sigma, 0.05, pick, nil)
		assert.ErrorIs(t, err, ErrUnknownOmegaMethod)
	})
}

func TestOmegaMethod_Valid(t *testing.T) {
	assert.True(t, OmegaPriorVariance.Valid())
	assert.True(t, OmegaUserConfidence.Valid())
	assert.False(t, OmegaMethod("").Valid())
	assert.False(t, OmegaMethod("idzorek").Valid())
	assert.Equal(t, DefaultOmegaMethod, OmegaMethod("").orDefault())
}
