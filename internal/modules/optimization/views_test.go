package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUniverse(t *testing.T) {
	tests := []struct {
		name    string
		assets  []string
		wantErr bool
	}{
		{name: "valid", assets: []string{"AU", "CA", "US"}},
		{name: "empty", assets: nil, wantErr: true},
		{name: "blank identifier", assets: []string{"AU", " "}, wantErr: true},
		{name: "duplicate", assets: []string{"AU", "CA", "AU"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewUniverse(tt.assets)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidUniverse)
				assert.Equal(t, KindConfiguration, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.assets), u.Len())
			assert.Equal(t, tt.assets, u.Assets())
		})
	}
}

func TestUniverse_AssetsIsACopy(t *testing.T) {
	input := []string{"A", "B"}
	u, err := NewUniverse(input)
	require.NoError(t, err)

	input[0] = "changed"
	assets := u.Assets()
	assets[1] = "changed"

	assert.Equal(t, []string{"A", "B"}, u.Assets())
}

func TestIndexedUniverse(t *testing.T) {
	u, err := IndexedUniverse(3)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2"}, u.Assets())

	i, err := u.Index("2")
	require.NoError(t, err)
	assert.Equal(t, 2, i)
}

func TestUniverse_Resolve(t *testing.T) {
	u, err := NewUniverse([]string{"AU", "CA", "US"})
	require.NoError(t, err)

	t.Run("relative pick", func(t *testing.T) {
		vec, err := u.Resolve(Pick{{Asset: "US", Coefficient: 1}, {Asset: "AU", Coefficient: -1}})
		require.NoError(t, err)
		assert.Equal(t, PickVector{{Index: 2, Coefficient: 1}, {Index: 0, Coefficient: -1}}, vec)
	})

	t.Run("unknown asset", func(t *testing.T) {
		_, err := u.Resolve(Pick{{Asset: "JP", Coefficient: 1}})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownAsset)
		assert.Equal(t, KindLookup, KindOf(err))
	})

	t.Run("asset named twice", func(t *testing.T) {
		_, err := u.Resolve(Pick{{Asset: "CA", Coefficient: 1}, {Asset: "CA", Coefficient: -1}})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidPick)
		assert.Equal(t, KindConfiguration, KindOf(err))
	})
}

func TestBuildPickMatrix(t *testing.T) {
	u, err := NewUniverse([]string{"A", "B", "C"})
	require.NoError(t, err)

	p, err := BuildPickMatrix(u, []Pick{
		{{Asset: "B", Coefficient: 1}},
		{{Asset: "A", Coefficient: 1}, {Asset: "C", Coefficient: -1}},
	})
	require.NoError(t, err)

	rows, cols := p.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, []float64{0, 1, 0}, p.RawRowView(0))
	assert.Equal(t, []float64{1, 0, -1}, p.RawRowView(1))
}

func TestPick_Helpers(t *testing.T) {
	pick := Pick{{Asset: "DE", Coefficient: 1}, {Asset: "FR", Coefficient: -0.3}, {Asset: "UK", Coefficient: -0.7}}
	assert.Equal(t, []string{"DE", "FR", "UK"}, pick.Assets())
	assert.InDelta(t, 0.0, pick.CoefficientSum(), 1e-12)
}
