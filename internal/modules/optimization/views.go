package optimization

import (
	"strconv"
	"strings"
)

// Universe is the ordered set of asset identifiers for one allocation.
// Its order fixes the rows and columns of every matrix in the pipeline.
type Universe struct {
	assets []string
	index  map[string]int
}

// NewUniverse builds a universe from unique, non-empty asset identifiers.
func NewUniverse(assets []string) (*Universe, error) {
	if len(assets) == 0 {
		return nil, configError(StageInputs, ErrInvalidUniverse, "no assets")
	}

	index := make(map[string]int, len(assets))
	for i, asset := range assets {
		if strings.TrimSpace(asset) == "" {
			return nil, configError(StageInputs, ErrInvalidUniverse, "empty asset identifier at position %d", i)
		}
		if prev, exists := index[asset]; exists {
			return nil, configError(StageInputs, ErrInvalidUniverse, "asset %q listed at positions %d and %d", asset, prev, i)
		}
		index[asset] = i
	}

	owned := make([]string, len(assets))
	copy(owned, assets)
	return &Universe{assets: owned, index: index}, nil
}

// IndexedUniverse returns a universe labelled "0".."n-1".
func IndexedUniverse(n int) (*Universe, error) {
	assets := make([]string, n)
	for i := range assets {
		assets[i] = strconv.Itoa(i)
	}
	return NewUniverse(assets)
}

// Len returns the number of assets.
func (u *Universe) Len() int {
	return len(u.assets)
}

// Assets returns a copy of the ordered asset identifiers.
func (u *Universe) Assets() []string {
	out := make([]string, len(u.assets))
	copy(out, u.assets)
	return out
}

// Index returns the position of asset in the universe.
func (u *Universe) Index(asset string) (int, error) {
	i, ok := u.index[asset]
	if !ok {
		return -1, lookupError(StagePickMatrix, asset)
	}
	return i, nil
}

// PickEntry is one (asset, coefficient) term of a view's linear combination.
type PickEntry struct {
	Asset       string  `json:"asset" yaml:"asset" msgpack:"asset" validate:"required"`
	Coefficient float64 `json:"coefficient" yaml:"coefficient" msgpack:"coefficient"`
}

// Pick describes which assets a view concerns.
// An absolute view has one entry with coefficient 1; a relative view usually has
// coefficients summing to 0.
type Pick []PickEntry

// PickVector is a Pick resolved against a Universe.
type PickVector []PickTerm

// PickTerm is a resolved pick entry.
type PickTerm struct {
	Index       int
	Coefficient float64
}

// Resolve validates pick against the universe.
// Unknown assets are lookup errors; an asset named twice is a configuration error.
func (u *Universe) Resolve(pick Pick) (PickVector, error) {
	seen := make(map[int]struct{}, len(pick))
	vec := make(PickVector, 0, len(pick))
	for _, entry := range pick {
		i, err := u.Index(entry.Asset)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[i]; dup {
			return nil, configError(StagePickMatrix, ErrInvalidPick, "asset %q appears more than once", entry.Asset)
		}
		seen[i] = struct{}{}
		vec = append(vec, PickTerm{Index: i, Coefficient: entry.Coefficient})
	}
	return vec, nil
}

// Assets returns the asset identifiers named by the pick, in order.
func (p Pick) Assets() []string {
	out := make([]string, len(p))
	for i, entry := range p {
		out[i] = entry.Asset
	}
	return out
}

// CoefficientSum returns the sum of the pick's coefficients.
// Relative views sum to 0, absolute views to 1.
func (p Pick) CoefficientSum() float64 {
	var sum float64
	for _, entry := range p {
		sum += entry.Coefficient
	}
	return sum
}
