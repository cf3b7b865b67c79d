package optimization

import (
	"fmt"
	"math"
)

// View types.
const (
	ViewAbsolute = "absolute"
	ViewRelative = "relative"
)

// View is an investor opinion: Pick·R is expected to equal Return.
type View struct {
	Type       string  `json:"type" yaml:"type" msgpack:"type"`
	Pick       Pick    `json:"pick" yaml:"pick" msgpack:"pick"`
	Return     float64 `json:"return" yaml:"return" msgpack:"return"`
	Confidence float64 `json:"confidence,omitempty" yaml:"confidence,omitempty" msgpack:"confidence,omitempty"` // only read by the user-confidence omega method
}

// AbsoluteView states that asset returns ret.
func AbsoluteView(asset string, ret float64) View {
	return View{
		Type:   ViewAbsolute,
		Pick:   Pick{{Asset: asset, Coefficient: 1.0}},
		Return: ret,
	}
}

// RelativeView states that long outperforms short by spread.
func RelativeView(long, short string, spread float64) View {
	return View{
		Type: ViewRelative,
		Pick: Pick{
			{Asset: long, Coefficient: 1.0},
			{Asset: short, Coefficient: -1.0},
		},
		Return: spread,
	}
}

// BlendedRelativeView states that long outperforms a market-cap-weighted blend of
// shorts by spread. Each short gets -w_i/Σw, so the pick coefficients sum to 0.
//
// Formula: P = [1, -w_1/(w_1+...+w_m), ..., -w_m/(w_1+...+w_m)]
func BlendedRelativeView(long string, shorts []string, marketWeights map[string]float64, spread float64) (View, error) {
	if len(shorts) == 0 {
		return View{}, fmt.Errorf("blended view for %s needs at least one underperformer", long)
	}

	var total float64
	for _, short := range shorts {
		w, ok := marketWeights[short]
		if !ok {
			return View{}, fmt.Errorf("missing market weight for %s", short)
		}
		total += w
	}
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return View{}, fmt.Errorf("market weights of %v sum to %v, cannot blend", shorts, total)
	}

	pick := make(Pick, 0, len(shorts)+1)
	pick = append(pick, PickEntry{Asset: long, Coefficient: 1.0})
	for _, short := range shorts {
		pick = append(pick, PickEntry{Asset: short, Coefficient: -marketWeights[short] / total})
	}

	return View{Type: ViewRelative, Pick: pick, Return: spread}, nil
}

// WithConfidence returns a copy of v carrying the given confidence.
func (v View) WithConfidence(confidence float64) View {
	v.Confidence = confidence
	return v
}

// SplitViews separates views into the Q vector, the pick list and the confidences,
// preserving order so that row k of P matches Q[k].
func SplitViews(views []View) (q []float64, picks []Pick, confidences []float64) {
	q = make([]float64, len(views))
	picks = make([]Pick, len(views))
	confidences = make([]float64, len(views))
	for i, view := range views {
		q[i] = view.Return
		picks[i] = view.Pick
		confidences[i] = view.Confidence
	}
	return q, picks, confidences
}
