package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/aristath/allocator/pkg/formulas"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Problem is an allocation described in a YAML file. The covariance comes from
// exactly one of covariance, correlation with volatilities, or daily prices.
type Problem struct {
	Assets        []string             `yaml:"assets" validate:"required,min=1,unique,dive,required"`
	Covariance    [][]float64          `yaml:"covariance"`
	Correlation   [][]float64          `yaml:"correlation"`
	Volatilities  []float64            `yaml:"volatilities" validate:"required_with=Correlation"`
	Prices        map[string][]float64 `yaml:"prices"`
	Shrink        bool                 `yaml:"shrink"`
	MarketWeights map[string]float64   `yaml:"market_weights" validate:"required,min=1"`
	Views         []ProblemView        `yaml:"views" validate:"omitempty,dive"`
	Omega         [][]float64          `yaml:"omega"`
	RiskAversion  float64              `yaml:"risk_aversion" default:"2.5" validate:"gt=0"`
	Tau           float64              `yaml:"tau" default:"0.05" validate:"gt=0"`
	OmegaMethod   string               `yaml:"omega_method" default:"prior-variance" validate:"oneof=prior-variance user-confidence"`
}

// ProblemView is one view. Exactly one of pick, absolute or long is set.
// With long, short lists the underperformers; blend weights them by market cap
// instead of equally.
type ProblemView struct {
	Pick       optimization.Pick `yaml:"pick" validate:"omitempty,dive"`
	Absolute   string            `yaml:"absolute"`
	Long       string            `yaml:"long"`
	Short      []string          `yaml:"short" validate:"required_with=Long,omitempty,dive,required"`
	Blend      bool              `yaml:"blend"`
	Return     float64           `yaml:"return"`
	Confidence *float64          `yaml:"confidence" validate:"omitempty,gt=0,lte=1"`
}

// LoadProblem reads and validates a YAML problem file.
func LoadProblem(path string) (*Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open problem: %w", err)
	}
	defer f.Close()
	return DecodeProblem(f)
}

// DecodeProblem reads a YAML problem, applies defaults and validates it.
func DecodeProblem(r io.Reader) (*Problem, error) {
	var p Problem
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode problem: %w", err)
	}
	if err := defaults.Set(&p); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := validate.StructCtx(context.Background(), &p); err != nil {
		return nil, fmt.Errorf("invalid problem: %w", err)
	}

	sources := 0
	for _, set := range []bool{p.Covariance != nil, p.Correlation != nil, p.Prices != nil} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, errors.New("invalid problem: give exactly one of covariance, correlation or prices")
	}
	return &p, nil
}

// Request converts the problem into an engine request.
func (p *Problem) Request() (optimization.Request, error) {
	covariance, err := p.covariance()
	if err != nil {
		return optimization.Request{}, err
	}

	weights := make([]float64, len(p.Assets))
	for i, asset := range p.Assets {
		w, ok := p.MarketWeights[asset]
		if !ok {
			return optimization.Request{}, fmt.Errorf("missing market weight for %s", asset)
		}
		weights[i] = w
	}

	views := make([]optimization.View, len(p.Views))
	var anyConfidence bool
	for i, pv := range p.Views {
		views[i], err = pv.view(p.MarketWeights)
		if err != nil {
			return optimization.Request{}, fmt.Errorf("view %d: %w", i+1, err)
		}
		if pv.Confidence != nil {
			anyConfidence = true
		}
	}
	q, picks, confidences := optimization.SplitViews(views)
	if !anyConfidence {
		confidences = nil
	}

	return optimization.Request{
		Covariance:      covariance,
		MarketWeights:   weights,
		Views:           q,
		Picks:           picks,
		Omega:           p.Omega,
		RiskAversion:    p.RiskAversion,
		Tau:             p.Tau,
		OmegaMethod:     optimization.OmegaMethod(p.OmegaMethod),
		ViewConfidences: confidences,
		Assets:          p.Assets,
	}, nil
}

func (p *Problem) covariance() ([][]float64, error) {
	switch {
	case p.Covariance != nil:
		return p.Covariance, nil
	case p.Correlation != nil:
		return optimization.CovarianceFromCorrelation(p.Correlation, p.Volatilities)
	default:
		return p.covarianceFromPrices()
	}
}

// covarianceFromPrices estimates an annualised covariance from daily prices.
func (p *Problem) covarianceFromPrices() ([][]float64, error) {
	returns := make(map[string][]float64, len(p.Assets))
	series := make([][]float64, len(p.Assets))
	for i, asset := range p.Assets {
		prices, ok := p.Prices[asset]
		if !ok {
			return nil, fmt.Errorf("missing prices for %s", asset)
		}
		r, err := formulas.LogReturns(prices)
		if err != nil {
			return nil, fmt.Errorf("prices for %s: %w", asset, err)
		}
		returns[asset] = r
		series[i] = r
	}

	if p.Shrink {
		return optimization.CovarianceFromReturns(returns, p.Assets, optimization.CovarianceOptions{Shrink: true})
	}

	corr, err := formulas.CorrelationMatrix(series)
	if err != nil {
		return nil, err
	}
	vols := make([]float64, len(series))
	for i, r := range series {
		vols[i] = formulas.AnnualizedVolatility(r)
		if vols[i] == 0 || math.IsNaN(vols[i]) {
			return nil, fmt.Errorf("prices for %s have no variation", p.Assets[i])
		}
	}
	return optimization.CovarianceFromCorrelation(corr, vols)
}

func (v ProblemView) view(marketWeights map[string]float64) (optimization.View, error) {
	var (
		view optimization.View
		err  error
		set  int
	)
	if len(v.Pick) > 0 {
		set++
		view = optimization.View{Type: optimization.ViewRelative, Pick: v.Pick, Return: v.Return}
		if len(v.Pick) == 1 {
			view.Type = optimization.ViewAbsolute
		}
	}
	if v.Absolute != "" {
		set++
		view = optimization.AbsoluteView(v.Absolute, v.Return)
	}
	if v.Long != "" {
		set++
		switch {
		case v.Blend:
			view, err = optimization.BlendedRelativeView(v.Long, v.Short, marketWeights, v.Return)
		case len(v.Short) == 1:
			view = optimization.RelativeView(v.Long, v.Short[0], v.Return)
		default:
			equal := make(map[string]float64, len(v.Short))
			for _, s := range v.Short {
				equal[s] = 1
			}
			view, err = optimization.BlendedRelativeView(v.Long, v.Short, equal, v.Return)
		}
		if err != nil {
			return optimization.View{}, err
		}
	}
	if set != 1 {
		return optimization.View{}, errors.New("set exactly one of pick, absolute or long")
	}
	if v.Confidence != nil {
		view = view.WithConfidence(*v.Confidence)
	}
	return view, nil
}
