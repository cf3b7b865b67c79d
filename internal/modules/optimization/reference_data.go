package optimization

// He & Litterman (1999), "The Intuition Behind Black-Litterman Model Portfolios",
// tables 1 and 2: seven equity markets.
var (
	HeLittermanCountries = []string{"AU", "CA", "FR", "DE", "JP", "UK", "US"}

	HeLittermanCorrelation = [][]float64{
		{1.000, 0.488, 0.478, 0.515, 0.439, 0.512, 0.491},
		{0.488, 1.000, 0.664, 0.655, 0.310, 0.608, 0.779},
		{0.478, 0.664, 1.000, 0.861, 0.355, 0.783, 0.668},
		{0.515, 0.655, 0.861, 1.000, 0.354, 0.777, 0.653},
		{0.439, 0.310, 0.355, 0.354, 1.000, 0.405, 0.306},
		{0.512, 0.608, 0.783, 0.777, 0.405, 1.000, 0.652},
		{0.491, 0.779, 0.668, 0.653, 0.306, 0.652, 1.000},
	}

	HeLittermanVolatilities = []float64{0.160, 0.203, 0.248, 0.271, 0.210, 0.200, 0.187}

	HeLittermanMarketWeights = []float64{0.016, 0.022, 0.052, 0.055, 0.116, 0.124, 0.615}
)

// HeLittermanCovariance returns vol·volᵗ ∘ ρ for the seven markets.
func HeLittermanCovariance() [][]float64 {
	cov, err := CovarianceFromCorrelation(HeLittermanCorrelation, HeLittermanVolatilities)
	if err != nil {
		// The tables above are fixed and well formed.
		panic(err)
	}
	return cov
}

// HeLittermanMarketWeightMap returns the market-cap weights keyed by country.
func HeLittermanMarketWeightMap() map[string]float64 {
	out := make(map[string]float64, len(HeLittermanCountries))
	for i, country := range HeLittermanCountries {
		out[country] = HeLittermanMarketWeights[i]
	}
	return out
}

// HeLittermanViews returns the first n views of the reference scenarios:
//  1. Germany outperforms a cap-weighted France/UK blend by 5%.
//  2. Canada outperforms the US by 3%.
//
// n is clamped to [0, 2].
func HeLittermanViews(n int) []View {
	germany, err := BlendedRelativeView("DE", []string{"FR", "UK"}, HeLittermanMarketWeightMap(), 0.05)
	if err != nil {
		panic(err)
	}
	views := []View{germany, RelativeView("CA", "US", 0.03)}
	if n < 0 {
		n = 0
	}
	if n > len(views) {
		n = len(views)
	}
	return views[:n]
}

// HeLittermanRequest builds the reference request with n views.
func HeLittermanRequest(n int) Request {
	q, picks, _ := SplitViews(HeLittermanViews(n))
	return Request{
		Covariance:    HeLittermanCovariance(),
		MarketWeights: append([]float64(nil), HeLittermanMarketWeights...),
		Views:         q,
		Picks:         picks,
		RiskAversion:  DefaultRiskAversion,
		Tau:           DefaultTau,
		Assets:        append([]string(nil), HeLittermanCountries...),
	}
}
