package optimization

import "math"

// validateRequest fails fast on configuration problems before any matrix is built.
func validateRequest(req *Request, method OmegaMethod, riskAversion, tau float64) error {
	if len(req.Views) != len(req.Picks) {
		return configError(StageValidation, ErrViewCountMismatch, "%d views, %d picks", len(req.Views), len(req.Picks))
	}

	if !method.Valid() {
		return configError(StageValidation, ErrUnknownOmegaMethod,
			"%q (supported: %s, %s)", method, OmegaPriorVariance, OmegaUserConfidence)
	}

	if method == OmegaUserConfidence {
		if req.ViewConfidences == nil {
			return configError(StageValidation, ErrMissingConfidences, "got none for %d views", len(req.Views))
		}
		if len(req.ViewConfidences) != len(req.Views) {
			return configError(StageValidation, ErrConfidenceCountMismatch,
				"%d views, %d confidences", len(req.Views), len(req.ViewConfidences))
		}
		for i, c := range req.ViewConfidences {
			// Zero confidence would divide by zero in (1-c)/c.
			if math.IsNaN(c) || c <= 0 || c > 1 {
				return configError(StageValidation, ErrInvalidConfidence, "view %d has confidence %v", i, c)
			}
		}
	}

	if !(riskAversion > 0) || math.IsInf(riskAversion, 0) {
		return configError(StageValidation, ErrInvalidParameter, "risk aversion must be positive, got %v", riskAversion)
	}
	if !(tau > 0) || math.IsInf(tau, 0) {
		return configError(StageValidation, ErrInvalidParameter, "tau must be positive, got %v", tau)
	}

	return nil
}
