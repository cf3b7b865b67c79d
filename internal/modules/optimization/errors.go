package optimization

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an allocation failed.
type ErrorKind int

const (
	// KindConfiguration covers inconsistent or out-of-range inputs detected before any algebra.
	KindConfiguration ErrorKind = iota + 1
	// KindLookup covers pick entries naming assets outside the universe.
	KindLookup
	// KindNumeric covers singular matrices and non-finite intermediate results.
	KindNumeric
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindLookup:
		return "lookup"
	case KindNumeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// Pipeline stage names reported in errors and logs.
const (
	StageValidation       = "validation"
	StageInputs           = "inputs"
	StageEquilibrium      = "equilibrium_returns"
	StagePickMatrix       = "pick_matrix"
	StageOmega            = "omega"
	StagePosteriorReturns = "posterior_returns"
	StagePosteriorCov     = "posterior_covariance"
	StageMaxSharpeWeights = "max_sharpe_weights"
	StageResultPackaging  = "result_packaging"
)

var (
	ErrViewCountMismatch       = errors.New("number of views does not match number of picks")
	ErrUnknownOmegaMethod      = errors.New("unknown omega method")
	ErrMissingConfidences      = errors.New("view confidences are required for the user-confidence omega method")
	ErrConfidenceCountMismatch = errors.New("number of views does not match number of view confidences")
	ErrInvalidConfidence       = errors.New("view confidence must be in (0, 1]")
	ErrInvalidParameter        = errors.New("invalid model parameter")
	ErrDimensionMismatch       = errors.New("dimension mismatch")
	ErrInvalidUniverse         = errors.New("invalid asset universe")
	ErrInvalidPick             = errors.New("invalid pick")
	ErrUnknownAsset            = errors.New("unknown asset")
	ErrSingularMatrix          = errors.New("matrix is singular or ill-conditioned")
	ErrZeroWeightSum           = errors.New("raw portfolio weights sum to zero")
	ErrNonFinite               = errors.New("non-finite value")
)

// AllocationError is returned by every failing Allocate call.
// errors.Is matches the wrapped sentinel; errors.As exposes the kind and stage.
type AllocationError struct {
	Kind   ErrorKind
	Stage  string
	Matrix string // matrix being inverted or checked, numeric errors only
	Err    error
}

func (e *AllocationError) Error() string {
	if e.Matrix != "" {
		return fmt.Sprintf("%s error at %s (%s): %v", e.Kind, e.Stage, e.Matrix, e.Err)
	}
	return fmt.Sprintf("%s error at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

func configError(stage string, sentinel error, format string, args ...interface{}) error {
	return &AllocationError{
		Kind:  KindConfiguration,
		Stage: stage,
		Err:   fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)),
	}
}

func lookupError(stage, asset string) error {
	return &AllocationError{
		Kind:  KindLookup,
		Stage: stage,
		Err:   fmt.Errorf("%w: %q", ErrUnknownAsset, asset),
	}
}

func numericError(stage, matrix string, sentinel error, cause error) error {
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %v", sentinel, cause)
	}
	return &AllocationError{
		Kind:   KindNumeric,
		Stage:  stage,
		Matrix: matrix,
		Err:    err,
	}
}

// KindOf returns the kind of an allocation error, or 0 when err is not one.
func KindOf(err error) ErrorKind {
	var allocErr *AllocationError
	if errors.As(err, &allocErr) {
		return allocErr.Kind
	}
	return 0
}
