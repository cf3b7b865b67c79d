package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/vmihailenco/msgpack/v5"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report JSON field names in validation errors
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// AllocateRequest is the body of POST /api/optimization/black-litterman.
// Either covariance or correlation with volatilities must be given.
type AllocateRequest struct {
	Assets        []string    `json:"assets,omitempty" msgpack:"assets,omitempty" validate:"omitempty,unique,dive,required"`
	Covariance    [][]float64 `json:"covariance,omitempty" msgpack:"covariance,omitempty" validate:"required_without=Correlation"`
	Correlation   [][]float64 `json:"correlation,omitempty" msgpack:"correlation,omitempty" validate:"required_without=Covariance"`
	Volatilities  []float64   `json:"volatilities,omitempty" msgpack:"volatilities,omitempty" validate:"required_with=Correlation"`
	MarketWeights []float64   `json:"market_weights" msgpack:"market_weights" validate:"required,min=1"`
	Views         []ViewInput `json:"views,omitempty" msgpack:"views,omitempty" validate:"omitempty,dive"`
	Omega         [][]float64 `json:"omega,omitempty" msgpack:"omega,omitempty"`
	RiskAversion  float64     `json:"risk_aversion,omitempty" msgpack:"risk_aversion,omitempty" validate:"gte=0"`
	Tau           float64     `json:"tau,omitempty" msgpack:"tau,omitempty" validate:"gte=0"`
	OmegaMethod   string      `json:"omega_method,omitempty" msgpack:"omega_method,omitempty"`
}

// ViewInput is one view: pick · R = return.
type ViewInput struct {
	Pick       optimization.Pick `json:"pick" msgpack:"pick" validate:"required,min=1,dive"`
	Return     float64           `json:"return" msgpack:"return"`
	Confidence *float64          `json:"confidence,omitempty" msgpack:"confidence,omitempty"`
}

// ListRunsQuery holds GET /api/optimization/runs parameters.
type ListRunsQuery struct {
	Limit int `default:"20" validate:"gte=1,lte=500"`
}

// ValidationError describes one rejected field.
type ValidationError struct {
	Code    string `json:"code" msgpack:"code"`
	Field   string `json:"field,omitempty" msgpack:"field,omitempty"`
	Message string `json:"message" msgpack:"message"`
}

// toRequest converts the body into an engine request. Confidences are passed only
// when at least one view sets one; views without one then carry 0 and are rejected
// by the engine.
func (b *AllocateRequest) toRequest() (optimization.Request, error) {
	covariance := b.Covariance
	if covariance == nil {
		var err error
		covariance, err = optimization.CovarianceFromCorrelation(b.Correlation, b.Volatilities)
		if err != nil {
			return optimization.Request{}, fmt.Errorf("failed to build covariance: %w", err)
		}
	}

	req := optimization.Request{
		Covariance:    covariance,
		MarketWeights: b.MarketWeights,
		Omega:         b.Omega,
		RiskAversion:  b.RiskAversion,
		Tau:           b.Tau,
		OmegaMethod:   optimization.OmegaMethod(b.OmegaMethod),
		Assets:        b.Assets,
	}

	var anyConfidence bool
	confidences := make([]float64, len(b.Views))
	for i, view := range b.Views {
		req.Views = append(req.Views, view.Return)
		req.Picks = append(req.Picks, view.Pick)
		if view.Confidence != nil {
			anyConfidence = true
			confidences[i] = *view.Confidence
		}
	}
	if anyConfidence {
		req.ViewConfidences = confidences
	}

	return req, nil
}

// readAndValidateRequest decodes the body (JSON or msgpack), applies defaults and
// validates it. It returns nil when the request is acceptable.
func readAndValidateRequest(w http.ResponseWriter, r *http.Request, req interface{}) []ValidationError {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), contentTypeMsgpack) {
		err = msgpack.NewDecoder(body).Decode(req)
	} else {
		err = json.NewDecoder(body).Decode(req)
	}
	if err != nil {
		return []ValidationError{{Code: "ERR_DECODE", Message: err.Error()}}
	}

	return setDefaultsAndValidate(r.Context(), req)
}

func setDefaultsAndValidate(ctx context.Context, req interface{}) []ValidationError {
	if err := defaults.Set(req); err != nil {
		return validationErrors(err)
	}
	if err := validate.StructCtx(ctx, req); err != nil {
		return validationErrors(err)
	}
	return nil
}

func validationErrors(err error) []ValidationError {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		out := make([]ValidationError, 0, len(fieldErrors))
		for _, fe := range fieldErrors {
			out = append(out, ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Namespace(),
				Message: errorMessage(fe),
			})
		}
		return out
	}
	return []ValidationError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
}

func errorMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_without":
		return fmt.Sprintf("%s is required when %s is missing", field, fe.Param())
	case "required_with":
		return fmt.Sprintf("%s is required with %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
