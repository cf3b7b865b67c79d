// Package handlers provides HTTP handlers for Black-Litterman allocations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"

	// maxBodyBytes bounds request bodies; a 500-asset covariance is well under this.
	maxBodyBytes = 8 << 20
)

// Handler handles allocation HTTP requests
type Handler struct {
	service *optimization.Service
	log     zerolog.Logger
}

// NewHandler creates a new allocation handler
func NewHandler(service *optimization.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "optimization").Logger(),
	}
}

// AllocationResponse is the data payload of a successful allocation.
type AllocationResponse struct {
	RunID     string               `json:"run_id" msgpack:"run_id"`
	CreatedAt time.Time            `json:"created_at" msgpack:"created_at"`
	Result    *optimization.Result `json:"result" msgpack:"result"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string            `json:"error" msgpack:"error"`
	Kind    string            `json:"kind" msgpack:"kind"`
	Stage   string            `json:"stage,omitempty" msgpack:"stage,omitempty"`
	Matrix  string            `json:"matrix,omitempty" msgpack:"matrix,omitempty"`
	Details []ValidationError `json:"details,omitempty" msgpack:"details,omitempty"`
}

// HandleBlackLitterman handles POST /api/optimization/black-litterman
func (h *Handler) HandleBlackLitterman(w http.ResponseWriter, r *http.Request) {
	var body AllocateRequest
	if details := readAndValidateRequest(w, r, &body); details != nil {
		h.log.Debug().Int("problems", len(details)).Msg("Rejected allocation request body")
		h.writeResponse(w, r, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request body",
			Kind:    optimization.KindConfiguration.String(),
			Stage:   "request",
			Details: details,
		})
		return
	}

	req, err := body.toRequest()
	if err != nil {
		h.writeResponse(w, r, http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Kind:  optimization.KindConfiguration.String(),
			Stage: optimization.StageInputs,
		})
		return
	}

	run, err := h.service.Allocate(r.Context(), req)
	if err != nil {
		h.writeAllocationError(w, r, err)
		return
	}

	h.writeResponse(w, r, http.StatusOK, envelope(AllocationResponse{
		RunID:     run.ID,
		CreatedAt: run.CreatedAt,
		Result:    run.Result,
	}))
}

// HandleListRuns handles GET /api/optimization/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	query := ListRunsQuery{}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.writeResponse(w, r, http.StatusBadRequest, ErrorResponse{
				Error: "limit must be an integer",
				Kind:  optimization.KindConfiguration.String(),
				Stage: "request",
			})
			return
		}
		query.Limit = limit
	}
	if details := setDefaultsAndValidate(r.Context(), &query); details != nil {
		h.writeResponse(w, r, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid query",
			Kind:    optimization.KindConfiguration.String(),
			Stage:   "request",
			Details: details,
		})
		return
	}

	runs, err := h.service.ListRuns(r.Context(), query.Limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list allocation runs")
		h.writeResponse(w, r, http.StatusInternalServerError, ErrorResponse{
			Error: "failed to list runs",
			Kind:  "internal",
		})
		return
	}

	h.writeResponse(w, r, http.StatusOK, envelope(map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	}))
}

// HandleGetRun handles GET /api/optimization/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.service.GetRun(r.Context(), id)
	if errors.Is(err, optimization.ErrRunNotFound) {
		h.writeResponse(w, r, http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Kind:  optimization.KindLookup.String(),
		})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to load allocation run")
		h.writeResponse(w, r, http.StatusInternalServerError, ErrorResponse{
			Error: "failed to load run",
			Kind:  "internal",
		})
		return
	}

	h.writeResponse(w, r, http.StatusOK, envelope(AllocationResponse{
		RunID:     run.ID,
		CreatedAt: run.CreatedAt,
		Result:    run.Result,
	}))
}

// writeAllocationError maps engine error kinds to status codes:
// configuration and lookup problems are the caller's (400), numeric failures mean
// the inputs were well formed but degenerate (422).
func (h *Handler) writeAllocationError(w http.ResponseWriter, r *http.Request, err error) {
	var allocErr *optimization.AllocationError
	if !errors.As(err, &allocErr) {
		h.log.Error().Err(err).Msg("Allocation failed")
		h.writeResponse(w, r, http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Kind:  "internal",
		})
		return
	}

	status := http.StatusBadRequest
	if allocErr.Kind == optimization.KindNumeric {
		status = http.StatusUnprocessableEntity
	}

	h.log.Warn().
		Err(err).
		Str("kind", allocErr.Kind.String()).
		Str("stage", allocErr.Stage).
		Int("status", status).
		Msg("Allocation rejected")

	h.writeResponse(w, r, status, ErrorResponse{
		Error:  allocErr.Error(),
		Kind:   allocErr.Kind.String(),
		Stage:  allocErr.Stage,
		Matrix: allocErr.Matrix,
	})
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

// writeResponse encodes data as msgpack when the client asks for it, JSON otherwise.
func (h *Handler) writeResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if wantsMsgpack(r) {
		payload, err := msgpack.Marshal(data)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to encode msgpack response")
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentTypeMsgpack)
		w.WriteHeader(status)
		if _, err := w.Write(payload); err != nil {
			h.log.Error().Err(err).Msg("Failed to write msgpack response")
		}
		return
	}

	h.writeJSON(w, status, data)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func wantsMsgpack(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), contentTypeMsgpack)
}
