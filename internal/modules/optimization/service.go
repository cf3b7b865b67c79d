package optimization

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultRunListLimit caps ListRuns when the caller passes no limit.
const DefaultRunListLimit = 50

// RunStore persists allocation runs.
type RunStore interface {
	Save(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, limit int) ([]RunSummary, error)
}

// Service runs allocations and records them in the run history.
type Service struct {
	allocator *Allocator
	runs      RunStore // nil disables run history
	log       zerolog.Logger
}

// NewService creates an allocation service. runs may be nil.
func NewService(allocator *Allocator, runs RunStore, log zerolog.Logger) *Service {
	return &Service{
		allocator: allocator,
		runs:      runs,
		log:       log.With().Str("service", "allocation").Logger(),
	}
}

// Allocator returns the engine the service runs.
func (s *Service) Allocator() *Allocator {
	return s.allocator
}

// HistoryEnabled reports whether runs are persisted.
func (s *Service) HistoryEnabled() bool {
	return s.runs != nil
}

// Allocate runs one allocation and stores it. A storage failure is logged and does
// not fail the allocation.
func (s *Service) Allocate(ctx context.Context, req Request) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.allocator.Allocate(req)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:        uuid.New().String(),
		CreatedAt: start.UTC(),
		Request:   req,
		Result:    result,
	}

	s.log.Info().
		Str("run_id", run.ID).
		Int("num_assets", len(result.Assets)).
		Int("num_views", len(req.Views)).
		Str("omega_method", string(result.OmegaMethod)).
		Dur("duration", time.Since(start)).
		Msg("Allocation complete")

	if s.runs != nil {
		if err := s.runs.Save(ctx, run); err != nil {
			s.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to store allocation run")
		}
	}

	return run, nil
}

// GetRun returns a stored run. Without run history every ID is unknown.
func (s *Service) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.runs == nil {
		return nil, ErrRunNotFound
	}
	return s.runs.Get(ctx, id)
}

// ListRuns returns stored run summaries, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if s.runs == nil {
		return []RunSummary{}, nil
	}
	if limit <= 0 {
		limit = DefaultRunListLimit
	}
	return s.runs.List(ctx, limit)
}
