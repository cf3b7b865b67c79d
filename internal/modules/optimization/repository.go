package optimization

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("allocation run not found")

// Run is a stored allocation: the request as received and the result produced.
type Run struct {
	ID        string    `json:"id" msgpack:"id"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
	Request   Request   `json:"-" msgpack:"request"`
	Result    *Result   `json:"result" msgpack:"result"`
}

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	ID           string      `json:"id" msgpack:"id"`
	CreatedAt    time.Time   `json:"created_at" msgpack:"created_at"`
	NumAssets    int         `json:"num_assets" msgpack:"num_assets"`
	NumViews     int         `json:"num_views" msgpack:"num_views"`
	OmegaMethod  OmegaMethod `json:"omega_method" msgpack:"omega_method"`
	RiskAversion float64     `json:"risk_aversion" msgpack:"risk_aversion"`
	Tau          float64     `json:"tau" msgpack:"tau"`
}

// RunRepository stores allocation runs in the allocation_runs table.
type RunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// runSummaryColumns must match scanSummary.
const runSummaryColumns = `id, created_at, num_assets, num_views, omega_method, risk_aversion, tau`

// NewRunRepository creates a run repository over an allocator database.
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repo", "allocation_runs").Logger(),
	}
}

// Save stores a run. Request and result are encoded as msgpack blobs.
func (r *RunRepository) Save(ctx context.Context, run *Run) error {
	if run.Result == nil {
		return fmt.Errorf("run %s has no result", run.ID)
	}

	requestBlob, err := msgpack.Marshal(&run.Request)
	if err != nil {
		return fmt.Errorf("failed to encode request for run %s: %w", run.ID, err)
	}
	resultBlob, err := msgpack.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result for run %s: %w", run.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO allocation_runs
		(id, created_at, num_assets, num_views, omega_method, risk_aversion, tau, request, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.CreatedAt.UnixMilli(),
		len(run.Result.Assets),
		len(run.Request.Views),
		string(run.Result.OmegaMethod),
		run.Result.RiskAversion,
		run.Result.Tau,
		requestBlob,
		resultBlob,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	r.log.Debug().Str("run_id", run.ID).Int("bytes", len(requestBlob)+len(resultBlob)).Msg("Stored allocation run")
	return nil
}

// Get loads a run by ID. Unknown IDs return ErrRunNotFound.
func (r *RunRepository) Get(ctx context.Context, id string) (*Run, error) {
	var (
		createdAt   int64
		requestBlob []byte
		resultBlob  []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT created_at, request, result FROM allocation_runs WHERE id = ?`, id,
	).Scan(&createdAt, &requestBlob, &resultBlob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	run := &Run{
		ID:        id,
		CreatedAt: time.UnixMilli(createdAt).UTC(),
		Result:    &Result{},
	}
	if err := msgpack.Unmarshal(requestBlob, &run.Request); err != nil {
		return nil, fmt.Errorf("failed to decode request for run %s: %w", id, err)
	}
	if err := msgpack.Unmarshal(resultBlob, run.Result); err != nil {
		return nil, fmt.Errorf("failed to decode result for run %s: %w", id, err)
	}
	return run, nil
}

// List returns up to limit run summaries, newest first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+runSummaryColumns+`
		FROM allocation_runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	summaries := make([]RunSummary, 0)
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return summaries, nil
}

func scanSummary(rows *sql.Rows) (RunSummary, error) {
	var (
		s         RunSummary
		createdAt int64
		method    string
	)
	if err := rows.Scan(&s.ID, &createdAt, &s.NumAssets, &s.NumViews, &method, &s.RiskAversion, &s.Tau); err != nil {
		return RunSummary{}, fmt.Errorf("failed to scan run: %w", err)
	}
	s.CreatedAt = time.UnixMilli(createdAt).UTC()
	s.OmegaMethod = OmegaMethod(method)
	return s, nil
}
