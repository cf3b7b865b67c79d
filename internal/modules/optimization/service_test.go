package optimization

import (
	"context"
	"errors"
	"testing"
	"time"

	testingpkg "github.com/aristath/allocator/internal/testing"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *RunRepository) {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "allocator")
	t.Cleanup(cleanup)

	repo := NewRunRepository(db.Conn(), zerolog.Nop())
	return NewService(newTestAllocator(), repo, zerolog.Nop()), repo
}

func TestService_AllocateStoresRun(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	run, err := service.Allocate(ctx, HeLittermanRequest(2))
	require.NoError(t, err)
	_, err = uuid.Parse(run.ID)
	require.NoError(t, err, "run ID should be a UUID")

	stored, err := service.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, stored.ID)
	assert.Equal(t, run.Result.Assets, stored.Result.Assets)
	assert.InDeltaSlice(t, run.Result.Weights.Values, stored.Result.Weights.Values, 1e-15)
	assert.Equal(t, run.Result.Omega, stored.Result.Omega)
	assert.Equal(t, HeLittermanRequest(2).Picks, stored.Request.Picks)
	assert.WithinDuration(t, run.CreatedAt, stored.CreatedAt, time.Millisecond)
}

func TestService_ListRunsNewestFirst(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := service.Allocate(ctx, HeLittermanRequest(i))
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	summaries, err := service.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, ids[2], summaries[0].ID)
	assert.Equal(t, ids[0], summaries[2].ID)
	assert.Equal(t, 2, summaries[0].NumViews)
	assert.Equal(t, 7, summaries[0].NumAssets)
	assert.Equal(t, OmegaPriorVariance, summaries[0].OmegaMethod)

	limited, err := service.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestService_GetRunUnknown(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.GetRun(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestService_FailedAllocationIsNotStored(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	req := HeLittermanRequest(1)
	req.OmegaMethod = "bogus"
	_, err := service.Allocate(ctx, req)
	require.Error(t, err)
	assert.Equal(t, KindConfiguration, KindOf(err))

	summaries, err := service.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

type failingStore struct{}

func (failingStore) Save(context.Context, *Run) error { return errors.New("disk full") }
func (failingStore) Get(context.Context, string) (*Run, error) {
	return nil, ErrRunNotFound
}
func (failingStore) List(context.Context, int) ([]RunSummary, error) { return nil, nil }

func TestService_StorageFailureDoesNotFailAllocation(t *testing.T) {
	service := NewService(newTestAllocator(), failingStore{}, zerolog.Nop())

	run, err := service.Allocate(context.Background(), HeLittermanRequest(1))
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.InDelta(t, 1.0, run.Result.Weights.Sum(), 1e-9)
}

func TestService_WithoutHistory(t *testing.T) {
	service := NewService(newTestAllocator(), nil, zerolog.Nop())
	assert.False(t, service.HistoryEnabled())

	run, err := service.Allocate(context.Background(), HeLittermanRequest(0))
	require.NoError(t, err)

	_, err = service.GetRun(context.Background(), run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)

	summaries, err := service.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestService_CancelledContext(t *testing.T) {
	service := NewService(newTestAllocator(), nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.Allocate(ctx, HeLittermanRequest(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunRepository_SaveRequiresResult(t *testing.T) {
	_, repo := newTestService(t)
	err := repo.Save(context.Background(), &Run{ID: "x", CreatedAt: time.Now()})
	assert.Error(t, err)
}
