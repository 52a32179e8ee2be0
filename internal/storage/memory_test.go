package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/staffdrop/internal/model"
)

func newJob(id, owner string, created time.Time) *model.ImportJob {
	return &model.ImportJob{ID: id, Name: "Employee Import", OwnerID: owner, State: model.StateDraft, CreatedAt: created}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return clock }

	require.NoError(t, store.Create(ctx, newJob("j1", "u1", clock)))
	assert.Error(t, store.Create(ctx, newJob("j1", "u1", clock)), "ids are unique")

	job, err := store.MarkPending(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, model.StatePending, job.State)
	_, err = store.MarkPending(ctx, "j1")
	assert.ErrorIs(t, err, model.ErrInvalidState)

	job, err = store.Claim(ctx, "j1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, model.StateRunning, job.State)

	_, err = store.Claim(ctx, "j1", time.Minute)
	assert.ErrorIs(t, err, model.ErrJobBusy)

	clock = clock.Add(2 * time.Minute)
	_, err = store.Claim(ctx, "j1", time.Minute)
	require.NoError(t, err, "a stale run can be reclaimed")

	job.State = model.StateFailed
	job.Total, job.Processed = 3, 1
	job.SetErrors([]string{"Row 2: missing name", "Row 3: missing name"})
	require.NoError(t, store.Finish(ctx, job))

	got, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, model.StateFailed, got.State)
	assert.Len(t, got.ErrorLines(), 2)

	// Rerun resets the counters.
	got, err = store.Claim(ctx, "j1", time.Minute)
	require.NoError(t, err)
	assert.Zero(t, got.Total)
	assert.Nil(t, got.Errors)
}

func TestMemoryStoreClaimRefusesDraft(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, newJob("j1", "u1", time.Now())))

	_, err := store.Claim(ctx, "j1", time.Minute)
	assert.ErrorIs(t, err, model.ErrInvalidState)
	got, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, model.StateDraft, got.State)
}

func TestMemoryStoreRelease(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, newJob("j1", "u1", time.Now())))
	_, err := store.MarkPending(ctx, "j1")
	require.NoError(t, err)
	_, err = store.Claim(ctx, "j1", time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.Release(ctx, "j1"))
	got, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, model.StatePending, got.State)

	_, err = store.Claim(ctx, "j1", time.Hour)
	require.NoError(t, err, "a released job is claimable before the lease runs out")

	assert.ErrorIs(t, store.Release(ctx, "nope"), model.ErrNotFound)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, newJob("j1", "u1", time.Now())))

	job, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	job.State = model.StateDone

	again, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, model.StateDraft, again.State)
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Now()
	require.NoError(t, store.Create(ctx, newJob("old", "u1", base)))
	require.NoError(t, store.Create(ctx, newJob("new", "u1", base.Add(time.Second))))
	require.NoError(t, store.Create(ctx, newJob("other", "u2", base)))

	mine, err := store.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "new", mine[0].ID)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryStoreUnknownJob(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.Get(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = store.MarkPending(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = store.Claim(ctx, "nope", time.Minute)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemoryFiles(t *testing.T) {
	ctx := context.Background()
	files := NewMemoryFiles()
	require.NoError(t, files.Put(ctx, "k", []byte("v"), "text/plain"))
	data, err := files.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)

	files.Delete("k")
	_, err = files.Get(ctx, "k")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUsers(model.User{ID: "u1", Name: "One"})
	require.NoError(t, users.Create(ctx, model.User{ID: "u2", Name: "Two"}))

	u, err := users.GetUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "Two", u.Name)
	_, err = users.GetUser(ctx, "u3")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
