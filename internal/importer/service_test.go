package importer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/staffdrop/internal/model"
	"github.com/dharsanguruparan/staffdrop/internal/queue"
)

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (d *recordingDispatcher) Enqueue(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.ids = append(d.ids, id)
	return nil
}

func (d *recordingDispatcher) enqueued() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ids...)
}

var owner = model.User{ID: "u1", Name: "Owner"}

func TestSubmitCreatesDraft(t *testing.T) {
	h := newHarness(t)
	job, err := h.service.Submit(context.Background(), SubmitInput{
		OwnerID:  "u1",
		Name:     "  Q3 hires ",
		FileName: "../../etc/staff.xlsx",
		Data:     []byte("payload"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StateDraft, job.State)
	assert.Equal(t, "Q3 hires", job.Name)
	assert.Equal(t, "staff.xlsx", job.FileName)
	assert.Equal(t, "imports/"+job.ID+"/staff.xlsx", job.ObjectKey)

	data, err := h.files.Get(context.Background(), job.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestSubmitValidates(t *testing.T) {
	h := newHarness(t)
	_, err := h.service.Submit(context.Background(), SubmitInput{OwnerID: "u1"})
	assert.ErrorIs(t, err, ErrEmptyUpload)
	_, err = h.service.Submit(context.Background(), SubmitInput{Data: []byte("x")})
	assert.ErrorIs(t, err, ErrMissingOwner)
}

func TestStartOnlyFromDraft(t *testing.T) {
	h := newHarness(t)
	disp := &recordingDispatcher{}
	svc := NewService(h.jobs, h.files, disp)
	job := h.submitRows(t, scenarioRows())

	res := svc.Start(context.Background(), owner, job.ID)
	require.Len(t, res, 1)
	require.NoError(t, res[0].Err())
	assert.True(t, res[0].Enqueued)
	assert.Equal(t, model.StatePending, res[0].State)

	res = svc.Start(context.Background(), owner, job.ID)
	assert.ErrorIs(t, res[0].Err(), model.ErrInvalidState)
	assert.Equal(t, []string{job.ID}, disp.enqueued())
}

func TestConcurrentStartsEnqueueOnce(t *testing.T) {
	h := newHarness(t)
	disp := &recordingDispatcher{}
	svc := NewService(h.jobs, h.files, disp)
	job := h.submitRows(t, scenarioRows())

	const callers = 16
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res := svc.Start(context.Background(), owner, job.ID); res[0].Err() == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, won)
	assert.Len(t, disp.enqueued(), 1)
}

func TestStartDegradedModeLeavesPending(t *testing.T) {
	h := newHarness(t)
	svc := NewService(h.jobs, h.files, queue.Unavailable{})
	job := h.submitRows(t, scenarioRows())

	res := svc.Start(context.Background(), owner, job.ID)[0]
	require.NoError(t, res.Err())
	assert.False(t, res.Enqueued)
	assert.NotEmpty(t, res.Warning)
	assert.Equal(t, model.StatePending, h.get(t, job.ID).State)

	// An operator can still run the stranded job directly.
	require.NoError(t, h.runner.Run(context.Background(), job.ID))
	assert.Equal(t, model.StateDone, h.get(t, job.ID).State)
}

func TestStartInlineRunsImmediately(t *testing.T) {
	h := newHarness(t)
	svc := NewService(h.jobs, h.files, queue.Inline{Runner: h.runner})
	job := h.submitRows(t, scenarioRows())

	res := svc.Start(context.Background(), owner, job.ID)[0]
	require.NoError(t, res.Err())
	assert.True(t, res.Enqueued)
	assert.Equal(t, model.StateDone, h.get(t, job.ID).State)
	assert.Equal(t, 1, h.notifier.count())
}

func TestStartBatchReportsEachJob(t *testing.T) {
	h := newHarness(t)
	disp := &recordingDispatcher{}
	svc := NewService(h.jobs, h.files, disp)
	a := h.submitRows(t, scenarioRows())
	b := h.submitRows(t, scenarioRows())

	res := svc.Start(context.Background(), owner, a.ID, "missing", b.ID)
	require.Len(t, res, 3)
	assert.NoError(t, res[0].Err())
	assert.ErrorIs(t, res[1].Err(), model.ErrNotFound)
	assert.NoError(t, res[2].Err())
	assert.Equal(t, []string{a.ID, b.ID}, disp.enqueued())
}

func TestStartRequiresVisibility(t *testing.T) {
	h := newHarness(t)
	job := h.submitRows(t, scenarioRows())

	res := h.service.Start(context.Background(), model.User{ID: "intruder"}, job.ID)[0]
	assert.ErrorIs(t, res.Err(), model.ErrNotFound)
	assert.Equal(t, model.StateDraft, h.get(t, job.ID).State)
}

func TestGetAndList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.submitRows(t, scenarioRows())

	_, err := h.service.Get(ctx, owner, job.ID)
	require.NoError(t, err)
	_, err = h.service.Get(ctx, model.User{ID: "other"}, job.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = h.service.Get(ctx, model.User{ID: "admin", Admin: true}, job.ID)
	require.NoError(t, err)

	mine, err := h.service.List(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, err := h.service.List(ctx, model.User{ID: "other"})
	require.NoError(t, err)
	assert.Empty(t, theirs)
}
