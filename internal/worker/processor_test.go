package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/staffdrop/internal/model"
	"github.com/dharsanguruparan/staffdrop/internal/queue"
)

type stubRunner struct {
	err error
	ids []string
}

func (s *stubRunner) Run(_ context.Context, id string) error {
	s.ids = append(s.ids, id)
	return s.err
}

func importTask(t *testing.T, id string) *asynq.Task {
	t.Helper()
	task, err := queue.NewImportTask(id)
	require.NoError(t, err)
	return task
}

func TestHandleImportRunsJob(t *testing.T) {
	runner := &stubRunner{}
	p := NewProcessor(runner)

	require.NoError(t, p.handleImport(context.Background(), importTask(t, "job-1")))
	assert.Equal(t, []string{"job-1"}, runner.ids)
}

func TestHandleImportSkipsRetryForPermanentErrors(t *testing.T) {
	for _, cause := range []error{model.ErrNotFound, model.ErrJobBusy, model.ErrInvalidState} {
		runner := &stubRunner{err: fmt.Errorf("claim job: %w", cause)}
		err := NewProcessor(runner).handleImport(context.Background(), importTask(t, "job-1"))
		assert.ErrorIs(t, err, asynq.SkipRetry, "cause %v", cause)
	}
}

func TestHandleImportRetriesTransientErrors(t *testing.T) {
	runner := &stubRunner{err: errors.New("connection reset")}
	err := NewProcessor(runner).handleImport(context.Background(), importTask(t, "job-1"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleImportRejectsBadPayload(t *testing.T) {
	runner := &stubRunner{}
	err := NewProcessor(runner).handleImport(context.Background(), asynq.NewTask(queue.ImportEmployeesTask, []byte("nope")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, runner.ids)
}

func TestHandlerRoutesImportTask(t *testing.T) {
	runner := &stubRunner{}
	mux := NewProcessor(runner).Handler()
	require.NoError(t, mux.ProcessTask(context.Background(), importTask(t, "job-2")))
	assert.Equal(t, []string{"job-2"}, runner.ids)
}

func TestRetryDelayIsCapped(t *testing.T) {
	delay := RetryDelay(time.Second, 10*time.Second)
	for n := 1; n <= 10; n++ {
		d := delay(n, nil, nil)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 10*time.Second)
	}
}
