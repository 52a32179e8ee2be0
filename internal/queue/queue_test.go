package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportTaskRoundTrip(t *testing.T) {
	task, err := NewImportTask("job-1")
	require.NoError(t, err)
	assert.Equal(t, ImportEmployeesTask, task.Type())

	payload, err := DecodeImportPayload(task)
	require.NoError(t, err)
	assert.Equal(t, "job-1", payload.JobID)
}

func TestDecodeImportPayloadRejectsBadInput(t *testing.T) {
	_, err := DecodeImportPayload(asynq.NewTask(ImportEmployeesTask, []byte("{")))
	assert.Error(t, err)

	_, err = DecodeImportPayload(asynq.NewTask(ImportEmployeesTask, []byte(`{}`)))
	assert.Error(t, err)
}

func TestTaskIDIsStablePerJob(t *testing.T) {
	assert.Equal(t, TaskID("a"), TaskID("a"))
	assert.NotEqual(t, TaskID("a"), TaskID("b"))
}

type runnerFunc func(ctx context.Context, id string) error

func (f runnerFunc) Run(ctx context.Context, id string) error { return f(ctx, id) }

func TestInlineRunsAndSwallowsRunErrors(t *testing.T) {
	var ran []string
	d := Inline{Runner: runnerFunc(func(_ context.Context, id string) error {
		ran = append(ran, id)
		return errors.New("boom")
	})}

	require.NoError(t, d.Enqueue(context.Background(), "job-1"))
	assert.Equal(t, []string{"job-1"}, ran)
}

func TestUnavailable(t *testing.T) {
	err := Unavailable{}.Enqueue(context.Background(), "job-1")
	assert.ErrorIs(t, err, ErrUnavailable)
}
