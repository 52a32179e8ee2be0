package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/staffdrop/internal/config"
	"github.com/dharsanguruparan/staffdrop/internal/model"
	"github.com/dharsanguruparan/staffdrop/internal/storage"
)

type recordingMailer struct {
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func failedJob() *model.ImportJob {
	job := &model.ImportJob{
		ID:        "job-1",
		Name:      "March hires",
		OwnerID:   "u1",
		State:     model.StateFailed,
		Total:     2,
		Processed: 1,
	}
	job.SetErrors([]string{"Row 2: duplicate (email or id)"})
	return job
}

func TestComposeIncludesCountsAndErrors(t *testing.T) {
	msg := Compose(failedJob(), model.User{ID: "u1", Name: "Ana", Email: "ana@x.com"})

	assert.Equal(t, "ana@x.com", msg.To)
	assert.Equal(t, "Employee Import: March hires - failed", msg.Subject)
	assert.Contains(t, msg.Body, "Hi Ana,")
	assert.Contains(t, msg.Body, "Processed: 1 / 2")
	assert.Contains(t, msg.Body, "Row 2: duplicate (email or id)")
}

func TestComposeNoErrorsMarker(t *testing.T) {
	job := &model.ImportJob{Name: "ok", State: model.StateDone, Total: 2, Processed: 2}
	msg := Compose(job, model.User{Name: "Ana", Email: "ana@x.com"})
	assert.Contains(t, msg.Body, "No errors")
	assert.Equal(t, "Employee Import: ok - done", msg.Subject)
}

func TestNotifySendsToOwner(t *testing.T) {
	mailer := &recordingMailer{}
	users := storage.NewMemoryUsers(model.User{ID: "u1", Name: "Ana", Email: "ana@x.com"})

	New(users, mailer).Notify(context.Background(), failedJob())

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ana@x.com", mailer.sent[0].To)
}

func TestNotifySkipsOwnerWithoutEmail(t *testing.T) {
	mailer := &recordingMailer{}
	users := storage.NewMemoryUsers(model.User{ID: "u1", Name: "Ana"})

	New(users, mailer).Notify(context.Background(), failedJob())

	assert.Empty(t, mailer.sent)
}

func TestNotifySwallowsFailures(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("relay down")}
	users := storage.NewMemoryUsers(model.User{ID: "u1", Name: "Ana", Email: "ana@x.com"})

	assert.NotPanics(t, func() {
		New(users, mailer).Notify(context.Background(), failedJob())
		New(storage.NewMemoryUsers(), mailer).Notify(context.Background(), failedJob())
	})
	assert.Len(t, mailer.sent, 1)
}

func TestNewMailerFallsBackToLog(t *testing.T) {
	m, err := NewMailer(&config.Config{})
	require.NoError(t, err)
	assert.IsType(t, LogMailer{}, m)
	assert.NoError(t, m.Send(context.Background(), Message{To: "a@x.com"}))
}
