// Package notify tells job owners how their import went.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/dharsanguruparan/staffdrop/internal/logging"
	"github.com/dharsanguruparan/staffdrop/internal/model"
)

// Message is one outbound notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers a Message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// UserLookup resolves a job owner to their contact details.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (model.User, error)
}

// Notifier sends the completion message for an import job.
type Notifier struct {
	users  UserLookup
	mailer Mailer
}

// New constructs a Notifier.
func New(users UserLookup, mailer Mailer) *Notifier {
	return &Notifier{users: users, mailer: mailer}
}

// Notify composes and sends the completion message. Owners without an
// address are skipped; every failure is logged and swallowed so that a
// notification problem never changes the outcome of the run.
func (n *Notifier) Notify(ctx context.Context, job *model.ImportJob) {
	log := logging.WithFields(ctx, "job_id", job.ID, "owner_id", job.OwnerID)
	owner, err := n.users.GetUser(ctx, job.OwnerID)
	if err != nil {
		log.Error("failed to load import job owner", "error", err)
		return
	}
	if owner.Email == "" {
		log.Info("no email for user, skipping notification")
		return
	}
	msg := Compose(job, owner)
	if err := n.mailer.Send(ctx, msg); err != nil {
		log.Error("failed to send import result email", "error", err)
		return
	}
	log.Info("import result email sent", "to", owner.Email)
}

// Compose renders the notification for job addressed to owner.
func Compose(job *model.ImportJob, owner model.User) Message {
	errorsText := "No errors"
	if job.Errors != nil && *job.Errors != "" {
		errorsText = *job.Errors
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", owner.Name)
	fmt.Fprintf(&b, "Import job %s finished with status: %s.\n\n", job.Name, job.State)
	fmt.Fprintf(&b, "Processed: %d / %d\n\n", job.Processed, job.Total)
	b.WriteString("Errors (if any):\n")
	b.WriteString(errorsText)
	b.WriteString("\n")
	return Message{
		To:      owner.Email,
		Subject: fmt.Sprintf("Employee Import: %s - %s", job.Name, job.State),
		Body:    b.String(),
	}
}
