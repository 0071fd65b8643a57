// Package notify turns queued notification events into emails.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iliyamo/snapscape/internal/mail"
	"github.com/iliyamo/snapscape/internal/model"
	"github.com/iliyamo/snapscape/internal/queue"
)

type UserDirectory interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	ListCompetitionSubscribers(ctx context.Context) ([]model.User, error)
}

// Dispatcher resolves recipients for an event and mails each of them,
// honouring their notification preferences.
type Dispatcher struct {
	Users  UserDirectory
	Mailer mail.Sender
}

func NewDispatcher(users UserDirectory, mailer mail.Sender) *Dispatcher {
	return &Dispatcher{Users: users, Mailer: mailer}
}

// HandleNotification implements queue.Handler. Unknown kinds are dropped.
func (d *Dispatcher) HandleNotification(ctx context.Context, ev queue.NotificationEvent) error {
	switch ev.Kind {
	case queue.KindSubmissionReviewed:
		return d.submissionReviewed(ctx, ev)
	case queue.KindCompetitionStatusChanged:
		return d.competitionStatusChanged(ctx, ev)
	default:
		slog.Warn("notify: unknown event kind", "kind", ev.Kind)
		return nil
	}
}

func (d *Dispatcher) submissionReviewed(ctx context.Context, ev queue.NotificationEvent) error {
	u, err := d.Users.GetByID(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("load user %d: %w", ev.UserID, err)
	}
	if !u.IsActive || !u.NotifyOnReview {
		return nil
	}
	subject := fmt.Sprintf("Your photo %q was %s", ev.SubmissionTitle, ev.Status)
	body := fmt.Sprintf("Hi %s,\n\nYour photo %q in %q has been %s.\n", u.Name, ev.SubmissionTitle, ev.CompetitionTitle, ev.Status)
	return d.Mailer.Send(u.Email, subject, body)
}

func (d *Dispatcher) competitionStatusChanged(ctx context.Context, ev queue.NotificationEvent) error {
	var subject, line string
	switch model.CompetitionStatus(ev.Status) {
	case model.StatusVoting:
		subject = fmt.Sprintf("Voting is open: %s", ev.CompetitionTitle)
		line = "Submissions are closed and voting has started. Rate your favourite photos!"
	case model.StatusCompleted:
		subject = fmt.Sprintf("Results are in: %s", ev.CompetitionTitle)
		line = "Voting has ended. The leaderboard and winners are now available."
	default:
		return nil
	}
	users, err := d.Users.ListCompetitionSubscribers(ctx)
	if err != nil {
		return fmt.Errorf("load subscribers: %w", err)
	}
	// One failed recipient must not stop the others; the message is acked
	// once every address has been tried.
	var errs []error
	for _, u := range users {
		body := fmt.Sprintf("Hi %s,\n\n%s\n", u.Name, line)
		if err := d.Mailer.Send(u.Email, subject, body); err != nil {
			slog.Warn("notify: send failed", "user_id", u.ID, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) == len(users) && len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
