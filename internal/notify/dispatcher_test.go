package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/snapscape/internal/model"
	"github.com/iliyamo/snapscape/internal/queue"
)

type fakeUsers struct {
	byID        map[uint64]model.User
	subscribers []model.User
}

func (f fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, errors.New("not found")
	}
	return u, nil
}

func (f fakeUsers) ListCompetitionSubscribers(context.Context) ([]model.User, error) {
	return f.subscribers, nil
}

type sent struct{ to, subject string }

type fakeMailer struct {
	sent   []sent
	failTo string
}

func (m *fakeMailer) Send(to, subject, _ string) error {
	if to == m.failTo {
		return errors.New("rejected")
	}
	m.sent = append(m.sent, sent{to, subject})
	return nil
}

func TestSubmissionReviewedHonoursPreference(t *testing.T) {
	users := fakeUsers{byID: map[uint64]model.User{
		1: {ID: 1, Email: "a@x", IsActive: true, NotifyOnReview: true},
		2: {ID: 2, Email: "b@x", IsActive: true, NotifyOnReview: false},
	}}
	m := &fakeMailer{}
	d := NewDispatcher(users, m)
	ctx := context.Background()

	for _, id := range []uint64{1, 2} {
		ev := queue.NotificationEvent{Kind: queue.KindSubmissionReviewed, UserID: id, Status: "approved", SubmissionTitle: "Dawn"}
		if err := d.HandleNotification(ctx, ev); err != nil {
			t.Fatalf("user %d: %v", id, err)
		}
	}
	if len(m.sent) != 1 || m.sent[0].to != "a@x" {
		t.Fatalf("sent = %+v", m.sent)
	}
	if err := d.HandleNotification(ctx, queue.NotificationEvent{Kind: queue.KindSubmissionReviewed, UserID: 9}); err == nil {
		t.Fatal("missing user should fail the message")
	}
}

func TestCompetitionStatusChangedFansOut(t *testing.T) {
	users := fakeUsers{subscribers: []model.User{{ID: 1, Email: "a@x"}, {ID: 2, Email: "b@x"}}}
	m := &fakeMailer{failTo: "b@x"}
	d := NewDispatcher(users, m)

	ev := queue.NotificationEvent{Kind: queue.KindCompetitionStatusChanged, Status: "voting", CompetitionTitle: "Sunsets"}
	if err := d.HandleNotification(context.Background(), ev); err != nil {
		t.Fatalf("partial failure should not fail the message: %v", err)
	}
	if len(m.sent) != 1 || m.sent[0].subject != "Voting is open: Sunsets" {
		t.Fatalf("sent = %+v", m.sent)
	}

	ev.Status = "archived"
	m.sent = nil
	if err := d.HandleNotification(context.Background(), ev); err != nil || len(m.sent) != 0 {
		t.Fatalf("archived should not notify: %v %+v", err, m.sent)
	}
}
