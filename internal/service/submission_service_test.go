package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/snapscape/internal/model"
	"github.com/iliyamo/snapscape/internal/queue"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
)

func submissionFixture() (*SubmissionService, *fakeSubmissions, *fakeImages, *recordingPublisher) {
	comps := newFakeCompetitions(
		comp(1, model.StatusActive, time.Hour, 2*time.Hour),
		comp(2, model.StatusVoting, -time.Hour, time.Hour),
	)
	subs := newFakeSubmissions()
	images := &fakeImages{}
	pub := &recordingPublisher{}
	s := NewSubmissionService(subs, comps, images, pub, 64)
	s.Now = fixedClock(t0)
	return s, subs, images, pub
}

func TestCreateSubmission(t *testing.T) {
	s, _, images, _ := submissionFixture()
	p, err := s.Create(context.Background(), NewSubmission{UserID: 5, CompetitionID: 1, Title: " Dawn ", Image: jpegBytes})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Status != model.SubmissionPending || p.Title != "Dawn" || p.ImageRef == "" || p.ThumbnailURL == "" {
		t.Fatalf("unexpected submission: %+v", p)
	}
	if len(images.uploads) != 1 {
		t.Fatalf("uploads = %v", images.uploads)
	}
}

func TestCreateSubmissionRejections(t *testing.T) {
	big := append([]byte{}, pngBytes...)
	big = append(big, make([]byte, 100)...)
	cases := []struct {
		name    string
		in      NewSubmission
		wantErr error
	}{
		{"no title", NewSubmission{UserID: 5, CompetitionID: 1, Image: pngBytes}, ErrValidation},
		{"no image", NewSubmission{UserID: 5, CompetitionID: 1, Title: "t"}, ErrValidation},
		{"too large", NewSubmission{UserID: 5, CompetitionID: 1, Title: "t", Image: big}, ErrValidation},
		{"not an image", NewSubmission{UserID: 5, CompetitionID: 1, Title: "t", Image: []byte("GIF89a......")}, ErrValidation},
		{"missing competition", NewSubmission{UserID: 5, CompetitionID: 9, Title: "t", Image: pngBytes}, ErrNotFound},
		{"closed for entries", NewSubmission{UserID: 5, CompetitionID: 2, Title: "t", Image: pngBytes}, ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _, images, _ := submissionFixture()
			if _, err := s.Create(context.Background(), tc.in); !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if len(images.uploads) != 0 {
				t.Fatalf("rejected entry was uploaded")
			}
		})
	}
}

func TestCreateSubmissionLimit(t *testing.T) {
	s, _, _, _ := submissionFixture()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := s.Create(ctx, NewSubmission{UserID: 5, CompetitionID: 1, Title: "t", Image: pngBytes}); err != nil {
			t.Fatalf("entry %d: %v", i, err)
		}
	}
	if _, err := s.Create(ctx, NewSubmission{UserID: 5, CompetitionID: 1, Title: "t", Image: pngBytes}); !errors.Is(err, ErrConflict) {
		t.Fatalf("fourth entry: err = %v", err)
	}
	if _, err := s.Create(ctx, NewSubmission{UserID: 6, CompetitionID: 1, Title: "t", Image: pngBytes}); err != nil {
		t.Fatalf("other user blocked: %v", err)
	}
}

func TestCreateSubmissionRemovesImageOnFailure(t *testing.T) {
	s, subs, images, _ := submissionFixture()
	subs.failCreate = errBoom
	if _, err := s.Create(context.Background(), NewSubmission{UserID: 5, CompetitionID: 1, Title: "t", Image: pngBytes}); !errors.Is(err, errBoom) {
		t.Fatalf("err = %v", err)
	}
	if len(images.removed) != 1 {
		t.Fatalf("orphaned upload kept")
	}
}

func TestReviewSubmissionPublishes(t *testing.T) {
	s, subs, _, pub := submissionFixture()
	ctx := context.Background()
	p, err := s.Create(ctx, NewSubmission{UserID: 5, CompetitionID: 1, Title: "t", Image: pngBytes})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Review(ctx, p.ID, model.SubmissionPending); !errors.Is(err, ErrValidation) {
		t.Fatalf("pending accepted as review outcome: %v", err)
	}
	got, err := s.Review(ctx, p.ID, model.SubmissionApproved)
	if err != nil || got.Status != model.SubmissionApproved {
		t.Fatalf("Review: %+v, %v", got, err)
	}
	stored, _ := subs.GetByID(ctx, p.ID)
	if stored.Status != model.SubmissionApproved {
		t.Fatalf("status not stored")
	}
	if len(pub.events) != 1 || pub.events[0].Kind != queue.KindSubmissionReviewed || pub.events[0].UserID != 5 {
		t.Fatalf("events = %+v", pub.events)
	}
	if _, err := s.Review(ctx, 999, model.SubmissionRejected); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing submission: %v", err)
	}
}

func TestDeleteSubmission(t *testing.T) {
	s, subs, images, _ := submissionFixture()
	ctx := context.Background()
	p, err := s.Create(ctx, NewSubmission{UserID: 5, CompetitionID: 1, Title: "t", Image: pngBytes})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, Actor{UserID: 6}, p.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger deleted: %v", err)
	}
	if err := s.Delete(ctx, Actor{UserID: 6, Admin: true}, p.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if len(subs.deleted) != 1 || len(images.removed) != 1 || images.removed[0] != p.ImageRef {
		t.Fatalf("deleted=%v removed=%v", subs.deleted, images.removed)
	}
	if err := s.Delete(ctx, Actor{UserID: 5}, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}
