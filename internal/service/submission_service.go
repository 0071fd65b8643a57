package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/snapscape/internal/model"
	"github.com/iliyamo/snapscape/internal/queue"
)

// DefaultMaxUploadBytes caps an uploaded photo when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// NewSubmission is a photo entry as received from a user.
type NewSubmission struct {
	UserID        uint64
	CompetitionID uint64
	Title         string
	Description   string
	Image         []byte
}

// Actor identifies the caller of an operation that owners and admins may
// both perform.
type Actor struct {
	UserID uint64
	Admin  bool
}

type SubmissionService struct {
	Submissions    SubmissionStore
	Competitions   CompetitionStore
	Images         ImageStore
	Events         Publisher
	MaxUploadBytes int
	Now            func() time.Time
}

func NewSubmissionService(submissions SubmissionStore, competitions CompetitionStore, images ImageStore, events Publisher, maxUploadBytes int) *SubmissionService {
	if events == nil {
		events = nopPublisher{}
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &SubmissionService{
		Submissions:    submissions,
		Competitions:   competitions,
		Images:         images,
		Events:         events,
		MaxUploadBytes: maxUploadBytes,
		Now:            time.Now,
	}
}

func (s *SubmissionService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Create stores a new pending submission. The competition must be accepting
// entries and the user must be below its per-user limit.
func (s *SubmissionService) Create(ctx context.Context, in NewSubmission) (model.PhotoSubmission, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return model.PhotoSubmission{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if len(in.Image) == 0 {
		return model.PhotoSubmission{}, fmt.Errorf("%w: image is required", ErrValidation)
	}
	if len(in.Image) > s.MaxUploadBytes {
		return model.PhotoSubmission{}, fmt.Errorf("%w: image exceeds %d bytes", ErrValidation, s.MaxUploadBytes)
	}
	contentType := http.DetectContentType(in.Image)
	if !allowedImageTypes[contentType] {
		return model.PhotoSubmission{}, fmt.Errorf("%w: only JPEG and PNG images are accepted", ErrValidation)
	}

	comp, err := s.Competitions.GetByID(ctx, in.CompetitionID)
	if err != nil {
		return model.PhotoSubmission{}, notFound(err, "competition", in.CompetitionID)
	}
	if comp.Status == model.StatusDraft {
		return model.PhotoSubmission{}, fmt.Errorf("%w: competition %d", ErrNotFound, in.CompetitionID)
	}
	if !comp.AcceptsSubmissions(s.now()) {
		return model.PhotoSubmission{}, fmt.Errorf("%w: competition is not accepting submissions", ErrConflict)
	}
	count, err := s.Submissions.CountByUserAndCompetition(ctx, in.UserID, in.CompetitionID)
	if err != nil {
		return model.PhotoSubmission{}, err
	}
	if count >= comp.SubmissionLimit {
		return model.PhotoSubmission{}, fmt.Errorf("%w: submission limit of %d reached", ErrConflict, comp.SubmissionLimit)
	}

	img, err := s.Images.Upload(ctx, fmt.Sprintf("competitions/%d", in.CompetitionID), in.Image, contentType)
	if errors.Is(err, ErrValidation) {
		return model.PhotoSubmission{}, err
	}
	if err != nil {
		return model.PhotoSubmission{}, fmt.Errorf("store image: %w", err)
	}
	p := model.PhotoSubmission{
		UserID:        in.UserID,
		CompetitionID: in.CompetitionID,
		Title:         in.Title,
		Description:   in.Description,
		ImageURL:      img.URL,
		ThumbnailURL:  img.ThumbnailURL,
		ImageRef:      img.Key,
		Status:        model.SubmissionPending,
	}
	if err := s.Submissions.Create(ctx, &p); err != nil {
		if rmErr := s.Images.Remove(ctx, img.Key); rmErr != nil {
			slog.Warn("remove orphaned image failed", "key", img.Key, "error", rmErr)
		}
		return model.PhotoSubmission{}, err
	}
	return p, nil
}

// Review approves or rejects a submission and notifies its author.
func (s *SubmissionService) Review(ctx context.Context, id uint64, status model.SubmissionStatus) (model.PhotoSubmission, error) {
	if status != model.SubmissionApproved && status != model.SubmissionRejected {
		return model.PhotoSubmission{}, fmt.Errorf("%w: status must be approved or rejected", ErrValidation)
	}
	p, err := s.Submissions.GetByID(ctx, id)
	if err != nil {
		return model.PhotoSubmission{}, notFound(err, "submission", id)
	}
	if err := s.Submissions.UpdateStatus(ctx, id, status); err != nil {
		return model.PhotoSubmission{}, notFound(err, "submission", id)
	}
	p.Status = status

	ev := queue.NotificationEvent{
		Kind:            queue.KindSubmissionReviewed,
		CompetitionID:   p.CompetitionID,
		SubmissionID:    p.ID,
		SubmissionTitle: p.Title,
		UserID:          p.UserID,
		Status:          string(status),
		OccurredAt:      s.now().Format(time.RFC3339),
	}
	if comp, err := s.Competitions.GetByID(ctx, p.CompetitionID); err == nil {
		ev.CompetitionTitle = comp.Title
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		slog.Warn("publish review notification failed", "submission_id", id, "error", err)
	}
	return p, nil
}

// Delete removes a submission, its ratings and results, then its images.
// Only the owner or an admin may delete.
func (s *SubmissionService) Delete(ctx context.Context, actor Actor, id uint64) error {
	p, err := s.Submissions.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "submission", id)
	}
	if !actor.Admin && p.UserID != actor.UserID {
		return fmt.Errorf("%w: only the owner can delete this submission", ErrForbidden)
	}
	if err := s.Submissions.Delete(ctx, id); err != nil {
		return notFound(err, "submission", id)
	}
	if p.ImageRef != "" {
		if err := s.Images.Remove(ctx, p.ImageRef); err != nil {
			slog.Warn("remove submission image failed", "submission_id", id, "key", p.ImageRef, "error", err)
		}
	}
	return nil
}

// ListApproved returns the approved entries of a visible competition.
func (s *SubmissionService) ListApproved(ctx context.Context, competitionID uint64) ([]model.AuthoredSubmission, error) {
	comp, err := s.Competitions.GetByID(ctx, competitionID)
	if err != nil {
		return nil, notFound(err, "competition", competitionID)
	}
	if comp.Status == model.StatusDraft {
		return nil, fmt.Errorf("%w: competition %d", ErrNotFound, competitionID)
	}
	return s.Submissions.ListApprovedWithAuthors(ctx, competitionID)
}

// ListMine returns every submission of userID.
func (s *SubmissionService) ListMine(ctx context.Context, userID uint64) ([]model.PhotoSubmission, error) {
	return s.Submissions.ListByUser(ctx, userID)
}
