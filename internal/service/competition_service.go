package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/snapscape/internal/model"
	"github.com/iliyamo/snapscape/internal/queue"
	"github.com/iliyamo/snapscape/internal/repository"
)

// DefaultSubmissionLimit applies when a competition is created without one.
const DefaultSubmissionLimit = 3

// StatusChange is the outcome of one competition in an updater run.
type StatusChange struct {
	CompetitionID uint64                  `json:"competitionId"`
	Title         string                  `json:"title"`
	OldStatus     model.CompetitionStatus `json:"oldStatus"`
	NewStatus     model.CompetitionStatus `json:"newStatus"`
	Success       bool                    `json:"success"`
	Error         string                  `json:"error,omitempty"`
}

// StatusPreview reports a competition whose stored status differs from the
// status it should have now.
type StatusPreview struct {
	CompetitionID  uint64                  `json:"competitionId"`
	Title          string                  `json:"title"`
	CurrentStatus  model.CompetitionStatus `json:"currentStatus"`
	ExpectedStatus model.CompetitionStatus `json:"expectedStatus"`
}

// CompetitionInput carries the admin-editable fields of a competition.
type CompetitionInput struct {
	Title           string                  `json:"title" validate:"required,max=200"`
	Theme           string                  `json:"theme" validate:"max=200"`
	Description     string                  `json:"description"`
	Status          model.CompetitionStatus `json:"status" validate:"omitempty,oneof=draft active"`
	SubmissionLimit int                     `json:"submissionLimit" validate:"gte=0,lte=100"`
	StartDate       time.Time               `json:"startDate" validate:"required"`
	EndDate         time.Time               `json:"endDate" validate:"required"`
	VotingEndDate   time.Time               `json:"votingEndDate" validate:"required"`
}

func (in CompetitionInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() || in.VotingEndDate.IsZero() {
		return fmt.Errorf("%w: startDate, endDate and votingEndDate are required", ErrValidation)
	}
	if !in.StartDate.Before(in.EndDate) {
		return fmt.Errorf("%w: startDate must be before endDate", ErrValidation)
	}
	if in.Status != "" && in.Status != model.StatusDraft && in.Status != model.StatusActive {
		return fmt.Errorf("%w: new competitions start as draft or active", ErrValidation)
	}
	if in.SubmissionLimit < 0 {
		return fmt.Errorf("%w: submissionLimit must not be negative", ErrValidation)
	}
	return nil
}

func (in CompetitionInput) apply(c *model.Competition) {
	c.Title = strings.TrimSpace(in.Title)
	c.Theme = strings.TrimSpace(in.Theme)
	c.Description = in.Description
	c.StartDate = in.StartDate
	c.EndDate = in.EndDate
	c.VotingEndDate = in.VotingEndDate
	c.SubmissionLimit = in.SubmissionLimit
	if c.SubmissionLimit == 0 {
		c.SubmissionLimit = DefaultSubmissionLimit
	}
}

// ResultFinalizer writes the podium of a competition that has just completed.
type ResultFinalizer interface {
	Finalize(ctx context.Context, competitionID uint64) ([]model.Result, error)
}

// CompetitionService owns the competition lifecycle.
type CompetitionService struct {
	Competitions CompetitionStore
	Results      ResultFinalizer // optional
	Events       Publisher       // optional
	Now          func() time.Time
}

func NewCompetitionService(competitions CompetitionStore, results ResultFinalizer, events Publisher) *CompetitionService {
	if events == nil {
		events = nopPublisher{}
	}
	return &CompetitionService{Competitions: competitions, Results: results, Events: events, Now: time.Now}
}

func (s *CompetitionService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// UpdateAll brings every non-terminal competition to its expected status.
// Overridden competitions are included only when bypassOverride is set.
// A failure on one competition is recorded in its StatusChange and the run
// continues; the returned error is reserved for failing to load the batch.
func (s *CompetitionService) UpdateAll(ctx context.Context, bypassOverride bool) ([]StatusChange, error) {
	comps, err := s.Competitions.ListForStatusUpdate(ctx, bypassOverride)
	if err != nil {
		return nil, fmt.Errorf("load competitions: %w", err)
	}
	now := s.now()
	changes := []StatusChange{}
	for _, c := range comps {
		expected := ExpectedStatus(now, c, bypassOverride)
		if expected == c.Status {
			continue
		}
		ch := StatusChange{CompetitionID: c.ID, Title: c.Title, OldStatus: c.Status, NewStatus: expected}
		if err := s.Competitions.UpdateStatus(ctx, c.ID, c.Status, expected); err != nil {
			ch.Error = err.Error()
			slog.Warn("competition status update failed", "competition_id", c.ID, "from", c.Status, "to", expected, "error", err)
			changes = append(changes, ch)
			continue
		}
		ch.Success = true
		changes = append(changes, ch)
		slog.Info("competition status updated", "competition_id", c.ID, "from", c.Status, "to", expected)
		c.Status = expected
		s.afterTransition(ctx, c)
	}
	return changes, nil
}

// Preview lists competitions whose status would change if UpdateAll ran now
// without bypassing overrides. Nothing is written.
func (s *CompetitionService) Preview(ctx context.Context) ([]StatusPreview, error) {
	comps, err := s.Competitions.ListForStatusUpdate(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load competitions: %w", err)
	}
	now := s.now()
	out := []StatusPreview{}
	for _, c := range comps {
		if expected := ExpectedStatus(now, c, false); expected != c.Status {
			out = append(out, StatusPreview{CompetitionID: c.ID, Title: c.Title, CurrentStatus: c.Status, ExpectedStatus: expected})
		}
	}
	return out, nil
}

// SetStatus is the manual admin transition. Without override the status may
// only move forward and the pin is cleared; with override any status is
// accepted and pinned so the updater leaves it alone.
func (s *CompetitionService) SetStatus(ctx context.Context, id uint64, status model.CompetitionStatus, override bool) (model.Competition, error) {
	if !status.Valid() {
		return model.Competition{}, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	c, err := s.Competitions.GetByID(ctx, id)
	if err != nil {
		return model.Competition{}, notFound(err, "competition", id)
	}
	if !override && status.Before(c.Status) {
		return model.Competition{}, fmt.Errorf("%w: cannot move competition from %s back to %s", ErrConflict, c.Status, status)
	}
	if err := s.Competitions.SetStatus(ctx, id, status, override); err != nil {
		return model.Competition{}, notFound(err, "competition", id)
	}
	prev := c.Status
	c.Status, c.StatusOverride = status, override
	if prev != status {
		slog.Info("competition status set", "competition_id", id, "from", prev, "to", status, "override", override)
		s.afterTransition(ctx, c)
	}
	return c, nil
}

// afterTransition runs the side effects of entering c.Status. None of them
// fail the transition itself.
func (s *CompetitionService) afterTransition(ctx context.Context, c model.Competition) {
	switch c.Status {
	case model.StatusVoting, model.StatusCompleted:
		ev := queue.NotificationEvent{
			Kind:             queue.KindCompetitionStatusChanged,
			CompetitionID:    c.ID,
			CompetitionTitle: c.Title,
			Status:           string(c.Status),
			OccurredAt:       s.now().Format(time.RFC3339),
		}
		if err := s.Events.Publish(ctx, ev); err != nil {
			slog.Warn("publish status notification failed", "competition_id", c.ID, "error", err)
		}
	case model.StatusArchived:
		if err := s.Competitions.ArchiveSubmissions(ctx, c.ID, s.now()); err != nil {
			slog.Error("archive submissions failed", "competition_id", c.ID, "error", err)
		}
	}
	if c.Status == model.StatusCompleted && s.Results != nil {
		if _, err := s.Results.Finalize(ctx, c.ID); err != nil {
			slog.Error("finalize results failed", "competition_id", c.ID, "error", err)
		}
	}
}

// Create stores a new competition. Status defaults to active.
func (s *CompetitionService) Create(ctx context.Context, in CompetitionInput) (model.Competition, error) {
	if err := in.validate(); err != nil {
		return model.Competition{}, err
	}
	c := model.Competition{Status: in.Status}
	if c.Status == "" {
		c.Status = model.StatusActive
	}
	in.apply(&c)
	if err := s.Competitions.Create(ctx, &c); err != nil {
		return model.Competition{}, err
	}
	return c, nil
}

// Update rewrites the editable fields. Status is changed through SetStatus.
func (s *CompetitionService) Update(ctx context.Context, id uint64, in CompetitionInput) (model.Competition, error) {
	if err := in.validate(); err != nil {
		return model.Competition{}, err
	}
	c, err := s.Competitions.GetByID(ctx, id)
	if err != nil {
		return model.Competition{}, notFound(err, "competition", id)
	}
	in.apply(&c)
	if err := s.Competitions.Update(ctx, &c); err != nil {
		return model.Competition{}, notFound(err, "competition", id)
	}
	return c, nil
}

// Delete removes a competition that has no submissions.
func (s *CompetitionService) Delete(ctx context.Context, id uint64) error {
	err := s.Competitions.Delete(ctx, id)
	if errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("%w: competition has submissions, archive it instead", ErrConflict)
	}
	return notFound(err, "competition", id)
}

// Get returns a competition. Drafts are only visible to admins.
func (s *CompetitionService) Get(ctx context.Context, id uint64, includeDrafts bool) (model.Competition, error) {
	c, err := s.Competitions.GetByID(ctx, id)
	if err != nil {
		return model.Competition{}, notFound(err, "competition", id)
	}
	if c.Status == model.StatusDraft && !includeDrafts {
		return model.Competition{}, fmt.Errorf("%w: competition %d", ErrNotFound, id)
	}
	return c, nil
}

// List returns competitions, optionally filtered by status.
func (s *CompetitionService) List(ctx context.Context, status model.CompetitionStatus, includeDrafts bool) ([]model.Competition, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	if status == model.StatusDraft && !includeDrafts {
		return []model.Competition{}, nil
	}
	return s.Competitions.List(ctx, status, includeDrafts)
}
