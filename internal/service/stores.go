package service

import (
	"context"
	"time"

	"github.com/iliyamo/snapscape/internal/model"
	"github.com/iliyamo/snapscape/internal/queue"
)

// The interfaces below are the slices of the repositories each service
// needs; *repository.XRepo values satisfy them.

type CompetitionStore interface {
	Create(ctx context.Context, c *model.Competition) error
	Update(ctx context.Context, c *model.Competition) error
	GetByID(ctx context.Context, id uint64) (model.Competition, error)
	List(ctx context.Context, status model.CompetitionStatus, includeDrafts bool) ([]model.Competition, error)
	ListForStatusUpdate(ctx context.Context, includeOverridden bool) ([]model.Competition, error)
	UpdateStatus(ctx context.Context, id uint64, from, to model.CompetitionStatus) error
	SetStatus(ctx context.Context, id uint64, status model.CompetitionStatus, override bool) error
	ArchiveSubmissions(ctx context.Context, id uint64, at time.Time) error
	Delete(ctx context.Context, id uint64) error
}

type SubmissionStore interface {
	Create(ctx context.Context, p *model.PhotoSubmission) error
	GetByID(ctx context.Context, id uint64) (model.PhotoSubmission, error)
	ListApprovedWithAuthors(ctx context.Context, competitionID uint64) ([]model.AuthoredSubmission, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.PhotoSubmission, error)
	CountByUserAndCompetition(ctx context.Context, userID, competitionID uint64) (int, error)
	UpdateStatus(ctx context.Context, id uint64, status model.SubmissionStatus) error
	Delete(ctx context.Context, id uint64) error
}

type RatingStore interface {
	Upsert(ctx context.Context, userID, photoID uint64, score int) (model.RatingAggregate, error)
	GetScore(ctx context.Context, userID, photoID uint64) (int, error)
	ListDuplicated(ctx context.Context) ([]model.Rating, error)
	DeleteAndRecompute(ctx context.Context, ratingIDs, photoIDs []uint64) (int64, error)
	RecomputeAll(ctx context.Context) (int64, error)
}

type ResultStore interface {
	Replace(ctx context.Context, competitionID uint64, results []model.Result) error
	ListByCompetition(ctx context.Context, competitionID uint64) ([]model.Result, error)
}

// Publisher sends notification events. Failures are logged by callers and
// never fail the triggering operation.
type Publisher interface {
	Publish(ctx context.Context, ev queue.NotificationEvent) error
}

// StoredImage describes an uploaded photo and its thumbnail.
type StoredImage struct {
	Key          string
	URL          string
	ThumbnailURL string
}

// ImageStore persists photo bytes. Upload stores the original under a fresh
// key below prefix together with a thumbnail; Remove deletes both.
type ImageStore interface {
	Upload(ctx context.Context, prefix string, data []byte, contentType string) (StoredImage, error)
	Remove(ctx context.Context, key string) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.NotificationEvent) error { return nil }
