package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/snapscape/internal/model"
	"github.com/iliyamo/snapscape/internal/repository"
)

// RatingResult is the state of a photo right after a vote was committed.
type RatingResult struct {
	PhotoID uint64 `json:"photoId"`
	Score   int    `json:"score"`
	model.RatingAggregate
}

type RatingService struct {
	Ratings RatingStore
}

func NewRatingService(ratings RatingStore) *RatingService {
	return &RatingService{Ratings: ratings}
}

// Submit records userID's score for photoID, replacing an earlier vote by
// the same user. Only approved photos of competitions in the voting phase
// can be rated, and never by their author. The store checks these under the
// same lock that guards the write.
func (s *RatingService) Submit(ctx context.Context, userID, photoID uint64, score int) (RatingResult, error) {
	if score < model.MinScore || score > model.MaxScore {
		return RatingResult{}, fmt.Errorf("%w: score must be between %d and %d", ErrValidation, model.MinScore, model.MaxScore)
	}
	agg, err := s.Ratings.Upsert(ctx, userID, photoID, score)
	switch {
	case errors.Is(err, repository.ErrOwnPhoto):
		return RatingResult{}, fmt.Errorf("%w: cannot rate your own photo", ErrForbidden)
	case errors.Is(err, repository.ErrPhotoNotApproved):
		return RatingResult{}, fmt.Errorf("%w: photo is not approved for voting", ErrConflict)
	case errors.Is(err, repository.ErrVotingClosed):
		return RatingResult{}, fmt.Errorf("%w: competition is not in the voting phase", ErrConflict)
	case err != nil:
		return RatingResult{}, notFound(err, "photo", photoID)
	}
	return RatingResult{PhotoID: photoID, Score: score, RatingAggregate: agg}, nil
}

// MyScore returns userID's current score for photoID, or 0 if they have not
// voted.
func (s *RatingService) MyScore(ctx context.Context, userID, photoID uint64) (int, error) {
	score, err := s.Ratings.GetScore(ctx, userID, photoID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	return score, err
}
