package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iliyamo/snapscape/internal/model"
	"github.com/iliyamo/snapscape/internal/repository"
)

type ResultService struct {
	Competitions CompetitionStore
	Submissions  SubmissionStore
	Results      ResultStore
}

func NewResultService(competitions CompetitionStore, submissions SubmissionStore, results ResultStore) *ResultService {
	return &ResultService{Competitions: competitions, Submissions: submissions, Results: results}
}

// Podium picks the first ResultPositions ranked submissions that received
// at least one rating.
func Podium(competitionID uint64, ranked []RankedSubmission) []model.Result {
	out := make([]model.Result, 0, model.ResultPositions)
	for _, r := range ranked {
		if len(out) == model.ResultPositions {
			break
		}
		if r.RatingsCount == 0 {
			continue
		}
		out = append(out, model.Result{
			CompetitionID: competitionID,
			UserID:        r.UserID,
			PhotoID:       r.ID,
			Position:      len(out) + 1,
			FinalScore:    r.AverageRating,
		})
	}
	return out
}

// Finalize recomputes and stores the podium of a completed or archived
// competition, replacing any previous results.
func (s *ResultService) Finalize(ctx context.Context, competitionID uint64) ([]model.Result, error) {
	comp, err := s.Competitions.GetByID(ctx, competitionID)
	if err != nil {
		return nil, notFound(err, "competition", competitionID)
	}
	if !comp.Status.Final() {
		return nil, fmt.Errorf("%w: results can only be finalized once the competition is completed", ErrConflict)
	}
	subs, err := s.Submissions.ListApprovedWithAuthors(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	results := Podium(competitionID, RankSubmissions(subs))
	if err := s.Results.Replace(ctx, competitionID, results); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: results were finalized concurrently", ErrConflict)
		}
		return nil, err
	}
	slog.Info("results finalized", "competition_id", competitionID, "placements", len(results))
	return results, nil
}

// List returns the stored podium of a competition.
func (s *ResultService) List(ctx context.Context, competitionID uint64) ([]model.Result, error) {
	comp, err := s.Competitions.GetByID(ctx, competitionID)
	if err != nil {
		return nil, notFound(err, "competition", competitionID)
	}
	if comp.Status == model.StatusDraft {
		return nil, fmt.Errorf("%w: competition %d", ErrNotFound, competitionID)
	}
	return s.Results.ListByCompetition(ctx, competitionID)
}
