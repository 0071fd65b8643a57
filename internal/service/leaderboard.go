package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/iliyamo/snapscape/internal/model"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// RankedSubmission is an approved photo with its 1-based leaderboard rank.
type RankedSubmission struct {
	Rank int `json:"rank"`
	model.AuthoredSubmission
}

// Contributor aggregates a user's approved photos in one competition.
type Contributor struct {
	UserID          uint64  `json:"userId"`
	Name            string  `json:"name"`
	SubmissionCount int     `json:"submissionCount"`
	TotalRating     float64 `json:"totalRating"` // sum of the photos' average ratings
}

type Leaderboard struct {
	Competition       model.Competition  `json:"competition"`
	RankedSubmissions []RankedSubmission `json:"rankedSubmissions"`
	TopContributors   []Contributor      `json:"topContributors"`
}

// ClampLimit maps a requested page size onto [1, MaxLeaderboardLimit],
// treating non-positive values as the default.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLeaderboardLimit
	case limit > MaxLeaderboardLimit:
		return MaxLeaderboardLimit
	}
	return limit
}

// RankSubmissions orders subs by average rating, then number of ratings,
// both descending, breaking remaining ties by id. Ranks are 1..N.
func RankSubmissions(subs []model.AuthoredSubmission) []RankedSubmission {
	sorted := make([]model.AuthoredSubmission, len(subs))
	copy(sorted, subs)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.AverageRating != b.AverageRating {
			return a.AverageRating > b.AverageRating
		}
		if a.RatingsCount != b.RatingsCount {
			return a.RatingsCount > b.RatingsCount
		}
		return a.ID < b.ID
	})
	out := make([]RankedSubmission, len(sorted))
	for i, s := range sorted {
		out[i] = RankedSubmission{Rank: i + 1, AuthoredSubmission: s}
	}
	return out
}

// TopContributors groups subs by author.
func TopContributors(subs []model.AuthoredSubmission) []Contributor {
	byUser := map[uint64]*Contributor{}
	for _, s := range subs {
		c, ok := byUser[s.UserID]
		if !ok {
			c = &Contributor{UserID: s.UserID, Name: s.AuthorName}
			byUser[s.UserID] = c
		}
		c.SubmissionCount++
		c.TotalRating += s.AverageRating
	}
	out := make([]Contributor, 0, len(byUser))
	for _, c := range byUser {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SubmissionCount != b.SubmissionCount {
			return a.SubmissionCount > b.SubmissionCount
		}
		if a.TotalRating != b.TotalRating {
			return a.TotalRating > b.TotalRating
		}
		return a.UserID < b.UserID
	})
	return out
}

type LeaderboardService struct {
	Competitions CompetitionStore
	Submissions  SubmissionStore
}

func NewLeaderboardService(competitions CompetitionStore, submissions SubmissionStore) *LeaderboardService {
	return &LeaderboardService{Competitions: competitions, Submissions: submissions}
}

// Get builds the leaderboard of a finished competition. Scores are only
// final once the competition is completed or archived; before that no
// ranking is disclosed.
func (s *LeaderboardService) Get(ctx context.Context, competitionID uint64, limit int) (Leaderboard, error) {
	comp, err := s.Competitions.GetByID(ctx, competitionID)
	if err != nil {
		return Leaderboard{}, notFound(err, "competition", competitionID)
	}
	if !comp.Status.Final() {
		return Leaderboard{}, fmt.Errorf("%w: leaderboard not available until the competition is completed", ErrValidation)
	}
	subs, err := s.Submissions.ListApprovedWithAuthors(ctx, competitionID)
	if err != nil {
		return Leaderboard{}, err
	}
	limit = ClampLimit(limit)
	ranked := RankSubmissions(subs)
	contributors := TopContributors(subs)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if len(contributors) > limit {
		contributors = contributors[:limit]
	}
	return Leaderboard{Competition: comp, RankedSubmissions: ranked, TopContributors: contributors}, nil
}
