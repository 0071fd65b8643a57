package service

import (
	"context"
	"testing"

	"github.com/iliyamo/snapscape/internal/model"
)

func TestPlanDedupeKeepsLowestID(t *testing.T) {
	rows := []model.Rating{
		{ID: 9, UserID: 1, PhotoID: 5, Score: 2},
		{ID: 3, UserID: 1, PhotoID: 5, Score: 4},
		{ID: 7, UserID: 1, PhotoID: 5, Score: 1},
		{ID: 4, UserID: 2, PhotoID: 6, Score: 3},
		{ID: 8, UserID: 2, PhotoID: 6, Score: 3},
	}
	plan := PlanDedupe(rows)
	if plan.Groups != 2 {
		t.Fatalf("groups = %d", plan.Groups)
	}
	want := map[uint64]bool{7: true, 9: true, 8: true}
	if len(plan.RatingIDs) != len(want) {
		t.Fatalf("deleting %v", plan.RatingIDs)
	}
	for _, id := range plan.RatingIDs {
		if !want[id] {
			t.Fatalf("would delete kept rating %d", id)
		}
	}
	if len(plan.PhotoIDs) != 2 {
		t.Fatalf("photos = %v", plan.PhotoIDs)
	}
}

func TestDedupeRatings(t *testing.T) {
	subs := newFakeSubmissions(model.PhotoSubmission{ID: 5, UserID: 1, CompetitionID: 1, RatingsCount: 3, TotalRatingSum: 9})
	subs.ratings = []model.Rating{
		{ID: 1, UserID: 2, PhotoID: 5, Score: 4},
		{ID: 2, UserID: 2, PhotoID: 5, Score: 1},
		{ID: 3, UserID: 3, PhotoID: 5, Score: 4},
	}
	s := NewMaintenanceService(subs)

	rep, err := s.DedupeRatings(context.Background())
	if err != nil {
		t.Fatalf("DedupeRatings: %v", err)
	}
	if rep.DuplicateGroups != 1 || rep.DeletedRatings != 1 || rep.PhotosRecomputed != 1 {
		t.Fatalf("report = %+v", rep)
	}
	p, _ := subs.GetByID(context.Background(), 5)
	if p.RatingsCount != 2 || p.TotalRatingSum != 8 || p.AverageRating != 4 {
		t.Fatalf("aggregate after dedupe: %+v", p)
	}

	rep, err = s.DedupeRatings(context.Background())
	if err != nil || rep != (DedupeReport{}) {
		t.Fatalf("second run: %+v, %v", rep, err)
	}
}

func TestRecomputeAggregates(t *testing.T) {
	subs := newFakeSubmissions(model.PhotoSubmission{ID: 5, RatingsCount: 7, TotalRatingSum: 30})
	subs.ratings = []model.Rating{{ID: 1, UserID: 2, PhotoID: 5, Score: 3}}
	n, err := NewMaintenanceService(subs).RecomputeAggregates(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("RecomputeAggregates = %d, %v", n, err)
	}
	p, _ := subs.GetByID(context.Background(), 5)
	if p.RatingsCount != 1 || p.AverageRating != 3 {
		t.Fatalf("aggregate = %+v", p)
	}
}
