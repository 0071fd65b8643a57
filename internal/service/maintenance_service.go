package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/iliyamo/snapscape/internal/model"
)

// DedupeReport summarises a duplicate-rating cleanup.
type DedupeReport struct {
	DuplicateGroups  int   `json:"duplicateGroups"`
	DeletedRatings   int64 `json:"deletedRatings"`
	PhotosRecomputed int   `json:"photosRecomputed"`
}

// DedupePlan is the set of rows to delete and photos to recompute.
type DedupePlan struct {
	Groups    int
	RatingIDs []uint64
	PhotoIDs  []uint64
}

// PlanDedupe keeps the lowest-id rating of every (user, photo) pair in rows
// and schedules the others for deletion.
func PlanDedupe(rows []model.Rating) DedupePlan {
	sorted := make([]model.Rating, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if a.PhotoID != b.PhotoID {
			return a.PhotoID < b.PhotoID
		}
		return a.ID < b.ID
	})

	type pair struct{ user, photo uint64 }
	var plan DedupePlan
	seen := map[pair]bool{}
	grouped := map[pair]bool{}
	photos := map[uint64]bool{}
	for _, r := range sorted {
		k := pair{r.UserID, r.PhotoID}
		if !seen[k] {
			seen[k] = true
			continue
		}
		plan.RatingIDs = append(plan.RatingIDs, r.ID)
		if !grouped[k] {
			grouped[k] = true
			plan.Groups++
		}
		if !photos[r.PhotoID] {
			photos[r.PhotoID] = true
			plan.PhotoIDs = append(plan.PhotoIDs, r.PhotoID)
		}
	}
	return plan
}

type MaintenanceService struct {
	Ratings RatingStore
}

func NewMaintenanceService(ratings RatingStore) *MaintenanceService {
	return &MaintenanceService{Ratings: ratings}
}

// DedupeRatings removes duplicated votes left over from before the unique
// key existed and recomputes the affected photos.
func (s *MaintenanceService) DedupeRatings(ctx context.Context) (DedupeReport, error) {
	rows, err := s.Ratings.ListDuplicated(ctx)
	if err != nil {
		return DedupeReport{}, err
	}
	plan := PlanDedupe(rows)
	if len(plan.RatingIDs) == 0 {
		return DedupeReport{}, nil
	}
	deleted, err := s.Ratings.DeleteAndRecompute(ctx, plan.RatingIDs, plan.PhotoIDs)
	if err != nil {
		return DedupeReport{}, err
	}
	rep := DedupeReport{DuplicateGroups: plan.Groups, DeletedRatings: deleted, PhotosRecomputed: len(plan.PhotoIDs)}
	slog.Info("duplicate ratings removed", "groups", rep.DuplicateGroups, "deleted", rep.DeletedRatings, "photos", rep.PhotosRecomputed)
	return rep, nil
}

// RecomputeAggregates rebuilds the rating aggregates of every photo and
// returns how many rows changed.
func (s *MaintenanceService) RecomputeAggregates(ctx context.Context) (int64, error) {
	n, err := s.Ratings.RecomputeAll(ctx)
	if err != nil {
		return 0, err
	}
	slog.Info("rating aggregates recomputed", "photos_changed", n)
	return n, nil
}
