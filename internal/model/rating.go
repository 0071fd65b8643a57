package model

import "time"

const (
	MinScore = 1
	MaxScore = 5
)

// Rating is a single user's score for a photo. There is at most one row per
// (UserID, PhotoID); re-votes overwrite Score.
type Rating struct {
	ID        uint64    `json:"id"`
	PhotoID   uint64    `json:"photoId"`
	UserID    uint64    `json:"userId"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RatingAggregate is the derived rating state of one photo.
type RatingAggregate struct {
	RatingsCount   int     `json:"ratingsCount"`
	TotalRatingSum int     `json:"totalRatingSum"`
	AverageRating  float64 `json:"averageRating"`
}

// NewRatingAggregate builds an aggregate from a count and sum, keeping
// AverageRating at zero when there are no ratings.
func NewRatingAggregate(count, sum int) RatingAggregate {
	agg := RatingAggregate{RatingsCount: count, TotalRatingSum: sum}
	if count > 0 {
		agg.AverageRating = float64(sum) / float64(count)
	}
	return agg
}
