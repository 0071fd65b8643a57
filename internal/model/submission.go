package model

import "time"

// SubmissionStatus is the moderation state of a photo.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// PhotoSubmission is a photo entered into a competition. The rating
// aggregates are derived from the ratings table and rewritten on every vote.
type PhotoSubmission struct {
	ID             uint64           `json:"id"`
	UserID         uint64           `json:"userId"`
	CompetitionID  uint64           `json:"competitionId"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	ImageURL       string           `json:"imageUrl"`
	ThumbnailURL   string           `json:"thumbnailUrl"`
	ImageRef       string           `json:"-"` // object key in the image store
	Status         SubmissionStatus `json:"status"`
	AverageRating  float64          `json:"averageRating"`
	RatingsCount   int              `json:"ratingsCount"`
	TotalRatingSum int              `json:"totalRatingSum"`
	Archived       bool             `json:"archived"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// AuthoredSubmission is a submission together with its author's display name.
type AuthoredSubmission struct {
	PhotoSubmission
	AuthorName string `json:"authorName"`
}
