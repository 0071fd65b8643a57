package model

import "time"

// CompetitionStatus is a stage of the competition lifecycle. Stages only move
// forward along draft, active, voting, completed, archived.
type CompetitionStatus string

const (
	StatusDraft     CompetitionStatus = "draft"
	StatusActive    CompetitionStatus = "active"
	StatusVoting    CompetitionStatus = "voting"
	StatusCompleted CompetitionStatus = "completed"
	StatusArchived  CompetitionStatus = "archived"
)

var statusOrder = map[CompetitionStatus]int{
	StatusDraft:     0,
	StatusActive:    1,
	StatusVoting:    2,
	StatusCompleted: 3,
	StatusArchived:  4,
}

// Valid reports whether s is a known lifecycle stage.
func (s CompetitionStatus) Valid() bool {
	_, ok := statusOrder[s]
	return ok
}

// Before reports whether s comes strictly earlier in the lifecycle than o.
func (s CompetitionStatus) Before(o CompetitionStatus) bool {
	return statusOrder[s] < statusOrder[o]
}

// Final reports whether scores for the competition are final, i.e. the
// leaderboard and results may be computed.
func (s CompetitionStatus) Final() bool {
	return s == StatusCompleted || s == StatusArchived
}

// Competition is a time-boxed contest: submissions are accepted between
// StartDate and EndDate, votes between EndDate and VotingEndDate.
type Competition struct {
	ID              uint64            `json:"id"`
	Title           string            `json:"title"`
	Theme           string            `json:"theme"`
	Description     string            `json:"description"`
	Status          CompetitionStatus `json:"status"`
	StatusOverride  bool              `json:"statusOverride"` // pinned by an admin, skipped by the updater
	SubmissionLimit int               `json:"submissionLimit"`
	StartDate       time.Time         `json:"startDate"`
	EndDate         time.Time         `json:"endDate"`
	VotingEndDate   time.Time         `json:"votingEndDate"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// AcceptsSubmissions reports whether a photo may be entered at now.
func (c Competition) AcceptsSubmissions(now time.Time) bool {
	return c.Status == StatusActive && !now.Before(c.StartDate) && now.Before(c.EndDate)
}
