package model

import "time"

// Podium size: only the top three placements are recorded.
const ResultPositions = 3

// Result is a finalized placement for a completed competition.
type Result struct {
	ID            uint64    `json:"id"`
	CompetitionID uint64    `json:"competitionId"`
	UserID        uint64    `json:"userId"`
	PhotoID       uint64    `json:"photoId"`
	Position      int       `json:"position"`
	FinalScore    float64   `json:"finalScore"`
	CreatedAt     time.Time `json:"createdAt"`
}
