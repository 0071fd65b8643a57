// Package queue defines the notification messages exchanged over RabbitMQ
// together with their publisher and consumer.
package queue

// Notification kinds.
const (
	KindSubmissionReviewed       = "submission.reviewed"
	KindCompetitionStatusChanged = "competition.status_changed"
)

// NotificationEvent is published when something happened that users may want
// to hear about by email. Consumers resolve recipients themselves, so the
// event carries ids and enough text to render a message.
type NotificationEvent struct {
	Kind             string `json:"kind"`
	CompetitionID    uint64 `json:"competition_id"`
	CompetitionTitle string `json:"competition_title"`
	SubmissionID     uint64 `json:"submission_id,omitempty"`
	SubmissionTitle  string `json:"submission_title,omitempty"`
	UserID           uint64 `json:"user_id,omitempty"`
	Status           string `json:"status"`
	OccurredAt       string `json:"occurred_at"`
}
