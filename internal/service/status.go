package service

import (
	"time"

	"github.com/iliyamo/snapscape/internal/model"
)

// ExpectedStatus returns the lifecycle stage competition c should be in at
// now. Drafts and archived competitions are never moved automatically, and a
// pinned status is kept unless bypassOverride is set. The result never lies
// before c.Status.
func ExpectedStatus(now time.Time, c model.Competition, bypassOverride bool) model.CompetitionStatus {
	switch c.Status {
	case model.StatusDraft, model.StatusArchived:
		return c.Status
	}
	if c.StatusOverride && !bypassOverride {
		return c.Status
	}

	var computed model.CompetitionStatus
	switch {
	case !now.Before(c.VotingEndDate):
		computed = model.StatusCompleted
	case !now.Before(c.EndDate):
		computed = model.StatusVoting
	default:
		computed = model.StatusActive
	}
	if computed.Before(c.Status) {
		return c.Status
	}
	return computed
}
