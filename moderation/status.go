package moderation

// Status is the lifecycle state of a piece of user generated content inside
// the moderation pipeline.
//
// Terminal states (APPROVED, BLOCKED, REVIEW) are never left once entered.
// AWAITING_MEDIA is a suspended wait state: the synchronous request has
// returned and the record is parked until the media job callback arrives.
type Status string

const (
	StatusPending       Status = "PENDING"
	StatusTextScored    Status = "TEXT_SCORED"
	StatusAwaitingMedia Status = "AWAITING_MEDIA"
	StatusMediaScored   Status = "MEDIA_SCORED"
	StatusApproved      Status = "APPROVED"
	StatusBlocked       Status = "BLOCKED"
	StatusReview        Status = "REVIEW"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusBlocked, StatusReview:
		return true
	}
	return false
}

// rank orders states so transitions can be checked for monotonicity
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusTextScored:
		return 1
	case StatusAwaitingMedia, StatusMediaScored:
		return 2
	case StatusApproved, StatusBlocked, StatusReview:
		return 3
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle
// transition. Terminal states accept no transitions (a repeat write of the
// same terminal state is treated as a no-op by callers, not a transition).
func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	return next.rank() >= s.rank()
}
