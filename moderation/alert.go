package moderation

// AlertType identifies the single triggering condition behind an admin
// alert. Each alert has exactly one cause so it stays debuggable; a
// submission crossing multiple thresholds produces multiple alerts.
type AlertType string

const (
	AlertTextBlocked     AlertType = "text-blocked"
	AlertTextReview      AlertType = "text-review"
	AlertPII             AlertType = "pii-detected"
	AlertMediaBlocked    AlertType = "media-blocked"
	AlertMediaReview     AlertType = "media-review"
	AlertScorerFailure   AlertType = "scorer-failure"
	AlertJobFailure      AlertType = "job-failure"
	AlertAuthorFrequency AlertType = "author-frequency"
)

// AlertCause is a pending alert produced by policy evaluation, before it is
// persisted against a record. Value is the triggering value (eg, a score
// rendered as a string) and doubles as the idempotency key component: a
// repeat evaluation with identical inputs produces identical causes, which
// dedupe away at the store.
type AlertCause struct {
	Type    AlertType
	Reason  string
	Value   string
	Payload string
}
