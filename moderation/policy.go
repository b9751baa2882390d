package moderation

import (
	"fmt"
)

// Thresholds configure policy evaluation. Scores are on the 0.0-1.0 scale;
// a score exactly equal to a threshold counts as crossing it.
type Thresholds struct {
	Review float64
	Block  float64
}

func (t Thresholds) Validate() error {
	if t.Review < 0 || t.Review > 1 || t.Block < 0 || t.Block > 1 {
		return fmt.Errorf("moderation thresholds must be within 0.0-1.0 (review=%f block=%f)", t.Review, t.Block)
	}
	if t.Review > t.Block {
		return fmt.Errorf("review threshold (%f) must not exceed block threshold (%f)", t.Review, t.Block)
	}
	return nil
}

const (
	BlockReasonMedia = "MEDIA_FLAGGED"

	ReviewReasonText        = "TEXT_REVIEW_REQUIRED"
	ReviewReasonMedia       = "MEDIA_REVIEW_REQUIRED"
	ReviewReasonPII         = "PII_DETECTED"
	ReviewReasonScanFailure = "SCAN_FAILURE"
	ReviewReasonFrequency   = "AUTHOR_FREQUENCY"
)

// Decision is the outcome of policy evaluation for one (text, media) input
// pair. Blocked implies a non-empty BlockReason.
type Decision struct {
	Blocked        bool
	BlockReason    string
	RequiresReview bool
	ReviewReason   string
	Alerts         []AlertCause
}

// Decide combines text and media analysis into a blocking decision. Pure
// function of its inputs: no I/O, deterministic, safe to re-run against the
// same inputs (eg, when a callback is redelivered).
//
// Priority order: media block, text block, PII review, threshold review,
// scan-failure review, approve.
func Decide(text TextResult, media MediaResult, t Thresholds) Decision {
	var d Decision

	// scoring backends that produced no judgment always force review; the
	// alert is emitted regardless of what the other input decides
	if text.HasFailure() {
		d.Alerts = append(d.Alerts, AlertCause{
			Type:    AlertScorerFailure,
			Reason:  "text scoring backend failed, judged by human review instead",
			Value:   text.CombinedSummary(),
			Payload: text.CombinedSummary(),
		})
	}
	if media.Failed {
		alertType := AlertScorerFailure
		reason := "media scoring produced no judgment, judged by human review instead"
		if media.JobFailure() {
			alertType = AlertJobFailure
			reason = "async media job produced no judgment, judged by human review instead"
		}
		d.Alerts = append(d.Alerts, AlertCause{
			Type:    alertType,
			Reason:  reason,
			Value:   media.Reason,
			Payload: media.Reason,
		})
	}

	switch {
	case media.Blocked:
		d.Blocked = true
		d.BlockReason = media.Reason
		if d.BlockReason == "" {
			d.BlockReason = BlockReasonMedia
		}
		d.Alerts = append(d.Alerts, AlertCause{
			Type:   AlertMediaBlocked,
			Reason: "media flagged by classification backend",
			Value:  fmt.Sprintf("confidence=%.3f", media.HighestConfidence),
		})
	case text.MaxNegativeScore() >= t.Block:
		worst := text.WorstComponent()
		d.Blocked = true
		d.BlockReason = "TEXT_FLAGGED:" + worst
		d.Alerts = append(d.Alerts, AlertCause{
			Type:    AlertTextBlocked,
			Reason:  fmt.Sprintf("%s component crossed the block threshold", worst),
			Value:   fmt.Sprintf("score=%.3f", text.MaxNegativeScore()),
			Payload: text.CombinedSummary(),
		})
	case text.HasPIIDetected():
		d.RequiresReview = true
		d.ReviewReason = ReviewReasonPII
		d.Alerts = append(d.Alerts, AlertCause{
			Type:    AlertPII,
			Reason:  "personally identifiable information detected",
			Value:   ReviewReasonPII,
			Payload: text.CombinedSummary(),
		})
	case text.RequiresReview(t.Review) || media.HighestConfidence >= t.Review:
		d.RequiresReview = true
		// a failed component sets its Review flag; the scorer-failure alert
		// above already covers that, so only alert on genuine score crossings
		if text.MaxNegativeScore() >= t.Review || (text.RequiresReview(t.Review) && !text.HasFailure()) {
			d.ReviewReason = ReviewReasonText
			d.Alerts = append(d.Alerts, AlertCause{
				Type:    AlertTextReview,
				Reason:  "text score crossed the review threshold",
				Value:   fmt.Sprintf("score=%.3f", text.MaxNegativeScore()),
				Payload: text.CombinedSummary(),
			})
		}
		if media.HighestConfidence >= t.Review && !media.NoMedia() {
			if d.ReviewReason == "" {
				d.ReviewReason = ReviewReasonMedia
			}
			d.Alerts = append(d.Alerts, AlertCause{
				Type:   AlertMediaReview,
				Reason: "media confidence crossed the review threshold",
				Value:  fmt.Sprintf("confidence=%.3f", media.HighestConfidence),
			})
		}
	case media.Failed:
		d.RequiresReview = true
		d.ReviewReason = ReviewReasonScanFailure
	}

	// failed text components carry Review=true, so the threshold case above
	// already caught them; make sure the reason reflects the failure when
	// nothing else explains the review
	if d.RequiresReview && d.ReviewReason == "" {
		d.ReviewReason = ReviewReasonScanFailure
	}

	return d
}
