package moderation

import (
	"fmt"
	"strings"
)

const (
	ComponentTitle   = "TITLE"
	ComponentContent = "CONTENT"
)

// TextComponent is the scoring outcome for a single text field of a
// submission (title or body).
type TextComponent struct {
	Component     string  `json:"component"`
	NegativeScore float64 `json:"negativeScore"`
	PIIDetected   bool    `json:"piiDetected"`
	Review        bool    `json:"review"`
	Blocked       bool    `json:"blocked"`
	Failed        bool    `json:"failed,omitempty"`
	Summary       string  `json:"summary"`
}

// FailedTextComponent is the fail-safe outcome when the text scorer backend
// timed out or errored: the field could not be judged, so it is routed
// toward human review rather than silently approved.
func FailedTextComponent(component string, err error) TextComponent {
	return TextComponent{
		Component: component,
		Review:    true,
		Failed:    true,
		Summary:   fmt.Sprintf("text scoring failed: %v", err),
	}
}

// TextResult is the combined text analysis for one submission: exactly two
// components, one per text field.
type TextResult struct {
	LanguageCode string        `json:"languageCode"`
	Title        TextComponent `json:"title"`
	Content      TextComponent `json:"content"`
}

// EmptyTextResult represents the case where text scoring was skipped or text
// was absent: zero scores, no flags.
func EmptyTextResult(languageCode string) TextResult {
	return TextResult{
		LanguageCode: languageCode,
		Title:        TextComponent{Component: ComponentTitle},
		Content:      TextComponent{Component: ComponentContent},
	}
}

func (r TextResult) Components() []TextComponent {
	return []TextComponent{r.Title, r.Content}
}

func (r TextResult) MaxNegativeScore() float64 {
	out := 0.0
	for _, c := range r.Components() {
		if c.NegativeScore > out {
			out = c.NegativeScore
		}
	}
	return out
}

// WorstComponent returns the name of the component with the highest negative
// score (CONTENT wins ties, matching the scan order users care about).
func (r TextResult) WorstComponent() string {
	if r.Content.NegativeScore >= r.Title.NegativeScore {
		return r.Content.Component
	}
	return r.Title.Component
}

func (r TextResult) HasPIIDetected() bool {
	for _, c := range r.Components() {
		if c.PIIDetected {
			return true
		}
	}
	return false
}

func (r TextResult) HasFailure() bool {
	for _, c := range r.Components() {
		if c.Failed {
			return true
		}
	}
	return false
}

// RequiresReview is true if any component crossed the review threshold, or
// carries an explicit review flag. Ties at exactly the threshold count as
// crossing it.
func (r TextResult) RequiresReview(threshold float64) bool {
	for _, c := range r.Components() {
		if c.NegativeScore >= threshold || c.Review {
			return true
		}
	}
	return false
}

func (r TextResult) CombinedSummary() string {
	parts := make([]string, 0, 2)
	for _, c := range r.Components() {
		parts = append(parts, c.Component+":"+c.Summary)
	}
	return strings.Join(parts, "; ")
}

// MediaLabel is a single detected moderation label from the media
// classification backend. Confidence is normalized to 0.0-1.0 at the adapter
// boundary (classifiers report 0-100).
type MediaLabel struct {
	Name       string  `json:"name"`
	ParentName string  `json:"parentName,omitempty"`
	Confidence float64 `json:"confidence"`
}

const (
	MediaReasonNoMedia    = "NO_MEDIA"
	MediaReasonClean      = "CLEAN"
	MediaReasonFlagged    = "MEDIA_FLAGGED"
	MediaReasonFailed     = "SCAN_FAILED"
	MediaReasonJobFailed  = "JOB_FAILED"
	MediaReasonJobExpired = "JOB_EXPIRED"
)

// MediaResult is the media analysis outcome for one submission.
//
// A zero-confidence scored result and the canonical "no media" result are
// distinct: consumers must check Reason (or NoMedia()), never just the
// score. Failed marks a scan that produced no judgment at all, which is also
// not the same as a clean zero score.
type MediaResult struct {
	HighestConfidence float64      `json:"highestConfidence"`
	Blocked           bool         `json:"blocked"`
	Labels            []MediaLabel `json:"labels"`
	Reason            string       `json:"reason"`
	Failed            bool         `json:"failed,omitempty"`
}

// EmptyMediaResult is the canonical representation for content with no
// attached media.
func EmptyMediaResult() MediaResult {
	return MediaResult{Reason: MediaReasonNoMedia}
}

// FailedMediaResult represents a media scan which produced no judgment
// (backend unreachable, job reported FAILED, etc). Absence of a judgment is
// not evidence of guilt: policy maps this to review, never to blocked.
func FailedMediaResult(reason string) MediaResult {
	if reason == "" {
		reason = MediaReasonFailed
	}
	return MediaResult{Reason: reason, Failed: true}
}

func (r MediaResult) NoMedia() bool {
	return r.Reason == MediaReasonNoMedia
}

// JobFailure reports whether this failed result came from the async job
// machinery (reported FAILED, or expired unanswered) rather than a direct
// scan error.
func (r MediaResult) JobFailure() bool {
	return r.Failed && strings.HasPrefix(r.Reason, "JOB_")
}

// SummarizeMediaLabels folds a label list into the blocked/confidence form
// used by policy evaluation. Confidences are expected on the 0.0-1.0 scale.
func SummarizeMediaLabels(labels []MediaLabel, blockThreshold float64) MediaResult {
	highest := 0.0
	for _, l := range labels {
		if l.Confidence > highest {
			highest = l.Confidence
		}
	}
	blocked := len(labels) > 0 && highest >= blockThreshold
	reason := MediaReasonClean
	if blocked {
		reason = MediaReasonFlagged
	}
	return MediaResult{
		HighestConfidence: highest,
		Blocked:           blocked,
		Labels:            labels,
		Reason:            reason,
	}
}
