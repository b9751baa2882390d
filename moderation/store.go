package moderation

import (
	"context"
	"time"
)

// RecordStore is durable keyed storage for moderation records and their
// alerts, indexed by reference identifier.
type RecordStore interface {
	CreateRecord(ctx context.Context, rec *ModerationRecord) error
	// GetRecord returns the record with its alerts, or ErrNotFound.
	GetRecord(ctx context.Context, refID string) (*ModerationRecord, error)
	// UpdateRecord persists a mutated record. The write only succeeds if the
	// record's Version still matches the stored row (which is then bumped);
	// a stale read returns ErrConflict.
	UpdateRecord(ctx context.Context, rec *ModerationRecord) error
	// AddAlert persists an alert, returning false if an identical alert
	// (same dedupe key) already exists.
	AddAlert(ctx context.Context, alert *AdminAlert) (bool, error)
	// ListAlerts returns recent alerts, optionally filtered by
	// acknowledgement state.
	ListAlerts(ctx context.Context, acknowledged *bool, limit int) ([]AdminAlert, error)
	// AckAlert marks an alert acknowledged (external admin action).
	AckAlert(ctx context.Context, alertID uint) error
}

// JobStore tracks async job correlation entries.
type JobStore interface {
	CreateJob(ctx context.Context, job *MediaJob) error
	// ClaimJob atomically marks the entry consumed and returns it. Unknown
	// or already-consumed job identifiers return ErrNotFound; exactly one
	// concurrent caller can win the claim.
	ClaimJob(ctx context.Context, jobID string) (*MediaJob, error)
	// ReleaseJob undoes a claim after the claimant failed to act on it, so
	// a redelivery or the sweeper can pick the entry up again.
	ReleaseJob(ctx context.Context, jobID string) error
	// ListExpired returns unconsumed entries whose expiry has passed.
	ListExpired(ctx context.Context, now time.Time) ([]MediaJob, error)
}

// TextScorer wraps the external text-classification backend. One call per
// text field; implementations must be bounded by a timeout.
type TextScorer interface {
	AnalyzeText(ctx context.Context, text, component, language string) (TextComponent, error)
}

// MediaScorer wraps the external media-classification backend. ScanSync
// judges small assets inline; SubmitAsync starts a backend job whose result
// arrives later as a JobStatusMessage.
type MediaScorer interface {
	ScanSync(ctx context.Context, asset MediaAsset) (*MediaResult, error)
	SubmitAsync(ctx context.Context, asset MediaAsset) (*JobHandle, error)
}
