package moderation

import (
	"time"

	"github.com/google/uuid"
)

// ModerationRecord is the durable state of one submission moving through the
// pipeline. The reference identifier is minted once at creation and is the
// only externally addressable handle; records are never deleted by the
// pipeline (retained for audit).
type ModerationRecord struct {
	ID          uint   `gorm:"primarykey" json:"-"`
	RefID       string `gorm:"uniqueIndex;size:64" json:"referenceId"`
	Title       string `gorm:"size:150" json:"title"`
	Body        string `json:"body"`
	AuthorID    string `gorm:"index;size:64" json:"authorId"`
	Board       string `gorm:"size:50" json:"board,omitempty"`
	MediaURL    string `json:"mediaUrl,omitempty"`
	MediaBucket string `json:"-"`
	MediaKey    string `json:"-"`

	Status      Status  `gorm:"size:16;index" json:"status"`
	Blocked     bool    `json:"blocked"`
	BlockReason string  `json:"blockReason,omitempty"`
	TextScore   float64 `json:"textScore"`
	MediaScore  float64 `json:"mediaScore"`

	TextAnalysis  *TextResult  `gorm:"serializer:json" json:"textAnalysis,omitempty"`
	MediaAnalysis *MediaResult `gorm:"serializer:json" json:"mediaAnalysis,omitempty"`

	Alerts []AdminAlert `gorm:"foreignKey:ContentRef;references:RefID" json:"alerts"`

	// bumped on every persisted mutation; lost-update detection
	Version   int       `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewRecord mints a record for an accepted submission, in the PENDING state,
// with its reference identifier already assigned.
func NewRecord(req SubmitRequest) *ModerationRecord {
	rec := &ModerationRecord{
		RefID:    uuid.New().String(),
		Title:    req.Title,
		Body:     req.Body,
		AuthorID: req.AuthorID,
		Board:    req.Board,
		Status:   StatusPending,
	}
	if req.Media != nil {
		rec.MediaURL = req.Media.URL
		rec.MediaBucket = req.Media.Bucket
		rec.MediaKey = req.Media.Key
	}
	return rec
}

// AdminAlert is one append-only alert attached to a moderation record.
// Acknowledged is mutated only by an external admin action, never by the
// pipeline. DedupeKey makes emission idempotent per (content, cause type,
// triggering value).
type AdminAlert struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	ContentRef   string    `gorm:"index;size:64" json:"referenceId"`
	Type         AlertType `gorm:"size:24" json:"type"`
	Reason       string    `gorm:"size:150" json:"reason"`
	Payload      string    `json:"payload,omitempty"`
	DedupeKey    string    `gorm:"uniqueIndex;size:512" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	Acknowledged bool      `json:"acknowledged"`
}

// NewAlert binds an alert cause to its owning record.
func NewAlert(contentRef string, cause AlertCause) *AdminAlert {
	return &AdminAlert{
		ContentRef: contentRef,
		Type:       cause.Type,
		Reason:     cause.Reason,
		Payload:    cause.Payload,
		DedupeKey:  contentRef + "/" + string(cause.Type) + "/" + cause.Value,
	}
}

// MediaJob correlates an external async media-analysis job with its owning
// record. Consumed exactly once: the first callback handler to claim it
// wins, late duplicates find nothing to claim. Lifecycle timestamps make
// stale unconsumed entries a sweepable, observable condition.
type MediaJob struct {
	ID         uint       `gorm:"primarykey"`
	JobID      string     `gorm:"uniqueIndex;size:128"`
	ContentRef string     `gorm:"index;size:64"`
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}
