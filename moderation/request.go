package moderation

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"
)

const (
	MaxTitleLength = 150
	MaxBodyLength  = 5000
)

var videoExtensions = []string{".mp4", ".mov", ".avi", ".mkv"}

// MediaAsset is a locator for an already-uploaded media object. Upload and
// presigning happen outside this service; the URL is carried for display
// only and never used for scoring.
type MediaAsset struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

func (a MediaAsset) IsVideo() bool {
	if strings.HasPrefix(a.MimeType, "video/") {
		return true
	}
	ext := strings.ToLower(path.Ext(a.Key))
	for _, v := range videoExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

// RequiresAsync reports whether this asset must go through the asynchronous
// scoring path: video always does, and anything above the sync size cutoff.
func (a MediaAsset) RequiresAsync(syncMaxBytes int64) bool {
	if a.IsVideo() {
		return true
	}
	return syncMaxBytes > 0 && a.Size > syncMaxBytes
}

// JobHandle identifies an asynchronous media-analysis job submitted to the
// classification backend, used only for callback correlation.
type JobHandle struct {
	JobID  string
	Bucket string
	Key    string
}

// SubmitRequest is an inbound moderation submission. Immutable once
// accepted.
type SubmitRequest struct {
	Title    string      `json:"title"`
	Body     string      `json:"body"`
	AuthorID string      `json:"authorId"`
	Board    string      `json:"board,omitempty"`
	Language string      `json:"language,omitempty"`
	Media    *MediaAsset `json:"media,omitempty"`
}

func (r *SubmitRequest) Validate(boards BoardRegistry) error {
	if strings.TrimSpace(r.Title) == "" {
		return &ValidationError{Field: "title", Problem: "must not be empty"}
	}
	if len([]rune(r.Title)) > MaxTitleLength {
		return &ValidationError{Field: "title", Problem: fmt.Sprintf("longer than %d characters", MaxTitleLength)}
	}
	if strings.TrimSpace(r.Body) == "" {
		return &ValidationError{Field: "body", Problem: "must not be empty"}
	}
	if len([]rune(r.Body)) > MaxBodyLength {
		return &ValidationError{Field: "body", Problem: fmt.Sprintf("longer than %d characters", MaxBodyLength)}
	}
	if strings.TrimSpace(r.AuthorID) == "" {
		return &ValidationError{Field: "authorId", Problem: "is required"}
	}
	if r.Board != "" && boards != nil {
		if _, ok := boards[r.Board]; !ok {
			return &ValidationError{Field: "board", Problem: "unknown board name"}
		}
	}
	if r.Media != nil {
		if r.Media.Bucket == "" || r.Media.Key == "" {
			return &ValidationError{Field: "media", Problem: "bucket and key are required"}
		}
	}
	return nil
}

// BoardRegistry maps board names to display names. Injected configuration,
// not process-wide state.
type BoardRegistry map[string]string

func DefaultBoards() BoardRegistry {
	return BoardRegistry{
		"free":    "Free Board",
		"notice":  "Notices",
		"gallery": "Gallery",
	}
}

func LoadBoardsFromFileJSON(p string) (BoardRegistry, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	var out BoardRegistry
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parsing board registry JSON: %w", err)
	}
	return out, nil
}
