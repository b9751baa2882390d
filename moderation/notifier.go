package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Notifier pushes high-priority moderation outcomes to an external channel
// (ops chat, pager webhook). Best-effort: the engine logs and continues on
// notification failure.
type Notifier interface {
	SendBlocked(ctx context.Context, rec *ModerationRecord, d Decision) error
}

// WebhookNotifier POSTs a small JSON summary of each blocked submission to a
// configured webhook URL.
type WebhookNotifier struct {
	Client     *http.Client
	WebhookURL string
}

func NewWebhookNotifier(client *http.Client, url string) *WebhookNotifier {
	return &WebhookNotifier{Client: client, WebhookURL: url}
}

type webhookMsg struct {
	Text        string  `json:"text"`
	RefID       string  `json:"refId"`
	Board       string  `json:"board"`
	AuthorID    string  `json:"authorId"`
	BlockReason string  `json:"blockReason"`
	TextScore   float64 `json:"textScore"`
	MediaScore  float64 `json:"mediaScore"`
}

func (n *WebhookNotifier) SendBlocked(ctx context.Context, rec *ModerationRecord, d Decision) error {
	if n.WebhookURL == "" {
		return nil
	}
	msg := webhookMsg{
		Text:        fmt.Sprintf("content blocked: ref=%s board=%s reason=%s", rec.RefID, rec.Board, d.BlockReason),
		RefID:       rec.RefID,
		Board:       rec.Board,
		AuthorID:    rec.AuthorID,
		BlockReason: d.BlockReason,
		TextScore:   rec.TextScore,
		MediaScore:  rec.MediaScore,
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewBuffer(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook notification failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != 200 {
		return fmt.Errorf("webhook notification failed statusCode=%d", res.StatusCode)
	}
	return nil
}
