// Package visual wraps the external media-classification backend behind the
// moderation.MediaScorer contract: synchronous scans for images, async jobs
// (with a later webhook callback) for video and oversized assets.
package visual

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/boardpost/gatekeeper/moderation"
	"github.com/boardpost/gatekeeper/util"

	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/time/rate"
)

type Client struct {
	Client   *http.Client
	Host     string
	APIToken string
	// block threshold on the 0.0-1.0 scale; forwarded to the backend as a
	// minimum label confidence and used to set the Blocked flag on sync
	// results
	MinConfidence float64
	// where the backend should POST job-status callbacks
	NotifyURL string
	Limiter   *rate.Limiter
}

func NewClient(host, token string, minConfidence float64, notifyURL string) *Client {
	return &Client{
		Client:        util.RobustHTTPClient(),
		Host:          host,
		APIToken:      token,
		MinConfidence: minConfidence,
		NotifyURL:     notifyURL,
		Limiter:       rate.NewLimiter(rate.Limit(10), 5),
	}
}

type scanRequest struct {
	Bucket        string  `json:"bucket"`
	Key           string  `json:"key"`
	MinConfidence float64 `json:"minConfidence"` // 0-100 scale
}

type scanResponse struct {
	Labels []wireLabel `json:"labels"`
}

type wireLabel struct {
	Name       string  `json:"name"`
	ParentName string  `json:"parentName,omitempty"`
	Confidence float64 `json:"confidence"` // 0-100 scale
}

type startJobRequest struct {
	Bucket        string  `json:"bucket"`
	Key           string  `json:"key"`
	MinConfidence float64 `json:"minConfidence"`
	NotifyURL     string  `json:"notifyUrl"`
}

type startJobResponse struct {
	JobID string `json:"jobId"`
}

// ScanSync judges an image asset inline and returns a scored result.
func (c *Client) ScanSync(ctx context.Context, asset moderation.MediaAsset) (*moderation.MediaResult, error) {
	if asset.Bucket == "" || asset.Key == "" {
		return nil, fmt.Errorf("%w: missing bucket or key", moderation.ErrInvalidAsset)
	}

	slog.Debug("scanning media", "bucket", asset.Bucket, "key", asset.Key, "mimetype", asset.MimeType)

	start := time.Now()
	defer func() {
		mediaAPIDuration.Observe(time.Since(start).Seconds())
	}()

	var resp scanResponse
	if err := c.post(ctx, "/v1/moderation/scan", scanRequest{
		Bucket:        asset.Bucket,
		Key:           asset.Key,
		MinConfidence: c.MinConfidence * 100,
	}, &resp); err != nil {
		return nil, err
	}

	labels := normalizeLabels(resp.Labels)
	result := moderation.SummarizeMediaLabels(labels, c.MinConfidence)
	slog.Info("media scan response", "key", asset.Key, "labels", len(labels), "highest", result.HighestConfidence)
	return &result, nil
}

// SubmitAsync starts a backend classification job for video or oversized
// assets. The result arrives later as a job-status callback.
func (c *Client) SubmitAsync(ctx context.Context, asset moderation.MediaAsset) (*moderation.JobHandle, error) {
	if asset.Bucket == "" || asset.Key == "" {
		return nil, fmt.Errorf("%w: missing bucket or key", moderation.ErrInvalidAsset)
	}

	var resp startJobResponse
	if err := c.post(ctx, "/v1/moderation/jobs", startJobRequest{
		Bucket:        asset.Bucket,
		Key:           asset.Key,
		MinConfidence: c.MinConfidence * 100,
		NotifyURL:     c.NotifyURL,
	}, &resp); err != nil {
		return nil, err
	}
	if resp.JobID == "" {
		return nil, fmt.Errorf("media backend returned empty job id")
	}

	mediaJobsStarted.Inc()
	slog.Info("media job submitted", "jobID", resp.JobID, "key", asset.Key)
	return &moderation.JobHandle{JobID: resp.JobID, Bucket: asset.Bucket, Key: asset.Key}, nil
}

func normalizeLabels(wire []wireLabel) []moderation.MediaLabel {
	out := make([]moderation.MediaLabel, 0, len(wire))
	for _, l := range wire {
		out = append(out, moderation.MediaLabel{
			Name:       l.Name,
			ParentName: l.ParentName,
			Confidence: l.Confidence / 100,
		})
	}
	return out
}

func (c *Client) post(ctx context.Context, path string, reqBody, respBody any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	raw, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Host+path, bytes.NewBuffer(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Token %s", c.APIToken))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "gatekeeper/"+versioninfo.Short())

	res, err := c.Client.Do(req)
	if err != nil {
		mediaAPICount.WithLabelValues("error").Inc()
		return fmt.Errorf("media scorer request failed: %w", err)
	}
	defer res.Body.Close()

	mediaAPICount.WithLabelValues(fmt.Sprint(res.StatusCode)).Inc()
	if res.StatusCode >= 400 && res.StatusCode < 500 {
		// the backend rejected the asset itself; not retryable
		return fmt.Errorf("%w: backend rejected asset statusCode=%d", moderation.ErrInvalidAsset, res.StatusCode)
	}
	if res.StatusCode != 200 {
		return fmt.Errorf("media scorer request failed statusCode=%d", res.StatusCode)
	}

	respBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read media scorer resp body: %w", err)
	}
	if err := json.Unmarshal(respBytes, respBody); err != nil {
		return fmt.Errorf("failed to parse media scorer resp JSON: %w", err)
	}
	return nil
}
