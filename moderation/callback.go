package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	JobStatusSucceeded = "SUCCEEDED"
	JobStatusFailed    = "FAILED"
)

// JobStatusMessage is the payload the media backend POSTs to the callback
// endpoint when an async classification job finishes. Label confidences are
// on the backend's 0-100 scale.
type JobStatusMessage struct {
	JobID         string `json:"jobId"`
	Status        string `json:"status"`
	Bucket        string `json:"bucket,omitempty"`
	Key           string `json:"key,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
	Labels        []struct {
		Name       string  `json:"name"`
		ParentName string  `json:"parentName,omitempty"`
		Confidence float64 `json:"confidence"`
	} `json:"labels,omitempty"`
}

func (m *JobStatusMessage) Validate() error {
	if m.JobID == "" {
		return &ValidationError{Field: "jobId", Problem: "must not be empty"}
	}
	switch m.Status {
	case JobStatusSucceeded, JobStatusFailed:
		return nil
	default:
		return &ValidationError{Field: "status", Problem: fmt.Sprintf("unknown status %q", m.Status)}
	}
}

// HandleJobUpdate reconciles a job-status callback against the originating
// record. Redelivered, unknown, and expired callbacks are dropped without
// error so the backend never retries what cannot be acted on. Callbacks for
// records that somehow already reached a terminal state are also dropped.
func (eng *Engine) HandleJobUpdate(ctx context.Context, msg JobStatusMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	logger := eng.logger().With("jobID", msg.JobID, "jobStatus", msg.Status)

	job, err := eng.Jobs.ClaimJob(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			callbacksDropped.WithLabelValues("unclaimed").Inc()
			logger.Info("dropping job callback with no claimable entry (unknown or redelivered)")
			return nil
		}
		return fmt.Errorf("claiming job %s: %w", msg.JobID, err)
	}
	callbacksReceived.WithLabelValues(msg.Status).Inc()

	rec, err := eng.Records.GetRecord(ctx, job.ContentRef)
	if err != nil {
		eng.releaseClaim(ctx, logger, job.JobID)
		return fmt.Errorf("loading record %s for job %s: %w", job.ContentRef, msg.JobID, err)
	}
	if rec.Status.Terminal() {
		callbacksDropped.WithLabelValues("terminal").Inc()
		logger.Warn("dropping job callback for already-finalized record", "refID", rec.RefID, "status", rec.Status)
		return nil
	}
	logger = logger.With("refID", rec.RefID)

	var media MediaResult
	switch msg.Status {
	case JobStatusSucceeded:
		labels := make([]MediaLabel, 0, len(msg.Labels))
		for _, l := range msg.Labels {
			labels = append(labels, MediaLabel{
				Name:       l.Name,
				ParentName: l.ParentName,
				Confidence: l.Confidence / 100,
			})
		}
		media = SummarizeMediaLabels(labels, eng.Thresholds.Block)
	case JobStatusFailed:
		logger.Warn("async media job reported failure", "statusMessage", msg.StatusMessage)
		media = FailedMediaResult(MediaReasonJobFailed)
	}

	text := EmptyTextResult(eng.language(""))
	if rec.TextAnalysis != nil {
		text = *rec.TextAnalysis
	}

	rec.Status = StatusMediaScored
	if _, err := eng.finalize(ctx, logger, rec, text, media, false); err != nil {
		// undo the claim so the backend's redelivery (or the sweeper) can
		// retry; otherwise the record is stuck in AWAITING_MEDIA forever
		eng.releaseClaim(ctx, logger, job.JobID)
		return err
	}
	return nil
}

func (eng *Engine) releaseClaim(ctx context.Context, logger *slog.Logger, jobID string) {
	if err := eng.Jobs.ReleaseJob(ctx, jobID); err != nil {
		logger.Error("failed to release job claim", "err", err, "jobID", jobID)
	}
}

// SweepStaleJobs finalizes records whose async media job never answered
// within its TTL, routing them to review with a JOB_EXPIRED reason. Returns
// the number of records swept.
func (eng *Engine) SweepStaleJobs(ctx context.Context, now time.Time) (int, error) {
	expired, err := eng.Jobs.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("listing expired jobs: %w", err)
	}

	swept := 0
	for _, stale := range expired {
		logger := eng.logger().With("jobID", stale.JobID, "refID", stale.ContentRef)

		// the claim also guards against a callback racing the sweeper
		job, err := eng.Jobs.ClaimJob(ctx, stale.JobID)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				logger.Error("failed to claim expired job", "err", err)
			}
			continue
		}

		rec, err := eng.Records.GetRecord(ctx, job.ContentRef)
		if err != nil {
			logger.Error("failed to load record for expired job", "err", err)
			eng.releaseClaim(ctx, logger, job.JobID)
			continue
		}
		if rec.Status.Terminal() {
			continue
		}

		text := EmptyTextResult(eng.language(""))
		if rec.TextAnalysis != nil {
			text = *rec.TextAnalysis
		}
		rec.Status = StatusMediaScored
		if _, err := eng.finalize(ctx, logger, rec, text, FailedMediaResult(MediaReasonJobExpired), false); err != nil {
			logger.Error("failed to finalize expired job", "err", err)
			eng.releaseClaim(ctx, logger, job.JobID)
			continue
		}
		jobsExpired.Inc()
		logger.Warn("async media job expired unanswered, routed to review")
		swept++
	}
	return swept, nil
}
