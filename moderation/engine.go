package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/boardpost/gatekeeper/moderation/countstore"
)

var (
	// number of times a conflicting persist is re-read and retried before
	// the failure surfaces to the caller
	persistRetries = 3

	// default lifetime of an async job correlation entry; an unanswered job
	// older than this is sweepable
	DefaultJobTTL = 6 * time.Hour
)

// Engine is the moderation orchestrator: it runs the submission state
// machine, drives the scorer adapters, applies policy, and reconciles
// late-arriving async media callbacks against the originating record.
//
// Careful when initializing: Records, Jobs, TextScorer and MediaScorer must
// not be nil (MediaScorer may be nil only if no submission ever carries
// media).
type Engine struct {
	Logger      *slog.Logger
	Records     RecordStore
	Jobs        JobStore
	TextScorer  TextScorer
	MediaScorer MediaScorer
	// optional; when set, authors exceeding AuthorDailyQuota submissions per
	// day get routed to review
	Counters         countstore.CountStore
	AuthorDailyQuota int

	Thresholds      Thresholds
	Boards          BoardRegistry
	DefaultLanguage string
	// assets above this size (and all video) go through the async path
	MediaSyncMaxBytes int64
	JobTTL            time.Duration

	// optional webhook notifier for blocked content
	Notifier Notifier
}

func (eng *Engine) logger() *slog.Logger {
	if eng.Logger == nil {
		return slog.Default()
	}
	return eng.Logger
}

func (eng *Engine) language(requested string) string {
	if requested != "" {
		return requested
	}
	if eng.DefaultLanguage != "" {
		return eng.DefaultLanguage
	}
	return "ko"
}

// SubmitContent accepts a moderation request, creates the record, runs
// synchronous scoring and policy evaluation, and returns the persisted
// record. The reference identifier is always returned once validation
// passes: scorer backend failures degrade the outcome to review, they never
// lose the submission.
func (eng *Engine) SubmitContent(ctx context.Context, req SubmitRequest) (*ModerationRecord, error) {
	if err := req.Validate(eng.Boards); err != nil {
		return nil, err
	}

	rec := NewRecord(req)
	if err := eng.Records.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("creating moderation record: %w", err)
	}
	logger := eng.logger().With("refID", rec.RefID, "authorID", rec.AuthorID)
	submissionsReceived.Inc()

	frequentAuthor := eng.trackAuthorActivity(ctx, logger, rec.AuthorID)

	textResult := eng.scoreText(ctx, logger, req.Title, req.Body, req.Language)
	rec.TextScore = textResult.MaxNegativeScore()
	rec.TextAnalysis = &textResult
	rec.Status = StatusTextScored
	if err := eng.Records.UpdateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("persisting text analysis: %w", err)
	}

	if req.Media != nil && req.Media.RequiresAsync(eng.MediaSyncMaxBytes) {
		parked, submitted, err := eng.startMediaJob(ctx, logger, rec, *req.Media)
		if err != nil {
			return nil, err
		}
		if submitted {
			return parked, nil
		}
		// job submission failed; fall through and finalize with a failed
		// media result so the content degrades to review
		return eng.finalize(ctx, logger, rec, textResult, FailedMediaResult(MediaReasonFailed), frequentAuthor)
	}

	var media MediaResult
	switch {
	case req.Media == nil:
		media = EmptyMediaResult()
	default:
		media = eng.scanMediaSync(ctx, logger, rec, *req.Media)
		rec.Status = StatusMediaScored
	}

	return eng.finalize(ctx, logger, rec, textResult, media, frequentAuthor)
}

// AnalyzeText is the stateless pre-submission preview: text scoring and the
// block verdict only, no record created.
func (eng *Engine) AnalyzeText(ctx context.Context, title, body, language string) (TextResult, bool) {
	result := eng.scoreText(ctx, eng.logger(), title, body, language)
	blocked := result.MaxNegativeScore() >= eng.Thresholds.Block
	return result, blocked
}

// GetContent returns the record for a reference identifier, with its latest
// analyses and alerts, or ErrNotFound.
func (eng *Engine) GetContent(ctx context.Context, refID string) (*ModerationRecord, error) {
	return eng.Records.GetRecord(ctx, refID)
}

func (eng *Engine) scoreText(ctx context.Context, logger *slog.Logger, title, body, language string) TextResult {
	lang := eng.language(language)
	result := TextResult{LanguageCode: lang}

	titleComp, err := eng.TextScorer.AnalyzeText(ctx, title, ComponentTitle, lang)
	if err != nil {
		logger.Warn("title scoring failed, degrading to review", "err", err)
		titleComp = FailedTextComponent(ComponentTitle, err)
	}
	result.Title = titleComp

	bodyComp, err := eng.TextScorer.AnalyzeText(ctx, body, ComponentContent, lang)
	if err != nil {
		logger.Warn("body scoring failed, degrading to review", "err", err)
		bodyComp = FailedTextComponent(ComponentContent, err)
	}
	result.Content = bodyComp
	return result
}

func (eng *Engine) scanMediaSync(ctx context.Context, logger *slog.Logger, rec *ModerationRecord, asset MediaAsset) MediaResult {
	result, err := eng.MediaScorer.ScanSync(ctx, asset)
	if err != nil {
		logger.Warn("sync media scan failed, degrading to review", "err", err, "key", asset.Key)
		return FailedMediaResult(MediaReasonFailed)
	}
	return *result
}

// startMediaJob submits the async job and parks the record in
// AWAITING_MEDIA. Returns submitted=false when submission failed and the
// caller should degrade instead.
func (eng *Engine) startMediaJob(ctx context.Context, logger *slog.Logger, rec *ModerationRecord, asset MediaAsset) (*ModerationRecord, bool, error) {
	handle, err := eng.MediaScorer.SubmitAsync(ctx, asset)
	if err != nil {
		logger.Warn("async media job submission failed, degrading to review", "err", err, "key", asset.Key)
		return nil, false, nil
	}

	ttl := eng.JobTTL
	if ttl == 0 {
		ttl = DefaultJobTTL
	}
	job := &MediaJob{
		JobID:      handle.JobID,
		ContentRef: rec.RefID,
		ExpiresAt:  time.Now().UTC().Add(ttl),
	}
	if err := eng.Jobs.CreateJob(ctx, job); err != nil {
		return nil, false, fmt.Errorf("storing job correlation entry: %w", err)
	}

	rec.Status = StatusAwaitingMedia
	if err := eng.Records.UpdateRecord(ctx, rec); err != nil {
		if errors.Is(err, ErrConflict) {
			// the callback beat us to the record and already finalized it;
			// the submission still succeeded, hand back the final state
			fresh, gerr := eng.Records.GetRecord(ctx, rec.RefID)
			if gerr != nil {
				return nil, false, gerr
			}
			logger.Info("media job callback arrived before submission completed", "jobID", handle.JobID, "status", fresh.Status)
			return fresh, true, nil
		}
		return nil, false, fmt.Errorf("persisting awaiting-media status: %w", err)
	}
	logger.Info("media job submitted, awaiting callback", "jobID", handle.JobID)
	return rec, true, nil
}

// finalize runs policy evaluation and persists the terminal state, emitting
// alerts for each triggering condition. The record pointer is refreshed and
// re-applied when a concurrent writer wins the version race.
func (eng *Engine) finalize(ctx context.Context, logger *slog.Logger, rec *ModerationRecord, text TextResult, media MediaResult, frequentAuthor bool) (*ModerationRecord, error) {
	decision := Decide(text, media, eng.Thresholds)
	if frequentAuthor && !decision.Blocked {
		decision.RequiresReview = true
		if decision.ReviewReason == "" {
			decision.ReviewReason = ReviewReasonFrequency
		}
		decision.Alerts = append(decision.Alerts, AlertCause{
			Type:   AlertAuthorFrequency,
			Reason: "author exceeded the daily submission quota",
			Value:  ReviewReasonFrequency,
		})
	}

	var persistErr error
	for attempt := 0; attempt < persistRetries; attempt++ {
		applyDecision(rec, text, media, decision)
		persistErr = eng.Records.UpdateRecord(ctx, rec)
		if persistErr == nil {
			break
		}
		if !errors.Is(persistErr, ErrConflict) {
			return nil, fmt.Errorf("persisting decision: %w", persistErr)
		}
		fresh, err := eng.Records.GetRecord(ctx, rec.RefID)
		if err != nil {
			return nil, err
		}
		if fresh.Status.Terminal() {
			// someone else already finalized this record; keep their outcome
			return fresh, nil
		}
		rec = fresh
	}
	if persistErr != nil {
		return nil, fmt.Errorf("persisting decision for %s: %w", rec.RefID, persistErr)
	}

	for _, cause := range decision.Alerts {
		alert := NewAlert(rec.RefID, cause)
		created, err := eng.Records.AddAlert(ctx, alert)
		if err != nil {
			logger.Error("failed to persist admin alert", "err", err, "type", cause.Type)
			continue
		}
		if created {
			alertsCreated.WithLabelValues(string(cause.Type)).Inc()
			rec.Alerts = append(rec.Alerts, *alert)
		}
	}

	submissionsDecided.WithLabelValues(string(rec.Status)).Inc()
	logger.Info("moderation decision",
		"status", rec.Status,
		"blocked", rec.Blocked,
		"blockReason", rec.BlockReason,
		"textScore", rec.TextScore,
		"mediaScore", rec.MediaScore,
		"alerts", len(decision.Alerts),
	)

	if decision.Blocked && eng.Notifier != nil {
		if err := eng.Notifier.SendBlocked(ctx, rec, decision); err != nil {
			logger.Warn("admin notification failed", "err", err)
		}
	}
	return rec, nil
}

func applyDecision(rec *ModerationRecord, text TextResult, media MediaResult, d Decision) {
	rec.TextScore = text.MaxNegativeScore()
	rec.TextAnalysis = &text
	rec.MediaScore = media.HighestConfidence
	rec.MediaAnalysis = &media

	var next Status
	switch {
	case d.Blocked:
		next = StatusBlocked
		rec.Blocked = true
		rec.BlockReason = d.BlockReason
		if worst := text.WorstComponent(); d.BlockReason == "TEXT_FLAGGED:"+worst {
			markComponentBlocked(rec.TextAnalysis, worst)
		}
	case d.RequiresReview:
		next = StatusReview
		rec.Blocked = false
		rec.BlockReason = d.ReviewReason
	default:
		next = StatusApproved
		rec.Blocked = false
		rec.BlockReason = ""
	}
	if rec.Status.CanTransitionTo(next) {
		rec.Status = next
	}
}

func markComponentBlocked(result *TextResult, component string) {
	if result.Title.Component == component {
		result.Title.Blocked = true
	}
	if result.Content.Component == component {
		result.Content.Blocked = true
	}
}

func (eng *Engine) trackAuthorActivity(ctx context.Context, logger *slog.Logger, authorID string) bool {
	if eng.Counters == nil || eng.AuthorDailyQuota <= 0 {
		return false
	}
	if err := eng.Counters.Increment(ctx, "submission", authorID); err != nil {
		logger.Warn("failed to increment author counter", "err", err)
		return false
	}
	count, err := eng.Counters.GetCount(ctx, "submission", authorID, countstore.PeriodDay)
	if err != nil {
		logger.Warn("failed to read author counter", "err", err)
		return false
	}
	if count > eng.AuthorDailyQuota {
		logger.Info("author over daily submission quota", "count", count, "quota", eng.AuthorDailyQuota)
		return true
	}
	return false
}
