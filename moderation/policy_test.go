package moderation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func scoredText(titleScore, bodyScore float64) TextResult {
	return TextResult{
		LanguageCode: "ko",
		Title:        TextComponent{Component: ComponentTitle, NegativeScore: titleScore, Summary: fmt.Sprintf("sentiment=NEGATIVE, negative=%.3f, piiCount=0", titleScore)},
		Content:      TextComponent{Component: ComponentContent, NegativeScore: bodyScore, Summary: fmt.Sprintf("sentiment=NEGATIVE, negative=%.3f, piiCount=0", bodyScore)},
	}
}

func TestDecideApprovesCleanContent(t *testing.T) {
	assert := assert.New(t)
	thresholds := Thresholds{Review: 0.7, Block: 0.9}

	d := Decide(scoredText(0.1, 0.2), EmptyMediaResult(), thresholds)
	assert.False(d.Blocked)
	assert.False(d.RequiresReview)
	assert.Empty(d.BlockReason)
	assert.Empty(d.Alerts)
}

func TestDecideTextBlockNamesWorstComponent(t *testing.T) {
	assert := assert.New(t)
	thresholds := Thresholds{Review: 0.7, Block: 0.9}

	d := Decide(scoredText(0.95, 0.3), EmptyMediaResult(), thresholds)
	assert.True(d.Blocked)
	assert.Equal("TEXT_FLAGGED:TITLE", d.BlockReason)

	d = Decide(scoredText(0.3, 0.95), EmptyMediaResult(), thresholds)
	assert.True(d.Blocked)
	assert.Equal("TEXT_FLAGGED:CONTENT", d.BlockReason)

	// ties go to the body component
	d = Decide(scoredText(0.95, 0.95), EmptyMediaResult(), thresholds)
	assert.Equal("TEXT_FLAGGED:CONTENT", d.BlockReason)

	if assert.Len(d.Alerts, 1) {
		assert.Equal(AlertTextBlocked, d.Alerts[0].Type)
	}
}

func TestDecideThresholdBoundaries(t *testing.T) {
	assert := assert.New(t)
	thresholds := Thresholds{Review: 0.7, Block: 0.9}

	// exactly at the block threshold counts as blocked
	d := Decide(scoredText(0, 0.9), EmptyMediaResult(), thresholds)
	assert.True(d.Blocked)

	// exactly at the review threshold counts as review, not approval
	d = Decide(scoredText(0, 0.7), EmptyMediaResult(), thresholds)
	assert.False(d.Blocked)
	assert.True(d.RequiresReview)
	assert.Equal(ReviewReasonText, d.ReviewReason)

	// just under the review threshold is approved
	d = Decide(scoredText(0, 0.699), EmptyMediaResult(), thresholds)
	assert.False(d.Blocked)
	assert.False(d.RequiresReview)
}

func TestDecideMediaBlockOutranksTextBlock(t *testing.T) {
	assert := assert.New(t)
	thresholds := Thresholds{Review: 0.7, Block: 0.9}

	media := SummarizeMediaLabels([]MediaLabel{
		{Name: "Explicit", Confidence: 0.97},
	}, thresholds.Block)
	assert.True(media.Blocked)

	d := Decide(scoredText(0.95, 0.95), media, thresholds)
	assert.True(d.Blocked)
	assert.Equal(MediaReasonFlagged, d.BlockReason)
	if assert.Len(d.Alerts, 1) {
		assert.Equal(AlertMediaBlocked, d.Alerts[0].Type)
	}
}

func TestDecidePIIForcesReview(t *testing.T) {
	assert := assert.New(t)
	thresholds := Thresholds{Review: 0.7, Block: 0.9}

	text := scoredText(0.1, 0.1)
	text.Content.PIIDetected = true
	text.Content.Review = true

	d := Decide(text, EmptyMediaResult(), thresholds)
	assert.False(d.Blocked)
	assert.True(d.RequiresReview)
	assert.Equal(ReviewReasonPII, d.ReviewReason)
	if assert.Len(d.Alerts, 1) {
		assert.Equal(AlertPII, d.Alerts[0].Type)
	}
}

func TestDecideMediaReviewBand(t *testing.T) {
	assert := assert.New(t)
	thresholds := Thresholds{Review: 0.7, Block: 0.9}

	media := SummarizeMediaLabels([]MediaLabel{
		{Name: "Suggestive", Confidence: 0.75},
	}, thresholds.Block)
	assert.False(media.Blocked)

	d := Decide(scoredText(0.1, 0.1), media, thresholds)
	assert.False(d.Blocked)
	assert.True(d.RequiresReview)
	assert.Equal(ReviewReasonMedia, d.ReviewReason)
	if assert.Len(d.Alerts, 1) {
		assert.Equal(AlertMediaReview, d.Alerts[0].Type)
	}
}

func TestDecideScorerFailureRoutesToReview(t *testing.T) {
	assert := assert.New(t)
	thresholds := Thresholds{Review: 0.7, Block: 0.9}

	text := scoredText(0, 0)
	text.Title = FailedTextComponent(ComponentTitle, fmt.Errorf("deadline exceeded"))

	d := Decide(text, EmptyMediaResult(), thresholds)
	assert.False(d.Blocked)
	assert.True(d.RequiresReview)
	assert.Equal(ReviewReasonScanFailure, d.ReviewReason)
	if assert.Len(d.Alerts, 1) {
		assert.Equal(AlertScorerFailure, d.Alerts[0].Type)
	}
}

func TestDecideMediaScanFailureRoutesToReview(t *testing.T) {
	assert := assert.New(t)
	thresholds := Thresholds{Review: 0.7, Block: 0.9}

	d := Decide(scoredText(0.1, 0.1), FailedMediaResult(MediaReasonFailed), thresholds)
	assert.False(d.Blocked)
	assert.True(d.RequiresReview)
	assert.Equal(ReviewReasonScanFailure, d.ReviewReason)
	if assert.Len(d.Alerts, 1) {
		assert.Equal(AlertScorerFailure, d.Alerts[0].Type)
	}
}

func TestDecideJobFailureGetsJobAlert(t *testing.T) {
	assert := assert.New(t)
	thresholds := Thresholds{Review: 0.7, Block: 0.9}

	for _, reason := range []string{MediaReasonJobFailed, MediaReasonJobExpired} {
		d := Decide(scoredText(0.1, 0.1), FailedMediaResult(reason), thresholds)
		assert.True(d.RequiresReview, reason)
		if assert.Len(d.Alerts, 1, reason) {
			assert.Equal(AlertJobFailure, d.Alerts[0].Type, reason)
		}
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	assert := assert.New(t)
	thresholds := Thresholds{Review: 0.7, Block: 0.9}

	text := scoredText(0.4, 0.92)
	media := SummarizeMediaLabels([]MediaLabel{{Name: "Weapons", Confidence: 0.6}}, thresholds.Block)

	first := Decide(text, media, thresholds)
	for i := 0; i < 5; i++ {
		assert.Equal(first, Decide(text, media, thresholds))
	}
}

func TestDecideBlockedImpliesReason(t *testing.T) {
	assert := assert.New(t)
	thresholds := Thresholds{Review: 0.5, Block: 0.5}

	inputs := []struct {
		text  TextResult
		media MediaResult
	}{
		{scoredText(0.5, 0.2), EmptyMediaResult()},
		{scoredText(0, 0), SummarizeMediaLabels([]MediaLabel{{Name: "X", Confidence: 0.8}}, 0.5)},
		{scoredText(0.99, 0.99), FailedMediaResult(MediaReasonFailed)},
	}
	for _, in := range inputs {
		d := Decide(in.text, in.media, thresholds)
		if d.Blocked {
			assert.NotEmpty(d.BlockReason)
		}
	}
}

func TestThresholdsValidate(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(Thresholds{Review: 0.7, Block: 0.9}.Validate())
	assert.NoError(Thresholds{Review: 0.9, Block: 0.9}.Validate())
	assert.Error(Thresholds{Review: 0.9, Block: 0.7}.Validate())
	assert.Error(Thresholds{Review: -0.1, Block: 0.9}.Validate())
	assert.Error(Thresholds{Review: 0.7, Block: 1.1}.Validate())
}
