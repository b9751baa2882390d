package store

import (
	"context"
	"testing"
	"time"

	"github.com/boardpost/gatekeeper/moderation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreRecordLifecycle(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemStore()

	rec := moderation.NewRecord(moderation.SubmitRequest{
		Title:    "hello",
		Body:     "world",
		AuthorID: "author-1",
	})
	require.NoError(t, s.CreateRecord(ctx, rec))
	assert.NotEmpty(rec.RefID)

	got, err := s.GetRecord(ctx, rec.RefID)
	require.NoError(t, err)
	assert.Equal(moderation.StatusPending, got.Status)
	assert.Equal(1, got.Version)

	_, err = s.GetRecord(ctx, "no-such-ref")
	assert.ErrorIs(err, moderation.ErrNotFound)

	got.Status = moderation.StatusApproved
	require.NoError(t, s.UpdateRecord(ctx, got))

	again, err := s.GetRecord(ctx, rec.RefID)
	require.NoError(t, err)
	assert.Equal(moderation.StatusApproved, again.Status)
	assert.Equal(2, again.Version)
}

func TestMemStoreStaleWriteConflict(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemStore()

	rec := moderation.NewRecord(moderation.SubmitRequest{Title: "t", Body: "b", AuthorID: "a"})
	require.NoError(t, s.CreateRecord(ctx, rec))

	readerA, err := s.GetRecord(ctx, rec.RefID)
	require.NoError(t, err)
	readerB, err := s.GetRecord(ctx, rec.RefID)
	require.NoError(t, err)

	readerA.Status = moderation.StatusTextScored
	require.NoError(t, s.UpdateRecord(ctx, readerA))

	// readerB holds a stale version; its write must not clobber readerA's
	readerB.Status = moderation.StatusBlocked
	assert.ErrorIs(s.UpdateRecord(ctx, readerB), moderation.ErrConflict)

	got, err := s.GetRecord(ctx, rec.RefID)
	require.NoError(t, err)
	assert.Equal(moderation.StatusTextScored, got.Status)
}

func TestMemStoreAlertDedupe(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemStore()

	cause := moderation.AlertCause{
		Type:   moderation.AlertPII,
		Reason: "pii found",
		Value:  "PII_DETECTED",
	}

	created, err := s.AddAlert(ctx, moderation.NewAlert("ref-1", cause))
	assert.NoError(err)
	assert.True(created)

	// identical cause for the same content dedupes away
	created, err = s.AddAlert(ctx, moderation.NewAlert("ref-1", cause))
	assert.NoError(err)
	assert.False(created)

	// same cause on different content is a fresh alert
	created, err = s.AddAlert(ctx, moderation.NewAlert("ref-2", cause))
	assert.NoError(err)
	assert.True(created)

	alerts, err := s.ListAlerts(ctx, nil, 0)
	assert.NoError(err)
	assert.Equal(2, len(alerts))
}

func TestMemStoreAckAlert(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemStore()

	alert := moderation.NewAlert("ref-1", moderation.AlertCause{Type: moderation.AlertTextReview, Value: "score=0.8"})
	_, err := s.AddAlert(ctx, alert)
	require.NoError(t, err)

	require.NoError(t, s.AckAlert(ctx, alert.ID))
	assert.ErrorIs(s.AckAlert(ctx, 999), moderation.ErrNotFound)

	acked := true
	alerts, err := s.ListAlerts(ctx, &acked, 0)
	assert.NoError(err)
	assert.Equal(1, len(alerts))
}

func TestMemStoreJobClaimOnce(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemStore()

	job := &moderation.MediaJob{
		JobID:      "job-abc",
		ContentRef: "ref-1",
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	require.NoError(t, s.CreateJob(ctx, job))

	claimed, err := s.ClaimJob(ctx, "job-abc")
	require.NoError(t, err)
	assert.Equal("ref-1", claimed.ContentRef)
	assert.NotNil(claimed.ConsumedAt)

	// second claim loses
	_, err = s.ClaimJob(ctx, "job-abc")
	assert.ErrorIs(err, moderation.ErrNotFound)

	// unknown job id
	_, err = s.ClaimJob(ctx, "job-unknown")
	assert.ErrorIs(err, moderation.ErrNotFound)
}

func TestMemStoreReleaseJob(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemStore()

	job := &moderation.MediaJob{
		JobID:      "job-xyz",
		ContentRef: "ref-1",
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	require.NoError(t, s.CreateJob(ctx, job))

	_, err := s.ClaimJob(ctx, "job-xyz")
	require.NoError(t, err)

	// a released claim is claimable again
	require.NoError(t, s.ReleaseJob(ctx, "job-xyz"))
	claimed, err := s.ClaimJob(ctx, "job-xyz")
	require.NoError(t, err)
	assert.Equal("ref-1", claimed.ContentRef)

	assert.ErrorIs(s.ReleaseJob(ctx, "job-unknown"), moderation.ErrNotFound)
}

func TestMemStoreListExpired(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemStore()

	now := time.Now().UTC()
	require.NoError(t, s.CreateJob(ctx, &moderation.MediaJob{JobID: "fresh", ContentRef: "r1", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.CreateJob(ctx, &moderation.MediaJob{JobID: "stale", ContentRef: "r2", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, s.CreateJob(ctx, &moderation.MediaJob{JobID: "consumed", ContentRef: "r3", ExpiresAt: now.Add(-time.Hour)}))
	_, err := s.ClaimJob(ctx, "consumed")
	require.NoError(t, err)

	expired, err := s.ListExpired(ctx, now)
	assert.NoError(err)
	assert.Equal(1, len(expired))
	assert.Equal("stale", expired[0].JobID)
}
