// Package store provides RecordStore and JobStore implementations: an
// in-memory variant for tests and small deployments, and a gorm-backed
// variant for sqlite/postgres.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/boardpost/gatekeeper/moderation"
)

type MemStore struct {
	lk          sync.Mutex
	records     map[string]*moderation.ModerationRecord
	alerts      []*moderation.AdminAlert
	alertDedupe map[string]bool
	jobs        map[string]*moderation.MediaJob
	nextAlertID uint
	nextRecID   uint
}

func NewMemStore() *MemStore {
	return &MemStore{
		records:     make(map[string]*moderation.ModerationRecord),
		alertDedupe: make(map[string]bool),
		jobs:        make(map[string]*moderation.MediaJob),
	}
}

func copyRecord(rec *moderation.ModerationRecord) *moderation.ModerationRecord {
	out := *rec
	if rec.TextAnalysis != nil {
		ta := *rec.TextAnalysis
		out.TextAnalysis = &ta
	}
	if rec.MediaAnalysis != nil {
		ma := *rec.MediaAnalysis
		out.MediaAnalysis = &ma
	}
	out.Alerts = append([]moderation.AdminAlert{}, rec.Alerts...)
	return &out
}

func (s *MemStore) CreateRecord(ctx context.Context, rec *moderation.ModerationRecord) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.nextRecID++
	rec.ID = s.nextRecID
	rec.Version = 1
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.records[rec.RefID] = copyRecord(rec)
	return nil
}

func (s *MemStore) GetRecord(ctx context.Context, refID string) (*moderation.ModerationRecord, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	rec, ok := s.records[refID]
	if !ok {
		return nil, moderation.ErrNotFound
	}
	out := copyRecord(rec)
	out.Alerts = s.alertsFor(refID)
	return out, nil
}

func (s *MemStore) alertsFor(refID string) []moderation.AdminAlert {
	out := []moderation.AdminAlert{}
	for _, a := range s.alerts {
		if a.ContentRef == refID {
			out = append(out, *a)
		}
	}
	return out
}

func (s *MemStore) UpdateRecord(ctx context.Context, rec *moderation.ModerationRecord) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	cur, ok := s.records[rec.RefID]
	if !ok {
		return moderation.ErrNotFound
	}
	if cur.Version != rec.Version {
		return moderation.ErrConflict
	}
	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	s.records[rec.RefID] = copyRecord(rec)
	return nil
}

func (s *MemStore) AddAlert(ctx context.Context, alert *moderation.AdminAlert) (bool, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	if s.alertDedupe[alert.DedupeKey] {
		return false, nil
	}
	s.alertDedupe[alert.DedupeKey] = true
	s.nextAlertID++
	alert.ID = s.nextAlertID
	alert.CreatedAt = time.Now().UTC()
	cp := *alert
	s.alerts = append(s.alerts, &cp)
	return true, nil
}

func (s *MemStore) ListAlerts(ctx context.Context, acknowledged *bool, limit int) ([]moderation.AdminAlert, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	out := []moderation.AdminAlert{}
	for _, a := range s.alerts {
		if acknowledged != nil && a.Acknowledged != *acknowledged {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) AckAlert(ctx context.Context, alertID uint) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	for _, a := range s.alerts {
		if a.ID == alertID {
			a.Acknowledged = true
			return nil
		}
	}
	return moderation.ErrNotFound
}

func (s *MemStore) CreateJob(ctx context.Context, job *moderation.MediaJob) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	job.CreatedAt = time.Now().UTC()
	cp := *job
	s.jobs[job.JobID] = &cp
	return nil
}

func (s *MemStore) ClaimJob(ctx context.Context, jobID string) (*moderation.MediaJob, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.ConsumedAt != nil {
		return nil, moderation.ErrNotFound
	}
	now := time.Now().UTC()
	job.ConsumedAt = &now
	out := *job
	return &out, nil
}

func (s *MemStore) ReleaseJob(ctx context.Context, jobID string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return moderation.ErrNotFound
	}
	job.ConsumedAt = nil
	return nil
}

func (s *MemStore) ListExpired(ctx context.Context, now time.Time) ([]moderation.MediaJob, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	out := []moderation.MediaJob{}
	for _, job := range s.jobs {
		if job.ConsumedAt == nil && !job.ExpiresAt.IsZero() && job.ExpiresAt.Before(now) {
			out = append(out, *job)
		}
	}
	return out, nil
}
