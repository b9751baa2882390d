package store

import (
	"context"
	"errors"
	"time"

	"github.com/boardpost/gatekeeper/moderation"

	"gorm.io/gorm"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(
		&moderation.ModerationRecord{},
		&moderation.AdminAlert{},
		&moderation.MediaJob{},
	); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) CreateRecord(ctx context.Context, rec *moderation.ModerationRecord) error {
	rec.Version = 1
	return s.db.WithContext(ctx).Omit("Alerts").Create(rec).Error
}

func (s *GormStore) GetRecord(ctx context.Context, refID string) (*moderation.ModerationRecord, error) {
	var rec moderation.ModerationRecord
	err := s.db.WithContext(ctx).Preload("Alerts").Where("ref_id = ?", refID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, moderation.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateRecord writes the record back with an optimistic version check: the
// UPDATE is conditioned on the version we read, so a concurrent writer makes
// it match zero rows and the caller gets ErrConflict to re-read and retry.
func (s *GormStore) UpdateRecord(ctx context.Context, rec *moderation.ModerationRecord) error {
	readVersion := rec.Version
	rec.Version = readVersion + 1
	res := s.db.WithContext(ctx).
		Model(&moderation.ModerationRecord{}).
		Where("ref_id = ? AND version = ?", rec.RefID, readVersion).
		Select("Status", "Blocked", "BlockReason", "TextScore", "MediaScore",
			"TextAnalysis", "MediaAnalysis", "MediaURL", "Version", "UpdatedAt").
		Updates(rec)
	if res.Error != nil {
		rec.Version = readVersion
		return res.Error
	}
	if res.RowsAffected == 0 {
		rec.Version = readVersion
		var exists int64
		if err := s.db.WithContext(ctx).Model(&moderation.ModerationRecord{}).Where("ref_id = ?", rec.RefID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return moderation.ErrNotFound
		}
		return moderation.ErrConflict
	}
	return nil
}

func (s *GormStore) AddAlert(ctx context.Context, alert *moderation.AdminAlert) (bool, error) {
	err := s.db.WithContext(ctx).Create(alert).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (s *GormStore) ListAlerts(ctx context.Context, acknowledged *bool, limit int) ([]moderation.AdminAlert, error) {
	q := s.db.WithContext(ctx).Model(&moderation.AdminAlert{}).Order("id desc")
	if acknowledged != nil {
		q = q.Where("acknowledged = ?", *acknowledged)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []moderation.AdminAlert
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) AckAlert(ctx context.Context, alertID uint) error {
	res := s.db.WithContext(ctx).
		Model(&moderation.AdminAlert{}).
		Where("id = ?", alertID).
		Update("acknowledged", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return moderation.ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateJob(ctx context.Context, job *moderation.MediaJob) error {
	return s.db.WithContext(ctx).Create(job).Error
}

// ClaimJob marks the correlation entry consumed with a conditional UPDATE,
// so exactly one concurrent claimer wins even across processes.
func (s *GormStore) ClaimJob(ctx context.Context, jobID string) (*moderation.MediaJob, error) {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).
		Model(&moderation.MediaJob{}).
		Where("job_id = ? AND consumed_at IS NULL", jobID).
		Update("consumed_at", now)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, moderation.ErrNotFound
	}
	var job moderation.MediaJob
	if err := s.db.WithContext(ctx).Where("job_id = ?", jobID).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *GormStore) ReleaseJob(ctx context.Context, jobID string) error {
	res := s.db.WithContext(ctx).
		Model(&moderation.MediaJob{}).
		Where("job_id = ?", jobID).
		Update("consumed_at", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return moderation.ErrNotFound
	}
	return nil
}

func (s *GormStore) ListExpired(ctx context.Context, now time.Time) ([]moderation.MediaJob, error) {
	var out []moderation.MediaJob
	err := s.db.WithContext(ctx).
		Where("consumed_at IS NULL AND expires_at < ?", now).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
