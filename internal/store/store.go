// Package store persists request logs.
package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pandeptwidyaop/uatrack/internal/db/models"
	apperrors "github.com/pandeptwidyaop/uatrack/pkg/errors"
)

// Writer appends request logs.
type Writer interface {
	Save(ctx context.Context, log *models.RequestLog) error
}

// Reader queries request logs.
type Reader interface {
	// Recent returns logs ordered by timestamp, newest first.
	Recent(ctx context.Context, offset, limit int) ([]models.RequestLog, error)
	// Between returns logs with from <= timestamp <= to.
	Between(ctx context.Context, from, to time.Time) ([]models.RequestLog, error)
}

// Store is the full persistence port.
type Store interface {
	Writer
	Reader
}

// GormStore implements Store on top of gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store backed by db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Save inserts log. Each insert is its own statement, so concurrent saves
// never interleave within a record.
func (s *GormStore) Save(ctx context.Context, log *models.RequestLog) error {
	if s.db == nil {
		return apperrors.ErrStoreUnavailable
	}
	if err := s.db.WithContext(ctx).Create(log).Error; err != nil {
		return apperrors.Wrap(err, "failed to save request log")
	}
	return nil
}

// Recent returns a page of logs, newest first. Equal timestamps are ordered
// by id so pages stay stable between queries.
func (s *GormStore) Recent(ctx context.Context, offset, limit int) ([]models.RequestLog, error) {
	if s.db == nil {
		return nil, apperrors.ErrStoreUnavailable
	}
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: offset=%d limit=%d", apperrors.ErrInvalidPage, offset, limit)
	}

	var logs []models.RequestLog
	if err := s.db.WithContext(ctx).
		Order("timestamp DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, apperrors.Wrap(err, "failed to query recent request logs")
	}
	return logs, nil
}

// Between returns every log inside [from, to].
func (s *GormStore) Between(ctx context.Context, from, to time.Time) ([]models.RequestLog, error) {
	if s.db == nil {
		return nil, apperrors.ErrStoreUnavailable
	}

	var logs []models.RequestLog
	if err := s.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp <= ?", from.UTC(), to.UTC()).
		Order("timestamp DESC, id DESC").
		Find(&logs).Error; err != nil {
		return nil, apperrors.Wrap(err, "failed to query request logs")
	}
	return logs, nil
}

// Count returns the total number of stored logs.
func (s *GormStore) Count(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, apperrors.ErrStoreUnavailable
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.RequestLog{}).Count(&total).Error; err != nil {
		return 0, apperrors.Wrap(err, "failed to count request logs")
	}
	return total, nil
}
