package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tech-arch1tect/onetime/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const expiresAtIndex = "idx_one_time_tokens_expires_at"

// replacedColumns is every non-key column, so an upsert leaves nothing of the
// previous record behind.
var replacedColumns = []string{
	"log_id",
	"code_hash",
	"expires_at",
	"attempt_count",
	"last_attempt_at",
	"created_at",
}

// GormStore keeps records in a SQL table. SQL engines have no TTL index, so
// the expiry policy is applied by PurgeExpired.
type GormStore struct {
	db     *gorm.DB
	logger *logging.Service

	mu          sync.RWMutex
	expireAfter time.Duration
	ttlEnabled  bool
}

func NewGormStore(db *gorm.DB, logger *logging.Service) *GormStore {
	return &GormStore{
		db:     db,
		logger: logger,
	}
}

func (s *GormStore) FindByKey(ctx context.Context, key Key) (*Record, error) {
	var rec Record
	if err := s.db.WithContext(ctx).Where("id = ?", key.String()).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to find token record: %w", err)
	}
	return &rec, nil
}

// UpsertByKey is a single INSERT ... ON CONFLICT statement, so concurrent
// upserts for one key both succeed and the last one wins.
func (s *GormStore) UpsertByKey(ctx context.Context, key Key, rec *Record) error {
	rec.ID = key.String()

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(replacedColumns),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to upsert token record: %w", err)
	}
	return nil
}

func (s *GormStore) DeleteByKey(ctx context.Context, key Key) error {
	if err := s.db.WithContext(ctx).Where("id = ?", key.String()).Delete(&Record{}).Error; err != nil {
		return fmt.Errorf("failed to delete token record: %w", err)
	}
	return nil
}

func (s *GormStore) EnsureExpiryIndex(ctx context.Context, field string, after time.Duration) error {
	if field != ExpiresAtField {
		return fmt.Errorf("%w: %s", ErrUnsupportedExpiryField, field)
	}

	migrator := s.db.WithContext(ctx).Migrator()
	if !migrator.HasIndex(&Record{}, expiresAtIndex) {
		if err := migrator.CreateIndex(&Record{}, expiresAtIndex); err != nil {
			return fmt.Errorf("failed to create expiry index: %w", err)
		}
		if s.logger != nil {
			s.logger.Info("created token expiry index", zap.String("index", expiresAtIndex))
		}
	}

	s.mu.Lock()
	s.expireAfter = after
	s.ttlEnabled = true
	s.mu.Unlock()

	return nil
}

// IncrementAttempts updates the counter in SQL so concurrent validations
// cannot overwrite each other's increments.
func (s *GormStore) IncrementAttempts(ctx context.Context, key Key, at time.Time) (*Record, error) {
	var rec Record

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Record{}).
			Where("id = ?", key.String()).
			Updates(map[string]any{
				"attempt_count":   gorm.Expr("attempt_count + ?", 1),
				"last_attempt_at": at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		return tx.Where("id = ?", key.String()).First(&rec).Error
	})
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to record validation attempt: %w", err)
	}

	return &rec, nil
}

func (s *GormStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.RLock()
	enabled, after := s.ttlEnabled, s.expireAfter
	s.mu.RUnlock()

	if !enabled {
		return 0, nil
	}

	result := s.db.WithContext(ctx).Where("expires_at < ?", now.Add(-after)).Delete(&Record{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge expired token records: %w", result.Error)
	}
	return result.RowsAffected, nil
}
