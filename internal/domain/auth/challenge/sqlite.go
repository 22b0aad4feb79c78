package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	platformerrors "blog-server-go/internal/platform/errors"
	"blog-server-go/internal/platform/storage"
)

type sqliteStore struct {
	db  *gorm.DB
	cfg Config
	now func() time.Time
}

// NewSQLite builds a challenge store on the challenge_entries table.
func NewSQLite(db *gorm.DB, cfg Config) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{db: db, cfg: cfg, now: time.Now}, nil
}

func (s *sqliteStore) Issue(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("challenge key required")
	}
	entry := &storage.ChallengeEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: s.now().Add(s.cfg.ttl(ttl)),
	}
	// 过期行的清理与写入同一事务，任一失败都回滚并上报
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expires_at <= ?", s.now()).Delete(&storage.ChallengeEntry{}).Error; err != nil {
			return fmt.Errorf("sweep expired challenges: %w", err)
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "challenge_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
		}).Create(entry).Error
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "challenge.issue", "failed to store challenge", err)
	}
	return nil
}

func (s *sqliteStore) Verify(ctx context.Context, key, supplied string) error {
	const op = "challenge.verify"
	var outcome error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry storage.ChallengeEntry
		if err := tx.Where("challenge_key = ?", key).First(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = expired(op)
				return nil
			}
			return err
		}
		if !s.now().Before(entry.ExpiresAt) {
			outcome = expired(op)
			return tx.Where("challenge_key = ?", key).Delete(&storage.ChallengeEntry{}).Error
		}
		if !matches(entry.Value, supplied) {
			outcome = mismatch(op)
			if s.cfg.ConsumeOnMismatch {
				return tx.Where("challenge_key = ?", key).Delete(&storage.ChallengeEntry{}).Error
			}
			return nil
		}
		res := tx.Where("challenge_key = ? AND value = ?", key, entry.Value).Delete(&storage.ChallengeEntry{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			outcome = expired(op)
		}
		return nil
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, op, "failed to verify challenge", err)
	}
	return outcome
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}
