package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one key/value row.
type Entry struct {
	Key       string    `gorm:"column:entry_key;primaryKey;type:varchar(191)"`
	Value     string    `gorm:"column:entry_value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "kv_entries" }

const sqlChunkSize = 400

// SQLStore keeps entries in the kv_entries table.
type SQLStore struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewSQLStore(db *gorm.DB, log *zap.Logger) *SQLStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLStore{
		db:  db,
		log: log.Named("kvstore.sql"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *SQLStore) Backend() string { return BackendSQL }

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	var entry Entry
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kvstore get %q: %w", key, err)
	}
	return entry.Value, true, nil
}

func (s *SQLStore) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, part := range chunk(keys, sqlChunkSize) {
		var entries []Entry
		if err := s.db.WithContext(ctx).Where("entry_key IN ?", part).Find(&entries).Error; err != nil {
			return nil, fmt.Errorf("kvstore get many: %w", err)
		}
		for _, e := range entries {
			out[e.Key] = e.Value
		}
	}
	return out, nil
}

// Write applies the batch in one transaction.
func (s *SQLStore) Write(ctx context.Context, batch *Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	if err := batch.validate(); err != nil {
		return err
	}
	sets, deletes := batch.collapse()
	now := s.now()

	entries := make([]Entry, 0, len(sets))
	for key, value := range sets {
		entries = append(entries, Entry{Key: key, Value: value, UpdatedAt: now})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(entries) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "entry_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"entry_value", "updated_at"}),
			}).CreateInBatches(entries, 100).Error
			if err != nil {
				return err
			}
		}
		for _, part := range chunk(deletes, sqlChunkSize) {
			if err := tx.Where("entry_key IN ?", part).Delete(&Entry{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("kvstore write: %w", err)
	}
	s.log.Debug("batch written", zap.Int("sets", len(entries)), zap.Int("deletes", len(deletes)))
	return nil
}

// AutoMigrate creates kv_entries on databases without versioned migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Entry{})
}

var _ Store = (*SQLStore)(nil)
