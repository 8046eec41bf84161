package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// runRecord is the GORM row model. The full log is stored as a JSON payload;
// the indexed columns exist for listing and ad-hoc queries.
type runRecord struct {
	RunID     string `gorm:"primaryKey;size:64"`
	Workflow  string `gorm:"index"`
	Success   bool
	StartedAt time.Time `gorm:"index"`
	Payload   []byte
}

func (runRecord) TableName() string { return "run_logs" }

// GormStore persists run logs in SQLite through GORM, using the pure-Go
// driver so the module stays cgo-free.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens (and migrates) the SQLite database at path.
func NewGormStore(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open run log database: %w", err)
	}
	if err := db.AutoMigrate(&runRecord{}); err != nil {
		return nil, fmt.Errorf("migrate run log schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Save(ctx context.Context, log *RunLog) error {
	if log.RunID == "" {
		return fmt.Errorf("run log has no run ID")
	}
	payload, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encode run log: %w", err)
	}
	rec := runRecord{
		RunID:     log.RunID,
		Workflow:  log.Workflow,
		Success:   log.Success,
		StartedAt: log.StartedAt,
		Payload:   payload,
	}
	// A duplicate primary key violates write-once.
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, log.RunID)
		}
		return fmt.Errorf("save run log: %w", err)
	}
	return nil
}

func (s *GormStore) Load(ctx context.Context, id string) (*RunLog, error) {
	var rec runRecord
	err := s.db.WithContext(ctx).First(&rec, "run_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load run log: %w", err)
	}
	var log RunLog
	if err := json.Unmarshal(rec.Payload, &log); err != nil {
		return nil, fmt.Errorf("decode run log %s: %w", id, err)
	}
	return &log, nil
}

func (s *GormStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&runRecord{}).
		Order("started_at DESC").
		Pluck("run_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list run logs: %w", err)
	}
	return ids, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isUniqueViolation matches the sqlite driver's constraint error text, which
// gorm does not always translate to ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

var _ Store = (*GormStore)(nil)
