package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/developlogy/sitebuilder/pkg/logger"
)

// FailureStore persists jobs that exhausted their retries.
type FailureStore interface {
	SaveFailed(ctx context.Context, f FailedJob) error
}

// FailedJobRecord is the failed_jobs table row.
type FailedJobRecord struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	JobType  string    `gorm:"size:255;not null;index"`
	Payload  string    `gorm:"type:text;not null"`
	Error    string    `gorm:"type:text"`
	Attempts int       `gorm:"not null;default:0"`
	FailedAt time.Time `gorm:"not null"`
}

func (FailedJobRecord) TableName() string { return "failed_jobs" }

// DBFailureStore writes failures to the failed_jobs table.
type DBFailureStore struct {
	db *gorm.DB
}

func NewDBFailureStore(db *gorm.DB) *DBFailureStore {
	return &DBFailureStore{db: db}
}

func (s *DBFailureStore) SaveFailed(ctx context.Context, f FailedJob) error {
	payload, err := json.Marshal(f.Job)
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return s.db.WithContext(ctx).Create(&FailedJobRecord{
		JobType:  f.Type,
		Payload:  string(payload),
		Error:    msg,
		Attempts: f.Attempts,
		FailedAt: f.FailedAt,
	}).Error
}

// recordFailure appends to the in-memory log and, when configured, the
// persistent store. A store error is logged; the memory log still has it.
func (m *Manager) recordFailure(ctx context.Context, f FailedJob) {
	m.mu.Lock()
	m.failed = append(m.failed, f)
	store := m.failures
	m.mu.Unlock()

	if store == nil {
		return
	}
	if err := store.SaveFailed(context.WithoutCancel(ctx), f); err != nil {
		logger.Error("queue: persist failed job", "type", f.Type, "error", err)
	}
}
