package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lunahealth/moodtrack-backend/internal/domain"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
)

// Row is the persisted shape of a finalized record. Data is the
// metric-name to value document.
type Row struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID    int64          `gorm:"index;column:user_id"`
	Data      datatypes.JSON `gorm:"column:data"`
	Timestamp time.Time      `gorm:"index;column:timestamp"`
	CreatedAt time.Time      `gorm:"not null"`
}

func (Row) TableName() string { return "records" }

type RecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, userID int64, data map[string]int, timestamp time.Time) (*domain.Record, error)
	GetLatestForUser(ctx context.Context, tx *gorm.DB, userID int64) (*domain.Record, error)
	FindForUser(ctx context.Context, tx *gorm.DB, userID int64) ([]*domain.Record, error)
	FindForTimeRange(ctx context.Context, tx *gorm.DB, userID int64, start, end time.Time) ([]*domain.Record, error)
	HasRecordForDay(ctx context.Context, tx *gorm.DB, userID int64, day time.Time) (bool, error)
}

type recordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	return &recordRepo{db: db, log: baseLog.With("repo", "RecordRepo")}
}

func (rr *recordRepo) Create(ctx context.Context, tx *gorm.DB, userID int64, data map[string]int, timestamp time.Time) (*domain.Record, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	doc, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal record data: %w", err)
	}
	row := &Row{
		ID:        uuid.New(),
		UserID:    userID,
		Data:      datatypes.JSON(doc),
		Timestamp: timestamp.UTC(),
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return toRecord(row)
}

func (rr *recordRepo) GetLatestForUser(ctx context.Context, tx *gorm.DB, userID int64) (*domain.Record, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var row Row
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toRecord(&row)
}

func (rr *recordRepo) FindForUser(ctx context.Context, tx *gorm.DB, userID int64) ([]*domain.Record, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var rows []Row
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toRecords(rows)
}

func (rr *recordRepo) FindForTimeRange(ctx context.Context, tx *gorm.DB, userID int64, start, end time.Time) ([]*domain.Record, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var rows []Row
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND timestamp >= ? AND timestamp <= ?", userID, start.UTC(), end.UTC()).
		Order("timestamp ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toRecords(rows)
}

// HasRecordForDay reports whether any record exists for the UTC calendar day
// containing the given instant. Used as the auto-baseline idempotence guard.
func (rr *recordRepo) HasRecordForDay(ctx context.Context, tx *gorm.DB, userID int64, day time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	day = day.UTC()
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&Row{}).
		Where("user_id = ? AND timestamp >= ? AND timestamp < ?", userID, dayStart, dayEnd).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func toRecord(row *Row) (*domain.Record, error) {
	rec := &domain.Record{
		ID:        row.ID,
		UserID:    row.UserID,
		Timestamp: row.Timestamp.UTC(),
	}
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &rec.Data); err != nil {
			return nil, fmt.Errorf("unmarshal record %s: %w", row.ID, err)
		}
	}
	return rec, nil
}

func toRecords(rows []Row) ([]*domain.Record, error) {
	records := make([]*domain.Record, 0, len(rows))
	for i := range rows {
		rec, err := toRecord(&rows[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
