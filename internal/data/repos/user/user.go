package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lunahealth/moodtrack-backend/internal/domain"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
)

// Row is the persisted shape of a user. The metric, notification and
// auto-baseline configuration are stored as JSON documents; metrics and their
// values are JSON arrays so ordering survives round-trips.
type Row struct {
	UserID        int64          `gorm:"primaryKey;column:user_id"`
	Metrics       datatypes.JSON `gorm:"column:metrics"`
	Notifications datatypes.JSON `gorm:"column:notifications"`
	AutoBaseline  datatypes.JSON `gorm:"column:auto_baseline"`
	CreatedAt     time.Time      `gorm:"not null"`
	UpdatedAt     time.Time      `gorm:"not null"`
}

func (Row) TableName() string { return "users" }

type UserRepo interface {
	Find(ctx context.Context, tx *gorm.DB, userID int64) (*domain.User, error)
	Create(ctx context.Context, tx *gorm.DB, user *domain.User) error
	Update(ctx context.Context, tx *gorm.DB, user *domain.User) error
	FindAll(ctx context.Context, tx *gorm.DB) ([]*domain.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (ur *userRepo) Find(ctx context.Context, tx *gorm.DB, userID int64) (*domain.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var row Row
	err := transaction.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toUser(&row)
}

func (ur *userRepo) Create(ctx context.Context, tx *gorm.DB, user *domain.User) error {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	row, err := toRow(user)
	if err != nil {
		return err
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (ur *userRepo) Update(ctx context.Context, tx *gorm.DB, user *domain.User) error {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	row, err := toRow(user)
	if err != nil {
		return err
	}
	return transaction.WithContext(ctx).
		Model(&Row{}).
		Where("user_id = ?", user.UserID).
		Updates(map[string]any{
			"metrics":       row.Metrics,
			"notifications": row.Notifications,
			"auto_baseline": row.AutoBaseline,
		}).Error
}

func (ur *userRepo) FindAll(ctx context.Context, tx *gorm.DB) ([]*domain.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var rows []Row
	if err := transaction.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]*domain.User, 0, len(rows))
	for i := range rows {
		u, err := toUser(&rows[i])
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func toRow(user *domain.User) (*Row, error) {
	metrics, err := json.Marshal(user.Metrics)
	if err != nil {
		return nil, fmt.Errorf("marshal metrics: %w", err)
	}
	notifications, err := json.Marshal(user.Notifications)
	if err != nil {
		return nil, fmt.Errorf("marshal notifications: %w", err)
	}
	autoBaseline, err := json.Marshal(user.AutoBaseline)
	if err != nil {
		return nil, fmt.Errorf("marshal auto-baseline config: %w", err)
	}
	return &Row{
		UserID:        user.UserID,
		Metrics:       datatypes.JSON(metrics),
		Notifications: datatypes.JSON(notifications),
		AutoBaseline:  datatypes.JSON(autoBaseline),
	}, nil
}

func toUser(row *Row) (*domain.User, error) {
	u := &domain.User{UserID: row.UserID}
	if len(row.Metrics) > 0 {
		if err := json.Unmarshal(row.Metrics, &u.Metrics); err != nil {
			return nil, fmt.Errorf("unmarshal metrics for user %d: %w", row.UserID, err)
		}
	}
	if len(row.Notifications) > 0 {
		if err := json.Unmarshal(row.Notifications, &u.Notifications); err != nil {
			return nil, fmt.Errorf("unmarshal notifications for user %d: %w", row.UserID, err)
		}
	}
	if len(row.AutoBaseline) > 0 {
		if err := json.Unmarshal(row.AutoBaseline, &u.AutoBaseline); err != nil {
			return nil, fmt.Errorf("unmarshal auto-baseline config for user %d: %w", row.UserID, err)
		}
	}
	return u, nil
}
