package services

import (
	"context"
	"fmt"
	"time"

	"github.com/lunahealth/moodtrack-backend/internal/data/repos/record"
	"github.com/lunahealth/moodtrack-backend/internal/data/repos/user"
	"github.com/lunahealth/moodtrack-backend/internal/domain"
	pkgerrors "github.com/lunahealth/moodtrack-backend/internal/pkg/errors"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
	"github.com/lunahealth/moodtrack-backend/internal/scheduler"
	"github.com/lunahealth/moodtrack-backend/internal/transport"
)

const (
	msgDefaultReminder    = "Hi! It's time to record your mood :)"
	msgBaselineAutoCreate = "A baseline record has been created for you."
)

// NotifierService owns the recurring per-user jobs: daily reminder messages
// and the daily auto-baseline check.
type NotifierService interface {
	CreateNotification(userID int64, n domain.Notification)
	CreateAutoBaseline(u *domain.User) error
	RemoveAutoBaseline(userID int64)
	RunAutoBaseline(ctx context.Context, userID int64) error
}

type notifierService struct {
	log      *logger.Logger
	queue    *scheduler.Queue
	users    user.UserRepo
	records  record.RecordRepo
	recorder RecorderService
	sender   transport.Sender
	now      func() time.Time
}

func NewNotifierService(
	queue *scheduler.Queue,
	users user.UserRepo,
	records record.RecordRepo,
	recorder RecorderService,
	sender transport.Sender,
	baseLog *logger.Logger,
) NotifierService {
	return &notifierService{
		log:      baseLog.With("service", "NotifierService"),
		queue:    queue,
		users:    users,
		records:  records,
		recorder: recorder,
		sender:   sender,
		now:      time.Now,
	}
}

func reminderJobID(userID int64, at domain.TimeOfDay) string {
	return fmt.Sprintf("reminder_%d_%s", userID, at.String())
}

func autoBaselineJobID(userID int64) string {
	return fmt.Sprintf("auto_baseline_%d", userID)
}

// CreateNotification schedules a daily reminder message for the user. An
// empty notification text falls back to the default reminder.
func (s *notifierService) CreateNotification(userID int64, n domain.Notification) {
	text := n.Text
	if text == "" {
		text = msgDefaultReminder
	}
	s.queue.ScheduleDaily(reminderJobID(userID, n.Time), n.Time, func(ctx context.Context) error {
		return s.sender.SendText(ctx, userID, text)
	})
}

// CreateAutoBaseline schedules the user's daily auto-baseline job at their
// configured time. Scheduling again for the same user replaces the job.
func (s *notifierService) CreateAutoBaseline(u *domain.User) error {
	at := u.AutoBaselineTime()
	if at == nil {
		return pkgerrors.ErrAutoBaselineTimeNotSet
	}
	userID := u.UserID
	s.queue.ScheduleDaily(autoBaselineJobID(userID), *at, func(ctx context.Context) error {
		return s.RunAutoBaseline(ctx, userID)
	})
	return nil
}

// RemoveAutoBaseline cancels the user's auto-baseline job, if any.
func (s *notifierService) RemoveAutoBaseline(userID int64) {
	s.queue.CancelJob(autoBaselineJobID(userID))
}

// RunAutoBaseline is one tick of the auto-baseline job. It re-reads the user
// so a toggle or a metric change between ticks is honored, and it is
// idempotent per UTC calendar day: if any record already exists for today the
// tick does nothing.
func (s *notifierService) RunAutoBaseline(ctx context.Context, userID int64) error {
	u, err := s.users.Find(ctx, nil, userID)
	if err != nil {
		return err
	}
	if u == nil || !u.AutoBaselineEnabled() {
		s.log.Info("auto-baseline tick skipped", "user_id", userID)
		return nil
	}

	exists, err := s.records.HasRecordForDay(ctx, nil, userID, s.now().UTC())
	if err != nil {
		return err
	}
	if exists {
		s.log.Info("auto-baseline skipped, record exists for today", "user_id", userID)
		return nil
	}

	if _, err := s.recorder.CreateBaselineRecord(ctx, u); err != nil {
		return err
	}
	return s.sender.SendText(ctx, userID, msgBaselineAutoCreate)
}
