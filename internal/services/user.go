package services

import (
	"context"

	"github.com/lunahealth/moodtrack-backend/internal/config"
	"github.com/lunahealth/moodtrack-backend/internal/data/repos/user"
	"github.com/lunahealth/moodtrack-backend/internal/domain"
	pkgerrors "github.com/lunahealth/moodtrack-backend/internal/pkg/errors"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
)

// UserService manages user registration and the auto-baseline toggle. New
// users start from the configured default metric and notification set.
type UserService interface {
	FindUser(ctx context.Context, userID int64) (*domain.User, error)
	CreateUser(ctx context.Context, userID int64) (*domain.User, error)
	ToggleAutoBaseline(ctx context.Context, userID int64, enable bool) (*domain.User, error)
	ScheduleAll(ctx context.Context) error
}

type userService struct {
	log      *logger.Logger
	cfg      *config.Config
	users    user.UserRepo
	notifier NotifierService
}

func NewUserService(
	cfg *config.Config,
	users user.UserRepo,
	notifier NotifierService,
	baseLog *logger.Logger,
) UserService {
	return &userService{
		log:      baseLog.With("service", "UserService"),
		cfg:      cfg,
		users:    users,
		notifier: notifier,
	}
}

func (s *userService) FindUser(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.Find(ctx, nil, userID)
}

// CreateUser registers a user with the configured defaults and schedules
// their recurring jobs. Calling it for an existing user is a no-op that
// returns the stored user unchanged.
func (s *userService) CreateUser(ctx context.Context, userID int64) (*domain.User, error) {
	existing, err := s.users.Find(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	u := s.cfg.DefaultUser(userID)
	if err := s.users.Create(ctx, nil, u); err != nil {
		return nil, err
	}
	s.log.Info("created user", "user_id", userID)
	s.scheduleJobs(u)
	return u, nil
}

// ToggleAutoBaseline flips the user's auto-baseline setting. Enabling
// requires every metric to carry a baseline and a configured time; the job is
// scheduled before the setting is persisted so a persisted "enabled" always
// has a live job behind it. Disabling cancels the job first for the same
// reason, inverted.
func (s *userService) ToggleAutoBaseline(ctx context.Context, userID int64, enable bool) (*domain.User, error) {
	u, err := s.users.Find(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, pkgerrors.ErrNoActiveConversation
	}

	if !enable {
		s.notifier.RemoveAutoBaseline(userID)
		u.AutoBaseline.Enabled = false
		if err := s.users.Update(ctx, nil, u); err != nil {
			return nil, err
		}
		s.log.Info("auto-baseline disabled", "user_id", userID)
		return u, nil
	}

	if !u.HasBaselinesDefined() {
		return nil, &pkgerrors.BaselinesNotDefinedError{Missing: u.MetricsWithoutBaseline()}
	}
	if u.AutoBaselineTime() == nil {
		return nil, pkgerrors.ErrAutoBaselineTimeNotSet
	}

	u.AutoBaseline.Enabled = true
	if err := s.notifier.CreateAutoBaseline(u); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, nil, u); err != nil {
		return nil, err
	}
	s.log.Info("auto-baseline enabled", "user_id", userID, "time", u.AutoBaselineTime().String())
	return u, nil
}

// ScheduleAll restores every user's recurring jobs. Run once at startup;
// scheduled jobs do not survive a restart.
func (s *userService) ScheduleAll(ctx context.Context) error {
	users, err := s.users.FindAll(ctx, nil)
	if err != nil {
		return err
	}
	for _, u := range users {
		s.scheduleJobs(u)
	}
	s.log.Info("restored scheduled jobs", "users", len(users))
	return nil
}

func (s *userService) scheduleJobs(u *domain.User) {
	for _, n := range u.Notifications {
		s.notifier.CreateNotification(u.UserID, n)
	}
	if u.AutoBaselineEnabled() {
		if err := s.notifier.CreateAutoBaseline(u); err != nil {
			s.log.Warn("could not schedule auto-baseline", "user_id", u.UserID, "error", err)
		}
	}
}
