package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lunahealth/moodtrack-backend/internal/data/repos/record"
	"github.com/lunahealth/moodtrack-backend/internal/data/repos/user"
	"github.com/lunahealth/moodtrack-backend/internal/domain"
	pkgerrors "github.com/lunahealth/moodtrack-backend/internal/pkg/errors"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
	"github.com/lunahealth/moodtrack-backend/internal/session"
	"github.com/lunahealth/moodtrack-backend/internal/transport"
)

const (
	msgCreatingRecord  = "Creating a new record for you ..."
	msgRecordComplete  = "Record completed. Thank you!"
	msgNotRegistered   = "You are not registered yet. Send /start to begin."
	msgOffsetWrongMode = "You can only use /offset while recording a record. Press /record to create a new record."
	msgOffsetUsage     = "Please provide an offset in days like this: /offset 1"
	msgOffsetSuccess   = "The timestamp of your record has been updated to %s."
	msgBaselinesNotSet = "You have not defined baselines for all metrics yet."
)

// RecorderService drives the record flow: creating the in-flight record,
// prompting metric by metric, ingesting button answers and finalizing the
// record into persistence.
type RecorderService interface {
	StartRecording(ctx context.Context, userID int64) error
	HandleAnswer(ctx context.Context, userID int64, payload string) error
	HandleOffset(ctx context.Context, userID int64, args []string) error
	HandleBaseline(ctx context.Context, userID int64) error
	CreateBaselineRecord(ctx context.Context, u *domain.User) (*domain.Record, error)
}

type recorderService struct {
	log      *logger.Logger
	sessions session.Store
	users    user.UserRepo
	records  record.RecordRepo
	sender   transport.Sender
}

func NewRecorderService(
	sessions session.Store,
	users user.UserRepo,
	records record.RecordRepo,
	sender transport.Sender,
	baseLog *logger.Logger,
) RecorderService {
	return &recorderService{
		log:      baseLog.With("service", "RecorderService"),
		sessions: sessions,
		users:    users,
		records:  records,
		sender:   sender,
	}
}

// StartRecording handles the /record command. With no live in-flight record
// it creates one and immediately continues to the first prompt; starting over
// while one exists just re-prompts for the next unanswered metric.
func (s *recorderService) StartRecording(ctx context.Context, userID int64) error {
	rec, err := s.sessions.GetRecord(ctx, userID)
	if err != nil {
		return err
	}
	if rec == nil {
		u, err := s.users.Find(ctx, nil, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return s.sender.SendText(ctx, userID, msgNotRegistered)
		}
		if err := s.sender.SendText(ctx, userID, msgCreatingRecord); err != nil {
			return err
		}
		rec, err = domain.NewTempRecord(u, time.Now().UTC())
		if err != nil {
			return err
		}
		if err := s.sessions.PutRecord(ctx, userID, rec); err != nil {
			return err
		}
		if err := s.sessions.PutState(ctx, userID, session.StateRecording); err != nil {
			return err
		}
		s.log.Info("created temporary record", "user_id", userID, "metrics", len(rec.Metrics))
	}
	return s.promptNext(ctx, userID, rec)
}

func (s *recorderService) promptNext(ctx context.Context, userID int64, rec *domain.TempRecord) error {
	metric, err := rec.NextUnansweredMetric()
	if err != nil {
		return err
	}
	buttons := make([]transport.Button, 0, len(metric.Values))
	for _, v := range metric.Values {
		buttons = append(buttons, transport.Button{
			Label: v.Label,
			Data:  fmt.Sprintf("%s:%d", metric.Name, v.Score),
		})
	}
	return s.sender.SendKeyboard(ctx, userID, metric.UserPrompt, buttons)
}

// HandleAnswer ingests one button answer. When the answer completes the
// record it is persisted, the session entries are cleared and the user gets a
// completion message; otherwise the next prompt goes out.
func (s *recorderService) HandleAnswer(ctx context.Context, userID int64, payload string) error {
	rec, err := s.sessions.GetRecord(ctx, userID)
	if err != nil {
		return err
	}
	if rec == nil {
		return pkgerrors.ErrNoActiveConversation
	}

	metricName, value, err := parseAnswer(payload)
	if err != nil {
		return err
	}
	if err := rec.UpdateData(metricName, value); err != nil {
		return err
	}
	s.log.Info("recorded answer", "user_id", userID, "metric", metricName, "value", value)

	if err := s.sessions.PutRecord(ctx, userID, rec); err != nil {
		return err
	}

	if !rec.IsComplete() {
		return s.promptNext(ctx, userID, rec)
	}

	if _, err := s.records.Create(ctx, nil, userID, rec.DataMap(), rec.Timestamp); err != nil {
		return err
	}
	if err := s.sessions.DeleteRecord(ctx, userID); err != nil {
		return err
	}
	if err := s.sessions.DeleteState(ctx, userID); err != nil {
		return err
	}
	s.log.Info("persisted record", "user_id", userID)
	return s.sender.SendText(ctx, userID, msgRecordComplete)
}

// parseAnswer splits a button payload of the form "metric:value".
func parseAnswer(payload string) (string, int, error) {
	name, rawValue, found := strings.Cut(payload, ":")
	if !found || name == "" {
		return "", 0, pkgerrors.ErrMalformedPayload
	}
	value, err := strconv.Atoi(rawValue)
	if err != nil {
		return "", 0, pkgerrors.ErrMalformedPayload
	}
	return name, value, nil
}

// HandleOffset implements the /offset correction command, valid only while a
// record is in flight.
func (s *recorderService) HandleOffset(ctx context.Context, userID int64, args []string) error {
	state, ok, err := s.sessions.GetState(ctx, userID)
	if err != nil {
		return err
	}
	if !ok || state != session.StateRecording {
		return s.sender.SendText(ctx, userID, msgOffsetWrongMode)
	}
	if len(args) != 1 {
		return s.sender.SendText(ctx, userID, msgOffsetUsage)
	}
	days, err := strconv.Atoi(args[0])
	if err != nil {
		return s.sender.SendText(ctx, userID, msgOffsetUsage)
	}

	rec, err := s.sessions.GetRecord(ctx, userID)
	if err != nil {
		return err
	}
	if rec == nil {
		// state outlived the record; treat as no known conversation
		return pkgerrors.ErrNoActiveConversation
	}
	newTimestamp := rec.ApplyTimestampOffset(days)
	if err := s.sessions.PutRecord(ctx, userID, rec); err != nil {
		return err
	}
	s.log.Info("offset record timestamp", "user_id", userID, "days", days)
	return s.sender.SendText(ctx, userID, fmt.Sprintf(msgOffsetSuccess, newTimestamp.Format("2006-01-02")))
}

// HandleBaseline implements the /baseline command: create a record from the
// user's baseline values right now.
func (s *recorderService) HandleBaseline(ctx context.Context, userID int64) error {
	u, err := s.users.Find(ctx, nil, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return s.sender.SendText(ctx, userID, msgNotRegistered)
	}
	if !u.HasBaselinesDefined() {
		s.log.Warn("baseline requested without full baseline config", "user_id", userID)
		return s.sender.SendText(ctx, userID, msgBaselinesNotSet)
	}
	rec, err := s.CreateBaselineRecord(ctx, u)
	if err != nil {
		return err
	}
	return s.sender.SendText(ctx, userID, baselineSuccessMessage(rec, u.Metrics))
}

// CreateBaselineRecord persists a record synthesized from the user's
// configured baseline values. Callers guard the baseline preconditions.
func (s *recorderService) CreateBaselineRecord(ctx context.Context, u *domain.User) (*domain.Record, error) {
	data := u.BaselineData()
	s.log.Info("creating baseline record", "user_id", u.UserID)
	return s.records.Create(ctx, nil, u.UserID, data, time.Now().UTC())
}

func baselineSuccessMessage(rec *domain.Record, metrics []domain.Metric) string {
	parts := make([]string, 0, len(metrics))
	for _, m := range metrics {
		if v, ok := rec.ValueOf(m.Name); ok {
			parts = append(parts, fmt.Sprintf("%s = %d", capitalize(m.Name), v))
		}
	}
	return fmt.Sprintf("Baseline record successfully created: %s.", strings.Join(parts, ", "))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
