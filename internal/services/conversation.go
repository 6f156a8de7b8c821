package services

import (
	"context"
	"errors"

	pkgerrors "github.com/lunahealth/moodtrack-backend/internal/pkg/errors"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
	"github.com/lunahealth/moodtrack-backend/internal/session"
	"github.com/lunahealth/moodtrack-backend/internal/transport"
)

const (
	msgNoKnownState = "I am not sure what this button press relates to. Press /record to record your mood or /graph to graph your data."
	msgBadAnswer    = "I could not make sense of that answer. Press /record to continue."
	msgStaleMetric  = "That answer does not match your current record. Press /record to continue."
)

// ConversationService routes button presses. A single button handler receives
// every press, and only the per-user conversation state says which flow it
// belongs to.
type ConversationService interface {
	DispatchButton(ctx context.Context, userID int64, payload string) error
}

type conversationService struct {
	log      *logger.Logger
	sessions session.Store
	recorder RecorderService
	grapher  GrapherService
	sender   transport.Sender
}

func NewConversationService(
	sessions session.Store,
	recorder RecorderService,
	grapher GrapherService,
	sender transport.Sender,
	baseLog *logger.Logger,
) ConversationService {
	return &conversationService{
		log:      baseLog.With("service", "ConversationService"),
		sessions: sessions,
		recorder: recorder,
		grapher:  grapher,
		sender:   sender,
	}
}

// DispatchButton never fails on unknown or expired state: a stray press after
// a long pause is a normal condition and degrades to the guidance message.
// Validation failures inside the flows become user-facing text here;
// infrastructure failures propagate to the top-level handler.
func (s *conversationService) DispatchButton(ctx context.Context, userID int64, payload string) error {
	state, ok, err := s.sessions.GetState(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Debug("button press without conversation state", "user_id", userID)
		return s.sender.SendText(ctx, userID, msgNoKnownState)
	}

	switch state {
	case session.StateRecording:
		return s.translate(ctx, userID, s.recorder.HandleAnswer(ctx, userID, payload))
	case session.StateGraphing:
		return s.translate(ctx, userID, s.grapher.HandleRangeSelection(ctx, userID, payload))
	default:
		s.log.Warn("unknown conversation state", "user_id", userID, "state", state)
		return s.sender.SendText(ctx, userID, msgNoKnownState)
	}
}

func (s *conversationService) translate(ctx context.Context, userID int64, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pkgerrors.ErrNoActiveConversation):
		return s.sender.SendText(ctx, userID, msgNoKnownState)
	case errors.Is(err, pkgerrors.ErrMalformedPayload):
		return s.sender.SendText(ctx, userID, msgBadAnswer)
	default:
		var unknown *pkgerrors.UnknownMetricError
		if errors.As(err, &unknown) {
			s.log.Warn("answer for stale metric", "user_id", userID, "metric", unknown.Metric)
			return s.sender.SendText(ctx, userID, msgStaleMetric)
		}
		return err
	}
}
