package services

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/lunahealth/moodtrack-backend/internal/data/repos/record"
	"github.com/lunahealth/moodtrack-backend/internal/data/repos/user"
	"github.com/lunahealth/moodtrack-backend/internal/graph"
	pkgerrors "github.com/lunahealth/moodtrack-backend/internal/pkg/errors"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
	"github.com/lunahealth/moodtrack-backend/internal/session"
	"github.com/lunahealth/moodtrack-backend/internal/transport"
)

const msgGraphDialog = "How many months would you like me to graph?"

// GrapherService runs the graph flow: a time-range dialog, then one rendered
// chart per month sent back as a photo.
type GrapherService interface {
	StartGraphing(ctx context.Context, userID int64) error
	HandleRangeSelection(ctx context.Context, userID int64, payload string) error
}

type grapherService struct {
	log      *logger.Logger
	sessions session.Store
	users    user.UserRepo
	records  record.RecordRepo
	renderer *graph.Renderer
	sender   transport.Sender
	now      func() time.Time
}

func NewGrapherService(
	sessions session.Store,
	users user.UserRepo,
	records record.RecordRepo,
	renderer *graph.Renderer,
	sender transport.Sender,
	baseLog *logger.Logger,
) GrapherService {
	return &grapherService{
		log:      baseLog.With("service", "GrapherService"),
		sessions: sessions,
		users:    users,
		records:  records,
		renderer: renderer,
		sender:   sender,
		now:      time.Now,
	}
}

func (s *grapherService) StartGraphing(ctx context.Context, userID int64) error {
	buttons := []transport.Button{
		{Label: "Last month", Data: "1"},
		{Label: "Last three months", Data: "3"},
		{Label: "All time", Data: "12"},
	}
	if err := s.sender.SendKeyboard(ctx, userID, msgGraphDialog, buttons); err != nil {
		return err
	}
	return s.sessions.PutState(ctx, userID, session.StateGraphing)
}

// HandleRangeSelection consumes the time-range answer, renders one graph per
// month and clears the graphing state.
func (s *grapherService) HandleRangeSelection(ctx context.Context, userID int64, payload string) error {
	monthCount, err := strconv.Atoi(payload)
	if err != nil || monthCount < 1 {
		return pkgerrors.ErrMalformedPayload
	}

	u, err := s.users.Find(ctx, nil, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return pkgerrors.ErrNoActiveConversation
	}

	for _, month := range graph.MonthsForRange(monthCount, s.now()) {
		start, end := month.Bounds()
		records, err := s.records.FindForTimeRange(ctx, nil, userID, start, end)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			continue
		}
		path, err := s.renderer.RenderMonth(u, records, month)
		if err != nil {
			return err
		}
		if err := s.sendGraph(ctx, userID, path); err != nil {
			return err
		}
	}

	return s.sessions.DeleteState(ctx, userID)
}

func (s *grapherService) sendGraph(ctx context.Context, userID int64, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.sender.SendPhoto(ctx, userID, f, "graph.png")
}
