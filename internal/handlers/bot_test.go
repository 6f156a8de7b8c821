package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lunahealth/moodtrack-backend/internal/domain"
	pkgerrors "github.com/lunahealth/moodtrack-backend/internal/pkg/errors"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
	"github.com/lunahealth/moodtrack-backend/internal/transport"
)

type call struct {
	Name    string
	UserID  int64
	Payload string
	Args    []string
}

// fakeServices records which service operation an update was routed to.
type fakeServices struct {
	calls     []call
	toggleErr error
	user      *domain.User
}

func (f *fakeServices) note(name string, userID int64, payload string, args []string) {
	f.calls = append(f.calls, call{Name: name, UserID: userID, Payload: payload, Args: args})
}

func (f *fakeServices) FindUser(_ context.Context, userID int64) (*domain.User, error) {
	return f.user, nil
}

func (f *fakeServices) CreateUser(_ context.Context, userID int64) (*domain.User, error) {
	f.note("CreateUser", userID, "", nil)
	return f.user, nil
}

func (f *fakeServices) ToggleAutoBaseline(_ context.Context, userID int64, enable bool) (*domain.User, error) {
	f.note("ToggleAutoBaseline", userID, "", nil)
	if f.toggleErr != nil {
		return nil, f.toggleErr
	}
	f.user.AutoBaseline.Enabled = enable
	return f.user, nil
}

func (f *fakeServices) ScheduleAll(context.Context) error { return nil }

func (f *fakeServices) StartRecording(_ context.Context, userID int64) error {
	f.note("StartRecording", userID, "", nil)
	return nil
}

func (f *fakeServices) HandleAnswer(_ context.Context, userID int64, payload string) error {
	f.note("HandleAnswer", userID, payload, nil)
	return nil
}

func (f *fakeServices) HandleOffset(_ context.Context, userID int64, args []string) error {
	f.note("HandleOffset", userID, "", args)
	return nil
}

func (f *fakeServices) HandleBaseline(_ context.Context, userID int64) error {
	f.note("HandleBaseline", userID, "", nil)
	return nil
}

func (f *fakeServices) CreateBaselineRecord(context.Context, *domain.User) (*domain.Record, error) {
	return nil, nil
}

func (f *fakeServices) StartGraphing(_ context.Context, userID int64) error {
	f.note("StartGraphing", userID, "", nil)
	return nil
}

func (f *fakeServices) HandleRangeSelection(_ context.Context, userID int64, payload string) error {
	f.note("HandleRangeSelection", userID, payload, nil)
	return nil
}

func (f *fakeServices) DispatchButton(_ context.Context, userID int64, payload string) error {
	f.note("DispatchButton", userID, payload, nil)
	return nil
}

type captureSender struct {
	texts []string
}

func (c *captureSender) SendText(_ context.Context, _ int64, text string) error {
	c.texts = append(c.texts, text)
	return nil
}

func (c *captureSender) SendKeyboard(context.Context, int64, string, []transport.Button) error {
	return nil
}

func (c *captureSender) SendPhoto(context.Context, int64, io.Reader, string) error { return nil }

func setup(t *testing.T, svc *fakeServices, sender *captureSender) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := NewBotHandler(svc, svc, svc, svc, sender, logger.NewNop())
	router := gin.New()
	router.POST("/webhook", handler.Webhook)
	return router
}

func postUpdate(t *testing.T, router *gin.Engine, update BotUpdate) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(update)
	if err != nil {
		t.Fatalf("marshal update: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func enabledTime() *domain.TimeOfDay {
	return &domain.TimeOfDay{Hour: 21, Minute: 0}
}

func TestWebhookRoutesCommands(t *testing.T) {
	cases := []struct {
		update BotUpdate
		want   call
	}{
		{BotUpdate{UserID: 7, Command: "/record"}, call{Name: "StartRecording", UserID: 7}},
		{BotUpdate{UserID: 7, Command: "/offset", Args: []string{"1"}}, call{Name: "HandleOffset", UserID: 7, Args: []string{"1"}}},
		{BotUpdate{UserID: 7, Command: "/baseline"}, call{Name: "HandleBaseline", UserID: 7}},
		{BotUpdate{UserID: 7, Command: "/graph"}, call{Name: "StartGraphing", UserID: 7}},
		{BotUpdate{UserID: 7, CallbackData: "mood:3"}, call{Name: "DispatchButton", UserID: 7, Payload: "mood:3"}},
	}
	for _, tc := range cases {
		svc := &fakeServices{}
		router := setup(t, svc, &captureSender{})

		w := postUpdate(t, router, tc.update)
		if w.Code != http.StatusOK {
			t.Fatalf("update %+v: status %d", tc.update, w.Code)
		}
		if len(svc.calls) != 1 {
			t.Fatalf("update %+v: expected one call, got %v", tc.update, svc.calls)
		}
		got := svc.calls[0]
		if got.Name != tc.want.Name || got.UserID != tc.want.UserID || got.Payload != tc.want.Payload {
			t.Fatalf("update %+v routed to %+v, want %+v", tc.update, got, tc.want)
		}
	}
}

func TestWebhookStart(t *testing.T) {
	t.Run("new user", func(t *testing.T) {
		svc := &fakeServices{}
		sender := &captureSender{}
		router := setup(t, svc, sender)

		w := postUpdate(t, router, BotUpdate{UserID: 7, Command: "/start"})
		if w.Code != http.StatusOK {
			t.Fatalf("status %d", w.Code)
		}
		if len(svc.calls) != 1 || svc.calls[0].Name != "CreateUser" {
			t.Fatalf("expected CreateUser, got %v", svc.calls)
		}
		if len(sender.texts) != 1 || sender.texts[0] != msgIntroduction {
			t.Fatalf("expected introduction, got %v", sender.texts)
		}
	})

	t.Run("already registered", func(t *testing.T) {
		svc := &fakeServices{user: &domain.User{UserID: 7}}
		sender := &captureSender{}
		router := setup(t, svc, sender)

		w := postUpdate(t, router, BotUpdate{UserID: 7, Command: "/start"})
		if w.Code != http.StatusOK {
			t.Fatalf("status %d", w.Code)
		}
		if len(svc.calls) != 0 {
			t.Fatalf("no service mutation expected, got %v", svc.calls)
		}
		if len(sender.texts) != 1 || sender.texts[0] != msgAlreadyRegistered {
			t.Fatalf("expected already-registered hint, got %v", sender.texts)
		}
	})
}

func TestWebhookRejectsBadBody(t *testing.T) {
	router := setup(t, &fakeServices{}, &captureSender{})

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestWebhookUnknownCommand(t *testing.T) {
	sender := &captureSender{}
	router := setup(t, &fakeServices{}, sender)

	w := postUpdate(t, router, BotUpdate{UserID: 7, Command: "/dance"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if len(sender.texts) != 1 || sender.texts[0] != msgUnknownCommand {
		t.Fatalf("expected unknown-command hint, got %v", sender.texts)
	}
}

func TestAutoBaselineToggleMessages(t *testing.T) {
	t.Run("enable", func(t *testing.T) {
		svc := &fakeServices{user: &domain.User{UserID: 7, AutoBaseline: domain.AutoBaselineConfig{Time: enabledTime()}}}
		sender := &captureSender{}
		router := setup(t, svc, sender)

		w := postUpdate(t, router, BotUpdate{UserID: 7, Command: "/auto_baseline", Args: []string{"on"}})
		if w.Code != http.StatusOK {
			t.Fatalf("status %d", w.Code)
		}
		if len(sender.texts) != 1 || !strings.Contains(sender.texts[0], "21:00") {
			t.Fatalf("expected confirmation with time, got %v", sender.texts)
		}
	})

	t.Run("disable", func(t *testing.T) {
		svc := &fakeServices{user: &domain.User{UserID: 7, AutoBaseline: domain.AutoBaselineConfig{Time: enabledTime()}}}
		sender := &captureSender{}
		router := setup(t, svc, sender)

		w := postUpdate(t, router, BotUpdate{UserID: 7, Command: "/auto_baseline", Args: []string{"off"}})
		if w.Code != http.StatusOK {
			t.Fatalf("status %d", w.Code)
		}
		if len(sender.texts) != 1 || sender.texts[0] != msgAutoBaselineOff {
			t.Fatalf("expected disable confirmation, got %v", sender.texts)
		}
	})

	t.Run("usage", func(t *testing.T) {
		sender := &captureSender{}
		router := setup(t, &fakeServices{}, sender)

		w := postUpdate(t, router, BotUpdate{UserID: 7, Command: "/auto_baseline"})
		if w.Code != http.StatusOK {
			t.Fatalf("status %d", w.Code)
		}
		if len(sender.texts) != 1 || sender.texts[0] != msgAutoBaselineUsage {
			t.Fatalf("expected usage hint, got %v", sender.texts)
		}
	})

	t.Run("missing baselines", func(t *testing.T) {
		svc := &fakeServices{
			user:      &domain.User{UserID: 7},
			toggleErr: &pkgerrors.BaselinesNotDefinedError{Missing: []string{"sleep"}},
		}
		sender := &captureSender{}
		router := setup(t, svc, sender)

		w := postUpdate(t, router, BotUpdate{UserID: 7, Command: "/auto_baseline", Args: []string{"on"}})
		if w.Code != http.StatusOK {
			t.Fatalf("status %d", w.Code)
		}
		if len(sender.texts) != 1 || !strings.Contains(sender.texts[0], "sleep") {
			t.Fatalf("expected message naming missing metrics, got %v", sender.texts)
		}
	})
}
