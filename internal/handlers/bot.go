package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/lunahealth/moodtrack-backend/internal/pkg/errors"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
	"github.com/lunahealth/moodtrack-backend/internal/services"
	"github.com/lunahealth/moodtrack-backend/internal/transport"
)

const (
	msgIntroduction = "Hi! I will help you track your mood and sleep. " +
		"Press /record to record how you feel, /graph to see your data, " +
		"/baseline to store your baseline values and /auto_baseline on to have that done daily."
	msgAlreadyRegistered  = "You are already registered. Press /record to record your mood."
	msgUnknownCommand     = "I do not know that command. Try /record, /graph, /baseline or /auto_baseline."
	msgApology            = "Something went wrong on my end. Please try again in a moment."
	msgAutoBaselineOn     = "Auto-baseline enabled; baseline records will be created daily at %s UTC."
	msgAutoBaselineOff    = "Auto-baseline disabled."
	msgAutoBaselineUsage  = "Please tell me what to do with auto-baseline: /auto_baseline on or /auto_baseline off"
	msgAutoBaselineNoTime = "Auto-baseline has no configured time; add one to the configuration first."
)

// BotUpdate is the normalized webhook payload: exactly one of Command or
// CallbackData is set per update.
type BotUpdate struct {
	UserID       int64    `json:"user_id" binding:"required"`
	Command      string   `json:"command"`
	Args         []string `json:"args"`
	CallbackData string   `json:"callback_data"`
}

// BotHandler receives webhook updates and routes them to the conversation
// services. Every user-visible reaction goes out through the sender; the HTTP
// response only acknowledges receipt.
type BotHandler struct {
	log          *logger.Logger
	users        services.UserService
	recorder     services.RecorderService
	grapher      services.GrapherService
	conversation services.ConversationService
	sender       transport.Sender
}

func NewBotHandler(
	users services.UserService,
	recorder services.RecorderService,
	grapher services.GrapherService,
	conversation services.ConversationService,
	sender transport.Sender,
	baseLog *logger.Logger,
) *BotHandler {
	return &BotHandler{
		log:          baseLog.With("handler", "BotHandler"),
		users:        users,
		recorder:     recorder,
		grapher:      grapher,
		conversation: conversation,
		sender:       sender,
	}
}

func (bh *BotHandler) Webhook(c *gin.Context) {
	var update BotUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_update", err)
		return
	}

	ctx := c.Request.Context()
	if err := bh.dispatch(ctx, &update); err != nil {
		bh.log.Error("update failed", "user_id", update.UserID, "command", update.Command, "error", err)
		if sendErr := bh.sender.SendText(ctx, update.UserID, msgApology); sendErr != nil {
			bh.log.Error("could not deliver apology", "user_id", update.UserID, "error", sendErr)
		}
		RespondError(c, http.StatusInternalServerError, "update_failed", err)
		return
	}
	RespondOK(c, gin.H{"status": "ok"})
}

func (bh *BotHandler) dispatch(ctx context.Context, update *BotUpdate) error {
	if update.CallbackData != "" {
		return bh.conversation.DispatchButton(ctx, update.UserID, update.CallbackData)
	}

	switch update.Command {
	case "/start":
		return bh.handleStart(ctx, update.UserID)
	case "/record":
		return bh.recorder.StartRecording(ctx, update.UserID)
	case "/offset":
		return bh.recorder.HandleOffset(ctx, update.UserID, update.Args)
	case "/baseline":
		return bh.recorder.HandleBaseline(ctx, update.UserID)
	case "/graph":
		return bh.grapher.StartGraphing(ctx, update.UserID)
	case "/auto_baseline":
		return bh.handleAutoBaseline(ctx, update.UserID, update.Args)
	default:
		bh.log.Debug("unknown command", "user_id", update.UserID, "command", update.Command)
		return bh.sender.SendText(ctx, update.UserID, msgUnknownCommand)
	}
}

func (bh *BotHandler) handleStart(ctx context.Context, userID int64) error {
	existing, err := bh.users.FindUser(ctx, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return bh.sender.SendText(ctx, userID, msgAlreadyRegistered)
	}
	if _, err := bh.users.CreateUser(ctx, userID); err != nil {
		return err
	}
	return bh.sender.SendText(ctx, userID, msgIntroduction)
}

// handleAutoBaseline flips the daily baseline job on or off. Precondition
// failures become user-facing messages; only infrastructure errors propagate.
func (bh *BotHandler) handleAutoBaseline(ctx context.Context, userID int64, args []string) error {
	if len(args) != 1 {
		return bh.sender.SendText(ctx, userID, msgAutoBaselineUsage)
	}

	var enable bool
	switch strings.ToLower(args[0]) {
	case "on":
		enable = true
	case "off":
		enable = false
	default:
		return bh.sender.SendText(ctx, userID, msgAutoBaselineUsage)
	}

	u, err := bh.users.ToggleAutoBaseline(ctx, userID, enable)
	if err != nil {
		var missing *pkgerrors.BaselinesNotDefinedError
		switch {
		case errors.As(err, &missing):
			text := fmt.Sprintf(
				"I cannot enable auto-baseline: the following metrics have no baseline yet: %s.",
				strings.Join(missing.Missing, ", "),
			)
			return bh.sender.SendText(ctx, userID, text)
		case errors.Is(err, pkgerrors.ErrAutoBaselineTimeNotSet):
			return bh.sender.SendText(ctx, userID, msgAutoBaselineNoTime)
		case errors.Is(err, pkgerrors.ErrNoActiveConversation):
			return bh.sender.SendText(ctx, userID, "You are not registered yet. Send /start to begin.")
		default:
			return err
		}
	}

	if enable {
		return bh.sender.SendText(ctx, userID, fmt.Sprintf(msgAutoBaselineOn, u.AutoBaselineTime().String()))
	}
	return bh.sender.SendText(ctx, userID, msgAutoBaselineOff)
}
