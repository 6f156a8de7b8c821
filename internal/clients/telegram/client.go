package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lunahealth/moodtrack-backend/internal/pkg/envutil"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
	"github.com/lunahealth/moodtrack-backend/internal/transport"
)

// Client talks to the Telegram Bot API over plain HTTP. It implements
// transport.Sender; retry policy lives in the transport wrapper, not here.
type Client interface {
	transport.Sender
}

type Config struct {
	Token   string
	BaseURL string
	Timeout time.Duration
}

func ConfigFromEnv() Config {
	timeoutSec := envutil.Int("TELEGRAM_TIMEOUT_SECONDS", 30)
	return Config{
		Token:   strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		BaseURL: strings.TrimSpace(os.Getenv("TELEGRAM_BASE_URL")),
		Timeout: time.Duration(timeoutSec) * time.Second,
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("missing TELEGRAM_BOT_TOKEN")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.telegram.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &client{
		log:  log.With("client", "Telegram"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

type apiError struct {
	Status      int
	Description string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("telegram api error (%d): %s", e.Status, e.Description)
}

func (e *apiError) HTTPStatusCode() int { return e.Status }

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

type inlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type sendMessageRequest struct {
	ChatID      int64                 `json:"chat_id"`
	Text        string                `json:"text"`
	ReplyMarkup *inlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

func (c *client) SendText(ctx context.Context, userID int64, text string) error {
	return c.sendMessage(ctx, sendMessageRequest{ChatID: userID, Text: text})
}

func (c *client) SendKeyboard(ctx context.Context, userID int64, text string, buttons []transport.Button) error {
	rows := make([][]inlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []inlineKeyboardButton{{Text: b.Label, CallbackData: b.Data}})
	}
	return c.sendMessage(ctx, sendMessageRequest{
		ChatID:      userID,
		Text:        text,
		ReplyMarkup: &inlineKeyboardMarkup{InlineKeyboard: rows},
	})
}

func (c *client) sendMessage(ctx context.Context, payload sendMessageRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sendMessage: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.execute(req)
}

func (c *client) SendPhoto(ctx context.Context, userID int64, photo io.Reader, name string) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("chat_id", strconv.FormatInt(userID, 10)); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("photo", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, photo); err != nil {
		return fmt.Errorf("copy photo: %w", err)
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendPhoto"), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.execute(req)
}

func (c *client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.cfg.BaseURL, c.cfg.Token, method)
}

func (c *client) execute(req *http.Request) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &apiError{Status: resp.StatusCode, Description: "unparseable response"}
	}
	if !parsed.OK {
		return &apiError{Status: resp.StatusCode, Description: parsed.Description}
	}
	return nil
}
