package transport

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/lunahealth/moodtrack-backend/internal/pkg/errors"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/httpx"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
)

// Button is one inline option offered with a prompt. Data is the opaque
// payload echoed back when the user presses it.
type Button struct {
	Label string
	Data  string
}

// Sender is the outbound half of the bot transport.
type Sender interface {
	SendText(ctx context.Context, userID int64, text string) error
	SendKeyboard(ctx context.Context, userID int64, text string, buttons []Button) error
	SendPhoto(ctx context.Context, userID int64, photo io.Reader, name string) error
}

const retryAttempts = 3

// Retrying wraps a Sender with a bounded retry: up to three attempts with a
// fixed backoff, for timeout-class errors only. Everything else propagates
// immediately.
type Retrying struct {
	inner   Sender
	backoff time.Duration
	log     *logger.Logger
}

func NewRetrying(inner Sender, backoff time.Duration, baseLog *logger.Logger) *Retrying {
	return &Retrying{
		inner:   inner,
		backoff: backoff,
		log:     baseLog.With("component", "RetryingSender"),
	}
}

func (r *Retrying) SendText(ctx context.Context, userID int64, text string) error {
	return r.do(ctx, func() error { return r.inner.SendText(ctx, userID, text) })
}

func (r *Retrying) SendKeyboard(ctx context.Context, userID int64, text string, buttons []Button) error {
	return r.do(ctx, func() error { return r.inner.SendKeyboard(ctx, userID, text, buttons) })
}

func (r *Retrying) SendPhoto(ctx context.Context, userID int64, photo io.Reader, name string) error {
	return r.do(ctx, func() error { return r.inner.SendPhoto(ctx, userID, photo, name) })
}

func (r *Retrying) do(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = op()
		if err == nil || !httpx.IsTimeout(err) {
			return err
		}
		r.log.Warn("send timed out", "attempt", attempt)
		if attempt < retryAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.backoff):
			}
		}
	}
	return fmt.Errorf("%w: %v", errors.ErrSendRetriesExhausted, err)
}
