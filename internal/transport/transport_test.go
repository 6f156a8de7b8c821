package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	pkgerrors "github.com/lunahealth/moodtrack-backend/internal/pkg/errors"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

type flakySender struct {
	failures int
	calls    int
	err      error
}

func (f *flakySender) SendText(_ context.Context, _ int64, _ string) error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func (f *flakySender) SendKeyboard(_ context.Context, _ int64, _ string, _ []Button) error {
	return f.SendText(nil, 0, "")
}

func (f *flakySender) SendPhoto(_ context.Context, _ int64, _ io.Reader, _ string) error {
	return f.SendText(nil, 0, "")
}

func TestRetryingRecoversFromTimeouts(t *testing.T) {
	inner := &flakySender{failures: 2, err: timeoutErr{}}
	sender := NewRetrying(inner, time.Millisecond, logger.NewNop())

	if err := sender.SendText(context.Background(), 1, "hi"); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.calls)
	}
}

func TestRetryingExhaustsBudget(t *testing.T) {
	inner := &flakySender{failures: 10, err: timeoutErr{}}
	sender := NewRetrying(inner, time.Millisecond, logger.NewNop())

	err := sender.SendText(context.Background(), 1, "hi")
	if !errors.Is(err, pkgerrors.ErrSendRetriesExhausted) {
		t.Fatalf("expected ErrSendRetriesExhausted, got %v", err)
	}
	if inner.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", inner.calls)
	}
}

func TestRetryingDoesNotRetryOtherErrors(t *testing.T) {
	inner := &flakySender{failures: 10, err: fmt.Errorf("chat not found")}
	sender := NewRetrying(inner, time.Millisecond, logger.NewNop())

	err := sender.SendText(context.Background(), 1, "hi")
	if err == nil || errors.Is(err, pkgerrors.ErrSendRetriesExhausted) {
		t.Fatalf("non-timeout errors must propagate unretried, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", inner.calls)
	}
}
