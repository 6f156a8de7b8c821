package session

import (
	"context"

	"github.com/lunahealth/moodtrack-backend/internal/domain"
)

// State is the per-user conversation mode. Absence of a state means no
// multi-turn flow is active for that user.
type State string

const (
	StateRecording State = "recording"
	StateGraphing  State = "graphing"
)

// Store holds the two independent TTL-bounded per-user entries that make up a
// conversation: the in-flight record and the conversation state. The two
// expire independently; callers must tolerate one being present without the
// other and treat that as "no known state".
//
// TTL semantics are fixed from the entry's write: a read never extends an
// entry's lifetime, and a lookup after expiry reports absent without any
// prior explicit delete.
type Store interface {
	PutRecord(ctx context.Context, userID int64, rec *domain.TempRecord) error
	GetRecord(ctx context.Context, userID int64) (*domain.TempRecord, error)
	DeleteRecord(ctx context.Context, userID int64) error

	PutState(ctx context.Context, userID int64, state State) error
	GetState(ctx context.Context, userID int64) (State, bool, error)
	DeleteState(ctx context.Context, userID int64) error
}
