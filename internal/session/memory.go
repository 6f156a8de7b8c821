package session

import (
	"context"
	"sync"
	"time"

	"github.com/lunahealth/moodtrack-backend/internal/domain"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
)

type recordEntry struct {
	rec       *domain.TempRecord
	expiresAt time.Time
}

type stateEntry struct {
	state     State
	expiresAt time.Time
}

// MemoryStore is the default, in-process Store: two mutex-guarded maps with a
// background janitor. Expiry is also checked lazily on every read, so a
// lookup after the TTL reports absent even if the janitor has not swept yet.
type MemoryStore struct {
	ttl time.Duration
	log *logger.Logger

	mu      sync.Mutex
	records map[int64]recordEntry
	states  map[int64]stateEntry

	stop chan struct{}
	once sync.Once
}

func NewMemoryStore(ttl time.Duration, baseLog *logger.Logger) *MemoryStore {
	s := &MemoryStore{
		ttl:     ttl,
		log:     baseLog.With("component", "MemorySessionStore"),
		records: make(map[int64]recordEntry),
		states:  make(map[int64]stateEntry),
		stop:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemoryStore) janitor() {
	interval := s.ttl / 2
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.records {
		if now.After(e.expiresAt) {
			delete(s.records, id)
		}
	}
	for id, e := range s.states {
		if now.After(e.expiresAt) {
			delete(s.states, id)
		}
	}
}

func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) PutRecord(_ context.Context, userID int64, rec *domain.TempRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[userID] = recordEntry{rec: rec, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) GetRecord(_ context.Context, userID int64) (*domain.TempRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.records[userID]
	if !ok {
		return nil, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(s.records, userID)
		return nil, nil
	}
	return e.rec, nil
}

func (s *MemoryStore) DeleteRecord(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}

func (s *MemoryStore) PutState(_ context.Context, userID int64, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = stateEntry{state: state, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) GetState(_ context.Context, userID int64) (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.states[userID]
	if !ok {
		return "", false, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(s.states, userID)
		return "", false, nil
	}
	return e.state, true, nil
}

func (s *MemoryStore) DeleteState(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}
