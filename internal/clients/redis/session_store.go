package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lunahealth/moodtrack-backend/internal/domain"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
	"github.com/lunahealth/moodtrack-backend/internal/session"
)

// SessionStore implements session.Store on Redis. TTL handling comes from
// SET ... EX, so expiry needs no janitor here; Redis evicts on its own.
type SessionStore struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewSessionStore(ttl time.Duration, log *logger.Logger) (*SessionStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &SessionStore{
		log: log.With("component", "RedisSessionStore"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func (s *SessionStore) Close() error { return s.rdb.Close() }

func recordKey(userID int64) string { return fmt.Sprintf("moodtrack:temp_record:%d", userID) }
func stateKey(userID int64) string  { return fmt.Sprintf("moodtrack:state:%d", userID) }

func (s *SessionStore) PutRecord(ctx context.Context, userID int64, rec *domain.TempRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal temp record: %w", err)
	}
	return s.rdb.Set(ctx, recordKey(userID), raw, s.ttl).Err()
}

func (s *SessionStore) GetRecord(ctx context.Context, userID int64) (*domain.TempRecord, error) {
	raw, err := s.rdb.Get(ctx, recordKey(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec domain.TempRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal temp record for user %d: %w", userID, err)
	}
	return &rec, nil
}

func (s *SessionStore) DeleteRecord(ctx context.Context, userID int64) error {
	return s.rdb.Del(ctx, recordKey(userID)).Err()
}

func (s *SessionStore) PutState(ctx context.Context, userID int64, state session.State) error {
	return s.rdb.Set(ctx, stateKey(userID), string(state), s.ttl).Err()
}

func (s *SessionStore) GetState(ctx context.Context, userID int64) (session.State, bool, error) {
	raw, err := s.rdb.Get(ctx, stateKey(userID)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return session.State(raw), true, nil
}

func (s *SessionStore) DeleteState(ctx context.Context, userID int64) error {
	return s.rdb.Del(ctx, stateKey(userID)).Err()
}
