package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lunahealth/moodtrack-backend/internal/domain"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
	"github.com/lunahealth/moodtrack-backend/internal/session"
	"github.com/lunahealth/moodtrack-backend/internal/transport"
)

func intp(v int) *int { return &v }

func timeOfDay(hour, minute int) domain.TimeOfDay {
	return domain.TimeOfDay{Hour: hour, Minute: minute}
}

func testUser(userID int64) *domain.User {
	at := timeOfDay(21, 0)
	return &domain.User{
		UserID: userID,
		Metrics: []domain.Metric{
			{
				Name:       "mood",
				UserPrompt: "How do you feel?",
				Values: []domain.MetricValue{
					{Label: "good", Score: 3},
					{Label: "bad", Score: 0},
				},
				Baseline: intp(0),
			},
			{
				Name:       "sleep",
				UserPrompt: "How much did you sleep?",
				Values: []domain.MetricValue{
					{Label: "8", Score: 8},
					{Label: "6", Score: 6},
				},
				Baseline: intp(8),
			},
		},
		Notifications: []domain.Notification{{Time: timeOfDay(20, 0)}},
		AutoBaseline:  domain.AutoBaselineConfig{Enabled: false, Time: &at},
	}
}

func newTestStore(t interface{ Cleanup(func()) }) *session.MemoryStore {
	store := session.NewMemoryStore(time.Minute, logger.NewNop())
	t.Cleanup(store.Close)
	return store
}

// sentMessage is one captured outbound send.
type sentMessage struct {
	UserID  int64
	Text    string
	Buttons []transport.Button
	Photo   bool
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) record(msg sentMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) SendText(_ context.Context, userID int64, text string) error {
	return f.record(sentMessage{UserID: userID, Text: text})
}

func (f *fakeSender) SendKeyboard(_ context.Context, userID int64, text string, buttons []transport.Button) error {
	return f.record(sentMessage{UserID: userID, Text: text, Buttons: buttons})
}

func (f *fakeSender) SendPhoto(_ context.Context, userID int64, photo io.Reader, _ string) error {
	_, _ = io.ReadAll(photo)
	return f.record(sentMessage{UserID: userID, Photo: true})
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeSender) last() sentMessage {
	msgs := f.messages()
	if len(msgs) == 0 {
		return sentMessage{}
	}
	return msgs[len(msgs)-1]
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int64]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[int64]*domain.User)}
	for _, u := range users {
		r.users[u.UserID] = u
	}
	return r
}

func (f *fakeUserRepo) Find(_ context.Context, _ *gorm.DB, userID int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[userID], nil
}

func (f *fakeUserRepo) Create(_ context.Context, _ *gorm.DB, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.UserID] = u
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, _ *gorm.DB, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.UserID] = u
	return nil
}

func (f *fakeUserRepo) FindAll(_ context.Context, _ *gorm.DB) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

type fakeRecordRepo struct {
	mu      sync.Mutex
	records []*domain.Record
}

func (f *fakeRecordRepo) Create(_ context.Context, _ *gorm.DB, userID int64, data map[string]int, timestamp time.Time) (*domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := &domain.Record{ID: uuid.New(), UserID: userID, Data: data, Timestamp: timestamp}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeRecordRepo) GetLatestForUser(_ context.Context, _ *gorm.DB, userID int64) (*domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *domain.Record
	for _, rec := range f.records {
		if rec.UserID != userID {
			continue
		}
		if latest == nil || rec.Timestamp.After(latest.Timestamp) {
			latest = rec
		}
	}
	return latest, nil
}

func (f *fakeRecordRepo) FindForUser(_ context.Context, _ *gorm.DB, userID int64) ([]*domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Record
	for _, rec := range f.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecordRepo) FindForTimeRange(_ context.Context, _ *gorm.DB, userID int64, start, end time.Time) ([]*domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Record
	for _, rec := range f.records {
		if rec.UserID != userID {
			continue
		}
		if rec.Timestamp.Before(start) || !rec.Timestamp.Before(end) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeRecordRepo) HasRecordForDay(_ context.Context, _ *gorm.DB, userID int64, day time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	day = day.UTC()
	for _, rec := range f.records {
		ts := rec.Timestamp.UTC()
		if rec.UserID == userID && ts.Year() == day.Year() && ts.YearDay() == day.YearDay() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRecordRepo) all() []*domain.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Record, len(f.records))
	copy(out, f.records)
	return out
}
