package services

import (
	"context"
	"testing"
	"time"

	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
	"github.com/lunahealth/moodtrack-backend/internal/scheduler"
)

func newNotifier(t *testing.T, users *fakeUserRepo, records *fakeRecordRepo, sender *fakeSender) (NotifierService, *scheduler.Queue) {
	t.Helper()
	queue := scheduler.NewQueue(logger.NewNop(), nil)
	t.Cleanup(queue.Stop)
	store := newTestStore(t)
	recorder := NewRecorderService(store, users, records, sender, logger.NewNop())
	return NewNotifierService(queue, users, records, recorder, sender, logger.NewNop()), queue
}

func TestRunAutoBaselineCreatesRecordOncePerDay(t *testing.T) {
	ctx := context.Background()
	u := testUser(7)
	u.AutoBaseline.Enabled = true
	sender := &fakeSender{}
	records := &fakeRecordRepo{}
	svc, _ := newNotifier(t, newFakeUserRepo(u), records, sender)

	if err := svc.RunAutoBaseline(ctx, 7); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if len(records.all()) != 1 {
		t.Fatalf("expected one baseline record, got %d", len(records.all()))
	}
	if got := sender.last().Text; got != msgBaselineAutoCreate {
		t.Fatalf("unexpected notification %q", got)
	}

	// second tick the same day is a no-op
	if err := svc.RunAutoBaseline(ctx, 7); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if len(records.all()) != 1 {
		t.Fatalf("second tick must not create another record, got %d", len(records.all()))
	}
	if len(sender.messages()) != 1 {
		t.Fatalf("second tick must not notify again, got %d messages", len(sender.messages()))
	}
}

func TestRunAutoBaselineSkipsWhenManualRecordExists(t *testing.T) {
	ctx := context.Background()
	u := testUser(7)
	u.AutoBaseline.Enabled = true
	sender := &fakeSender{}
	records := &fakeRecordRepo{}
	if _, err := records.Create(ctx, nil, 7, map[string]int{"mood": 3, "sleep": 8}, time.Now().UTC()); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	svc, _ := newNotifier(t, newFakeUserRepo(u), records, sender)

	if err := svc.RunAutoBaseline(ctx, 7); err != nil {
		t.Fatalf("RunAutoBaseline: %v", err)
	}
	if len(records.all()) != 1 {
		t.Fatalf("expected no new record, got %d", len(records.all()))
	}
	if len(sender.messages()) != 0 {
		t.Fatal("no notification expected when a record already exists")
	}
}

func TestRunAutoBaselineHonorsDisableBetweenTicks(t *testing.T) {
	ctx := context.Background()
	u := testUser(7)
	u.AutoBaseline.Enabled = false
	sender := &fakeSender{}
	records := &fakeRecordRepo{}
	svc, _ := newNotifier(t, newFakeUserRepo(u), records, sender)

	if err := svc.RunAutoBaseline(ctx, 7); err != nil {
		t.Fatalf("RunAutoBaseline: %v", err)
	}
	if len(records.all()) != 0 {
		t.Fatal("disabled auto-baseline must not create records")
	}
}

func TestRunAutoBaselineUnknownUser(t *testing.T) {
	sender := &fakeSender{}
	records := &fakeRecordRepo{}
	svc, _ := newNotifier(t, newFakeUserRepo(), records, sender)

	if err := svc.RunAutoBaseline(context.Background(), 404); err != nil {
		t.Fatalf("RunAutoBaseline: %v", err)
	}
	if len(records.all()) != 0 {
		t.Fatal("unknown user must not create records")
	}
}

func TestCreateAutoBaselineJobLifecycle(t *testing.T) {
	u := testUser(7)
	sender := &fakeSender{}
	svc, queue := newNotifier(t, newFakeUserRepo(u), &fakeRecordRepo{}, sender)

	if err := svc.CreateAutoBaseline(u); err != nil {
		t.Fatalf("CreateAutoBaseline: %v", err)
	}
	if !queue.FindJob("auto_baseline_7") {
		t.Fatal("expected auto_baseline_7 job to be registered")
	}

	// re-scheduling replaces rather than duplicates
	if err := svc.CreateAutoBaseline(u); err != nil {
		t.Fatalf("CreateAutoBaseline again: %v", err)
	}
	if queue.JobCount() != 1 {
		t.Fatalf("expected one job, got %d", queue.JobCount())
	}

	svc.RemoveAutoBaseline(7)
	if queue.FindJob("auto_baseline_7") {
		t.Fatal("job should be gone after RemoveAutoBaseline")
	}
}

func TestCreateAutoBaselineWithoutTime(t *testing.T) {
	u := testUser(7)
	u.AutoBaseline.Time = nil
	sender := &fakeSender{}
	svc, queue := newNotifier(t, newFakeUserRepo(u), &fakeRecordRepo{}, sender)

	if err := svc.CreateAutoBaseline(u); err == nil {
		t.Fatal("expected error without a configured time")
	}
	if queue.JobCount() != 0 {
		t.Fatal("no job should be scheduled without a time")
	}
}

func TestCreateNotificationSchedulesReminder(t *testing.T) {
	sender := &fakeSender{}
	svc, queue := newNotifier(t, newFakeUserRepo(), &fakeRecordRepo{}, sender)

	svc.CreateNotification(7, testUser(7).Notifications[0])
	if !queue.FindJob("reminder_7_20:00") {
		t.Fatal("expected reminder_7_20:00 job to be registered")
	}
}
