package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/lunahealth/moodtrack-backend/internal/domain"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
)

// JobFunc is the work a daily job performs. Errors go to the queue's error
// hook; they are never swallowed silently.
type JobFunc func(ctx context.Context) error

// Queue is an in-process recurring-job scheduler. Jobs are keyed by
// deterministic string ids so callers can find and cancel them later without
// holding a handle. Jobs run daily at a fixed UTC wall-clock time and are
// cancelled only explicitly, never by timeout.
type Queue struct {
	log     *logger.Logger
	onError func(jobID string, err error)

	mu   sync.Mutex
	jobs map[string]chan struct{}
}

func NewQueue(baseLog *logger.Logger, onError func(jobID string, err error)) *Queue {
	q := &Queue{
		log:  baseLog.With("component", "JobQueue"),
		jobs: make(map[string]chan struct{}),
	}
	if onError == nil {
		onError = func(jobID string, err error) {
			q.log.Error("job failed", "job_id", jobID, "error", err)
		}
	}
	q.onError = onError
	return q
}

// ScheduleDaily registers fn to run every day at the given time. Scheduling
// an id that already exists replaces the previous job.
func (q *Queue) ScheduleDaily(jobID string, at domain.TimeOfDay, fn JobFunc) {
	q.mu.Lock()
	if stop, ok := q.jobs[jobID]; ok {
		close(stop)
	}
	stop := make(chan struct{})
	q.jobs[jobID] = stop
	q.mu.Unlock()

	q.log.Info("scheduled daily job", "job_id", jobID, "time", at.String())
	go q.run(jobID, at, fn, stop)
}

func (q *Queue) run(jobID string, at domain.TimeOfDay, fn JobFunc, stop chan struct{}) {
	for {
		wait := time.Until(at.NextOccurrence(time.Now()))
		timer := time.NewTimer(wait)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			if err := fn(context.Background()); err != nil {
				q.onError(jobID, err)
			}
		}
	}
}

// FindJob reports whether a job with the given id is registered.
func (q *Queue) FindJob(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.jobs[jobID]
	return ok
}

// CancelJob stops and removes a job. A no-op for unknown ids.
func (q *Queue) CancelJob(jobID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if stop, ok := q.jobs[jobID]; ok {
		close(stop)
		delete(q.jobs, jobID)
		q.log.Info("cancelled job", "job_id", jobID)
	}
}

// JobCount returns the number of registered jobs.
func (q *Queue) JobCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Stop cancels every registered job.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, stop := range q.jobs {
		close(stop)
		delete(q.jobs, id)
	}
}
