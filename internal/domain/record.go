package domain

import (
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/lunahealth/moodtrack-backend/internal/pkg/errors"
)

// RecordData is a single data point inside an in-flight record: a metric name
// and its answer, nil while unanswered.
type RecordData struct {
	MetricName string `json:"metric_name"`
	Value      *int   `json:"value"`
}

// TempRecord accumulates answers while a user works through the metric
// prompts. It snapshots the user's metrics at creation time, so a
// configuration change mid-conversation cannot reshape a record in flight.
type TempRecord struct {
	Metrics   []Metric     `json:"metrics"`
	Data      []RecordData `json:"data"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewTempRecord snapshots the user's metrics in order and initializes one
// unanswered data entry per metric.
func NewTempRecord(user *User, now time.Time) (*TempRecord, error) {
	if len(user.Metrics) == 0 {
		return nil, pkgerrors.ErrNoMetricsConfigured
	}
	metrics := make([]Metric, len(user.Metrics))
	copy(metrics, user.Metrics)
	data := make([]RecordData, len(metrics))
	for i, m := range metrics {
		data[i] = RecordData{MetricName: m.Name}
	}
	return &TempRecord{Metrics: metrics, Data: data, Timestamp: now}, nil
}

func (r *TempRecord) findData(name string) *RecordData {
	for i := range r.Data {
		if r.Data[i].MetricName == name {
			return &r.Data[i]
		}
	}
	return nil
}

// NextUnansweredMetric returns the first metric, in snapshot order, that has
// no value yet. Callers check IsComplete first; an empty metric list is a
// configuration error.
func (r *TempRecord) NextUnansweredMetric() (Metric, error) {
	if len(r.Metrics) == 0 {
		return Metric{}, pkgerrors.ErrNoMetricsConfigured
	}
	for i, d := range r.Data {
		if d.Value == nil {
			return r.Metrics[i], nil
		}
	}
	return Metric{}, pkgerrors.ErrNoMetricsConfigured
}

// UpdateData records an answer. Re-answering an already answered metric
// overwrites the previous value; answering a metric outside the snapshot
// fails without touching the record.
func (r *TempRecord) UpdateData(name string, value int) error {
	d := r.findData(name)
	if d == nil {
		return &pkgerrors.UnknownMetricError{Metric: name}
	}
	d.Value = &value
	return nil
}

func (r *TempRecord) IsComplete() bool {
	for _, d := range r.Data {
		if d.Value == nil {
			return false
		}
	}
	return true
}

// ApplyTimestampOffset moves the record's timestamp back by the given number
// of days and returns the new timestamp. Used by the correction command while
// the record is still in flight.
func (r *TempRecord) ApplyTimestampOffset(days int) time.Time {
	r.Timestamp = r.Timestamp.AddDate(0, 0, -days)
	return r.Timestamp
}

// DataMap flattens the answers into the persisted document shape. Only call
// on a complete record.
func (r *TempRecord) DataMap() map[string]int {
	data := make(map[string]int, len(r.Data))
	for _, d := range r.Data {
		if d.Value != nil {
			data[d.MetricName] = *d.Value
		}
	}
	return data
}

// Record is a finalized, persisted snapshot of one user's answers at a point
// in time. Never mutated after creation.
type Record struct {
	ID        uuid.UUID      `json:"id"`
	UserID    int64          `json:"user_id"`
	Data      map[string]int `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// ValueOf returns the recorded value for a metric, if present.
func (r *Record) ValueOf(metricName string) (int, bool) {
	v, ok := r.Data[metricName]
	return v, ok
}
