package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoActiveConversation marks a button press or command arriving with no
	// live conversation state. Expected and frequent; handlers degrade to a
	// guidance message instead of failing.
	ErrNoActiveConversation = errors.New("no active conversation")
	// ErrMalformedPayload marks a button payload that cannot be split into a
	// metric name and value.
	ErrMalformedPayload = errors.New("malformed button payload")
	// ErrAutoBaselineTimeNotSet marks an auto-baseline toggle without a
	// configured trigger time.
	ErrAutoBaselineTimeNotSet = errors.New("auto-baseline time not configured")
	// ErrSendRetriesExhausted surfaces after the outbound-send retry budget is
	// spent on timeout-class failures.
	ErrSendRetriesExhausted = errors.New("send retries exhausted")
	// ErrNoMetricsConfigured marks a user whose metric list is empty; a record
	// flow cannot be started for them.
	ErrNoMetricsConfigured = errors.New("no metrics configured")
)

// UnknownMetricError is returned when an answer references a metric that is
// not part of the in-flight record's snapshot.
type UnknownMetricError struct {
	Metric string
}

func (e *UnknownMetricError) Error() string {
	return fmt.Sprintf("metric %q not part of the current record", e.Metric)
}

// BaselinesNotDefinedError names the metrics still missing a baseline when
// enabling auto-baseline was attempted.
type BaselinesNotDefinedError struct {
	Missing []string
}

func (e *BaselinesNotDefinedError) Error() string {
	return fmt.Sprintf("baselines not defined for: %s", strings.Join(e.Missing, ", "))
}
