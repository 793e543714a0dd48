package tool

import "time"

// Metrics tracks dispatch outcomes for a single tool.
type Metrics struct {
	// Calls is the total number of dispatches, successful or not.
	Calls int64

	// Failures is the number of dispatches that returned an error.
	Failures int64

	// TotalDuration is the accumulated execution time across all calls.
	TotalDuration time.Duration

	// LastCalledAt is when the tool was most recently dispatched.
	LastCalledAt time.Time
}

// NewMetrics creates zeroed metrics for a freshly registered tool.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordSuccess records a successful dispatch.
func (m *Metrics) RecordSuccess(duration time.Duration) {
	m.Calls++
	m.TotalDuration += duration
	m.LastCalledAt = time.Now()
}

// RecordFailure records a failed dispatch.
func (m *Metrics) RecordFailure(duration time.Duration) {
	m.Calls++
	m.Failures++
	m.TotalDuration += duration
	m.LastCalledAt = time.Now()
}
