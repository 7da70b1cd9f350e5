package application

import (
	"sync"
	"time"
)

const defaultSampleLimit = 20

// Drop and warning reasons recorded by the engine.
const (
	ReasonUnboundMeter   = "unbound_meter"
	ReasonUnitMismatch   = "unit_mismatch"
	ReasonNoTariff       = "no_tariff"
	ReasonInvalidReading = "invalid_reading"
	ReasonOutOfOrder     = "out_of_order"
)

// ErrorSample is one recent per-reading failure kept for operators.
type ErrorSample struct {
	At      time.Time `json:"at"`
	Reason  string    `json:"reason"`
	Module  string    `json:"module"`
	MeterID string    `json:"meter_id"`
	Message string    `json:"message"`
}

// ErrorReport is a point-in-time snapshot of the tracker.
type ErrorReport struct {
	Counts  map[string]uint64 `json:"counts"`
	Samples []ErrorSample     `json:"samples"`
}

// ErrorTracker counts per-reading errors and keeps the most recent N
// samples. It is the engine's only operational visibility surface; a
// metrics layer can mirror the counts.
type ErrorTracker struct {
	mu      sync.Mutex
	counts  map[string]uint64
	samples []ErrorSample
	limit   int
}

// NewErrorTracker constructs a tracker keeping at most limit samples.
func NewErrorTracker(limit int) *ErrorTracker {
	if limit <= 0 {
		limit = defaultSampleLimit
	}
	return &ErrorTracker{
		counts: make(map[string]uint64),
		limit:  limit,
	}
}

// Record counts one failure and remembers it as a sample.
func (t *ErrorTracker) Record(sample ErrorSample) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.counts[sample.Reason]++
	t.samples = append(t.samples, sample)
	if len(t.samples) > t.limit {
		t.samples = t.samples[len(t.samples)-t.limit:]
	}
}

// Snapshot returns a copy of counts and recent samples.
func (t *ErrorTracker) Snapshot() ErrorReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	counts := make(map[string]uint64, len(t.counts))
	for reason, count := range t.counts {
		counts[reason] = count
	}
	samples := make([]ErrorSample, len(t.samples))
	copy(samples, t.samples)
	return ErrorReport{Counts: counts, Samples: samples}
}
