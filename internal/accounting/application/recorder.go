package application

import (
	"context"
	"errors"
	"log"

	accounting "homesite-energy/internal/accounting/domain"
	"homesite-energy/internal/observability/metrics"
	tariff "homesite-energy/internal/tariff/domain"
)

// Recorder runs readings through the engine and persists the resulting
// postings. Per-reading failures are isolated: a dropped reading never
// stops the batch.
type Recorder struct {
	engine *Engine
	store  accounting.PostingStore
	logger *log.Logger
}

// NewRecorder constructs a recorder.
func NewRecorder(engine *Engine, store accounting.PostingStore, logger *log.Logger) (*Recorder, error) {
	if engine == nil {
		return nil, errors.New("recorder: nil engine")
	}
	if store == nil {
		return nil, errors.New("recorder: nil posting store")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{engine: engine, store: store, logger: logger}, nil
}

// Engine exposes the underlying accounting engine.
func (r *Recorder) Engine() *Engine { return r.engine }

// Record accounts and persists one reading. Postings the engine
// produced before a per-reading failure, standing charges that became
// due in particular, are still persisted: the day guard has already
// consumed them, so dropping them here would lose the day's charge.
func (r *Recorder) Record(ctx context.Context, reading accounting.Reading) ([]accounting.Posting, error) {
	postings, postErr := r.engine.Post(reading)
	if postErr != nil {
		metrics.IncDropped(dropReason(postErr))
	}
	if len(postings) == 0 {
		return nil, postErr
	}
	if err := r.store.Append(ctx, postings); err != nil {
		return nil, err
	}

	for _, posting := range postings {
		switch posting.Kind {
		case accounting.KindStanding:
			metrics.IncStandingCharge()
		case accounting.KindShadow:
			metrics.IncShadowPosting()
		default:
			metrics.IncPosting(string(posting.Direction))
			metrics.AddEnergy(posting.Asset, posting.EnergyKWh)
		}
		if posting.OutOfOrder {
			metrics.IncOutOfOrder()
		}
	}
	return postings, postErr
}

// BatchResult reports the outcome of a reading batch.
type BatchResult struct {
	Posted  int `json:"posted"`
	Dropped int `json:"dropped"`
}

// RecordBatch accounts a batch of readings. Dropped readings are
// logged and counted; the rest of the batch still posts.
func (r *Recorder) RecordBatch(ctx context.Context, readings []accounting.Reading) (BatchResult, error) {
	var result BatchResult
	for _, reading := range readings {
		postings, err := r.Record(ctx, reading)
		result.Posted += len(postings)
		if err != nil {
			if isStoreError(err) {
				return result, err
			}
			r.logger.Printf("accounting: dropped reading %s/%s: %v", reading.Module, reading.MeterID, err)
			result.Dropped++
		}
	}
	return result, nil
}

// isStoreError distinguishes persistence failures, which abort the
// batch, from per-reading accounting failures, which do not.
func isStoreError(err error) bool {
	switch {
	case errors.Is(err, accounting.ErrUnboundMeter),
		errors.Is(err, accounting.ErrNoTariff),
		errors.Is(err, accounting.ErrInvalidReading),
		errors.Is(err, tariff.ErrUnitMismatch),
		errors.Is(err, tariff.ErrEmptySchedule):
		return false
	}
	return true
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, accounting.ErrUnboundMeter):
		return ReasonUnboundMeter
	case errors.Is(err, accounting.ErrNoTariff):
		return ReasonNoTariff
	case errors.Is(err, accounting.ErrInvalidReading):
		return ReasonInvalidReading
	default:
		return ReasonUnitMismatch
	}
}
