package application

import (
	"errors"
	"fmt"
	"sync"
	"time"

	accounting "homesite-energy/internal/accounting/domain"
	site "homesite-energy/internal/site/domain"
	tariff "homesite-energy/internal/tariff/domain"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// standingCell serializes standing-charge posting for one tariff.
// Assets sharing a tariff share one cell, so the charge posts once per
// day no matter which asset's reading arrives first. Readings for
// different tariffs never contend.
type standingCell struct {
	mu      sync.Mutex
	tariff  *tariff.Tariff
	lastDay string
}

// Engine turns normalized meter readings into postings. The binding
// graph and tariffs are immutable after construction; the only mutable
// state is the per-tariff standing-charge day and the per-meter
// last-seen timestamp, each guarded separately so Post is safe to call
// from concurrent ingestion workers.
type Engine struct {
	graph    *site.Graph
	location *time.Location
	tracker  *ErrorTracker
	clock    Clock

	standing map[string][]*standingCell

	seenMu   sync.Mutex
	lastSeen map[site.MeterRef]time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithLocation sets the location tariff clock times are read in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithClock overrides the engine clock.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithErrorTracker injects a shared error tracker.
func WithErrorTracker(tracker *ErrorTracker) Option {
	return func(e *Engine) {
		if tracker != nil {
			e.tracker = tracker
		}
	}
}

// NewEngine constructs an accounting engine over a validated site graph.
func NewEngine(graph *site.Graph, opts ...Option) (*Engine, error) {
	if graph == nil {
		return nil, errors.New("accounting engine: nil binding graph")
	}

	e := &Engine{
		graph:    graph,
		location: time.UTC,
		tracker:  NewErrorTracker(0),
		clock:    SystemClock{},
		standing: make(map[string][]*standingCell),
		lastSeen: make(map[site.MeterRef]time.Time),
	}
	for _, opt := range opts {
		opt(e)
	}

	shared := make(map[*tariff.Tariff]*standingCell)
	for _, asset := range graph.Assets() {
		var cells []*standingCell
		for _, direction := range []tariff.Direction{tariff.DirectionExpenditure, tariff.DirectionIncome} {
			t := asset.Tariff(direction)
			if t == nil || t.Standing() == nil {
				continue
			}
			cell, ok := shared[t]
			if !ok {
				cell = &standingCell{tariff: t}
				shared[t] = cell
			}
			cells = append(cells, cell)
		}
		if len(cells) > 0 {
			e.standing[asset.Name] = cells
		}
	}
	return e, nil
}

// Tracker exposes the engine's error tracker.
func (e *Engine) Tracker() *ErrorTracker { return e.tracker }

// Post accounts one reading. It returns the postings the reading
// produced: the billing posting, an optional comparison shadow posting
// and any standing charges that became due. Per-reading failures are
// recorded on the tracker and returned; they never corrupt previously
// posted records.
func (e *Engine) Post(reading accounting.Reading) ([]accounting.Posting, error) {
	if reading.Module == "" || reading.MeterID == "" || reading.At.IsZero() {
		e.record(ReasonInvalidReading, reading, accounting.ErrInvalidReading)
		return nil, accounting.ErrInvalidReading
	}

	ref := site.MeterRef{Module: reading.Module, MeterID: reading.MeterID}
	owner, ok := e.graph.Owner(ref)
	if !ok {
		e.record(ReasonUnboundMeter, reading, accounting.ErrUnboundMeter)
		return nil, fmt.Errorf("%w: %s/%s", accounting.ErrUnboundMeter, reading.Module, reading.MeterID)
	}

	outOfOrder := e.observeOrder(ref, reading.At)
	if outOfOrder {
		e.record(ReasonOutOfOrder, reading, nil)
	}

	localAt := reading.At.In(e.location)
	postings := e.dueStandingCharges(owner.Asset.Name, localAt)

	if reading.Delta == 0 {
		return postings, nil
	}

	direction, quantity := classify(owner, reading.Delta)
	schedule := owner.Asset.Tariff(direction)
	if schedule == nil {
		e.record(ReasonNoTariff, reading, accounting.ErrNoTariff)
		return postings, fmt.Errorf("%w: %s %s", accounting.ErrNoTariff, owner.Asset.Name, direction)
	}

	timeOfDay := tariff.TimeOfDayOf(localAt)
	rate, err := schedule.Resolve(timeOfDay)
	if err != nil {
		e.record(ReasonNoTariff, reading, err)
		return postings, err
	}
	charge, err := tariff.Apply(rate, quantity, reading.Unit)
	if err != nil {
		e.record(ReasonUnitMismatch, reading, err)
		return postings, err
	}
	energyKWh, err := tariff.ConvertQuantity(quantity, readingUnit(reading.Unit), tariff.UnitKWh)
	if err != nil {
		e.record(ReasonUnitMismatch, reading, err)
		return postings, err
	}

	posting := accounting.Posting{
		Asset:      owner.Asset.Name,
		Circuit:    owner.Circuit,
		Module:     reading.Module,
		MeterID:    reading.MeterID,
		At:         reading.At,
		Kind:       accounting.KindEnergy,
		Direction:  direction,
		TariffName: schedule.Name(),
		RateID:     rate.ID,
		EnergyKWh:  energyKWh,
		PreTax:     charge.PreTax,
		Tax:        charge.Tax,
		Total:      charge.Total,
		OutOfOrder: outOfOrder,
	}

	if !owner.Diagnostic() && owner.Asset.Compare != nil {
		shadow, err := e.shadowPosting(posting, owner.Asset.Compare, timeOfDay, quantity, reading.Unit)
		if err != nil {
			e.record(ReasonUnitMismatch, reading, err)
		} else {
			posting.Compared = true
			postings = append(postings, posting, shadow)
			return postings, nil
		}
	}

	postings = append(postings, posting)
	return postings, nil
}

// shadowPosting prices the same quantity under the comparison tariff.
// Shadow postings are tagged non-billing and never represent real money.
func (e *Engine) shadowPosting(real accounting.Posting, compare *tariff.Tariff, at tariff.TimeOfDay, quantity float64, unit tariff.Unit) (accounting.Posting, error) {
	rate, err := compare.Resolve(at)
	if err != nil {
		return accounting.Posting{}, err
	}
	charge, err := tariff.Apply(rate, quantity, unit)
	if err != nil {
		return accounting.Posting{}, err
	}

	shadow := real
	shadow.Kind = accounting.KindShadow
	shadow.TariffName = compare.Name()
	shadow.RateID = rate.ID
	shadow.PreTax = charge.PreTax
	shadow.Tax = charge.Tax
	shadow.Total = charge.Total
	shadow.Compared = false
	return shadow, nil
}

// dueStandingCharges posts standing charges that became due for the
// asset's tariffs on the reading's calendar day. The per-tariff day
// cell makes reposting the same day a no-op.
func (e *Engine) dueStandingCharges(assetName string, localAt time.Time) []accounting.Posting {
	cells := e.standing[assetName]
	if len(cells) == 0 {
		return nil
	}

	day := localAt.Format("20060102")
	dayStart := time.Date(localAt.Year(), localAt.Month(), localAt.Day(), 0, 0, 0, 0, e.location)

	var postings []accounting.Posting
	for _, cell := range cells {
		cell.mu.Lock()
		due := cell.lastDay < day
		if due {
			cell.lastDay = day
		}
		cell.mu.Unlock()
		if !due {
			continue
		}

		charge := tariff.ApplyStanding(*cell.tariff.Standing())
		postings = append(postings, accounting.Posting{
			Asset:      assetName,
			At:         dayStart,
			Kind:       accounting.KindStanding,
			Direction:  cell.tariff.Direction(),
			TariffName: cell.tariff.Name(),
			RateID:     "standing",
			PreTax:     charge.PreTax,
			Tax:        charge.Tax,
			Total:      charge.Total,
		})
	}
	return postings
}

// observeOrder updates the per-meter high-water mark and reports
// whether the reading arrived out of order.
func (e *Engine) observeOrder(ref site.MeterRef, at time.Time) bool {
	e.seenMu.Lock()
	defer e.seenMu.Unlock()

	last, seen := e.lastSeen[ref]
	if !seen || at.After(last) {
		e.lastSeen[ref] = at
		return false
	}
	return at.Before(last)
}

func (e *Engine) record(reason string, reading accounting.Reading, err error) {
	message := ""
	if err != nil {
		message = err.Error()
	}
	e.tracker.Record(ErrorSample{
		At:      e.clock.Now(),
		Reason:  reason,
		Module:  reading.Module,
		MeterID: reading.MeterID,
		Message: message,
	})
}

// classify picks the tariff direction and positive quantity for a
// reading. Grid flow is classified by sign: import is expenditure,
// export is income. Other assets follow the tariffs they carry; an
// asset with both uses the sign rule like grid.
func classify(owner site.Owner, delta float64) (tariff.Direction, float64) {
	asset := owner.Asset
	quantity := delta
	if quantity < 0 {
		quantity = -quantity
	}

	hasExpenditure := asset.Tariff(tariff.DirectionExpenditure) != nil
	hasIncome := asset.Tariff(tariff.DirectionIncome) != nil

	if owner.Diagnostic() {
		if hasExpenditure {
			return tariff.DirectionExpenditure, quantity
		}
		return tariff.DirectionIncome, quantity
	}

	switch {
	case hasExpenditure && hasIncome:
		if delta < 0 {
			return tariff.DirectionIncome, quantity
		}
		return tariff.DirectionExpenditure, quantity
	case hasIncome:
		return tariff.DirectionIncome, quantity
	default:
		return tariff.DirectionExpenditure, quantity
	}
}

func readingUnit(unit tariff.Unit) tariff.Unit {
	if unit == "" {
		return tariff.UnitKWh
	}
	return unit
}
