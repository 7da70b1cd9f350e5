package tariff

import "sort"

// Direction classifies a tariff as money owed or money earned.
type Direction string

// Tariff directions.
const (
	DirectionExpenditure Direction = "expenditure"
	DirectionIncome      Direction = "income"
)

// Valid reports whether the direction is known.
func (d Direction) Valid() bool {
	return d == DirectionExpenditure || d == DirectionIncome
}

// Rate is a single price valid from its start time until superseded
// by the next rate in the schedule.
type Rate struct {
	Start      TimeOfDay
	Amount     float64
	TaxPercent float64
	Unit       Unit
	ID         string
}

// StandingCharge is a fixed daily fee independent of consumption.
type StandingCharge struct {
	DailyAmount float64
	TaxPercent  float64
}

// Tariff is an immutable time-of-day rate schedule.
// Identity: name + direction within a site configuration.
type Tariff struct {
	name      string
	direction Direction
	rates     []Rate
	standing  *StandingCharge
}

// NewTariff validates and constructs a tariff. Rates are copied and
// stored sorted by start time; duplicate start times are rejected here
// so lookups never have to break ties.
func NewTariff(name string, direction Direction, rates []Rate, standing *StandingCharge) (*Tariff, error) {
	if !direction.Valid() {
		return nil, ErrInvalidDirection
	}
	if len(rates) == 0 {
		return nil, ErrEmptySchedule
	}

	sorted := make([]Rate, len(rates))
	copy(sorted, rates)
	for i := range sorted {
		if sorted[i].Unit == "" {
			sorted[i].Unit = UnitKWh
		}
		if !sorted[i].Start.Valid() {
			return nil, ErrInvalidTimeOfDay
		}
		if sorted[i].Amount < 0 {
			return nil, ErrNegativeAmount
		}
		if sorted[i].TaxPercent < 0 || sorted[i].TaxPercent > 100 {
			return nil, ErrInvalidTaxRate
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start == sorted[i-1].Start {
			return nil, ErrDuplicateRateStart
		}
	}

	if standing != nil {
		if standing.DailyAmount < 0 {
			return nil, ErrNegativeStandingCharge
		}
		if standing.TaxPercent < 0 || standing.TaxPercent > 100 {
			return nil, ErrInvalidTaxRate
		}
		copied := *standing
		standing = &copied
	}

	return &Tariff{
		name:      name,
		direction: direction,
		rates:     sorted,
		standing:  standing,
	}, nil
}

// Name returns the display name.
func (t *Tariff) Name() string { return t.name }

// Direction returns the tariff direction.
func (t *Tariff) Direction() Direction { return t.direction }

// Rates returns a copy of the sorted rate schedule.
func (t *Tariff) Rates() []Rate {
	out := make([]Rate, len(t.rates))
	copy(out, t.rates)
	return out
}

// Standing returns the standing charge, or nil when none is defined.
func (t *Tariff) Standing() *StandingCharge {
	if t.standing == nil {
		return nil
	}
	copied := *t.standing
	return &copied
}
