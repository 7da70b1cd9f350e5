package accounting

import (
	"time"

	tariff "homesite-energy/internal/tariff/domain"
)

// Kind classifies a posting.
type Kind string

// Posting kinds. Shadow postings are never billed; they exist only to
// compute what the same consumption would have cost under a comparison
// tariff.
const (
	KindEnergy   Kind = "energy"
	KindStanding Kind = "standing"
	KindShadow   Kind = "shadow"
)

// Reading is a normalized meter reading entering the engine. Delta is
// an energy delta since the previous reading; producer adapters are
// responsible for integrating instantaneous power.
type Reading struct {
	Module  string
	MeterID string
	At      time.Time
	Delta   float64
	Unit    tariff.Unit
}

// Posting is the immutable accounted record of one reading's monetary
// consequence. Amounts are positive magnitudes; Direction says whether
// money is owed or earned. Corrections are compensating postings, not
// edits.
type Posting struct {
	Asset   string
	Circuit string
	Module  string
	MeterID string

	At         time.Time
	Kind       Kind
	Direction  tariff.Direction
	TariffName string
	RateID     string

	EnergyKWh float64
	PreTax    float64
	Tax       float64
	Total     float64

	// Compared marks billing postings that have a shadow twin, so
	// aggregation can pair actual against comparison totals.
	Compared   bool
	OutOfOrder bool
}

// Diagnostic reports whether the posting came from a sub-circuit meter
// and must be excluded from billing totals.
func (p Posting) Diagnostic() bool { return p.Circuit != "" }

// Billing reports whether the posting counts toward real money.
func (p Posting) Billing() bool { return p.Kind != KindShadow && !p.Diagnostic() }

// SignedTotal returns the total with expenditure positive and income
// negative (credit).
func (p Posting) SignedTotal() float64 {
	if p.Direction == tariff.DirectionIncome {
		return -p.Total
	}
	return p.Total
}
