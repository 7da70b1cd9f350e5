package tariff

import "errors"

var (
	// ErrEmptySchedule is returned when a tariff has no rates.
	ErrEmptySchedule = errors.New("tariff: empty rate schedule")
	// ErrDuplicateRateStart is returned when two rates share a start time.
	ErrDuplicateRateStart = errors.New("tariff: duplicate rate start time")
	// ErrNegativeAmount is returned when a rate amount is negative.
	ErrNegativeAmount = errors.New("tariff: negative rate amount")
	// ErrInvalidTaxRate is returned when a tax rate is outside [0,100].
	ErrInvalidTaxRate = errors.New("tariff: tax rate outside 0-100")
	// ErrInvalidDirection is returned for an unknown tariff direction.
	ErrInvalidDirection = errors.New("tariff: invalid direction")
	// ErrInvalidTimeOfDay is returned when a time of day cannot be parsed.
	ErrInvalidTimeOfDay = errors.New("tariff: invalid time of day")
	// ErrUnitMismatch is returned when no conversion exists between units.
	ErrUnitMismatch = errors.New("tariff: no conversion between units")
	// ErrNegativeStandingCharge is returned when a standing charge is negative.
	ErrNegativeStandingCharge = errors.New("tariff: negative standing charge")
)
