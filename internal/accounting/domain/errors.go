package accounting

import "errors"

var (
	// ErrUnboundMeter is returned when a reading references a meter the
	// binding graph does not know. The reading is dropped; the stream
	// continues.
	ErrUnboundMeter = errors.New("accounting: reading for unbound meter")
	// ErrNoTariff is returned when an asset has no tariff for the
	// direction a reading resolves to.
	ErrNoTariff = errors.New("accounting: no tariff for direction")
	// ErrInvalidReading is returned for readings missing identity or
	// timestamp.
	ErrInvalidReading = errors.New("accounting: invalid reading")
)
