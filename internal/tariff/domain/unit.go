package tariff

// Unit identifies the unit a quantity or rate is expressed in.
type Unit string

// Energy units understood by the accounting core.
const (
	UnitKWh Unit = "kWh"
	UnitWh  Unit = "Wh"
	UnitMWh Unit = "MWh"
)

// factors to kWh for every convertible unit.
var kwhFactors = map[Unit]float64{
	UnitKWh: 1,
	UnitWh:  0.001,
	UnitMWh: 1000,
}

// ConvertQuantity converts a value between energy units.
// Returns ErrUnitMismatch when either unit has no defined conversion.
func ConvertQuantity(value float64, from, to Unit) (float64, error) {
	if from == to {
		return value, nil
	}
	fromFactor, ok := kwhFactors[from]
	if !ok {
		return 0, ErrUnitMismatch
	}
	toFactor, ok := kwhFactors[to]
	if !ok {
		return 0, ErrUnitMismatch
	}
	return value * fromFactor / toFactor, nil
}
