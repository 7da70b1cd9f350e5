package tariff

import "sort"

// Charge is the monetary consequence of pricing a quantity at a rate.
type Charge struct {
	PreTax float64
	Tax    float64
	Total  float64
}

// Resolve returns the rate active at the given clock time.
// Among all rates whose start is at or before the instant the latest
// wins; an instant earlier than every start falls under the last rate
// of the previous day (midnight wraparound).
func (t *Tariff) Resolve(at TimeOfDay) (Rate, error) {
	if t == nil || len(t.rates) == 0 {
		return Rate{}, ErrEmptySchedule
	}

	// Index of the first rate starting strictly after the instant.
	idx := sort.Search(len(t.rates), func(i int) bool { return t.rates[i].Start > at })
	if idx == 0 {
		return t.rates[len(t.rates)-1], nil
	}
	return t.rates[idx-1], nil
}

// Apply prices a quantity at the given rate, converting the quantity
// into the rate's unit first. Amounts are always non-negative; the
// caller records income as a credit.
func Apply(rate Rate, quantity float64, unit Unit) (Charge, error) {
	if unit == "" {
		unit = UnitKWh
	}
	rateUnit := rate.Unit
	if rateUnit == "" {
		rateUnit = UnitKWh
	}
	converted, err := ConvertQuantity(quantity, unit, rateUnit)
	if err != nil {
		return Charge{}, err
	}

	preTax := rate.Amount * converted
	tax := preTax * rate.TaxPercent / 100
	return Charge{PreTax: preTax, Tax: tax, Total: preTax + tax}, nil
}

// ApplyStanding prices one day of standing charge.
func ApplyStanding(charge StandingCharge) Charge {
	tax := charge.DailyAmount * charge.TaxPercent / 100
	return Charge{PreTax: charge.DailyAmount, Tax: tax, Total: charge.DailyAmount + tax}
}
