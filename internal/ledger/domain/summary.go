package ledger

import (
	"sort"
	"time"

	accounting "homesite-energy/internal/accounting/domain"
	tariff "homesite-energy/internal/tariff/domain"
)

// Money groups the three amounts every billing line carries.
type Money struct {
	PreTax float64 `json:"pre_tax"`
	Tax    float64 `json:"tax"`
	Total  float64 `json:"total"`
}

func (m *Money) add(p accounting.Posting) {
	m.PreTax += p.PreTax
	m.Tax += p.Tax
	m.Total += p.Total
}

func (m *Money) merge(other Money) {
	m.PreTax += other.PreTax
	m.Tax += other.Tax
	m.Total += other.Total
}

// AssetLine aggregates billing postings for one asset.
type AssetLine struct {
	Asset       string  `json:"asset"`
	EnergyKWh   float64 `json:"energy_kwh"`
	Expenditure Money   `json:"expenditure"`
	Income      Money   `json:"income"`
	Standing    Money   `json:"standing"`
}

// RateLine aggregates billing postings for one tariff rate.
type RateLine struct {
	TariffName string  `json:"tariff"`
	RateID     string  `json:"rate_id"`
	Direction  string  `json:"direction"`
	EnergyKWh  float64 `json:"energy_kwh"`
	Amount     Money   `json:"amount"`
}

// CircuitLine aggregates diagnostic postings for one sub-circuit.
// Diagnostic lines carry energy and indicative cost but never enter
// the billing totals.
type CircuitLine struct {
	Asset     string  `json:"asset"`
	Circuit   string  `json:"circuit"`
	EnergyKWh float64 `json:"energy_kwh"`
	Indicated Money   `json:"indicated"`
}

// Comparison pairs the cost of compared consumption with what the same
// consumption would have cost under the comparison tariff.
type Comparison struct {
	ActualTotal     float64 `json:"actual_total"`
	ComparisonTotal float64 `json:"comparison_total"`
	// Delta is actual minus comparison: positive means the comparison
	// tariff would have been cheaper.
	Delta float64 `json:"delta"`
}

// Summary is the aggregated view of a set of postings.
type Summary struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	Postings int `json:"postings"`

	Expenditure Money `json:"expenditure"`
	Income      Money `json:"income"`
	Standing    Money `json:"standing"`
	// Net is total expenditure (standing included) minus total income.
	Net float64 `json:"net"`

	Assets     []AssetLine   `json:"assets"`
	Rates      []RateLine    `json:"rates"`
	Circuits   []CircuitLine `json:"circuits,omitempty"`
	Comparison *Comparison   `json:"comparison,omitempty"`

	OutOfOrder int `json:"out_of_order"`
}

// Summarize folds postings into a summary. It is a pure function of
// its input: summarizing the same postings twice yields the same
// summary, and summaries of disjoint partitions add up to the summary
// of the union. Shadow postings contribute only to the comparison
// section; diagnostic postings only to the circuit section.
func Summarize(postings []accounting.Posting) Summary {
	var s Summary

	assets := make(map[string]*AssetLine)
	rates := make(map[string]*RateLine)
	circuits := make(map[string]*CircuitLine)
	var comparison Comparison
	var compared bool

	for _, p := range postings {
		s.Postings++
		if s.From.IsZero() || p.At.Before(s.From) {
			s.From = p.At
		}
		if p.At.After(s.To) {
			s.To = p.At
		}
		if p.OutOfOrder {
			s.OutOfOrder++
		}

		if p.Kind == accounting.KindShadow {
			compared = true
			comparison.ComparisonTotal += p.Total
			continue
		}
		if p.Diagnostic() {
			key := p.Asset + "\x00" + p.Circuit
			line, ok := circuits[key]
			if !ok {
				line = &CircuitLine{Asset: p.Asset, Circuit: p.Circuit}
				circuits[key] = line
			}
			line.EnergyKWh += p.EnergyKWh
			line.Indicated.add(p)
			continue
		}

		if p.Compared {
			compared = true
			comparison.ActualTotal += p.Total
		}

		asset, ok := assets[p.Asset]
		if !ok {
			asset = &AssetLine{Asset: p.Asset}
			assets[p.Asset] = asset
		}

		switch {
		case p.Kind == accounting.KindStanding:
			s.Standing.add(p)
			asset.Standing.add(p)
		case p.Direction == tariff.DirectionIncome:
			s.Income.add(p)
			asset.Income.add(p)
			asset.EnergyKWh += p.EnergyKWh
		default:
			s.Expenditure.add(p)
			asset.Expenditure.add(p)
			asset.EnergyKWh += p.EnergyKWh
		}

		if p.Kind == accounting.KindEnergy {
			key := p.TariffName + "\x00" + p.RateID
			rate, ok := rates[key]
			if !ok {
				rate = &RateLine{TariffName: p.TariffName, RateID: p.RateID, Direction: string(p.Direction)}
				rates[key] = rate
			}
			rate.EnergyKWh += p.EnergyKWh
			rate.Amount.add(p)
		}
	}

	s.Net = s.Expenditure.Total + s.Standing.Total - s.Income.Total
	if compared {
		comparison.Delta = comparison.ActualTotal - comparison.ComparisonTotal
		s.Comparison = &comparison
	}

	for _, line := range assets {
		s.Assets = append(s.Assets, *line)
	}
	sort.Slice(s.Assets, func(i, j int) bool { return s.Assets[i].Asset < s.Assets[j].Asset })

	for _, line := range rates {
		s.Rates = append(s.Rates, *line)
	}
	sort.Slice(s.Rates, func(i, j int) bool {
		if s.Rates[i].TariffName != s.Rates[j].TariffName {
			return s.Rates[i].TariffName < s.Rates[j].TariffName
		}
		return s.Rates[i].RateID < s.Rates[j].RateID
	})

	for _, line := range circuits {
		s.Circuits = append(s.Circuits, *line)
	}
	sort.Slice(s.Circuits, func(i, j int) bool {
		if s.Circuits[i].Asset != s.Circuits[j].Asset {
			return s.Circuits[i].Asset < s.Circuits[j].Asset
		}
		return s.Circuits[i].Circuit < s.Circuits[j].Circuit
	})

	return s
}

// Merge combines two summaries computed over disjoint posting sets.
func Merge(a, b Summary) Summary {
	merged := Summary{
		Postings:   a.Postings + b.Postings,
		OutOfOrder: a.OutOfOrder + b.OutOfOrder,
	}
	merged.From = earlier(a.From, b.From)
	merged.To = later(a.To, b.To)
	merged.Expenditure.merge(a.Expenditure)
	merged.Expenditure.merge(b.Expenditure)
	merged.Income.merge(a.Income)
	merged.Income.merge(b.Income)
	merged.Standing.merge(a.Standing)
	merged.Standing.merge(b.Standing)
	merged.Net = merged.Expenditure.Total + merged.Standing.Total - merged.Income.Total

	merged.Assets = mergeAssets(a.Assets, b.Assets)
	merged.Rates = mergeRates(a.Rates, b.Rates)
	merged.Circuits = mergeCircuits(a.Circuits, b.Circuits)

	if a.Comparison != nil || b.Comparison != nil {
		var c Comparison
		if a.Comparison != nil {
			c.ActualTotal += a.Comparison.ActualTotal
			c.ComparisonTotal += a.Comparison.ComparisonTotal
		}
		if b.Comparison != nil {
			c.ActualTotal += b.Comparison.ActualTotal
			c.ComparisonTotal += b.Comparison.ComparisonTotal
		}
		c.Delta = c.ActualTotal - c.ComparisonTotal
		merged.Comparison = &c
	}
	return merged
}

func earlier(a, b time.Time) time.Time {
	if a.IsZero() {
		return b
	}
	if b.IsZero() || a.Before(b) {
		return a
	}
	return b
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func mergeAssets(a, b []AssetLine) []AssetLine {
	byName := make(map[string]*AssetLine)
	for _, lines := range [][]AssetLine{a, b} {
		for _, line := range lines {
			got, ok := byName[line.Asset]
			if !ok {
				copied := line
				byName[line.Asset] = &copied
				continue
			}
			got.EnergyKWh += line.EnergyKWh
			got.Expenditure.merge(line.Expenditure)
			got.Income.merge(line.Income)
			got.Standing.merge(line.Standing)
		}
	}
	merged := make([]AssetLine, 0, len(byName))
	for _, line := range byName {
		merged = append(merged, *line)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Asset < merged[j].Asset })
	return merged
}

func mergeRates(a, b []RateLine) []RateLine {
	byKey := make(map[string]*RateLine)
	for _, lines := range [][]RateLine{a, b} {
		for _, line := range lines {
			key := line.TariffName + "\x00" + line.RateID
			got, ok := byKey[key]
			if !ok {
				copied := line
				byKey[key] = &copied
				continue
			}
			got.EnergyKWh += line.EnergyKWh
			got.Amount.merge(line.Amount)
		}
	}
	merged := make([]RateLine, 0, len(byKey))
	for _, line := range byKey {
		merged = append(merged, *line)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].TariffName != merged[j].TariffName {
			return merged[i].TariffName < merged[j].TariffName
		}
		return merged[i].RateID < merged[j].RateID
	})
	return merged
}

func mergeCircuits(a, b []CircuitLine) []CircuitLine {
	byKey := make(map[string]*CircuitLine)
	for _, lines := range [][]CircuitLine{a, b} {
		for _, line := range lines {
			key := line.Asset + "\x00" + line.Circuit
			got, ok := byKey[key]
			if !ok {
				copied := line
				byKey[key] = &copied
				continue
			}
			got.EnergyKWh += line.EnergyKWh
			got.Indicated.merge(line.Indicated)
		}
	}
	merged := make([]CircuitLine, 0, len(byKey))
	for _, line := range byKey {
		merged = append(merged, *line)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Asset != merged[j].Asset {
			return merged[i].Asset < merged[j].Asset
		}
		return merged[i].Circuit < merged[j].Circuit
	})
	return merged
}
