package ledger

import (
	"math"
	"testing"
	"time"

	accounting "homesite-energy/internal/accounting/domain"
	tariff "homesite-energy/internal/tariff/domain"
)

func samplePostings() []accounting.Posting {
	day := time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)
	return []accounting.Posting{
		{
			Asset: "Mains", Module: "enistic1", MeterID: "grid",
			At: day, Kind: accounting.KindStanding,
			Direction: tariff.DirectionExpenditure, TariffName: "Standard Variable", RateID: "standing",
			PreTax: 0.2, Tax: 0.01, Total: 0.21,
		},
		{
			Asset: "Mains", Module: "enistic1", MeterID: "grid",
			At: day.Add(10 * time.Hour), Kind: accounting.KindEnergy,
			Direction: tariff.DirectionExpenditure, TariffName: "Standard Variable", RateID: "day",
			EnergyKWh: 1, PreTax: 0.157, Tax: 0.00785, Total: 0.16485, Compared: true,
		},
		{
			Asset: "Mains", Module: "enistic1", MeterID: "grid",
			At: day.Add(10 * time.Hour), Kind: accounting.KindShadow,
			Direction: tariff.DirectionExpenditure, TariffName: "Fixed Saver", RateID: "day",
			EnergyKWh: 1, PreTax: 0.13, Tax: 0.0065, Total: 0.1365,
		},
		{
			Asset: "Mains", Module: "enistic1", MeterID: "grid",
			At: day.Add(2 * time.Hour), Kind: accounting.KindEnergy,
			Direction: tariff.DirectionExpenditure, TariffName: "Standard Variable", RateID: "night",
			EnergyKWh: 2, PreTax: 0.1504, Tax: 0.00752, Total: 0.15792, Compared: true, OutOfOrder: true,
		},
		{
			Asset: "Mains", Module: "enistic1", MeterID: "grid",
			At: day.Add(2 * time.Hour), Kind: accounting.KindShadow,
			Direction: tariff.DirectionExpenditure, TariffName: "Fixed Saver", RateID: "night",
			EnergyKWh: 2, PreTax: 0.22, Tax: 0.011, Total: 0.231,
		},
		{
			Asset: "Solar", Module: "goodwe1", MeterID: "pv",
			At: day.Add(14 * time.Hour), Kind: accounting.KindEnergy,
			Direction: tariff.DirectionIncome, TariffName: "FIT", RateID: "fit",
			EnergyKWh: 2, PreTax: 1.055, Tax: 0, Total: 1.055,
		},
		{
			Asset: "Total Load", Circuit: "Kitchen", Module: "enistic1", MeterID: "kitchen",
			At: day.Add(12 * time.Hour), Kind: accounting.KindEnergy,
			Direction: tariff.DirectionExpenditure, TariffName: "Standard Variable", RateID: "day",
			EnergyKWh: 0.3, PreTax: 0.0471, Tax: 0.002355, Total: 0.049455,
		},
	}
}

func TestSummarizeTotals(t *testing.T) {
	s := Summarize(samplePostings())

	if s.Postings != 7 {
		t.Fatalf("expected 7 postings counted, got %d", s.Postings)
	}
	if !near(s.Expenditure.Total, 0.16485+0.15792) {
		t.Fatalf("unexpected expenditure: %+v", s.Expenditure)
	}
	if !near(s.Income.Total, 1.055) {
		t.Fatalf("unexpected income: %+v", s.Income)
	}
	if !near(s.Standing.Total, 0.21) {
		t.Fatalf("unexpected standing: %+v", s.Standing)
	}
	wantNet := 0.16485 + 0.15792 + 0.21 - 1.055
	if !near(s.Net, wantNet) {
		t.Fatalf("net = %v, want %v", s.Net, wantNet)
	}
	if s.OutOfOrder != 1 {
		t.Fatalf("expected one out-of-order posting, got %d", s.OutOfOrder)
	}
	if !s.From.Equal(time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window start %v", s.From)
	}
}

func TestSummarizeExcludesShadowAndDiagnosticFromBilling(t *testing.T) {
	s := Summarize(samplePostings())

	// Shadow money only appears in the comparison section.
	if s.Comparison == nil {
		t.Fatalf("expected comparison section")
	}
	if !near(s.Comparison.ComparisonTotal, 0.1365+0.231) {
		t.Fatalf("unexpected comparison total: %+v", s.Comparison)
	}
	if !near(s.Comparison.ActualTotal, 0.16485+0.15792) {
		t.Fatalf("unexpected actual total: %+v", s.Comparison)
	}
	if !near(s.Comparison.Delta, (0.16485+0.15792)-(0.1365+0.231)) {
		t.Fatalf("unexpected delta: %v", s.Comparison.Delta)
	}

	// The kitchen sub-circuit shows up as a circuit line, not an asset.
	if len(s.Circuits) != 1 || s.Circuits[0].Circuit != "Kitchen" {
		t.Fatalf("unexpected circuits: %+v", s.Circuits)
	}
	for _, asset := range s.Assets {
		if asset.Asset == "Total Load" {
			t.Fatalf("diagnostic-only asset leaked into billing lines")
		}
	}
}

func TestSummarizeRateBreakdown(t *testing.T) {
	s := Summarize(samplePostings())

	var day *RateLine
	for i := range s.Rates {
		if s.Rates[i].TariffName == "Standard Variable" && s.Rates[i].RateID == "day" {
			day = &s.Rates[i]
		}
	}
	if day == nil {
		t.Fatalf("missing day rate line: %+v", s.Rates)
	}
	if !near(day.EnergyKWh, 1) || !near(day.Amount.Total, 0.16485) {
		t.Fatalf("unexpected day rate line: %+v", day)
	}
}

func TestSummarizeIsIdempotent(t *testing.T) {
	postings := samplePostings()
	first := Summarize(postings)
	second := Summarize(postings)
	if !near(first.Net, second.Net) || first.Postings != second.Postings {
		t.Fatalf("summaries differ: %+v vs %+v", first, second)
	}
}

func TestMergeMatchesSummaryOfUnion(t *testing.T) {
	postings := samplePostings()
	whole := Summarize(postings)
	merged := Merge(Summarize(postings[:3]), Summarize(postings[3:]))

	if merged.Postings != whole.Postings {
		t.Fatalf("postings %d != %d", merged.Postings, whole.Postings)
	}
	if !near(merged.Net, whole.Net) {
		t.Fatalf("net %v != %v", merged.Net, whole.Net)
	}
	if !near(merged.Expenditure.Total, whole.Expenditure.Total) ||
		!near(merged.Income.Total, whole.Income.Total) ||
		!near(merged.Standing.Total, whole.Standing.Total) {
		t.Fatalf("totals diverge: %+v vs %+v", merged, whole)
	}
	if merged.Comparison == nil || !near(merged.Comparison.Delta, whole.Comparison.Delta) {
		t.Fatalf("comparison diverges: %+v vs %+v", merged.Comparison, whole.Comparison)
	}
	if len(merged.Assets) != len(whole.Assets) {
		t.Fatalf("asset lines diverge: %+v vs %+v", merged.Assets, whole.Assets)
	}
	for i := range merged.Assets {
		if merged.Assets[i].Asset != whole.Assets[i].Asset ||
			!near(merged.Assets[i].Expenditure.Total, whole.Assets[i].Expenditure.Total) {
			t.Fatalf("asset line %d diverges: %+v vs %+v", i, merged.Assets[i], whole.Assets[i])
		}
	}
	if !merged.From.Equal(whole.From) || !merged.To.Equal(whole.To) {
		t.Fatalf("window diverges: %v..%v vs %v..%v", merged.From, merged.To, whole.From, whole.To)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Postings != 0 || s.Net != 0 || s.Comparison != nil {
		t.Fatalf("unexpected empty summary: %+v", s)
	}
}

func near(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}
