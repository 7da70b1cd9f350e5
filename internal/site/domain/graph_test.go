package site

import (
	"errors"
	"testing"

	tariff "homesite-energy/internal/tariff/domain"
)

func testTariff(t *testing.T, direction tariff.Direction) *tariff.Tariff {
	t.Helper()
	made, err := tariff.NewTariff("test", direction, []tariff.Rate{{Amount: 0.1, ID: "flat"}}, nil)
	if err != nil {
		t.Fatalf("new tariff: %v", err)
	}
	return made
}

func testModules() []Module {
	return []Module{
		{
			Name: "enistic1",
			Type: "enistic",
			Meters: []ModuleMeter{
				{ID: "grid", Channel: -1},
				{ID: "load", Channel: -1},
				{ID: "kitchen", Channel: 3},
				{ID: "office", Channel: 5},
			},
		},
		{
			Name: "goodwe1",
			Type: "goodwe_em",
			Meters: []ModuleMeter{
				{ID: "pv", Channel: -1, Reading: "pv1"},
				{ID: "battery", Channel: -1, Reading: "battery1"},
				{ID: "soc", Channel: -1, Reading: "soc1"},
			},
		},
	}
}

func testAssets(t *testing.T) []*Asset {
	t.Helper()
	return []*Asset{
		{
			Name:  "Mains",
			Type:  AssetGrid,
			Meter: MeterRef{Module: "enistic1", MeterID: "grid"},
			Tariffs: map[tariff.Direction]*tariff.Tariff{
				tariff.DirectionExpenditure: testTariff(t, tariff.DirectionExpenditure),
				tariff.DirectionIncome:      testTariff(t, tariff.DirectionIncome),
			},
		},
		{
			Name:  "Solar",
			Type:  AssetSolar,
			Meter: MeterRef{Module: "goodwe1", MeterID: "pv"},
			Tariffs: map[tariff.Direction]*tariff.Tariff{
				tariff.DirectionIncome: testTariff(t, tariff.DirectionIncome),
			},
		},
		{
			Name:  "Total Load",
			Type:  AssetLoad,
			Meter: MeterRef{Module: "enistic1", MeterID: "load"},
			Tariffs: map[tariff.Direction]*tariff.Tariff{
				tariff.DirectionExpenditure: testTariff(t, tariff.DirectionExpenditure),
			},
			Circuits: []SubCircuit{
				{Name: "Kitchen", Meter: MeterRef{Module: "enistic1", MeterID: "kitchen"}},
				{Name: "Office", Meter: MeterRef{Module: "enistic1", MeterID: "office"}},
			},
		},
	}
}

func TestNewGraphBindsMeters(t *testing.T) {
	graph, err := NewGraph(testAssets(t), testModules())
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}

	owner, ok := graph.Owner(MeterRef{Module: "enistic1", MeterID: "grid"})
	if !ok {
		t.Fatalf("expected grid meter owner")
	}
	if owner.Asset.Name != "Mains" || owner.Diagnostic() {
		t.Fatalf("unexpected owner: %+v", owner)
	}

	owner, ok = graph.Owner(MeterRef{Module: "enistic1", MeterID: "kitchen"})
	if !ok {
		t.Fatalf("expected kitchen meter owner")
	}
	if owner.Asset.Name != "Total Load" || !owner.Diagnostic() {
		t.Fatalf("expected diagnostic circuit owner, got %+v", owner)
	}

	if graph.Grid() == nil || graph.Grid().Name != "Mains" {
		t.Fatalf("expected Mains as grid asset")
	}
}

func TestResolveBindingModes(t *testing.T) {
	graph, err := NewGraph(testAssets(t), testModules())
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}

	direct, err := graph.ResolveBinding("Mains", "")
	if err != nil {
		t.Fatalf("resolve direct: %v", err)
	}
	if direct.Module != "enistic1" || direct.MeterID != "grid" || direct.Channel != -1 {
		t.Fatalf("unexpected direct binding: %+v", direct)
	}

	decomposed, err := graph.ResolveBinding("Total Load", "Kitchen")
	if err != nil {
		t.Fatalf("resolve circuit: %v", err)
	}
	if decomposed.Channel != 3 {
		t.Fatalf("expected channel 3, got %d", decomposed.Channel)
	}

	selector, err := graph.ResolveBinding("Solar", "")
	if err != nil {
		t.Fatalf("resolve selector: %v", err)
	}
	if selector.Reading != "pv1" {
		t.Fatalf("expected pv1 reading selector, got %q", selector.Reading)
	}
}

func TestResolveBindingUnknown(t *testing.T) {
	graph, err := NewGraph(testAssets(t), testModules())
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}

	if _, err := graph.ResolveBinding("Wind", ""); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
	if _, err := graph.ResolveBinding("Total Load", "Garage"); !errors.Is(err, ErrUnknownMeter) {
		t.Fatalf("expected ErrUnknownMeter, got %v", err)
	}
}

func TestNewGraphRejectsWholeConfiguration(t *testing.T) {
	assets := testAssets(t)
	assets[1].Meter = MeterRef{Module: "goodwe1", MeterID: "missing"}

	if _, err := NewGraph(assets, testModules()); !errors.Is(err, ErrUnknownMeter) {
		t.Fatalf("expected ErrUnknownMeter, got %v", err)
	}
}

func TestNewGraphGridInvariant(t *testing.T) {
	assets := testAssets(t)

	// No grid at all.
	if _, err := NewGraph(assets[1:], testModules()); !errors.Is(err, ErrGridCount) {
		t.Fatalf("expected ErrGridCount without grid, got %v", err)
	}

	// Two grids.
	second := *assets[0]
	second.Name = "Mains 2"
	second.Meter = MeterRef{Module: "enistic1", MeterID: "load"}
	withTwo := []*Asset{assets[0], &second}
	if _, err := NewGraph(withTwo, testModules()); !errors.Is(err, ErrGridCount) {
		t.Fatalf("expected ErrGridCount with two grids, got %v", err)
	}
}
