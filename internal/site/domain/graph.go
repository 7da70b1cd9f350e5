package site

import "fmt"

// Owner names the asset a meter reports for, and the sub-circuit when
// the meter is a diagnostic circuit meter rather than the primary one.
type Owner struct {
	Asset   *Asset
	Circuit string
}

// Diagnostic reports whether readings from this meter are diagnostic
// only (sub-circuit) rather than billing-authoritative.
func (o Owner) Diagnostic() bool { return o.Circuit != "" }

// Graph maps site assets to their physical meters. Built once from
// configuration and read-only afterwards, so it needs no locking.
type Graph struct {
	assets   map[string]*Asset
	ordered  []*Asset
	physical map[MeterRef]PhysicalMeterRef
	owners   map[MeterRef]Owner
	grid     *Asset
}

// NewGraph validates assets against module definitions and builds the
// binding graph. Validation is atomic: any unknown or duplicate
// binding rejects the whole configuration.
func NewGraph(assets []*Asset, modules []Module) (*Graph, error) {
	physical := make(map[MeterRef]PhysicalMeterRef)
	for _, module := range modules {
		for _, meter := range module.Meters {
			ref := MeterRef{Module: module.Name, MeterID: meter.ID}
			if _, exists := physical[ref]; exists {
				return nil, fmt.Errorf("%w: %s/%s declared twice", ErrDuplicateMeter, ref.Module, ref.MeterID)
			}
			physical[ref] = PhysicalMeterRef{
				Module:  module.Name,
				MeterID: meter.ID,
				Channel: meter.Channel,
				Reading: meter.Reading,
			}
		}
	}

	g := &Graph{
		assets:   make(map[string]*Asset, len(assets)),
		physical: physical,
		owners:   make(map[MeterRef]Owner),
	}

	for _, asset := range assets {
		if asset == nil || asset.Name == "" {
			return nil, ErrUnknownAsset
		}
		if !asset.Type.Valid() {
			return nil, fmt.Errorf("%w: %q on asset %s", ErrInvalidAssetType, asset.Type, asset.Name)
		}
		if _, exists := g.assets[asset.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAsset, asset.Name)
		}
		if len(asset.Tariffs) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingTariff, asset.Name)
		}

		if err := g.bind(asset.Meter, Owner{Asset: asset}); err != nil {
			return nil, fmt.Errorf("asset %s: %w", asset.Name, err)
		}
		for _, circuit := range asset.Circuits {
			if err := g.bind(circuit.Meter, Owner{Asset: asset, Circuit: circuit.Name}); err != nil {
				return nil, fmt.Errorf("asset %s circuit %s: %w", asset.Name, circuit.Name, err)
			}
		}

		if asset.Type == AssetGrid {
			if g.grid != nil {
				return nil, ErrGridCount
			}
			g.grid = asset
		}

		g.assets[asset.Name] = asset
		g.ordered = append(g.ordered, asset)
	}

	if g.grid == nil {
		return nil, ErrGridCount
	}
	return g, nil
}

func (g *Graph) bind(ref MeterRef, owner Owner) error {
	if _, known := g.physical[ref]; !known {
		return fmt.Errorf("%w: %s/%s", ErrUnknownMeter, ref.Module, ref.MeterID)
	}
	if existing, bound := g.owners[ref]; bound {
		return fmt.Errorf("%w: %s/%s already bound to %s", ErrDuplicateMeter, ref.Module, ref.MeterID, existing.Asset.Name)
	}
	g.owners[ref] = owner
	return nil
}

// ResolveBinding returns the physical meter behind an asset's primary
// meter, or behind one of its named sub-circuits.
func (g *Graph) ResolveBinding(assetName, circuit string) (PhysicalMeterRef, error) {
	asset, ok := g.assets[assetName]
	if !ok {
		return PhysicalMeterRef{}, fmt.Errorf("%w: %s", ErrUnknownAsset, assetName)
	}
	if circuit == "" {
		return g.physical[asset.Meter], nil
	}
	for _, sub := range asset.Circuits {
		if sub.Name == circuit {
			return g.physical[sub.Meter], nil
		}
	}
	return PhysicalMeterRef{}, fmt.Errorf("%w: %s on asset %s", ErrUnknownMeter, circuit, assetName)
}

// Owner returns the asset a meter reports for.
func (g *Graph) Owner(ref MeterRef) (Owner, bool) {
	owner, ok := g.owners[ref]
	return owner, ok
}

// Asset returns a registered asset by name.
func (g *Graph) Asset(name string) (*Asset, bool) {
	asset, ok := g.assets[name]
	return asset, ok
}

// Grid returns the single grid asset.
func (g *Graph) Grid() *Asset { return g.grid }

// Assets returns assets in configuration order.
func (g *Graph) Assets() []*Asset {
	out := make([]*Asset, len(g.ordered))
	copy(out, g.ordered)
	return out
}
