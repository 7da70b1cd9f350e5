package site

import (
	tariff "homesite-energy/internal/tariff/domain"
)

// AssetType is the energy role an asset plays at the site.
type AssetType string

// Site asset types.
const (
	AssetGrid    AssetType = "grid"
	AssetSolar   AssetType = "solar"
	AssetBattery AssetType = "battery"
	AssetLoad    AssetType = "load"
)

// Valid reports whether the asset type is known.
func (t AssetType) Valid() bool {
	switch t {
	case AssetGrid, AssetSolar, AssetBattery, AssetLoad:
		return true
	}
	return false
}

// MeterRef identifies a physical meter by module name and meter id.
// This is the identity readings arrive under.
type MeterRef struct {
	Module  string
	MeterID string
}

// PhysicalMeterRef is a fully resolved meter address. Channel is -1
// unless the module multiplexes several circuits onto one device;
// Reading is empty unless the module exposes named logical readings.
type PhysicalMeterRef struct {
	Module  string
	MeterID string
	Channel int
	Reading string
}

// BatterySpec carries battery attributes used for derived metrics only,
// never for pricing.
type BatterySpec struct {
	CapacityKWh    float64
	UsableFraction float64
	MaxChargeKW    float64
}

// UsableKWh returns the usable portion of the battery capacity.
func (b BatterySpec) UsableKWh() float64 {
	return b.CapacityKWh * b.UsableFraction
}

// SubCircuit is a diagnostic meter under a load asset. Sub-circuit
// readings never feed billing; the parent meter is authoritative.
type SubCircuit struct {
	Name  string
	Meter MeterRef
}

// Asset is a site-level energy role with its meters and tariffs.
type Asset struct {
	Name     string
	Type     AssetType
	Meter    MeterRef
	Tariffs  map[tariff.Direction]*tariff.Tariff
	Compare  *tariff.Tariff
	Battery  *BatterySpec
	Circuits []SubCircuit
}

// Tariff returns the tariff for a direction, or nil when the asset has
// none for it.
func (a *Asset) Tariff(direction tariff.Direction) *tariff.Tariff {
	if a == nil || a.Tariffs == nil {
		return nil
	}
	return a.Tariffs[direction]
}

// ModuleMeter is one logical meter a physical module exposes.
type ModuleMeter struct {
	ID      string
	Channel int
	Reading string
}

// Module is a physical meter module definition. Transport parameters
// stay with the polling adapters; the core only needs the meter list.
type Module struct {
	Name   string
	Type   string
	Meters []ModuleMeter
}
