package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	site "homesite-energy/internal/site/domain"
	tariff "homesite-energy/internal/tariff/domain"
)

// ErrInvalidSite is wrapped by every site document validation failure.
var ErrInvalidSite = errors.New("config: invalid site document")

// RateDoc is one tariff rate in the site document.
type RateDoc struct {
	ID         string  `yaml:"id"`
	Start      string  `yaml:"start"`
	Amount     float64 `yaml:"amount"`
	TaxPercent float64 `yaml:"tax_percent"`
	Unit       string  `yaml:"unit"`
}

// StandingDoc is a daily standing charge in the site document.
type StandingDoc struct {
	DailyAmount float64 `yaml:"daily_amount"`
	TaxPercent  float64 `yaml:"tax_percent"`
}

// TariffDoc is one named tariff in the site document.
type TariffDoc struct {
	Name      string       `yaml:"name"`
	Direction string       `yaml:"direction"`
	Standing  *StandingDoc `yaml:"standing"`
	Rates     []RateDoc    `yaml:"rates"`
}

// MeterRefDoc addresses a meter on a module.
type MeterRefDoc struct {
	Module string `yaml:"module"`
	ID     string `yaml:"id"`
}

// BatteryDoc carries battery nameplate figures.
type BatteryDoc struct {
	CapacityKWh    float64 `yaml:"capacity_kwh"`
	UsableFraction float64 `yaml:"usable_fraction"`
	MaxChargeKW    float64 `yaml:"max_charge_kw"`
}

// CircuitDoc is a diagnostic sub-circuit under an asset.
type CircuitDoc struct {
	Name  string      `yaml:"name"`
	Meter MeterRefDoc `yaml:"meter"`
}

// AssetDoc is one power asset in the site document.
type AssetDoc struct {
	Name     string            `yaml:"name"`
	Type     string            `yaml:"type"`
	Meter    MeterRefDoc       `yaml:"meter"`
	Tariffs  map[string]string `yaml:"tariffs"`
	Compare  string            `yaml:"compare"`
	Battery  *BatteryDoc       `yaml:"battery"`
	Circuits []CircuitDoc      `yaml:"circuits"`
}

// MeterDoc is one meter exposed by a module. Channel is a pointer so
// "not multiplexed" and "channel 0" stay distinguishable.
type MeterDoc struct {
	ID      string `yaml:"id"`
	Channel *int   `yaml:"channel"`
	Reading string `yaml:"reading"`
}

// ModuleDoc is one hardware module in the site document.
type ModuleDoc struct {
	Name   string     `yaml:"name"`
	Type   string     `yaml:"type"`
	Meters []MeterDoc `yaml:"meters"`
}

// SiteDoc is the root of the site document.
type SiteDoc struct {
	Site struct {
		Name     string `yaml:"name"`
		Timezone string `yaml:"timezone"`
	} `yaml:"site"`
	Tariffs []TariffDoc `yaml:"tariffs"`
	Power   []AssetDoc  `yaml:"power"`
	Modules []ModuleDoc `yaml:"module"`
}

// Site is a fully validated site: the binding graph plus the tariff
// catalogue and site metadata. Construction is atomic; a document with
// any invalid element yields no Site at all.
type Site struct {
	Name     string
	Location *time.Location
	Graph    *site.Graph
	Tariffs  map[string]*tariff.Tariff
}

// Load reads and validates a site document from a file.
func Load(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse validates a site document.
func Parse(data []byte) (*Site, error) {
	var doc SiteDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSite, err)
	}

	location := time.UTC
	if doc.Site.Timezone != "" {
		loc, err := time.LoadLocation(doc.Site.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidSite, doc.Site.Timezone, err)
		}
		location = loc
	}

	tariffs, err := buildTariffs(doc.Tariffs)
	if err != nil {
		return nil, err
	}
	assets, err := buildAssets(doc.Power, tariffs)
	if err != nil {
		return nil, err
	}
	modules, err := buildModules(doc.Modules)
	if err != nil {
		return nil, err
	}

	graph, err := site.NewGraph(assets, modules)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSite, err)
	}

	return &Site{
		Name:     doc.Site.Name,
		Location: location,
		Graph:    graph,
		Tariffs:  tariffs,
	}, nil
}

func buildTariffs(docs []TariffDoc) (map[string]*tariff.Tariff, error) {
	tariffs := make(map[string]*tariff.Tariff, len(docs))
	for _, doc := range docs {
		if doc.Name == "" {
			return nil, fmt.Errorf("%w: tariff without name", ErrInvalidSite)
		}
		if _, exists := tariffs[doc.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate tariff %q", ErrInvalidSite, doc.Name)
		}
		direction, err := parseDirection(doc.Direction)
		if err != nil {
			return nil, fmt.Errorf("%w: tariff %q: %v", ErrInvalidSite, doc.Name, err)
		}

		rates := make([]tariff.Rate, 0, len(doc.Rates))
		for _, rateDoc := range doc.Rates {
			start, err := tariff.ParseTimeOfDay(rateDoc.Start)
			if err != nil {
				return nil, fmt.Errorf("%w: tariff %q rate %q: %v", ErrInvalidSite, doc.Name, rateDoc.ID, err)
			}
			rates = append(rates, tariff.Rate{
				ID:         rateDoc.ID,
				Start:      start,
				Amount:     rateDoc.Amount,
				TaxPercent: rateDoc.TaxPercent,
				Unit:       tariff.Unit(rateDoc.Unit),
			})
		}

		var standing *tariff.StandingCharge
		if doc.Standing != nil {
			standing = &tariff.StandingCharge{
				DailyAmount: doc.Standing.DailyAmount,
				TaxPercent:  doc.Standing.TaxPercent,
			}
		}

		made, err := tariff.NewTariff(doc.Name, direction, rates, standing)
		if err != nil {
			return nil, fmt.Errorf("%w: tariff %q: %v", ErrInvalidSite, doc.Name, err)
		}
		tariffs[doc.Name] = made
	}
	return tariffs, nil
}

func buildAssets(docs []AssetDoc, tariffs map[string]*tariff.Tariff) ([]*site.Asset, error) {
	assets := make([]*site.Asset, 0, len(docs))
	for _, doc := range docs {
		if doc.Name == "" {
			return nil, fmt.Errorf("%w: asset without name", ErrInvalidSite)
		}

		bound := make(map[tariff.Direction]*tariff.Tariff, len(doc.Tariffs))
		for directionName, tariffName := range doc.Tariffs {
			direction, err := parseDirection(directionName)
			if err != nil {
				return nil, fmt.Errorf("%w: asset %q: %v", ErrInvalidSite, doc.Name, err)
			}
			ref, ok := tariffs[tariffName]
			if !ok {
				return nil, fmt.Errorf("%w: asset %q references unknown tariff %q", ErrInvalidSite, doc.Name, tariffName)
			}
			if ref.Direction() != direction {
				return nil, fmt.Errorf("%w: asset %q binds %s tariff %q as %s", ErrInvalidSite, doc.Name, ref.Direction(), tariffName, direction)
			}
			bound[direction] = ref
		}

		var compare *tariff.Tariff
		if doc.Compare != "" {
			ref, ok := tariffs[doc.Compare]
			if !ok {
				return nil, fmt.Errorf("%w: asset %q references unknown comparison tariff %q", ErrInvalidSite, doc.Name, doc.Compare)
			}
			compare = ref
		}

		var battery *site.BatterySpec
		if doc.Battery != nil {
			battery = &site.BatterySpec{
				CapacityKWh:    doc.Battery.CapacityKWh,
				UsableFraction: doc.Battery.UsableFraction,
				MaxChargeKW:    doc.Battery.MaxChargeKW,
			}
		}

		circuits := make([]site.SubCircuit, 0, len(doc.Circuits))
		for _, circuitDoc := range doc.Circuits {
			if circuitDoc.Name == "" {
				return nil, fmt.Errorf("%w: asset %q has a circuit without name", ErrInvalidSite, doc.Name)
			}
			circuits = append(circuits, site.SubCircuit{
				Name:  circuitDoc.Name,
				Meter: site.MeterRef{Module: circuitDoc.Meter.Module, MeterID: circuitDoc.Meter.ID},
			})
		}

		assets = append(assets, &site.Asset{
			Name:     doc.Name,
			Type:     site.AssetType(doc.Type),
			Meter:    site.MeterRef{Module: doc.Meter.Module, MeterID: doc.Meter.ID},
			Tariffs:  bound,
			Compare:  compare,
			Battery:  battery,
			Circuits: circuits,
		})
	}
	return assets, nil
}

func buildModules(docs []ModuleDoc) ([]site.Module, error) {
	modules := make([]site.Module, 0, len(docs))
	for _, doc := range docs {
		if doc.Name == "" {
			return nil, fmt.Errorf("%w: module without name", ErrInvalidSite)
		}
		meters := make([]site.ModuleMeter, 0, len(doc.Meters))
		for _, meterDoc := range doc.Meters {
			if meterDoc.ID == "" {
				return nil, fmt.Errorf("%w: module %q has a meter without id", ErrInvalidSite, doc.Name)
			}
			channel := -1
			if meterDoc.Channel != nil {
				channel = *meterDoc.Channel
			}
			meters = append(meters, site.ModuleMeter{
				ID:      meterDoc.ID,
				Channel: channel,
				Reading: meterDoc.Reading,
			})
		}
		modules = append(modules, site.Module{
			Name:   doc.Name,
			Type:   doc.Type,
			Meters: meters,
		})
	}
	return modules, nil
}

func parseDirection(name string) (tariff.Direction, error) {
	switch name {
	case string(tariff.DirectionExpenditure):
		return tariff.DirectionExpenditure, nil
	case string(tariff.DirectionIncome):
		return tariff.DirectionIncome, nil
	default:
		return "", fmt.Errorf("unknown direction %q", name)
	}
}
