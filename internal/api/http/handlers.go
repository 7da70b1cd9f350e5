package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"time"

	"homesite-energy/internal/accounting/application"
	accounting "homesite-energy/internal/accounting/domain"
	"homesite-energy/internal/config"
	ledger "homesite-energy/internal/ledger/domain"
	"homesite-energy/internal/ledger/interfaces"
	"homesite-energy/internal/observability/metrics"
	site "homesite-energy/internal/site/domain"
)

const timeLayout = time.RFC3339

// SummaryHandler serves aggregated ledger summaries.
type SummaryHandler struct {
	store accounting.PostingStore
	site  *config.Site
}

// SummaryOption configures a SummaryHandler.
type SummaryOption func(*SummaryHandler)

// WithSite enables derived battery figures in the summary response.
func WithSite(loaded *config.Site) SummaryOption {
	return func(h *SummaryHandler) { h.site = loaded }
}

// NewSummaryHandler constructs a SummaryHandler.
func NewSummaryHandler(store accounting.PostingStore, opts ...SummaryOption) *SummaryHandler {
	h := &SummaryHandler{store: store}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type summaryResponse struct {
	ledger.Summary
	Battery []batteryCycleLine `json:"battery,omitempty"`
}

// batteryCycleLine reports battery throughput over the summary window
// as equivalent full cycles of the usable capacity.
type batteryCycleLine struct {
	Asset            string  `json:"asset"`
	ThroughputKWh    float64 `json:"throughput_kwh"`
	UsableKWh        float64 `json:"usable_kwh"`
	EquivalentCycles float64 `json:"equivalent_cycles"`
}

func batteryCycles(loaded *config.Site, summary ledger.Summary) []batteryCycleLine {
	var lines []batteryCycleLine
	for _, asset := range loaded.Graph.Assets() {
		if asset.Battery == nil {
			continue
		}
		line := batteryCycleLine{Asset: asset.Name, UsableKWh: asset.Battery.UsableKWh()}
		for _, aggregated := range summary.Assets {
			if aggregated.Asset == asset.Name {
				line.ThroughputKWh = aggregated.EnergyKWh
			}
		}
		if line.UsableKWh > 0 {
			line.EquivalentCycles = line.ThroughputKWh / line.UsableKWh
		}
		lines = append(lines, line)
	}
	return lines
}

// ServeHTTP handles GET /api/v1/ledger/summary.
func (h *SummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.store == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	summary, err := loadSummary(r, h.store)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := summaryResponse{Summary: summary}
	if h.site != nil {
		response.Battery = batteryCycles(h.site, summary)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// ExportSummaryHandler serves ledger summary exports; the format comes
// from the path suffix: summary.csv, summary.xlsx or summary.pdf.
type ExportSummaryHandler struct {
	store accounting.PostingStore
}

// NewExportSummaryHandler constructs an ExportSummaryHandler.
func NewExportSummaryHandler(store accounting.PostingStore) *ExportSummaryHandler {
	return &ExportSummaryHandler{store: store}
}

// ServeHTTP handles GET /api/v1/exports/summary.{csv,xlsx,pdf}.
func (h *ExportSummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.store == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	started := time.Now()

	format := path.Ext(r.URL.Path)
	if format != "" {
		format = format[1:]
	}

	summary, err := loadSummary(r, h.store)
	if err != nil {
		metrics.ObserveSummaryExport(format, metrics.ResultError, time.Since(started))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var body []byte
	var contentType string
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
		body, err = interfaces.BuildSummaryCSV(summary)
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		body, err = interfaces.BuildSummaryXLSX(summary)
	case "pdf":
		contentType = "application/pdf"
		body, err = interfaces.BuildSummaryPDF(summary)
	default:
		metrics.ObserveSummaryExport(format, metrics.ResultError, time.Since(started))
		http.Error(w, "unsupported export format", http.StatusNotFound)
		return
	}
	if err != nil {
		metrics.ObserveSummaryExport(format, metrics.ResultError, time.Since(started))
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}

	metrics.ObserveSummaryExport(format, metrics.ResultSuccess, time.Since(started))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="summary.`+format+`"`)
	_, _ = w.Write(body)
}

// ErrorsHandler serves the accounting error report.
type ErrorsHandler struct {
	tracker *application.ErrorTracker
}

// NewErrorsHandler constructs an ErrorsHandler.
func NewErrorsHandler(tracker *application.ErrorTracker) *ErrorsHandler {
	return &ErrorsHandler{tracker: tracker}
}

// ServeHTTP handles GET /api/v1/errors.
func (h *ErrorsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.tracker == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.tracker.Snapshot())
}

// SiteHandler describes the configured site, including derived battery
// figures.
type SiteHandler struct {
	site *config.Site
}

// NewSiteHandler constructs a SiteHandler.
func NewSiteHandler(loaded *config.Site) *SiteHandler {
	return &SiteHandler{site: loaded}
}

type batteryView struct {
	CapacityKWh    float64 `json:"capacity_kwh"`
	UsableFraction float64 `json:"usable_fraction"`
	UsableKWh      float64 `json:"usable_kwh"`
	MaxChargeKW    float64 `json:"max_charge_kw"`
	// FullChargeHours is the time to charge the usable capacity at the
	// maximum charge rate.
	FullChargeHours float64 `json:"full_charge_hours,omitempty"`
}

type circuitView struct {
	Name  string `json:"name"`
	Meter string `json:"meter"`
}

type assetView struct {
	Name     string        `json:"name"`
	Type     string        `json:"type"`
	Meter    string        `json:"meter"`
	Tariffs  []string      `json:"tariffs,omitempty"`
	Compare  string        `json:"compare,omitempty"`
	Battery  *batteryView  `json:"battery,omitempty"`
	Circuits []circuitView `json:"circuits,omitempty"`
}

type siteView struct {
	Name     string      `json:"name"`
	Timezone string      `json:"timezone"`
	Assets   []assetView `json:"assets"`
}

// ServeHTTP handles GET /api/v1/site.
func (h *SiteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.site == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	view := siteView{
		Name:     h.site.Name,
		Timezone: h.site.Location.String(),
	}
	for _, asset := range h.site.Graph.Assets() {
		view.Assets = append(view.Assets, buildAssetView(asset))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
}

func buildAssetView(asset *site.Asset) assetView {
	out := assetView{
		Name:  asset.Name,
		Type:  string(asset.Type),
		Meter: asset.Meter.Module + "/" + asset.Meter.MeterID,
	}
	for _, bound := range asset.Tariffs {
		out.Tariffs = append(out.Tariffs, bound.Name())
	}
	if asset.Compare != nil {
		out.Compare = asset.Compare.Name()
	}
	if asset.Battery != nil {
		battery := &batteryView{
			CapacityKWh:    asset.Battery.CapacityKWh,
			UsableFraction: asset.Battery.UsableFraction,
			UsableKWh:      asset.Battery.UsableKWh(),
			MaxChargeKW:    asset.Battery.MaxChargeKW,
		}
		if asset.Battery.MaxChargeKW > 0 {
			battery.FullChargeHours = battery.UsableKWh / asset.Battery.MaxChargeKW
		}
		out.Battery = battery
	}
	for _, circuit := range asset.Circuits {
		out.Circuits = append(out.Circuits, circuitView{
			Name:  circuit.Name,
			Meter: circuit.Meter.Module + "/" + circuit.Meter.MeterID,
		})
	}
	return out
}

// HealthHandler reports liveness.
type HealthHandler struct{}

// ServeHTTP handles GET /healthz.
func (HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// loadSummary reads the window from the request, lists matching
// postings and folds them. Missing bounds default to an open window.
func loadSummary(r *http.Request, store accounting.PostingStore) (ledger.Summary, error) {
	from, err := parseTimeQuery(r, "from", time.Time{})
	if err != nil {
		return ledger.Summary{}, err
	}
	to, err := parseTimeQuery(r, "to", time.Time{})
	if err != nil {
		return ledger.Summary{}, err
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return ledger.Summary{}, errors.New("to must be after from")
	}

	postings, err := store.ListBetween(r.Context(), from, to)
	if err != nil {
		return ledger.Summary{}, errors.New("query postings error")
	}
	return ledger.Summarize(postings), nil
}

func parseTimeQuery(r *http.Request, key string, fallback time.Time) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}
