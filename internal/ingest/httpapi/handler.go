package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"homesite-energy/internal/accounting/application"
	accounting "homesite-energy/internal/accounting/domain"
	"homesite-energy/internal/observability/metrics"
	tariff "homesite-energy/internal/tariff/domain"
)

const transportHTTP = "http"

// IngestHandler accepts batches of meter readings over HTTP.
type IngestHandler struct {
	recorder *application.Recorder
	logger   *log.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(recorder *application.Recorder, logger *log.Logger) (*IngestHandler, error) {
	if recorder == nil {
		return nil, errors.New("reading ingest: nil recorder")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestHandler{recorder: recorder, logger: logger}, nil
}

// ServeHTTP ingests a reading batch.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	started := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("reading ingest: read body error: %v", err)
		metrics.ObserveIngest(transportHTTP, metrics.ResultError, time.Since(started))
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req ingestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Printf("reading ingest: decode error: %v", err)
		metrics.ObserveIngest(transportHTTP, metrics.ResultError, time.Since(started))
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	readings, err := req.toReadings()
	if err != nil {
		h.logger.Printf("reading ingest: invalid payload: %v", err)
		metrics.ObserveIngest(transportHTTP, metrics.ResultError, time.Since(started))
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	result, err := h.recorder.RecordBatch(r.Context(), readings)
	if err != nil {
		h.logger.Printf("reading ingest: store error: %v", err)
		metrics.ObserveIngest(transportHTTP, metrics.ResultError, time.Since(started))
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}

	metrics.ObserveIngest(transportHTTP, metrics.ResultSuccess, time.Since(started))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

type ingestRequest struct {
	Module   string         `json:"module"`
	Readings []ingestReading `json:"readings"`
}

type ingestReading struct {
	Module  string  `json:"module"`
	MeterID string  `json:"meter_id"`
	TS      int64   `json:"ts"`
	Delta   float64 `json:"delta"`
	Unit    string  `json:"unit"`
}

func (r ingestRequest) toReadings() ([]accounting.Reading, error) {
	if len(r.Readings) == 0 {
		return nil, errors.New("no readings")
	}

	readings := make([]accounting.Reading, 0, len(r.Readings))
	for _, in := range r.Readings {
		module := in.Module
		if module == "" {
			module = r.Module
		}
		if module == "" || in.MeterID == "" {
			return nil, errors.New("missing module/meter_id")
		}
		at, err := parseTimestamp(in.TS)
		if err != nil {
			return nil, err
		}
		readings = append(readings, accounting.Reading{
			Module:  module,
			MeterID: in.MeterID,
			At:      at,
			Delta:   in.Delta,
			Unit:    tariff.Unit(in.Unit),
		})
	}
	return readings, nil
}

func parseTimestamp(value int64) (time.Time, error) {
	if value <= 0 {
		return time.Time{}, errors.New("invalid ts")
	}
	// Accept milliseconds or seconds.
	if value > 1_000_000_000_000 {
		return time.UnixMilli(value).UTC(), nil
	}
	return time.Unix(value, 0).UTC(), nil
}
