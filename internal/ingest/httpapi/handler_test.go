package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"homesite-energy/internal/accounting/application"
	"homesite-energy/internal/accounting/infrastructure/memory"
	site "homesite-energy/internal/site/domain"
	tariff "homesite-energy/internal/tariff/domain"
)

func newTestRecorder(t *testing.T) (*application.Recorder, *memory.PostingStore) {
	t.Helper()

	flat, err := tariff.NewTariff("Flat", tariff.DirectionExpenditure, []tariff.Rate{
		{Start: 0, Amount: 0.15, TaxPercent: 5, ID: "flat"},
	}, nil)
	if err != nil {
		t.Fatalf("new tariff: %v", err)
	}

	graph, err := site.NewGraph(
		[]*site.Asset{{
			Name:  "Mains",
			Type:  site.AssetGrid,
			Meter: site.MeterRef{Module: "enistic1", MeterID: "grid"},
			Tariffs: map[tariff.Direction]*tariff.Tariff{
				tariff.DirectionExpenditure: flat,
			},
		}},
		[]site.Module{{
			Name:   "enistic1",
			Type:   "enistic",
			Meters: []site.ModuleMeter{{ID: "grid", Channel: -1}},
		}},
	)
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}

	engine, err := application.NewEngine(graph)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	store := memory.NewPostingStore()
	recorder, err := application.NewRecorder(engine, store, log.New(&strings.Builder{}, "", 0))
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	return recorder, store
}

func TestIngestBatch(t *testing.T) {
	recorder, store := newTestRecorder(t)
	handler, err := NewIngestHandler(recorder, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	ts := time.Date(2019, 3, 1, 10, 0, 0, 0, time.UTC).Unix()
	body := `{"module":"enistic1","readings":[
		{"meter_id":"grid","ts":` + itoa(ts) + `,"delta":1.0,"unit":"kWh"},
		{"meter_id":"unknown","ts":` + itoa(ts) + `,"delta":1.0}
	]}`

	req := httptest.NewRequest(http.MethodPost, "/ingest/readings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Posted  int `json:"posted"`
		Dropped int `json:"dropped"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Posted == 0 {
		t.Fatalf("expected postings, got %+v", result)
	}
	if result.Dropped != 1 {
		t.Fatalf("expected unknown meter dropped, got %+v", result)
	}
	if store.Len() != result.Posted {
		t.Fatalf("store holds %d postings, response says %d", store.Len(), result.Posted)
	}
}

func TestIngestAcceptsMillisecondTimestamps(t *testing.T) {
	recorder, store := newTestRecorder(t)
	handler, _ := NewIngestHandler(recorder, nil)

	ms := time.Date(2019, 3, 1, 10, 0, 0, 0, time.UTC).UnixMilli()
	body := `{"module":"enistic1","readings":[{"meter_id":"grid","ts":` + itoa(ms) + `,"delta":1.0}]}`
	req := httptest.NewRequest(http.MethodPost, "/ingest/readings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	postings, err := store.ListBetween(req.Context(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(postings) == 0 {
		t.Fatalf("expected stored postings")
	}
	want := time.Date(2019, 3, 1, 10, 0, 0, 0, time.UTC)
	if !postings[len(postings)-1].At.Equal(want) {
		t.Fatalf("timestamp not parsed as milliseconds: %v", postings[len(postings)-1].At)
	}
}

func TestIngestRejectsBadRequests(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	handler, _ := NewIngestHandler(recorder, nil)

	cases := []struct {
		name string
		body string
	}{
		{"garbage", "{not json"},
		{"empty batch", `{"module":"enistic1","readings":[]}`},
		{"missing meter", `{"readings":[{"ts":1551434400,"delta":1}]}`},
		{"zero ts", `{"module":"enistic1","readings":[{"meter_id":"grid","ts":0,"delta":1}]}`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/ingest/readings", strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/ingest/readings", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", rec.Code)
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
