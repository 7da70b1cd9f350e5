package mqtt

import (
	"testing"
	"time"
)

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func TestParseTopicAndJSONPayload(t *testing.T) {
	s := &Subscriber{clock: fixedClock{at: time.Date(2019, 3, 1, 12, 0, 0, 0, time.UTC)}}

	reading, err := s.parse("home/energy/enistic1/grid", []byte(`{"ts":1551434400,"delta":1.5,"unit":"kWh"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if reading.Module != "enistic1" || reading.MeterID != "grid" {
		t.Fatalf("unexpected addressing: %+v", reading)
	}
	if reading.Delta != 1.5 {
		t.Fatalf("unexpected delta %v", reading.Delta)
	}
	if !reading.At.Equal(time.Unix(1551434400, 0).UTC()) {
		t.Fatalf("unexpected timestamp %v", reading.At)
	}
}

func TestParseBareNumberUsesClock(t *testing.T) {
	now := time.Date(2019, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Subscriber{clock: fixedClock{at: now}}

	reading, err := s.parse("energy/goodwe1/pv", []byte("0.25"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if reading.Delta != 0.25 {
		t.Fatalf("unexpected delta %v", reading.Delta)
	}
	if !reading.At.Equal(now) {
		t.Fatalf("expected clock timestamp, got %v", reading.At)
	}
}

func TestParseMillisecondTimestamp(t *testing.T) {
	s := &Subscriber{clock: fixedClock{at: time.Now()}}

	reading, err := s.parse("energy/enistic1/grid", []byte(`{"ts":1551434400000,"delta":1}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reading.At.Equal(time.UnixMilli(1551434400000).UTC()) {
		t.Fatalf("unexpected timestamp %v", reading.At)
	}
}

func TestParseRejectsBadTopicsAndPayloads(t *testing.T) {
	s := &Subscriber{clock: fixedClock{at: time.Now()}}

	if _, err := s.parse("shallow", []byte("1")); err == nil {
		t.Fatalf("expected error for topic without segments")
	}
	if _, err := s.parse("energy/enistic1/", []byte("1")); err == nil {
		t.Fatalf("expected error for empty meter segment")
	}
	if _, err := s.parse("energy/enistic1/grid", []byte("{broken")); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}
