package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"homesite-energy/internal/accounting/application"
	accounting "homesite-energy/internal/accounting/domain"
	"homesite-energy/internal/observability/metrics"
	tariff "homesite-energy/internal/tariff/domain"
)

const transportMQTT = "mqtt"

// Config carries broker settings for the reading subscriber.
type Config struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	// TopicRoot is the first topic segment; readings arrive on
	// <root>/<module>/<meter-id>.
	TopicRoot string
}

// Subscriber consumes meter readings from an MQTT broker.
type Subscriber struct {
	cfg      Config
	recorder *application.Recorder
	logger   *log.Logger
	clock    application.Clock
	client   paho.Client
}

// SubscriberOption configures the subscriber.
type SubscriberOption func(*Subscriber)

// WithClock overrides the clock used when payloads omit a timestamp.
func WithClock(clock application.Clock) SubscriberOption {
	return func(s *Subscriber) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewSubscriber constructs a subscriber.
func NewSubscriber(cfg Config, recorder *application.Recorder, logger *log.Logger, opts ...SubscriberOption) (*Subscriber, error) {
	if cfg.BrokerURL == "" {
		return nil, errors.New("mqtt ingest: broker url required")
	}
	if cfg.TopicRoot == "" {
		return nil, errors.New("mqtt ingest: topic root required")
	}
	if recorder == nil {
		return nil, errors.New("mqtt ingest: nil recorder")
	}
	if logger == nil {
		logger = log.Default()
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "homesite-energy"
	}

	s := &Subscriber{
		cfg:      cfg,
		recorder: recorder,
		logger:   logger,
		clock:    application.SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run connects, subscribes and blocks until the context is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	opts := paho.NewClientOptions()
	opts.AddBroker(s.cfg.BrokerURL)
	opts.SetClientID(s.cfg.ClientID)
	opts.SetUsername(s.cfg.Username)
	opts.SetPassword(s.cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	opts.SetConnectionLostHandler(func(client paho.Client, err error) {
		s.logger.Printf("mqtt ingest: connection lost: %v", err)
	})
	opts.SetOnConnectHandler(func(client paho.Client) {
		topic := s.cfg.TopicRoot + "/+/+"
		token := client.Subscribe(topic, 1, func(client paho.Client, msg paho.Message) {
			s.handle(ctx, msg)
		})
		if token.Wait() && token.Error() != nil {
			s.logger.Printf("mqtt ingest: subscribe %s: %v", topic, token.Error())
			return
		}
		s.logger.Printf("mqtt ingest: subscribed to %s", topic)
	})

	s.client = paho.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	<-ctx.Done()
	if s.client.IsConnected() {
		s.client.Disconnect(250)
	}
	return ctx.Err()
}

// handle accounts one message. Malformed messages are logged and
// dropped; the subscription stays up.
func (s *Subscriber) handle(ctx context.Context, msg paho.Message) {
	started := time.Now()

	reading, err := s.parse(msg.Topic(), msg.Payload())
	if err != nil {
		s.logger.Printf("mqtt ingest: drop %s: %v", msg.Topic(), err)
		metrics.ObserveIngest(transportMQTT, metrics.ResultError, time.Since(started))
		return
	}

	if _, err := s.recorder.Record(ctx, reading); err != nil {
		s.logger.Printf("mqtt ingest: drop %s/%s: %v", reading.Module, reading.MeterID, err)
		metrics.ObserveIngest(transportMQTT, metrics.ResultError, time.Since(started))
		return
	}
	metrics.ObserveIngest(transportMQTT, metrics.ResultSuccess, time.Since(started))
}

type mqttReading struct {
	TS    int64   `json:"ts"`
	Delta float64 `json:"delta"`
	Unit  string  `json:"unit"`
}

// parse extracts a reading from a topic and payload. The payload is
// either a JSON object or a bare energy delta, which is stamped with
// the current time.
func (s *Subscriber) parse(topic string, payload []byte) (accounting.Reading, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return accounting.Reading{}, errors.New("topic missing module/meter segments")
	}
	module := parts[len(parts)-2]
	meterID := parts[len(parts)-1]
	if module == "" || meterID == "" {
		return accounting.Reading{}, errors.New("empty module/meter segment")
	}

	trimmed := strings.TrimSpace(string(payload))
	if delta, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return accounting.Reading{
			Module:  module,
			MeterID: meterID,
			At:      s.clock.Now(),
			Delta:   delta,
		}, nil
	}

	var body mqttReading
	if err := json.Unmarshal(payload, &body); err != nil {
		return accounting.Reading{}, err
	}
	at := s.clock.Now()
	if body.TS > 0 {
		if body.TS > 1_000_000_000_000 {
			at = time.UnixMilli(body.TS).UTC()
		} else {
			at = time.Unix(body.TS, 0).UTC()
		}
	}
	return accounting.Reading{
		Module:  module,
		MeterID: meterID,
		At:      at,
		Delta:   body.Delta,
		Unit:    tariff.Unit(body.Unit),
	}, nil
}
