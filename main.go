package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"homesite-energy/internal/accounting/application"
	accounting "homesite-energy/internal/accounting/domain"
	accountingmemory "homesite-energy/internal/accounting/infrastructure/memory"
	accountingpostgres "homesite-energy/internal/accounting/infrastructure/postgres"
	apihttp "homesite-energy/internal/api/http"
	"homesite-energy/internal/auth"
	siteconfig "homesite-energy/internal/config"
	ingesthttp "homesite-energy/internal/ingest/httpapi"
	ingestmqtt "homesite-energy/internal/ingest/mqtt"
	"homesite-energy/internal/observability/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	loaded, err := siteconfig.Load(cfg.SiteConfig)
	if err != nil {
		logger.Fatalf("site config error: %v", err)
	}
	logger.Printf("site %q loaded: %d assets", loaded.Name, len(loaded.Graph.Assets()))

	var db *sql.DB
	var store accounting.PostingStore
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		store = accountingpostgres.NewPostingStore(db)
	} else {
		logger.Printf("no DATABASE_URL set, using in-memory posting store")
		store = accountingmemory.NewPostingStore()
	}

	metrics.Init(db, logger)

	tracker := application.NewErrorTracker(cfg.ErrorSamples)
	engine, err := application.NewEngine(
		loaded.Graph,
		application.WithLocation(loaded.Location),
		application.WithErrorTracker(tracker),
	)
	if err != nil {
		logger.Fatalf("accounting engine error: %v", err)
	}
	recorder, err := application.NewRecorder(engine, store, logger)
	if err != nil {
		logger.Fatalf("recorder error: %v", err)
	}

	ingestHandler, err := ingesthttp.NewIngestHandler(recorder, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}

	if cfg.MQTTBrokerURL != "" {
		subscriber, err := ingestmqtt.NewSubscriber(ingestmqtt.Config{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			TopicRoot: cfg.MQTTTopicRoot,
		}, recorder, logger)
		if err != nil {
			logger.Fatalf("mqtt subscriber error: %v", err)
		}
		go func() {
			if err := subscriber.Run(context.Background()); err != nil && err != context.Canceled {
				logger.Printf("mqtt subscriber stopped: %v", err)
			}
		}()
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	exportHandler := apihttp.NewExportSummaryHandler(store)

	mux := http.NewServeMux()
	mux.Handle("/ingest/readings", ingestHandler)
	mux.Handle("/api/v1/ledger/summary", apihttp.NewSummaryHandler(store, apihttp.WithSite(loaded)))
	mux.Handle("/api/v1/exports/summary.csv", exportHandler)
	mux.Handle("/api/v1/exports/summary.xlsx", exportHandler)
	mux.Handle("/api/v1/exports/summary.pdf", exportHandler)
	mux.Handle("/api/v1/errors", apihttp.NewErrorsHandler(tracker))
	mux.Handle("/api/v1/site", apihttp.NewSiteHandler(loaded))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", apihttp.HealthHandler{})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	SiteConfig    string
	DatabaseURL   string
	HTTPAddr      string
	JWTSecret     string
	ErrorSamples  int
	MQTTBrokerURL string
	MQTTClientID  string
	MQTTUsername  string
	MQTTPassword  string
	MQTTTopicRoot string
}

func loadConfig() config {
	cfg := config{
		SiteConfig:    getenvDefault("SITE_CONFIG", "site.yaml"),
		DatabaseURL:   getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:      getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:     getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		ErrorSamples:  getenvIntDefault("ERROR_SAMPLES", 20),
		MQTTBrokerURL: getenvDefault("MQTT_BROKER_URL", ""),
		MQTTClientID:  getenvDefault("MQTT_CLIENT_ID", "homesite-energy"),
		MQTTUsername:  getenvDefault("MQTT_USERNAME", ""),
		MQTTPassword:  getenvDefault("MQTT_PASSWORD", ""),
		MQTTTopicRoot: getenvDefault("MQTT_TOPIC_ROOT", "energy"),
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
