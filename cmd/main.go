package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-tracks/internal/config"
	"github.com/ukydev/fleet-tracks/internal/db"
	"github.com/ukydev/fleet-tracks/internal/events"
	"github.com/ukydev/fleet-tracks/internal/handlers"
	"github.com/ukydev/fleet-tracks/internal/ingest"
	"github.com/ukydev/fleet-tracks/internal/metrics"
	"github.com/ukydev/fleet-tracks/internal/middleware"
	"github.com/ukydev/fleet-tracks/internal/retrieval"
)

func openStore(ctx context.Context, cfg *config.Config) (db.TripStore, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := db.ConnectMongo(cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		store, err := db.NewMongoStore(ctx, client, cfg.MongoDB)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return store, nil
	default:
		store, err := db.ConnectSQLWithRetry(cfg.StoreDriver, cfg.DSN, cfg.ConnectAttempts, cfg.ConnectRetryDelay)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// newPublisher connects to MQTT when a broker is configured. A broker that is
// down at startup only disables events; uploads keep working.
func newPublisher(ctx context.Context, cfg *config.Config) (events.Publisher, func()) {
	if cfg.MQTTBroker == "" {
		return events.NopPublisher{}, func() {}
	}
	pub := events.NewMQTTPublisher(events.MQTTConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
		Topic:    cfg.MQTTTopic,
		QoS:      1,
	})
	if err := pub.Connect(ctx); err != nil {
		log.WithError(err).WithField("broker", cfg.MQTTBroker).Warn("MQTT unavailable, trip events disabled")
		pub.Close()
		return events.NopPublisher{}, func() {}
	}
	return pub, pub.Close
}

// newRouter wires the services, middleware and routes.
func newRouter(cfg *config.Config, store db.TripStore, publisher events.Publisher, registry *prometheus.Registry) (http.Handler, error) {
	m, err := metrics.NewTrackMetrics(registry)
	if err != nil {
		return nil, err
	}

	ingester := ingest.NewService(store, publisher, m)
	reader := retrieval.NewService(store, cfg.ContentCacheTTL, m)
	limiter := middleware.NewRateLimitMiddleware(cfg.TrustProxyHeaders)

	r := mux.NewRouter()
	handlers.NewTrackHandler(ingester, reader).Register(r, limiter.RateLimit(cfg.UploadRateLimit, cfg.UploadRateWindow))
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// CORS sits outside the router so preflights are answered before route matching.
	return middleware.CORS(cfg.CORSOrigin)(middleware.RequestLogger(r)), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if err := cfg.ConfigureLogging(); err != nil {
		log.WithError(err).Fatal("Invalid logging configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.WithError(err).WithField("driver", cfg.StoreDriver).Fatal("Failed to open store")
	}
	log.WithField("driver", cfg.StoreDriver).Info("Connected to store")

	publisher, closePublisher := newPublisher(ctx, cfg)
	defer closePublisher()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler, err := newRouter(cfg, store, publisher, registry)
	if err != nil {
		log.WithError(err).Fatal("Failed to build router")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to close store")
	}
}
