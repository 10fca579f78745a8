package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"

	"github.com/samirrijal/halfway/internal/adapters/google"
	"github.com/samirrijal/halfway/internal/adapters/http"
	"github.com/samirrijal/halfway/internal/adapters/kafka"
	natsadapter "github.com/samirrijal/halfway/internal/adapters/nats"
	"github.com/samirrijal/halfway/internal/adapters/postgres"
	"github.com/samirrijal/halfway/internal/adapters/valkey"
	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/ports"
	"github.com/samirrijal/halfway/internal/core/usecases"
	"github.com/samirrijal/halfway/internal/pkg/config"
	"github.com/samirrijal/halfway/internal/pkg/logging"
	"github.com/samirrijal/halfway/internal/pkg/metrics"
	"github.com/samirrijal/halfway/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("halfway-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.Google.MapsAPIKey == "" {
		log.Fatal("google.maps_api_key is required (HALFWAY_GOOGLE_MAPS_API_KEY)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	clock := clockwork.NewRealClock()

	// Providers
	googleClient := google.NewClient(google.Options{
		MapsAPIKey:     cfg.Google.MapsAPIKey,
		WeatherAPIKey:  cfg.Google.WeatherAPIKey,
		Timeout:        cfg.Google.Timeout,
		MapsBaseURL:    cfg.Google.MapsBaseURL,
		WeatherBaseURL: cfg.Google.WeatherBaseURL,
	}, logger.With("component", "google"))

	// Cache
	var (
		cache        *valkey.Cache
		cacheService ports.CacheService
	)
	if cfg.Cache.Enabled {
		c, err := valkey.New(cfg.Cache.Addr)
		if err != nil {
			slog.Warn("valkey unavailable, provider cache disabled", "error", err)
		} else {
			pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
			if err := c.Ping(pingCtx); err != nil {
				slog.Warn("valkey ping failed", "addr", cfg.Cache.Addr, "error", err)
			}
			pingCancel()
			defer c.Close()
			cache, cacheService = c, c
		}
	}

	gateway := usecases.NewGateway(usecases.Providers{
		Geocoder: googleClient,
		Places:   googleClient,
		Routes:   googleClient,
		Weather:  googleClient,
	}, cacheService, usecases.GatewayConfig{
		MaxResults: cfg.Search.MaxResults,
		RPS:        cfg.RateLimit.RPS,
		Burst:      cfg.RateLimit.Burst,
		PlacesTTL:  cfg.Cache.PlacesTTL,
		GeocodeTTL: cfg.Cache.GeocodeTTL,
		RouteTTL:   cfg.Cache.RouteTTL,
		WeatherTTL: cfg.Cache.WeatherTTL,

		CallTimeout: cfg.Google.Timeout,
	}, clock)

	// Events
	var (
		natsPub *natsadapter.Publisher
		events  ports.EventPublisher
	)
	switch cfg.Events.Driver {
	case "nats":
		p, err := natsadapter.NewPublisher(cfg.Events.NATSURL)
		if err != nil {
			slog.Warn("nats unavailable, search events disabled", "error", err)
		} else {
			defer p.Close()
			natsPub, events = p, p
		}
	case "kafka":
		w := kafka.NewWriter(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, logger.With("component", "kafka"))
		defer func() {
			if err := w.Close(); err != nil {
				slog.Warn("kafka writer close", "error", err)
			}
		}()
		events = w
		slog.Info("search events go to kafka", "brokers", strings.Join(cfg.Events.KafkaBrokers, ","), "topic", cfg.Events.KafkaTopic)
	}

	// Search history
	var (
		db       *postgres.DB
		searches ports.SearchRepository
	)
	if cfg.History.Enabled {
		db, err = postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		searches = postgres.NewSearchRepo(db)
		go reportPoolStats(ctx, db)
	}

	history := usecases.NewHistoryService(searches, events)
	var recorder ports.SearchRecorder
	if searches != nil || events != nil {
		recorder = history
	}

	defaultCategory := domain.VenueCategory(cfg.Search.DefaultCategory)
	deps := &http.Dependencies{
		Search:   usecases.NewSearchService(gateway, recorder, clock, defaultCategory, cfg.Search.DefaultRadiusMiles),
		History:  history,
		Gateway:  gateway,
		Recorder: recorder,
		SessionDefaults: usecases.SessionConfig{
			DefaultCategory:    defaultCategory,
			DefaultRadiusMiles: cfg.Search.DefaultRadiusMiles,
			FocusZoom:          cfg.Search.FocusZoom,
		},
		Clock: clock,
		DB:    db,
		Cache: cache,
		NATS:  natsPub,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Halfway API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.AllowOrigins, ", "),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "events", cfg.Events.Driver, "cache", cfg.Cache.Enabled, "history", cfg.History.Enabled)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// reportPoolStats publishes database pool gauges until ctx is done.
func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Stat())
		case <-ctx.Done():
			return
		}
	}
}
