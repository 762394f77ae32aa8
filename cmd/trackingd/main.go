// trackingd is the air-cargo shipment-tracking backbone server: it ingests
// carrier/customs/ground-handler/industry-feed events, applies them through
// a single canonical pipeline, and serves the resulting state over HTTP and
// WebSocket (§6).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/airfreight/trackingd/pkg/adapters"
	"github.com/airfreight/trackingd/pkg/adapters/carrier"
	"github.com/airfreight/trackingd/pkg/adapters/customs"
	"github.com/airfreight/trackingd/pkg/adapters/groundhandler"
	"github.com/airfreight/trackingd/pkg/adapters/industryfeed"
	"github.com/airfreight/trackingd/pkg/adapters/manual"
	"github.com/airfreight/trackingd/pkg/api"
	"github.com/airfreight/trackingd/pkg/cache"
	"github.com/airfreight/trackingd/pkg/config"
	"github.com/airfreight/trackingd/pkg/database"
	"github.com/airfreight/trackingd/pkg/hub"
	"github.com/airfreight/trackingd/pkg/ingest"
	"github.com/airfreight/trackingd/pkg/models"
	"github.com/airfreight/trackingd/pkg/notify"
	"github.com/airfreight/trackingd/pkg/scheduler"
	"github.com/airfreight/trackingd/pkg/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("trackingd exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("starting trackingd", "listen_addr", cfg.API.ListenAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := database.NewClient(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("error closing database client", "error", err)
		}
	}()
	slog.Info("connected to PostgreSQL and applied migrations")

	shipments := store.NewShipmentStore(dbClient.DB())
	events := store.NewEventStore(dbClient.DB())
	subscriptions := store.NewSubscriptionStore(dbClient.DB())
	jobs := store.NewJobStore(dbClient.DB())
	catalog := store.NewCatalogStore(dbClient.DB())

	if err := catalog.SeedIfEmpty(ctx); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	slog.Info("milestone and source catalog ready")

	redisCache := cache.New(cfg.Cache)

	registry := adapters.NewRegistry(buildAdapters(cfg)...)

	pipeline := ingest.New(shipments, events, subscriptions, jobs, catalog, redisCache)

	sched := scheduler.New(shipments, registry, pipeline, cfg.Scheduler)

	hubManager := hub.NewManager(api.NewTokenAuthenticator(cfg.API.AuthTokenSecret), shipments, hub.Config{
		QueueCapacity: cfg.Hub.ClientQueueCapacity,
		MaxOverflows:  cfg.Hub.MaxQueueOverflows,
		WriteTimeout:  cfg.Hub.WriteTimeout,
	})

	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.Password, cfg.Database.Database, cfg.Database.SSLMode,
	)
	listener := hub.NewListener(connString, hubManager)
	if err := listener.Start(ctx); err != nil {
		return fmt.Errorf("failed to start notify listener: %w", err)
	}
	hubManager.SetListener(listener)

	notifyRegistry := notify.NewRegistry(buildDeliverers(cfg, hubManager))
	dispatcher := notify.New(jobs, events, subscriptions, shipments, notifyRegistry, cfg.Notify)

	server := api.NewServer(cfg.API, dbClient, shipments, events, subscriptions, catalog, pipeline, sched, hubManager)
	server.SetCache(redisCache)
	server.SetDispatcher(dispatcher)

	if err := server.ValidateWiring(); err != nil {
		return fmt.Errorf("server wiring invalid: %w", err)
	}

	sched.Start(ctx)
	dispatcher.Start(ctx)
	slog.Info("poll scheduler and notification dispatcher started")

	serveErrCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP/WebSocket API listening", "addr", cfg.API.ListenAddr)
		if err := server.Start(cfg.API.ListenAddr); err != nil {
			serveErrCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-serveErrCh:
		return fmt.Errorf("API server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownDeadline)
	defer cancel()

	sched.Stop(cfg.API.ShutdownDeadline)
	dispatcher.Stop(cfg.API.ShutdownDeadline)
	listener.Stop(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during API server shutdown", "error", err)
	}

	slog.Info("trackingd stopped cleanly")
	return nil
}

// buildAdapters wires every source adapter from §4.1/§4.3; the industry
// feed is only included when it is enabled and its base URL is configured, matching the
// teacher's MCP-server-gated optional-component pattern in its own
// bootstrap.
func buildAdapters(cfg *config.Config) []adapters.Adapter {
	list := []adapters.Adapter{
		carrier.New(),
		customs.New(),
		groundhandler.New(),
		manual.New(),
	}
	if cfg.Feed.Enabled && cfg.Feed.BaseURL != "" {
		list = append(list, industryfeed.New(industryfeed.Config{
			BaseURL: cfg.Feed.BaseURL,
			APIKey:  cfg.Feed.APIKey,
		}))
	}
	return list
}

// buildDeliverers wires one Deliverer per §4.6 delivery method. SMTP/SMS
// gateway credentials are only required if those methods are actually
// configured; an empty value still constructs a Deliverer so a
// misconfigured subscription fails at delivery time with a clear upstream
// error instead of a panic at startup.
func buildDeliverers(cfg *config.Config, h *hub.Manager) map[models.DeliveryMethod]notify.Deliverer {
	return map[models.DeliveryMethod]notify.Deliverer{
		models.MethodEmail: notify.NewEmailDeliverer(cfg.Notify.SMTPAddr, cfg.Notify.SMTPHost, cfg.Notify.SMTPUsername, cfg.Notify.SMTPPassword, cfg.Notify.FromEmail),
		models.MethodSMS: notify.NewSMSDeliverer(notify.SMSGatewayConfig{
			Endpoint:   cfg.Notify.SMSGatewayEndpoint,
			AccountID:  cfg.Notify.SMSGatewayAccountID,
			AuthToken:  cfg.Notify.SMSGatewayAuthToken,
			FromNumber: cfg.Notify.SMSFromNumber,
		}, cfg.Notify.DeliverTimeout),
		models.MethodPush:    notify.NewPushDeliverer(h),
		models.MethodWebhook: notify.NewWebhookDeliverer(cfg.Notify.DeliverTimeout),
	}
}
