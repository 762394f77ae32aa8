// Package api is the HTTP and WebSocket front end for the tracking
// backbone (§6). Adapted from the teacher's pkg/api: an Echo v5 Server
// struct built by NewServer with required dependencies and extended via
// Set* methods, ValidateWiring catching incomplete wiring at startup
// instead of request time, and a healthHandler aggregating every
// component's status into one JSON response.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/airfreight/trackingd/pkg/cache"
	"github.com/airfreight/trackingd/pkg/config"
	"github.com/airfreight/trackingd/pkg/database"
	"github.com/airfreight/trackingd/pkg/hub"
	"github.com/airfreight/trackingd/pkg/ingest"
	"github.com/airfreight/trackingd/pkg/metrics"
	"github.com/airfreight/trackingd/pkg/notify"
	"github.com/airfreight/trackingd/pkg/scheduler"
	"github.com/airfreight/trackingd/pkg/store"
)

// Server is the HTTP/WebSocket API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	cfg        config.APIConfig

	dbClient      *database.Client
	shipments     *store.ShipmentStore
	events        *store.EventStore
	subscriptions *store.SubscriptionStore
	catalog       *store.CatalogStore
	pipeline      *ingest.Pipeline
	sched         *scheduler.Scheduler
	hubManager    *hub.Manager

	cache      *cache.Cache      // nil-safe: a missing cache degrades to uncached reads
	dispatcher *notify.Dispatcher // nil-safe: only consulted for health reporting
}

// NewServer constructs an API server with its required dependencies.
func NewServer(
	cfg config.APIConfig,
	dbClient *database.Client,
	shipments *store.ShipmentStore,
	events *store.EventStore,
	subscriptions *store.SubscriptionStore,
	catalog *store.CatalogStore,
	pipeline *ingest.Pipeline,
	sched *scheduler.Scheduler,
	hubManager *hub.Manager,
) *Server {
	e := echo.New()
	s := &Server{
		echo:          e,
		cfg:           cfg,
		dbClient:      dbClient,
		shipments:     shipments,
		events:        events,
		subscriptions: subscriptions,
		catalog:       catalog,
		pipeline:      pipeline,
		sched:         sched,
		hubManager:    hubManager,
	}
	s.setupRoutes()
	return s
}

// SetCache wires the public-snapshot read-through cache (optional).
func (s *Server) SetCache(c *cache.Cache) {
	s.cache = c
}

// SetDispatcher wires the notification dispatcher, consulted by the health
// endpoint (optional; dispatcher health is informational only).
func (s *Server) SetDispatcher(d *notify.Dispatcher) {
	s.dispatcher = d
}

// ValidateWiring checks that every required dependency was supplied to
// NewServer. Cache and dispatcher are legitimately optional and are not
// checked here.
func (s *Server) ValidateWiring() error {
	var errs []error
	if s.dbClient == nil {
		errs = append(errs, fmt.Errorf("dbClient not set"))
	}
	if s.shipments == nil {
		errs = append(errs, fmt.Errorf("shipments store not set"))
	}
	if s.events == nil {
		errs = append(errs, fmt.Errorf("events store not set"))
	}
	if s.subscriptions == nil {
		errs = append(errs, fmt.Errorf("subscriptions store not set"))
	}
	if s.catalog == nil {
		errs = append(errs, fmt.Errorf("catalog store not set"))
	}
	if s.pipeline == nil {
		errs = append(errs, fmt.Errorf("pipeline not set"))
	}
	if s.sched == nil {
		errs = append(errs, fmt.Errorf("scheduler not set"))
	}
	if s.hubManager == nil {
		errs = append(errs, fmt.Errorf("hub manager not set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("server wiring incomplete: %w", errors.Join(errs...))
	}
	return nil
}

// setupRoutes registers every §6 route. Static paths are registered before
// :param routes within the same prefix, matching the teacher's ordering
// discipline in its own setupRoutes.
func (s *Server) setupRoutes() {
	s.echo.Use(securityHeaders())
	s.echo.Use(identityMiddleware())
	s.echo.Use(middleware.BodyLimit(1024 * 1024))

	s.echo.GET("/tracking/health", s.healthHandler)
	s.echo.GET(s.cfg.MetricsPath, echo.WrapHandler(metrics.Handler()))

	g := s.echo.Group("/tracking")

	// Public, rate-limiting deferred to the front-end per §6.
	g.GET("/awb/:awb", s.publicSnapshotHandler)

	// Authed.
	g.GET("/shipments/:id", s.getShipmentHandler, requireAuthed())
	g.GET("/shipments/:id/events", s.listShipmentEventsHandler, requireAuthed())
	g.GET("/customer/:id/history", s.customerHistoryHandler, requireAuthed())

	// role >= operator.
	g.POST("/events", s.submitEventHandler, requireRole(RoleOperator))
	g.POST("/update/:awb", s.forceUpdateHandler, requireRole(RoleOperator))
	g.POST("/bulk-update", s.bulkUpdateHandler, requireRole(RoleOperator))

	// customer.
	g.POST("/subscribe", s.subscribeHandler, requireRole(RoleCustomer))

	// role == admin.
	g.GET("/statistics", s.statisticsHandler, requireRole(RoleAdmin))
	g.POST("/process-updates", s.processUpdatesHandler, requireRole(RoleAdmin))

	// WebSocket push interface (§4.5 / §6).
	s.echo.GET("/tracking/ws", s.wsHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener. Used
// by tests that need a randomly assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server and notifies connected
// WebSocket clients so they can reconnect elsewhere.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hubManager.Shutdown()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// healthHandler handles GET /tracking/health (§6: public, 200/503).
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	dbStatus := "ok"
	status := http.StatusOK
	overall := "healthy"
	if err := s.dbClient.DB().PingContext(reqCtx); err != nil {
		dbStatus = "unreachable"
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	resp := HealthResponse{
		Status:   overall,
		Database: dbStatus,
		Hub:      HubHealth{ActiveConnections: s.hubManager.ActiveConnections()},
	}
	if s.sched != nil {
		h := s.sched.Health()
		var lastTick *time.Time
		if !h.LastTickAt.IsZero() {
			lastTick = &h.LastTickAt
		}
		resp.Scheduler = SchedulerHealth{LastTickAt: lastTick, LastTickCount: h.LastTickCount}
	}
	if s.dispatcher != nil {
		resp.Notifications = "configured"
	}

	return c.JSON(status, resp)
}
