package api

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
)

// statisticsHandler handles GET /tracking/statistics (§6: role = admin,
// stats window). from/to default to the trailing 24 hours.
func (s *Server) statisticsHandler(c *echo.Context) error {
	to := time.Now().UTC()
	from := to.Add(-24 * time.Hour)

	var err error
	reqFrom, reqTo, err := parseDateRange(c)
	if err != nil {
		return err
	}
	if reqFrom != nil {
		from = *reqFrom
	}
	if reqTo != nil {
		to = *reqTo
	}

	ctx := c.Request().Context()
	evStats, err := s.events.WindowStats(ctx, from, to)
	if err != nil {
		return mapServiceError(err)
	}
	byStatus, err := s.shipments.CountByStatus(ctx)
	if err != nil {
		return mapServiceError(err)
	}

	statusCounts := make(map[string]int, len(byStatus))
	for status, n := range byStatus {
		statusCounts[string(status)] = n
	}

	return c.JSON(http.StatusOK, StatisticsResponse{
		From: from, To: to,
		TotalEvents:       evStats.TotalEvents,
		MilestoneEvents:   evStats.MilestoneEvents,
		ExceptionEvents:   evStats.ExceptionEvents,
		ShipmentsByStatus: statusCounts,
	})
}

// processUpdatesHandler handles POST /tracking/process-updates (§6: role =
// admin, one-shot scheduler tick) — runs the same selection-and-fetch logic
// as the regular tick, synchronously, and reports how many shipments it
// touched.
func (s *Server) processUpdatesHandler(c *echo.Context) error {
	h := s.sched.RunOnce(c.Request().Context())
	return c.JSON(http.StatusOK, ProcessUpdatesResponse{TickCount: h.LastTickCount, TickAt: h.LastTickAt})
}
