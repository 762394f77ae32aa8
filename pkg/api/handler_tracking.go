package api

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/airfreight/trackingd/pkg/models"
	"github.com/airfreight/trackingd/pkg/store"
	"github.com/airfreight/trackingd/pkg/trackerrors"
)

// awbPattern is the §6 AWB format: NNN-NNNNNNNN.
var awbPattern = regexp.MustCompile(`^[0-9]{3}-[0-9]{8}$`)

// publicSnapshotHandler handles GET /tracking/awb/:awb.
func (s *Server) publicSnapshotHandler(c *echo.Context) error {
	awb := c.Param("awb")
	if !awbPattern.MatchString(awb) {
		return echo.NewHTTPError(http.StatusBadRequest, "awb must match NNN-NNNNNNNN")
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(c.Request().Context(), awb); ok {
			c.Response().Header().Set("Content-Type", "application/json")
			return c.JSONBlob(http.StatusOK, cached)
		}
	}

	sh, err := s.shipments.GetByAWB(c.Request().Context(), awb)
	if err != nil {
		return mapServiceError(err)
	}

	// Public tracking returns the best snapshot available even when the
	// latest refresh failed (§7): a failed poll never prevents this read.
	events, total, err := s.events.ListByShipment(c.Request().Context(), sh.ShipmentID, store.EventFilter{Limit: 20})
	if err != nil {
		return mapServiceError(err)
	}
	if total > 20 {
		events, _, err = s.events.ListByShipment(c.Request().Context(), sh.ShipmentID, store.EventFilter{Limit: 20, Offset: total - 20})
		if err != nil {
			return mapServiceError(err)
		}
	}

	resp := TrackingSnapshotResponse{
		Shipment: shipmentResponse(sh, hasExceptions(events)),
		Events:   eventResponses(events),
	}

	if s.cache != nil {
		if payload, merr := json.Marshal(resp); merr == nil {
			s.cache.Set(c.Request().Context(), awb, payload)
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// getShipmentHandler handles GET /tracking/shipments/:id (§6: authed).
func (s *Server) getShipmentHandler(c *echo.Context) error {
	id := c.Param("id")
	sh, err := s.shipments.GetByID(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}
	if err := s.checkOwnership(c, sh.CustomerID); err != nil {
		return err
	}

	events, _, err := s.events.ListByShipment(c.Request().Context(), id, store.EventFilter{Limit: 1000})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, ShipmentDetailResponse{
		Shipment: shipmentResponse(sh, hasExceptions(events)),
		Events:   eventResponses(events),
	})
}

// listShipmentEventsHandler handles GET /tracking/shipments/:id/events
// (§6: authed, paginated, filterable, limit up to 1000).
func (s *Server) listShipmentEventsHandler(c *echo.Context) error {
	id := c.Param("id")
	sh, err := s.shipments.GetByID(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}
	if err := s.checkOwnership(c, sh.CustomerID); err != nil {
		return err
	}

	filter, err := parseEventFilter(c, 1000)
	if err != nil {
		return err
	}

	events, total, err := s.events.ListByShipment(c.Request().Context(), id, filter)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, PageResponse{
		Items: eventResponses(events), Total: total, Limit: filter.Limit, Offset: filter.Offset,
	})
}

// customerHistoryHandler handles GET /tracking/customer/:id/history
// (§6: authed, self — the caller may only view their own history).
func (s *Server) customerHistoryHandler(c *echo.Context) error {
	customerID := c.Param("id")
	id := getIdentity(c)
	if id.CustomerID != customerID {
		return mapServiceError(trackerrors.NewAccessDeniedError("customer", customerID))
	}

	limit, offset, err := parsePagination(c, 100)
	if err != nil {
		return err
	}

	shipments, total, err := s.shipments.ListByCustomer(c.Request().Context(), customerID, limit, offset)
	if err != nil {
		return mapServiceError(err)
	}

	items := make([]ShipmentResponse, 0, len(shipments))
	for _, sh := range shipments {
		stats, err := s.events.Stats(c.Request().Context(), sh.ShipmentID)
		if err != nil {
			return mapServiceError(err)
		}
		items = append(items, shipmentResponse(sh, stats.ExceptionEvents > 0))
	}

	return c.JSON(http.StatusOK, PageResponse{Items: items, Total: total, Limit: limit, Offset: offset})
}

// checkOwnership enforces the §6 "authed" access level: an operator/admin
// may view any shipment; a customer may only view their own.
func (s *Server) checkOwnership(c *echo.Context, ownerCustomerID string) error {
	id := getIdentity(c)
	if id.Role >= RoleOperator {
		return nil
	}
	if id.CustomerID == "" || id.CustomerID != ownerCustomerID {
		return mapServiceError(trackerrors.NewAccessDeniedError("shipment", ownerCustomerID))
	}
	return nil
}

// hasExceptions is computed from the persisted event stream, never from
// upstream fetch success/failure (§7 user-visible behavior).
func hasExceptions(events []*models.Event) bool {
	for _, e := range events {
		if e.IsException {
			return true
		}
	}
	return false
}

func parsePagination(c *echo.Context, defaultLimit int) (limit, offset int, err error) {
	limit = defaultLimit
	if v := c.QueryParam("limit"); v != "" {
		n, perr := strconv.Atoi(v)
		if perr != nil || n < 1 || n > 100 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 100")
		}
		limit = n
	}
	if v := c.QueryParam("offset"); v != "" {
		n, perr := strconv.Atoi(v)
		if perr != nil || n < 0 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "offset must be >= 0")
		}
		offset = n
	}
	return limit, offset, nil
}

func parseEventFilter(c *echo.Context, maxLimit int) (store.EventFilter, error) {
	var f store.EventFilter
	f.Limit = maxLimit
	if v := c.QueryParam("limit"); v != "" {
		n, perr := strconv.Atoi(v)
		if perr != nil || n < 1 || n > maxLimit {
			return f, echo.NewHTTPError(http.StatusBadRequest, "limit out of range")
		}
		f.Limit = n
	}
	if v := c.QueryParam("offset"); v != "" {
		n, perr := strconv.Atoi(v)
		if perr != nil || n < 0 {
			return f, echo.NewHTTPError(http.StatusBadRequest, "offset must be >= 0")
		}
		f.Offset = n
	}
	f.Category = models.EventCategory(c.QueryParam("category"))

	from, to, err := parseDateRange(c)
	if err != nil {
		return f, err
	}
	f.DateFrom = from
	f.DateTo = to

	return f, nil
}

// parseDateRange enforces the §6 date-range ordering constraint:
// date_from < date_to when both are supplied.
func parseDateRange(c *echo.Context) (from, to *time.Time, err error) {
	if v := c.QueryParam("date_from"); v != "" {
		t, perr := time.Parse(time.RFC3339, v)
		if perr != nil {
			return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "date_from must be RFC3339")
		}
		from = &t
	}
	if v := c.QueryParam("date_to"); v != "" {
		t, perr := time.Parse(time.RFC3339, v)
		if perr != nil {
			return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "date_to must be RFC3339")
		}
		to = &t
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "date_from must be before date_to")
	}
	return from, to, nil
}
