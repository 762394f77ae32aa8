package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/airfreight/trackingd/pkg/adapters/manual"
	"github.com/airfreight/trackingd/pkg/ingest"
	"github.com/airfreight/trackingd/pkg/models"
)

const maxBulkUpdate = 100

// submitEventHandler handles POST /tracking/events (§6: role >= operator,
// manual Apply). Follows the teacher's handler_alert.go shape: bind,
// validate, transform, call the domain layer, map the error.
func (s *Server) submitEventHandler(c *echo.Context) error {
	var req SubmitEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ShipmentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "shipment_id is required")
	}
	if req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}
	if req.EventDatetime.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "event_datetime is required")
	}

	event := &models.Event{
		Code:            req.Code,
		Description:     req.Description,
		Category:        models.EventCategory(req.Category),
		EventDatetime:   req.EventDatetime,
		OriginalTZ:      req.OriginalTZ,
		Severity:        models.Severity(req.Severity),
		CustomerVisible: req.CustomerVisible,
		Source:          models.SourceRef{ExternalID: req.ExternalID},
		Location: models.Location{
			Name: req.Location.Name, Country: req.Location.Country, City: req.Location.City,
			AirportCode: req.Location.AirportCode, Lat: req.Location.Lat, Long: req.Location.Long,
		},
	}

	outcome, err := s.pipeline.Apply(c.Request().Context(), req.ShipmentID, event, manual.SourceID)
	switch outcome {
	case ingest.OutcomeCreated:
		return c.JSON(http.StatusCreated, EventApplyResponse{Outcome: string(outcome), Event: eventResponse(event)})
	case ingest.OutcomeDuplicate:
		return c.JSON(http.StatusConflict, EventApplyResponse{Outcome: string(outcome)})
	default:
		return mapServiceError(err)
	}
}

// forceUpdateHandler handles POST /tracking/update/:awb (§6: role >=
// operator, force adapter refresh for a single shipment).
func (s *Server) forceUpdateHandler(c *echo.Context) error {
	awb := c.Param("awb")
	sh, err := s.shipments.GetByAWB(c.Request().Context(), awb)
	if err != nil {
		return mapServiceError(err)
	}

	s.sched.PollShipmentNow(c.Request().Context(), sh)

	if s.cache != nil {
		s.cache.Invalidate(c.Request().Context(), sh.AWBNumber)
	}

	return c.JSON(http.StatusOK, BulkUpdateResult{ShipmentID: sh.ShipmentID, AWBNumber: sh.AWBNumber, Status: "refreshed"})
}

// bulkUpdateHandler handles POST /tracking/bulk-update (§6: role >=
// operator, force refresh of up to 100 shipments in one call).
func (s *Server) bulkUpdateHandler(c *echo.Context) error {
	var req BulkUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.ShipmentIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "shipment_ids is required")
	}
	if len(req.ShipmentIDs) > maxBulkUpdate {
		return echo.NewHTTPError(http.StatusBadRequest, "shipment_ids must not exceed 100 entries")
	}

	ctx := c.Request().Context()
	results := make([]BulkUpdateResult, 0, len(req.ShipmentIDs))
	for _, id := range req.ShipmentIDs {
		sh, err := s.shipments.GetByID(ctx, id)
		if err != nil {
			results = append(results, BulkUpdateResult{ShipmentID: id, Status: "error", Error: err.Error()})
			continue
		}
		s.sched.PollShipmentNow(ctx, sh)
		if s.cache != nil {
			s.cache.Invalidate(ctx, sh.AWBNumber)
		}
		results = append(results, BulkUpdateResult{ShipmentID: sh.ShipmentID, AWBNumber: sh.AWBNumber, Status: "refreshed"})
	}

	return c.JSON(http.StatusOK, BulkUpdateResponse{Results: results})
}
