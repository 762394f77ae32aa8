package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/airfreight/trackingd/pkg/models"
	"github.com/airfreight/trackingd/pkg/trackerrors"
)

var validMethods = map[string]bool{
	string(models.MethodEmail):   true,
	string(models.MethodSMS):     true,
	string(models.MethodPush):    true,
	string(models.MethodWebhook): true,
}

// subscribeHandler handles POST /tracking/subscribe (§6: customer). A
// subscriber may only create a subscription for themselves — subscriber_id
// must match the authenticated identity.
func (s *Server) subscribeHandler(c *echo.Context) error {
	var req SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	id := getIdentity(c)
	if req.SubscriberID == "" {
		req.SubscriberID = id.SubscriberID
	}
	if req.SubscriberID == "" || req.SubscriberID != id.SubscriberID {
		return mapServiceError(trackerrors.NewAccessDeniedError("subscription", req.SubscriberID))
	}
	if !validMethods[req.Method] {
		return echo.NewHTTPError(http.StatusBadRequest, "method must be one of EMAIL, SMS, PUSH, WEBHOOK")
	}

	ctx := c.Request().Context()
	shipmentID := req.ShipmentID
	if shipmentID == "" && req.AWBNumber != "" {
		sh, err := s.shipments.GetByAWB(ctx, req.AWBNumber)
		if err != nil {
			return mapServiceError(err)
		}
		shipmentID = sh.ShipmentID
	}
	if shipmentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "shipment_id or awb_number is required")
	}

	sub := &models.Subscription{
		ShipmentID:            shipmentID,
		SubscriberID:          req.SubscriberID,
		Method:                models.DeliveryMethod(req.Method),
		Endpoint:              req.Endpoint,
		FilterMilestone:       req.FilterMilestone,
		FilterException:       req.FilterException,
		FilterLocationUpdates: req.FilterLocationUpdates,
		FilterAllEvents:       req.FilterAllEvents,
		Active:                true,
	}
	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, subscriptionResponse(sub))
}
