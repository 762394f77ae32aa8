package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/airfreight/trackingd/pkg/trackerrors"
)

// mapServiceError translates the pkg/trackerrors taxonomy (§7) into an HTTP
// error response. Adapted from the teacher's errors.go mapServiceError:
// same errors.As/Is chain shape, retargeted at this core's own error kinds
// instead of the teacher's services package sentinels.
func mapServiceError(err error) *echo.HTTPError {
	if errors.Is(err, trackerrors.ErrDisabled) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if trackerrors.IsValidationError(err) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if trackerrors.IsNotFoundError(err) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if trackerrors.IsAccessDeniedError(err) {
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	if trackerrors.IsDuplicateError(err) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if trackerrors.IsStoreError(err) {
		slog.Error("store error surfaced to caller", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	slog.Error("unexpected error surfaced to caller", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
