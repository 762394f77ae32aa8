package api

import (
	"fmt"
	"net/http"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"

	"github.com/airfreight/trackingd/pkg/trackerrors"
)

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		expectCode int
		expectMsg  string
	}{
		{
			name:       "validation error maps to 400",
			err:        trackerrors.NewValidationError("awb_number", "bad format"),
			expectCode: http.StatusBadRequest,
			expectMsg:  "bad format",
		},
		{
			name:       "not found maps to 404",
			err:        trackerrors.NewNotFoundError("shipment", "ship-1"),
			expectCode: http.StatusNotFound,
			expectMsg:  "not found",
		},
		{
			name:       "access denied maps to 403",
			err:        trackerrors.NewAccessDeniedError("shipment", "ship-1"),
			expectCode: http.StatusForbidden,
			expectMsg:  "access denied",
		},
		{
			name:       "duplicate maps to 409",
			err:        trackerrors.NewDuplicateError("ship-1", "DEP"),
			expectCode: http.StatusConflict,
			expectMsg:  "already applied",
		},
		{
			name:       "disabled tracking maps to 400",
			err:        fmt.Errorf("wrapped: %w", trackerrors.ErrDisabled),
			expectCode: http.StatusBadRequest,
			expectMsg:  "tracking disabled",
		},
		{
			name:       "store error maps to 500",
			err:        trackerrors.NewStoreError("get shipment", fmt.Errorf("connection reset")),
			expectCode: http.StatusInternalServerError,
			expectMsg:  "internal server error",
		},
		{
			name:       "unknown error maps to 500",
			err:        fmt.Errorf("something unexpected"),
			expectCode: http.StatusInternalServerError,
			expectMsg:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := mapServiceError(tt.err)
			assert.IsType(t, &echo.HTTPError{}, he)
			assert.Equal(t, tt.expectCode, he.Code)
			assert.Contains(t, he.Error(), tt.expectMsg)
		})
	}
}
