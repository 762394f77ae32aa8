// Package trackerrors is the error taxonomy for the tracking backbone (§7
// of the design: ValidationError, NotFoundError, AccessDeniedError,
// DuplicateError, TransientUpstreamError, PermanentUpstreamError, and
// StoreError). Each kind is a concrete wrapper type with an Is* helper
// built on errors.As, following the sentinel-plus-wrapper pattern used
// throughout the codebase's config and service error packages.
package trackerrors

import (
	"errors"
	"fmt"
)

// ValidationError reports that caller input violates a contract. Never
// retried; always reported back to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %q: %s", e.Field, e.Message)
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundError reports that a shipment, event, or subscription does not
// exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// NewNotFoundError constructs a NotFoundError.
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsNotFoundError reports whether err is (or wraps) a *NotFoundError.
func IsNotFoundError(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// AccessDeniedError reports that the calling subscriber identity does not
// own the resource being accessed.
type AccessDeniedError struct {
	Resource string
	ID       string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied to %s %q", e.Resource, e.ID)
}

// NewAccessDeniedError constructs an AccessDeniedError.
func NewAccessDeniedError(resource, id string) error {
	return &AccessDeniedError{Resource: resource, ID: id}
}

// IsAccessDeniedError reports whether err is (or wraps) a *AccessDeniedError.
func IsAccessDeniedError(err error) bool {
	var ade *AccessDeniedError
	return errors.As(err, &ade)
}

// DuplicateError is the non-fatal outcome of Apply when an event has
// already been persisted. Not an error condition for retry purposes — it
// is returned to let the caller distinguish {created, duplicate, rejected}.
type DuplicateError struct {
	ShipmentID string
	EventCode  string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("event %s already applied for shipment %s", e.EventCode, e.ShipmentID)
}

// NewDuplicateError constructs a DuplicateError.
func NewDuplicateError(shipmentID, eventCode string) error {
	return &DuplicateError{ShipmentID: shipmentID, EventCode: eventCode}
}

// IsDuplicateError reports whether err is (or wraps) a *DuplicateError.
func IsDuplicateError(err error) bool {
	var de *DuplicateError
	return errors.As(err, &de)
}

// TransientUpstreamError is returned by a source adapter (or notification
// Deliverer) for a failure the caller should retry with backoff: connect
// timeout, 5xx, rate-limit.
type TransientUpstreamError struct {
	Source string
	Err    error
}

func (e *TransientUpstreamError) Error() string {
	return fmt.Sprintf("transient upstream error from %s: %v", e.Source, e.Err)
}

func (e *TransientUpstreamError) Unwrap() error { return e.Err }

// NewTransientUpstreamError constructs a TransientUpstreamError.
func NewTransientUpstreamError(source string, err error) error {
	return &TransientUpstreamError{Source: source, Err: err}
}

// IsTransientUpstreamError reports whether err is (or wraps) a
// *TransientUpstreamError.
func IsTransientUpstreamError(err error) bool {
	var tue *TransientUpstreamError
	return errors.As(err, &tue)
}

// PermanentUpstreamError is returned by a source adapter (or notification
// Deliverer) for a failure that must not be retried automatically: auth
// rejected, 4xx other than 429, malformed payload after tolerance.
type PermanentUpstreamError struct {
	Source string
	Err    error
}

func (e *PermanentUpstreamError) Error() string {
	return fmt.Sprintf("permanent upstream error from %s: %v", e.Source, e.Err)
}

func (e *PermanentUpstreamError) Unwrap() error { return e.Err }

// NewPermanentUpstreamError constructs a PermanentUpstreamError.
func NewPermanentUpstreamError(source string, err error) error {
	return &PermanentUpstreamError{Source: source, Err: err}
}

// IsPermanentUpstreamError reports whether err is (or wraps) a
// *PermanentUpstreamError.
func IsPermanentUpstreamError(err error) bool {
	var pue *PermanentUpstreamError
	return errors.As(err, &pue)
}

// StoreError wraps an unexpected store failure. The current operation is
// aborted with rollback and the error surfaced to the caller.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError constructs a StoreError.
func NewStoreError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// IsStoreError reports whether err is (or wraps) a *StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// Sentinel errors for conditions that don't carry per-instance detail.
var (
	// ErrDisabled is returned when an external-source Apply targets a
	// shipment with tracking_enabled=false (§4.2 step 1).
	ErrDisabled = errors.New("tracking disabled for shipment")
)
