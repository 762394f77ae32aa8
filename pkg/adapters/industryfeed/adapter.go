// Package industryfeed adapts a shared air-cargo industry tracking feed
// (e.g. Cargo-IMP/FSU style status messages) into canonical events. This is
// the one adapter that makes a real outbound HTTP call per poll, so it is
// the one wrapped in a circuit breaker.
package industryfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/airfreight/trackingd/pkg/models"
	"github.com/airfreight/trackingd/pkg/trackerrors"
)

const sourceID = "industry-feed"

// Config configures the upstream feed client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Adapter fetches status updates from the industry feed's per-AWB endpoint.
type Adapter struct {
	cfg     Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// New constructs an industry-feed Adapter. The circuit breaker opens after
// 5 consecutive failures and probes again after 30s, shielding the poll
// scheduler's per-source semaphore from piling up requests against a feed
// that is already down.
func New(cfg Config) *Adapter {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "industry-feed",
			MaxRequests: 1,
			Interval:    0,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// SourceID identifies this adapter's row in the source priority table.
func (a *Adapter) SourceID() string { return sourceID }

type feedStatusMessage struct {
	Code          string  `json:"code"`
	Description   string  `json:"description"`
	EventDatetime string  `json:"event_datetime"`
	Timezone      string  `json:"timezone"`
	LocationName  string  `json:"location_name"`
	AirportCode   string  `json:"airport_code"`
	ExternalID    string  `json:"external_id"`
	Severity      string  `json:"severity"`
	Category      string  `json:"category"`
}

type feedResponse struct {
	Messages []feedStatusMessage `json:"messages"`
}

// Fetch retrieves every status message the feed returns for the shipment's
// AWB number (the request carries no since/last-poll bound) and maps each
// into a canonical event.
func (a *Adapter) Fetch(ctx context.Context, shipment *models.Shipment) ([]*models.Event, error) {
	result, err := a.breaker.Execute(func() (any, error) {
		return a.fetchRaw(ctx, shipment.AWBNumber)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, trackerrors.NewTransientUpstreamError(sourceID, err)
		}
		return nil, err
	}
	return result.([]*models.Event), nil
}

func (a *Adapter) fetchRaw(ctx context.Context, awb string) ([]*models.Event, error) {
	url := fmt.Sprintf("%s/v1/shipments/%s/status", a.cfg.BaseURL, awb)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, trackerrors.NewPermanentUpstreamError(sourceID, err)
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, trackerrors.NewTransientUpstreamError(sourceID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, trackerrors.NewTransientUpstreamError(sourceID, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, trackerrors.NewTransientUpstreamError(sourceID, fmt.Errorf("feed returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, trackerrors.NewPermanentUpstreamError(sourceID, fmt.Errorf("feed returned %d: %s", resp.StatusCode, body))
	}

	var parsed feedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, trackerrors.NewPermanentUpstreamError(sourceID, fmt.Errorf("decode feed response: %w", err))
	}

	events := make([]*models.Event, 0, len(parsed.Messages))
	for _, m := range parsed.Messages {
		e, err := toEvent(m)
		if err != nil {
			// A single malformed message does not invalidate the batch;
			// it is dropped with a logged warning.
			slog.Warn("dropping malformed industry feed message", "awb", awb, "code", m.Code, "error", err)
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func toEvent(m feedStatusMessage) (*models.Event, error) {
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		loc = time.UTC
	}
	layout := "2006-01-02T15:04:05"
	parsed, err := time.ParseInLocation(layout, m.EventDatetime, loc)
	if err != nil {
		return nil, fmt.Errorf("parse event_datetime %q: %w", m.EventDatetime, err)
	}

	severity := models.Severity(m.Severity)
	if severity == "" {
		severity = models.SeverityInfo
	}
	category := models.EventCategory(m.Category)
	if category == "" {
		category = models.CategoryStatusUpdate
	}

	return &models.Event{
		Code:        m.Code,
		Description: m.Description,
		Category:    category,
		Location: models.Location{
			Name:        m.LocationName,
			AirportCode: m.AirportCode,
		},
		EventDatetime:   parsed.UTC(),
		OriginalTZ:      m.Timezone,
		Severity:        severity,
		CustomerVisible: true,
		Processed:       true,
		Source: models.SourceRef{
			SourceID:   sourceID,
			ExternalID: m.ExternalID,
		},
	}, nil
}
