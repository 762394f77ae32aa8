package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airfreight/trackingd/pkg/models"
)

func TestAWBPattern(t *testing.T) {
	tests := []struct {
		in    string
		match bool
	}{
		{"123-45678901", true},
		{"000-00000000", true},
		{"12-45678901", false},
		{"123-4567890", false},
		{"123-456789012", false},
		{"abc-45678901", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.match, awbPattern.MatchString(tt.in), tt.in)
	}
}

func TestHasExceptions(t *testing.T) {
	assert.False(t, hasExceptions(nil))
	assert.False(t, hasExceptions([]*models.Event{{IsException: false}}))
	assert.True(t, hasExceptions([]*models.Event{{IsException: false}, {IsException: true}}))
}

func newTestContext(target string) *echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestParsePagination(t *testing.T) {
	t.Run("defaults applied when absent", func(t *testing.T) {
		c := newTestContext("/test")
		limit, offset, err := parsePagination(c, 50)
		require.NoError(t, err)
		assert.Equal(t, 50, limit)
		assert.Equal(t, 0, offset)
	})

	t.Run("explicit limit and offset", func(t *testing.T) {
		c := newTestContext("/test?limit=10&offset=20")
		limit, offset, err := parsePagination(c, 50)
		require.NoError(t, err)
		assert.Equal(t, 10, limit)
		assert.Equal(t, 20, offset)
	})

	t.Run("limit above 100 rejected", func(t *testing.T) {
		c := newTestContext("/test?limit=101")
		_, _, err := parsePagination(c, 50)
		require.Error(t, err)
	})

	t.Run("limit below 1 rejected", func(t *testing.T) {
		c := newTestContext("/test?limit=0")
		_, _, err := parsePagination(c, 50)
		require.Error(t, err)
	})

	t.Run("negative offset rejected", func(t *testing.T) {
		c := newTestContext("/test?offset=-1")
		_, _, err := parsePagination(c, 50)
		require.Error(t, err)
	})

	t.Run("non-numeric limit rejected", func(t *testing.T) {
		c := newTestContext("/test?limit=abc")
		_, _, err := parsePagination(c, 50)
		require.Error(t, err)
	})
}

func TestParseDateRange(t *testing.T) {
	t.Run("absent returns nils", func(t *testing.T) {
		c := newTestContext("/test")
		from, to, err := parseDateRange(c)
		require.NoError(t, err)
		assert.Nil(t, from)
		assert.Nil(t, to)
	})

	t.Run("valid ordering accepted", func(t *testing.T) {
		c := newTestContext("/test?date_from=2026-01-01T00:00:00Z&date_to=2026-02-01T00:00:00Z")
		from, to, err := parseDateRange(c)
		require.NoError(t, err)
		require.NotNil(t, from)
		require.NotNil(t, to)
		assert.True(t, from.Before(*to))
	})

	t.Run("date_from not before date_to rejected", func(t *testing.T) {
		c := newTestContext("/test?date_from=2026-02-01T00:00:00Z&date_to=2026-01-01T00:00:00Z")
		_, _, err := parseDateRange(c)
		require.Error(t, err)
	})

	t.Run("equal bounds rejected", func(t *testing.T) {
		c := newTestContext("/test?date_from=2026-01-01T00:00:00Z&date_to=2026-01-01T00:00:00Z")
		_, _, err := parseDateRange(c)
		require.Error(t, err)
	})

	t.Run("malformed date rejected", func(t *testing.T) {
		c := newTestContext("/test?date_from=not-a-date")
		_, _, err := parseDateRange(c)
		require.Error(t, err)
	})
}

func TestParseEventFilter(t *testing.T) {
	t.Run("defaults to maxLimit", func(t *testing.T) {
		c := newTestContext("/test")
		f, err := parseEventFilter(c, 1000)
		require.NoError(t, err)
		assert.Equal(t, 1000, f.Limit)
		assert.Equal(t, 0, f.Offset)
	})

	t.Run("category and range applied", func(t *testing.T) {
		c := newTestContext("/test?category=EXCEPTION&limit=5&offset=10&date_from=2026-01-01T00:00:00Z&date_to=2026-02-01T00:00:00Z")
		f, err := parseEventFilter(c, 1000)
		require.NoError(t, err)
		assert.Equal(t, models.EventCategory("EXCEPTION"), f.Category)
		assert.Equal(t, 5, f.Limit)
		assert.Equal(t, 10, f.Offset)
		require.NotNil(t, f.DateFrom)
		require.NotNil(t, f.DateTo)
	})

	t.Run("limit above maxLimit rejected", func(t *testing.T) {
		c := newTestContext("/test?limit=1001")
		_, err := parseEventFilter(c, 1000)
		require.Error(t, err)
	})

	t.Run("bad date range propagated", func(t *testing.T) {
		c := newTestContext("/test?date_from=2026-02-01T00:00:00Z&date_to=2026-01-01T00:00:00Z")
		_, err := parseEventFilter(c, 1000)
		require.Error(t, err)
	})
}
