package mocknode

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/meshweather/weather"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandler_ServesParseableDocument(t *testing.T) {
	h := New(0, quietLogger())
	h.now = func() time.Time { return time.Date(2024, 5, 1, 13, 17, 42, 0, time.UTC) }

	for range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?node=ridge-wx&mode=data", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		snap, err := weather.Parse(rec.Body.Bytes())
		require.NoError(t, err)
		assert.Equal(t, "ridge-wx", snap.Title(""))
		assert.Equal(t, Interval, snap.UpdateInterval)
		assert.Equal(t, time.Date(2024, 5, 1, 13, 17, 0, 0, time.UTC), snap.UpdateTime.UTC())
		assert.Equal(t, "F", snap.TemperatureScale())
		assert.Len(t, snap.Daily, 3)
		require.NotNil(t, snap.AirQuality.AQI)
	}
}

func TestHandler_Outage(t *testing.T) {
	h := New(1, quietLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRound1(t *testing.T) {
	assert.InDelta(t, 71.4, round1(71.44), 1e-9)
	assert.InDelta(t, -3.5, round1(-3.46), 1e-9)
}
