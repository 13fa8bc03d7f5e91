package weather

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cdt is the fixed zone the fixture's naive timestamps are read in.
var cdt = time.FixedZone("", -5*60*60)

func loadFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/node.json")
	require.NoError(t, err)
	return data
}

// fixtureWith decodes the fixture, applies edit and re-encodes it.
func fixtureWith(t *testing.T, edit func(doc map[string]any)) []byte {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(loadFixture(t), &doc))
	edit(doc)
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

// section walks nested objects of a decoded document.
func section(doc map[string]any, path ...string) map[string]any {
	current := doc
	for _, p := range path {
		current = current[p].(map[string]any)
	}
	return current
}

func requireInvalid(t *testing.T, snap *Snapshot, err error, field string) {
	t.Helper()
	require.Error(t, err)
	assert.Nil(t, snap, "no partial snapshot on failure")
	assert.ErrorIs(t, err, ErrInvalidData)

	var pe *ParseError
	require.True(t, errors.As(err, &pe), "error should be *ParseError, got %T", err)
	if field != "" {
		assert.Equal(t, field, pe.Field)
	}
}

func TestParse_Fixture(t *testing.T) {
	snap, err := Parse(loadFixture(t))
	require.NoError(t, err)

	t.Run("metadata", func(t *testing.T) {
		assert.Equal(t, time.Date(2024, 5, 1, 13, 15, 0, 0, cdt).Unix(), snap.UpdateTime.Unix())
		_, offset := snap.UpdateTime.Zone()
		assert.Equal(t, -18000, offset)
		assert.Equal(t, 900*time.Second, snap.UpdateInterval)
		require.NotNil(t, snap.Node)
		assert.Equal(t, "kc0abc-wx", snap.Node.Name)
		assert.InDelta(t, 39.0997, *snap.Node.Latitude, 1e-9)
		assert.InDelta(t, 277.0, *snap.Elevation, 1e-9)
	})

	t.Run("current conditions", func(t *testing.T) {
		c := snap.Current
		assert.Equal(t, 2, *c.ConditionCode)
		assert.InDelta(t, 71.4, *c.Temperature, 1e-9)
		assert.Equal(t, "°F", *c.TemperatureUnit)
		assert.InDelta(t, 1012.6, *c.Pressure, 1e-9)
		assert.InDelta(t, 58, *c.Humidity, 1e-9)
		assert.InDelta(t, 9.8, *c.WindSpeed, 1e-9)
		assert.InDelta(t, 190, *c.WindBearing, 1e-9)
		assert.InDelta(t, 70.2, *c.ApparentTemperature, 1e-9)
		assert.InDelta(t, 40, *c.CloudCover, 1e-9)
		assert.InDelta(t, 18.3, *c.WindGustSpeed, 1e-9)
		require.NotNil(t, c.Precipitation, "reported zero must not read as absent")
		assert.Zero(t, *c.Precipitation)
	})

	t.Run("daily forecast starts today", func(t *testing.T) {
		require.Len(t, snap.Daily, 3)
		assert.Equal(t, "2024-05-01", snap.Daily[0].Date.Format("2006-01-02"))
		assert.Equal(t, "2024-05-02", snap.Daily[1].Date.Format("2006-01-02"))
		assert.Equal(t, "2024-05-03", snap.Daily[2].Date.Format("2006-01-02"))

		d := snap.Daily[1]
		assert.Equal(t, 95, *d.ConditionCode)
		assert.InDelta(t, 79.5, *d.TempHigh, 1e-9)
		assert.InDelta(t, 60.3, *d.TempLow, 1e-9)
		assert.InDelta(t, 1.2, *d.Precipitation, 1e-9)
		assert.InDelta(t, 22.1, *d.WindSpeed, 1e-9)
		assert.InDelta(t, 210, *d.WindBearing, 1e-9)

		assert.Nil(t, snap.Daily[2].ConditionCode, "null array element stays absent")
	})

	t.Run("hourly forecast starts now", func(t *testing.T) {
		require.Len(t, snap.Hourly, 2)
		assert.True(t, snap.Hourly[0].Time.Equal(time.Date(2024, 5, 1, 14, 0, 0, 0, cdt)))
		assert.True(t, snap.Hourly[1].Time.Equal(time.Date(2024, 5, 1, 15, 0, 0, 0, cdt)))
		assert.InDelta(t, 72.3, *snap.Hourly[0].Temperature, 1e-9)
		assert.InDelta(t, 0.02, *snap.Hourly[1].Precipitation, 1e-9)
	})

	t.Run("air quality for the current hour", func(t *testing.T) {
		require.NotNil(t, snap.AirQuality.AQI)
		require.NotNil(t, snap.AirQuality.PM25)
		assert.Equal(t, 42, *snap.AirQuality.AQI)
		assert.InDelta(t, 9.1, *snap.AirQuality.PM25, 1e-9)
	})

	t.Run("alerts", func(t *testing.T) {
		require.Len(t, snap.Alerts, 1)
		assert.Equal(t, "Severe Thunderstorm Watch issued May 1 at 1:05PM CDT", snap.Alerts[0].Headline())
		props, err := snap.Alerts[0].Properties()
		require.NoError(t, err)
		assert.Equal(t, "Severe Thunderstorm Watch", props["event"])
	})
}

func TestParse_Idempotent(t *testing.T) {
	data := loadFixture(t)

	first, err := Parse(data)
	require.NoError(t, err)
	second, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParse_AbsentFieldStaysAbsent(t *testing.T) {
	data := fixtureWith(t, func(doc map[string]any) {
		current := section(doc, "weather", "current")
		delete(current, "temperature_2m")
		delete(current, "wind_gusts_10m")
		delete(section(doc, "weather"), "current_units")
	})

	snap, err := Parse(data)
	require.NoError(t, err)
	assert.Nil(t, snap.Current.Temperature)
	assert.Nil(t, snap.Current.WindGustSpeed)
	assert.Nil(t, snap.Current.TemperatureUnit)
	assert.NotNil(t, snap.Current.Pressure)
}

func TestParse_DailyBoundary(t *testing.T) {
	data := fixtureWith(t, func(doc map[string]any) {
		daily := section(doc, "weather", "daily")
		daily["time"] = []any{"2024-04-30", "2024-05-01"}
		for _, key := range []string{"weathercode", "temperature_2m_max", "temperature_2m_min", "precipitation_sum", "wind_speed_10m_max", "wind_direction_10m_dominant"} {
			daily[key] = []any{1, 2}
		}
		// late in the day: the date, not the hour, decides inclusion
		section(doc, "weather", "current")["time"] = "2024-05-01T23:45"
	})

	snap, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, snap.Daily, 1)
	assert.Equal(t, "2024-05-01", snap.Daily[0].Date.Format("2006-01-02"))
	assert.Equal(t, 2, *snap.Daily[0].ConditionCode)
}

func TestParse_HourlyBoundary(t *testing.T) {
	data := fixtureWith(t, func(doc map[string]any) {
		hourly := section(doc, "weather", "hourly")
		hourly["time"] = []any{"2024-05-01T13:59:59", "2024-05-01T14:00:00", "2024-05-01T14:00:01"}
		for _, key := range []string{"weathercode", "temperature_2m", "precipitation", "wind_speed_10m", "wind_direction_10m"} {
			hourly[key] = []any{1, 2, 3}
		}
		section(doc, "weather", "current")["time"] = "2024-05-01T14:00:00"
	})

	snap, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, snap.Hourly, 2)
	assert.True(t, snap.Hourly[0].Time.Equal(time.Date(2024, 5, 1, 14, 0, 0, 0, cdt)))
	assert.Equal(t, 2, *snap.Hourly[0].ConditionCode)
	assert.Equal(t, 3, *snap.Hourly[1].ConditionCode)
}

func TestParse_OffsetTimestamps(t *testing.T) {
	data := fixtureWith(t, func(doc map[string]any) {
		delete(section(doc, "weather"), "utc_offset_seconds")
		section(doc, "weather", "current")["time"] = "2024-05-01T13:15:00-05:00"
	})

	snap, err := Parse(data)
	require.NoError(t, err)

	// naive forecast times are read in the observation's zone
	require.Len(t, snap.Hourly, 2)
	assert.True(t, snap.Hourly[0].Time.Equal(time.Date(2024, 5, 1, 14, 0, 0, 0, cdt)))
	require.NotNil(t, snap.AirQuality.AQI)
	assert.Equal(t, 42, *snap.AirQuality.AQI)
}

func TestParse_NaiveTimesWithoutOffsetAreUTC(t *testing.T) {
	data := fixtureWith(t, func(doc map[string]any) {
		delete(section(doc, "weather"), "utc_offset_seconds")
	})

	snap, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, snap.UpdateTime.Location())
	assert.Equal(t, time.Date(2024, 5, 1, 13, 15, 0, 0, time.UTC), snap.UpdateTime)
}

func TestParse_AirQuality(t *testing.T) {
	tests := []struct {
		name     string
		edit     func(doc map[string]any)
		wantAQI  *int
		wantPM25 *float64
	}{
		{
			name:     "no matching hour",
			edit:     func(doc map[string]any) { section(doc, "air", "hourly")["time"] = []any{"2024-05-01T10:00", "2024-05-01T11:00"} },
			wantAQI:  nil,
			wantPM25: nil,
		},
		{
			name: "match must be exact",
			edit: func(doc map[string]any) {
				section(doc, "air", "hourly")["time"] = []any{"2024-05-01T13:00:00", "2024-05-01 13:00"}
			},
		},
		{
			name: "air section absent",
			edit: func(doc map[string]any) { delete(doc, "air") },
		},
		{
			name: "time array absent",
			edit: func(doc map[string]any) { delete(section(doc, "air", "hourly"), "time") },
		},
		{
			name: "values shorter than time",
			edit: func(doc map[string]any) {
				section(doc, "air", "hourly")["us_aqi"] = []any{40}
				section(doc, "air", "hourly")["pm2_5"] = []any{8.5}
			},
		},
		{
			name: "malformed air section",
			edit: func(doc map[string]any) { doc["air"] = "unavailable" },
		},
		{
			name:     "pm2_5 absent keeps aqi",
			edit:     func(doc map[string]any) { delete(section(doc, "air", "hourly"), "pm2_5") },
			wantAQI:  ptr(42),
			wantPM25: nil,
		},
		{
			name:     "fractional aqi is rounded",
			edit:     func(doc map[string]any) { section(doc, "air", "hourly")["us_aqi"] = []any{40, 41.6, 45} },
			wantAQI:  ptr(42),
			wantPM25: ptr(9.1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Parse(fixtureWith(t, tt.edit))
			require.NoError(t, err, "air quality problems must not fail the parse")
			assert.Equal(t, tt.wantAQI, snap.AirQuality.AQI)
			if tt.wantPM25 == nil {
				assert.Nil(t, snap.AirQuality.PM25)
			} else {
				require.NotNil(t, snap.AirQuality.PM25)
				assert.InDelta(t, *tt.wantPM25, *snap.AirQuality.PM25, 1e-9)
			}
		})
	}
}

func TestParse_Gate(t *testing.T) {
	t.Run("missing weather", func(t *testing.T) {
		snap, err := Parse(fixtureWith(t, func(doc map[string]any) { delete(doc, "weather") }))
		requireInvalid(t, snap, err, "weather")
	})

	t.Run("null weather", func(t *testing.T) {
		snap, err := Parse(fixtureWith(t, func(doc map[string]any) { doc["weather"] = nil }))
		requireInvalid(t, snap, err, "weather")
	})

	t.Run("status not ok", func(t *testing.T) {
		snap, err := Parse(fixtureWith(t, func(doc map[string]any) { doc["status"] = "error" }))
		requireInvalid(t, snap, err, "status")
	})

	t.Run("status match is exact", func(t *testing.T) {
		snap, err := Parse(fixtureWith(t, func(doc map[string]any) { doc["status"] = "OK" }))
		requireInvalid(t, snap, err, "status")
	})

	t.Run("status missing", func(t *testing.T) {
		snap, err := Parse(fixtureWith(t, func(doc map[string]any) { delete(doc, "status") }))
		requireInvalid(t, snap, err, "status")
	})

	t.Run("status key match is exact", func(t *testing.T) {
		snap, err := Parse(fixtureWith(t, func(doc map[string]any) {
			doc["STATUS"] = doc["status"]
			delete(doc, "status")
		}))
		requireInvalid(t, snap, err, "status")
	})

	t.Run("weather key match is exact", func(t *testing.T) {
		snap, err := Parse(fixtureWith(t, func(doc map[string]any) {
			doc["Weather"] = doc["weather"]
			delete(doc, "weather")
		}))
		requireInvalid(t, snap, err, "weather")
	})

	t.Run("not json", func(t *testing.T) {
		snap, err := Parse([]byte("<html>502 Bad Gateway</html>"))
		requireInvalid(t, snap, err, "")
	})

	t.Run("not an object", func(t *testing.T) {
		snap, err := Parse([]byte(`["ok"]`))
		requireInvalid(t, snap, err, "")
	})

	t.Run("empty body", func(t *testing.T) {
		snap, err := Parse(nil)
		requireInvalid(t, snap, err, "")
	})
}

func TestParse_RequiredStructure(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(doc map[string]any)
		field string
	}{
		{"current missing", func(doc map[string]any) { delete(section(doc, "weather"), "current") }, "weather.current"},
		{"current time missing", func(doc map[string]any) { delete(section(doc, "weather", "current"), "time") }, "weather.current.time"},
		{"current time unparsable", func(doc map[string]any) { section(doc, "weather", "current")["time"] = "yesterday" }, "weather.current.time"},
		{"daily missing", func(doc map[string]any) { delete(section(doc, "weather"), "daily") }, "weather.daily"},
		{"hourly missing", func(doc map[string]any) { delete(section(doc, "weather"), "hourly") }, "weather.hourly"},
		{"daily time unparsable", func(doc map[string]any) { section(doc, "weather", "daily")["time"] = []any{"someday"} }, "weather.daily.time[0]"},
		{"hourly time wrong type", func(doc map[string]any) { section(doc, "weather", "hourly")["time"] = "2024-05-01T14:00" }, "weather.hourly"},
		{"temperature wrong type", func(doc map[string]any) { section(doc, "weather", "current")["temperature_2m"] = "warm" }, "weather.current"},
		{"current wrong type", func(doc map[string]any) { section(doc, "weather")["current"] = "sunny" }, "weather.current"},
		{"current time key case differs", func(doc map[string]any) {
			current := section(doc, "weather", "current")
			current["Time"] = current["time"]
			delete(current, "time")
		}, "weather.current.time"},
		{"daily key case differs", func(doc map[string]any) {
			w := section(doc, "weather")
			w["Daily"] = w["daily"]
			delete(w, "daily")
		}, "weather.daily"},
		{"fractional weathercode", func(doc map[string]any) { section(doc, "weather", "current")["weathercode"] = 2.5 }, "weather.current.weathercode"},
		{"geo wrong type", func(doc map[string]any) { doc["geo"] = "kc0abc-wx" }, "geo"},
	}

	for _, key := range []string{"time", "weathercode", "temperature_2m_max", "temperature_2m_min", "precipitation_sum", "wind_speed_10m_max", "wind_direction_10m_dominant"} {
		key := key
		tests = append(tests, struct {
			name  string
			edit  func(doc map[string]any)
			field string
		}{"daily " + key + " missing", func(doc map[string]any) { delete(section(doc, "weather", "daily"), key) }, "weather.daily." + key})
	}
	for _, key := range []string{"time", "weathercode", "temperature_2m", "precipitation", "wind_speed_10m", "wind_direction_10m"} {
		key := key
		tests = append(tests, struct {
			name  string
			edit  func(doc map[string]any)
			field string
		}{"hourly " + key + " missing", func(doc map[string]any) { delete(section(doc, "weather", "hourly"), key) }, "weather.hourly." + key})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Parse(fixtureWith(t, tt.edit))
			requireInvalid(t, snap, err, tt.field)
		})
	}
}

func TestParse_IndexOutOfRange(t *testing.T) {
	t.Run("included daily record", func(t *testing.T) {
		data := fixtureWith(t, func(doc map[string]any) {
			section(doc, "weather", "daily")["temperature_2m_min"] = []any{51.2, 55.0}
		})
		snap, err := Parse(data)
		requireInvalid(t, snap, err, "weather.daily.temperature_2m_min")
		assert.ErrorIs(t, err, errOutOfRange)
	})

	t.Run("included hourly record", func(t *testing.T) {
		data := fixtureWith(t, func(doc map[string]any) {
			section(doc, "weather", "hourly")["wind_direction_10m"] = []any{180, 188, 192}
		})
		snap, err := Parse(data)
		requireInvalid(t, snap, err, "weather.hourly.wind_direction_10m")
	})

	t.Run("excluded records are not read", func(t *testing.T) {
		data := fixtureWith(t, func(doc map[string]any) {
			hourly := section(doc, "weather", "hourly")
			hourly["time"] = []any{"2024-05-01T15:00", "2024-05-01T12:00"}
			hourly["weathercode"] = []any{3}
			hourly["temperature_2m"] = []any{73.5}
			hourly["precipitation"] = []any{0.02}
			hourly["wind_speed_10m"] = []any{11.0}
			hourly["wind_direction_10m"] = []any{200}
		})
		snap, err := Parse(data)
		require.NoError(t, err)
		require.Len(t, snap.Hourly, 1)
		assert.Equal(t, 3, *snap.Hourly[0].ConditionCode)
	})
}

func TestParse_UpdateInterval(t *testing.T) {
	tests := []struct {
		name string
		edit func(doc map[string]any)
		want time.Duration
	}{
		{"reported", func(doc map[string]any) { section(doc, "weather", "current")["interval"] = 300 }, 300 * time.Second},
		{"absent defaults to 900s", func(doc map[string]any) { delete(section(doc, "weather", "current"), "interval") }, 900 * time.Second},
		{"null defaults to 900s", func(doc map[string]any) { section(doc, "weather", "current")["interval"] = nil }, 900 * time.Second},
		{"zero is kept", func(doc map[string]any) { section(doc, "weather", "current")["interval"] = 0 }, 0},
		{"negative is kept", func(doc map[string]any) { section(doc, "weather", "current")["interval"] = -60 }, -60 * time.Second},
		{"one day is accepted", func(doc map[string]any) { section(doc, "weather", "current")["interval"] = 86400 }, 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Parse(fixtureWith(t, tt.edit))
			require.NoError(t, err)
			assert.Equal(t, tt.want, snap.UpdateInterval)
		})
	}
}

func TestParse_UpdateIntervalOutOfRange(t *testing.T) {
	for _, v := range []float64{86401, 1e12, -1e12} {
		snap, err := Parse(fixtureWith(t, func(doc map[string]any) {
			section(doc, "weather", "current")["interval"] = v
		}))
		requireInvalid(t, snap, err, "weather.current.interval")
	}
}

func TestParse_IntegralFloatWeatherCodes(t *testing.T) {
	data := loadFixture(t)
	for _, r := range []struct{ from, to string }{
		{`"weathercode": 2,`, `"weathercode": 2.0,`},
		{`[61, 2, 95, null]`, `[61.0, 2.0, 95.0, null]`},
		{`[1, 2, 2, 3]`, `[1.0, 2.0, 2.0, 3.0]`},
	} {
		require.True(t, bytes.Contains(data, []byte(r.from)), "fixture changed: %s", r.from)
		data = bytes.ReplaceAll(data, []byte(r.from), []byte(r.to))
	}

	snap, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 2, *snap.Current.ConditionCode)
	assert.Equal(t, 95, *snap.Daily[1].ConditionCode)
	assert.Nil(t, snap.Daily[2].ConditionCode)
	assert.Equal(t, 3, *snap.Hourly[1].ConditionCode)
}

func TestParse_UTCPivotWithLocalSeries(t *testing.T) {
	// the observation is sent in UTC while the series stay on local wall clock
	data := fixtureWith(t, func(doc map[string]any) {
		section(doc, "weather", "current")["time"] = "2024-05-01T18:15:00Z"
	})

	snap, err := Parse(data)
	require.NoError(t, err)
	assert.True(t, snap.UpdateTime.Equal(time.Date(2024, 5, 1, 13, 15, 0, 0, cdt)))

	require.Len(t, snap.Hourly, 2)
	assert.True(t, snap.Hourly[0].Time.Equal(time.Date(2024, 5, 1, 14, 0, 0, 0, cdt)))
	require.Len(t, snap.Daily, 3)
	assert.Equal(t, "2024-05-01", snap.Daily[0].Date.Format("2006-01-02"))
	require.NotNil(t, snap.AirQuality.AQI)
	assert.Equal(t, 42, *snap.AirQuality.AQI)
}

func TestParse_AlertsAbsent(t *testing.T) {
	snap, err := Parse(fixtureWith(t, func(doc map[string]any) {
		delete(doc, "nws_alerts")
		delete(doc, "geo")
	}))
	require.NoError(t, err)
	assert.NotNil(t, snap.Alerts)
	assert.Empty(t, snap.Alerts)
	assert.Nil(t, snap.Node)
	assert.Equal(t, "Mesh Weather", snap.Title("Mesh Weather"))
}

func ptr[T any](v T) *T {
	return &v
}
