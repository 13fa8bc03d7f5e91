package weather

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// statusOK is the only status value a usable document carries.
const statusOK = "ok"

// maxReportedInterval bounds the magnitude of current.interval.
const maxReportedInterval = 24 * time.Hour

// airQualityHourLayout formats the observation hour the way the air-quality
// series keys its entries ("2024-05-01T13:00").
const airQualityHourLayout = "2006-01-02T15:00"

// naiveLayouts are accepted for timestamps that carry no UTC offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Sections are kept raw and decoded one level at a time with decodeExact.
type document struct {
	Status    string          `json:"status"`
	Geo       json.RawMessage `json:"geo"`
	Weather   json.RawMessage `json:"weather"`
	Air       json.RawMessage `json:"air"`
	NWSAlerts json.RawMessage `json:"nws_alerts"`
}

type geoSection struct {
	Node string   `json:"node"`
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
}

type alertsSection struct {
	Features []Alert `json:"features"`
}

type weatherSection struct {
	Current          json.RawMessage `json:"current"`
	CurrentUnits     json.RawMessage `json:"current_units"`
	Daily            json.RawMessage `json:"daily"`
	Hourly           json.RawMessage `json:"hourly"`
	Elevation        *float64        `json:"elevation"`
	UTCOffsetSeconds *int            `json:"utc_offset_seconds"`
}

type unitsSection struct {
	Temperature *string `json:"temperature_2m"`
}

type currentSection struct {
	Time                *string  `json:"time"`
	Interval            *float64 `json:"interval"`
	WeatherCode         *float64 `json:"weathercode"`
	Temperature         *float64 `json:"temperature_2m"`
	Pressure            *float64 `json:"pressure_msl"`
	Humidity            *float64 `json:"relative_humidity_2m"`
	WindSpeed           *float64 `json:"wind_speed_10m"`
	WindDirection       *float64 `json:"wind_direction_10m"`
	ApparentTemperature *float64 `json:"apparent_temperature"`
	CloudCover          *float64 `json:"cloudcover"`
	WindGusts           *float64 `json:"wind_gusts_10m"`
	Precipitation       *float64 `json:"precipitation"`
}

type dailySection struct {
	Time             []string   `json:"time"`
	WeatherCode      []*float64 `json:"weathercode"`
	TempMax          []*float64 `json:"temperature_2m_max"`
	TempMin          []*float64 `json:"temperature_2m_min"`
	PrecipitationSum []*float64 `json:"precipitation_sum"`
	WindSpeedMax     []*float64 `json:"wind_speed_10m_max"`
	WindDirection    []*float64 `json:"wind_direction_10m_dominant"`
}

type hourlySection struct {
	Time          []string   `json:"time"`
	WeatherCode   []*float64 `json:"weathercode"`
	Temperature   []*float64 `json:"temperature_2m"`
	Precipitation []*float64 `json:"precipitation"`
	WindSpeed     []*float64 `json:"wind_speed_10m"`
	WindDirection []*float64 `json:"wind_direction_10m"`
}

type airSection struct {
	Hourly json.RawMessage `json:"hourly"`
}

type airHourly struct {
	Time  []string   `json:"time"`
	USAQI []*float64 `json:"us_aqi"`
	PM25  []*float64 `json:"pm2_5"`
}

// Parse decodes raw and normalizes it into a [Snapshot].
//
// The document must report status "ok" and carry a weather section with
// current, daily and hourly data. Keys are matched exactly, so "Weather" is
// not "weather". current.time is the pivot: daily entries dated before it
// and hourly entries earlier than it are dropped, and the air-quality
// reading is taken from the pivot's hour. Air quality is best effort and
// never causes a failure; everything else that is missing or of the wrong
// type does.
//
// Every returned error is a *ParseError matching [ErrInvalidData].
func Parse(raw []byte) (*Snapshot, error) {
	var doc document
	if err := decodeExact(raw, &doc); err != nil {
		return nil, invalid("", err)
	}

	if doc.Status != statusOK {
		return nil, invalid("status", fmt.Errorf("got %q, want %q", doc.Status, statusOK))
	}
	if isNull(doc.Weather) {
		return nil, invalid("weather", errMissing)
	}

	var ws weatherSection
	if err := decodeExact(doc.Weather, &ws); err != nil {
		return nil, invalid("weather", err)
	}

	var cur currentSection
	if err := requireSection(ws.Current, "weather.current", &cur); err != nil {
		return nil, err
	}
	if cur.Time == nil {
		return nil, invalid("weather.current.time", errMissing)
	}

	pivot, err := parseTimestamp(*cur.Time, naiveLocation(ws.UTCOffsetSeconds))
	if err != nil {
		return nil, invalid("weather.current.time", err)
	}
	pivot = pinZone(pivot)
	series := seriesLocation(ws.UTCOffsetSeconds, pivot)

	var units unitsSection
	if _, err := optionalSection(ws.CurrentUnits, "weather.current_units", &units); err != nil {
		return nil, err
	}
	current, err := currentConditions(&cur, &units)
	if err != nil {
		return nil, err
	}

	var ds dailySection
	if err := requireSection(ws.Daily, "weather.daily", &ds); err != nil {
		return nil, err
	}
	daily, err := parseDaily(&ds, pivot, series)
	if err != nil {
		return nil, err
	}

	var hs hourlySection
	if err := requireSection(ws.Hourly, "weather.hourly", &hs); err != nil {
		return nil, err
	}
	hourly, err := parseHourly(&hs, pivot, series)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Elevation:      ws.Elevation,
		Current:        current,
		Daily:          daily,
		Hourly:         hourly,
		AirQuality:     parseAirQuality(doc.Air, pivot, series),
		Alerts:         []Alert{},
		UpdateTime:     pivot,
		UpdateInterval: DefaultUpdateInterval,
	}

	var geo geoSection
	if ok, err := optionalSection(doc.Geo, "geo", &geo); err != nil {
		return nil, err
	} else if ok {
		snap.Node = &Node{Name: geo.Node, Latitude: geo.Lat, Longitude: geo.Lon}
	}

	var alerts alertsSection
	if _, err := optionalSection(doc.NWSAlerts, "nws_alerts", &alerts); err != nil {
		return nil, err
	}
	if alerts.Features != nil {
		snap.Alerts = alerts.Features
	}

	if cur.Interval != nil {
		secs := *cur.Interval
		if math.Abs(secs) > maxReportedInterval.Seconds() {
			return nil, invalid("weather.current.interval",
				fmt.Errorf("%v seconds is outside ±%s", secs, maxReportedInterval))
		}
		snap.UpdateInterval = time.Duration(secs * float64(time.Second))
	}

	return snap, nil
}

func currentConditions(c *currentSection, units *unitsSection) (Conditions, error) {
	code, err := wmoCode(c.WeatherCode, "weather.current.weathercode")
	if err != nil {
		return Conditions{}, err
	}
	return Conditions{
		ConditionCode:       code,
		Temperature:         c.Temperature,
		TemperatureUnit:     units.Temperature,
		Pressure:            c.Pressure,
		Humidity:            c.Humidity,
		WindSpeed:           c.WindSpeed,
		WindBearing:         c.WindDirection,
		ApparentTemperature: c.ApparentTemperature,
		CloudCover:          c.CloudCover,
		WindGustSpeed:       c.WindGusts,
		Precipitation:       c.Precipitation,
	}, nil
}

func parseDaily(d *dailySection, pivot time.Time, loc *time.Location) ([]DailyForecast, error) {
	if err := requireArrays("weather.daily",
		arrayField{"time", d.Time != nil},
		arrayField{"weathercode", d.WeatherCode != nil},
		arrayField{"temperature_2m_max", d.TempMax != nil},
		arrayField{"temperature_2m_min", d.TempMin != nil},
		arrayField{"precipitation_sum", d.PrecipitationSum != nil},
		arrayField{"wind_speed_10m_max", d.WindSpeedMax != nil},
		arrayField{"wind_direction_10m_dominant", d.WindDirection != nil},
	); err != nil {
		return nil, err
	}

	today := dateOf(pivot.In(loc))
	out := make([]DailyForecast, 0, len(d.Time))
	for i, raw := range d.Time {
		t, err := parseTimestamp(raw, loc)
		if err != nil {
			return nil, invalid(fmt.Sprintf("weather.daily.time[%d]", i), err)
		}
		if dateOf(t).Before(today) {
			continue
		}

		entry := DailyForecast{Date: t}
		if entry.ConditionCode, err = codeAt(d.WeatherCode, i, "weather.daily.weathercode"); err != nil {
			return nil, err
		}
		if entry.TempHigh, err = at(d.TempMax, i, "weather.daily.temperature_2m_max"); err != nil {
			return nil, err
		}
		if entry.TempLow, err = at(d.TempMin, i, "weather.daily.temperature_2m_min"); err != nil {
			return nil, err
		}
		if entry.Precipitation, err = at(d.PrecipitationSum, i, "weather.daily.precipitation_sum"); err != nil {
			return nil, err
		}
		if entry.WindSpeed, err = at(d.WindSpeedMax, i, "weather.daily.wind_speed_10m_max"); err != nil {
			return nil, err
		}
		if entry.WindBearing, err = at(d.WindDirection, i, "weather.daily.wind_direction_10m_dominant"); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func parseHourly(h *hourlySection, pivot time.Time, loc *time.Location) ([]HourlyForecast, error) {
	if err := requireArrays("weather.hourly",
		arrayField{"time", h.Time != nil},
		arrayField{"weathercode", h.WeatherCode != nil},
		arrayField{"temperature_2m", h.Temperature != nil},
		arrayField{"precipitation", h.Precipitation != nil},
		arrayField{"wind_speed_10m", h.WindSpeed != nil},
		arrayField{"wind_direction_10m", h.WindDirection != nil},
	); err != nil {
		return nil, err
	}

	out := make([]HourlyForecast, 0, len(h.Time))
	for i, raw := range h.Time {
		t, err := parseTimestamp(raw, loc)
		if err != nil {
			return nil, invalid(fmt.Sprintf("weather.hourly.time[%d]", i), err)
		}
		if t.Before(pivot) {
			continue
		}

		entry := HourlyForecast{Time: t}
		if entry.ConditionCode, err = codeAt(h.WeatherCode, i, "weather.hourly.weathercode"); err != nil {
			return nil, err
		}
		if entry.Temperature, err = at(h.Temperature, i, "weather.hourly.temperature_2m"); err != nil {
			return nil, err
		}
		if entry.Precipitation, err = at(h.Precipitation, i, "weather.hourly.precipitation"); err != nil {
			return nil, err
		}
		if entry.WindSpeed, err = at(h.WindSpeed, i, "weather.hourly.wind_speed_10m"); err != nil {
			return nil, err
		}
		if entry.WindBearing, err = at(h.WindDirection, i, "weather.hourly.wind_direction_10m"); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// parseAirQuality looks up the pivot hour, on the series' wall clock, in the
// air-quality series. Any problem yields an empty reading.
func parseAirQuality(raw json.RawMessage, pivot time.Time, loc *time.Location) AirQuality {
	var air airSection
	if ok, err := optionalSection(raw, "air", &air); !ok || err != nil {
		return AirQuality{}
	}
	var hourly airHourly
	if ok, err := optionalSection(air.Hourly, "air.hourly", &hourly); !ok || err != nil || hourly.Time == nil {
		return AirQuality{}
	}

	idx := slices.Index(hourly.Time, pivot.In(loc).Format(airQualityHourLayout))
	if idx < 0 {
		return AirQuality{}
	}

	var aq AirQuality
	if v, err := at(hourly.USAQI, idx, "air.hourly.us_aqi"); err == nil && v != nil {
		n := int(math.Round(*v))
		aq.AQI = &n
	}
	if v, err := at(hourly.PM25, idx, "air.hourly.pm2_5"); err == nil {
		aq.PM25 = v
	}
	return aq
}

// requireSection decodes a section that must be present.
func requireSection(raw json.RawMessage, field string, v any) error {
	ok, err := optionalSection(raw, field, v)
	if err != nil {
		return err
	}
	if !ok {
		return invalid(field, errMissing)
	}
	return nil
}

// optionalSection decodes raw into v unless it is absent or null.
func optionalSection(raw json.RawMessage, field string, v any) (bool, error) {
	if isNull(raw) {
		return false, nil
	}
	if err := decodeExact(raw, v); err != nil {
		return false, invalid(field, err)
	}
	return true, nil
}

// exactKeys caches the JSON keys of each decode struct.
var exactKeys sync.Map // reflect.Type -> map[string]bool

func keysOf(t reflect.Type) map[string]bool {
	if keys, ok := exactKeys.Load(t); ok {
		return keys.(map[string]bool)
	}
	keys := make(map[string]bool, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		keys[name] = true
	}
	exactKeys.Store(t, keys)
	return keys
}

// decodeExact decodes the JSON object data into v, a pointer to a struct.
// Only keys equal to a field's tag are kept; the json decoder alone would
// also fill fields from keys that differ in case.
func decodeExact(data []byte, v any) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj == nil {
		return nil
	}

	keys := keysOf(reflect.TypeOf(v).Elem())
	for k := range obj {
		if !keys[k] {
			delete(obj, k)
		}
	}

	exact, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return json.Unmarshal(exact, v)
}

// wmoCode converts a decoded weather code. Integral floats such as 2.0 are
// accepted; fractional codes are not.
func wmoCode(v *float64, field string) (*int, error) {
	if v == nil {
		return nil, nil
	}
	if *v != math.Trunc(*v) || math.Abs(*v) > math.MaxInt32 {
		return nil, invalid(field, fmt.Errorf("%v is not an integer code", *v))
	}
	n := int(*v)
	return &n, nil
}

// codeAt is at for weather code arrays.
func codeAt(values []*float64, i int, field string) (*int, error) {
	v, err := at(values, i, field)
	if err != nil {
		return nil, err
	}
	return wmoCode(v, field)
}

type arrayField struct {
	name    string
	present bool
}

// requireArrays reports the first parallel array missing from section.
func requireArrays(section string, fields ...arrayField) error {
	for _, f := range fields {
		if !f.present {
			return invalid(section+"."+f.name, errMissing)
		}
	}
	return nil
}

// at returns values[i], failing when i is out of range.
func at[T any](values []*T, i int, field string) (*T, error) {
	if i < 0 || i >= len(values) {
		return nil, invalid(field, fmt.Errorf("%w: index %d, length %d", errOutOfRange, i, len(values)))
	}
	return values[i], nil
}

// parseTimestamp accepts RFC 3339 (with or without seconds) and the naive
// layouts Open-Meteo emits. Naive values are read in loc.
func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// naiveLocation is the zone naive timestamps are read in.
func naiveLocation(offsetSeconds *int) *time.Location {
	if offsetSeconds == nil || *offsetSeconds == 0 {
		return time.UTC
	}
	return time.FixedZone("", *offsetSeconds)
}

// seriesLocation is the zone naive forecast and air-quality timestamps are
// read in: the document's reported offset, or the pivot's own zone when the
// document reports none.
func seriesLocation(offsetSeconds *int, pivot time.Time) *time.Location {
	if offsetSeconds != nil {
		return naiveLocation(offsetSeconds)
	}
	return pivot.Location()
}

// pinZone moves t into a fixed zone carrying its own offset so that later
// formatting does not depend on the host's local zone database.
func pinZone(t time.Time) time.Time {
	_, offset := t.Zone()
	if offset == 0 {
		return t.In(time.UTC)
	}
	return t.In(time.FixedZone("", offset))
}

// dateOf truncates t to its calendar date, keeping t's own wall clock.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
