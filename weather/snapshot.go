package weather

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DefaultUpdateInterval is used when a document does not report current.interval.
const DefaultUpdateInterval = 900 * time.Second

// Snapshot is the normalized result of parsing one document.
//
// A Snapshot is never modified after [Parse] returns it. Holders replace it
// wholesale with the next parse result. Use [Snapshot.Clone] before handing
// it to code that might modify it.
//
// Optional values are pointers: nil means the document did not carry the
// field, which is distinct from a reported zero.
type Snapshot struct {
	// Node identifies the reporting mesh node. Nil if the document has no geo section.
	Node *Node `json:"node,omitempty"`

	// Elevation is the forecast grid elevation in meters.
	Elevation *float64 `json:"elevation,omitempty"`

	Current Conditions `json:"current"`

	// Daily holds entries dated on or after the observation date, in source order.
	Daily []DailyForecast `json:"daily"`

	// Hourly holds entries at or after the observation instant, in source order.
	Hourly []HourlyForecast `json:"hourly"`

	AirQuality AirQuality `json:"air_quality"`

	Alerts []Alert `json:"alerts"`

	// UpdateTime is the node's observation timestamp (current.time).
	UpdateTime time.Time `json:"update_time"`

	// UpdateInterval is how often the node refreshes its data.
	UpdateInterval time.Duration `json:"-"`
}

// Node is the identity of the mesh node that served the document.
type Node struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Conditions are the current observations.
type Conditions struct {
	ConditionCode       *int     `json:"condition_code"`
	Temperature         *float64 `json:"temperature"`
	TemperatureUnit     *string  `json:"temperature_unit"`
	Pressure            *float64 `json:"pressure"`
	Humidity            *float64 `json:"humidity"`
	WindSpeed           *float64 `json:"wind_speed"`
	WindBearing         *float64 `json:"wind_bearing"`
	ApparentTemperature *float64 `json:"apparent_temperature"`
	CloudCover          *float64 `json:"cloud_cover"`
	WindGustSpeed       *float64 `json:"wind_gust_speed"`
	Precipitation       *float64 `json:"precipitation"`
}

// DailyForecast is one day of the daily forecast.
type DailyForecast struct {
	Date          time.Time `json:"date"`
	ConditionCode *int      `json:"condition_code"`
	TempHigh      *float64  `json:"temperature"`
	TempLow       *float64  `json:"templow"`
	Precipitation *float64  `json:"precipitation"`
	WindSpeed     *float64  `json:"wind_speed"`
	WindBearing   *float64  `json:"wind_bearing"`
}

// HourlyForecast is one hour of the hourly forecast.
type HourlyForecast struct {
	Time          time.Time `json:"datetime"`
	ConditionCode *int      `json:"condition_code"`
	Temperature   *float64  `json:"temperature"`
	Precipitation *float64  `json:"precipitation"`
	WindSpeed     *float64  `json:"wind_speed"`
	WindBearing   *float64  `json:"wind_bearing"`
}

// AirQuality is the air-quality reading for the observation hour.
// Both fields are nil when no reading matches that hour.
type AirQuality struct {
	AQI  *int     `json:"aqi"`
	PM25 *float64 `json:"pm25"`
}

// Alert is one alert feature, passed through as received.
type Alert json.RawMessage

// MarshalJSON returns the alert unchanged.
func (a Alert) MarshalJSON() ([]byte, error) {
	if len(a) == 0 {
		return []byte("null"), nil
	}
	return a, nil
}

// UnmarshalJSON stores a copy of data.
func (a *Alert) UnmarshalJSON(data []byte) error {
	*a = append((*a)[0:0], data...)
	return nil
}

// Properties decodes the alert's "properties" object.
func (a Alert) Properties() (map[string]any, error) {
	var feature struct {
		Properties map[string]any `json:"properties"`
	}
	if err := json.Unmarshal(a, &feature); err != nil {
		return nil, err
	}
	return feature.Properties, nil
}

// Headline returns properties.headline, or "" if the alert has none.
func (a Alert) Headline() string {
	props, err := a.Properties()
	if err != nil {
		return ""
	}
	headline, _ := props["headline"].(string)
	return headline
}

// TemperatureScale reports "F" when the node reports Fahrenheit and "C" otherwise.
//
// Nodes have been seen sending the unit mis-encoded ("Â°F"), so only the
// trailing letter is inspected.
func (s *Snapshot) TemperatureScale() string {
	if s.Current.TemperatureUnit != nil && strings.HasSuffix(strings.ToUpper(*s.Current.TemperatureUnit), "F") {
		return "F"
	}
	return "C"
}

// Title returns the node name, or fallback when the document carried no geo section.
func (s *Snapshot) Title(fallback string) string {
	if s.Node != nil && s.Node.Name != "" {
		return s.Node.Name
	}
	return fallback
}

// MarshalJSON adds update_interval_seconds to the encoded snapshot.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type plain Snapshot
	return json.Marshal(struct {
		plain
		UpdateIntervalSeconds float64 `json:"update_interval_seconds"`
	}{
		plain:                 plain(s),
		UpdateIntervalSeconds: s.UpdateInterval.Seconds(),
	})
}

// Clone returns a deep copy of the snapshot. Clone of nil is nil.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	cp := *s
	if s.Node != nil {
		node := *s.Node
		node.Latitude = clonePtr(s.Node.Latitude)
		node.Longitude = clonePtr(s.Node.Longitude)
		cp.Node = &node
	}
	cp.Elevation = clonePtr(s.Elevation)
	cp.Current = s.Current.clone()

	if s.Daily != nil {
		cp.Daily = make([]DailyForecast, len(s.Daily))
		for i, d := range s.Daily {
			cp.Daily[i] = DailyForecast{
				Date:          d.Date,
				ConditionCode: clonePtr(d.ConditionCode),
				TempHigh:      clonePtr(d.TempHigh),
				TempLow:       clonePtr(d.TempLow),
				Precipitation: clonePtr(d.Precipitation),
				WindSpeed:     clonePtr(d.WindSpeed),
				WindBearing:   clonePtr(d.WindBearing),
			}
		}
	}

	if s.Hourly != nil {
		cp.Hourly = make([]HourlyForecast, len(s.Hourly))
		for i, h := range s.Hourly {
			cp.Hourly[i] = HourlyForecast{
				Time:          h.Time,
				ConditionCode: clonePtr(h.ConditionCode),
				Temperature:   clonePtr(h.Temperature),
				Precipitation: clonePtr(h.Precipitation),
				WindSpeed:     clonePtr(h.WindSpeed),
				WindBearing:   clonePtr(h.WindBearing),
			}
		}
	}

	cp.AirQuality = AirQuality{
		AQI:  clonePtr(s.AirQuality.AQI),
		PM25: clonePtr(s.AirQuality.PM25),
	}

	if s.Alerts != nil {
		cp.Alerts = make([]Alert, len(s.Alerts))
		for i, a := range s.Alerts {
			cp.Alerts[i] = append(Alert(nil), a...)
		}
	}

	return &cp
}

func (c Conditions) clone() Conditions {
	return Conditions{
		ConditionCode:       clonePtr(c.ConditionCode),
		Temperature:         clonePtr(c.Temperature),
		TemperatureUnit:     clonePtr(c.TemperatureUnit),
		Pressure:            clonePtr(c.Pressure),
		Humidity:            clonePtr(c.Humidity),
		WindSpeed:           clonePtr(c.WindSpeed),
		WindBearing:         clonePtr(c.WindBearing),
		ApparentTemperature: clonePtr(c.ApparentTemperature),
		CloudCover:          clonePtr(c.CloudCover),
		WindGustSpeed:       clonePtr(c.WindGustSpeed),
		Precipitation:       clonePtr(c.Precipitation),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
