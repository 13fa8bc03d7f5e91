// Package weather turns the JSON document served by a mesh weather node into
// a normalized [Snapshot].
//
// A mesh weather node repackages an Open-Meteo forecast (current conditions
// plus daily and hourly parallel arrays), an hourly air-quality series and
// National Weather Service alerts into one document:
//
//	{
//	  "status": "ok",
//	  "geo": {"node": "kc0abc-wx", "lat": 39.1, "lon": -94.6},
//	  "weather": {"current": {...}, "current_units": {...}, "daily": {...}, "hourly": {...}},
//	  "air": {"hourly": {"time": [...], "us_aqi": [...], "pm2_5": [...]}},
//	  "nws_alerts": {"features": [...]}
//	}
//
// [Parse] is a pure function: it performs no I/O and keeps no state. Every
// failure it returns matches [ErrInvalidData] via errors.Is.
package weather
