// Package mocknode serves fake mesh weather node documents for demos and
// manual testing.
//
// Every node name seen in the "node" query parameter gets its own drifting
// weather. A node occasionally answers 503 so the dashboard shows stale
// stations, and occasionally carries an alert.
package mocknode

import (
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Interval is the update interval every mock node reports.
const Interval = 60 * time.Second

type nodeState struct {
	temperature float64
	code        int
	aqi         int
	alert       bool
}

// Handler serves node documents at any path.
type Handler struct {
	mu       sync.Mutex
	nodes    map[string]*nodeState
	failRate float64
	rng      *rand.Rand
	now      func() time.Time
	logger   *slog.Logger
}

// New returns a Handler. failRate is the fraction of requests answered with
// 503 and must be in [0, 1].
func New(failRate float64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		nodes:    make(map[string]*nodeState),
		failRate: failRate,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
		logger:   logger,
	}
}

var codes = []int{0, 1, 2, 3, 45, 61, 63, 71, 80, 95}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("node")
	if name == "" {
		name = "meshweather"
	}

	h.mu.Lock()
	if h.rng.Float64() < h.failRate {
		h.mu.Unlock()
		h.logger.Info("simulating outage", "node", name)
		http.Error(w, "node busy", http.StatusServiceUnavailable)
		return
	}
	state := h.step(name)
	doc := h.document(name, *state)
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// step advances the weather for one node. Callers hold h.mu.
func (h *Handler) step(name string) *nodeState {
	st, ok := h.nodes[name]
	if !ok {
		st = &nodeState{
			temperature: 55 + h.rng.Float64()*20,
			code:        codes[h.rng.Intn(len(codes))],
			aqi:         20 + h.rng.Intn(60),
		}
		h.nodes[name] = st
		return st
	}

	st.temperature += h.rng.Float64()*2 - 1
	st.aqi = max(0, st.aqi+h.rng.Intn(7)-3)
	if h.rng.Intn(5) == 0 {
		old := st.code
		st.code = codes[h.rng.Intn(len(codes))]
		h.logger.Info("condition change", "node", name, "from", old, "to", st.code)
	}
	st.alert = st.code >= 95
	return st
}

func (h *Handler) document(name string, st nodeState) map[string]any {
	now := h.now().UTC().Truncate(time.Minute)
	hour := now.Truncate(time.Hour)

	days := make([]string, 3)
	hours := make([]string, 3)
	for i := range 3 {
		days[i] = now.AddDate(0, 0, i).Format("2006-01-02")
		hours[i] = hour.Add(time.Duration(i) * time.Hour).Format("2006-01-02T15:04")
	}

	alerts := []any{}
	if st.alert {
		alerts = append(alerts, map[string]any{
			"id": "urn:mock:" + name,
			"properties": map[string]any{
				"event":    "Severe Thunderstorm Warning",
				"headline": "Severe Thunderstorm Warning for the " + name + " area",
			},
		})
	}

	return map[string]any{
		"status": "ok",
		"geo":    map[string]any{"node": name},
		"weather": map[string]any{
			"utc_offset_seconds": 0,
			"current_units":      map[string]any{"temperature_2m": "°F"},
			"current": map[string]any{
				"time":                 now.Format("2006-01-02T15:04"),
				"interval":             Interval.Seconds(),
				"weathercode":          st.code,
				"temperature_2m":       round1(st.temperature),
				"relative_humidity_2m": 40 + h.rng.Intn(40),
				"wind_speed_10m":       round1(h.rng.Float64() * 15),
				"wind_direction_10m":   h.rng.Intn(360),
			},
			"daily": map[string]any{
				"time":                        days,
				"weathercode":                 []int{st.code, codes[h.rng.Intn(len(codes))], codes[h.rng.Intn(len(codes))]},
				"temperature_2m_max":          []float64{round1(st.temperature + 6), round1(st.temperature + 4), round1(st.temperature + 5)},
				"temperature_2m_min":          []float64{round1(st.temperature - 8), round1(st.temperature - 9), round1(st.temperature - 7)},
				"precipitation_sum":           []float64{0, 0.1, 0.4},
				"wind_speed_10m_max":          []float64{12, 9.5, 14},
				"wind_direction_10m_dominant": []int{180, 200, 220},
			},
			"hourly": map[string]any{
				"time":               hours,
				"weathercode":        []int{st.code, st.code, st.code},
				"temperature_2m":     []float64{round1(st.temperature), round1(st.temperature + 0.5), round1(st.temperature + 1)},
				"precipitation":      []float64{0, 0, 0.02},
				"wind_speed_10m":     []float64{8, 9, 10},
				"wind_direction_10m": []int{180, 190, 200},
			},
		},
		"air": map[string]any{
			"hourly": map[string]any{
				"time":   hours[:1],
				"us_aqi": []int{st.aqi},
				"pm2_5":  []float64{round1(float64(st.aqi) / 4)},
			},
		},
		"nws_alerts": map[string]any{"features": alerts},
	}
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5*sign(f))) / 10
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}
