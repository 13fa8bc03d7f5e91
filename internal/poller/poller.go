package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/jpalmerr/meshweather/internal/metrics"
	"github.com/jpalmerr/meshweather/weather"
)

const (
	// DefaultTimeout bounds a single fetch.
	DefaultTimeout = 10 * time.Second

	// DefaultInterval is the cadence used until a node reports its own.
	DefaultInterval = 60 * time.Second

	// MinInterval is the floor applied to every adopted cadence.
	MinInterval = 60 * time.Second
)

// Policy decides how a station's cadence follows the node's reported interval.
type Policy int

const (
	// CadenceReported adopts the reported interval, floored at MinInterval.
	// A zero or negative interval leaves the cadence unchanged.
	CadenceReported Policy = iota

	// CadenceAligned schedules the next poll for just after the node's next
	// refresh: update time plus interval minus now, floored at MinInterval.
	CadenceAligned
)

func (p Policy) String() string {
	switch p {
	case CadenceReported:
		return "reported"
	case CadenceAligned:
		return "aligned"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy maps "reported" or "aligned" to a Policy. The empty string is CadenceReported.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "reported":
		return CadenceReported, nil
	case "aligned":
		return CadenceAligned, nil
	default:
		return 0, fmt.Errorf("unknown cadence %q (want reported or aligned)", s)
	}
}

// StationInfo contains the configuration needed to poll a single station.
//
// This is the poller-internal representation of a station, decoupled from
// the root package's Station type to avoid circular dependencies.
type StationInfo struct {
	// Name is the display name of the station.
	Name string

	// URL is the node's data URL.
	URL string

	// Labels contains key-value metadata for the station.
	Labels map[string]string

	// Timeout bounds each fetch. Zero means DefaultTimeout.
	Timeout time.Duration

	// InitialInterval is the cadence before the node reports one. Zero means DefaultInterval.
	InitialInterval time.Duration

	Policy Policy
}

// Recorder receives poll instrumentation. [metrics.Metrics] implements it.
type Recorder interface {
	ObservePoll(station, outcome string, latency time.Duration)
	SetInterval(station string, interval time.Duration)
	IntervalChanged(station string, interval time.Duration)
	MarkSuccess(station string, at time.Time)
}

type noopRecorder struct{}

func (noopRecorder) ObservePoll(string, string, time.Duration) {}
func (noopRecorder) SetInterval(string, time.Duration)         {}
func (noopRecorder) IntervalChanged(string, time.Duration)     {}
func (noopRecorder) MarkSuccess(string, time.Time)             {}

// Option configures a [Poller] or [Scheduler].
type Option func(*settings)

type settings struct {
	clock    clockwork.Clock
	recorder Recorder
}

// WithClock replaces the real clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRecorder sends poll instrumentation to r.
func WithRecorder(r Recorder) Option {
	return func(s *settings) {
		if r != nil {
			s.recorder = r
		}
	}
}

func applyOptions(opts []Option) settings {
	s := settings{clock: clockwork.NewRealClock(), recorder: noopRecorder{}}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Poller fetches and parses one station's document and tracks the
// station's latest snapshot and cadence.
//
// Snapshot and Interval are safe to call at any time. PollOnce calls are
// serialized: a second call waits for the first to finish.
type Poller struct {
	info     StationInfo
	client   *Client
	logger   *slog.Logger
	clock    clockwork.Clock
	recorder Recorder
	parse    func([]byte) (*weather.Snapshot, error)

	mu       sync.Mutex
	snapshot atomic.Pointer[weather.Snapshot]
	interval atomic.Int64
}

// NewPoller creates a Poller for info. The client may be shared between pollers.
func NewPoller(info StationInfo, client *Client, logger *slog.Logger, opts ...Option) *Poller {
	if info.Timeout <= 0 {
		info.Timeout = DefaultTimeout
	}
	if info.InitialInterval <= 0 {
		info.InitialInterval = DefaultInterval
	}
	if client == nil {
		client = NewClient()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := applyOptions(opts)
	p := &Poller{
		info:     info,
		client:   client,
		logger:   logger.With("station", info.Name),
		clock:    s.clock,
		recorder: s.recorder,
		parse:    weather.Parse,
	}
	p.interval.Store(int64(info.InitialInterval))
	p.recorder.SetInterval(info.Name, info.InitialInterval)
	return p
}

// Info returns the station configuration, with defaults applied.
func (p *Poller) Info() StationInfo {
	return p.info
}

// Snapshot returns the latest successfully parsed snapshot, or nil before
// the first success. The returned value must not be modified.
func (p *Poller) Snapshot() *weather.Snapshot {
	return p.snapshot.Load()
}

// Interval returns the delay to wait before the next poll.
func (p *Poller) Interval() time.Duration {
	return time.Duration(p.interval.Load())
}

// PollOnce performs one fetch-parse cycle.
//
// On success the new snapshot replaces the previous one and the cadence is
// recomputed. On failure neither changes and the error is a *PollError. If
// ctx is cancelled before the result is published, nothing changes and the
// context's error is returned.
func (p *Poller) PollOnce(ctx context.Context) (*weather.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := p.clock.Now()
	resp := p.client.Fetch(ctx, p.info.URL, p.info.Timeout)

	tooLarge := errors.Is(resp.Error, ErrResponseTooLarge)
	if resp.Error != nil && !tooLarge {
		if ctx.Err() != nil {
			return nil, p.cancelled(ctx, resp.Latency)
		}
		return nil, p.fail(&PollError{Kind: ErrConnection, Err: resp.Error}, resp.Latency)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, p.fail(&PollError{
			Kind:       ErrConnection,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response from %s", p.info.URL),
		}, resp.Latency)
	}
	if tooLarge {
		return nil, p.fail(&PollError{Kind: ErrInvalidData, Err: resp.Error}, resp.Latency)
	}

	snap, err := p.safeParse(resp.Body)
	if err != nil {
		kind := ErrUnknown
		if errors.Is(err, weather.ErrInvalidData) {
			kind = ErrInvalidData
		}
		return nil, p.fail(&PollError{Kind: kind, Err: err}, resp.Latency)
	}

	if ctx.Err() != nil {
		return nil, p.cancelled(ctx, resp.Latency)
	}

	p.snapshot.Store(snap)
	p.adjustInterval(snap)

	p.recorder.ObservePoll(p.info.Name, metrics.OutcomeOK, resp.Latency)
	p.recorder.MarkSuccess(p.info.Name, start)
	p.logger.Debug("poll succeeded",
		"latency_ms", resp.Latency.Milliseconds(),
		"update_time", snap.UpdateTime,
	)
	return snap, nil
}

func (p *Poller) fail(err *PollError, latency time.Duration) error {
	p.recorder.ObservePoll(p.info.Name, outcome(err.Kind), latency)
	p.logger.Debug("poll failed",
		"kind", err.Kind.Error(),
		"status_code", err.StatusCode,
		"error", err.Err,
	)
	return err
}

func (p *Poller) cancelled(ctx context.Context, latency time.Duration) error {
	p.recorder.ObservePoll(p.info.Name, metrics.OutcomeCancelled, latency)
	return fmt.Errorf("poll %s abandoned: %w", p.info.Name, context.Cause(ctx))
}

// adjustInterval applies the station's policy to a fresh snapshot.
func (p *Poller) adjustInterval(snap *weather.Snapshot) {
	var next time.Duration
	switch p.info.Policy {
	case CadenceAligned:
		next = snap.UpdateTime.Add(snap.UpdateInterval).Sub(p.clock.Now())
	default:
		if snap.UpdateInterval <= 0 {
			return
		}
		next = snap.UpdateInterval
	}
	next = max(next, MinInterval)

	prev := time.Duration(p.interval.Swap(int64(next)))
	if prev == next {
		return
	}
	p.recorder.IntervalChanged(p.info.Name, next)
	// aligned cadence moves every cycle; only a reported change is news
	level := slog.LevelInfo
	if p.info.Policy == CadenceAligned {
		level = slog.LevelDebug
	}
	p.logger.Log(context.Background(), level, "update interval changed",
		"previous", prev.String(),
		"interval", next.String(),
	)
}

// safeParse calls the parser with panic recovery.
// A panic is logged with its stack under a correlation ID and reported as ErrUnknown.
func (p *Poller) safeParse(body []byte) (snap *weather.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			p.logger.Error("parser panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			snap = nil
			err = fmt.Errorf("parser panic (correlation_id: %s)", correlationID)
		}
	}()
	return p.parse(body)
}

func outcome(kind error) string {
	switch kind {
	case ErrConnection:
		return metrics.OutcomeConnection
	case ErrInvalidData:
		return metrics.OutcomeInvalidData
	default:
		return metrics.OutcomeUnknown
	}
}
