package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jpalmerr/meshweather/weather"
)

// Result holds the outcome of polling a single station once.
type Result struct {
	// Station is the display name of the polled station.
	Station string

	// URL is the node's data URL.
	URL string

	// Labels contains the key-value metadata associated with the station.
	Labels map[string]string

	// Snapshot is the freshly parsed snapshot. Nil when Err is set.
	Snapshot *weather.Snapshot

	// Err is the *PollError of a failed poll, nil on success.
	Err error

	// Latency is the time taken by the fetch and parse.
	Latency time.Duration

	// CheckedAt is when the poll started.
	CheckedAt time.Time

	// Interval is the station's cadence after this poll.
	Interval time.Duration
}

// Scheduler runs one polling loop per station.
//
// Each loop polls immediately, then waits for the station's current
// [Poller.Interval] before polling again, so a cadence change takes effect
// on the very next wait. A station never has two polls in flight. At most
// maxConcurrency fetches run at once across all stations.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	pollers []*Poller
	byName  map[string]*Poller
	client  *Client
	clock   clockwork.Clock
	sem     chan struct{}
	results chan Result
	logger  *slog.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
}

// NewScheduler creates a [Scheduler] for stations.
//
// Parameters:
//   - stations: stations to poll; names must be unique
//   - maxConcurrency: maximum number of simultaneous fetches
//   - logger: logger for poll events (failures, cadence changes, panics)
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop]. Results are available via [Scheduler.Results].
func NewScheduler(stations []StationInfo, maxConcurrency int, logger *slog.Logger, opts ...Option) *Scheduler {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	settings := applyOptions(opts)
	client := NewClient()
	s := &Scheduler{
		pollers: make([]*Poller, 0, len(stations)),
		byName:  make(map[string]*Poller, len(stations)),
		client:  client,
		clock:   settings.clock,
		sem:     make(chan struct{}, maxConcurrency),
		results: make(chan Result, len(stations)),
		logger:  logger,
	}
	for _, info := range stations {
		p := NewPoller(info, client, logger, opts...)
		s.pollers = append(s.pollers, p)
		s.byName[info.Name] = p
	}
	return s
}

// Results returns the channel on which poll results are delivered.
// The channel is closed once the scheduler has stopped.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// pollerFor returns the poller for the named station.
func (s *Scheduler) pollerFor(name string) (*Poller, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// Start launches the station loops in background goroutines.
//
// Start is non-blocking. The loops run until [Scheduler.Stop] is called or
// ctx is cancelled. If ctx is nil, context.Background() is used.
// Start is idempotent, and a no-op after Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })

		var loops sync.WaitGroup
		for _, p := range s.pollers {
			loops.Add(1)
			go func(p *Poller) {
				defer loops.Done()
				s.run(runCtx, p)
			}(p)
		}
		loops.Wait()
	}()
}

// Stop cancels in-flight fetches, waits for every loop to exit and closes
// the results channel. Results of abandoned polls are never delivered.
//
// Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	// clean up client connections after all goroutines complete
	s.client.Close()

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.results) })
}

// run is the loop for one station.
func (s *Scheduler) run(ctx context.Context, p *Poller) {
	for {
		result, ok := s.poll(ctx, p)
		if !ok {
			return
		}

		select {
		case s.results <- result:
		case <-ctx.Done():
			return
		}

		timer := s.clock.NewTimer(p.Interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
	}
}

// poll runs one PollOnce under the concurrency limit. It reports false when
// ctx ended before a result could be published.
func (s *Scheduler) poll(ctx context.Context, p *Poller) (Result, bool) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return Result{}, false
	}
	defer func() { <-s.sem }()

	start := s.clock.Now()
	snap, err := p.PollOnce(ctx)
	if ctx.Err() != nil {
		return Result{}, false
	}

	info := p.Info()
	return Result{
		Station:   info.Name,
		URL:       info.URL,
		Labels:    info.Labels,
		Snapshot:  snap,
		Err:       err,
		Latency:   s.clock.Since(start),
		CheckedAt: start,
		Interval:  p.Interval(),
	}, true
}
