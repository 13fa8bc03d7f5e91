package meshweather

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jpalmerr/meshweather/internal/poller"
	"github.com/jpalmerr/meshweather/weather"
)

// Check fetches and parses one document from the node at rawURL, the way a
// setup flow validates a node before adding it. An empty rawURL means
// [DefaultURL].
//
// A node that cannot be used yields a [*SetupError] whose Code is
// [CodeCannotConnect], [CodeInvalidData] or [CodeUnknown]. Cancelling ctx
// returns the context's error instead.
func Check(ctx context.Context, rawURL string) (*weather.Snapshot, error) {
	st, err := NewStation("check", rawURL)
	if err != nil {
		return nil, &SetupError{Code: CodeCannotConnect, URL: rawURL, Err: err}
	}
	return CheckStation(ctx, st, nil)
}

// CheckStation is [Check] for a configured station, honoring its timeout.
// Unknown failures are logged at Error level with the station's context.
// A nil logger means slog.Default().
func CheckStation(ctx context.Context, st Station, logger *slog.Logger) (*weather.Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := poller.NewClient()
	defer client.Close()

	p := poller.NewPoller(st.pollerInfo(), client, logger)
	snap, err := p.PollOnce(ctx)
	if err == nil {
		return snap, nil
	}

	var pe *poller.PollError
	if !errors.As(err, &pe) {
		return nil, err
	}

	code := ErrorCode(err)
	if code == CodeUnknown {
		logger.Error("unexpected error checking station",
			"station", st.name,
			"url", st.url,
			"error", err,
		)
	}
	return nil, &SetupError{Code: code, URL: st.url, Err: err}
}
