// Package relay bridges the pull-based Harvia client into a push stream.
// One relay loop runs per connected consumer; all loops share the single
// authenticated client underneath.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/HenryAllen04/Sigma-Saunas/internal/harvia"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 5 * time.Second

// LatestFetcher is the single client operation the relay polls.
type LatestFetcher interface {
	GetLatestData(ctx context.Context) (*harvia.LatestDataResponse, error)
}

// Relay converts repeated latest-reading fetches into a server-sent-event
// stream. Fetch failures become error frames and the loop keeps going so the
// client can self-heal on the next iteration; only a failed write (consumer
// gone) or a cancelled context stops the loop.
type Relay struct {
	fetcher  LatestFetcher
	interval time.Duration
	logger   *slog.Logger
}

// New creates a relay polling at the given interval.
func New(fetcher LatestFetcher, interval time.Duration, logger *slog.Logger) *Relay {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		fetcher:  fetcher,
		interval: interval,
		logger:   logger.With("component", "relay"),
	}
}

// errorFrame is the error shape emitted in place of a reading, matching what
// single-shot API consumers receive.
type errorFrame struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Stream fetches and emits one frame immediately, then one per interval,
// until ctx is cancelled or the consumer stops accepting writes. Frames are
// emitted strictly in fetch order.
func (r *Relay) Stream(ctx context.Context, w io.Writer) {
	flusher, _ := w.(http.Flusher)

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("stream context cancelled")
			return
		default:
		}

		var frame interface{}
		latest, err := r.fetcher.GetLatestData(ctx)
		if err != nil {
			r.logger.Error("failed to fetch latest reading", "error", err)
			frame = errorFrame{
				Error:   "Failed to fetch sensor data",
				Message: err.Error(),
			}
		} else {
			frame = latest
		}

		if err := writeFrame(w, frame); err != nil {
			// The peer is gone; stop scheduling fetches for this stream.
			r.logger.Debug("stream consumer disconnected", "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}

		select {
		case <-ctx.Done():
			r.logger.Debug("stream context cancelled")
			return
		case <-time.After(r.interval):
		}
	}
}

func writeFrame(w io.Writer, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
