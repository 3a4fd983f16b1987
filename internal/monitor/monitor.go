// Package monitor watches the latest cabin reading for state transitions
// worth telling the household about: motion starting or stopping (the PIR
// sensor reports movement, not static presence) and the heater reaching its
// target temperature.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/HenryAllen04/Sigma-Saunas/internal/harvia"
)

// Fetcher provides the latest cabin reading.
type Fetcher interface {
	GetLatestData(ctx context.Context) (*harvia.LatestDataResponse, error)
}

// Notifier delivers alerts about detected transitions.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Monitor polls the latest reading on a fixed interval and raises alerts on
// transitions. Fetch failures are logged and skipped; the next tick retries
// through the self-healing client underneath.
type Monitor struct {
	fetcher  Fetcher
	notifier Notifier
	interval time.Duration
	stopChan chan struct{}
	logger   *slog.Logger

	lastPresence   *float64
	wasBelowTarget bool
}

// New creates a new monitor
func New(fetcher Fetcher, notifier Notifier, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		fetcher:  fetcher,
		notifier: notifier,
		interval: interval,
		stopChan: make(chan struct{}),
		logger:   logger.With("component", "monitor"),
	}
}

// Start begins the monitor loop
func (m *Monitor) Start() {
	m.logger.Info("Monitor started", "interval", m.interval.String())
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.tick()
		case <-m.stopChan:
			m.logger.Info("Monitor stopped")
			return
		}
	}
}

// Stop stops the monitor
func (m *Monitor) Stop() {
	close(m.stopChan)
}

// tick performs one polling cycle
func (m *Monitor) tick() {
	ctx := context.Background()

	latest, err := m.fetcher.GetLatestData(ctx)
	if err != nil {
		m.logger.Error("Failed to fetch latest reading", "error", err)
		return
	}

	m.checkPresence(ctx, latest.Data.Presence)
	m.checkTargetTemp(ctx, latest.Data.Temp, latest.Data.TargetTemp)
}

// checkPresence compares the motion value against the previous tick. The
// very first reading only seeds state; there is nothing to compare against.
func (m *Monitor) checkPresence(ctx context.Context, presence *float64) {
	if presence == nil {
		return
	}
	prev := m.lastPresence
	m.lastPresence = presence

	switch {
	case prev == nil:
		m.logger.Debug("Initial motion state", "presence", *presence)
	case *prev == 0 && *presence > 0:
		m.send(ctx, fmt.Sprintf("Motion detected in the sauna (%g)", *presence))
	case *prev > 0 && *presence == 0:
		m.send(ctx, "No motion in the sauna - bather may be sitting still")
	}
}

// checkTargetTemp raises a single alert when the cabin crosses its target
// temperature from below.
func (m *Monitor) checkTargetTemp(ctx context.Context, temp, target *float64) {
	if temp == nil || target == nil || *target <= 0 {
		return
	}

	below := *temp < *target
	if m.wasBelowTarget && !below {
		m.send(ctx, fmt.Sprintf("Sauna ready: %.1f°C (target %.1f°C)", *temp, *target))
	}
	m.wasBelowTarget = below
}

func (m *Monitor) send(ctx context.Context, text string) {
	m.logger.Info("Sauna alert", "text", text)
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, text); err != nil {
		m.logger.Error("Failed to send alert", "error", err)
	}
}
