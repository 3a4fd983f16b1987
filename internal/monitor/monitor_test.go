package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/HenryAllen04/Sigma-Saunas/internal/harvia"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sequenceFetcher struct {
	readings []*harvia.LatestDataResponse
	errs     []error
	call     int
}

func (s *sequenceFetcher) GetLatestData(ctx context.Context) (*harvia.LatestDataResponse, error) {
	i := s.call
	s.call++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.readings[i], nil
}

type recordingNotifier struct {
	messages []string
	err      error
}

func (r *recordingNotifier) Notify(ctx context.Context, text string) error {
	r.messages = append(r.messages, text)
	return r.err
}

func sensorReading(presence, temp, target float64) *harvia.LatestDataResponse {
	return &harvia.LatestDataResponse{
		DeviceID:  "sauna-device-1",
		Timestamp: "2025-06-01T10:00:00Z",
		Data: harvia.SensorData{
			Presence:   &presence,
			Temp:       &temp,
			TargetTemp: &target,
		},
	}
}

func runTicks(m *Monitor, n int) {
	for i := 0; i < n; i++ {
		m.tick()
	}
}

func TestMonitor_MotionStarted(t *testing.T) {
	fetcher := &sequenceFetcher{readings: []*harvia.LatestDataResponse{
		sensorReading(0, 40, 80),
		sensorReading(2, 41, 80),
	}}
	notifier := &recordingNotifier{}

	m := New(fetcher, notifier, 0, nil)
	runTicks(m, 2)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "Motion detected")
}

func TestMonitor_MotionStopped(t *testing.T) {
	fetcher := &sequenceFetcher{readings: []*harvia.LatestDataResponse{
		sensorReading(3, 40, 80),
		sensorReading(0, 41, 80),
	}}
	notifier := &recordingNotifier{}

	m := New(fetcher, notifier, 0, nil)
	runTicks(m, 2)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "No motion")
}

func TestMonitor_InitialReadingDoesNotAlert(t *testing.T) {
	fetcher := &sequenceFetcher{readings: []*harvia.LatestDataResponse{
		sensorReading(5, 40, 80),
	}}
	notifier := &recordingNotifier{}

	m := New(fetcher, notifier, 0, nil)
	runTicks(m, 1)

	assert.Empty(t, notifier.messages)
}

func TestMonitor_SaunaReady(t *testing.T) {
	fetcher := &sequenceFetcher{readings: []*harvia.LatestDataResponse{
		sensorReading(0, 60, 80),
		sensorReading(0, 79.5, 80),
		sensorReading(0, 80.5, 80),
		sensorReading(0, 82, 80),
	}}
	notifier := &recordingNotifier{}

	m := New(fetcher, notifier, 0, nil)
	runTicks(m, 4)

	// Exactly one alert when crossing the target, none while it stays above.
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "Sauna ready: 80.5°C")
}

func TestMonitor_AlreadyAtTargetDoesNotAlert(t *testing.T) {
	fetcher := &sequenceFetcher{readings: []*harvia.LatestDataResponse{
		sensorReading(0, 85, 80),
		sensorReading(0, 86, 80),
	}}
	notifier := &recordingNotifier{}

	m := New(fetcher, notifier, 0, nil)
	runTicks(m, 2)

	assert.Empty(t, notifier.messages)
}

func TestMonitor_FetchErrorSkipsTick(t *testing.T) {
	fetcher := &sequenceFetcher{
		readings: []*harvia.LatestDataResponse{
			sensorReading(0, 40, 80),
			nil,
			sensorReading(4, 41, 80),
		},
		errs: []error{nil, errors.New("request failed"), nil},
	}
	notifier := &recordingNotifier{}

	m := New(fetcher, notifier, 0, nil)
	runTicks(m, 3)

	// The failed tick changes nothing; the transition is still seen.
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "Motion detected")
}

func TestMonitor_NotifierErrorIsTolerated(t *testing.T) {
	fetcher := &sequenceFetcher{readings: []*harvia.LatestDataResponse{
		sensorReading(0, 40, 80),
		sensorReading(1, 41, 80),
		sensorReading(0, 42, 80),
	}}
	notifier := &recordingNotifier{err: errors.New("telegram unavailable")}

	m := New(fetcher, notifier, 0, nil)
	runTicks(m, 3)

	// Delivery failures do not stop the monitor from tracking transitions.
	assert.Len(t, notifier.messages, 2)
}
