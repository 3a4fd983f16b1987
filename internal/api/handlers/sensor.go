package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/HenryAllen04/Sigma-Saunas/internal/harvia"

	"github.com/gin-gonic/gin"
)

// SaunaReader is the slice of the Harvia client the sensor handlers need.
type SaunaReader interface {
	GetLatestData(ctx context.Context) (*harvia.LatestDataResponse, error)
	GetTelemetryHistory(ctx context.Context, startTimestamp, endTimestamp string, samplingMode harvia.SamplingMode, sampleAmount int) (*harvia.TelemetryHistoryResponse, error)
}

// SensorHandler handles live and historical sensor data requests
type SensorHandler struct {
	client SaunaReader
	logger *slog.Logger
}

// NewSensorHandler creates a new sensor handler
func NewSensorHandler(client SaunaReader, logger *slog.Logger) *SensorHandler {
	return &SensorHandler{
		client: client,
		logger: logger,
	}
}

// GetCurrent returns the latest cabin reading
// GET /api/sensor/current
func (h *SensorHandler) GetCurrent(c *gin.Context) {
	latest, err := h.client.GetLatestData(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to fetch current sensor data",
			"component", "api",
			"request_id", c.GetString("X-Request-ID"),
			"error", err,
		)
		c.JSON(fetchErrorStatus(err), gin.H{
			"error":   "Failed to fetch sensor data",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, latest)
}

// GetDeviceHealth returns device diagnostics extracted from the latest
// reading: battery, RF signal, controller temperature, heater status.
// GET /api/sensor/health
func (h *SensorHandler) GetDeviceHealth(c *gin.Context) {
	latest, err := h.client.GetLatestData(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to fetch device health",
			"component", "api",
			"request_id", c.GetString("X-Request-ID"),
			"error", err,
		)
		c.JSON(fetchErrorStatus(err), gin.H{
			"error":   "Failed to fetch device health",
			"message": err.Error(),
		})
		return
	}

	health := harvia.DeviceHealth{
		DeviceID:       latest.DeviceID,
		Timestamp:      latest.Timestamp,
		BatteryVoltage: latest.Data.BatteryVoltage,
		BatteryLoadV:   latest.Data.BatteryLoadV,
		RSSI:           latest.Data.RSSI,
		TempEsp:        latest.Data.TempEsp,
		TargetTemp:     latest.Data.TargetTemp,
		SaunaStatus:    latest.Data.SaunaStatus,
		TimeToTarget:   latest.Data.TimeToTarget,
	}

	c.JSON(http.StatusOK, health)
}

// GetHistory returns historical telemetry, defaulting to the last 24 hours
// with 100 vendor-side averaged samples
// GET /api/sensor/history?startTimestamp=&endTimestamp=&samplingMode=&sampleAmount=
func (h *SensorHandler) GetHistory(c *gin.Context) {
	endTime := time.Now().UTC()
	startTime := endTime.Add(-24 * time.Hour)

	startTimestamp := c.DefaultQuery("startTimestamp", startTime.Format(time.RFC3339))
	endTimestamp := c.DefaultQuery("endTimestamp", endTime.Format(time.RFC3339))

	samplingMode := harvia.SamplingMode(c.DefaultQuery("samplingMode", string(harvia.SamplingAverage)))
	if samplingMode != harvia.SamplingAverage && samplingMode != harvia.SamplingLatest {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid samplingMode",
			"message": "samplingMode must be \"average\" or \"latest\"",
		})
		return
	}

	sampleAmount, err := strconv.Atoi(c.DefaultQuery("sampleAmount", "100"))
	if err != nil || sampleAmount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid sampleAmount",
			"message": "sampleAmount must be a positive integer",
		})
		return
	}

	history, err := h.client.GetTelemetryHistory(c.Request.Context(), startTimestamp, endTimestamp, samplingMode, sampleAmount)
	if err != nil {
		h.logger.Error("Failed to fetch sensor history",
			"component", "api",
			"request_id", c.GetString("X-Request-ID"),
			"error", err,
		)
		c.JSON(fetchErrorStatus(err), gin.H{
			"error":   "Failed to fetch sensor history",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, history)
}

// fetchErrorStatus maps client failures onto response codes. An account
// without devices is the one named condition the UI renders specially.
func fetchErrorStatus(err error) int {
	if errors.Is(err, harvia.ErrNoDevices) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
