package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/HenryAllen04/Sigma-Saunas/internal/storage"

	"github.com/gin-gonic/gin"
)

// WearableStore persists the current wearable metrics record.
type WearableStore interface {
	GetWearableData(ctx context.Context) (*storage.WearableData, error)
	SaveWearableData(ctx context.Context, data *storage.WearableData) error
}

// WearableHandler handles wearable metrics requests from the companion app
type WearableHandler struct {
	store  WearableStore
	logger *slog.Logger
}

// NewWearableHandler creates a new wearable handler
func NewWearableHandler(store WearableStore, logger *slog.Logger) *WearableHandler {
	return &WearableHandler{
		store:  store,
		logger: logger,
	}
}

// GetData returns the current wearable metrics, null per metric when the
// companion app has not reported yet
// GET /api/wearable/data
func (h *WearableHandler) GetData(c *gin.Context) {
	data, err := h.store.GetWearableData(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to fetch wearable data",
			"component", "api",
			"request_id", c.GetString("X-Request-ID"),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch wearable data",
		})
		return
	}

	c.JSON(http.StatusOK, data)
}

// wearableUpdate is a partial update; absent fields leave the stored value
// untouched.
type wearableUpdate struct {
	HeartRate       *float64 `json:"heartRate"`
	HRV             *float64 `json:"hrv"`
	RespiratoryRate *float64 `json:"respiratoryRate"`
}

// UpdateData merges a partial wearable metrics update into the stored record
// POST /api/wearable/data
func (h *WearableHandler) UpdateData(c *gin.Context) {
	var update wearableUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid JSON in request body",
		})
		return
	}

	if update.HeartRate == nil && update.HRV == nil && update.RespiratoryRate == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "At least one metric (heartRate, hrv, respiratoryRate) must be provided",
		})
		return
	}

	for name, value := range map[string]*float64{
		"heartRate":       update.HeartRate,
		"hrv":             update.HRV,
		"respiratoryRate": update.RespiratoryRate,
	} {
		if value != nil && *value < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": name + " must be a positive number",
			})
			return
		}
	}

	existing, err := h.store.GetWearableData(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load wearable data for update",
			"component", "api",
			"request_id", c.GetString("X-Request-ID"),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update wearable data",
		})
		return
	}

	if update.HeartRate != nil {
		existing.HeartRate = update.HeartRate
	}
	if update.HRV != nil {
		existing.HRV = update.HRV
	}
	if update.RespiratoryRate != nil {
		existing.RespiratoryRate = update.RespiratoryRate
	}
	now := time.Now().UTC()
	existing.LastUpdated = &now

	if err := h.store.SaveWearableData(c.Request.Context(), existing); err != nil {
		h.logger.Error("Failed to save wearable data",
			"component", "api",
			"request_id", c.GetString("X-Request-ID"),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update wearable data",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    existing,
	})
}
