package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/HenryAllen04/Sigma-Saunas/internal/harvia"

	"github.com/gin-gonic/gin"
)

// SessionHistory is the slice of the Harvia client the session and event
// handlers need.
type SessionHistory interface {
	GetSessions(ctx context.Context, startTimestamp, endTimestamp, nextToken string) (*harvia.SessionsResponse, error)
	GetEvents(ctx context.Context, startTimestamp, endTimestamp, nextToken string) (*harvia.EventsResponse, error)
}

// SessionsHandler handles bathing session history and device event requests
type SessionsHandler struct {
	client SessionHistory
	logger *slog.Logger
}

// NewSessionsHandler creates a new sessions handler
func NewSessionsHandler(client SessionHistory, logger *slog.Logger) *SessionsHandler {
	return &SessionsHandler{
		client: client,
		logger: logger,
	}
}

// historyWindow applies the default 7-day window when the caller does not
// provide explicit timestamps.
func historyWindow(c *gin.Context) (string, string, string) {
	endTime := time.Now().UTC()
	startTime := endTime.Add(-7 * 24 * time.Hour)

	startTimestamp := c.DefaultQuery("startTimestamp", startTime.Format(time.RFC3339))
	endTimestamp := c.DefaultQuery("endTimestamp", endTime.Format(time.RFC3339))
	nextToken := c.Query("nextToken")

	return startTimestamp, endTimestamp, nextToken
}

// ListSessions returns bathing session summaries, default last 7 days
// GET /api/sensor/sessions?startTimestamp=&endTimestamp=&nextToken=
func (h *SessionsHandler) ListSessions(c *gin.Context) {
	startTimestamp, endTimestamp, nextToken := historyWindow(c)

	sessions, err := h.client.GetSessions(c.Request.Context(), startTimestamp, endTimestamp, nextToken)
	if err != nil {
		h.logger.Error("Failed to fetch sessions",
			"component", "api",
			"request_id", c.GetString("X-Request-ID"),
			"error", err,
		)
		c.JSON(fetchErrorStatus(err), gin.H{
			"error":   "Failed to fetch sessions",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// ListEvents returns device events and alerts, default last 7 days
// GET /api/sensor/events?startTimestamp=&endTimestamp=&nextToken=
func (h *SessionsHandler) ListEvents(c *gin.Context) {
	startTimestamp, endTimestamp, nextToken := historyWindow(c)

	events, err := h.client.GetEvents(c.Request.Context(), startTimestamp, endTimestamp, nextToken)
	if err != nil {
		h.logger.Error("Failed to fetch events",
			"component", "api",
			"request_id", c.GetString("X-Request-ID"),
			"error", err,
		)
		c.JSON(fetchErrorStatus(err), gin.H{
			"error":   "Failed to fetch events",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, events)
}
