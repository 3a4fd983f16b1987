package handlers

import (
	"log/slog"
	"net/http"

	"github.com/HenryAllen04/Sigma-Saunas/internal/relay"

	"github.com/gin-gonic/gin"
)

// StreamHandler serves the live sensor stream
type StreamHandler struct {
	relay  *relay.Relay
	logger *slog.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(r *relay.Relay, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		relay:  r,
		logger: logger,
	}
}

// Stream emits the latest cabin reading as server-sent events, one frame
// per poll interval, until the client disconnects
// GET /api/sensor/stream
func (h *StreamHandler) Stream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	h.logger.Info("Stream opened",
		"component", "api",
		"request_id", c.GetString("X-Request-ID"),
		"client_ip", c.ClientIP(),
	)

	// Blocks until the peer goes away; the request context is cancelled on
	// disconnect and a failed write is treated the same way.
	h.relay.Stream(c.Request.Context(), c.Writer)

	h.logger.Info("Stream closed",
		"component", "api",
		"request_id", c.GetString("X-Request-ID"),
	)
}
