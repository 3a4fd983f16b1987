package api

import (
	"log/slog"

	"github.com/HenryAllen04/Sigma-Saunas/internal/api/handlers"
	"github.com/HenryAllen04/Sigma-Saunas/internal/api/middleware"
	"github.com/HenryAllen04/Sigma-Saunas/internal/harvia"
	"github.com/HenryAllen04/Sigma-Saunas/internal/relay"
	"github.com/HenryAllen04/Sigma-Saunas/internal/storage"

	"github.com/gin-gonic/gin"
)

// RouterConfig holds dependencies for the API router
type RouterConfig struct {
	Client  *harvia.Client
	Storage storage.Storage
	Relay   *relay.Relay
	Logger  *slog.Logger
}

// NewRouter creates and configures the Gin router
func NewRouter(config RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(config.Logger))
	router.Use(middleware.Logging(config.Logger))
	router.Use(middleware.ContentType())

	// Health check
	healthHandler := handlers.NewHealthHandler()
	router.GET("/health", healthHandler.GetHealth)

	api := router.Group("/api")
	{
		// Sensor endpoints
		sensorHandler := handlers.NewSensorHandler(config.Client, config.Logger)
		api.GET("/sensor/current", sensorHandler.GetCurrent)
		api.GET("/sensor/health", sensorHandler.GetDeviceHealth)
		api.GET("/sensor/history", sensorHandler.GetHistory)

		// Session and event history endpoints
		sessionsHandler := handlers.NewSessionsHandler(config.Client, config.Logger)
		api.GET("/sensor/sessions", sessionsHandler.ListSessions)
		api.GET("/sensor/events", sessionsHandler.ListEvents)

		// Live stream endpoint
		streamHandler := handlers.NewStreamHandler(config.Relay, config.Logger)
		api.GET("/sensor/stream", streamHandler.Stream)

		// Wearable metrics endpoints
		wearableHandler := handlers.NewWearableHandler(config.Storage, config.Logger)
		api.GET("/wearable/data", wearableHandler.GetData)
		api.POST("/wearable/data", wearableHandler.UpdateData)
	}

	return router
}
