package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/marisusis/eclipse.marisusis.me/internal/api/handlers"
	"github.com/marisusis/eclipse.marisusis.me/internal/api/middleware"
	"github.com/marisusis/eclipse.marisusis.me/internal/domain"
	"github.com/marisusis/eclipse.marisusis.me/internal/metrics"
	"github.com/marisusis/eclipse.marisusis.me/internal/storage"
)

// Router manages API routing and handlers
type Router struct {
	engine  *gin.Engine
	metrics *metrics.Metrics
	logger  *slog.Logger

	dataHandler   *handlers.DataHandler
	panelHandler  *handlers.PanelHandler
	streamHandler *handlers.StreamHandler
}

// NewLiveDataRouter creates the live-data server router serving cached node readings
func NewLiveDataRouter(cache storage.SampleCache, nodes []domain.NodeConfig, m *metrics.Metrics, logger *slog.Logger) *Router {
	router := newRouter(m, logger)
	router.dataHandler = handlers.NewDataHandler(cache, nodes)

	router.engine.Use(middleware.CORSMiddleware())
	router.setupRoutes()

	return router
}

// NewDashboardRouter creates the dashboard router serving panels, graphs and the update stream
func NewDashboardRouter(service handlers.StreamService, size handlers.GraphSize, m *metrics.Metrics, logger *slog.Logger) *Router {
	router := newRouter(m, logger)
	router.panelHandler = handlers.NewPanelHandler(service, size)
	router.streamHandler = handlers.NewStreamHandler(service, router.logger)

	router.setupRoutes()

	return router
}

func newRouter(m *metrics.Metrics, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	router := &Router{
		engine:  gin.New(),
		metrics: m,
		logger:  logger.With("component", "http"),
	}
	router.setupMiddleware()
	return router
}

// setupMiddleware configures global middleware
func (r *Router) setupMiddleware() {
	// Request ID first so every later middleware can log it
	r.engine.Use(middleware.RequestIDMiddleware())

	// Logging middleware
	r.engine.Use(middleware.LoggingMiddleware(r.logger))

	// Error handling middleware
	r.engine.Use(middleware.ErrorHandlerMiddleware())

	// Recovery middleware (catch panics)
	r.engine.Use(gin.Recovery())
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Health check
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
		})
	})

	// Prometheus metrics
	r.engine.GET("/metrics", gin.WrapH(r.metrics.Handler()))

	api := r.engine.Group("/api")

	if r.dataHandler != nil {
		data := api.Group("/data")
		{
			data.GET("/all", r.dataHandler.GetAll)
			data.GET("/:node", r.dataHandler.GetNode)
		}
	}

	if r.panelHandler != nil {
		panels := api.Group("/panels")
		{
			panels.GET("", r.panelHandler.ListPanels)
			panels.GET("/stream", r.streamHandler.Stream)
			panels.GET("/:node", r.panelHandler.GetPanel)
			panels.GET("/:node/graph.png", r.panelHandler.GetGraph)
			panels.POST("/:node/wheel", r.panelHandler.Wheel)
		}
	}
}

// Engine returns the underlying Gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Handler returns the router as an http.Handler for http.Server
func (r *Router) Handler() http.Handler {
	return r.engine
}
