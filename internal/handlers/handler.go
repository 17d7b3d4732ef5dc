package handlers

import (
	"net/http"
	"time"

	"grid_supervisor/internal/logger"
	"grid_supervisor/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Options tune the HTTP surface. Zero values fall back to sane defaults.
type Options struct {
	// Metrics, when set, is served on GET /metrics.
	Metrics http.Handler
	// StreamInterval is the default snapshot period of /ws.
	StreamInterval time.Duration
	// RateLimit throttles command routes per client. RPS <= 0 disables it.
	RateLimit RateLimit
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	opts     Options
	limiter  *rateLimiter
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts Options) *Handler {
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = defaultInterval
	}
	return &Handler{
		services: services,
		log:      log,
		opts:     opts,
		limiter:  newRateLimiter(opts.RateLimit),
	}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)
	if h.opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.opts.Metrics))
	}

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// live snapshot stream, same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerGridRoutes(api)
		h.registerHistoryRoutes(api)
	}
}

func (h *Handler) registerGridRoutes(api *gin.RouterGroup) {
	g := api.Group("/grid")
	g.GET("/state", h.getState)

	cmd := g.Group("", h.rateLimitMiddleware)
	{
		cmd.POST("/start", h.startGrid)
		cmd.POST("/stop", h.stopGrid)
		// Body example: {"reason":"smoke in turbine hall"}
		cmd.POST("/emergency-stop", h.emergencyStop)
		// Body example: {"key":"targetVoltage","value":1.02}
		cmd.POST("/settings", h.updateSetting)
		cmd.POST("/alert/ack", h.acknowledgeAlert)
		cmd.POST("/substations/:id/toggle", h.toggleSubstation)
		cmd.POST("/faults/line/:id", h.lineFault)
		cmd.POST("/faults/substation/:id", h.substationFault)
		cmd.POST("/faults/load-surge", h.loadSurge)
		cmd.POST("/faults/reset", h.resetFaults)
	}
}

func (h *Handler) registerHistoryRoutes(api *gin.RouterGroup) {
	api.GET("/logs", h.getLogs)
	api.GET("/telemetry", h.getTelemetry)
}
