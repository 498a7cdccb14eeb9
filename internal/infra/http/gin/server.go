package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"luxrent/internal/infra/config"
	"luxrent/internal/infra/obs"
)

type Handlers struct {
	Refund       RefundHTTP
	RefundLookup RefundLookupHTTP
	RateLimit    gin.HandlerFunc
	Metrics      *obs.Metrics
	// MetricsHandler serves /metrics; nil leaves the route unregistered.
	MetricsHandler http.Handler
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	if h.Metrics != nil {
		router.Use(h.Metrics.HTTP())
	}

	// The refund routes set their own CORS headers; everything else shares this policy.
	shared := router.Group("/", cors.New(cors.Config{
		AllowOrigins:              []string{"*"},
		AllowMethods:              []string{"GET", "OPTIONS"},
		AllowHeaders:              []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:             []string{"Content-Length", "Content-Type", obs.RequestIDHeader},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}))

	shared.GET("/livez", health.Livez)
	shared.GET("/readyz", health.Readyz)
	if h.MetricsHandler != nil {
		shared.GET("/metrics", gin.WrapH(h.MetricsHandler))
	}
	if h.RefundLookup != nil {
		shared.GET("/api/v1/refunds/:bookingId", h.RefundLookup.Get)
		// preflight is answered by the group's cors handler
		shared.OPTIONS("/api/v1/refunds/:bookingId")
	}

	var limited []gin.HandlerFunc
	if h.RateLimit != nil {
		limited = append(limited, h.RateLimit)
	}
	if h.Refund != nil {
		// Any: the handler answers OPTIONS and 405 itself.
		router.Any("/refund", append(limited, h.Refund.Refund)...)
		router.Any("/api/v1/refund", append(limited, h.Refund.Refund)...)
	}
	return router
}

// DefaultMetricsHandler exposes the default Prometheus registry.
func DefaultMetricsHandler() http.Handler {
	return promhttp.Handler()
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
