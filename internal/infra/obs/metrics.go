package obs

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"luxrent/internal/app/middleware"
	"luxrent/internal/app/policies"
	"luxrent/internal/domain/refund"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	refundsTotal    *prometheus.CounterVec
	refundedMinor   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "luxrent_commands_total",
			Help: "Total number of dispatched commands",
		}, []string{"command", "status"}),
		commandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "luxrent_command_duration_seconds",
			Help: "Duration of command handling in seconds",
			// gateway round trips dominate
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"command"}),
		refundsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "luxrent_refunds_total",
			Help: "Refunds processed by item type, policy tier and gateway status",
		}, []string{"item_type", "policy", "status"}),
		refundedMinor: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "luxrent_refunded_amount_minor_total",
			Help: "Total refunded amount in minor currency units",
		}, []string{"currency"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "luxrent_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "luxrent_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) ObserveCommand(key string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.commandsTotal.WithLabelValues(key, status).Inc()
	m.commandDuration.WithLabelValues(key).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRefund(itemType, policyApplied, status, currency string, amountMinor int64) {
	m.refundsTotal.WithLabelValues(itemTypeLabel(itemType), policyApplied, status).Inc()
	if amountMinor > 0 {
		m.refundedMinor.WithLabelValues(currency).Add(float64(amountMinor))
	}
}

// HTTP records request counts and latency per matched route.
func (m *Metrics) HTTP() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func itemTypeLabel(item string) string {
	switch refund.ItemType(item) {
	case refund.ItemCars, refund.ItemYachts, refund.ItemJets, refund.ItemProperties:
		return item
	case "":
		return string(refund.ItemCars)
	default:
		return "other"
	}
}

var (
	_ middleware.Observer    = (*Metrics)(nil)
	_ policies.RefundMetrics = (*Metrics)(nil)
)
