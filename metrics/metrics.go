package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cydxin/presence-sdk/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the prometheus collectors of the presence server.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	connections   prometheus.Gauge
	onlineUsers   prometheus.Gauge
	broadcastFail *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	dispatchDur   prometheus.Histogram
	httpReqCnt    *prometheus.CounterVec
	httpDur       *prometheus.HistogramVec
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry:      r,
		connections:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "ws_connections"}),
		onlineUsers:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "online_users"}),
		broadcastFail: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "broadcast_write_failures_total"}, []string{"room_kind"}),
		deliveries:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "notification_deliveries_total"}, []string{"channel", "status"}),
		dispatchDur:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: ns, Name: "notification_dispatch_duration_seconds", Buckets: cfg.Buckets}),
		httpReqCnt:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"}),
		httpDur:       prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: cfg.Buckets}, []string{"method", "route", "status"}),
	}
	r.MustRegister(m.connections, m.onlineUsers, m.broadcastFail, m.deliveries, m.dispatchDur, m.httpReqCnt, m.httpDur)
	return m
}

// SetPresence records the current connection and online-user counts.
func (m *Metrics) SetPresence(connections, users int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(connections))
	m.onlineUsers.Set(float64(users))
}

func (m *Metrics) BroadcastWriteFailed(roomKind string) {
	if m == nil {
		return
	}
	m.broadcastFail.WithLabelValues(roomKind).Inc()
}

func (m *Metrics) Delivery(channel, status string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(channel, status).Inc()
}

func (m *Metrics) DispatchDone(since time.Time) {
	if m == nil {
		return
	}
	m.dispatchDur.Observe(time.Since(since).Seconds())
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
