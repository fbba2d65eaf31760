package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
// All recording methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	ordersCreated    *prometheus.CounterVec
	statusChanges    *prometheus.CounterVec
	receiptsUploaded prometheus.Counter
	chatMessages     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_orders_created_total",
			Help: "Orders created at checkout",
		}, []string{"payment_method", "guest"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_order_status_changes_total",
			Help: "Order status transitions",
		}, []string{"from", "to"}),
		receiptsUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "store_receipts_uploaded_total",
			Help: "Payment receipts attached to orders",
		}),
		chatMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_chat_messages_total",
			Help: "Chat messages posted",
		}, []string{"role"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.ordersCreated,
		m.statusChanges,
		m.receiptsUploaded,
		m.chatMessages,
	)
	return m
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.requests.WithLabelValues(c.Request.Method, path, status).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) OrderCreated(paymentMethod string, guest bool) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(paymentMethod, strconv.FormatBool(guest)).Inc()
}

func (m *Metrics) StatusChanged(from, to string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ReceiptUploaded() {
	if m == nil {
		return
	}
	m.receiptsUploaded.Inc()
}

func (m *Metrics) ChatMessage(role string) {
	if m == nil {
		return
	}
	m.chatMessages.WithLabelValues(role).Inc()
}
