// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry so several instances
// can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SalesCompleted      *prometheus.CounterVec
	SaleRevenue         prometheus.Counter
	ExpiringBatches     prometheus.Gauge
	OpenSessions        prometheus.GaugeFunc
}

// New registers the collectors. openSessions reports the number of live
// sale sessions when scraped; it may be nil.
func New(openSessions func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		SalesCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_sales_completed_total",
				Help: "Sales accepted by the Order API",
			},
			[]string{"payment_method"},
		),
		SaleRevenue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_sales_revenue_total",
			Help: "Sum of final amounts of completed sales",
		}),
		ExpiringBatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pos_expiring_batches",
			Help: "Stocked batches inside the expiry alert window at the last sweep",
		}),
	}
	if openSessions == nil {
		openSessions = func() int { return 0 }
	}
	m.OpenSessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "pos_open_sale_sessions",
		Help: "Sale sessions currently open",
	}, func() float64 { return float64(openSessions()) })

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SalesCompleted,
		m.SaleRevenue,
		m.ExpiringBatches,
		m.OpenSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Middleware records request count and latency by route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		duration := time.Since(start)

		path := "undefined"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
	})
}

// SaleCompleted counts a sale and its final amount.
func (m *Metrics) SaleCompleted(paymentMethod string, finalAmount float64) {
	m.SalesCompleted.WithLabelValues(paymentMethod).Inc()
	m.SaleRevenue.Add(finalAmount)
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
