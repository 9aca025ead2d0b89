// Package telemetry exposes Prometheus metrics for the chart server: HTTP
// request counters and latencies plus odontogram load and save outcomes.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TelemetryConfig holds telemetry configuration.
type TelemetryConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// MetricsEnabled turns the HTTP middleware into a pass-through when false.
	MetricsEnabled bool
	// ProcessCollectors registers the Go runtime and process collectors.
	ProcessCollectors bool
}

func (c *TelemetryConfig) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "chart-server"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "0.0.0"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
}

var defaultDurationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10,
}

// TelemetryProvider owns a private Prometheus registry and every collector the
// server publishes.
type TelemetryProvider struct {
	cfg      TelemetryConfig
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpActive   prometheus.Gauge

	chartLoads     *prometheus.CounterVec
	chartSaves     *prometheus.CounterVec
	saveDuration   prometheus.Histogram
	recordsWritten prometheus.Counter
}

// NewTelemetryProvider creates the registry and registers all collectors.
func NewTelemetryProvider(cfg TelemetryConfig) *TelemetryProvider {
	cfg.applyDefaults()
	reg := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": cfg.ServiceName, "env": cfg.Environment}

	tp := &TelemetryProvider{
		cfg:      cfg,
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_server_requests_total",
			Help:        "HTTP requests by method, route and status code.",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_server_request_duration_seconds",
			Help:        "HTTP request latency.",
			Buckets:     defaultDurationBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "route"}),
		httpActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "http_server_active_requests",
			Help:        "In-flight HTTP requests.",
			ConstLabels: constLabels,
		}),
		chartLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "odontogram_loads_total",
			Help:        "Chart loads by dentition and result.",
			ConstLabels: constLabels,
		}, []string{"dentition", "result"}),
		chartSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "odontogram_saves_total",
			Help:        "Chart saves by dentition and result.",
			ConstLabels: constLabels,
		}, []string{"dentition", "result"}),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "odontogram_save_duration_seconds",
			Help:        "Time spent replacing a chart's record set.",
			Buckets:     defaultDurationBuckets,
			ConstLabels: constLabels,
		}),
		recordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "odontogram_records_written_total",
			Help:        "Stored records written by successful saves.",
			ConstLabels: constLabels,
		}),
	}

	reg.MustRegister(tp.httpRequests, tp.httpDuration, tp.httpActive,
		tp.chartLoads, tp.chartSaves, tp.saveDuration, tp.recordsWritten)
	if cfg.ProcessCollectors {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return tp
}

// Registry exposes the underlying registry, mainly for tests.
func (tp *TelemetryProvider) Registry() *prometheus.Registry { return tp.registry }

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveLoad records one chart load.
func (tp *TelemetryProvider) ObserveLoad(dentition string, err error) {
	tp.chartLoads.WithLabelValues(dentition, resultLabel(err)).Inc()
}

// ObserveSave records one chart save, its latency and, on success, the number
// of records written.
func (tp *TelemetryProvider) ObserveSave(dentition string, records int, took time.Duration, err error) {
	tp.chartSaves.WithLabelValues(dentition, resultLabel(err)).Inc()
	tp.saveDuration.Observe(took.Seconds())
	if err == nil {
		tp.recordsWritten.Add(float64(records))
	}
}

// MetricsMiddleware returns an Echo middleware that records HTTP server metrics.
func (tp *TelemetryProvider) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !tp.cfg.MetricsEnabled {
				return next(c)
			}
			tp.httpActive.Inc()
			defer tp.httpActive.Dec()

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			method := c.Request().Method
			tp.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			tp.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// PrometheusHandler serves the registry in Prometheus exposition format.
func (tp *TelemetryProvider) PrometheusHandler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(tp.registry, promhttp.HandlerOpts{}))
}
