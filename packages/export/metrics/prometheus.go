package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusExporter keeps hitchain metrics in a private registry and writes
// them in the Prometheus text format, for node_exporter's textfile collector
// or a pushgateway sidecar.
type PrometheusExporter struct {
	registry *prometheus.Registry
	path     string

	attempts  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	steps     *prometheus.GaugeVec
	retries   prometheus.Gauge
	latencies *prometheus.GaugeVec
}

// PrometheusOption is a functional option for PrometheusExporter
type PrometheusOption func(*PrometheusExporter)

// WithPrometheusFile sets the file written on Export.
func WithPrometheusFile(path string) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.path = path
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter
func NewPrometheusExporter(opts ...PrometheusOption) *PrometheusExporter {
	p := &PrometheusExporter{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hitchain_attempts_total",
				Help: "HTTP attempts by method and status code; status is \"error\" for transport failures",
			},
			[]string{"method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hitchain_attempt_duration_seconds",
				Help:    "Duration of HTTP attempts in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),
		steps: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hitchain_steps",
				Help: "Request steps by final result",
			},
			[]string{"result"},
		),
		retries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hitchain_retries",
			Help: "Attempts beyond the first one of a step",
		}),
		latencies: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hitchain_attempt_latency_ms",
				Help: "Attempt latency percentiles in milliseconds",
			},
			[]string{"quantile"},
		),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.registry.MustRegister(p.attempts, p.duration, p.steps, p.retries, p.latencies)
	return p
}

// Registry exposes the underlying registry, e.g. for promhttp.HandlerFor.
func (p *PrometheusExporter) Registry() *prometheus.Registry {
	return p.registry
}

// ExportSingle records a single attempt
func (p *PrometheusExporter) ExportSingle(m *AttemptMetrics) error {
	status := "error"
	if m.StatusCode != 0 {
		status = strconv.Itoa(m.StatusCode)
		p.duration.WithLabelValues(m.Method).Observe(m.DurationMs / 1000)
	}
	p.attempts.WithLabelValues(m.Method, status).Inc()
	return nil
}

// Export publishes the aggregate gauges and writes the text file when one
// is configured.
func (p *PrometheusExporter) Export(metrics *AggregateMetrics) error {
	p.steps.WithLabelValues("passed").Set(float64(metrics.StepsPassed))
	p.steps.WithLabelValues("failed").Set(float64(metrics.StepsFailed))
	p.retries.Set(float64(metrics.Retries))
	p.latencies.WithLabelValues("0.5").Set(metrics.P50DurationMs)
	p.latencies.WithLabelValues("0.95").Set(metrics.P95DurationMs)
	p.latencies.WithLabelValues("0.99").Set(metrics.P99DurationMs)

	if p.path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(p.path, p.registry); err != nil {
		return fmt.Errorf("failed to write prometheus metrics: %w", err)
	}
	return nil
}

// Close closes the Prometheus exporter
func (p *PrometheusExporter) Close() error {
	return nil
}
