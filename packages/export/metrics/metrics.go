// Package metrics aggregates the HTTP attempts of hitchain runs and exports
// them as JSON or in the Prometheus text format.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/abdul-hamid-achik/hitchain/packages/core/runner"
	"github.com/abdul-hamid-achik/hitchain/packages/core/suite"
)

// Latencies are tracked in microseconds between 1us and 60s.
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// AttemptMetrics describes one HTTP attempt.
type AttemptMetrics struct {
	Step       int       `json:"step"`
	Attempt    int       `json:"attempt"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code,omitempty"`
	DurationMs float64   `json:"duration_ms"`
	Passed     bool      `json:"passed"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// AggregateMetrics represents aggregated metrics over every recorded run
type AggregateMetrics struct {
	TotalAttempts   int64                     `json:"total_attempts"`
	Retries         int64                     `json:"retries"`
	TransportErrors int64                     `json:"transport_errors"`
	StepsPassed     int64                     `json:"steps_passed"`
	StepsFailed     int64                     `json:"steps_failed"`
	MinDurationMs   float64                   `json:"min_duration_ms"`
	MaxDurationMs   float64                   `json:"max_duration_ms"`
	AvgDurationMs   float64                   `json:"avg_duration_ms"`
	P50DurationMs   float64                   `json:"p50_duration_ms"`
	P95DurationMs   float64                   `json:"p95_duration_ms"`
	P99DurationMs   float64                   `json:"p99_duration_ms"`
	StatusCodes     map[int]int64             `json:"status_codes"`
	ByRequest       map[string]*RequestMetrics `json:"by_request"`
}

// RequestMetrics aggregates the attempts sent to one method and URL.
type RequestMetrics struct {
	Name          string  `json:"name"`
	TotalAttempts int64   `json:"total_attempts"`
	SuccessCount  int64   `json:"success_count"`
	FailureCount  int64   `json:"failure_count"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	MinDurationMs float64 `json:"min_duration_ms"`
	MaxDurationMs float64 `json:"max_duration_ms"`

	timed int64
}

// Exporter is the interface for metrics exporters
type Exporter interface {
	// Export exports metrics to the target destination
	Export(metrics *AggregateMetrics) error

	// ExportSingle exports a single attempt
	ExportSingle(metric *AttemptMetrics) error

	// Close closes the exporter and flushes any buffered data
	Close() error
}

// Collector implements runner.Recorder. It is safe for concurrent runs.
type Collector struct {
	mu              sync.Mutex
	histogram       *hdrhistogram.Histogram
	aggregate       *AggregateMetrics
	totalDurationMs float64
	timed           int64
	exporters       []Exporter
}

var _ runner.Recorder = (*Collector)(nil)

// NewCollector creates a new metrics collector
func NewCollector(exporters ...Exporter) *Collector {
	return &Collector{
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
		exporters: exporters,
		aggregate: &AggregateMetrics{
			StatusCodes: make(map[int]int64),
			ByRequest:   make(map[string]*RequestMetrics),
		},
	}
}

func (c *Collector) RecordAttempt(rec runner.AttemptRecord) {
	m := &AttemptMetrics{
		Step:       rec.Step,
		Attempt:    rec.Attempt,
		Method:     rec.Method,
		URL:        rec.URL,
		StatusCode: rec.StatusCode,
		DurationMs: float64(rec.Duration.Microseconds()) / 1000,
		Passed:     rec.Err == nil,
		Timestamp:  time.Now(),
	}
	if rec.Err != nil {
		m.Error = rec.Err.Error()
	}

	c.mu.Lock()
	c.updateAggregate(m, rec.Duration)
	c.mu.Unlock()

	for _, exp := range c.exporters {
		_ = exp.ExportSingle(m)
	}
}

func (c *Collector) RecordStep(rec runner.StepRecord) {
	if rec.Kind != suite.KindRequest {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec.Passed {
		c.aggregate.StepsPassed++
	} else {
		c.aggregate.StepsFailed++
	}
}

func (c *Collector) updateAggregate(m *AttemptMetrics, d time.Duration) {
	a := c.aggregate
	a.TotalAttempts++
	if m.Attempt > 1 {
		a.Retries++
	}

	name := fmt.Sprintf("%s %s", m.Method, m.URL)
	rm, ok := a.ByRequest[name]
	if !ok {
		rm = &RequestMetrics{Name: name}
		a.ByRequest[name] = rm
	}
	rm.TotalAttempts++
	if m.Passed {
		rm.SuccessCount++
	} else {
		rm.FailureCount++
	}

	// A transport failure carries no status code and no latency.
	if m.StatusCode == 0 {
		a.TransportErrors++
		return
	}
	a.StatusCodes[m.StatusCode]++

	c.timed++
	c.totalDurationMs += m.DurationMs
	if c.timed == 1 || m.DurationMs < a.MinDurationMs {
		a.MinDurationMs = m.DurationMs
	}
	if m.DurationMs > a.MaxDurationMs {
		a.MaxDurationMs = m.DurationMs
	}
	a.AvgDurationMs = c.totalDurationMs / float64(c.timed)

	rm.timed++
	if rm.timed == 1 || m.DurationMs < rm.MinDurationMs {
		rm.MinDurationMs = m.DurationMs
	}
	if m.DurationMs > rm.MaxDurationMs {
		rm.MaxDurationMs = m.DurationMs
	}
	rm.AvgDurationMs = (rm.AvgDurationMs*float64(rm.timed-1) + m.DurationMs) / float64(rm.timed)

	latencyUs := d.Microseconds()
	if latencyUs < minLatencyUs {
		latencyUs = minLatencyUs
	}
	if latencyUs > maxLatencyUs {
		latencyUs = maxLatencyUs
	}
	_ = c.histogram.RecordValue(latencyUs)
}

// GetAggregate returns a snapshot of the aggregated metrics with the
// latency percentiles filled in.
func (c *Collector) GetAggregate() *AggregateMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := *c.aggregate
	snap.StatusCodes = make(map[int]int64, len(c.aggregate.StatusCodes))
	for k, v := range c.aggregate.StatusCodes {
		snap.StatusCodes[k] = v
	}
	snap.ByRequest = make(map[string]*RequestMetrics, len(c.aggregate.ByRequest))
	for k, v := range c.aggregate.ByRequest {
		rm := *v
		snap.ByRequest[k] = &rm
	}

	if c.histogram.TotalCount() > 0 {
		snap.P50DurationMs = float64(c.histogram.ValueAtQuantile(50)) / 1000
		snap.P95DurationMs = float64(c.histogram.ValueAtQuantile(95)) / 1000
		snap.P99DurationMs = float64(c.histogram.ValueAtQuantile(99)) / 1000
	}
	return &snap
}

// Flush exports all aggregated metrics
func (c *Collector) Flush() error {
	aggregate := c.GetAggregate()
	for _, exp := range c.exporters {
		if err := exp.Export(aggregate); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all exporters
func (c *Collector) Close() error {
	for _, exp := range c.exporters {
		if err := exp.Close(); err != nil {
			return err
		}
	}
	return nil
}
