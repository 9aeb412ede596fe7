package declarative

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const metricsJob = "gdc"

// StepReport is the outcome of one timed step.
type StepReport struct {
	Action   Action        `json:"action" yaml:"action"`
	Step     string        `json:"step" yaml:"step"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Instrument times steps. Each step is logged, observed in the
// gdc_step_duration_seconds histogram and kept for the final report.
type Instrument struct {
	logger   *slog.Logger
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	pushURL  string

	mu      sync.Mutex
	reports []StepReport
}

// NewInstrument creates an Instrument with its own registry. When pushURL is
// set, Push sends the collected metrics to that Pushgateway.
func NewInstrument(logger *slog.Logger, pushURL string) *Instrument {
	if logger == nil {
		logger = slog.Default()
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gdc_step_duration_seconds",
		Help:    "Duration of clone and deploy steps.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"action", "step", "status"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(duration)

	return &Instrument{
		logger:   logger,
		registry: registry,
		duration: duration,
		pushURL:  pushURL,
	}
}

// Step runs fn as the named step of action and records how long it took.
// The error of fn is returned unchanged.
func (i *Instrument) Step(ctx context.Context, action Action, step string, fn func(context.Context) error) error {
	i.logger.Debug("step started", "action", action, "step", step)

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	status := "ok"
	report := StepReport{Action: action, Step: step, Duration: elapsed}
	if err != nil {
		status = "error"
		report.Error = err.Error()
	}
	i.duration.WithLabelValues(string(action), step, status).Observe(elapsed.Seconds())

	i.mu.Lock()
	i.reports = append(i.reports, report)
	i.mu.Unlock()

	if err != nil {
		i.logger.Error("step failed", "action", action, "step", step, "duration", elapsed, "error", err)
		return err
	}
	i.logger.Info(fmt.Sprintf("%s '%s' finished", action, step), "duration", elapsed.Round(100*time.Microsecond))
	return nil
}

// Reports returns the steps run so far in order.
func (i *Instrument) Reports() []StepReport {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]StepReport, len(i.reports))
	copy(out, i.reports)
	return out
}

// Registry exposes the metrics registry.
func (i *Instrument) Registry() *prometheus.Registry {
	return i.registry
}

// Push sends the collected metrics to the configured Pushgateway. It is a
// no-op without one.
func (i *Instrument) Push(ctx context.Context) error {
	if i.pushURL == "" {
		return nil
	}
	if err := push.New(i.pushURL, metricsJob).Gatherer(i.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", i.pushURL, err)
	}
	i.logger.Debug("metrics pushed", "url", i.pushURL)
	return nil
}
