// Package observability holds the Prometheus registry of a catmaset run and
// pushes it to a Pushgateway when one is configured.
package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/knesset-annotations/catmaset/internal/errors"
	"github.com/knesset-annotations/catmaset/internal/logger"
	"github.com/knesset-annotations/catmaset/internal/observability/metrics"
)

// Metrics holds all the metric collectors for a run.
type Metrics struct {
	registry     *prometheus.Registry
	Pipeline     *metrics.PipelineMetrics
	Notification *metrics.NotificationMetrics
}

// NewMetrics creates a fresh registry with every collector registered.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	pipelineMetrics, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	notificationMetrics, err := metrics.NewNotificationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification metrics: %w", err)
	}

	return &Metrics{
		registry:     registry,
		Pipeline:     pipelineMetrics,
		Notification: notificationMetrics,
	}, nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends every collected metric to the Pushgateway at url under job,
// grouped by run id. The push replaces the previous metrics of the group.
func (m *Metrics) Push(ctx context.Context, url, job, runID string) error {
	start := time.Now()

	pusher := push.New(url, job).
		Gatherer(m.registry).
		Grouping("run_id", runID)

	if err := pusher.PushContext(ctx); err != nil {
		return errors.New(fmt.Errorf("failed to push metrics: %w", err)).
			Component("observability").
			Category(errors.CategoryNetwork).
			Context("pushgateway", url).
			Context("job", job).
			Build()
	}

	log.Debug("metrics pushed",
		logger.String("job", job),
		logger.String("run_id", runID),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}
