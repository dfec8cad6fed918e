package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "repolens"

// Metrics holds all repolens metric instruments.
type Metrics struct {
	SyncsStarted     metric.Int64Counter
	SyncsCompleted   metric.Int64Counter
	SyncsFailed      metric.Int64Counter
	SyncDuration     metric.Float64Histogram
	ProjectsDetected metric.Int64Counter
	FilesAnalyzed    metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.SyncsStarted, err = meter.Int64Counter("repolens.syncs.started",
		metric.WithDescription("Number of repository syncs started"))
	if err != nil {
		return nil, err
	}

	m.SyncsCompleted, err = meter.Int64Counter("repolens.syncs.completed",
		metric.WithDescription("Number of repository syncs completed"))
	if err != nil {
		return nil, err
	}

	m.SyncsFailed, err = meter.Int64Counter("repolens.syncs.failed",
		metric.WithDescription("Number of repository syncs failed"))
	if err != nil {
		return nil, err
	}

	m.SyncDuration, err = meter.Float64Histogram("repolens.sync.duration_seconds",
		metric.WithDescription("Repository sync duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.ProjectsDetected, err = meter.Int64Counter("repolens.projects.detected",
		metric.WithDescription("Number of projects detected during analysis"))
	if err != nil {
		return nil, err
	}

	m.FilesAnalyzed, err = meter.Int64Counter("repolens.files.analyzed",
		metric.WithDescription("Number of source files parsed"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
