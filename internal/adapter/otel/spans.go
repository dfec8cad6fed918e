package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "repolens"

// StartSyncSpan starts a span for one repository sync.
func StartSyncSpan(ctx context.Context, repoName, branch string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "sync",
		trace.WithAttributes(
			attribute.String("repo.name", repoName),
			attribute.String("repo.branch", branch),
		),
	)
}

// StartAnalysisSpan starts a span for one repository analysis pass.
func StartAnalysisSpan(ctx context.Context, repoName string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "analysis",
		trace.WithAttributes(
			attribute.String("repo.name", repoName),
		),
	)
}
