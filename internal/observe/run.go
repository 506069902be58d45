package observe

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Stage runs fn as one observed pipeline stage:
//
//  1. Starts an OTel span named after the stage.
//  2. Tracks the run in [Metrics.ActivePipelines].
//  3. Records the elapsed time to [Metrics.FileDuration].
//  4. Counts failures in [Metrics.PipelineErrors] and marks the span.
//  5. Logs completion with duration and trace info.
//
// The error returned by fn is passed through unchanged.
func Stage(ctx context.Context, m *Metrics, stage string, fn func(context.Context) error) error {
	start := time.Now()

	ctx, span := StartSpan(ctx, stage)
	defer span.End()

	m.ActivePipelines.Add(ctx, 1)
	defer m.ActivePipelines.Add(ctx, -1)

	err := fn(ctx)

	duration := time.Since(start)
	m.FileDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(Attr("stage", stage)),
	)

	if err != nil {
		m.RecordPipelineError(ctx, stage)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		Logger(ctx).LogAttrs(ctx, slog.LevelError, "stage failed",
			slog.String("stage", stage),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return err
	}

	span.SetStatus(codes.Ok, "")
	Logger(ctx).LogAttrs(ctx, slog.LevelInfo, "stage completed",
		slog.String("stage", stage),
		slog.Duration("duration", duration),
	)
	return nil
}
