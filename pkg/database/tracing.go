package database

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Upendra-HQ/professional-backend-code/pkg/logger"
)

const tracerName = "github.com/Upendra-HQ/professional-backend-code/pkg/database"

type slowQuery struct {
	threshold time.Duration
	logger    *slog.Logger
}

var slowQueryCfg atomic.Pointer[slowQuery]

// SetSlowQueryLogging makes TraceQuery warn about queries that take at least
// threshold. A zero threshold or nil logger turns it off.
func SetSlowQueryLogging(threshold time.Duration, l *slog.Logger) {
	if threshold <= 0 || l == nil {
		slowQueryCfg.Store(nil)
		return
	}
	slowQueryCfg.Store(&slowQuery{threshold: threshold, logger: l})
}

// TraceQuery starts a client span named "postgres.<operation>". Call the
// returned function with the query's error when it completes:
//
//	ctx, end := database.TraceQuery(ctx, "GetUserByID", query)
//	defer func() { end(err) }()
//
// Canceled contexts are recorded on the span but not marked as errors; the
// caller went away, the database did not fail.
func TraceQuery(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	statement = compactSQL(statement)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "postgres."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemPostgreSQL,
			semconv.DBOperation(operation),
			semconv.DBStatement(statement),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			if ctx.Err() == nil {
				span.SetStatus(codes.Error, err.Error())
			}
		}
		span.End()

		cfg := slowQueryCfg.Load()
		if cfg == nil {
			return
		}
		elapsed := time.Since(start)
		if elapsed < cfg.threshold {
			return
		}
		attrs := []any{
			slog.String("operation", operation),
			slog.String("statement", statement),
			slog.Duration("duration", elapsed),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		logger.WithContext(ctx, cfg.logger).WarnContext(ctx, "slow query detected", attrs...)
	}
}

// compactSQL folds the whitespace of multi-line query literals.
func compactSQL(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
