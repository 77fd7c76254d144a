package relate

import (
	"context"
	"fmt"
	"math"
	"time"
)

// logFetchWithDuration logs individual bulk fetches with execution time at debug level.
func (l Loader) logFetchWithDuration(
	ctx context.Context,
	entityType EntityTypeString,
	relationship RelationshipNameString,
	idCount int,
	duration time.Duration,
) {
	args := []any{
		logAttrEntityType, entityType,
		logAttrEntityCount, idCount,
		logAttrDurationMS, l.toMilliseconds(duration),
	}
	if relationship != "" {
		args = append(args, logAttrRelationship, relationship)
	}

	if l.logger != nil {
		l.logger.Debug(logMsgBulkFetchExecuted+entityType, args...)
	}

	if l.contextualLogger != nil {
		l.contextualLogger.DebugContext(ctx, logMsgBulkFetchExecuted+entityType, args...)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (l Loader) logOperation(ctx context.Context, action string, args ...any) {
	if l.logger != nil {
		l.logger.Info(logMsgOperation+action, args...)
	}

	if l.contextualLogger != nil {
		l.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (l Loader) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if l.logger != nil {
		l.logger.Error(message, allArgs...)
	}

	if l.contextualLogger != nil {
		l.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (l Loader) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// === Tracing Observer ===

// resolveTracingObserver encapsulates tracing span lifecycle management for Resolve calls.
type resolveTracingObserver struct {
	l    Loader
	span SpanContext
}

// startResolveTracing starts a span for one Resolve call if a tracing collector is configured.
func (l Loader) startResolveTracing(ctx context.Context, roots []Entity) (*resolveTracingObserver, context.Context) {
	observer := &resolveTracingObserver{l: l}

	if l.tracingCollector == nil {
		return observer, ctx
	}

	attrs := map[string]string{
		spanAttrOperation: operationResolve,
		spanAttrRootCount: fmt.Sprintf("%d", len(roots)),
	}
	if len(roots) > 0 {
		attrs[spanAttrRootType] = roots[0].EntityType()
	}

	newCtx, span := l.tracingCollector.StartSpan(ctx, spanNameResolve, attrs)
	observer.span = span

	return observer, newCtx
}

// finishSuccess completes the resolve span for successful resolutions.
func (rto *resolveTracingObserver) finishSuccess(fetches int, duration time.Duration) {
	if rto.span == nil {
		return
	}

	rto.span.SetStatus(statusSuccess)
	rto.span.AddAttribute(spanAttrFetchCount, fmt.Sprintf("%d", fetches))
	rto.span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", rto.l.toMilliseconds(duration)))

	rto.l.tracingCollector.FinishSpan(rto.span, statusSuccess, map[string]string{
		spanAttrFetchCount: fmt.Sprintf("%d", fetches),
	})
}

// finishError completes the resolve span with error details.
func (rto *resolveTracingObserver) finishError(errorType string, duration time.Duration) {
	if rto.span == nil {
		return
	}

	rto.span.SetStatus(statusError)
	rto.span.AddAttribute(spanAttrErrorType, errorType)
	rto.span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", rto.l.toMilliseconds(duration)))

	rto.l.tracingCollector.FinishSpan(rto.span, statusError, map[string]string{
		spanAttrErrorType: errorType,
	})
}

// === Metrics Observer ===

// resolveMetricsObserver encapsulates the metrics collection for Resolve calls.
type resolveMetricsObserver struct {
	l   Loader
	ctx context.Context
}

func (l Loader) startResolveMetrics(ctx context.Context) *resolveMetricsObserver {
	return &resolveMetricsObserver{l: l, ctx: ctx}
}

// recordSuccess records all metrics for a successful resolution.
func (rmo *resolveMetricsObserver) recordSuccess(fetches int, entityCount int, duration time.Duration) {
	if rmo.l.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operationResolve, "status": statusSuccess}

	rmo.recordDuration(metricResolveDuration, duration, labels)
	rmo.recordValue(metricEntitiesLoaded, float64(entityCount), labels)

	for i := 0; i < fetches; i++ {
		rmo.incrementCounter(metricBulkFetches, labels)
	}
}

// recordError records all metrics for a failed resolution.
func (rmo *resolveMetricsObserver) recordError(errorType string, duration time.Duration) {
	if rmo.l.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operationResolve,
		"status":          statusError,
		spanAttrErrorType: errorType,
	}

	rmo.recordDuration(metricResolveDuration, duration, labels)
	rmo.incrementCounter(metricResolveErrors, labels)
}

func (rmo *resolveMetricsObserver) recordDuration(metric string, duration time.Duration, labels map[string]string) {
	if contextual, ok := rmo.l.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(rmo.ctx, metric, duration, labels)
		return
	}

	rmo.l.metricsCollector.RecordDuration(metric, duration, labels)
}

func (rmo *resolveMetricsObserver) incrementCounter(metric string, labels map[string]string) {
	if contextual, ok := rmo.l.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(rmo.ctx, metric, labels)
		return
	}

	rmo.l.metricsCollector.IncrementCounter(metric, labels)
}

func (rmo *resolveMetricsObserver) recordValue(metric string, value float64, labels map[string]string) {
	if contextual, ok := rmo.l.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.RecordValueContext(rmo.ctx, metric, value, labels)
		return
	}

	rmo.l.metricsCollector.RecordValue(metric, value, labels)
}
