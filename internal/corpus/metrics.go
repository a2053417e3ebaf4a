package corpus

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("classlens.corpus")
	meter  = otel.Meter("classlens.corpus")
)

var (
	scanLatency    metric.Float64Histogram
	entriesDecoded metric.Int64Counter
	entriesFailed  metric.Int64Counter
	cacheHits      metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the instruments once. Safe to call repeatedly.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		scanLatency, err = meter.Float64Histogram(
			"corpus_scan_duration_seconds",
			metric.WithDescription("Duration of corpus scans"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		entriesDecoded, err = meter.Int64Counter(
			"corpus_entries_decoded_total",
			metric.WithDescription("Class entries decoded into records"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		entriesFailed, err = meter.Int64Counter(
			"corpus_entries_failed_total",
			metric.WithDescription("Class entries skipped after a read or decode failure"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheHits, err = meter.Int64Counter(
			"corpus_cache_hits_total",
			metric.WithDescription("Decodes served from the content-hash cache"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

func recordScanMetrics(ctx context.Context, duration time.Duration, decoded, failed, hits int, complete bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("complete", complete))
	scanLatency.Record(ctx, duration.Seconds(), attrs)
	entriesDecoded.Add(ctx, int64(decoded), attrs)
	entriesFailed.Add(ctx, int64(failed), attrs)
	cacheHits.Add(ctx, int64(hits))
}

func startScanSpan(ctx context.Context, src Source, workers int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "corpus.Scan",
		trace.WithAttributes(
			attribute.String("corpus.source", src.String()),
			attribute.Int("corpus.workers", workers),
		),
	)
}

func setScanSpanResult(span trace.Span, c *Corpus) {
	span.SetAttributes(
		attribute.Int("corpus.classes", len(c.Classes)),
		attribute.Int("corpus.failures", len(c.Failures)),
	)
}
