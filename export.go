package linuxperf

import (
	"context"

	"go.opentelemetry.io/collector/consumer"
)

// Convert the model to spans and push them to the next consumer in
// the pipeline.  Nothing is sent if no span survives filtering.
func ExportTraces(ctx context.Context, model *TimelineModel, fs *FilterSettings,
	summary map[string]interface{}, next consumer.Traces) error {

	td := ToTracesWithSummary(model, fs, summary)
	if td.SpanCount() == 0 {
		return nil
	}

	return next.ConsumeTraces(ctx, td)
}

// Convert the counters of the model to gauges and push them to the
// next consumer in the pipeline.  Nothing is sent if the model has no
// counters.
func ExportMetrics(ctx context.Context, model *TimelineModel, next consumer.Metrics) error {
	md := ToMetrics(model)
	if md.DataPointCount() == 0 {
		return nil
	}

	return next.ConsumeMetrics(ctx, md)
}
