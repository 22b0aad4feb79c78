package observability

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// Enabled reports whether span hooks are on.
func Enabled() bool {
	_, cfg := currentLogger()
	return cfg.Enabled
}

// StartSpan logs the start of component/operation and returns a func that logs
// its end with the elapsed time; a non-nil error raises the end record to ERROR.
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	logger, _ := currentLogger()
	if logger == nil {
		return ctx, func(error) {}
	}

	start := time.Now()
	logger.LogAttrs(ctx, slog.LevelDebug, "[OBSERVABILITY] span start",
		slog.String("component", component),
		slog.String("operation", operation),
	)

	return ctx, func(err error) {
		level := slog.LevelDebug
		attrs := []slog.Attr{
			slog.String("component", component),
			slog.String("operation", operation),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			level = slog.LevelError
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		logger.LogAttrs(ctx, level, "[OBSERVABILITY] span end", attrs...)
	}
}

// RecordMetric logs a metric datapoint; labels are emitted in key order.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	logger, _ := currentLogger()
	if logger == nil {
		return
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(labels)+2)
	attrs = append(attrs, slog.String("metric", name), slog.Float64("value", value))
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, labels[k]))
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "[OBSERVABILITY] metric", attrs...)
}
