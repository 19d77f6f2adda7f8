package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InitSlog installs the default slog handler, verbose enables debug level output.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

var (
	countGaugeOnce sync.Once
	countGauge     metric.Int64Gauge
)

// countRecorder resolves lazily so that a meter provider set up after
// package init is still picked up.
func countRecorder() metric.Int64Gauge {
	countGaugeOnce.Do(func() {
		gauge, err := otel.Meter("dronelog.telemetry").Int64Gauge("report_count")
		if err != nil {
			slog.Warn("failed to create report_count gauge", "err", err)
			return
		}
		countGauge = gauge
	})
	return countGauge
}

// SlogAPI implements API using the log/slog package.
type SlogAPI struct{}

func (SlogAPI) formatParams(out *[]any, params []any) {
	for i, p := range params {
		*out = append(
			*out,
			fmt.Sprintf("params.%d", i),
			p,
		)
	}
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	slog.Error("broken component", remainingPairs...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	slog.Warn("warning", remainingPairs...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	remainingPairs := []any{}
	s.formatParams(&remainingPairs, params)
	slog.Debug(message, remainingPairs...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", "id", id, "n", count)
	gauge := countRecorder()
	if gauge == nil {
		return
	}
	gauge.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
}
