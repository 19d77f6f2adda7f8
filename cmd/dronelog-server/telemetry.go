package main

import (
	"context"
	"dronelog-backend/internal/components/telemetry"
	"dronelog-backend/lib/util/serviceutil"
	"log/slog"
	"time"
)

// InitTelemetry sets up logging and the otel providers, it returns where
// upstream transcripts should be written (nil for nowhere).
func InitTelemetry(ctx context.Context, verbose bool, cfg Config) telemetry.DumpOutput {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	providers, err := telemetry.Setup(ctx, "dronelog-server", cfg.Telemetry)
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := providers.Shutdown(shutdownCtx)
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	}()
	telemetry.InstrumentPerfStats(ctx, 15*time.Second)

	if cfg.Debug.RestyDump == "" {
		return nil
	}
	output, err := telemetry.NewFilesystemOutput(cfg.Debug.RestyDump)
	if err != nil {
		serviceutil.Fatal("create resty dump directory", err)
	}
	return output
}
