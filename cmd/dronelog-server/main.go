package main

import (
	"context"
	"dronelog-backend/internal/bundlecache"
	"dronelog-backend/internal/components/chrono"
	"dronelog-backend/internal/components/telemetry"
	"dronelog-backend/internal/linkresolver"
	"dronelog-backend/internal/scrapers/dronelogbook"
	"dronelog-backend/internal/service"
	"dronelog-backend/internal/sessionstore"
	"dronelog-backend/lib/configutil"
	"dronelog-backend/lib/util/serviceutil"
	"flag"
	"fmt"
	"log/slog"
	"time"
)

const report_sessions_cleanup = "sessions.cleanup"

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "config.json5", "Path to the configuration file.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	cfg, err := configutil.ReadConfig(*configPath, defaultConfig())
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	dump := InitTelemetry(ctx, *verbose, cfg)
	tel := telemetry.SlogAPI{}

	location, err := cfg.location()
	if err != nil {
		serviceutil.Fatal("load timezone", err)
	}
	timeAPI := chrono.NewStandardTime(location)
	cron := chrono.NewStandardCron(tel)
	defer cron.Stop()

	sessions, err := InitSessions(ctx, cfg.Sessions, timeAPI, cron, tel)
	if err != nil {
		serviceutil.Fatal("init sessions", err)
	}

	bundles := bundlecache.New(timeAPI, time.Duration(cfg.Downloads.BundleTTLMinutes)*time.Minute)
	err = bundles.StartSweeper(cron, cfg.Downloads.SweepCron)
	if err != nil {
		serviceutil.Fatal("start bundle sweeper", err)
	}

	resolver := linkresolver.Chain{linkresolver.Static{}}
	if cfg.Downloads.Browser.Enabled {
		browser := linkresolver.NewBrowser(cfg.browser(), tel)
		defer browser.Close()
		resolver = append(resolver, browser)
	}

	upstream := cfg.upstream(location)
	clients := func(cookies []dronelogbook.Cookie) (*dronelogbook.Client, error) {
		return dronelogbook.RestoreClient(upstream, tel, timeAPI, dump, cookies)
	}

	svc := service.New(
		cfg.service(),
		sessions,
		clients,
		bundles,
		resolver,
		service.WithTelemetryAPI(tel),
	)

	err = serviceutil.StartHttpServer(ctx, cfg.Server.Port, svc.Handler())
	if err != nil {
		serviceutil.Fatal(fmt.Sprintf("serve on port %d", cfg.Server.Port), err)
	}
	slog.Info("stopped")
}

// InitSessions opens the session database and schedules the removal of
// sessions nobody has used for a while.
func InitSessions(ctx context.Context, cfg SessionsConfig, timeAPI chrono.TimeAPI, cron chrono.CronAPI, tel telemetry.API) (*sessionstore.Store, error) {
	db, err := cfg.OpenDB()
	if err != nil {
		return nil, err
	}
	store, err := sessionstore.New(ctx, db, timeAPI)
	if err != nil {
		return nil, err
	}

	maxIdle := time.Duration(cfg.MaxIdleHours) * time.Hour
	if maxIdle <= 0 || cfg.CleanupCron == "" {
		return store, nil
	}
	err = cron.Cron(cfg.CleanupCron, func() {
		n, err := store.DeleteIdle(context.Background(), maxIdle)
		if err != nil {
			tel.ReportBroken(report_sessions_cleanup, err)
			return
		}
		tel.ReportCount(report_sessions_cleanup, n)
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}
