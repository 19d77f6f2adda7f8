package main

import (
	"dronelog-backend/internal/bundlecache"
	"dronelog-backend/internal/components/telemetry"
	"dronelog-backend/internal/linkresolver"
	"dronelog-backend/internal/scrapers/dronelogbook"
	"dronelog-backend/internal/scrapers/dronelogbook/paginate"
	"dronelog-backend/internal/scrapers/dronelogbook/parse"
	"dronelog-backend/internal/service"
	"dronelog-backend/internal/sessionstore"
	"time"
)

type ServerConfig struct {
	Port          int    `json:"port"`
	AllowedOrigin string `json:"allowed_origin"`
	SecureCookies bool   `json:"secure_cookies"`
}

type UpstreamConfig struct {
	dronelogbook.Config
	TimeoutSeconds    int `json:"timeout_seconds"`
	RunTimeoutSeconds int `json:"run_timeout_seconds"`
}

type PaginationConfig struct {
	MaxPages        int     `json:"max_pages"`
	PageSize        int     `json:"page_size"`
	MinInRangeRatio float64 `json:"min_in_range_ratio"`
	IDWindowBefore  int     `json:"id_window_before"`
	IDWindowAfter   int     `json:"id_window_after"`
	// Timezone is the zone flight dates are read in.
	Timezone string `json:"timezone"`
}

type DownloadsConfig struct {
	DelayMillis       int    `json:"delay_millis"`
	BundleTTLMinutes  int    `json:"bundle_ttl_minutes"`
	SweepCron         string `json:"sweep_cron"`
	BulkTimeoutMinutes int    `json:"bulk_timeout_minutes"`
	Browser           struct {
		Enabled   bool   `json:"enabled"`
		RemoteURL string `json:"remote_url"`
	} `json:"browser"`
}

type SessionsConfig struct {
	sessionstore.Config
	MaxIdleHours int    `json:"max_idle_hours"`
	CleanupCron  string `json:"cleanup_cron"`
}

type DebugConfig struct {
	// RestyDump is a directory every upstream request/response pair is
	// written to, empty disables it.
	RestyDump string `json:"resty_dump"`
}

type Config struct {
	Server     ServerConfig     `json:"server"`
	Upstream   UpstreamConfig   `json:"upstream"`
	Pagination PaginationConfig `json:"pagination"`
	Downloads  DownloadsConfig  `json:"downloads"`
	Sessions   SessionsConfig   `json:"sessions"`
	Telemetry  telemetry.Config `json:"telemetry"`
	Debug      DebugConfig      `json:"debug"`
}

func defaultConfig() Config {
	svc := service.DefaultConfig()
	pagination := paginate.DefaultOptions()
	parsing := parse.DefaultOptions()

	cfg := Config{
		Server: ServerConfig{
			Port:          8000,
			AllowedOrigin: svc.AllowedOrigin,
		},
		Upstream: UpstreamConfig{
			Config:            dronelogbook.DefaultConfig(),
			TimeoutSeconds:    30,
			RunTimeoutSeconds: int(svc.RunTimeout / time.Second),
		},
		Pagination: PaginationConfig{
			MaxPages:        pagination.MaxPages,
			PageSize:        pagination.PageSize,
			MinInRangeRatio: pagination.MinInRangeRatio,
			IDWindowBefore:  parsing.IDWindowBefore,
			IDWindowAfter:   parsing.IDWindowAfter,
			Timezone:        "UTC",
		},
		Downloads: DownloadsConfig{
			DelayMillis:       int(svc.DownloadDelay / time.Millisecond),
			BundleTTLMinutes:  int(bundlecache.DefaultTTL / time.Minute),
			SweepCron:         "@every 1m",
			BulkTimeoutMinutes: int(svc.BulkTimeout / time.Minute),
		},
		Sessions: SessionsConfig{
			Config:       sessionstore.Config{File: "sessions.db"},
			MaxIdleHours: 24 * 7,
			CleanupCron:  "@hourly",
		},
	}
	return cfg
}

func (c Config) location() (*time.Location, error) {
	if c.Pagination.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Pagination.Timezone)
}

func (c Config) upstream(location *time.Location) dronelogbook.Config {
	out := c.Upstream.Config
	out.Timeout = time.Duration(c.Upstream.TimeoutSeconds) * time.Second
	out.Pagination = paginate.Options{
		MaxPages:        c.Pagination.MaxPages,
		PageSize:        c.Pagination.PageSize,
		MinInRangeRatio: c.Pagination.MinInRangeRatio,
		Location:        location,
	}
	out.Parse = parse.Options{
		IDWindowBefore: c.Pagination.IDWindowBefore,
		IDWindowAfter:  c.Pagination.IDWindowAfter,
	}
	return out
}

func (c Config) service() service.Config {
	return service.Config{
		AllowedOrigin: c.Server.AllowedOrigin,
		SecureCookies: c.Server.SecureCookies,
		RunTimeout:    time.Duration(c.Upstream.RunTimeoutSeconds) * time.Second,
		BulkTimeout:   time.Duration(c.Downloads.BulkTimeoutMinutes) * time.Minute,
		DownloadDelay: time.Duration(c.Downloads.DelayMillis) * time.Millisecond,
	}
}

func (c Config) browser() linkresolver.BrowserConfig {
	return linkresolver.BrowserConfig{RemoteURL: c.Downloads.Browser.RemoteURL}
}
