// Package service is the http api the frontend talks to. Each end user has
// their own upstream session, kept in the session store and restored into a
// fresh client on every request.
package service

import (
	"context"
	"dronelog-backend/internal/bundlecache"
	"dronelog-backend/internal/components/assert"
	"dronelog-backend/internal/components/telemetry"
	"dronelog-backend/internal/linkresolver"
	"dronelog-backend/internal/scrapers/dronelogbook"
	"dronelog-backend/internal/sessionstore"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mazen160/go-random"
)

const (
	report_service_login       = "service.login"
	report_service_session     = "service.session"
	report_service_flights     = "service.flights"
	report_service_drones      = "service.drones"
	report_service_downloads   = "service.downloads"
	report_service_stream      = "service.stream"
	report_rand_token_generate = "rand.token-generation"
)

// RandomAPI generates session ids.
//
// note: fault injection point
type RandomAPI interface {
	GenerateToken() (string, error)
}

type defaultRandomAPI struct{}

func (defaultRandomAPI) GenerateToken() (string, error) {
	return random.String(48)
}

// SessionStore persists upstream cookies per session id,
// *sessionstore.Store implements it.
type SessionStore interface {
	Save(ctx context.Context, session sessionstore.Session) error
	Load(ctx context.Context, id string) (sessionstore.Session, error)
	Delete(ctx context.Context, id string) error
}

// ClientFactory creates an upstream client holding cookies, nil cookies
// means a fresh session.
type ClientFactory func(cookies []dronelogbook.Cookie) (*dronelogbook.Client, error)

type Config struct {
	// AllowedOrigin is the frontend origin allowed to call with credentials.
	AllowedOrigin string `json:"allowed_origin"`
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool `json:"secure_cookies"`
	// RunTimeout bounds a single upstream operation.
	RunTimeout time.Duration `json:"-"`
	// BulkTimeout bounds a whole bulk download.
	BulkTimeout time.Duration `json:"-"`
	// DownloadDelay is waited between two files of a bulk download.
	DownloadDelay time.Duration `json:"-"`
}

func DefaultConfig() Config {
	return Config{
		AllowedOrigin: "http://localhost:8080",
		RunTimeout:    2 * time.Minute,
		BulkTimeout:   30 * time.Minute,
		DownloadDelay: 500 * time.Millisecond,
	}
}

type Service struct {
	cfg      Config
	tel      telemetry.API
	rand     RandomAPI
	sessions SessionStore
	clients  ClientFactory
	bundles  *bundlecache.Cache
	resolver linkresolver.Resolver
}

type options struct {
	rand RandomAPI
	tel  telemetry.API
}

type Option func(opts *options)

func WithRandomAPI(rand RandomAPI) Option {
	return func(opts *options) {
		opts.rand = rand
	}
}

func WithTelemetryAPI(tel telemetry.API) Option {
	return func(opts *options) {
		opts.tel = tel
	}
}

func New(
	cfg Config,
	sessions SessionStore,
	clients ClientFactory,
	bundles *bundlecache.Cache,
	resolver linkresolver.Resolver,
	opts ...Option,
) *Service {
	assert.NotNil(sessions)
	assert.NotNil(clients)
	assert.NotNil(bundles)
	assert.NotNil(resolver)

	o := options{
		rand: defaultRandomAPI{},
		tel:  telemetry.SlogAPI{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	defaults := DefaultConfig()
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaults.RunTimeout
	}
	if cfg.BulkTimeout <= 0 {
		cfg.BulkTimeout = defaults.BulkTimeout
	}
	if cfg.DownloadDelay < 0 {
		cfg.DownloadDelay = 0
	}

	return &Service{
		cfg:      cfg,
		tel:      telemetry.NewScopedAPI("service", o.tel),
		rand:     o.rand,
		sessions: sessions,
		clients:  clients,
		bundles:  bundles,
		resolver: resolver,
	}
}

// Handler returns the router with every route mounted.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/login", s.login)
	r.Post("/api/auth/login", s.login)
	r.Post("/api/logout", s.logout)
	r.Post("/api/auth/logout", s.logout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/api/profile", s.profile)
		r.Get("/api/auth/profile", s.profile)

		r.Get("/api/flights", s.flights)
		r.Get("/api/flights/history", s.flightHistory)
		r.Get("/api/statistics", s.statistics)

		r.Get("/api/drones", s.drones)
		r.Get("/api/drones/inventory", s.droneInventory)
		r.Get("/api/drones/detail-page", s.droneDetailPage)
		r.Get("/api/drones/all-flights", s.allDroneFlights)

		r.Post("/api/downloads/bulk", s.bulkDownload)
	})

	// the token is the only credential needed to collect a bundle
	r.Get("/api/downloads/{token}", s.downloadBundle)

	return r
}

// cors allows the configured frontend origin to call with credentials.
func (s *Service) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && origin == s.cfg.AllowedOrigin {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
