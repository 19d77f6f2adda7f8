package dronelogbook

import (
	"dronelog-backend/internal/components/chrono"
	"dronelog-backend/internal/components/telemetry"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testToken = "0123456789abcdef0123456789abcdef"

var testNow = time.Date(2025, 10, 30, 12, 0, 0, 0, time.UTC)

// upstream is a scripted stand-in for the real site, every request is
// recorded as "METHOD /path?query".
type upstream struct {
	*httptest.Server
	mux *http.ServeMux

	mutex    sync.Mutex
	requests []string
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{mux: http.NewServeMux()}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mutex.Lock()
		u.requests = append(u.requests, r.Method+" "+r.URL.RequestURI())
		u.mutex.Unlock()
		u.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(u.Close)
	return u
}

func (u *upstream) handle(pattern string, handler http.HandlerFunc) {
	u.mux.HandleFunc(pattern, handler)
}

func (u *upstream) html(pattern, body string) {
	u.handle(pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(body))
	})
}

func (u *upstream) recorded() []string {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return append([]string(nil), u.requests...)
}

func testConfig(u *upstream) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = u.URL
	cfg.RequestsPerSecond = 1000
	cfg.CloudflareBypass = false
	return cfg
}

func newTestClient(t *testing.T, u *upstream) *Client {
	client, err := NewClient(testConfig(u), telemetry.NewTestingAPI(t), chrono.NewFakeTime(testNow), nil)
	require.NoError(t, err)
	return client
}

func setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: value, Path: "/"})
}
