package service

import (
	"bytes"
	"context"
	"dronelog-backend/internal/archive"
	"dronelog-backend/internal/bundlecache"
	"dronelog-backend/internal/components/chrono"
	"dronelog-backend/internal/components/telemetry"
	"dronelog-backend/internal/linkresolver"
	"dronelog-backend/internal/scrapers/dronelogbook"
	"dronelog-backend/internal/sessionstore"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSessionID = "session-0001"
	testOrigin    = "http://frontend.test"
)

var testNow = time.Date(2025, 10, 30, 12, 0, 0, 0, time.UTC)

type fixedRandom string

func (r fixedRandom) GenerateToken() (string, error) {
	return string(r), nil
}

// newUpstream is a minimal dronelogbook: a csrf cookie on the home page, a
// login form accepting one password and pages that need the session cookie.
func newUpstream(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "CSRF_Sec_Token", Value: "0123456789abcdef0123456789abcdef", Path: "/"})
		w.Write([]byte("<html>home</html>"))
	})
	mux.HandleFunc("/profile/login.php", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0123456789abcdef0123456789abcdef", r.FormValue("CSRF_Sec_Token"))
		if r.FormValue("password") != "hunter2" {
			w.Write([]byte("<p>Invalid email or password</p>"))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "upstream-session", Path: "/"})
		w.Header().Set("Location", "/dashboard.php")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/profile/logout.php", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if _, err := r.Cookie("PHPSESSID"); err != nil {
				w.Header().Set("Location", "/profile/login.php")
				w.WriteHeader(http.StatusFound)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("/dashboard.php", authed(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html><body>maintenance</body></html>"))
	}))
	mux.HandleFunc("/flight/flightList.php", authed(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html><body>no flights</body></html>"))
	}))
	mux.HandleFunc("/flight/flightDetail.php", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "F1" {
			w.Write([]byte("<html>no file</html>"))
			return
		}
		w.Write([]byte(`<script>window.location = '/uploadFile/viewFile.php?id=F1';</script>`))
	}))
	mux.HandleFunc("/uploadFile/viewFile.php", authed(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="f1.csv"`)
		w.Write([]byte("time,alt\n0,0\n"))
	}))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

type harness struct {
	server   *httptest.Server
	sessions *sessionstore.Store
	bundles  *bundlecache.Cache
}

func newHarness(t *testing.T) harness {
	upstream := newUpstream(t)
	tel := telemetry.NewTestingAPI(t)
	clock := chrono.NewFakeTime(testNow)

	db, err := sessionstore.Config{File: ":memory:"}.OpenDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sessions, err := sessionstore.New(context.Background(), db, clock)
	require.NoError(t, err)

	cfg := dronelogbook.DefaultConfig()
	cfg.BaseURL = upstream.URL
	cfg.RequestsPerSecond = 1000
	cfg.CloudflareBypass = false
	clients := func(cookies []dronelogbook.Cookie) (*dronelogbook.Client, error) {
		return dronelogbook.RestoreClient(cfg, tel, clock, nil, cookies)
	}

	bundles := bundlecache.New(clock, 0)
	svc := New(
		Config{AllowedOrigin: testOrigin},
		sessions,
		clients,
		bundles,
		linkresolver.Chain{linkresolver.Static{}},
		WithRandomAPI(fixedRandom(testSessionID)),
		WithTelemetryAPI(tel),
	)

	server := httptest.NewServer(svc.Handler())
	t.Cleanup(server.Close)
	return harness{server: server, sessions: sessions, bundles: bundles}
}

func (h harness) do(t *testing.T, method, path, body string, session string) *http.Response {
	req, err := http.NewRequest(method, h.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: session})
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decode(t *testing.T, res *http.Response) map[string]any {
	var out map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out
}

// events reads every server-sent event of a finished stream.
func events(t *testing.T, res *http.Response) []map[string]any {
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	var out []map[string]any
	for _, chunk := range strings.Split(string(raw), "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		require.True(t, strings.HasPrefix(chunk, "data: "), chunk)
		var event map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(chunk, "data: ")), &event))
		out = append(out, event)
	}
	return out
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	res := h.do(t, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, map[string]any{"status": "ok"}, decode(t, res))
}

func TestRequiresSession(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/api/profile", "/api/flights", "/api/drones", "/api/statistics"} {
		res := h.do(t, http.MethodGet, path, "", "")
		require.Equal(t, http.StatusUnauthorized, res.StatusCode, path)
		require.Equal(t, notAuthenticatedMessage, decode(t, res)["error"], path)
	}

	res := h.do(t, http.MethodGet, "/api/profile", "", "unknown-session")
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestLoginFlow(t *testing.T) {
	h := newHarness(t)

	res := h.do(t, http.MethodPost, "/api/login", `{"email":"pilot@example.com"}`, "")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = h.do(t, http.MethodPost, "/api/login", `{"email":"pilot@example.com","password":"wrong"}`, "")
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	body := decode(t, res)
	require.Equal(t, false, body["success"])
	require.Equal(t, "Invalid email or password", body["error"])

	res = h.do(t, http.MethodPost, "/api/auth/login", `{"email":" Pilot@Example.com ","password":"hunter2"}`, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, map[string]any{
		"success": true,
		"message": "Logged in and session saved on proxy.",
	}, decode(t, res))

	var cookie *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.Equal(t, testSessionID, cookie.Value)
	require.True(t, cookie.HttpOnly)

	session, err := h.sessions.Load(context.Background(), testSessionID)
	require.NoError(t, err)
	require.Equal(t, "pilot@example.com", session.Email)
	require.Contains(t, session.Cookies, dronelogbook.Cookie{Name: "PHPSESSID", Value: "upstream-session"})

	res = h.do(t, http.MethodGet, "/api/profile", "", testSessionID)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, map[string]any{"email": "pilot@example.com", "authenticated": true}, decode(t, res))

	res = h.do(t, http.MethodGet, "/api/flights", "", testSessionID)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	require.Equal(t, "No flight data found", decode(t, res)["error"])

	res = h.do(t, http.MethodGet, "/api/flights?range=5", "", testSessionID)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = h.do(t, http.MethodPost, "/api/logout", "", testSessionID)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "Logged out successfully", decode(t, res)["message"])

	_, err = h.sessions.Load(context.Background(), testSessionID)
	require.ErrorIs(t, err, sessionstore.ErrNotFound)

	res = h.do(t, http.MethodGet, "/api/profile", "", testSessionID)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestExpiredUpstreamSession(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sessions.Save(context.Background(), sessionstore.Session{
		ID:    "stale",
		Email: "pilot@example.com",
	}))

	res := h.do(t, http.MethodGet, "/api/flights?days=30", "", "stale")
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.Equal(t, notAuthenticatedMessage, decode(t, res)["error"])

	res = h.do(t, http.MethodGet, "/api/flights/history", "", "stale")
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestBulkDownloadAndCollect(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.sessions.Save(context.Background(), sessionstore.Session{
		ID:      "s1",
		Email:   "pilot@example.com",
		Cookies: []dronelogbook.Cookie{{Name: "PHPSESSID", Value: "upstream-session"}},
	}))

	res := h.do(t, http.MethodPost, "/api/downloads/bulk", `{"flightIds":[]}`, "s1")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = h.do(t, http.MethodPost, "/api/downloads/bulk", `{"flightIds":["F1","F2"]}`, "s1")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	stream := events(t, res)
	var types []string
	for _, event := range stream {
		types = append(types, event["type"].(string))
	}
	require.Equal(t, []string{"progress", "success", "progress", "error", "complete"}, types)
	require.Equal(t, "f1.csv", stream[1]["filename"])

	complete := stream[len(stream)-1]
	require.EqualValues(t, 1, complete["downloaded"])
	require.EqualValues(t, 1, complete["failed"])
	token, ok := complete["token"].(string)
	require.True(t, ok)

	res = h.do(t, http.MethodGet, "/api/downloads/"+token, "", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, `attachment; filename="flight-logs.zip"`, res.Header.Get("Content-Disposition"))

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	require.Len(t, reader.File, 1)
	require.Equal(t, "f1.csv", reader.File[0].Name)

	res = h.do(t, http.MethodGet, "/api/downloads/"+token, "", "")
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestDownloadUnknownToken(t *testing.T) {
	h := newHarness(t)
	h.bundles.PutToken("known", []archive.File{{Name: "a.csv", Data: []byte("a")}})

	res := h.do(t, http.MethodGet, "/api/downloads/unknown", "", "")
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	require.Contains(t, decode(t, res)["error"], "start the download again")
	require.Equal(t, 1, h.bundles.Len())
}

func TestCORS(t *testing.T) {
	h := newHarness(t)

	req, err := http.NewRequest(http.MethodOptions, h.server.URL+"/api/login", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", testOrigin)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	require.Equal(t, testOrigin, res.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", res.Header.Get("Access-Control-Allow-Credentials"))

	req.Header.Set("Origin", "http://evil.test")
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Empty(t, res.Header.Get("Access-Control-Allow-Origin"))
}

func TestNormalizeEmail(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "pilot@example.com", expected: "pilot@example.com"},
		{input: " Pilot@Example.com", expected: "pilot@example.com"},
		{input: "PILOT@EXAMPLE.COM\t\n", expected: "pilot@example.com"},
	}
	for _, row := range table {
		require.Equal(t, row.expected, normalizeEmail(row.input))
	}
}
