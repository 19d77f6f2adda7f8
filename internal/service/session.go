package service

import (
	"context"
	"dronelog-backend/internal/scrapers/dronelogbook"
	"dronelog-backend/internal/sessionstore"
	"errors"
	"fmt"
	"net/http"
)

const (
	sessionCookieName       = "dlb_session"
	notAuthenticatedMessage = "Not authenticated via proxy. Please /api/login first."
)

type sessionCtxKey struct{}

// requestSession is the restored upstream session of the current request.
type requestSession struct {
	sessionstore.Session
	client *dronelogbook.Client
}

func sessionFrom(ctx context.Context) *requestSession {
	rs, _ := ctx.Value(sessionCtxKey{}).(*requestSession)
	return rs
}

func (s *Service) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Service) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// loadSession returns the session named by the request cookie,
// sessionstore.ErrNotFound when there is none.
func (s *Service) loadSession(r *http.Request) (sessionstore.Session, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return sessionstore.Session{}, sessionstore.ErrNotFound
	}
	return s.sessions.Load(r.Context(), cookie.Value)
}

// requireSession restores the upstream client of the caller and saves its
// cookies back once the handler is done, the upstream may have rotated them.
func (s *Service) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.loadSession(r)
		if errors.Is(err, sessionstore.ErrNotFound) {
			writeMessage(w, http.StatusUnauthorized, notAuthenticatedMessage)
			return
		}
		if err != nil {
			s.tel.ReportBroken(report_service_session, fmt.Errorf("load: %w", err))
			writeMessage(w, http.StatusInternalServerError, "failed to load session")
			return
		}

		client, err := s.clients(session.Cookies)
		if err != nil {
			s.tel.ReportBroken(report_service_session, fmt.Errorf("restore client: %w", err))
			writeMessage(w, http.StatusInternalServerError, "failed to restore session")
			return
		}

		rs := &requestSession{Session: session, client: client}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionCtxKey{}, rs)))

		rs.Cookies = client.ExportCookies()
		err = s.sessions.Save(context.WithoutCancel(r.Context()), rs.Session)
		if err != nil {
			s.tel.ReportBroken(report_service_session, fmt.Errorf("save: %w", err), rs.ID)
		}
	})
}
