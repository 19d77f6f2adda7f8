package service

import (
	"context"
	"dronelog-backend/internal/sessionstore"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// normalizeEmail removes formatting differences from user input.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	client, err := s.clients(nil)
	if err != nil {
		s.writeError(w, report_service_login, fmt.Errorf("new client: %w", err), "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RunTimeout)
	defer cancel()
	err = client.Login(ctx, email, req.Password)
	if err != nil {
		s.writeError(w, report_service_login, err, "")
		return
	}

	id, err := s.rand.GenerateToken()
	if err != nil {
		s.tel.ReportBroken(report_rand_token_generate, err)
		writeMessage(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	err = s.sessions.Save(r.Context(), sessionstore.Session{
		ID:      id,
		Email:   email,
		Cookies: client.ExportCookies(),
	})
	if err != nil {
		s.writeError(w, report_service_login, fmt.Errorf("save session: %w", err), "")
		return
	}

	s.setSessionCookie(w, id)
	writeJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "Logged in and session saved on proxy.",
	})
}

// logout always succeeds, there may be nothing left to log out of.
func (s *Service) logout(w http.ResponseWriter, r *http.Request) {
	session, err := s.loadSession(r)
	switch {
	case err == nil:
		client, err := s.clients(session.Cookies)
		if err == nil {
			ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RunTimeout)
			client.Logout(ctx)
			cancel()
		}
		err = s.sessions.Delete(r.Context(), session.ID)
		if err != nil {
			s.tel.ReportBroken(report_service_session, fmt.Errorf("delete: %w", err), session.ID)
		}
	case !errors.Is(err, sessionstore.ErrNotFound):
		s.tel.ReportBroken(report_service_session, fmt.Errorf("load: %w", err))
	}

	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

type profileResponse struct {
	Email         string `json:"email"`
	Authenticated bool   `json:"authenticated"`
}

func (s *Service) profile(w http.ResponseWriter, r *http.Request) {
	rs := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, profileResponse{
		Email:         rs.Email,
		Authenticated: true,
	})
}
