package service

import (
	"context"
	"dronelog-backend/internal/bundlecache"
	"dronelog-backend/internal/scrapers/dronelogbook"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Status  int    `json:"status,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Warn("failed to write json response", "err", err)
	}
}

func writeHTML(w http.ResponseWriter, document string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(document))
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

func loginMessage(err error) string {
	switch {
	case errors.Is(err, dronelogbook.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, dronelogbook.ErrAccountBlocked):
		return "Account is suspended or blocked"
	case errors.Is(err, dronelogbook.ErrVerificationRequired):
		return "Email verification required"
	}
	return "Login failed"
}

// writeError maps an operation error to its response, notFound is the
// message used for ErrNoData.
func (s *Service) writeError(w http.ResponseWriter, id string, err error, notFound string) {
	var loginErr *dronelogbook.LoginError
	switch {
	case errors.As(err, &loginErr):
		writeJSON(w, http.StatusUnauthorized, errorBody{
			Error:   loginMessage(loginErr),
			Status:  loginErr.Status,
			Details: loginErr.Details,
		})
	case errors.Is(err, dronelogbook.ErrNotAuthenticated):
		writeMessage(w, http.StatusUnauthorized, notAuthenticatedMessage)
	case errors.Is(err, dronelogbook.ErrNoData):
		writeMessage(w, http.StatusNotFound, notFound)
	case errors.Is(err, bundlecache.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Download not found or expired. Please start the download again.")
	case errors.Is(err, context.DeadlineExceeded):
		s.tel.ReportWarning(id, err)
		writeMessage(w, http.StatusGatewayTimeout, "Upstream took too long to answer")
	default:
		s.tel.ReportBroken(id, err)
		writeMessage(w, http.StatusInternalServerError, err.Error())
	}
}
