package dronelogbook

import (
	"context"
	"dronelog-backend/internal/scrapers/dronelogbook/extract"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	report_client_login  = "client.login"
	report_client_logout = "client.logout"
)

// detailsLimit bounds how much of a failed login response is kept.
const detailsLimit = 1000

// LoginError is returned when the upstream did not accept the credentials.
// It unwraps to one of the Err* login sentinels.
type LoginError struct {
	Reason  error
	Status  int
	Details string
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login: %s (status %d)", e.Reason, e.Status)
}

func (e *LoginError) Unwrap() error {
	return e.Reason
}

// classifyLoginFailure maps the body of a rejected login to a reason, the
// checks are substring matches and the first hit wins.
func classifyLoginFailure(body string) error {
	switch {
	case strings.Contains(body, "Invalid") || strings.Contains(body, "incorrect"):
		return ErrInvalidCredentials
	case strings.Contains(body, "suspended") || strings.Contains(body, "blocked"):
		return ErrAccountBlocked
	case strings.Contains(body, "verification") || strings.Contains(body, "verify"):
		return ErrVerificationRequired
	}
	return ErrLoginFailed
}

func loginForm(csrf, email, password string) map[string]string {
	return map[string]string{
		extract.CSRFCookieName: csrf,
		"action":               "ACTION_LOGIN",
		"organisationToken":    "",
		"plan":                 "",
		"redirect":             "",
		"email":                email,
		"password":             password,
		"twofaCode":            "",
		"passwordConfirm":      "",
		"userCountry":          "US",
		"userLanguage":         "en",
	}
}

// Login authenticates the client's session. The upstream answers a good
// login with a redirect to the dashboard and anything else is a failure.
func (c *Client) Login(ctx context.Context, email, password string) error {
	csrf, err := c.AcquireCSRF(ctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Referer", c.AbsoluteURL("/")).
		SetFormData(loginForm(csrf, email, password)).
		Post(c.cfg.Paths.Login)
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("post form: %w", err))
		return fmt.Errorf("login: %w", err)
	}

	location := res.Header().Get("Location")
	if res.StatusCode() == http.StatusFound && strings.Contains(location, "dashboard.php") {
		return nil
	}

	body := res.String()
	loginErr := &LoginError{
		Reason:  classifyLoginFailure(body),
		Status:  res.StatusCode(),
		Details: extract.Truncate(body, detailsLimit),
	}
	if errors.Is(loginErr, ErrLoginFailed) {
		c.tel.ReportWarning(report_client_login, loginErr, location)
	}
	return loginErr
}

// Logout ends the upstream session, failures are only reported since the
// local session is dropped either way.
func (c *Client) Logout(ctx context.Context) {
	_, err := c.http.R().
		SetContext(ctx).
		Post(c.cfg.Paths.Logout)
	if err != nil {
		c.tel.ReportWarning(report_client_logout, err)
	}
}
