package dronelogbook

import (
	"context"
	"dronelog-backend/internal/scrapers/dronelogbook/extract"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

const report_client_acquire_csrf = "client.acquire-csrf"

func isCSRFCookie(cookie *http.Cookie) bool {
	return cookie.Name != "" && extract.IsCSRFCookieName(cookie.Name)
}

// followOnce performs a GET and follows at most one redirect by hand, the
// client itself never follows redirects.
func (c *Client) followOnce(ctx context.Context, path string) (*resty.Response, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() != http.StatusFound {
		return res, nil
	}
	location := res.Header().Get("Location")
	if location == "" {
		return res, nil
	}
	return c.http.R().
		SetContext(ctx).
		Get(c.AbsoluteURL(location))
}

// AcquireCSRF primes the cookie jar with the homepage and returns the
// anti-forgery token. The sources are tried in order:
//
//  1. a cookie whose name looks like a csrf token
//  2. any cookie whose value is a long hex token
//  3. hidden inputs on the homepage
//  4. hidden inputs and script literals on the login page
//  5. the first long hex run on the login page
//
// When every source misses the token is "" and err is nil, login is then
// attempted without one.
func (c *Client) AcquireCSRF(ctx context.Context) (string, error) {
	res, err := c.followOnce(ctx, c.cfg.Paths.Home)
	if err != nil {
		c.tel.ReportBroken(report_client_acquire_csrf, fmt.Errorf("fetch homepage: %w", err))
		return "", err
	}

	cookies := c.jar.Cookies(c.baseURL)
	for _, cookie := range cookies {
		if isCSRFCookie(cookie) {
			c.tel.ReportDebug(report_client_acquire_csrf, "cookie name", cookie.Name)
			return cookie.Value, nil
		}
	}
	for _, cookie := range cookies {
		if extract.LooksLikeToken(cookie.Value) {
			c.tel.ReportDebug(report_client_acquire_csrf, "cookie value", cookie.Name)
			return cookie.Value, nil
		}
	}

	if token, ok := extract.CSRFFromHTML(res.String()); ok {
		c.tel.ReportDebug(report_client_acquire_csrf, "homepage html")
		return token, nil
	}

	res, err = c.http.R().
		SetContext(ctx).
		Get(c.cfg.Paths.Login)
	if err != nil {
		c.tel.ReportWarning(report_client_acquire_csrf, fmt.Errorf("fetch login page: %w", err))
		return "", nil
	}
	loginPage := res.String()
	if token, ok := extract.CSRFFromLoginPage(loginPage); ok {
		c.tel.ReportDebug(report_client_acquire_csrf, "login page html")
		return token, nil
	}
	if token, ok := extract.AnyHexToken(loginPage); ok {
		c.tel.ReportDebug(report_client_acquire_csrf, "login page hex run")
		return token, nil
	}

	c.tel.ReportWarning(
		report_client_acquire_csrf,
		fmt.Errorf("no token found"),
		strings.Contains(loginPage, "password"),
	)
	return "", nil
}
