package dronelogbook

import (
	"dronelog-backend/internal/components/chrono"
	"dronelog-backend/internal/components/telemetry"
	"net/http"
)

// Cookie is the serialized form of a session cookie, it is all that has to
// be persisted to resume a session later.
//
// The jar only hands out name and value, so restored cookies are scoped to
// the base url with path "/".
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ExportCookies returns the cookies the jar would send to the base url.
func (c *Client) ExportCookies() []Cookie {
	var out []Cookie
	for _, cookie := range c.jar.Cookies(c.baseURL) {
		out = append(out, Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	return out
}

// HTTPCookies returns the session cookies in net/http form.
func (c *Client) HTTPCookies() []*http.Cookie {
	return c.jar.Cookies(c.baseURL)
}

func (c *Client) importCookies(cookies []Cookie) {
	jarCookies := make([]*http.Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		jarCookies = append(jarCookies, &http.Cookie{
			Name:  cookie.Name,
			Value: cookie.Value,
			Path:  "/",
		})
	}
	c.jar.SetCookies(c.baseURL, jarCookies)
}

// RestoreClient creates a client whose jar already holds cookies, this is
// how a session saved after Login is resumed.
func RestoreClient(cfg Config, tel telemetry.API, timeAPI chrono.TimeAPI, dump telemetry.DumpOutput, cookies []Cookie) (*Client, error) {
	c, err := NewClient(cfg, tel, timeAPI, dump)
	if err != nil {
		return nil, err
	}
	c.importCookies(cookies)
	return c, nil
}

// csrfCookie returns the value of the anti-forgery cookie currently in the
// jar, or "" when there is none.
func (c *Client) csrfCookie() string {
	for _, cookie := range c.jar.Cookies(c.baseURL) {
		if isCSRFCookie(cookie) {
			return cookie.Value
		}
	}
	return ""
}
