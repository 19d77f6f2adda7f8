// Package dronelogbook is an authenticated client for dronelogbook.com.
// It logs in through the same form a browser would, keeps the session in a
// cookie jar and reads everything else out of the html the site renders.
package dronelogbook

import (
	"context"
	"dronelog-backend/internal/components/assert"
	"dronelog-backend/internal/components/chrono"
	"dronelog-backend/internal/components/telemetry"
	"dronelog-backend/internal/scrapers/dronelogbook/paginate"
	"dronelog-backend/internal/scrapers/dronelogbook/parse"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_fetch_page = "client.fetch-page"
	report_client_new        = "client.new"
)

var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountBlocked       = errors.New("account suspended or blocked")
	ErrVerificationRequired = errors.New("email verification required")
	ErrLoginFailed          = errors.New("login failed")
	// ErrNotAuthenticated means the upstream sent us back to the login
	// page, the session has expired.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoData means nothing could be read from a page that should have
	// had something on it.
	ErrNoData = errors.New("no flight data found")
)

// StatusError is returned for responses outside of 2xx/3xx.
type StatusError struct {
	Path   string
	Status int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s: upstream returned %d", e.Path, e.Status)
}

// Client is a single upstream session, it must not be shared between
// end users.
type Client struct {
	cfg     Config
	baseURL *url.URL
	jar     http.CookieJar

	// http never follows redirects so login and session expiry can be
	// told apart, files goes through download which does.
	http     *resty.Client
	download *resty.Client

	tel    telemetry.API
	time   chrono.TimeAPI
	parser *parse.Parser
	driver *paginate.Driver
}

// NewClient creates a client with an empty cookie jar, dump may be nil.
func NewClient(cfg Config, tel telemetry.API, timeAPI chrono.TimeAPI, dump telemetry.DumpOutput) (*Client, error) {
	assert.NotNil(tel)
	assert.NotNil(timeAPI)

	cfg = cfg.withDefaults()
	tel = telemetry.NewScopedAPI("dronelogbook", tel)

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		tel.ReportBroken(report_client_new, fmt.Errorf("parse base url: %w", err), cfg.BaseURL)
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	// shared by both clients, max burst >= rate so that nothing is dropped
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, int(cfg.RequestsPerSecond)))

	newHttp := func() *resty.Client {
		client := resty.New()
		client.SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/"))
		client.SetCookieJar(jar)
		if cfg.CloudflareBypass {
			client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
		}
		client.SetHeader("user-agent", cfg.UserAgent)
		client.SetTimeout(cfg.Timeout)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
		telemetry.InstrumentResty(client, tel, dump)
		return client
	}

	httpClient := newHttp()
	httpClient.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))

	downloadClient := newHttp()
	downloadClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	c := &Client{
		cfg:      cfg,
		baseURL:  baseURL,
		jar:      jar,
		http:     httpClient,
		download: downloadClient,
		tel:      tel,
		time:     timeAPI,
		parser:   parse.NewParser(tel, timeAPI, cfg.Parse),
	}
	c.driver = paginate.NewDriver(tel, c, c.parser, cfg.Pagination)
	return c, nil
}

func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Parser exposes the page parser the client uses.
func (c *Client) Parser() *parse.Parser {
	return c.parser
}

// AbsoluteURL resolves a path found on a page against the base url.
func (c *Client) AbsoluteURL(ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.baseURL.ResolveReference(parsed).String()
}

func isLoginRedirect(res *resty.Response) bool {
	if res.StatusCode() < 300 || res.StatusCode() >= 400 {
		return false
	}
	location := strings.ToLower(res.Header().Get("Location"))
	return strings.Contains(location, "login")
}

// get fetches an authenticated page, a redirect to the login page is
// reported as ErrNotAuthenticated.
func (c *Client) get(ctx context.Context, path string) (*resty.Response, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return nil, err
	}
	if isLoginRedirect(res) {
		return nil, ErrNotAuthenticated
	}
	if res.StatusCode() >= 400 {
		return nil, StatusError{Path: path, Status: res.StatusCode()}
	}
	return res, nil
}

// FetchPage implements paginate.Fetcher.
func (c *Client) FetchPage(ctx context.Context, path string) (string, error) {
	res, err := c.get(ctx, path)
	if err != nil {
		c.tel.ReportWarning(report_client_fetch_page, err, path)
		return "", err
	}
	if res.StatusCode() >= 300 {
		return "", StatusError{Path: path, Status: res.StatusCode()}
	}
	return res.String(), nil
}
