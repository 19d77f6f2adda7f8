package linkresolver

import (
	"context"
	"dronelog-backend/internal/components/telemetry"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const report_browser_resolve = "browser.resolve"

type BrowserConfig struct {
	// RemoteURL is the devtools websocket of an already running chrome,
	// empty launches a local headless one on first use.
	RemoteURL string
	// NavigationTimeout bounds loading a single page.
	NavigationTimeout time.Duration
}

// Browser renders the page in headless chrome with the session cookies and
// looks for the link in the resulting DOM.
type Browser struct {
	cfg BrowserConfig
	tel telemetry.API

	mutex   sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

func NewBrowser(cfg BrowserConfig, tel telemetry.API) *Browser {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	return &Browser{
		cfg: cfg,
		tel: telemetry.NewScopedAPI("linkresolver", tel),
	}
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	controlURL := b.cfg.RemoteURL
	if controlURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
		b.lnch = l
	}

	browser := rod.New().ControlURL(controlURL)
	err := browser.Connect()
	if err != nil {
		return nil, fmt.Errorf("connect chrome: %w", err)
	}
	b.browser = browser
	return browser, nil
}

func (b *Browser) Resolve(ctx context.Context, target Target) (string, error) {
	browser, err := b.connect()
	if err != nil {
		b.tel.ReportBroken(report_browser_resolve, err)
		return "", err
	}

	page, err := stealth.Page(browser)
	if err != nil {
		b.tel.ReportBroken(report_browser_resolve, fmt.Errorf("open tab: %w", err))
		return "", err
	}
	defer page.Close()

	cookies := make([]*proto.NetworkCookieParam, 0, len(target.Cookies))
	for _, cookie := range target.Cookies {
		cookies = append(cookies, &proto.NetworkCookieParam{
			Name:  cookie.Name,
			Value: cookie.Value,
			URL:   target.PageURL,
		})
	}
	err = page.SetCookies(cookies)
	if err != nil {
		b.tel.ReportBroken(report_browser_resolve, fmt.Errorf("set cookies: %w", err))
		return "", err
	}

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavigationTimeout)
	defer cancel()

	err = page.Context(navCtx).Navigate(target.PageURL)
	if err != nil {
		b.tel.ReportWarning(report_browser_resolve, fmt.Errorf("navigate: %w", err), target.PageURL)
		return "", err
	}
	err = page.Context(navCtx).WaitLoad()
	if err != nil {
		b.tel.ReportWarning(report_browser_resolve, fmt.Errorf("wait load: %w", err), target.PageURL)
	}

	rendered, err := page.Context(navCtx).HTML()
	if err != nil {
		b.tel.ReportWarning(report_browser_resolve, fmt.Errorf("read dom: %w", err), target.PageURL)
		return "", err
	}
	link, ok := linkFromDOM(rendered)
	if !ok {
		return "", ErrNoLink
	}
	return absolute(target.PageURL, link), nil
}

// Close shuts down chrome if it was started.
func (b *Browser) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
	return err
}
