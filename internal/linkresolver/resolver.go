// Package linkresolver finds the file download link on a flight detail
// page. The link is only written into a script block, so a cheap static
// resolver is tried first and a real browser only on a clean miss.
package linkresolver

import (
	"context"
	"dronelog-backend/internal/scrapers/dronelogbook/extract"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoLink means the page was read but carries no download link. Any other
// error means the page could not be read at all.
var ErrNoLink = errors.New("no download link found")

type Target struct {
	PageURL string
	HTML    string
	Cookies []*http.Cookie
}

type Resolver interface {
	// Resolve returns an absolute download url.
	Resolve(ctx context.Context, target Target) (string, error)
}

func absolute(pageURL, link string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}

const viewFileSelector = `a[href*="viewFile.php"]`

// linkFromDOM looks for the script assignment first and then for a plain
// anchor to the file viewer.
func linkFromDOM(document string) (string, bool) {
	if link, ok := extract.DownloadLink(document); ok {
		return link, true
	}
	dom, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", false
	}
	href, ok := dom.Find(viewFileSelector).First().Attr("href")
	if !ok || href == "" {
		return "", false
	}
	return href, true
}

// Static reads the link straight out of the html that was already fetched.
type Static struct{}

func (Static) Resolve(_ context.Context, target Target) (string, error) {
	link, ok := extract.DownloadLink(target.HTML)
	if !ok {
		return "", ErrNoLink
	}
	return absolute(target.PageURL, link), nil
}

// Chain tries each resolver in order, moving on only when the previous one
// found nothing.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, target Target) (string, error) {
	for _, resolver := range c {
		link, err := resolver.Resolve(ctx, target)
		if errors.Is(err, ErrNoLink) {
			continue
		}
		return link, err
	}
	return "", ErrNoLink
}
