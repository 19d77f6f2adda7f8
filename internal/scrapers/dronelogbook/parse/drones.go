package parse

import (
	"context"
	"dronelog-backend/lib/htmlutil"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	droneLinkSelector       = `a[href*="/inventory/droneDetail.php?id="]`
	droneFlightLinkSelector = `a[href*="/flight/flightDetail.php?id="]`
	nextPageSelector        = `a[href*="flightPagination"], button[onclick*="flightPagination"]`
	nextControlSelector     = `a, button`

	// maxAncestorDepth bounds how far up from a flight link the header is looked for.
	maxAncestorDepth = 10
)

var (
	uuidParamRegex    = regexp.MustCompile(`(?i)id=([A-F0-9\-]+)`)
	droneHeaderRegex  = regexp.MustCompile(`Flight\s+([\d\-]+)\s+([\d:]+)`)
	lineDurationRegex = regexp.MustCompile(`(\d{2}:\d{2}:\d{2})$`)
	pilotLineRegex    = regexp.MustCompile(`Pilot:\s*(.+)`)
	metadataLineRegex = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|^\[?\d+\]?`)
	leadingDateRegex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	anyClockRegex     = regexp.MustCompile(`\d{2}:\d{2}:\d{2}`)
	nextLabelRegex    = regexp.MustCompile(`(?i)^next\b`)
)

func load(document string) (*goquery.Document, bool) {
	dom, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, false
	}
	return dom, true
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Drones lists the drones linked from the inventory page, each id once.
func Drones(ctx context.Context, document string) []Drone {
	dom, ok := load(document)
	if !ok {
		return nil
	}

	seen := map[string]bool{}
	var drones []Drone
	for _, anchor := range htmlutil.GetAnchors(ctx, dom.Find(droneLinkSelector)) {
		groups := uuidParamRegex.FindStringSubmatch(anchor.Href)
		if groups == nil || seen[groups[1]] {
			continue
		}
		id := groups[1]
		seen[id] = true

		name := anchor.Name
		if name == "" {
			name = "Drone " + shortID(id)
		}
		drones = append(drones, Drone{
			ID:   id,
			Name: name,
			URL:  anchor.Href,
		})
	}
	return drones
}

// DroneFlights reads one page of a drone's flight history.
func DroneFlights(document string) DroneFlightPage {
	dom, ok := load(document)
	if !ok {
		return DroneFlightPage{Flights: []DroneFlight{}}
	}

	seen := map[string]bool{}
	flights := []DroneFlight{}
	dom.Find(droneFlightLinkSelector).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		groups := uuidParamRegex.FindStringSubmatch(href)
		if groups == nil || seen[groups[1]] {
			return
		}
		id := groups[1]
		seen[id] = true

		flight := DroneFlight{ID: id, URL: href}
		describeDroneFlight(link, &flight)
		if flight.Name == "" {
			flight.Name = "Flight " + shortID(id)
		}
		flights = append(flights, flight)
	})

	return DroneFlightPage{
		Flights:     flights,
		HasNextPage: len(flights) > 0 && hasNextPage(dom),
	}
}

// describeDroneFlight walks up from the link until an ancestor whose first
// line is a "Flight <date> <time>" header.
func describeDroneFlight(link *goquery.Selection, flight *DroneFlight) {
	container := link.Parent()
	for level := 0; level < maxAncestorDepth && container.Length() > 0; level++ {
		lines := htmlutil.GetLines(container.Get(0))
		if len(lines) > 0 && looksLikeMetadata(lines[0]) {
			first := lines[0]
			if groups := droneHeaderRegex.FindStringSubmatch(first); groups != nil {
				flight.Date = groups[1]
				flight.Time = groups[2]
				flight.Name = "Flight " + groups[1] + " " + groups[2]
			}
			if groups := lineDurationRegex.FindStringSubmatch(first); groups != nil {
				flight.Duration = groups[1]
			}
			if len(lines) > 1 {
				flight.Pilot = pilotFromLine(lines[1])
			}
			if flight.Name != "" {
				return
			}
		}
		container = container.Parent()
	}
}

func looksLikeMetadata(line string) bool {
	return metadataLineRegex.MatchString(line) || strings.Contains(line, "Flight")
}

func pilotFromLine(line string) string {
	if groups := pilotLineRegex.FindStringSubmatch(line); groups != nil {
		return strings.TrimSpace(groups[1])
	}
	line = leadingDateRegex.ReplaceAllString(line, "")
	line = strings.Replace(line, anyClockRegex.FindString(line), "", 1)
	return strings.TrimSpace(line)
}

// hasNextPage looks for a pagination control, either one calling the
// pager script or a link or button labelled next.
func hasNextPage(dom *goquery.Document) bool {
	if dom.Find(nextPageSelector).Length() > 0 {
		return true
	}
	found := false
	dom.Find(nextControlSelector).EachWithBreak(func(_ int, control *goquery.Selection) bool {
		found = nextLabelRegex.MatchString(strings.TrimSpace(control.Text()))
		return !found
	})
	return found
}
