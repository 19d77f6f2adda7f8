package parse

import (
	"dronelog-backend/internal/components/assert"
	"dronelog-backend/internal/components/chrono"
	"dronelog-backend/internal/components/telemetry"
	"dronelog-backend/internal/scrapers/dronelogbook/extract"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_parser_flights  = "parser.flights"
	report_parser_document = "parser.document"
)

const rawDataLimit = 200

// Options tunes the fallbacks used when a flight is only partially
// described by the element that links to it.
type Options struct {
	// IDWindowBefore and IDWindowAfter bound the slice of the page around
	// "[id]" that is searched for a missing aircraft, location or duration.
	IDWindowBefore int
	IDWindowAfter  int
}

func DefaultOptions() Options {
	return Options{
		IDWindowBefore: 800,
		IDWindowAfter:  1200,
	}
}

// Parser assembles flight records out of dronelogbook pages.
type Parser struct {
	tel  telemetry.API
	time chrono.TimeAPI
	opts Options
}

func NewParser(tel telemetry.API, timeAPI chrono.TimeAPI, opts Options) *Parser {
	assert.NotNil(tel)
	assert.NotNil(timeAPI)
	if opts.IDWindowBefore <= 0 {
		opts.IDWindowBefore = DefaultOptions().IDWindowBefore
	}
	if opts.IDWindowAfter <= 0 {
		opts.IDWindowAfter = DefaultOptions().IDWindowAfter
	}
	return &Parser{
		tel:  telemetry.NewScopedAPI("parse", tel),
		time: timeAPI,
		opts: opts,
	}
}

func (p *Parser) today() string {
	return p.time.Now().Format("2006-01-02")
}

// Flights returns the flight records found in document in page order. The
// first strategy that yields anything wins: table rows, then free text
// blocks keyed by "[id]", then flight detail links.
func (p *Parser) Flights(document string) []FlightRecord {
	dom, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		p.tel.ReportBroken(report_parser_flights, err)
		dom = nil
	}

	if dom != nil {
		if flights := p.tableRows(dom); len(flights) > 0 {
			p.tel.ReportDebug("flights from table rows", len(flights))
			return flights
		}
	}
	if flights := p.textBlocks(document); len(flights) > 0 {
		p.tel.ReportDebug("flights from text blocks", len(flights))
		return flights
	}
	if dom != nil {
		if flights := p.elements(dom, document); len(flights) > 0 {
			p.tel.ReportDebug("flights from detail links", len(flights))
			return flights
		}
	}
	return nil
}

// Document parses both the flight records and the dashboard statistics of
// one page.
func (p *Parser) Document(document string, r Range) Document {
	flights := p.Flights(document)
	stats := Dashboard(document, r)
	if stats.Empty() {
		stats = nil
	}
	p.tel.ReportDebug(report_parser_document, "flights", len(flights), "stats", stats != nil)
	return Document{
		Flights: flights,
		Stats:   stats,
	}
}

func isHeaderRow(row *goquery.Selection) bool {
	if row.Find("th").Length() > 0 {
		return true
	}
	text := row.Text()
	return strings.Contains(text, "Date") && strings.Contains(text, "Aircraft")
}

// tableRows maps rows of a Date | Aircraft | Duration | Location | Pilot |
// Purpose table onto records.
func (p *Parser) tableRows(dom *goquery.Document) []FlightRecord {
	rows := dom.Find("tr")
	if rows.Length() <= 1 {
		return nil
	}

	var flights []FlightRecord
	rows.Each(func(_ int, row *goquery.Selection) {
		if isHeaderRow(row) {
			return
		}
		var cells []string
		row.ChildrenFiltered("td").Each(func(_ int, cell *goquery.Selection) {
			inner, err := cell.Html()
			if err != nil {
				cells = append(cells, extract.CollapseWhitespace(cell.Text()))
				return
			}
			cells = append(cells, extract.CellText(inner))
		})
		if len(cells) < 6 {
			return
		}
		flights = append(flights, p.tableRow(cells, len(flights)+1))
	})
	return flights
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// tableRow keeps every row with enough cells, blank cells fall back to the
// defaults.
func (p *Parser) tableRow(cells []string, n int) FlightRecord {
	rowText := strings.Join(cells, " ")

	flight := FlightRecord{
		Duration: orDefault(cells[2], extract.ZeroDuration),
		Pilot:    orDefault(cells[4], extract.DefaultPilot),
		Purpose:  orDefault(cells[5], extract.DefaultPurpose),
		Notes:    "Flight logged on " + cells[0],
		RawData:  extract.Truncate(strings.Join(cells, " | "), rawDataLimit),
	}

	if id, ok := extract.BracketID(rowText); ok {
		flight.ID = id
	} else {
		flight.ID = fmt.Sprintf("flight_%d", n)
		flight.synthesized = true
	}

	if date, ok := extract.ParseFlightDate(cells[0]); ok {
		flight.Date = date
	} else {
		flight.Date = p.today()
		flight.DateEstimated = true
	}

	flight.Aircraft = cells[1]
	if flight.Aircraft == "" || flight.Aircraft == extract.UnknownAircraft {
		flight.Aircraft = extract.Aircraft(rowText)
	}
	flight.Location = cells[3]
	if flight.Location == "" || flight.Location == extract.UnknownLocation {
		flight.Location = extract.Location(rowText)
	}
	return flight
}

const minBlockLength = 20

// splitOnIDs cuts text right before every "[id]".
func splitOnIDs(text string) []string {
	bounds := extract.BracketIDBoundaries(text)
	if len(bounds) == 0 {
		return []string{text}
	}
	blocks := make([]string, 0, len(bounds)+1)
	prev := 0
	for _, b := range bounds {
		if b > prev {
			blocks = append(blocks, text[prev:b])
		}
		prev = b
	}
	return append(blocks, text[prev:])
}

func (p *Parser) textBlocks(document string) []FlightRecord {
	var flights []FlightRecord
	for _, block := range splitOnIDs(extract.PlainText(document)) {
		block = strings.TrimSpace(block)
		if len(block) < minBlockLength {
			continue
		}
		if flight, ok := textBlock(block); ok {
			flights = append(flights, flight)
		}
	}
	return flights
}

// textBlock reads one "[id] Flight <date> <time> ..." block. Both the id
// and the header are required.
func textBlock(block string) (FlightRecord, bool) {
	id, ok := extract.BracketID(block)
	if !ok {
		return FlightRecord{}, false
	}
	date, clock, ok := extract.FlightHeader(block)
	if !ok {
		return FlightRecord{}, false
	}
	duration, ok := extract.Duration(block)
	if !ok {
		duration = extract.ZeroDuration
	}
	purpose := extract.Purpose(block)

	return FlightRecord{
		ID:       id,
		Date:     date + " " + clock,
		Aircraft: extract.Aircraft(block),
		Duration: duration,
		Location: extract.Location(block),
		Pilot:    extract.Pilot(block),
		Purpose:  purpose,
		Notes:    fmt.Sprintf("Flight %s - %s", id, purpose),
		RawData:  extract.Truncate(block, rawDataLimit),
	}, true
}

var (
	detailIDRegex = regexp.MustCompile(`(?i)id=([A-F0-9\-]{8,})`)
	usDayRegex    = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`)
)

const flightLinkSelector = `a[href*="flightDetail.php"]`

// elements builds records from the row or container of every flight detail
// link, looking around "[id]" in the whole page for whatever the container
// does not show.
func (p *Parser) elements(dom *goquery.Document, document string) []FlightRecord {
	seen := map[string]bool{}
	var flights []FlightRecord
	dom.Find(flightLinkSelector).Each(func(i int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if seen[href] {
			return
		}
		seen[href] = true

		container := link.Closest("tr")
		if container.Length() == 0 {
			container = link.Parent()
		}
		inner, err := container.Html()
		if err != nil {
			return
		}
		text := extract.CellText(inner)
		if len(text) < 10 {
			return
		}
		if flight, ok := p.element(text, href, document, i+1); ok {
			flights = append(flights, flight)
		}
	})
	return flights
}

func (p *Parser) element(text, href, document string, n int) (FlightRecord, bool) {
	bracketID, hasBracketID := extract.BracketID(text)
	clock, hasClock := extract.Clock(text)

	flight := FlightRecord{
		Aircraft: extract.Aircraft(text),
		Location: extract.Location(text),
		Pilot:    extract.Pilot(text),
		Purpose:  extract.Purpose(text),
		RawData:  extract.Truncate(text, rawDataLimit),
	}

	date := ""
	if day := usDayRegex.FindString(text); day != "" {
		if t, ok := extract.ParseComparableDate(day, time.UTC); ok {
			date = t.Format("2006-01-02")
		}
	}
	if date == "" {
		date, _ = extract.ParseFlightDate(text)
	}
	if date == "" {
		date = p.today()
		flight.DateEstimated = true
	}
	flight.Date = date
	if hasClock {
		flight.Date = date + " " + clock
	}

	duration, ok := extract.Duration(text)
	if !ok && hasBracketID {
		duration, ok = extract.DurationAfterID(document, bracketID, p.opts.IDWindowAfter)
	}
	if !ok {
		duration = extract.ZeroDuration
	}
	flight.Duration = duration

	if hasBracketID && (flight.Aircraft == extract.UnknownAircraft || flight.Location == extract.UnknownLocation) {
		if window, ok := extract.IDWindow(document, bracketID, p.opts.IDWindowBefore, p.opts.IDWindowAfter); ok {
			if flight.Aircraft == extract.UnknownAircraft {
				flight.Aircraft = extract.Aircraft(window)
			}
			if flight.Location == extract.UnknownLocation {
				flight.Location = extract.Location(window)
			}
		}
	}

	switch groups := detailIDRegex.FindStringSubmatch(href); {
	case hasBracketID:
		flight.ID = bracketID
	case groups != nil:
		flight.ID = groups[1]
	case hasClock:
		flight.ID = "flight_" + strings.ReplaceAll(clock, ":", "")
		flight.synthesized = true
	default:
		flight.ID = fmt.Sprintf("flight_%d", n)
		flight.synthesized = true
	}
	flight.Notes = fmt.Sprintf("%s - %s", flight.Purpose, flight.Aircraft)

	if !hasClock && flight.Aircraft == extract.UnknownAircraft {
		return FlightRecord{}, false
	}
	return flight, true
}
