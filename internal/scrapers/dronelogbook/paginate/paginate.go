// Package paginate walks the paginated flight list of an upstream that does
// not say how many pages it has and does not always honour the page
// parameter.
package paginate

import (
	"context"
	"dronelog-backend/internal/components/assert"
	"dronelog-backend/internal/components/telemetry"
	"dronelog-backend/internal/scrapers/dronelogbook/extract"
	"dronelog-backend/internal/scrapers/dronelogbook/parse"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	report_driver_fetch = "driver.fetch"
	report_driver_probe = "driver.probe"
	report_driver_run   = "driver.run"
)

var errEmptyBody = errors.New("empty response body")

// Fetcher retrieves one page of html relative to the upstream root.
type Fetcher interface {
	FetchPage(ctx context.Context, path string) (string, error)
}

// Parser turns one page into records and statistics, *parse.Parser
// implements it.
type Parser interface {
	Document(document string, r parse.Range) parse.Document
}

// Convention is the query parameter a page number is sent as.
type Convention string

const (
	ConventionPage   Convention = "page"
	ConventionP      Convention = "p"
	ConventionOffset Convention = "offset"
	ConventionStart  Convention = "start"
)

// alternates are tried in order when the upstream ignores ?page=.
var alternates = []Convention{ConventionP, ConventionOffset, ConventionStart}

func (c Convention) value(page, pageSize int) int {
	switch c {
	case ConventionOffset, ConventionStart:
		return (page - 1) * pageSize
	}
	return page
}

// PagePath adds the page parameter for c to endpoint, other query
// parameters are kept.
func PagePath(endpoint string, c Convention, page, pageSize int) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		return endpoint + sep + string(c) + "=" + strconv.Itoa(c.value(page, pageSize))
	}
	query := u.Query()
	query.Set(string(c), strconv.Itoa(c.value(page, pageSize)))
	u.RawQuery = query.Encode()
	return u.String()
}

type StopReason string

const (
	StopEndOfData        StopReason = "end_of_data"
	StopFetchFailed      StopReason = "fetch_failed"
	StopPaginationBroken StopReason = "pagination_broken"
	StopCutoffReached    StopReason = "cutoff_reached"
	StopThinYield        StopReason = "thin_yield"
	StopMaxPages         StopReason = "max_pages"
)

type Options struct {
	// MaxPages bounds the run no matter what the pages contain.
	MaxPages int
	// PageSize is the number of records per page assumed by the offset
	// style conventions.
	PageSize int
	// MinInRangeRatio stops the run after the first page when fewer than
	// this share of a page's records are within the cutoff.
	MinInRangeRatio float64
	// Location is the zone record dates are read in, nil means UTC.
	Location *time.Location
}

func DefaultOptions() Options {
	return Options{
		MaxPages:        10,
		PageSize:        20,
		MinInRangeRatio: 0.2,
	}
}

type Request struct {
	// Endpoint is the path of the first page.
	Endpoint string
	// Cutoff excludes records dated before it, the zero value disables
	// date filtering.
	Cutoff time.Time
	// MaxPages overrides Options.MaxPages when positive.
	MaxPages int
}

type PageSummary struct {
	Page      int       `json:"page"`
	Path      string    `json:"path"`
	Extracted int       `json:"extracted"`
	Accepted  int       `json:"accepted"`
	InRange   int       `json:"inRange"`
	Oldest    time.Time `json:"oldest"`
}

type Result struct {
	Flights []parse.FlightRecord `json:"flights"`
	// Stats are taken from the first page.
	Stats        *parse.DashboardStats `json:"stats"`
	PagesFetched int                   `json:"pagesFetched"`
	Probes       int                   `json:"probes"`
	StopReason   StopReason            `json:"stopReason"`
	Convention   Convention            `json:"convention"`
	// LimitedToFirstPage is set when the upstream ignored every paging
	// convention and only the first page could be read.
	LimitedToFirstPage bool          `json:"limitedToFirstPage,omitempty"`
	Pages              []PageSummary `json:"pages"`
	// Err is the fetch failure that ended a StopFetchFailed run.
	Err error `json:"-"`
}

// Driver fetches pages strictly one after another, each decision depends
// on the page before it.
type Driver struct {
	tel     telemetry.API
	fetcher Fetcher
	parser  Parser
	opts    Options
}

func NewDriver(tel telemetry.API, fetcher Fetcher, parser Parser, opts Options) *Driver {
	assert.NotNil(tel)
	assert.NotNil(fetcher)
	assert.NotNil(parser)

	defaults := DefaultOptions()
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaults.MaxPages
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaults.PageSize
	}
	if opts.MinInRangeRatio <= 0 {
		opts.MinInRangeRatio = defaults.MinInRangeRatio
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	return &Driver{
		tel:     telemetry.NewScopedAPI("paginate", tel),
		fetcher: fetcher,
		parser:  parser,
		opts:    opts,
	}
}

func (d *Driver) fetch(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, err := d.fetcher.FetchPage(ctx, path)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(body) == "" {
		return "", errEmptyBody
	}
	return body, nil
}

// Run aggregates records across pages until the data runs out, the
// upstream misbehaves, the cutoff is passed or MaxPages is reached. Fetch
// failures end the run but never fail it, whatever was read so far is
// returned.
func (d *Driver) Run(ctx context.Context, req Request) Result {
	res := Result{
		Flights:    []parse.FlightRecord{},
		Convention: ConventionPage,
	}
	run := newState(req.Cutoff, d.opts.Location)
	maxPages := d.opts.MaxPages
	if req.MaxPages > 0 {
		maxPages = req.MaxPages
	}

	for page := 1; page <= maxPages && res.StopReason == ""; page++ {
		path := req.Endpoint
		if page > 1 {
			path = PagePath(req.Endpoint, res.Convention, page, d.opts.PageSize)
		}

		body, err := d.fetch(ctx, path)
		if err != nil {
			d.tel.ReportWarning(report_driver_fetch, err, path, page)
			res.StopReason = StopFetchFailed
			res.Err = err
			break
		}
		res.PagesFetched++

		doc := d.parser.Document(body, parse.RangeAll)
		if page == 1 {
			res.Stats = doc.Stats
		}
		flights := doc.Flights
		if len(flights) == 0 {
			res.StopReason = StopEndOfData
			break
		}

		switch page {
		case 1:
			run.rememberFirstPage(flights)
		case 2:
			if !run.allOnFirstPage(flights) {
				break
			}
			alt, convention, altPath, ok := d.probe(ctx, &res, run, req.Endpoint, page)
			if !ok {
				res.LimitedToFirstPage = true
				res.StopReason = StopPaginationBroken
				continue
			}
			flights, path = alt, altPath
			res.Convention = convention
		}

		summary := run.take(flights, &res.Flights)
		summary.Page = page
		summary.Path = path
		res.Pages = append(res.Pages, summary)
		d.tel.ReportDebug(
			"page",
			page, path,
			"extracted", summary.Extracted,
			"accepted", summary.Accepted,
			"in range", summary.InRange,
		)

		if run.cutoff.IsZero() {
			continue
		}
		if summary.InRange == 0 && !summary.Oldest.IsZero() {
			res.StopReason = StopCutoffReached
			continue
		}
		if page > 1 && float64(summary.InRange) < float64(summary.Extracted)*d.opts.MinInRangeRatio {
			res.StopReason = StopThinYield
		}
	}
	if res.StopReason == "" {
		res.StopReason = StopMaxPages
	}

	d.tel.ReportDebug(
		report_driver_run,
		req.Endpoint,
		"flights", len(res.Flights),
		"pages", res.PagesFetched,
		"stop", res.StopReason,
	)
	return res
}

// probe retries page with each alternate convention until one returns
// records that were not on the first page.
func (d *Driver) probe(ctx context.Context, res *Result, run *state, endpoint string, page int) ([]parse.FlightRecord, Convention, string, bool) {
	for _, convention := range alternates {
		path := PagePath(endpoint, convention, page, d.opts.PageSize)
		res.Probes++

		body, err := d.fetch(ctx, path)
		if err != nil {
			d.tel.ReportDebug(report_driver_probe, path, err)
			continue
		}
		flights := d.parser.Document(body, parse.RangeAll).Flights
		if len(flights) > 0 && !run.allOnFirstPage(flights) {
			d.tel.ReportDebug(report_driver_probe, "working convention", convention)
			return flights, convention, path, true
		}
	}
	d.tel.ReportWarning(report_driver_probe, "upstream ignored every paging convention", endpoint)
	return nil, "", "", false
}

// state is owned by a single Run.
type state struct {
	cutoff    time.Time
	location  *time.Location
	seen      map[string]bool
	firstPage map[string]bool
}

func newState(cutoff time.Time, location *time.Location) *state {
	return &state{
		cutoff:    cutoff,
		location:  location,
		seen:      map[string]bool{},
		firstPage: map[string]bool{},
	}
}

func (s *state) rememberFirstPage(flights []parse.FlightRecord) {
	for _, f := range flights {
		s.firstPage[f.Key()] = true
	}
}

func (s *state) allOnFirstPage(flights []parse.FlightRecord) bool {
	for _, f := range flights {
		if !s.firstPage[f.Key()] {
			return false
		}
	}
	return true
}

// recordDate returns the comparable date of f, estimated dates are not
// real dates and are treated like unparseable ones.
func (s *state) recordDate(f parse.FlightRecord) (time.Time, bool) {
	if f.DateEstimated {
		return time.Time{}, false
	}
	return extract.ParseComparableDate(f.Date, s.location)
}

// take appends the unseen, in range records of one page to out. The in
// range count and oldest date describe the whole page, repeats included,
// since they decide whether later pages are worth fetching.
func (s *state) take(flights []parse.FlightRecord, out *[]parse.FlightRecord) PageSummary {
	summary := PageSummary{Extracted: len(flights)}
	for _, f := range flights {
		inRange := true
		if !s.cutoff.IsZero() {
			if date, ok := s.recordDate(f); ok {
				if summary.Oldest.IsZero() || date.Before(summary.Oldest) {
					summary.Oldest = date
				}
				inRange = !date.Before(s.cutoff)
			}
		}
		if inRange {
			summary.InRange++
		}

		key := f.Key()
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		if inRange {
			*out = append(*out, f)
			summary.Accepted++
		}
	}
	return summary
}
