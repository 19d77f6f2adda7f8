package dronelogbook

import (
	"context"
	"dronelog-backend/internal/scrapers/dronelogbook/extract"
	"dronelog-backend/internal/scrapers/dronelogbook/paginate"
	"dronelog-backend/internal/scrapers/dronelogbook/parse"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	report_client_dashboard      = "client.dashboard"
	report_client_flights        = "client.flights"
	report_client_flight_history = "client.flight-history"
	report_client_statistics     = "client.statistics"
)

var (
	dashboardStatsRegex = regexp.MustCompile(`(?i)total.{0,20}flights?|flights?.{0,20}total`)
	dashboardChartRegex = regexp.MustCompile(`CanvasJS\.Chart|chartContainer1|dataPoints`)
)

// looksLikeDashboard reports whether a filtered dashboard response carries
// either the statistics or the chart, one of them is enough.
func looksLikeDashboard(document string) bool {
	return dashboardStatsRegex.MatchString(document) || dashboardChartRegex.MatchString(document)
}

func (c *Client) getDashboard(ctx context.Context) (string, error) {
	res, err := c.get(ctx, c.cfg.Paths.Dashboard)
	if err != nil {
		return "", err
	}
	if res.StatusCode() >= 300 {
		return "", StatusError{Path: c.cfg.Paths.Dashboard, Status: res.StatusCode()}
	}
	return res.String(), nil
}

// postDashboard asks for the dashboard filtered to r, "" means the upstream
// did not answer with a usable page.
func (c *Client) postDashboard(ctx context.Context, r parse.Range) (string, error) {
	form := map[string]string{
		"action":               "menu",
		"flightBlock":          "",
		"viewUserOnlyFigures":  "",
		"viewTotalYearFigures": "",
		"flightFilterPeriod":   r.FilterPeriod(),
	}
	if csrf := c.csrfCookie(); csrf != "" {
		form[extract.CSRFCookieName] = csrf
	} else {
		c.tel.ReportDebug(report_client_dashboard, "no csrf cookie, posting without one")
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Referer", c.AbsoluteURL(c.cfg.Paths.Dashboard)).
		SetHeader("Origin", strings.TrimSuffix(c.AbsoluteURL("/"), "/")).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetFormData(form).
		Post(c.cfg.Paths.Dashboard)
	if err != nil {
		return "", err
	}
	if isLoginRedirect(res) {
		return "", ErrNotAuthenticated
	}
	body := res.String()
	if res.StatusCode() >= 300 || !looksLikeDashboard(body) {
		return "", nil
	}
	return body, nil
}

// Dashboard returns the dashboard html for r. Filtered ranges are posted
// through the dashboard menu form and fall back to the unfiltered page when
// that does not produce one.
func (c *Client) Dashboard(ctx context.Context, r parse.Range) (string, error) {
	if r != parse.RangeAll {
		body, err := c.postDashboard(ctx, r)
		if errors.Is(err, ErrNotAuthenticated) {
			return "", err
		}
		if err != nil {
			c.tel.ReportWarning(report_client_dashboard, fmt.Errorf("post range %d: %w", r, err))
		}
		if body != "" {
			return body, nil
		}
		c.tel.ReportDebug(report_client_dashboard, "filtered dashboard unusable, falling back to GET", int(r))
	}

	body, err := c.getDashboard(ctx)
	if err != nil && !errors.Is(err, ErrNotAuthenticated) {
		c.tel.ReportBroken(report_client_dashboard, err)
	}
	return body, err
}

type FlightsResult struct {
	Flights []parse.FlightRecord  `json:"flights"`
	Stats   *parse.DashboardStats `json:"stats"`
	Total   int                   `json:"total"`
	Page    int                   `json:"page"`
	Message string                `json:"message"`
}

// Flights reads the flights and statistics shown on the dashboard for r.
// It fails with ErrNoData when the page has neither flights nor a complete
// set of statistics.
func (c *Client) Flights(ctx context.Context, r parse.Range) (FlightsResult, error) {
	body, err := c.Dashboard(ctx, r)
	if err != nil {
		return FlightsResult{}, err
	}

	doc := c.parser.Document(body, r)
	complete := doc.Stats != nil && doc.Stats.Complete()
	if len(doc.Flights) == 0 && !complete {
		c.tel.ReportWarning(report_client_flights, ErrNoData, int(r), len(body))
		return FlightsResult{}, ErrNoData
	}

	result := FlightsResult{
		Flights: doc.Flights,
		Stats:   doc.Stats,
		Total:   len(doc.Flights),
		Page:    1,
		Message: "Flight data from dashboard",
	}
	if doc.Stats != nil && doc.Stats.TotalFlights != nil && *doc.Stats.TotalFlights > 0 {
		result.Total = *doc.Stats.TotalFlights
	}
	if complete {
		result.Message = "Dashboard statistics"
	}
	return result, nil
}

// historyCutoff is the start of the day days ago, 0 days means no cutoff.
func historyCutoff(now time.Time, days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	day := now.UTC().AddDate(0, 0, -days)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

// FlightHistory walks the paginated flight list back to days ago,
// maxPages <= 0 uses the configured limit. It never fails, a run that could
// not read anything comes back empty with the reason it stopped.
func (c *Client) FlightHistory(ctx context.Context, days, maxPages int) paginate.Result {
	res := c.driver.Run(ctx, paginate.Request{
		Endpoint: c.cfg.Paths.FlightList,
		Cutoff:   historyCutoff(c.time.Now(), days),
		MaxPages: maxPages,
	})
	c.tel.ReportCount(report_client_flight_history, int64(len(res.Flights)))
	return res
}

type Statistics struct {
	Data   map[string]any `json:"data"`
	Source string         `json:"source"`
}

var (
	// statisticsContainers count only when they hold something.
	statisticsContainers = []string{"statistics", "stats", "summary"}
	statisticsCounters   = []string{"totalFlights", "total_flights", "flightCount", "flight_count"}
)

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	}
	return true
}

// isStatistics reports whether a decoded json object carries any of the
// keys a statistics endpoint would answer with.
func isStatistics(data map[string]any) bool {
	for _, key := range statisticsContainers {
		if truthy(data[key]) {
			return true
		}
	}
	for _, key := range statisticsCounters {
		if _, ok := data[key]; ok {
			return true
		}
	}
	return false
}

func isAjaxEndpoint(endpoint string) bool {
	return strings.Contains(strings.ToLower(endpoint), "ajax")
}

func (c *Client) probeStatistics(ctx context.Context, endpoint string, periodDays int) (string, int, error) {
	if isAjaxEndpoint(endpoint) {
		action := "getSummary"
		if strings.Contains(endpoint, "getStats") {
			action = "getStats"
		}
		now := c.time.Now().UTC()
		res, err := c.http.R().
			SetContext(ctx).
			SetHeader("X-Requested-With", "XMLHttpRequest").
			SetFormData(map[string]string{
				"action": action,
				"period": strconv.Itoa(periodDays),
				"days":   strconv.Itoa(periodDays),
				"from":   now.AddDate(0, 0, -periodDays).Format(time.DateOnly),
				"to":     now.Format(time.DateOnly),
			}).
			Post(strings.SplitN(endpoint, "?", 2)[0])
		if err == nil {
			return res.String(), res.StatusCode(), nil
		}
		c.tel.ReportDebug(report_client_statistics, "post failed, retrying as GET", endpoint, err)
		res, err = c.http.R().SetContext(ctx).Get(endpoint)
		if err != nil {
			return "", 0, err
		}
		return res.String(), res.StatusCode(), nil
	}

	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	res, err := c.http.R().
		SetContext(ctx).
		Get(endpoint + sep + "days=" + strconv.Itoa(periodDays))
	if err != nil {
		return "", 0, err
	}
	return res.String(), res.StatusCode(), nil
}

// Statistics probes the candidate json statistics endpoints in order and
// returns the first one that answers with something that looks like
// statistics.
func (c *Client) Statistics(ctx context.Context, periodDays int) (Statistics, error) {
	if periodDays <= 0 {
		periodDays = 7
	}
	for _, endpoint := range c.cfg.StatisticsEndpoints {
		if err := ctx.Err(); err != nil {
			return Statistics{}, err
		}

		body, status, err := c.probeStatistics(ctx, endpoint, periodDays)
		if err != nil {
			c.tel.ReportDebug(report_client_statistics, "probe failed", endpoint, err)
			continue
		}
		if status < 200 || status >= 300 || body == "" {
			continue
		}

		var data map[string]any
		if err := json.Unmarshal([]byte(body), &data); err != nil {
			continue
		}
		if isStatistics(data) {
			return Statistics{Data: data, Source: endpoint}, nil
		}
	}
	c.tel.ReportWarning(report_client_statistics, ErrNoData, periodDays)
	return Statistics{}, ErrNoData
}
