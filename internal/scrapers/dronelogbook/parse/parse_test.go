package parse

import (
	"context"
	"dronelog-backend/internal/components/chrono"
	"dronelog-backend/internal/components/telemetry"
	"dronelog-backend/internal/scrapers/dronelogbook/extract"
	_ "embed"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/dashboard_blocks.html
var dashboardBlocks string

//go:embed testdata/flight_table.html
var flightTable string

//go:embed testdata/inventory.html
var inventoryPage string

//go:embed testdata/drone_flights.html
var droneFlightsPage string

var today = time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)

func newTestParser(t *testing.T) *Parser {
	return NewParser(telemetry.NewTestingAPI(t), chrono.NewFakeTime(today), DefaultOptions())
}

func TestFlightsFromTableRows(t *testing.T) {
	flights := newTestParser(t).Flights(flightTable)

	expected := []FlightRecord{
		{
			ID:          "flight_1",
			Date:        "2025-10-24",
			Aircraft:    "AA-TRT-0028",
			Duration:    "00:03:27",
			Location:    "Sonnadenahalli, Hosakote taluk",
			Pilot:       "Flight Dev",
			Purpose:     "Test Flight",
			Notes:       "Flight logged on 10/24/2025 01:14 PM",
			RawData:     "10/24/2025 01:14 PM | AA-TRT-0028 | 00:03:27 | Sonnadenahalli, Hosakote taluk | Flight Dev | Test Flight | open",
			synthesized: true,
		},
		{
			ID:          "flight_2",
			Date:        "2025-10-20",
			Aircraft:    "Mavic3",
			Duration:    "00:10:00",
			Location:    "Austin, Texas",
			Pilot:       "Jane Doe",
			Purpose:     "Survey",
			Notes:       "Flight logged on 10/20/2025 09:05 AM",
			RawData:     "10/20/2025 09:05 AM | Unknown Aircraft | 00:10:00 | Austin, Texas | Jane Doe | Survey | Mavic3 battery 2",
			synthesized: true,
		},
		{
			ID:          "flight_3",
			Date:        "2025-10-18",
			Aircraft:    "Unknown Aircraft",
			Duration:    "00:00:00",
			Location:    "Unknown Location",
			Pilot:       "Flight Dev",
			Purpose:     "Test Flight",
			Notes:       "Flight logged on 10/18/2025 10:00 AM",
			RawData:     "10/18/2025 10:00 AM |  |  |  |  | ",
			synthesized: true,
		},
	}
	diff := cmp.Diff(expected, flights, cmp.AllowUnexported(FlightRecord{}))
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestTableRowWithUnknownAircraftAndNoDuration(t *testing.T) {
	document := `<table>
		<tr><th>Date</th><th>Aircraft</th><th>Duration</th><th>Location</th><th>Pilot</th><th>Purpose</th></tr>
		<tr><td>10/24/2025 01:14 PM</td><td>Unknown Aircraft</td><td></td><td>Austin, Texas</td><td>Jane Doe</td><td>Survey</td></tr>
	</table>`

	flights := newTestParser(t).Flights(document)
	require.Len(t, flights, 1)
	require.Equal(t, "2025-10-24", flights[0].Date)
	require.Equal(t, extract.UnknownAircraft, flights[0].Aircraft)
	require.Equal(t, extract.ZeroDuration, flights[0].Duration)
	require.Equal(t, "Austin, Texas", flights[0].Location)
	require.Equal(t, "Jane Doe", flights[0].Pilot)
	require.Equal(t, "Survey", flights[0].Purpose)
}

func TestFlightsFromTextBlocks(t *testing.T) {
	flights := newTestParser(t).Flights(dashboardBlocks)

	expected := []FlightRecord{
		{
			ID:       "1368",
			Date:     "2025-10-24 13:14:36",
			Aircraft: "AA-TRT-0028",
			Duration: "00:03:27",
			Location: "Sonnadenahalli, Hosakote taluk",
			Pilot:    "Flight Dev",
			Purpose:  "Test Flight",
			Notes:    "Flight 1368 - Test Flight",
			RawData:  "[1368] Flight 2025-10-24 13:14:36 00:03:27 2025-10-24 13:14:36 Pilot: Flight Dev AA-TRT-0028 / Test Flight Sonnadenahalli, Hosakote taluk",
		},
		{
			ID:       "1369",
			Date:     "2025-10-20 09:05:10",
			Aircraft: "DJI_Mini3",
			Duration: "00:12:00",
			Location: "Austin, Texas",
			Pilot:    "Jane Doe",
			Purpose:  "Survey Run",
			Notes:    "Flight 1369 - Survey Run",
			RawData:  "[1369] Flight 2025-10-20 09:05:10 00:12:00 2025-10-20 09:05:10 Pilot: Jane Doe DJI_Mini3 / Survey Run Austin, Texas",
		},
	}
	diff := cmp.Diff(expected, flights, cmp.AllowUnexported(FlightRecord{}))
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestTextBlockRequiresIDAndHeader(t *testing.T) {
	parser := newTestParser(t)

	require.Empty(t, parser.Flights(`<p>Flight 2025-10-24 13:14:36 00:03:27 2025-10-24 13:14:36 AA-TRT-0028</p>`))
	require.Empty(t, parser.Flights(`<p>[1368] 00:03:27 2025-10-24 13:14:36 AA-TRT-0028 Austin, Texas</p>`))
}

func TestFlightsFromDetailLinks(t *testing.T) {
	document := `<div class="list">
		<div class="row"><a href="/flight/flightDetail.php?id=C0FFEE00-1111-2222-3333-444455556666">Details</a> 13:14:36 on 10/24/2025 DJI_Mini3</div>
		<div class="row"><a href="/flight/flightDetail.php?id=nothex">open</a> Phantom4 12:00:00</div>
		<div class="row"><a href="/flight/flightDetail.php?id=D0000000-0000">x</a> no data</div>
	</div>`

	flights := newTestParser(t).Flights(document)

	expected := []FlightRecord{
		{
			ID:       "C0FFEE00-1111-2222-3333-444455556666",
			Date:     "2025-10-24 13:14:36",
			Aircraft: "DJI_Mini3",
			Duration: "00:00:00",
			Location: "Unknown Location",
			Pilot:    "Flight Dev",
			Purpose:  "Test Flight",
			Notes:    "Test Flight - DJI_Mini3",
			RawData:  "Details 13:14:36 on 10/24/2025 DJI_Mini3",
		},
		{
			ID:            "flight_120000",
			Date:          "2026-01-02 12:00:00",
			Aircraft:      "Phantom4",
			Duration:      "00:00:00",
			Location:      "Unknown Location",
			Pilot:         "Flight Dev",
			Purpose:       "Test Flight",
			Notes:         "Test Flight - Phantom4",
			RawData:       "open Phantom4 12:00:00",
			DateEstimated: true,
			synthesized:   true,
		},
	}
	diff := cmp.Diff(expected, flights, cmp.AllowUnexported(FlightRecord{}))
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestFlightRecordKey(t *testing.T) {
	require.Equal(t, "1368", FlightRecord{ID: "1368", Date: "2025-10-24", Aircraft: "AA-TRT-0028"}.Key())

	synthesized := FlightRecord{ID: "flight_1", Date: "2025-10-24", Aircraft: "AA-TRT-0028", synthesized: true}
	require.Equal(t, "2025-10-24_AA-TRT-0028", synthesized.Key())
	require.True(t, synthesized.Synthesized())

	require.Equal(t, "2025-10-24_Mavic3", FlightRecord{Date: "2025-10-24", Aircraft: "Mavic3"}.Key())
}

func TestDashboard(t *testing.T) {
	stats := Dashboard(dashboardBlocks, Range7)

	expected := &DashboardStats{
		FlyingTime:       strPtr("12:34:56"),
		TotalFlights:     intPtr(163),
		TotalDistance:    strPtr("45.6 km"),
		TotalAircraft:    intPtr(3),
		TotalProjects:    intPtr(4),
		FlightsLast7Days: intPtr(12),
		PurposeBreakdown: map[string]int{
			"Test Flight":      10,
			"Survey & Mapping": 2,
		},
		AircraftBreakdown: map[string]int{
			"AA-TRT-0028": 12,
		},
		ChartData: &ChartSeries{
			FlyingTime: []FlyingTimePoint{
				{Label: "Sep 2025", Value: 0, Tooltip: "0:00:00"},
				{Label: "Oct 2025", Value: 0.5, Tooltip: "0:30:00"},
			},
			FlightCounts: []FlightCountPoint{
				{Label: "Sep 2025", Value: 0},
				{Label: "Oct 2025", Value: 12},
			},
		},
	}
	diff := cmp.Diff(expected, stats)
	if diff != "" {
		t.Fatal(diff)
	}
	require.True(t, stats.Complete())
}

func TestDashboardRangeFields(t *testing.T) {
	allTime := Dashboard(dashboardBlocks, RangeAll)
	require.Nil(t, allTime.FlightsLast7Days)
	require.Nil(t, allTime.FlightsLast30Days)
	require.Nil(t, allTime.FlightsLast90Days)

	for _, r := range []Range{Range7, Range30, Range90} {
		stats := Dashboard(dashboardBlocks, r)
		require.Equal(t, *allTime.TotalFlights, *stats.TotalFlights, "range %d", r)

		set := 0
		for _, field := range []*int{stats.FlightsLast7Days, stats.FlightsLast30Days, stats.FlightsLast90Days} {
			if field != nil {
				set++
			}
		}
		require.Equal(t, 1, set, "range %d", r)
		require.Equal(t, 12, **stats.RangeFlights(r))
	}
}

func TestDashboardLastResortTotals(t *testing.T) {
	document := `<script>
		var flightDataPoint0 = new DataPoint("Mapping", 3, 40);
		var droneDataPoint0 = new DataPoint("DJI Mini 3", 40, 40);
	</script>
	<div class="hover-sub-title">Total 39 Flights</div>`

	stats := Dashboard(document, Range30)
	require.Equal(t, 40, *stats.TotalFlights)
	require.Equal(t, 40, *stats.FlightsLast30Days)
	// without a top bar the all-time figure still must not depend on the range
	require.Equal(t, *Dashboard(document, RangeAll).TotalFlights, *stats.TotalFlights)
	require.Equal(t, map[string]int{"Mapping": 3}, stats.PurposeBreakdown)
	require.Nil(t, stats.AircraftBreakdown)
	require.False(t, stats.Complete())

	stats = Dashboard(`<div class="hover-sub-title">Total 39 Flights</div>`, Range90)
	require.Equal(t, 39, *stats.TotalFlights)
	require.Equal(t, 39, *stats.FlightsLast90Days)

	stats = Dashboard(`<p>Last 7 days: 5 flights</p>`, Range7)
	require.Nil(t, stats.TotalFlights)
	require.Equal(t, 5, *stats.FlightsLast7Days)

	stats = Dashboard(`<p>Last 7 days: 5 flights</p>`, Range30)
	require.True(t, stats.Empty())
}

func TestDocument(t *testing.T) {
	parser := newTestParser(t)

	doc := parser.Document(dashboardBlocks, RangeAll)
	require.Len(t, doc.Flights, 2)
	require.NotNil(t, doc.Stats)
	require.NotNil(t, doc.Stats.ChartData)

	doc = parser.Document("<html><body>maintenance</body></html>", RangeAll)
	require.Empty(t, doc.Flights)
	require.Nil(t, doc.Stats)
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange(30)
	require.NoError(t, err)
	require.Equal(t, Range30, r)
	require.Equal(t, "MEDIUM", r.FilterPeriod())
	require.Equal(t, "SHORT", Range7.FilterPeriod())
	require.Equal(t, "LONG", Range90.FilterPeriod())
	require.Equal(t, "", RangeAll.FilterPeriod())

	_, err = ParseRange(14)
	require.Error(t, err)
}

func TestDrones(t *testing.T) {
	drones := Drones(context.Background(), inventoryPage)
	require.Equal(t, []Drone{
		{
			ID:   "3F2A9C1E-1111-2222-3333-444455556666",
			Name: "DJI Mini 3",
			URL:  "/inventory/droneDetail.php?id=3F2A9C1E-1111-2222-3333-444455556666",
		},
		{
			ID:   "abcdef01-0000-0000-0000-000000000000",
			Name: "Drone abcdef01",
			URL:  "/inventory/droneDetail.php?id=abcdef01-0000-0000-0000-000000000000",
		},
	}, drones)

	require.Empty(t, Drones(context.Background(), "<html></html>"))
}

func TestDroneFlights(t *testing.T) {
	page := DroneFlights(droneFlightsPage)
	require.Equal(t, DroneFlightPage{
		Flights: []DroneFlight{
			{
				ID:       "AAAA1111-2222-3333-4444-555566667777",
				Name:     "Flight 2025-10-24 13:14:36",
				Duration: "00:03:27",
				Date:     "2025-10-24",
				Time:     "13:14:36",
				Pilot:    "Flight Dev",
				URL:      "/flight/flightDetail.php?id=AAAA1111-2222-3333-4444-555566667777",
			},
			{
				ID:       "BBBB1111-2222-3333-4444-555566667777",
				Name:     "Flight 2025-10-20 09:05:10",
				Duration: "00:12:00",
				Date:     "2025-10-20",
				Time:     "09:05:10",
				Pilot:    "Jane Doe",
				URL:      "/flight/flightDetail.php?id=BBBB1111-2222-3333-4444-555566667777",
			},
		},
		HasNextPage: true,
	}, page)

	page = DroneFlights(`<html><body><a href="#">Next</a></body></html>`)
	require.Empty(t, page.Flights)
	require.False(t, page.HasNextPage)

	page = DroneFlights(`<div><a href="/flight/flightDetail.php?id=EEEE0000-1111">open</a></div>`)
	require.Len(t, page.Flights, 1)
	require.Equal(t, "Flight EEEE0000", page.Flights[0].Name)
	require.False(t, page.HasNextPage)
}

func TestHasNextPage(t *testing.T) {
	cases := []struct {
		name     string
		document string
		expected bool
	}{
		{name: "pager script", document: `<a href="javascript:flightPagination(3)">3</a>`, expected: true},
		{name: "next link", document: `<ul class="pagination"><li><a href="#">Next &raquo;</a></li></ul>`, expected: true},
		{name: "next button", document: `<button type="button"> next page </button>`, expected: true},
		{name: "prose only", document: `<p>Next inspection due in 30 days, see the next page of the manual.</p>`, expected: false},
		{name: "other link", document: `<a href="/help">Nextcloud sync</a>`, expected: false},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			dom, err := goquery.NewDocumentFromReader(strings.NewReader(test.document))
			require.NoError(t, err)
			require.Equal(t, test.expected, hasNextPage(dom))
		})
	}
}
