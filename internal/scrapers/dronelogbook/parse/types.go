// Package parse turns dronelogbook.com pages into flight records, dashboard
// statistics and drone listings.
package parse

import (
	"dronelog-backend/internal/scrapers/dronelogbook/extract"
	"fmt"
)

// FlightRecord is one logged flight as read from a single page.
type FlightRecord struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	Aircraft string `json:"aircraft"`
	Duration string `json:"duration"`
	Location string `json:"location"`
	Pilot    string `json:"pilot"`
	Purpose  string `json:"purpose"`
	Notes    string `json:"notes"`
	RawData  string `json:"rawData"`
	// DateEstimated is set when no date could be read and Date holds the
	// day the page was parsed instead.
	DateEstimated bool `json:"dateEstimated,omitempty"`

	synthesized bool
}

// Synthesized reports whether the id was generated locally rather than read
// from the page.
func (f FlightRecord) Synthesized() bool {
	return f.synthesized
}

// Key identifies a record across pages of the same run. Locally generated
// ids repeat on every page so they fall back to date and aircraft.
func (f FlightRecord) Key() string {
	if f.ID != "" && !f.synthesized {
		return f.ID
	}
	return f.Date + "_" + f.Aircraft
}

// ChartSeries holds the two dashboard chart series.
type ChartSeries struct {
	FlyingTime   []FlyingTimePoint  `json:"flyingTime"`
	FlightCounts []FlightCountPoint `json:"flightCounts"`
}

type FlyingTimePoint struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Tooltip string  `json:"tooltip,omitempty"`
}

type FlightCountPoint struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// DashboardStats is a best effort snapshot of the dashboard counters. Nil
// fields were not found on the page.
type DashboardStats struct {
	FlyingTime        *string        `json:"flyingTime,omitempty"`
	TotalFlights      *int           `json:"totalFlights,omitempty"`
	TotalDistance     *string        `json:"totalDistance,omitempty"`
	TotalAircraft     *int           `json:"totalAircraft,omitempty"`
	TotalProjects     *int           `json:"totalProjects,omitempty"`
	FlightsLast7Days  *int           `json:"flightsLast7Days,omitempty"`
	FlightsLast30Days *int           `json:"flightsLast30Days,omitempty"`
	FlightsLast90Days *int           `json:"flightsLast90Days,omitempty"`
	PurposeBreakdown  map[string]int `json:"purposeBreakdown,omitempty"`
	AircraftBreakdown map[string]int `json:"aircraftBreakdown,omitempty"`
	ChartData         *ChartSeries   `json:"chartData,omitempty"`
}

// RangeFlights returns the range scoped flight count field for r, nil for
// the all-time range.
func (s *DashboardStats) RangeFlights(r Range) **int {
	switch r {
	case Range7:
		return &s.FlightsLast7Days
	case Range30:
		return &s.FlightsLast30Days
	case Range90:
		return &s.FlightsLast90Days
	}
	return nil
}

// Complete reports whether the top bar was fully read.
func (s *DashboardStats) Complete() bool {
	return s != nil && s.TotalFlights != nil && s.FlyingTime != nil && s.TotalDistance != nil
}

// Empty reports whether nothing at all was found.
func (s *DashboardStats) Empty() bool {
	if s == nil {
		return true
	}
	return s.FlyingTime == nil && s.TotalFlights == nil && s.TotalDistance == nil &&
		s.TotalAircraft == nil && s.TotalProjects == nil &&
		s.FlightsLast7Days == nil && s.FlightsLast30Days == nil && s.FlightsLast90Days == nil &&
		len(s.PurposeBreakdown) == 0 && len(s.AircraftBreakdown) == 0 && s.ChartData == nil
}

// Range is the dashboard time filter in days, 0 means all time.
type Range int

const (
	RangeAll Range = 0
	Range7   Range = 7
	Range30  Range = 30
	Range90  Range = 90
)

func ParseRange(days int) (Range, error) {
	switch Range(days) {
	case RangeAll, Range7, Range30, Range90:
		return Range(days), nil
	}
	return RangeAll, fmt.Errorf("unsupported range %d, expected one of 0, 7, 30, 90", days)
}

// FilterPeriod is the value the dashboard form posts as flightFilterPeriod.
func (r Range) FilterPeriod() string {
	switch r {
	case Range7:
		return "SHORT"
	case Range30:
		return "MEDIUM"
	case Range90:
		return "LONG"
	}
	return ""
}

// Document is everything read from one dashboard or flight list page.
type Document struct {
	Flights []FlightRecord  `json:"flights"`
	Stats   *DashboardStats `json:"stats"`
}

// Drone is an aircraft in the pilot's inventory.
type Drone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// DroneFlight is one entry of a drone's flight history.
type DroneFlight struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Duration string `json:"duration"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Pilot    string `json:"pilot"`
	URL      string `json:"url"`
}

type DroneFlightPage struct {
	Flights     []DroneFlight `json:"flights"`
	HasNextPage bool          `json:"hasNextPage"`
}

func chartSeries(flyingTime, flightCounts []extract.ChartPoint) *ChartSeries {
	if len(flyingTime) == 0 && len(flightCounts) == 0 {
		return nil
	}
	series := &ChartSeries{
		FlyingTime:   make([]FlyingTimePoint, 0, len(flyingTime)),
		FlightCounts: make([]FlightCountPoint, 0, len(flightCounts)),
	}
	for _, p := range flyingTime {
		series.FlyingTime = append(series.FlyingTime, FlyingTimePoint{
			Label:   p.Label,
			Value:   p.Value,
			Tooltip: p.Tooltip,
		})
	}
	for _, p := range flightCounts {
		series.FlightCounts = append(series.FlightCounts, FlightCountPoint{
			Label: p.Label,
			Value: int(p.Value),
		})
	}
	return series
}
