package parse

import (
	"dronelog-backend/internal/scrapers/dronelogbook/extract"
)

func intPtr(n int) *int {
	return &n
}

func strPtr(s string) *string {
	return &s
}

// Dashboard reads the dashboard counters for the requested range.
//
// TotalFlights is always the all-time figure and never depends on r, the
// range scoped field for r is only filled from range filtered widgets or the
// script data that backs them.
func Dashboard(document string, r Range) *DashboardStats {
	stats := &DashboardStats{}

	if v, ok := extract.FlyingTime(document); ok {
		stats.FlyingTime = strPtr(v)
	}
	if v, ok := extract.TotalDistance(document); ok {
		stats.TotalDistance = strPtr(v)
	}
	if n, ok := extract.TopBarFlights(document); ok {
		stats.TotalFlights = intPtr(n)
	}

	rangeField := stats.RangeFlights(r)
	if rangeField != nil && *rangeField == nil {
		if n, ok := extract.CircleFlights(document); ok {
			*rangeField = intPtr(n)
		}
	}
	if n, ok := extract.CircleDrones(document); ok {
		stats.TotalAircraft = intPtr(n)
	}
	if n, ok := extract.Projects(document); ok {
		stats.TotalProjects = intPtr(n)
	}

	points := extract.DataPoints(document)
	stats.PurposeBreakdown = extract.Breakdown(document, extract.PurposeBreakdown)
	if stats.PurposeBreakdown == nil {
		stats.PurposeBreakdown = genericBreakdown(points)
	}
	stats.AircraftBreakdown = extract.Breakdown(document, extract.AircraftBreakdown)

	// last resort totals
	pointsTotal, hasPointsTotal := firstTotal(points)
	hoverTotal, hasHoverTotal := extract.HoverSubtitleFlights(document)
	fill := func(field **int) {
		switch {
		case *field != nil:
		case hasPointsTotal:
			*field = intPtr(pointsTotal)
		case hasHoverTotal:
			*field = intPtr(hoverTotal)
		}
	}
	// same document, same all-time figure for every range
	fill(&stats.TotalFlights)
	if rangeField != nil {
		fill(rangeField)
		if *rangeField == nil && r == Range7 {
			if n, ok := extract.PeriodFlights7(document); ok {
				*rangeField = intPtr(n)
			}
		}
	}

	stats.ChartData = chartSeries(extract.Chart(document))
	return stats
}

// genericBreakdown collects the DataPoint declarations that are not drone
// models, used when the page does not name its purpose variables.
func genericBreakdown(points []extract.DataPoint) map[string]int {
	var out map[string]int
	for _, point := range points {
		if point.Count <= 0 || point.Kind() == extract.AircraftBreakdown {
			continue
		}
		if out == nil {
			out = map[string]int{}
		}
		out[point.Name] = point.Count
	}
	return out
}

func firstTotal(points []extract.DataPoint) (int, bool) {
	for _, point := range points {
		if point.Total > 0 {
			return point.Total, true
		}
	}
	return 0, false
}
