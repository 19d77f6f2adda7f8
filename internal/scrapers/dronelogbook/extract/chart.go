package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// ChartPoint is one column of a dashboard chart series.
type ChartPoint struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Tooltip string  `json:"tooltip,omitempty"`
}

// FlightCountMarker separates the flying time series from the flight count
// series in the inline chart script.
const FlightCountMarker = "Flight #"

var (
	chartDataBlockRegex   = regexp.MustCompile(`(?s)data:\s*\[[^\]]*\{`)
	flyingTimePointRegex  = regexp.MustCompile(`\{\s*label:\s*"([^"]+)"\s*,\s*y:\s*([\d.]+)\s*,\s*yTooltipValue:\s*"([^"]+)"\s*\}`)
	flightCountPointRegex = regexp.MustCompile(`\{\s*label:\s*"([^"]+)"\s*,\s*y:\s*([\d.]+)\s*(?:,\s*yTooltipValue:\s*([\d.]+)\s*)?\}`)
)

// dedupeByLabel keeps the first position of every label but lets a later
// non-zero value replace an earlier zero.
type dedupeByLabel struct {
	order []string
	byKey map[string]ChartPoint
}

func (d *dedupeByLabel) add(p ChartPoint) {
	if d.byKey == nil {
		d.byKey = map[string]ChartPoint{}
	}
	existing, seen := d.byKey[p.Label]
	if !seen {
		d.order = append(d.order, p.Label)
		d.byKey[p.Label] = p
		return
	}
	if existing.Value == 0 && p.Value > 0 {
		d.byKey[p.Label] = p
	}
}

func (d *dedupeByLabel) points() []ChartPoint {
	out := make([]ChartPoint, 0, len(d.order))
	for _, label := range d.order {
		out = append(out, d.byKey[label])
	}
	return out
}

// Chart extracts the flying time and flight count series from the inline
// chart script. Flight count points are only read after FlightCountMarker.
func Chart(document string) (flyingTime []ChartPoint, flightCounts []ChartPoint) {
	if !chartDataBlockRegex.MatchString(document) {
		return nil, nil
	}

	var times dedupeByLabel
	for _, groups := range flyingTimePointRegex.FindAllStringSubmatch(document, -1) {
		value, err := strconv.ParseFloat(groups[2], 64)
		if err != nil {
			continue
		}
		times.add(ChartPoint{Label: groups[1], Value: value, Tooltip: groups[3]})
	}
	flyingTime = times.points()

	idx := strings.Index(document, FlightCountMarker)
	if idx < 0 {
		return flyingTime, nil
	}
	var counts dedupeByLabel
	for _, groups := range flightCountPointRegex.FindAllStringSubmatch(document[idx:], -1) {
		value, err := strconv.ParseFloat(groups[2], 64)
		if err != nil {
			continue
		}
		counts.add(ChartPoint{Label: groups[1], Value: float64(int64(value))})
	}
	return flyingTime, counts.points()
}
