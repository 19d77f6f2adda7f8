package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	flyingTimeRegex    = regexp.MustCompile(`(?i)<div class="stat">\s*<p>Flying Time</p>\s*<strong>([^<]+)</strong>`)
	distanceRegex      = regexp.MustCompile(`(?i)<div class="stat">\s*<p>Total Travelled Distance</p>\s*<strong>([^<]+)</strong>`)
	statSectionRegex   = regexp.MustCompile(`(?is)<div class="stat"[^>]*>.*?</div>`)
	flightsLabelRegex  = regexp.MustCompile(`(?i)<p>\s*Flights\s*</p>`)
	flightsContext     = regexp.MustCompile(`(?is)<p>\s*Flights\s*</p>(.{0,200})`)
	strongNumberRegex  = regexp.MustCompile(`<strong>\s*(\d[\d,]*)\s*</strong>`)
	circleFlightsRegex = regexp.MustCompile(`(?i)<div class="total">\s*(\d+)\s*</div>\s*<div class="category">\s*FLIGHTS\s*</div>`)
	circleDronesRegex  = regexp.MustCompile(`(?i)<div class="total">\s*(\d+)\s*</div>\s*<div class="category">\s*DRONES\s*</div>`)
	hoverSubtitleRegex = regexp.MustCompile(`(?i)<div class="hover-sub-title">\s*Total\s+(\d+)\s+Flights\s*</div>`)
	projectsRegex      = regexp.MustCompile(`(?i)<div class="hover-title">\s*(\d+)\s+Projects?\s*</div>`)
)

var periodFlightsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:last\s+7\s+days?|past\s+week|this\s+week)[:\s]*(\d+)\s+flights?`),
	regexp.MustCompile(`(?i)(\d+)\s+flights?\s+(?:in\s+)?(?:last\s+7\s+days?|past\s+week)`),
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

func firstString(re *regexp.Regexp, document string) (string, bool) {
	groups := re.FindStringSubmatch(document)
	if groups == nil {
		return "", false
	}
	value := strings.TrimSpace(DecodeEntities(groups[1]))
	return value, value != ""
}

func firstInt(re *regexp.Regexp, document string) (int, bool) {
	groups := re.FindStringSubmatch(document)
	if groups == nil {
		return 0, false
	}
	return atoi(groups[1])
}

// FlyingTime reads the "Flying Time" top-bar stat.
func FlyingTime(document string) (string, bool) {
	return firstString(flyingTimeRegex, document)
}

// TotalDistance reads the "Total Travelled Distance" top-bar stat.
func TotalDistance(document string) (string, bool) {
	return firstString(distanceRegex, document)
}

// lastStrongNumber strips comments out of section and returns the last
// numeric <strong> value that is left.
func lastStrongNumber(section string) (int, bool) {
	section = StripComments(section)
	matches := strongNumberRegex.FindAllStringSubmatch(section, -1)
	if len(matches) == 0 {
		return 0, false
	}
	return atoi(matches[len(matches)-1][1])
}

// TopBarFlights reads the "Flights" top-bar stat. The upstream keeps a
// stale copy of the value inside an html comment next to the live one.
// The top bar always shows the all-time count.
func TopBarFlights(document string) (int, bool) {
	for _, section := range statSectionRegex.FindAllString(document, -1) {
		if !flightsLabelRegex.MatchString(StripComments(section)) {
			continue
		}
		if n, ok := lastStrongNumber(section); ok {
			return n, true
		}
	}
	groups := flightsContext.FindStringSubmatch(document)
	if groups == nil {
		return 0, false
	}
	return lastStrongNumber(groups[1])
}

// CircleFlights reads the range filtered FLIGHTS circle widget.
func CircleFlights(document string) (int, bool) {
	return firstInt(circleFlightsRegex, document)
}

// CircleDrones reads the DRONES circle widget.
func CircleDrones(document string) (int, bool) {
	return firstInt(circleDronesRegex, document)
}

// HoverSubtitleFlights reads "Total N Flights" from the chart hover card.
func HoverSubtitleFlights(document string) (int, bool) {
	return firstInt(hoverSubtitleRegex, document)
}

func Projects(document string) (int, bool) {
	return firstInt(projectsRegex, document)
}

// PeriodFlights7 looks for free text like "last 7 days: 12 flights".
func PeriodFlights7(document string) (int, bool) {
	for _, pattern := range periodFlightsPatterns {
		if n, ok := firstInt(pattern, document); ok {
			return n, true
		}
	}
	return 0, false
}
