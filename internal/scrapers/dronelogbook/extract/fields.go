package extract

import (
	"regexp"
	"strings"
)

// Sentinels for fields that could not be recovered.
const (
	UnknownAircraft = "Unknown Aircraft"
	UnknownLocation = "Unknown Location"
	DefaultPilot    = "Flight Dev"
	DefaultPurpose  = "Test Flight"
	ZeroDuration    = "00:00:00"
)

var aircraftPatterns = []*regexp.Regexp{
	regexp.MustCompile(`AA-[A-Z]+-\d+`),
	regexp.MustCompile(`(?i)DJI[^,\s]*`),
	regexp.MustCompile(`[A-Z]{2,4}-[A-Z0-9]{3,}`),
	regexp.MustCompile(`(?i)Mavic[^,\s]*`),
	regexp.MustCompile(`(?i)Phantom[^,\s]*`),
}

// Aircraft returns the first aircraft identifier found in text, tail
// numbers are preferred over model names.
func Aircraft(text string) string {
	for _, pattern := range aircraftPatterns {
		if match := pattern.FindString(text); match != "" {
			return match
		}
	}
	return UnknownAircraft
}

var locationPatterns = []*regexp.Regexp{
	// "Sonnadenahalli, Hosakote taluk"
	regexp.MustCompile(`[A-Z][a-z]+,\s*[A-Z][a-z]+\s+[a-z]+`),
	// "City, State"
	regexp.MustCompile(`[A-Z][a-z]+,\s*[A-Z][a-z]+`),
	// "Place Name"
	regexp.MustCompile(`[A-Z][a-z]+\s+[A-Z][a-z]+`),
}

var locationRejects = []string{"Test Flight", "AA-TRT"}

func acceptableLocation(candidate string) bool {
	for _, reject := range locationRejects {
		if strings.Contains(candidate, reject) {
			return false
		}
	}
	return true
}

// Location returns the first place name found in text that is not one of
// the neighbouring purpose/aircraft tokens.
func Location(text string) string {
	for _, pattern := range locationPatterns {
		for _, candidate := range pattern.FindAllString(text, -1) {
			if acceptableLocation(candidate) {
				return candidate
			}
		}
	}
	return UnknownLocation
}

var durationRegex = regexp.MustCompile(`(\d{2}:\d{2}:\d{2})\s+\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}`)

// Duration returns the HH:MM:SS value that immediately precedes a full
// date-time stamp. Bare time tokens are ignored since they show up all over
// the page.
func Duration(text string) (string, bool) {
	groups := durationRegex.FindStringSubmatch(text)
	if groups == nil {
		return "", false
	}
	return groups[1], true
}

var pilotRegex = regexp.MustCompile(`[Pp]ilot:\s*([^\s,/|\[\]<>]+(?:\s+[A-Z][a-z'.]+\b){0,2})`)

func Pilot(text string) string {
	groups := pilotRegex.FindStringSubmatch(text)
	if groups == nil {
		return DefaultPilot
	}
	pilot := strings.TrimSpace(groups[1])
	if pilot == "" {
		return DefaultPilot
	}
	return pilot
}

var purposePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Purpose:\s*([^,\n\r]+)`),
	// "AA-TRT-0028 / Test Flight Sonnadenahalli, ..."
	regexp.MustCompile(`/\s*([A-Za-z][^/\n]*?)\s+(?:[A-Z][a-z]+,|$)`),
	regexp.MustCompile(`(?i)(Test Flight|Training|Survey|Inspection|Photography)`),
}

func Purpose(text string) string {
	for _, pattern := range purposePatterns {
		groups := pattern.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		purpose := strings.TrimSpace(groups[1])
		if purpose != "" {
			return purpose
		}
	}
	return DefaultPurpose
}

var bracketIDRegex = regexp.MustCompile(`\[(\d+)\]`)

// BracketID returns the upstream numeric flight id written as "[1368]".
func BracketID(text string) (string, bool) {
	groups := bracketIDRegex.FindStringSubmatch(text)
	if groups == nil {
		return "", false
	}
	return groups[1], true
}

// BracketIDBoundaries returns the start offsets of every bracketed id in text.
func BracketIDBoundaries(text string) []int {
	var out []int
	for _, loc := range bracketIDRegex.FindAllStringIndex(text, -1) {
		out = append(out, loc[0])
	}
	return out
}

var flightHeaderRegex = regexp.MustCompile(`Flight\s+(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2}:\d{2})`)

// FlightHeader parses "Flight 2025-10-24 13:14:36".
func FlightHeader(text string) (date string, clock string, ok bool) {
	groups := flightHeaderRegex.FindStringSubmatch(text)
	if groups == nil {
		return "", "", false
	}
	return groups[1], groups[2], true
}

var clockRegex = regexp.MustCompile(`\d{1,2}:\d{2}:\d{2}`)

// Clock returns the first H:MM:SS token in text.
func Clock(text string) (string, bool) {
	match := clockRegex.FindString(text)
	return match, match != ""
}

// IDWindow returns the plain text surrounding the first "[id]" in document,
// spanning before characters ahead of it and after characters past it.
func IDWindow(document, id string, before, after int) (string, bool) {
	if id == "" {
		return "", false
	}
	idx := strings.Index(document, "["+id+"]")
	if idx < 0 {
		return "", false
	}
	start := max(0, idx-before)
	end := min(len(document), idx+after)
	return CollapseWhitespace(StripTags(document[start:end])), true
}

var trailingDurationRegex = regexp.MustCompile(`(\d{2}:\d{2}:\d{2})\s+\d{4}-\d{2}-\d{2}`)

// DurationAfterID looks for the duration column that follows "[id]" within
// the next after characters of document.
func DurationAfterID(document, id string, after int) (string, bool) {
	if id == "" {
		return "", false
	}
	idx := strings.Index(document, "["+id+"]")
	if idx < 0 {
		return "", false
	}
	end := min(len(document), idx+after)
	text := CollapseWhitespace(StripTags(document[idx:end]))
	groups := trailingDurationRegex.FindStringSubmatch(text)
	if groups == nil {
		return "", false
	}
	return groups[1], true
}
