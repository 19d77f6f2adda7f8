package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	usDateTimeRegex = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})\s+\d{1,2}:\d{2}\s*(?:AM|PM)`)
	usDateRegex     = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	isoDateRegex    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	isoStampRegex   = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})(?:[ T](\d{2}:\d{2}(?::\d{2})?))?`)
)

// ParseFlightDate normalizes the date formats found on flight listings into
// YYYY-MM-DD. "MM/DD/YYYY HH:MM AM|PM" is converted, any embedded YYYY-MM-DD
// is returned as is, anything else is reported as not found.
func ParseFlightDate(s string) (string, bool) {
	if groups := usDateTimeRegex.FindStringSubmatch(s); groups != nil {
		month, _ := strconv.Atoi(groups[1])
		day, _ := strconv.Atoi(groups[2])
		return fmt.Sprintf("%s-%02d-%02d", groups[3], month, day), true
	}
	if match := isoDateRegex.FindString(s); match != "" {
		return match, true
	}
	return "", false
}

// ParseComparableDate parses a record date for range comparisons. It accepts
// a leading ISO date with an optional time and MM/DD/YYYY. Times are
// interpreted in loc.
func ParseComparableDate(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	if groups := isoStampRegex.FindStringSubmatch(s); groups != nil {
		layout := "2006-01-02"
		value := groups[1]
		switch len(groups[2]) {
		case 5:
			layout += " 15:04"
			value += " " + groups[2]
		case 8:
			layout += " 15:04:05"
			value += " " + groups[2]
		}
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, true
		}
	}
	if groups := usDateRegex.FindStringSubmatch(s); groups != nil {
		month, _ := strconv.Atoi(groups[1])
		day, _ := strconv.Atoi(groups[2])
		year, _ := strconv.Atoi(groups[3])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, false
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc), true
	}
	return time.Time{}, false
}
