package extract

import (
	"regexp"
	"strings"
)

// BreakdownKind selects which inline script declarations a breakdown is read from.
type BreakdownKind string

const (
	PurposeBreakdown  BreakdownKind = "flightDataPoint"
	AircraftBreakdown BreakdownKind = "droneDataPoint"
)

var breakdownRegexes = map[BreakdownKind]*regexp.Regexp{
	PurposeBreakdown:  regexp.MustCompile(`(?i)let flightDataPoint\d+\s*=\s*new DataPoint\("([^"]+)",\s*(\d+),\s*\d+\);`),
	AircraftBreakdown: regexp.MustCompile(`(?i)let droneDataPoint\d+\s*=\s*new DataPoint\("([^"]+)",\s*(\d+),\s*\d+\);`),
}

// Breakdown reads the name -> count pairs declared for kind, entries with
// a zero count are dropped. Returns nil when nothing was declared.
func Breakdown(document string, kind BreakdownKind) map[string]int {
	re, ok := breakdownRegexes[kind]
	if !ok {
		return nil
	}
	var out map[string]int
	for _, groups := range re.FindAllStringSubmatch(document, -1) {
		count, ok := atoi(groups[2])
		if !ok || count <= 0 {
			continue
		}
		if out == nil {
			out = map[string]int{}
		}
		out[strings.TrimSpace(DecodeEntities(groups[1]))] = count
	}
	return out
}

// DataPoint is one `new DataPoint(name, count, total)` declaration, Var is
// the variable it was assigned to if any.
type DataPoint struct {
	Var   string
	Name  string
	Count int
	Total int
}

// Kind reports which breakdown the declaration belongs to based on its variable name.
func (p DataPoint) Kind() BreakdownKind {
	lower := strings.ToLower(p.Var)
	switch {
	case strings.HasPrefix(lower, strings.ToLower(string(AircraftBreakdown))):
		return AircraftBreakdown
	case strings.HasPrefix(lower, strings.ToLower(string(PurposeBreakdown))):
		return PurposeBreakdown
	}
	return ""
}

var dataPointRegex = regexp.MustCompile(`(?i)(?:(?:let|var|const)\s+(\w+)\s*=\s*)?new DataPoint\("([^"]+)",\s*(\d+),\s*(\d+)\)`)

// DataPoints returns every DataPoint declaration in document order,
// regardless of which variable it is assigned to.
func DataPoints(document string) []DataPoint {
	var out []DataPoint
	for _, groups := range dataPointRegex.FindAllStringSubmatch(document, -1) {
		count, _ := atoi(groups[3])
		total, _ := atoi(groups[4])
		out = append(out, DataPoint{
			Var:   groups[1],
			Name:  strings.TrimSpace(DecodeEntities(groups[2])),
			Count: count,
			Total: total,
		})
	}
	return out
}
