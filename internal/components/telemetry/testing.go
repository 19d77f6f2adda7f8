package telemetry

import (
	"fmt"
	"sync"
	"testing"
)

// TestingAPI forwards every report to the test log and keeps the ids of
// broken/warning reports so tests can assert on them.
type TestingAPI struct {
	t testing.TB

	mutex    sync.Mutex
	broken   []string
	warnings []string
}

func NewTestingAPI(t testing.TB) *TestingAPI {
	return &TestingAPI{t: t}
}

func (a *TestingAPI) ReportBroken(id string, params ...any) {
	a.mutex.Lock()
	a.broken = append(a.broken, id)
	a.mutex.Unlock()
	a.t.Log("BROKEN", id, fmt.Sprint(params...))
}

func (a *TestingAPI) ReportWarning(id string, params ...any) {
	a.mutex.Lock()
	a.warnings = append(a.warnings, id)
	a.mutex.Unlock()
	a.t.Log("WARNING", id, fmt.Sprint(params...))
}

func (a *TestingAPI) ReportDebug(msg string, params ...any) {
	a.t.Log("DEBUG", msg, fmt.Sprint(params...))
}

func (a *TestingAPI) ReportCount(id string, count int64) {
	a.t.Log("COUNT", id, count)
}

// Broken returns the ids passed to ReportBroken so far.
func (a *TestingAPI) Broken() []string {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return append([]string(nil), a.broken...)
}

// Warnings returns the ids passed to ReportWarning so far.
func (a *TestingAPI) Warnings() []string {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return append([]string(nil), a.warnings...)
}
