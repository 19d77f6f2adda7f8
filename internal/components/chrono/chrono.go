package chrono

import (
	"sync"
	"time"
)

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct {
	location *time.Location
}

// NewStandardTime is the constructor of StandardTime, a nil location means local time.
func NewStandardTime(location *time.Location) StandardTime {
	if location == nil {
		location = time.Local
	}
	return StandardTime{location: location}
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(s.location)
}

// FakeTime is a TimeAPI that only moves when told to.
type FakeTime struct {
	mutex sync.Mutex
	now   time.Time
}

func NewFakeTime(now time.Time) *FakeTime {
	return &FakeTime{now: now}
}

func (f *FakeTime) Now() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.now
}

func (f *FakeTime) Advance(d time.Duration) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.now = f.now.Add(d)
}

func (f *FakeTime) Set(now time.Time) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.now = now
}
