package clock

import (
	"sync"
	"time"

	"monteur/internal/app/policies"
	"monteur/internal/domain/shared/daterange"
)

// System reads the wall clock. Today is the calendar date in Location, so a
// booking made late in the evening in Munich is not dated tomorrow.
type System struct {
	Location *time.Location
}

func NewSystem(tz string) (System, error) {
	if tz == "" {
		return System{Location: time.UTC}, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return System{}, err
	}
	return System{Location: loc}, nil
}

func (s System) Now() time.Time {
	return time.Now().UTC()
}

func (s System) Today() time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	local := time.Now().In(loc)
	return daterange.On(local.Year(), local.Month(), local.Day())
}

// Fixed is a settable clock for tests and replays.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now.UTC()}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fixed) Today() time.Time {
	return daterange.Date(f.Now())
}

func (f *Fixed) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now.UTC()
}

func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

var (
	_ policies.Clock = System{}
	_ policies.Clock = (*Fixed)(nil)
)
