package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: start must not be after end and the stay must span at least one night")
	ErrInvalidDate  = errors.New("daterange: invalid calendar date")
)

const (
	// Layout is the canonical wire format for calendar dates.
	Layout = "2006-01-02"
	// legacyLayout is the dd.mm.yyyy form the booking front end submits.
	legacyLayout = "02.01.2006"

	day = 24 * time.Hour
)

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// On builds a calendar date.
func On(year int, month time.Month, dayOfMonth int) time.Time {
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts yyyy-mm-dd and dd.mm.yyyy.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range []string{Layout, legacyLayout} {
		if t, err := time.Parse(layout, raw); err == nil {
			return Date(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// Format renders a calendar date in the canonical layout.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// DateRange is an inclusive pair of calendar dates. The end date is the
// check-out day and is still considered occupied for overlap purposes.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// New normalizes both dates and validates the range.
func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: Date(start), End: Date(end)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Span builds a range that may cover a single day. Manual blocks and
// calendar windows use it; stays go through New.
func Span(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: Date(start), End: Date(end)}
	if dr.Start.IsZero() || dr.End.IsZero() || dr.Start.After(dr.End) {
		return DateRange{}, ErrInvalidRange
	}
	return dr, nil
}

// Parse builds a validated range from two wire dates.
func Parse(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	return New(s, e)
}

// Validate rejects zero dates, inverted ranges and zero-night stays.
func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ErrInvalidRange
	}
	if dr.Start.After(dr.End) {
		return ErrInvalidRange
	}
	if dr.Nights() == 0 {
		return ErrInvalidRange
	}
	return nil
}

// Nights is the number of nights between start and end, never negative.
func (dr DateRange) Nights() int {
	diff := dr.End.Sub(dr.Start)
	if diff <= 0 {
		return 0
	}
	nights := diff / day
	if diff%day != 0 {
		nights++
	}
	return int(nights)
}

// Overlaps reports whether the ranges share at least one calendar day.
// Touching endpoints count as overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return !dr.Start.After(other.End) && !dr.End.Before(other.Start)
}

// Contains reports whether t falls inside the range, endpoints included.
func (dr DateRange) Contains(t time.Time) bool {
	t = Date(t)
	return !t.Before(dr.Start) && !t.After(dr.End)
}

// DayAfter returns the first calendar day following the range.
func (dr DateRange) DayAfter() time.Time {
	return dr.End.AddDate(0, 0, 1)
}

func (dr DateRange) String() string {
	return Format(dr.Start) + ".." + Format(dr.End)
}
