package dto

import (
	"monteur/internal/domain/availability"
	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/units"
)

type AvailabilityCandidate struct {
	Unit         string `json:"unit"`
	Label        string `json:"label"`
	Available    bool   `json:"available"`
	NextFreeDate string `json:"next_free_date,omitempty"`
}

type AvailabilityResult struct {
	Start      string                  `json:"start"`
	End        string                  `json:"end"`
	Nights     int                     `json:"nights"`
	Party      int                     `json:"party"`
	Available  bool                    `json:"available"`
	Candidates []AvailabilityCandidate `json:"candidates"`
}

func MapAvailability(catalog *units.Catalog, res availability.Result) AvailabilityResult {
	out := AvailabilityResult{
		Start:      daterange.Format(res.Range.Start),
		End:        daterange.Format(res.Range.End),
		Nights:     res.Range.Nights(),
		Party:      res.Party,
		Available:  res.Available(),
		Candidates: make([]AvailabilityCandidate, 0, len(res.Candidates)),
	}
	for _, c := range res.Candidates {
		item := AvailabilityCandidate{Unit: string(c.Unit), Available: c.Available}
		if u, err := catalog.Get(c.Unit); err == nil {
			item.Label = u.Label
		}
		if c.NextFreeDate != nil {
			item.NextFreeDate = daterange.Format(*c.NextFreeDate)
		}
		out.Candidates = append(out.Candidates, item)
	}
	return out
}

type CalendarEntry struct {
	ID        string `json:"id"`
	Unit      string `json:"unit"`
	BookedAs  string `json:"booked_as,omitempty"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
}

type Calendar struct {
	Unit    string          `json:"unit"`
	From    string          `json:"from"`
	To      string          `json:"to"`
	Entries []CalendarEntry `json:"entries"`
}

func MapEntry(e availability.Entry) CalendarEntry {
	return CalendarEntry{
		ID:        e.ID,
		Unit:      string(e.Unit),
		BookedAs:  string(e.Booked),
		Start:     daterange.Format(e.Range.Start),
		End:       daterange.Format(e.Range.End),
		Kind:      string(e.Kind),
		Status:    string(e.Status),
		Reason:    e.Reason,
		CreatedBy: e.CreatedBy,
	}
}

func MapCalendar(unit units.ID, window daterange.DateRange, entries []availability.Entry) Calendar {
	out := Calendar{
		Unit:    string(unit),
		From:    daterange.Format(window.Start),
		To:      daterange.Format(window.End),
		Entries: make([]CalendarEntry, 0, len(entries)),
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, MapEntry(e))
	}
	return out
}

// Period is an occupied range without any guest detail, for the public calendar.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type PeriodCollection struct {
	Unit  string   `json:"unit"`
	Items []Period `json:"items"`
}

type Block struct {
	ID     string   `json:"id"`
	Unit   string   `json:"unit"`
	Units  []string `json:"units"`
	Start  string   `json:"start"`
	End    string   `json:"end"`
	Reason string   `json:"reason"`
}

type BlockCollection struct {
	Items []Block `json:"items"`
}
