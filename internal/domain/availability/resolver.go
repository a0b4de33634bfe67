package availability

import (
	"time"

	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/units"
)

// Candidate is one unit offered for a request.
type Candidate struct {
	Unit      units.ID
	Available bool
	// NextFreeDate is set only when the unit is unavailable.
	NextFreeDate *time.Time
}

type Result struct {
	Range      daterange.DateRange
	Party      int
	Candidates []Candidate
}

// Available reports whether any candidate can take the stay.
func (r Result) Available() bool {
	for _, c := range r.Candidates {
		if c.Available {
			return true
		}
	}
	return false
}

// LedgerSet maps physical units to their ledgers. Missing ledgers count as empty.
type LedgerSet map[units.ID]*Ledger

func (s LedgerSet) get(unit units.ID) *Ledger {
	if l, ok := s[unit]; ok && l != nil {
		return l
	}
	return NewLedger(unit)
}

// Resolve answers an availability request. An empty requested unit lets the
// party size pick the candidates; a combined unit is free only when every
// implicated physical ledger is free for the same range.
func Resolve(catalog *units.Catalog, ledgers LedgerSet, requested units.ID, stay daterange.DateRange, party int) (Result, error) {
	if err := stay.Validate(); err != nil {
		return Result{}, err
	}

	var candidates []units.ID
	if requested == "" {
		routed, err := catalog.Route(party)
		if err != nil {
			return Result{}, err
		}
		candidates = routed
	} else {
		if err := catalog.Admit(requested, party); err != nil {
			return Result{}, err
		}
		candidates = []units.ID{requested}
	}

	out := Result{Range: stay, Party: party, Candidates: make([]Candidate, 0, len(candidates))}
	for _, id := range candidates {
		c, err := Check(catalog, ledgers, id, stay)
		if err != nil {
			return Result{}, err
		}
		out.Candidates = append(out.Candidates, c)
	}
	return out, nil
}

// Check evaluates a single unit against its implicated ledgers.
func Check(catalog *units.Catalog, ledgers LedgerSet, unit units.ID, stay daterange.DateRange) (Candidate, error) {
	parts, err := catalog.Implicated(unit)
	if err != nil {
		return Candidate{}, err
	}
	c := Candidate{Unit: unit, Available: true}
	for _, part := range parts {
		if ledgers.get(part).IsBlocked(stay) {
			c.Available = false
		}
	}
	if c.Available {
		return c, nil
	}
	var latest time.Time
	for _, part := range parts {
		next := ledgers.get(part).NextFreeDate(stay)
		if next.After(latest) {
			latest = next
		}
	}
	c.NextFreeDate = &latest
	return c, nil
}
