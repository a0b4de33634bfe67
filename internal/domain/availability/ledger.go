package availability

import (
	"context"
	"errors"
	"sort"
	"time"

	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/shared/events"
	"monteur/internal/domain/units"
)

var (
	ErrConflict       = errors.New("availability: range is already occupied")
	ErrEntryNotFound  = errors.New("availability: entry not found")
	ErrDuplicateEntry = errors.New("availability: entry id already present")
)

type EntryKind string

const (
	KindReservation EntryKind = "reservation"
	KindManualBlock EntryKind = "manual-block"
)

type EntryStatus string

const (
	StatusActive   EntryStatus = "active"
	StatusArchived EntryStatus = "archived"
)

// Entry is one occupied range on a physical unit. Reservation entries share
// the reservation id; a block over the combined unit shares one id across
// both physical ledgers.
type Entry struct {
	ID        string
	Unit      units.ID
	Booked    units.ID
	Range     daterange.DateRange
	Kind      EntryKind
	Status    EntryStatus
	Reason    string
	CreatedBy string
	CreatedAt time.Time
}

func (e Entry) Active() bool { return e.Status == StatusActive }

// Ledger owns every occupancy entry of one physical unit.
type Ledger struct {
	Unit    units.ID
	Entries []Entry
	Version int64
	events.EventRecorder
}

type Repository interface {
	Ledger(ctx context.Context, unit units.ID) (*Ledger, error)
	Save(ctx context.Context, ledger *Ledger) error
}

func NewLedger(unit units.ID) *Ledger {
	return &Ledger{Unit: unit}
}

// Clone copies the entries so a unit of work can stage changes.
func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return nil
	}
	return &Ledger{
		Unit:    l.Unit,
		Entries: append([]Entry(nil), l.Entries...),
		Version: l.Version,
	}
}

// IsBlocked reports whether any active entry overlaps r.
func (l *Ledger) IsBlocked(r daterange.DateRange) bool {
	return l.conflicting(r, "") != nil
}

func (l *Ledger) conflicting(r daterange.DateRange, skipID string) *Entry {
	for i := range l.Entries {
		e := &l.Entries[i]
		if !e.Active() || e.ID == skipID {
			continue
		}
		if e.Range.Overlaps(r) {
			return e
		}
	}
	return nil
}

// Insert appends an active entry. It does not look at other entries; callers
// check IsBlocked within the same unit of work.
func (l *Ledger) Insert(entry Entry, now time.Time) error {
	if entry.ID == "" {
		return errors.New("availability: entry id required")
	}
	if _, ok := l.Find(entry.ID); ok {
		return ErrDuplicateEntry
	}
	entry.Unit = l.Unit
	entry.Status = StatusActive
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now.UTC()
	}
	l.Entries = append(l.Entries, entry)
	l.Record(EntryAddedEvent(l.Unit, entry, now))
	return nil
}

// Occupy checks the range and inserts in one step.
func (l *Ledger) Occupy(entry Entry, now time.Time) error {
	if clash := l.conflicting(entry.Range, ""); clash != nil {
		l.Record(OverbookingPreventedEvent(l.Unit, entry.ID, clash.ID, entry.Range, now))
		return ErrConflict
	}
	return l.Insert(entry, now)
}

// Release archives an entry so it stops blocking. Releasing an archived entry
// is a no-op.
func (l *Ledger) Release(id string, now time.Time) error {
	idx := l.index(id)
	if idx < 0 {
		return ErrEntryNotFound
	}
	if !l.Entries[idx].Active() {
		return nil
	}
	l.Entries[idx].Status = StatusArchived
	l.Record(EntryReleasedEvent(l.Unit, l.Entries[idx], now))
	return nil
}

// CanRestore reports the entry that would collide with restoring id, if any.
func (l *Ledger) CanRestore(id string) error {
	idx := l.index(id)
	if idx < 0 {
		return ErrEntryNotFound
	}
	if l.Entries[idx].Active() {
		return nil
	}
	if l.conflicting(l.Entries[idx].Range, id) != nil {
		return ErrConflict
	}
	return nil
}

// Restore reactivates an archived entry after checking that no other active
// entry took its range in the meantime.
func (l *Ledger) Restore(id string, now time.Time) error {
	idx := l.index(id)
	if idx < 0 {
		return ErrEntryNotFound
	}
	entry := l.Entries[idx]
	if entry.Active() {
		return nil
	}
	if clash := l.conflicting(entry.Range, id); clash != nil {
		l.Record(OverbookingPreventedEvent(l.Unit, id, clash.ID, entry.Range, now))
		return ErrConflict
	}
	l.Entries[idx].Status = StatusActive
	l.Record(EntryRestoredEvent(l.Unit, l.Entries[idx], now))
	return nil
}

// Remove deletes an entry for good.
func (l *Ledger) Remove(id string, now time.Time) (Entry, error) {
	idx := l.index(id)
	if idx < 0 {
		return Entry{}, ErrEntryNotFound
	}
	removed := l.Entries[idx]
	l.Entries = append(l.Entries[:idx], l.Entries[idx+1:]...)
	l.Record(EntryRemovedEvent(l.Unit, removed, now))
	return removed, nil
}

func (l *Ledger) Find(id string) (Entry, bool) {
	idx := l.index(id)
	if idx < 0 {
		return Entry{}, false
	}
	return l.Entries[idx], true
}

// Within lists entries overlapping the window, sorted by start date.
func (l *Ledger) Within(window daterange.DateRange, includeArchived bool) []Entry {
	var out []Entry
	for _, e := range l.Entries {
		if !includeArchived && !e.Active() {
			continue
		}
		if e.Range.Overlaps(window) {
			out = append(out, e)
		}
	}
	sortByStart(out)
	return out
}

// ActiveEntries lists blocking entries sorted by start date.
func (l *Ledger) ActiveEntries() []Entry {
	var out []Entry
	for _, e := range l.Entries {
		if e.Active() {
			out = append(out, e)
		}
	}
	sortByStart(out)
	return out
}

// NextFreeDate walks the active entries by start date beginning the day after
// the given range and returns the first day not covered by any of them.
// Stored entries may be unsorted or overlap each other.
func (l *Ledger) NextFreeDate(after daterange.DateRange) time.Time {
	next := after.DayAfter()
	for _, e := range l.ActiveEntries() {
		if e.Range.Start.After(next) {
			break
		}
		if !next.After(e.Range.End) {
			next = e.Range.DayAfter()
		}
	}
	return next
}

func (l *Ledger) index(id string) int {
	for i := range l.Entries {
		if l.Entries[i].ID == id {
			return i
		}
	}
	return -1
}

func sortByStart(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Range.Start.Before(entries[j].Range.Start)
	})
}
