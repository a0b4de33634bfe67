package availability

import (
	"time"

	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/units"
)

type EntryAdded struct {
	Unit    units.ID
	EntryID string
	Kind    EntryKind
	Range   daterange.DateRange
	Reason  string
	At      time.Time
}

func (e EntryAdded) EventName() string     { return "ledger.entry_added" }
func (e EntryAdded) AggregateID() string   { return string(e.Unit) }
func (e EntryAdded) OccurredAt() time.Time { return e.At }

type EntryReleased struct {
	Unit    units.ID
	EntryID string
	Kind    EntryKind
	Range   daterange.DateRange
	At      time.Time
}

func (e EntryReleased) EventName() string     { return "ledger.entry_released" }
func (e EntryReleased) AggregateID() string   { return string(e.Unit) }
func (e EntryReleased) OccurredAt() time.Time { return e.At }

type EntryRestored struct {
	Unit    units.ID
	EntryID string
	Kind    EntryKind
	Range   daterange.DateRange
	At      time.Time
}

func (e EntryRestored) EventName() string     { return "ledger.entry_restored" }
func (e EntryRestored) AggregateID() string   { return string(e.Unit) }
func (e EntryRestored) OccurredAt() time.Time { return e.At }

type EntryRemoved struct {
	Unit    units.ID
	EntryID string
	Kind    EntryKind
	Range   daterange.DateRange
	At      time.Time
}

func (e EntryRemoved) EventName() string     { return "ledger.entry_removed" }
func (e EntryRemoved) AggregateID() string   { return string(e.Unit) }
func (e EntryRemoved) OccurredAt() time.Time { return e.At }

type OverbookingPrevented struct {
	Unit       units.ID
	EntryID    string
	ConflictID string
	Range      daterange.DateRange
	At         time.Time
}

func (e OverbookingPrevented) EventName() string     { return "ledger.overbooking_prevented" }
func (e OverbookingPrevented) AggregateID() string   { return string(e.Unit) }
func (e OverbookingPrevented) OccurredAt() time.Time { return e.At }

func EntryAddedEvent(unit units.ID, entry Entry, at time.Time) EntryAdded {
	return EntryAdded{Unit: unit, EntryID: entry.ID, Kind: entry.Kind, Range: entry.Range, Reason: entry.Reason, At: at.UTC()}
}

func EntryReleasedEvent(unit units.ID, entry Entry, at time.Time) EntryReleased {
	return EntryReleased{Unit: unit, EntryID: entry.ID, Kind: entry.Kind, Range: entry.Range, At: at.UTC()}
}

func EntryRestoredEvent(unit units.ID, entry Entry, at time.Time) EntryRestored {
	return EntryRestored{Unit: unit, EntryID: entry.ID, Kind: entry.Kind, Range: entry.Range, At: at.UTC()}
}

func EntryRemovedEvent(unit units.ID, entry Entry, at time.Time) EntryRemoved {
	return EntryRemoved{Unit: unit, EntryID: entry.ID, Kind: entry.Kind, Range: entry.Range, At: at.UTC()}
}

func OverbookingPreventedEvent(unit units.ID, entryID, conflictID string, r daterange.DateRange, at time.Time) OverbookingPrevented {
	return OverbookingPrevented{Unit: unit, EntryID: entryID, ConflictID: conflictID, Range: r, At: at.UTC()}
}
