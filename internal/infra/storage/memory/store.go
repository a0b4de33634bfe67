package memory

import (
	"sync"

	appoutbox "monteur/internal/app/outbox"
	domainavailability "monteur/internal/domain/availability"
	domainreservation "monteur/internal/domain/reservation"
	"monteur/internal/domain/units"
)

// Store holds committed state. Units of work read through it and stage their
// writes until Commit.
type Store struct {
	mu           sync.RWMutex
	ledgers      map[units.ID]*domainavailability.Ledger
	reservations map[domainreservation.ID]*domainreservation.Reservation

	outboxMu sync.Mutex
	pending  []appoutbox.EventRecord
}

func NewStore() *Store {
	return &Store{
		ledgers:      make(map[units.ID]*domainavailability.Ledger),
		reservations: make(map[domainreservation.ID]*domainreservation.Reservation),
	}
}

func (s *Store) enqueue(records []appoutbox.EventRecord) {
	if len(records) == 0 {
		return
	}
	s.outboxMu.Lock()
	defer s.outboxMu.Unlock()
	s.pending = append(s.pending, records...)
}

func (s *Store) takePending() []appoutbox.EventRecord {
	s.outboxMu.Lock()
	defer s.outboxMu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

func (s *Store) requeue(records []appoutbox.EventRecord) {
	if len(records) == 0 {
		return
	}
	s.outboxMu.Lock()
	defer s.outboxMu.Unlock()
	s.pending = append(records, s.pending...)
}
