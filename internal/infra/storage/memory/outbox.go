package memory

import (
	"context"
	"errors"

	appoutbox "monteur/internal/app/outbox"
	"monteur/internal/app/uow"
)

// RelayFunc delivers one committed record, usually to the in-process event router.
type RelayFunc func(ctx context.Context, record appoutbox.EventRecord) error

// Outbox stages records on the unit of work bound to ctx. Records become
// visible to Flush only after that unit committed; a rollback drops them.
type Outbox struct {
	store *Store
	relay RelayFunc
}

func NewOutbox(store *Store, relay RelayFunc) *Outbox {
	return &Outbox{store: store, relay: relay}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if u, ok := unit.(*Unit); ok {
			if err := u.writable(); err != nil {
				return err
			}
			u.records = append(u.records, record)
			return nil
		}
	}
	o.store.enqueue([]appoutbox.EventRecord{record})
	return nil
}

// Flush relays every committed record. Records whose relay failed stay queued
// for the next flush.
func (o *Outbox) Flush(ctx context.Context) error {
	records := o.store.takePending()
	if o.relay == nil || len(records) == 0 {
		return nil
	}
	var failed []appoutbox.EventRecord
	var errs []error
	for _, rec := range records {
		if err := o.relay(ctx, rec); err != nil {
			failed = append(failed, rec)
			errs = append(errs, err)
		}
	}
	o.store.requeue(failed)
	return errors.Join(errs...)
}

// Pending reports how many committed records wait for a flush.
func (o *Outbox) Pending() int {
	o.store.outboxMu.Lock()
	defer o.store.outboxMu.Unlock()
	return len(o.store.pending)
}

var _ appoutbox.Outbox = (*Outbox)(nil)
