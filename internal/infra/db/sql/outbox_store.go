package sql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appoutbox "monteur/internal/app/outbox"
	infraoutbox "monteur/internal/infra/outbox"
)

const (
	outboxNew     = "NEW"
	outboxClaimed = "CLAIMED"
	outboxSent    = "SENT"
	outboxFailed  = "FAILED"

	claimTimeout = time.Minute
)

// OutboxStore writes records inside the transaction bound to ctx and serves
// them to the relay worker.
type OutboxStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewOutboxStore(db *gorm.DB) *OutboxStore {
	return &OutboxStore{db: db, now: time.Now}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	now := s.now().UTC()
	row := outboxRow{
		ID:            record.ID,
		Name:          record.Name,
		Payload:       record.Payload,
		OccurredAt:    record.OccurredAt.UTC(),
		Aggregate:     record.Aggregate,
		Headers:       record.Headers,
		State:         outboxNew,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
	return translate(unitFrom(ctx, s.db).Create(&row).Error)
}

// Flush is a no-op: the worker relays committed records.
func (s *OutboxStore) Flush(context.Context) error {
	return nil
}

// Claim takes the oldest due record. On Postgres concurrent workers skip
// rows locked by each other.
func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	var claimed *infraoutbox.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now().UTC()
		q := tx.Where("(state IN ? AND next_attempt_at <= ?) OR (state = ? AND claimed_at <= ?)",
			[]string{outboxNew, outboxFailed}, now, outboxClaimed, now.Add(-claimTimeout)).
			Order("occurred_at, id")
		if tx.Dialector.Name() == DialectPostgres {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		var row outboxRow
		if err := q.Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		res := tx.Model(&outboxRow{}).
			Where("id = ? AND state = ?", row.ID, row.State).
			Updates(map[string]any{"state": outboxClaimed, "claimed_by": workerID, "claimed_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		claimed = &infraoutbox.Message{
			ID:         row.ID,
			Name:       row.Name,
			Payload:    row.Payload,
			OccurredAt: row.OccurredAt.UTC(),
			Aggregate:  row.Aggregate,
			Headers:    row.Headers,
			Attempts:   row.Attempts,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	now := s.now().UTC()
	return s.db.WithContext(ctx).Model(&outboxRow{}).Where("id = ?", id).
		Updates(map[string]any{"state": outboxSent, "sent_at": now}).Error
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return s.db.WithContext(ctx).Model(&outboxRow{}).Where("id = ?", id).
		Updates(map[string]any{
			"state":           outboxFailed,
			"next_attempt_at": next.UTC(),
			"last_error":      errMsg,
			"attempts":        gorm.Expr("attempts + 1"),
		}).Error
}

var (
	_ appoutbox.Outbox   = (*OutboxStore)(nil)
	_ infraoutbox.Source = (*OutboxStore)(nil)
)
