package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "monteur/internal/domain/availability"
	"monteur/internal/domain/units"
)

// ErrConcurrentUpdate is a Conflict: another unit of work changed the same
// aggregate first.
var ErrConcurrentUpdate = fmt.Errorf("%w: mongo: concurrent update detected", domainavailability.ErrConflict)

// LedgerRepository keeps one document per physical unit. Saves are guarded
// by the version so two writers that both passed the availability re-check
// cannot both commit.
type LedgerRepository struct {
	col *mongo.Collection
}

func NewLedgerRepository(db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{col: db.Collection("agg_ledger")}
}

func (r *LedgerRepository) Ledger(ctx context.Context, unit units.ID) (*domainavailability.Ledger, error) {
	var doc ledgerDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(unit)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainavailability.NewLedger(unit), nil
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *LedgerRepository) Save(ctx context.Context, l *domainavailability.Ledger) error {
	doc := newLedgerDocument(l)
	filter := bson.M{"_id": doc.ID, "version": l.Version}
	doc.Version = l.Version + 1
	doc.UpdatedAt = time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) || isTransientTxnError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	l.Version = doc.Version
	return nil
}

var _ domainavailability.Repository = (*LedgerRepository)(nil)
