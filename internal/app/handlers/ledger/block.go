package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"monteur/internal/app/dto"
	"monteur/internal/app/handlers/support"
	"monteur/internal/app/outbox"
	"monteur/internal/app/policies"
	"monteur/internal/app/uow"
	domainavailability "monteur/internal/domain/availability"
	domainreservation "monteur/internal/domain/reservation"
	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/units"
)

const (
	blockKey   = "ledger.block"
	unblockKey = "ledger.unblock"
	blocksKey  = "ledger.blocks"
)

// ErrNotABlock is returned when unblocking an entry that belongs to a reservation.
var ErrNotABlock = fmt.Errorf("%w: entry belongs to a reservation, archive it instead", domainreservation.ErrInvalidTransition)

type BlockRangeCommand struct {
	Unit   string    `validate:"required"`
	Start  time.Time `validate:"required"`
	End    time.Time `validate:"required"`
	Reason string    `validate:"max=200"`
	Actor  string    `validate:"required"`
}

func (BlockRangeCommand) Key() string   { return blockKey }
func (BlockRangeCommand) OperatorOnly() {}

type UnblockRangeCommand struct {
	BlockID string `validate:"required"`
}

func (UnblockRangeCommand) Key() string   { return unblockKey }
func (UnblockRangeCommand) OperatorOnly() {}

type UnblockRangeResult struct {
	BlockID string   `json:"block_id"`
	Units   []string `json:"units"`
}

type ListBlocksQuery struct {
	Unit string
}

func (ListBlocksQuery) Key() string   { return blocksKey }
func (ListBlocksQuery) OperatorOnly() {}

// Handler manages operator blocks. A block over the combined unit writes
// one entry with the same id into each physical ledger.
type Handler struct {
	UoWFactory uow.UoWFactory
	Catalog    *units.Catalog
	Clock      policies.Clock
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	NewID      func() string
}

func (h *Handler) Block(ctx context.Context, cmd BlockRangeCommand) (*dto.Block, error) {
	r, err := daterange.Span(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}
	unitID := units.ParseID(cmd.Unit)
	parts, err := h.Catalog.Implicated(unitID)
	if err != nil {
		return nil, err
	}
	id := h.newID()
	now := h.Clock.Now()
	reason := strings.TrimSpace(cmd.Reason)

	err = support.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		ledgers, err := support.LoadLedgers(ctx, unit.Ledgers(), parts)
		if err != nil {
			return err
		}
		for _, part := range parts {
			if ledgers[part].IsBlocked(r) {
				return fmt.Errorf("%w: %s %s", domainavailability.ErrConflict, part, r)
			}
		}
		recorders := make([]outbox.Recorder, 0, len(parts))
		for _, part := range parts {
			entry := domainavailability.Entry{
				ID:        id,
				Booked:    unitID,
				Range:     r,
				Kind:      domainavailability.KindManualBlock,
				Reason:    reason,
				CreatedBy: cmd.Actor,
				CreatedAt: now,
			}
			if err := ledgers[part].Insert(entry, now); err != nil {
				return err
			}
			recorders = append(recorders, ledgers[part])
		}
		if err := support.SaveLedgers(ctx, unit.Ledgers(), ledgers, parts); err != nil {
			return err
		}
		return outbox.Drain(ctx, h.Outbox, h.Encoder, recorders...)
	})
	if err != nil {
		return nil, err
	}

	out := dto.Block{ID: id, Unit: string(unitID), Start: daterange.Format(r.Start), End: daterange.Format(r.End), Reason: reason}
	for _, p := range parts {
		out.Units = append(out.Units, string(p))
	}
	return &out, nil
}

// Unblock removes the block from every physical ledger that holds it.
func (h *Handler) Unblock(ctx context.Context, cmd UnblockRangeCommand) (*UnblockRangeResult, error) {
	out := &UnblockRangeResult{BlockID: cmd.BlockID}
	err := support.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		physical := h.Catalog.Physical()
		ledgers, err := support.LoadLedgers(ctx, unit.Ledgers(), physical)
		if err != nil {
			return err
		}
		now := h.Clock.Now()
		var touched []units.ID
		for _, part := range physical {
			entry, ok := ledgers[part].Find(cmd.BlockID)
			if !ok {
				continue
			}
			if entry.Kind != domainavailability.KindManualBlock {
				return ErrNotABlock
			}
			if _, err := ledgers[part].Remove(cmd.BlockID, now); err != nil {
				return err
			}
			touched = append(touched, part)
		}
		if len(touched) == 0 {
			return fmt.Errorf("%w: block %s", domainavailability.ErrEntryNotFound, cmd.BlockID)
		}
		if err := support.SaveLedgers(ctx, unit.Ledgers(), ledgers, touched); err != nil {
			return err
		}
		recorders := make([]outbox.Recorder, 0, len(touched))
		for _, part := range touched {
			recorders = append(recorders, ledgers[part])
			out.Units = append(out.Units, string(part))
		}
		return outbox.Drain(ctx, h.Outbox, h.Encoder, recorders...)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Blocks lists manual blocks, merging the copies a combined block leaves
// in each physical ledger.
func (h *Handler) Blocks(ctx context.Context, q ListBlocksQuery) (dto.BlockCollection, error) {
	ids := h.Catalog.Physical()
	if q.Unit != "" {
		parts, err := h.Catalog.Implicated(units.ParseID(q.Unit))
		if err != nil {
			return dto.BlockCollection{}, err
		}
		ids = parts
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BlockCollection{}, err
	}
	defer cleanup()

	ledgers, err := support.LoadLedgers(ctx, unit.Ledgers(), ids)
	if err != nil {
		return dto.BlockCollection{}, err
	}
	byID := map[string]*dto.Block{}
	var order []string
	for _, part := range ids {
		for _, e := range ledgers[part].ActiveEntries() {
			if e.Kind != domainavailability.KindManualBlock {
				continue
			}
			b, ok := byID[e.ID]
			if !ok {
				booked := e.Booked
				if booked == "" {
					booked = e.Unit
				}
				b = &dto.Block{ID: e.ID, Unit: string(booked), Start: daterange.Format(e.Range.Start), End: daterange.Format(e.Range.End), Reason: e.Reason}
				byID[e.ID] = b
				order = append(order, e.ID)
			}
			b.Units = append(b.Units, string(part))
		}
	}
	out := dto.BlockCollection{Items: make([]dto.Block, 0, len(order))}
	for _, id := range order {
		out.Items = append(out.Items, *byID[id])
	}
	sort.SliceStable(out.Items, func(i, j int) bool { return out.Items[i].Start < out.Items[j].Start })
	return out, nil
}

func (h *Handler) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return "blk-" + uuid.NewString()
}
