/*
recorder.go - Turning plans and entries into ledger records

PURPOSE:
  The movement recorder is the only component that writes EXIT and ENTRY
  records. It converts a confirmed distribution plan into one EXIT per
  allocation line plus the matching balance decrements, and registers
  incoming lots with their initial ENTRY.

COMMIT-TIME RE-VALIDATION:
  Plans are computed against a possibly-stale snapshot. Before committing,
  the recorder refreshes the repository and checks every line against the
  lot's current balance. Any shortfall fails the whole commit with a
  StaleAllocationError; nothing is applied and the caller must re-plan.
  There is no auto-replan - a committed distribution must be exactly what
  the user confirmed.

ATOMICITY:
  All records and balance updates of one logical operation go through a
  single TxStore.WithTx call: either everything is visible or nothing is.

SEE ALSO:
  - allocation.go: Produces the plans committed here
  - reversal.go: The compensating write path
*/
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MovementRecorder commits distribution plans and stock entries.
type MovementRecorder struct {
	Store TxStore
	Repo  *Repository
}

func NewMovementRecorder(store TxStore, repo *Repository) *MovementRecorder {
	return &MovementRecorder{Store: store, Repo: repo}
}

// CommitExit commits a distribution plan as EXIT records plus balance
// decrements, atomically. Fails without mutating anything when:
//   - the plan is malformed (ValidationError): non-positive line quantity,
//     negative unit value, or quantities that don't add up to the request
//   - the plan is unsatisfiable (InsufficientStockError)
//   - any lot's fresh balance no longer covers its line (StaleAllocationError)
//
// Plans round-trip through the client between planning and confirmation, so
// every line is re-checked here; nothing about the plan is trusted.
func (mr *MovementRecorder) CommitExit(ctx context.Context, plan *DistributionPlan, actorEmail, note string) ([]MovementRecord, error) {
	if plan == nil || len(plan.Lines) == 0 && plan.UnsatisfiedQuantity.IsZero() {
		return nil, &ValidationError{Field: "plan", Message: "empty distribution plan"}
	}
	if actorEmail == "" {
		return nil, &ValidationError{Field: "actorEmail", Message: "must not be empty"}
	}
	for _, line := range plan.Lines {
		if !line.Quantity.IsPositive() {
			return nil, &ValidationError{
				Field:   "plan",
				Message: fmt.Sprintf("line for lot %s has non-positive quantity %v", line.LotID, line.Quantity),
			}
		}
		if line.UnitValue.IsNegative() {
			return nil, &ValidationError{
				Field:   "plan",
				Message: fmt.Sprintf("line for lot %s has negative unit value %v", line.LotID, line.UnitValue),
			}
		}
	}
	if !plan.TotalAllocated().Add(plan.UnsatisfiedQuantity).Equal(plan.RequestedQuantity) {
		return nil, &ValidationError{
			Field:   "plan",
			Message: "line quantities and unsatisfied quantity do not add up to the requested quantity",
		}
	}
	if !plan.Satisfiable() {
		return nil, &InsufficientStockError{
			ProductName: plan.ProductName,
			Requested:   plan.RequestedQuantity,
			Available:   plan.TotalAllocated(),
			Shortfall:   plan.UnsatisfiedQuantity,
		}
	}

	// Fresh snapshot: the plan may have been computed against stale data.
	snap, err := mr.Repo.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	records := make([]MovementRecord, 0, len(plan.Lines))
	newBalances := make(map[LotID]decimal.Decimal)

	for _, line := range plan.Lines {
		lot := snap.LotByID(line.LotID)
		if lot == nil {
			return nil, &StaleAllocationError{LotID: line.LotID, Planned: line.Quantity}
		}

		remaining, ok := newBalances[lot.ID]
		if !ok {
			remaining = lot.CurrentBalance
		}
		if remaining.LessThan(line.Quantity) {
			return nil, &StaleAllocationError{
				LotID:     line.LotID,
				Planned:   line.Quantity,
				Available: remaining,
			}
		}
		newBalances[lot.ID] = remaining.Sub(line.Quantity)

		records = append(records, MovementRecord{
			ID:          NewExitID(),
			Timestamp:   now,
			Kind:        MovementExit,
			DocumentID:  lot.DocumentID,
			LotID:       lot.ID,
			ProductName: lot.ProductName,
			Quantity:    line.Quantity,
			TotalValue:  line.Quantity.Mul(line.UnitValue),
			ActorEmail:  actorEmail,
			Note:        note,
		})
	}

	err = mr.Store.WithTx(ctx, func(s Store) error {
		for i, line := range plan.Lines {
			if err := s.AppendMovement(ctx, records[i]); err != nil {
				return err
			}
			if err := s.SetLotBalance(ctx, line.LotID, newBalances[line.LotID]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		mr.Repo.Invalidate()
		return nil, &StorageError{Op: "commit distribution", Err: err}
	}

	mr.Repo.Invalidate()
	return records, nil
}

// CommitEntry registers a single new lot and its initial ENTRY record,
// atomically. The lot's balance is set to its initial quantity.
func (mr *MovementRecorder) CommitEntry(ctx context.Context, lot *StockLot, actorEmail string) (MovementRecord, error) {
	rec, err := entryRecord(lot, actorEmail, time.Now().UTC())
	if err != nil {
		return MovementRecord{}, err
	}

	err = mr.Store.WithTx(ctx, func(s Store) error {
		if err := s.AppendLot(ctx, *lot); err != nil {
			return err
		}
		return s.AppendMovement(ctx, rec)
	})
	if err != nil {
		mr.Repo.Invalidate()
		return MovementRecord{}, &StorageError{Op: "commit entry", Err: err}
	}

	mr.Repo.Invalidate()
	return rec, nil
}

// CommitDocument registers a commitment document with its lots, each paired
// with an initial ENTRY record, in one atomic batch.
func (mr *MovementRecorder) CommitDocument(ctx context.Context, doc CommitmentDocument, lots []*StockLot, actorEmail string) ([]MovementRecord, error) {
	now := time.Now().UTC()

	records := make([]MovementRecord, 0, len(lots))
	for _, lot := range lots {
		rec, err := entryRecord(lot, actorEmail, now)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	err := mr.Store.WithTx(ctx, func(s Store) error {
		if err := s.AppendDocument(ctx, doc); err != nil {
			return err
		}
		for i, lot := range lots {
			if err := s.AppendLot(ctx, *lot); err != nil {
				return err
			}
			if err := s.AppendMovement(ctx, records[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		mr.Repo.Invalidate()
		return nil, &StorageError{Op: fmt.Sprintf("register document %s", doc.ID), Err: err}
	}

	mr.Repo.Invalidate()
	return records, nil
}

// entryRecord builds the initial ENTRY for a new lot and sets the lot's
// balance to its initial quantity.
func entryRecord(lot *StockLot, actorEmail string, at time.Time) (MovementRecord, error) {
	if lot.InitialQuantity.IsNegative() {
		return MovementRecord{}, &ValidationError{Field: "initialQuantity", Message: "must not be negative"}
	}
	if actorEmail == "" {
		return MovementRecord{}, &ValidationError{Field: "actorEmail", Message: "must not be empty"}
	}

	lot.CurrentBalance = lot.InitialQuantity
	return MovementRecord{
		ID:          NewEntryID(),
		Timestamp:   at,
		Kind:        MovementEntry,
		DocumentID:  lot.DocumentID,
		LotID:       lot.ID,
		ProductName: lot.ProductName,
		Quantity:    lot.InitialQuantity,
		TotalValue:  lot.InitialQuantity.Mul(lot.UnitValue),
		ActorEmail:  actorEmail,
		Note:        "initial stock entry",
	}, nil
}
