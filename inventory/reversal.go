/*
reversal.go - Compensating reversals of exit movements

PURPOSE:
  Locates a prior EXIT, restores the affected lot's balance, and appends a
  compensating REVERSAL record. This is compensation, not deletion: the
  original EXIT stays in the ledger, flagged is_reversed, for audit.

PRECONDITIONS (fail with InvalidReversalError otherwise):
  - the target record exists
  - it is an EXIT (reversing a REVERSAL or ENTRY is rejected)
  - it has not been reversed already

INTEGRITY:
  Restoring the quantity must keep balance <= initial quantity. If an
  external mutation already restored the balance, that is a ledger
  integrity violation and the reversal is rejected, never clamped.

SEE ALSO:
  - recorder.go: The forward write path being compensated
*/
package inventory

import (
	"context"
	"fmt"
	"time"
)

// ReversalProcessor undoes committed exits via compensating records.
type ReversalProcessor struct {
	Store TxStore
	Repo  *Repository
}

func NewReversalProcessor(store TxStore, repo *Repository) *ReversalProcessor {
	return &ReversalProcessor{Store: store, Repo: repo}
}

// Reverse compensates the EXIT identified by movementID. On success the
// original record is flagged, a REVERSAL record with the same lot, product,
// and quantity is appended, and the lot's balance is restored - all in one
// atomic batch.
func (rp *ReversalProcessor) Reverse(ctx context.Context, movementID MovementID, actorEmail string) (MovementRecord, error) {
	if actorEmail == "" {
		return MovementRecord{}, &ValidationError{Field: "actorEmail", Message: "must not be empty"}
	}

	snap, err := rp.Repo.Refresh(ctx)
	if err != nil {
		return MovementRecord{}, err
	}

	original := snap.MovementByID(movementID)
	switch {
	case original == nil:
		return MovementRecord{}, &InvalidReversalError{MovementID: movementID, Reason: "movement does not exist"}
	case original.Kind != MovementExit:
		return MovementRecord{}, &InvalidReversalError{
			MovementID: movementID,
			Reason:     fmt.Sprintf("only EXIT movements can be reversed, this is %s", original.Kind),
		}
	case original.IsReversed:
		return MovementRecord{}, &InvalidReversalError{MovementID: movementID, Reason: "already reversed"}
	}

	lot := snap.LotByID(original.LotID)
	if lot == nil {
		return MovementRecord{}, &StorageError{Op: "reverse", Err: fmt.Errorf("lot %s referenced by %s is missing", original.LotID, movementID)}
	}

	restored := lot.CurrentBalance.Add(original.Quantity)
	if restored.GreaterThan(lot.InitialQuantity) {
		return MovementRecord{}, &LedgerIntegrityError{
			LotID:    lot.ID,
			Balance:  lot.CurrentBalance,
			Restored: restored,
			Initial:  lot.InitialQuantity,
		}
	}

	reversal := MovementRecord{
		ID:          NewReversalID(),
		Timestamp:   time.Now().UTC(),
		Kind:        MovementReversal,
		DocumentID:  original.DocumentID,
		LotID:       original.LotID,
		ProductName: original.ProductName,
		Quantity:    original.Quantity,
		TotalValue:  original.TotalValue,
		ActorEmail:  actorEmail,
		Note:        fmt.Sprintf("reversal of exit %s", original.ID),
	}

	err = rp.Store.WithTx(ctx, func(s Store) error {
		if err := s.SetMovementReversed(ctx, original.ID); err != nil {
			return err
		}
		if err := s.AppendMovement(ctx, reversal); err != nil {
			return err
		}
		return s.SetLotBalance(ctx, lot.ID, restored)
	})
	if err != nil {
		rp.Repo.Invalidate()
		return MovementRecord{}, &StorageError{Op: "commit reversal", Err: err}
	}

	rp.Repo.Invalidate()
	return reversal, nil
}
