/*
store.go - Persistence interface for lots, movements, documents, and users

PURPOSE:
  Defines the contract between the engine and the external store. The
  legacy deployment persisted through a row-oriented spreadsheet backend;
  this interface treats storage as an opaque row store where each call is
  atomic at the storage boundary.

KEY INTERFACES:
  Store:   Row-level operations (full snapshot read, appends, field sets)
  TxStore: Store plus WithTx for atomic multi-row mutations

APPEND-ONLY CONTRACT:
  Movements are append-only. The only permitted update is flipping
  is_reversed on an EXIT, exactly once, via SetMovementReversed.
  Lots are never deleted; only their current balance is rewritten.

ATOMIC BATCHES:
  WithTx ensures all-or-nothing semantics. Committing a three-lot
  distribution writes three movements and three balance updates, or
  nothing. This is what keeps the ledger and balances paired.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - inventory/store: In-memory store for testing/dev

SEE ALSO:
  - repository.go: Cached snapshot reads on top of Store
*/
package inventory

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SNAPSHOT - Full dataset read
// =============================================================================

// Snapshot is a point-in-time copy of the whole dataset. Mutating a snapshot
// never affects the store.
type Snapshot struct {
	Lots      []StockLot
	Movements []MovementRecord
	Documents []CommitmentDocument
	Users     []User
}

// LotByID returns a pointer into the snapshot's lot slice, or nil.
func (s *Snapshot) LotByID(id LotID) *StockLot {
	for i := range s.Lots {
		if s.Lots[i].ID == id {
			return &s.Lots[i]
		}
	}
	return nil
}

// MovementByID returns a pointer into the snapshot's movement slice, or nil.
func (s *Snapshot) MovementByID(id MovementID) *MovementRecord {
	for i := range s.Movements {
		if s.Movements[i].ID == id {
			return &s.Movements[i]
		}
	}
	return nil
}

// UserByEmail returns a pointer into the snapshot's user slice, or nil.
func (s *Snapshot) UserByEmail(email string) *User {
	for i := range s.Users {
		if s.Users[i].Email == email {
			return &s.Users[i]
		}
	}
	return nil
}

// =============================================================================
// STORE - Row operations, each atomic at the storage boundary
// =============================================================================

// Store handles persistence. Each call is atomic; multi-call mutations go
// through TxStore.WithTx.
type Store interface {
	// LoadAll returns a full snapshot of lots, movements, documents, users.
	LoadAll(ctx context.Context) (*Snapshot, error)

	// AppendLot persists a new lot. Fails if the ID exists; lots are
	// created exactly once and never re-created.
	AppendLot(ctx context.Context, lot StockLot) error

	// AppendMovement persists a new ledger record. Append-only.
	AppendMovement(ctx context.Context, rec MovementRecord) error

	// AppendDocument persists a new commitment document.
	AppendDocument(ctx context.Context, doc CommitmentDocument) error

	// SetLotBalance rewrites a lot's current balance. Fails if the lot
	// doesn't exist. Invariant checks happen above the store.
	SetLotBalance(ctx context.Context, id LotID, balance decimal.Decimal) error

	// SetMovementReversed flips is_reversed to true on a movement.
	// The false -> true transition is one-way.
	SetMovementReversed(ctx context.Context, id MovementID) error

	// SaveUser upserts a user profile keyed by email.
	SaveUser(ctx context.Context, user User) error
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic multi-row mutations
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn against a transactional view of the store.
	// If fn returns an error, every write inside it is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
