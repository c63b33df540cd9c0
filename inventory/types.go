/*
Package inventory provides the core warehouse stock engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking stock
  lots, allocating outgoing distributions against them, and maintaining an
  auditable movement ledger with reversal support.

KEY CONCEPTS IN THIS FILE (types.go):
  - StockLot: One batch of a product, created from a commitment document
  - MovementRecord: An immutable ledger entry (ENTRY, EXIT, REVERSAL)
  - CommitmentDocument: The purchase document a group of lots came in on
  - DistributionPlan: An ephemeral FIFO allocation, computed before commit
  - User/Role: The trusted actor identity consulted by the access policy

DESIGN PRINCIPLES:
  1. Immutability: Movements are never modified, only compensated
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing lot/movement IDs
  4. Auditability: Every balance change has an actor and a paired record

SEE ALSO:
  - allocation.go: FIFO distribution planning
  - recorder.go: Committing plans and entries to the ledger
  - reversal.go: Compensating reversals
  - policy.go: Role-to-operation access policy
*/
package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type LotID string
type MovementID string
type DocumentID string

// ID prefixes are carried over from the legacy spreadsheet exports so that
// migrated rows and new rows stay distinguishable by eye.
func NewLotID() LotID           { return LotID("LOT-" + uuid.NewString()) }
func NewExitID() MovementID     { return MovementID("MOV-" + uuid.NewString()) }
func NewEntryID() MovementID    { return MovementID("MOV-IN-" + uuid.NewString()) }
func NewReversalID() MovementID { return MovementID("REV-" + uuid.NewString()) }

// =============================================================================
// STOCK LOT - One batch of a product
// =============================================================================

// StockLot is a single batch of a product, created exactly once when its
// commitment document is registered and never deleted. Only CurrentBalance
// mutates afterwards: decremented by exits, incremented by reversals.
//
// INVARIANT: 0 <= CurrentBalance <= InitialQuantity.
type StockLot struct {
	ID          LotID
	DocumentID  DocumentID
	ProductName string

	// Unit of measure (e.g. "ream", "box") and units per package.
	Unit          string
	QtyPerPackage decimal.Decimal

	// Monetary value per unit at purchase time.
	UnitValue decimal.Decimal

	InitialQuantity  decimal.Decimal
	CurrentBalance   decimal.Decimal
	MinimumThreshold decimal.Decimal

	// CreatedAt determines FIFO consumption order (oldest lot drains first).
	CreatedAt time.Time
}

// LowStock reports whether the lot has drained to its alert threshold.
func (l StockLot) LowStock() bool {
	return l.CurrentBalance.LessThanOrEqual(l.MinimumThreshold)
}

// =============================================================================
// MOVEMENT RECORD - Immutable, append-only ledger entry
// =============================================================================

type MovementKind string

const (
	MovementEntry    MovementKind = "ENTRY"
	MovementExit     MovementKind = "EXIT"
	MovementReversal MovementKind = "REVERSAL"
)

// MovementRecord is one entry in the append-only movement ledger.
//
// INVARIANTS:
//   - Quantity, TotalValue, Kind, and LotID never change after creation.
//   - IsReversed transitions false -> true exactly once, and only on the
//     original EXIT when a REVERSAL targeting it is accepted.
//
// A REVERSAL references the original EXIT's lot/product/quantity but is a
// distinct record with its own ID. The original stays in the ledger, flagged.
type MovementRecord struct {
	ID        MovementID
	Timestamp time.Time
	Kind      MovementKind

	DocumentID DocumentID
	LotID      LotID

	// ProductName is a denormalized snapshot taken at record time,
	// never re-derived from the lot.
	ProductName string

	Quantity   decimal.Decimal
	TotalValue decimal.Decimal // Quantity x unit value at record time

	ActorEmail string
	Note       string
	ReceiptURL string

	IsReversed bool
}

// =============================================================================
// COMMITMENT DOCUMENT - Groups lots registered together
// =============================================================================

type DocumentStatus string

const (
	DocumentOpen   DocumentStatus = "OPEN"
	DocumentClosed DocumentStatus = "CLOSED"
)

// CommitmentDocument groups one or more stock lots registered together.
// Its ID is the document number assigned by the purchasing side.
type CommitmentDocument struct {
	ID         DocumentID
	Supplier   string
	Date       time.Time
	Status     DocumentStatus
	TotalValue decimal.Decimal
}

// =============================================================================
// DISTRIBUTION PLAN - Ephemeral allocation output (never persisted)
// =============================================================================

// AllocationLine is one lot draw within a distribution plan. UnitValue is
// captured at planning time so the committed EXIT values what was planned.
type AllocationLine struct {
	LotID      LotID
	DocumentID DocumentID
	Quantity   decimal.Decimal
	UnitValue  decimal.Decimal
}

// DistributionPlan is the allocation engine's output. It exists only between
// computation and confirmation; committing it produces the actual records.
//
// INVARIANT (conservation): sum of line quantities + UnsatisfiedQuantity
// always equals RequestedQuantity.
type DistributionPlan struct {
	ProductName       string
	RequestedQuantity decimal.Decimal
	Lines             []AllocationLine

	// UnsatisfiedQuantity > 0 means the request cannot be fully met and the
	// plan must not be committed.
	UnsatisfiedQuantity decimal.Decimal
}

// Satisfiable reports whether the plan covers the full requested quantity.
func (p *DistributionPlan) Satisfiable() bool {
	return p.UnsatisfiedQuantity.IsZero()
}

// TotalAllocated returns the sum of all line quantities.
func (p *DistributionPlan) TotalAllocated() decimal.Decimal {
	total := decimal.Zero
	for _, line := range p.Lines {
		total = total.Add(line.Quantity)
	}
	return total
}

// TotalValue returns the monetary value of the plan at planned unit values.
func (p *DistributionPlan) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, line := range p.Lines {
		total = total.Add(line.Quantity.Mul(line.UnitValue))
	}
	return total
}

// =============================================================================
// USERS - Trusted actor identity (no authentication, role is a label)
// =============================================================================

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleOperator Role = "OPERATOR"
)

// User is a warehouse actor. Email is the immutable identity key.
type User struct {
	Email  string
	Name   string
	Role   Role
	Active bool
}

// =============================================================================
// REGISTRATION INPUTS - What the boundary submits for a new document
// =============================================================================

// DocumentInput describes a commitment document being registered.
type DocumentInput struct {
	Number   string
	Supplier string
	Date     time.Time
}

// LotInput describes one incoming lot on a commitment document.
type LotInput struct {
	ProductName      string
	Unit             string
	QtyPerPackage    decimal.Decimal
	UnitValue        decimal.Decimal
	InitialQuantity  decimal.Decimal
	MinimumThreshold decimal.Decimal
}
