/*
errors.go - Centralized error types for the stock engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Callers match with errors.Is/errors.As; the HTTP boundary maps these
  to status codes in one switch.

ERROR CATEGORIES:
  1. Validation errors  - Bad input, rejected before any mutation
  2. Allocation errors  - Insufficient or stale stock at commit time
  3. Reversal errors    - Invalid compensation targets
  4. Authorization      - Actor's role lacks the operation
  5. Storage errors     - Transport/parse failures from the external store

All mutating operations are all-or-nothing: no error path leaves a partial
set of movement records or a balance update without its paired record.

SEE ALSO:
  - recorder.go: Raises allocation errors
  - reversal.go: Raises reversal and integrity errors
  - policy.go: Raises authorization errors
*/
package inventory

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all bad-input failures.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientStock is returned when a plan's unsatisfied quantity is
	// nonzero at commit time.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrStaleAllocation is returned when a lot's balance changed between
	// planning and commit such that the allocation no longer fits. The caller
	// must re-plan; commits never auto-replan.
	ErrStaleAllocation = errors.New("stale allocation")

	// ErrInvalidReversal is returned when the reversal target is missing,
	// already reversed, or not an EXIT.
	ErrInvalidReversal = errors.New("invalid reversal")

	// ErrUnauthorized is returned when the actor's role lacks the operation.
	ErrUnauthorized = errors.New("operation not permitted for role")

	// ErrLedgerIntegrity is returned when a mutation would break the
	// balance <= initial invariant. This signals external tampering and is
	// reported, never silently clamped.
	ErrLedgerIntegrity = errors.New("ledger integrity violation")

	// ErrStorage wraps transport or parse failures from the external store.
	ErrStorage = errors.New("storage failure")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("record not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a rejected input field. No state is mutated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InsufficientStockError provides details about a stock shortage.
type InsufficientStockError struct {
	ProductName string
	Requested   decimal.Decimal
	Available   decimal.Decimal
	Shortfall   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock of %q: requested %v, available %v, short %v",
		e.ProductName, e.Requested, e.Available, e.Shortfall)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// StaleAllocationError reports a lot whose balance moved under the plan.
type StaleAllocationError struct {
	LotID     LotID
	Planned   decimal.Decimal
	Available decimal.Decimal
}

func (e *StaleAllocationError) Error() string {
	return fmt.Sprintf("stale allocation on lot %s: planned %v but only %v available, re-plan required",
		e.LotID, e.Planned, e.Available)
}

func (e *StaleAllocationError) Unwrap() error { return ErrStaleAllocation }

// InvalidReversalError explains why a reversal target was rejected.
type InvalidReversalError struct {
	MovementID MovementID
	Reason     string
}

func (e *InvalidReversalError) Error() string {
	return fmt.Sprintf("cannot reverse movement %s: %s", e.MovementID, e.Reason)
}

func (e *InvalidReversalError) Unwrap() error { return ErrInvalidReversal }

// AuthorizationError reports a policy denial. Raised before any other
// validation runs.
type AuthorizationError struct {
	ActorEmail string
	Role       Role
	Operation  Operation
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s (%s) is not allowed to %s", e.ActorEmail, e.Role, e.Operation)
}

func (e *AuthorizationError) Unwrap() error { return ErrUnauthorized }

// LedgerIntegrityError reports a balance that would exceed the lot's
// initial quantity if the mutation were applied.
type LedgerIntegrityError struct {
	LotID    LotID
	Balance  decimal.Decimal
	Restored decimal.Decimal
	Initial  decimal.Decimal
}

func (e *LedgerIntegrityError) Error() string {
	return fmt.Sprintf("lot %s balance %v would become %v, exceeding initial quantity %v",
		e.LotID, e.Balance, e.Restored, e.Initial)
}

func (e *LedgerIntegrityError) Unwrap() error { return ErrLedgerIntegrity }

// StorageError wraps an underlying store failure. Surfaced as a generic
// failure; the user re-triggers manually, there is no automatic retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return ErrStorage }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input or
// a condition the client can resolve by retrying with fresh data.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrStaleAllocation) ||
		errors.Is(err, ErrInvalidReversal)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
