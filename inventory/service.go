/*
service.go - The engine façade exposed to the boundary

PURPOSE:
  Wires the allocation engine, movement recorder, and reversal processor
  around one repository and serializes every mutating operation behind a
  single mutex - the in-process analog of the advisory lock the legacy
  system held at its storage boundary for the duration of each request.

OPERATIONS:
  Planning:   PlanDistribution (read-only, lock-free, may see stale data)
  Mutating:   CommitDistribution, ReverseExit, RegisterCommitmentDocument,
              SaveUser (serialized, atomic, invalidate cache)
  Reads:      Lots, Movements, Documents, ConsolidatedStock, DashboardStats
  Identity:   CurrentUser, ListUsers (the boundary enforces the access
              policy; the service only resolves who the actor is)

SEE ALSO:
  - policy.go: Consulted by the boundary before each call here
*/
package inventory

import (
	"context"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service is the single entry point the HTTP boundary talks to.
type Service struct {
	store     TxStore
	repo      *Repository
	engine    *AllocationEngine
	recorder  *MovementRecorder
	reversals *ReversalProcessor
	log       zerolog.Logger

	// mu serializes mutating operations; one logical writer at a time.
	mu sync.Mutex
}

func NewService(store TxStore, log zerolog.Logger) *Service {
	repo := NewRepository(store)
	return &Service{
		store:     store,
		repo:      repo,
		engine:    NewAllocationEngine(repo),
		recorder:  NewMovementRecorder(store, repo),
		reversals: NewReversalProcessor(store, repo),
		log:       log.With().Str("component", "inventory").Logger(),
	}
}

// Repository exposes the cached repository, mainly for boundary reads.
func (s *Service) Repository() *Repository { return s.repo }

// =============================================================================
// DISTRIBUTIONS
// =============================================================================

// PlanDistribution computes a FIFO plan for the requested quantity.
// Read-only; the result is only valid until the next commit.
func (s *Service) PlanDistribution(ctx context.Context, productName string, quantity decimal.Decimal) (*DistributionPlan, error) {
	return s.engine.Plan(ctx, productName, quantity)
}

// CommitDistribution commits a confirmed plan as exit movements.
func (s *Service) CommitDistribution(ctx context.Context, plan *DistributionPlan, actorEmail, note string) ([]MovementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.recorder.CommitExit(ctx, plan, actorEmail, note)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("actor", actorEmail).
		Str("product", plan.ProductName).
		Str("quantity", plan.RequestedQuantity.String()).
		Int("lots", len(records)).
		Msg("distribution committed")
	return records, nil
}

// ReverseExit compensates a previously committed exit.
func (s *Service) ReverseExit(ctx context.Context, movementID MovementID, actorEmail string) (MovementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.reversals.Reverse(ctx, movementID, actorEmail)
	if err != nil {
		return MovementRecord{}, err
	}

	s.log.Info().
		Str("actor", actorEmail).
		Str("movement", string(movementID)).
		Str("reversal", string(rec.ID)).
		Msg("exit reversed")
	return rec, nil
}

// =============================================================================
// DOCUMENT REGISTRATION
// =============================================================================

// RegisterCommitmentDocument registers a document and its lots, creating one
// initial ENTRY per lot, all atomically. Lots are created exactly once here
// and never re-created.
func (s *Service) RegisterCommitmentDocument(ctx context.Context, input DocumentInput, items []LotInput, actorEmail string) (CommitmentDocument, error) {
	if err := validateDocumentInput(input, items); err != nil {
		return CommitmentDocument{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	doc := CommitmentDocument{
		ID:         DocumentID(strings.TrimSpace(input.Number)),
		Supplier:   strings.TrimSpace(input.Supplier),
		Date:       input.Date,
		Status:     DocumentOpen,
		TotalValue: decimal.Zero,
	}

	lots := make([]*StockLot, 0, len(items))
	for _, item := range items {
		doc.TotalValue = doc.TotalValue.Add(item.InitialQuantity.Mul(item.UnitValue))
		lots = append(lots, &StockLot{
			ID:               NewLotID(),
			DocumentID:       doc.ID,
			ProductName:      strings.TrimSpace(item.ProductName),
			Unit:             item.Unit,
			QtyPerPackage:    item.QtyPerPackage,
			UnitValue:        item.UnitValue,
			InitialQuantity:  item.InitialQuantity,
			MinimumThreshold: item.MinimumThreshold,
			CreatedAt:        now,
		})
	}

	if _, err := s.recorder.CommitDocument(ctx, doc, lots, actorEmail); err != nil {
		return CommitmentDocument{}, err
	}

	s.log.Info().
		Str("actor", actorEmail).
		Str("document", string(doc.ID)).
		Int("lots", len(lots)).
		Msg("commitment document registered")
	return doc, nil
}

func validateDocumentInput(input DocumentInput, items []LotInput) error {
	if strings.TrimSpace(input.Number) == "" {
		return &ValidationError{Field: "number", Message: "must not be empty"}
	}
	if strings.TrimSpace(input.Supplier) == "" {
		return &ValidationError{Field: "supplier", Message: "must not be empty"}
	}
	if len(items) == 0 {
		return &ValidationError{Field: "items", Message: "at least one lot is required"}
	}
	for _, item := range items {
		if strings.TrimSpace(item.ProductName) == "" {
			return &ValidationError{Field: "items", Message: "product name must not be empty"}
		}
		if !item.InitialQuantity.IsPositive() {
			return &ValidationError{Field: "items", Message: "initial quantity must be positive for " + item.ProductName}
		}
		if item.UnitValue.IsNegative() {
			return &ValidationError{Field: "items", Message: "unit value must not be negative for " + item.ProductName}
		}
		if item.MinimumThreshold.IsNegative() {
			return &ValidationError{Field: "items", Message: "minimum threshold must not be negative for " + item.ProductName}
		}
	}
	return nil
}

// =============================================================================
// USERS
// =============================================================================

// CurrentUser resolves the acting user by email. An unknown or inactive
// email falls back to the first active admin, so there is always a usable
// actor as long as one active admin exists.
func (s *Service) CurrentUser(ctx context.Context, email string) (User, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return User{}, err
	}

	if email != "" {
		if u := snap.UserByEmail(email); u != nil && u.Active {
			return *u, nil
		}
	}
	for _, u := range snap.Users {
		if u.Role == RoleAdmin && u.Active {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

// ListUsers returns all user profiles.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]User, len(snap.Users))
	copy(users, snap.Users)
	return users, nil
}

// SaveUser upserts a user profile keyed by email.
func (s *Service) SaveUser(ctx context.Context, user User) error {
	if _, err := mail.ParseAddress(user.Email); err != nil {
		return &ValidationError{Field: "email", Message: "must be a valid address"}
	}
	switch user.Role {
	case RoleAdmin, RoleManager, RoleOperator:
	default:
		return &ValidationError{Field: "role", Message: "unknown role " + string(user.Role)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveUser(ctx, user); err != nil {
		return &StorageError{Op: "save user", Err: err}
	}
	s.repo.Invalidate()
	return nil
}

// =============================================================================
// READS
// =============================================================================

// Lots returns all stock lots, oldest first.
func (s *Service) Lots(ctx context.Context) ([]StockLot, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	lots := make([]StockLot, len(snap.Lots))
	copy(lots, snap.Lots)
	sort.Slice(lots, func(i, j int) bool {
		if !lots[i].CreatedAt.Equal(lots[j].CreatedAt) {
			return lots[i].CreatedAt.Before(lots[j].CreatedAt)
		}
		return lots[i].ID < lots[j].ID
	})
	return lots, nil
}

// Movements returns the ledger, newest first.
func (s *Service) Movements(ctx context.Context) ([]MovementRecord, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	movements := make([]MovementRecord, len(snap.Movements))
	copy(movements, snap.Movements)
	sort.Slice(movements, func(i, j int) bool {
		if !movements[i].Timestamp.Equal(movements[j].Timestamp) {
			return movements[i].Timestamp.After(movements[j].Timestamp)
		}
		return movements[i].ID < movements[j].ID
	})
	return movements, nil
}

// Documents returns all commitment documents.
func (s *Service) Documents(ctx context.Context) ([]CommitmentDocument, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]CommitmentDocument, len(snap.Documents))
	copy(docs, snap.Documents)
	return docs, nil
}

// ConsolidatedStock returns total balance per product with stock left.
func (s *Service) ConsolidatedStock(ctx context.Context) ([]ConsolidatedStock, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return consolidateStock(snap), nil
}

// DashboardStats returns the headline warehouse statistics.
func (s *Service) DashboardStats(ctx context.Context) (DashboardStats, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	return computeStats(snap), nil
}
