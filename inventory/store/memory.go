// Package store provides inventory.Store implementations.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	lots      []inventory.StockLot
	movements []inventory.MovementRecord
	documents []inventory.CommitmentDocument
	users     []inventory.User

	lotIndex      map[inventory.LotID]int
	movementIndex map[inventory.MovementID]int
	userIndex     map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		lotIndex:      make(map[inventory.LotID]int),
		movementIndex: make(map[inventory.MovementID]int),
		userIndex:     make(map[string]int),
	}
}

// LoadAll returns a deep copy of the dataset.
func (m *Memory) LoadAll(_ context.Context) (*inventory.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := &inventory.Snapshot{
		Lots:      make([]inventory.StockLot, len(m.lots)),
		Movements: make([]inventory.MovementRecord, len(m.movements)),
		Documents: make([]inventory.CommitmentDocument, len(m.documents)),
		Users:     make([]inventory.User, len(m.users)),
	}
	copy(snap.Lots, m.lots)
	copy(snap.Movements, m.movements)
	copy(snap.Documents, m.documents)
	copy(snap.Users, m.users)
	return snap, nil
}

func (m *Memory) AppendLot(_ context.Context, lot inventory.StockLot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLotLocked(lot)
}

func (m *Memory) appendLotLocked(lot inventory.StockLot) error {
	if _, exists := m.lotIndex[lot.ID]; exists {
		return fmt.Errorf("lot %s already exists", lot.ID)
	}
	m.lotIndex[lot.ID] = len(m.lots)
	m.lots = append(m.lots, lot)
	return nil
}

func (m *Memory) AppendMovement(_ context.Context, rec inventory.MovementRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendMovementLocked(rec)
}

func (m *Memory) appendMovementLocked(rec inventory.MovementRecord) error {
	if _, exists := m.movementIndex[rec.ID]; exists {
		return fmt.Errorf("movement %s already exists", rec.ID)
	}
	m.movementIndex[rec.ID] = len(m.movements)
	m.movements = append(m.movements, rec)
	return nil
}

func (m *Memory) AppendDocument(_ context.Context, doc inventory.CommitmentDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendDocumentLocked(doc)
}

func (m *Memory) appendDocumentLocked(doc inventory.CommitmentDocument) error {
	for _, existing := range m.documents {
		if existing.ID == doc.ID {
			return fmt.Errorf("document %s already exists", doc.ID)
		}
	}
	m.documents = append(m.documents, doc)
	return nil
}

func (m *Memory) SetLotBalance(_ context.Context, id inventory.LotID, balance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setLotBalanceLocked(id, balance)
}

func (m *Memory) setLotBalanceLocked(id inventory.LotID, balance decimal.Decimal) error {
	i, ok := m.lotIndex[id]
	if !ok {
		return fmt.Errorf("lot %s not found", id)
	}
	m.lots[i].CurrentBalance = balance
	return nil
}

func (m *Memory) SetMovementReversed(_ context.Context, id inventory.MovementID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setMovementReversedLocked(id)
}

func (m *Memory) setMovementReversedLocked(id inventory.MovementID) error {
	i, ok := m.movementIndex[id]
	if !ok {
		return fmt.Errorf("movement %s not found", id)
	}
	m.movements[i].IsReversed = true
	return nil
}

func (m *Memory) SaveUser(_ context.Context, user inventory.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUserLocked(user)
}

func (m *Memory) saveUserLocked(user inventory.User) error {
	if i, ok := m.userIndex[user.Email]; ok {
		m.users[i] = user
		return nil
	}
	m.userIndex[user.Email] = len(m.users)
	m.users = append(m.users, user)
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction. For the memory store this is
// simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(inventory.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	saved := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(saved)
		return err
	}
	return nil
}

type memorySnapshot struct {
	lots      []inventory.StockLot
	movements []inventory.MovementRecord
	documents []inventory.CommitmentDocument
	users     []inventory.User

	lotIndex      map[inventory.LotID]int
	movementIndex map[inventory.MovementID]int
	userIndex     map[string]int
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		lots:          append([]inventory.StockLot{}, tm.lots...),
		movements:     append([]inventory.MovementRecord{}, tm.movements...),
		documents:     append([]inventory.CommitmentDocument{}, tm.documents...),
		users:         append([]inventory.User{}, tm.users...),
		lotIndex:      make(map[inventory.LotID]int, len(tm.lotIndex)),
		movementIndex: make(map[inventory.MovementID]int, len(tm.movementIndex)),
		userIndex:     make(map[string]int, len(tm.userIndex)),
	}
	for k, v := range tm.lotIndex {
		s.lotIndex[k] = v
	}
	for k, v := range tm.movementIndex {
		s.movementIndex[k] = v
	}
	for k, v := range tm.userIndex {
		s.userIndex[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.lots = s.lots
	tm.movements = s.movements
	tm.documents = s.documents
	tm.users = s.users
	tm.lotIndex = s.lotIndex
	tm.movementIndex = s.movementIndex
	tm.userIndex = s.userIndex
}

// txMemoryView forwards writes to the already-locked parent.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) LoadAll(_ context.Context) (*inventory.Snapshot, error) {
	snap := &inventory.Snapshot{
		Lots:      append([]inventory.StockLot{}, tv.parent.lots...),
		Movements: append([]inventory.MovementRecord{}, tv.parent.movements...),
		Documents: append([]inventory.CommitmentDocument{}, tv.parent.documents...),
		Users:     append([]inventory.User{}, tv.parent.users...),
	}
	return snap, nil
}

func (tv *txMemoryView) AppendLot(_ context.Context, lot inventory.StockLot) error {
	return tv.parent.appendLotLocked(lot)
}

func (tv *txMemoryView) AppendMovement(_ context.Context, rec inventory.MovementRecord) error {
	return tv.parent.appendMovementLocked(rec)
}

func (tv *txMemoryView) AppendDocument(_ context.Context, doc inventory.CommitmentDocument) error {
	return tv.parent.appendDocumentLocked(doc)
}

func (tv *txMemoryView) SetLotBalance(_ context.Context, id inventory.LotID, balance decimal.Decimal) error {
	return tv.parent.setLotBalanceLocked(id, balance)
}

func (tv *txMemoryView) SetMovementReversed(_ context.Context, id inventory.MovementID) error {
	return tv.parent.setMovementReversedLocked(id)
}

func (tv *txMemoryView) SaveUser(_ context.Context, user inventory.User) error {
	return tv.parent.saveUserLocked(user)
}
