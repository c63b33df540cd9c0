package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/inventory"
	"github.com/warp/stock-engine/inventory/store"
)

func memLot(id string) inventory.StockLot {
	return inventory.StockLot{
		ID:              inventory.LotID(id),
		DocumentID:      "DOC-1",
		ProductName:     "Marker",
		Unit:            "unit",
		UnitValue:       decimal.NewFromInt(2),
		InitialQuantity: decimal.NewFromInt(10),
		CurrentBalance:  decimal.NewFromInt(10),
		CreatedAt:       time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMemory_DuplicateIDs_Rejected(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.AppendLot(ctx, memLot("LOT-A")))
	assert.Error(t, mem.AppendLot(ctx, memLot("LOT-A")))

	rec := inventory.MovementRecord{ID: "MOV-1", Kind: inventory.MovementEntry, LotID: "LOT-A"}
	require.NoError(t, mem.AppendMovement(ctx, rec))
	assert.Error(t, mem.AppendMovement(ctx, rec))
}

func TestMemory_LoadAll_ReturnsIndependentCopy(t *testing.T) {
	// GIVEN: A stored lot
	// WHEN: Mutating the snapshot returned by LoadAll
	// THEN: The store's data is unaffected

	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.AppendLot(ctx, memLot("LOT-A")))

	snap, err := mem.LoadAll(ctx)
	require.NoError(t, err)
	snap.Lots[0].CurrentBalance = decimal.NewFromInt(-99)

	fresh, err := mem.LoadAll(ctx)
	require.NoError(t, err)
	assert.True(t, fresh.Lots[0].CurrentBalance.Equal(decimal.NewFromInt(10)))
}

func TestTxMemory_Rollback_OnError(t *testing.T) {
	// GIVEN: A transaction that writes a lot, a movement, and a balance change
	// WHEN: The transaction function returns an error at the end
	// THEN: None of the writes survive

	mem := store.NewTxMemory()
	ctx := context.Background()
	require.NoError(t, mem.AppendLot(ctx, memLot("LOT-A")))

	boom := errors.New("boom")
	err := mem.WithTx(ctx, func(s inventory.Store) error {
		if err := s.AppendLot(ctx, memLot("LOT-B")); err != nil {
			return err
		}
		if err := s.AppendMovement(ctx, inventory.MovementRecord{ID: "MOV-1", Kind: inventory.MovementExit, LotID: "LOT-A"}); err != nil {
			return err
		}
		if err := s.SetLotBalance(ctx, "LOT-A", decimal.NewFromInt(3)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	snap, err := mem.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Lots, 1)
	assert.Empty(t, snap.Movements)
	assert.True(t, snap.Lots[0].CurrentBalance.Equal(decimal.NewFromInt(10)), "balance change rolled back")

	// The store still accepts LOT-B afterwards; the index rolled back too.
	assert.NoError(t, mem.AppendLot(ctx, memLot("LOT-B")))
}

func TestTxMemory_Commit_OnSuccess(t *testing.T) {
	mem := store.NewTxMemory()
	ctx := context.Background()

	err := mem.WithTx(ctx, func(s inventory.Store) error {
		if err := s.AppendDocument(ctx, inventory.CommitmentDocument{ID: "DOC-1", Status: inventory.DocumentOpen}); err != nil {
			return err
		}
		return s.AppendLot(ctx, memLot("LOT-A"))
	})
	require.NoError(t, err)

	snap, err := mem.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Documents, 1)
	assert.Len(t, snap.Lots, 1)
}

func TestMemory_SaveUser_Upserts(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	user := inventory.User{Email: "x@warehouse.test", Name: "X", Role: inventory.RoleOperator, Active: true}
	require.NoError(t, mem.SaveUser(ctx, user))
	user.Role = inventory.RoleManager
	require.NoError(t, mem.SaveUser(ctx, user))

	snap, err := mem.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Users, 1)
	assert.Equal(t, inventory.RoleManager, snap.Users[0].Role)
}

func TestMemory_SetOperations_UnknownIDs(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	assert.Error(t, mem.SetLotBalance(ctx, "LOT-nope", decimal.Zero))
	assert.Error(t, mem.SetMovementReversed(ctx, "MOV-nope"))
}
