/*
allocation.go - FIFO distribution planning

PURPOSE:
  Given a product name and a requested quantity, selects which lots to draw
  from and in what amounts. Oldest stock is consumed first: lots are ordered
  by creation time (ties broken by ID for determinism) and drained greedily.

PLANNING IS READ-ONLY:
  Plan() never mutates a lot. It projects against the repository's cached
  snapshot, which may be stale; the movement recorder re-validates every
  line against fresh balances at commit time. Two concurrent plans for the
  same product may overlap - that is resolved at commit, not here.

RESULT GUARANTEE:
  sum(line quantities) + UnsatisfiedQuantity == RequestedQuantity, always.
  A plan with nonzero UnsatisfiedQuantity must not be committed.

SEE ALSO:
  - recorder.go: Commits a plan as EXIT records + balance decrements
*/
package inventory

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// AllocationEngine computes distribution plans against cached stock data.
type AllocationEngine struct {
	Repo *Repository
}

func NewAllocationEngine(repo *Repository) *AllocationEngine {
	return &AllocationEngine{Repo: repo}
}

// Plan computes a FIFO distribution for the requested quantity of a product.
//
// A product with no matching lots yields a plan with zero lines and
// UnsatisfiedQuantity equal to the full request; the caller decides how to
// surface that. A non-positive quantity is a validation error.
func (e *AllocationEngine) Plan(ctx context.Context, productName string, requested decimal.Decimal) (*DistributionPlan, error) {
	productName = strings.TrimSpace(productName)
	if productName == "" {
		return nil, &ValidationError{Field: "productName", Message: "must not be empty"}
	}
	if !requested.IsPositive() {
		return nil, &ValidationError{Field: "requestedQuantity", Message: "must be a positive number"}
	}

	snap, err := e.Repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	// Candidate lots: matching product with stock left, oldest first.
	var candidates []StockLot
	for _, lot := range snap.Lots {
		if lot.ProductName == productName && lot.CurrentBalance.IsPositive() {
			candidates = append(candidates, lot)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})

	plan := &DistributionPlan{
		ProductName:       productName,
		RequestedQuantity: requested,
	}

	remaining := requested
	for _, lot := range candidates {
		if remaining.IsZero() {
			break
		}

		take := decimal.Min(lot.CurrentBalance, remaining)
		plan.Lines = append(plan.Lines, AllocationLine{
			LotID:      lot.ID,
			DocumentID: lot.DocumentID,
			Quantity:   take,
			UnitValue:  lot.UnitValue,
		})
		remaining = remaining.Sub(take)
	}

	plan.UnsatisfiedQuantity = remaining
	return plan, nil
}
