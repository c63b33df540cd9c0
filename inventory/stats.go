/*
stats.go - Reporting projections over the lot ledger

PURPOSE:
  Read-only aggregations served to the dashboard and reports screens:
  total stock value, low-stock alerts, monthly outflow of exits, most
  consumed products, and the per-product consolidated stock view.

All projections skip reversed exits: a compensated distribution never
counts as outflow.
*/
package inventory

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DashboardStats is the headline view of the warehouse.
type DashboardStats struct {
	TotalStockValue decimal.Decimal
	TotalItems      int
	LowStockCount   int
	MonthlyOutflow  []MonthlyOutflow
	TopProducts     []ProductUsage
}

// MonthlyOutflow is the total EXIT value for one month (key "2006-01").
type MonthlyOutflow struct {
	Month string
	Value decimal.Decimal
}

// ProductUsage is the consumed quantity (initial minus balance) per product.
type ProductUsage struct {
	ProductName string
	Consumed    decimal.Decimal
}

// ConsolidatedStock is the total balance per product name across all lots.
type ConsolidatedStock struct {
	ProductName  string
	TotalBalance decimal.Decimal
	Unit         string
}

// computeStats builds dashboard statistics from a snapshot.
func computeStats(snap *Snapshot) DashboardStats {
	stats := DashboardStats{TotalStockValue: decimal.Zero, TotalItems: len(snap.Lots)}

	consumed := make(map[string]decimal.Decimal)
	for _, lot := range snap.Lots {
		stats.TotalStockValue = stats.TotalStockValue.Add(lot.CurrentBalance.Mul(lot.UnitValue))
		if lot.LowStock() {
			stats.LowStockCount++
		}
		used := lot.InitialQuantity.Sub(lot.CurrentBalance)
		consumed[lot.ProductName] = consumed[lot.ProductName].Add(used)
	}

	// Monthly outflow: non-reversed exits grouped by month.
	monthly := make(map[string]decimal.Decimal)
	for _, m := range snap.Movements {
		if m.Kind != MovementExit || m.IsReversed {
			continue
		}
		key := m.Timestamp.Format("2006-01")
		monthly[key] = monthly[key].Add(m.TotalValue)
	}
	for month, value := range monthly {
		stats.MonthlyOutflow = append(stats.MonthlyOutflow, MonthlyOutflow{Month: month, Value: value})
	}
	sort.Slice(stats.MonthlyOutflow, func(i, j int) bool {
		return stats.MonthlyOutflow[i].Month < stats.MonthlyOutflow[j].Month
	})

	// Top five products by consumed quantity, name as tie-breaker.
	for name, qty := range consumed {
		stats.TopProducts = append(stats.TopProducts, ProductUsage{ProductName: name, Consumed: qty})
	}
	sort.Slice(stats.TopProducts, func(i, j int) bool {
		if !stats.TopProducts[i].Consumed.Equal(stats.TopProducts[j].Consumed) {
			return stats.TopProducts[i].Consumed.GreaterThan(stats.TopProducts[j].Consumed)
		}
		return stats.TopProducts[i].ProductName < stats.TopProducts[j].ProductName
	})
	if len(stats.TopProducts) > 5 {
		stats.TopProducts = stats.TopProducts[:5]
	}

	return stats
}

// consolidateStock sums balances per product name, keeping only products
// with stock left, sorted by name.
func consolidateStock(snap *Snapshot) []ConsolidatedStock {
	byName := make(map[string]*ConsolidatedStock)
	var order []string

	for _, lot := range snap.Lots {
		entry, ok := byName[lot.ProductName]
		if !ok {
			entry = &ConsolidatedStock{ProductName: lot.ProductName, Unit: lot.Unit}
			byName[lot.ProductName] = entry
			order = append(order, lot.ProductName)
		}
		entry.TotalBalance = entry.TotalBalance.Add(lot.CurrentBalance)
	}

	sort.Strings(order)
	var result []ConsolidatedStock
	for _, name := range order {
		if byName[name].TotalBalance.IsPositive() {
			result = append(result, *byName[name])
		}
	}
	return result
}
