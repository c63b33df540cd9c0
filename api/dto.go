/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DECIMAL FIELDS:
  Quantities and monetary values use shopspring/decimal, which accepts
  both JSON numbers and strings on input and marshals as strings, so
  clients never see float rounding in balances.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/stock-engine/inventory"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// LotDTO represents a stock lot in API responses.
type LotDTO struct {
	ID               string          `json:"id"`
	DocumentID       string          `json:"document_id"`
	ProductName      string          `json:"product_name"`
	Unit             string          `json:"unit"`
	QtyPerPackage    decimal.Decimal `json:"qty_per_package"`
	UnitValue        decimal.Decimal `json:"unit_value"`
	InitialQuantity  decimal.Decimal `json:"initial_quantity"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
	LowStock         bool            `json:"low_stock"`
	CreatedAt        string          `json:"created_at"`
}

// MovementDTO represents a ledger record in API responses.
type MovementDTO struct {
	ID          string          `json:"id"`
	Timestamp   string          `json:"timestamp"`
	Kind        string          `json:"kind"`
	DocumentID  string          `json:"document_id"`
	LotID       string          `json:"lot_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	TotalValue  decimal.Decimal `json:"total_value"`
	ActorEmail  string          `json:"actor_email"`
	Note        string          `json:"note,omitempty"`
	ReceiptURL  string          `json:"receipt_url,omitempty"`
	IsReversed  bool            `json:"is_reversed"`
}

// DocumentDTO represents a commitment document in API responses.
type DocumentDTO struct {
	ID         string          `json:"id"`
	Supplier   string          `json:"supplier"`
	Date       string          `json:"date"`
	Status     string          `json:"status"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// UserDTO represents a user profile in API responses.
type UserDTO struct {
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	Role       string   `json:"role"`
	Active     bool     `json:"active"`
	Operations []string `json:"operations,omitempty"`
}

// PlanDTO is the allocation engine's output, echoed back on commit.
type PlanDTO struct {
	ProductName         string              `json:"product_name"`
	RequestedQuantity   decimal.Decimal     `json:"requested_quantity"`
	Lines               []AllocationLineDTO `json:"lines"`
	UnsatisfiedQuantity decimal.Decimal     `json:"unsatisfied_quantity"`
	Satisfiable         bool                `json:"satisfiable"`
	TotalValue          decimal.Decimal     `json:"total_value"`
}

// AllocationLineDTO is one lot draw within a plan.
type AllocationLineDTO struct {
	LotID      string          `json:"lot_id"`
	DocumentID string          `json:"document_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitValue  decimal.Decimal `json:"unit_value"`
}

// ConsolidatedStockDTO is the per-product stock summary.
type ConsolidatedStockDTO struct {
	ProductName  string          `json:"product_name"`
	TotalBalance decimal.Decimal `json:"total_balance"`
	Unit         string          `json:"unit"`
}

// DashboardDTO is the headline statistics view.
type DashboardDTO struct {
	TotalStockValue decimal.Decimal     `json:"total_stock_value"`
	TotalItems      int                 `json:"total_items"`
	LowStockCount   int                 `json:"low_stock_count"`
	MonthlyOutflow  []MonthlyOutflowDTO `json:"monthly_outflow"`
	TopProducts     []ProductUsageDTO   `json:"top_products"`
}

type MonthlyOutflowDTO struct {
	Month string          `json:"month"`
	Value decimal.Decimal `json:"value"`
}

type ProductUsageDTO struct {
	ProductName string          `json:"product_name"`
	Consumed    decimal.Decimal `json:"consumed"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// PlanRequest asks the allocation engine for a distribution plan.
type PlanRequest struct {
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// CommitRequest commits a previously computed plan.
type CommitRequest struct {
	Plan PlanDTO `json:"plan"`
	Note string  `json:"note"`
}

// RegisterDocumentRequest registers a commitment document with its lots.
type RegisterDocumentRequest struct {
	Number   string                `json:"number"`
	Supplier string                `json:"supplier"`
	Date     string                `json:"date"` // YYYY-MM-DD
	Items    []DocumentItemRequest `json:"items"`
}

// DocumentItemRequest is one incoming lot line on a document.
type DocumentItemRequest struct {
	ProductName      string          `json:"product_name"`
	Unit             string          `json:"unit"`
	QtyPerPackage    decimal.Decimal `json:"qty_per_package"`
	UnitValue        decimal.Decimal `json:"unit_value"`
	InitialQuantity  decimal.Decimal `json:"initial_quantity"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
}

// SaveUserRequest upserts a user profile.
type SaveUserRequest struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toLotDTO(lot inventory.StockLot) LotDTO {
	return LotDTO{
		ID:               string(lot.ID),
		DocumentID:       string(lot.DocumentID),
		ProductName:      lot.ProductName,
		Unit:             lot.Unit,
		QtyPerPackage:    lot.QtyPerPackage,
		UnitValue:        lot.UnitValue,
		InitialQuantity:  lot.InitialQuantity,
		CurrentBalance:   lot.CurrentBalance,
		MinimumThreshold: lot.MinimumThreshold,
		LowStock:         lot.LowStock(),
		CreatedAt:        lot.CreatedAt.Format(time.RFC3339),
	}
}

func toMovementDTO(rec inventory.MovementRecord) MovementDTO {
	return MovementDTO{
		ID:          string(rec.ID),
		Timestamp:   rec.Timestamp.Format(time.RFC3339),
		Kind:        string(rec.Kind),
		DocumentID:  string(rec.DocumentID),
		LotID:       string(rec.LotID),
		ProductName: rec.ProductName,
		Quantity:    rec.Quantity,
		TotalValue:  rec.TotalValue,
		ActorEmail:  rec.ActorEmail,
		Note:        rec.Note,
		ReceiptURL:  rec.ReceiptURL,
		IsReversed:  rec.IsReversed,
	}
}

func toDocumentDTO(doc inventory.CommitmentDocument) DocumentDTO {
	return DocumentDTO{
		ID:         string(doc.ID),
		Supplier:   doc.Supplier,
		Date:       doc.Date.Format("2006-01-02"),
		Status:     string(doc.Status),
		TotalValue: doc.TotalValue,
	}
}

func toUserDTO(user inventory.User, withOps bool) UserDTO {
	dto := UserDTO{
		Email:  user.Email,
		Name:   user.Name,
		Role:   string(user.Role),
		Active: user.Active,
	}
	if withOps {
		for _, op := range inventory.Operations(user.Role) {
			dto.Operations = append(dto.Operations, string(op))
		}
	}
	return dto
}

func toPlanDTO(plan *inventory.DistributionPlan) PlanDTO {
	dto := PlanDTO{
		ProductName:         plan.ProductName,
		RequestedQuantity:   plan.RequestedQuantity,
		Lines:               make([]AllocationLineDTO, 0, len(plan.Lines)),
		UnsatisfiedQuantity: plan.UnsatisfiedQuantity,
		Satisfiable:         plan.Satisfiable(),
		TotalValue:          plan.TotalValue(),
	}
	for _, line := range plan.Lines {
		dto.Lines = append(dto.Lines, AllocationLineDTO{
			LotID:      string(line.LotID),
			DocumentID: string(line.DocumentID),
			Quantity:   line.Quantity,
			UnitValue:  line.UnitValue,
		})
	}
	return dto
}

func fromPlanDTO(dto PlanDTO) *inventory.DistributionPlan {
	plan := &inventory.DistributionPlan{
		ProductName:         dto.ProductName,
		RequestedQuantity:   dto.RequestedQuantity,
		UnsatisfiedQuantity: dto.UnsatisfiedQuantity,
	}
	for _, line := range dto.Lines {
		plan.Lines = append(plan.Lines, inventory.AllocationLine{
			LotID:      inventory.LotID(line.LotID),
			DocumentID: inventory.DocumentID(line.DocumentID),
			Quantity:   line.Quantity,
			UnitValue:  line.UnitValue,
		})
	}
	return plan
}
