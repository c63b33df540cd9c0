/*
handlers.go - HTTP API handlers for the stock engine

PURPOSE:
  Exposes the inventory engine via REST API. Handles HTTP request/response,
  JSON serialization, actor resolution, and the access-policy check, then
  delegates to the service.

ENDPOINTS:
  Stock:
    GET    /api/lots                    List stock lots (oldest first)
    GET    /api/stock/consolidated      Total balance per product
    GET    /api/dashboard               Headline statistics

  Distributions:
    POST   /api/distributions/plan      Compute a FIFO plan (read-only)
    POST   /api/distributions           Commit a confirmed plan

  Ledger:
    GET    /api/movements               Movement history (newest first)
    POST   /api/movements/{id}/reverse  Compensate an exit

  Documents:
    GET    /api/documents               List commitment documents
    POST   /api/documents               Register document + lots + entries

  Users:
    GET    /api/users                   List user profiles
    GET    /api/users/current           Resolve the acting user
    POST   /api/users                   Upsert a user profile

ACTOR RESOLUTION:
  The acting user is identified by the X-Actor-Email header. The role is a
  trusted label looked up from the user table - there is no authentication,
  matching the system's scope. Every entry point consults the access
  policy via requireActor before touching the engine.

ERROR HANDLING:
  Domain errors map to HTTP status in one switch (writeDomainError):
  - 400: Validation errors
  - 403: Authorization denials
  - 404: Missing records
  - 409: Insufficient stock, stale allocations, invalid reversals,
         integrity violations
  - 500: Storage and unknown failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/stock-engine/inventory"
)

// actorHeader carries the acting user's email on every request.
const actorHeader = "X-Actor-Email"

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Svc *inventory.Service
	Log zerolog.Logger
}

// NewHandler creates a handler around the inventory service.
func NewHandler(svc *inventory.Service, log zerolog.Logger) *Handler {
	return &Handler{Svc: svc, Log: log.With().Str("component", "api").Logger()}
}

// requireActor resolves the acting user and checks the access policy for
// the operation. Writes the error response itself and returns ok=false on
// denial, so handlers can bail with a bare return.
func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request, op inventory.Operation) (inventory.User, bool) {
	user, err := h.Svc.CurrentUser(r.Context(), r.Header.Get(actorHeader))
	if err != nil {
		if inventory.IsNotFound(err) {
			writeError(w, http.StatusForbidden, "No active user available", err)
		} else {
			writeError(w, http.StatusInternalServerError, "Failed to resolve actor", err)
		}
		return inventory.User{}, false
	}

	if err := inventory.Authorize(user, op); err != nil {
		writeDomainError(w, err)
		return inventory.User{}, false
	}
	return user, true
}

// =============================================================================
// STOCK HANDLERS
// =============================================================================

// ListLots returns all stock lots, oldest first.
func (h *Handler) ListLots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.Svc.Lots(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list lots", err)
		return
	}

	dtos := make([]LotDTO, len(lots))
	for i, lot := range lots {
		dtos[i] = toLotDTO(lot)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetConsolidatedStock returns total balance per product with stock left.
func (h *Handler) GetConsolidatedStock(w http.ResponseWriter, r *http.Request) {
	stock, err := h.Svc.ConsolidatedStock(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to consolidate stock", err)
		return
	}

	dtos := make([]ConsolidatedStockDTO, len(stock))
	for i, item := range stock {
		dtos[i] = ConsolidatedStockDTO{
			ProductName:  item.ProductName,
			TotalBalance: item.TotalBalance,
			Unit:         item.Unit,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetDashboard returns headline warehouse statistics.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, inventory.OpViewReports); !ok {
		return
	}

	stats, err := h.Svc.DashboardStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute statistics", err)
		return
	}

	dto := DashboardDTO{
		TotalStockValue: stats.TotalStockValue,
		TotalItems:      stats.TotalItems,
		LowStockCount:   stats.LowStockCount,
		MonthlyOutflow:  make([]MonthlyOutflowDTO, 0, len(stats.MonthlyOutflow)),
		TopProducts:     make([]ProductUsageDTO, 0, len(stats.TopProducts)),
	}
	for _, m := range stats.MonthlyOutflow {
		dto.MonthlyOutflow = append(dto.MonthlyOutflow, MonthlyOutflowDTO{Month: m.Month, Value: m.Value})
	}
	for _, p := range stats.TopProducts {
		dto.TopProducts = append(dto.TopProducts, ProductUsageDTO{ProductName: p.ProductName, Consumed: p.Consumed})
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// DISTRIBUTION HANDLERS
// =============================================================================

// PlanDistribution computes a FIFO plan. Read-only; nothing is reserved.
func (h *Handler) PlanDistribution(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, inventory.OpRunDistribution); !ok {
		return
	}

	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	plan, err := h.Svc.PlanDistribution(r.Context(), req.ProductName, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(plan))
}

// CommitDistribution commits a confirmed plan as exit movements.
func (h *Handler) CommitDistribution(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r, inventory.OpRunDistribution)
	if !ok {
		return
	}

	var req CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	records, err := h.Svc.CommitDistribution(r.Context(), fromPlanDTO(req.Plan), actor.Email, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]MovementDTO, len(records))
	for i, rec := range records {
		dtos[i] = toMovementDTO(rec)
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// ListMovements returns the movement ledger, newest first.
func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := h.Svc.Movements(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list movements", err)
		return
	}

	dtos := make([]MovementDTO, len(movements))
	for i, rec := range movements {
		dtos[i] = toMovementDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReverseMovement compensates a previously committed exit.
func (h *Handler) ReverseMovement(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r, inventory.OpReverseExit)
	if !ok {
		return
	}

	movementID := inventory.MovementID(chi.URLParam(r, "id"))
	rec, err := h.Svc.ReverseExit(r.Context(), movementID, actor.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMovementDTO(rec))
}

// =============================================================================
// DOCUMENT HANDLERS
// =============================================================================

// ListDocuments returns all commitment documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Svc.Documents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list documents", err)
		return
	}

	dtos := make([]DocumentDTO, len(docs))
	for i, doc := range docs {
		dtos[i] = toDocumentDTO(doc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RegisterDocument registers a commitment document with its lots, creating
// the initial entries atomically.
func (h *Handler) RegisterDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r, inventory.OpRegisterDocument)
	if !ok {
		return
	}

	var req RegisterDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	items := make([]inventory.LotInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = inventory.LotInput{
			ProductName:      item.ProductName,
			Unit:             item.Unit,
			QtyPerPackage:    item.QtyPerPackage,
			UnitValue:        item.UnitValue,
			InitialQuantity:  item.InitialQuantity,
			MinimumThreshold: item.MinimumThreshold,
		}
	}

	doc, err := h.Svc.RegisterCommitmentDocument(r.Context(), inventory.DocumentInput{
		Number:   req.Number,
		Supplier: req.Supplier,
		Date:     date,
	}, items, actor.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentDTO(doc))
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all user profiles.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Svc.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, user := range users {
		dtos[i] = toUserDTO(user, false)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentUser resolves the acting user and their allowed operations.
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Svc.CurrentUser(r.Context(), r.Header.Get(actorHeader))
	if err != nil {
		if inventory.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "No active user available", err)
		} else {
			writeError(w, http.StatusInternalServerError, "Failed to resolve user", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user, true))
}

// SaveUser upserts a user profile. Admin only.
func (h *Handler) SaveUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r, inventory.OpManageUsers); !ok {
		return
	}

	var req SaveUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user := inventory.User{
		Email:  req.Email,
		Name:   req.Name,
		Role:   inventory.Role(req.Role),
		Active: req.Active,
	}
	if err := h.Svc.SaveUser(r.Context(), user); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user, false))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError is the single mapping from engine errors to HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventory.ErrValidation):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	case errors.Is(err, inventory.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "Operation not permitted", err)
	case errors.Is(err, inventory.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, inventory.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "Insufficient stock", err)
	case errors.Is(err, inventory.ErrStaleAllocation):
		writeError(w, http.StatusConflict, "Stock changed since planning, please re-plan", err)
	case errors.Is(err, inventory.ErrInvalidReversal):
		writeError(w, http.StatusConflict, "Cannot reverse movement", err)
	case errors.Is(err, inventory.ErrLedgerIntegrity):
		writeError(w, http.StatusConflict, "Ledger integrity violation", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
