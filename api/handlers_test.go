/*
handlers_test.go - HTTP-level tests for the API

Covers:
- Plan -> commit distribution flow end to end
- Access policy enforcement at the boundary (403s)
- Document registration and movement reversal
- Actor resolution via the X-Actor-Email header
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-engine/api"
	"github.com/warp/stock-engine/inventory"
	"github.com/warp/stock-engine/inventory/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	adminEmail    = "admin@warehouse.test"
	managerEmail  = "manager@warehouse.test"
	operatorEmail = "operator@warehouse.test"
)

func qtyD(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestServer(t *testing.T) (*httptest.Server, *inventory.Service) {
	t.Helper()
	mem := store.NewTxMemory()
	svc := inventory.NewService(mem, zerolog.Nop())

	ctx := context.Background()
	require.NoError(t, svc.SaveUser(ctx, inventory.User{Email: adminEmail, Name: "Admin", Role: inventory.RoleAdmin, Active: true}))
	require.NoError(t, svc.SaveUser(ctx, inventory.User{Email: managerEmail, Name: "Manager", Role: inventory.RoleManager, Active: true}))
	require.NoError(t, svc.SaveUser(ctx, inventory.User{Email: operatorEmail, Name: "Operator", Role: inventory.RoleOperator, Active: true}))

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(svc, zerolog.Nop())))
	t.Cleanup(srv.Close)
	return srv, svc
}

// call sends a JSON request with the given actor and decodes the response.
func call(t *testing.T, srv *httptest.Server, method, path, actor string, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-Actor-Email", actor)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func registerTestDocument(t *testing.T, srv *httptest.Server) api.DocumentDTO {
	t.Helper()
	req := api.RegisterDocumentRequest{
		Number:   "DOC-2026-001",
		Supplier: "Office Supplies Inc",
		Date:     "2026-03-01",
		Items: []api.DocumentItemRequest{
			{ProductName: "Paper Ream", Unit: "ream", QtyPerPackage: qtyD("500"), UnitValue: qtyD("10.0"), InitialQuantity: qtyD("20"), MinimumThreshold: qtyD("5")},
			{ProductName: "Marker", Unit: "unit", QtyPerPackage: qtyD("1"), UnitValue: qtyD("2.0"), InitialQuantity: qtyD("12"), MinimumThreshold: qtyD("3")},
		},
	}

	var doc api.DocumentDTO
	status := call(t, srv, http.MethodPost, "/api/documents", managerEmail, req, &doc)
	require.Equal(t, http.StatusCreated, status)
	return doc
}

// =============================================================================
// DISTRIBUTION FLOW
// =============================================================================

func TestAPI_PlanThenCommitDistribution(t *testing.T) {
	// GIVEN: 20 Paper Reams in stock, an operator actor
	// WHEN: Planning 8 units, then committing the echoed plan
	// THEN: 201 with one EXIT record; the lot list shows balance 12

	srv, _ := newTestServer(t)
	registerTestDocument(t, srv)

	var plan api.PlanDTO
	status := call(t, srv, http.MethodPost, "/api/distributions/plan", operatorEmail,
		api.PlanRequest{ProductName: "Paper Ream", Quantity: qtyD("8")}, &plan)
	require.Equal(t, http.StatusOK, status)
	require.True(t, plan.Satisfiable)
	require.Len(t, plan.Lines, 1)

	var records []api.MovementDTO
	status = call(t, srv, http.MethodPost, "/api/distributions", operatorEmail,
		api.CommitRequest{Plan: plan, Note: "site request"}, &records)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, records, 1)
	assert.Equal(t, "EXIT", records[0].Kind)
	assert.Equal(t, operatorEmail, records[0].ActorEmail)
	assert.Equal(t, "site request", records[0].Note)

	var lots []api.LotDTO
	status = call(t, srv, http.MethodGet, "/api/lots", "", nil, &lots)
	require.Equal(t, http.StatusOK, status)
	for _, lot := range lots {
		if lot.ProductName == "Paper Ream" {
			assert.True(t, lot.CurrentBalance.Equal(qtyD("12")))
		}
	}
}

func TestAPI_CommitShortfallPlan_Conflict(t *testing.T) {
	srv, _ := newTestServer(t)
	registerTestDocument(t, srv)

	var plan api.PlanDTO
	status := call(t, srv, http.MethodPost, "/api/distributions/plan", operatorEmail,
		api.PlanRequest{ProductName: "Paper Ream", Quantity: qtyD("100")}, &plan)
	require.Equal(t, http.StatusOK, status)
	require.False(t, plan.Satisfiable)

	var errResp api.ErrorResponse
	status = call(t, srv, http.MethodPost, "/api/distributions", operatorEmail,
		api.CommitRequest{Plan: plan}, &errResp)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Insufficient stock", errResp.Error)
}

func TestAPI_CommitTamperedPlan_BadRequest(t *testing.T) {
	// GIVEN: A commit request whose plan was edited client-side to carry a
	//        negative line quantity
	// WHEN: Committing it as an operator
	// THEN: 400, and the lot balance never rises above its initial quantity

	srv, _ := newTestServer(t)
	registerTestDocument(t, srv)

	var plan api.PlanDTO
	status := call(t, srv, http.MethodPost, "/api/distributions/plan", operatorEmail,
		api.PlanRequest{ProductName: "Paper Ream", Quantity: qtyD("5")}, &plan)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, plan.Lines, 1)

	plan.Lines[0].Quantity = qtyD("-5")
	plan.RequestedQuantity = qtyD("-5")

	var errResp api.ErrorResponse
	status = call(t, srv, http.MethodPost, "/api/distributions", operatorEmail,
		api.CommitRequest{Plan: plan}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)

	var lots []api.LotDTO
	status = call(t, srv, http.MethodGet, "/api/lots", "", nil, &lots)
	require.Equal(t, http.StatusOK, status)
	for _, lot := range lots {
		if lot.ProductName == "Paper Ream" {
			assert.True(t, lot.CurrentBalance.Equal(qtyD("20")), "balance must not rise")
		}
	}
}

func TestAPI_PlanValidation_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	var errResp api.ErrorResponse
	status := call(t, srv, http.MethodPost, "/api/distributions/plan", operatorEmail,
		api.PlanRequest{ProductName: "", Quantity: qtyD("5")}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
}

// =============================================================================
// ACCESS POLICY AT THE BOUNDARY
// =============================================================================

func TestAPI_OperatorCannotReverse(t *testing.T) {
	// GIVEN: A committed exit and an operator actor
	// WHEN: The operator tries to reverse it
	// THEN: 403, and the manager succeeds afterwards

	srv, svc := newTestServer(t)
	registerTestDocument(t, srv)

	plan, err := svc.PlanDistribution(context.Background(), "Marker", qtyD("4"))
	require.NoError(t, err)
	records, err := svc.CommitDistribution(context.Background(), plan, operatorEmail, "")
	require.NoError(t, err)

	path := "/api/movements/" + string(records[0].ID) + "/reverse"

	var errResp api.ErrorResponse
	status := call(t, srv, http.MethodPost, path, operatorEmail, nil, &errResp)
	assert.Equal(t, http.StatusForbidden, status)

	var rev api.MovementDTO
	status = call(t, srv, http.MethodPost, path, managerEmail, nil, &rev)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "REVERSAL", rev.Kind)
}

func TestAPI_OperatorCannotRegisterDocuments(t *testing.T) {
	srv, _ := newTestServer(t)

	req := api.RegisterDocumentRequest{
		Number: "DOC-X", Supplier: "S", Date: "2026-03-01",
		Items: []api.DocumentItemRequest{{ProductName: "P", InitialQuantity: qtyD("1")}},
	}

	var errResp api.ErrorResponse
	status := call(t, srv, http.MethodPost, "/api/documents", operatorEmail, req, &errResp)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAPI_OperatorCannotManageUsers(t *testing.T) {
	srv, _ := newTestServer(t)

	req := api.SaveUserRequest{Email: "new@warehouse.test", Name: "New", Role: "OPERATOR", Active: true}

	status := call(t, srv, http.MethodPost, "/api/users", operatorEmail, req, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status = call(t, srv, http.MethodPost, "/api/users", adminEmail, req, nil)
	assert.Equal(t, http.StatusOK, status)
}

// =============================================================================
// REVERSAL EDGE CASES OVER HTTP
// =============================================================================

func TestAPI_DoubleReversal_Conflict(t *testing.T) {
	srv, svc := newTestServer(t)
	registerTestDocument(t, srv)

	plan, err := svc.PlanDistribution(context.Background(), "Marker", qtyD("4"))
	require.NoError(t, err)
	records, err := svc.CommitDistribution(context.Background(), plan, operatorEmail, "")
	require.NoError(t, err)

	path := "/api/movements/" + string(records[0].ID) + "/reverse"
	status := call(t, srv, http.MethodPost, path, managerEmail, nil, nil)
	require.Equal(t, http.StatusCreated, status)

	var errResp api.ErrorResponse
	status = call(t, srv, http.MethodPost, path, managerEmail, nil, &errResp)
	assert.Equal(t, http.StatusConflict, status)
}

func TestAPI_ReverseUnknownMovement_Conflict(t *testing.T) {
	srv, _ := newTestServer(t)

	var errResp api.ErrorResponse
	status := call(t, srv, http.MethodPost, "/api/movements/MOV-nope/reverse", managerEmail, nil, &errResp)
	assert.Equal(t, http.StatusConflict, status)
}

// =============================================================================
// USERS AND REPORTS
// =============================================================================

func TestAPI_CurrentUser_FallsBackToAdmin(t *testing.T) {
	srv, _ := newTestServer(t)

	var user api.UserDTO
	status := call(t, srv, http.MethodGet, "/api/users/current", "stranger@nowhere.test", nil, &user)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, adminEmail, user.Email)
	assert.Contains(t, user.Operations, "manage_users")
}

func TestAPI_Dashboard_RequiresReportsPermission(t *testing.T) {
	srv, _ := newTestServer(t)
	registerTestDocument(t, srv)

	status := call(t, srv, http.MethodGet, "/api/dashboard", operatorEmail, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var dash api.DashboardDTO
	status = call(t, srv, http.MethodGet, "/api/dashboard", managerEmail, nil, &dash)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, dash.TotalItems)
	assert.True(t, dash.TotalStockValue.Equal(qtyD("224.0")))
}

func TestAPI_ConsolidatedStock(t *testing.T) {
	srv, _ := newTestServer(t)
	registerTestDocument(t, srv)

	var stock []api.ConsolidatedStockDTO
	status := call(t, srv, http.MethodGet, "/api/stock/consolidated", "", nil, &stock)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, stock, 2)
	assert.Equal(t, "Marker", stock[0].ProductName)
	assert.Equal(t, "Paper Ream", stock[1].ProductName)
}
