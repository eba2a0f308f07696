package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painel/internal/core"
	"painel/internal/middleware/ratelimit"
	"painel/internal/services"
	"painel/internal/sheets/memory"
)

type brokenSource struct{}

func (brokenSource) ReadRows(context.Context) ([]core.RawRow, error) {
	return nil, errors.New("sheets API: 503")
}

func testRows() []core.RawRow {
	return []core.RawRow{
		{Row: 2, DateText: "05/01/2024", Description: "Salário", Category: "Salário", AmountText: "R$ 5.000,00", KindText: "Receita"},
		{Row: 3, DateText: "10/01/2024", Description: "Aluguel", Category: "Moradia", AmountText: "1.500,00", KindText: "Despesa"},
		{Row: 4, DateText: "15/01/2024", Description: "Celular", Category: "Eletrônicos", AmountText: "900,00", KindText: "Despesa", InstallmentText: "3"},
		{Row: 5, DateText: "05/02/2024", Description: "Salário", Category: "Salário", AmountText: "5.000,00", KindText: "Receita"},
		{Row: 6, DateText: "20/02/2024", Description: "Tesouro", Category: "Investimento", AmountText: "1.000,00", KindText: "Despesa"},
		{Row: 7, DateText: "sem data", Description: "Perdido", Category: "Outros", AmountText: "10,00", KindText: "Despesa"},
	}
}

func newTestServer(t *testing.T, opts ServerOptions) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New(testRows())
	svc := services.NewDashboardService(services.Options{Source: store, Settings: store, Backend: "memory"})
	srv := NewServer(":0", svc, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, ServerOptions{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, ServerOptions{})

	rr := do(t, srv, http.MethodGet, "/api/dashboard?month=2024-01", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	var body struct {
		Months []struct {
			Month string `json:"month"`
		} `json:"months"`
		Latest struct {
			Month string `json:"month"`
		} `json:"latest"`
		Focus struct {
			Month      string `json:"month"`
			ByCategory []struct {
				Name string `json:"name"`
			} `json:"by_category"`
		} `json:"focus"`
		Undated         []json.RawMessage `json:"undated"`
		AvailableMonths []string          `json:"available_months"`
		Display         struct {
			TotalIncome string `json:"total_income"`
		} `json:"display"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	// the 3x installment runs into March
	require.Len(t, body.Months, 3)
	assert.Equal(t, "2024-03", body.Latest.Month)
	assert.Equal(t, "2024-01", body.Focus.Month)
	require.Len(t, body.Focus.ByCategory, 2)
	assert.Equal(t, "Moradia", body.Focus.ByCategory[0].Name)
	assert.Len(t, body.Undated, 1)
	assert.Equal(t, []string{"2024-03", "2024-02", "2024-01"}, body.AvailableMonths)
	assert.Equal(t, core.FormatBRL(decimal.NewFromInt(10000)), body.Display.TotalIncome)
}

func TestMonthsAndFocusEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, ServerOptions{})

	rr := do(t, srv, http.MethodGet, "/api/months?rate=0&achieved=100", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var months monthsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &months))
	assert.Len(t, months.Months, 3)
	assert.Zero(t, months.MonthlyRate)
	assert.Equal(t, 0.0, months.Settings.AnnualRate)

	rr = do(t, srv, http.MethodGet, "/api/focus?month=1999-01", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var focus focusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &focus))
	require.NotNil(t, focus.Focus)
	assert.Equal(t, core.MonthKey("2024-03"), focus.Focus.Month, "unknown month falls back to the latest")
}

func TestTransactionsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, ServerOptions{})

	rr := do(t, srv, http.MethodGet, "/api/transactions?start=01/02/2024&end=29/02/2024", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var res transactionsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, 3, res.Count)

	rr = do(t, srv, http.MethodGet, "/api/transactions?start=31/12/2024&end=01/01/2024", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, 7, res.Count, "inverted range returns everything")
}

func TestBackendFailureIsBadGateway(t *testing.T) {
	svc := services.NewDashboardService(services.Options{Source: brokenSource{}})
	srv := NewServer(":0", svc, ServerOptions{})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := do(t, srv, http.MethodGet, "/api/dashboard", "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, ServerOptions{})

	rr := do(t, srv, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"annual_rate":11.25`)

	rr = do(t, srv, http.MethodPut, "/api/settings", `{"annual_rate": 10}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"annual_rate":10`)

	rr = do(t, srv, http.MethodPut, "/api/settings", `{"annual_rate": -100}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, srv, http.MethodPut, "/api/settings", `{"annual_rate": `)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNonFiniteRatesNeverBreakTheDashboard(t *testing.T) {
	srv, _ := newTestServer(t, ServerOptions{})

	rr := do(t, srv, http.MethodGet, "/api/dashboard?rate=NaN&achieved=Inf", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"annual_rate":11.25`)

	req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader("annual_rate=NaN"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	put := httptest.NewRecorder()
	srv.Handler.ServeHTTP(put, req)
	assert.Equal(t, http.StatusBadRequest, put.Code)

	rr = do(t, srv, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"annual_rate":11.25`)
}

func TestSettingsWithoutStore(t *testing.T) {
	svc := services.NewDashboardService(services.Options{Source: memory.New(testRows())})
	srv := NewServer(":0", svc, ServerOptions{})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := do(t, srv, http.MethodPut, "/api/settings", `{"annual_rate": 10}`)
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestRefreshIsRateLimited(t *testing.T) {
	srv, _ := newTestServer(t, ServerOptions{RateLimit: ratelimit.Config{Requests: 1}})

	rr := do(t, srv, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Contains(t, rr.Body.String(), `"published":false`)

	rr = do(t, srv, http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, ServerOptions{})
	rr := do(t, srv, http.MethodDelete, "/api/dashboard", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, ServerOptions{})
	do(t, srv, http.MethodGet, "/healthz", "")

	rr := do(t, srv, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"backend":"memory"`)
	assert.Contains(t, rr.Body.String(), `"total_requests":1`)
}
