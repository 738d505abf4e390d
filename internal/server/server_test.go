package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workmate/internal/agent"
	"workmate/internal/auth"
	"workmate/internal/config"
	"workmate/internal/repository"
	"workmate/internal/store"
)

type stubSimple struct {
	result *agent.SimpleResult
	err    error
	gotTask string
}

func (s *stubSimple) Run(_ context.Context, task string) (*agent.SimpleResult, error) {
	s.gotTask = task
	return s.result, s.err
}

type stubMulti struct {
	result *agent.MultiResult
	err    error
}

func (s *stubMulti) Run(_ context.Context, query string) (*agent.MultiResult, error) {
	return s.result, s.err
}

type stubAnalyzer struct {
	result *agent.AnalysisResult
	err    error
	gotID  string
}

func (s *stubAnalyzer) AnalyzeProduct(_ context.Context, _ agent.ProductInput, _ string) (*agent.AnalysisResult, error) {
	return s.result, s.err
}

func (s *stubAnalyzer) AnalyzeProductByID(_ context.Context, id string) (*agent.AnalysisResult, error) {
	s.gotID = id
	return s.result, s.err
}

type stubProducts struct {
	product *repository.Product
	err     error
}

func (s *stubProducts) Create(_ context.Context, p *repository.Product) (*repository.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	p.ID = "p1"
	return p, nil
}

func (s *stubProducts) GetByID(_ context.Context, _ string) (*repository.Product, error) {
	return s.product, s.err
}

func (s *stubProducts) List(_ context.Context, _, _ int) ([]*repository.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.product == nil {
		return []*repository.Product{}, nil
	}
	return []*repository.Product{s.product}, nil
}

func (s *stubProducts) Update(_ context.Context, p *repository.Product) (*repository.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return p, nil
}

func (s *stubProducts) Delete(_ context.Context, _ string) error {
	return s.err
}

type stubOrders struct {
	order *repository.Order
	top   []*repository.TopProduct
	sales []*repository.MonthlySales
	err   error
	gotLimit int
}

func (s *stubOrders) Create(_ context.Context, o *repository.Order) (*repository.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	o.ID = "o1"
	return o, nil
}

func (s *stubOrders) GetByID(_ context.Context, _ string) (*repository.Order, error) {
	return s.order, s.err
}

func (s *stubOrders) GetByOrderNumber(_ context.Context, _ int64) (*repository.Order, error) {
	return s.order, s.err
}

func (s *stubOrders) List(_ context.Context, _, _ int) ([]*repository.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []*repository.Order{s.order}, nil
}

func (s *stubOrders) ListByCustomer(_ context.Context, _ int64) ([]*repository.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []*repository.Order{s.order}, nil
}

func (s *stubOrders) ListByStatus(_ context.Context, _ string) ([]*repository.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []*repository.Order{s.order}, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, _, status string) (*repository.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	updated := *s.order
	updated.FinancialStatus = status
	return &updated, nil
}

func (s *stubOrders) TotalUnitsSoldPerProduct(_ context.Context) ([]*repository.ProductSales, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []*repository.ProductSales{{ProductID: "p1", TotalQuantitySold: 12}}, nil
}

func (s *stubOrders) TotalRevenuePerProduct(_ context.Context) ([]*repository.ProductRevenue, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []*repository.ProductRevenue{{ProductID: "p1", TotalRevenue: 600}}, nil
}

func (s *stubOrders) TopSellingProductsByUnitsSold(_ context.Context, limit int) ([]*repository.TopProduct, error) {
	s.gotLimit = limit
	return s.top, s.err
}

func (s *stubOrders) SalesByMonth(_ context.Context, _ int) ([]*repository.MonthlySales, error) {
	return s.sales, s.err
}

type stubPinger struct{ err error }

func (p *stubPinger) Ping(context.Context) error { return p.err }

func serverSettings() *config.Settings {
	return &config.Settings{
		OpenAIAPIKey:     "sk-test",
		JWTAlgorithm:     "HS256",
		JWTExpireMinutes: 30,
		AppEnv:           config.AppEnvDevelopment,
		Debug:            false,
		LogLevel:         "INFO",
		Port:             8000,
		DefaultModel:     "gpt-4o-mini",
		AdvancedModel:    "gpt-4o",
		Temperature:      0.1,
		MaxIterations:    10,
	}
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if opts.Settings == nil {
		opts.Settings = serverSettings()
	}
	return New(opts)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

func TestRootAndTestEndpoints(t *testing.T) {
	s := newTestServer(t, Options{})

	w := doJSON(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "running", body["status"])

	w = doJSON(t, s, http.MethodGet, "/api/test", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth(t *testing.T) {
	t.Run("no database", func(t *testing.T) {
		s := newTestServer(t, Options{})
		w := doJSON(t, s, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "not configured", decodeBody(t, w)["database"])
	})

	t.Run("database ok", func(t *testing.T) {
		s := newTestServer(t, Options{DB: &stubPinger{}})
		w := doJSON(t, s, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "connected", decodeBody(t, w)["database"])
	})

	t.Run("database down", func(t *testing.T) {
		s := newTestServer(t, Options{DB: &stubPinger{err: errors.New("refused")}})
		w := doJSON(t, s, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", decodeBody(t, w)["status"])
	})
}

func TestRunTask(t *testing.T) {
	simple := &stubSimple{result: &agent.SimpleResult{Task: "t", Result: "done"}}
	runs := store.NewMemoryStore()
	s := newTestServer(t, Options{Simple: simple, Runs: runs})

	w := doJSON(t, s, http.MethodPost, "/api/ai/run", gin.H{"task": "summarize", "thread_id": "th1"})
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "summarize", simple.gotTask)

	// The run landed in the store under its thread.
	runID, _ := body["run_id"].(string)
	require.NotEmpty(t, runID)
	record, err := runs.Get(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, "simple-agent", record.Workflow)
	assert.Equal(t, "th1", record.ThreadID)
	assert.Equal(t, "done", record.State["result"])
}

func TestRunTaskValidation(t *testing.T) {
	s := newTestServer(t, Options{Simple: &stubSimple{}})

	w := doJSON(t, s, http.MethodPost, "/api/ai/run", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["success"])
}

func TestRunTaskAgentFailure(t *testing.T) {
	s := newTestServer(t, Options{Simple: &stubSimple{err: errors.New("model unavailable")}})

	w := doJSON(t, s, http.MethodPost, "/api/ai/run", gin.H{"task": "x"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "model unavailable")
}

func TestRunWorkflow(t *testing.T) {
	multi := &stubMulti{result: &agent.MultiResult{Query: "q", FinalResult: "report"}}
	s := newTestServer(t, Options{Multi: multi})

	w := doJSON(t, s, http.MethodPost, "/api/ai/workflow", gin.H{"query": "research x"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["success"])
}

func TestAnalyzeProduct(t *testing.T) {
	analyzer := &stubAnalyzer{result: &agent.AnalysisResult{ProductName: "Widget", ConfidenceScore: 92}}
	s := newTestServer(t, Options{Analyzer: analyzer})

	w := doJSON(t, s, http.MethodPost, "/api/ai/analyze-product", gin.H{
		"product_data":  gin.H{"name": "Widget", "category": "Tools", "price": 10},
		"analysis_type": "comprehensive",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	analysis, ok := body["analysis"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Widget", analysis["product_name"])
}

func TestAnalyzeProductByID(t *testing.T) {
	analyzer := &stubAnalyzer{result: &agent.AnalysisResult{ProductName: "Widget"}}
	s := newTestServer(t, Options{Analyzer: analyzer})

	w := doJSON(t, s, http.MethodGet, "/api/ai/analyze-product/p1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "p1", analyzer.gotID)
}

func TestUnitsSoldAnalysis(t *testing.T) {
	orders := &stubOrders{top: []*repository.TopProduct{
		{ProductID: "p1", Title: "Widget", TotalQuantitySold: 12},
	}}
	s := newTestServer(t, Options{Orders: orders})

	w := doJSON(t, s, http.MethodGet, "/api/ai/units-sold/analysis/5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, orders.gotLimit)

	// A junk limit falls back to 10.
	doJSON(t, s, http.MethodGet, "/api/ai/units-sold/analysis/zero", nil)
	assert.Equal(t, 10, orders.gotLimit)
}

func TestThreadRuns(t *testing.T) {
	runs := store.NewMemoryStore()
	require.NoError(t, runs.Save(context.Background(), &store.RunRecord{
		ID: "r1", ThreadID: "th1", Workflow: "simple-agent", CreatedAt: time.Now(),
	}))
	s := newTestServer(t, Options{Runs: runs})

	w := doJSON(t, s, http.MethodGet, "/api/ai/threads/th1/runs", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])

	w = doJSON(t, s, http.MethodGet, "/api/ai/runs/r1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/ai/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductCRUD(t *testing.T) {
	products := &stubProducts{product: &repository.Product{ID: "p1", Title: "Widget"}}
	s := newTestServer(t, Options{Products: products})

	w := doJSON(t, s, http.MethodPost, "/api/products", gin.H{"title": "Widget"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/products/p1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])

	w = doJSON(t, s, http.MethodPut, "/api/products/p1", gin.H{"title": "Widget v2"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodDelete, "/api/products/p1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProductNotFound(t *testing.T) {
	products := &stubProducts{err: errors.New("product not found: missing")}
	s := newTestServer(t, Options{Products: products})

	w := doJSON(t, s, http.MethodGet, "/api/products/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["success"])
}

func TestOrderEndpoints(t *testing.T) {
	order := &repository.Order{ID: "o1", OrderNumber: 1001, FinancialStatus: "paid"}
	orders := &stubOrders{
		order: order,
		sales: []*repository.MonthlySales{{Year: 2026, Month: 1, MonthName: "January"}},
	}
	s := newTestServer(t, Options{Orders: orders})

	w := doJSON(t, s, http.MethodPost, "/api/orders", gin.H{"order_number": 1001, "financial_status": "paid"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/orders/o1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/orders/customer/42", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/orders/customer/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/orders/status/paid", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodPut, "/api/orders/o1/status", gin.H{"status": "shipped"})
	assert.Equal(t, http.StatusOK, w.Code)
	data, ok := decodeBody(t, w)["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "shipped", data["financial_status"])

	w = doJSON(t, s, http.MethodGet, "/api/orders/analytics/sales-by-month?year=2026", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/orders/analytics/sales-by-month?year=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductAnalytics(t *testing.T) {
	orders := &stubOrders{}
	s := newTestServer(t, Options{Orders: orders})

	w := doJSON(t, s, http.MethodGet, "/api/products/units-sold", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/products/revenue", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDataRoutesRequireTokenWhenSecretConfigured(t *testing.T) {
	settings := serverSettings()
	settings.JWTSecret = "test-secret"
	manager, err := auth.NewManager(settings)
	require.NoError(t, err)

	products := &stubProducts{product: &repository.Product{ID: "p1", Title: "Widget"}}
	s := newTestServer(t, Options{Settings: settings, Products: products, Auth: manager})

	w := doJSON(t, s, http.MethodGet, "/api/products/p1", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, _, err := manager.Issue("alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/products/p1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// AI routes stay open.
	w = doJSON(t, s, http.MethodGet, "/api/test", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnconfiguredWorkflowReturns503(t *testing.T) {
	s := newTestServer(t, Options{})

	w := doJSON(t, s, http.MethodPost, "/api/ai/run", gin.H{"task": "x"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/ai/workflow", gin.H{"query": "x"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
