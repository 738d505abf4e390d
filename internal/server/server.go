// Package server exposes the workflows, catalog and analytics over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"workmate/internal/agent"
	"workmate/internal/auth"
	"workmate/internal/config"
	"workmate/internal/log"
	"workmate/internal/repository"
	"workmate/internal/store"
)

const apiVersion = "1.0.0"

// TaskRunner runs one task through the simple agent.
type TaskRunner interface {
	Run(ctx context.Context, task string) (*agent.SimpleResult, error)
}

// WorkflowRunner runs one query through the multi-agent workflow.
type WorkflowRunner interface {
	Run(ctx context.Context, query string) (*agent.MultiResult, error)
}

// Analyzer runs the product analysis pipeline.
type Analyzer interface {
	AnalyzeProduct(ctx context.Context, product agent.ProductInput, analysisType string) (*agent.AnalysisResult, error)
	AnalyzeProductByID(ctx context.Context, id string) (*agent.AnalysisResult, error)
}

// ProductStore is the catalog surface the handlers need.
type ProductStore interface {
	Create(ctx context.Context, product *repository.Product) (*repository.Product, error)
	GetByID(ctx context.Context, id string) (*repository.Product, error)
	List(ctx context.Context, limit, offset int) ([]*repository.Product, error)
	Update(ctx context.Context, product *repository.Product) (*repository.Product, error)
	Delete(ctx context.Context, id string) error
}

// OrderStore is the order and analytics surface the handlers need.
type OrderStore interface {
	Create(ctx context.Context, order *repository.Order) (*repository.Order, error)
	GetByID(ctx context.Context, id string) (*repository.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber int64) (*repository.Order, error)
	List(ctx context.Context, limit, offset int) ([]*repository.Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]*repository.Order, error)
	ListByStatus(ctx context.Context, status string) ([]*repository.Order, error)
	UpdateStatus(ctx context.Context, id, status string) (*repository.Order, error)
	TotalUnitsSoldPerProduct(ctx context.Context) ([]*repository.ProductSales, error)
	TotalRevenuePerProduct(ctx context.Context) ([]*repository.ProductRevenue, error)
	TopSellingProductsByUnitsSold(ctx context.Context, limit int) ([]*repository.TopProduct, error)
	SalesByMonth(ctx context.Context, year int) ([]*repository.MonthlySales, error)
}

// Pinger reports database liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries the collaborators a server is built from. Nil fields
// disable the routes that would need them.
type Options struct {
	Settings *config.Settings
	Logger   *log.Logger
	Simple   TaskRunner
	Multi    WorkflowRunner
	Analyzer Analyzer
	Products ProductStore
	Orders   OrderStore
	Runs     store.Store
	DB       Pinger
	Auth     *auth.Manager
}

// Server is the HTTP front of the backend.
type Server struct {
	opts   Options
	engine *gin.Engine
}

// New builds the gin engine and mounts all routes.
func New(opts Options) *Server {
	if !opts.Settings.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
	engine.Use(cors.New(corsConfig))

	s := &Server{opts: opts, engine: engine}
	s.mountRoutes()
	return s
}

// Engine exposes the router, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) mountRoutes() {
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/api/test", s.handleTest)

	ai := s.engine.Group("/api/ai")
	{
		ai.POST("/run", s.handleRunTask)
		ai.POST("/workflow", s.handleRunWorkflow)
		ai.POST("/analyze-product", s.handleAnalyzeProduct)
		ai.GET("/analyze-product/:id", s.handleAnalyzeProductByID)
		ai.GET("/units-sold/analysis/:limit", s.handleUnitsSoldAnalysis)
		ai.GET("/runs/:id", s.handleGetRun)
		ai.GET("/threads/:thread_id/runs", s.handleListThreadRuns)
	}

	// Data routes carry the JWT guard when a secret is configured.
	guard := func(c *gin.Context) { c.Next() }
	if s.opts.Auth != nil && s.opts.Settings.JWTSecret != "" {
		guard = s.opts.Auth.Middleware()
	}

	products := s.engine.Group("/api/products", guard)
	{
		products.POST("", s.handleCreateProduct)
		products.GET("", s.handleListProducts)
		products.GET("/units-sold", s.handleUnitsSoldPerProduct)
		products.GET("/revenue", s.handleRevenuePerProduct)
		products.GET("/:id", s.handleGetProduct)
		products.PUT("/:id", s.handleUpdateProduct)
		products.DELETE("/:id", s.handleDeleteProduct)
	}

	orders := s.engine.Group("/api/orders", guard)
	{
		orders.POST("", s.handleCreateOrder)
		orders.GET("", s.handleListOrders)
		orders.GET("/analytics/sales-by-month", s.handleSalesByMonth)
		orders.GET("/customer/:customer_id", s.handleOrdersByCustomer)
		orders.GET("/status/:status", s.handleOrdersByStatus)
		orders.GET("/:id", s.handleGetOrder)
		orders.PUT("/:id/status", s.handleUpdateOrderStatus)
	}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.opts.Settings.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.opts.Logger.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to Workmate Backend API",
		"version": apiVersion,
		"status":  "running",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.opts.DB == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "not configured",
			"message":  "API is running without a database",
		})
		return
	}
	if err := s.opts.DB.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "error",
			"message":  fmt.Sprintf("Database error: %v", err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
		"message":  "API and database are running",
	})
}

func (s *Server) handleTest(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "API is working!",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
