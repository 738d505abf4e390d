// Package repository persists the product catalog and order history in
// PostgreSQL and answers the sales-analytics queries the AI endpoints are
// built on. Line items and variants are stored as JSONB documents.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBPool defines the interface for a database connection pool.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// NewPool opens a pgx connection pool for the given connection string.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return pool, nil
}

// ProductVariant is one purchasable variant of a product.
type ProductVariant struct {
	VariantID         int64   `json:"variant_id"`
	SKU               string  `json:"sku"`
	Price             float64 `json:"price"`
	InventoryQuantity int     `json:"inventory_quantity"`
}

// Product is a catalog entry.
type Product struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Vendor    string           `json:"vendor"`
	Tags      []string         `json:"tags"`
	Variants  []ProductVariant `json:"variants"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// OrderLineItem is one purchased product inside an order.
type OrderLineItem struct {
	ProductID string  `json:"product_id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order is one placed order.
type Order struct {
	ID              string          `json:"id"`
	OrderNumber     int64           `json:"order_number"`
	CustomerID      int64           `json:"customer_id"`
	Email           string          `json:"email"`
	FinancialStatus string          `json:"financial_status"`
	Currency        string          `json:"currency"`
	SubtotalPrice   float64         `json:"subtotal_price"`
	TotalPrice      float64         `json:"total_price"`
	TotalTax        float64         `json:"total_tax"`
	TotalDiscounts  float64         `json:"total_discounts"`
	LineItems       []OrderLineItem `json:"line_items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ProductSales aggregates units sold and revenue for one product.
type ProductSales struct {
	ProductID         string  `json:"product_id"`
	TotalQuantitySold int64   `json:"total_quantity_sold"`
	TotalOrders       int64   `json:"total_orders"`
	TotalRevenue      float64 `json:"total_revenue"`
}

// ProductRevenue aggregates revenue and per-unit pricing for one product.
type ProductRevenue struct {
	ProductID           string  `json:"product_id"`
	TotalRevenue        float64 `json:"total_revenue"`
	TotalQuantitySold   int64   `json:"total_quantity_sold"`
	TotalOrders         int64   `json:"total_orders"`
	AveragePricePerUnit float64 `json:"average_price_per_unit"`
}

// TopProduct is one row of the top-sellers ranking, carrying the catalog
// title alongside the sales numbers.
type TopProduct struct {
	ProductID         string  `json:"product_id"`
	Title             string  `json:"title"`
	TotalQuantitySold int64   `json:"total_quantity_sold"`
	TotalRevenue      float64 `json:"total_revenue"`
}

// MonthlySales aggregates order totals for one calendar month.
type MonthlySales struct {
	Year           int     `json:"year"`
	Month          int     `json:"month"`
	MonthName      string  `json:"month_name"`
	TotalSales     float64 `json:"total_sales"`
	TotalRevenue   float64 `json:"total_revenue"`
	TotalTax       float64 `json:"total_tax"`
	TotalDiscounts float64 `json:"total_discounts"`
	OrderCount     int64   `json:"order_count"`
}
