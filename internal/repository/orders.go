package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderRepository stores the order history and answers the sales-analytics
// queries.
type OrderRepository struct {
	pool DBPool
}

// NewOrderRepository creates a repository on an existing pool.
func NewOrderRepository(pool DBPool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// InitSchema creates the orders table if it doesn't exist.
func (r *OrderRepository) InitSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			order_number BIGINT NOT NULL,
			customer_id BIGINT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			financial_status TEXT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'USD',
			subtotal_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_tax DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_discounts DOUBLE PRECISION NOT NULL DEFAULT 0,
			line_items JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders (customer_id);
		CREATE INDEX IF NOT EXISTS idx_orders_financial_status ON orders (financial_status)
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create orders schema: %w", err)
	}
	return nil
}

const orderColumns = `id, order_number, customer_id, email, financial_status, currency,
		subtotal_price, total_price, total_tax, total_discounts, line_items, created_at, updated_at`

// Create inserts an order. A missing ID is generated; timestamps are set to
// now.
func (r *OrderRepository) Create(ctx context.Context, order *Order) (*Order, error) {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.LineItems == nil {
		order.LineItems = []OrderLineItem{}
	}

	itemsJSON, err := json.Marshal(order.LineItems)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal line items: %w", err)
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = r.pool.Exec(ctx, query,
		order.ID, order.OrderNumber, order.CustomerID, order.Email,
		order.FinancialStatus, order.Currency,
		order.SubtotalPrice, order.TotalPrice, order.TotalTax, order.TotalDiscounts,
		itemsJSON, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

// GetByID returns one order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("order not found: %s", id)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

// GetByOrderNumber returns one order by its external order number.
func (r *OrderRepository) GetByOrderNumber(ctx context.Context, orderNumber int64) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	order, err := scanOrder(r.pool.QueryRow(ctx, query, orderNumber))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("order not found: number %d", orderNumber)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

// ListByCustomer returns a customer's orders, newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`
	return r.queryOrders(ctx, query, customerID)
}

// ListByStatus returns orders with the given financial status, newest first.
func (r *OrderRepository) ListByStatus(ctx context.Context, status string) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE financial_status = $1 ORDER BY created_at DESC`
	return r.queryOrders(ctx, query, status)
}

// List returns orders paginated, newest first.
func (r *OrderRepository) List(ctx context.Context, limit, offset int) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	return r.queryOrders(ctx, query, limit, offset)
}

// UpdateStatus sets a new financial status and bumps updated_at.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string) (*Order, error) {
	query := `
		UPDATE orders
		SET financial_status = $2, updated_at = $3
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("order not found: %s", id)
	}
	return r.GetByID(ctx, id)
}

// TotalUnitsSoldPerProduct sums line item quantities by product across all
// orders, most units first.
func (r *OrderRepository) TotalUnitsSoldPerProduct(ctx context.Context) ([]*ProductSales, error) {
	query := `
		SELECT li->>'product_id' AS product_id,
			SUM((li->>'quantity')::BIGINT) AS total_quantity_sold,
			COUNT(DISTINCT o.id) AS total_orders,
			SUM((li->>'quantity')::DOUBLE PRECISION * (li->>'price')::DOUBLE PRECISION) AS total_revenue
		FROM orders o, jsonb_array_elements(o.line_items) li
		GROUP BY li->>'product_id'
		ORDER BY total_quantity_sold DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query units sold: %w", err)
	}
	defer rows.Close()

	results := []*ProductSales{}
	for rows.Next() {
		var row ProductSales
		if err := rows.Scan(&row.ProductID, &row.TotalQuantitySold, &row.TotalOrders, &row.TotalRevenue); err != nil {
			return nil, fmt.Errorf("failed to scan units sold row: %w", err)
		}
		results = append(results, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate units sold rows: %w", err)
	}
	return results, nil
}

// TotalRevenuePerProduct sums line item revenue by product across all orders,
// highest revenue first.
func (r *OrderRepository) TotalRevenuePerProduct(ctx context.Context) ([]*ProductRevenue, error) {
	query := `
		SELECT li->>'product_id' AS product_id,
			SUM((li->>'quantity')::DOUBLE PRECISION * (li->>'price')::DOUBLE PRECISION) AS total_revenue,
			SUM((li->>'quantity')::BIGINT) AS total_quantity_sold,
			COUNT(DISTINCT o.id) AS total_orders,
			CASE WHEN SUM((li->>'quantity')::BIGINT) > 0
				THEN SUM((li->>'quantity')::DOUBLE PRECISION * (li->>'price')::DOUBLE PRECISION) / SUM((li->>'quantity')::DOUBLE PRECISION)
				ELSE 0
			END AS average_price_per_unit
		FROM orders o, jsonb_array_elements(o.line_items) li
		GROUP BY li->>'product_id'
		ORDER BY total_revenue DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue per product: %w", err)
	}
	defer rows.Close()

	results := []*ProductRevenue{}
	for rows.Next() {
		var row ProductRevenue
		if err := rows.Scan(&row.ProductID, &row.TotalRevenue, &row.TotalQuantitySold, &row.TotalOrders, &row.AveragePricePerUnit); err != nil {
			return nil, fmt.Errorf("failed to scan revenue row: %w", err)
		}
		results = append(results, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate revenue rows: %w", err)
	}
	return results, nil
}

// TopSellingProductsByUnitsSold ranks products by units sold and joins the
// catalog for their titles. Products that have left the catalog keep their
// line item title.
func (r *OrderRepository) TopSellingProductsByUnitsSold(ctx context.Context, limit int) ([]*TopProduct, error) {
	query := `
		SELECT li->>'product_id' AS product_id,
			COALESCE(p.title, MAX(li->>'title'), '') AS title,
			SUM((li->>'quantity')::BIGINT) AS total_quantity_sold,
			SUM((li->>'quantity')::DOUBLE PRECISION * (li->>'price')::DOUBLE PRECISION) AS total_revenue
		FROM orders o, jsonb_array_elements(o.line_items) li
		LEFT JOIN products p ON p.id = li->>'product_id'
		GROUP BY li->>'product_id', p.title
		ORDER BY total_quantity_sold DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top sellers: %w", err)
	}
	defer rows.Close()

	results := []*TopProduct{}
	for rows.Next() {
		var row TopProduct
		if err := rows.Scan(&row.ProductID, &row.Title, &row.TotalQuantitySold, &row.TotalRevenue); err != nil {
			return nil, fmt.Errorf("failed to scan top seller row: %w", err)
		}
		results = append(results, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top seller rows: %w", err)
	}
	return results, nil
}

// SalesByMonth aggregates order totals per calendar month. A zero year means
// no year filter.
func (r *OrderRepository) SalesByMonth(ctx context.Context, year int) ([]*MonthlySales, error) {
	query := `
		SELECT EXTRACT(YEAR FROM created_at)::INT AS year,
			EXTRACT(MONTH FROM created_at)::INT AS month,
			SUM(total_price) AS total_sales,
			SUM(subtotal_price) AS total_revenue,
			SUM(total_tax) AS total_tax,
			SUM(total_discounts) AS total_discounts,
			COUNT(*) AS order_count
		FROM orders
		WHERE $1 = 0 OR EXTRACT(YEAR FROM created_at)::INT = $1
		GROUP BY 1, 2
		ORDER BY 1, 2
	`
	rows, err := r.pool.Query(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales by month: %w", err)
	}
	defer rows.Close()

	results := []*MonthlySales{}
	for rows.Next() {
		var row MonthlySales
		if err := rows.Scan(&row.Year, &row.Month, &row.TotalSales, &row.TotalRevenue, &row.TotalTax, &row.TotalDiscounts, &row.OrderCount); err != nil {
			return nil, fmt.Errorf("failed to scan monthly sales row: %w", err)
		}
		if row.Month >= 1 && row.Month <= 12 {
			row.MonthName = time.Month(row.Month).String()
		}
		results = append(results, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate monthly sales rows: %w", err)
	}
	return results, nil
}

func (r *OrderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var order Order
	var itemsJSON []byte
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerID,
		&order.Email,
		&order.FinancialStatus,
		&order.Currency,
		&order.SubtotalPrice,
		&order.TotalPrice,
		&order.TotalTax,
		&order.TotalDiscounts,
		&itemsJSON,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &order.LineItems); err != nil {
		return nil, fmt.Errorf("failed to unmarshal line items: %w", err)
	}
	return &order, nil
}
