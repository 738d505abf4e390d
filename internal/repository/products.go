package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository stores the product catalog.
type ProductRepository struct {
	pool DBPool
}

// NewProductRepository creates a repository on an existing pool.
func NewProductRepository(pool DBPool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// InitSchema creates the products table if it doesn't exist.
func (r *ProductRepository) InitSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			vendor TEXT NOT NULL DEFAULT '',
			tags TEXT[] NOT NULL DEFAULT '{}',
			variants JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create products schema: %w", err)
	}
	return nil
}

// Create inserts a product. A missing ID is generated; timestamps are set to
// now.
func (r *ProductRepository) Create(ctx context.Context, product *Product) (*Product, error) {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	if product.Tags == nil {
		product.Tags = []string{}
	}

	variantsJSON, err := json.Marshal(product.Variants)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal variants: %w", err)
	}

	query := `
		INSERT INTO products (id, title, vendor, tags, variants, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		product.ID, product.Title, product.Vendor, product.Tags,
		variantsJSON, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

// GetByID returns one product.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*Product, error) {
	query := `
		SELECT id, title, vendor, tags, variants, created_at, updated_at
		FROM products
		WHERE id = $1
	`
	product, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("product not found: %s", id)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return product, nil
}

// List returns products ordered by creation time, newest first.
func (r *ProductRepository) List(ctx context.Context, limit, offset int) ([]*Product, error) {
	query := `
		SELECT id, title, vendor, tags, variants, created_at, updated_at
		FROM products
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

// Update rewrites a product's mutable fields and bumps updated_at.
func (r *ProductRepository) Update(ctx context.Context, product *Product) (*Product, error) {
	product.UpdatedAt = time.Now().UTC()
	if product.Tags == nil {
		product.Tags = []string{}
	}

	variantsJSON, err := json.Marshal(product.Variants)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal variants: %w", err)
	}

	query := `
		UPDATE products
		SET title = $2, vendor = $3, tags = $4, variants = $5, updated_at = $6
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		product.ID, product.Title, product.Vendor, product.Tags,
		variantsJSON, product.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("product not found: %s", product.ID)
	}
	return product, nil
}

// Delete removes one product.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product not found: %s", id)
	}
	return nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var product Product
	var variantsJSON []byte
	err := row.Scan(
		&product.ID,
		&product.Title,
		&product.Vendor,
		&product.Tags,
		&variantsJSON,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(variantsJSON, &product.Variants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variants: %w", err)
	}
	return &product, nil
}
