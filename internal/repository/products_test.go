package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProductMock(t *testing.T) (pgxmock.PgxPoolIface, *ProductRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewProductRepository(mock)
}

func TestProductInitSchema(t *testing.T) {
	mock, repo := newProductMock(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS products").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, repo.InitSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductCreate(t *testing.T) {
	mock, repo := newProductMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs(pgxmock.AnyArg(), "Aurora Headphones", "Acme", []string{"audio"},
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := repo.Create(context.Background(), &Product{
		Title:  "Aurora Headphones",
		Vendor: "Acme",
		Tags:   []string{"audio"},
		Variants: []ProductVariant{
			{VariantID: 1, SKU: "AH-1", Price: 129.99, InventoryQuantity: 10},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductGetByID(t *testing.T) {
	mock, repo := newProductMock(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "title", "vendor", "tags", "variants", "created_at", "updated_at"}).
		AddRow("p1", "Aurora Headphones", "Acme", []string{"audio"},
			[]byte(`[{"variant_id":1,"sku":"AH-1","price":129.99,"inventory_quantity":10}]`), now, now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products")).
		WithArgs("p1").
		WillReturnRows(rows)

	product, err := repo.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Aurora Headphones", product.Title)
	require.Len(t, product.Variants, 1)
	assert.Equal(t, 129.99, product.Variants[0].Price)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductGetByIDNotFound(t *testing.T) {
	mock, repo := newProductMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products")).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "vendor", "tags", "variants", "created_at", "updated_at"}))

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductList(t *testing.T) {
	mock, repo := newProductMock(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "title", "vendor", "tags", "variants", "created_at", "updated_at"}).
		AddRow("p2", "Newer", "Acme", []string{}, []byte(`[]`), now, now).
		AddRow("p1", "Older", "Acme", []string{}, []byte(`[]`), now.Add(-time.Hour), now.Add(-time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WithArgs(10, 0).
		WillReturnRows(rows)

	products, err := repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "p2", products[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductUpdateNotFound(t *testing.T) {
	mock, repo := newProductMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products")).
		WithArgs("missing", "Title", "", []string{}, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err := repo.Update(context.Background(), &Product{ID: "missing", Title: "Title"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductDelete(t *testing.T) {
	mock, repo := newProductMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id = $1")).
		WithArgs("p1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Delete(context.Background(), "p1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductDeleteNotFound(t *testing.T) {
	mock, repo := newProductMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "missing")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
