package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for the catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetProduct reads one product with its current stock.
func (r *Repository) GetProduct(ctx context.Context, code string) (*Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `SELECT code, name, price, tax_percent, stock FROM product WHERE code = $1`, code).
		Scan(&p.Code, &p.Name, &p.Price, &p.TaxPercent, &p.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertProduct creates or replaces a catalog entry.
func (r *Repository) UpsertProduct(ctx context.Context, p Product) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO product (code, name, price, tax_percent, stock)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, tax_percent = EXCLUDED.tax_percent, stock = EXCLUDED.stock`,
		p.Code, p.Name, p.Price, p.TaxPercent, p.Stock)
	return err
}

// ListProducts returns the catalog ordered by code.
func (r *Repository) ListProducts(ctx context.Context, limit, offset int) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT code, name, price, tax_percent, stock FROM product ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.Code, &p.Name, &p.Price, &p.TaxPercent, &p.Stock); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
