package repo

import (
	"context"
	"fmt"
	"strings"
)

const productColumns = `id, sku, name, category, sizes, image_urls, price, cost, stock, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Sizes, &p.ImageURLs, &p.Price, &p.Cost, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertProduct creates a new product. SKUs are stored uppercase.
func (r *Repository) InsertProduct(ctx context.Context, p Product) (*Product, error) {
	const q = `
INSERT INTO products (sku, name, category, sizes, image_urls, price, cost, stock)
VALUES (UPPER($1), $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + productColumns + `;`
	row := r.pool.QueryRow(ctx, q,
		strings.TrimSpace(p.SKU),
		strings.TrimSpace(p.Name),
		strings.TrimSpace(p.Category),
		p.Sizes,
		p.ImageURLs,
		p.Price,
		p.Cost,
		p.Stock,
	)
	inserted, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSKU
		}
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return inserted, nil
}

// GetProductByID retrieves a single product.
func (r *Repository) GetProductByID(ctx context.Context, id string) (*Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = $1 LIMIT 1;`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFoundOr(err, "get product")
	}
	return p, nil
}

// ListProducts returns a page of products with optional search/category filters
// plus the total match count.
func (r *Repository) ListProducts(ctx context.Context, f ProductFilter) ([]Product, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	if f.Search != "" {
		args = append(args, "%"+strings.ToLower(f.Search)+"%")
		where = append(where, fmt.Sprintf("(lower(name) LIKE $%d OR lower(sku) LIKE $%d)", len(args), len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	limit, offset := pageOffset(f.Page, f.Limit, 50)
	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d;`,
		productColumns, cond, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}
	return products, total, nil
}

// UpdateProduct updates catalog fields of a product. Stock is deliberately not
// touched here; it changes only through committed sales.
func (r *Repository) UpdateProduct(ctx context.Context, p Product) (*Product, error) {
	const q = `
UPDATE products
SET sku = UPPER($2),
    name = $3,
    category = $4,
    sizes = $5,
    image_urls = $6,
    price = $7,
    cost = $8,
    updated_at = NOW()
WHERE id = $1
RETURNING ` + productColumns + `;`
	row := r.pool.QueryRow(ctx, q,
		p.ID,
		strings.TrimSpace(p.SKU),
		strings.TrimSpace(p.Name),
		strings.TrimSpace(p.Category),
		p.Sizes,
		p.ImageURLs,
		p.Price,
		p.Cost,
	)
	updated, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSKU
		}
		return nil, notFoundOr(err, "update product")
	}
	return updated, nil
}

// DeleteProduct removes a product from the catalog.
func (r *Repository) DeleteProduct(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetProductForUpdate loads a product and locks its row for the remainder of
// the transaction.
func (t *txOps) GetProductForUpdate(ctx context.Context, id string) (*Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE;`
	p, err := scanProduct(t.tx.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFoundOr(err, "get product for update")
	}
	return p, nil
}

// AdjustStock applies a stock delta. The CHECK constraint backstops the
// coordinator's own availability check.
func (t *txOps) AdjustStock(ctx context.Context, productID string, delta int) error {
	ct, err := t.tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`, productID, delta)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
