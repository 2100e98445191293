package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const saleColumns = `id, payment_method, total, is_credit, customer_id, status, sold_at, created_at`

func scanSale(row interface{ Scan(...any) error }) (*Sale, error) {
	var s Sale
	if err := row.Scan(&s.ID, &s.PaymentMethod, &s.Total, &s.IsCredit, &s.CustomerID, &s.Status, &s.SoldAt, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// InsertSale persists the sale header and its line items. Runs only inside the
// sale coordinator's transaction.
func (t *txOps) InsertSale(ctx context.Context, sale Sale) (*Sale, error) {
	const qSale = `
INSERT INTO sales (payment_method, total, is_credit, customer_id, status, sold_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + saleColumns + `;`
	row := t.tx.QueryRow(ctx, qSale,
		sale.PaymentMethod,
		sale.Total,
		sale.IsCredit,
		sale.CustomerID,
		sale.Status,
		sale.SoldAt,
	)
	inserted, err := scanSale(row)
	if err != nil {
		return nil, fmt.Errorf("insert sale: %w", err)
	}

	const qItem = `
INSERT INTO sale_items (sale_id, product_id, product_name, size, quantity, unit_price, subtotal)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id;`
	for _, item := range sale.Items {
		item.SaleID = inserted.ID
		if err := t.tx.QueryRow(ctx, qItem,
			inserted.ID,
			item.ProductID,
			item.ProductName,
			item.Size,
			item.Quantity,
			item.UnitPrice,
			item.Subtotal,
		).Scan(&item.ID); err != nil {
			return nil, fmt.Errorf("insert sale item: %w", err)
		}
		inserted.Items = append(inserted.Items, item)
	}
	return inserted, nil
}

// GetSaleByID retrieves a sale with its line items.
func (r *Repository) GetSaleByID(ctx context.Context, id string) (*Sale, error) {
	const q = `SELECT ` + saleColumns + ` FROM sales WHERE id = $1 LIMIT 1;`
	s, err := scanSale(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFoundOr(err, "get sale")
	}
	items, err := r.listSaleItems(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	s.Items = items[id]
	return s, nil
}

func (r *Repository) listSaleItems(ctx context.Context, saleIDs []string) (map[string][]SaleItem, error) {
	if len(saleIDs) == 0 {
		return map[string][]SaleItem{}, nil
	}
	const q = `
SELECT id, sale_id, product_id, product_name, size, quantity, unit_price, subtotal
FROM sale_items
WHERE sale_id = ANY($1)
ORDER BY id;`
	rows, err := r.pool.Query(ctx, q, saleIDs)
	if err != nil {
		return nil, fmt.Errorf("list sale items: %w", err)
	}
	defer rows.Close()

	items := map[string][]SaleItem{}
	for rows.Next() {
		var it SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.ProductName, &it.Size, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		items[it.SaleID] = append(items[it.SaleID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale items: %w", err)
	}
	return items, nil
}

// ListSales returns a page of sales, newest first, with optional date-range
// and payment-method filters.
func (r *Repository) ListSales(ctx context.Context, f SaleFilter) ([]Sale, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("sold_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("sold_at <= $%d", len(args)))
	}
	if f.PaymentMethod != "" {
		args = append(args, f.PaymentMethod)
		where = append(where, fmt.Sprintf("payment_method = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}

	limit, offset := pageOffset(f.Page, f.Limit, 20)
	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM sales WHERE %s ORDER BY sold_at DESC LIMIT $%d OFFSET $%d;`,
		saleColumns, cond, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var sales []Sale
	var ids []string
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, *s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate sales: %w", err)
	}

	items, err := r.listSaleItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range sales {
		sales[i].Items = items[sales[i].ID]
	}
	return sales, total, nil
}

// SalesSummary aggregates count and total of sales within [from, to).
func (r *Repository) SalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	const q = `
SELECT COUNT(*), COALESCE(SUM(total), 0)
FROM sales
WHERE sold_at >= $1 AND sold_at < $2 AND status <> $3;`
	var summary SalesSummary
	if err := r.pool.QueryRow(ctx, q, from, to, SaleCancelled).Scan(&summary.Count, &summary.Total); err != nil {
		return nil, fmt.Errorf("sales summary: %w", err)
	}
	return &summary, nil
}

// SalesStats groups sales by payment method over an optional date range.
func (r *Repository) SalesStats(ctx context.Context, from, to *time.Time) ([]PaymentMethodStat, error) {
	where := []string{"status <> '" + SaleCancelled + "'"}
	args := []any{}
	if from != nil {
		args = append(args, *from)
		where = append(where, fmt.Sprintf("sold_at >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		where = append(where, fmt.Sprintf("sold_at <= $%d", len(args)))
	}
	q := fmt.Sprintf(`
SELECT payment_method, COUNT(*), COALESCE(SUM(total), 0)
FROM sales
WHERE %s
GROUP BY payment_method
ORDER BY payment_method;`, strings.Join(where, " AND "))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sales stats: %w", err)
	}
	defer rows.Close()

	var stats []PaymentMethodStat
	for rows.Next() {
		var st PaymentMethodStat
		if err := rows.Scan(&st.PaymentMethod, &st.Count, &st.Total); err != nil {
			return nil, fmt.Errorf("scan sales stat: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales stats: %w", err)
	}
	return stats, nil
}

// CancelSale marks a sale cancelled. It is a status transition only: stock and
// balances keep their committed values, the record stays for history.
func (r *Repository) CancelSale(ctx context.Context, id string) error {
	const q = `UPDATE sales SET status = $2 WHERE id = $1 AND status <> $2;`
	ct, err := r.pool.Exec(ctx, q, id, SaleCancelled)
	if err != nil {
		return fmt.Errorf("cancel sale: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DashboardStats assembles the aggregate snapshot shown on the dashboard.
func (r *Repository) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	summary, err := r.SalesSummary(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		TodaySalesCount: summary.Count,
		TodaySalesTotal: summary.Total,
	}

	const q = `
SELECT
    (SELECT COUNT(*) FROM products),
    (SELECT COUNT(*) FROM products WHERE stock < 5),
    (SELECT COUNT(*) FROM customers WHERE balance > 0),
    (SELECT COALESCE(SUM(balance), 0) FROM customers);`
	var outstanding decimal.Decimal
	if err := r.pool.QueryRow(ctx, q).Scan(&stats.ProductCount, &stats.LowStockCount, &stats.DebtorCount, &outstanding); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	stats.OutstandingBalance = outstanding
	return stats, nil
}
