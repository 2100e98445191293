package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const customerColumns = `id, name, whatsapp_number, balance, notes, last_reminder, next_payment_date, payment_reminder_sent, created_at, updated_at`

func scanCustomer(row interface{ Scan(...any) error }) (*Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.WhatsAppNumber, &c.Balance, &c.Notes, &c.LastReminder, &c.NextPaymentDate, &c.PaymentReminderSent, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertCustomer creates a new customer with a zero balance.
func (r *Repository) InsertCustomer(ctx context.Context, c Customer) (*Customer, error) {
	const q = `
INSERT INTO customers (name, whatsapp_number, notes, next_payment_date)
VALUES ($1, $2, $3, $4)
RETURNING ` + customerColumns + `;`
	row := r.pool.QueryRow(ctx, q,
		strings.TrimSpace(c.Name),
		strings.TrimSpace(c.WhatsAppNumber),
		c.Notes,
		c.NextPaymentDate,
	)
	inserted, err := scanCustomer(row)
	if err != nil {
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	return inserted, nil
}

// GetCustomerByID retrieves a customer with payment and credit history attached.
func (r *Repository) GetCustomerByID(ctx context.Context, id string) (*Customer, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 LIMIT 1;`
	c, err := scanCustomer(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFoundOr(err, "get customer")
	}

	if c.Payments, err = r.listPayments(ctx, id); err != nil {
		return nil, err
	}
	if c.CreditSales, err = r.listCreditSales(ctx, id); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) listPayments(ctx context.Context, customerID string) ([]Payment, error) {
	const q = `
SELECT id, customer_id, amount, note, paid_at
FROM payments
WHERE customer_id = $1
ORDER BY paid_at DESC;`
	rows, err := r.pool.Query(ctx, q, customerID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.Amount, &p.Note, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

func (r *Repository) listCreditSales(ctx context.Context, customerID string) ([]Sale, error) {
	const q = `
SELECT ` + saleColumns + `
FROM sales
WHERE customer_id = $1 AND is_credit
ORDER BY sold_at DESC;`
	rows, err := r.pool.Query(ctx, q, customerID)
	if err != nil {
		return nil, fmt.Errorf("list credit sales: %w", err)
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credit sale: %w", err)
		}
		sales = append(sales, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credit sales: %w", err)
	}
	return sales, nil
}

// ListCustomers returns a page of customers ordered by balance desc then name.
func (r *Repository) ListCustomers(ctx context.Context, f CustomerFilter) ([]Customer, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	if f.Search != "" {
		args = append(args, "%"+strings.ToLower(f.Search)+"%")
		where = append(where, fmt.Sprintf("lower(name) LIKE $%d", len(args)))
	}
	if f.HasDebt {
		where = append(where, "balance > 0")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	limit, offset := pageOffset(f.Page, f.Limit, 50)
	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM customers WHERE %s ORDER BY balance DESC, name ASC LIMIT $%d OFFSET $%d;`,
		customerColumns, cond, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate customers: %w", err)
	}
	return customers, total, nil
}

// UpdateCustomer updates contact fields. Balance and reminder state are owned
// by the coordinators and the dispatcher.
func (r *Repository) UpdateCustomer(ctx context.Context, c Customer) (*Customer, error) {
	const q = `
UPDATE customers
SET name = $2,
    whatsapp_number = $3,
    notes = $4,
    next_payment_date = $5,
    updated_at = NOW()
WHERE id = $1
RETURNING ` + customerColumns + `;`
	row := r.pool.QueryRow(ctx, q,
		c.ID,
		strings.TrimSpace(c.Name),
		strings.TrimSpace(c.WhatsAppNumber),
		c.Notes,
		c.NextPaymentDate,
	)
	updated, err := scanCustomer(row)
	if err != nil {
		return nil, notFoundOr(err, "update customer")
	}
	return updated, nil
}

// DeleteCustomer removes a customer. Callers must have verified the balance is
// zero first; the foreign keys on sales and payments also protect history.
func (r *Repository) DeleteCustomer(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCustomersWithDebt returns every customer carrying a positive balance,
// highest debt first. Reminder eligibility is decided in Go on top of this.
func (r *Repository) ListCustomersWithDebt(ctx context.Context) ([]Customer, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers WHERE balance > 0 ORDER BY balance DESC;`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list customers with debt: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan debtor: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate debtors: %w", err)
	}
	return customers, nil
}

// GetCustomerForUpdate loads a customer and locks its row for the transaction.
func (t *txOps) GetCustomerForUpdate(ctx context.Context, id string) (*Customer, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 FOR UPDATE;`
	c, err := scanCustomer(t.tx.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFoundOr(err, "get customer for update")
	}
	return c, nil
}

// AdjustBalance applies a signed delta to the customer's balance. The CHECK
// constraint backstops the coordinator's overpayment check.
func (t *txOps) AdjustBalance(ctx context.Context, customerID string, delta decimal.Decimal) error {
	ct, err := t.tx.Exec(ctx, `UPDATE customers SET balance = balance + $2, updated_at = NOW() WHERE id = $1`, customerID, delta)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertPayment appends one entry to the customer's payment history.
func (t *txOps) InsertPayment(ctx context.Context, p Payment) (*Payment, error) {
	const q = `
INSERT INTO payments (customer_id, amount, note, paid_at)
VALUES ($1, $2, $3, $4)
RETURNING id, customer_id, amount, note, paid_at;`
	row := t.tx.QueryRow(ctx, q, p.CustomerID, p.Amount, p.Note, p.PaidAt)
	var inserted Payment
	if err := row.Scan(&inserted.ID, &inserted.CustomerID, &inserted.Amount, &inserted.Note, &inserted.PaidAt); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return &inserted, nil
}

// ClearReminderState forgets any pending reminder obligation after a debt is
// settled in full.
func (t *txOps) ClearReminderState(ctx context.Context, customerID string) error {
	const q = `
UPDATE customers
SET next_payment_date = NULL,
    payment_reminder_sent = FALSE,
    updated_at = NOW()
WHERE id = $1;`
	ct, err := t.tx.Exec(ctx, q, customerID)
	if err != nil {
		return fmt.Errorf("clear reminder state: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLastReminder stamps the debt-reminder timestamp.
func (t *txOps) SetLastReminder(ctx context.Context, customerID string, at time.Time) error {
	ct, err := t.tx.Exec(ctx, `UPDATE customers SET last_reminder = $2, updated_at = NOW() WHERE id = $1`, customerID, at)
	if err != nil {
		return fmt.Errorf("set last reminder: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPaymentReminderSent flips the scheduled-payment reminder flag.
func (t *txOps) SetPaymentReminderSent(ctx context.Context, customerID string, sent bool) error {
	ct, err := t.tx.Exec(ctx, `UPDATE customers SET payment_reminder_sent = $2, updated_at = NOW() WHERE id = $1`, customerID, sent)
	if err != nil {
		return fmt.Errorf("set payment reminder sent: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
