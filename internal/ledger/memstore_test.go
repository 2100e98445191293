package ledger

import (
	"context"
	"sync"
	"time"

	"urban-store/internal/repo"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory stand-in for the Postgres repository. InTx holds a
// single mutex for the whole transaction, mirroring the row-lock serialization
// the real store provides, and rolls every mutation back when fn fails.
type memStore struct {
	mu        sync.Mutex
	products  map[string]*repo.Product
	customers map[string]*repo.Customer
	sales     []repo.Sale
	payments  []repo.Payment
	logs      []repo.NotificationLog

	commitErr error // injected failure after fn succeeds
}

func newMemStore() *memStore {
	return &memStore{
		products:  map[string]*repo.Product{},
		customers: map[string]*repo.Customer{},
	}
}

func (m *memStore) addProduct(name string, stock int, price decimal.Decimal) *repo.Product {
	p := &repo.Product{
		ID:    uuid.New().String(),
		SKU:   "SKU-" + name,
		Name:  name,
		Price: price,
		Stock: stock,
	}
	m.products[p.ID] = p
	return p
}

func (m *memStore) addCustomer(name string, balance decimal.Decimal) *repo.Customer {
	c := &repo.Customer{
		ID:             uuid.New().String(),
		Name:           name,
		WhatsAppNumber: "+5215512345678",
		Balance:        balance,
	}
	m.customers[c.ID] = c
	return c
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, ops repo.TxOps) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.clone()
	err := fn(ctx, &memTx{store: m})
	if err == nil && m.commitErr != nil {
		err = m.commitErr
	}
	if err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

func (m *memStore) GetCustomerByID(_ context.Context, id string) (*repo.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

type memSnapshot struct {
	products  map[string]*repo.Product
	customers map[string]*repo.Customer
	sales     int
	payments  int
	logs      int
}

func (m *memStore) clone() memSnapshot {
	snap := memSnapshot{
		products:  make(map[string]*repo.Product, len(m.products)),
		customers: make(map[string]*repo.Customer, len(m.customers)),
		sales:     len(m.sales),
		payments:  len(m.payments),
		logs:      len(m.logs),
	}
	for id, p := range m.products {
		copied := *p
		snap.products[id] = &copied
	}
	for id, c := range m.customers {
		copied := *c
		snap.customers[id] = &copied
	}
	return snap
}

func (m *memStore) restore(snap memSnapshot) {
	m.products = snap.products
	m.customers = snap.customers
	m.sales = m.sales[:snap.sales]
	m.payments = m.payments[:snap.payments]
	m.logs = m.logs[:snap.logs]
}

// memTx implements repo.TxOps against the locked store.
type memTx struct {
	store *memStore
}

func (t *memTx) GetProductForUpdate(_ context.Context, id string) (*repo.Product, error) {
	p, ok := t.store.products[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (t *memTx) AdjustStock(_ context.Context, productID string, delta int) error {
	p, ok := t.store.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock += delta
	return nil
}

func (t *memTx) InsertSale(_ context.Context, sale repo.Sale) (*repo.Sale, error) {
	sale.ID = uuid.New().String()
	for i := range sale.Items {
		sale.Items[i].ID = uuid.New().String()
		sale.Items[i].SaleID = sale.ID
	}
	sale.CreatedAt = time.Now()
	t.store.sales = append(t.store.sales, sale)
	return &sale, nil
}

func (t *memTx) GetCustomerForUpdate(_ context.Context, id string) (*repo.Customer, error) {
	c, ok := t.store.customers[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (t *memTx) AdjustBalance(_ context.Context, customerID string, delta decimal.Decimal) error {
	c, ok := t.store.customers[customerID]
	if !ok {
		return repo.ErrNotFound
	}
	c.Balance = c.Balance.Add(delta)
	return nil
}

func (t *memTx) InsertPayment(_ context.Context, p repo.Payment) (*repo.Payment, error) {
	p.ID = uuid.New().String()
	t.store.payments = append(t.store.payments, p)
	return &p, nil
}

func (t *memTx) ClearReminderState(_ context.Context, customerID string) error {
	c, ok := t.store.customers[customerID]
	if !ok {
		return repo.ErrNotFound
	}
	c.NextPaymentDate = nil
	c.PaymentReminderSent = false
	return nil
}

func (t *memTx) SetLastReminder(_ context.Context, customerID string, at time.Time) error {
	c, ok := t.store.customers[customerID]
	if !ok {
		return repo.ErrNotFound
	}
	c.LastReminder = &at
	return nil
}

func (t *memTx) SetPaymentReminderSent(_ context.Context, customerID string, sent bool) error {
	c, ok := t.store.customers[customerID]
	if !ok {
		return repo.ErrNotFound
	}
	c.PaymentReminderSent = sent
	return nil
}

func (t *memTx) InsertNotificationLog(_ context.Context, log repo.NotificationLog) (*repo.NotificationLog, error) {
	log.ID = uuid.New().String()
	t.store.logs = append(t.store.logs, log)
	return &log, nil
}
