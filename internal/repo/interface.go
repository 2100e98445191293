package repo

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateSKU is returned when a product insert/update collides on SKU.
var ErrDuplicateSKU = errors.New("sku already exists")

// Store defines the persistence surface consumed by the rest of the service.
type Store interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error

	// Products
	InsertProduct(ctx context.Context, p Product) (*Product, error)
	GetProductByID(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]Product, int, error)
	UpdateProduct(ctx context.Context, p Product) (*Product, error)
	DeleteProduct(ctx context.Context, id string) error

	// Customers
	InsertCustomer(ctx context.Context, c Customer) (*Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*Customer, error)
	ListCustomers(ctx context.Context, f CustomerFilter) ([]Customer, int, error)
	UpdateCustomer(ctx context.Context, c Customer) (*Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
	ListCustomersWithDebt(ctx context.Context) ([]Customer, error)

	// Sales
	GetSaleByID(ctx context.Context, id string) (*Sale, error)
	ListSales(ctx context.Context, f SaleFilter) ([]Sale, int, error)
	SalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error)
	SalesStats(ctx context.Context, from, to *time.Time) ([]PaymentMethodStat, error)
	CancelSale(ctx context.Context, id string) error

	// Notifications
	InsertNotificationLog(ctx context.Context, log NotificationLog) (*NotificationLog, error)
	ListNotificationLogs(ctx context.Context, f NotificationFilter) ([]NotificationLog, int, error)
	NotificationStats(ctx context.Context) (*NotificationStats, error)

	// Dashboard
	DashboardStats(ctx context.Context) (*DashboardStats, error)

	// InTx runs fn inside one database transaction; fn's effects are all
	// committed or all rolled back.
	InTx(ctx context.Context, fn func(ctx context.Context, ops TxOps) error) error
}

// TxOps is the mutation surface available inside a transaction. Row-locking
// reads (ForUpdate) guard the check-then-mutate sequences of the coordinators
// against concurrent callers.
type TxOps interface {
	GetProductForUpdate(ctx context.Context, id string) (*Product, error)
	AdjustStock(ctx context.Context, productID string, delta int) error

	InsertSale(ctx context.Context, sale Sale) (*Sale, error)

	GetCustomerForUpdate(ctx context.Context, id string) (*Customer, error)
	AdjustBalance(ctx context.Context, customerID string, delta decimal.Decimal) error
	InsertPayment(ctx context.Context, p Payment) (*Payment, error)
	ClearReminderState(ctx context.Context, customerID string) error
	SetLastReminder(ctx context.Context, customerID string, at time.Time) error
	SetPaymentReminderSent(ctx context.Context, customerID string, sent bool) error

	InsertNotificationLog(ctx context.Context, log NotificationLog) (*NotificationLog, error)
}
