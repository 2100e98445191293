package repo

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods accepted at the register.
const (
	PaymentCash     = "efectivo"
	PaymentCard     = "tarjeta"
	PaymentTransfer = "transferencia"
	PaymentCredit   = "credito"
)

// Sale statuses.
const (
	SaleCompleted = "completada"
	SalePending   = "pendiente"
	SaleCancelled = "cancelada"
)

// Notification statuses.
const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationPending = "pending"
)

// Product represents a row in the products table.
type Product struct {
	ID        string
	SKU       string
	Name      string
	Category  string
	Sizes     []string
	ImageURLs []string
	Price     decimal.Decimal
	Cost      decimal.Decimal
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Customer represents a row in the customers table. Payments and CreditSales
// are populated only by detail reads.
type Customer struct {
	ID                  string
	Name                string
	WhatsAppNumber      string
	Balance             decimal.Decimal
	Notes               *string
	LastReminder        *time.Time
	NextPaymentDate     *time.Time
	PaymentReminderSent bool
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Payments    []Payment
	CreditSales []Sale
}

// Payment is one entry of a customer's payment history. Append-only.
type Payment struct {
	ID         string
	CustomerID string
	Amount     decimal.Decimal
	Note       string
	PaidAt     time.Time
}

// SaleItem is one line of a sale. ProductName is copied from the product at
// sale time so history survives later renames.
type SaleItem struct {
	ID          string
	SaleID      string
	ProductID   string
	ProductName string
	Size        string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// Sale represents a committed sale with its line items. Immutable after
// commit except for the status transition to cancelled.
type Sale struct {
	ID            string
	Items         []SaleItem
	PaymentMethod string
	Total         decimal.Decimal
	IsCredit      bool
	CustomerID    *string
	Status        string
	SoldAt        time.Time
	CreatedAt     time.Time
}

// NotificationLog records one reminder attempt. Append-only.
type NotificationLog struct {
	ID               string
	CustomerID       string
	CustomerName     string
	WhatsAppNumber   string
	Message          string
	Status           string
	ProviderResponse map[string]any
	Error            *string
	SentAt           time.Time
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Search   string
	Category string
	Page     int
	Limit    int
}

// CustomerFilter narrows customer listings.
type CustomerFilter struct {
	Search  string
	HasDebt bool
	Page    int
	Limit   int
}

// SaleFilter narrows sale listings.
type SaleFilter struct {
	From          *time.Time
	To            *time.Time
	PaymentMethod string
	Page          int
	Limit         int
}

// NotificationFilter narrows notification log listings.
type NotificationFilter struct {
	Status     string
	CustomerID string
	Page       int
	Limit      int
}

// SalesSummary aggregates sales over a window.
type SalesSummary struct {
	Count int
	Total decimal.Decimal
}

// PaymentMethodStat is one bucket of the per-method sales breakdown.
type PaymentMethodStat struct {
	PaymentMethod string
	Count         int
	Total         decimal.Decimal
}

// NotificationStats aggregates the delivery log.
type NotificationStats struct {
	ByStatus map[string]int
	Last7d   int
}

// DashboardStats is the aggregate snapshot behind the dashboard endpoint.
type DashboardStats struct {
	TodaySalesCount    int             `json:"today_sales_count"`
	TodaySalesTotal    decimal.Decimal `json:"today_sales_total"`
	ProductCount       int             `json:"product_count"`
	LowStockCount      int             `json:"low_stock_count"`
	DebtorCount        int             `json:"debtor_count"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
}

// ValidPaymentMethod reports whether m is one of the accepted methods.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentCredit:
		return true
	}
	return false
}
