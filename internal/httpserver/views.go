package httpserver

import (
	"time"

	"urban-store/internal/repo"

	"github.com/shopspring/decimal"
)

// View types shape the JSON the dashboard consumes, mirroring the document
// layout of the entities (camelCase keys, embedded histories).

type productView struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Sizes     []string        `json:"sizes"`
	ImageURLs []string        `json:"images"`
	Price     decimal.Decimal `json:"price"`
	Cost      decimal.Decimal `json:"cost"`
	Stock     int             `json:"stock"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func toProductView(p repo.Product) productView {
	return productView{
		ID:        p.ID,
		SKU:       p.SKU,
		Name:      p.Name,
		Category:  p.Category,
		Sizes:     emptyIfNil(p.Sizes),
		ImageURLs: emptyIfNil(p.ImageURLs),
		Price:     p.Price,
		Cost:      p.Cost,
		Stock:     p.Stock,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type paymentView struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
	Date   time.Time       `json:"date"`
}

type customerView struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	WhatsAppNumber      string          `json:"whatsappNumber"`
	Balance             decimal.Decimal `json:"balance"`
	Notes               *string         `json:"notes"`
	LastReminder        *time.Time      `json:"lastReminder"`
	NextPaymentDate     *time.Time      `json:"nextPaymentDate"`
	PaymentReminderSent bool            `json:"paymentReminderSent"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
	PaymentHistory      []paymentView   `json:"paymentHistory,omitempty"`
	CreditHistory       []saleView      `json:"creditHistory,omitempty"`
}

func toCustomerView(c repo.Customer) customerView {
	view := customerView{
		ID:                  c.ID,
		Name:                c.Name,
		WhatsAppNumber:      c.WhatsAppNumber,
		Balance:             c.Balance,
		Notes:               c.Notes,
		LastReminder:        c.LastReminder,
		NextPaymentDate:     c.NextPaymentDate,
		PaymentReminderSent: c.PaymentReminderSent,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
	for _, p := range c.Payments {
		view.PaymentHistory = append(view.PaymentHistory, paymentView{
			ID:     p.ID,
			Amount: p.Amount,
			Note:   p.Note,
			Date:   p.PaidAt,
		})
	}
	for _, s := range c.CreditSales {
		view.CreditHistory = append(view.CreditHistory, toSaleView(s))
	}
	return view
}

type saleItemView struct {
	ProductID   string          `json:"product"`
	ProductName string          `json:"productName"`
	Size        string          `json:"size"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type saleView struct {
	ID            string          `json:"id"`
	Items         []saleItemView  `json:"items"`
	PaymentMethod string          `json:"paymentMethod"`
	Total         decimal.Decimal `json:"total"`
	IsCredit      bool            `json:"isCredit"`
	CustomerID    *string         `json:"customer"`
	Status        string          `json:"status"`
	Date          time.Time       `json:"date"`
}

func toSaleView(s repo.Sale) saleView {
	view := saleView{
		ID:            s.ID,
		Items:         []saleItemView{},
		PaymentMethod: s.PaymentMethod,
		Total:         s.Total,
		IsCredit:      s.IsCredit,
		CustomerID:    s.CustomerID,
		Status:        s.Status,
		Date:          s.SoldAt,
	}
	for _, item := range s.Items {
		view.Items = append(view.Items, saleItemView{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Size:        item.Size,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}
	return view
}

type notificationView struct {
	ID               string         `json:"id"`
	CustomerID       string         `json:"customer"`
	CustomerName     string         `json:"customerName"`
	WhatsAppNumber   string         `json:"whatsappNumber"`
	Message          string         `json:"message"`
	Status           string         `json:"status"`
	ProviderResponse map[string]any `json:"providerResponse"`
	Error            *string        `json:"error"`
	SentAt           time.Time      `json:"sentAt"`
}

func toNotificationView(n repo.NotificationLog) notificationView {
	return notificationView{
		ID:               n.ID,
		CustomerID:       n.CustomerID,
		CustomerName:     n.CustomerName,
		WhatsAppNumber:   n.WhatsAppNumber,
		Message:          n.Message,
		Status:           n.Status,
		ProviderResponse: n.ProviderResponse,
		Error:            n.Error,
		SentAt:           n.SentAt,
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
