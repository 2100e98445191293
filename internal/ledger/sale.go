package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"urban-store/internal/metrics"
	"urban-store/internal/repo"

	"github.com/shopspring/decimal"
)

// Store is the persistence surface the coordinators require. Satisfied by
// *repo.Repository.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, ops repo.TxOps) error) error
	GetCustomerByID(ctx context.Context, id string) (*repo.Customer, error)
}

// SaleLine is one requested line of a sale. UnitPrice is taken as submitted;
// the register does not reprice from the catalog.
type SaleLine struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Size      string
}

// SaleRequest describes a sale to commit.
type SaleRequest struct {
	Items         []SaleLine
	PaymentMethod string
	IsCredit      bool
	CustomerID    string
}

// SaleCoordinator validates and atomically commits sales: stock decrements,
// the sale record, and (for credit sales) the customer's balance increase all
// land in one transaction or not at all.
type SaleCoordinator struct {
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewSaleCoordinator wires a sale coordinator.
func NewSaleCoordinator(store Store, m *metrics.Metrics, logger *slog.Logger) *SaleCoordinator {
	return &SaleCoordinator{
		store:   store,
		metrics: m,
		logger:  logger.With("component", "sale_coordinator"),
		now:     time.Now,
	}
}

// Register commits the requested sale and returns it with resolved line-item
// snapshots, or fails with no partial effect.
func (c *SaleCoordinator) Register(ctx context.Context, req SaleRequest) (*repo.Sale, error) {
	if err := c.validate(req); err != nil {
		c.reject(err)
		return nil, err
	}

	var committed *repo.Sale
	err := c.store.InTx(ctx, func(ctx context.Context, ops repo.TxOps) error {
		total := decimal.Zero
		items := make([]repo.SaleItem, 0, len(req.Items))

		for _, line := range req.Items {
			product, err := ops.GetProductForUpdate(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return notFound("product", line.ProductID)
				}
				return err
			}
			if product.Stock < line.Quantity {
				return &InsufficientStockError{
					ProductName: product.Name,
					Available:   product.Stock,
					Requested:   line.Quantity,
				}
			}

			// Decrement before resolving the next line so a later line for
			// the same product checks against the remaining stock.
			if err := ops.AdjustStock(ctx, product.ID, -line.Quantity); err != nil {
				return err
			}

			subtotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(subtotal)
			items = append(items, repo.SaleItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Size:        line.Size,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				Subtotal:    subtotal,
			})
		}

		sale := repo.Sale{
			Items:         items,
			PaymentMethod: req.PaymentMethod,
			Total:         total,
			IsCredit:      req.IsCredit,
			Status:        repo.SaleCompleted,
			SoldAt:        c.now(),
		}
		if req.IsCredit {
			customerID := req.CustomerID
			sale.CustomerID = &customerID
		}

		inserted, err := ops.InsertSale(ctx, sale)
		if err != nil {
			return err
		}

		if req.IsCredit {
			if _, err := ops.GetCustomerForUpdate(ctx, req.CustomerID); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return notFound("customer", req.CustomerID)
				}
				return err
			}
			if err := ops.AdjustBalance(ctx, req.CustomerID, total); err != nil {
				return err
			}
		}

		committed = inserted
		return nil
	})
	if err != nil {
		c.reject(err)
		return nil, err
	}

	c.metrics.SalesCommitted.WithLabelValues(committed.PaymentMethod).Inc()
	c.logger.Info("sale committed",
		"sale_id", committed.ID,
		"total", committed.Total.String(),
		"method", committed.PaymentMethod,
		"credit", committed.IsCredit,
	)
	return committed, nil
}

func (c *SaleCoordinator) validate(req SaleRequest) error {
	if req.IsCredit && req.CustomerID == "" {
		return invalidRequest("credit sales require a customer")
	}
	if !repo.ValidPaymentMethod(req.PaymentMethod) {
		return invalidRequest("unknown payment method %q", req.PaymentMethod)
	}
	if req.IsCredit != (req.PaymentMethod == repo.PaymentCredit) {
		return invalidRequest("credit flag and payment method disagree")
	}
	if len(req.Items) == 0 {
		return invalidRequest("sale requires at least one item")
	}
	for i, line := range req.Items {
		if line.ProductID == "" {
			return invalidRequest("line %d: product is required", i+1)
		}
		if line.Quantity < 1 {
			return invalidRequest("line %d: quantity must be at least 1", i+1)
		}
		if line.UnitPrice.IsNegative() {
			return invalidRequest("line %d: unit price cannot be negative", i+1)
		}
	}
	return nil
}

func (c *SaleCoordinator) reject(err error) {
	reason := "transaction"
	var stockErr *InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		reason = "insufficient_stock"
	case errors.Is(err, ErrInvalidRequest):
		reason = "invalid_request"
	case errors.Is(err, ErrNotFound):
		reason = "not_found"
	}
	c.metrics.SalesRejected.WithLabelValues(reason).Inc()
	if reason == "transaction" {
		c.logger.Error("sale aborted", "error", err)
	}
}
