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

// PaymentRequest describes a payment to apply against a customer's balance.
type PaymentRequest struct {
	CustomerID string
	Amount     decimal.Decimal
	Note       string
}

// PaymentCoordinator atomically applies payments: balance decrease and the
// history entry commit together, and a debt settled in full forgets any
// pending reminder obligation.
type PaymentCoordinator struct {
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewPaymentCoordinator wires a payment coordinator.
func NewPaymentCoordinator(store Store, m *metrics.Metrics, logger *slog.Logger) *PaymentCoordinator {
	return &PaymentCoordinator{
		store:   store,
		metrics: m,
		logger:  logger.With("component", "payment_coordinator"),
		now:     time.Now,
	}
}

// Apply reduces the customer's balance by the payment amount and appends the
// history entry, or fails with nothing mutated.
func (c *PaymentCoordinator) Apply(ctx context.Context, req PaymentRequest) (*repo.Payment, error) {
	if req.CustomerID == "" {
		err := invalidRequest("customer is required")
		c.reject(err)
		return nil, err
	}
	if !req.Amount.IsPositive() {
		err := invalidRequest("amount must be greater than zero")
		c.reject(err)
		return nil, err
	}

	var applied *repo.Payment
	err := c.store.InTx(ctx, func(ctx context.Context, ops repo.TxOps) error {
		customer, err := ops.GetCustomerForUpdate(ctx, req.CustomerID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound("customer", req.CustomerID)
			}
			return err
		}
		if req.Amount.GreaterThan(customer.Balance) {
			return invalidRequest("amount exceeds pending debt of %s", customer.Balance.StringFixed(2))
		}

		if err := ops.AdjustBalance(ctx, customer.ID, req.Amount.Neg()); err != nil {
			return err
		}
		payment, err := ops.InsertPayment(ctx, repo.Payment{
			CustomerID: customer.ID,
			Amount:     req.Amount,
			Note:       req.Note,
			PaidAt:     c.now(),
		})
		if err != nil {
			return err
		}

		if customer.Balance.Sub(req.Amount).IsZero() {
			if err := ops.ClearReminderState(ctx, customer.ID); err != nil {
				return err
			}
		}

		applied = payment
		return nil
	})
	if err != nil {
		c.reject(err)
		return nil, err
	}

	c.metrics.PaymentsRecorded.Inc()
	c.logger.Info("payment applied",
		"customer_id", applied.CustomerID,
		"amount", applied.Amount.String(),
	)
	return applied, nil
}

func (c *PaymentCoordinator) reject(err error) {
	reason := "transaction"
	switch {
	case errors.Is(err, ErrInvalidRequest):
		reason = "invalid_request"
	case errors.Is(err, ErrNotFound):
		reason = "not_found"
	}
	c.metrics.PaymentsRejected.WithLabelValues(reason).Inc()
	if reason == "transaction" {
		c.logger.Error("payment aborted", "error", err)
	}
}
