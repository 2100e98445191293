package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"urban-store/internal/ledger"
	"urban-store/internal/metrics"
	"urban-store/internal/repo"
)

// Reminder kinds recorded in metrics and logs.
const (
	KindDebt      = "debt"
	KindScheduled = "scheduled"
)

// Store is the persistence surface the dispatcher requires. Satisfied by
// *repo.Repository.
type Store interface {
	ListCustomersWithDebt(ctx context.Context) ([]repo.Customer, error)
	InsertNotificationLog(ctx context.Context, log repo.NotificationLog) (*repo.NotificationLog, error)
	InTx(ctx context.Context, fn func(ctx context.Context, ops repo.TxOps) error) error
}

// Summary reports the outcome of one dispatch batch.
type Summary struct {
	Eligible int `json:"eligible"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
}

// Dispatcher sends reminder batches sequentially with a fixed spacing between
// sends. It is best-effort: one customer's failure is logged and the batch
// moves on.
type Dispatcher struct {
	store     Store
	sender    Sender
	metrics   *metrics.Metrics
	logger    *slog.Logger
	storeName string
	spacing   time.Duration
	sleep     func(ctx context.Context, d time.Duration)
	now       func() time.Time
}

// NewDispatcher wires a reminder dispatcher. Spacing below one second is
// raised to one second to respect provider rate limits.
func NewDispatcher(store Store, sender Sender, m *metrics.Metrics, logger *slog.Logger, storeName string, spacing time.Duration) *Dispatcher {
	if spacing < time.Second {
		spacing = time.Second
	}
	return &Dispatcher{
		store:     store,
		sender:    sender,
		metrics:   m,
		logger:    logger.With("component", "dispatcher"),
		storeName: storeName,
		spacing:   spacing,
		sleep:     sleepCtx,
		now:       time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// SendDebtReminders runs one debt-reminder batch over all eligible customers.
func (d *Dispatcher) SendDebtReminders(ctx context.Context) (Summary, error) {
	return d.run(ctx, KindDebt)
}

// SendScheduledReminders runs one scheduled-payment-reminder batch.
func (d *Dispatcher) SendScheduledReminders(ctx context.Context) (Summary, error) {
	return d.run(ctx, KindScheduled)
}

func (d *Dispatcher) run(ctx context.Context, kind string) (Summary, error) {
	started := d.now()
	defer func() {
		d.metrics.DispatchDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	}()

	debtors, err := d.store.ListCustomersWithDebt(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load debtors: %w", err)
	}

	now := d.now()
	var eligible []repo.Customer
	if kind == KindDebt {
		eligible = ledger.SelectDebtReminders(debtors, now)
	} else {
		eligible = ledger.SelectScheduledReminders(debtors, now)
	}

	summary := Summary{Eligible: len(eligible)}
	if len(eligible) == 0 {
		d.logger.Info("no customers due for reminders", "kind", kind)
		return summary, nil
	}

	d.logger.Info("starting reminder batch", "kind", kind, "eligible", len(eligible))

	for i, customer := range eligible {
		if i > 0 {
			d.sleep(ctx, d.spacing)
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if d.dispatchOne(ctx, kind, customer) {
			summary.Sent++
		} else {
			summary.Failed++
		}
	}

	d.logger.Info("reminder batch finished",
		"kind", kind,
		"eligible", summary.Eligible,
		"sent", summary.Sent,
		"failed", summary.Failed,
	)
	return summary, nil
}

// dispatchOne sends to a single customer and records the attempt. It never
// propagates an error: a failure is logged (both slog and the delivery log)
// and the caller continues with the rest of the batch.
func (d *Dispatcher) dispatchOne(ctx context.Context, kind string, customer repo.Customer) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic dispatching reminder", "customer_id", customer.ID, "panic", r)
			d.metrics.Errors.WithLabelValues("dispatcher").Inc()
			d.recordFailure(ctx, kind, customer, "dispatch aborted", fmt.Sprintf("panic: %v", r))
			ok = false
		}
	}()

	message := d.buildMessage(kind, customer)

	result, err := d.sender.Send(ctx, customer.WhatsAppNumber, message)
	if err != nil {
		d.logger.Error("reminder send failed", "kind", kind, "customer_id", customer.ID, "error", err)
		d.metrics.NotificationsSent.WithLabelValues(kind, repo.NotificationFailed).Inc()
		d.recordFailure(ctx, kind, customer, message, err.Error())
		return false
	}

	log := repo.NotificationLog{
		CustomerID:     customer.ID,
		CustomerName:   customer.Name,
		WhatsAppNumber: customer.WhatsAppNumber,
		Message:        message,
		Status:         repo.NotificationSent,
		ProviderResponse: map[string]any{
			"provider_id": result.ProviderID,
			"simulated":   result.Simulated,
		},
		SentAt: d.now(),
	}

	// The delivery log and the reminder-state update commit together.
	err = d.store.InTx(ctx, func(ctx context.Context, ops repo.TxOps) error {
		if _, err := ops.InsertNotificationLog(ctx, log); err != nil {
			return err
		}
		if kind == KindDebt {
			return ops.SetLastReminder(ctx, customer.ID, d.now())
		}
		return ops.SetPaymentReminderSent(ctx, customer.ID, true)
	})
	if err != nil {
		d.logger.Error("recording reminder failed", "customer_id", customer.ID, "error", err)
		d.metrics.Errors.WithLabelValues("dispatcher").Inc()
		return false
	}

	d.metrics.NotificationsSent.WithLabelValues(kind, repo.NotificationSent).Inc()
	d.logger.Info("reminder sent", "kind", kind, "customer_id", customer.ID, "simulated", result.Simulated)
	return true
}

func (d *Dispatcher) buildMessage(kind string, customer repo.Customer) string {
	if kind == KindScheduled && customer.NextPaymentDate != nil {
		return ScheduledReminderMessage(d.storeName, customer.Name, customer.Balance, *customer.NextPaymentDate)
	}
	return DebtReminderMessage(d.storeName, customer.Name, customer.Balance)
}

// recordFailure writes a failed delivery-log entry. Customer state is left
// untouched so the customer stays eligible for the next cycle.
func (d *Dispatcher) recordFailure(ctx context.Context, kind string, customer repo.Customer, message, errText string) {
	failLog := repo.NotificationLog{
		CustomerID:     customer.ID,
		CustomerName:   customer.Name,
		WhatsAppNumber: customer.WhatsAppNumber,
		Message:        message,
		Status:         repo.NotificationFailed,
		Error:          &errText,
		SentAt:         d.now(),
	}
	if _, err := d.store.InsertNotificationLog(ctx, failLog); err != nil {
		d.logger.Error("writing failure log failed", "kind", kind, "customer_id", customer.ID, "error", err)
		d.metrics.Errors.WithLabelValues("dispatcher").Inc()
	}
}
