package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"urban-store/internal/metrics"
	"urban-store/internal/repo"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent    []string // recipient numbers in send order
	failFor map[string]error
	panicOn string
}

func (f *fakeSender) Send(_ context.Context, to, _ string) (SendResult, error) {
	if to == f.panicOn {
		panic("provider client gone")
	}
	if err, ok := f.failFor[to]; ok {
		return SendResult{}, err
	}
	f.sent = append(f.sent, to)
	return SendResult{ProviderID: "wamid-" + to}, nil
}

// fakeStore is just enough of the repository for dispatcher tests. InTx runs
// fn against the same state with no rollback; the dispatcher's transactions
// here only append a log and flip reminder flags.
type fakeStore struct {
	customers []repo.Customer
	logs      []repo.NotificationLog
	listErr   error
}

func (s *fakeStore) ListCustomersWithDebt(context.Context) ([]repo.Customer, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.customers, nil
}

func (s *fakeStore) InsertNotificationLog(_ context.Context, log repo.NotificationLog) (*repo.NotificationLog, error) {
	s.logs = append(s.logs, log)
	return &log, nil
}

func (s *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context, ops repo.TxOps) error) error {
	return fn(ctx, &fakeTx{store: s})
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) InsertNotificationLog(ctx context.Context, log repo.NotificationLog) (*repo.NotificationLog, error) {
	return t.store.InsertNotificationLog(ctx, log)
}

func (t *fakeTx) SetLastReminder(_ context.Context, customerID string, at time.Time) error {
	for i := range t.store.customers {
		if t.store.customers[i].ID == customerID {
			t.store.customers[i].LastReminder = &at
			return nil
		}
	}
	return repo.ErrNotFound
}

func (t *fakeTx) SetPaymentReminderSent(_ context.Context, customerID string, sent bool) error {
	for i := range t.store.customers {
		if t.store.customers[i].ID == customerID {
			t.store.customers[i].PaymentReminderSent = sent
			return nil
		}
	}
	return repo.ErrNotFound
}

// Unused by the dispatcher.
func (t *fakeTx) GetProductForUpdate(context.Context, string) (*repo.Product, error) {
	return nil, repo.ErrNotFound
}
func (t *fakeTx) AdjustStock(context.Context, string, int) error { return nil }
func (t *fakeTx) InsertSale(context.Context, repo.Sale) (*repo.Sale, error) {
	return nil, repo.ErrNotFound
}
func (t *fakeTx) GetCustomerForUpdate(context.Context, string) (*repo.Customer, error) {
	return nil, repo.ErrNotFound
}
func (t *fakeTx) AdjustBalance(context.Context, string, decimal.Decimal) error { return nil }
func (t *fakeTx) InsertPayment(context.Context, repo.Payment) (*repo.Payment, error) {
	return nil, repo.ErrNotFound
}
func (t *fakeTx) ClearReminderState(context.Context, string) error { return nil }

func debtor(id, number, balance string) repo.Customer {
	return repo.Customer{
		ID:             id,
		Name:           "Cliente " + id,
		WhatsAppNumber: number,
		Balance:        decimal.RequireFromString(balance),
	}
}

func newTestDispatcher(store *fakeStore, sender Sender) (*Dispatcher, *[]time.Duration) {
	d := NewDispatcher(store, sender, metrics.Registry("test"),
		slog.New(slog.NewTextHandler(io.Discard, nil)), "Urban Store", time.Second)
	var slept []time.Duration
	d.sleep = func(_ context.Context, dur time.Duration) { slept = append(slept, dur) }
	return d, &slept
}

func TestSendDebtRemindersUpdatesStateAndLogs(t *testing.T) {
	store := &fakeStore{customers: []repo.Customer{
		debtor("a", "+5215511111111", "100.00"),
		debtor("b", "+5215522222222", "900.00"),
	}}
	sender := &fakeSender{}
	d, slept := newTestDispatcher(store, sender)

	summary, err := d.SendDebtReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Eligible: 2, Sent: 2, Failed: 0}, summary)

	// Highest balance first, one spacing pause between the two sends.
	assert.Equal(t, []string{"+5215522222222", "+5215511111111"}, sender.sent)
	assert.Equal(t, []time.Duration{time.Second}, *slept)

	require.Len(t, store.logs, 2)
	assert.Equal(t, repo.NotificationSent, store.logs[0].Status)
	assert.Contains(t, store.logs[0].Message, "saldo pendiente")
	for _, c := range store.customers {
		assert.NotNil(t, c.LastReminder, "customer %s", c.ID)
	}
}

func TestSendDebtRemindersFailureDoesNotBlockBatch(t *testing.T) {
	store := &fakeStore{customers: []repo.Customer{
		debtor("a", "+5215511111111", "900.00"),
		debtor("b", "+5215522222222", "100.00"),
	}}
	sender := &fakeSender{failFor: map[string]error{
		"+5215511111111": errors.New("recipient not on whatsapp"),
	}}
	d, _ := newTestDispatcher(store, sender)

	summary, err := d.SendDebtReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Eligible: 2, Sent: 1, Failed: 1}, summary)

	require.Len(t, store.logs, 2)
	assert.Equal(t, repo.NotificationFailed, store.logs[0].Status)
	require.NotNil(t, store.logs[0].Error)
	assert.Contains(t, *store.logs[0].Error, "not on whatsapp")

	// The failed customer keeps its eligibility for the next cycle.
	assert.Nil(t, store.customers[0].LastReminder)
	assert.NotNil(t, store.customers[1].LastReminder)
}

func TestSendDebtRemindersRecoversFromPanic(t *testing.T) {
	store := &fakeStore{customers: []repo.Customer{
		debtor("a", "+5215511111111", "900.00"),
		debtor("b", "+5215522222222", "100.00"),
	}}
	sender := &fakeSender{panicOn: "+5215511111111"}
	d, _ := newTestDispatcher(store, sender)

	summary, err := d.SendDebtReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Eligible: 2, Sent: 1, Failed: 1}, summary)
}

func TestSendScheduledReminders(t *testing.T) {
	yesterday := time.Now().Add(-24 * time.Hour)
	due := debtor("due", "+5215511111111", "250.00")
	due.NextPaymentDate = &yesterday
	notified := debtor("done", "+5215522222222", "250.00")
	notified.NextPaymentDate = &yesterday
	notified.PaymentReminderSent = true

	store := &fakeStore{customers: []repo.Customer{due, notified}}
	sender := &fakeSender{}
	d, _ := newTestDispatcher(store, sender)

	summary, err := d.SendScheduledReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Eligible: 1, Sent: 1, Failed: 0}, summary)

	assert.True(t, store.customers[0].PaymentReminderSent)
	require.Len(t, store.logs, 1)
	assert.Contains(t, store.logs[0].Message, "programado")
}

func TestSendDebtRemindersSimulatedSender(t *testing.T) {
	store := &fakeStore{customers: []repo.Customer{
		debtor("a", "+5215511111111", "100.00"),
	}}
	d, _ := newTestDispatcher(store, NewSimulatedSender(slog.New(slog.NewTextHandler(io.Discard, nil))))

	summary, err := d.SendDebtReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Eligible: 1, Sent: 1, Failed: 0}, summary)

	require.Len(t, store.logs, 1)
	assert.Equal(t, true, store.logs[0].ProviderResponse["simulated"])
}

func TestSendDebtRemindersListError(t *testing.T) {
	store := &fakeStore{listErr: errors.New("pool closed")}
	d, _ := newTestDispatcher(store, &fakeSender{})

	_, err := d.SendDebtReminders(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load debtors")
}
