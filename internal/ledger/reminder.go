package ledger

import (
	"sort"
	"time"

	"urban-store/internal/repo"
)

// DebtReminderInterval is the minimum spacing between debt reminders to the
// same customer.
const DebtReminderInterval = 7 * 24 * time.Hour

// DebtReminderDue reports whether the customer qualifies for a debt reminder:
// a positive balance and either no previous reminder or one at least seven
// days old.
func DebtReminderDue(c repo.Customer, now time.Time) bool {
	if !c.Balance.IsPositive() {
		return false
	}
	if c.LastReminder == nil {
		return true
	}
	return !c.LastReminder.After(now.Add(-DebtReminderInterval))
}

// ScheduledReminderDue reports whether the customer qualifies for a
// scheduled-payment-date reminder: the date has arrived, the debt is still
// open, and no reminder for it has gone out yet.
func ScheduledReminderDue(c repo.Customer, now time.Time) bool {
	if c.NextPaymentDate == nil || c.PaymentReminderSent {
		return false
	}
	if !c.Balance.IsPositive() {
		return false
	}
	return !c.NextPaymentDate.After(now)
}

// SelectDebtReminders filters customers by the debt rule and orders them by
// balance descending so the highest debt is processed first.
func SelectDebtReminders(customers []repo.Customer, now time.Time) []repo.Customer {
	var due []repo.Customer
	for _, c := range customers {
		if DebtReminderDue(c, now) {
			due = append(due, c)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].Balance.GreaterThan(due[j].Balance)
	})
	return due
}

// SelectScheduledReminders filters customers by the scheduled-payment rule.
func SelectScheduledReminders(customers []repo.Customer, now time.Time) []repo.Customer {
	var due []repo.Customer
	for _, c := range customers {
		if ScheduledReminderDue(c, now) {
			due = append(due, c)
		}
	}
	return due
}
