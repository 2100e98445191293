package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DebtReminderMessage builds the outstanding-balance reminder body.
func DebtReminderMessage(storeName, customerName string, balance decimal.Decimal) string {
	return fmt.Sprintf(
		"Hola %s 👋\n\nDesde *%s* te recordamos que tienes un saldo pendiente de *%s*.\n\nPor favor, acércate cuando puedas para liquidar tu cuenta.\n\n¡Gracias por tu preferencia! 🙌",
		customerName, storeName, FormatMoney(balance),
	)
}

// ScheduledReminderMessage builds the due-payment-date reminder body.
func ScheduledReminderMessage(storeName, customerName string, balance decimal.Decimal, due time.Time) string {
	return fmt.Sprintf(
		"Hola %s 👋\n\nDesde *%s* te recordamos que tu pago de *%s* estaba programado para el %s.\n\nTe esperamos pronto. ¡Gracias! 🙌",
		customerName, storeName, FormatMoney(balance), due.Format("02/01/2006"),
	)
}

// FormatMoney renders an amount as Mexican pesos with thousands separators.
func FormatMoney(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	parts := strings.SplitN(fixed, ".", 2)
	whole := parts[0]

	var grouped strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}

	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s.%s MXN", sign, grouped.String(), parts[1])
}
