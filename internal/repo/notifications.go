package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const notificationColumns = `id, customer_id, customer_name, whatsapp_number, message, status, provider_response, error, sent_at`

func scanNotificationLog(row interface{ Scan(...any) error }) (*NotificationLog, error) {
	var n NotificationLog
	var payload []byte
	if err := row.Scan(&n.ID, &n.CustomerID, &n.CustomerName, &n.WhatsAppNumber, &n.Message, &n.Status, &payload, &n.Error, &n.SentAt); err != nil {
		return nil, err
	}
	n.ProviderResponse = fromJSON(payload)
	return &n, nil
}

func insertNotificationLog(ctx context.Context, q pgxQuerier, log NotificationLog) (*NotificationLog, error) {
	payload, err := toJSON(log.ProviderResponse)
	if err != nil {
		return nil, err
	}
	const stmt = `
INSERT INTO notification_logs (customer_id, customer_name, whatsapp_number, message, status, provider_response, error, sent_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + notificationColumns + `;`
	row := q.QueryRow(ctx, stmt,
		log.CustomerID,
		log.CustomerName,
		log.WhatsAppNumber,
		log.Message,
		log.Status,
		jsonParam(payload),
		log.Error,
		log.SentAt,
	)
	inserted, err := scanNotificationLog(row)
	if err != nil {
		return nil, fmt.Errorf("insert notification log: %w", err)
	}
	return inserted, nil
}

// pgxQuerier is satisfied by both the pool and a transaction.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// InsertNotificationLog appends one delivery-attempt record.
func (r *Repository) InsertNotificationLog(ctx context.Context, log NotificationLog) (*NotificationLog, error) {
	return insertNotificationLog(ctx, r.pool, log)
}

// InsertNotificationLog appends a delivery-attempt record inside the current
// transaction, so a success log commits together with its reminder-state update.
func (t *txOps) InsertNotificationLog(ctx context.Context, log NotificationLog) (*NotificationLog, error) {
	return insertNotificationLog(ctx, t.tx, log)
}

// ListNotificationLogs returns a page of delivery logs, newest first.
func (r *Repository) ListNotificationLogs(ctx context.Context, f NotificationFilter) ([]NotificationLog, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.CustomerID != "" {
		args = append(args, f.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notification_logs WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notification logs: %w", err)
	}

	limit, offset := pageOffset(f.Page, f.Limit, 20)
	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM notification_logs WHERE %s ORDER BY sent_at DESC LIMIT $%d OFFSET $%d;`,
		notificationColumns, cond, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notification logs: %w", err)
	}
	defer rows.Close()

	var logs []NotificationLog
	for rows.Next() {
		n, err := scanNotificationLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan notification log: %w", err)
		}
		logs = append(logs, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate notification logs: %w", err)
	}
	return logs, total, nil
}

// NotificationStats aggregates the delivery log by status plus a 7-day count.
func (r *Repository) NotificationStats(ctx context.Context) (*NotificationStats, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM notification_logs GROUP BY status;`)
	if err != nil {
		return nil, fmt.Errorf("notification stats: %w", err)
	}
	defer rows.Close()

	stats := &NotificationStats{ByStatus: map[string]int{}}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan notification stat: %w", err)
		}
		stats.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notification stats: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -7)
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notification_logs WHERE sent_at >= $1;`, cutoff).Scan(&stats.Last7d); err != nil {
		return nil, fmt.Errorf("notification stats recent: %w", err)
	}
	return stats, nil
}
