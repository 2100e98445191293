package httpserver

import (
	"net/http"

	"urban-store/internal/notify"
	"urban-store/internal/repo"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	filter := repo.NotificationFilter{
		Status:     r.URL.Query().Get("status"),
		CustomerID: r.URL.Query().Get("customerId"),
		Page:       queryInt(r, "page", "1"),
		Limit:      queryInt(r, "limit", "20"),
	}
	logs, total, err := s.deps.Store.ListNotificationLogs(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]notificationView, 0, len(logs))
	for _, log := range logs {
		views = append(views, toNotificationView(log))
	}
	s.writeList(w, views, makePagination(total, filter.Page, filter.Limit))
}

func (s *Server) handleNotificationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Store.NotificationStats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, map[string]any{
		"byStatus":  stats.ByStatus,
		"last7Days": stats.Last7d,
	})
}

// handleRunReminders triggers a reminder batch outside the cron schedule.
// The batch is best-effort; its summary is the response, never an error.
func (s *Server) handleRunReminders(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = notify.KindDebt
	}

	var (
		summary notify.Summary
		err     error
	)
	switch kind {
	case notify.KindDebt:
		summary, err = s.deps.Dispatcher.SendDebtReminders(r.Context())
	case notify.KindScheduled:
		summary, err = s.deps.Dispatcher.SendScheduledReminders(r.Context())
	default:
		s.writeBadRequest(w, "unknown reminder kind")
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, summary)
}
