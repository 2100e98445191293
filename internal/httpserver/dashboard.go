package httpserver

import (
	"net/http"

	"urban-store/internal/repo"
)

const dashboardCacheKey = "dashboard:stats"

// handleDashboard serves the aggregate snapshot, read through the redis cache.
// A cache outage degrades to a direct query, never to an error.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.Redis != nil {
		var cached repo.DashboardStats
		hit, err := s.deps.Redis.GetJSON(r.Context(), dashboardCacheKey, &cached)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", "error", err)
		} else if hit {
			s.writeData(w, http.StatusOK, cached)
			return
		}
	}

	stats, err := s.deps.Store.DashboardStats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.deps.Redis != nil {
		if err := s.deps.Redis.SetJSON(r.Context(), dashboardCacheKey, stats, s.deps.DashboardTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", "error", err)
		}
	}
	s.writeData(w, http.StatusOK, *stats)
}
