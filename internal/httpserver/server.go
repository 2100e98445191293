package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"urban-store/internal/cache"
	"urban-store/internal/ledger"
	"urban-store/internal/metrics"
	"urban-store/internal/notify"
	"urban-store/internal/repo"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies groups everything the admin surface needs.
type Dependencies struct {
	Store        repo.Store
	Sales        *ledger.SaleCoordinator
	Payments     *ledger.PaymentCoordinator
	Dispatcher   *notify.Dispatcher
	Redis        *cache.Redis
	DashboardTTL time.Duration
}

// Server wraps an http.Server with the admin, health and metrics routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *metrics.Metrics
	deps       Dependencies
}

// New creates the HTTP server listening on addr.
func New(addr string, logger *slog.Logger, metricRegistry *metrics.Metrics, deps Dependencies) *Server {
	server := &Server{
		logger:  logger.With("component", "http"),
		metrics: metricRegistry,
		deps:    deps,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", server.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/products", server.handleListProducts)
	mux.HandleFunc("POST /api/products", server.handleCreateProduct)
	mux.HandleFunc("GET /api/products/{id}", server.handleGetProduct)
	mux.HandleFunc("PUT /api/products/{id}", server.handleUpdateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", server.handleDeleteProduct)

	mux.HandleFunc("GET /api/customers", server.handleListCustomers)
	mux.HandleFunc("POST /api/customers", server.handleCreateCustomer)
	mux.HandleFunc("GET /api/customers/delinquent", server.handleDelinquentCustomers)
	mux.HandleFunc("GET /api/customers/{id}", server.handleGetCustomer)
	mux.HandleFunc("PUT /api/customers/{id}", server.handleUpdateCustomer)
	mux.HandleFunc("DELETE /api/customers/{id}", server.handleDeleteCustomer)
	mux.HandleFunc("POST /api/customers/{id}/payments", server.handleRegisterPayment)

	mux.HandleFunc("GET /api/sales", server.handleListSales)
	mux.HandleFunc("POST /api/sales", server.handleRegisterSale)
	mux.HandleFunc("GET /api/sales/today", server.handleTodaySales)
	mux.HandleFunc("GET /api/sales/stats", server.handleSalesStats)
	mux.HandleFunc("GET /api/sales/{id}", server.handleGetSale)
	mux.HandleFunc("POST /api/sales/{id}/cancel", server.handleCancelSale)

	mux.HandleFunc("GET /api/notifications", server.handleListNotifications)
	mux.HandleFunc("GET /api/notifications/stats", server.handleNotificationStats)
	mux.HandleFunc("POST /api/notifications/run", server.handleRunReminders)

	mux.HandleFunc("GET /api/dashboard", server.handleDashboard)

	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           server.instrument(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server
}

// statusRecorder captures the response status for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// instrument counts every request by matched route pattern and status class.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequests.WithLabelValues(route, fmt.Sprintf("%dxx", rec.status/100)).Inc()
	})
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.Ping(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pagination mirrors the list-endpoint envelope.
type pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

func makePagination(total, page, limit int) pagination {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 1
	}
	return pagination{
		Total: total,
		Page:  page,
		Pages: (total + limit - 1) / limit,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeData(w http.ResponseWriter, status int, data any) {
	s.writeJSON(w, status, map[string]any{"success": true, "data": data})
}

func (s *Server) writeList(w http.ResponseWriter, data any, p pagination) {
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data, "pagination": p})
}

// writeError maps the ledger error taxonomy onto HTTP statuses. Transaction
// failures stay generic, precondition failures carry their message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, repo.ErrNotFound):
		status = http.StatusNotFound
		message = "not found"
		if errors.Is(err, ledger.ErrNotFound) {
			message = err.Error()
		}
	case errors.Is(err, ledger.ErrInvalidRequest):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, repo.ErrDuplicateSKU):
		status = http.StatusBadRequest
		message = "SKU already exists"
	default:
		s.logger.Error("request failed", "error", err)
		s.metrics.Errors.WithLabelValues("http").Inc()
	}

	s.writeJSON(w, status, map[string]any{"success": false, "message": message})
}

func (s *Server) writeBadRequest(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": message})
}

// pathID extracts and validates the {id} path segment as a UUID.
func pathID(r *http.Request) (string, error) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("invalid id %q", id)
	}
	return id, nil
}

func queryInt(r *http.Request, key, fallback string) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		v = fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func queryTime(r *http.Request, key string) (*time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid %s %q", key, v)
}

func decodeJSON(r *http.Request, dest any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}
