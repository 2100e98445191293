package httpserver

import (
	"net/http"
	"time"

	"urban-store/internal/ledger"
	"urban-store/internal/repo"

	"github.com/shopspring/decimal"
)

type saleLineRequest struct {
	ProductID string          `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Size      string          `json:"size"`
}

type saleRequest struct {
	Items         []saleLineRequest `json:"items"`
	PaymentMethod string            `json:"paymentMethod"`
	IsCredit      bool              `json:"isCredit"`
	CustomerID    string            `json:"customer"`
}

func (s *Server) handleRegisterSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}

	lines := make([]ledger.SaleLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, ledger.SaleLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Size:      item.Size,
		})
	}

	sale, err := s.deps.Sales.Register(r.Context(), ledger.SaleRequest{
		Items:         lines,
		PaymentMethod: req.PaymentMethod,
		IsCredit:      req.IsCredit,
		CustomerID:    req.CustomerID,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusCreated, toSaleView(*sale))
}

func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}
	sale, err := s.deps.Store.GetSaleByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toSaleView(*sale))
}

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	from, err := queryTime(r, "startDate")
	if err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}
	to, err := queryTime(r, "endDate")
	if err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}

	filter := repo.SaleFilter{
		From:          from,
		To:            to,
		PaymentMethod: r.URL.Query().Get("paymentMethod"),
		Page:          queryInt(r, "page", "1"),
		Limit:         queryInt(r, "limit", "20"),
	}
	sales, total, err := s.deps.Store.ListSales(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]saleView, 0, len(sales))
	for _, sale := range sales {
		views = append(views, toSaleView(sale))
	}
	s.writeList(w, views, makePagination(total, filter.Page, filter.Limit))
}

func (s *Server) handleTodaySales(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	summary, err := s.deps.Store.SalesSummary(r.Context(), dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, map[string]any{
		"count": summary.Count,
		"total": summary.Total,
	})
}

func (s *Server) handleSalesStats(w http.ResponseWriter, r *http.Request) {
	from, err := queryTime(r, "startDate")
	if err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}
	to, err := queryTime(r, "endDate")
	if err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}

	stats, err := s.deps.Store.SalesStats(r.Context(), from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}

	type statView struct {
		PaymentMethod string          `json:"paymentMethod"`
		Count         int             `json:"count"`
		Total         decimal.Decimal `json:"total"`
	}
	views := make([]statView, 0, len(stats))
	for _, st := range stats {
		views = append(views, statView(st))
	}
	s.writeData(w, http.StatusOK, views)
}

func (s *Server) handleCancelSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}
	if err := s.deps.Store.CancelSale(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	sale, err := s.deps.Store.GetSaleByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toSaleView(*sale))
}
