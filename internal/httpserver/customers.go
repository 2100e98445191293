package httpserver

import (
	"net/http"
	"strings"
	"time"

	"urban-store/internal/ledger"
	"urban-store/internal/notify"
	"urban-store/internal/repo"

	"github.com/shopspring/decimal"
)

type customerRequest struct {
	Name            string     `json:"name"`
	WhatsAppNumber  string     `json:"whatsappNumber"`
	Notes           *string    `json:"notes"`
	NextPaymentDate *time.Time `json:"nextPaymentDate"`
}

func (req *customerRequest) validate() string {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return "name is required"
	case !notify.ValidWhatsAppNumber(req.WhatsAppNumber):
		return "invalid whatsapp number"
	}
	return ""
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		s.writeBadRequest(w, msg)
		return
	}

	customer, err := s.deps.Store.InsertCustomer(r.Context(), repo.Customer{
		Name:            req.Name,
		WhatsAppNumber:  req.WhatsAppNumber,
		Notes:           req.Notes,
		NextPaymentDate: req.NextPaymentDate,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusCreated, toCustomerView(*customer))
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}
	customer, err := s.deps.Store.GetCustomerByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toCustomerView(*customer))
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	filter := repo.CustomerFilter{
		Search:  r.URL.Query().Get("search"),
		HasDebt: r.URL.Query().Get("hasDebt") == "true",
		Page:    queryInt(r, "page", "1"),
		Limit:   queryInt(r, "limit", "50"),
	}
	customers, total, err := s.deps.Store.ListCustomers(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]customerView, 0, len(customers))
	for _, c := range customers {
		views = append(views, toCustomerView(c))
	}
	s.writeList(w, views, makePagination(total, filter.Page, filter.Limit))
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		s.writeBadRequest(w, msg)
		return
	}

	customer, err := s.deps.Store.UpdateCustomer(r.Context(), repo.Customer{
		ID:              id,
		Name:            req.Name,
		WhatsAppNumber:  req.WhatsAppNumber,
		Notes:           req.Notes,
		NextPaymentDate: req.NextPaymentDate,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toCustomerView(*customer))
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}

	customer, err := s.deps.Store.GetCustomerByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if customer.Balance.IsPositive() {
		s.writeBadRequest(w, "cannot delete a customer with pending debt")
		return
	}

	if err := s.deps.Store.DeleteCustomer(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, map[string]string{"id": id})
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

func (s *Server) handleRegisterPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}

	payment, err := s.deps.Payments.Apply(r.Context(), ledger.PaymentRequest{
		CustomerID: id,
		Amount:     req.Amount,
		Note:       req.Note,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	customer, err := s.deps.Store.GetCustomerByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, map[string]any{
		"customer": toCustomerView(*customer),
		"payment": paymentView{
			ID:     payment.ID,
			Amount: payment.Amount,
			Note:   payment.Note,
			Date:   payment.PaidAt,
		},
		"newBalance": customer.Balance,
	})
}

func (s *Server) handleDelinquentCustomers(w http.ResponseWriter, r *http.Request) {
	debtors, err := s.deps.Store.ListCustomersWithDebt(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	due := ledger.SelectDebtReminders(debtors, time.Now())
	views := make([]customerView, 0, len(due))
	for _, c := range due {
		views = append(views, toCustomerView(c))
	}
	s.writeData(w, http.StatusOK, views)
}
