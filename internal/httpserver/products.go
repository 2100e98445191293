package httpserver

import (
	"net/http"
	"strings"

	"urban-store/internal/repo"

	"github.com/shopspring/decimal"
)

type productRequest struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Sizes     []string        `json:"sizes"`
	ImageURLs []string        `json:"images"`
	Price     decimal.Decimal `json:"price"`
	Cost      decimal.Decimal `json:"cost"`
	Stock     int             `json:"stock"`
}

func (req *productRequest) validate() string {
	switch {
	case strings.TrimSpace(req.SKU) == "":
		return "sku is required"
	case strings.TrimSpace(req.Name) == "":
		return "name is required"
	case strings.TrimSpace(req.Category) == "":
		return "category is required"
	case req.Price.IsNegative():
		return "price cannot be negative"
	case req.Cost.IsNegative():
		return "cost cannot be negative"
	case req.Stock < 0:
		return "stock cannot be negative"
	}
	return ""
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		s.writeBadRequest(w, msg)
		return
	}

	product, err := s.deps.Store.InsertProduct(r.Context(), repo.Product{
		SKU:       req.SKU,
		Name:      req.Name,
		Category:  req.Category,
		Sizes:     emptyIfNil(req.Sizes),
		ImageURLs: emptyIfNil(req.ImageURLs),
		Price:     req.Price,
		Cost:      req.Cost,
		Stock:     req.Stock,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusCreated, toProductView(*product))
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}
	product, err := s.deps.Store.GetProductByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toProductView(*product))
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filter := repo.ProductFilter{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
		Page:     queryInt(r, "page", "1"),
		Limit:    queryInt(r, "limit", "50"),
	}
	products, total, err := s.deps.Store.ListProducts(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, toProductView(p))
	}
	s.writeList(w, views, makePagination(total, filter.Page, filter.Limit))
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		s.writeBadRequest(w, msg)
		return
	}

	// Stock is absent here on purpose: it changes only through committed sales.
	product, err := s.deps.Store.UpdateProduct(r.Context(), repo.Product{
		ID:        id,
		SKU:       req.SKU,
		Name:      req.Name,
		Category:  req.Category,
		Sizes:     emptyIfNil(req.Sizes),
		ImageURLs: emptyIfNil(req.ImageURLs),
		Price:     req.Price,
		Cost:      req.Cost,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toProductView(*product))
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeBadRequest(w, err.Error())
		return
	}
	if err := s.deps.Store.DeleteProduct(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, map[string]string{"id": id})
}
