// Package handler exposes the bakery engine over HTTP with JSON bodies.
package handler

import (
	"net/http"

	"github.com/xenking/bakery-engine/internal/domain/customer"
	"github.com/xenking/bakery-engine/internal/domain/order"
	"github.com/xenking/bakery-engine/internal/domain/product"
	"github.com/xenking/bakery-engine/internal/domain/sale"
	"github.com/xenking/bakery-engine/internal/domain/stock"
)

// Handler serves the engine endpoints.
type Handler struct {
	products  product.Repository
	ledger    stock.Ledger
	orders    *order.Service
	converter *order.Converter
	sales     *sale.Processor
	customers *customer.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	ledger stock.Ledger,
	orders *order.Service,
	converter *order.Converter,
	sales *sale.Processor,
	customers *customer.Service,
) *Handler {
	return &Handler{
		products:  products,
		ledger:    ledger,
		orders:    orders,
		converter: converter,
		sales:     sales,
		customers: customers,
	}
}

// Register adds all routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("POST /api/products/{id}/stock", h.Restock)

	mux.HandleFunc("POST /api/orders", h.CreateOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("GET /api/orders/number/{number}", h.GetOrderByNumber)
	mux.HandleFunc("POST /api/orders/{id}/advance", h.AdvanceOrder)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.CancelOrder)
	mux.HandleFunc("PUT /api/orders/{id}/state", h.SetOrderState)
	mux.HandleFunc("POST /api/orders/{id}/convert", h.ConvertOrder)

	mux.HandleFunc("POST /api/sales", h.CreateSale)
	mux.HandleFunc("GET /api/sales/{id}", h.GetSale)
	mux.HandleFunc("POST /api/sales/{id}/cancel", h.CancelSale)

	mux.HandleFunc("POST /api/customers/{email}/promo-code", h.ApplyPromoCode)
}
