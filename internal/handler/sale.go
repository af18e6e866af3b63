package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/bakery-engine/internal/domain/sale"
)

func writeSale(w http.ResponseWriter, status int, s *sale.Sale) {
	writeJSON(w, status, func(e *jx.Encoder) { encodeSale(e, s) })
}

// CreateSale handles POST /api/sales.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req sale.CreateRequest
	err := readObject(w, r, false, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "customer_id":
			req.CustomerID, err = optStr(d)
		case "customer_email":
			req.CustomerEmail, err = optStr(d)
		case "customer_name":
			req.CustomerName, err = optStr(d)
		case "payment_method":
			req.PaymentMethod, err = optStr(d)
		case "notes":
			req.Notes, err = optStr(d)
		case "items":
			req.Items, err = decodeItems(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s, err := h.sales.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSale(w, http.StatusCreated, s)
}

// GetSale handles GET /api/sales/{id}.
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	s, err := h.sales.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSale(w, http.StatusOK, s)
}

// CancelSale handles POST /api/sales/{id}/cancel with an optional reason.
func (h *Handler) CancelSale(w http.ResponseWriter, r *http.Request) {
	var reason string
	err := readObject(w, r, true, func(d *jx.Decoder, key string) error {
		if key == "reason" {
			var err error
			reason, err = optStr(d)
			return err
		}
		return d.Skip()
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s, err := h.sales.Cancel(r.Context(), r.PathValue("id"), reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSale(w, http.StatusOK, s)
}
