package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/bakery-engine/internal/domain/stock"
)

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range products {
				encodeProduct(e, &products[i])
			}
		})
	})
}

// GetProduct handles GET /api/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, p) })
}

// Restock handles POST /api/products/{id}/stock with {"quantity": n}.
func (h *Handler) Restock(w http.ResponseWriter, r *http.Request) {
	var qty int
	err := readObject(w, r, false, func(d *jx.Decoder, key string) error {
		if key == "quantity" {
			var err error
			qty, err = d.Int()
			return err
		}
		return d.Skip()
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	id := r.PathValue("id")
	if _, err := h.products.GetByID(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := stock.Restock(r.Context(), h.ledger, id, qty); err != nil {
		writeError(w, r, err)
		return
	}
	h.GetProduct(w, r)
}

// ApplyPromoCode handles POST /api/customers/{email}/promo-code.
func (h *Handler) ApplyPromoCode(w http.ResponseWriter, r *http.Request) {
	var code string
	err := readObject(w, r, false, func(d *jx.Decoder, key string) error {
		if key == "code" {
			var err error
			code, err = d.Str()
			return err
		}
		return d.Skip()
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.customers.ApplyPromoCode(r.Context(), r.PathValue("email"), code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProfile(e, p) })
}
