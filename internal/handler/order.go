package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/bakery-engine/internal/domain/fault"
	"github.com/xenking/bakery-engine/internal/domain/order"
)

func writeOrder(w http.ResponseWriter, status int, o *order.Order) {
	writeJSON(w, status, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// CreateOrder handles POST /api/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req order.CreateRequest
	err := readObject(w, r, false, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "customer_email":
			req.CustomerEmail, err = optStr(d)
		case "delivery_type":
			req.DeliveryType, err = optStr(d)
		case "delivery_address":
			req.DeliveryAddress, err = optStr(d)
		case "notes":
			req.Notes, err = optStr(d)
		case "requested_delivery":
			var s string
			if s, err = optStr(d); err == nil && s != "" {
				t, perr := time.Parse(time.RFC3339, s)
				if perr != nil {
					return fault.Validation("requested_delivery", "must be an RFC 3339 timestamp")
				}
				req.RequestedDelivery = &t
			}
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

	o, err := h.orders.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusCreated, o)
}

// GetOrder handles GET /api/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}

// GetOrderByNumber handles GET /api/orders/number/{number}.
func (h *Handler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByNumber(r.Context(), r.PathValue("number"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}

// AdvanceOrder handles POST /api/orders/{id}/advance.
func (h *Handler) AdvanceOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Advance(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}

// CancelOrder handles POST /api/orders/{id}/cancel.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, o)
}

// SetOrderState handles PUT /api/orders/{id}/state. An unrecognized label
// moves the order to RECEIVED and the response carries a warning.
func (h *Handler) SetOrderState(w http.ResponseWriter, r *http.Request) {
	var label string
	err := readObject(w, r, false, func(d *jx.Decoder, key string) error {
		if key == "state" {
			var err error
			label, err = d.Str()
			return err
		}
		return d.Skip()
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if label == "" {
		writeError(w, r, fault.Validation("state", "required"))
		return
	}

	res, err := h.orders.SetState(r.Context(), r.PathValue("id"), label)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("order", func(e *jx.Encoder) { encodeOrder(e, res.Order) })
			if res.Warning != nil {
				strField(e, "warning", res.Warning.Error())
			}
		})
	})
}

// ConvertOrder handles POST /api/orders/{id}/convert. The body is optional
// and may carry payment_method.
func (h *Handler) ConvertOrder(w http.ResponseWriter, r *http.Request) {
	var method string
	err := readObject(w, r, true, func(d *jx.Decoder, key string) error {
		if key == "payment_method" {
			var err error
			method, err = optStr(d)
			return err
		}
		return d.Skip()
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s, err := h.converter.Convert(r.Context(), r.PathValue("id"), method)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeSale(e, s) })
}
