package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bakery-engine/internal/domain/fault"
)

// Error kinds as they appear in response bodies.
const (
	kindValidation        = "validation"
	kindNotFound          = "not_found"
	kindInsufficientStock = "insufficient_stock"
	kindInvalidTransition = "invalid_transition"
	kindDuplicateCode     = "duplicate_discount_code"
	kindUnknownState      = "unknown_state"
	kindInternal          = "internal"
)

var errorStatus = []struct {
	target error
	kind   string
	status int
}{
	{fault.ErrValidation, kindValidation, http.StatusBadRequest},
	{fault.ErrNotFound, kindNotFound, http.StatusNotFound},
	{fault.ErrInsufficientStock, kindInsufficientStock, http.StatusConflict},
	{fault.ErrInvalidTransition, kindInvalidTransition, http.StatusConflict},
	{fault.ErrDuplicateDiscountCode, kindDuplicateCode, http.StatusConflict},
	{fault.ErrUnknownState, kindUnknownState, http.StatusUnprocessableEntity},
}

// classify maps an engine error to its kind and HTTP status.
func classify(err error) (kind string, status int) {
	for _, m := range errorStatus {
		if errors.Is(err, m.target) {
			return m.kind, m.status
		}
	}
	return kindInternal, http.StatusInternalServerError
}

// writeError renders err as {"error":kind,"message":...}. Internal errors are
// logged and their text is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind, status := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = "internal server error"
	}

	var field string
	var vErr *fault.ValidationError
	if errors.As(err, &vErr) {
		field = vErr.Field
	}

	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("error", func(e *jx.Encoder) { e.Str(kind) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
			if field != "" {
				e.Field("field", func(e *jx.Encoder) { e.Str(field) })
			}
		})
	})
}
