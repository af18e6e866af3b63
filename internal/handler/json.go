package handler

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/bakery-engine/internal/domain/customer"
	"github.com/xenking/bakery-engine/internal/domain/fault"
	"github.com/xenking/bakery-engine/internal/domain/order"
	"github.com/xenking/bakery-engine/internal/domain/pricing"
	"github.com/xenking/bakery-engine/internal/domain/product"
	"github.com/xenking/bakery-engine/internal/domain/sale"
)

const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// readObject decodes the request body as a JSON object, calling field for
// every key. An empty body is accepted only when optional is set.
func readObject(w http.ResponseWriter, r *http.Request, optional bool, field func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return fault.Validation("body", err.Error())
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if optional {
			return nil
		}
		return fault.Validation("body", "required")
	}
	if err := jx.DecodeBytes(data).Obj(field); err != nil {
		var vErr *fault.ValidationError
		if errors.As(err, &vErr) {
			return vErr
		}
		return fault.Validation("body", err.Error())
	}
	return nil
}

// optStr reads a string that may be null.
func optStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func decodeItems(d *jx.Decoder) ([]pricing.Request, error) {
	var items []pricing.Request
	err := d.Arr(func(d *jx.Decoder) error {
		var it pricing.Request
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "product_id":
				it.ProductID, err = d.Str()
			case "quantity":
				it.Quantity, err = d.Int()
			case "personalization":
				it.Personalization, err = optStr(d)
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		items = append(items, it)
		return nil
	})
	return items, err
}

func encodeMoney(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.StringFixed(2)))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func strField(e *jx.Encoder, name, v string) {
	e.Field(name, func(e *jx.Encoder) { e.Str(v) })
}

func optStrField(e *jx.Encoder, name, v string) {
	if v != "" {
		strField(e, name, v)
	}
}

func moneyField(e *jx.Encoder, name string, v decimal.Decimal) {
	e.Field(name, func(e *jx.Encoder) { encodeMoney(e, v) })
}

func encodeLineItems(e *jx.Encoder, items []pricing.LineItem) {
	e.Arr(func(e *jx.Encoder) {
		for _, l := range items {
			e.Obj(func(e *jx.Encoder) {
				strField(e, "product_id", l.ProductID)
				strField(e, "product_code", l.ProductCode)
				strField(e, "product_name", l.ProductName)
				strField(e, "category", string(l.Category))
				e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
				moneyField(e, "unit_price", l.UnitPrice)
				moneyField(e, "subtotal", l.Subtotal)
				optStrField(e, "personalization", l.Personalization)
				if l.Free {
					e.Field("free", func(e *jx.Encoder) { e.Bool(true) })
				}
			})
		}
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		strField(e, "id", o.ID)
		strField(e, "number", o.Number)
		optStrField(e, "customer_id", o.CustomerID)
		optStrField(e, "customer_email", o.CustomerEmail)
		strField(e, "state", string(o.State))
		strField(e, "delivery_type", string(o.DeliveryType))
		optStrField(e, "delivery_address", o.DeliveryAddress)
		if o.RequestedDelivery != nil {
			e.Field("requested_delivery", func(e *jx.Encoder) { encodeTime(e, *o.RequestedDelivery) })
		}
		if o.DeliveredAt != nil {
			e.Field("delivered_at", func(e *jx.Encoder) { encodeTime(e, *o.DeliveredAt) })
		}
		e.Field("items", func(e *jx.Encoder) { encodeLineItems(e, o.Items) })
		e.Field("items_count", func(e *jx.Encoder) { e.Int(o.ItemsCount()) })
		e.Field("total_quantity", func(e *jx.Encoder) { e.Int(o.TotalQuantity()) })
		moneyField(e, "subtotal", o.Subtotal)
		moneyField(e, "discount", o.Discount)
		moneyField(e, "shipping_cost", o.ShippingCost)
		moneyField(e, "total", o.Total)
		optStrField(e, "notes", o.Notes)
		optStrField(e, "tracking_code", o.TrackingCode)
		e.Field("notification_pending", func(e *jx.Encoder) { e.Bool(o.NotificationPending) })
		optStrField(e, "sale_id", o.SaleID)
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
		e.Field("updated_at", func(e *jx.Encoder) { encodeTime(e, o.UpdatedAt) })
	})
}

func encodeSale(e *jx.Encoder, s *sale.Sale) {
	e.Obj(func(e *jx.Encoder) {
		strField(e, "id", s.ID)
		strField(e, "number", s.Number)
		optStrField(e, "customer_id", s.CustomerID)
		optStrField(e, "customer_name", s.CustomerName)
		optStrField(e, "customer_email", s.CustomerEmail)
		strField(e, "state", string(s.State))
		strField(e, "payment_method", string(s.PaymentMethod))
		e.Field("items", func(e *jx.Encoder) { encodeLineItems(e, s.Items) })
		e.Field("items_count", func(e *jx.Encoder) { e.Int(s.ItemsCount()) })
		e.Field("total_quantity", func(e *jx.Encoder) { e.Int(s.TotalQuantity()) })
		moneyField(e, "subtotal", s.Subtotal)
		moneyField(e, "discount", s.Discount)
		moneyField(e, "total", s.Total)
		optStrField(e, "notes", s.Notes)
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, s.CreatedAt) })
		e.Field("updated_at", func(e *jx.Encoder) { encodeTime(e, s.UpdatedAt) })
	})
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.Obj(func(e *jx.Encoder) {
		strField(e, "id", p.ID)
		strField(e, "code", p.Code)
		strField(e, "name", p.Name)
		optStrField(e, "description", p.Description)
		moneyField(e, "price", p.Price)
		strField(e, "category", string(p.Category))
		optStrField(e, "shape", string(p.Shape))
		optStrField(e, "size", string(p.Size))
		e.Field("stock", func(e *jx.Encoder) { e.Int(p.Stock) })
		e.Field("stock_minimum", func(e *jx.Encoder) { e.Int(p.StockMinimum) })
		e.Field("active", func(e *jx.Encoder) { e.Bool(p.Active) })
		e.Field("has_stock", func(e *jx.Encoder) { e.Bool(p.HasStock()) })
		e.Field("low_stock", func(e *jx.Encoder) { e.Bool(p.IsLowStock()) })
		e.Field("dietary", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("sugar_free", func(e *jx.Encoder) { e.Bool(p.Dietary.SugarFree) })
				e.Field("gluten_free", func(e *jx.Encoder) { e.Bool(p.Dietary.GlutenFree) })
				e.Field("vegan", func(e *jx.Encoder) { e.Bool(p.Dietary.Vegan) })
			})
		})
		e.Field("customizable", func(e *jx.Encoder) { e.Bool(p.Customizable) })
	})
}

func encodeProfile(e *jx.Encoder, p *customer.Profile) {
	e.Obj(func(e *jx.Encoder) {
		strField(e, "id", p.ID)
		strField(e, "email", p.Email)
		optStrField(e, "name", p.DisplayName())
		strField(e, "role", string(p.Role))
		e.Field("student", func(e *jx.Encoder) { e.Bool(p.Student) })
		e.Field("promo_code_used", func(e *jx.Encoder) { e.Bool(p.PromoCodeUsed) })
	})
}
