package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/bakery-engine/internal/domain/product"
)

type entry struct {
	code, name, description string
	price                   int64
	category                product.Category
	shape                   product.Shape
	size                    product.Size
	customizable, message   bool
	dietary                 product.Dietary
}

var defaults = []entry{
	{"TC001", "Torta Cuadrada de Chocolate", "Torta de chocolate con capas de ganache y avellanas.",
		45000, product.CategorySquareCakes, product.ShapeSquare, product.SizeMedium, true, true, product.Dietary{}},
	{"TC002", "Torta Cuadrada de Frutas", "Bizcocho de vainilla con frutas frescas y crema chantilly.",
		50000, product.CategorySquareCakes, product.ShapeSquare, product.SizeMedium, true, true, product.Dietary{}},
	{"TT001", "Torta Circular de Vainilla", "Bizcocho de vainilla relleno de crema pastelera.",
		40000, product.CategoryRoundCakes, product.ShapeRound, product.SizeMedium, true, true, product.Dietary{}},
	{"TT002", "Torta Circular de Manjar", "Torta tradicional chilena con manjar y nueces.",
		42000, product.CategoryRoundCakes, product.ShapeRound, product.SizeMedium, true, true, product.Dietary{}},
	{"PI001", "Mousse de Chocolate", "Postre individual cremoso de chocolate.",
		5000, product.CategoryIndividual, "", product.SizeIndividual, false, false, product.Dietary{}},
	{"PI002", "Tiramisú Clásico", "Capas de café, mascarpone y cacao.",
		5500, product.CategoryIndividual, "", product.SizeIndividual, false, false, product.Dietary{}},
	{"PSA001", "Torta Sin Azúcar de Naranja", "Torta ligera endulzada naturalmente.",
		48000, product.CategorySugarFree, product.ShapeRound, product.SizeMedium, true, true, product.Dietary{SugarFree: true}},
	{"PSA002", "Cheesecake Sin Azúcar", "Cheesecake suave y cremoso sin azúcar.",
		47000, product.CategorySugarFree, product.ShapeRound, product.SizeMedium, false, false, product.Dietary{SugarFree: true}},
	{"PT001", "Empanada de Manzana", "Pastelería tradicional rellena de manzanas especiadas.",
		3000, product.CategoryTraditional, "", product.SizeIndividual, false, false, product.Dietary{}},
	{"PT002", "Tarta de Santiago", "Tarta española de almendras, azúcar y huevos.",
		6000, product.CategoryTraditional, product.ShapeRound, product.SizeSmall, false, false, product.Dietary{}},
	{"PG001", "Brownie Sin Gluten", "Brownie de chocolate sin gluten.",
		4000, product.CategoryGlutenFree, "", product.SizeIndividual, false, false, product.Dietary{GlutenFree: true}},
	{"PG002", "Pan Sin Gluten", "Pan suave sin gluten para sándwiches.",
		3500, product.CategoryGlutenFree, "", product.SizeSmall, false, false, product.Dietary{GlutenFree: true}},
	{"PV001", "Torta Vegana de Chocolate", "Torta de chocolate sin productos de origen animal.",
		50000, product.CategoryVegan, product.ShapeRound, product.SizeMedium, true, true, product.Dietary{Vegan: true}},
	{"PV002", "Galletas Veganas de Avena", "Galletas crujientes de avena.",
		4500, product.CategoryVegan, "", product.SizeSmall, false, false, product.Dietary{Vegan: true}},
	{"TE001", "Torta Especial de Cumpleaños", "Torta decorada para cumpleaños.",
		55000, product.CategorySpecialCakes, product.ShapeRound, product.SizeLarge, true, true, product.Dietary{}},
	{"TE002", "Torta Especial de Boda", "Torta elegante para bodas.",
		60000, product.CategorySpecialCakes, product.ShapeRound, product.SizeFamily, true, true, product.Dietary{}},
}

// Defaults returns the standard bakery catalog with the given opening stock.
// IDs are left empty for the caller to assign.
func Defaults(stock int) []product.Product {
	out := make([]product.Product, len(defaults))
	for i, e := range defaults {
		out[i] = product.Product{
			Code:           e.code,
			Name:           e.name,
			Description:    e.description,
			Price:          decimal.NewFromInt(e.price),
			Category:       e.category,
			Shape:          e.shape,
			Size:           e.size,
			Stock:          stock,
			StockMinimum:   product.DefaultStockMinimum,
			Active:         true,
			Dietary:        e.dietary,
			Customizable:   e.customizable,
			SpecialMessage: e.message,
		}
	}
	return out
}
