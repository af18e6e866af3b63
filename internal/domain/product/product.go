package product

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/bakery-engine/internal/domain/fault"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.Wrap(fault.ErrNotFound, "product")

// DefaultStockMinimum is the low-stock threshold applied when none is configured.
const DefaultStockMinimum = 5

// Category groups catalog items. Cake categories share the "TORTAS_" prefix.
type Category string

const (
	CategorySquareCakes  Category = "TORTAS_CUADRADAS"
	CategoryRoundCakes   Category = "TORTAS_CIRCULARES"
	CategoryIndividual   Category = "POSTRES_INDIVIDUALES"
	CategorySugarFree    Category = "PRODUCTOS_SIN_AZUCAR"
	CategoryTraditional  Category = "PASTELERIA_TRADICIONAL"
	CategoryGlutenFree   Category = "PRODUCTOS_SIN_GLUTEN"
	CategoryVegan        Category = "PRODUCTOS_VEGANA"
	CategorySpecialCakes Category = "TORTAS_ESPECIALES"
)

const cakeCategoryPrefix = "TORTAS_"

// IsCake reports whether the category is one of the cake categories.
func (c Category) IsCake() bool {
	return strings.HasPrefix(string(c), cakeCategoryPrefix)
}

// Shape is the physical shape of a cake.
type Shape string

const (
	ShapeSquare      Shape = "CUADRADA"
	ShapeRound       Shape = "CIRCULAR"
	ShapeRectangular Shape = "RECTANGULAR"
	ShapeIndividual  Shape = "INDIVIDUAL"
)

// Size is the serving size of a product.
type Size string

const (
	SizeSmall      Size = "PEQUENO"
	SizeMedium     Size = "MEDIANO"
	SizeLarge      Size = "GRANDE"
	SizeFamily     Size = "FAMILIAR"
	SizeIndividual Size = "INDIVIDUAL"
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID           string
	Code         string
	Name         string
	Description  string
	Price        decimal.Decimal
	Category     Category
	Shape        Shape
	Size         Size
	Stock        int
	StockMinimum int
	Active       bool
	Dietary      Dietary
	Customizable bool
	// SpecialMessage reports whether the product accepts a written message.
	SpecialMessage bool
}

// Dietary holds the dietary attributes of a product.
type Dietary struct {
	SugarFree  bool
	GlutenFree bool
	Vegan      bool
}

// IsCake reports whether the product belongs to a cake category.
func (p *Product) IsCake() bool {
	return p.Category.IsCake()
}

// HasStock reports whether at least one unit is available.
func (p *Product) HasStock() bool {
	return p.Stock > 0
}

// IsLowStock reports whether stock is at or below the minimum threshold.
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.StockMinimum
}

// Repository defines catalog operations used by the engine.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	// Save upserts a product by code.
	Save(ctx context.Context, p *Product) error
}
