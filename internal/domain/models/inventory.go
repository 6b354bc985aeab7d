package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the garment family of a variant. Stored as an opaque string so new
// categories can be introduced without a data migration.
type Category string

const (
	CategoryTShirt   Category = "T-Shirt"
	CategoryJacket   Category = "Jacket"
	CategoryCap      Category = "Cap"
	CategoryTrousers Category = "Trousers"
	CategoryUniform  Category = "Uniform"
)

// Categories lists the categories accepted at the boundary, in display order.
var Categories = []Category{CategoryTShirt, CategoryJacket, CategoryCap, CategoryTrousers, CategoryUniform}

// Valid reports whether c belongs to the accepted category set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// DefaultLowStockThreshold is the upper bound (inclusive) of the low stock band.
const DefaultLowStockThreshold = 10

// InventoryVariant is one (itemName, category, size, color) row with its own barcode.
type InventoryVariant struct {
	ID          string          `json:"id"`
	ItemName    string          `json:"itemName"`
	Category    Category        `json:"category"`
	Size        string          `json:"size"`
	Color       string          `json:"color"`
	Barcode     string          `json:"barcode"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Key returns the reconciliation tuple of the variant.
func (v InventoryVariant) Key() VariantKey {
	return VariantKey{ItemName: v.ItemName, Category: v.Category, Size: v.Size, Color: v.Color}
}

// TotalValue is quantity × unit price.
func (v InventoryVariant) TotalValue() decimal.Decimal {
	return v.UnitPrice.Mul(decimal.NewFromInt(int64(v.Quantity)))
}

// StockStatus classifies the variant against the low stock threshold.
func (v InventoryVariant) StockStatus(threshold int) StockStatus {
	switch {
	case v.Quantity == 0:
		return StatusOutOfStock
	case v.Quantity <= threshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// VariantKey identifies a variant for reconciliation. Matching is exact.
type VariantKey struct {
	ItemName string
	Category Category
	Size     string
	Color    string
}

// VariantUpdate is a full overwrite of the mutable fields of a variant.
type VariantUpdate struct {
	ItemName    string          `json:"itemName" validate:"required"`
	Category    Category        `json:"category" validate:"required,category"`
	Size        string          `json:"size" validate:"required"`
	Color       string          `json:"color" validate:"required"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Description string          `json:"description"`
}

// StockStatus is the human readable stock band used in exports.
type StockStatus string

const (
	StatusOutOfStock StockStatus = "Out of Stock"
	StatusLowStock   StockStatus = "Low Stock"
	StatusInStock    StockStatus = "In Stock"
)

// CategoryStock is one line of the per-category breakdown.
type CategoryStock struct {
	Category      Category `json:"category"`
	TotalQuantity int64    `json:"totalQuantity"`
	ItemCount     int64    `json:"itemCount"`
}
