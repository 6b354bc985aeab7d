// Package repository defines the storage contract consumed by the ledger, delivery and
// reporting services. Implementations live in the mongodb and memory subpackages.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mamadbah2/uniformstock/internal/domain/models"
)

// ErrDuplicateBarcode is returned by InsertVariant when the barcode unique index rejects the row.
var ErrDuplicateBarcode = errors.New("duplicate barcode")

// ErrDuplicateVariant is returned when the (itemName, category, size, color) unique index
// rejects an insert or update.
var ErrDuplicateVariant = errors.New("duplicate variant")

// ErrQuantityOverflow is returned by IncrementQuantity when the delta would push the stored
// quantity past the largest representable value. The stored quantity is left unchanged.
var ErrQuantityOverflow = errors.New("quantity overflow")

// ErrNoDocument is returned when a lookup or targeted update matches nothing.
var ErrNoDocument = errors.New("no document")

// InventoryFilter narrows variant listings. Empty fields match everything.
type InventoryFilter struct {
	Category   models.Category
	SearchText string
	// MaxQuantity, when set, keeps only variants with quantity <= *MaxQuantity.
	MaxQuantity *int
}

// DeliveryFilter narrows delivery listings. From is inclusive, To is exclusive.
type DeliveryFilter struct {
	From         *time.Time
	To           *time.Time
	CustomerName string
	Limit        int
}

// InventoryRepository persists variants. Inserts are checked against unique indexes on the
// barcode and on the variant key; IncrementQuantity is a single atomic read-modify-write.
type InventoryRepository interface {
	InsertVariant(ctx context.Context, v *models.InventoryVariant) error
	IncrementQuantity(ctx context.Context, key models.VariantKey, delta int, now time.Time) (*models.InventoryVariant, error)
	ReplaceVariant(ctx context.Context, id string, upd models.VariantUpdate, now time.Time) (*models.InventoryVariant, error)
	SetQuantity(ctx context.Context, id string, quantity int, now time.Time) (*models.InventoryVariant, error)
	DeleteVariant(ctx context.Context, id string) error

	FindVariantByID(ctx context.Context, id string) (*models.InventoryVariant, error)
	FindVariantsByIDs(ctx context.Context, ids []string) (map[string]models.InventoryVariant, error)
	FindVariantByBarcode(ctx context.Context, barcode string) (*models.InventoryVariant, error)
	BarcodeExists(ctx context.Context, barcode string) (bool, error)

	// ListVariants returns one page ordered by creation time, newest first.
	ListVariants(ctx context.Context, filter InventoryFilter, skip, limit int) ([]models.InventoryVariant, int64, error)
	// ListVariantsSorted returns every match ordered by category then item name.
	ListVariantsSorted(ctx context.Context, filter InventoryFilter) ([]models.InventoryVariant, error)
	// ListLowStock returns variants with 0 < quantity <= threshold, lowest quantity first.
	ListLowStock(ctx context.Context, threshold, limit int) ([]models.InventoryVariant, error)

	CountVariants(ctx context.Context) (int64, error)
	SumQuantity(ctx context.Context) (int64, error)
	// CountByQuantityBand returns the out of stock (== 0) and low stock (0 < q <= threshold) counts.
	CountByQuantityBand(ctx context.Context, threshold int) (outOfStock, lowStock int64, err error)
	// SumByCategory returns per-category totals sorted by total quantity descending.
	SumByCategory(ctx context.Context) ([]models.CategoryStock, error)
}

// DeliveryRepository persists delivery records. Records are never updated.
type DeliveryRepository interface {
	InsertDelivery(ctx context.Context, d *models.DeliveryRecord) error
	// ListDeliveries returns matches ordered by delivery date, newest first.
	ListDeliveries(ctx context.Context, filter DeliveryFilter) ([]models.DeliveryRecord, error)
	CountDeliveries(ctx context.Context, from, to time.Time) (int64, error)
}

// UserRepository resolves accounts owned by the identity collaborator.
type UserRepository interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}
