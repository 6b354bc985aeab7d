package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/uniformstock/internal/domain/errs"
	"github.com/mamadbah2/uniformstock/internal/domain/models"
)

// MaxSizeQuantity bounds a single size line of a stock addition.
const MaxSizeQuantity = 1_000_000

// SizeQuantity is one size line of a stock addition. Quantity must stay within
// [0, MaxSizeQuantity].
type SizeQuantity struct {
	Size     string `json:"size" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0,lte=1000000"`
}

// AddStockRequest adds stock for one item/category/color across several sizes.
type AddStockRequest struct {
	ItemName    string          `json:"itemName" validate:"required"`
	Category    models.Category `json:"category" validate:"required,category"`
	Sizes       []SizeQuantity  `json:"sizes" validate:"required,min=1,dive"`
	Color       string          `json:"color" validate:"required"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Description string          `json:"description"`
}

func (r AddStockRequest) normalized() AddStockRequest {
	out := r
	out.ItemName = strings.TrimSpace(r.ItemName)
	out.Color = strings.TrimSpace(r.Color)
	out.Description = strings.TrimSpace(r.Description)
	out.Sizes = make([]SizeQuantity, len(r.Sizes))
	for i, sq := range r.Sizes {
		out.Sizes[i] = SizeQuantity{Size: strings.TrimSpace(sq.Size), Quantity: sq.Quantity}
	}
	return out
}

// AddStockResult lists what an AddStock call did, size by size.
type AddStockResult struct {
	ItemName string                    `json:"itemName"`
	Created  []models.InventoryVariant `json:"created"`
	Updated  []models.InventoryVariant `json:"updated"`
	Skipped  []SizeQuantity            `json:"skipped,omitempty"`
	// Pending holds sizes that were not attempted because an earlier size failed.
	Pending []SizeQuantity `json:"pending,omitempty"`
}

// Applied is the number of sizes that changed the ledger.
func (r *AddStockResult) Applied() int {
	return len(r.Created) + len(r.Updated)
}

// Message renders the summary shown to the operator after a stock addition.
func (r *AddStockResult) Message() string {
	created, updated := len(r.Created), len(r.Updated)
	switch {
	case created > 0 && updated > 0:
		return fmt.Sprintf("Added %d new size(s) and updated %d existing size(s) for %s", created, updated, r.ItemName)
	case created > 0:
		return fmt.Sprintf("Successfully added %d size(s) for %s", created, r.ItemName)
	case updated > 0:
		return fmt.Sprintf("Updated quantities for %d existing size(s) of %s", updated, r.ItemName)
	default:
		return "No items were added (all quantities were 0)"
	}
}

// PartialFailureError is returned by AddStock when some sizes were applied before a later
// size failed. Applied sizes are not rolled back.
type PartialFailureError struct {
	Result *AddStockResult
	Failed SizeQuantity
	Err    error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("partial stock addition for %s: %d size(s) applied, size %q failed: %v",
		e.Result.ItemName, e.Result.Applied(), e.Failed.Size, e.Err)
}

func (e *PartialFailureError) Unwrap() []error {
	return []error{errs.ErrPartialFailure, e.Err}
}
