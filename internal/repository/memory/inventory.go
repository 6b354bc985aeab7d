// Package memory provides mutex-guarded in-process implementations of the repository
// contract. They back the "memory" store driver and serve as the fake store in tests.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mamadbah2/uniformstock/internal/domain/models"
	"github.com/mamadbah2/uniformstock/internal/repository"
)

// InventoryRepository keeps variants in a map with the same uniqueness rules as the
// MongoDB indexes: one variant per barcode and one per variant key.
type InventoryRepository struct {
	mu        sync.RWMutex
	variants  map[string]*models.InventoryVariant
	byBarcode map[string]string
	byKey     map[models.VariantKey]string
}

// NewInventoryRepository builds an empty repository.
func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		variants:  make(map[string]*models.InventoryVariant),
		byBarcode: make(map[string]string),
		byKey:     make(map[models.VariantKey]string),
	}
}

func (r *InventoryRepository) InsertVariant(_ context.Context, v *models.InventoryVariant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byBarcode[v.Barcode]; taken {
		return repository.ErrDuplicateBarcode
	}
	if _, taken := r.byKey[v.Key()]; taken {
		return repository.ErrDuplicateVariant
	}

	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	stored := *v
	r.variants[stored.ID] = &stored
	r.byBarcode[stored.Barcode] = stored.ID
	r.byKey[stored.Key()] = stored.ID
	return nil
}

func (r *InventoryRepository) IncrementQuantity(_ context.Context, key models.VariantKey, delta int, now time.Time) (*models.InventoryVariant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byKey[key]
	if !ok {
		return nil, repository.ErrNoDocument
	}
	v := r.variants[id]
	if delta > 0 && v.Quantity > math.MaxInt-delta {
		return nil, repository.ErrQuantityOverflow
	}
	v.Quantity += delta
	v.UpdatedAt = now
	out := *v
	return &out, nil
}

func (r *InventoryRepository) ReplaceVariant(_ context.Context, id string, upd models.VariantUpdate, now time.Time) (*models.InventoryVariant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.variants[id]
	if !ok {
		return nil, repository.ErrNoDocument
	}
	newKey := models.VariantKey{ItemName: upd.ItemName, Category: upd.Category, Size: upd.Size, Color: upd.Color}
	if owner, taken := r.byKey[newKey]; taken && owner != id {
		return nil, repository.ErrDuplicateVariant
	}

	delete(r.byKey, v.Key())
	v.ItemName = upd.ItemName
	v.Category = upd.Category
	v.Size = upd.Size
	v.Color = upd.Color
	v.Quantity = upd.Quantity
	v.UnitPrice = upd.UnitPrice
	v.Description = upd.Description
	v.UpdatedAt = now
	r.byKey[newKey] = id

	out := *v
	return &out, nil
}

func (r *InventoryRepository) SetQuantity(_ context.Context, id string, quantity int, now time.Time) (*models.InventoryVariant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.variants[id]
	if !ok {
		return nil, repository.ErrNoDocument
	}
	v.Quantity = quantity
	v.UpdatedAt = now
	out := *v
	return &out, nil
}

func (r *InventoryRepository) DeleteVariant(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.variants[id]
	if !ok {
		return repository.ErrNoDocument
	}
	delete(r.byBarcode, v.Barcode)
	delete(r.byKey, v.Key())
	delete(r.variants, id)
	return nil
}

func (r *InventoryRepository) FindVariantByID(_ context.Context, id string) (*models.InventoryVariant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.variants[id]
	if !ok {
		return nil, repository.ErrNoDocument
	}
	out := *v
	return &out, nil
}

func (r *InventoryRepository) FindVariantsByIDs(_ context.Context, ids []string) (map[string]models.InventoryVariant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make(map[string]models.InventoryVariant, len(ids))
	for _, id := range ids {
		if v, ok := r.variants[id]; ok {
			found[id] = *v
		}
	}
	return found, nil
}

func (r *InventoryRepository) FindVariantByBarcode(_ context.Context, barcode string) (*models.InventoryVariant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byBarcode[barcode]
	if !ok {
		return nil, repository.ErrNoDocument
	}
	out := *r.variants[id]
	return &out, nil
}

func (r *InventoryRepository) BarcodeExists(_ context.Context, barcode string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byBarcode[barcode]
	return ok, nil
}

func (r *InventoryRepository) ListVariants(_ context.Context, filter repository.InventoryFilter, skip, limit int) ([]models.InventoryVariant, int64, error) {
	matches := r.match(filter)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := int64(len(matches))
	if skip >= len(matches) {
		return []models.InventoryVariant{}, total, nil
	}
	end := len(matches)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return matches[skip:end], total, nil
}

func (r *InventoryRepository) ListVariantsSorted(_ context.Context, filter repository.InventoryFilter) ([]models.InventoryVariant, error) {
	matches := r.match(filter)
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Category != matches[j].Category {
			return matches[i].Category < matches[j].Category
		}
		return matches[i].ItemName < matches[j].ItemName
	})
	return matches, nil
}

func (r *InventoryRepository) ListLowStock(_ context.Context, threshold, limit int) ([]models.InventoryVariant, error) {
	r.mu.RLock()
	var low []models.InventoryVariant
	for _, v := range r.variants {
		if v.Quantity > 0 && v.Quantity <= threshold {
			low = append(low, *v)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(low, func(i, j int) bool { return low[i].Quantity < low[j].Quantity })
	if limit > 0 && len(low) > limit {
		low = low[:limit]
	}
	return low, nil
}

func (r *InventoryRepository) CountVariants(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.variants)), nil
}

func (r *InventoryRepository) SumQuantity(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, v := range r.variants {
		total += int64(v.Quantity)
	}
	return total, nil
}

func (r *InventoryRepository) CountByQuantityBand(_ context.Context, threshold int) (int64, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out, low int64
	for _, v := range r.variants {
		switch {
		case v.Quantity == 0:
			out++
		case v.Quantity > 0 && v.Quantity <= threshold:
			low++
		}
	}
	return out, low, nil
}

func (r *InventoryRepository) SumByCategory(_ context.Context) ([]models.CategoryStock, error) {
	r.mu.RLock()
	totals := make(map[models.Category]*models.CategoryStock)
	for _, v := range r.variants {
		line, ok := totals[v.Category]
		if !ok {
			line = &models.CategoryStock{Category: v.Category}
			totals[v.Category] = line
		}
		line.TotalQuantity += int64(v.Quantity)
		line.ItemCount++
	}
	r.mu.RUnlock()

	out := make([]models.CategoryStock, 0, len(totals))
	for _, line := range totals {
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalQuantity != out[j].TotalQuantity {
			return out[i].TotalQuantity > out[j].TotalQuantity
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (r *InventoryRepository) match(filter repository.InventoryFilter) []models.InventoryVariant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(filter.SearchText)
	matches := make([]models.InventoryVariant, 0, len(r.variants))
	for _, v := range r.variants {
		if filter.Category != "" && v.Category != filter.Category {
			continue
		}
		if filter.MaxQuantity != nil && v.Quantity > *filter.MaxQuantity {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(v.ItemName), search) &&
			!strings.Contains(strings.ToLower(v.Barcode), search) {
			continue
		}
		matches = append(matches, *v)
	}
	return matches
}
