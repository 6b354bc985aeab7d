package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/uniformstock/internal/domain/errs"
	"github.com/mamadbah2/uniformstock/internal/domain/models"
	"github.com/mamadbah2/uniformstock/internal/domain/validate"
	"github.com/mamadbah2/uniformstock/internal/metrics"
	"github.com/mamadbah2/uniformstock/internal/repository"
	"github.com/mamadbah2/uniformstock/internal/service/barcode"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Allocator hands out barcodes for new variants.
type Allocator interface {
	AllocateWith(ctx context.Context, commit barcode.CommitFunc) (string, error)
}

// Service is the authoritative record of inventory variants and their quantities.
type Service struct {
	repo      repository.InventoryRepository
	allocator Allocator
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a ledger over repo.
func NewService(repo repository.InventoryRepository, allocator Allocator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		allocator: allocator,
		logger:    logger,
		now:       time.Now,
	}
}

// AddStock reconciles each non-zero size against existing variants: matching variants are
// incremented, missing ones are created with a fresh barcode. Sizes are applied one by one
// and stop at the first failure. The result is always returned; when sizes were applied
// before the failure the error is a *PartialFailureError.
func (s *Service) AddStock(ctx context.Context, req AddStockRequest) (*AddStockResult, error) {
	req = req.normalized()
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.UnitPrice.IsNegative() {
		return nil, errs.InvalidArgument("unitPrice", "must be >= 0, got %s", req.UnitPrice)
	}

	result := &AddStockResult{ItemName: req.ItemName}
	for i, sq := range req.Sizes {
		if sq.Quantity == 0 {
			metrics.StockAdjustments.WithLabelValues("skipped").Inc()
			result.Skipped = append(result.Skipped, sq)
			continue
		}

		variant, created, err := s.applySize(ctx, req, sq)
		if err != nil {
			result.Pending = append(result.Pending, req.Sizes[i+1:]...)
			s.logger.Warn("stock addition stopped",
				zap.String("item", req.ItemName),
				zap.String("size", sq.Size),
				zap.Int("applied", result.Applied()),
				zap.Error(err))
			if result.Applied() == 0 {
				return result, err
			}
			return result, &PartialFailureError{Result: result, Failed: sq, Err: err}
		}

		if created {
			metrics.StockAdjustments.WithLabelValues("created").Inc()
			result.Created = append(result.Created, *variant)
		} else {
			metrics.StockAdjustments.WithLabelValues("incremented").Inc()
			result.Updated = append(result.Updated, *variant)
		}
	}

	s.logger.Info("stock added",
		zap.String("item", req.ItemName),
		zap.Int("created", len(result.Created)),
		zap.Int("updated", len(result.Updated)),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// applySize increments the variant for sq or creates it. A create that loses the race to
// a concurrent creator of the same key falls back to the increment once more.
func (s *Service) applySize(ctx context.Context, req AddStockRequest, sq SizeQuantity) (*models.InventoryVariant, bool, error) {
	key := models.VariantKey{ItemName: req.ItemName, Category: req.Category, Size: sq.Size, Color: req.Color}

	for round := 0; round < 2; round++ {
		now := s.now()
		variant, err := s.repo.IncrementQuantity(ctx, key, sq.Quantity, now)
		if err == nil {
			return variant, false, nil
		}
		if errors.Is(err, repository.ErrQuantityOverflow) {
			return nil, false, errs.InvalidArgument("quantity", "adding %d to size %s exceeds the storable stock", sq.Quantity, sq.Size)
		}
		if !errors.Is(err, repository.ErrNoDocument) {
			return nil, false, fmt.Errorf("increment size %s: %w", sq.Size, err)
		}

		variant, err = s.create(ctx, req, sq, now)
		if err == nil {
			return variant, true, nil
		}
		if !errors.Is(err, repository.ErrDuplicateVariant) {
			return nil, false, err
		}
		s.logger.Debug("variant created concurrently, reconciling", zap.String("item", req.ItemName), zap.String("size", sq.Size))
	}

	return nil, false, errs.Conflict("size", fmt.Sprintf("variant %s/%s could not be reconciled", req.ItemName, sq.Size), repository.ErrDuplicateVariant)
}

func (s *Service) create(ctx context.Context, req AddStockRequest, sq SizeQuantity, now time.Time) (*models.InventoryVariant, error) {
	var created *models.InventoryVariant
	_, err := s.allocator.AllocateWith(ctx, func(ctx context.Context, code string) error {
		v := &models.InventoryVariant{
			ItemName:    req.ItemName,
			Category:    req.Category,
			Size:        sq.Size,
			Color:       req.Color,
			Barcode:     code,
			Quantity:    sq.Quantity,
			UnitPrice:   req.UnitPrice,
			Description: req.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.repo.InsertVariant(ctx, v); err != nil {
			return err
		}
		created = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateVariant overwrites every mutable field of the variant. Quantity is replaced, not added.
func (s *Service) UpdateVariant(ctx context.Context, id string, upd models.VariantUpdate) (*models.InventoryVariant, error) {
	upd.ItemName = strings.TrimSpace(upd.ItemName)
	upd.Size = strings.TrimSpace(upd.Size)
	upd.Color = strings.TrimSpace(upd.Color)
	upd.Description = strings.TrimSpace(upd.Description)

	if err := validate.Struct(upd); err != nil {
		return nil, err
	}
	if upd.UnitPrice.IsNegative() {
		return nil, errs.InvalidArgument("unitPrice", "must be >= 0, got %s", upd.UnitPrice)
	}

	variant, err := s.repo.ReplaceVariant(ctx, id, upd, s.now())
	switch {
	case errors.Is(err, repository.ErrNoDocument):
		return nil, errs.NotFound("variant", id)
	case errors.Is(err, repository.ErrDuplicateVariant):
		return nil, errs.Conflict("variant", "another variant already has this item/category/size/color", err)
	case err != nil:
		return nil, fmt.Errorf("replace variant %s: %w", id, err)
	}

	metrics.StockAdjustments.WithLabelValues("replaced").Inc()
	return variant, nil
}

// SetQuantity overwrites the stock count, used for stock corrections and for explicit
// decrements after deliveries.
func (s *Service) SetQuantity(ctx context.Context, id string, quantity int) (*models.InventoryVariant, error) {
	if quantity < 0 {
		return nil, errs.InvalidArgument("quantity", "must be >= 0, got %d", quantity)
	}

	variant, err := s.repo.SetQuantity(ctx, id, quantity, s.now())
	if errors.Is(err, repository.ErrNoDocument) {
		return nil, errs.NotFound("variant", id)
	}
	if err != nil {
		return nil, fmt.Errorf("set quantity of %s: %w", id, err)
	}

	metrics.StockAdjustments.WithLabelValues("corrected").Inc()
	s.logger.Info("stock corrected", zap.String("variant", id), zap.Int("quantity", quantity))
	return variant, nil
}

// DeleteVariant removes the variant. Deliveries recorded against it keep their reference.
func (s *Service) DeleteVariant(ctx context.Context, id string) error {
	err := s.repo.DeleteVariant(ctx, id)
	if errors.Is(err, repository.ErrNoDocument) {
		return errs.NotFound("variant", id)
	}
	if err != nil {
		return fmt.Errorf("delete variant %s: %w", id, err)
	}
	s.logger.Info("variant deleted", zap.String("variant", id))
	return nil
}

// Get returns the variant with the given id.
func (s *Service) Get(ctx context.Context, id string) (*models.InventoryVariant, error) {
	variant, err := s.repo.FindVariantByID(ctx, id)
	if errors.Is(err, repository.ErrNoDocument) {
		return nil, errs.NotFound("variant", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find variant %s: %w", id, err)
	}
	return variant, nil
}

// FindByBarcode returns the variant holding barcode.
func (s *Service) FindByBarcode(ctx context.Context, code string) (*models.InventoryVariant, error) {
	variant, err := s.repo.FindVariantByBarcode(ctx, strings.TrimSpace(code))
	if errors.Is(err, repository.ErrNoDocument) {
		return nil, errs.NotFound("barcode", code)
	}
	if err != nil {
		return nil, fmt.Errorf("find barcode %s: %w", code, err)
	}
	return variant, nil
}

// List returns one page of variants, newest first, and the total match count.
// page starts at 1; pageSize defaults to 10 and is capped at 100.
func (s *Service) List(ctx context.Context, filter repository.InventoryFilter, page, pageSize int) ([]models.InventoryVariant, int64, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, 0, errs.InvalidArgument("category", "unknown category %q", filter.Category)
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	filter.SearchText = strings.TrimSpace(filter.SearchText)

	items, total, err := s.repo.ListVariants(ctx, filter, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list variants: %w", err)
	}
	return items, total, nil
}
