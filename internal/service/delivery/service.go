package delivery

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
)

// RecordDeliveryRequest describes one delivery. DeliveredBy is the authenticated user id
// supplied by the caller; DeliveryDate defaults to the time of recording.
type RecordDeliveryRequest struct {
	VariantID    string     `json:"variantId" validate:"required"`
	CustomerName string     `json:"customerName" validate:"required"`
	Quantity     int        `json:"quantity" validate:"gte=1"`
	DeliveredBy  string     `json:"deliveredBy" validate:"required"`
	Notes        string     `json:"notes"`
	DeliveryDate *time.Time `json:"deliveryDate,omitempty"`
}

// VariantLookup resolves the variants deliveries point at.
type VariantLookup interface {
	FindVariantByID(ctx context.Context, id string) (*models.InventoryVariant, error)
	FindVariantsByIDs(ctx context.Context, ids []string) (map[string]models.InventoryVariant, error)
}

// Service records deliveries and lists them with their references resolved.
//
// Recording a delivery does not touch the variant's quantity; stock is decremented only
// through an explicit ledger correction.
type Service struct {
	deliveries repository.DeliveryRepository
	variants   VariantLookup
	users      repository.UserRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewService wires the recorder.
func NewService(deliveries repository.DeliveryRepository, variants VariantLookup, users repository.UserRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		deliveries: deliveries,
		variants:   variants,
		users:      users,
		logger:     logger,
		now:        time.Now,
	}
}

// RecordDelivery validates the request, checks that the variant and the acting user exist,
// and stores an immutable record carrying the variant's barcode at this moment.
func (s *Service) RecordDelivery(ctx context.Context, req RecordDeliveryRequest) (*models.DeliveryRecord, error) {
	req.VariantID = strings.TrimSpace(req.VariantID)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.DeliveredBy = strings.TrimSpace(req.DeliveredBy)
	req.Notes = strings.TrimSpace(req.Notes)

	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	variant, err := s.variants.FindVariantByID(ctx, req.VariantID)
	if errors.Is(err, repository.ErrNoDocument) {
		return nil, errs.NotFound("variant", req.VariantID)
	}
	if err != nil {
		return nil, fmt.Errorf("find variant %s: %w", req.VariantID, err)
	}

	if _, err := s.users.FindUserByID(ctx, req.DeliveredBy); err != nil {
		if errors.Is(err, repository.ErrNoDocument) {
			return nil, errs.NotFound("user", req.DeliveredBy)
		}
		return nil, fmt.Errorf("find user %s: %w", req.DeliveredBy, err)
	}

	now := s.now()
	record := &models.DeliveryRecord{
		VariantID:         variant.ID,
		Barcode:           variant.Barcode,
		CustomerName:      req.CustomerName,
		QuantityDelivered: req.Quantity,
		DeliveryDate:      now,
		DeliveredBy:       req.DeliveredBy,
		Notes:             req.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.DeliveryDate != nil && !req.DeliveryDate.IsZero() {
		record.DeliveryDate = *req.DeliveryDate
	}

	if err := s.deliveries.InsertDelivery(ctx, record); err != nil {
		return nil, fmt.Errorf("insert delivery: %w", err)
	}

	metrics.DeliveriesRecorded.Inc()
	s.logger.Info("delivery recorded",
		zap.String("delivery", record.ID),
		zap.String("variant", variant.ID),
		zap.String("customer", record.CustomerName),
		zap.Int("quantity", record.QuantityDelivered))
	return record, nil
}

// ListDeliveries returns matching deliveries, newest first, with variant and user
// resolved. Deliveries whose variant or user no longer exists are left out.
func (s *Service) ListDeliveries(ctx context.Context, filter repository.DeliveryFilter) ([]models.DeliveryView, error) {
	filter.CustomerName = strings.TrimSpace(filter.CustomerName)
	want := filter.Limit

	for {
		records, err := s.deliveries.ListDeliveries(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list deliveries: %w", err)
		}

		views, err := s.resolve(ctx, records)
		if err != nil {
			return nil, err
		}

		// A limited page may have lost entries to dangling references; widen and retry
		// while the store still has more rows.
		if want <= 0 || len(views) >= want || len(records) < filter.Limit {
			if want > 0 && len(views) > want {
				views = views[:want]
			}
			return views, nil
		}
		filter.Limit *= 2
	}
}

func (s *Service) resolve(ctx context.Context, records []models.DeliveryRecord) ([]models.DeliveryView, error) {
	if len(records) == 0 {
		return []models.DeliveryView{}, nil
	}

	variantIDs := make([]string, 0, len(records))
	userIDs := make([]string, 0, len(records))
	for _, r := range records {
		variantIDs = append(variantIDs, r.VariantID)
		userIDs = append(userIDs, r.DeliveredBy)
	}

	variants, err := s.variants.FindVariantsByIDs(ctx, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve delivery variants: %w", err)
	}
	users, err := s.users.FindUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve delivery users: %w", err)
	}

	views := make([]models.DeliveryView, 0, len(records))
	for _, r := range records {
		variant, okVariant := variants[r.VariantID]
		user, okUser := users[r.DeliveredBy]
		if !okVariant || !okUser {
			s.logger.Debug("skip dangling delivery", zap.String("delivery", r.ID), zap.Bool("variant", okVariant), zap.Bool("user", okUser))
			continue
		}
		views = append(views, models.DeliveryView{DeliveryRecord: r, Variant: variant, User: user})
	}
	return views, nil
}

// CountInRange counts deliveries with start <= deliveryDate < end.
func (s *Service) CountInRange(ctx context.Context, start, end time.Time) (int64, error) {
	if !end.After(start) {
		return 0, errs.InvalidArgument("end", "range end %s must be after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	n, err := s.deliveries.CountDeliveries(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("count deliveries: %w", err)
	}
	return n, nil
}
