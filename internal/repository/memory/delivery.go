package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mamadbah2/uniformstock/internal/domain/models"
	"github.com/mamadbah2/uniformstock/internal/repository"
)

// DeliveryRepository is an append-only list of delivery records.
type DeliveryRepository struct {
	mu         sync.RWMutex
	deliveries []models.DeliveryRecord
}

// NewDeliveryRepository builds an empty repository.
func NewDeliveryRepository() *DeliveryRepository {
	return &DeliveryRepository{}
}

func (r *DeliveryRepository) InsertDelivery(_ context.Context, d *models.DeliveryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	r.deliveries = append(r.deliveries, *d)
	return nil
}

func (r *DeliveryRepository) ListDeliveries(_ context.Context, filter repository.DeliveryFilter) ([]models.DeliveryRecord, error) {
	r.mu.RLock()
	customer := strings.ToLower(filter.CustomerName)
	var out []models.DeliveryRecord
	for _, d := range r.deliveries {
		if !inRange(d.DeliveryDate, filter.From, filter.To) {
			continue
		}
		if customer != "" && !strings.Contains(strings.ToLower(d.CustomerName), customer) {
			continue
		}
		out = append(out, d)
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].DeliveryDate.After(out[j].DeliveryDate) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *DeliveryRepository) CountDeliveries(_ context.Context, from, to time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, d := range r.deliveries {
		if inRange(d.DeliveryDate, &from, &to) {
			n++
		}
	}
	return n, nil
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && !t.Before(*to) {
		return false
	}
	return true
}
