package barcode

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"

	"go.uber.org/zap"

	"github.com/mamadbah2/uniformstock/internal/domain/errs"
	"github.com/mamadbah2/uniformstock/internal/metrics"
	"github.com/mamadbah2/uniformstock/internal/repository"
)

const (
	// MaxAttempts bounds generation, including candidates lost to insert-time races.
	MaxAttempts = 100

	minBarcode  = 100000000000
	barcodeSpan = 900000000000
)

// Checker reports whether a barcode is already assigned.
type Checker interface {
	BarcodeExists(ctx context.Context, barcode string) (bool, error)
}

// CommitFunc persists a candidate. Returning repository.ErrDuplicateBarcode makes the
// allocator treat the candidate as a collision and try again.
type CommitFunc func(ctx context.Context, barcode string) error

// Allocator generates 12-digit barcodes that are not yet present in the ledger.
type Allocator struct {
	checker  Checker
	generate func() int64
	logger   *zap.Logger
}

// Option customizes an Allocator.
type Option func(*Allocator)

// WithGenerator replaces the random source. The function must return values in
// [100000000000, 999999999999].
func WithGenerator(gen func() int64) Option {
	return func(a *Allocator) { a.generate = gen }
}

// NewAllocator builds an allocator backed by checker.
func NewAllocator(checker Checker, logger *zap.Logger, opts ...Option) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Allocator{
		checker:  checker,
		generate: func() int64 { return minBarcode + rand.Int63n(barcodeSpan) },
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns a barcode that no variant currently holds. The check is not atomic
// with a later insert; use AllocateWith when the caller inserts.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	return a.AllocateWith(ctx, nil)
}

// AllocateWith generates candidates until commit accepts one. Collisions found by the
// existence check and duplicate-barcode rejections from commit share one attempt budget.
func (a *Allocator) AllocateWith(ctx context.Context, commit CommitFunc) (string, error) {
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		candidate := strconv.FormatInt(a.generate(), 10)

		exists, err := a.checker.BarcodeExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check barcode %s: %w", candidate, err)
		}
		if exists {
			metrics.BarcodeAttempts.WithLabelValues("collision").Inc()
			a.logger.Debug("barcode collision", zap.String("barcode", candidate), zap.Int("attempt", attempt))
			continue
		}

		if commit != nil {
			err := commit(ctx, candidate)
			if errors.Is(err, repository.ErrDuplicateBarcode) {
				metrics.BarcodeAttempts.WithLabelValues("commit_conflict").Inc()
				a.logger.Info("barcode lost insert race, retrying", zap.String("barcode", candidate), zap.Int("attempt", attempt))
				continue
			}
			if err != nil {
				return "", err
			}
		}

		metrics.BarcodeAttempts.WithLabelValues("unique").Inc()
		return candidate, nil
	}

	metrics.BarcodeAttempts.WithLabelValues("exhausted").Inc()
	a.logger.Error("barcode allocation exhausted", zap.Int("attempts", MaxAttempts))
	return "", errs.AllocationExhausted(MaxAttempts)
}
