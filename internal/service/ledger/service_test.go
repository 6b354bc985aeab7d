package ledger

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/uniformstock/internal/domain/errs"
	"github.com/mamadbah2/uniformstock/internal/domain/models"
	"github.com/mamadbah2/uniformstock/internal/repository"
	"github.com/mamadbah2/uniformstock/internal/repository/memory"
	"github.com/mamadbah2/uniformstock/internal/service/barcode"
)

func newTestService(repo repository.InventoryRepository) *Service {
	return NewService(repo, barcode.NewAllocator(repo, nil), nil)
}

func shirtRequest(sizes ...SizeQuantity) AddStockRequest {
	return AddStockRequest{
		ItemName:  "Shirt",
		Category:  models.CategoryUniform,
		Sizes:     sizes,
		Color:     "Blue",
		UnitPrice: decimal.NewFromInt(100),
	}
}

func TestAddStockCreatesThenReconciles(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInventoryRepository()
	svc := newTestService(repo)

	first, err := svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "M", Quantity: 5}))
	require.NoError(t, err)
	require.Len(t, first.Created, 1)
	assert.Empty(t, first.Updated)
	created := first.Created[0]
	assert.Equal(t, 5, created.Quantity)
	assert.Regexp(t, `^[1-9][0-9]{11}$`, created.Barcode)

	second, err := svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "M", Quantity: 3}))
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	require.Len(t, second.Updated, 1)
	assert.Equal(t, 8, second.Updated[0].Quantity)
	assert.Equal(t, created.Barcode, second.Updated[0].Barcode)
	assert.Equal(t, created.ID, second.Updated[0].ID)

	n, err := repo.CountVariants(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestAddStockSkipsZeroQuantities(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInventoryRepository()
	svc := newTestService(repo)

	res, err := svc.AddStock(ctx, shirtRequest(
		SizeQuantity{Size: "S", Quantity: 0},
		SizeQuantity{Size: "M", Quantity: 2},
		SizeQuantity{Size: "L", Quantity: 0},
	))
	require.NoError(t, err)
	assert.Len(t, res.Created, 1)
	assert.Len(t, res.Skipped, 2)

	_, err = repo.IncrementQuantity(ctx, models.VariantKey{ItemName: "Shirt", Category: models.CategoryUniform, Size: "S", Color: "Blue"}, 0, time.Now())
	assert.ErrorIs(t, err, repository.ErrNoDocument)

	res, err = svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "XL", Quantity: 0}))
	require.NoError(t, err)
	assert.Equal(t, "No items were added (all quantities were 0)", res.Message())
}

func TestAddStockMessages(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewInventoryRepository())

	res, err := svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "M", Quantity: 1}, SizeQuantity{Size: "L", Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, "Successfully added 2 size(s) for Shirt", res.Message())

	res, err = svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "M", Quantity: 1}, SizeQuantity{Size: "XL", Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, "Added 1 new size(s) and updated 1 existing size(s) for Shirt", res.Message())

	res, err = svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "M", Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, "Updated quantities for 1 existing size(s) of Shirt", res.Message())
}

func TestAddStockValidation(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInventoryRepository()
	svc := newTestService(repo)

	cases := map[string]AddStockRequest{
		"unknown category": {ItemName: "Shirt", Category: "Socks", Color: "Blue", Sizes: []SizeQuantity{{Size: "M", Quantity: 1}}},
		"missing name":     {Category: models.CategoryCap, Color: "Blue", Sizes: []SizeQuantity{{Size: "M", Quantity: 1}}},
		"no sizes":         {ItemName: "Cap", Category: models.CategoryCap, Color: "Blue"},
		"negative qty":     shirtRequest(SizeQuantity{Size: "M", Quantity: 4}, SizeQuantity{Size: "L", Quantity: -1}),
		"negative price": {
			ItemName: "Cap", Category: models.CategoryCap, Color: "Red",
			Sizes: []SizeQuantity{{Size: "M", Quantity: 1}}, UnitPrice: decimal.NewFromInt(-5),
		},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.AddStock(ctx, req)
			assert.True(t, errors.Is(err, errs.ErrInvalidArgument), "got %v", err)
		})
	}

	n, err := repo.CountVariants(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAddStockRejectsQuantityAboveCap(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewInventoryRepository())

	res, err := svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "M", Quantity: 5}))
	require.NoError(t, err)
	id := res.Created[0].ID

	for _, qty := range []int{MaxSizeQuantity + 1, math.MaxInt} {
		_, err = svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "M", Quantity: qty}))
		assert.True(t, errors.Is(err, errs.ErrInvalidArgument), "qty %d: got %v", qty, err)
	}

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)

	res, err = svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "M", Quantity: MaxSizeQuantity}))
	require.NoError(t, err)
	assert.Equal(t, MaxSizeQuantity+5, res.Updated[0].Quantity)
}

func TestAddStockRejectsIncrementOverflow(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInventoryRepository()
	svc := newTestService(repo)

	res, err := svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "M", Quantity: 5}))
	require.NoError(t, err)
	id := res.Created[0].ID
	_, err = repo.SetQuantity(ctx, id, math.MaxInt-2, time.Now())
	require.NoError(t, err)

	res, err = svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "M", Quantity: 5}))
	require.Error(t, err)
	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errs.KindInvalidArgument, e.Kind)
	assert.Equal(t, "quantity", e.Field)
	assert.Empty(t, res.Updated)

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt-2, got.Quantity)
}

func TestAddStockConcurrentSameVariantNoLostUpdate(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInventoryRepository()
	svc := newTestService(repo)

	_, err := svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "M", Quantity: 10}))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(q int) {
			defer wg.Done()
			_, err := svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "M", Quantity: q}))
			assert.NoError(t, err)
		}(i%3 + 1)
	}
	wg.Wait()

	// 20 additions of 1,2,3 repeating: 7×1 + 7×2 + 6×3 = 39
	items, _, err := repo.ListVariants(ctx, repository.InventoryFilter{}, 0, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 10+39, items[0].Quantity)
}

func TestAddStockConcurrentCreatesOneVariant(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInventoryRepository()
	svc := newTestService(repo)

	var wg sync.WaitGroup
	for _, q := range []int{4, 6} {
		wg.Add(1)
		go func(q int) {
			defer wg.Done()
			_, err := svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "L", Quantity: q}))
			assert.NoError(t, err)
		}(q)
	}
	wg.Wait()

	items, total, err := repo.ListVariants(ctx, repository.InventoryFilter{}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, 10, items[0].Quantity)
}

// racingRepo slips a competing variant in right before the first insert and rejects that
// insert, as if another caller created the same variant in between.
type racingRepo struct {
	*memory.InventoryRepository
	once sync.Once
}

func (r *racingRepo) InsertVariant(ctx context.Context, v *models.InventoryVariant) error {
	raced := false
	r.once.Do(func() {
		winner := *v
		winner.ID = ""
		winner.Barcode = "999999999999"
		winner.Quantity = 7
		_ = r.InventoryRepository.InsertVariant(ctx, &winner)
		raced = true
	})
	if raced {
		return repository.ErrDuplicateVariant
	}
	return r.InventoryRepository.InsertVariant(ctx, v)
}

func TestAddStockFoldsLostCreateRaceIntoIncrement(t *testing.T) {
	ctx := context.Background()
	repo := &racingRepo{InventoryRepository: memory.NewInventoryRepository()}
	svc := newTestService(repo)

	res, err := svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "M", Quantity: 3}))
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	require.Len(t, res.Updated, 1)
	assert.Equal(t, 10, res.Updated[0].Quantity)
	assert.Equal(t, "999999999999", res.Updated[0].Barcode)
}

// failingRepo fails increments for one size.
type failingRepo struct {
	*memory.InventoryRepository
	failSize string
	err      error
}

func (r *failingRepo) IncrementQuantity(ctx context.Context, key models.VariantKey, delta int, now time.Time) (*models.InventoryVariant, error) {
	if key.Size == r.failSize {
		return nil, r.err
	}
	return r.InventoryRepository.IncrementQuantity(ctx, key, delta, now)
}

func TestAddStockPartialFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")
	repo := &failingRepo{InventoryRepository: memory.NewInventoryRepository(), failSize: "L", err: boom}
	svc := newTestService(repo)

	res, err := svc.AddStock(ctx, shirtRequest(
		SizeQuantity{Size: "S", Quantity: 1},
		SizeQuantity{Size: "M", Quantity: 2},
		SizeQuantity{Size: "L", Quantity: 3},
		SizeQuantity{Size: "XL", Quantity: 4},
	))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrPartialFailure))
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, errs.KindPartialFailure, errs.KindOf(err))

	var pf *PartialFailureError
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, "L", pf.Failed.Size)

	require.NotNil(t, res)
	assert.Len(t, res.Created, 2)
	assert.Equal(t, []SizeQuantity{{Size: "XL", Quantity: 4}}, res.Pending)

	n, err := repo.CountVariants(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestAddStockFirstSizeFailureIsNotPartial(t *testing.T) {
	boom := errors.New("connection reset")
	repo := &failingRepo{InventoryRepository: memory.NewInventoryRepository(), failSize: "S", err: boom}
	svc := newTestService(repo)

	res, err := svc.AddStock(context.Background(), shirtRequest(SizeQuantity{Size: "S", Quantity: 1}, SizeQuantity{Size: "M", Quantity: 1}))
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, errs.ErrPartialFailure))
	assert.Zero(t, res.Applied())
	assert.Len(t, res.Pending, 1)
}

func TestAddStockAllocationExhausted(t *testing.T) {
	repo := memory.NewInventoryRepository()
	require.NoError(t, repo.InsertVariant(context.Background(), &models.InventoryVariant{
		ItemName: "Cap", Category: models.CategoryCap, Size: "M", Color: "Red", Barcode: "123456789012",
	}))
	alloc := barcode.NewAllocator(repo, nil, barcode.WithGenerator(func() int64 { return 123456789012 }))
	svc := NewService(repo, alloc, nil)

	_, err := svc.AddStock(context.Background(), shirtRequest(SizeQuantity{Size: "M", Quantity: 1}))
	assert.True(t, errors.Is(err, errs.ErrAllocationExhausted))
}

func TestSetQuantity(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewInventoryRepository())

	res, err := svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "M", Quantity: 8}))
	require.NoError(t, err)
	id := res.Created[0].ID

	_, err = svc.SetQuantity(ctx, id, -1)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Quantity)

	updated, err := svc.SetQuantity(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantity)

	_, err = svc.SetQuantity(ctx, "missing", 1)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestUpdateVariantOverwrites(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewInventoryRepository())

	res, err := svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "M", Quantity: 8}))
	require.NoError(t, err)
	original := res.Created[0]

	updated, err := svc.UpdateVariant(ctx, original.ID, models.VariantUpdate{
		ItemName:  "Shirt",
		Category:  models.CategoryUniform,
		Size:      "M",
		Color:     "Navy",
		Quantity:  2,
		UnitPrice: decimal.RequireFromString("120.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Quantity)
	assert.Equal(t, "Navy", updated.Color)
	assert.Equal(t, original.Barcode, updated.Barcode)
	assert.True(t, updated.UnitPrice.Equal(decimal.RequireFromString("120.5")))

	_, err = svc.UpdateVariant(ctx, "missing", models.VariantUpdate{
		ItemName: "Shirt", Category: models.CategoryUniform, Size: "M", Color: "Navy",
	})
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	_, err = svc.UpdateVariant(ctx, original.ID, models.VariantUpdate{
		ItemName: "Shirt", Category: "Socks", Size: "M", Color: "Navy",
	})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestUpdateVariantKeyConflict(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewInventoryRepository())

	res, err := svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "M", Quantity: 1}, SizeQuantity{Size: "L", Quantity: 1}))
	require.NoError(t, err)

	_, err = svc.UpdateVariant(ctx, res.Created[1].ID, models.VariantUpdate{
		ItemName: "Shirt", Category: models.CategoryUniform, Size: "M", Color: "Blue", Quantity: 1,
	})
	assert.True(t, errors.Is(err, errs.ErrConflict))
}

func TestDeleteAndFindByBarcode(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewInventoryRepository())

	res, err := svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: "M", Quantity: 1}))
	require.NoError(t, err)
	v := res.Created[0]

	found, err := svc.FindByBarcode(ctx, v.Barcode)
	require.NoError(t, err)
	assert.Equal(t, v.ID, found.ID)

	require.NoError(t, svc.DeleteVariant(ctx, v.ID))
	assert.True(t, errors.Is(svc.DeleteVariant(ctx, v.ID), errs.ErrNotFound))

	_, err = svc.FindByBarcode(ctx, v.Barcode)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestListPaging(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInventoryRepository()
	svc := newTestService(repo)

	clock := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	sizes := []string{"XS", "S", "M", "L", "XL", "XXL"}
	for _, size := range sizes {
		_, err := svc.AddStock(ctx, shirtRequest(SizeQuantity{Size: size, Quantity: 1}))
		require.NoError(t, err)
	}

	items, total, err := svc.List(ctx, repository.InventoryFilter{}, 2, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 6, total)
	require.Len(t, items, 2)
	assert.Equal(t, "S", items[0].Size)
	assert.Equal(t, "XS", items[1].Size)

	_, _, err = svc.List(ctx, repository.InventoryFilter{Category: "Socks"}, 1, 10)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}
