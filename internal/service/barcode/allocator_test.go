package barcode

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/uniformstock/internal/domain/errs"
	"github.com/mamadbah2/uniformstock/internal/repository"
)

type fakeChecker struct {
	mu       sync.Mutex
	existing map[string]bool
	err      error
}

func (f *fakeChecker) BarcodeExists(_ context.Context, barcode string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return f.existing[barcode], nil
}

func (f *fakeChecker) add(barcode string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existing[barcode] = true
}

func sequence(values ...int64) func() int64 {
	i := 0
	return func() int64 {
		v := values[i%len(values)]
		i++
		return v
	}
}

var twelveDigits = regexp.MustCompile(`^[1-9][0-9]{11}$`)

func TestAllocateFormat(t *testing.T) {
	a := NewAllocator(&fakeChecker{existing: map[string]bool{}}, nil)

	for i := 0; i < 200; i++ {
		code, err := a.Allocate(context.Background())
		require.NoError(t, err)
		assert.Regexp(t, twelveDigits, code)
	}
}

func TestAllocateRetriesOnCollision(t *testing.T) {
	checker := &fakeChecker{existing: map[string]bool{"100000000001": true, "100000000002": true}}
	a := NewAllocator(checker, nil, WithGenerator(sequence(100000000001, 100000000002, 100000000003)))

	code, err := a.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "100000000003", code)
}

func TestAllocateExhausted(t *testing.T) {
	checker := &fakeChecker{existing: map[string]bool{"555555555555": true}}
	calls := 0
	a := NewAllocator(checker, nil, WithGenerator(func() int64 {
		calls++
		return 555555555555
	}))

	_, err := a.Allocate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAllocationExhausted))
	assert.Equal(t, MaxAttempts, calls)
}

func TestAllocateWithRetriesLostInsertRace(t *testing.T) {
	checker := &fakeChecker{existing: map[string]bool{}}
	a := NewAllocator(checker, nil, WithGenerator(sequence(200000000000, 300000000000)))

	var committed []string
	code, err := a.AllocateWith(context.Background(), func(_ context.Context, barcode string) error {
		committed = append(committed, barcode)
		if barcode == "200000000000" {
			return repository.ErrDuplicateBarcode
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "300000000000", code)
	assert.Equal(t, []string{"200000000000", "300000000000"}, committed)
}

func TestAllocateWithPropagatesOtherCommitErrors(t *testing.T) {
	a := NewAllocator(&fakeChecker{existing: map[string]bool{}}, nil)
	boom := errors.New("write failed")

	_, err := a.AllocateWith(context.Background(), func(context.Context, string) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestAllocateCheckerError(t *testing.T) {
	boom := errors.New("store down")
	a := NewAllocator(&fakeChecker{err: boom}, nil)

	_, err := a.Allocate(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestAllocateProducesDistinctValuesAgainstLedger(t *testing.T) {
	checker := &fakeChecker{existing: map[string]bool{}}
	a := NewAllocator(checker, nil)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := a.Allocate(context.Background())
		require.NoError(t, err)
		require.False(t, seen[code], "allocator returned an existing barcode %s", code)
		seen[code] = true
		checker.add(code)
	}
	assert.Len(t, seen, 50)
}

func TestAllocateHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewAllocator(&fakeChecker{existing: map[string]bool{}}, nil)
	_, err := a.Allocate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
