package reporting

import (
	"context"
	"fmt"
	"strings"
)

const digestListSize = 20

// LowStockDigest summarizes the stock bands as a short text message. The bool is false when
// nothing is low or out of stock.
func (s *Service) LowStockDigest(ctx context.Context) (string, bool, error) {
	out, low, err := s.inventory.CountByQuantityBand(ctx, s.threshold)
	if err != nil {
		return "", false, fmt.Errorf("count stock bands: %w", err)
	}
	if out == 0 && low == 0 {
		return fmt.Sprintf("Stock check (%s): all variants above %d units.", s.now().In(s.location).Format(dateLayout), s.threshold), false, nil
	}

	variants, err := s.inventory.ListLowStock(ctx, s.threshold, digestListSize)
	if err != nil {
		return "", false, fmt.Errorf("load low stock list: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Stock check (%s): %d low, %d out of stock.", s.now().In(s.location).Format(dateLayout), low, out)
	for _, v := range variants {
		fmt.Fprintf(&b, "\n- %s %s/%s (%s): %d left", v.ItemName, v.Size, v.Color, v.Barcode, v.Quantity)
	}
	if low > int64(len(variants)) {
		fmt.Fprintf(&b, "\n... and %d more", low-int64(len(variants)))
	}
	return b.String(), true, nil
}
