package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/uniformstock/internal/domain/errs"
	"github.com/mamadbah2/uniformstock/internal/domain/models"
	"github.com/mamadbah2/uniformstock/internal/metrics"
	"github.com/mamadbah2/uniformstock/internal/repository"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
	summaryLabel    = "SUMMARY"
)

// InventoryColumns is the fixed column order of the inventory export.
var InventoryColumns = []string{
	"Item Name", "Category", "Size", "Color", "Barcode", "Current Stock",
	"Unit Price", "Total Value", "Description", "Status", "Date Added", "Last Updated",
}

// DeliveryColumns is the fixed column order of the delivery export.
var DeliveryColumns = []string{
	"Delivery Date", "Customer Name", "Item Name", "Category", "Size", "Color",
	"Barcode", "Quantity Delivered", "Unit Price", "Total Amount", "Delivered By", "Notes",
}

var inventoryWidths = map[string]int{
	"Item Name": 20, "Category": 15, "Size": 10, "Color": 15, "Barcode": 15, "Current Stock": 15,
	"Unit Price": 12, "Total Value": 15, "Description": 30, "Status": 15, "Date Added": 20, "Last Updated": 20,
}

var deliveryWidths = map[string]int{
	"Delivery Date": 15, "Customer Name": 25, "Item Name": 20, "Category": 15, "Size": 10, "Color": 15,
	"Barcode": 15, "Quantity Delivered": 18, "Unit Price": 12, "Total Amount": 15, "Delivered By": 20, "Notes": 30,
}

// InventoryExportFilter selects the variants of an inventory export.
type InventoryExportFilter struct {
	Category     models.Category
	SearchText   string
	LowStockOnly bool
}

// FlattenInventoryForExport builds the inventory table ordered by category then item name.
// The data rows are followed by a blank row and a SUMMARY row.
func (s *Service) FlattenInventoryForExport(ctx context.Context, filter InventoryExportFilter) (*models.Table, error) {
	started := time.Now()
	defer func() {
		metrics.ReportDuration.WithLabelValues("inventory_export").Observe(time.Since(started).Seconds())
	}()

	repoFilter := repository.InventoryFilter{
		Category:   models.Category(strings.TrimSpace(string(filter.Category))),
		SearchText: strings.TrimSpace(filter.SearchText),
	}
	if repoFilter.Category != "" && !repoFilter.Category.Valid() {
		return nil, errs.InvalidArgument("category", "unknown category %q", repoFilter.Category)
	}
	if filter.LowStockOnly {
		threshold := s.threshold
		repoFilter.MaxQuantity = &threshold
	}

	variants, err := s.inventory.ListVariantsSorted(ctx, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("list variants for export: %w", err)
	}

	table := &models.Table{
		Name:    "Inventory",
		Columns: InventoryColumns,
		Rows:    make([][]any, 0, len(variants)+2),
		Widths:  inventoryWidths,
	}

	var (
		totalStock int64
		totalValue = decimal.Zero
		low, out   int
	)
	for _, v := range variants {
		status := v.StockStatus(s.threshold)
		switch status {
		case models.StatusOutOfStock:
			out++
		case models.StatusLowStock:
			low++
		}
		value := v.TotalValue()
		totalStock += int64(v.Quantity)
		totalValue = totalValue.Add(value)

		table.Rows = append(table.Rows, []any{
			v.ItemName,
			string(v.Category),
			v.Size,
			v.Color,
			v.Barcode,
			v.Quantity,
			v.UnitPrice,
			value,
			v.Description,
			string(status),
			s.formatTime(v.CreatedAt, timestampLayout),
			s.formatTime(v.UpdatedAt, timestampLayout),
		})
	}

	table.Rows = append(table.Rows, blankRow(len(table.Columns)))
	table.Rows = append(table.Rows, []any{
		summaryLabel, "", "", "", "",
		totalStock,
		"",
		totalValue,
		fmt.Sprintf("Total Items: %d | Low Stock: %d | Out of Stock: %d", len(variants), low, out),
		"", "", "",
	})
	table.Summary = &models.TableSummary{
		RowCount:    len(variants),
		TotalUnits:  totalStock,
		TotalAmount: totalValue,
		LowStock:    low,
		OutOfStock:  out,
	}
	return table, nil
}

// FlattenDeliveriesForExport builds the delivery table, newest delivery first. Deliveries whose
// variant or user no longer resolves are left out. Amounts use the variant's current price.
func (s *Service) FlattenDeliveriesForExport(ctx context.Context, filter repository.DeliveryFilter) (*models.Table, error) {
	started := time.Now()
	defer func() {
		metrics.ReportDuration.WithLabelValues("delivery_export").Observe(time.Since(started).Seconds())
	}()

	filter.CustomerName = strings.TrimSpace(filter.CustomerName)
	if filter.From != nil && filter.To != nil && !filter.To.After(*filter.From) {
		return nil, errs.InvalidArgument("endDate", "end date must not be before start date")
	}

	views, err := s.deliveries.ListDeliveries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list deliveries for export: %w", err)
	}

	table := &models.Table{
		Name:    "Deliveries",
		Columns: DeliveryColumns,
		Rows:    make([][]any, 0, len(views)),
		Widths:  deliveryWidths,
	}

	var (
		units int64
		total = decimal.Zero
	)
	for _, d := range views {
		amount := d.Variant.UnitPrice.Mul(decimal.NewFromInt(int64(d.QuantityDelivered)))
		units += int64(d.QuantityDelivered)
		total = total.Add(amount)

		barcode := d.Barcode
		if barcode == "" {
			barcode = d.Variant.Barcode
		}
		table.Rows = append(table.Rows, []any{
			s.formatTime(d.DeliveryDate, dateLayout),
			d.CustomerName,
			d.Variant.ItemName,
			string(d.Variant.Category),
			d.Variant.Size,
			d.Variant.Color,
			barcode,
			d.QuantityDelivered,
			d.Variant.UnitPrice,
			amount,
			d.User.Username,
			d.Notes,
		})
	}
	table.Summary = &models.TableSummary{
		RowCount:    len(views),
		TotalUnits:  units,
		TotalAmount: total,
	}
	return table, nil
}

func (s *Service) formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.In(s.location).Format(layout)
}

func blankRow(n int) []any {
	row := make([]any, n)
	for i := range row {
		row[i] = ""
	}
	return row
}
