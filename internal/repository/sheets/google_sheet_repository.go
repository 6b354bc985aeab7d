// Package sheets publishes report tables into a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/uniformstock/internal/config"
	"github.com/mamadbah2/uniformstock/internal/domain/models"
)

// TableSink replaces the content of a named tab with a report table.
type TableSink interface {
	PublishTable(ctx context.Context, table *models.Table) error
}

// GoogleSheetRepository implements TableSink using the official Google Sheets API.
// Each table goes to the tab named after it; the tab must already exist.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger, opts ...option.ClientOption) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(opts) == 0 {
		opts = []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope)}
	}
	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// PublishTable clears the table's tab and writes the header plus every row from A1.
func (r *GoogleSheetRepository) PublishTable(ctx context.Context, table *models.Table) error {
	if table == nil || table.Name == "" {
		return fmt.Errorf("table name must not be empty")
	}

	clearRange := table.Name + "!A:Z"
	if _, err := r.service.Spreadsheets.Values.Clear(r.spreadsheetID, clearRange, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear range %s: %w", clearRange, err)
	}

	writeRange := table.Name + "!A1"
	payload := &sheetsapi.ValueRange{Values: sheetValues(table)}
	call := r.service.Spreadsheets.Values.Update(r.spreadsheetID, writeRange, payload).
		ValueInputOption("USER_ENTERED").
		Context(ctx)
	if _, err := call.Do(); err != nil {
		return fmt.Errorf("write range %s: %w", writeRange, err)
	}

	r.logger.Info("table published to sheet",
		zap.String("sheet", table.Name),
		zap.Int("rows", len(table.Rows)),
	)
	return nil
}

// sheetValues lays out the header and rows. Decimals are sent as plain strings so that
// USER_ENTERED parses them as numbers without float rounding.
func sheetValues(table *models.Table) [][]interface{} {
	values := make([][]interface{}, 0, len(table.Rows)+1)

	header := make([]interface{}, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c
	}
	values = append(values, header)

	for _, row := range table.Rows {
		out := make([]interface{}, len(row))
		for i, cell := range row {
			if d, ok := cell.(decimal.Decimal); ok {
				out[i] = d.String()
				continue
			}
			out[i] = cell
		}
		values = append(values, out)
	}
	return values
}
