package xlsx

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/uniformstock/internal/domain/models"
)

func TestWriteTable(t *testing.T) {
	table := &models.Table{
		Name:    "Inventory",
		Columns: []string{"Item Name", "Current Stock", "Unit Price"},
		Rows: [][]any{
			{"Shirt", 4, decimal.RequireFromString("12.5")},
			{"", "", ""},
			{"SUMMARY", int64(4), decimal.RequireFromString("50")},
		},
		Widths: map[string]int{"Item Name": 20},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, table))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Inventory"}, f.GetSheetList())

	rows, err := f.GetRows("Inventory")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Item Name", "Current Stock", "Unit Price"}, rows[0])
	assert.Equal(t, []string{"Shirt", "4", "12.5"}, rows[1])
	assert.Equal(t, "SUMMARY", rows[3][0])
	assert.Equal(t, "50", rows[3][2])

	width, err := f.GetColWidth("Inventory", "A")
	require.NoError(t, err)
	assert.Equal(t, float64(20), width)
}
