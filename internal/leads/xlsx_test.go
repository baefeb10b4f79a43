package leads

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeLeadSheet(t *testing.T, rows [][]string) string {
	t.Helper()

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().Value = c
		}
	}

	path := filepath.Join(t.TempDir(), "leads.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestParseXLSX(t *testing.T) {
	path := writeLeadSheet(t, [][]string{
		{"Phone", "Business", "Location", "Availability"},
		{"+15550000001", "Ace Plumbing", "Portland, OR", "24/7 emergency"},
		{"+15550000002", "Best Drains", "Salem, OR"},
		{"", "No Phone Co", "Eugene, OR"},
	})

	targets, err := ParseXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, targets, 2)

	assert.Equal(t, "+15550000001", targets[0].Phone)
	assert.Equal(t, "Ace Plumbing", targets[0].BusinessName)
	assert.Equal(t, "Portland, OR", targets[0].Location)
	assert.True(t, targets[0].Claims24x7)

	assert.Equal(t, "Best Drains", targets[1].BusinessName)
	assert.False(t, targets[1].Claims24x7)
}

func TestParseXLSX_SheetSelection(t *testing.T) {
	path := writeLeadSheet(t, [][]string{
		{"Phone", "Business"},
		{"+15550000003", "City Rooter"},
	})

	byName, err := ParseXLSX(path, XLSXOptions{SheetName: "Leads"})
	require.NoError(t, err)
	assert.Len(t, byName, 1)

	_, err = ParseXLSX(path, XLSXOptions{SheetName: "Missing"})
	assert.Error(t, err)

	_, err = ParseXLSX(path, XLSXOptions{SheetIndex: 4})
	assert.Error(t, err)
}

func TestLoad_DispatchesOnExtension(t *testing.T) {
	path := writeLeadSheet(t, [][]string{
		{"Phone", "Business"},
		{"+15550000004", "Night Owl HVAC"},
	})

	targets, err := Load(path)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "Night Owl HVAC", targets[0].BusinessName)
}
