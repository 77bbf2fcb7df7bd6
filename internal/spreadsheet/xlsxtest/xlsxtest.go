// Package xlsxtest builds in-memory workbooks for tests.
package xlsxtest

import (
	"bytes"
	"testing"

	"catalog-service/internal/models"
	"github.com/xuri/excelize/v2"
)

// CatalogHeader is the full header row of a catalog upload.
func CatalogHeader() []any {
	cols := models.CatalogImportColumns()
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	return header
}

// Workbook writes rows to the first sheet of a new workbook and returns the
// encoded XLSX bytes. A nil value leaves the cell unset.
func Workbook(t testing.TB, rows ...[]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for r, row := range rows {
		for c, value := range row {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue("Sheet1", cell, value); err != nil {
				t.Fatalf("set %s: %v", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// CatalogRow builds one data row in CatalogHeader order.
func CatalogRow(productID, name, image, skuID string, size any, price any, stock any) []any {
	var img any
	if image != "" {
		img = image
	}
	return []any{
		productID, name, "Briskk", "Soft cotton tee", "T-Shirts", img, "100% cotton", 61091000,
		skuID, size, "Black", price, stock, "F1", "Bengaluru Warehouse",
	}
}
