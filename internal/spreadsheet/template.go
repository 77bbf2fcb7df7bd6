package spreadsheet

import (
	"fmt"
	"io"

	"catalog-service/internal/models"
	"github.com/xuri/excelize/v2"
)

// TemplateSheet is the name of the data sheet in generated templates. It is
// always the first sheet so that uploads of an untouched template parse.
const TemplateSheet = "Products"

// WriteTemplate writes an XLSX workbook containing the header row of the
// given template plus an instructions sheet.
func WriteTemplate(w io.Writer, template models.ImportTemplate) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TemplateSheet); err != nil {
		return fmt.Errorf("failed to name template sheet: %w", err)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	// Required columns are highlighted
	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(TemplateSheet, cell, col.Name)
		if col.Required {
			f.SetCellStyle(TemplateSheet, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(TemplateSheet, cell, cell, headerStyle)
		}
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(TemplateSheet, colName, colName, 22)
	}

	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "Catalog Ingestion Instructions")
	f.SetCellValue("Instructions", "A3", "One row per SKU. Rows sharing a product_id* belong to the same product;")
	f.SetCellValue("Instructions", "A4", "product fields are taken from the first row of each product.")
	f.SetCellValue("Instructions", "A5", "Only the first sheet is read. Columns marked * are required on every row.")

	f.SetCellValue("Instructions", "A7", "Column")
	f.SetCellValue("Instructions", "B7", "Description")
	f.SetCellValue("Instructions", "C7", "Required")
	f.SetCellValue("Instructions", "D7", "Type")
	f.SetCellValue("Instructions", "E7", "Example")

	for i, col := range template.Columns {
		row := i + 8
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), col.Description)
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), required)
		f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), col.Type)
		f.SetCellValue("Instructions", fmt.Sprintf("E%d", row), col.Example)
	}

	f.SetColWidth("Instructions", "A", "A", 25)
	f.SetColWidth("Instructions", "B", "B", 60)
	f.SetColWidth("Instructions", "C", "D", 12)
	f.SetColWidth("Instructions", "E", "E", 35)

	f.SetActiveSheet(0)

	return f.Write(w)
}
