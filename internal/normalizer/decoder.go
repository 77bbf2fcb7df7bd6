package normalizer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"catalog-service/internal/models"
	"catalog-service/internal/spreadsheet"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingValue = errors.New("required value is missing")
	ErrInvalidValue = errors.New("value has the wrong type")
	ErrNegative     = errors.New("value must not be negative")
)

// FieldError locates a problem in a single cell.
type FieldError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("row %d, column %s: %v", e.Row, e.Column, e.Err)
	}
	return fmt.Sprintf("row %d, column %s: %v (got %q)", e.Row, e.Column, e.Err, e.Value)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// MissingColumnsError lists required columns absent from the header row.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// requiredColumns are the columns every upload must carry.
var requiredColumns = func() []string {
	var cols []string
	for _, c := range models.CatalogImportColumns() {
		if c.Required {
			cols = append(cols, c.Name)
		}
	}
	return cols
}()

// ValidateHeader checks that every required column is present.
func ValidateHeader(sheet *spreadsheet.Sheet) error {
	var missing []string
	for _, col := range requiredColumns {
		if !sheet.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &MissingColumnsError{Columns: missing}
	}
	return nil
}

// productFields are the product-level values of a row. The image cell is
// kept raw because it is resolved only for the first row of a product.
type productFields struct {
	ProductID          string
	ProductName        string
	Brand              string
	ProductDescription string
	Category           string
	ProductHighlights  string
	HSNCode            string
	MainImage          spreadsheet.Cell
}

// rowDecoder reads the cells of one row, stopping at the first error.
type rowDecoder struct {
	row spreadsheet.Row
	err error
}

func (d *rowDecoder) fail(column, value string, err error) {
	if d.err == nil {
		d.err = &FieldError{Row: d.row.Number, Column: column, Value: value, Err: err}
	}
}

func (d *rowDecoder) cell(column string) spreadsheet.Cell {
	c, _ := d.row.Get(column)
	return c
}

// text returns a required value as text. Numeric cells are canonicalized
// so that 61091000 stays "61091000" and 42.0 becomes "42".
func (d *rowDecoder) text(column string) string {
	if d.err != nil {
		return ""
	}
	c := d.cell(column)
	if c.IsBlank() {
		d.fail(column, "", ErrMissingValue)
		return ""
	}
	value := strings.TrimSpace(c.Value)
	if c.Kind == spreadsheet.KindNumber {
		if n, err := decimal.NewFromString(value); err == nil {
			return n.String()
		}
	}
	return value
}

func (d *rowDecoder) price(column string) decimal.Decimal {
	if d.err != nil {
		return decimal.Zero
	}
	c := d.cell(column)
	if c.IsBlank() {
		d.fail(column, "", ErrMissingValue)
		return decimal.Zero
	}
	value := strings.TrimSpace(c.Value)
	n, err := decimal.NewFromString(value)
	if err != nil || c.Kind == spreadsheet.KindBool {
		d.fail(column, value, ErrInvalidValue)
		return decimal.Zero
	}
	if n.IsNegative() {
		d.fail(column, value, ErrNegative)
		return decimal.Zero
	}
	return n
}

func (d *rowDecoder) integer(column string) int {
	if d.err != nil {
		return 0
	}
	c := d.cell(column)
	if c.IsBlank() {
		d.fail(column, "", ErrMissingValue)
		return 0
	}
	value := strings.TrimSpace(c.Value)
	n, err := decimal.NewFromString(value)
	if err != nil || c.Kind == spreadsheet.KindBool || !n.IsInteger() || !n.BigInt().IsInt64() {
		d.fail(column, value, ErrInvalidValue)
		return 0
	}
	if n.IsNegative() {
		d.fail(column, value, ErrNegative)
		return 0
	}
	return int(n.IntPart())
}

func (d *rowDecoder) product() (productFields, error) {
	p := productFields{
		ProductID:          d.text(models.ColumnProductID),
		ProductName:        d.text(models.ColumnProductName),
		Brand:              d.text(models.ColumnBrand),
		ProductDescription: d.text(models.ColumnProductDescription),
		Category:           d.text(models.ColumnCategory),
		ProductHighlights:  d.text(models.ColumnProductHighlights),
		HSNCode:            d.text(models.ColumnHSNCode),
		MainImage:          d.cell(models.ColumnMainImage),
	}
	return p, d.err
}

func (d *rowDecoder) sku(productID string) (models.SKU, error) {
	s := models.SKU{
		SKUID:        d.text(models.ColumnSKUID),
		ProductID:    productID,
		Size:         d.text(models.ColumnSize),
		Color:        d.text(models.ColumnColor),
		Price:        d.price(models.ColumnPrice),
		Stock:        d.integer(models.ColumnStock),
		FacilityID:   d.text(models.ColumnFacilityID),
		FacilityName: d.text(models.ColumnFacilityName),
	}
	return s, d.err
}

// sameProductFields reports whether two rows agree on every product-level
// value except the image reference.
func sameProductFields(a, b productFields) bool {
	a.MainImage, b.MainImage = spreadsheet.Cell{}, spreadsheet.Cell{}
	return a == b
}
