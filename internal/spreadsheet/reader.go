package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrNoSheets      = errors.New("no sheets found in Excel file")
	ErrMissingHeader = errors.New("first sheet has no header row")
)

// CellKind is the storage type of a cell as recorded in the workbook.
type CellKind int

const (
	KindEmpty CellKind = iota
	KindText
	KindNumber
	KindBool
	KindOther // dates, error values
)

func (k CellKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "other"
	}
}

// Cell is the raw value of a single cell together with its kind.
type Cell struct {
	Value string
	Kind  CellKind
}

// IsBlank reports whether the cell holds nothing but whitespace.
func (c Cell) IsBlank() bool {
	return c.Kind == KindEmpty || strings.TrimSpace(c.Value) == ""
}

// Row is one data row keyed by normalized header name.
type Row struct {
	Number int // 1-indexed sheet row, header is row 1
	Cells  map[string]Cell
}

// Get returns the cell under the given column.
func (r Row) Get(column string) (Cell, bool) {
	c, ok := r.Cells[NormalizeHeader(column)]
	return c, ok
}

// IsBlank reports whether every cell of the row is blank.
func (r Row) IsBlank() bool {
	for _, c := range r.Cells {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}

// Sheet is the parsed content of the first worksheet of a workbook.
type Sheet struct {
	Name   string
	Header []string
	Rows   []Row
}

// HasColumn reports whether the header contains the given column.
func (s *Sheet) HasColumn(column string) bool {
	name := NormalizeHeader(column)
	for _, h := range s.Header {
		if h == name {
			return true
		}
	}
	return false
}

// NormalizeHeader lowercases and trims a header cell and folds the
// "name *" spelling of the required marker into "name*".
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if strings.HasSuffix(h, "*") {
		h = strings.TrimSpace(strings.TrimSuffix(h, "*")) + "*"
	}
	return h
}

// Read parses the first worksheet of an XLSX workbook. Cell values are read
// raw so numeric cells keep their stored digits instead of the display
// format (no thousands separators, no scientific notation).
func Read(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	sheetName := sheets[0]

	excelRows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}
	if len(excelRows) == 0 {
		return nil, ErrMissingHeader
	}

	header := make([]string, len(excelRows[0]))
	for i, h := range excelRows[0] {
		header[i] = NormalizeHeader(h)
	}

	sheet := &Sheet{
		Name:   sheetName,
		Header: header,
		Rows:   make([]Row, 0, len(excelRows)-1),
	}

	for idx, excelRow := range excelRows[1:] {
		rowNum := idx + 2
		cells := make(map[string]Cell, len(header))
		for col, name := range header {
			if name == "" {
				continue
			}
			var value string
			if col < len(excelRow) {
				value = excelRow[col]
			}
			kind := KindEmpty
			if strings.TrimSpace(value) != "" {
				kind = cellKind(f, sheetName, col+1, rowNum)
			}
			cells[name] = Cell{Value: value, Kind: kind}
		}
		sheet.Rows = append(sheet.Rows, Row{Number: rowNum, Cells: cells})
	}

	return sheet, nil
}

func cellKind(f *excelize.File, sheet string, col, row int) CellKind {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return KindOther
	}
	cellType, err := f.GetCellType(sheet, axis)
	if err != nil {
		return KindOther
	}
	switch cellType {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return KindText
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		// OOXML stores numbers without a type attribute
		return KindNumber
	case excelize.CellTypeBool:
		return KindBool
	default:
		return KindOther
	}
}
