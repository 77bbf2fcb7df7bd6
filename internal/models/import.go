package models

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatXLSX ImportFormat = "xlsx"
)

// Column names of the catalog spreadsheet. Required columns carry the
// trailing "*" marker exactly as it appears in the upload header row.
const (
	ColumnProductID          = "product_id*"
	ColumnProductName        = "product_name*"
	ColumnBrand              = "brand*"
	ColumnProductDescription = "product_description*"
	ColumnCategory           = "category*"
	ColumnMainImage          = "main_image"
	ColumnProductHighlights  = "product_highlights*"
	ColumnHSNCode            = "hsn_code*"
	ColumnSKUID              = "sku_id*"
	ColumnSize               = "size*"
	ColumnColor              = "color*"
	ColumnPrice              = "price*"
	ColumnStock              = "stock*"
	ColumnFacilityID         = "facility_id*"
	ColumnFacilityName       = "facility_name*"
)

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // string, number, integer, url
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity  string                 `json:"entity"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

// CatalogImportColumns returns the column definitions for catalog ingestion,
// in the order they appear in the template.
func CatalogImportColumns() []ImportTemplateColumn {
	return []ImportTemplateColumn{
		{Name: ColumnProductID, Description: "Product identifier, shared by all SKU rows of a product", Required: true, Type: "string", Example: "P1"},
		{Name: ColumnProductName, Description: "Product name", Required: true, Type: "string", Example: "Classic Crew Tee"},
		{Name: ColumnBrand, Description: "Brand name", Required: true, Type: "string", Example: "Briskk"},
		{Name: ColumnProductDescription, Description: "Product description", Required: true, Type: "string", Example: "Soft cotton crew neck t-shirt"},
		{Name: ColumnCategory, Description: "Category name", Required: true, Type: "string", Example: "T-Shirts"},
		{Name: ColumnMainImage, Description: "Image URL or storage path (optional)", Required: false, Type: "url", Example: "https://example.com/tee.jpg"},
		{Name: ColumnProductHighlights, Description: "Free-text highlights", Required: true, Type: "string", Example: "100% cotton, regular fit"},
		{Name: ColumnHSNCode, Description: "HSN code, kept as text", Required: true, Type: "string", Example: "61091000"},
		{Name: ColumnSKUID, Description: "Unique SKU identifier", Required: true, Type: "string", Example: "S1"},
		{Name: ColumnSize, Description: "Size label", Required: true, Type: "string", Example: "M"},
		{Name: ColumnColor, Description: "Color", Required: true, Type: "string", Example: "Black"},
		{Name: ColumnPrice, Description: "Unit price, non-negative", Required: true, Type: "number", Example: "499.00"},
		{Name: ColumnStock, Description: "Units in stock, non-negative", Required: true, Type: "integer", Example: "25"},
		{Name: ColumnFacilityID, Description: "Facility identifier", Required: true, Type: "string", Example: "F1"},
		{Name: ColumnFacilityName, Description: "Facility name", Required: true, Type: "string", Example: "Bengaluru Warehouse"},
	}
}

// CatalogImportTemplate returns the template definition for catalog ingestion
func CatalogImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "catalog",
		Version: "1.0",
		Columns: CatalogImportColumns(),
	}
}
