package models

import (
	"github.com/shopspring/decimal"
)

// Product is the catalog aggregate root. SKUs are owned by the product and
// persisted through the skus.product_id foreign key.
type Product struct {
	ProductID          string  `json:"product_id" gorm:"column:product_id;primaryKey"`
	ProductName        string  `json:"product_name" gorm:"column:product_name;not null"`
	Brand              string  `json:"brand" gorm:"not null"`
	ProductDescription string  `json:"product_description" gorm:"column:product_description;not null"`
	Category           string  `json:"category" gorm:"not null"`
	MainImage          *string `json:"main_image"`
	ProductHighlights  string  `json:"product_highlights" gorm:"column:product_highlights;not null"`
	HSNCode            string  `json:"hsn_code" gorm:"column:hsn_code;not null"`

	SKUs []SKU `json:"skus" gorm:"foreignKey:ProductID;references:ProductID"`
}

// SKU is a sellable variant of a product stocked at a single facility.
type SKU struct {
	SKUID        string          `json:"sku_id" gorm:"column:sku_id;primaryKey"`
	ProductID    string          `json:"product_id" gorm:"column:product_id;not null;index"`
	Size         string          `json:"size" gorm:"not null"`
	Color        string          `json:"color" gorm:"not null"`
	Price        decimal.Decimal `json:"price" gorm:"type:numeric(14,2);not null"`
	Stock        int             `json:"stock" gorm:"not null"`
	FacilityID   string          `json:"facility_id" gorm:"column:facility_id;not null"`
	FacilityName string          `json:"facility_name" gorm:"column:facility_name;not null"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// TableName returns the table name for the SKU model
func (SKU) TableName() string {
	return "skus"
}

// SKUView is the response projection of a SKU.
type SKUView struct {
	SKUID        string  `json:"sku_id"`
	Size         string  `json:"size"`
	Color        string  `json:"color"`
	Price        float64 `json:"price"`
	Stock        int     `json:"stock"`
	FacilityID   string  `json:"facility_id"`
	FacilityName string  `json:"facility_name"`
}

// ProductView is the response projection of a product with its SKUs.
type ProductView struct {
	ProductID          string    `json:"product_id"`
	ProductName        string    `json:"product_name"`
	Brand              string    `json:"brand"`
	ProductDescription string    `json:"product_description"`
	Category           string    `json:"category"`
	MainImage          *string   `json:"main_image"`
	ProductHighlights  string    `json:"product_highlights"`
	HSNCode            string    `json:"hsn_code"`
	SKUs               []SKUView `json:"skus"`
}

// NewProductView projects a persisted product into its response shape.
func NewProductView(p *Product) ProductView {
	skus := make([]SKUView, 0, len(p.SKUs))
	for _, s := range p.SKUs {
		skus = append(skus, SKUView{
			SKUID:        s.SKUID,
			Size:         s.Size,
			Color:        s.Color,
			Price:        s.Price.InexactFloat64(),
			Stock:        s.Stock,
			FacilityID:   s.FacilityID,
			FacilityName: s.FacilityName,
		})
	}

	return ProductView{
		ProductID:          p.ProductID,
		ProductName:        p.ProductName,
		Brand:              p.Brand,
		ProductDescription: p.ProductDescription,
		Category:           p.Category,
		MainImage:          p.MainImage,
		ProductHighlights:  p.ProductHighlights,
		HSNCode:            p.HSNCode,
		SKUs:               skus,
	}
}

// ProductListResponse is the body of GET /products
type ProductListResponse struct {
	Products []ProductView `json:"products"`
}

// IngestResponse is the body of a successful POST /ingest
type IngestResponse struct {
	Message       string `json:"message"`
	IngestedCount int    `json:"ingested_count"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     Error  `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
