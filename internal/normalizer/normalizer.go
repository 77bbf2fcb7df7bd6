package normalizer

import (
	"context"
	"errors"
	"fmt"

	"catalog-service/internal/images"
	"catalog-service/internal/models"
	"catalog-service/internal/spreadsheet"
	"github.com/sirupsen/logrus"
)

// NormalizationError aborts a batch because a value could not be coerced
// or an image reference could not be resolved.
type NormalizationError struct {
	Row int
	Err error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalization failed at row %d: %v", e.Row, e.Err)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err was caused by the shape of the upload
// (missing column or missing required value) rather than by its content.
func IsInputError(err error) bool {
	var colErr *MissingColumnsError
	if errors.As(err, &colErr) {
		return true
	}
	var fieldErr *FieldError
	return errors.As(err, &fieldErr) && errors.Is(fieldErr.Err, ErrMissingValue)
}

// ImageResolver resolves a main_image cell.
type ImageResolver interface {
	Resolve(ctx context.Context, ref spreadsheet.Cell) (images.Resolution, error)
}

// Normalizer groups flat SKU rows into product aggregates.
type Normalizer struct {
	resolver ImageResolver
	logger   *logrus.Entry
}

// NewNormalizer creates a new row normalizer
func NewNormalizer(resolver ImageResolver, logger *logrus.Entry) *Normalizer {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Normalizer{
		resolver: resolver,
		logger:   logger.WithField("component", "normalizer"),
	}
}

// Normalize converts the rows of a sheet into products in first-seen order
// of product_id. Product-level values come from the first row of each
// product; every row contributes one SKU. The first error aborts the batch.
func (n *Normalizer) Normalize(ctx context.Context, sheet *spreadsheet.Sheet) ([]*models.Product, error) {
	if err := ValidateHeader(sheet); err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Product)
	firstFields := make(map[string]productFields)
	products := make([]*models.Product, 0)

	for _, row := range sheet.Rows {
		if row.IsBlank() {
			continue
		}

		dec := &rowDecoder{row: row}
		fields, err := dec.product()
		if err != nil {
			return nil, n.classify(row.Number, err)
		}

		product, seen := byID[fields.ProductID]
		if !seen {
			product, err = n.newProduct(ctx, row.Number, fields)
			if err != nil {
				return nil, err
			}
			byID[fields.ProductID] = product
			firstFields[fields.ProductID] = fields
			products = append(products, product)
		} else if !sameProductFields(firstFields[fields.ProductID], fields) {
			n.logger.WithFields(logrus.Fields{
				"product_id": fields.ProductID,
				"row":        row.Number,
			}).Warn("Product fields differ from first occurrence, keeping first")
		}

		sku, err := dec.sku(product.ProductID)
		if err != nil {
			return nil, n.classify(row.Number, err)
		}
		product.SKUs = append(product.SKUs, sku)
	}

	n.logger.WithFields(logrus.Fields{
		"products": len(products),
		"rows":     len(sheet.Rows),
	}).Info("Processed products from Excel file")

	return products, nil
}

func (n *Normalizer) newProduct(ctx context.Context, rowNum int, fields productFields) (*models.Product, error) {
	res, err := n.resolver.Resolve(ctx, fields.MainImage)
	if err != nil {
		return nil, &NormalizationError{Row: rowNum, Err: err}
	}

	var mainImage *string
	switch res.Outcome {
	case images.Resolved:
		url := res.URL
		mainImage = &url
	case images.Unsupported:
		return nil, &NormalizationError{
			Row: rowNum,
			Err: &FieldError{Row: rowNum, Column: models.ColumnMainImage, Value: fields.MainImage.Value, Err: res.Cause},
		}
	}

	return &models.Product{
		ProductID:          fields.ProductID,
		ProductName:        fields.ProductName,
		Brand:              fields.Brand,
		ProductDescription: fields.ProductDescription,
		Category:           fields.Category,
		MainImage:          mainImage,
		ProductHighlights:  fields.ProductHighlights,
		HSNCode:            fields.HSNCode,
		SKUs:               make([]models.SKU, 0, 1),
	}, nil
}

func (n *Normalizer) classify(rowNum int, err error) error {
	if IsInputError(err) {
		return err
	}
	return &NormalizationError{Row: rowNum, Err: err}
}
