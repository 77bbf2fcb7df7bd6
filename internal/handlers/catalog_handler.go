package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"catalog-service/internal/models"
	"catalog-service/internal/services"
	"catalog-service/internal/spreadsheet"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DefaultMaxUploadBytes caps the multipart body of an ingestion request.
const DefaultMaxUploadBytes int64 = 32 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Ingester ingests an uploaded workbook
type Ingester interface {
	IngestFile(ctx context.Context, filename string, r io.Reader) (int, error)
}

// ProductLister lists the catalog
type ProductLister interface {
	ListProducts(ctx context.Context) ([]models.ProductView, error)
}

type CatalogHandler struct {
	ingester       Ingester
	catalog        ProductLister
	maxUploadBytes int64
	logger         *logrus.Entry
}

func NewCatalogHandler(ingester Ingester, catalog ProductLister, maxUploadBytes int64, logger *logrus.Entry) *CatalogHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &CatalogHandler{
		ingester:       ingester,
		catalog:        catalog,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.WithField("component", "catalog_handler"),
	}
}

// Ingest godoc
// @Summary Ingest catalog spreadsheet
// @Description Upload an .xlsx workbook of SKU rows; products and SKUs are stored atomically
// @Tags Catalog
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Catalog workbook (.xlsx)"
// @Success 200 {object} models.IngestResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 413 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /ingest [post]
func (h *CatalogHandler) Ingest(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "FILE_TOO_LARGE",
					Message: fmt.Sprintf("Upload exceeds the %d byte limit", h.maxUploadBytes),
				},
			})
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_REQUIRED",
				Message: "Please upload an Excel (.xlsx) file",
				Field:   "file",
			},
		})
		return
	}
	defer file.Close()

	// The batch is all-or-nothing, so a client disconnect must not abort it
	ctx := context.WithoutCancel(c.Request.Context())

	count, err := h.ingester.IngestFile(ctx, header.Filename, file)
	if err != nil {
		var inputErr *services.InputFormatError
		if errors.As(err, &inputErr) {
			h.logger.WithError(err).WithField("filename", header.Filename).Warn("Rejected ingestion upload")
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "INVALID_INPUT",
					Message: inputErr.Err.Error(),
				},
			})
			return
		}

		h.logger.WithError(err).WithField("filename", header.Filename).Error("Data ingestion failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INGESTION_FAILED",
				Message: "An error occurred during data ingestion",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.IngestResponse{
		Message:       "Data ingestion completed",
		IngestedCount: count,
	})
}

// GetProducts godoc
// @Summary List catalog products
// @Description Returns every product with its SKUs
// @Tags Catalog
// @Produce json
// @Success 200 {object} models.ProductListResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /products [get]
func (h *CatalogHandler) GetProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to retrieve products")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: "An error occurred while retrieving products",
			},
		})
		return
	}

	if products == nil {
		products = []models.ProductView{}
	}
	c.JSON(http.StatusOK, models.ProductListResponse{Products: products})
}

// GetImportTemplate godoc
// @Summary Download ingestion template
// @Description Returns the catalog column definitions as an .xlsx workbook or JSON
// @Tags Catalog
// @Produce json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "xlsx or json" default(xlsx)
// @Success 200 {object} models.ImportTemplate
// @Failure 500 {object} models.ErrorResponse
// @Router /ingest/template [get]
func (h *CatalogHandler) GetImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", string(models.ImportFormatXLSX))
	template := models.CatalogImportTemplate()

	if format == "json" {
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
		return
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteTemplate(&buf, template); err != nil {
		h.logger.WithError(err).Error("Failed to generate import template")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "TEMPLATE_FAILED",
				Message: "Failed to generate import template",
			},
		})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=catalog_import_template.xlsx")
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
