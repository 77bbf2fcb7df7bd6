package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"catalog-service/internal/metrics"
	"catalog-service/internal/models"
	"catalog-service/internal/normalizer"
	"catalog-service/internal/repository"
	"catalog-service/internal/spreadsheet"
	"github.com/sirupsen/logrus"
)

// Normalizer turns a parsed sheet into product aggregates
type Normalizer interface {
	Normalize(ctx context.Context, sheet *spreadsheet.Sheet) ([]*models.Product, error)
}

// EventPublisher announces committed products
type EventPublisher interface {
	PublishProductsIngested(products []*models.Product)
}

// IngestionRecorder records ingestion outcomes
type IngestionRecorder interface {
	ObserveIngestion(result string, started time.Time, products, skus int)
}

// IngestionService orchestrates spreadsheet ingestion
type IngestionService struct {
	repo       repository.CatalogRepositoryInterface
	normalizer Normalizer
	publisher  EventPublisher
	recorder   IngestionRecorder
	logger     *logrus.Entry
}

// IngestionServiceConfig holds the optional collaborators of the service
type IngestionServiceConfig struct {
	Publisher EventPublisher    // optional
	Recorder  IngestionRecorder // optional
	Logger    *logrus.Entry
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo repository.CatalogRepositoryInterface, norm Normalizer, config IngestionServiceConfig) *IngestionService {
	logger := config.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &IngestionService{
		repo:       repo,
		normalizer: norm,
		publisher:  config.Publisher,
		recorder:   config.Recorder,
		logger:     logger.WithField("component", "ingestion_service"),
	}
}

// IngestFile validates, parses, normalizes and persists an uploaded workbook.
// It returns the number of products committed. The extension is checked
// before any byte is read.
func (s *IngestionService) IngestFile(ctx context.Context, filename string, r io.Reader) (int, error) {
	started := time.Now()

	if !strings.EqualFold(filepath.Ext(filename), "."+string(models.ImportFormatXLSX)) {
		s.record(metrics.ResultInputError, started, nil)
		return 0, &InputFormatError{Err: ErrUnsupportedFileType}
	}

	sheet, err := spreadsheet.Read(r)
	if err != nil {
		s.record(metrics.ResultInputError, started, nil)
		return 0, &InputFormatError{Err: err}
	}

	products, err := s.normalizer.Normalize(ctx, sheet)
	if err != nil {
		if normalizer.IsInputError(err) {
			s.record(metrics.ResultInputError, started, nil)
			return 0, &InputFormatError{Err: err}
		}
		s.record(metrics.ResultNormalizeError, started, nil)
		return 0, err
	}

	if err := s.Ingest(ctx, products); err != nil {
		s.record(metrics.ResultPersistError, started, nil)
		return 0, err
	}

	s.record(metrics.ResultSuccess, started, products)
	s.logger.WithFields(logrus.Fields{
		"filename": filename,
		"products": len(products),
		"duration": time.Since(started).String(),
	}).Info("Data ingestion completed successfully")

	return len(products), nil
}

// Ingest persists products and their SKUs atomically. On any failure the
// batch is rolled back and a *PersistenceError is returned.
func (s *IngestionService) Ingest(ctx context.Context, products []*models.Product) error {
	batch := s.repo.Begin(ctx)

	for _, product := range products {
		if err := batch.StageProduct(product); err != nil {
			batch.Rollback()
			return newPersistenceError(err)
		}
		for i := range product.SKUs {
			if err := batch.StageSKU(&product.SKUs[i]); err != nil {
				batch.Rollback()
				return newPersistenceError(err)
			}
		}
	}

	if err := batch.Commit(); err != nil {
		batch.Rollback()
		perr := newPersistenceError(err)
		s.logger.WithError(err).WithField("duplicate", perr.Duplicate).Error("Failed to commit ingestion batch")
		return perr
	}

	if s.publisher != nil && len(products) > 0 {
		s.publisher.PublishProductsIngested(products)
	}
	return nil
}

func (s *IngestionService) record(result string, started time.Time, products []*models.Product) {
	if s.recorder == nil {
		return
	}
	skus := 0
	for _, p := range products {
		skus += len(p.SKUs)
	}
	s.recorder.ObserveIngestion(result, started, len(products), skus)
}

// IsInputError reports whether err should be reported to the client as a
// bad request.
func IsInputError(err error) bool {
	var inputErr *InputFormatError
	return errors.As(err, &inputErr)
}
