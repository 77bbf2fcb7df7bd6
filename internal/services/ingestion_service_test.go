package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"catalog-service/internal/images"
	"catalog-service/internal/models"
	"catalog-service/internal/normalizer"
	"catalog-service/internal/repository"
	"catalog-service/internal/spreadsheet"
	"catalog-service/internal/spreadsheet/xlsxtest"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// MockCatalogRepository is a mock implementation of CatalogRepositoryInterface
type MockCatalogRepository struct {
	mock.Mock
}

var _ repository.CatalogRepositoryInterface = (*MockCatalogRepository)(nil)

func (m *MockCatalogRepository) Begin(ctx context.Context) repository.Batch {
	args := m.Called(ctx)
	return args.Get(0).(repository.Batch)
}

func (m *MockCatalogRepository) ListProducts(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockCatalogRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// fakeBatch records staged records and fails Commit with commitErr.
type fakeBatch struct {
	commitErr  error
	products   []string
	skus       []string
	committed  bool
	rolledBack bool
}

func (b *fakeBatch) StageProduct(p *models.Product) error {
	b.products = append(b.products, p.ProductID)
	return nil
}

func (b *fakeBatch) StageSKU(s *models.SKU) error {
	b.skus = append(b.skus, s.SKUID)
	return nil
}

func (b *fakeBatch) Commit() error {
	if b.commitErr != nil {
		return b.commitErr
	}
	b.committed = true
	return nil
}

func (b *fakeBatch) Rollback() {
	b.rolledBack = true
}

type recordingPublisher struct {
	published [][]*models.Product
}

func (p *recordingPublisher) PublishProductsIngested(products []*models.Product) {
	p.published = append(p.published, products)
}

type recordingRecorder struct {
	results []string
}

func (r *recordingRecorder) ObserveIngestion(result string, _ time.Time, _, _ int) {
	r.results = append(r.results, result)
}

type noImageResolver struct{}

func (noImageResolver) Resolve(context.Context, spreadsheet.Cell) (images.Resolution, error) {
	return images.Resolution{Outcome: images.NoImage}, nil
}

// failingReader fails the test if the service reads from it.
type failingReader struct {
	t *testing.T
}

func (r failingReader) Read([]byte) (int, error) {
	r.t.Fatal("reader must not be consumed")
	return 0, io.EOF
}

type harness struct {
	service   *IngestionService
	repo      *MockCatalogRepository
	batch     *fakeBatch
	publisher *recordingPublisher
	recorder  *recordingRecorder
}

func newHarness(commitErr error) *harness {
	logger, _ := test.NewNullLogger()
	entry := logrus.NewEntry(logger)

	h := &harness{
		repo:      new(MockCatalogRepository),
		batch:     &fakeBatch{commitErr: commitErr},
		publisher: &recordingPublisher{},
		recorder:  &recordingRecorder{},
	}
	h.repo.On("Begin", mock.Anything).Return(h.batch).Maybe()

	h.service = NewIngestionService(h.repo, normalizer.NewNormalizer(noImageResolver{}, entry), IngestionServiceConfig{
		Publisher: h.publisher,
		Recorder:  h.recorder,
		Logger:    entry,
	})
	return h
}

func workbook(t *testing.T, rows ...[]any) io.Reader {
	all := append([][]any{xlsxtest.CatalogHeader()}, rows...)
	return bytes.NewReader(xlsxtest.Workbook(t, all...))
}

func TestIngestFile_Success(t *testing.T) {
	h := newHarness(nil)

	count, err := h.service.IngestFile(context.Background(), "catalog.xlsx", workbook(t,
		xlsxtest.CatalogRow("P1", "Tee", "", "S1", "M", 499, 10),
		xlsxtest.CatalogRow("P1", "Tee", "", "S2", "L", 499, 0),
		xlsxtest.CatalogRow("P2", "Hoodie", "", "S3", "L", 1299, 4),
	))

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"P1", "P2"}, h.batch.products)
	assert.Equal(t, []string{"S1", "S2", "S3"}, h.batch.skus)
	assert.True(t, h.batch.committed)
	require.Len(t, h.publisher.published, 1)
	assert.Len(t, h.publisher.published[0], 2)
	assert.Equal(t, []string{"success"}, h.recorder.results)
}

func TestIngestFile_UppercaseExtensionAccepted(t *testing.T) {
	h := newHarness(nil)

	count, err := h.service.IngestFile(context.Background(), "CATALOG.XLSX", workbook(t,
		xlsxtest.CatalogRow("P1", "Tee", "", "S1", "M", 499, 10),
	))

	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIngestFile_RejectsExtensionBeforeReading(t *testing.T) {
	for _, name := range []string{"catalog.csv", "catalog.xls", "catalog", "xlsx"} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(nil)

			_, err := h.service.IngestFile(context.Background(), name, failingReader{t: t})

			var inputErr *InputFormatError
			require.ErrorAs(t, err, &inputErr)
			assert.ErrorIs(t, err, ErrUnsupportedFileType)
			h.repo.AssertNotCalled(t, "Begin", mock.Anything)
		})
	}
}

func TestIngestFile_CorruptWorkbookIsInputError(t *testing.T) {
	h := newHarness(nil)

	_, err := h.service.IngestFile(context.Background(), "catalog.xlsx", bytes.NewReader([]byte("not a workbook")))

	assert.True(t, IsInputError(err))
	h.repo.AssertNotCalled(t, "Begin", mock.Anything)
}

func TestIngestFile_MissingRequiredValueIsInputError(t *testing.T) {
	h := newHarness(nil)

	_, err := h.service.IngestFile(context.Background(), "catalog.xlsx", workbook(t,
		xlsxtest.CatalogRow("P1", "Tee", "", "S1", "M", 499, nil),
	))

	var inputErr *InputFormatError
	require.ErrorAs(t, err, &inputErr)
	assert.ErrorIs(t, err, normalizer.ErrMissingValue)
	assert.Equal(t, []string{"input_error"}, h.recorder.results)
	h.repo.AssertNotCalled(t, "Begin", mock.Anything)
}

func TestIngestFile_NormalizationErrorPassesThrough(t *testing.T) {
	h := newHarness(nil)

	_, err := h.service.IngestFile(context.Background(), "catalog.xlsx", workbook(t,
		xlsxtest.CatalogRow("P1", "Tee", "", "S1", "M", "free", 1),
	))

	var normErr *normalizer.NormalizationError
	require.ErrorAs(t, err, &normErr)
	assert.False(t, IsInputError(err))
	assert.Empty(t, h.publisher.published)
}

func TestIngestFile_CommitFailureRollsBack(t *testing.T) {
	h := newHarness(errors.New("connection reset"))

	count, err := h.service.IngestFile(context.Background(), "catalog.xlsx", workbook(t,
		xlsxtest.CatalogRow("P1", "Tee", "", "S1", "M", 499, 10),
	))

	assert.Zero(t, count)
	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.False(t, persistErr.Duplicate)
	assert.True(t, h.batch.rolledBack)
	assert.False(t, h.batch.committed)
	assert.Empty(t, h.publisher.published)
	assert.Equal(t, []string{"persistence_error"}, h.recorder.results)
}

func TestIngest_DuplicateKeyFlagged(t *testing.T) {
	h := newHarness(fmt.Errorf("failed to insert products: %w", gorm.ErrDuplicatedKey))

	err := h.service.Ingest(context.Background(), []*models.Product{{
		ProductID: "P1",
		SKUs:      []models.SKU{{SKUID: "S1", ProductID: "P1"}},
	}})

	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.True(t, persistErr.Duplicate)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.True(t, h.batch.rolledBack)
}

func TestIngest_EmptyBatchCommits(t *testing.T) {
	h := newHarness(nil)

	err := h.service.Ingest(context.Background(), nil)

	require.NoError(t, err)
	assert.True(t, h.batch.committed)
	assert.Empty(t, h.publisher.published)
}
