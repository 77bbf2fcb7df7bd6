package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"catalog-service/internal/models"
	"catalog-service/internal/normalizer"
	"catalog-service/internal/services"
	"catalog-service/internal/spreadsheet"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockIngester is a mock implementation of Ingester
type MockIngester struct {
	mock.Mock
}

func (m *MockIngester) IngestFile(ctx context.Context, filename string, r io.Reader) (int, error) {
	args := m.Called(ctx, filename, r)
	return args.Int(0), args.Error(1)
}

// MockProductLister is a mock implementation of ProductLister
type MockProductLister struct {
	mock.Mock
}

func (m *MockProductLister) ListProducts(ctx context.Context) ([]models.ProductView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProductView), args.Error(1)
}

type mockPinger struct {
	err error
}

func (p mockPinger) Ping(context.Context) error {
	return p.err
}

func setupRouter(ingester Ingester, lister ProductLister, maxUpload int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()

	h := NewCatalogHandler(ingester, lister, maxUpload, logrus.NewEntry(logger))
	router := gin.New()
	api := router.Group("/api/v1")
	api.POST("/ingest", h.Ingest)
	api.GET("/products", h.GetProducts)
	api.GET("/ingest/template", h.GetImportTemplate)
	return router
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func postIngest(t *testing.T, router *gin.Engine, field, filename string) *httptest.ResponseRecorder {
	body, contentType := multipartUpload(t, field, filename, []byte("workbook bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestIngest_Success(t *testing.T) {
	ingester := new(MockIngester)
	ingester.On("IngestFile", mock.Anything, "catalog.xlsx", mock.Anything).Return(2, nil)

	w := postIngest(t, setupRouter(ingester, nil, 0), "file", "catalog.xlsx")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Data ingestion completed", resp.Message)
	assert.Equal(t, 2, resp.IngestedCount)
	ingester.AssertExpectations(t)
}

func TestIngest_ContextSurvivesClientCancel(t *testing.T) {
	ingester := new(MockIngester)
	ingester.On("IngestFile", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), "catalog.xlsx", mock.Anything).Return(1, nil)

	router := setupRouter(ingester, nil, 0)
	body, contentType := multipartUpload(t, "file", "catalog.xlsx", []byte("x"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", body).WithContext(ctx)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	ingester.AssertExpectations(t)
}

func TestIngest_MissingFile(t *testing.T) {
	ingester := new(MockIngester)

	w := postIngest(t, setupRouter(ingester, nil, 0), "upload", "catalog.xlsx")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "FILE_REQUIRED", resp.Error.Code)
	ingester.AssertNotCalled(t, "IngestFile", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngest_FileTooLarge(t *testing.T) {
	ingester := new(MockIngester)
	router := setupRouter(ingester, nil, 1024)

	body, contentType := multipartUpload(t, "file", "catalog.xlsx", bytes.Repeat([]byte("x"), 4096))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	resp := decodeError(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "FILE_TOO_LARGE", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "1024")
	ingester.AssertNotCalled(t, "IngestFile", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngest_FileWithinLimit(t *testing.T) {
	ingester := new(MockIngester)
	ingester.On("IngestFile", mock.Anything, "catalog.xlsx", mock.Anything).Return(1, nil)
	router := setupRouter(ingester, nil, 1024)

	w := postIngest(t, router, "file", "catalog.xlsx")

	assert.Equal(t, http.StatusOK, w.Code)
	ingester.AssertExpectations(t)
}

func TestIngest_InputFormatErrorIsBadRequest(t *testing.T) {
	ingester := new(MockIngester)
	ingester.On("IngestFile", mock.Anything, "catalog.csv", mock.Anything).
		Return(0, &services.InputFormatError{Err: services.ErrUnsupportedFileType})

	w := postIngest(t, setupRouter(ingester, nil, 0), "file", "catalog.csv")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	assert.Equal(t, services.ErrUnsupportedFileType.Error(), resp.Error.Message)
}

func TestIngest_ServerErrorsAreGeneric(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"normalization", &normalizer.NormalizationError{Row: 7, Err: errors.New("price: value has the wrong type")}},
		{"persistence", &services.PersistenceError{Err: errors.New("duplicate key value violates unique constraint \"skus_pkey\"")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingester := new(MockIngester)
			ingester.On("IngestFile", mock.Anything, mock.Anything, mock.Anything).Return(0, tt.err)

			w := postIngest(t, setupRouter(ingester, nil, 0), "file", "catalog.xlsx")

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, "An error occurred during data ingestion", resp.Error.Message)
			assert.NotContains(t, w.Body.String(), "skus_pkey")
			assert.NotContains(t, w.Body.String(), "row")
		})
	}
}

func TestGetProducts_Success(t *testing.T) {
	image := "https://bucket.s3.amazonaws.com/x.jpg"
	lister := new(MockProductLister)
	lister.On("ListProducts", mock.Anything).Return([]models.ProductView{
		{
			ProductID: "P1",
			MainImage: &image,
			SKUs: []models.SKUView{
				{SKUID: "S1", Price: 499, Stock: 10},
				{SKUID: "S2", Price: 499, Stock: 0},
			},
		},
	}, nil)

	router := setupRouter(nil, lister, 0)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string][]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body["products"], 1)
	product := body["products"][0]
	assert.Equal(t, "P1", product["product_id"])
	assert.Equal(t, image, product["main_image"])
	skus := product["skus"].([]any)
	require.Len(t, skus, 2)
	assert.Equal(t, 499.0, skus[0].(map[string]any)["price"])
}

func TestGetProducts_EmptyCatalog(t *testing.T) {
	lister := new(MockProductLister)
	lister.On("ListProducts", mock.Anything).Return(nil, nil)

	router := setupRouter(nil, lister, 0)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"products":[]}`, w.Body.String())
}

func TestGetProducts_Error(t *testing.T) {
	lister := new(MockProductLister)
	lister.On("ListProducts", mock.Anything).Return(nil, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	router := setupRouter(nil, lister, 0)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "An error occurred while retrieving products", resp.Error.Message)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestGetImportTemplate_XLSX(t *testing.T) {
	router := setupRouter(nil, nil, 0)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ingest/template", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))

	sheet, err := spreadsheet.Read(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.True(t, sheet.HasColumn(models.ColumnProductID))
	assert.True(t, sheet.HasColumn(models.ColumnMainImage))
	assert.Empty(t, sheet.Rows)
}

func TestGetImportTemplate_JSON(t *testing.T) {
	router := setupRouter(nil, nil, 0)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ingest/template?format=json", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Success  bool                  `json:"success"`
		Template models.ImportTemplate `json:"template"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.Template.Columns, 15)
}

func TestReadinessCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, tc := range []struct {
		name string
		err  error
		code int
	}{
		{"ready", nil, http.StatusOK},
		{"database down", errors.New("refused"), http.StatusServiceUnavailable},
	} {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/ready", NewHealthHandler(mockPinger{err: tc.err}).ReadinessCheck)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tc.code, w.Code)
		})
	}
}
