package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-service/internal/models"
	"github.com/Tesseract-Nexus/go-shared/cache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cache TTL constants
const (
	ProductListCacheTTL = 2 * time.Minute
	productListCacheKey = "products:list:all"
)

const (
	productInsertBatchSize = 100
	skuInsertBatchSize     = 500
)

// ErrBatchClosed is returned when a batch is used after Commit or Rollback.
var ErrBatchClosed = errors.New("batch already committed or rolled back")

// CatalogRepositoryInterface defines the persistence operations of the catalog
type CatalogRepositoryInterface interface {
	Begin(ctx context.Context) Batch
	ListProducts(ctx context.Context) ([]models.Product, error)
	Ping(ctx context.Context) error
}

// Batch is a unit of work. Staged records become visible only after Commit;
// after a failed Commit or a Rollback nothing has been written.
type Batch interface {
	StageProduct(product *models.Product) error
	StageSKU(sku *models.SKU) error
	Commit() error
	Rollback()
}

type CatalogRepository struct {
	db    *gorm.DB
	cache *cache.CacheLayer
}

func NewCatalogRepository(db *gorm.DB, redis *redis.Client) *CatalogRepository {
	repo := &CatalogRepository{db: db}

	if redis != nil {
		repo.cache = cache.NewCacheLayerFromClient(redis, productListCacheConfig())
	}

	return repo
}

// productListCacheConfig keeps the list in Redis only. An in-process layer
// would outlive the invalidation issued by another replica's ingest.
func productListCacheConfig() cache.CacheConfig {
	return cache.CacheConfig{
		L1Enabled:  false,
		DefaultTTL: ProductListCacheTTL,
		KeyPrefix:  "catalog:",
	}
}

// Begin opens a new batch bound to ctx
func (r *CatalogRepository) Begin(ctx context.Context) Batch {
	return &catalogBatch{repo: r, ctx: ctx}
}

// ListProducts returns every product with its SKUs eagerly loaded
func (r *CatalogRepository) ListProducts(ctx context.Context) ([]models.Product, error) {
	if r.cache != nil {
		var products []models.Product
		err := r.cache.GetOrSetJSON(ctx, productListCacheKey, &products, ProductListCacheTTL, func() (any, error) {
			return r.loadProducts(ctx)
		})
		if err != nil {
			return nil, err
		}
		return products, nil
	}

	return r.loadProducts(ctx)
}

func (r *CatalogRepository) loadProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Preload("SKUs").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	return products, nil
}

// Ping checks the database connection
func (r *CatalogRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *CatalogRepository) invalidateProductListCache(ctx context.Context) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Delete(ctx, productListCacheKey)
}

// catalogBatch buffers staged records and writes them in one transaction.
type catalogBatch struct {
	repo     *CatalogRepository
	ctx      context.Context
	products []*models.Product
	skus     []*models.SKU
	closed   bool
}

func (b *catalogBatch) StageProduct(product *models.Product) error {
	if b.closed {
		return ErrBatchClosed
	}
	b.products = append(b.products, product)
	return nil
}

func (b *catalogBatch) StageSKU(sku *models.SKU) error {
	if b.closed {
		return ErrBatchClosed
	}
	b.skus = append(b.skus, sku)
	return nil
}

func (b *catalogBatch) Commit() error {
	if b.closed {
		return ErrBatchClosed
	}
	b.closed = true

	err := b.repo.db.WithContext(b.ctx).Transaction(func(tx *gorm.DB) error {
		if len(b.products) > 0 {
			// SKUs are staged separately; do not cascade through the association
			if err := tx.Omit(clause.Associations).CreateInBatches(b.products, productInsertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert products: %w", err)
			}
		}
		if len(b.skus) > 0 {
			if err := tx.CreateInBatches(b.skus, skuInsertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert skus: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.repo.invalidateProductListCache(b.ctx)
	return nil
}

func (b *catalogBatch) Rollback() {
	b.closed = true
	b.products = nil
	b.skus = nil
}
