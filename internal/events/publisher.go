package events

import (
	"context"
	"fmt"
	"time"

	"catalog-service/internal/models"
	"github.com/Tesseract-Nexus/go-shared/events"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultNATSURL is the in-cluster NATS service
const DefaultNATSURL = "nats://nats.nats.svc.cluster.local:4222"

const publishTimeout = 10 * time.Second

// Publisher wraps the go-shared events publisher for catalog events
type Publisher struct {
	publisher *events.Publisher
	tenantID  string
	logger    *logrus.Entry
}

// NewPublisher creates a new catalog events publisher
func NewPublisher(natsURL, tenantID string, logger *logrus.Logger) (*Publisher, error) {
	if natsURL == "" {
		natsURL = DefaultNATSURL
	}

	config := events.DefaultPublisherConfig(natsURL)
	config.Name = "catalog-service"

	publisher, err := events.NewPublisher(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create events publisher: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := publisher.EnsureStream(ctx, events.StreamProducts, []string{"product.>"}); err != nil {
		logger.WithError(err).Warn("Failed to ensure products stream (may already exist)")
	}

	return &Publisher{
		publisher: publisher,
		tenantID:  tenantID,
		logger:    logger.WithField("component", "catalog-events"),
	}, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.publisher != nil {
		p.publisher.Close()
	}
}

// PublishProductsIngested publishes one product.created event per committed
// product. Publishing runs in the background and never fails the caller.
func (p *Publisher) PublishProductsIngested(products []*models.Product) {
	if len(products) == 0 {
		return
	}

	batch := make([]*events.ProductEvent, 0, len(products))
	for _, product := range products {
		batch = append(batch, p.buildProductEvent(events.ProductCreated, product))
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		failed := 0
		for _, event := range batch {
			if err := p.publisher.PublishProduct(pubCtx, event); err != nil {
				failed++
				p.logger.WithFields(logrus.Fields{
					"eventType": event.EventType,
					"productID": event.ProductID,
				}).WithError(err).Error("Failed to publish product event")
			}
		}

		p.logger.WithFields(logrus.Fields{
			"published": len(batch) - failed,
			"failed":    failed,
		}).Info("Product events published")
	}()
}

// buildProductEvent creates a ProductEvent from a catalog product
func (p *Publisher) buildProductEvent(eventType string, product *models.Product) *events.ProductEvent {
	event := events.NewProductEvent(eventType, p.tenantID)
	event.SourceID = uuid.New().String()
	event.ProductID = product.ProductID
	event.ProductName = product.ProductName
	event.CategoryID = product.Category
	event.ChangeType = "created"

	// The product-level SKU and price are taken from its first variant
	if len(product.SKUs) > 0 {
		event.SKU = product.SKUs[0].SKUID
		event.Price = product.SKUs[0].Price.InexactFloat64()
	}

	return event
}
