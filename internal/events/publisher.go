package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"catalog-sync-service/internal/models"
)

// Publisher emits catalog update events onto the CATALOG_EVENTS stream.
// It satisfies the dispatcher interface used by the batch runner.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *logrus.Entry
}

// NewPublisher connects to NATS and ensures the catalog stream exists.
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logrus.New()
	}
	nc, js, err := connect(natsURL, "catalog-sync-service-publisher", logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ensureStream(ctx, js); err != nil {
		logger.WithError(err).Warn("Failed to ensure catalog events stream (may already exist)")
	}

	return &Publisher{
		nc:     nc,
		js:     js,
		logger: logger.WithField("component", "catalog-events"),
	}, nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// DispatchAbstract publishes an abstract product update.
func (p *Publisher) DispatchAbstract(ctx context.Context, product *models.AbstractProduct) error {
	event := &AbstractEvent{
		EventType: SubjectAbstractUpdated,
		Timestamp: time.Now().UTC(),
		Product:   product,
	}
	return p.publish(ctx, SubjectAbstractUpdated, product.SKU, event)
}

// DispatchConcrete publishes a concrete product update.
func (p *Publisher) DispatchConcrete(ctx context.Context, product *models.ConcreteProduct) error {
	event := &ConcreteEvent{
		EventType: SubjectConcreteUpdated,
		Timestamp: time.Now().UTC(),
		Product:   product,
	}
	return p.publish(ctx, SubjectConcreteUpdated, product.SKU, event)
}

func (p *Publisher) publish(ctx context.Context, subject, sku string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog event: %w", err)
	}
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		p.logger.WithFields(logrus.Fields{
			"subject": subject,
			"sku":     sku,
		}).WithError(err).Error("Failed to publish catalog event")
		return err
	}
	p.logger.WithFields(logrus.Fields{
		"subject": subject,
		"sku":     sku,
	}).Info("Catalog event published")
	return nil
}
