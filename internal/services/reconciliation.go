package services

import (
	"context"
	"fmt"
	"time"

	"catalog-sync-service/internal/cache"
	"catalog-sync-service/internal/logging"
	"catalog-sync-service/internal/models"
)

// ReconciliationHandler merges incoming catalog events into the aggregate
// cache and triggers synchronization once an aggregate becomes complete.
// Events for the two halves of an aggregate arrive in any order.
type ReconciliationHandler struct {
	cache     *cache.AggregateCache
	processor *SyncProcessor
	ttl       time.Duration
	logger    logging.Logger
}

// NewReconciliationHandler creates a handler. ttl is the sliding window each
// cache write extends.
func NewReconciliationHandler(
	aggregateCache *cache.AggregateCache,
	processor *SyncProcessor,
	ttl time.Duration,
	logger logging.Logger,
) *ReconciliationHandler {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &ReconciliationHandler{
		cache:     aggregateCache,
		processor: processor,
		ttl:       ttl,
		logger:    logger,
	}
}

// HandleAbstract stores an abstract product update and attempts a sync.
func (h *ReconciliationHandler) HandleAbstract(ctx context.Context, product *models.AbstractProduct) error {
	if product == nil || product.SKU == "" {
		return fmt.Errorf("abstract update without sku")
	}
	h.cache.SaveAbstract(product.SKU, product, h.ttl)
	h.trySync(ctx, product.SKU)
	return nil
}

// HandleConcrete stores a concrete product update and attempts a sync.
func (h *ReconciliationHandler) HandleConcrete(ctx context.Context, product *models.ConcreteProduct) error {
	if product == nil || product.AbstractSKU == "" {
		return fmt.Errorf("concrete update without abstract sku")
	}
	h.cache.SaveConcrete(product.AbstractSKU, product, h.ttl)
	h.trySync(ctx, product.AbstractSKU)
	return nil
}

// trySync dispatches when the aggregate is complete. Sync failures are logged
// and swallowed: the cache entry survives for the next event or a retry.
func (h *ReconciliationHandler) trySync(ctx context.Context, key string) {
	abstract := h.cache.GetAbstract(key)
	concretes := h.cache.GetConcretes(key)
	if !AggregateComplete(abstract, concretes) {
		h.logger.Warning("aggregate not yet complete, waiting for remaining updates", logging.Fields{
			"sku":         key,
			"concretes":   len(concretes),
			"hasAbstract": abstract != nil,
		})
		return
	}
	if _, err := h.processor.Synchronize(ctx, key); err != nil {
		h.logger.Exception(err, "aggregate synchronization failed")
	}
}
