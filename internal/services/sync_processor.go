package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"catalog-sync-service/internal/cache"
	"catalog-sync-service/internal/clients"
	"catalog-sync-service/internal/logging"
	"catalog-sync-service/internal/mapping"
	"catalog-sync-service/internal/models"
	"catalog-sync-service/internal/repository"
)

const productSetMutation = `
mutation productSet($input: ProductSetInput!) {
  productSet(input: $input) {
    product {
      id
      variants(first: 100) {
        nodes {
          id
          sku
          inventoryItem {
            id
          }
        }
      }
    }
    userErrors {
      field
      message
    }
  }
}`

const locationsQuery = `
query locations {
  locations(first: 50) {
    nodes {
      id
      name
    }
  }
}`

const inventoryItemUpdateMutation = `
mutation inventoryItemUpdate($id: ID!, $input: InventoryItemInput!) {
  inventoryItemUpdate(id: $id, input: $input) {
    inventoryItem {
      id
      tracked
    }
    userErrors {
      field
      message
    }
  }
}`

// SyncProcessor pushes complete product aggregates to the commerce platform.
// Dispatches are serialized per aggregate key: while one synchronization for a
// key is running, further triggers for the same key return without effect.
type SyncProcessor struct {
	cache  *cache.AggregateCache
	engine *mapping.Engine
	client clients.GraphQLClient
	logger logging.Logger
	repo   *repository.SyncRepository
	guard  *KeyGuard

	locationName string

	locationMu sync.Mutex
	locationID string
}

// NewSyncProcessor creates a processor. repo may be nil to disable auditing.
func NewSyncProcessor(
	aggregateCache *cache.AggregateCache,
	engine *mapping.Engine,
	client clients.GraphQLClient,
	repo *repository.SyncRepository,
	locationName string,
	logger logging.Logger,
) *SyncProcessor {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &SyncProcessor{
		cache:        aggregateCache,
		engine:       engine,
		client:       client,
		logger:       logger,
		repo:         repo,
		guard:        NewKeyGuard(),
		locationName: locationName,
	}
}

// AggregateComplete reports whether the aggregate can produce a valid product:
// an abstract, at least one concrete, at least one price and one stock signal.
func AggregateComplete(abstract *models.AbstractProduct, concretes []*models.ConcreteProduct) bool {
	if abstract == nil || len(concretes) == 0 {
		return false
	}
	hasPrice := false
	hasStock := false
	for _, c := range concretes {
		if c.GrossPrice != nil {
			hasPrice = true
		}
		if c.HasStockInfo() {
			hasStock = true
		}
	}
	return hasPrice && hasStock
}

// Synchronize maps the cached aggregate for key and dispatches it upstream.
// The returned bool reports a confirmed dispatch; it is false without error
// when the aggregate is still incomplete or a dispatch for the same key is
// already in flight. The cache entry is cleared only after the platform
// confirms the write.
func (p *SyncProcessor) Synchronize(ctx context.Context, key string) (bool, error) {
	release, acquired := p.guard.TryAcquire(key)
	if !acquired {
		return false, nil
	}
	defer release()

	abstract := p.cache.GetAbstract(key)
	concretes := p.cache.GetConcretes(key)
	if !AggregateComplete(abstract, concretes) {
		return false, nil
	}

	started := time.Now()

	product, err := p.engine.Map(abstract, concretes)
	if err != nil {
		syncErr := &SyncError{State: StateMappingFailed, Key: key, Err: err}
		p.logger.Exception(syncErr, "aggregate mapping failed")
		p.record(ctx, key, StateMappingFailed, nil, err.Error(), started)
		return false, syncErr
	}

	variables, err := productSetVariables(product)
	if err != nil {
		syncErr := &SyncError{State: StateMappingFailed, Key: key, Err: err}
		p.logger.Exception(syncErr, "failed to encode product input")
		p.record(ctx, key, StateMappingFailed, nil, err.Error(), started)
		return false, syncErr
	}

	doc, err := p.client.Execute(ctx, productSetMutation, variables)
	if err != nil {
		syncErr := &SyncError{State: StateTransportError, Key: key, Err: err}
		p.logger.Exception(syncErr, "product dispatch failed in transport")
		p.record(ctx, key, StateTransportError, nil, err.Error(), started)
		return false, syncErr
	}

	if payload, rejected := rejectionPayload(doc, "productSet"); rejected {
		syncErr := &SyncError{State: StateRejected, Key: key, Payload: payload}
		p.logger.Error("product rejected by platform", logging.Fields{
			"sku":    key,
			"errors": payload,
		})
		p.record(ctx, key, StateRejected, nil, payload, started)
		return false, syncErr
	}

	productID, inventoryItemIDs := dispatchedProduct(doc)

	// Dependent calls run after the product write is accepted. Their
	// failures are logged and never undo the confirmed state.
	p.activateInventoryTracking(ctx, key, inventoryItemIDs)

	p.cache.Clear(key)
	p.logger.Success("product synchronized", logging.Fields{
		"sku":       key,
		"productId": productID,
		"variants":  len(concretes),
		"ms":        time.Since(started).Milliseconds(),
	})
	p.record(ctx, key, StateConfirmed, &productID, "", started)
	return true, nil
}

func (p *SyncProcessor) activateInventoryTracking(ctx context.Context, key string, inventoryItemIDs []string) {
	if len(inventoryItemIDs) == 0 {
		return
	}
	if _, err := p.resolveLocation(ctx); err != nil {
		p.logger.Warning("stock location not resolved, skipping inventory activation", logging.Fields{
			"sku":      key,
			"location": p.locationName,
			"error":    err.Error(),
		})
		return
	}
	for _, itemID := range inventoryItemIDs {
		doc, err := p.client.Execute(ctx, inventoryItemUpdateMutation, map[string]interface{}{
			"id":    itemID,
			"input": map[string]interface{}{"tracked": true},
		})
		if err != nil {
			p.logger.Warning("inventory tracking activation failed", logging.Fields{
				"sku":             key,
				"inventoryItemId": itemID,
				"error":           err.Error(),
			})
			continue
		}
		if payload, rejected := rejectionPayload(doc, "inventoryItemUpdate"); rejected {
			p.logger.Warning("inventory tracking activation rejected", logging.Fields{
				"sku":             key,
				"inventoryItemId": itemID,
				"errors":          payload,
			})
		}
	}
}

// resolveLocation looks up the configured stock location by name once and
// caches the resulting id for the lifetime of the processor.
func (p *SyncProcessor) resolveLocation(ctx context.Context) (string, error) {
	p.locationMu.Lock()
	defer p.locationMu.Unlock()
	if p.locationID != "" {
		return p.locationID, nil
	}
	if p.locationName == "" {
		return "", fmt.Errorf("no stock location configured")
	}
	doc, err := p.client.Execute(ctx, locationsQuery, nil)
	if err != nil {
		return "", err
	}
	data := getMap(doc, "data")
	for _, node := range getSlice(getMap(data, "locations"), "nodes") {
		location, ok := node.(map[string]interface{})
		if !ok {
			continue
		}
		if getString(location, "name") == p.locationName {
			p.locationID = getString(location, "id")
			return p.locationID, nil
		}
	}
	return "", fmt.Errorf("location %q not found", p.locationName)
}

func (p *SyncProcessor) record(ctx context.Context, key string, state SyncState, externalID *string, errPayload string, started time.Time) {
	if p.repo == nil {
		return
	}
	attempt := &repository.SyncAttempt{
		SKU:        key,
		State:      string(state),
		ExternalID: externalID,
		DurationMS: time.Since(started).Milliseconds(),
	}
	if errPayload != "" {
		attempt.ErrorPayload = &errPayload
	}
	if err := p.repo.RecordAttempt(ctx, attempt); err != nil {
		p.logger.Warning("failed to record sync attempt", logging.Fields{
			"sku":   key,
			"error": err.Error(),
		})
	}
}

// productSetVariables converts the typed product input into the generic
// variable map the GraphQL client expects.
func productSetVariables(product *clients.ProductInput) (map[string]interface{}, error) {
	raw, err := json.Marshal(product)
	if err != nil {
		return nil, err
	}
	var input map[string]interface{}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, err
	}
	return map[string]interface{}{"input": input}, nil
}

// rejectionPayload classifies a GraphQL response document. A response is a
// rejection when the top-level errors array is non-empty or the named
// mutation's userErrors array is non-empty.
func rejectionPayload(doc map[string]interface{}, mutation string) (string, bool) {
	if errs, ok := doc["errors"].([]interface{}); ok && len(errs) > 0 {
		return serializeErrors(errs), true
	}
	data := getMap(doc, "data")
	result := getMap(data, mutation)
	if userErrors, ok := result["userErrors"].([]interface{}); ok && len(userErrors) > 0 {
		return serializeErrors(userErrors), true
	}
	return "", false
}

func serializeErrors(errs []interface{}) string {
	raw, err := json.Marshal(errs)
	if err != nil {
		return fmt.Sprintf("%v", errs)
	}
	return string(raw)
}

// dispatchedProduct extracts the product id and the inventory item ids of the
// created variants from a confirmed productSet response.
func dispatchedProduct(doc map[string]interface{}) (string, []string) {
	product := getMap(getMap(getMap(doc, "data"), "productSet"), "product")
	productID := getString(product, "id")
	var itemIDs []string
	for _, node := range getSlice(getMap(product, "variants"), "nodes") {
		variant, ok := node.(map[string]interface{})
		if !ok {
			continue
		}
		if id := getString(getMap(variant, "inventoryItem"), "id"); id != "" {
			itemIDs = append(itemIDs, id)
		}
	}
	return productID, itemIDs
}

func getMap(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	value, _ := m[key].(map[string]interface{})
	return value
}

func getSlice(m map[string]interface{}, key string) []interface{} {
	if m == nil {
		return nil
	}
	value, _ := m[key].([]interface{})
	return value
}

func getString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	value, _ := m[key].(string)
	return value
}
