package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-sync-service/internal/cache"
	"catalog-sync-service/internal/clients"
	"catalog-sync-service/internal/mapping"
	"catalog-sync-service/internal/models"
)

// fakeGraphQL records executed operations and serves canned responses.
type fakeGraphQL struct {
	mu              sync.Mutex
	productSetCalls int
	locationsCalls  int
	inventoryCalls  []string

	productSetDoc map[string]interface{}
	productSetErr error
	locationsErr  error
	inventoryErr  error
	delay         time.Duration
}

func (f *fakeGraphQL) Execute(_ context.Context, query string, variables map[string]interface{}) (map[string]interface{}, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.Contains(query, "productSet"):
		f.productSetCalls++
		if f.productSetErr != nil {
			return nil, f.productSetErr
		}
		if f.productSetDoc != nil {
			return f.productSetDoc, nil
		}
		return confirmedDoc(), nil

	case strings.Contains(query, "locations"):
		f.locationsCalls++
		if f.locationsErr != nil {
			return nil, f.locationsErr
		}
		return map[string]interface{}{
			"data": map[string]interface{}{
				"locations": map[string]interface{}{
					"nodes": []interface{}{
						map[string]interface{}{"id": "gid://shopify/Location/1", "name": "Main Warehouse"},
					},
				},
			},
		}, nil

	case strings.Contains(query, "inventoryItemUpdate"):
		id, _ := variables["id"].(string)
		f.inventoryCalls = append(f.inventoryCalls, id)
		if f.inventoryErr != nil {
			return nil, f.inventoryErr
		}
		return map[string]interface{}{
			"data": map[string]interface{}{
				"inventoryItemUpdate": map[string]interface{}{
					"userErrors": []interface{}{},
				},
			},
		}, nil
	}
	return map[string]interface{}{}, nil
}

func (f *fakeGraphQL) counts() (int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.productSetCalls, append([]string(nil), f.inventoryCalls...)
}

func confirmedDoc() map[string]interface{} {
	return map[string]interface{}{
		"data": map[string]interface{}{
			"productSet": map[string]interface{}{
				"product": map[string]interface{}{
					"id": "gid://shopify/Product/1",
					"variants": map[string]interface{}{
						"nodes": []interface{}{
							map[string]interface{}{
								"id":  "gid://shopify/ProductVariant/1",
								"sku": "C1",
								"inventoryItem": map[string]interface{}{
									"id": "gid://shopify/InventoryItem/1",
								},
							},
						},
					},
				},
				"userErrors": []interface{}{},
			},
		},
	}
}

func rejectedDoc() map[string]interface{} {
	return map[string]interface{}{
		"data": map[string]interface{}{
			"productSet": map[string]interface{}{
				"product": nil,
				"userErrors": []interface{}{
					map[string]interface{}{"field": "title", "message": "Title can't be blank"},
				},
			},
		},
	}
}

func newTestProcessor(t *testing.T, client clients.GraphQLClient) (*SyncProcessor, *cache.AggregateCache) {
	t.Helper()
	aggregateCache := cache.NewAggregateCache(time.Minute)
	t.Cleanup(aggregateCache.Close)
	engine := mapping.NewEngine(models.LocaleEN, models.LocaleDE, "ACME")
	processor := NewSyncProcessor(aggregateCache, engine, client, nil, "Main Warehouse", nil)
	return processor, aggregateCache
}

func seedCompleteAggregate(c *cache.AggregateCache, key string) {
	price := 19.99
	qty := 5
	c.SaveAbstract(key, &models.AbstractProduct{
		SKU:  key,
		Name: models.LocalizedText{models.LocaleEN: "Classic Shirt"},
	}, time.Minute)
	c.SaveConcrete(key, &models.ConcreteProduct{
		SKU:         "C1",
		AbstractSKU: key,
		GrossPrice:  &price,
		Quantity:    &qty,
	}, time.Minute)
}

func TestSynchronizeConfirmedClearsCache(t *testing.T) {
	client := &fakeGraphQL{}
	processor, aggregateCache := newTestProcessor(t, client)
	seedCompleteAggregate(aggregateCache, "A1")

	confirmed, err := processor.Synchronize(context.Background(), "A1")
	require.NoError(t, err)
	assert.True(t, confirmed)

	calls, inventory := client.counts()
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"gid://shopify/InventoryItem/1"}, inventory)
	assert.Nil(t, aggregateCache.GetAbstract("A1"))
	assert.Nil(t, aggregateCache.GetConcretes("A1"))
}

func TestSynchronizeIncompleteAggregateIsNoop(t *testing.T) {
	client := &fakeGraphQL{}
	processor, aggregateCache := newTestProcessor(t, client)

	// Concrete without a price: the aggregate is not yet dispatchable.
	qty := 5
	aggregateCache.SaveAbstract("A1", &models.AbstractProduct{SKU: "A1"}, time.Minute)
	aggregateCache.SaveConcrete("A1", &models.ConcreteProduct{
		SKU: "C1", AbstractSKU: "A1", Quantity: &qty,
	}, time.Minute)

	confirmed, err := processor.Synchronize(context.Background(), "A1")
	require.NoError(t, err)
	assert.False(t, confirmed)

	calls, _ := client.counts()
	assert.Equal(t, 0, calls)
	assert.NotNil(t, aggregateCache.GetAbstract("A1"))
}

func TestSynchronizeConcurrentTriggersDispatchOnce(t *testing.T) {
	client := &fakeGraphQL{delay: 30 * time.Millisecond}
	processor, aggregateCache := newTestProcessor(t, client)
	seedCompleteAggregate(aggregateCache, "A1")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = processor.Synchronize(context.Background(), "A1")
		}()
	}
	wg.Wait()

	calls, _ := client.counts()
	assert.Equal(t, 1, calls)
	assert.Nil(t, aggregateCache.GetAbstract("A1"))
}

func TestSynchronizeUserErrorsRejectKeepCache(t *testing.T) {
	client := &fakeGraphQL{productSetDoc: rejectedDoc()}
	processor, aggregateCache := newTestProcessor(t, client)
	seedCompleteAggregate(aggregateCache, "A1")

	confirmed, err := processor.Synchronize(context.Background(), "A1")
	assert.False(t, confirmed)

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, StateRejected, syncErr.State)
	assert.Contains(t, syncErr.Payload, "Title can't be blank")
	assert.NotNil(t, aggregateCache.GetAbstract("A1"))
}

func TestSynchronizeTopLevelErrorsReject(t *testing.T) {
	client := &fakeGraphQL{productSetDoc: map[string]interface{}{
		"errors": []interface{}{
			map[string]interface{}{"message": "Throttled"},
		},
	}}
	processor, aggregateCache := newTestProcessor(t, client)
	seedCompleteAggregate(aggregateCache, "A1")

	confirmed, err := processor.Synchronize(context.Background(), "A1")
	assert.False(t, confirmed)

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, StateRejected, syncErr.State)
	assert.NotNil(t, aggregateCache.GetAbstract("A1"))
}

func TestSynchronizeTransportErrorKeepsCache(t *testing.T) {
	client := &fakeGraphQL{
		productSetErr: &clients.TransportError{Op: "productSet", Err: context.DeadlineExceeded},
	}
	processor, aggregateCache := newTestProcessor(t, client)
	seedCompleteAggregate(aggregateCache, "A1")

	confirmed, err := processor.Synchronize(context.Background(), "A1")
	assert.False(t, confirmed)

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, StateTransportError, syncErr.State)
	assert.NotNil(t, aggregateCache.GetAbstract("A1"))

	// A later retry for the same key dispatches again.
	client.productSetErr = nil
	confirmed, err = processor.Synchronize(context.Background(), "A1")
	require.NoError(t, err)
	assert.True(t, confirmed)
	calls, _ := client.counts()
	assert.Equal(t, 2, calls)
	assert.Nil(t, aggregateCache.GetAbstract("A1"))
}

func TestSynchronizeDependentFailureStillConfirms(t *testing.T) {
	client := &fakeGraphQL{locationsErr: context.DeadlineExceeded}
	processor, aggregateCache := newTestProcessor(t, client)
	seedCompleteAggregate(aggregateCache, "A1")

	confirmed, err := processor.Synchronize(context.Background(), "A1")
	require.NoError(t, err)
	assert.True(t, confirmed)

	_, inventory := client.counts()
	assert.Empty(t, inventory)
	assert.Nil(t, aggregateCache.GetAbstract("A1"))
}

func TestSynchronizeInventoryRejectionStillConfirms(t *testing.T) {
	client := &fakeGraphQL{inventoryErr: context.DeadlineExceeded}
	processor, aggregateCache := newTestProcessor(t, client)
	seedCompleteAggregate(aggregateCache, "A1")

	confirmed, err := processor.Synchronize(context.Background(), "A1")
	require.NoError(t, err)
	assert.True(t, confirmed)

	assert.Nil(t, aggregateCache.GetAbstract("A1"))
}

func TestKeyGuardTryAcquire(t *testing.T) {
	guard := NewKeyGuard()

	release, ok := guard.TryAcquire("A1")
	require.True(t, ok)
	assert.Equal(t, 1, guard.Active())

	_, ok = guard.TryAcquire("A1")
	assert.False(t, ok)

	otherRelease, ok := guard.TryAcquire("A2")
	require.True(t, ok)
	otherRelease()

	release()
	assert.Equal(t, 0, guard.Active())

	_, ok = guard.TryAcquire("A1")
	assert.True(t, ok)
}
