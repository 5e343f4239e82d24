package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-sync-service/internal/models"
)

func newTestCache(t *testing.T) *AggregateCache {
	t.Helper()
	c := NewAggregateCache(10 * time.Millisecond)
	t.Cleanup(c.Close)
	return c
}

func abstract(sku string) *models.AbstractProduct {
	return &models.AbstractProduct{SKU: sku}
}

func concrete(sku, parent string) *models.ConcreteProduct {
	return &models.ConcreteProduct{SKU: sku, AbstractSKU: parent}
}

func TestCacheMergesBothSidesUnderOneKey(t *testing.T) {
	c := newTestCache(t)

	c.SaveConcrete("A1", concrete("C1", "A1"), time.Minute)
	c.SaveAbstract("A1", abstract("A1"), time.Minute)
	c.SaveConcrete("A1", concrete("C2", "A1"), time.Minute)

	require.NotNil(t, c.GetAbstract("A1"))
	concretes := c.GetConcretes("A1")
	require.Len(t, concretes, 2)
	assert.Equal(t, "C1", concretes[0].SKU)
	assert.Equal(t, "C2", concretes[1].SKU)
}

func TestCacheAbstractOverwrite(t *testing.T) {
	c := newTestCache(t)

	first := abstract("A1")
	first.CategoryKey = "old"
	updated := abstract("A1")
	updated.CategoryKey = "new"

	c.SaveAbstract("A1", first, time.Minute)
	c.SaveAbstract("A1", updated, time.Minute)

	assert.Equal(t, "new", c.GetAbstract("A1").CategoryKey)
}

func TestCacheConcreteRedeliveryReplacesInPlace(t *testing.T) {
	c := newTestCache(t)

	qty5, qty9 := 5, 9
	first := concrete("C1", "A1")
	first.Quantity = &qty5
	redelivered := concrete("C1", "A1")
	redelivered.Quantity = &qty9

	c.SaveConcrete("A1", first, time.Minute)
	c.SaveConcrete("A1", concrete("C2", "A1"), time.Minute)
	c.SaveConcrete("A1", redelivered, time.Minute)

	concretes := c.GetConcretes("A1")
	require.Len(t, concretes, 2)
	assert.Equal(t, "C1", concretes[0].SKU)
	assert.Equal(t, 9, *concretes[0].Quantity)
}

func TestCacheSlidingExpiry(t *testing.T) {
	c := newTestCache(t)

	c.SaveAbstract("A1", abstract("A1"), 50*time.Millisecond)

	// Each write pushes the deadline out again.
	for i := 0; i < 3; i++ {
		time.Sleep(30 * time.Millisecond)
		c.SaveConcrete("A1", concrete(fmt.Sprintf("C%d", i), "A1"), 50*time.Millisecond)
	}
	require.NotNil(t, c.GetAbstract("A1"))

	time.Sleep(80 * time.Millisecond)
	assert.Nil(t, c.GetAbstract("A1"))
	assert.Nil(t, c.GetConcretes("A1"))
}

func TestCacheJanitorEvictsExpiredEntries(t *testing.T) {
	c := newTestCache(t)

	c.SaveAbstract("A1", abstract("A1"), 20*time.Millisecond)
	c.SaveAbstract("A2", abstract("A2"), time.Minute)

	assert.Eventually(t, func() bool {
		return c.Len() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCacheClearRemovesBothSides(t *testing.T) {
	c := newTestCache(t)

	c.SaveAbstract("A1", abstract("A1"), time.Minute)
	c.SaveConcrete("A1", concrete("C1", "A1"), time.Minute)

	c.Clear("A1")

	assert.Nil(t, c.GetAbstract("A1"))
	assert.Nil(t, c.GetConcretes("A1"))
	assert.Equal(t, 0, c.Len())
}

func TestCacheConcurrentSaves(t *testing.T) {
	c := newTestCache(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.SaveAbstract("A1", abstract("A1"), time.Minute)
		}(i)
		go func(i int) {
			defer wg.Done()
			c.SaveConcrete("A1", concrete(fmt.Sprintf("C%d", i), "A1"), time.Minute)
		}(i)
	}
	wg.Wait()

	assert.NotNil(t, c.GetAbstract("A1"))
	assert.Len(t, c.GetConcretes("A1"), 50)
}
