package services

import (
	"context"
	"sort"
	"time"

	"catalog-sync-service/internal/cache"
	"catalog-sync-service/internal/importer"
	"catalog-sync-service/internal/logging"
	"catalog-sync-service/internal/models"
)

// EventDispatcher publishes catalog updates to the message bus instead of
// feeding them into the local cache directly.
type EventDispatcher interface {
	DispatchAbstract(ctx context.Context, product *models.AbstractProduct) error
	DispatchConcrete(ctx context.Context, product *models.ConcreteProduct) error
}

// BatchSummary reports the outcome of a full catalog run.
type BatchSummary struct {
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Skipped   int               `json:"skipped"`
	Failures  map[string]string `json:"failures,omitempty"`
	Duration  time.Duration     `json:"-"`
}

// BatchRunner imports a catalog export directory, seeds the aggregate cache
// and synchronizes every aggregate. With a dispatcher set it publishes the
// imported records as events instead of syncing locally.
type BatchRunner struct {
	importer   *importer.CatalogImporter
	cache      *cache.AggregateCache
	processor  *SyncProcessor
	dispatcher EventDispatcher
	ttl        time.Duration
	logger     logging.Logger
}

// NewBatchRunner creates a runner. dispatcher may be nil for direct sync mode.
func NewBatchRunner(
	catalogImporter *importer.CatalogImporter,
	aggregateCache *cache.AggregateCache,
	processor *SyncProcessor,
	dispatcher EventDispatcher,
	ttl time.Duration,
	logger logging.Logger,
) *BatchRunner {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &BatchRunner{
		importer:   catalogImporter,
		cache:      aggregateCache,
		processor:  processor,
		dispatcher: dispatcher,
		ttl:        ttl,
		logger:     logger,
	}
}

// Run imports the export files under dir and synchronizes the result.
func (r *BatchRunner) Run(ctx context.Context, dir string) (*BatchSummary, error) {
	started := time.Now()

	tables, err := importer.LoadTableSet(dir, r.logger)
	if err != nil {
		return nil, err
	}
	abstracts, concretes, stats, err := r.importer.Import(tables)
	if err != nil {
		return nil, err
	}
	if err := importer.Validate(abstracts, concretes); err != nil {
		return nil, err
	}
	r.logger.Statistics(logging.Fields{
		"abstracts":   stats.AbstractProducts,
		"concretes":   stats.ConcreteProducts,
		"skippedRows": stats.SkippedRows,
	})

	if r.dispatcher != nil {
		summary, err := r.publish(ctx, abstracts, concretes)
		if summary != nil {
			summary.Duration = time.Since(started)
		}
		return summary, err
	}

	summary := r.synchronize(ctx, abstracts, concretes)
	summary.Duration = time.Since(started)
	return summary, nil
}

func (r *BatchRunner) synchronize(ctx context.Context, abstracts []*models.AbstractProduct, concretes []*models.ConcreteProduct) *BatchSummary {
	for _, abstract := range abstracts {
		r.cache.SaveAbstract(abstract.SKU, abstract, r.ttl)
	}
	for _, concrete := range concretes {
		r.cache.SaveConcrete(concrete.AbstractSKU, concrete, r.ttl)
	}

	summary := &BatchSummary{
		Total:    len(abstracts),
		Failures: make(map[string]string),
	}
	keys := make([]string, 0, len(abstracts))
	for _, abstract := range abstracts {
		keys = append(keys, abstract.SKU)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !AggregateComplete(r.cache.GetAbstract(key), r.cache.GetConcretes(key)) {
			summary.Skipped++
			r.logger.Warning("aggregate incomplete after import, skipping", logging.Fields{"sku": key})
			continue
		}
		confirmed, err := r.processor.Synchronize(ctx, key)
		if err != nil {
			summary.Failed++
			summary.Failures[key] = err.Error()
			continue
		}
		if !confirmed {
			summary.Skipped++
			r.logger.Warning("aggregate dispatch already in flight, skipping", logging.Fields{"sku": key})
			continue
		}
		summary.Succeeded++
	}
	return summary
}

func (r *BatchRunner) publish(ctx context.Context, abstracts []*models.AbstractProduct, concretes []*models.ConcreteProduct) (*BatchSummary, error) {
	summary := &BatchSummary{
		Total:    len(abstracts) + len(concretes),
		Failures: make(map[string]string),
	}
	for _, abstract := range abstracts {
		if err := r.dispatcher.DispatchAbstract(ctx, abstract); err != nil {
			summary.Failed++
			summary.Failures[abstract.SKU] = err.Error()
			continue
		}
		summary.Succeeded++
	}
	for _, concrete := range concretes {
		if err := r.dispatcher.DispatchConcrete(ctx, concrete); err != nil {
			summary.Failed++
			summary.Failures[concrete.SKU] = err.Error()
			continue
		}
		summary.Succeeded++
	}
	return summary, nil
}
