// Package importer turns a set of related flat catalog exports into typed
// abstract and concrete product aggregates.
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"catalog-sync-service/internal/logging"
	"catalog-sync-service/internal/models"
)

// Required input file names. All must be present simultaneously per run.
const (
	FileAbstract = "product_abstract.csv"
	FileConcrete = "product_concrete.csv"
	FilePrice    = "product_price.csv"
	FileStock    = "product_stock.csv"
	FileImage    = "product_image.csv"

	// FileLabel is optional; label associations are skipped when absent.
	FileLabel = "product_label.csv"
)

// Price type discriminators in the price table.
const (
	PriceTypeDefault  = "DEFAULT"
	PriceTypeOriginal = "ORIGINAL"
)

// attributeColorKey is the management attribute whose values accumulate per
// abstract SKU across sibling rows of one product family.
const attributeColorKey = "color"

// requiredColumns maps each table to the columns its joins depend on. A
// required column missing from the header is a fatal SchemaError.
var requiredColumns = map[string][]string{
	FileAbstract: {"abstract_sku", "name." + models.LocaleEN},
	FileConcrete: {"abstract_sku", "concrete_sku", "name." + models.LocaleEN},
	FilePrice:    {"abstract_sku", "concrete_sku", "price_type", "value_gross"},
	FileStock:    {"sku", "quantity"},
	FileImage:    {"abstract_sku", "concrete_sku", "external_url_large"},
}

// TableSet holds the parsed input tables for one import run.
type TableSet struct {
	Abstract *Table
	Concrete *Table
	Price    *Table
	Stock    *Table
	Image    *Table
	Label    *Table // may be nil
}

// ImportStats summarizes one import run.
type ImportStats struct {
	AbstractProducts int `json:"abstractProducts"`
	ConcreteProducts int `json:"concreteProducts"`
	SkippedRows      int `json:"skippedRows"`
}

// LoadTableSet loads all catalog tables from dir. Every required file must be
// present; otherwise a MissingInputError naming each absent file is returned
// before any table is parsed.
func LoadTableSet(dir string, logger logging.Logger) (*TableSet, error) {
	required := []string{FileAbstract, FileConcrete, FilePrice, FileStock, FileImage}

	var missing []string
	for _, name := range required {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingInputError{Missing: missing}
	}

	ts := &TableSet{}
	targets := map[string]**Table{
		FileAbstract: &ts.Abstract,
		FileConcrete: &ts.Concrete,
		FilePrice:    &ts.Price,
		FileStock:    &ts.Stock,
		FileImage:    &ts.Image,
	}
	for _, name := range required {
		table, err := LoadTable(filepath.Join(dir, name), logger)
		if err != nil {
			return nil, err
		}
		*targets[name] = table
	}

	if _, err := os.Stat(filepath.Join(dir, FileLabel)); err == nil {
		table, err := LoadTable(filepath.Join(dir, FileLabel), logger)
		if err != nil {
			return nil, err
		}
		ts.Label = table
	}

	return ts, nil
}

// CatalogImporter joins the flat tables into product aggregates.
type CatalogImporter struct {
	logger logging.Logger
}

// NewCatalogImporter creates an importer. A nil logger disables warnings.
func NewCatalogImporter(logger logging.Logger) *CatalogImporter {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &CatalogImporter{logger: logger}
}

// Import produces the abstract and concrete product collections from a table
// set. Schema validation runs first; joins use pre-built hash indices.
func (imp *CatalogImporter) Import(ts *TableSet) ([]*models.AbstractProduct, []*models.ConcreteProduct, *ImportStats, error) {
	if err := checkSchemas(ts); err != nil {
		return nil, nil, nil, err
	}

	stats := &ImportStats{
		SkippedRows: ts.Abstract.SkippedRows + ts.Concrete.SkippedRows +
			ts.Price.SkippedRows + ts.Stock.SkippedRows + ts.Image.SkippedRows,
	}

	abstracts, alias := imp.importAbstracts(ts.Abstract)
	imp.attachLabels(abstracts, ts.Label)

	concretes := imp.importConcretes(ts, abstracts, alias, stats)

	stats.AbstractProducts = len(abstracts)
	stats.ConcreteProducts = len(concretes)
	imp.logger.Statistics(logging.Fields{
		"abstractProducts": stats.AbstractProducts,
		"concreteProducts": stats.ConcreteProducts,
		"skippedRows":      stats.SkippedRows,
	})

	return abstracts, concretes, stats, nil
}

func checkSchemas(ts *TableSet) error {
	tables := map[string]*Table{
		FileAbstract: ts.Abstract,
		FileConcrete: ts.Concrete,
		FilePrice:    ts.Price,
		FileStock:    ts.Stock,
		FileImage:    ts.Image,
	}
	for name, table := range tables {
		if table == nil {
			return &MissingInputError{Missing: []string{name}}
		}
		for _, col := range requiredColumns[name] {
			if !table.HasColumn(col) {
				return &SchemaError{Table: name, Column: col}
			}
		}
	}
	return nil
}

// importAbstracts groups source rows by product name. The first row of a
// group establishes the AbstractProduct; later rows contribute only to the
// management attribute map. The color attribute accumulates per contributing
// abstract SKU; other attribute keys overwrite. The returned alias map
// resolves every source abstract SKU to its group's established SKU.
func (imp *CatalogImporter) importAbstracts(table *Table) ([]*models.AbstractProduct, map[string]string) {
	var products []*models.AbstractProduct
	byName := make(map[string]*models.AbstractProduct)
	alias := make(map[string]string)

	for _, row := range table.Rows {
		name := row["name."+models.LocaleEN]
		sku := row["abstract_sku"]

		product, seen := byName[name]
		if !seen {
			product = &models.AbstractProduct{
				SKU:         sku,
				Name:        localized(row, "name"),
				Description: localized(row, "description"),
				MetaTitle:   localized(row, "meta_title"),
				CategoryKey: row["category_key"],
				TaxSetName:  row["tax_set_name"],
				Attributes:  models.NewAttributeSet(),
			}
			byName[name] = product
			products = append(products, product)
		}
		alias[sku] = product.SKU

		for _, pair := range attributePairs(row, table.Headers) {
			if pair.value == "" {
				continue
			}
			if pair.key == attributeColorKey {
				if existing, ok := product.Attributes.Get(pair.key); ok {
					existing.Append(sku, pair.value)
					product.Attributes.Set(pair.key, existing)
				} else {
					product.Attributes.Set(pair.key, models.PerVariantValue(sku, pair.value))
				}
				continue
			}
			product.Attributes.Set(pair.key, models.ScalarValue(pair.value))
		}
	}

	return products, alias
}

func (imp *CatalogImporter) attachLabels(products []*models.AbstractProduct, table *Table) {
	if table == nil {
		return
	}
	labelIdx := NewJoinIndex(table.Rows, "abstract_sku")
	for _, product := range products {
		for _, row := range labelIdx.buckets[bucketKey([]string{product.SKU})] {
			if label := row["label_name"]; label != "" {
				product.Labels = append(product.Labels, label)
			}
		}
	}
}

// importConcretes builds one ConcreteProduct per source row, resolving stock,
// price, and image through hash indices with the concrete-to-abstract
// fallback rules.
func (imp *CatalogImporter) importConcretes(ts *TableSet, abstracts []*models.AbstractProduct, alias map[string]string, stats *ImportStats) []*models.ConcreteProduct {
	stockIdx := NewJoinIndex(ts.Stock.Rows, "sku")
	priceByConcrete := NewJoinIndex(ts.Price.Rows, "concrete_sku")
	priceByAbstract := NewJoinIndex(ts.Price.Rows, "abstract_sku")
	imageByConcrete := NewJoinIndex(ts.Image.Rows, "concrete_sku")
	imageByAbstract := NewJoinIndex(ts.Image.Rows, "abstract_sku")

	var concretes []*models.ConcreteProduct
	for _, row := range ts.Concrete.Rows {
		sku := row["concrete_sku"]
		rawAbstract := row["abstract_sku"]

		parent, ok := alias[rawAbstract]
		if !ok {
			stats.SkippedRows++
			imp.logger.Warning("concrete row references unknown abstract product", logging.Fields{
				"concreteSku": sku,
				"abstractSku": rawAbstract,
			})
			continue
		}

		concrete := &models.ConcreteProduct{
			SKU:         sku,
			AbstractSKU: parent,
			Name:        localized(row, "name"),
			Description: localized(row, "description"),
			Searchable:  searchableFlags(row),
			Options:     attributeMap(row, ts.Concrete.Headers),
		}

		// Stock: concrete SKU first, abstract SKU as fallback.
		stockRow, ok := stockIdx.First(sku)
		if !ok {
			stockRow, ok = stockIdx.First(rawAbstract)
		}
		if ok {
			concrete.Quantity = parseIntPtr(stockRow["quantity"])
			concrete.NeverOutOfStock = parseBool(stockRow["is_never_out_of_stock"])
		}

		concrete.GrossPrice, concrete.Currency = imp.resolvePrice(priceByConcrete, priceByAbstract, sku, rawAbstract, PriceTypeDefault)
		if compareAt, _ := imp.resolvePrice(priceByConcrete, priceByAbstract, sku, rawAbstract, PriceTypeOriginal); compareAt != nil {
			concrete.CompareAtPrice = compareAt
		}

		concrete.ImageURL = resolveImage(imageByConcrete, imageByAbstract, sku, rawAbstract)

		concretes = append(concretes, concrete)
	}

	return concretes
}

// resolvePrice finds a price of the given type, preferring a concrete-level
// row and falling back to an abstract-level row (one without a concrete SKU).
func (imp *CatalogImporter) resolvePrice(byConcrete, byAbstract *JoinIndex, sku, abstractSKU, priceType string) (*float64, string) {
	matchType := func(r Record) bool { return priceTypeOf(r) == priceType }

	row, ok := byConcrete.FirstWhere([]string{sku}, matchType)
	if !ok {
		row, ok = byAbstract.FirstWhere([]string{abstractSKU}, func(r Record) bool {
			return r["concrete_sku"] == "" && matchType(r)
		})
	}
	if !ok {
		return nil, ""
	}

	price := parseFloatPtr(row["value_gross"])
	if price == nil {
		imp.logger.Warning("unparseable price value", logging.Fields{
			"sku":   sku,
			"value": row["value_gross"],
		})
		return nil, ""
	}
	return price, row["currency"]
}

func resolveImage(byConcrete, byAbstract *JoinIndex, sku, abstractSKU string) string {
	if row, ok := byConcrete.First(sku); ok {
		return row["external_url_large"]
	}
	row, ok := byAbstract.FirstWhere([]string{abstractSKU}, func(r Record) bool {
		return r["concrete_sku"] == ""
	})
	if !ok {
		return ""
	}
	return row["external_url_large"]
}

func priceTypeOf(r Record) string {
	t := strings.ToUpper(r["price_type"])
	if t == "" {
		return PriceTypeDefault
	}
	return t
}

// localized collects "<prefix>.<locale>" columns into a LocalizedText.
func localized(row Record, prefix string) models.LocalizedText {
	text := models.LocalizedText{}
	for _, locale := range []string{models.LocaleEN, models.LocaleDE} {
		if v := row[prefix+"."+locale]; v != "" {
			text[locale] = v
		}
	}
	return text
}

func searchableFlags(row Record) map[string]bool {
	flags := make(map[string]bool)
	for _, locale := range []string{models.LocaleEN, models.LocaleDE} {
		if v, ok := row["is_searchable."+locale]; ok {
			flags[locale] = parseBool(v)
		}
	}
	return flags
}

// attributePair is one attribute_key_N / value_N column pair of a row.
type attributePair struct {
	key   string
	value string
}

// attributePairs reads the attribute column pairs of a row in header order.
// Order matters downstream: option extraction uses first-seen attribute
// order, so iteration here must be deterministic.
func attributePairs(row Record, headers []string) []attributePair {
	var pairs []attributePair
	for _, h := range headers {
		if !strings.HasPrefix(h, "attribute_key_") {
			continue
		}
		n := strings.TrimPrefix(h, "attribute_key_")
		key := row[h]
		if key == "" {
			continue
		}
		pairs = append(pairs, attributePair{key: key, value: row["value_"+n]})
	}
	return pairs
}

func attributeMap(row Record, headers []string) map[string]string {
	pairs := attributePairs(row, headers)
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[p.key] = p.value
	}
	return m
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func parseIntPtr(v string) *int {
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func parseFloatPtr(v string) *float64 {
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

// Validate checks referential integrity of an import result: every concrete
// product's abstract SKU must match exactly one emitted abstract product.
func Validate(abstracts []*models.AbstractProduct, concretes []*models.ConcreteProduct) error {
	known := make(map[string]bool, len(abstracts))
	for _, a := range abstracts {
		known[a.SKU] = true
	}
	for _, c := range concretes {
		if !known[c.AbstractSKU] {
			return fmt.Errorf("concrete product %s references unknown abstract SKU %s", c.SKU, c.AbstractSKU)
		}
	}
	return nil
}
