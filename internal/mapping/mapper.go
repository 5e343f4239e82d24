// Package mapping converts complete product aggregates into the external
// platform's write schema.
package mapping

import (
	"errors"
	"strconv"
	"strings"

	"catalog-sync-service/internal/clients"
	"catalog-sync-service/internal/models"
)

// ErrIncompleteAggregate is returned when the abstract side is absent or no
// concrete products have arrived. Incomplete aggregates are never mapped.
var ErrIncompleteAggregate = errors.New("aggregate is incomplete: abstract and at least one concrete product required")

// maxOptions is the external platform's limit on product options. Only the
// first three per-variant attributes become options, in first-seen order.
const maxOptions = 3

const (
	metafieldNamespace = "catalog"
	metafieldType      = "single_line_text_field"

	// bundleTag marks products carrying management attributes.
	bundleTag = "bundle"
)

// Engine maps aggregates to ProductInput documents.
type Engine struct {
	preferredLocale string
	fallbackLocale  string
	vendor          string
}

// NewEngine creates a mapping engine for the given locale preference and
// vendor name.
func NewEngine(preferredLocale, fallbackLocale, vendor string) *Engine {
	return &Engine{
		preferredLocale: preferredLocale,
		fallbackLocale:  fallbackLocale,
		vendor:          vendor,
	}
}

// Map builds the external write schema for one aggregate. Variants are
// emitted in the given order with contiguous 1-based positions.
func (e *Engine) Map(abstract *models.AbstractProduct, concretes []*models.ConcreteProduct) (*clients.ProductInput, error) {
	if abstract == nil || len(concretes) == 0 {
		return nil, ErrIncompleteAggregate
	}

	tags := append([]string(nil), abstract.Labels...)
	if abstract.IsBundle() {
		tags = append(tags, bundleTag)
	}
	product := &clients.ProductInput{
		Title:       abstract.Name.Preferred(e.preferredLocale, e.fallbackLocale),
		BodyHTML:    abstract.Description.Preferred(e.preferredLocale, e.fallbackLocale),
		Vendor:      e.vendor,
		ProductType: abstract.CategoryKey,
		GiftCard:    abstract.IsGiftCard(),
		Tags:        tags,
	}

	optionKeys := e.extractOptions(abstract, product)
	e.buildVariants(concretes, product, optionKeys)

	return product, nil
}

// extractOptions scans the management attribute map in first-seen order. A
// per-variant attribute becomes one option; scalar attributes, and
// per-variant attributes beyond the option limit, become metafields. The
// returned slice holds the source attribute key of each emitted option.
func (e *Engine) extractOptions(abstract *models.AbstractProduct, product *clients.ProductInput) []string {
	var optionKeys []string
	if abstract.Attributes == nil {
		return optionKeys
	}

	for _, key := range abstract.Attributes.Keys() {
		value, _ := abstract.Attributes.Get(key)
		if value.IsEmpty() {
			continue
		}
		if value.Kind == models.AttributePerVariant && len(product.Options) < maxOptions {
			product.Options = append(product.Options, clients.OptionInput{
				Name:   optionName(key),
				Values: value.DistinctValues(),
			})
			optionKeys = append(optionKeys, key)
			continue
		}
		product.Metafields = append(product.Metafields, clients.MetafieldInput{
			Namespace: metafieldNamespace,
			Key:       key,
			Value:     stringifyAttribute(value),
			Type:      metafieldType,
		})
	}

	return optionKeys
}

// buildVariants emits one variant per concrete product in import order.
// Option-value selection is a linear scan over the product's options taking
// the first option whose source key the variant carries and the first value
// equal to the variant's own; matching stops at the first hit.
func (e *Engine) buildVariants(concretes []*models.ConcreteProduct, product *clients.ProductInput, optionKeys []string) {
	fallbackPrice := firstPrice(concretes)

	for i, concrete := range concretes {
		variant := clients.VariantInput{
			SKU:             concrete.SKU,
			Position:        i + 1,
			Price:           formatPrice(concrete.GrossPrice, fallbackPrice),
			InventoryPolicy: clients.InventoryPolicyDeny,
			ImageURL:        concrete.ImageURL,
		}
		if concrete.CompareAtPrice != nil {
			formatted := formatPrice(concrete.CompareAtPrice, nil)
			variant.CompareAtPrice = &formatted
		}
		if concrete.Quantity != nil {
			variant.InventoryQty = *concrete.Quantity
		}
		if concrete.NeverOutOfStock {
			variant.InventoryPolicy = clients.InventoryPolicyContinue
		}

		for j, key := range optionKeys {
			own, ok := concrete.Options[key]
			if !ok || own == "" {
				continue
			}
			if matched, ok := firstEqual(product.Options[j].Values, own); ok {
				variant.OptionSelections = append(variant.OptionSelections, clients.OptionSelection{
					OptionName: product.Options[j].Name,
					Value:      matched,
				})
				break
			}
		}

		product.Variants = append(product.Variants, variant)
	}
}

func firstEqual(values []string, target string) (string, bool) {
	for _, v := range values {
		if v == target {
			return v, true
		}
	}
	return "", false
}

func firstPrice(concretes []*models.ConcreteProduct) *float64 {
	for _, c := range concretes {
		if c.GrossPrice != nil {
			return c.GrossPrice
		}
	}
	return nil
}

func formatPrice(price, fallback *float64) string {
	if price == nil {
		price = fallback
	}
	if price == nil {
		return "0.00"
	}
	return strconv.FormatFloat(*price, 'f', 2, 64)
}

// stringifyAttribute renders a metafield value: boolean scalars as Yes/No,
// per-variant values joined with ", ".
func stringifyAttribute(value models.AttributeValue) string {
	if value.Kind == models.AttributePerVariant {
		return strings.Join(value.DistinctValues(), ", ")
	}
	switch strings.ToLower(value.Scalar) {
	case "true":
		return "Yes"
	case "false":
		return "No"
	}
	return value.Scalar
}

func optionName(key string) string {
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}
