package models

import (
	"encoding/json"
	"strings"
)

// Locale identifiers used across catalog exports.
const (
	LocaleEN = "en_US"
	LocaleDE = "de_DE"
)

// giftCardMarkers are the name fragments that classify a product as a gift
// card, per locale. Classification is derived, never imported.
var giftCardMarkers = map[string]string{
	LocaleEN: "Gift Card",
	LocaleDE: "Geschenkgutschein",
}

// LocalizedText holds one value per locale.
type LocalizedText map[string]string

// Preferred returns the value for the preferred locale, falling back to the
// fallback locale and then to any non-empty value.
func (t LocalizedText) Preferred(locale, fallback string) string {
	if v := t[locale]; v != "" {
		return v
	}
	if v := t[fallback]; v != "" {
		return v
	}
	for _, v := range t {
		if v != "" {
			return v
		}
	}
	return ""
}

// AttributeKind discriminates the two shapes a management attribute value can
// take: a plain scalar, or a per-variant map contributed by sibling rows.
type AttributeKind int

const (
	AttributeScalar AttributeKind = iota
	AttributePerVariant
)

// VariantValue is one per-variant attribute entry, in first-seen order.
type VariantValue struct {
	SKU   string `json:"sku"`
	Value string `json:"value"`
}

// AttributeValue is the tagged variant for management attribute values:
// Scalar(string) | PerVariant(ordered SKU -> value pairs).
type AttributeValue struct {
	Kind     AttributeKind  `json:"kind"`
	Scalar   string         `json:"scalar,omitempty"`
	Variants []VariantValue `json:"variants,omitempty"`
}

// ScalarValue returns a scalar AttributeValue.
func ScalarValue(v string) AttributeValue {
	return AttributeValue{Kind: AttributeScalar, Scalar: v}
}

// PerVariantValue returns a per-variant AttributeValue seeded with one entry.
func PerVariantValue(sku, v string) AttributeValue {
	return AttributeValue{Kind: AttributePerVariant, Variants: []VariantValue{{SKU: sku, Value: v}}}
}

// Append adds a per-variant entry, overwriting an existing entry for the same
// SKU so duplicate contributions stay idempotent.
func (v *AttributeValue) Append(sku, value string) {
	for i := range v.Variants {
		if v.Variants[i].SKU == sku {
			v.Variants[i].Value = value
			return
		}
	}
	v.Variants = append(v.Variants, VariantValue{SKU: sku, Value: value})
}

// DistinctValues returns the de-duplicated per-variant values in first-seen
// order.
func (v AttributeValue) DistinctValues() []string {
	seen := make(map[string]bool, len(v.Variants))
	out := make([]string, 0, len(v.Variants))
	for _, e := range v.Variants {
		if e.Value == "" || seen[e.Value] {
			continue
		}
		seen[e.Value] = true
		out = append(out, e.Value)
	}
	return out
}

// IsEmpty reports whether the value carries no data in either shape.
func (v AttributeValue) IsEmpty() bool {
	if v.Kind == AttributeScalar {
		return v.Scalar == ""
	}
	return len(v.Variants) == 0
}

// AttributeSet is an insertion-ordered management attribute map. Order matters:
// option extraction uses the first three per-variant attributes in first-seen
// order.
type AttributeSet struct {
	keys   []string
	values map[string]AttributeValue
}

// NewAttributeSet returns an empty attribute set.
func NewAttributeSet() *AttributeSet {
	return &AttributeSet{values: make(map[string]AttributeValue)}
}

// Set stores a value under key, preserving first-seen key order.
func (s *AttributeSet) Set(key string, value AttributeValue) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Get returns the value for key.
func (s *AttributeSet) Get(key string) (AttributeValue, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Keys returns the attribute keys in first-seen order.
func (s *AttributeSet) Keys() []string {
	return s.keys
}

// Len returns the number of attributes.
func (s *AttributeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

type attributeEntry struct {
	Key   string         `json:"key"`
	Value AttributeValue `json:"value"`
}

// MarshalJSON encodes the set as an ordered entry list so first-seen order
// survives transit over the message bus.
func (s *AttributeSet) MarshalJSON() ([]byte, error) {
	entries := make([]attributeEntry, 0, len(s.keys))
	for _, key := range s.keys {
		entries = append(entries, attributeEntry{Key: key, Value: s.values[key]})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON restores the ordered entry list.
func (s *AttributeSet) UnmarshalJSON(data []byte) error {
	var entries []attributeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	s.keys = nil
	s.values = make(map[string]AttributeValue, len(entries))
	for _, e := range entries {
		s.Set(e.Key, e.Value)
	}
	return nil
}

// AbstractProduct is a product family identified by its abstract SKU. It is
// built by the importer and immutable once handed to the mapping engine.
type AbstractProduct struct {
	SKU         string        `json:"sku"`
	Name        LocalizedText `json:"name"`
	Description LocalizedText `json:"description,omitempty"`
	MetaTitle   LocalizedText `json:"metaTitle,omitempty"`
	CategoryKey string        `json:"categoryKey,omitempty"`
	TaxSetName  string        `json:"taxSetName,omitempty"`
	Attributes  *AttributeSet `json:"attributes,omitempty"`
	Labels      []string      `json:"labels,omitempty"`
}

// IsGiftCard reports whether the localized name carries the gift card marker
// phrase in either locale.
func (p *AbstractProduct) IsGiftCard() bool {
	for locale, marker := range giftCardMarkers {
		if strings.Contains(p.Name[locale], marker) {
			return true
		}
	}
	return false
}

// IsBundle reports whether the product carries at least one non-empty
// management attribute slot.
func (p *AbstractProduct) IsBundle() bool {
	if p.Attributes == nil {
		return false
	}
	for _, key := range p.Attributes.Keys() {
		if v, ok := p.Attributes.Get(key); ok && !v.IsEmpty() {
			return true
		}
	}
	return false
}

// ConcreteProduct is one sellable variant of an abstract product, identified
// by its concrete SKU. Created once per source row, never merged.
type ConcreteProduct struct {
	SKU             string            `json:"sku"`
	AbstractSKU     string            `json:"abstractSku"`
	Name            LocalizedText     `json:"name"`
	Description     LocalizedText     `json:"description,omitempty"`
	Quantity        *int              `json:"quantity,omitempty"`
	NeverOutOfStock bool              `json:"neverOutOfStock,omitempty"`
	GrossPrice      *float64          `json:"grossPrice,omitempty"`
	CompareAtPrice  *float64          `json:"compareAtPrice,omitempty"`
	Currency        string            `json:"currency,omitempty"`
	ImageURL        string            `json:"imageUrl,omitempty"`
	Searchable      map[string]bool   `json:"searchable,omitempty"`
	Options         map[string]string `json:"options,omitempty"`
}

// HasStockInfo reports whether the variant carries any usable stock signal.
func (p *ConcreteProduct) HasStockInfo() bool {
	return p.Quantity != nil || p.NeverOutOfStock
}
