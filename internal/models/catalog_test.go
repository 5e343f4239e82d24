package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalizedTextPreferred(t *testing.T) {
	text := LocalizedText{LocaleEN: "Shirt", LocaleDE: "Hemd"}
	assert.Equal(t, "Shirt", text.Preferred(LocaleEN, LocaleDE))
	assert.Equal(t, "Hemd", text.Preferred("fr_FR", LocaleDE))
	assert.Equal(t, "", LocalizedText{}.Preferred(LocaleEN, LocaleDE))
}

func TestAttributeValueAppendReplacesPerSKU(t *testing.T) {
	value := PerVariantValue("A1", "Red")
	value.Append("A2", "Blue")
	value.Append("A1", "Crimson") // redelivery for A1 replaces its entry

	assert.Equal(t, []string{"Crimson", "Blue"}, value.DistinctValues())
}

func TestAttributeValueDistinctValuesFirstSeen(t *testing.T) {
	value := PerVariantValue("A1", "Red")
	value.Append("A2", "Blue")
	value.Append("A3", "Red")

	assert.Equal(t, []string{"Red", "Blue"}, value.DistinctValues())
}

func TestAttributeSetPreservesInsertionOrder(t *testing.T) {
	set := NewAttributeSet()
	set.Set("color", PerVariantValue("A1", "Red"))
	set.Set("material", ScalarValue("Cotton"))
	set.Set("fit", ScalarValue("Slim"))
	set.Set("color", PerVariantValue("A1", "Red")) // update keeps position

	assert.Equal(t, []string{"color", "material", "fit"}, set.Keys())
	assert.Equal(t, 3, set.Len())
}

func TestAttributeSetSurvivesJSONTransit(t *testing.T) {
	set := NewAttributeSet()
	set.Set("color", PerVariantValue("A1", "Red"))
	set.Set("material", ScalarValue("Cotton"))

	raw, err := json.Marshal(set)
	require.NoError(t, err)

	decoded := NewAttributeSet()
	require.NoError(t, json.Unmarshal(raw, decoded))

	assert.Equal(t, []string{"color", "material"}, decoded.Keys())
	color, ok := decoded.Get("color")
	require.True(t, ok)
	assert.Equal(t, AttributePerVariant, color.Kind)
	assert.Equal(t, []string{"Red"}, color.DistinctValues())
}

func TestAbstractProductGiftCardMarkers(t *testing.T) {
	assert.True(t, (&AbstractProduct{
		Name: LocalizedText{LocaleEN: "Gift Card 25"},
	}).IsGiftCard())
	assert.True(t, (&AbstractProduct{
		Name: LocalizedText{LocaleDE: "Geschenkgutschein 25"},
	}).IsGiftCard())
	assert.False(t, (&AbstractProduct{
		Name: LocalizedText{LocaleEN: "Classic Shirt"},
	}).IsGiftCard())
}

func TestConcreteProductHasStockInfo(t *testing.T) {
	qty := 0
	assert.True(t, (&ConcreteProduct{Quantity: &qty}).HasStockInfo())
	assert.True(t, (&ConcreteProduct{NeverOutOfStock: true}).HasStockInfo())
	assert.False(t, (&ConcreteProduct{}).HasStockInfo())
}
