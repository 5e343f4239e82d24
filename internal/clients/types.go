package clients

// ProductInput is the external platform's product write schema, derived from
// a complete aggregate by the mapping engine. It is never stored.
type ProductInput struct {
	Title       string           `json:"title"`
	BodyHTML    string           `json:"bodyHtml"`
	Vendor      string           `json:"vendor"`
	ProductType string           `json:"productType"`
	GiftCard    bool             `json:"giftCard"`
	Tags        []string         `json:"tags,omitempty"`
	Options     []OptionInput    `json:"options,omitempty"`
	Metafields  []MetafieldInput `json:"metafields,omitempty"`
	Variants    []VariantInput   `json:"variants"`
}

// OptionInput is one product option with its ordered, de-duplicated values.
type OptionInput struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// MetafieldInput carries one stringified management attribute.
type MetafieldInput struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

// OptionSelection binds a variant to one value of one product option.
type OptionSelection struct {
	OptionName string `json:"optionName"`
	Value      string `json:"name"`
}

// VariantInput is one sellable variant in the write schema. Position is the
// 1-based index in the emitted sequence, contiguous and unique per product.
type VariantInput struct {
	SKU              string            `json:"sku"`
	Price            string            `json:"price"`
	CompareAtPrice   *string           `json:"compareAtPrice,omitempty"`
	Position         int               `json:"position"`
	OptionSelections []OptionSelection `json:"optionValues,omitempty"`
	InventoryQty     int               `json:"inventoryQuantity"`
	InventoryPolicy  string            `json:"inventoryPolicy"`
	ImageURL         string            `json:"imageUrl,omitempty"`
}

// Inventory policies understood by the platform.
const (
	InventoryPolicyDeny     = "DENY"
	InventoryPolicyContinue = "CONTINUE"
)
