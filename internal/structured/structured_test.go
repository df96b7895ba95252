package structured

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emredev/trendyol-listing-extractor/internal/document"
)

func TestExtractInitialState(t *testing.T) {
	html := `<html><head><script>
		window.__PRODUCT_DETAIL_APP_INITIAL_STATE__ = {"product":{
			"name":"Pamuklu Gömlek",
			"brand":{"name":"Marka"},
			"description":"Nefes alan kumaş.",
			"price":{"discountedPrice":{"value":249.90},"sellingPrice":{"value":299.90}},
			"images":["/ty100/product/media/images/abc_1_org_zoom.jpg","/ty100/product/media/images/abc_2_org_zoom.jpg"],
			"attributes":[{"key":"Renk","value":"Mavi"},{"key":"Kalıp","value":"Regular"}]
		}};
	</script></head><body></body></html>`

	product := Extract(document.Parse(html))

	assert.Equal(t, "Pamuklu Gömlek", product.Title)
	assert.Equal(t, "Marka", product.Brand)
	assert.Equal(t, "Nefes alan kumaş.", product.Description)
	require.True(t, product.HasPrice)
	assert.InDelta(t, 249.90, product.Price, 0.001)
	assert.Len(t, product.Images, 2)
	assert.Equal(t, "Mavi", product.Attributes["Renk"])
	assert.Equal(t, "Regular", product.Attributes["Kalıp"])
}

func TestExtractJSONLD(t *testing.T) {
	html := `<html><head><script type="application/ld+json">
	{
		"@context": "https://schema.org",
		"@type": "Product",
		"name": "Deri Cüzdan",
		"image": ["https://cdn.dsmcdn.com/ty100/product/media/images/w_1_org.jpg"],
		"offers": {"@type": "Offer", "price": "399.90", "priceCurrency": "TRY"}
	}
	</script></head><body></body></html>`

	product := Extract(document.Parse(html))

	assert.Equal(t, "Deri Cüzdan", product.Title)
	require.True(t, product.HasPrice)
	assert.InDelta(t, 399.90, product.Price, 0.001)
	assert.Len(t, product.Images, 1)
}

func TestExtractSkipsMalformedCandidates(t *testing.T) {
	// The first assignment is broken JSON; the scan must continue to the
	// JSON-LD block instead of giving up.
	html := `<html><head>
	<script>window.__PRODUCT_DETAIL_APP_INITIAL_STATE__ = {"product":{"name":"Broken"</script>
	<script type="application/ld+json">{"@type":"Product","name":"Sağlam Ürün"}</script>
	</head><body></body></html>`

	product := Extract(document.Parse(html))

	assert.Equal(t, "Sağlam Ürün", product.Title)
}

func TestExtractMergesLaterBlocksUntilComplete(t *testing.T) {
	// The first block fills title/price/images; the description only
	// appears in the later JSON-LD block and must still be merged.
	html := `<html><head>
	<script>
		window.__PRODUCT_DETAIL_APP_INITIAL_STATE__ = {"product":{
			"name":"Pamuklu Gömlek",
			"price":249.90,
			"images":["/ty100/product/media/images/abc_1_org_zoom.jpg"]
		}};
	</script>
	<script type="application/ld+json">
	{"@type":"Product","name":"Pamuklu Gömlek","description":"Nefes alan kumaş."}
	</script>
	</head><body></body></html>`

	product := Extract(document.Parse(html))

	assert.Equal(t, "Pamuklu Gömlek", product.Title)
	require.True(t, product.HasPrice)
	assert.Equal(t, "Nefes alan kumaş.", product.Description)
}

func TestExtractRejectsInsanePrices(t *testing.T) {
	html := `<html><head><script>
		window.__PRODUCT_DETAIL_APP_INITIAL_STATE__ = {"product":{"name":"Ürün","price":5000000}};
	</script></head><body></body></html>`

	product := Extract(document.Parse(html))

	assert.Equal(t, "Ürün", product.Title)
	assert.False(t, product.HasPrice, "an id-sized number is not a price")
}

func TestExtractMissingDataIsNotAnError(t *testing.T) {
	product := Extract(document.Parse(`<html><body><p>hiçbir şey yok</p></body></html>`))

	assert.Empty(t, product.Title)
	assert.False(t, product.HasPrice)
	assert.Empty(t, product.Images)
}

func TestIsolateObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"simple", `{"a":1};next`, `{"a":1}`, true},
		{"nested", `{"a":{"b":2}}`, `{"a":{"b":2}}`, true},
		{"brace inside string", `{"a":"}{"}`, `{"a":"}{"}`, true},
		{"escaped quote", `{"a":"say \"hi\" {"}`, `{"a":"say \"hi\" {"}`, true},
		{"unbalanced", `{"a":1`, "", false},
		{"no object", `var x = 1;`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := isolateObject(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPickAttributesBoundedWalk(t *testing.T) {
	obj := map[string]any{
		"layer1": map[string]any{
			"layer2": map[string]any{
				"specs": []any{
					map[string]any{"name": "Kumaş", "value": "Pamuk"},
				},
			},
		},
	}

	attrs := pickAttributes(obj, 0)
	require.NotNil(t, attrs)
	assert.Equal(t, "Pamuk", attrs["Kumaş"])
}
