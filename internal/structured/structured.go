package structured

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/emredev/trendyol-listing-extractor/internal/document"
)

// Product holds whatever fields could be recovered from the page's embedded
// JSON. Every field is independently optional; downstream code treats a zero
// value as absent.
type Product struct {
	Title       string
	Price       float64
	HasPrice    bool
	Images      []string
	Description string
	Attributes  map[string]string
	Brand       string
}

const (
	priceLowerBound = 1
	priceUpperBound = 1_000_000
	maxWalkDepth    = 6
)

// statePatterns locate global-state assignments inside script content, most
// specific first. The right-hand side is not trusted to be valid JSON until
// it has been isolated and parsed.
var statePatterns = []*regexp.Regexp{
	regexp.MustCompile(`window\.__PRODUCT_DETAIL_APP_INITIAL_STATE__\s*=`),
	regexp.MustCompile(`window\.__SEARCH_APP_INITIAL_STATE__\s*=`),
	regexp.MustCompile(`__INITIAL_STATE__\s*=`),
}

// Extract scans every script and metadata block for an embedded product
// object. Missing or malformed structured data is not an error: the result
// just has fewer fields set.
func Extract(doc *document.Document) Product {
	var out Product

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if complete(out) {
			return
		}

		content := s.Text()
		if content == "" {
			return
		}

		if typ, _ := s.Attr("type"); strings.Contains(typ, "ld+json") {
			mergeProduct(&out, parseJSONLD(content))
			return
		}

		for _, pattern := range statePatterns {
			loc := pattern.FindStringIndex(content)
			if loc == nil {
				continue
			}
			candidate, ok := isolateObject(content[loc[1]:])
			if !ok {
				continue
			}
			var obj map[string]any
			if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
				// One bad candidate must not abort the scan.
				continue
			}
			mergeProduct(&out, fromObject(obj))
			break
		}
	})

	return out
}

// complete reports whether every mergeable field is populated; only then
// can later script blocks be skipped without losing a field they carry.
func complete(p Product) bool {
	return p.Title != "" && p.HasPrice && len(p.Images) > 0 &&
		p.Description != "" && len(p.Attributes) > 0
}

// isolateObject returns the first balanced {...} block in s, honoring string
// literals and escapes so braces inside values do not end the object early.
func isolateObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func parseJSONLD(content string) Product {
	var raw any
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return Product{}
	}

	for _, obj := range flattenLDNodes(raw) {
		typ, _ := obj["@type"].(string)
		if !strings.EqualFold(typ, "Product") {
			continue
		}
		return fromObject(obj)
	}
	return Product{}
}

// flattenLDNodes yields the top-level objects of a JSON-LD document, whether
// it is a single object, an array, or an @graph wrapper.
func flattenLDNodes(raw any) []map[string]any {
	var nodes []map[string]any
	switch v := raw.(type) {
	case map[string]any:
		if graph, ok := v["@graph"].([]any); ok {
			for _, item := range graph {
				if obj, ok := item.(map[string]any); ok {
					nodes = append(nodes, obj)
				}
			}
		}
		nodes = append(nodes, v)
	case []any:
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				nodes = append(nodes, obj)
			}
		}
	}
	return nodes
}

// fromObject pulls product fields out of a generically-typed JSON object.
// The object's shape is not fixed, so every lookup is a fallback chain over
// plausible field names rather than a single path.
func fromObject(obj map[string]any) Product {
	// Trendyol's page state nests the product under a "product" key.
	if nested, ok := obj["product"].(map[string]any); ok {
		obj = nested
	}

	var p Product
	p.Title = pickString(obj, "name", "title", "productName", "fullName")
	p.Brand = pickBrand(obj)
	p.Description = pickString(obj, "description", "metaDescription", "contentDescription")

	if price, ok := pickPrice(obj); ok && saneAmount(price) {
		p.Price = price
		p.HasPrice = true
	}

	p.Images = pickImages(obj)

	if attrs := pickAttributes(obj, 0); len(attrs) > 0 {
		p.Attributes = attrs
	}

	return p
}

func mergeProduct(dst *Product, src Product) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Brand == "" {
		dst.Brand = src.Brand
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if !dst.HasPrice && src.HasPrice {
		dst.Price = src.Price
		dst.HasPrice = true
	}
	if len(dst.Images) == 0 {
		dst.Images = src.Images
	}
	if len(dst.Attributes) == 0 {
		dst.Attributes = src.Attributes
	}
}

func pickString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if val, ok := obj[key]; ok {
			if s, ok := val.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func pickBrand(obj map[string]any) string {
	if s := pickString(obj, "brand", "brandName"); s != "" {
		return s
	}
	if nested, ok := obj["brand"].(map[string]any); ok {
		return pickString(nested, "name", "title")
	}
	return ""
}

func pickPrice(obj map[string]any) (float64, bool) {
	// Discounted variants first: when both are present the discounted one
	// is the payable price.
	for _, key := range []string{"discountedPrice", "sellingPrice", "salePrice", "price", "currentPrice"} {
		val, ok := obj[key]
		if !ok {
			continue
		}
		if amount, ok := toAmount(val); ok {
			return amount, true
		}
		if nested, ok := val.(map[string]any); ok {
			for _, nestedKey := range []string{"discountedPrice", "sellingPrice", "value", "amount"} {
				if amount, ok := toAmount(nested[nestedKey]); ok {
					return amount, true
				}
			}
		}
	}

	// JSON-LD carries the price under offers.
	switch offers := obj["offers"].(type) {
	case map[string]any:
		if amount, ok := toAmount(offers["price"]); ok {
			return amount, true
		}
	case []any:
		for _, item := range offers {
			if offer, ok := item.(map[string]any); ok {
				if amount, ok := toAmount(offer["price"]); ok {
					return amount, true
				}
			}
		}
	}

	return 0, false
}

func toAmount(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, v > 0
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		if amount, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil {
			return amount, amount > 0
		}
	case map[string]any:
		return toAmount(v["value"])
	}
	return 0, false
}

func saneAmount(v float64) bool {
	return v >= priceLowerBound && v <= priceUpperBound
}

func pickImages(obj map[string]any) []string {
	var images []string
	for _, key := range []string{"images", "image", "imageUrls", "media"} {
		val, ok := obj[key]
		if !ok {
			continue
		}
		switch v := val.(type) {
		case string:
			images = append(images, v)
		case []any:
			for _, item := range v {
				switch img := item.(type) {
				case string:
					images = append(images, img)
				case map[string]any:
					if u := pickString(img, "url", "src", "contentUrl"); u != "" {
						images = append(images, u)
					}
				}
			}
		}
		if len(images) > 0 {
			break
		}
	}
	return images
}

// pickAttributes looks for an array of {name, value} pairs under the usual
// keys, then falls back to a bounded-depth walk so an unfamiliar nesting
// still terminates.
func pickAttributes(obj map[string]any, depth int) map[string]string {
	if depth > maxWalkDepth {
		return nil
	}

	for _, key := range []string{"attributes", "contentAttributes", "specs", "properties"} {
		if arr, ok := obj[key].([]any); ok {
			if attrs := pairsFromArray(arr); len(attrs) > 0 {
				return attrs
			}
		}
	}

	for _, val := range obj {
		if nested, ok := val.(map[string]any); ok {
			if attrs := pickAttributes(nested, depth+1); len(attrs) > 0 {
				return attrs
			}
		}
	}
	return nil
}

func pairsFromArray(arr []any) map[string]string {
	attrs := make(map[string]string)
	for _, item := range arr {
		pair, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key := pickString(pair, "key", "name", "label", "title")
		value := pickString(pair, "value", "text")
		if value == "" {
			if nested, ok := pair["value"].(map[string]any); ok {
				value = pickString(nested, "name", "text", "value")
			}
		}
		if key != "" && value != "" {
			attrs[key] = value
		}
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}
