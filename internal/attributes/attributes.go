package attributes

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/emredev/trendyol-listing-extractor/internal/document"
)

// Known markup shapes for the specification table, tried in order. The
// first method that yields any pairs wins.

// Section headings that match a key/value shape but are titles, not
// attributes.
var sectionHeadings = []string{
	"ürün özellikleri",
	"özellikler",
	"teknik özellikler",
	"ürün bilgileri",
	"specifications",
	"product features",
}

func isSectionHeading(label string) bool {
	lower := strings.ToLower(label)
	for _, heading := range sectionHeadings {
		if lower == heading {
			return true
		}
	}
	return false
}

var (
	priceLikeRe = regexp.MustCompile(`\d+[.,]?\d*\s*(?:tl|₺)`)
	dateLikeRe  = regexp.MustCompile(`\d{1,2}[./]\d{1,2}[./]\d{2,4}`)
)

const maxLabelLength = 60

// pairSelectors are fixed title/value element patterns the marketplace has
// used for its attribute rows.
var pairSelectors = []string{
	"ul.detail-attr-container li",
	"li.detail-attr-item",
	"div.product-feature-item",
}

// Extract recovers the key/value specification table from whichever markup
// shape is present. An empty map means the page simply has none.
func Extract(doc *document.Document) map[string]string {
	if attrs := fromElementPairs(doc); len(attrs) > 0 {
		return attrs
	}
	if attrs := fromTableRows(doc); len(attrs) > 0 {
		return attrs
	}
	return fromColonSplit(doc)
}

func fromElementPairs(doc *document.Document) map[string]string {
	attrs := make(map[string]string)

	for _, selector := range pairSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			spans := s.Find("span")
			if spans.Length() < 2 {
				return
			}
			addPair(attrs, spans.Eq(0).Text(), spans.Eq(1).Text())
		})
		if len(attrs) > 0 {
			return attrs
		}
	}
	return attrs
}

func fromTableRows(doc *document.Document) map[string]string {
	attrs := make(map[string]string)

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("th, td")
		if cells.Length() != 2 {
			return
		}
		addPair(attrs, cells.Eq(0).Text(), cells.Eq(1).Text())
	})
	return attrs
}

// fromColonSplit is the last resort: generic "label: value" text nodes.
// Labels that look like a price or a date are campaign copy, not
// specification rows.
func fromColonSplit(doc *document.Document) map[string]string {
	attrs := make(map[string]string)

	doc.Find("li, p, dt, dd, div").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(document.OwnText(s))
		if text == "" || strings.Count(text, ":") != 1 {
			return
		}

		label, value, _ := strings.Cut(text, ":")
		label = strings.TrimSpace(label)
		value = strings.TrimSpace(value)
		if label == "" || value == "" || len(label) > maxLabelLength {
			return
		}

		lower := strings.ToLower(label)
		if priceLikeRe.MatchString(lower) || dateLikeRe.MatchString(lower) {
			return
		}
		if priceLikeRe.MatchString(strings.ToLower(value)) {
			return
		}

		addPair(attrs, label, value)
	})
	return attrs
}

func addPair(attrs map[string]string, label, value string) {
	label = strings.TrimSpace(label)
	value = strings.TrimSpace(value)
	if label == "" || value == "" {
		return
	}
	if isSectionHeading(label) {
		return
	}
	if _, exists := attrs[label]; exists {
		return
	}
	attrs[label] = value
}
