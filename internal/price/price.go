package price

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/emredev/trendyol-listing-extractor/internal/document"
)

// Scenario is the pricing presentation a listing page uses. Exactly one is
// selected per page; the classification order matters because later phrases
// are ambiguous and only apply when earlier ones are absent.
type Scenario string

const (
	ScenarioNoDiscount        Scenario = "no_discount"
	ScenarioBasketDiscount    Scenario = "basket_discount"
	ScenarioBasketPercentage  Scenario = "basket_percentage_discount"
	ScenarioLowestPriceWindow Scenario = "lowest_price_window"
	ScenarioUnresolved        Scenario = "unresolved"
)

const (
	lowerBound = 1
	upperBound = 1_000_000
	// Ancestor levels searched around the title heading and the
	// lowest-price banner.
	maxAncestorLevels = 4
)

// Matching runs over a folded copy of the text. Turkish uppercase forms do
// not case-fold reliably under (?i), so the fold happens up front.
const amountPattern = `(\d{1,3}(?:\.\d{3})*(?:,\d{1,2})?)\s*(?:tl|₺)`

// fold lowercases text for pattern matching. ToLower maps the dotted
// capital İ to "i" plus a combining dot (U+0307), which would break the
// literal "fiyat" in an all-caps banner, so combining dots are stripped
// after lowering. Match indices are only ever used within the folded
// string itself.
func fold(s string) string {
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "̇", "")
}

var (
	amountRe        = regexp.MustCompile(amountPattern)
	lowestRe        = regexp.MustCompile(`son\s+\d+\s+günün\s+en\s+düşük\s+fiyat`)
	basketMarkerRe  = regexp.MustCompile(`sepette`)
	basketPercentRe = regexp.MustCompile(`sepette\s*%\s*\d`)
	basketAmountRe  = regexp.MustCompile(`sepette[^0-9%]{0,40}` + amountPattern)
	percentAfterRe  = regexp.MustCompile(`^sepette\s*%\s*\d`)
)

type amount struct {
	value float64
	start int
	end   int
}

// Classify selects the pricing scenario for a page. First match wins.
//
// The banner phrase is matched against the rendered text, where inline
// markup cannot split it. Basket phrases are matched against the raw
// hypertext instead: rendered text jams adjacent block nodes together,
// which would let one node's trailing currency unit run into the next
// node's leading word and trip the adjacency rejection.
func Classify(doc *document.Document) Scenario {
	rendered := fold(doc.Text())
	raw := fold(doc.Raw)

	if lowestRe.MatchString(rendered) || lowestRe.MatchString(raw) {
		return ScenarioLowestPriceWindow
	}

	if loc := basketPercentRe.FindStringIndex(raw); loc != nil {
		for _, m := range findBasketAmounts(raw) {
			if m.start > loc[0] {
				return ScenarioBasketPercentage
			}
		}
	}

	if len(findBasketAmounts(raw)) > 0 {
		return ScenarioBasketDiscount
	}

	return ScenarioNoDiscount
}

// Resolve classifies the page and extracts the economically correct price
// under the selected scenario's rules. structuredPrice is the last resort;
// an unresolvable price is not an error, the field is simply omitted.
func Resolve(doc *document.Document, structuredPrice float64, hasStructuredPrice bool) (string, Scenario) {
	scenario := Classify(doc)
	raw := fold(doc.Raw)

	var value float64
	var ok bool
	switch scenario {
	case ScenarioLowestPriceWindow:
		value, ok = extractLowestWindow(doc)
	case ScenarioBasketPercentage:
		value, ok = extractBasketPercentage(raw)
	case ScenarioBasketDiscount:
		value, ok = extractBasketDiscount(raw)
	default:
		value, ok = extractNoDiscount(doc)
	}

	if !ok {
		if hasStructuredPrice && sane(structuredPrice) {
			return Format(structuredPrice), scenario
		}
		return "", ScenarioUnresolved
	}

	return Format(value), scenario
}

// Format renders a resolved amount as decimal text, keeping two fraction
// digits when the amount is not whole.
func Format(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// findAmounts returns every currency amount in text that survives boundary
// checks: the numeral must not continue a longer number, and the currency
// unit must not run into a word or a Turkish suffix apostrophe
// ("100TL'ye" is not a price).
func findAmounts(text string) []amount {
	var out []amount
	for _, loc := range amountRe.FindAllStringSubmatchIndex(text, -1) {
		if m, ok := validateAmount(text, loc); ok {
			out = append(out, m)
		}
	}
	return out
}

func findBasketAmounts(text string) []amount {
	var out []amount
	for _, loc := range basketAmountRe.FindAllStringSubmatchIndex(text, -1) {
		if m, ok := validateAmount(text, loc); ok {
			out = append(out, m)
		}
	}
	return out
}

// validateAmount applies the boundary checks and locale normalization to a
// regexp match. loc is a SubmatchIndex slice whose group 1 is the numeral.
func validateAmount(text string, loc []int) (amount, bool) {
	start, end := loc[0], loc[1]
	numStart, numEnd := loc[2], loc[3]

	if numStart > 0 {
		prev := text[numStart-1]
		if prev >= '0' && prev <= '9' || prev == '.' || prev == ',' {
			return amount{}, false
		}
	}

	if end < len(text) {
		next, _ := utf8.DecodeRuneInString(text[end:])
		if unicode.IsLetter(next) || next == '\'' || next == '’' {
			return amount{}, false
		}
	}

	value, err := normalize(text[numStart:numEnd])
	if err != nil || !sane(value) {
		return amount{}, false
	}

	return amount{value: value, start: start, end: end}, true
}

// normalize converts a Turkish-locale numeral ("1.249,90") to a float:
// dots are thousands separators, the comma is the decimal separator.
func normalize(s string) (float64, error) {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	return strconv.ParseFloat(s, 64)
}

func sane(v float64) bool {
	return v >= lowerBound && v <= upperBound
}

// extractNoDiscount locates the title heading, then searches its ancestor
// containers and, failing that, its following siblings for the first node
// carrying a currency amount. Coupon wording is skipped in this scenario
// only: a "50 TL kupon" node is not the product price.
func extractNoDiscount(doc *document.Document) (float64, bool) {
	heading := doc.TitleHeading()
	if heading.Length() == 0 {
		return 0, false
	}

	container := heading
	for level := 0; level < maxAncestorLevels; level++ {
		container = container.Parent()
		if container.Length() == 0 {
			break
		}
		if value, ok := amountInContainer(container, true); ok {
			return value, true
		}
	}

	var value float64
	var found bool
	heading.NextAll().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := amountInContainer(s, true); ok {
			value, found = v, true
			return false
		}
		return true
	})
	return value, found
}

// amountInContainer scans the container's nodes in document order for the
// first valid amount. When no single node carries one (the numeral and the
// unit may sit in sibling spans), the container's collapsed text is scanned
// as a whole.
func amountInContainer(container *goquery.Selection, skipCoupon bool) (float64, bool) {
	var value float64
	var found bool

	scan := func(_ int, s *goquery.Selection) bool {
		text := fold(s.Text())
		if skipCoupon && strings.Contains(text, "kupon") {
			return true
		}
		own := fold(document.OwnText(s))
		if amounts := findAmounts(own); len(amounts) > 0 {
			value, found = amounts[0].value, true
			return false
		}
		return true
	}

	container.Find("*").EachWithBreak(scan)
	if found {
		return value, true
	}

	text := fold(container.Text())
	if skipCoupon && strings.Contains(text, "kupon") {
		return 0, false
	}
	if amounts := findAmounts(text); len(amounts) > 0 {
		return amounts[0].value, true
	}
	return 0, false
}

// extractBasketDiscount takes the amount immediately following each basket
// marker and returns the minimum: the basket-conditional price is
// definitionally the discounted one, so the lowest valid match is correct
// even when several nodes repeat it.
func extractBasketDiscount(text string) (float64, bool) {
	matches := findBasketAmounts(text)
	if len(matches) == 0 {
		return 0, false
	}

	min := matches[0].value
	for _, m := range matches[1:] {
		if m.value < min {
			min = m.value
		}
	}
	return min, true
}

// extractBasketPercentage walks the basket markers in document order. An
// occurrence followed by a percentage is the announcement, not the price;
// the price comes from the first occurrence followed by a currency amount.
func extractBasketPercentage(text string) (float64, bool) {
	for _, loc := range basketMarkerRe.FindAllStringIndex(text, -1) {
		rest := text[loc[0]:]
		if percentAfterRe.MatchString(rest) {
			continue
		}
		sub := basketAmountRe.FindStringSubmatchIndex(rest)
		if sub == nil || sub[0] != 0 {
			continue
		}
		if m, ok := validateAmount(rest, sub); ok {
			return m.value, true
		}
	}
	return 0, false
}

type strikeAmount struct {
	value  float64
	struck bool
}

// extractLowestWindow gathers the amounts around the "lowest price in the
// last N days" banner, tagging struck-through ones, and prefers the minimum
// amount that is still payable. If every match is struck through, their
// minimum is the fallback.
func extractLowestWindow(doc *document.Document) (float64, bool) {
	banner := findBanner(doc)
	if banner == nil {
		return pickLowest(collectStrikeAmounts(doc.Find("body")))
	}

	container := banner
	for level := 0; level < maxAncestorLevels; level++ {
		container = container.Parent()
		if container.Length() == 0 {
			break
		}
		if value, ok := pickLowest(collectStrikeAmounts(container)); ok {
			return value, true
		}
	}

	return pickLowest(collectStrikeAmounts(doc.Find("body")))
}

// findBanner returns the innermost node whose text carries the banner
// phrase.
func findBanner(doc *document.Document) *goquery.Selection {
	var banner *goquery.Selection
	bannerLen := 0

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		text := fold(s.Text())
		if !lowestRe.MatchString(text) {
			return
		}
		if banner == nil || len(text) < bannerLen {
			banner = s
			bannerLen = len(text)
		}
	})
	return banner
}

func collectStrikeAmounts(container *goquery.Selection) []strikeAmount {
	var out []strikeAmount

	container.Find("*").Each(func(_ int, s *goquery.Selection) {
		own := fold(document.OwnText(s))
		for _, m := range findAmounts(own) {
			out = append(out, strikeAmount{value: m.value, struck: isStruck(s)})
		}
	})

	if len(out) == 0 {
		for _, m := range findAmounts(fold(container.Text())) {
			out = append(out, strikeAmount{value: m.value})
		}
	}
	return out
}

// isStruck reports whether a node renders with strikethrough semantics:
// a del/s/strike wrapper, line-through styling, or the marketplace's
// original-price class names.
func isStruck(s *goquery.Selection) bool {
	for node := s; node.Length() > 0; node = node.Parent() {
		switch goquery.NodeName(node) {
		case "del", "s", "strike":
			return true
		case "body", "html":
			return false
		}
		if style, ok := node.Attr("style"); ok && strings.Contains(strings.ToLower(style), "line-through") {
			return true
		}
		if class, ok := node.Attr("class"); ok {
			lower := strings.ToLower(class)
			if strings.Contains(lower, "strike") || strings.Contains(lower, "prc-org") ||
				strings.Contains(lower, "old-price") || strings.Contains(lower, "original-price") {
				return true
			}
		}
	}
	return false
}

func pickLowest(amounts []strikeAmount) (float64, bool) {
	if len(amounts) == 0 {
		return 0, false
	}

	var best float64
	var found bool
	for _, a := range amounts {
		if a.struck {
			continue
		}
		if !found || a.value < best {
			best, found = a.value, true
		}
	}
	if found {
		return best, true
	}

	best = amounts[0].value
	for _, a := range amounts[1:] {
		if a.value < best {
			best = a.value
		}
	}
	return best, true
}
