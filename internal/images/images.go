package images

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/emredev/trendyol-listing-extractor/internal/document"
)

// Collector harvests product photo URLs from every available source,
// filters out non-product imagery, and deduplicates cosmetic URL variants
// that refer to the same photo.
type Collector struct {
	cdnHosts []string
	denylist []string
}

func NewCollector(cdnHosts, denylist []string) *Collector {
	return &Collector{cdnHosts: cdnHosts, denylist: denylist}
}

// Path fragments that mark a URL as a genuine product photo. Denylist
// filtering alone is not enough: a URL with no product signal at all is
// rejected too.
var productSignals = []string{"/product/", "/prod/", "/mnresize/"}

// Fixed thumbnail dimensions embedded in filenames.
var thumbnailDims = []string{"48x48", "64x64", "70x70", "96x96", "100x100", "128x128"}

var (
	// lazySrcAttrs are the lazy-load attribute variants; the visible src
	// may be a placeholder pixel.
	lazySrcAttrs = []string{"src", "data-src", "data-original", "data-lazy-src", "data-img"}

	imageURLRe = regexp.MustCompile(`https?://[a-zA-Z0-9.\-]+/[^\s"'<>\\)]+?\.(?:jpg|jpeg|png|webp)`)

	// positionRe pulls the photo's index token out of the filename, e.g.
	// ".../b2c3d4_3_org_zoom.jpg" -> stem "b2c3d4", position 3.
	positionRe = regexp.MustCompile(`^(.*?)_(\d+)(?:_[a-z]+)*$`)
)

type candidate struct {
	url   string
	key   string
	pos   int // -1 when the filename carries no position token
	order int // discovery order, used for position-less candidates
	score int // specificity; higher wins within one canonical key
}

// Collect gathers candidates from structured data, a raw-text sweep, preload
// hints, image elements, and metadata blocks, then filters, canonicalizes,
// deduplicates, and orders them.
func (c *Collector) Collect(doc *document.Document, structuredImages []string) []string {
	var raw []string

	for _, u := range structuredImages {
		raw = append(raw, c.absolutize(u))
	}
	raw = append(raw, c.sweepRawText(doc.Raw)...)

	doc.Find("link[rel='preload'][as='image']").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			raw = append(raw, href)
		}
	})

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range lazySrcAttrs {
			if src, ok := s.Attr(attr); ok && src != "" {
				raw = append(raw, src)
			}
		}
	})

	doc.Find("meta[property='og:image'], meta[name='twitter:image']").Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok {
			raw = append(raw, content)
		}
	})

	byKey := make(map[string]candidate)
	var keys []string
	for i, u := range raw {
		cand, ok := c.evaluate(u, i)
		if !ok {
			continue
		}
		existing, seen := byKey[cand.key]
		if !seen {
			byKey[cand.key] = cand
			keys = append(keys, cand.key)
			continue
		}
		if cand.score > existing.score {
			cand.order = existing.order
			byKey[cand.key] = cand
		}
	}

	ordered := make([]candidate, 0, len(keys))
	for _, key := range keys {
		ordered = append(ordered, byKey[key])
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		switch {
		case a.pos >= 0 && b.pos >= 0:
			return a.pos < b.pos
		case a.pos >= 0:
			return true
		case b.pos >= 0:
			return false
		default:
			return a.order < b.order
		}
	})

	out := make([]string, len(ordered))
	for i, cand := range ordered {
		out[i] = cand.url
	}
	return out
}

// absolutize resolves the path-only and protocol-relative URL shapes that
// embedded state uses, against the primary CDN host.
func (c *Collector) absolutize(u string) string {
	u = strings.TrimSpace(u)
	switch {
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	case strings.HasPrefix(u, "/") && len(c.cdnHosts) > 0:
		return "https://" + c.cdnHosts[0] + u
	default:
		return u
	}
}

func (c *Collector) sweepRawText(raw string) []string {
	var out []string
	for _, u := range imageURLRe.FindAllString(raw, -1) {
		if c.knownCDN(u) {
			out = append(out, u)
		}
	}
	return out
}

// evaluate runs a single raw URL through the non-product filter and derives
// its canonical key and position token.
func (c *Collector) evaluate(rawURL string, order int) (candidate, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" || parsed.Path == "" {
		return candidate{}, false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return candidate{}, false
	}
	if !c.knownCDN(rawURL) {
		return candidate{}, false
	}

	lowerPath := strings.ToLower(parsed.Path)
	for _, deny := range c.denylist {
		if strings.Contains(lowerPath, deny) {
			return candidate{}, false
		}
	}
	for _, dims := range thumbnailDims {
		if strings.Contains(lowerPath, dims) {
			return candidate{}, false
		}
	}
	if !hasProductSignal(lowerPath) {
		return candidate{}, false
	}

	// Canonicalize: query and fragment are cosmetic.
	parsed.RawQuery = ""
	parsed.Fragment = ""
	canonical := parsed.String()

	stem, pos := photoIdentity(lowerPath)
	key := parsed.Hostname() + "|" + stem
	if pos >= 0 {
		// The stem plus index identifies the photo across CDNs and
		// resize variants.
		key = stem
	}

	// Specificity: the full-resolution zoom marker dominates, then the
	// original-size marker, then plain path length.
	score := len(parsed.Path)
	if strings.Contains(lowerPath, "zoom") {
		score += 1000
	}
	if strings.Contains(lowerPath, "_org") {
		score += 100
	}

	return candidate{url: canonical, key: key, pos: pos, order: order, score: score}, true
}

func (c *Collector) knownCDN(u string) bool {
	lower := strings.ToLower(u)
	for _, host := range c.cdnHosts {
		if strings.Contains(lower, strings.ToLower(host)) {
			return true
		}
	}
	return false
}

func hasProductSignal(path string) bool {
	for _, signal := range productSignals {
		if strings.Contains(path, signal) {
			return true
		}
	}
	return false
}

// photoIdentity derives the same-photo signature from a URL path: the
// filename stem plus the numeric position token, with size/quality variant
// suffixes stripped. Returns pos -1 when no token is present.
func photoIdentity(path string) (string, int) {
	base := path[strings.LastIndexByte(path, '/')+1:]
	if dot := strings.LastIndexByte(base, '.'); dot > 0 {
		base = base[:dot]
	}

	m := positionRe.FindStringSubmatch(base)
	if m == nil {
		return base, -1
	}

	pos := 0
	for _, ch := range m[2] {
		pos = pos*10 + int(ch-'0')
	}
	return m[1] + ":" + m[2], pos
}
