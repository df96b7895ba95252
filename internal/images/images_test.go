package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emredev/trendyol-listing-extractor/internal/document"
)

func newTestCollector() *Collector {
	return NewCollector(
		[]string{"cdn.dsmcdn.com", "img-trendyol.mncdn.com"},
		[]string{"logo", "icon", "badge", "payment", "kampanya"},
	)
}

func TestCollectDeduplicatesVariants(t *testing.T) {
	collector := newTestCollector()

	html := `<html><body>
		<img src="https://cdn.dsmcdn.com/ty100/product/media/images/abc123_1_org_zoom.jpg"/>
		<img src="https://cdn.dsmcdn.com/ty100/product/media/images/abc123_1_org.jpg"/>
		<img src="https://img-trendyol.mncdn.com/mnresize/128/192/ty100/product/media/images/abc123_1_org.jpg"/>
		<img src="https://cdn.dsmcdn.com/ty100/product/media/images/abc123_2_org_zoom.jpg"/>
	</body></html>`

	doc := document.Parse(html)
	result := collector.Collect(doc, nil)

	require.Len(t, result, 2)
	assert.Equal(t, "https://cdn.dsmcdn.com/ty100/product/media/images/abc123_1_org_zoom.jpg", result[0])
	assert.Equal(t, "https://cdn.dsmcdn.com/ty100/product/media/images/abc123_2_org_zoom.jpg", result[1])
}

func TestCollectOrdersByPositionToken(t *testing.T) {
	collector := newTestCollector()

	html := `<html><body>
		<img src="https://cdn.dsmcdn.com/ty100/product/media/images/abc123_3_org_zoom.jpg"/>
		<img src="https://cdn.dsmcdn.com/ty100/product/media/images/abc123_1_org_zoom.jpg"/>
		<img src="https://cdn.dsmcdn.com/ty100/product/media/images/abc123_2_org_zoom.jpg"/>
	</body></html>`

	doc := document.Parse(html)
	result := collector.Collect(doc, nil)

	require.Len(t, result, 3)
	assert.Contains(t, result[0], "_1_org_zoom")
	assert.Contains(t, result[1], "_2_org_zoom")
	assert.Contains(t, result[2], "_3_org_zoom")
}

func TestCollectRejectsNonProductImagery(t *testing.T) {
	collector := newTestCollector()

	html := `<html><body>
		<img src="https://cdn.dsmcdn.com/ty100/product/media/images/abc123_1_org_zoom.jpg"/>
		<img src="https://cdn.dsmcdn.com/assets/logo/trendyol-logo.png"/>
		<img src="https://cdn.dsmcdn.com/ty100/product/media/payment-badge.png"/>
		<img src="https://cdn.dsmcdn.com/ty100/kampanya/sale-label.jpg"/>
		<img src="https://cdn.dsmcdn.com/ty100/product/media/images/thumb_100x100.jpg"/>
		<img src="https://other-cdn.example.com/product/photo_1_org.jpg"/>
		<img src="https://cdn.dsmcdn.com/random/path/image.jpg"/>
	</body></html>`

	doc := document.Parse(html)
	result := collector.Collect(doc, nil)

	require.Len(t, result, 1)
	assert.Contains(t, result[0], "abc123_1_org_zoom")
}

func TestCollectStripsQueryAndFragment(t *testing.T) {
	collector := newTestCollector()

	html := `<html><body>
		<img src="https://cdn.dsmcdn.com/ty100/product/media/images/abc123_1_org_zoom.jpg?cacheBust=42#top"/>
	</body></html>`

	doc := document.Parse(html)
	result := collector.Collect(doc, nil)

	require.Len(t, result, 1)
	assert.Equal(t, "https://cdn.dsmcdn.com/ty100/product/media/images/abc123_1_org_zoom.jpg", result[0])
}

func TestCollectGathersFromAllSources(t *testing.T) {
	collector := newTestCollector()

	html := `<html><head>
		<link rel="preload" as="image" href="https://cdn.dsmcdn.com/ty100/product/media/images/abc123_1_org_zoom.jpg"/>
		<meta property="og:image" content="https://cdn.dsmcdn.com/ty100/product/media/images/abc123_2_org_zoom.jpg"/>
	</head><body>
		<img data-src="https://cdn.dsmcdn.com/ty100/product/media/images/abc123_3_org_zoom.jpg"/>
		<script>var more = "https://cdn.dsmcdn.com/ty100/product/media/images/abc123_4_org_zoom.jpg";</script>
	</body></html>`

	doc := document.Parse(html)
	result := collector.Collect(doc, []string{
		"/ty100/product/media/images/abc123_5_org_zoom.jpg",
	})

	require.Len(t, result, 5)
	for _, u := range result {
		assert.Contains(t, u, "abc123")
		assert.Contains(t, u, "_org_zoom")
	}
	assert.Contains(t, result[4], "_5_org_zoom")
}

func TestCollectAppendsPositionlessCandidates(t *testing.T) {
	collector := newTestCollector()

	html := `<html><body>
		<img src="https://cdn.dsmcdn.com/ty100/product/media/images/cover-photo.jpg"/>
		<img src="https://cdn.dsmcdn.com/ty100/product/media/images/abc123_1_org_zoom.jpg"/>
	</body></html>`

	doc := document.Parse(html)
	result := collector.Collect(doc, nil)

	require.Len(t, result, 2)
	assert.Contains(t, result[0], "_1_org_zoom")
	assert.Contains(t, result[1], "cover-photo")
}

func TestCollectDedupInvariant(t *testing.T) {
	collector := newTestCollector()

	html := `<html><body>
		<img src="https://cdn.dsmcdn.com/ty100/product/media/images/abc123_1_org.jpg"/>
		<img src="https://cdn.dsmcdn.com/ty100/product/media/images/abc123_1_org.jpg?v=1"/>
		<img src="https://cdn.dsmcdn.com/ty100/product/media/images/abc123_1_org.jpg?v=2"/>
	</body></html>`

	doc := document.Parse(html)
	result := collector.Collect(doc, nil)

	seen := make(map[string]bool)
	for _, u := range result {
		require.False(t, seen[u], "duplicate url in output: %s", u)
		seen[u] = true
	}
	assert.Len(t, result, 1)
}
