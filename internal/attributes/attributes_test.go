package attributes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emredev/trendyol-listing-extractor/internal/document"
)

func TestExtractFromElementPairs(t *testing.T) {
	html := `<html><body>
		<ul class="detail-attr-container">
			<li><span>Renk</span><span>Mavi</span></li>
			<li><span>Kalıp</span><span>Slim</span></li>
		</ul>
	</body></html>`

	attrs := Extract(document.Parse(html))

	require.Len(t, attrs, 2)
	assert.Equal(t, "Mavi", attrs["Renk"])
	assert.Equal(t, "Slim", attrs["Kalıp"])
}

func TestExtractFromTableRows(t *testing.T) {
	html := `<html><body>
		<table>
			<tr><th>Materyal</th><td>Pamuk</td></tr>
			<tr><td>Desen</td><td>Düz</td></tr>
			<tr><td>tek hücre</td></tr>
		</table>
	</body></html>`

	attrs := Extract(document.Parse(html))

	require.Len(t, attrs, 2)
	assert.Equal(t, "Pamuk", attrs["Materyal"])
	assert.Equal(t, "Düz", attrs["Desen"])
}

func TestExtractFromColonSplit(t *testing.T) {
	html := `<html><body>
		<li>Yaka: Polo</li>
		<li>Kol Boyu: Uzun</li>
		<li>Fiyat: 249,90 TL</li>
		<li>Son Güncelleme 12.05.2024: evet</li>
	</body></html>`

	attrs := Extract(document.Parse(html))

	require.Len(t, attrs, 2)
	assert.Equal(t, "Polo", attrs["Yaka"])
	assert.Equal(t, "Uzun", attrs["Kol Boyu"])
}

func TestExtractExcludesSectionHeading(t *testing.T) {
	html := `<html><body>
		<ul class="detail-attr-container">
			<li><span>Ürün Özellikleri</span><span>aşağıda</span></li>
			<li><span>Renk</span><span>Mavi</span></li>
		</ul>
	</body></html>`

	attrs := Extract(document.Parse(html))

	require.Len(t, attrs, 1)
	assert.Equal(t, "Mavi", attrs["Renk"])
	assert.NotContains(t, attrs, "Ürün Özellikleri")
}

func TestExtractMethodOrder(t *testing.T) {
	// Element pairs are present, so the table must not contribute.
	html := `<html><body>
		<ul class="detail-attr-container">
			<li><span>Renk</span><span>Mavi</span></li>
		</ul>
		<table><tr><td>Desen</td><td>Düz</td></tr></table>
	</body></html>`

	attrs := Extract(document.Parse(html))

	require.Len(t, attrs, 1)
	assert.Equal(t, "Mavi", attrs["Renk"])
}

func TestExtractEmptyDocument(t *testing.T) {
	attrs := Extract(document.Parse(`<html><body><p>yok</p></body></html>`))
	assert.Empty(t, attrs)
}
