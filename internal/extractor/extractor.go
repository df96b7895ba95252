package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/emredev/trendyol-listing-extractor/internal/attributes"
	"github.com/emredev/trendyol-listing-extractor/internal/document"
	"github.com/emredev/trendyol-listing-extractor/internal/images"
	"github.com/emredev/trendyol-listing-extractor/internal/models"
	"github.com/emredev/trendyol-listing-extractor/internal/price"
	"github.com/emredev/trendyol-listing-extractor/internal/structured"
)

// Fetcher retrieves a product page's raw hypertext.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Service sequences the extraction pipeline: fetch, parse once, run every
// extractor against the shared tree, merge the partial results.
type Service struct {
	fetcher Fetcher
	images  *images.Collector
	logger  *slog.Logger
}

func NewService(fetcher Fetcher, imageCollector *images.Collector, logger *slog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		images:  imageCollector,
		logger:  logger.With("component", "extractor"),
	}
}

// Extract fetches url and produces the normalized listing record, or a
// classified failure.
func (s *Service) Extract(ctx context.Context, url string) (*models.Listing, error) {
	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	listing, err := s.ExtractFromHTML(url, body)
	if err != nil {
		return nil, err
	}

	listing.FetchedAt = time.Now().UTC()
	return listing, nil
}

// ExtractFromHTML runs the extractors over already-fetched hypertext. It is
// pure: identical input bytes produce an identical record.
func (s *Service) ExtractFromHTML(url, html string) (*models.Listing, error) {
	doc := document.Parse(html)
	product := structured.Extract(doc)

	title := s.resolveTitle(doc, product)
	if title == "" {
		// Every other field is meaningless without a title, so this is
		// the one extraction miss treated as call-level failure.
		return nil, models.NewExtractionError(models.FailureNoTitleFound,
			fmt.Errorf("no title-bearing heading in document"))
	}

	resolvedPrice, scenario := price.Resolve(doc, product.Price, product.HasPrice)
	imageURLs := s.images.Collect(doc, product.Images)

	attrs := attributes.Extract(doc)
	if len(attrs) == 0 {
		attrs = product.Attributes
	}

	s.logger.Debug("extraction finished",
		"url", url,
		"scenario", string(scenario),
		"price", resolvedPrice,
		"images", len(imageURLs),
		"attributes", len(attrs))

	return &models.Listing{
		URL:         url,
		Title:       title,
		Price:       resolvedPrice,
		Images:      imageURLs,
		Description: s.resolveDescription(doc, product),
		Attributes:  attrs,
	}, nil
}

// resolveTitle prefers the rendered heading, then page metadata, and only
// then the structured-data title.
func (s *Service) resolveTitle(doc *document.Document, product structured.Product) string {
	if heading := doc.TitleHeading(); heading.Length() > 0 {
		if title := headingText(heading); title != "" {
			return title
		}
	}

	if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		if title := collapse(og); title != "" {
			return trimMarketplaceSuffix(title)
		}
	}

	if title := collapse(doc.Find("title").First().Text()); title != "" {
		return trimMarketplaceSuffix(title)
	}

	if product.Title == "" {
		return ""
	}
	if product.Brand != "" && !strings.HasPrefix(strings.ToLower(product.Title), strings.ToLower(product.Brand)) {
		return collapse(product.Brand + " " + product.Title)
	}
	return collapse(product.Title)
}

// headingText joins the heading's child fragments with spaces: the
// marketplace splits brand and product name into adjacent inline nodes
// whose plain concatenation would jam the words together.
func headingText(heading *goquery.Selection) string {
	var parts []string
	if own := strings.TrimSpace(document.OwnText(heading)); own != "" {
		parts = append(parts, own)
	}
	heading.Children().Each(func(_ int, child *goquery.Selection) {
		if text := strings.TrimSpace(child.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return collapse(heading.Text())
	}
	return collapse(strings.Join(parts, " "))
}

var descriptionSelectors = []string{
	".detail-desc-list",
	".product-description-content",
	".info-wrapper .detail-desc-item",
	"#product-detail-description",
}

func (s *Service) resolveDescription(doc *document.Document, product structured.Product) string {
	for _, selector := range descriptionSelectors {
		if text := collapse(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return collapse(product.Description)
}

var marketplaceSuffixes = []string{" - Trendyol", " | Trendyol"}

func trimMarketplaceSuffix(title string) string {
	for _, suffix := range marketplaceSuffixes {
		if idx := strings.Index(title, suffix); idx > 0 {
			return strings.TrimSpace(title[:idx])
		}
	}
	return title
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
