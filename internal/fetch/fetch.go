package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emredev/trendyol-listing-extractor/internal/models"
)

// Client retrieves a product page's raw hypertext, first directly and then
// through an ordered list of relay endpoints. Attempts are strictly
// sequential so one logical request never hits several relays at once.
type Client struct {
	http           *http.Client
	hosts          []string
	relays         []string
	blockMarkers   []string
	userAgent      string
	acceptLanguage string
	attemptTimeout time.Duration
	minBodyBytes   int
	maxBodyBytes   int64
	logger         *slog.Logger
}

type Options struct {
	Hosts          []string
	Relays         []string
	BlockMarkers   []string
	UserAgent      string
	AcceptLanguage string
	AttemptTimeout time.Duration
	MinBodyBytes   int
	MaxBodyBytes   int64
}

func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.AttemptTimeout == 0 {
		opts.AttemptTimeout = 20 * time.Second
	}
	if opts.MinBodyBytes == 0 {
		opts.MinBodyBytes = 500
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 10 << 20
	}

	return &Client{
		// Per-attempt deadlines come from the context; the client itself
		// carries no timeout so a generous caller deadline is respected.
		http:           &http.Client{},
		hosts:          opts.Hosts,
		relays:         opts.Relays,
		blockMarkers:   opts.BlockMarkers,
		userAgent:      opts.UserAgent,
		acceptLanguage: opts.AcceptLanguage,
		attemptTimeout: opts.AttemptTimeout,
		minBodyBytes:   opts.MinBodyBytes,
		maxBodyBytes:   opts.MaxBodyBytes,
		logger:         logger.With("component", "fetch"),
	}
}

// Fetch returns the page body for rawURL. The URL must belong to the
// supported marketplace; non-matching hosts fail before any network I/O.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	target, err := url.Parse(rawURL)
	if err != nil || target.Host == "" {
		return "", models.NewExtractionError(models.FailureNotSupportedMarketplace,
			fmt.Errorf("not an absolute url: %q", rawURL))
	}

	if !c.supportedHost(target.Hostname()) {
		return "", models.NewExtractionError(models.FailureNotSupportedMarketplace,
			fmt.Errorf("unsupported host: %s", target.Hostname()))
	}

	attempts := make([]string, 0, len(c.relays)+1)
	attempts = append(attempts, rawURL)
	for _, relay := range c.relays {
		attempts = append(attempts, fmt.Sprintf(relay, url.QueryEscape(rawURL)))
	}

	var lastErr error
	for i, attemptURL := range attempts {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		body, err := c.attempt(ctx, attemptURL)
		if err != nil {
			lastErr = err
			c.logger.Debug("fetch attempt failed", "attempt", i, "error", err)
			continue
		}

		// A block page must never reach the extractors: it can masquerade
		// as a valid listing.
		if marker := c.blockMarker(body); marker != "" {
			c.logger.Warn("fetched body is a block page", "attempt", i, "marker", marker)
			return "", models.NewExtractionError(models.FailureBlocked,
				fmt.Errorf("block marker %q in response", marker))
		}

		c.logger.Debug("fetch succeeded", "attempt", i, "bytes", len(body))
		return body, nil
	}

	return "", models.NewExtractionError(models.FailureAllRelaysExhausted, lastErr)
}

func (c *Client) attempt(ctx context.Context, attemptURL string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, attemptURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.acceptLanguage != "" {
		req.Header.Set("Accept-Language", c.acceptLanguage)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, attemptURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return "", err
	}

	// A realistic listing page is tens of kilobytes; a body of a few
	// hundred bytes is an error page or an empty relay response.
	if len(data) < c.minBodyBytes {
		return "", fmt.Errorf("body too short (%d bytes) from %s", len(data), attemptURL)
	}

	return string(data), nil
}

func (c *Client) supportedHost(host string) bool {
	host = strings.ToLower(host)
	for _, allowed := range c.hosts {
		allowed = strings.ToLower(allowed)
		if strings.HasPrefix(allowed, ".") {
			if strings.HasSuffix(host, allowed) {
				return true
			}
			continue
		}
		if host == allowed {
			return true
		}
	}
	return false
}

func (c *Client) blockMarker(body string) string {
	lower := strings.ToLower(body)
	for _, marker := range c.blockMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return marker
		}
	}
	return ""
}
