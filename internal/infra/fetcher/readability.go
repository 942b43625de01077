package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"channel-digest/internal/resilience/circuitbreaker"
	"channel-digest/internal/resilience/retry"
	"channel-digest/internal/utils/text"
)

const userAgent = "ChannelDigestBot/1.0"

// ReadabilityFetcher extracts article text with Mozilla's Readability
// algorithm, falling back to og:description plus paragraph text.
// It is safe for concurrent use.
type ReadabilityFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	config         Config
}

// NewReadabilityFetcher creates a fetcher whose redirects are re-validated
// against the same SSRF rules as the original URL.
func NewReadabilityFetcher(cfg Config) *ReadabilityFetcher {
	f := &ReadabilityFetcher{
		circuitBreaker: circuitbreaker.New(circuitbreaker.ContentFetchConfig()),
		config:         cfg,
	}
	f.client = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > f.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateURL(req.URL.String(), f.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}
	return f
}

// FetchContent returns the readable text of the page at urlStr.
func (f *ReadabilityFetcher) FetchContent(ctx context.Context, urlStr string) (string, error) {
	if err := validateURL(urlStr, f.config.DenyPrivateIPs); err != nil {
		return "", err
	}

	var content string
	err := retry.WithBackoff(ctx, f.config.Retry, func() error {
		out, err := circuitbreaker.Do(f.circuitBreaker, func() (string, error) {
			return f.doFetch(ctx, urlStr)
		})
		if err != nil {
			return err
		}
		content = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func (f *ReadabilityFetcher) doFetch(ctx context.Context, urlStr string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w: request exceeded %v", ErrTimeout, f.config.Timeout)
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && (errors.Is(urlErr.Err, ErrTooManyRedirects) || errors.Is(urlErr.Err, ErrPrivateIP) || errors.Is(urlErr.Err, ErrInvalidURL)) {
			return "", urlErr.Err
		}
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > f.config.MaxBodySize {
		return "", fmt.Errorf("%w: response exceeds limit %d bytes", ErrBodyTooLarge, f.config.MaxBodySize)
	}

	pageURL := resp.Request.URL
	if content := extractReadable(body, pageURL); content != "" {
		return content, nil
	}

	slog.Debug("readability found nothing, using html fallback", slog.String("url", urlStr))
	content, err := extractFallback(body)
	if err != nil {
		return "", err
	}
	return content, nil
}

func extractReadable(body []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return ""
	}
	return text.CollapseSpace(article.TextContent)
}

// extractFallback joins og:description (or the description meta tag) with
// the text of every paragraph.
func extractFallback(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoContent, err)
	}

	var parts []string
	desc := doc.Find(`meta[property="og:description"]`).AttrOr("content", "")
	if desc == "" {
		desc = doc.Find(`meta[name="description"]`).AttrOr("content", "")
	}
	if desc = text.CollapseSpace(desc); desc != "" {
		parts = append(parts, desc)
	}
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if p := text.CollapseSpace(s.Text()); p != "" {
			parts = append(parts, p)
		}
	})

	if len(parts) == 0 {
		return "", ErrNoContent
	}
	return strings.Join(parts, "\n"), nil
}
