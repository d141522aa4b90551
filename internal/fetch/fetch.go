package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jackwood1/woodfamily-ai/internal/metrics"
)

var pdfMagic = []byte("%PDF")

// previewBytes is how much of an unexpected body is kept for diagnosis.
const previewBytes = 200

// ContentError reports that a fetch returned bytes that do not match the
// expected document type, e.g. an HTML error page served where a PDF was
// expected. The preview is for diagnosis; there is no retry since a
// mislabeled response will not self-correct.
type ContentError struct {
	URL         string
	ContentType string
	Preview     string
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("expected PDF response from %s, got content-type %q", e.URL, e.ContentType)
}

// Client retrieves raw league documents. It is a pure fetcher: no retries,
// no caching, no redirect handling beyond the transport's.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a document fetch client with a bounded timeout
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// FetchPDF retrieves a PDF document and validates the magic header.
// A body that does not start with %PDF fails with *ContentError.
func (c *Client) FetchPDF(ctx context.Context, url string) ([]byte, error) {
	body, contentType, err := c.get(ctx, url)
	if err != nil {
		metrics.DocumentFetchesTotal.WithLabelValues("pdf", "error").Inc()
		return nil, err
	}

	if !bytes.HasPrefix(body, pdfMagic) {
		metrics.DocumentFetchesTotal.WithLabelValues("pdf", "bad_content").Inc()
		return nil, &ContentError{
			URL:         url,
			ContentType: contentType,
			Preview:     previewOf(body),
		}
	}

	metrics.DocumentFetchesTotal.WithLabelValues("pdf", "ok").Inc()
	log.Debug().
		Str("url", url).
		Int("bytes", len(body)).
		Msg("PDF fetched")

	return body, nil
}

// FetchHTML retrieves a listing page as text
func (c *Client) FetchHTML(ctx context.Context, url string) (string, error) {
	body, _, err := c.get(ctx, url)
	if err != nil {
		metrics.DocumentFetchesTotal.WithLabelValues("html", "error").Inc()
		return "", err
	}

	metrics.DocumentFetchesTotal.WithLabelValues("html", "ok").Inc()
	return string(body), nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	metrics.DocumentFetchDuration.WithLabelValues().Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

func previewOf(body []byte) string {
	if len(body) > previewBytes {
		body = body[:previewBytes]
	}
	return strings.ToValidUTF8(string(body), "�")
}
