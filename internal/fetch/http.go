package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-resty/resty/v2"

	"whatsup-go/internal/config"
	"whatsup-go/internal/whatsup"
)

// DefaultMaxBodyBytes caps how much of a page is read.
const DefaultMaxBodyBytes = 4 << 20

// HTTPFetcher implements whatsup.Fetcher with a GET request per check.
// Only 2xx responses count as content; anything else is a *whatsup.FetchError
// carrying the status code. Bodies larger than the cap are truncated.
type HTTPFetcher struct {
	client  *resty.Client
	maxBody int64
}

var _ whatsup.Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates an HTTPFetcher from the fetch section of the config.
// Deadlines come from the context passed to Fetch, not from the client.
func NewHTTPFetcher(cfg config.FetchConfig) *HTTPFetcher {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	client := resty.New().
		SetRetryCount(0).
		SetHeader("Accept", "text/html, text/plain, */*")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &HTTPFetcher{
		client:  client,
		maxBody: maxBody,
	}
}

// Fetch retrieves address and returns its body.
func (f *HTTPFetcher) Fetch(ctx context.Context, address string) ([]byte, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(address)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", address, err)
	}

	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		// Drain a little so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(body, 4096))
		return nil, &whatsup.FetchError{
			StatusCode: resp.StatusCode(),
			Err:        errors.New(http.StatusText(resp.StatusCode())),
		}
	}

	content, err := io.ReadAll(io.LimitReader(body, f.maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", address, err)
	}
	return content, nil
}
