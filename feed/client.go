package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const maxFeedBytes = 8 << 20 // body guard; feeds with thousands of listings stay well under this

// Client fetches remote XML feed bodies. There is no retry policy: a
// failed fetch is terminal for that source for the run, and the caller
// skips the source.
type Client struct {
	http    *retryablehttp.Client
	limiter *rate.Limiter
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil
	rc.HTTPClient.Timeout = timeout
	// hand non-2xx responses back to the caller instead of retrying them
	rc.CheckRetry = func(_ context.Context, _ *http.Response, err error) (bool, error) {
		return false, err
	}

	return &Client{
		http: rc,
		// one request per 200ms keeps multi-source runs polite to the feed host
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
	}
}

// Fetch retrieves one feed body as bytes. Non-2xx responses are errors.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/xml, text/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("feed fetch %s: status %d", url, resp.StatusCode)
	}
	return readAllLimit(resp.Body, maxFeedBytes)
}

func readAllLimit(r io.Reader, limit int64) ([]byte, error) {
	lr := io.LimitReader(r, limit+1)
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.New("feed body too large")
	}
	return b, nil
}
