package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/dexmeta/meta-swap-api/internal/logger"
)

// DefaultTimeout is the per-adapter upstream deadline unless an adapter
// overrides it.
const DefaultTimeout = 7 * time.Second

// UpstreamError is a non-2xx response from a provider API, carrying the raw
// body for the adapter's error table.
type UpstreamError struct {
	Status int
	Body   []byte
	URL    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: status %d", e.URL, e.Status)
}

// FetchJSON performs one upstream call with the given deadline and returns
// the response body. Non-2xx responses become *UpstreamError; statuses
// outside [100,600) (some proxies emit 0) are remapped to 500 before
// classification.
func FetchJSON(ctx context.Context, hc *http.Client, timeout time.Duration, method, rawURL string, query url.Values, headers map[string]string, body io.Reader) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if len(query) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logger.Debug("upstream request", logger.Fields{"method": method, "url": rawURL})
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		status := resp.StatusCode
		if status < 100 || status >= 600 {
			status = http.StatusInternalServerError
		}
		return nil, &UpstreamError{Status: status, Body: data, URL: rawURL}
	}
	return data, nil
}

// IsTimeout reports whether an upstream call failed on a deadline or a
// dropped connection; both classify as ProviderTimeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
