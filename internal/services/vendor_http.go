package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// vendorHTTPError carries a non-2xx vendor response so retry policy can key
// off the status code.
type vendorHTTPError struct {
	Vendor     string
	StatusCode int
	Body       string
}

func (e *vendorHTTPError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Vendor, e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	if code >= 500 && code <= 599 {
		return true
	}
	return false
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		// caller gave up; retrying (and sleeping a backoff first) is wasted work
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// per-attempt timeout; the call loop's ctx.Err() check stops us when
		// the caller's own deadline is the one that expired
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}
	var httpErr *vendorHTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTP(httpErr.StatusCode)
	}
	return false
}

func jitterSleep(base time.Duration) time.Duration {
	// +/- 20%
	if base <= 0 {
		return 0
	}
	j := 0.2
	delta := base.Seconds() * j
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

// retryAfter prefers the vendor's Retry-After header over our backoff, capped
// at 10s before jitter.
func retryAfter(resp *http.Response, backoff time.Duration) time.Duration {
	sleepFor := backoff
	if resp != nil {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			var secs int
			if _, err := fmt.Sscanf(ra, "%d", &secs); err == nil && secs > 0 {
				sleepFor = time.Duration(secs) * time.Second
			}
		}
	}
	if sleepFor > 10*time.Second {
		sleepFor = 10 * time.Second
	}
	return jitterSleep(sleepFor)
}

// downloadToFile streams a GET of url into path. The destination is written
// via a temp file and renamed so a dropped connection never leaves a partial
// candidate behind.
func downloadToFile(ctx context.Context, client *http.Client, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &vendorHTTPError{Vendor: "download", StatusCode: resp.StatusCode, Body: string(raw)}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
