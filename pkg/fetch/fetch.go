// Package fetch downloads remote build artifacts with a bounded retry loop.
//
// The fetcher is deliberately synchronous: a failed attempt sleeps for the
// configured wait and retries until the deadline derived from the retry
// duration passes. The caller's context cancels both the in-flight request
// and the sleep between attempts.
package fetch

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// DownloadError reports a download that failed after all permitted attempts.
type DownloadError struct {
	// URL is the artifact URL that could not be fetched
	URL string

	// StatusCode is the last HTTP status observed, or 0 for transport errors
	StatusCode int

	// Attempts is the number of attempts made before giving up
	Attempts int

	// Err is the last underlying transport error, if any
	Err error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download of %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("download of %s failed after %d attempt(s): status %d", e.URL, e.Attempts, e.StatusCode)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Fetcher retrieves remote artifacts into local temp files.
type Fetcher struct {
	// Client is the HTTP client used for requests. Defaults to http.DefaultClient.
	Client *http.Client

	// Logger reports per-attempt progress at debug level. Optional.
	Logger *zap.Logger
}

// Result describes a completed download.
type Result struct {
	// LocalPath is the temp file holding the downloaded bytes
	LocalPath string

	// SHA256 is the hex-encoded digest of the downloaded bytes
	SHA256 string

	// Size is the number of bytes downloaded
	Size int64
}

// Fetch downloads url into a temporary file, hashing the payload as it streams.
//
// Responses are requested with cache-busting headers so a stale intermediary
// can never satisfy the request. On a non-2xx response or transport error the
// fetcher sleeps retryWait and tries again, as long as now+retryWait is still
// within the deadline start+retryDuration. A non-positive retryDuration or
// retryWait means exactly one attempt.
//
// The caller owns the returned temp file and is responsible for removing it.
func (f *Fetcher) Fetch(ctx context.Context, url string, retryDuration, retryWait time.Duration) (*Result, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	deadline := start.Add(retryDuration)
	retriable := retryDuration > 0 && retryWait > 0

	attempts := 0
	for {
		attempts++
		result, status, err := f.attempt(ctx, client, url)
		if err == nil {
			return result, nil
		}
		if f.Logger != nil {
			f.Logger.Debug("artifact download attempt failed",
				zap.String("url", url),
				zap.Int("attempt", attempts),
				zap.Int("status", status),
				zap.Error(err))
		}

		if !retriable || time.Now().Add(retryWait).After(deadline) {
			return nil, &DownloadError{URL: url, StatusCode: status, Attempts: attempts, Err: unwrapTransport(err, status)}
		}

		select {
		case <-ctx.Done():
			return nil, &DownloadError{URL: url, StatusCode: status, Attempts: attempts, Err: ctx.Err()}
		case <-time.After(retryWait):
		}
	}
}

// attempt performs a single download. It returns the HTTP status observed
// (0 for transport failures) so the retry loop can surface it.
func (f *Fetcher) attempt(ctx context.Context, client *http.Client, url string) (*Result, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	// reloadIgnoringCache semantics: never accept a cached copy
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp("", "fairtool-artifact-*")
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	hasher := sha256.New()
	writer := bufio.NewWriter(io.MultiWriter(tmpFile, hasher))
	size, err := io.Copy(writer, resp.Body)
	if err == nil {
		err = writer.Flush()
	}
	if closeErr := tmpFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return nil, resp.StatusCode, fmt.Errorf("failed to write artifact: %w", err)
	}

	return &Result{
		LocalPath: tmpPath,
		SHA256:    hex.EncodeToString(hasher.Sum(nil)),
		Size:      size,
	}, resp.StatusCode, nil
}

// unwrapTransport drops the synthetic status error so DownloadError does not
// stutter ("status 404: unexpected status 404").
func unwrapTransport(err error, status int) error {
	if status != 0 {
		return nil
	}
	return err
}
