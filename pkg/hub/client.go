package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// DefaultBaseURL is the public forge API endpoint.
const DefaultBaseURL = "https://api.github.com"

// perPage is the page size used for list queries.
const perPage = 100

var (
	// ErrRequestLimit is returned when a point lookup would exceed the
	// configured API request budget.
	ErrRequestLimit = errors.New("hub request limit exhausted")

	// ErrNotFound is returned for 404 responses on point lookups.
	ErrNotFound = errors.New("hub resource not found")
)

// APIError reports a non-2xx hub response.
type APIError struct {
	StatusCode int
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hub request %s failed with status %d", e.URL, e.StatusCode)
}

// Client is a minimal forge API client with a shared request budget.
// Methods are safe for sequential use; the budget is not synchronized
// because catalog building is single-threaded.
type Client struct {
	// BaseURL is the API root. Defaults to DefaultBaseURL.
	BaseURL string

	// Token is an optional bearer token for authenticated requests.
	Token string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger reports request activity at debug level. Optional.
	Logger *zap.Logger

	// remaining is the API call budget; negative means unlimited.
	remaining int
}

// NewClient builds a client with the given request budget. A non-positive
// requestLimit means unlimited.
func NewClient(baseURL, token string, requestLimit int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if requestLimit <= 0 {
		requestLimit = -1
	}
	return &Client{BaseURL: baseURL, Token: token, remaining: requestLimit}
}

// Remaining returns the unused request budget, or -1 when unlimited.
func (c *Client) Remaining() int { return c.remaining }

// spend consumes one request from the budget.
func (c *Client) spend() bool {
	if c.remaining < 0 {
		return true
	}
	if c.remaining == 0 {
		return false
	}
	c.remaining--
	return true
}

// ListForkReleases pages through the forks of owner/baseRepo and resolves
// each fork's latest release. Forks without releases are skipped. Paging
// ends cleanly when the request budget runs out; the records gathered so
// far are returned.
func (c *Client) ListForkReleases(ctx context.Context, owner, baseRepo string) ([]AppRecord, error) {
	var records []AppRecord
	for page := 1; ; page++ {
		if !c.spend() {
			c.debug("request budget exhausted during fork paging", zap.Int("page", page))
			return records, nil
		}

		var forks []Repo
		path := fmt.Sprintf("/repos/%s/%s/forks?per_page=%d&page=%d",
			url.PathEscape(owner), url.PathEscape(baseRepo), perPage, page)
		if err := c.get(ctx, path, &forks); err != nil {
			return nil, fmt.Errorf("failed to list forks of %s/%s: %w", owner, baseRepo, err)
		}
		if len(forks) == 0 {
			return records, nil
		}

		for _, fork := range forks {
			if fork.Archived {
				continue
			}
			release, err := c.LatestRelease(ctx, ownerOf(fork), fork.Name)
			if errors.Is(err, ErrNotFound) {
				c.debug("fork has no release, skipping", zap.String("repo", fork.FullName))
				continue
			}
			if errors.Is(err, ErrRequestLimit) {
				c.debug("request budget exhausted during release lookups")
				return records, nil
			}
			if err != nil {
				return nil, fmt.Errorf("failed to resolve release for %s: %w", fork.FullName, err)
			}
			records = append(records, AppRecord{Repo: fork, Release: *release})
		}

		if len(forks) < perPage {
			return records, nil
		}
	}
}

// LatestRelease fetches the newest published release of a repository.
// Returns ErrNotFound when the repository has never published one.
func (c *Client) LatestRelease(ctx context.Context, owner, repo string) (*Release, error) {
	if !c.spend() {
		return nil, ErrRequestLimit
	}
	var release Release
	path := fmt.Sprintf("/repos/%s/%s/releases/latest", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.get(ctx, path, &release); err != nil {
		return nil, err
	}
	return &release, nil
}

// GetFairSeal looks up the seal posted for a release tag. The seal's asset
// list carries the attested artifact hashes. Returns ErrNotFound when no
// seal was ever posted for that tag.
func (c *Client) GetFairSeal(ctx context.Context, owner, repo, tag string) (*SignedSeal, error) {
	if !c.spend() {
		return nil, ErrRequestLimit
	}
	var signed SignedSeal
	path := fmt.Sprintf("/repos/%s/%s/fairseals/%s",
		url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(tag))
	if err := c.get(ctx, path, &signed); err != nil {
		return nil, err
	}
	return &signed, nil
}

// PostFairSeal publishes a signed seal for a release tag.
func (c *Client) PostFairSeal(ctx context.Context, owner, repo, tag string, signed *SignedSeal) error {
	if !c.spend() {
		return ErrRequestLimit
	}
	body, err := json.Marshal(signed)
	if err != nil {
		return fmt.Errorf("failed to encode seal: %w", err)
	}
	path := fmt.Sprintf("/repos/%s/%s/fairseals/%s",
		url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(tag))
	return c.do(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	fullURL := base + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	c.debug("hub request", zap.String("method", method), zap.String("url", fullURL))

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("hub request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, URL: fullURL}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode hub response: %w", err)
	}
	return nil
}

func (c *Client) debug(msg string, fields ...zap.Field) {
	if c.Logger != nil {
		c.Logger.Debug(msg, fields...)
	}
}

// ownerOf extracts the owner from a repo's full name, falling back to the
// repo name itself for malformed records.
func ownerOf(r Repo) string {
	for i := 0; i < len(r.FullName); i++ {
		if r.FullName[i] == '/' {
			return r.FullName[:i]
		}
	}
	return r.FullName
}
