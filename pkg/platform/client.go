package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout bounds a single platform API request, including retries.
const DefaultTimeout = 30 * time.Second

// Client is a platform API client bound to at most one bearer token. The
// zero-token client can only call Login; WithToken derives an authenticated
// client for a session without copying transport state.
type Client struct {
	baseURL url.URL
	http    *retryablehttp.Client
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.HTTPClient.Timeout = d }
}

// WithRetryMax overrides the maximum retry count of the transport.
func WithRetryMax(n int) Option {
	return func(c *Client) { c.http.RetryMax = n }
}

// WithTracing instruments the transport so each platform request produces a
// client span under the active trace.
func WithTracing() Option {
	return func(c *Client) {
		c.http.HTTPClient.Transport = otelhttp.NewTransport(c.http.HTTPClient.Transport)
	}
}

// NewClient creates a client for the platform API at the given base address,
// in the form [scheme://]host[:port][/api-path].
func NewClient(address string, opts ...Option) (*Client, error) {
	if !strings.Contains(address, "://") {
		address = "https://" + address
	}
	u, err := url.Parse(address)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid platform address %q", address)
	}
	if u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return nil, errors.New("platform address must be of the form [scheme://]host[:port][/path]")
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = DefaultTimeout

	c := &Client{baseURL: *u, http: rc}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Address returns the client's base address.
func (c *Client) Address() string { return c.baseURL.String() }

// WithToken returns a copy of the client that authenticates with the given
// bearer token. The transport is shared; sessions are cheap.
func (c *Client) WithToken(token string) *Client {
	derived := *c
	derived.token = token
	return &derived
}

// APIError is an error response from the platform API.
type APIError struct {
	Status int    `json:"-"`
	Msg    string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform API error (HTTP %d): %s", e.Status, e.Msg)
}

// IsNotFound reports whether err is a 404 from the platform API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// do issues a request and decodes the JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, method, apiPath string, query url.Values, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		body = buf
	}

	u := c.baseURL
	u.Path = joinPath(u.Path, apiPath)
	u.RawQuery = query.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, apiPath)
	}
	defer resp.Body.Close()

	if err := errorFromResponse(resp); err != nil {
		return errors.Wrapf(err, "%s %s", method, apiPath)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding %s %s response", method, apiPath)
	}
	return nil
}

// listEnvelope is the paginated wrapper the platform puts around list
// responses.
type listEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

// list fetches every page of a list endpoint and returns the concatenated
// items.
func list[T any](ctx context.Context, c *Client, apiPath string, query url.Values) ([]T, error) {
	var all []T
	next := apiPath
	for next != "" {
		var env listEnvelope
		if err := c.do(ctx, http.MethodGet, next, query, nil, &env); err != nil {
			return nil, err
		}
		var page []T
		if err := json.Unmarshal(env.Data, &page); err != nil {
			return nil, errors.Wrapf(err, "decoding %s page", apiPath)
		}
		all = append(all, page...)

		// Subsequent pages carry their own query string in the next link.
		next = ""
		if env.Links.Next != "" {
			nextURL, err := url.Parse(env.Links.Next)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s next link", apiPath)
			}
			next = nextURL.Path
			query = nextURL.Query()
		}
	}
	return all, nil
}

func errorFromResponse(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	if err == nil {
		_ = json.Unmarshal(raw, apiErr)
	}
	if apiErr.Msg == "" {
		apiErr.Msg = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func joinPath(base, p string) string {
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return base + p
}
