// Package openfoodfacts is a read-only client for the Open Food Facts v2 API.
package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dukerupert/smartgrocery/internal/model"
)

const (
	DefaultBaseURL   = "https://world.openfoodfacts.net/api/v2/"
	DefaultFields    = "product_name,nutrition_grades,nutriments"
	DefaultPageSize  = 10
	defaultUserAgent = "smartgrocery/1.0"
)

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("open food facts returned status %d", e.StatusCode)
}

type Client struct {
	baseURL    *url.URL
	pageSize   int
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL points the client at another API root. A trailing slash is added
// when missing so relative endpoint paths resolve beneath it.
func WithBaseURL(raw string) Option {
	return func(cl *Client) {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		if u, err := url.Parse(raw); err == nil {
			cl.baseURL = u
		}
	}
}

func WithPageSize(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.pageSize = n
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// WithTimeout overrides the request timeout. It applies to a client given
// through WithHTTPClient too, regardless of option order, without changing
// that client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient returns a client with a 10 second timeout whose transport records
// an OpenTelemetry span per request.
func NewClient(opts ...Option) *Client {
	base, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		baseURL:   base,
		pageSize:  DefaultPageSize,
		userAgent: defaultUserAgent,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// GetProductByBarcode fetches a single product. A product that does not exist
// usually comes back as status 0 in a successful response rather than an error.
func (c *Client) GetProductByBarcode(ctx context.Context, barcode string) (*model.ProductResponse, error) {
	q := url.Values{}
	q.Set("fields", DefaultFields)

	var resp model.ProductResponse
	if err := c.get(ctx, "product/"+barcode, q, &resp); err != nil {
		return nil, fmt.Errorf("get product %s: %w", barcode, err)
	}
	return &resp, nil
}

// SearchProductByName runs a full-text product search and returns one page.
func (c *Client) SearchProductByName(ctx context.Context, name string) (*model.SearchResponse, error) {
	q := url.Values{}
	q.Set("search_terms", name)
	q.Set("fields", DefaultFields)
	q.Set("page_size", strconv.Itoa(c.pageSize))

	resp := model.SearchResponse{Page: 1}
	if err := c.get(ctx, "search", q, &resp); err != nil {
		return nil, fmt.Errorf("search products %q: %w", name, err)
	}
	if resp.Products == nil {
		resp.Products = []model.Product{}
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	ref := &url.URL{Path: path, RawQuery: q.Encode()}
	u := c.baseURL.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
