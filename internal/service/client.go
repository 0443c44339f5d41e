package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jjenkins/statehouse/internal/model"
)

const (
	// DefaultBaseURL is the OpenStates v3 API root.
	DefaultBaseURL = "https://v3.openstates.org"

	defaultTimeout   = 120 * time.Second
	defaultPageDelay = 20 * time.Second // hard per-key rate limit; do not remove
	defaultListDelay = 5 * time.Second
	defaultPageSize  = 20

	jurisdictionPageSize = 52 // one page covers all states
)

// billIncludes is the fixed set of related resources requested with every
// bill listing fetch.
var billIncludes = []string{
	"sponsorships",
	"abstracts",
	"other_titles",
	"other_identifiers",
	"actions",
	"sources",
	"documents",
	"versions",
	"votes",
}

// ErrRateLimited signals an HTTP 429; recovered by credential rotation.
var ErrRateLimited = errors.New("rate limited (HTTP 429)")

// UpstreamError is any other non-success response from the API. It is not
// retried automatically.
type UpstreamError struct {
	Status int
	URL    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.Status, e.URL)
}

// ClientConfig controls the OpenStates client. Zero values fall back to the
// documented defaults.
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	PageDelay time.Duration
	ListDelay time.Duration
	PageSize  int
}

// Client handles communication with the OpenStates v3 API
type Client struct {
	client    *http.Client
	baseURL   string
	pageDelay time.Duration
	listDelay time.Duration
	pageSize  int
}

// NewClient creates a new OpenStates API client
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PageDelay == 0 {
		cfg.PageDelay = defaultPageDelay
	}
	if cfg.ListDelay == 0 {
		cfg.ListDelay = defaultListDelay
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = defaultPageSize
	}

	return &Client{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   cfg.BaseURL,
		pageDelay: cfg.PageDelay,
		listDelay: cfg.ListDelay,
		pageSize:  cfg.PageSize,
	}
}

// BillsPage is one page of raw bill records plus the listing's page count
type BillsPage struct {
	Results []json.RawMessage
	MaxPage int
}

// pageEnvelope represents the API's paginated response envelope
type pageEnvelope struct {
	Results    []json.RawMessage `json:"results"`
	Pagination struct {
		MaxPage int `json:"max_page"`
	} `json:"pagination"`
}

// FetchBillsPage retrieves one page of a jurisdiction's bill listing
func (c *Client) FetchBillsPage(ctx context.Context, jurisdictionID string, page int, apiKey string) (*BillsPage, error) {
	params := url.Values{}
	params.Set("jurisdiction", jurisdictionID)
	params.Set("sort", "updated_desc")
	for _, include := range billIncludes {
		params.Add("include", include)
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(c.pageSize))
	params.Set("apikey", apiKey)

	body, err := c.get(ctx, fmt.Sprintf("%s/bills?%s", c.baseURL, params.Encode()))
	if err != nil {
		return nil, err
	}

	var resp pageEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse bills response: %w", err)
	}

	return &BillsPage{Results: resp.Results, MaxPage: resp.Pagination.MaxPage}, nil
}

// FetchBill retrieves a single bill by its OpenStates id
func (c *Client) FetchBill(ctx context.Context, billID string, apiKey string) (json.RawMessage, error) {
	params := url.Values{}
	for _, include := range billIncludes {
		params.Add("include", include)
	}
	params.Add("include", "related_bills")
	params.Set("apikey", apiKey)

	body, err := c.get(ctx, fmt.Sprintf("%s/bills/%s?%s", c.baseURL, url.PathEscape(billID), params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bill %s: %w", billID, err)
	}

	return json.RawMessage(body), nil
}

// jurisdictionJSON represents a jurisdiction in the list response
type jurisdictionJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FetchJurisdictions retrieves the list of state jurisdictions. Only the
// first page is consulted; one page covers all states.
func (c *Client) FetchJurisdictions(ctx context.Context, apiKey string) ([]model.JurisdictionMeta, error) {
	params := url.Values{}
	params.Set("classification", "state")
	params.Set("page", "1")
	params.Set("per_page", strconv.Itoa(jurisdictionPageSize))
	params.Set("apikey", apiKey)

	body, err := c.get(ctx, fmt.Sprintf("%s/jurisdictions?%s", c.baseURL, params.Encode()))
	if err != nil {
		return nil, err
	}

	var resp pageEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse jurisdictions response: %w", err)
	}

	jurisdictions := make([]model.JurisdictionMeta, 0, len(resp.Results))
	for _, raw := range resp.Results {
		var j jurisdictionJSON
		if err := json.Unmarshal(raw, &j); err != nil {
			return nil, fmt.Errorf("failed to parse jurisdiction entry: %w", err)
		}
		jurisdictions = append(jurisdictions, model.JurisdictionMeta{ID: j.ID, Name: j.Name})
	}

	return jurisdictions, nil
}

// get performs a single HTTP GET. Rate limiting and other non-200 statuses
// surface as typed errors; retry policy belongs to the caller, which owns
// credential rotation.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Status: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}

// PageDelay returns the delay imposed after every bills-page fetch
func (c *Client) PageDelay() time.Duration {
	return c.pageDelay
}

// ListDelay returns the delay imposed after list and single-bill fetches
func (c *Client) ListDelay() time.Duration {
	return c.listDelay
}
