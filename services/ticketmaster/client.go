package ticketmaster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://app.ticketmaster.com"

// ErrNotConfigured is returned when no API key is set. No request is made.
var ErrNotConfigured = errors.New("ticketmaster api key is missing")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ticketmaster api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("ticketmaster api error: status %d: %s", e.StatusCode, e.Body)
}

// Query holds the filters of one Discovery API events search.
type Query struct {
	City        string
	CountryCode string
	SegmentName string
	Size        int
}

// Key is a stable identifier for the query, used for caching and logging.
func (q Query) Key() string {
	return strings.ToLower(fmt.Sprintf("city=%s|country=%s|segment=%s|size=%d", q.City, q.CountryCode, q.SegmentName, q.Size))
}

// Client talks to the Ticketmaster Discovery API.
type Client struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

// NewClient creates a client. A nil httpc gets a client with the given timeout.
func NewClient(apiKey, baseURL string, timeout time.Duration, httpc *http.Client) *Client {
	if httpc == nil {
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpc = &http.Client{Timeout: timeout}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   httpc,
	}
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// SearchEvents runs one events search and returns the raw provider events.
func (c *Client) SearchEvents(ctx context.Context, q Query) ([]Event, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	endpoint := c.baseURL + "/discovery/v2/events.json?" + c.values(q).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create ticketmaster request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ticketmaster request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode ticketmaster response: %w", err)
	}
	if payload.Embedded == nil {
		return nil, nil
	}
	return payload.Embedded.Events, nil
}

func (c *Client) values(q Query) url.Values {
	size := q.Size
	if size <= 0 {
		size = 50
	}
	v := url.Values{}
	v.Set("size", strconv.Itoa(size))
	v.Set("apikey", c.apiKey)
	if city := strings.TrimSpace(q.City); city != "" {
		v.Set("city", city)
	}
	if cc := strings.TrimSpace(q.CountryCode); cc != "" {
		v.Set("countryCode", cc)
	}
	if seg := strings.TrimSpace(q.SegmentName); seg != "" {
		v.Set("segmentName", seg)
	}
	return v
}
