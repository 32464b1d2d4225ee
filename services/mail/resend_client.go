package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"spot/internal/metrics"
)

const resendBaseURL = "https://api.resend.com"

// ErrNotConfigured is returned before any network call when no API key is set.
var ErrNotConfigured = errors.New("resend api key not configured")

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("resend api error %d (%s): %s", e.StatusCode, e.Name, e.Message)
	}
	return fmt.Sprintf("resend api error %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the request may succeed if repeated.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Email is one outbound message.
type Email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Text    string   `json:"text,omitempty"`
	HTML    string   `json:"html,omitempty"`
}

// Contact is an audience member.
type Contact struct {
	Email        string `json:"email"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Unsubscribed bool   `json:"unsubscribed"`
}

// Client is a minimal Resend REST client.
type Client struct {
	apiKey   string
	baseURL  string
	httpc    *http.Client
	attempts uint
	delay    time.Duration
}

// NewClient creates a client. A nil httpc gets one with the given timeout.
func NewClient(apiKey, baseURL string, timeout time.Duration, httpc *http.Client) *Client {
	if httpc == nil {
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpc = &http.Client{Timeout: timeout}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = resendBaseURL
	}
	return &Client{
		apiKey:   strings.TrimSpace(apiKey),
		baseURL:  strings.TrimRight(baseURL, "/"),
		httpc:    httpc,
		attempts: 3,
		delay:    500 * time.Millisecond,
	}
}

func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// SendEmail delivers msg and returns the provider message id.
func (c *Client) SendEmail(ctx context.Context, msg Email) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	err := c.post(ctx, "email", "/emails", msg, &resp)
	return resp.ID, err
}

// CreateContact adds contact to the audience and returns the contact id.
func (c *Client) CreateContact(ctx context.Context, audienceID string, contact Contact) (string, error) {
	if strings.TrimSpace(audienceID) == "" {
		return "", errors.New("audience id is required")
	}
	var resp struct {
		ID string `json:"id"`
	}
	err := c.post(ctx, "contact", "/audiences/"+url.PathEscape(audienceID)+"/contacts", contact, &resp)
	return resp.ID, err
}

func (c *Client) post(ctx context.Context, kind, path string, body, out any) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", kind, err)
	}

	err = retry.Do(
		func() error { return c.do(ctx, path, payload, out) },
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Temporary()
			}
			// transport errors
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[mail] %s request failed (attempt %d/%d): %v", kind, n+1, c.attempts, err)
		}),
	)
	metrics.MailSends.WithLabelValues(kind, metrics.Outcome(err)).Inc()
	return err
}

func (c *Client) do(ctx context.Context, path string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("create resend request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("resend request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read resend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &body) == nil && body.Message != "" {
			apiErr.Name = body.Name
			apiErr.Message = body.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return retry.Unrecoverable(fmt.Errorf("decode resend response: %w", err))
		}
	}
	return nil
}
