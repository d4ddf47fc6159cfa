package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultSendAPIURL is the Graph API endpoint for page messages.
const DefaultSendAPIURL = "https://graph.facebook.com/v2.6/me/messages"

// Sender delivers outbound messages.
type Sender interface {
	Deliver(ctx context.Context, msg Message) Result
}

// Result reports the outcome of a single delivery. Err is nil on success.
type Result struct {
	RecipientID string
	MessageID   string
	StatusCode  int
	Err         error

	// DeliveryID is set by the Outbox to correlate a queued message with
	// its eventual delivery in the logs.
	DeliveryID string
}

func (r Result) OK() bool { return r.Err == nil }

// APIError is the error object returned by the Send API.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       int    `json:"code"`
	TraceID    string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("send api: status %d: %s (type=%s code=%d)", e.StatusCode, e.Message, e.Type, e.Code)
}

// Client posts messages to the Send API with a page access token.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

func NewClient(endpoint, pageAccessToken string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultSendAPIURL
	}
	return &Client{
		endpoint: endpoint,
		token:    pageAccessToken,
		http:     &http.Client{Timeout: timeout},
	}
}

type sendResponse struct {
	RecipientID string    `json:"recipient_id"`
	MessageID   string    `json:"message_id"`
	Error       *APIError `json:"error"`
}

func (c *Client) Deliver(ctx context.Context, msg Message) Result {
	res := Result{RecipientID: msg.Recipient.ID}

	body, err := json.Marshal(msg)
	if err != nil {
		res.Err = fmt.Errorf("encoding message: %w", err)
		return res
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		res.Err = fmt.Errorf("parsing send api url: %w", err)
		return res
	}
	q := u.Query()
	q.Set("access_token", c.token)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		res.Err = fmt.Errorf("building request: %w", err)
		return res
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		res.Err = fmt.Errorf("calling send api: %w", err)
		return res
	}
	defer resp.Body.Close()
	res.StatusCode = resp.StatusCode

	var sr sendResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&sr); err != nil && resp.StatusCode == http.StatusOK {
		res.Err = fmt.Errorf("decoding send api response: %w", err)
		return res
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := sr.Error
		if apiErr == nil {
			apiErr = &APIError{Message: http.StatusText(resp.StatusCode)}
		}
		apiErr.StatusCode = resp.StatusCode
		res.Err = apiErr
		return res
	}

	if sr.RecipientID != "" {
		res.RecipientID = sr.RecipientID
	}
	res.MessageID = sr.MessageID
	return res
}
