package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/osei-labs/flocktrack-backend/pkg/config"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

var (
	errBaseURLRequired = errors.New("sms base URL is required")
	errAPIKeyRequired  = errors.New("sms api key is required")
)

// Client sends text messages through the bulk-SMS vendor.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	senderID   string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the SMS client from configuration.
func NewClient(cfg config.SMSConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		senderID:   strings.TrimSpace(cfg.SenderID),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// SendParams describes one outbound message to a set of recipients.
type SendParams struct {
	Recipients []string `json:"recipients"`
	Message    string   `json:"message"`
	SenderID   string   `json:"sender,omitempty"`
}

// SendResult reports per-recipient vendor acknowledgement.
type SendResult struct {
	Accepted int      `json:"accepted"`
	Failed   []string `json:"failed,omitempty"`
}

// Send delivers one message to the given recipients. The vendor accepts
// partial batches, so a non-empty Failed list is not an error.
func (c *Client) Send(ctx context.Context, params SendParams) (*SendResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "sms client not configured")
	}
	if len(params.Recipients) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one recipient is required")
	}
	if strings.TrimSpace(params.Message) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}
	if strings.TrimSpace(params.SenderID) == "" {
		params.SenderID = c.senderID
	}

	payload, err := json.Marshal(params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal sms request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build sms request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute sms request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		code := pkgerrors.CodeDependency
		if resp.StatusCode == http.StatusTooManyRequests {
			code = pkgerrors.CodeRateLimit
		}
		return nil, pkgerrors.Wrap(code, cause, "sms send failed")
	}

	var result SendResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode sms response")
	}
	return &result, nil
}
