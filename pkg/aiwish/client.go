package aiwish

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

const (
	responseBodyReadLimit int64 = 1024
	maxWishTokens               = 120
)

var (
	errBaseURLRequired = errors.New("wishes base URL is required")
	errAPIKeyRequired  = errors.New("wishes api key is required")
)

// Client generates short personalized birthday wishes through a
// chat-completions vendor. Callers fall back to StaticWish when the
// vendor is slow or unavailable.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
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

// NewClient builds the wish generator from configuration.
func NewClient(cfg config.WishesConfig, opts ...Option) (*Client, error) {
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
		timeout = 8 * time.Second
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

// Generate asks the vendor for a wish addressed to the given first name.
func (c *Client) Generate(ctx context.Context, firstName string) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "wish client not configured")
	}
	name := strings.TrimSpace(firstName)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "first name is required")
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You write short, warm birthday wishes for church members. One or two sentences, no hashtags."},
			{Role: "user", Content: fmt.Sprintf("Write a birthday wish for %s.", name)},
		},
		MaxTokens: maxWishTokens,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal wish request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build wish request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute wish request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "wish request failed")
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode wish response")
	}

	if len(apiResp.Choices) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "wish response contained no choices")
	}
	wish := strings.TrimSpace(apiResp.Choices[0].Message.Content)
	if wish == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "wish response was empty")
	}
	return wish, nil
}

// StaticWish is the template used when generation fails.
func StaticWish(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		return "Happy birthday! Wishing you a year full of grace and favor."
	}
	return fmt.Sprintf("Happy birthday, %s! Wishing you a year full of grace and favor.", name)
}
