package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/pkg/config"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
)

const requestBodyReadLimit int64 = 1024

var (
	errBaseURLRequired = errors.New("identity base URL is required")
	errAPIKeyRequired  = errors.New("identity api key is required")
)

// Client wraps the external identity provider that stores login credentials.
// Accounts live in the application database; the provider only mirrors them,
// so every call here is replayable from an outbox row.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	namespace  uuid.UUID
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

// NewClient builds the identity client from configuration.
func NewClient(cfg config.IdentityConfig, opts ...Option) (*Client, error) {
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
		timeout = 10 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		namespace:  Namespace(cfg.Namespace),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// DeterministicAuthID derives a stable provider ID from the account email.
// Used as a fallback when the provider is unreachable during account
// creation so the account row never blocks on the vendor.
func (c *Client) DeterministicAuthID(email string) string {
	return DeterministicAuthID(c.namespace, email)
}

// DeterministicAuthID is the namespace-parameterized form used by callers
// that do not hold a configured client.
func DeterministicAuthID(namespace uuid.UUID, email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	return uuid.NewSHA1(namespace, []byte(normalized)).String()
}

// Namespace derives the uuid5 namespace for the configured tenant.
func Namespace(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://flocktrack.app/"+strings.TrimSpace(name)))
}

// UpsertParams carries the mirrored account fields.
type UpsertParams struct {
	AuthID string `json:"auth_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// UpsertAccount creates or refreshes the provider-side record.
func (c *Client) UpsertAccount(ctx context.Context, params UpsertParams) error {
	if strings.TrimSpace(params.AuthID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "auth ID is required")
	}
	if strings.TrimSpace(params.Email) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	return c.do(ctx, http.MethodPut, "accounts/"+url.PathEscape(params.AuthID), params, "upsert account")
}

// DeleteAccount removes the provider-side record.
func (c *Client) DeleteAccount(ctx context.Context, authID string) error {
	if strings.TrimSpace(authID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "auth ID is required")
	}
	err := c.do(ctx, http.MethodDelete, "accounts/"+url.PathEscape(authID), nil, "delete account")
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
		return nil
	}
	return err
}

// SetSuspended toggles the provider-side ban flag.
func (c *Client) SetSuspended(ctx context.Context, authID string, suspended bool) error {
	if strings.TrimSpace(authID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "auth ID is required")
	}
	body := struct {
		Suspended bool `json:"suspended"`
	}{Suspended: suspended}
	return c.do(ctx, http.MethodPatch, "accounts/"+url.PathEscape(authID)+"/suspension", body, "set suspension")
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, op string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "identity client not configured")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("marshal %s request", op))
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("build %s request", op))
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("execute %s request", op))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	return pkgerrors.Wrap(codeForStatus(resp.StatusCode), cause, fmt.Sprintf("identity %s failed", op))
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}
