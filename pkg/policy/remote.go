package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// RemoteConfig configures the external policy decision point.
type RemoteConfig struct {
	URL      string
	Token    string
	Timeout  time.Duration
	RetryMax int
}

// Enabled reports whether a PDP is configured. A missing token disables the
// remote layer.
func (c RemoteConfig) Enabled() bool {
	return c.URL != "" && c.Token != ""
}

// Query is one permission question sent to the PDP.
type Query struct {
	UserID   string
	Action   string
	Resource string
	Tenant   string
}

// RemoteClient asks a Permit-compatible PDP whether a query is allowed.
type RemoteClient struct {
	endpoint string
	token    string
	client   *retryablehttp.Client
}

// NewRemoteClient builds a client with bounded retries on transport errors
// and 5xx responses.
func NewRemoteClient(cfg RemoteConfig) *RemoteClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 50 * time.Millisecond
	client.RetryWaitMax = 500 * time.Millisecond
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = nil

	return &RemoteClient{
		endpoint: strings.TrimRight(cfg.URL, "/") + "/allowed",
		token:    cfg.Token,
		client:   client,
	}
}

type pdpRequest struct {
	User     pdpUser     `json:"user"`
	Action   string      `json:"action"`
	Resource pdpResource `json:"resource"`
}

type pdpUser struct {
	Key string `json:"key"`
}

type pdpResource struct {
	Type   string `json:"type"`
	Tenant string `json:"tenant"`
}

type pdpResponse struct {
	Allow *bool `json:"allow"`
}

// Allowed returns the PDP answer. Any transport, status or decoding problem
// is returned as an error; callers treat errors as deny.
func (c *RemoteClient) Allowed(ctx context.Context, q Query) (bool, error) {
	tenant := q.Tenant
	if tenant == "" {
		tenant = "global"
	}
	body, err := json.Marshal(pdpRequest{
		User:     pdpUser{Key: q.UserID},
		Action:   q.Action,
		Resource: pdpResource{Type: q.Resource, Tenant: tenant},
	})
	if err != nil {
		return false, fmt.Errorf("failed to encode policy query: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build policy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("policy decision point unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("policy decision point returned %d", resp.StatusCode)
	}

	var out pdpResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return false, fmt.Errorf("failed to decode policy response: %w", err)
	}
	if out.Allow == nil {
		return false, fmt.Errorf("policy response missing allow field")
	}
	return *out.Allow, nil
}
