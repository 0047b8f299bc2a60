// Package portal is the HTTP client for the external customer portal.
// Requests carry an api key plus an HMAC signature over the body, the
// same scheme the portal uses when it calls us.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/valle1212i/admin-portal-sub000/internal/config"
	"github.com/valle1212i/admin-portal-sub000/internal/domain"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/httpretry"
	"github.com/valle1212i/admin-portal-sub000/internal/signature"
)

const packageSyncPath = "/api/internal/package-sync"

// Client talks to the customer portal's internal API.
type Client struct {
	baseURL    string
	apiKey     string
	signer     *signature.Verifier
	httpClient httpretry.HTTPDoer
}

// NewClient creates a portal client. The synchronous push uses the
// configured timeout with a bounded number of retries; a hung portal
// must never hang an admin request.
func NewClient(cfg config.PortalConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		signer:  signature.NewVerifier(cfg.SigningSecret),
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		}, cfg.MaxRetries),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// packageChangePayload is the wire shape the portal expects for a
// package sync.
type packageChangePayload struct {
	CustomerID string `json:"customerId"`
	RequestID  string `json:"requestId"`
	Package    string `json:"package"`
	MaxUsers   int    `json:"maxUsers"`
	Effective  string `json:"effectiveDate"`
	ChangedAt  string `json:"changedAt"`
}

func (c *Client) changeBody(cust *domain.Customer, req *domain.PackageChangeRequest) ([]byte, error) {
	return json.Marshal(packageChangePayload{
		CustomerID: cust.ID,
		RequestID:  req.ID,
		Package:    string(req.RequestedPackage),
		MaxUsers:   domain.MaxUsersFor(req.RequestedPackage),
		Effective:  string(req.EffectiveDate),
		ChangedAt:  req.RequestedAt.UTC().Format(time.RFC3339),
	})
}

// PushPackageChange synchronously notifies the portal of a package
// change.
func (c *Client) PushPackageChange(ctx context.Context, cust *domain.Customer, req *domain.PackageChangeRequest) error {
	body, err := c.changeBody(cust, req)
	if err != nil {
		return fmt.Errorf("portal: failed to marshal package change: %w", err)
	}
	return c.Post(ctx, c.baseURL+packageSyncPath, body)
}

// QueuedPackageChange builds the outbox record for a package change whose
// synchronous push failed. The worker re-signs the body at delivery time,
// so the record carries no signature header.
func (c *Client) QueuedPackageChange(cust *domain.Customer, req *domain.PackageChangeRequest) (*domain.OutboundMessage, error) {
	body, err := c.changeBody(cust, req)
	if err != nil {
		return nil, fmt.Errorf("portal: failed to marshal package change: %w", err)
	}
	now := time.Now().UTC()
	return &domain.OutboundMessage{
		ID:            uuid.New().String(),
		Kind:          domain.OutboundPortalSync,
		URL:           c.baseURL + packageSyncPath,
		Body:          string(body),
		Status:        domain.OutboundPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Post sends a signed JSON body to the given portal URL. Also used by the
// outbox worker to drain queued portal_sync records.
func (c *Client) Post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("portal: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("x-signature", c.signer.Sign(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("portal: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("portal: API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
