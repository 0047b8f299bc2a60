package portal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valle1212i/admin-portal-sub000/internal/config"
	"github.com/valle1212i/admin-portal-sub000/internal/domain"
	"github.com/valle1212i/admin-portal-sub000/internal/signature"
)

func testClient(baseURL string) *Client {
	return NewClient(config.PortalConfig{
		BaseURL:        baseURL,
		APIKey:         "key-123",
		SigningSecret:  "portal-secret",
		TimeoutSeconds: 2,
		MaxRetries:     0,
	})
}

func testChange() (*domain.Customer, *domain.PackageChangeRequest) {
	cust := &domain.Customer{ID: "cust-1", Package: domain.PackageBas}
	req := &domain.PackageChangeRequest{
		ID:               "req-1",
		CustomerID:       "cust-1",
		RequestedPackage: domain.PackagePremium,
		EffectiveDate:    domain.EffectiveImmediate,
		RequestedAt:      time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
	}
	return cust, req
}

func TestPushPackageChange_SignedRequest(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeaders = r.Header.Clone()
		assert.Equal(t, packageSyncPath, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cust, req := testChange()
	err := testClient(srv.URL).PushPackageChange(context.Background(), cust, req)
	require.NoError(t, err)

	assert.Equal(t, "key-123", gotHeaders.Get("x-api-key"))
	// The receiving side must be able to verify the signature over the
	// exact bytes sent.
	v := signature.NewVerifier("portal-secret")
	assert.True(t, v.Verify(gotBody, gotHeaders.Get("x-signature")))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "cust-1", payload["customerId"])
	assert.Equal(t, "premium", payload["package"])
	assert.Equal(t, float64(50), payload["maxUsers"])
	assert.Equal(t, "immediate", payload["effectiveDate"])
}

func TestPushPackageChange_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	cust, req := testChange()
	err := testClient(srv.URL).PushPackageChange(context.Background(), cust, req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestQueuedPackageChange(t *testing.T) {
	cust, req := testChange()
	msg, err := testClient("https://portal.example.se").QueuedPackageChange(cust, req)
	require.NoError(t, err)

	assert.Equal(t, domain.OutboundPortalSync, msg.Kind)
	assert.Equal(t, domain.OutboundPending, msg.Status)
	assert.Equal(t, "https://portal.example.se"+packageSyncPath, msg.URL)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.NextAttemptAt.IsZero())

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(msg.Body), &payload))
	assert.Equal(t, "req-1", payload["requestId"])
}
