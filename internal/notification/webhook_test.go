package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/propertymesh/listing-governance/internal/config"
	"github.com/propertymesh/listing-governance/internal/governance"
)

func testConfig(url string) config.NotificationConfig {
	return config.NotificationConfig{
		WebhookURL:      url,
		Timeout:         2 * time.Second,
		RateLimitPerMin: 600,
	}
}

func TestWebhookDeliversClaimNotification(t *testing.T) {
	var received message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(testConfig(server.URL), zap.NewNop())
	err := notifier.OwnerClaimFiled(context.Background(), "brk-1", "lst-1", governance.ClaimDuplicate)
	require.NoError(t, err)

	assert.Equal(t, "CLAIM_FILED", received.Type)
	assert.Equal(t, "brk-1", received.OwnerID)
	assert.Equal(t, "lst-1", received.ListingID)
	assert.Contains(t, received.Detail, "DUPLICATE")
}

func TestWebhookDeliversSuspensionNotification(t *testing.T) {
	var received message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(testConfig(server.URL), zap.NewNop())
	err := notifier.ListingSuspended(context.Background(), "brk-1", "lst-1", "ownership disputed")
	require.NoError(t, err)

	assert.Equal(t, "LISTING_SUSPENDED", received.Type)
	assert.Equal(t, "ownership disputed", received.Detail)
}

func TestWebhookReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(testConfig(server.URL), zap.NewNop())
	err := notifier.ListingSuspended(context.Background(), "brk-1", "lst-1", "reason")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestWebhookDisabledIsNoOp(t *testing.T) {
	notifier := NewWebhookNotifier(testConfig(""), zap.NewNop())
	assert.NoError(t, notifier.OwnerClaimFiled(context.Background(), "brk-1", "lst-1", governance.ClaimOwnership))
	assert.NoError(t, notifier.ListingSuspended(context.Background(), "brk-1", "lst-1", "reason"))
}
