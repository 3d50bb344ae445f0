package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/propertymesh/listing-governance/internal/config"
	"github.com/propertymesh/listing-governance/internal/governance"
)

// WebhookNotifier delivers owner notifications to an external webhook.
// An empty webhook URL disables delivery entirely; every call then
// succeeds as a no-op so the action pipeline does not special-case it.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewWebhookNotifier creates a notifier from config.
func NewWebhookNotifier(cfg config.NotificationConfig, logger *zap.Logger) *WebhookNotifier {
	perMin := cfg.RateLimitPerMin
	if perMin <= 0 {
		perMin = 60
	}
	return &WebhookNotifier{
		url:     cfg.WebhookURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
		logger:  logger,
	}
}

type message struct {
	Type      string    `json:"type"`
	OwnerID   string    `json:"owner_id"`
	ListingID string    `json:"listing_id"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// OwnerClaimFiled notifies a broker that a claim was filed against their
// listing.
func (n *WebhookNotifier) OwnerClaimFiled(ctx context.Context, ownerID, listingID string, claimType governance.ClaimType) error {
	return n.send(ctx, message{
		Type:      "CLAIM_FILED",
		OwnerID:   ownerID,
		ListingID: listingID,
		Detail:    fmt.Sprintf("A %s claim was filed against your listing", claimType),
		Timestamp: time.Now(),
	})
}

// ListingSuspended notifies a broker that their listing was suspended.
func (n *WebhookNotifier) ListingSuspended(ctx context.Context, ownerID, listingID, reason string) error {
	return n.send(ctx, message{
		Type:      "LISTING_SUSPENDED",
		OwnerID:   ownerID,
		ListingID: listingID,
		Detail:    reason,
		Timestamp: time.Now(),
	})
}

func (n *WebhookNotifier) send(ctx context.Context, msg message) error {
	if n.url == "" {
		n.logger.Debug("Notification delivery disabled, dropping message",
			zap.String("type", msg.Type),
			zap.String("listing_id", msg.ListingID),
		)
		return nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notification rate limit: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}

	n.logger.Debug("Notification delivered",
		zap.String("type", msg.Type),
		zap.String("owner_id", msg.OwnerID),
		zap.String("listing_id", msg.ListingID),
	)
	return nil
}
