// This file implements the Stripe webhook handler for processing billing
// events.
//
// Route:
//   - POST /webhooks/stripe -> HandleStripeWebhook
//
// The route is public; authentication is the Stripe webhook signature.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"github.com/comphound/comphound/internal/billing"
	"github.com/comphound/comphound/internal/domain"
	"github.com/comphound/comphound/internal/metrics"
	"github.com/comphound/comphound/internal/repository"
	"github.com/comphound/comphound/internal/service"
)

// eventStore persists the subscription audit trail.
type eventStore interface {
	CreateSubscriptionEvent(ctx context.Context, params repository.CreateSubscriptionEventParams) error
}

// WebhookHandler handles incoming webhook events from Stripe.
type WebhookHandler struct {
	billing     billing.Service
	userService service.UserService
	events      eventStore
	logger      *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
// billingService may be nil when Stripe is not configured.
func NewWebhookHandler(billingService billing.Service, userService service.UserService, events eventStore, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		billing:     billingService,
		userService: userService,
		events:      events,
		logger:      logger,
	}
}

// RegisterRoutes registers webhook routes on the provided mux.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook processes incoming Stripe webhook events. The handler
// always returns 200 for verified events it cannot act on, so Stripe does
// not retry permanently broken payloads.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		metrics.WebhookErrors.Inc()
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	event, err := h.billing.VerifyWebhookSignature(body, signature)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		metrics.WebhookErrors.Inc()
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("stripe webhook received", "type", event.Type, "id", event.ID)

	switch event.Type {
	case "customer.subscription.created":
		h.handleSubscriptionChange(r.Context(), event, domain.SubscriptionEventCreated)
	case "customer.subscription.updated":
		h.handleSubscriptionChange(r.Context(), event, domain.SubscriptionEventUpdated)
	case "customer.subscription.deleted":
		h.handleSubscriptionDeleted(r.Context(), event)
	case "invoice.payment_failed":
		h.handlePaymentFailed(r.Context(), event)
	case "invoice.payment_succeeded":
		h.handlePaymentSucceeded(r.Context(), event)
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

// handleSubscriptionChange applies a created or updated subscription to the
// user's stored tier. The tier is derived from the subscription's price ID.
func (h *WebhookHandler) handleSubscriptionChange(ctx context.Context, event stripe.Event, eventType domain.SubscriptionEventType) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription event", "error", err, "type", eventType)
		metrics.WebhookErrors.Inc()
		return
	}
	if sub.Customer == nil {
		h.logger.Warn("subscription event missing customer", "subscription_id", sub.ID)
		return
	}

	user, err := h.userService.GetByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil {
		h.logger.Warn("user not found for subscription event",
			"customer_id", sub.Customer.ID,
			"subscription_id", sub.ID,
		)
		return
	}

	tier := ""
	if len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		tier = h.billing.TierForPriceID(sub.Items.Data[0].Price.ID)
	}
	if tier == "" {
		h.logger.Warn("no tier mapped for subscription price", "subscription_id", sub.ID)
		return
	}

	status := string(sub.Status)
	if err := h.userService.UpdateSubscription(ctx, user.ID, status, tier, sub.ID); err != nil {
		h.logger.Error("failed to update subscription",
			"error", err, "user_id", user.ID, "type", eventType)
		metrics.WebhookErrors.Inc()
		return
	}

	h.recordEvent(ctx, user.ID, eventType, event)

	h.logger.Info("subscription event processed",
		"user_id", user.ID,
		"type", eventType,
		"status", status,
		"tier", tier,
	)
}

// handleSubscriptionDeleted drops the user back to the free tier.
func (h *WebhookHandler) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription deleted event", "error", err)
		metrics.WebhookErrors.Inc()
		return
	}
	if sub.Customer == nil {
		h.logger.Warn("subscription deleted event missing customer", "subscription_id", sub.ID)
		return
	}

	user, err := h.userService.GetByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil {
		h.logger.Warn("user not found for subscription deletion", "customer_id", sub.Customer.ID)
		return
	}

	err = h.userService.UpdateSubscription(ctx, user.ID,
		string(domain.SubscriptionStatusCanceled), string(domain.SubscriptionTierFree), "")
	if err != nil {
		h.logger.Error("failed to downgrade subscription", "error", err, "user_id", user.ID)
		metrics.WebhookErrors.Inc()
		return
	}

	h.recordEvent(ctx, user.ID, domain.SubscriptionEventCanceled, event)

	h.logger.Info("subscription canceled", "user_id", user.ID, "subscription_id", sub.ID)
}

// handlePaymentFailed marks the subscription past due without changing the
// tier; access degrades only when Stripe cancels the subscription.
func (h *WebhookHandler) handlePaymentFailed(ctx context.Context, event stripe.Event) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("failed to parse payment failed event", "error", err)
		metrics.WebhookErrors.Inc()
		return
	}
	if invoice.Customer == nil {
		return
	}

	user, err := h.userService.GetByStripeCustomerID(ctx, invoice.Customer.ID)
	if err != nil {
		h.logger.Debug("user not found for failed payment", "customer_id", invoice.Customer.ID)
		return
	}

	err = h.userService.UpdateSubscription(ctx, user.ID,
		string(domain.SubscriptionStatusPastDue), string(user.SubscriptionTier), user.SubscriptionID)
	if err != nil {
		h.logger.Error("failed to mark subscription past due", "error", err, "user_id", user.ID)
		metrics.WebhookErrors.Inc()
		return
	}

	h.logger.Warn("payment failed", "user_id", user.ID, "customer_id", invoice.Customer.ID)
}

// handlePaymentSucceeded restores a past-due subscription to active. Most
// successful payments arrive alongside a subscription.updated event and need
// no action here.
func (h *WebhookHandler) handlePaymentSucceeded(ctx context.Context, event stripe.Event) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("failed to parse payment succeeded event", "error", err)
		metrics.WebhookErrors.Inc()
		return
	}
	if invoice.Customer == nil {
		return
	}

	user, err := h.userService.GetByStripeCustomerID(ctx, invoice.Customer.ID)
	if err != nil {
		h.logger.Debug("user not found for successful payment", "customer_id", invoice.Customer.ID)
		return
	}
	if user.SubscriptionStatus != domain.SubscriptionStatusPastDue || user.SubscriptionID == "" {
		return
	}

	err = h.userService.UpdateSubscription(ctx, user.ID,
		string(domain.SubscriptionStatusActive), string(user.SubscriptionTier), user.SubscriptionID)
	if err != nil {
		h.logger.Error("failed to restore subscription", "error", err, "user_id", user.ID)
		metrics.WebhookErrors.Inc()
		return
	}

	h.logger.Info("past due subscription restored", "user_id", user.ID)
}

// recordEvent appends the raw event to the audit table. Audit failures are
// logged, not fatal; the tier change itself already committed.
func (h *WebhookHandler) recordEvent(ctx context.Context, userID uuid.UUID, eventType domain.SubscriptionEventType, event stripe.Event) {
	if h.events == nil {
		return
	}
	err := h.events.CreateSubscriptionEvent(ctx, repository.CreateSubscriptionEventParams{
		UserID:        userID,
		EventType:     string(eventType),
		StripeEventID: event.ID,
		EventData:     json.RawMessage(event.Data.Raw),
	})
	if err != nil {
		h.logger.Error("failed to record subscription event", "error", err, "event_id", event.ID)
		metrics.WebhookErrors.Inc()
		return
	}
	metrics.SubscriptionEvents.WithLabelValues(string(eventType)).Inc()
}
