package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/comphound/comphound/internal/auth"
	"github.com/comphound/comphound/internal/billing"
	"github.com/comphound/comphound/internal/domain"
	"github.com/comphound/comphound/internal/service"
)

// BillingHandler handles checkout and customer-portal endpoints.
type BillingHandler struct {
	billing     billing.Service
	userService service.UserService
	baseURL     string
	logger      *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
// billingService may be nil when Stripe is not configured; endpoints then
// respond with 402.
func NewBillingHandler(billingService billing.Service, userService service.UserService, baseURL string, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		billing:     billingService,
		userService: userService,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// RegisterRoutes registers billing routes behind the auth middleware.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/billing/checkout", requireUser(http.HandlerFunc(h.CreateCheckout)))
	mux.Handle("POST /api/billing/portal", requireUser(http.HandlerFunc(h.CreatePortal)))
	mux.Handle("POST /api/billing/cancel", requireUser(http.HandlerFunc(h.CancelSubscription)))
	mux.Handle("POST /api/billing/reactivate", requireUser(http.HandlerFunc(h.ReactivateSubscription)))
	mux.Handle("GET /api/subscription", requireUser(http.HandlerFunc(h.GetSubscription)))
}

type checkoutRequest struct {
	Plan     string `json:"plan"`     // "pro" or "premium"
	Interval string `json:"interval"` // "monthly" or "yearly"
}

type redirectResponse struct {
	URL string `json:"url"`
}

// CreateCheckout starts a Stripe Checkout session for a paid plan and
// returns the redirect URL. The user's Stripe customer is created lazily on
// first checkout.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "BillingHandler.CreateCheckout"

	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	if h.billing == nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EPAYMENT, op, "Billing is not configured"))
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid request body"))
		return
	}
	if req.Interval == "" {
		req.Interval = "monthly"
	}

	priceID := h.billing.PriceIDForPlan(req.Plan, req.Interval)
	if priceID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Unknown plan or billing interval"))
		return
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		var err error
		customerID, err = h.billing.CreateCustomer(user.Email, user.Name)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to create billing customer"))
			return
		}
		if err := h.userService.UpdateStripeCustomer(r.Context(), user.ID, customerID); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
	}

	url, err := h.billing.CreateCheckoutSession(
		customerID,
		priceID,
		h.baseURL+"/billing/success",
		h.baseURL+"/pricing",
	)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to create checkout session"))
		return
	}

	WriteJSON(w, http.StatusOK, redirectResponse{URL: url})
}

type subscriptionResponse struct {
	Tier              string `json:"tier"`
	Status            string `json:"status"`
	SubscriptionID    string `json:"subscriptionId,omitempty"`
	CancelAtPeriodEnd bool   `json:"cancelAtPeriodEnd"`
	CurrentPeriodEnd  string `json:"currentPeriodEnd,omitempty"`
}

// GetSubscription returns the caller's subscription state. Free accounts
// get a static response; paid accounts are enriched from Stripe.
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	const op = "BillingHandler.GetSubscription"

	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	resp := subscriptionResponse{
		Tier:   string(user.Tier()),
		Status: string(user.SubscriptionStatus),
	}

	if h.billing != nil && user.SubscriptionID != "" {
		sub, err := h.billing.GetSubscription(user.SubscriptionID)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to load subscription"))
			return
		}
		resp.SubscriptionID = sub.ID
		resp.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		if sub.CurrentPeriodEnd > 0 {
			resp.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC().Format(time.RFC3339)
		}
	}

	WriteJSON(w, http.StatusOK, resp)
}

// CancelSubscription schedules the caller's subscription to cancel at the
// end of the paid period. Access continues until then; the downgrade lands
// via the deletion webhook.
func (h *BillingHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	const op = "BillingHandler.CancelSubscription"

	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	if h.billing == nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EPAYMENT, op, "Billing is not configured"))
		return
	}
	if user.SubscriptionID == "" {
		ErrorResponse(w, r, h.logger, domain.NotFound(op, "subscription", user.ID.String()))
		return
	}

	if err := h.billing.CancelSubscription(user.SubscriptionID); err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to cancel subscription"))
		return
	}

	h.logger.Info("subscription cancellation scheduled", "user_id", user.ID, "subscription_id", user.SubscriptionID)
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ReactivateSubscription clears a pending cancellation.
func (h *BillingHandler) ReactivateSubscription(w http.ResponseWriter, r *http.Request) {
	const op = "BillingHandler.ReactivateSubscription"

	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	if h.billing == nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EPAYMENT, op, "Billing is not configured"))
		return
	}
	if user.SubscriptionID == "" {
		ErrorResponse(w, r, h.logger, domain.NotFound(op, "subscription", user.ID.String()))
		return
	}

	if err := h.billing.ReactivateSubscription(user.SubscriptionID); err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to reactivate subscription"))
		return
	}

	h.logger.Info("subscription reactivated", "user_id", user.ID, "subscription_id", user.SubscriptionID)
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// CreatePortal opens the Stripe customer portal for subscription management.
func (h *BillingHandler) CreatePortal(w http.ResponseWriter, r *http.Request) {
	const op = "BillingHandler.CreatePortal"

	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	if h.billing == nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EPAYMENT, op, "Billing is not configured"))
		return
	}
	if user.StripeCustomerID == "" {
		ErrorResponse(w, r, h.logger, domain.NotFound(op, "billing customer", user.ID.String()))
		return
	}

	url, err := h.billing.CreatePortalSession(user.StripeCustomerID, h.baseURL+"/account")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to create portal session"))
		return
	}

	WriteJSON(w, http.StatusOK, redirectResponse{URL: url})
}
