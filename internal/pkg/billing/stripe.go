package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/gastrolink/gastrolink/app/models"
	"github.com/gastrolink/gastrolink/internal/pkg/entitlements"
	"github.com/gastrolink/gastrolink/internal/pkg/env"
)

// Gateway wraps the Stripe API for checkout creation and webhook
// verification. All secrets are injected at construction time.
type Gateway struct {
	api           *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
	prices        map[entitlements.Plan]string
}

// NewGateway creates a Stripe gateway with explicit configuration.
func NewGateway(apiKey, webhookSecret, successURL, cancelURL string, prices map[entitlements.Plan]string) *Gateway {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &Gateway{
		api:           api,
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
		prices:        prices,
	}
}

// NewGatewayFromEnv creates a Stripe gateway from environment configuration.
func NewGatewayFromEnv() *Gateway {
	appURL := env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000")
	return NewGateway(
		env.GetEnv("STRIPE_SECRET_KEY", ""),
		env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		env.GetEnv("STRIPE_SUCCESS_URL", appURL+"/billing/success?session_id={CHECKOUT_SESSION_ID}"),
		env.GetEnv("STRIPE_CANCEL_URL", appURL+"/billing/cancel"),
		map[entitlements.Plan]string{
			entitlements.PlanPremium:  env.GetEnv("STRIPE_PRICE_PREMIUM", ""),
			entitlements.PlanBusiness: env.GetEnv("STRIPE_PRICE_BUSINESS", ""),
		},
	)
}

// HasProductionSecret reports whether the configured webhook secret has the
// shape of a real Stripe signing secret.
func (g *Gateway) HasProductionSecret() bool {
	return strings.HasPrefix(strings.TrimSpace(g.webhookSecret), "whsec_")
}

// CreateCheckoutSession starts a hosted subscription checkout for the user.
// The session metadata carries the owning user id and plan so the webhook
// can attribute the purchase without extra lookups.
func (g *Gateway) CreateCheckoutSession(user *models.User, plan entitlements.Plan) (*stripelib.CheckoutSession, error) {
	priceID := g.prices[plan]
	if priceID == "" {
		return nil, fmt.Errorf("no price configured for plan %q", plan)
	}

	params := &stripelib.CheckoutSessionParams{
		Mode: stripelib.String(string(stripelib.CheckoutSessionModeSubscription)),
		LineItems: []*stripelib.CheckoutSessionLineItemParams{
			{
				Price:    stripelib.String(priceID),
				Quantity: stripelib.Int64(1),
			},
		},
		SuccessURL: stripelib.String(g.successURL),
		CancelURL:  stripelib.String(g.cancelURL),
	}
	if user.StripeCustomerID != "" {
		params.Customer = stripelib.String(user.StripeCustomerID)
	} else {
		params.CustomerEmail = stripelib.String(user.Email)
	}
	params.AddMetadata("user_id", strconv.FormatUint(uint64(user.ID), 10))
	params.AddMetadata("plan", string(plan))

	return g.api.CheckoutSessions.New(params)
}

// CheckoutSessionPaid asks Stripe whether the session completed with a
// settled payment. Sessions for free trials settle with payment status
// no_payment_required.
func (g *Gateway) CheckoutSessionPaid(sessionID string) (bool, error) {
	session, err := g.api.CheckoutSessions.Get(sessionID, nil)
	if err != nil {
		return false, fmt.Errorf("retrieve checkout session: %w", err)
	}
	if session.Status != stripelib.CheckoutSessionStatusComplete {
		return false, nil
	}
	switch session.PaymentStatus {
	case stripelib.CheckoutSessionPaymentStatusPaid, stripelib.CheckoutSessionPaymentStatusNoPaymentRequired:
		return true, nil
	default:
		return false, nil
	}
}

// ParseWebhook validates and decodes a webhook delivery. With a production
// signing secret the Stripe signature is enforced; without one the body is
// parsed unsigned, which is only allowed in development mode and is logged
// as insecure. The returned bool reports whether the signature was verified.
func (g *Gateway) ParseWebhook(payload []byte, sigHeader string) (*stripelib.Event, bool, error) {
	if g.HasProductionSecret() {
		event, err := webhook.ConstructEventWithOptions(payload, sigHeader, g.webhookSecret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			return nil, false, errors.New("invalid webhook signature")
		}
		return &event, true, nil
	}

	if !env.IsDev() {
		return nil, false, errors.New("webhook signing secret is not configured")
	}

	log.Print("billing: INSECURE webhook mode, accepting unsigned payload (no production webhook secret configured)")
	var event stripelib.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, false, fmt.Errorf("decode webhook payload: %w", err)
	}
	return &event, false, nil
}
