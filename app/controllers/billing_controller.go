package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/gastrolink/gastrolink/app/repository"
	"github.com/gastrolink/gastrolink/internal/pkg/billing"
	"github.com/gastrolink/gastrolink/internal/pkg/entitlements"
	"github.com/gastrolink/gastrolink/internal/pkg/usercontext"
)

var (
	billingGateway *billing.Gateway
	billingService *billing.Service
)

// InitBilling injects the payment gateway and the subscription synchronizer.
func InitBilling(gateway *billing.Gateway, service *billing.Service) {
	billingGateway = gateway
	billingService = service
}

type checkoutRequest struct {
	Plan string `json:"plan"`
}

type confirmRequest struct {
	SessionID string `json:"session_id"`
}

// HandleGetPlans returns the public plan catalogue with the tiers each plan
// unlocks while active.
func HandleGetPlans(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"plans": []fiber.Map{
			{
				"plan":  entitlements.PlanFree,
				"tiers": []entitlements.Tier{entitlements.TierBasic},
			},
			{
				"plan":  entitlements.PlanPremium,
				"tiers": []entitlements.Tier{entitlements.TierBasic, entitlements.TierPremium},
			},
			{
				"plan":  entitlements.PlanBusiness,
				"tiers": []entitlements.Tier{entitlements.TierBasic, entitlements.TierPremium, entitlements.TierBusiness},
			},
		},
	})
}

// HandleCreateCheckout starts a hosted checkout for a paid plan and records
// the session owner for the confirmation fallback.
func HandleCreateCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	plan := entitlements.NormalizePlan(req.Plan)
	if plan == entitlements.PlanFree {
		return badRequest(c, "Plan must be premium or business")
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		log.Printf("billing: caller lookup failed: %v", err)
		return internalError(c, "Failed to start checkout")
	}

	session, err := billingGateway.CreateCheckoutSession(user, plan)
	if err != nil {
		log.Printf("billing: checkout session creation failed for user %d: %v", user.ID, err)
		return internalError(c, "Failed to start checkout")
	}

	if err := billingService.RegisterCheckoutSession(c.Context(), session.ID, user.ID, plan); err != nil {
		log.Printf("billing: failed to record checkout session %s: %v", session.ID, err)
		return internalError(c, "Failed to start checkout")
	}

	return c.JSON(fiber.Map{
		"session_id":   session.ID,
		"checkout_url": session.URL,
	})
}

// HandleConfirmCheckout is the redirect-landing fallback for checkouts whose
// webhook has not arrived yet. Only the session owner may confirm.
func HandleConfirmCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req confirmRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.SessionID == "" {
		return badRequest(c, "session_id is required")
	}

	user, err := billingService.ConfirmCheckout(c.Context(), req.SessionID, userCtx.UserID)
	if err != nil {
		if errors.Is(err, billing.ErrSessionOwnerMismatch) {
			return forbidden(c, "This checkout session belongs to a different account")
		}
		if errors.Is(err, billing.ErrSessionNotPaid) {
			return badRequest(c, "This checkout session has not been paid")
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Checkout session not found")
		}
		log.Printf("billing: checkout confirmation failed for session %s: %v", req.SessionID, err)
		return internalError(c, "Failed to confirm checkout")
	}

	return c.JSON(fiber.Map{
		"plan":                user.Plan,
		"subscription_status": user.SubscriptionState,
		"subscription_end":    formatTimePtr(user.SubscriptionEnd),
	})
}

// HandleBillingWebhook receives provider webhook deliveries. The raw event is
// persisted before processing so redeliveries are deduplicated, and the
// processing outcome is written back to the stored event.
func HandleBillingWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	sigHeader := c.Get("Stripe-Signature")

	event, signatureValid, err := billingGateway.ParseWebhook(payload, sigHeader)
	if err != nil {
		log.Printf("billing: webhook rejected: %v", err)
		return badRequest(c, "Invalid webhook payload")
	}

	created, stored, err := billingService.RecordWebhookEvent(c.Context(), billing.WebhookEventInput{
		Provider:        billing.ProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(payload),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		log.Printf("billing: failed to record webhook event %s: %v", event.ID, err)
		return internalError(c, "Failed to record webhook event")
	}
	if !created {
		// Redelivery of an event we already have.
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	processErr := billingService.HandleEvent(c.Context(), string(event.Type), event.Data.Raw)
	if err := billingService.MarkWebhookProcessed(c.Context(), stored.ID, processErr); err != nil {
		log.Printf("billing: failed to mark webhook event %d processed: %v", stored.ID, err)
	}
	if processErr != nil {
		log.Printf("billing: webhook event %s (%s) failed: %v", event.ID, event.Type, processErr)
		return internalError(c, "Failed to process webhook event")
	}

	return c.JSON(fiber.Map{"received": true})
}
