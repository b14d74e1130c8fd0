package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gastrolink/gastrolink/app/models"
	"github.com/gastrolink/gastrolink/internal/pkg/entitlements"
	"gorm.io/gorm"
)

// ErrSessionOwnerMismatch is returned when the checkout confirmation caller
// is not the account that started the session.
var ErrSessionOwnerMismatch = errors.New("checkout session belongs to a different account")

// ErrSessionNotPaid is returned when a checkout confirmation arrives for a
// session the provider has not reported as paid.
var ErrSessionNotPaid = errors.New("checkout session is not paid")

// SessionVerifier checks with the billing provider whether a hosted checkout
// was actually completed and paid.
type SessionVerifier interface {
	CheckoutSessionPaid(sessionID string) (bool, error)
}

// periodLength is the subscription period granted per paid invoice.
func periodEnd(from time.Time) time.Time {
	return from.AddDate(0, 1, 0)
}

// Service synchronizes provider billing events into local subscription state.
// Every transition is an unconditional overwrite; at most one billing event
// per account is expected in flight.
type Service struct {
	repo      Repository
	checkouts SessionVerifier
}

// NewService creates a billing service from an injected repository and
// session verifier.
func NewService(repo Repository, checkouts SessionVerifier) *Service {
	return &Service{repo: repo, checkouts: checkouts}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, checkouts SessionVerifier) *Service {
	return NewService(NewRepository(db), checkouts)
}

// HandleEvent dispatches a verified provider event to the matching
// transition. Unhandled event types are ignored.
func (s *Service) HandleEvent(ctx context.Context, eventType string, data json.RawMessage) error {
	switch eventType {
	case EventCheckoutCompleted:
		var session CheckoutSession
		if err := json.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("decode checkout.session: %w", err)
		}
		return s.handleCheckoutCompleted(ctx, session)

	case EventInvoicePaid:
		var invoice Invoice
		if err := json.Unmarshal(data, &invoice); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		return s.ApplyInvoicePaid(ctx, invoice.CustomerEmail, invoice.Customer)

	case EventInvoiceFailed:
		var invoice Invoice
		if err := json.Unmarshal(data, &invoice); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		return s.ApplyInvoiceFailed(ctx, invoice.CustomerEmail, invoice.Customer)

	case EventSubscriptionDeleted:
		var sub Subscription
		if err := json.Unmarshal(data, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return s.ApplySubscriptionDeleted(ctx, sub.Customer)

	default:
		log.Printf("billing: ignoring unhandled event type %q", eventType)
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, session CheckoutSession) error {
	if session.Mode != "" && session.Mode != "subscription" {
		return nil
	}
	userID, plan, err := s.resolveCheckoutAccount(session)
	if err != nil {
		return err
	}
	user, err := s.ApplyCheckoutCompleted(ctx, userID, plan)
	if err != nil {
		return err
	}

	// Remember the provider customer reference for later invoice events.
	if customer := strings.TrimSpace(session.Customer); customer != "" && user.StripeCustomerID != customer {
		user.StripeCustomerID = customer
		if err := s.repo.SaveUser(user); err != nil {
			return err
		}
	}

	s.markSessionCompleted(session.ID)
	return nil
}

// ApplyCheckoutCompleted upgrades the account to the purchased plan and opens
// a fresh billing period.
func (s *Service) ApplyCheckoutCompleted(ctx context.Context, userID uint, plan entitlements.Plan) (*models.User, error) {
	_ = ctx
	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	end := periodEnd(now)
	user.Plan = plan
	user.SubscriptionState = entitlements.StatusActive
	user.SubscriptionStart = &now
	user.SubscriptionEnd = &end
	if err := s.repo.SaveUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ApplyInvoicePaid extends the billing period after a successful renewal.
// Accounts the provider cannot be matched to are logged and skipped; the
// provider will not redeliver a permanently unmatchable event usefully.
func (s *Service) ApplyInvoicePaid(ctx context.Context, customerEmail, customerID string) error {
	_ = ctx
	user, err := s.lookupUser(customerEmail, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("billing: invoice paid for unknown customer (email=%q customer=%q)", customerEmail, customerID)
			return nil
		}
		return err
	}

	end := periodEnd(time.Now())
	user.SubscriptionState = entitlements.StatusActive
	user.SubscriptionEnd = &end
	return s.repo.SaveUser(user)
}

// ApplyInvoiceFailed marks the subscription expired. The plan is kept so a
// later successful payment restores the previous tier.
func (s *Service) ApplyInvoiceFailed(ctx context.Context, customerEmail, customerID string) error {
	_ = ctx
	user, err := s.lookupUser(customerEmail, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("billing: invoice failed for unknown customer (email=%q customer=%q)", customerEmail, customerID)
			return nil
		}
		return err
	}

	user.SubscriptionState = entitlements.StatusExpired
	return s.repo.SaveUser(user)
}

// ApplySubscriptionDeleted drops the account back to the free plan.
func (s *Service) ApplySubscriptionDeleted(ctx context.Context, customerID string) error {
	_ = ctx
	user, err := s.lookupUser("", customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("billing: subscription deleted for unknown customer %q", customerID)
			return nil
		}
		return err
	}

	now := time.Now()
	user.Plan = entitlements.PlanFree
	user.SubscriptionState = entitlements.StatusCancelled
	user.SubscriptionEnd = &now
	return s.repo.SaveUser(user)
}

// RegisterCheckoutSession records the owner and plan of a newly created
// hosted checkout so the confirmation fallback can verify ownership.
func (s *Service) RegisterCheckoutSession(ctx context.Context, sessionID string, userID uint, plan entitlements.Plan) error {
	_ = ctx
	if strings.TrimSpace(sessionID) == "" || userID == 0 {
		return errors.New("session_id and user_id are required")
	}
	return s.repo.CreateCheckoutSession(&models.BillingCheckoutSession{
		SessionID: sessionID,
		UserID:    userID,
		Plan:      plan,
	})
}

// ConfirmCheckout is the client-initiated fallback for the checkout redirect.
// It duplicates the checkout.session.completed transition, guarded by the
// recorded session owner matching the caller and by the provider reporting
// the session as paid. The session id alone proves nothing: it is handed to
// the client before any payment happens. Already-completed sessions are
// confirmed idempotently.
func (s *Service) ConfirmCheckout(ctx context.Context, sessionID string, callerID uint) (*models.User, error) {
	cs, err := s.repo.GetCheckoutSession(sessionID)
	if err != nil {
		return nil, err
	}
	if cs.UserID != callerID {
		return nil, ErrSessionOwnerMismatch
	}
	if cs.Completed {
		return s.repo.GetUserByID(cs.UserID)
	}

	if s.checkouts == nil {
		return nil, ErrSessionNotPaid
	}
	paid, err := s.checkouts.CheckoutSessionPaid(sessionID)
	if err != nil {
		return nil, err
	}
	if !paid {
		return nil, ErrSessionNotPaid
	}

	user, err := s.ApplyCheckoutCompleted(ctx, cs.UserID, cs.Plan)
	if err != nil {
		return nil, err
	}
	cs.Completed = true
	if err := s.repo.SaveCheckoutSession(cs); err != nil {
		return nil, err
	}
	return user, nil
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

func (s *Service) lookupUser(customerEmail, customerID string) (*models.User, error) {
	if email := strings.TrimSpace(customerEmail); email != "" {
		user, err := s.repo.GetUserByEmail(email)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if customer := strings.TrimSpace(customerID); customer != "" {
		return s.repo.GetUserByStripeCustomerID(customer)
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *Service) markSessionCompleted(sessionID string) {
	if strings.TrimSpace(sessionID) == "" {
		return
	}
	cs, err := s.repo.GetCheckoutSession(sessionID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("billing: checkout session lookup failed for %q: %v", sessionID, err)
		}
		return
	}
	if cs.Completed {
		return
	}
	cs.Completed = true
	if err := s.repo.SaveCheckoutSession(cs); err != nil {
		log.Printf("billing: failed to mark checkout session %q completed: %v", sessionID, err)
	}
}

// resolveCheckoutAccount attributes a completed checkout to an account.
// Metadata is authoritative; sessions created outside this app (missing the
// user_id metadata) fall back to the customer email on the session.
func (s *Service) resolveCheckoutAccount(session CheckoutSession) (uint, entitlements.Plan, error) {
	userID, plan, err := parseCheckoutMetadata(session.Metadata)
	if err == nil {
		return userID, plan, nil
	}

	email := strings.TrimSpace(session.Email())
	if email == "" {
		return 0, "", err
	}
	plan = entitlements.NormalizePlan(session.Metadata["plan"])
	if plan == entitlements.PlanFree {
		return 0, "", err
	}
	user, lookupErr := s.repo.GetUserByEmail(email)
	if lookupErr != nil {
		return 0, "", err
	}
	return user.ID, plan, nil
}

func parseCheckoutMetadata(metadata map[string]string) (uint, entitlements.Plan, error) {
	rawID := strings.TrimSpace(metadata["user_id"])
	if rawID == "" {
		return 0, "", errors.New("checkout metadata is missing user_id")
	}
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil || id == 0 {
		return 0, "", fmt.Errorf("invalid user_id in checkout metadata: %q", rawID)
	}

	plan := entitlements.NormalizePlan(metadata["plan"])
	if plan == entitlements.PlanFree {
		return 0, "", fmt.Errorf("checkout metadata carries no purchasable plan: %q", metadata["plan"])
	}
	return uint(id), plan, nil
}
