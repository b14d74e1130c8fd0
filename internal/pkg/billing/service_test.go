package billing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gastrolink/gastrolink/app/models"
	"github.com/gastrolink/gastrolink/internal/pkg/entitlements"
)

// fakeRepository keeps everything in maps so transitions can be asserted
// without a database.
type fakeRepository struct {
	users     map[uint]*models.User
	sessions  map[string]*models.BillingCheckoutSession
	events    map[string]*models.BillingWebhookEvent
	nextEvent uint
	saves     int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:    make(map[uint]*models.User),
		sessions: make(map[string]*models.BillingCheckoutSession),
		events:   make(map[string]*models.BillingWebhookEvent),
	}
}

func (f *fakeRepository) GetUserByID(id uint) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetUserByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetUserByStripeCustomerID(customerID string) (*models.User, error) {
	for _, u := range f.users {
		if u.StripeCustomerID == customerID {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) SaveUser(user *models.User) error {
	f.users[user.ID] = user
	f.saves++
	return nil
}

func (f *fakeRepository) CreateCheckoutSession(cs *models.BillingCheckoutSession) error {
	f.sessions[cs.SessionID] = cs
	return nil
}

func (f *fakeRepository) GetCheckoutSession(sessionID string) (*models.BillingCheckoutSession, error) {
	if cs, ok := f.sessions[sessionID]; ok {
		return cs, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) SaveCheckoutSession(cs *models.BillingCheckoutSession) error {
	f.sessions[cs.SessionID] = cs
	return nil
}

func (f *fakeRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if existing, ok := f.events[key]; ok {
		return false, existing, nil
	}
	f.nextEvent++
	event.ID = f.nextEvent
	f.events[key] = event
	return true, event, nil
}

func (f *fakeRepository) MarkWebhookProcessed(id uint, processingError string) error {
	for _, e := range f.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// fakeVerifier stands in for the provider's session lookup.
type fakeVerifier struct {
	paid  bool
	err   error
	calls int
}

func (f *fakeVerifier) CheckoutSessionPaid(sessionID string) (bool, error) {
	f.calls++
	return f.paid, f.err
}

func paidVerifier() *fakeVerifier { return &fakeVerifier{paid: true} }

func activePremiumUser(id uint) *models.User {
	start := time.Now().Add(-10 * 24 * time.Hour)
	end := time.Now().Add(20 * 24 * time.Hour)
	return &models.User{
		ID:                id,
		Name:              "Test Chef",
		Email:             "chef@example.com",
		Plan:              entitlements.PlanPremium,
		SubscriptionState: entitlements.StatusActive,
		SubscriptionStart: &start,
		SubscriptionEnd:   &end,
		StripeCustomerID:  "cus_123",
	}
}

func TestHandleEventCheckoutCompleted(t *testing.T) {
	repo := newFakeRepository()
	repo.users[7] = &models.User{ID: 7, Email: "new@example.com", Plan: entitlements.PlanFree, SubscriptionState: entitlements.StatusActive}
	repo.sessions["cs_1"] = &models.BillingCheckoutSession{SessionID: "cs_1", UserID: 7, Plan: entitlements.PlanPremium}
	svc := NewService(repo, paidVerifier())

	payload, _ := json.Marshal(CheckoutSession{
		ID:       "cs_1",
		Mode:     "subscription",
		Customer: "cus_new",
		Metadata: map[string]string{"user_id": "7", "plan": "premium"},
	})

	err := svc.HandleEvent(context.Background(), EventCheckoutCompleted, payload)
	require.NoError(t, err)

	user := repo.users[7]
	assert.Equal(t, entitlements.PlanPremium, user.Plan)
	assert.Equal(t, entitlements.StatusActive, user.SubscriptionState)
	assert.Equal(t, "cus_new", user.StripeCustomerID)
	require.NotNil(t, user.SubscriptionEnd)
	assert.WithinDuration(t, time.Now().AddDate(0, 1, 0), *user.SubscriptionEnd, time.Minute)
	assert.True(t, repo.sessions["cs_1"].Completed)
}

func TestHandleEventCheckoutCompletedRejectsBadMetadata(t *testing.T) {
	svc := NewService(newFakeRepository(), paidVerifier())

	cases := []map[string]string{
		nil,
		{"plan": "premium"}, // missing user id
		{"user_id": "abc", "plan": "premium"},
		{"user_id": "7", "plan": "free"}, // not purchasable
		{"user_id": "7", "plan": "gold"}, // unknown plan normalizes to free
	}
	for _, metadata := range cases {
		payload, _ := json.Marshal(CheckoutSession{ID: "cs_x", Mode: "subscription", Metadata: metadata})
		err := svc.HandleEvent(context.Background(), EventCheckoutCompleted, payload)
		assert.Error(t, err, "metadata %v", metadata)
	}
}

func TestHandleEventCheckoutCompletedFallsBackToEmail(t *testing.T) {
	repo := newFakeRepository()
	repo.users[9] = &models.User{ID: 9, Email: "owner@example.com", Plan: entitlements.PlanFree, SubscriptionState: entitlements.StatusActive}
	svc := NewService(repo, paidVerifier())

	// Session created outside the app: no user_id metadata, but the plan and
	// the customer email are present.
	session := CheckoutSession{
		ID:       "cs_ext",
		Mode:     "subscription",
		Metadata: map[string]string{"plan": "business"},
	}
	session.CustomerDetails.Email = "owner@example.com"
	payload, _ := json.Marshal(session)

	err := svc.HandleEvent(context.Background(), EventCheckoutCompleted, payload)
	require.NoError(t, err)
	assert.Equal(t, entitlements.PlanBusiness, repo.users[9].Plan)
}

func TestHandleEventInvoicePaidExtendsPeriod(t *testing.T) {
	repo := newFakeRepository()
	user := activePremiumUser(1)
	user.SubscriptionState = entitlements.StatusExpired
	repo.users[1] = user
	svc := NewService(repo, paidVerifier())

	payload, _ := json.Marshal(Invoice{ID: "in_1", Customer: "cus_123", CustomerEmail: "chef@example.com"})
	err := svc.HandleEvent(context.Background(), EventInvoicePaid, payload)
	require.NoError(t, err)

	assert.Equal(t, entitlements.StatusActive, user.SubscriptionState)
	assert.Equal(t, entitlements.PlanPremium, user.Plan)
	assert.WithinDuration(t, time.Now().AddDate(0, 1, 0), *user.SubscriptionEnd, time.Minute)
}

func TestHandleEventInvoiceFailedKeepsPlan(t *testing.T) {
	repo := newFakeRepository()
	user := activePremiumUser(1)
	repo.users[1] = user
	svc := NewService(repo, paidVerifier())

	payload, _ := json.Marshal(Invoice{ID: "in_2", Customer: "cus_123"})
	err := svc.HandleEvent(context.Background(), EventInvoiceFailed, payload)
	require.NoError(t, err)

	assert.Equal(t, entitlements.StatusExpired, user.SubscriptionState)
	// Plan survives so a later payment restores the old tier.
	assert.Equal(t, entitlements.PlanPremium, user.Plan)
	assert.False(t, user.CanAccess(entitlements.TierPremium))
	assert.True(t, user.CanAccess(entitlements.TierBasic))
}

func TestHandleEventInvoiceForUnknownCustomerIsSkipped(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, paidVerifier())

	payload, _ := json.Marshal(Invoice{ID: "in_3", Customer: "cus_ghost", CustomerEmail: "ghost@example.com"})
	assert.NoError(t, svc.HandleEvent(context.Background(), EventInvoicePaid, payload))
	assert.NoError(t, svc.HandleEvent(context.Background(), EventInvoiceFailed, payload))
	assert.Zero(t, repo.saves)
}

func TestHandleEventSubscriptionDeleted(t *testing.T) {
	repo := newFakeRepository()
	user := activePremiumUser(1)
	repo.users[1] = user
	svc := NewService(repo, paidVerifier())

	payload, _ := json.Marshal(Subscription{ID: "sub_1", Customer: "cus_123"})
	err := svc.HandleEvent(context.Background(), EventSubscriptionDeleted, payload)
	require.NoError(t, err)

	assert.Equal(t, entitlements.PlanFree, user.Plan)
	assert.Equal(t, entitlements.StatusCancelled, user.SubscriptionState)
	assert.WithinDuration(t, time.Now(), *user.SubscriptionEnd, time.Minute)
	assert.False(t, user.CanAccess(entitlements.TierPremium))
}

func TestHandleEventIgnoresUnknownTypes(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, paidVerifier())

	err := svc.HandleEvent(context.Background(), "charge.refunded", json.RawMessage(`{}`))
	assert.NoError(t, err)
	assert.Zero(t, repo.saves)
}

func TestConfirmCheckout(t *testing.T) {
	repo := newFakeRepository()
	repo.users[7] = &models.User{ID: 7, Plan: entitlements.PlanFree, SubscriptionState: entitlements.StatusActive}
	svc := NewService(repo, paidVerifier())

	require.NoError(t, svc.RegisterCheckoutSession(context.Background(), "cs_2", 7, entitlements.PlanBusiness))

	user, err := svc.ConfirmCheckout(context.Background(), "cs_2", 7)
	require.NoError(t, err)
	assert.Equal(t, entitlements.PlanBusiness, user.Plan)
	assert.Equal(t, entitlements.StatusActive, user.SubscriptionState)
	assert.True(t, repo.sessions["cs_2"].Completed)
}

func TestConfirmCheckoutOwnerMismatch(t *testing.T) {
	repo := newFakeRepository()
	repo.users[7] = &models.User{ID: 7, Plan: entitlements.PlanFree, SubscriptionState: entitlements.StatusActive}
	svc := NewService(repo, paidVerifier())

	require.NoError(t, svc.RegisterCheckoutSession(context.Background(), "cs_3", 7, entitlements.PlanPremium))

	_, err := svc.ConfirmCheckout(context.Background(), "cs_3", 8)
	assert.ErrorIs(t, err, ErrSessionOwnerMismatch)
	// No mutation happened.
	assert.Equal(t, entitlements.PlanFree, repo.users[7].Plan)
	assert.False(t, repo.sessions["cs_3"].Completed)
}

func TestConfirmCheckoutIsIdempotent(t *testing.T) {
	repo := newFakeRepository()
	repo.users[7] = &models.User{ID: 7, Plan: entitlements.PlanFree, SubscriptionState: entitlements.StatusActive}
	svc := NewService(repo, paidVerifier())

	require.NoError(t, svc.RegisterCheckoutSession(context.Background(), "cs_4", 7, entitlements.PlanPremium))

	first, err := svc.ConfirmCheckout(context.Background(), "cs_4", 7)
	require.NoError(t, err)
	firstEnd := *first.SubscriptionEnd

	second, err := svc.ConfirmCheckout(context.Background(), "cs_4", 7)
	require.NoError(t, err)
	assert.Equal(t, entitlements.PlanPremium, second.Plan)
	// The second confirm does not open a fresh period.
	assert.Equal(t, firstEnd, *second.SubscriptionEnd)
}

func TestConfirmCheckoutUnpaidSessionRejected(t *testing.T) {
	repo := newFakeRepository()
	repo.users[7] = &models.User{ID: 7, Plan: entitlements.PlanFree, SubscriptionState: entitlements.StatusActive}
	verifier := &fakeVerifier{paid: false}
	svc := NewService(repo, verifier)

	// The session id is known to the caller before any payment happens, so
	// an abandoned checkout must not confirm.
	require.NoError(t, svc.RegisterCheckoutSession(context.Background(), "cs_abandoned", 7, entitlements.PlanBusiness))

	_, err := svc.ConfirmCheckout(context.Background(), "cs_abandoned", 7)
	assert.ErrorIs(t, err, ErrSessionNotPaid)
	assert.Equal(t, 1, verifier.calls)
	assert.Equal(t, entitlements.PlanFree, repo.users[7].Plan)
	assert.False(t, repo.sessions["cs_abandoned"].Completed)
}

func TestConfirmCheckoutVerifierErrorPropagates(t *testing.T) {
	repo := newFakeRepository()
	repo.users[7] = &models.User{ID: 7, Plan: entitlements.PlanFree, SubscriptionState: entitlements.StatusActive}
	svc := NewService(repo, &fakeVerifier{err: assert.AnError})

	require.NoError(t, svc.RegisterCheckoutSession(context.Background(), "cs_5", 7, entitlements.PlanPremium))

	_, err := svc.ConfirmCheckout(context.Background(), "cs_5", 7)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, entitlements.PlanFree, repo.users[7].Plan)
}

func TestConfirmCheckoutWithoutVerifierFailsClosed(t *testing.T) {
	repo := newFakeRepository()
	repo.users[7] = &models.User{ID: 7, Plan: entitlements.PlanFree, SubscriptionState: entitlements.StatusActive}
	svc := NewService(repo, nil)

	require.NoError(t, svc.RegisterCheckoutSession(context.Background(), "cs_6", 7, entitlements.PlanPremium))

	_, err := svc.ConfirmCheckout(context.Background(), "cs_6", 7)
	assert.ErrorIs(t, err, ErrSessionNotPaid)
}

func TestConfirmCheckoutUnknownSession(t *testing.T) {
	svc := NewService(newFakeRepository(), paidVerifier())

	_, err := svc.ConfirmCheckout(context.Background(), "cs_missing", 7)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRecordWebhookEventDeduplicates(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, paidVerifier())

	in := WebhookEventInput{
		Provider:        ProviderStripe,
		ProviderEventID: "evt_1",
		EventType:       EventInvoicePaid,
		PayloadJSON:     `{"id":"evt_1"}`,
		SignatureValid:  true,
	}

	created, stored, err := svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, stored)

	createdAgain, storedAgain, err := svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, createdAgain)
	assert.Equal(t, stored.ID, storedAgain.ID)
}

func TestRecordWebhookEventHashesMissingEventID(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, paidVerifier())

	in := WebhookEventInput{
		Provider:    ProviderStripe,
		EventType:   EventInvoicePaid,
		PayloadJSON: `{"no":"id"}`,
	}

	created, stored, err := svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Contains(t, stored.ProviderEventID, "hash:")

	// Same payload, same synthetic id, so the redelivery is deduplicated.
	createdAgain, _, err := svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, createdAgain)
}

func TestMarkWebhookProcessedStoresError(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, paidVerifier())

	created, stored, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:        ProviderStripe,
		ProviderEventID: "evt_2",
		EventType:       EventInvoiceFailed,
		PayloadJSON:     `{}`,
	})
	require.NoError(t, err)
	require.True(t, created)

	require.NoError(t, svc.MarkWebhookProcessed(context.Background(), stored.ID, assert.AnError))
	assert.NotNil(t, stored.ProcessedAt)
	assert.Equal(t, assert.AnError.Error(), stored.ProcessingError)
}
