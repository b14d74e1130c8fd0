package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/gastrolink/gastrolink/internal/pkg/entitlements"
)

func testGateway(webhookSecret string) *Gateway {
	return NewGateway("sk_test_key", webhookSecret, "https://example.com/success", "https://example.com/cancel", map[entitlements.Plan]string{
		entitlements.PlanPremium: "price_premium",
	})
}

func TestHasProductionSecret(t *testing.T) {
	assert.True(t, testGateway("whsec_abc123").HasProductionSecret())
	assert.False(t, testGateway("").HasProductionSecret())
	assert.False(t, testGateway("dev-secret").HasProductionSecret())
}

func TestParseWebhookSignedPayload(t *testing.T) {
	const secret = "whsec_test_123"
	gw := testGateway(secret)

	payload := []byte(`{"id":"evt_1","type":"invoice.payment_succeeded","data":{"object":{"id":"in_1","customer":"cus_1"}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})

	event, signatureValid, err := gw.ParseWebhook(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.True(t, signatureValid)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventInvoicePaid, string(event.Type))
}

func TestParseWebhookRejectsWrongSecret(t *testing.T) {
	gw := testGateway("whsec_test_123")

	payload := []byte(`{"id":"evt_1","type":"invoice.payment_succeeded"}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_wrong",
		Timestamp: time.Now(),
		Scheme:    "v1",
	})

	_, signatureValid, err := gw.ParseWebhook(signed.Payload, signed.Header)
	assert.Error(t, err)
	assert.False(t, signatureValid)
}

func TestParseWebhookDevModeAcceptsUnsigned(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	gw := testGateway("dev-secret")

	payload := []byte(`{"id":"evt_dev","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1"}}}`)
	event, signatureValid, err := gw.ParseWebhook(payload, "")
	require.NoError(t, err)
	assert.False(t, signatureValid)
	assert.Equal(t, "evt_dev", event.ID)
	assert.Equal(t, EventSubscriptionDeleted, string(event.Type))
}

func TestParseWebhookDevModeRejectsGarbage(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	gw := testGateway("")

	_, _, err := gw.ParseWebhook([]byte("not json"), "")
	assert.Error(t, err)
}

func TestParseWebhookUnsignedRejectedOutsideDev(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	gw := testGateway("")

	_, signatureValid, err := gw.ParseWebhook([]byte(`{"id":"evt_1","type":"invoice.payment_succeeded"}`), "")
	assert.Error(t, err)
	assert.False(t, signatureValid)
}
