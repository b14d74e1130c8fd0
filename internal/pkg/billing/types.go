package billing

// Provider constants used across billing persistence.
const ProviderStripe = "stripe"

// Event types this synchronizer reacts to. Everything else is recorded and
// ignored.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventInvoicePaid         = "invoice.payment_succeeded"
	EventInvoiceFailed       = "invoice.payment_failed"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// CheckoutSession is a minimal representation of a Stripe checkout.session
// payload. Metadata carries the owning user id and the selected plan.
type CheckoutSession struct {
	ID              string `json:"id"`
	Mode            string `json:"mode"`
	Customer        string `json:"customer"`
	Subscription    string `json:"subscription"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Metadata map[string]string `json:"metadata"`
}

// Email returns the best available customer email from the session payload.
func (s *CheckoutSession) Email() string {
	if s.CustomerEmail != "" {
		return s.CustomerEmail
	}
	return s.CustomerDetails.Email
}

// Invoice is a minimal representation of a Stripe invoice payload.
type Invoice struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	CustomerEmail string `json:"customer_email"`
	Subscription  string `json:"subscription"`
}

// Subscription is a minimal representation of a Stripe subscription payload.
type Subscription struct {
	ID       string            `json:"id"`
	Customer string            `json:"customer"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}
