package lemonsqueezy

import "time"

// Webhook event names delivered via the x-event-name header.
const (
	EventSubscriptionCreated        = "subscription_created"
	EventSubscriptionUpdated        = "subscription_updated"
	EventSubscriptionPaymentSuccess = "subscription_payment_success"
)

// Signature and event headers set by the provider on webhook deliveries.
const (
	HeaderEventName = "x-event-name"
	HeaderSignature = "x-signature"
)

// WebhookPayload is the JSON:API envelope delivered to the webhook endpoint.
type WebhookPayload struct {
	Meta WebhookMeta `json:"meta"`
	Data WebhookData `json:"data"`
}

// WebhookMeta carries the event name plus the custom data forwarded from checkout.
type WebhookMeta struct {
	EventName  string            `json:"event_name"`
	CustomData WebhookCustomData `json:"custom_data"`
}

// WebhookCustomData is the passthrough payload attached when the checkout was created.
type WebhookCustomData struct {
	OrganizationID string `json:"organization_id"`
}

// WebhookData is the resource object inside a webhook delivery.
type WebhookData struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id"`
	Attributes SubscriptionAttributes `json:"attributes"`
}

// SubscriptionAttributes mirrors the provider's subscription resource.
type SubscriptionAttributes struct {
	StoreID       int64            `json:"store_id"`
	CustomerID    int64            `json:"customer_id"`
	OrderID       int64            `json:"order_id"`
	ProductID     int64            `json:"product_id"`
	VariantID     int64            `json:"variant_id"`
	ProductName   string           `json:"product_name"`
	VariantName   string           `json:"variant_name"`
	UserEmail     string           `json:"user_email"`
	Status        string           `json:"status"`
	Cancelled     bool             `json:"cancelled"`
	BillingAnchor int              `json:"billing_anchor"`
	URLs          SubscriptionURLs `json:"urls"`
	TrialEndsAt   *time.Time       `json:"trial_ends_at"`
	RenewsAt      *time.Time       `json:"renews_at"`
	EndsAt        *time.Time       `json:"ends_at"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// SubscriptionURLs carries the signed customer-facing links the provider
// attaches to a subscription.
type SubscriptionURLs struct {
	UpdatePaymentMethod string `json:"update_payment_method"`
}

// Subscription is the API representation returned by subscription endpoints.
type Subscription struct {
	ID         string                 `json:"id"`
	Attributes SubscriptionAttributes `json:"attributes"`
}

// Checkout is the API representation returned when creating a checkout.
type Checkout struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutParams describes a hosted checkout for one organization/variant pair.
// OrganizationID rides along as custom data and comes back on every webhook.
type CheckoutParams struct {
	OrganizationID string
	VariantID      int64
	ReturnURL      string
}

// UpdateSubscriptionParams moves a subscription to a different product/variant.
type UpdateSubscriptionParams struct {
	SubscriptionID string
	ProductID      int64
	VariantID      int64
}
