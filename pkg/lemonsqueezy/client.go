package lemonsqueezy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/launchbase-io/launchbase-backend/pkg/config"
	pkgerrors "github.com/launchbase-io/launchbase-backend/pkg/errors"
	"github.com/launchbase-io/launchbase-backend/pkg/logger"
)

const jsonAPIContentType = "application/vnd.api+json"

var (
	errAPIKeyRequired = errors.New("lemon squeezy api key is required")
	errStoreRequired  = errors.New("lemon squeezy store id is required")
	errLoggerRequired = errors.New("lemon squeezy logger is required")
)

// Client exposes the provider's billing primitives with centralized auth,
// logging, and error mapping.
type Client struct {
	http          *http.Client
	baseURL       string
	apiKey        string
	storeID       int64
	signingSecret string
	logger        *logger.Logger
}

// API is the surface consumed by billing action services.
type API interface {
	CreateCheckout(ctx context.Context, params CheckoutParams) (*Checkout, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	UpdateSubscription(ctx context.Context, params UpdateSubscriptionParams) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	ResumeSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
}

// NewClient initializes the provider wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.LemonSqueezyConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if strings.TrimSpace(cfg.SigningSecret) == "" {
		return nil, ErrSigningSecretRequired
	}
	if cfg.StoreID <= 0 {
		return nil, errStoreRequired
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.lemonsqueezy.com"
	}

	c := &Client{
		http:          &http.Client{Timeout: cfg.Timeout},
		baseURL:       baseURL,
		apiKey:        apiKey,
		storeID:       cfg.StoreID,
		signingSecret: strings.TrimSpace(cfg.SigningSecret),
		logger:        logg,
	}

	logg.Info(ctx, "lemon squeezy client initialized")
	return c, nil
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// CreateCheckout creates a hosted checkout for the organization/variant pair.
func (c *Client) CreateCheckout(ctx context.Context, params CheckoutParams) (*Checkout, error) {
	if params.OrganizationID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id is required for checkout")
	}
	if params.VariantID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required for checkout")
	}

	body := map[string]any{
		"data": map[string]any{
			"type": "checkouts",
			"attributes": map[string]any{
				"checkout_data": map[string]any{
					"custom": map[string]any{
						"organization_id": params.OrganizationID,
					},
				},
				"product_options": map[string]any{
					"redirect_url":     params.ReturnURL,
					"enabled_variants": []int64{params.VariantID},
				},
			},
			"relationships": map[string]any{
				"store": map[string]any{
					"data": map[string]any{
						"type": "stores",
						"id":   strconv.FormatInt(c.storeID, 10),
					},
				},
				"variant": map[string]any{
					"data": map[string]any{
						"type": "variants",
						"id":   strconv.FormatInt(params.VariantID, 10),
					},
				},
			},
		},
	}

	c.log(ctx, "request", "create_checkout", map[string]any{
		"organization_id": params.OrganizationID,
		"variant_id":      params.VariantID,
	})

	var resp struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				URL string `json:"url"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/checkouts", body, &resp); err != nil {
		c.log(ctx, "error", "create_checkout", map[string]any{"error": err.Error()})
		return nil, c.mapProviderError(err, "create checkout")
	}

	checkout := &Checkout{ID: resp.Data.ID, URL: resp.Data.Attributes.URL}
	c.log(ctx, "response", "create_checkout", map[string]any{"checkout_id": checkout.ID})
	return checkout, nil
}

// GetSubscription fetches a subscription by the provider id.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	c.log(ctx, "request", "get_subscription", map[string]any{"subscription_id": subscriptionID})

	sub, err := c.subscriptionRequest(ctx, http.MethodGet, subscriptionID, nil)
	if err != nil {
		c.log(ctx, "error", "get_subscription", map[string]any{"error": err.Error()})
		return nil, c.mapProviderError(err, "get subscription")
	}

	c.log(ctx, "response", "get_subscription", map[string]any{
		"subscription_id": sub.ID,
		"status":          sub.Attributes.Status,
	})
	return sub, nil
}

// UpdateSubscription moves the subscription to a new product/variant pair.
// The provider prorates and emits subscription_updated, which flows back
// through the webhook before any local row changes.
func (c *Client) UpdateSubscription(ctx context.Context, params UpdateSubscriptionParams) (*Subscription, error) {
	body := map[string]any{
		"data": map[string]any{
			"type": "subscriptions",
			"id":   params.SubscriptionID,
			"attributes": map[string]any{
				"product_id": params.ProductID,
				"variant_id": params.VariantID,
			},
		},
	}

	c.log(ctx, "request", "update_subscription", map[string]any{
		"subscription_id": params.SubscriptionID,
		"product_id":      params.ProductID,
		"variant_id":      params.VariantID,
	})

	sub, err := c.subscriptionRequest(ctx, http.MethodPatch, params.SubscriptionID, body)
	if err != nil {
		c.log(ctx, "error", "update_subscription", map[string]any{"error": err.Error()})
		return nil, c.mapProviderError(err, "update subscription")
	}

	c.log(ctx, "response", "update_subscription", map[string]any{
		"subscription_id": sub.ID,
		"status":          sub.Attributes.Status,
	})
	return sub, nil
}

// CancelSubscription schedules the subscription for cancellation at period end.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	c.log(ctx, "request", "cancel_subscription", map[string]any{"subscription_id": subscriptionID})

	sub, err := c.subscriptionRequest(ctx, http.MethodDelete, subscriptionID, nil)
	if err != nil {
		c.log(ctx, "error", "cancel_subscription", map[string]any{"error": err.Error()})
		return nil, c.mapProviderError(err, "cancel subscription")
	}

	c.log(ctx, "response", "cancel_subscription", map[string]any{
		"subscription_id": sub.ID,
		"status":          sub.Attributes.Status,
	})
	return sub, nil
}

// ResumeSubscription clears a pending cancellation.
func (c *Client) ResumeSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	body := map[string]any{
		"data": map[string]any{
			"type": "subscriptions",
			"id":   subscriptionID,
			"attributes": map[string]any{
				"cancelled": false,
			},
		},
	}

	c.log(ctx, "request", "resume_subscription", map[string]any{"subscription_id": subscriptionID})

	sub, err := c.subscriptionRequest(ctx, http.MethodPatch, subscriptionID, body)
	if err != nil {
		c.log(ctx, "error", "resume_subscription", map[string]any{"error": err.Error()})
		return nil, c.mapProviderError(err, "resume subscription")
	}

	c.log(ctx, "response", "resume_subscription", map[string]any{
		"subscription_id": sub.ID,
		"status":          sub.Attributes.Status,
	})
	return sub, nil
}

func (c *Client) subscriptionRequest(ctx context.Context, method, subscriptionID string, body any) (*Subscription, error) {
	if strings.TrimSpace(subscriptionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id is required")
	}

	var resp struct {
		Data struct {
			ID         string                 `json:"id"`
			Attributes SubscriptionAttributes `json:"attributes"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/v1/subscriptions/%s", subscriptionID)
	if err := c.do(ctx, method, path, body, &resp); err != nil {
		return nil, err
	}
	return &Subscription{ID: resp.Data.ID, Attributes: resp.Data.Attributes}, nil
}

type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("lemon squeezy api status %d: %s", e.status, e.body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", jsonAPIContentType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", jsonAPIContentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &apiError{status: resp.StatusCode, body: strings.TrimSpace(string(raw))}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding response body: %w", err)
		}
	}
	return nil
}

func (c *Client) mapProviderError(err error, op string) error {
	if err == nil {
		return nil
	}
	var domainErr *pkgerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return pkgerrors.Wrap(domainCodeForStatus(apiErr.status), err, fmt.Sprintf("lemon squeezy %s failed", op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("lemon squeezy %s failed", op))
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("lemon squeezy %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("lemon squeezy %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "token", "secret", "email", "key"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
