package webhooks

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/launchbase-io/launchbase-backend/api/responses"
	webhooksvc "github.com/launchbase-io/launchbase-backend/internal/webhooks/lemonsqueezy"
	pkgerrors "github.com/launchbase-io/launchbase-backend/pkg/errors"
	ls "github.com/launchbase-io/launchbase-backend/pkg/lemonsqueezy"
	"github.com/launchbase-io/launchbase-backend/pkg/logger"
	"github.com/launchbase-io/launchbase-backend/pkg/metrics"
)

const maxWebhookBodyBytes = 1 << 20

// LemonSqueezyController receives provider webhook deliveries. Signature
// verification runs against the raw body bytes before any decoding.
type LemonSqueezyController struct {
	signingSecret string
	service       webhooksvc.Service
	metrics       *metrics.WebhookMetrics
	logger        *logger.Logger
}

// NewLemonSqueezyController wires the webhook endpoint dependencies.
func NewLemonSqueezyController(signingSecret string, service webhooksvc.Service, m *metrics.WebhookMetrics, logg *logger.Logger) (*LemonSqueezyController, error) {
	if strings.TrimSpace(signingSecret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook signing secret required")
	}
	if service == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook service required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &LemonSqueezyController{
		signingSecret: signingSecret,
		service:       service,
		metrics:       m,
		logger:        logg,
	}, nil
}

// Handle processes one delivery. A rejected signature never reaches the
// service, and a handler failure returns 5xx so the provider retries.
func (c *LemonSqueezyController) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		responses.WriteError(ctx, c.logger, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read webhook body"))
		return
	}

	eventName := strings.TrimSpace(r.Header.Get(ls.HeaderEventName))

	if err := ls.VerifySignature(c.signingSecret, body, r.Header.Get(ls.HeaderSignature)); err != nil {
		c.metrics.IncRejected(eventName)
		switch {
		case errors.Is(err, ls.ErrMissingSignature):
			responses.WriteError(ctx, c.logger, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "missing webhook signature"))
		case errors.Is(err, ls.ErrInvalidSignature):
			responses.WriteError(ctx, c.logger, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid webhook signature"))
		default:
			responses.WriteError(ctx, c.logger, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify webhook signature"))
		}
		return
	}

	if eventName == "" {
		c.metrics.IncRejected(eventName)
		responses.WriteError(ctx, c.logger, w, pkgerrors.New(pkgerrors.CodeValidation, "event name header required"))
		return
	}

	var payload ls.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.metrics.IncRejected(eventName)
		responses.WriteError(ctx, c.logger, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload"))
		return
	}

	if err := c.service.HandleEvent(ctx, eventName, &payload); err != nil {
		responses.WriteError(ctx, c.logger, w, err)
		return
	}

	responses.WriteSuccess(w, nil)
}
