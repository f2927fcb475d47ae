package controllers

import (
	"net/http"

	"github.com/launchbase-io/launchbase-backend/api/responses"
	"github.com/launchbase-io/launchbase-backend/api/validators"
	"github.com/launchbase-io/launchbase-backend/internal/subscriptions"
	"github.com/launchbase-io/launchbase-backend/pkg/logger"
)

type changePlanRequest struct {
	VariantID int64 `json:"variant_id" validate:"required,gt=0"`
}

// BillingController exposes the billing actions an organization can take.
// Every mutation goes to the payment provider; local subscription state only
// changes when the resulting webhook lands.
type BillingController struct {
	service subscriptions.Service
	logger  *logger.Logger
}

func NewBillingController(service subscriptions.Service, logg *logger.Logger) *BillingController {
	return &BillingController{service: service, logger: logg}
}

// Checkout creates a hosted checkout session for the selected plan variant.
func (c *BillingController) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, organizationID, err := actorIDs(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	var input subscriptions.CheckoutInput
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	checkout, err := c.service.CreateCheckout(r.Context(), userID, organizationID, input)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, checkout)
}

// Subscription returns the organization's current subscription with its plan.
func (c *BillingController) Subscription(w http.ResponseWriter, r *http.Request) {
	userID, organizationID, err := actorIDs(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	details, err := c.service.GetCurrent(r.Context(), userID, organizationID)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}
	responses.WriteSuccess(w, details)
}

// ChangePlan moves the subscription to another plan variant at the provider.
func (c *BillingController) ChangePlan(w http.ResponseWriter, r *http.Request) {
	userID, organizationID, err := actorIDs(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	var input changePlanRequest
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	if err := c.service.ChangePlan(r.Context(), userID, organizationID, input.VariantID); err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusAccepted, nil)
}

// Cancel schedules the subscription to end at the period boundary.
func (c *BillingController) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, organizationID, err := actorIDs(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	if err := c.service.Cancel(r.Context(), userID, organizationID); err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusAccepted, nil)
}

// Resume reverts a pending cancellation before the period ends.
func (c *BillingController) Resume(w http.ResponseWriter, r *http.Request) {
	userID, organizationID, err := actorIDs(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	if err := c.service.Resume(r.Context(), userID, organizationID); err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusAccepted, nil)
}
