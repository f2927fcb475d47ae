package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/launchbase-io/launchbase-backend/api/responses"
	"github.com/launchbase-io/launchbase-backend/api/validators"
	"github.com/launchbase-io/launchbase-backend/internal/organizations"
	pkgerrors "github.com/launchbase-io/launchbase-backend/pkg/errors"
	"github.com/launchbase-io/launchbase-backend/pkg/logger"
)

// OrganizationsController exposes the active organization's profile and
// member management.
type OrganizationsController struct {
	service organizations.Service
	logger  *logger.Logger
}

func NewOrganizationsController(service organizations.Service, logg *logger.Logger) *OrganizationsController {
	return &OrganizationsController{service: service, logger: logg}
}

// Profile returns the organization together with its subscription summary.
func (c *OrganizationsController) Profile(w http.ResponseWriter, r *http.Request) {
	userID, organizationID, err := actorIDs(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	profile, err := c.service.GetProfile(r.Context(), userID, organizationID)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}
	responses.WriteSuccess(w, profile)
}

// Update applies partial changes to the organization profile.
func (c *OrganizationsController) Update(w http.ResponseWriter, r *http.Request) {
	userID, organizationID, err := actorIDs(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	var input organizations.UpdateOrganizationInput
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	updated, err := c.service.Update(r.Context(), userID, organizationID, input)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}
	responses.WriteSuccess(w, updated)
}

// Delete soft deletes the organization after cancelling any active
// subscription with the provider.
func (c *OrganizationsController) Delete(w http.ResponseWriter, r *http.Request) {
	userID, organizationID, err := actorIDs(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	if err := c.service.Delete(r.Context(), userID, organizationID); err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}
	responses.WriteSuccess(w, nil)
}

// Members lists the organization roster.
func (c *OrganizationsController) Members(w http.ResponseWriter, r *http.Request) {
	userID, organizationID, err := actorIDs(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	members, err := c.service.ListMembers(r.Context(), userID, organizationID)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}
	responses.WriteSuccess(w, members)
}

// Invite adds a member by email, creating a pending invite when the address
// has no account yet.
func (c *OrganizationsController) Invite(w http.ResponseWriter, r *http.Request) {
	userID, organizationID, err := actorIDs(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	var input organizations.InviteMemberInput
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	membership, err := c.service.InviteMember(r.Context(), userID, organizationID, input)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, membership)
}

// UpdateMemberRole changes the role on a membership in the active organization.
func (c *OrganizationsController) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	userID, organizationID, err := actorIDs(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	membershipID, err := membershipIDParam(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	var input organizations.UpdateMemberRoleInput
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	membership, err := c.service.UpdateMemberRole(r.Context(), userID, organizationID, membershipID, input)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}
	responses.WriteSuccess(w, membership)
}

// RemoveMember deletes a membership or revokes a pending invite.
func (c *OrganizationsController) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, organizationID, err := actorIDs(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	membershipID, err := membershipIDParam(r)
	if err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}

	if err := c.service.RemoveMember(r.Context(), userID, organizationID, membershipID); err != nil {
		responses.WriteError(r.Context(), c.logger, w, err)
		return
	}
	responses.WriteSuccess(w, nil)
}

func membershipIDParam(r *http.Request) (uuid.UUID, error) {
	membershipID, err := uuid.Parse(chi.URLParam(r, "membershipID"))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid membership id")
	}
	return membershipID, nil
}
