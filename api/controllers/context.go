package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/launchbase-io/launchbase-backend/api/middleware"
	pkgerrors "github.com/launchbase-io/launchbase-backend/pkg/errors"
)

// actorIDs resolves the authenticated user and active organization from the
// request context. Auth middleware seeds both, so a miss here means the route
// is wired wrong or the token carries no active organization.
func actorIDs(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	rawUser := middleware.UserIDFromContext(r.Context())
	if rawUser == "" {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}

	rawOrg := middleware.OrganizationIDFromContext(r.Context())
	if rawOrg == "" {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "active organization required")
	}
	organizationID, err := uuid.Parse(rawOrg)
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid organization id")
	}

	return userID, organizationID, nil
}
