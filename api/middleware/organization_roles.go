package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/launchbase-io/launchbase-backend/api/responses"
	"github.com/launchbase-io/launchbase-backend/pkg/enums"
	pkgerrors "github.com/launchbase-io/launchbase-backend/pkg/errors"
	"github.com/launchbase-io/launchbase-backend/pkg/logger"
)

type MembershipChecker interface {
	UserHasRole(ctx context.Context, userID, organizationID uuid.UUID, roles ...enums.MemberRole) (bool, error)
}

// RequireOrganizationRoles filters requests by organization membership roles
// before executing the handler. Billing mutations sit behind this with the
// owner/admin pair, so a denied member never reaches the provider client.
func RequireOrganizationRoles(checker MembershipChecker, logg *logger.Logger, allowed ...enums.MemberRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if checker == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "membership checker unavailable"))
				return
			}
			if len(allowed) == 0 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "allowed roles missing"))
				return
			}

			userID := UserIDFromContext(ctx)
			if userID == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}

			organizationID := OrganizationIDFromContext(ctx)
			if organizationID == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "organization context required"))
				return
			}

			uid, err := uuid.Parse(userID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
				return
			}

			oid, err := uuid.Parse(organizationID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid organization id"))
				return
			}

			ok, err := checker.UserHasRole(ctx, uid, oid, allowed...)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership role"))
				return
			}
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient organization role"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// BillingRoles returns the roles allowed to manage billing.
func BillingRoles() []enums.MemberRole {
	roles := make([]enums.MemberRole, 0, 2)
	for _, role := range []enums.MemberRole{enums.MemberRoleOwner, enums.MemberRoleAdmin, enums.MemberRoleMember} {
		if role.CanChangeBilling() {
			roles = append(roles, role)
		}
	}
	return roles
}
