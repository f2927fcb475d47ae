package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/launchbase-io/launchbase-backend/api/responses"
	"github.com/launchbase-io/launchbase-backend/api/validators"
	pkgAuth "github.com/launchbase-io/launchbase-backend/pkg/auth"
	"github.com/launchbase-io/launchbase-backend/pkg/auth/session"
	"github.com/launchbase-io/launchbase-backend/pkg/config"
	"github.com/launchbase-io/launchbase-backend/pkg/db/models"
	pkgerrors "github.com/launchbase-io/launchbase-backend/pkg/errors"
	"github.com/launchbase-io/launchbase-backend/pkg/logger"
)

type sessionTokenRotator interface {
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type userDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	TouchLastLogin(ctx context.Context, userID uuid.UUID) error
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SessionController rotates and revokes sessions for already-issued tokens.
// Initial token issuance happens upstream at the identity provider.
type SessionController struct {
	cfg      config.JWTConfig
	sessions sessionTokenRotator
	users    userDirectory
	logger   *logger.Logger
}

func NewSessionController(cfg config.JWTConfig, sessions sessionTokenRotator, users userDirectory, logg *logger.Logger) *SessionController {
	return &SessionController{cfg: cfg, sessions: sessions, users: users, logger: logg}
}

// Refresh exchanges a valid refresh token for a new access/refresh pair. The
// access token may already be expired; its signature still has to verify.
func (c *SessionController) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, err := c.bearerClaims(r)
	if err != nil {
		responses.WriteError(ctx, c.logger, w, err)
		return
	}

	var input refreshRequest
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(ctx, c.logger, w, err)
		return
	}

	// A deactivated account must not be able to refresh its way back in.
	user, err := c.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			responses.WriteError(ctx, c.logger, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown user"))
			return
		}
		responses.WriteError(ctx, c.logger, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user"))
		return
	}
	if !user.IsActive {
		responses.WriteError(ctx, c.logger, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account disabled"))
		return
	}

	newAccessID, newRefreshToken, err := c.sessions.Rotate(ctx, claims.ID, input.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			responses.WriteError(ctx, c.logger, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid refresh token"))
			return
		}
		responses.WriteError(ctx, c.logger, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session"))
		return
	}

	accessToken, err := pkgAuth.MintAccessToken(c.cfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:               claims.UserID,
		ActiveOrganizationID: claims.ActiveOrganizationID,
		Role:                 claims.Role,
		JTI:                  newAccessID,
	})
	if err != nil {
		responses.WriteError(ctx, c.logger, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token"))
		return
	}

	if err := c.users.TouchLastLogin(ctx, claims.UserID); err != nil {
		c.logger.Warn(c.logger.WithUserID(ctx, claims.UserID.String()), "touch last login failed")
	}

	responses.WriteSuccess(w, refreshResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	})
}

// Logout revokes the session behind the presented access token.
func (c *SessionController) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, err := c.bearerClaims(r)
	if err != nil {
		responses.WriteError(ctx, c.logger, w, err)
		return
	}

	if err := c.sessions.Revoke(ctx, claims.ID); err != nil {
		responses.WriteError(ctx, c.logger, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session"))
		return
	}

	responses.WriteSuccess(w, nil)
}

func (c *SessionController) bearerClaims(r *http.Request) (*pkgAuth.AccessTokenClaims, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgAuth.ParseAccessTokenAllowExpired(c.cfg, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return claims, nil
}
