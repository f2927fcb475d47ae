package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/launchbase-io/launchbase-backend/pkg/auth"
	"github.com/launchbase-io/launchbase-backend/pkg/auth/session"
	"github.com/launchbase-io/launchbase-backend/pkg/config"
	"github.com/launchbase-io/launchbase-backend/pkg/db/models"
	"github.com/launchbase-io/launchbase-backend/pkg/enums"
	"github.com/launchbase-io/launchbase-backend/pkg/logger"
	"github.com/launchbase-io/launchbase-backend/pkg/types"
)

type stubSessionRotator struct {
	rotateErr error
	revoked   []string
	rotated   []string
}

func (s *stubSessionRotator) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	s.rotated = append(s.rotated, oldAccessID)
	return "access-2", "refresh-2", nil
}

func (s *stubSessionRotator) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubUserDirectory struct {
	user    *models.User
	findErr error
	touched []uuid.UUID
}

func (s *stubUserDirectory) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.user != nil {
		return s.user, nil
	}
	return &models.User{ID: id, IsActive: true}, nil
}

func (s *stubUserDirectory) TouchLastLogin(ctx context.Context, userID uuid.UUID) error {
	s.touched = append(s.touched, userID)
	return nil
}

func sessionTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "session-secret",
		Issuer:            "launchbase",
		ExpirationMinutes: 15,
	}
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func mintSessionToken(t *testing.T, cfg config.JWTConfig, issuedAt time.Time, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg, issuedAt, pkgAuth.AccessTokenPayload{
		UserID: userID,
		Role:   enums.MemberRoleOwner,
		JTI:    "access-1",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestRefreshRotatesSession(t *testing.T) {
	cfg := sessionTestConfig()
	rotator := &stubSessionRotator{}
	users := &stubUserDirectory{}
	controller := NewSessionController(cfg, rotator, users, quietLogger())

	userID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"refresh-1"}`))
	req.Header.Set("Authorization", "Bearer "+mintSessionToken(t, cfg, time.Now(), userID))
	rec := httptest.NewRecorder()
	controller.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(rotator.rotated) != 1 || rotator.rotated[0] != "access-1" {
		t.Fatalf("expected rotation of access-1, got %v", rotator.rotated)
	}
	if len(users.touched) != 1 || users.touched[0] != userID {
		t.Fatalf("expected last login touch for %s, got %v", userID, users.touched)
	}

	var envelope types.SuccessEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data, _ := envelope.Data.(map[string]any)
	if data["refresh_token"] != "refresh-2" {
		t.Fatalf("expected rotated refresh token, got %v", data)
	}
	if access, _ := data["access_token"].(string); access == "" {
		t.Fatal("expected a new access token")
	} else if _, err := pkgAuth.ParseAccessToken(cfg, access); err != nil {
		t.Fatalf("new access token must verify: %v", err)
	}
}

func TestRefreshAcceptsExpiredAccessToken(t *testing.T) {
	cfg := sessionTestConfig()
	rotator := &stubSessionRotator{}
	controller := NewSessionController(cfg, rotator, &stubUserDirectory{}, quietLogger())

	stale := mintSessionToken(t, cfg, time.Now().Add(-24*time.Hour), uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"refresh-1"}`))
	req.Header.Set("Authorization", "Bearer "+stale)
	rec := httptest.NewRecorder()
	controller.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with expired access token, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRefreshRejectsInvalidRefreshToken(t *testing.T) {
	cfg := sessionTestConfig()
	rotator := &stubSessionRotator{rotateErr: session.ErrInvalidRefreshToken}
	controller := NewSessionController(cfg, rotator, &stubUserDirectory{}, quietLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"stolen"}`))
	req.Header.Set("Authorization", "Bearer "+mintSessionToken(t, cfg, time.Now(), uuid.New()))
	rec := httptest.NewRecorder()
	controller.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRefreshRejectsForgedAccessToken(t *testing.T) {
	cfg := sessionTestConfig()
	other := cfg
	other.Secret = "other-secret"
	controller := NewSessionController(cfg, &stubSessionRotator{}, &stubUserDirectory{}, quietLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"refresh-1"}`))
	req.Header.Set("Authorization", "Bearer "+mintSessionToken(t, other, time.Now(), uuid.New()))
	rec := httptest.NewRecorder()
	controller.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for forged token, got %d", rec.Code)
	}
}

func TestRefreshRejectsDeactivatedUser(t *testing.T) {
	cfg := sessionTestConfig()
	rotator := &stubSessionRotator{}
	userID := uuid.New()
	users := &stubUserDirectory{user: &models.User{ID: userID, IsActive: false}}
	controller := NewSessionController(cfg, rotator, users, quietLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"refresh-1"}`))
	req.Header.Set("Authorization", "Bearer "+mintSessionToken(t, cfg, time.Now(), userID))
	rec := httptest.NewRecorder()
	controller.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deactivated user, got %d", rec.Code)
	}
	if len(rotator.rotated) != 0 {
		t.Fatal("expected no rotation for deactivated user")
	}
}

func TestRefreshRejectsUnknownUser(t *testing.T) {
	cfg := sessionTestConfig()
	rotator := &stubSessionRotator{}
	users := &stubUserDirectory{findErr: gorm.ErrRecordNotFound}
	controller := NewSessionController(cfg, rotator, users, quietLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"refresh-1"}`))
	req.Header.Set("Authorization", "Bearer "+mintSessionToken(t, cfg, time.Now(), uuid.New()))
	rec := httptest.NewRecorder()
	controller.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", rec.Code)
	}
	if len(rotator.rotated) != 0 {
		t.Fatal("expected no rotation for unknown user")
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	cfg := sessionTestConfig()
	rotator := &stubSessionRotator{}
	controller := NewSessionController(cfg, rotator, &stubUserDirectory{}, quietLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+mintSessionToken(t, cfg, time.Now(), uuid.New()))
	rec := httptest.NewRecorder()
	controller.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(rotator.revoked) != 1 || rotator.revoked[0] != "access-1" {
		t.Fatalf("expected revocation of access-1, got %v", rotator.revoked)
	}
}
