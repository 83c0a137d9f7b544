package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"intervi-api/internal/metrics"
	"intervi-api/internal/model"
	"intervi-api/internal/password"
	"intervi-api/internal/revocation"
	"intervi-api/internal/token"
)

// CredentialStore is the user persistence the auth flow needs.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByID(ctx context.Context, id string) (model.User, error)
	Create(ctx context.Context, u model.User) (model.User, error)
}

// AuthService owns password hashing and token issuance policy.
type AuthService struct {
	users   CredentialStore
	hasher  *password.Hasher
	issuer  *token.Issuer
	revoked revocation.Denylist
	metrics *metrics.Metrics
	admins  map[string]struct{}
	now     func() time.Time
}

func NewAuthService(users CredentialStore, hasher *password.Hasher, issuer *token.Issuer, revoked revocation.Denylist, m *metrics.Metrics) *AuthService {
	return &AuthService{
		users:   users,
		hasher:  hasher,
		issuer:  issuer,
		revoked: revoked,
		metrics: m,
		now:     time.Now,
	}
}

// SetAdminEmails makes registrations with one of these emails admins.
func (s *AuthService) SetAdminEmails(emails []string) {
	s.admins = make(map[string]struct{}, len(emails))
	for _, email := range emails {
		s.admins[model.NormalizeEmail(email)] = struct{}{}
	}
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (result model.AuthResult, err error) {
	defer func() { s.metrics.AuthEvent("register", err) }()

	if err := validateRegister(&req); err != nil {
		return model.AuthResult{}, err
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	role := model.RoleCandidate
	if _, ok := s.admins[req.Email]; ok {
		role = model.RoleAdmin
	}

	now := s.now().UTC()
	user, err := s.users.Create(ctx, model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return model.AuthResult{}, err
	}

	pair, err := s.issuer.IssuePair(user.ID)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("issue tokens: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID)
	return model.AuthResult{TokenPair: pair, User: user.Summary()}, nil
}

// Login answers an unknown email and a wrong password identically. A miss
// still pays for one bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (result model.AuthResult, err error) {
	defer func() { s.metrics.AuthEvent("login", err) }()

	if err := validateLogin(&req); err != nil {
		return model.AuthResult{}, err
	}

	// bcrypt only reads the first 72 bytes, so a longer password could match
	// a stored hash it was never registered with.
	if len(req.Password) > maxPasswordBytes {
		s.hasher.CompareDummy(ctx, req.Password[:maxPasswordBytes])
		return model.AuthResult{}, model.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if errors.Is(err, model.ErrUserNotFound) {
		s.hasher.CompareDummy(ctx, req.Password)
		return model.AuthResult{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("lookup credentials: %w", err)
	}

	if err := s.hasher.Compare(ctx, user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return model.AuthResult{}, model.ErrInvalidCredentials
		}
		return model.AuthResult{}, fmt.Errorf("compare password: %w", err)
	}

	pair, err := s.issuer.IssuePair(user.ID)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("issue tokens: %w", err)
	}

	return model.AuthResult{TokenPair: pair, User: user.Summary()}, nil
}

// Refresh rotates a refresh token. The presented token id is claimed in the
// denylist before the new pair is minted, so each refresh token works once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (pair model.TokenPair, err error) {
	defer func() { s.metrics.AuthEvent("refresh", err) }()

	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, fmt.Errorf("%w: subject no longer exists", model.ErrInvalidToken)
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("resolve token subject: %w", err)
	}

	claimed, err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("claim refresh token: %w", err)
	}
	if !claimed {
		slog.Warn("refresh token replayed", "user_id", user.ID, "token_id", claims.ID)
		return model.TokenPair{}, fmt.Errorf("%w: refresh token already used", model.ErrInvalidToken)
	}

	pair, err = s.issuer.IssuePair(user.ID)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	return pair, nil
}

// Logout revokes whichever of the presented tokens verify, until their own
// expiry. Tokens that fail verification are ignored.
func (s *AuthService) Logout(ctx context.Context, accessToken string, refreshToken string) (err error) {
	defer func() { s.metrics.AuthEvent("logout", err) }()

	var toRevoke []token.Verified
	if accessToken != "" {
		if claims, err := s.issuer.VerifyAccess(accessToken); err == nil {
			toRevoke = append(toRevoke, claims)
		}
	}
	if refreshToken != "" {
		if claims, err := s.issuer.VerifyRefresh(refreshToken); err == nil {
			toRevoke = append(toRevoke, claims)
		}
	}

	for _, claims := range toRevoke {
		if _, err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
			return fmt.Errorf("revoke %s token: %w", claims.Kind, err)
		}
	}

	return nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (model.UserProfile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.UserProfile{}, err
	}
	return user.Profile(), nil
}
