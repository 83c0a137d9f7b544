package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"intervi-api/internal/model"
	"intervi-api/internal/revocation"
	"intervi-api/internal/token"
)

type accessVerifier interface {
	VerifyAccess(tokenString string) (token.Verified, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (model.User, error)
}

type contextKey string

const identityContextKey contextKey = "auth_identity"

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID    string
	User      model.User
	TokenID   string
	ExpiresAt time.Time
}

type AuthMiddleware struct {
	tokens  accessVerifier
	revoked revocation.Denylist
	users   userFinder
}

func NewAuthMiddleware(tokens accessVerifier, revoked revocation.Denylist, users userFinder) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, revoked: revoked, users: users}
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}

	tokenString := strings.TrimSpace(header[7:])
	return tokenString, tokenString != ""
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := BearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header")
			return
		}

		identity, err := m.authenticate(r.Context(), tokenString)
		switch {
		case errors.Is(err, model.ErrInvalidToken):
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		case err != nil:
			slog.Error("authentication lookup failed", "error", err, "path", r.URL.Path)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error")
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate reports model.ErrInvalidToken for every credential problem and
// other errors only for infrastructure failures.
func (m *AuthMiddleware) authenticate(ctx context.Context, tokenString string) (Identity, error) {
	claims, err := m.tokens.VerifyAccess(tokenString)
	if err != nil {
		return Identity{}, err
	}

	revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Identity{}, err
	}
	if revoked {
		return Identity{}, model.ErrInvalidToken
	}

	user, err := m.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, model.ErrUserNotFound) {
		return Identity{}, model.ErrInvalidToken
	}
	if err != nil {
		return Identity{}, err
	}

	return Identity{
		UserID:    user.ID,
		User:      user,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

func (m *AuthMiddleware) RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	roleSet := map[string]struct{}{}
	for _, role := range allowedRoles {
		roleSet[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			if _, exists := roleSet[strings.ToLower(identity.User.Role)]; !exists {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(Identity)
	return identity, ok
}

// WithIdentity returns a context carrying identity, for handler tests.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
