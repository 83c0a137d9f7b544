package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"intervi-api/internal/model"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// MinSecretLength is the shortest signing secret accepted for either token kind.
const MinSecretLength = 32

// Claims are the registered JWT claims plus the kind discriminator.
type Claims struct {
	jwt.RegisteredClaims
	Type Kind `json:"type"`
}

// Verified is the result of a successful verification.
type Verified struct {
	Subject   string
	Kind      Kind
	ID        string
	ExpiresAt time.Time
}

// Issue signs a token for subject that expires ttl after now.
func Issue(subject string, kind Kind, secret []byte, ttl time.Duration, now time.Time) (string, Verified, error) {
	if strings.TrimSpace(subject) == "" {
		return "", Verified{}, errors.New("token subject is required")
	}
	if len(secret) == 0 {
		return "", Verified{}, fmt.Errorf("%w: signing secret", model.ErrUnconfigured)
	}

	now = now.UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Type: kind,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", Verified{}, fmt.Errorf("sign %s token: %w", kind, err)
	}

	return signed, Verified{Subject: subject, Kind: kind, ID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks signature, expiry and kind. Every failure wraps model.ErrInvalidToken.
func Verify(tokenString string, secret []byte, expected Kind, now func() time.Time) (Verified, error) {
	if now == nil {
		now = time.Now
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Verified{}, fmt.Errorf("%w: expired", model.ErrInvalidToken)
		}
		return Verified{}, fmt.Errorf("%w: %v", model.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Verified{}, model.ErrInvalidToken
	}

	if claims.Type != expected {
		return Verified{}, fmt.Errorf("%w: expected %s token, got %q", model.ErrInvalidToken, expected, claims.Type)
	}
	if claims.Subject == "" {
		return Verified{}, fmt.Errorf("%w: missing subject", model.ErrInvalidToken)
	}

	return Verified{
		Subject:   claims.Subject,
		Kind:      claims.Type,
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
