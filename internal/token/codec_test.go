package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intervi-api/internal/model"
)

var (
	testAccessSecret  = strings.Repeat("a", MinSecretLength)
	testRefreshSecret = strings.Repeat("r", MinSecretLength)
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestIssuer(t *testing.T, clock *fakeClock) *Issuer {
	t.Helper()

	issuer, err := NewIssuer(IssuerConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}, WithClock(clock.Now))
	require.NoError(t, err)

	return issuer
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	secret := []byte(testAccessSecret)

	for _, subject := range []string{"u1", "64f1c0ffee", "user with spaces", "ünïcode"} {
		signed, issued, err := Issue(subject, KindAccess, secret, time.Minute, now)
		require.NoError(t, err)

		got, err := Verify(signed, secret, KindAccess, func() time.Time { return now.Add(30 * time.Second) })
		require.NoError(t, err)
		assert.Equal(t, subject, got.Subject)
		assert.Equal(t, KindAccess, got.Kind)
		assert.Equal(t, issued.ID, got.ID)
		assert.NotEmpty(t, got.ID)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	secret := []byte(testAccessSecret)

	signed, _, err := Issue("u1", KindAccess, secret, 0, now)
	require.NoError(t, err)

	_, err = Verify(signed, secret, KindAccess, func() time.Time { return now.Add(time.Second) })
	require.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestVerifyRejectsKindConfusion(t *testing.T) {
	t.Parallel()

	now := time.Now()
	secret := []byte(testAccessSecret)

	refresh, _, err := Issue("u1", KindRefresh, secret, time.Hour, now)
	require.NoError(t, err)
	_, err = Verify(refresh, secret, KindAccess, nil)
	require.ErrorIs(t, err, model.ErrInvalidToken)

	access, _, err := Issue("u1", KindAccess, secret, time.Hour, now)
	require.NoError(t, err)
	_, err = Verify(access, secret, KindRefresh, nil)
	require.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestVerifyRejectsTampering(t *testing.T) {
	t.Parallel()

	now := time.Now()

	t.Run("wrong secret", func(t *testing.T) {
		signed, _, err := Issue("u1", KindAccess, []byte(testAccessSecret), time.Hour, now)
		require.NoError(t, err)

		_, err = Verify(signed, []byte(testRefreshSecret), KindAccess, nil)
		require.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("malformed string", func(t *testing.T) {
		_, err := Verify("not.a.jwt", []byte(testAccessSecret), KindAccess, nil)
		require.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("unsigned token", func(t *testing.T) {
		claims := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "u1",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			Type: KindAccess,
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = Verify(signed, []byte(testAccessSecret), KindAccess, nil)
		require.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}, Type: KindAccess}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
		require.NoError(t, err)

		_, err = Verify(signed, []byte(testAccessSecret), KindAccess, nil)
		require.ErrorIs(t, err, model.ErrInvalidToken)
	})
}

func TestIssuerPair(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	issuer := newTestIssuer(t, clock)

	pair, err := issuer.IssuePair("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	access, err := issuer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", access.Subject)

	refresh, err := issuer.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refresh.Subject)
	assert.NotEqual(t, access.ID, refresh.ID)

	// Each kind is signed with its own secret, so cross-use fails even before the kind check.
	_, err = issuer.VerifyAccess(pair.RefreshToken)
	require.ErrorIs(t, err, model.ErrInvalidToken)
	_, err = issuer.VerifyRefresh(pair.AccessToken)
	require.ErrorIs(t, err, model.ErrInvalidToken)

	clock.Advance(16 * time.Minute)
	_, err = issuer.VerifyAccess(pair.AccessToken)
	require.ErrorIs(t, err, model.ErrInvalidToken)
	_, err = issuer.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
}

func TestNewIssuerValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  IssuerConfig
	}{
		{name: "missing access secret", cfg: IssuerConfig{RefreshSecret: testRefreshSecret, AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{name: "short refresh secret", cfg: IssuerConfig{AccessSecret: testAccessSecret, RefreshSecret: "short", AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{name: "shared secret", cfg: IssuerConfig{AccessSecret: testAccessSecret, RefreshSecret: testAccessSecret, AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{name: "zero refresh ttl", cfg: IssuerConfig{AccessSecret: testAccessSecret, RefreshSecret: testRefreshSecret, AccessTTL: time.Minute}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewIssuer(tc.cfg)
			require.ErrorIs(t, err, model.ErrUnconfigured)
		})
	}
}
