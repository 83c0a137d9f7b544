package token

import (
	"bytes"
	"fmt"
	"time"

	"intervi-api/internal/model"
)

type IssuerConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Issuer mints and verifies token pairs. Access and refresh tokens are signed
// with independent secrets.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

type Option func(*Issuer)

// WithClock replaces the wall clock used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

func NewIssuer(cfg IssuerConfig, opts ...Option) (*Issuer, error) {
	if len(cfg.AccessSecret) < MinSecretLength {
		return nil, fmt.Errorf("%w: access token secret must be at least %d characters", model.ErrUnconfigured, MinSecretLength)
	}
	if len(cfg.RefreshSecret) < MinSecretLength {
		return nil, fmt.Errorf("%w: refresh token secret must be at least %d characters", model.ErrUnconfigured, MinSecretLength)
	}
	if bytes.Equal([]byte(cfg.AccessSecret), []byte(cfg.RefreshSecret)) {
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", model.ErrUnconfigured)
	}
	if cfg.AccessTTL < 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%w: token TTLs must be positive", model.ErrUnconfigured)
	}

	issuer := &Issuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(issuer)
	}

	return issuer, nil
}

func (i *Issuer) IssuePair(subject string) (model.TokenPair, error) {
	now := i.now()

	access, _, err := Issue(subject, KindAccess, i.accessSecret, i.accessTTL, now)
	if err != nil {
		return model.TokenPair{}, err
	}

	refresh, _, err := Issue(subject, KindRefresh, i.refreshSecret, i.refreshTTL, now)
	if err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(i.accessTTL.Seconds()),
	}, nil
}

func (i *Issuer) VerifyAccess(tokenString string) (Verified, error) {
	return Verify(tokenString, i.accessSecret, KindAccess, i.now)
}

func (i *Issuer) VerifyRefresh(tokenString string) (Verified, error) {
	return Verify(tokenString, i.refreshSecret, KindRefresh, i.now)
}

func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}
