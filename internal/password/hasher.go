package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost is the bcrypt work factor used for every stored hash.
const DefaultCost = 12

// ErrMismatch is returned when a password does not match its hash.
var ErrMismatch = errors.New("password mismatch")

// Hasher runs bcrypt with a bounded number of concurrent operations so a burst
// of logins cannot starve the rest of the server of CPU.
type Hasher struct {
	cost  int
	sem   *semaphore.Weighted
	dummy []byte
}

func NewHasher(cost int, maxConcurrent int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("intervi-timing-equalizer"), cost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &Hasher{
		cost:  cost,
		sem:   semaphore.NewWeighted(int64(maxConcurrent)),
		dummy: dummy,
	}, nil
}

func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(hash), nil
}

// Compare returns ErrMismatch when plain does not match hash.
func (h *Hasher) Compare(ctx context.Context, hash string, plain string) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	if err != nil {
		return fmt.Errorf("compare password: %w", err)
	}

	return nil
}

// CompareDummy spends one comparison against a fixed hash. It is used on the
// unknown-account path of login so both failure branches take the same time.
func (h *Hasher) CompareDummy(ctx context.Context, plain string) {
	_ = h.Compare(ctx, string(h.dummy), plain)
}
