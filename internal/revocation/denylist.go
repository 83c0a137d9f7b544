// Package revocation tracks token ids that must no longer be accepted before
// their natural expiry: logged-out tokens and refresh tokens already rotated.
package revocation

import (
	"context"
	"sync"
	"time"
)

type Denylist interface {
	// Revoke marks id revoked until the given time. It reports whether this
	// call was the one that revoked it, which makes it usable as a claim.
	Revoke(ctx context.Context, id string, until time.Time) (bool, error)
	IsRevoked(ctx context.Context, id string) (bool, error)
}

type MemoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{entries: map[string]time.Time{}, now: time.Now}
}

func (d *MemoryDenylist) Revoke(_ context.Context, id string, until time.Time) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.gcLocked(now)

	if expiry, exists := d.entries[id]; exists && expiry.After(now) {
		return false, nil
	}
	if !until.After(now) {
		// Already expired tokens are rejected by the codec; nothing to remember.
		return true, nil
	}

	d.entries[id] = until
	return true, nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	expiry, exists := d.entries[id]
	return exists && expiry.After(d.now()), nil
}

func (d *MemoryDenylist) gcLocked(now time.Time) {
	if len(d.entries) < 1024 {
		return
	}

	for id, expiry := range d.entries {
		if !expiry.After(now) {
			delete(d.entries, id)
		}
	}
}
