package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "intervi:revoked:"

type RedisDenylist struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisDenylist(client redis.UniversalClient) *RedisDenylist {
	return &RedisDenylist{client: client, prefix: defaultKeyPrefix, now: time.Now}
}

func (d *RedisDenylist) Revoke(ctx context.Context, id string, until time.Time) (bool, error) {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return true, nil
	}
	if ttl < time.Second {
		ttl = time.Second
	}

	created, err := d.client.SetNX(ctx, d.prefix+id, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("revoke token %s: %w", id, err)
	}

	return created, nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, id string) (bool, error) {
	err := d.client.Get(ctx, d.prefix+id).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revoked token %s: %w", id, err)
	}

	return true, nil
}
