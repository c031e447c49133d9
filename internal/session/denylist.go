// Package session keeps server-side state about issued tokens: the logout denylist.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "auth:revoked:"

// NewClient connects to Redis and checks the connection
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session: ping: %w", err)
	}
	return client, nil
}

// Denylist records revoked token ids until their natural expiry.
// A nil *Denylist is valid and revokes nothing (stateless tokens).
type Denylist struct {
	client *redis.Client
	now    func() time.Time
}

func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client, now: time.Now}
}

// Enabled reports whether revocation is backed by Redis
func (d *Denylist) Enabled() bool {
	return d != nil && d.client != nil
}

// Revoke denies tokenID until expiresAt. Already-expired tokens need no entry.
func (d *Denylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if !d.Enabled() || tokenID == "" {
		return nil
	}
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, keyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("session: revoke: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked. Callers treat an error as revoked.
func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if !d.Enabled() || tokenID == "" {
		return false, nil
	}
	n, err := d.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return true, fmt.Errorf("session: lookup: %w", err)
	}
	return n > 0, nil
}
