package grantCache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Snapshot is one user's resolved grant state: the specific patrimônio ids
// they may edit plus the owners who gave them a wildcard grant.
type Snapshot struct {
	SpecificIDs    []int64     `json:"specific_ids"`
	WildcardOwners []uuid.UUID `json:"wildcard_owners"`
}

// GrantCache keeps per-user grant snapshots in Redis for a bounded TTL.
// A snapshot may be stale until it expires or is invalidated; that window
// is the accepted consistency trade-off of the permission model.
type GrantCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *GrantCache {
	return &GrantCache{Client: client, TTL: ttl}
}

func (c *GrantCache) buildKey(userID uuid.UUID) string {
	return fmt.Sprintf("grants:%s", userID)
}

// Get returns the cached snapshot and whether one was present.
func (c *GrantCache) Get(ctx context.Context, userID uuid.UUID) (*Snapshot, bool, error) {
	raw, err := c.Client.Get(ctx, c.buildKey(userID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, false, err
	}
	return &snap, true, nil
}

func (c *GrantCache) Set(ctx context.Context, userID uuid.UUID, snap *Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, c.buildKey(userID), raw, c.TTL).Err()
}

func (c *GrantCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.Client.Del(ctx, c.buildKey(userID)).Err()
}
