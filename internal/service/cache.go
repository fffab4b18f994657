package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirei-app/kirei-api/internal/model"
)

// ReservationCache caches a user's reservation list in Redis and is
// invalidated whenever one of their reservations transitions.  A nil
// redis client disables it entirely; every method becomes a no-op miss.
type ReservationCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewReservationCache(rdb *redis.Client, ttl time.Duration) *ReservationCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ReservationCache{rdb: rdb, ttl: ttl}
}

func userListKey(userID uint64) string { return fmt.Sprintf("resv:user:%d", userID) }

// GetUserList returns the cached list and whether it was present.
func (c *ReservationCache) GetUserList(ctx context.Context, userID uint64) ([]model.Reservation, bool) {
	if c.rdb == nil {
		return nil, false
	}
	bs, err := c.rdb.Get(ctx, userListKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var list []model.Reservation
	if err := json.Unmarshal(bs, &list); err != nil {
		return nil, false
	}
	return list, true
}

// SetUserList stores the list; failures are silently dropped.
func (c *ReservationCache) SetUserList(ctx context.Context, userID uint64, list []model.Reservation) {
	if c.rdb == nil {
		return
	}
	bs, err := json.Marshal(list)
	if err != nil {
		return
	}
	_ = c.rdb.SetEx(ctx, userListKey(userID), bs, c.ttl).Err()
}

// InvalidateUser drops the cached list for a user.
func (c *ReservationCache) InvalidateUser(ctx context.Context, userID uint64) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, userListKey(userID)).Err()
}
