package cache

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/schoolpay/payment-gateway/internal/model"
	"github.com/schoolpay/payment-gateway/pkg/logger"
	"github.com/schoolpay/payment-gateway/pkg/redis"
)

const keyPrefix = "txstatus"

const DefaultTTL = 30 * time.Second

// StatusCache is a short-TTL read cache in front of the status lookup, keyed
// by both the order's primary id and its custom order id. Webhook ingestion
// invalidates both keys, so a stale entry can outlive an update by at most
// the TTL.
type StatusCache struct {
	adapter redis.RedisAdapter
	ttl     time.Duration
}

func NewStatusCache(adapter redis.RedisAdapter, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &StatusCache{
		adapter: adapter,
		ttl:     ttl,
	}
}

// Get returns the cached status for either identifier form, or nil on miss.
func (c *StatusCache) Get(identifier string) *model.TransactionStatus {
	b, err := c.adapter.Get(keyPrefix + ":" + identifier)
	if err != nil {
		if !errors.Is(err, redis.NilError) {
			logger.Warn("status cache read failed", "error", err)
		}
		return nil
	}
	var ts model.TransactionStatus
	if err := json.Unmarshal(b, &ts); err != nil {
		logger.Warn("status cache entry corrupt, dropping", "error", err)
		_ = c.adapter.Del(keyPrefix + ":" + identifier)
		return nil
	}
	return &ts
}

func (c *StatusCache) Set(ts *model.TransactionStatus) {
	if ts == nil {
		return
	}
	b, err := json.Marshal(ts)
	if err != nil {
		return
	}
	for _, key := range c.keys(ts.ID, ts.CustomOrderID) {
		if err := c.adapter.Set(key, b, c.ttl); err != nil {
			logger.Warn("status cache write failed", "key", key, "error", err)
		}
	}
}

// Invalidate drops both cache keys for an order, called after a webhook
// overwrites its status.
func (c *StatusCache) Invalidate(orderID int64, customOrderID string) {
	for _, key := range c.keys(orderID, customOrderID) {
		if err := c.adapter.Del(key); err != nil {
			logger.Warn("status cache invalidate failed", "key", key, "error", err)
		}
	}
}

func (c *StatusCache) keys(orderID int64, customOrderID string) []string {
	return []string{
		keyPrefix + ":" + strconv.FormatInt(orderID, 10),
		keyPrefix + ":" + customOrderID,
	}
}
