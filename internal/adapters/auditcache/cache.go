// Package auditcache keeps the latest consistency audit report in Redis so
// the API can serve it without re-running the checks.
package auditcache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"territory_backend/internal/territory/domain"

	"github.com/redis/go-redis/v9"
)

const (
	latestKey  = "territory:audit:latest"
	defaultTTL = 24 * time.Hour
)

// Cache stores audit reports under a single key.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New wraps an existing client. A non-positive ttl falls back to 24h.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Open connects to redisURL.
func Open(redisURL string, tlsInsecure bool, ttl time.Duration) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if tlsInsecure {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return New(redis.NewClient(opt), ttl), nil
}

func (c *Cache) Save(ctx context.Context, report domain.AuditReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode audit report: %w", err)
	}
	if err := c.client.Set(ctx, latestKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("store audit report: %w", err)
	}
	return nil
}

// Latest returns the cached report; ok is false when none is stored.
func (c *Cache) Latest(ctx context.Context) (report domain.AuditReport, ok bool, err error) {
	data, err := c.client.Get(ctx, latestKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.AuditReport{}, false, nil
	}
	if err != nil {
		return domain.AuditReport{}, false, fmt.Errorf("load audit report: %w", err)
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return domain.AuditReport{}, false, fmt.Errorf("decode audit report: %w", err)
	}
	return report, true, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
