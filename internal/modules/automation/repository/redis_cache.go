package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/reshetovitsme/insta-autoreply/internal/modules/automation/domain"
	eventDomain "github.com/reshetovitsme/insta-autoreply/internal/modules/event/domain"
)

const candidatesKeyPrefix = "autoreply:candidates:"

// RedisCache caches candidate automations per platform account in front of
// another Repository. Cache failures are logged and fall through to the
// underlying store; writes always go to the store. Access tokens are not
// cached and are read from the store on every hit.
type RedisCache struct {
	next   Repository
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a read-through cache over next
func NewRedisCache(next Repository, client *redis.Client, ttl time.Duration) Repository {
	return &RedisCache{next: next, client: client, ttl: ttl}
}

func candidatesKey(platformAccountID string) string {
	return candidatesKeyPrefix + platformAccountID
}

func (c *RedisCache) FindCandidates(ctx context.Context, platformAccountID string) (*domain.Candidates, error) {
	key := candidatesKey(platformAccountID)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached domain.Candidates
		if err := json.Unmarshal(raw, &cached); err == nil {
			token, err := c.next.IntegrationToken(ctx, platformAccountID)
			if err != nil {
				return nil, err
			}
			cached.Token = token
			return &cached, nil
		}
		slog.Warn("Discarding unreadable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.Warn("Candidate cache read failed", "key", key, "error", err)
	}

	candidates, err := c.next.FindCandidates(ctx, platformAccountID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(candidates)
	if err != nil {
		return candidates, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("Candidate cache write failed", "key", key, "error", err)
	}

	return candidates, nil
}

func (c *RedisCache) IntegrationToken(ctx context.Context, platformAccountID string) (string, error) {
	return c.next.IntegrationToken(ctx, platformAccountID)
}

func (c *RedisCache) GetAutomation(ctx context.Context, automationID string) (*domain.Automation, error) {
	return c.next.GetAutomation(ctx, automationID)
}

func (c *RedisCache) IncrementCounter(ctx context.Context, automationID string, channel eventDomain.Channel) error {
	return c.next.IncrementCounter(ctx, automationID, channel)
}

func (c *RedisCache) GetCounters(ctx context.Context, automationID string) (*domain.Counters, error) {
	return c.next.GetCounters(ctx, automationID)
}

func (c *RedisCache) SaveAccount(ctx context.Context, account *domain.Account, integrations ...domain.Integration) error {
	if err := c.next.SaveAccount(ctx, account, integrations...); err != nil {
		return err
	}
	return c.invalidate(ctx, account.ID)
}

func (c *RedisCache) SaveAutomation(ctx context.Context, automation *domain.Automation) error {
	if err := c.next.SaveAutomation(ctx, automation); err != nil {
		return err
	}
	return c.invalidate(ctx, automation.AccountID)
}

func (c *RedisCache) PlatformAccountIDs(ctx context.Context, accountID string) ([]string, error) {
	return c.next.PlatformAccountIDs(ctx, accountID)
}

func (c *RedisCache) invalidate(ctx context.Context, accountID string) error {
	ids, err := c.next.PlatformAccountIDs(ctx, accountID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = candidatesKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		// entries expire after ttl anyway
		slog.Warn("Candidate cache invalidation failed", "account_id", accountID, "error", err)
	}
	return nil
}
