package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gatehouse-io/gatehouse/pkg/observability"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

// ErrUnknownKey is returned when a config key does not exist.
var ErrUnknownKey = errors.New("unknown config key")

const (
	dictKeyPrefix   = "gatehouse:dict:"
	configKeyPrefix = "gatehouse:config:"
	redisTTL        = time.Hour
	l1Size          = 256
)

// Cache is the two-tier settings cache. redis may be nil, leaving only the
// in-process tier.
type Cache struct {
	dicts   *store.DictionaryStore
	configs *store.SystemConfigStore
	redis   *redis.Client
	logger  *observability.Logger
	metrics *observability.Metrics

	dictL1   *lru.Cache[string, []*store.Dictionary]
	configL1 *lru.Cache[string, string]
}

// NewCache creates the settings cache.
func NewCache(
	dicts *store.DictionaryStore,
	configs *store.SystemConfigStore,
	redisClient *redis.Client,
	logger *observability.Logger,
	metrics *observability.Metrics,
) (*Cache, error) {
	dictL1, err := lru.New[string, []*store.Dictionary](l1Size)
	if err != nil {
		return nil, fmt.Errorf("creating dictionary cache: %w", err)
	}
	configL1, err := lru.New[string, string](l1Size)
	if err != nil {
		return nil, fmt.Errorf("creating config cache: %w", err)
	}
	return &Cache{
		dicts:    dicts,
		configs:  configs,
		redis:    redisClient,
		logger:   logger,
		metrics:  metrics,
		dictL1:   dictL1,
		configL1: configL1,
	}, nil
}

// Dictionary returns the enabled entries of one dictionary group by its
// group value, in sort order.
func (c *Cache) Dictionary(ctx context.Context, group string) ([]*store.Dictionary, error) {
	if entries, ok := c.dictL1.Get(group); ok {
		c.hit("dict_l1")
		return entries, nil
	}
	c.miss("dict_l1")

	if c.redis != nil {
		raw, err := c.redis.Get(ctx, dictKeyPrefix+group).Result()
		if err == nil {
			var entries []*store.Dictionary
			if jsonErr := json.Unmarshal([]byte(raw), &entries); jsonErr == nil {
				c.hit("dict_l2")
				c.dictL1.Add(group, entries)
				return entries, nil
			}
		} else if !errors.Is(err, redis.Nil) && c.logger != nil {
			c.logger.WithError(err).Warn("redis dictionary read failed, falling through")
		}
		c.miss("dict_l2")
	}

	entries, err := c.loadDictionary(ctx, group)
	if err != nil {
		return nil, err
	}
	c.storeDictionary(ctx, group, entries)
	return entries, nil
}

// Config returns a system config value addressed as "parentKey.key", or
// just "key" for rows without a parent.
func (c *Cache) Config(ctx context.Context, key string) (string, error) {
	if value, ok := c.configL1.Get(key); ok {
		c.hit("config_l1")
		return value, nil
	}
	c.miss("config_l1")

	if c.redis != nil {
		value, err := c.redis.Get(ctx, configKeyPrefix+key).Result()
		if err == nil {
			c.hit("config_l2")
			c.configL1.Add(key, value)
			return value, nil
		}
		if !errors.Is(err, redis.Nil) && c.logger != nil {
			c.logger.WithError(err).Warn("redis config read failed, falling through")
		}
		c.miss("config_l2")
	}

	values, err := c.loadConfigs(ctx)
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	c.storeConfigs(ctx, values)
	return value, nil
}

// AllConfigs returns every addressable config value, for the frontend init
// payload.
func (c *Cache) AllConfigs(ctx context.Context) (map[string]string, error) {
	return c.loadConfigs(ctx)
}

// Refresh rebuilds both tiers from the database. Write paths call this
// synchronously after a mutation; it is also the startup warm-up.
func (c *Cache) Refresh(ctx context.Context, trigger string) error {
	if c.metrics != nil {
		c.metrics.CacheRefreshesTotal.WithLabelValues(trigger).Inc()
	}
	c.dictL1.Purge()
	c.configL1.Purge()

	groups, err := c.loadDictionaryGroups(ctx)
	if err != nil {
		return err
	}
	for group, entries := range groups {
		c.storeDictionary(ctx, group, entries)
	}

	values, err := c.loadConfigs(ctx)
	if err != nil {
		return err
	}
	c.storeConfigs(ctx, values)
	return nil
}

// Invalidate drops every cached entry without reloading. The next read
// repopulates from the database.
func (c *Cache) Invalidate(ctx context.Context) {
	c.dictL1.Purge()
	c.configL1.Purge()
	if c.redis == nil {
		return
	}
	for _, prefix := range []string{dictKeyPrefix, configKeyPrefix} {
		iter := c.redis.Scan(ctx, 0, prefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			c.redis.Del(ctx, iter.Val())
		}
		if err := iter.Err(); err != nil && c.logger != nil {
			c.logger.WithError(err).Warn("redis invalidation scan failed")
		}
	}
}

func (c *Cache) loadDictionary(ctx context.Context, group string) ([]*store.Dictionary, error) {
	groups, err := c.loadDictionaryGroups(ctx)
	if err != nil {
		return nil, err
	}
	return groups[group], nil
}

// loadDictionaryGroups maps group value to its enabled child entries.
func (c *Cache) loadDictionaryGroups(ctx context.Context) (map[string][]*store.Dictionary, error) {
	all, err := c.dicts.AllEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading dictionaries: %w", err)
	}
	groupValues := make(map[int64]string)
	for _, d := range all {
		if d.ParentID == nil {
			groupValues[d.ID] = d.Value
		}
	}
	groups := make(map[string][]*store.Dictionary)
	for _, d := range all {
		if d.ParentID == nil {
			// Ensure empty groups are cached too.
			if _, ok := groups[d.Value]; !ok {
				groups[d.Value] = []*store.Dictionary{}
			}
			continue
		}
		if group, ok := groupValues[*d.ParentID]; ok {
			groups[group] = append(groups[group], d)
		}
	}
	return groups, nil
}

func (c *Cache) loadConfigs(ctx context.Context) (map[string]string, error) {
	all, err := c.configs.AllEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading system configs: %w", err)
	}
	parentKeys := make(map[int64]string)
	for _, sc := range all {
		if sc.ParentID == nil {
			parentKeys[sc.ID] = sc.Key
		}
	}
	values := make(map[string]string)
	for _, sc := range all {
		if sc.ParentID == nil {
			continue
		}
		addr := sc.Key
		if parent, ok := parentKeys[*sc.ParentID]; ok && parent != "" {
			addr = parent + "." + sc.Key
		}
		values[addr] = sc.Value
	}
	return values, nil
}

func (c *Cache) storeDictionary(ctx context.Context, group string, entries []*store.Dictionary) {
	c.dictL1.Add(group, entries)
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, dictKeyPrefix+group, data, redisTTL).Err(); err != nil && c.logger != nil {
		c.logger.WithError(err).Warn("redis dictionary write failed")
	}
}

func (c *Cache) storeConfigs(ctx context.Context, values map[string]string) {
	for key, value := range values {
		c.configL1.Add(key, value)
		if c.redis != nil {
			if err := c.redis.Set(ctx, configKeyPrefix+key, value, redisTTL).Err(); err != nil && c.logger != nil {
				c.logger.WithError(err).Warn("redis config write failed")
			}
		}
	}
}

func (c *Cache) hit(tier string) {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(tier).Inc()
	}
}

func (c *Cache) miss(tier string) {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues(tier).Inc()
	}
}
