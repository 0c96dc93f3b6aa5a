package geo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"where-am-i/internal/edge"
	"where-am-i/internal/logger"
	"where-am-i/internal/metrics"
)

// 文档注释：Redis 缓存的兜底查询
// 背景：GeoIP 结果对同一 IP 稳定，缓存 JSON 以减少 mmdb 读取；未配置 Redis 时直接透传。
// 约束：缓存读写失败不影响查询结果，仅记录日志与指标；查询失败的结果不缓存。
type CachedResolver struct {
	next    Resolver
	rc      *redis.Client
	ttl     time.Duration
	metrics *metrics.Collector
}

func NewCachedResolver(next Resolver, rc *redis.Client, ttl time.Duration, m *metrics.Collector) *CachedResolver {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedResolver{next: next, rc: rc, ttl: ttl, metrics: m}
}

func cacheKey(ip string) string { return "geo:" + ip }

func (c *CachedResolver) Resolve(ctx context.Context, ip string) (edge.Client, error) {
	if c.rc == nil {
		return c.next.Resolve(ctx, ip)
	}
	s, err := c.rc.Get(ctx, cacheKey(ip)).Result()
	switch {
	case err == nil:
		var out edge.Client
		if jerr := json.Unmarshal([]byte(s), &out); jerr == nil {
			c.metrics.GeoCache("hit")
			return out, nil
		}
		c.metrics.GeoCache("error")
	case errors.Is(err, redis.Nil):
		c.metrics.GeoCache("miss")
	default:
		c.metrics.GeoCache("error")
		logger.L().Debug("geo_cache_get_error", "ip", ip, "err", err)
	}

	out, err := c.next.Resolve(ctx, ip)
	if err != nil {
		return out, err
	}
	if b, jerr := json.Marshal(out); jerr == nil {
		if serr := c.rc.Set(ctx, cacheKey(ip), b, c.ttl).Err(); serr != nil {
			logger.L().Debug("geo_cache_set_error", "ip", ip, "err", serr)
		}
	}
	return out, nil
}
