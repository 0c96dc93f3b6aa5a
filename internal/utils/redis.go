// 包 utils：Redis 连接与自签证书等启动期工具
package utils

import (
	"github.com/redis/go-redis/v9"

	"where-am-i/internal/config"
	"where-am-i/internal/logger"
)

// OpenRedis：按配置打开 Redis 客户端
// 约束：未配置 REDIS_HOST 时返回 nil，调用方据此关闭缓存
func OpenRedis(cfg *config.Config) *redis.Client {
	addr := cfg.RedisAddr()
	if addr == "" {
		return nil
	}
	logger.L().Debug("redis_env", "addr", addr, "db", cfg.Redis.DB)
	return redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Pass, DB: cfg.Redis.DB})
}
