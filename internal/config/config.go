// 包 config：集中读取运行配置；.env 文件仅作为环境变量来源，最终以进程环境为准
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 汇总所有运行配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Edge      EdgeConfig      `mapstructure:"edge"`
	GeoIP     GeoIPConfig     `mapstructure:"geoip"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	TLS       TLSConfig       `mapstructure:"tls"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	APIBase string `mapstructure:"api_base"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// EdgeConfig 为托管平台注入的执行节点信息
type EdgeConfig struct {
	Region       string `mapstructure:"region"`
	DeploymentID string `mapstructure:"deployment_id"`
}

// GeoIPConfig：本地 mmdb 路径，为空时不启用兜底查询
type GeoIPConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig：Host 为空时不启用缓存
type RedisConfig struct {
	Host string        `mapstructure:"host"`
	Port string        `mapstructure:"port"`
	Pass string        `mapstructure:"pass"`
	DB   int           `mapstructure:"db"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	QPS     int  `mapstructure:"qps"`
}

type TLSConfig struct {
	Enable   bool   `mapstructure:"enable"`
	CertPath string `mapstructure:"cert"`
	KeyPath  string `mapstructure:"key"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"` // stdout | otlp
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	ServiceName string  `mapstructure:"service_name"`
}

// 配置键 -> 环境变量名
var envBindings = map[string]string{
	"server.addr":          "ADDR",
	"server.api_base":      "API_BASE",
	"log.level":            "LOG_LEVEL",
	"log.format":           "LOG_FORMAT",
	"edge.region":          "VERCEL_REGION",
	"edge.deployment_id":   "VERCEL_DEPLOYMENT_ID",
	"geoip.path":           "GEOIP_PATH",
	"redis.host":           "REDIS_HOST",
	"redis.port":           "REDIS_PORT",
	"redis.pass":           "REDIS_PASS",
	"redis.db":             "REDIS_DB",
	"redis.ttl":            "REDIS_TTL",
	"ratelimit.enabled":    "RATE_LIMIT_ENABLED",
	"ratelimit.qps":        "RATE_LIMIT_QPS",
	"tls.enable":           "TLS_ENABLE",
	"tls.cert":             "TLS_CERT_PATH",
	"tls.key":              "TLS_KEY_PATH",
	"tracing.enabled":      "TRACING_ENABLED",
	"tracing.exporter":     "TRACING_EXPORTER",
	"tracing.endpoint":     "TRACING_ENDPOINT",
	"tracing.sample_ratio": "TRACING_SAMPLE_RATIO",
	"tracing.service_name": "TRACING_SERVICE_NAME",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.api_base", "/api")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("edge.region", "")
	v.SetDefault("edge.deployment_id", "")
	v.SetDefault("geoip.path", "")
	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.pass", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.qps", 200)
	v.SetDefault("tls.enable", false)
	v.SetDefault("tls.cert", filepath.Join("data", "certs", "server.crt"))
	v.SetDefault("tls.key", filepath.Join("data", "certs", "server.key"))
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.service_name", "where-am-i")
}

// 文档注释：加载配置
// 背景：先读取 .env 与 data/env/.env 补充进程环境（不覆盖已有变量），再由 viper 绑定环境变量并填充默认值。
// 约束：.env 不存在不视为错误；数值解析失败返回错误。
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.APIBase = normalizeBase(cfg.Server.APIBase)
	if cfg.RateLimit.QPS <= 0 {
		cfg.RateLimit.QPS = 200
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		cfg.Tracing.SampleRatio = 1
	}
	return &cfg, nil
}

// normalizeBase 保证前缀以 / 开头且不以 / 结尾
func normalizeBase(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "/")
	if s == "" {
		return "/api"
	}
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return s
}

// RedisAddr 返回 host:port；未配置 Host 时为空
func (c *Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return c.Redis.Host + ":" + c.Redis.Port
}
