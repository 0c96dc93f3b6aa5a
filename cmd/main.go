// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"

	"where-am-i/internal/api"
	"where-am-i/internal/config"
	"where-am-i/internal/geo"
	"where-am-i/internal/logger"
	"where-am-i/internal/metrics"
	"where-am-i/internal/middleware"
	"where-am-i/internal/observability"
	"where-am-i/internal/utils"
	"where-am-i/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Error("config_load_error", "err", err)
		os.Exit(1)
	}
	l := logger.Setup(cfg.Log.Level, cfg.Log.Format)
	l.Debug("log_init_ok")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, l); err != nil {
		l.Error("server_error", "err", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, l *slog.Logger) error {
	l.Debug("config_api_base", "base", cfg.Server.APIBase)
	l.Info("edge_env", "region", cfg.Edge.Region, "deployment_id", cfg.Edge.DeploymentID)

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, cfg.Edge.Region, l)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, l)

	m, err := metrics.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	// GeoIP 兜底：仅在未收到边缘地理头时使用，打开失败不影响主流程
	var resolver geo.Resolver
	if cfg.GeoIP.Path != "" {
		gr, err := geo.OpenGeoIP(cfg.GeoIP.Path, m)
		if err != nil {
			l.Error("geoip_open_error", "err", err)
		} else {
			defer gr.Close()
			rc := utils.OpenRedis(cfg)
			if rc == nil {
				l.Info("redis_disabled")
			} else {
				defer rc.Close()
				if err := rc.Ping(ctx).Err(); err != nil {
					l.Error("redis_ping_error", "err", err)
				} else {
					l.Info("redis_ping_ok")
				}
			}
			resolver = geo.NewCachedResolver(gr, rc, cfg.Redis.TTL, m)
			l.Info("geoip_ready", "path", cfg.GeoIP.Path)
		}
	} else {
		l.Info("geoip_disabled")
	}

	where := api.NewWhereHandler(cfg.Edge, resolver, m, l)
	apiMux := api.BuildRoutes(where, m)

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.APIBase+"/", http.StripPrefix(cfg.Server.APIBase, apiMux))
	mux.Handle("GET /config.js", web.ConfigJS(cfg.Server.APIBase))
	mux.Handle("GET /{$}", web.Index())

	var tb *middleware.TokenBucket
	if cfg.RateLimit.Enabled {
		tb = middleware.NewTokenBucket(cfg.RateLimit.QPS)
		l.Info("rate_limit_enabled", "qps", cfg.RateLimit.QPS)
	}
	var handler http.Handler = mux
	handler = middleware.Verify(l, cfg.Edge.Region)(handler)
	handler = logger.AccessMiddleware(l)(handler)
	handler = middleware.RateLimit(tb, m)(handler)
	handler = handlers.CompressHandler(handler)
	handler = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{l}))(handler)

	s := &http.Server{Addr: cfg.Server.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(sctx); err != nil {
			l.Error("server_shutdown_error", "err", err)
		}
	}()

	if cfg.TLS.Enable {
		if err := utils.EnsureSelfSignedCert(cfg.TLS.CertPath, cfg.TLS.KeyPath, "where-am-i.local"); err != nil {
			return fmt.Errorf("prepare tls cert: %w", err)
		}
		l.Info("listening_tls", "addr", cfg.Server.Addr, "cert", cfg.TLS.CertPath)
		err = s.ListenAndServeTLS(cfg.TLS.CertPath, cfg.TLS.KeyPath)
	} else {
		l.Info("listening", "addr", cfg.Server.Addr)
		err = s.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		l.Info("server_stopped")
		return nil
	}
	return err
}

// recoveryLogger 将 panic 恢复信息写入结构化日志
type recoveryLogger struct{ l *slog.Logger }

func (r recoveryLogger) Println(v ...interface{}) {
	r.l.Error("panic_recovered", "err", fmt.Sprint(v...))
}
