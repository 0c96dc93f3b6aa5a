// 包 middleware：入口中间件（访问验证日志、限流）
package middleware

import (
	"log/slog"
	"net/http"

	"where-am-i/internal/geo"
)

// VerifyPath 为需要记录边缘命中情况的路径
const VerifyPath = "/verify"

// 文档注释：/verify 访问记录
// 背景：记录访问者的国家/城市与实际执行的边缘节点，便于在平台日志中对照就近调度效果。
// 约束：只记录不拦截，不改写请求与响应；其他路径直接透传。
func Verify(l *slog.Logger, edgeRegion string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == VerifyPath {
				c := geo.FromRequest(r)
				region := edgeRegion
				if region == "" {
					region = "unknown"
				}
				l.Info("verify_access",
					"country", c.Country.String(),
					"city", c.City.String(),
					"edge_region", region,
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}
