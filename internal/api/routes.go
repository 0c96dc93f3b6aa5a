// 包 api：集中注册 HTTP API 路由以解耦主入口，便于挂载到任意前缀
package api

import (
	"net/http"

	"where-am-i/internal/metrics"
)

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func BuildRoutes(where *WhereHandler, m *metrics.Collector) *http.ServeMux {
	apiMux := http.NewServeMux()
	apiMux.Handle("GET /where-am-i", where)
	apiMux.Handle("GET /metrics", m.Handler())
	return apiMux
}
