// 包 web：内嵌验证页面与前端配置脚本，由后端统一提供，无需单独部署前端
package web

import (
	"embed"
	"net/http"
	"strconv"

	"where-am-i/internal/version"
)

//go:embed static/index.html
var static embed.FS

// Index 返回首页
func Index() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := static.ReadFile("static/index.html")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("content-type", "text/html; charset=utf-8")
		w.Header().Set("cache-control", "no-cache")
		_, _ = w.Write(b)
	})
}

// ConfigJS 向前端暴露 API 基础路径与版本，避免页面硬编码
func ConfigJS(apiBase string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/javascript; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write([]byte("window.__API_BASE__=" + strconv.Quote(apiBase) + "\n"))
		_, _ = w.Write([]byte("window.__COMMIT_SHA__=" + strconv.Quote(version.Commit) + "\n"))
	})
}
