// 包 geo：读取边缘网络注入的地理请求头，并在缺失时通过本地 GeoIP 库兜底
package geo

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf16"

	"where-am-i/internal/edge"
)

// Vercel 边缘网络注入的请求头
const (
	HeaderCountry   = "x-vercel-ip-country"
	HeaderCity      = "x-vercel-ip-city"
	HeaderRegion    = "x-vercel-ip-country-region"
	HeaderTimezone  = "x-vercel-ip-timezone"
	HeaderContinent = "x-vercel-ip-continent"
	HeaderForwarded = "x-forwarded-for"
	HeaderUserAgent = "user-agent"
)

// 文档注释：解析请求头为客户端地理信息
// 背景：城市名由平台做 URL 编码（如 S%C3%A3o%20Paulo），解码失败时保留原值；IP 取 x-forwarded-for 首段。
// 约束：空值一律视为缺失，不做任何推断。
func FromRequest(r *http.Request) edge.Client {
	h := r.Header
	return edge.Client{
		Country:   edge.Some(strings.TrimSpace(h.Get(HeaderCountry))),
		City:      edge.Some(decode(h.Get(HeaderCity))),
		Region:    edge.Some(strings.TrimSpace(h.Get(HeaderRegion))),
		Timezone:  edge.Some(strings.TrimSpace(h.Get(HeaderTimezone))),
		Continent: edge.Some(strings.TrimSpace(h.Get(HeaderContinent))),
		IP:        edge.Some(firstForwarded(h.Get(HeaderForwarded))),
	}
}

func decode(s string) string {
	s = strings.TrimSpace(s)
	if v, err := url.PathUnescape(s); err == nil {
		return v
	}
	return s
}

func firstForwarded(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(strings.Split(s, ",")[0])
}

// UserAgent 返回截断到 n 个 UTF-16 码元的 UA，与浏览器端字符串长度一致；
// 截断点落在代理对中间时丢弃孤立的高位代理。
func UserAgent(r *http.Request, n int) edge.Optional {
	ua := r.Header.Get(HeaderUserAgent)
	if u := utf16.Encode([]rune(ua)); len(u) > n {
		u = u[:n]
		if k := len(u); k > 0 && u[k-1] >= 0xD800 && u[k-1] <= 0xDBFF {
			u = u[:k-1]
		}
		ua = string(utf16.Decode(u))
	}
	return edge.Some(ua)
}

// 文档注释：获取访问者 IP（用于 GeoIP 兜底查询）
// 背景：多层代理环境下依次读取常见反向代理头，最后回退远端地址。
// 约束：头部存在伪造风险；结果仅用于展示性兜底，不参与任何访问控制。
func VisitorIP(r *http.Request) string {
	h := r.Header
	if x := firstForwarded(h.Get(HeaderForwarded)); x != "" {
		return x
	}
	for _, k := range []string{"cf-connecting-ip", "x-real-ip", "x-client-ip"} {
		if x := strings.TrimSpace(h.Get(k)); x != "" {
			return x
		}
	}
	if x := h.Get("forwarded"); x != "" {
		i := strings.Index(strings.ToLower(x), "for=")
		if i >= 0 {
			y := x[i+4:]
			if p := strings.IndexByte(y, ';'); p >= 0 {
				y = y[:p]
			}
			if p := strings.IndexByte(y, ','); p >= 0 {
				y = y[:p]
			}
			return strings.Trim(y, "\" ")
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
