package geo

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"where-am-i/internal/edge"
	"where-am-i/internal/metrics"
)

// ErrNotFound 表示数据库中没有该 IP 的记录
var ErrNotFound = errors.New("geo: no record")

// Resolver 按 IP 查询客户端地理信息
type Resolver interface {
	Resolve(ctx context.Context, ip string) (edge.Client, error)
}

// GeoIPResolver 基于本地 MaxMind City 库
type GeoIPResolver struct {
	db      *geoip2.Reader
	metrics *metrics.Collector
}

// OpenGeoIP 打开 mmdb 文件；调用方负责 Close
func OpenGeoIP(path string, m *metrics.Collector) (*GeoIPResolver, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip %s: %w", path, err)
	}
	return &GeoIPResolver{db: db, metrics: m}, nil
}

func (g *GeoIPResolver) Close() error { return g.db.Close() }

// 文档注释：查询 IP 的城市级信息
// 背景：字段映射与边缘请求头保持一致：国家取 ISO 代码、地区取首个行政区代码、大洲取两位代码。
func (g *GeoIPResolver) Resolve(_ context.Context, ip string) (edge.Client, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		g.metrics.GeoIPLookup("error")
		return edge.Client{}, fmt.Errorf("geo: invalid ip %q", ip)
	}
	rec, err := g.db.City(parsed)
	if err != nil {
		g.metrics.GeoIPLookup("error")
		return edge.Client{}, err
	}
	if rec.Country.IsoCode == "" {
		g.metrics.GeoIPLookup("miss")
		return edge.Client{}, ErrNotFound
	}
	g.metrics.GeoIPLookup("hit")
	c := edge.Client{
		Country:   edge.Some(rec.Country.IsoCode),
		City:      edge.Some(rec.City.Names["en"]),
		Timezone:  edge.Some(rec.Location.TimeZone),
		Continent: edge.Some(rec.Continent.Code),
		IP:        edge.Some(parsed.String()),
	}
	if len(rec.Subdivisions) > 0 {
		c.Region = edge.Some(rec.Subdivisions[0].IsoCode)
	}
	return c, nil
}
