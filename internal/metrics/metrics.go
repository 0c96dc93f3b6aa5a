package metrics

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 汇总 where-am-i 的 Prometheus 指标
type Collector struct {
	gatherer prometheus.Gatherer

	RequestsTotal     prometheus.Counter
	RequestDurationMs prometheus.Histogram
	VerdictsTotal     *prometheus.CounterVec
	GeoIPLookupsTotal *prometheus.CounterVec
	GeoCacheTotal     *prometheus.CounterVec
	RateLimitedTotal  prometheus.Counter
}

// 文档注释：创建并注册指标
// 背景：注册器可注入，测试使用独立 Registry；为空时回退到默认注册器。重复注册时复用已注册的指标。
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error
	if c.RequestsTotal, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wai_requests_total",
		Help: "Total number of /where-am-i requests",
	})); err != nil {
		return nil, err
	}
	if c.RequestDurationMs, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wai_request_duration_ms",
		Help:    "Handler duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})); err != nil {
		return nil, err
	}
	if c.VerdictsTotal, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wai_verdicts_total",
		Help: "Optimality verdicts by executing region",
	}, []string{"region", "optimal"})); err != nil {
		return nil, err
	}
	if c.GeoIPLookupsTotal, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wai_geoip_lookups_total",
		Help: "GeoIP fallback lookups by result",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if c.GeoCacheTotal, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wai_geo_cache_total",
		Help: "Redis geo cache lookups by result",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if c.RateLimitedTotal, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wai_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})); err != nil {
		return nil, err
	}
	return c, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

// ObserveVerdict 记录一次判定；region 缺失时标记为 unknown
func (c *Collector) ObserveVerdict(region string, optimal bool) {
	if c == nil {
		return
	}
	if region == "" {
		region = "unknown"
	}
	c.VerdictsTotal.WithLabelValues(region, strconv.FormatBool(optimal)).Inc()
}

func (c *Collector) ObserveRequest(ms int64) {
	if c == nil {
		return
	}
	c.RequestsTotal.Inc()
	c.RequestDurationMs.Observe(float64(ms))
}

// GeoIPLookup 记录兜底查询结果：hit / miss / error
func (c *Collector) GeoIPLookup(result string) {
	if c == nil {
		return
	}
	c.GeoIPLookupsTotal.WithLabelValues(result).Inc()
}

// GeoCache 记录缓存结果：hit / miss / error
func (c *Collector) GeoCache(result string) {
	if c == nil {
		return
	}
	c.GeoCacheTotal.WithLabelValues(result).Inc()
}

func (c *Collector) RateLimited() {
	if c == nil {
		return
	}
	c.RateLimitedTotal.Inc()
}

// Handler 暴露当前注册器中的指标，供 Prometheus 抓取
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
