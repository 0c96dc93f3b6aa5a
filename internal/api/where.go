package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"where-am-i/internal/config"
	"where-am-i/internal/edge"
	"where-am-i/internal/geo"
	"where-am-i/internal/metrics"
	"where-am-i/internal/observability"
)

// userAgentMax 为回显 UA 的最大字符数
const userAgentMax = 50

// WhereHandler 处理 GET /where-am-i
type WhereHandler struct {
	edge     config.EdgeConfig
	resolver geo.Resolver
	metrics  *metrics.Collector
	log      *slog.Logger
	now      func() time.Time
}

// NewWhereHandler：resolver 与 m 均可为空，为空时分别关闭 GeoIP 兜底与指标
func NewWhereHandler(ec config.EdgeConfig, resolver geo.Resolver, m *metrics.Collector, l *slog.Logger) *WhereHandler {
	return &WhereHandler{edge: ec, resolver: resolver, metrics: m, log: l, now: time.Now}
}

// 文档注释：生成位置验证报告
// 背景：读取客户端地理请求头与平台注入的节点信息，判定是否就近执行并给出证据列表。
// 约束：所有输入均可缺失，缺失不报错；耗时在组装响应时计算。
func (h *WhereHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	ctx, span := otel.Tracer(observability.TracerName).Start(r.Context(), "where_am_i")
	defer span.End()

	client := geo.FromRequest(r)
	if !client.Country.Valid() && h.resolver != nil {
		ip := geo.VisitorIP(r)
		if resolved, err := h.resolver.Resolve(ctx, ip); err == nil {
			client = client.Fill(resolved)
			h.log.Debug("geoip_fallback_ok", "ip", ip, "country", client.Country.String())
		} else {
			h.log.Debug("geoip_fallback_miss", "ip", ip, "err", err)
		}
	}

	sample := edge.Sample{
		Client:          client,
		ExecutionRegion: edge.Some(h.edge.Region),
	}

	now := h.now()
	elapsed := now.Sub(start).Milliseconds()
	optimal := sample.Optimal()
	evidence := edge.Evidence(sample, elapsed, now)

	res := WhereResponse{
		Client: client,
		Edge: EdgeInfo{
			Region:       sample.ExecutionRegion,
			DeploymentID: edge.Some(h.edge.DeploymentID),
			FunctionID:   fmt.Sprintf("func_%d", now.UnixMilli()),
		},
		Proof: Proof{
			ResponseTime: fmt.Sprintf("%dms", elapsed),
			Timestamp:    edge.FormatTimestamp(now),
			UserAgent:    geo.UserAgent(r, userAgentMax),
		},
		Verification: Verification{
			IsOptimal: optimal,
			Message:   edge.Message(optimal),
			Evidence:  evidence,
		},
	}

	span.SetAttributes(
		attribute.String("client.country", client.Country.String()),
		attribute.String("edge.region", sample.ExecutionRegion.String()),
		attribute.Bool("edge.optimal", optimal),
	)
	h.metrics.ObserveRequest(elapsed)
	h.metrics.ObserveVerdict(h.edge.Region, optimal)
	h.log.Info("where_am_i_evidence",
		"country", client.Country.String(),
		"edge_region", sample.ExecutionRegion.String(),
		"optimal", optimal,
		"evidence", evidence,
	)

	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		h.log.Error("where_am_i_encode_error", "err", err)
	}
}
