package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"where-am-i/internal/config"
	"where-am-i/internal/edge"
	"where-am-i/internal/geo"
	"where-am-i/internal/metrics"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 250_000_000, time.UTC)

type stubResolver struct {
	ip  string
	out edge.Client
	err error
}

func (s *stubResolver) Resolve(_ context.Context, ip string) (edge.Client, error) {
	s.ip = ip
	return s.out, s.err
}

func newTestRoutes(t *testing.T, ec config.EdgeConfig, resolver geo.Resolver) (*http.ServeMux, *metrics.Collector) {
	t.Helper()
	m, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	h := NewWhereHandler(ec, resolver, m, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return fixedNow }
	return BuildRoutes(h, m), m
}

func doGet(t *testing.T, mux http.Handler, headers map[string]string) (*httptest.ResponseRecorder, WhereResponse) {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/where-am-i", nil)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, r)
	var res WhereResponse
	if rr.Code == http.StatusOK {
		if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
			t.Fatalf("decode: %v: %s", err, rr.Body.String())
		}
	}
	return rr, res
}

func TestWhereAmIOptimal(t *testing.T) {
	mux, m := newTestRoutes(t, config.EdgeConfig{Region: "iad1", DeploymentID: "dpl_123"}, nil)
	rr, res := doGet(t, mux, map[string]string{
		"x-vercel-ip-country":        "US",
		"x-vercel-ip-city":           "Ashburn",
		"x-vercel-ip-country-region": "VA",
		"x-vercel-ip-timezone":       "America/New_York",
		"x-vercel-ip-continent":      "NA",
		"x-forwarded-for":            "198.51.100.10, 10.1.1.1",
		"user-agent":                 strings.Repeat("a", 80),
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("content-type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content-type = %q", ct)
	}
	if cc := rr.Header().Get("cache-control"); cc != "no-store" {
		t.Errorf("cache-control = %q", cc)
	}
	if res.Client.Country.Or("") != "US" || res.Client.IP.Or("") != "198.51.100.10" {
		t.Errorf("client = %+v", res.Client)
	}
	if res.Edge.Region.Or("") != "iad1" || res.Edge.DeploymentID.Or("") != "dpl_123" {
		t.Errorf("edge = %+v", res.Edge)
	}
	if res.Edge.FunctionID != "func_1748779200250" {
		t.Errorf("functionId = %q", res.Edge.FunctionID)
	}
	if res.Proof.ResponseTime != "0ms" || res.Proof.Timestamp != "2025-06-01T12:00:00.250Z" {
		t.Errorf("proof = %+v", res.Proof)
	}
	if n := len(res.Proof.UserAgent.Or("")); n != 50 {
		t.Errorf("userAgent length = %d", n)
	}
	if !res.Verification.IsOptimal || res.Verification.Message != edge.OptimalMessage {
		t.Errorf("verification = %+v", res.Verification)
	}
	wantEvidence := []string{
		"⚡ 超低延迟：0ms (证明就近执行)",
		"🌍 地理位置匹配：US 用户 -> iad1 节点",
		"🚀 Edge Runtime: iad1 (非传统服务器)",
		"🕐 实时执行：2025-06-01T12:00:00.250Z",
	}
	if strings.Join(res.Verification.Evidence, "\n") != strings.Join(wantEvidence, "\n") {
		t.Errorf("evidence = %q", res.Verification.Evidence)
	}
	if got := testutil.ToFloat64(m.VerdictsTotal.WithLabelValues("iad1", "true")); got != 1 {
		t.Errorf("verdict metric = %v", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal); got != 1 {
		t.Errorf("requests metric = %v", got)
	}
}

func TestWhereAmISuboptimal(t *testing.T) {
	mux, _ := newTestRoutes(t, config.EdgeConfig{Region: "fra1"}, nil)
	_, res := doGet(t, mux, map[string]string{"x-vercel-ip-country": "US"})
	if res.Verification.IsOptimal || res.Verification.Message != edge.SuboptimalMessage {
		t.Errorf("verification = %+v", res.Verification)
	}
	if len(res.Verification.Evidence) != 3 {
		t.Errorf("evidence = %q", res.Verification.Evidence)
	}
}

func TestWhereAmIMissingValuesAreNull(t *testing.T) {
	mux, _ := newTestRoutes(t, config.EdgeConfig{}, nil)
	rr, res := doGet(t, mux, nil)

	var raw map[string]map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	for _, k := range []string{"country", "city", "region", "timezone", "continent", "ip"} {
		if v, ok := raw["client"][k]; !ok || v != nil {
			t.Errorf("client.%s = %v, want null", k, v)
		}
	}
	if raw["edge"]["region"] != nil || raw["edge"]["deploymentId"] != nil {
		t.Errorf("edge = %v", raw["edge"])
	}
	if !strings.HasPrefix(res.Edge.FunctionID, "func_") {
		t.Errorf("functionId = %q", res.Edge.FunctionID)
	}
	if res.Verification.IsOptimal {
		t.Errorf("absent region must not be optimal")
	}
	if got := res.Verification.Evidence[len(res.Verification.Evidence)-2]; got != "🚀 Edge Runtime: unknown (非传统服务器)" {
		t.Errorf("runtime line = %q", got)
	}
}

func TestWhereAmIFallbackRegionForUnknownCountry(t *testing.T) {
	mux, _ := newTestRoutes(t, config.EdgeConfig{Region: "iad1"}, nil)
	_, res := doGet(t, mux, map[string]string{"x-vercel-ip-country": "ZZ"})
	if !res.Verification.IsOptimal {
		t.Errorf("ZZ/iad1 should be optimal")
	}

	mux, _ = newTestRoutes(t, config.EdgeConfig{Region: "sin1"}, nil)
	_, res = doGet(t, mux, map[string]string{"x-vercel-ip-country": "ZZ"})
	if res.Verification.IsOptimal {
		t.Errorf("ZZ/sin1 should not be optimal")
	}
}

func TestWhereAmIGeoIPFallbackFillsMissingFields(t *testing.T) {
	stub := &stubResolver{out: edge.Client{
		Country:  edge.Some("DE"),
		City:     edge.Some("Frankfurt"),
		Timezone: edge.Some("Europe/Berlin"),
		IP:       edge.Some("203.0.113.50"),
	}}
	mux, _ := newTestRoutes(t, config.EdgeConfig{Region: "fra1"}, stub)
	_, res := doGet(t, mux, map[string]string{"x-real-ip": "203.0.113.50", "x-vercel-ip-timezone": "UTC"})

	if stub.ip != "203.0.113.50" {
		t.Errorf("resolver queried %q", stub.ip)
	}
	if res.Client.Country.Or("") != "DE" || res.Client.City.Or("") != "Frankfurt" {
		t.Errorf("client = %+v", res.Client)
	}
	if res.Client.Timezone.Or("") != "UTC" {
		t.Errorf("header value must win, timezone = %q", res.Client.Timezone.Or(""))
	}
	if !res.Verification.IsOptimal {
		t.Errorf("DE/fra1 should be optimal")
	}
}

func TestWhereAmIGeoIPSkippedWhenHeaderPresent(t *testing.T) {
	stub := &stubResolver{out: edge.Client{Country: edge.Some("DE")}}
	mux, _ := newTestRoutes(t, config.EdgeConfig{Region: "iad1"}, stub)
	_, res := doGet(t, mux, map[string]string{"x-vercel-ip-country": "US"})
	if stub.ip != "" {
		t.Errorf("resolver should not be called")
	}
	if res.Client.Country.Or("") != "US" {
		t.Errorf("country = %q", res.Client.Country.Or(""))
	}
}

func TestWhereAmIGeoIPErrorKeepsHeaders(t *testing.T) {
	stub := &stubResolver{err: geo.ErrNotFound}
	mux, _ := newTestRoutes(t, config.EdgeConfig{Region: "iad1"}, stub)
	rr, res := doGet(t, mux, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if res.Client.Country.Valid() {
		t.Errorf("country should stay absent")
	}
}

func TestWhereAmIRejectsPost(t *testing.T) {
	mux, _ := newTestRoutes(t, config.EdgeConfig{}, nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/where-am-i", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestWhereAmILogsEvidenceAtInfo(t *testing.T) {
	m, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	var buf bytes.Buffer
	h := NewWhereHandler(config.EdgeConfig{Region: "fra1"}, nil, m, slog.New(slog.NewTextHandler(&buf, nil)))
	h.now = func() time.Time { return fixedNow }

	rr, _ := doGet(t, BuildRoutes(h, m), map[string]string{"x-vercel-ip-country": "DE"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "level=INFO") || !strings.Contains(out, "where_am_i_evidence") {
		t.Errorf("log = %q", out)
	}
	if !strings.Contains(out, "country=DE") || !strings.Contains(out, "optimal=true") {
		t.Errorf("log fields = %q", out)
	}
}
