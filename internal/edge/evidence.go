package edge

import (
	"fmt"
	"time"
)

// LowLatencyMs 以下的耗时视为就近执行的延迟证据
const LowLatencyMs = 100

// TimestampLayout 为证据与响应中时间戳的统一格式（UTC，毫秒精度）
const TimestampLayout = "2006-01-02T15:04:05.000Z"

const (
	OptimalMessage    = "✅ 确认：在最近边缘节点运行！"
	SuboptimalMessage = "⚠️ 注意：可能不是最优节点"
)

// Client 为边缘网络回传的客户端地理信息
type Client struct {
	Country   Optional `json:"country"`
	City      Optional `json:"city"`
	Region    Optional `json:"region"`
	Timezone  Optional `json:"timezone"`
	Continent Optional `json:"continent"`
	IP        Optional `json:"ip"`
}

// Fill 用 other 补全缺失字段，已有字段保持不变
func (c Client) Fill(other Client) Client {
	pick := func(a, b Optional) Optional {
		if a.Valid() {
			return a
		}
		return b
	}
	return Client{
		Country:   pick(c.Country, other.Country),
		City:      pick(c.City, other.City),
		Region:    pick(c.Region, other.Region),
		Timezone:  pick(c.Timezone, other.Timezone),
		Continent: pick(c.Continent, other.Continent),
		IP:        pick(c.IP, other.IP),
	}
}

// Sample 为单次请求的位置样本：客户端信息与实际执行节点
type Sample struct {
	Client          Client
	ExecutionRegion Optional
}

// Optimal 对样本做最优判定
func (s Sample) Optimal() bool { return IsOptimal(s.Client.Country, s.ExecutionRegion) }

// Message 按判定结果选取两条固定提示之一
func Message(optimal bool) string {
	if optimal {
		return OptimalMessage
	}
	return SuboptimalMessage
}

// FormatTimestamp 按统一格式输出 UTC 时间
func FormatTimestamp(t time.Time) string { return t.UTC().Format(TimestampLayout) }

// 文档注释：生成验证证据
// 背景：按固定顺序输出：低延迟（条件）、地理匹配（条件）、边缘运行时、实时时间戳；后两条恒定存在。
// 约束：缺失字段展示为 unknown；负耗时按 0 处理。
func Evidence(s Sample, elapsedMs int64, now time.Time) []string {
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	out := make([]string, 0, 4)
	if elapsedMs < LowLatencyMs {
		out = append(out, fmt.Sprintf("⚡ 超低延迟：%dms (证明就近执行)", elapsedMs))
	}
	if s.Optimal() {
		out = append(out, fmt.Sprintf("🌍 地理位置匹配：%s 用户 -> %s 节点", s.Client.Country, s.ExecutionRegion))
	}
	out = append(out, fmt.Sprintf("🚀 Edge Runtime: %s (非传统服务器)", s.ExecutionRegion))
	out = append(out, fmt.Sprintf("🕐 实时执行：%s", FormatTimestamp(now)))
	return out
}
