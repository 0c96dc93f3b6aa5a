package api

import "where-am-i/internal/edge"

// 文档注释：where-am-i 响应结构（对外）
// 约束：字段名与前端页面约定一致（client/edge/proof/verification），缺失值序列化为 null。
type WhereResponse struct {
	Client       edge.Client  `json:"client"`
	Edge         EdgeInfo     `json:"edge"`
	Proof        Proof        `json:"proof"`
	Verification Verification `json:"verification"`
}

type EdgeInfo struct {
	Region       edge.Optional `json:"region"`
	DeploymentID edge.Optional `json:"deploymentId"`
	FunctionID   string        `json:"functionId"`
}

type Proof struct {
	ResponseTime string        `json:"responseTime"`
	Timestamp    string        `json:"timestamp"`
	UserAgent    edge.Optional `json:"userAgent"`
}

type Verification struct {
	IsOptimal bool     `json:"isOptimal"`
	Message   string   `json:"message"`
	Evidence  []string `json:"evidence"`
}
