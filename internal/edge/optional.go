// 包 edge：边缘就近执行判定与证据生成，纯函数实现，不依赖请求或进程环境
package edge

import (
	"encoding/json"
)

// Unknown 为缺失字段的统一展示占位
const Unknown = "unknown"

// 文档注释：可选字符串
// 背景：请求头与环境变量均可能缺失；用显式类型区分“缺失”与“展示占位”，使查表默认与渲染默认互不干扰。
// 约束：零值即缺失；空串视为缺失；JSON 中缺失序列化为 null。
type Optional struct {
	value string
	set   bool
}

// Some 构造存在的值；空串仍视为缺失
func Some(v string) Optional {
	if v == "" {
		return Optional{}
	}
	return Optional{value: v, set: true}
}

// None 构造缺失值
func None() Optional { return Optional{} }

// Valid 报告值是否存在
func (o Optional) Valid() bool { return o.set }

// Or 返回值，缺失时返回 def
func (o Optional) Or(def string) string {
	if !o.set {
		return def
	}
	return o.value
}

// String 用于日志输出，缺失时为 unknown
func (o Optional) String() string { return o.Or(Unknown) }

func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Optional) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = Optional{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*o = Some(s)
	return nil
}
