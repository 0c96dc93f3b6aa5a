package edge

import "slices"

// FallbackRegion 为未收录国家的唯一推荐节点
const FallbackRegion = "iad1"

var fallbackRegions = []string{FallbackRegion}

// 国家代码 -> 推荐边缘节点（有序）
var preferredRegions = map[string][]string{
	"US": {"iad1", "sfo1", "pdx1"},
	"CN": {"hkg1", "sin1"},
	"DE": {"fra1", "arn1"},
	"JP": {"hnd1", "sin1"},
	"GB": {"lhr1", "cdg1"},
	"CA": {"iad1", "cle1"},
	"AU": {"syd1", "sin1"},
}

// regionsFor 返回国家的推荐节点；未收录国家回退到单一默认节点。返回值不得修改。
func regionsFor(country Optional) []string {
	if rs, ok := preferredRegions[country.Or("")]; ok {
		return rs
	}
	return fallbackRegions
}

// 文档注释：判定执行节点是否为客户端国家的最优节点
// 约束：精确、区分大小写的成员判断；缺失输入按空串查表，对任意输入均有定义。
func IsOptimal(country, region Optional) bool {
	return slices.Contains(regionsFor(country), region.Or(""))
}
