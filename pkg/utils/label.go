package utils

import (
	"slices"
	"strings"
)

// Label 是推荐链路中的一等公民：可解释、可追踪、可透传。
// Value 与 Source 的语义由业务自定义；这里只提供标准化的合并规则。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rerank ...
}

// 链路内约定的 Label key
const (
	LabelRecallSource = "recall_source"   // recall.content / recall.collaborative
	LabelRecallRank   = "recall_priority" // 召回源在 Fanout 中的顺序
	LabelGenre        = "genre"           // 物品的主类型
	LabelSeedScore    = "seed_score"      // 内容推荐的原始相似度
	LabelPeerUser     = "peer_user"       // 协同候选来自哪个相似用户
	LabelFiltered     = "filtered"        // 被过滤的原因
)

// MergeLabel 用于合并同名 Label，遵循“保留历史、可追踪”的默认策略。
//   - Value: 以 '|' 累积，已存在的值不重复追加
//   - Source: 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	if !slices.Contains(strings.Split(existing.Value, "|"), incoming.Value) {
		merged.Value = existing.Value + "|" + incoming.Value
	}
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	case existing.Source == incoming.Source:
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}
