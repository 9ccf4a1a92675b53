package rerank

import (
	"context"

	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/pipeline"
	"github.com/rushteam/cinerec/pkg/utils"
)

// Diversity 是多样性 ReRank：同一类别最多保留 MaxPerCategory 个（按输入顺序）。
// 类别来源优先级：
//   - label[LabelKey].Value
//   - meta[LabelKey] (string)
//
// 没有类别的物品总是保留。
type Diversity struct {
	LabelKey       string // 默认 "genre"
	MaxPerCategory int    // 默认 1
}

func (n *Diversity) Name() string        { return "rerank.diversity" }
func (n *Diversity) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	key := n.LabelKey
	if key == "" {
		key = utils.LabelGenre
	}
	limit := n.MaxPerCategory
	if limit <= 0 {
		limit = 1
	}

	counts := make(map[string]int, 32)
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		cate := category(it, key)
		if cate == "" {
			out = append(out, it)
			continue
		}
		if counts[cate] >= limit {
			continue
		}
		counts[cate]++
		out = append(out, it)
	}
	return out, nil
}

func category(it *core.Item, key string) string {
	if lbl, ok := it.Labels[key]; ok && lbl.Value != "" {
		return lbl.Value
	}
	if s, ok := it.Meta[key].(string); ok {
		return s
	}
	return ""
}
