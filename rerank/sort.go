package rerank

import (
	"context"
	"sort"

	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/pipeline"
)

// ScoreSort 按 Score 降序稳定排序；分数相同的物品保持输入顺序。
// Ascending 为 true 时升序。
type ScoreSort struct {
	Ascending bool
}

func (n *ScoreSort) Name() string        { return "rerank.sort" }
func (n *ScoreSort) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *ScoreSort) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if n.Ascending {
			return out[i].Score < out[j].Score
		}
		return out[i].Score > out[j].Score
	})
	return out, nil
}
