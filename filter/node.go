package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/pipeline"
	"github.com/rushteam/cinerec/pkg/utils"
)

// FilterNode 组合多个过滤器，任何一个过滤器返回 true，该物品就会被过滤掉。
// 过滤器出错时跳过该过滤器并记录日志，物品保留；Strict 为 true 时直接返回错误。
type FilterNode struct {
	Filters []Filter
	Strict  bool
	Logger  zerolog.Logger
}

func (n *FilterNode) Name() string        { return "filter.node" }
func (n *FilterNode) Kind() pipeline.Kind { return pipeline.KindFilter }

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		reason, err := n.check(ctx, rctx, item)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			item.PutLabel(utils.LabelFiltered, utils.Label{Value: "true", Source: reason})
			continue
		}
		out = append(out, item)
	}

	n.Logger.Debug().Int("in", len(items)).Int("out", len(out)).Msg("filter applied")
	return out, nil
}

// check 返回第一个命中的过滤器名称，未命中返回 ""。
func (n *FilterNode) check(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (string, error) {
	for _, f := range n.Filters {
		hit, err := f.ShouldFilter(ctx, rctx, item)
		if err != nil {
			if n.Strict {
				return "", err
			}
			n.Logger.Warn().Err(err).Str("filter", f.Name()).Int("item_id", item.ID).Msg("filter failed")
			continue
		}
		if hit {
			return f.Name(), nil
		}
	}
	return "", nil
}
