package recall

import (
	"context"
	"strconv"

	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/engine"
	"github.com/rushteam/cinerec/pkg/utils"
)

// ContentRecall 是基于内容的召回源：
// 取用户评分最高的若干种子电影，再取每个种子的最相似电影。
// Item.Score 为与种子的类型相似度。
type ContentRecall struct {
	Engine *engine.Engine
}

func (r *ContentRecall) Name() string { return "recall.content" }

func (r *ContentRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if err := requireUser(r.Name(), rctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs, err := r.Engine.RecommendOne(rctx.UserID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(recs))
	for _, rec := range recs {
		it := rec.ToItem()
		decorate(r.Engine.Items(), it)
		it.PutLabel(utils.LabelSeedScore, utils.Label{
			Value:  strconv.FormatFloat(rec.Score, 'g', -1, 64),
			Source: "recall",
		})
		out = append(out, it)
	}
	return out, nil
}
