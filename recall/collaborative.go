package recall

import (
	"context"
	"strconv"
	"sync"

	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/engine"
	"github.com/rushteam/cinerec/pkg/utils"
	"github.com/rushteam/cinerec/user"
)

// CollaborativeRecall 是基于用户的协同召回源（User-CF 的候选池部分）：
//  1. 用户 → 编码评分向量
//  2. 点积计算用户相似度，找 TopK 相似用户
//  3. 合并相似用户各自评分最高的物品
//
// Item.Score 为相似用户对该物品的评分。候选池按物品 ID 升序而非相关度排列，
// 通常需要后接 rerank.ScoreSort。
type CollaborativeRecall struct {
	Engine *engine.Engine

	// Similarity 为 nil 时首次召回由 Engine 计算并复用
	Similarity *user.SimilarityMatrix

	once sync.Once
	sim  *user.SimilarityMatrix
	err  error
}

func (r *CollaborativeRecall) Name() string { return "recall.collaborative" }

func (r *CollaborativeRecall) similarity() (*user.SimilarityMatrix, error) {
	r.once.Do(func() {
		if r.Similarity != nil {
			r.sim = r.Similarity
			return
		}
		r.sim, r.err = r.Engine.UserSimilarity()
	})
	return r.sim, r.err
}

func (r *CollaborativeRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if err := requireUser(r.Name(), rctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sim, err := r.similarity()
	if err != nil {
		return nil, err
	}
	// 相似度矩阵首次构建可能很慢
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := r.Engine.Users().Profile(rctx.UserID)
	if err != nil {
		return nil, err
	}
	pool, err := r.Engine.CollaborativePool(p, sim)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Item, 0, len(pool))
	for _, obs := range pool {
		it := core.NewItem(obs.ItemID)
		it.Score = obs.Value
		decorate(r.Engine.Items(), it)
		it.PutLabel(utils.LabelPeerUser, utils.Label{
			Value:  strconv.Itoa(obs.UserID),
			Source: "recall",
		})
		out = append(out, it)
	}
	return out, nil
}
