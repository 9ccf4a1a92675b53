package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/pkg/logging"
	"github.com/rushteam/cinerec/user"
)

// PeerMeans 返回相似用户对其看过的每个物品的平均评分。
// 平均值只在评分过该物品的相似用户之间计算，没评分的用户不按 0 计入。
func (e *Engine) PeerMeans(p *user.Profile, sim *user.SimilarityMatrix) (map[int]float64, error) {
	neighbors, err := p.SimilarUsers(sim, e.cfg.SimilarUserCount)
	if err != nil {
		return nil, err
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, n := range neighbors {
		peer, err := e.users.Profile(n.UserID)
		if err != nil {
			return nil, err
		}
		for _, itemID := range peer.SeenItems() {
			v, _ := peer.RatingFor(itemID)
			sums[itemID] += v
			counts[itemID]++
		}
	}

	means := make(map[int]float64, len(sums))
	for itemID, s := range sums {
		means[itemID] = s / float64(counts[itemID])
	}
	return means, nil
}

// Score 用相似用户的证据评估一份内容推荐：对 predicted 中每个有证据的物品累加其相似用户平均评分，
// 无证据的物品跳过。没有任何证据时返回 0。
//
// 这是累加分数而不是归一化指标，不同用户之间（列表长度、相似用户数不同）不可比较。
func (e *Engine) Score(sim *user.SimilarityMatrix, predicted []core.Recommendation, p *user.Profile) (float64, error) {
	means, err := e.PeerMeans(p, sim)
	if err != nil {
		return 0, err
	}

	var score float64
	for _, rec := range predicted {
		if m, ok := means[rec.ItemID]; ok {
			score += m
		}
	}
	e.metrics.observeScore(score)
	return score, nil
}

// Evaluate 对每个用户计算内容推荐并打分，返回 userID -> 分数。
func (e *Engine) Evaluate(ctx context.Context, sim *user.SimilarityMatrix) (map[int]float64, error) {
	defer logging.Timed(e.logger, "evaluate", time.Now())
	ids := e.users.UserIDs()
	scores := make([]float64, len(ids))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.cfg.Workers)
	for i, id := range ids {
		i, id := i, id
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			p, err := e.users.Profile(id)
			if err != nil {
				return err
			}
			recs, err := e.recommend(p)
			if err != nil {
				return fmt.Errorf("evaluate user %d: %w", id, err)
			}
			s, err := e.Score(sim, recs, p)
			if err != nil {
				return fmt.Errorf("evaluate user %d: %w", id, err)
			}
			scores[i] = s
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make(map[int]float64, len(ids))
	for i, id := range ids {
		out[id] = scores[i]
	}
	return out, nil
}
