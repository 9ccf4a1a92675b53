// Package user 提供用户画像（Profile）与用户目录（Catalog）。
//
// Profile 只持有用户 ID、人口属性与该用户的评分切片；Catalog 独占全部 Profile，
// Profile 不反向引用 Catalog。
package user

import (
	"fmt"
	"sort"

	"github.com/rushteam/cinerec/catalog"
	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/rating"
)

// 推荐默认参数
const (
	DefaultTopN           = 5
	DefaultSeedCount      = 3
	DefaultSimilarPerSeed = 10
)

// RecommendOptions 控制基于内容的推荐。零值字段使用默认值。
type RecommendOptions struct {
	// TopN 最终返回的推荐数量
	TopN int
	// SeedCount 作为种子的最高评分物品数量
	SeedCount int
	// SimilarPerSeed 每个种子取多少个相似物品
	SimilarPerSeed int
}

func (o RecommendOptions) withDefaults() RecommendOptions {
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.SeedCount <= 0 {
		o.SeedCount = DefaultSeedCount
	}
	if o.SimilarPerSeed <= 0 {
		o.SimilarPerSeed = DefaultSimilarPerSeed
	}
	return o
}

// Profile 是单个用户的画像：观测到的评分、已看物品集合，以及按需计算的稠密评分向量。
// 构建后不再修改。
type Profile struct {
	userID       int
	demographics map[string]any
	ratings      []core.Rating
	seen         []int
	byItem       map[int]float64
}

// NewProfile 绑定用户 ID、人口属性（可为 nil）与该用户在 evidence 中的评分切片。
func NewProfile(userID int, demographics map[string]any, evidence *rating.Evidence) *Profile {
	p := &Profile{
		userID:       userID,
		demographics: demographics,
		byItem:       make(map[int]float64),
	}
	if evidence != nil {
		p.ratings = evidence.RatingsFor(userID)
	}
	for _, r := range p.ratings {
		if _, ok := p.byItem[r.ItemID]; ok {
			continue
		}
		p.byItem[r.ItemID] = r.Value
		p.seen = append(p.seen, r.ItemID)
	}
	return p
}

func (p *Profile) UserID() int { return p.userID }

// Demographics 返回透传的人口属性。
func (p *Profile) Demographics() map[string]any { return p.demographics }

// Ratings 返回该用户全部评分的副本。
func (p *Profile) Ratings() []core.Rating { return append([]core.Rating(nil), p.ratings...) }

// SeenItems 返回已评分物品 ID（去重，首次出现顺序）。
func (p *Profile) SeenItems() []int { return append([]int(nil), p.seen...) }

// HasSeen 判断用户是否评分过 itemID。
func (p *Profile) HasSeen(itemID int) bool {
	_, ok := p.byItem[itemID]
	return ok
}

// RatingFor 返回用户对 itemID 的评分；同一物品多条观测时取第一条。
func (p *Profile) RatingFor(itemID int) (float64, bool) {
	v, ok := p.byItem[itemID]
	return v, ok
}

// TopRated 返回评分最高的 n 条观测。评分相同保持原始观测顺序。
// 观测不足 n 条时返回全部。
func (p *Profile) TopRated(n int) []core.Rating {
	if n <= 0 {
		return []core.Rating{}
	}
	sorted := p.Ratings()
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	if sorted == nil {
		sorted = []core.Rating{}
	}
	return sorted
}

// EncodedVector 返回以 [0, items.MaxID()] 为下标的稠密评分向量，未评分处为 0。
// 每次调用都按目录当前的 ID 区间重新计算，不做缓存。
// 物品 ID 超出目录区间的评分不进入向量，可通过 OutOfCatalog 获取。
func (p *Profile) EncodedVector(items *catalog.Catalog) []float64 {
	vec := make([]float64, items.NumItems())
	for _, itemID := range p.seen {
		if items.Contains(itemID) {
			vec[itemID] = p.byItem[itemID]
		}
	}
	return vec
}

// OutOfCatalog 返回物品 ID 不在目录稠密区间内的评分。
func (p *Profile) OutOfCatalog(items *catalog.Catalog) []core.Rating {
	var out []core.Rating
	for _, r := range p.ratings {
		if !items.Contains(r.ItemID) {
			out = append(out, r)
		}
	}
	return out
}

// SimilarUsers 按相似度降序返回 topK 个其他用户（排除自己），排序稳定。
// 用户不在矩阵中时返回 NOT_FOUND。
func (p *Profile) SimilarUsers(sim *SimilarityMatrix, topK int) ([]core.Neighbor, error) {
	return sim.MostSimilar(p.userID, topK)
}

// Recommend 是基于内容的推荐：
//  1. 取评分最高的 SeedCount 个物品作为种子
//  2. 对每个种子取 SimilarPerSeed 个相似物品并拼接
//  3. 按物品 ID 去重（保留首次出现），按相似度降序稳定排序，取前 TopN
//
// 不在目录中的种子被跳过，种子变少而不是报错；没有评分的用户返回空列表。
func (p *Profile) Recommend(items *catalog.Catalog, opts RecommendOptions) ([]core.Recommendation, error) {
	opts = opts.withDefaults()

	var candidates []core.Recommendation
	for _, seed := range p.TopRated(opts.SeedCount) {
		if !items.Contains(seed.ItemID) {
			continue
		}
		recs, err := items.MostSimilar(seed.ItemID, opts.SimilarPerSeed)
		if err != nil {
			return nil, fmt.Errorf("user %d seed item %d: %w", p.userID, seed.ItemID, err)
		}
		candidates = append(candidates, recs...)
	}

	seen := make(map[int]struct{}, len(candidates))
	out := make([]core.Recommendation, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.ItemID]; dup {
			continue
		}
		seen[c.ItemID] = struct{}{}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > opts.TopN {
		out = out[:opts.TopN]
	}
	return out, nil
}
