// Package engine 是推荐引擎（RecommendationEngine）：
//   - 基于内容：对每个用户取最高评分种子的相似物品
//   - 协同候选池：取相似用户的最高评分物品
//   - 打分：用相似用户的平均评分评估一份内容推荐列表
//
// 引擎只读持有电影目录与用户目录，所有方法都可以并发调用。
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/cinerec/catalog"
	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/pkg/logging"
	"github.com/rushteam/cinerec/user"
)

// Engine 是推荐引擎。
type Engine struct {
	items   *catalog.Catalog
	users   *user.Catalog
	cfg     Config
	logger  zerolog.Logger
	metrics *Metrics
}

// Option 配置 Engine。
type Option func(*Engine)

// WithLogger 设置日志，默认 zerolog.Nop()。
//
//nolint:gocritic // zerolog.Logger 按值传递
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger.With().Str("component", "engine").Logger()
	}
}

// WithMetrics 设置 Prometheus 指标。
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New 创建推荐引擎。
func New(items *catalog.Catalog, users *user.Catalog, cfg Config, opts ...Option) (*Engine, error) {
	if items == nil || users == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: item and user catalogs are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		items:  items,
		users:  users,
		cfg:    cfg,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Items() *catalog.Catalog { return e.items }
func (e *Engine) Users() *user.Catalog    { return e.users }
func (e *Engine) Config() Config          { return e.cfg }

// UserSimilarity 按配置的对齐策略构建编码评分表并计算用户相似度矩阵。
// 结果不缓存；评分数据变化后由调用方重新计算。
func (e *Engine) UserSimilarity() (*user.SimilarityMatrix, error) {
	start := time.Now()
	table, err := e.users.EncodedRatingsTable(e.items, e.cfg.Alignment)
	if err != nil {
		return nil, err
	}
	sim := user.UserSimilarityMatrix(table)
	e.metrics.observeBuild(start)

	rows, cols := table.Dims()
	e.logger.Debug().
		Int("items", rows).
		Int("users", cols).
		Str("alignment", string(e.cfg.Alignment)).
		Dur("took", time.Since(start)).
		Msg("user similarity matrix built")
	return sim, nil
}

// RecommendOne 计算单个用户的内容推荐。
func (e *Engine) RecommendOne(userID int) ([]core.Recommendation, error) {
	p, err := e.users.Profile(userID)
	if err != nil {
		return nil, err
	}
	return e.recommend(p)
}

func (e *Engine) recommend(p *user.Profile) ([]core.Recommendation, error) {
	recs, err := p.Recommend(e.items, e.cfg.recommendOptions())
	if err != nil {
		return nil, err
	}
	e.metrics.incRecommendations("content")
	e.logger.Debug().Int("user_id", p.UserID()).Int("count", len(recs)).Msg("content recommendations computed")
	return recs, nil
}

// RecommendAll 为用户目录中的每个用户计算内容推荐，返回 userID -> 推荐列表。
// 每个用户相互独立，按 Config.Workers 并发执行；结果与并发度无关。
func (e *Engine) RecommendAll(ctx context.Context) (map[int][]core.Recommendation, error) {
	defer logging.Timed(e.logger, "recommend_all", time.Now())
	ids := e.users.UserIDs()
	results := make([][]core.Recommendation, len(ids))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.cfg.Workers)
	for i, id := range ids {
		i, id := i, id
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			recs, err := e.RecommendOne(id)
			if err != nil {
				return fmt.Errorf("recommend user %d: %w", id, err)
			}
			results[i] = recs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make(map[int][]core.Recommendation, len(ids))
	for i, id := range ids {
		out[id] = results[i]
	}
	return out, nil
}

// CollaborativePool 取 SimilarUserCount 个最相似用户，合并每人 PerUserTop 个最高评分观测，
// 按物品 ID 去重（保留首次出现）后按物品 ID 升序排列，返回前 PoolSize 条。
//
// 结果按物品 ID 排序，而不是按评分或相关度排序。
func (e *Engine) CollaborativePool(p *user.Profile, sim *user.SimilarityMatrix) ([]core.Rating, error) {
	neighbors, err := p.SimilarUsers(sim, e.cfg.SimilarUserCount)
	if err != nil {
		return nil, err
	}

	var combined []core.Rating
	for _, n := range neighbors {
		peer, err := e.users.Profile(n.UserID)
		if err != nil {
			return nil, err
		}
		combined = append(combined, peer.TopRated(e.cfg.PerUserTop)...)
	}

	seen := make(map[int]struct{}, len(combined))
	pool := make([]core.Rating, 0, len(combined))
	for _, r := range combined {
		if _, dup := seen[r.ItemID]; dup {
			continue
		}
		seen[r.ItemID] = struct{}{}
		pool = append(pool, r)
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].ItemID < pool[j].ItemID
	})
	if len(pool) > e.cfg.PoolSize {
		pool = pool[:e.cfg.PoolSize]
	}

	e.metrics.incRecommendations("pool")
	return pool, nil
}
