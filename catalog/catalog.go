// Package catalog 提供电影目录（ItemCatalog）：稠密 ID 表、类型特征矩阵与物品相似度矩阵。
//
// 目录在构建时一次性完成：
//   - 补齐 [0, maxID] 区间内缺失的 ID（特征全 0、名称为空、年份为 0）
//   - 计算相似度矩阵 S = F·Fᵀ（F 为 n×f 的类型特征矩阵）
//
// 构建完成后目录只读，可被多个 goroutine 并发查询。
package catalog

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/cinerec/core"
)

// Catalog 是电影目录。movies 以 ID 为下标（arena），长度为 maxID+1。
type Catalog struct {
	movies   []core.Movie
	genres   []string
	features *mat.Dense // n × f
	sim      *mat.Dense // n × n
}

// Option 配置目录构建。
type Option func(*Catalog)

// WithGenres 指定特征列对应的类型名称，长度必须与特征维度一致。
func WithGenres(names ...string) Option {
	return func(c *Catalog) {
		c.genres = append([]string(nil), names...)
	}
}

// New 从原始电影行构建目录。
// rows 可以乱序、可以有 ID 空洞；出现负数 ID、重复 ID、特征维度不一致、
// 负数或非有限特征值时返回 DATA_INTEGRITY 错误。
func New(rows []core.Movie, opts ...Option) (*Catalog, error) {
	c := &Catalog{}
	for _, opt := range opts {
		opt(c)
	}

	if len(rows) == 0 {
		return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeDataIntegrity, "catalog: no movies")
	}

	width := len(rows[0].Features)
	if width == 0 {
		return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeDataIntegrity, "catalog: empty feature vector")
	}
	if c.genres != nil && len(c.genres) != width {
		return nil, core.Errorf(core.ModuleCatalog, core.ErrorCodeDataIntegrity,
			"catalog: %d genre names for %d feature columns", len(c.genres), width)
	}

	maxID := -1
	seen := make(map[int]struct{}, len(rows))
	for _, r := range rows {
		if r.ID < 0 {
			return nil, core.Errorf(core.ModuleCatalog, core.ErrorCodeDataIntegrity, "catalog: negative movie id %d", r.ID)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, core.Errorf(core.ModuleCatalog, core.ErrorCodeDataIntegrity, "catalog: duplicate movie id %d", r.ID)
		}
		seen[r.ID] = struct{}{}

		if len(r.Features) != width {
			return nil, core.Errorf(core.ModuleCatalog, core.ErrorCodeDataIntegrity,
				"catalog: movie %d has %d features, want %d", r.ID, len(r.Features), width)
		}
		for _, v := range r.Features {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, core.Errorf(core.ModuleCatalog, core.ErrorCodeDataIntegrity,
					"catalog: movie %d has invalid feature value %v", r.ID, v)
			}
		}
		if r.ID > maxID {
			maxID = r.ID
		}
	}

	// 先填充默认行，再按 ID 覆盖真实行
	n := maxID + 1
	c.movies = make([]core.Movie, n)
	for id := range c.movies {
		c.movies[id] = core.Movie{ID: id, Features: make([]float64, width), Filled: true}
	}
	for _, r := range rows {
		c.movies[r.ID] = core.Movie{
			ID:       r.ID,
			Name:     r.Name,
			Year:     r.Year,
			Features: append([]float64(nil), r.Features...),
		}
	}

	c.features = mat.NewDense(n, width, nil)
	for id, m := range c.movies {
		c.features.SetRow(id, m.Features)
	}
	c.sim = mat.NewDense(n, n, nil)
	c.sim.Mul(c.features, c.features.T())

	return c, nil
}

// NumItems 返回稠密表的行数（maxID+1）。
func (c *Catalog) NumItems() int { return len(c.movies) }

// MaxID 返回最大电影 ID。
func (c *Catalog) MaxID() int { return len(c.movies) - 1 }

// NumFeatures 返回特征维度。
func (c *Catalog) NumFeatures() int {
	_, f := c.features.Dims()
	return f
}

// Genres 返回特征列名称（未指定时为 nil）。
func (c *Catalog) Genres() []string { return c.genres }

// Contains 判断 id 是否在稠密区间内。
func (c *Catalog) Contains(id int) bool {
	return id >= 0 && id < len(c.movies)
}

// Similarity 返回物品相似度矩阵（只读）。
func (c *Catalog) Similarity() mat.Matrix { return c.sim }

// SimilarityAt 返回 S[i][j]。
func (c *Catalog) SimilarityAt(i, j int) (float64, error) {
	if !c.Contains(i) {
		return 0, c.notFound(i)
	}
	if !c.Contains(j) {
		return 0, c.notFound(j)
	}
	return c.sim.At(i, j), nil
}

// Movie 返回指定 ID 的电影行，Features 是副本。
func (c *Catalog) Movie(id int) (core.Movie, error) {
	if !c.Contains(id) {
		return core.Movie{}, c.notFound(id)
	}
	m := c.movies[id]
	m.Features = append([]float64(nil), m.Features...)
	return m, nil
}

// Name 返回电影名称。
func (c *Catalog) Name(id int) (string, error) {
	if !c.Contains(id) {
		return "", c.notFound(id)
	}
	return c.movies[id].Name, nil
}

// Year 返回电影年份（填充行为 0）。
func (c *Catalog) Year(id int) (int, error) {
	if !c.Contains(id) {
		return 0, c.notFound(id)
	}
	return c.movies[id].Year, nil
}

// DominantGenre 返回权重最大的类型名称；特征全 0 或未配置类型名称时返回 ""。
func (c *Catalog) DominantGenre(id int) string {
	if !c.Contains(id) || c.genres == nil {
		return ""
	}
	best, bestVal := -1, 0.0
	for i, v := range c.movies[id].Features {
		if v > bestVal {
			best, bestVal = i, v
		}
	}
	if best < 0 {
		return ""
	}
	return c.genres[best]
}

// LookupID 按名称（和可选年份）精确查找电影 ID。
// 无匹配返回 NOT_FOUND；多条匹配返回 *core.AmbiguousMatchError（携带候选）。
// 填充行不参与匹配。
func (c *Catalog) LookupID(name string, year ...int) (int, error) {
	var matches []core.Movie
	for _, m := range c.movies {
		if m.Filled || m.Name != name {
			continue
		}
		if len(year) > 0 && m.Year != year[0] {
			continue
		}
		matches = append(matches, m)
	}

	switch len(matches) {
	case 0:
		if len(year) > 0 {
			return 0, core.Errorf(core.ModuleCatalog, core.ErrorCodeNotFound, "catalog: movie %q (%d) not found", name, year[0])
		}
		return 0, core.Errorf(core.ModuleCatalog, core.ErrorCodeNotFound, "catalog: movie %q not found", name)
	case 1:
		return matches[0].ID, nil
	default:
		return 0, core.NewAmbiguousMatchError(core.ModuleCatalog, name, matches)
	}
}

// MostSimilar 返回与 itemID 最相似的 topK 个其他物品，按相似度降序。
// 排序是稳定的：分数相同的物品保持 ID 升序。itemID 自身永远不会出现在结果中。
func (c *Catalog) MostSimilar(itemID, topK int) ([]core.Recommendation, error) {
	if !c.Contains(itemID) {
		return nil, c.notFound(itemID)
	}
	if topK <= 0 {
		return []core.Recommendation{}, nil
	}

	row := c.sim.RawRowView(itemID)
	candidates := make([]core.Recommendation, 0, len(row)-1)
	for j, score := range row {
		if j == itemID {
			continue
		}
		candidates = append(candidates, core.Recommendation{
			ItemID: j,
			Name:   c.movies[j].Name,
			Score:  score,
		})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Score > candidates[b].Score
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// MostSimilarByName 先按名称（和可选年份）解析 ID，再调用 MostSimilar。
func (c *Catalog) MostSimilarByName(name string, topK int, year ...int) ([]core.Recommendation, error) {
	id, err := c.LookupID(name, year...)
	if err != nil {
		return nil, err
	}
	return c.MostSimilar(id, topK)
}

func (c *Catalog) notFound(id int) error {
	return core.Errorf(core.ModuleCatalog, core.ErrorCodeNotFound,
		"catalog: movie id %d outside [0, %d]", id, len(c.movies)-1)
}
