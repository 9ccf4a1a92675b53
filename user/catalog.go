package user

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/cinerec/catalog"
	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/rating"
)

// Alignment 决定编码评分表的公共物品 ID 集合。
//
// 每个用户的覆盖集合 = 目录区间 [0, maxID] ∪ 该用户评分过但不在目录中的物品 ID。
// 两种策略都直接对全体用户求集合，与用户遍历顺序无关：
//   - AlignIntersection：所有用户覆盖集合的交集，恰好是目录区间；目录外的评分被丢弃
//   - AlignUnion：所有用户覆盖集合的并集，目录外的物品 ID 追加在目录区间之后
type Alignment string

const (
	AlignIntersection Alignment = "intersection"
	AlignUnion        Alignment = "union"
)

// Valid 判断策略名称是否合法。
func (a Alignment) Valid() bool {
	return a == AlignIntersection || a == AlignUnion
}

// Catalog 是用户目录，独占全部用户画像。
type Catalog struct {
	userIDs  []int // 升序
	profiles map[int]*Profile
}

// NewCatalog 为每个用户 ID 构建一个 Profile。demographics 可为 nil；
// 没有人口属性行的用户 Attributes 为 nil。重复的用户 ID 返回 DATA_INTEGRITY。
func NewCatalog(userIDs []int, demographics []core.Demographic, evidence *rating.Evidence) (*Catalog, error) {
	attrs := make(map[int]map[string]any, len(demographics))
	for _, d := range demographics {
		attrs[d.UserID] = d.Attributes
	}

	c := &Catalog{
		userIDs:  make([]int, 0, len(userIDs)),
		profiles: make(map[int]*Profile, len(userIDs)),
	}
	for _, id := range userIDs {
		if _, dup := c.profiles[id]; dup {
			return nil, core.Errorf(core.ModuleUser, core.ErrorCodeDataIntegrity, "user: duplicate user id %d", id)
		}
		c.profiles[id] = NewProfile(id, attrs[id], evidence)
		c.userIDs = append(c.userIDs, id)
	}
	sort.Ints(c.userIDs)
	return c, nil
}

// Len 返回用户数。
func (c *Catalog) Len() int { return len(c.userIDs) }

// UserIDs 返回全部用户 ID（升序）。
func (c *Catalog) UserIDs() []int { return append([]int(nil), c.userIDs...) }

// Profile 返回指定用户的画像。
func (c *Catalog) Profile(userID int) (*Profile, error) {
	p, ok := c.profiles[userID]
	if !ok {
		return nil, core.Errorf(core.ModuleUser, core.ErrorCodeNotFound, "user: user %d not found", userID)
	}
	return p, nil
}

// RatingsTable 是编码后的物品×用户评分矩阵。
type RatingsTable struct {
	itemIDs []int // 行
	userIDs []int // 列
	m       *mat.Dense
}

// ItemIDs 返回行对应的物品 ID。
func (t *RatingsTable) ItemIDs() []int { return append([]int(nil), t.itemIDs...) }

// UserIDs 返回列对应的用户 ID。
func (t *RatingsTable) UserIDs() []int { return append([]int(nil), t.userIDs...) }

// Matrix 返回底层矩阵（只读）。
func (t *RatingsTable) Matrix() mat.Matrix { return t.m }

// Dims 返回 (物品数, 用户数)。
func (t *RatingsTable) Dims() (int, int) { return len(t.itemIDs), len(t.userIDs) }

// EncodedRatingsTable 计算每个用户的 EncodedVector，并按 align 策略对齐到公共物品 ID 集合。
// 用户目录为空时返回 INVALID_INPUT。
func (c *Catalog) EncodedRatingsTable(items *catalog.Catalog, align Alignment) (*RatingsTable, error) {
	if len(c.userIDs) == 0 {
		return nil, core.NewDomainError(core.ModuleUser, core.ErrorCodeInvalidInput, "user: no users to encode")
	}
	if align == "" {
		align = AlignIntersection
	}
	if !align.Valid() {
		return nil, core.Errorf(core.ModuleUser, core.ErrorCodeInvalidInput, "user: unknown alignment %q", align)
	}

	// 目录外物品 ID -> 覆盖它的用户数
	extra := make(map[int]int)
	for _, id := range c.userIDs {
		covered := make(map[int]struct{})
		for _, r := range c.profiles[id].OutOfCatalog(items) {
			covered[r.ItemID] = struct{}{}
		}
		for itemID := range covered {
			extra[itemID]++
		}
	}

	itemIDs := make([]int, 0, items.NumItems()+len(extra))
	for id := 0; id < items.NumItems(); id++ {
		itemIDs = append(itemIDs, id)
	}
	extraIDs := make([]int, 0, len(extra))
	for itemID, n := range extra {
		if align == AlignUnion || n == len(c.userIDs) {
			extraIDs = append(extraIDs, itemID)
		}
	}
	sort.Ints(extraIDs)
	itemIDs = append(itemIDs, extraIDs...)

	m := mat.NewDense(len(itemIDs), len(c.userIDs), nil)
	for col, userID := range c.userIDs {
		p := c.profiles[userID]
		m.SetCol(col, append(p.EncodedVector(items), p.valuesFor(extraIDs)...))
	}

	return &RatingsTable{
		itemIDs: itemIDs,
		userIDs: append([]int(nil), c.userIDs...),
		m:       m,
	}, nil
}

// UserSimilarityMatrix 计算 Eᵀ·E：用户×用户点积相似度矩阵，对角线为评分向量的平方范数。
// 编码表变化后需要调用方重新计算，不会自动失效。
func UserSimilarityMatrix(table *RatingsTable) *SimilarityMatrix {
	n := len(table.userIDs)
	u := mat.NewDense(n, n, nil)
	u.Mul(table.m.T(), table.m)
	return newSimilarityMatrix(append([]int(nil), table.userIDs...), u)
}

// SimilarityMatrix 是 EncodedRatingsTable + UserSimilarityMatrix 的便捷组合。
func (c *Catalog) SimilarityMatrix(items *catalog.Catalog, align Alignment) (*SimilarityMatrix, error) {
	table, err := c.EncodedRatingsTable(items, align)
	if err != nil {
		return nil, err
	}
	return UserSimilarityMatrix(table), nil
}

// valuesFor 返回用户对给定物品 ID 的评分，未评分为 0。
func (p *Profile) valuesFor(itemIDs []int) []float64 {
	out := make([]float64, len(itemIDs))
	for i, id := range itemIDs {
		out[i] = p.byItem[id]
	}
	return out
}
