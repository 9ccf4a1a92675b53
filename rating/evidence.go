// Package rating 持有原始评分观测（RatingEvidence），并按用户切片查询。
package rating

import (
	"math"

	"github.com/rushteam/cinerec/core"
)

// Evidence 是只读的评分观测集合。
// 构建后不再修改，可被并发读取。
type Evidence struct {
	ratings []core.Rating
	byUser  map[int][]int // userID -> ratings 下标，保持原始顺序
	users   []int         // 首次出现顺序
	items   []int         // 首次出现顺序

	minValue, maxValue float64
	bounded            bool
}

// Option 配置 Evidence 构建。
type Option func(*Evidence)

// WithBounds 限定评分取值区间 [min, max]，超出区间的观测在构建时被拒绝。
func WithBounds(min, max float64) Option {
	return func(e *Evidence) {
		e.minValue, e.maxValue = min, max
		e.bounded = true
	}
}

// NewEvidence 构建评分集合。评分值必须是有限数；配置了 WithBounds 时还必须落在区间内。
func NewEvidence(observations []core.Rating, opts ...Option) (*Evidence, error) {
	e := &Evidence{
		ratings: make([]core.Rating, 0, len(observations)),
		byUser:  make(map[int][]int),
	}
	for _, opt := range opts {
		opt(e)
	}

	seenItems := make(map[int]struct{})
	for _, r := range observations {
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			return nil, core.Errorf(core.ModuleRating, core.ErrorCodeDataIntegrity,
				"rating: user %d item %d has non-finite rating", r.UserID, r.ItemID)
		}
		if e.bounded && (r.Value < e.minValue || r.Value > e.maxValue) {
			return nil, core.Errorf(core.ModuleRating, core.ErrorCodeDataIntegrity,
				"rating: user %d item %d rating %v outside [%v, %v]", r.UserID, r.ItemID, r.Value, e.minValue, e.maxValue)
		}

		idx := len(e.ratings)
		e.ratings = append(e.ratings, r)
		if _, ok := e.byUser[r.UserID]; !ok {
			e.users = append(e.users, r.UserID)
		}
		e.byUser[r.UserID] = append(e.byUser[r.UserID], idx)
		if _, ok := seenItems[r.ItemID]; !ok {
			seenItems[r.ItemID] = struct{}{}
			e.items = append(e.items, r.ItemID)
		}
	}
	return e, nil
}

// Len 返回观测总数。
func (e *Evidence) Len() int { return len(e.ratings) }

// UserIDs 返回出现过的用户 ID（去重，首次出现顺序）。
func (e *Evidence) UserIDs() []int { return append([]int(nil), e.users...) }

// ItemIDs 返回出现过的物品 ID（去重，首次出现顺序）。
func (e *Evidence) ItemIDs() []int { return append([]int(nil), e.items...) }

// RatingsFor 返回某用户的全部观测；用户没有观测时返回空切片而不是错误。
func (e *Evidence) RatingsFor(userID int) []core.Rating {
	idxs := e.byUser[userID]
	out := make([]core.Rating, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, e.ratings[i])
	}
	return out
}
