package filter

import (
	"context"

	"github.com/rushteam/cinerec/core"
)

// DefaultUserBlockPrefix 是用户拉黑列表的默认 key 前缀。
const DefaultUserBlockPrefix = "user:block"

// UserBlockFilter 是用户拉黑过滤器，过滤掉用户主动屏蔽的电影。
type UserBlockFilter struct {
	Store *StoreAdapter

	// KeyPrefix 是 Store 中的 key 前缀，实际 key 为 {KeyPrefix}:{UserID}
	KeyPrefix string
}

// NewUserBlockFilter 创建一个用户拉黑过滤器。
func NewUserBlockFilter(store *StoreAdapter, keyPrefix string) *UserBlockFilter {
	if keyPrefix == "" {
		keyPrefix = DefaultUserBlockPrefix
	}
	return &UserBlockFilter{Store: store, KeyPrefix: keyPrefix}
}

func (f *UserBlockFilter) Name() string { return "filter.user_block" }

func (f *UserBlockFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil || f.Store == nil {
		return false, nil
	}

	blocked, err := f.Store.GetIDs(ctx, UserKey(f.KeyPrefix, rctx.UserID))
	if err != nil {
		return false, err
	}
	for _, id := range blocked {
		if item.ID == id {
			return true, nil
		}
	}
	return false, nil
}
