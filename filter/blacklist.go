package filter

import (
	"context"

	"github.com/rushteam/cinerec/core"
)

// BlacklistFilter 是黑名单过滤器，过滤掉全局下架的物品。
// 内存列表与 Store 中的列表取并集。
type BlacklistFilter struct {
	ids map[int]struct{}

	// Store 用于从存储中读取黑名单（可选）
	Store *StoreAdapter

	// Key 是 Store 中的黑名单 key
	Key string
}

// NewBlacklistFilter 创建一个黑名单过滤器。store 可为 nil。
func NewBlacklistFilter(itemIDs []int, store *StoreAdapter, key string) *BlacklistFilter {
	ids := make(map[int]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		ids[id] = struct{}{}
	}
	return &BlacklistFilter{ids: ids, Store: store, Key: key}
}

func (f *BlacklistFilter) Name() string { return "filter.blacklist" }

func (f *BlacklistFilter) ShouldFilter(
	ctx context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if _, ok := f.ids[item.ID]; ok {
		return true, nil
	}
	if f.Store == nil || f.Key == "" {
		return false, nil
	}

	blacklist, err := f.Store.GetIDs(ctx, f.Key)
	if err != nil {
		return false, err
	}
	for _, id := range blacklist {
		if item.ID == id {
			return true, nil
		}
	}
	return false, nil
}
