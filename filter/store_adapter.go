package filter

import (
	"context"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/rushteam/cinerec/core"
)

// StoreAdapter 将 core.Store 适配为过滤器所需的 ID 列表存储。
// value 为 JSON 编码的 []int。
type StoreAdapter struct {
	store core.Store
}

// NewStoreAdapter 创建一个 core.Store 适配器。
func NewStoreAdapter(s core.Store) *StoreAdapter {
	return &StoreAdapter{store: s}
}

// GetIDs 读取 key 下的物品 ID 列表；key 不存在时返回空列表。
func (a *StoreAdapter) GetIDs(ctx context.Context, key string) ([]int, error) {
	data, err := a.store.Get(ctx, key)
	if core.IsStoreNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, core.Errorf(core.ModuleStore, core.ErrorCodeDataIntegrity, "filter: decode id list %q: %v", key, err)
	}
	return ids, nil
}

// PutIDs 写入物品 ID 列表。
func (a *StoreAdapter) PutIDs(ctx context.Context, key string, ids []int, ttl ...int) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, key, data, ttl...)
}

// UserKey 返回 {keyPrefix}:{userID}。
func UserKey(keyPrefix string, userID int) string {
	return keyPrefix + ":" + strconv.Itoa(userID)
}
