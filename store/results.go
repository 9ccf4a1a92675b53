package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/rushteam/cinerec/core"
)

// DefaultResultsPrefix 是 Results 的默认 key 前缀。
const DefaultResultsPrefix = "cinerec:recs"

// Results 按用户存取推荐列表，value 为 JSON 编码的 []core.Recommendation，
// key 为 {Prefix}:{UserID}。
type Results struct {
	Store  core.Store
	Prefix string
}

// NewResults 创建 Results；prefix 为空时使用 DefaultResultsPrefix。
func NewResults(s core.Store, prefix string) *Results {
	if prefix == "" {
		prefix = DefaultResultsPrefix
	}
	return &Results{Store: s, Prefix: prefix}
}

// Key 返回用户对应的 key。
func (r *Results) Key(userID int) string {
	return r.Prefix + ":" + strconv.Itoa(userID)
}

// Put 写入单个用户的推荐列表。
func (r *Results) Put(ctx context.Context, userID int, recs []core.Recommendation, ttl ...int) error {
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("store: encode recommendations for user %d: %w", userID, err)
	}
	return r.Store.Set(ctx, r.Key(userID), data, ttl...)
}

// PutAll 批量写入，通常接在 engine.RecommendAll 之后。
func (r *Results) PutAll(ctx context.Context, recsByUser map[int][]core.Recommendation, ttl ...int) error {
	kvs := make(map[string][]byte, len(recsByUser))
	for userID, recs := range recsByUser {
		data, err := json.Marshal(recs)
		if err != nil {
			return fmt.Errorf("store: encode recommendations for user %d: %w", userID, err)
		}
		kvs[r.Key(userID)] = data
	}
	return r.Store.BatchSet(ctx, kvs, ttl...)
}

// Get 读取单个用户的推荐列表；不存在时返回 core.ErrStoreNotFound。
func (r *Results) Get(ctx context.Context, userID int) ([]core.Recommendation, error) {
	data, err := r.Store.Get(ctx, r.Key(userID))
	if err != nil {
		return nil, err
	}
	var recs []core.Recommendation
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, core.Errorf(core.ModuleStore, core.ErrorCodeDataIntegrity, "store: decode recommendations for user %d: %v", userID, err)
	}
	return recs, nil
}

// GetAll 批量读取，不存在的用户不出现在结果中。
func (r *Results) GetAll(ctx context.Context, userIDs []int) (map[int][]core.Recommendation, error) {
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = r.Key(id)
	}
	raw, err := r.Store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make(map[int][]core.Recommendation, len(raw))
	for i, id := range userIDs {
		data, ok := raw[keys[i]]
		if !ok {
			continue
		}
		var recs []core.Recommendation
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, core.Errorf(core.ModuleStore, core.ErrorCodeDataIntegrity, "store: decode recommendations for user %d: %v", id, err)
		}
		out[id] = recs
	}
	return out, nil
}
