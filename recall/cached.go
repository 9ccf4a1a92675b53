package recall

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/pkg/utils"
)

// DefaultCachePrefix 是 Cached 的默认 key 前缀。
const DefaultCachePrefix = "cinerec:recall"

// Cached 把一个召回源的结果按用户缓存到 core.Store，key 为 {KeyPrefix}:{Source.Name()}:{UserID}。
// 缓存命中时不调用 Source；Store 读写失败时退化为直接召回。
//
// 缓存后的 Meta 经过 JSON 往返，数值统一为 float64。
type Cached struct {
	Source    Source
	Store     core.Store
	KeyPrefix string
	TTL       int // 秒，0 表示不过期
	Logger    zerolog.Logger
}

type cachedItem struct {
	ID     int                    `json:"id"`
	Score  float64                `json:"score"`
	Meta   map[string]any         `json:"meta,omitempty"`
	Labels map[string]utils.Label `json:"labels,omitempty"`
}

// Name 与被缓存的召回源一致，便于 Fanout 记录召回来源。
func (c *Cached) Name() string { return c.Source.Name() }

// Key 返回用户对应的缓存 key。
func (c *Cached) Key(userID int) string {
	prefix := c.KeyPrefix
	if prefix == "" {
		prefix = DefaultCachePrefix
	}
	return fmt.Sprintf("%s:%s:%d", prefix, c.Source.Name(), userID)
}

func (c *Cached) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if err := requireUser(c.Name(), rctx); err != nil {
		return nil, err
	}
	key := c.Key(rctx.UserID)

	data, err := c.Store.Get(ctx, key)
	switch {
	case err == nil:
		items, decErr := decodeItems(data)
		if decErr == nil {
			c.Logger.Debug().Str("key", key).Int("count", len(items)).Msg("recall cache hit")
			return items, nil
		}
		c.Logger.Warn().Err(decErr).Str("key", key).Msg("recall cache entry corrupt")
	case !core.IsStoreNotFound(err):
		c.Logger.Warn().Err(err).Str("store", c.Store.Name()).Str("key", key).Msg("recall cache read failed")
	}

	items, err := c.Source.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	if data, err := encodeItems(items); err == nil {
		if err := c.Store.Set(ctx, key, data, c.TTL); err != nil {
			c.Logger.Warn().Err(err).Str("store", c.Store.Name()).Str("key", key).Msg("recall cache write failed")
		}
	}
	return items, nil
}

// Invalidate 删除用户的缓存，评分数据变化后调用。
func (c *Cached) Invalidate(ctx context.Context, userID int) error {
	return c.Store.Delete(ctx, c.Key(userID))
}

func encodeItems(items []*core.Item) ([]byte, error) {
	out := make([]cachedItem, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		out = append(out, cachedItem{ID: it.ID, Score: it.Score, Meta: it.Meta, Labels: it.Labels})
	}
	return json.Marshal(out)
}

func decodeItems(data []byte) ([]*core.Item, error) {
	var raw []cachedItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	items := make([]*core.Item, 0, len(raw))
	for _, r := range raw {
		it := core.NewItem(r.ID)
		it.Score = r.Score
		for k, v := range r.Meta {
			it.Meta[k] = v
		}
		for k, v := range r.Labels {
			it.Labels[k] = v
		}
		items = append(items, it)
	}
	return items, nil
}
