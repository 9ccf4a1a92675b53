package filter

import (
	"context"

	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/user"
)

// SeenFilter 过滤掉用户已经评分过的物品。
type SeenFilter struct {
	Users *user.Catalog
}

func (f *SeenFilter) Name() string { return "filter.seen" }

func (f *SeenFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil {
		return false, nil
	}
	p, err := f.Users.Profile(rctx.UserID)
	if err != nil {
		return false, err
	}
	return p.HasSeen(item.ID), nil
}
