// Package recall 提供召回源：基于内容、基于相似用户的协同候选池，
// 以及并发融合多个召回源的 Fanout 和带缓存的 Cached。
package recall

import (
	"context"

	"github.com/rushteam/cinerec/catalog"
	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/pkg/utils"
)

// Source 表示一个可复用的召回源，可被 Fanout 并发执行。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

func requireUser(name string, rctx *core.RecommendContext) error {
	if rctx == nil {
		return core.Errorf(core.ModulePipeline, core.ErrorCodeInvalidInput, "%s: missing recommend context", name)
	}
	return nil
}

// decorate 用电影目录补充名称、年份与主类型 Label；目录外的物品保持原样。
func decorate(items *catalog.Catalog, it *core.Item) {
	m, err := items.Movie(it.ID)
	if err != nil {
		return
	}
	it.Meta["name"] = m.Name
	it.Meta["year"] = m.Year
	if g := items.DominantGenre(it.ID); g != "" {
		it.PutLabel(utils.LabelGenre, utils.Label{Value: g, Source: "catalog"})
	}
}
