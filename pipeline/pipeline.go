package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/cinerec/core"
)

// Pipeline 把推荐逻辑拆成可组合的 Node 链：召回 -> 过滤 -> 重排。
// Logger 为零值时不输出日志。
type Pipeline struct {
	Name   string
	Nodes  []Node
	Logger zerolog.Logger
}

// Run 依次执行每个 Node，前一个 Node 的输出作为下一个 Node 的输入。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: node %s: %w", p.Name, node.Name(), err)
		}
		p.Logger.Debug().
			Str("node", node.Name()).
			Str("kind", string(node.Kind())).
			Int("in", len(cur)).
			Int("out", len(next)).
			Dur("took", time.Since(start)).
			Msg("node processed")
		cur = next
	}
	return cur, nil
}

// Recommendations 把 Pipeline 输出转为推荐列表。
func Recommendations(items []*core.Item) []core.Recommendation {
	out := make([]core.Recommendation, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		out = append(out, core.Recommendation{ItemID: it.ID, Name: it.Name(), Score: it.Score})
	}
	return out
}
