package recall

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/pipeline"
	"github.com/rushteam/cinerec/pkg/utils"
)

// MergeStrategy 决定同一物品被多个召回源召回时如何合并。
type MergeStrategy string

const (
	MergeFirst    MergeStrategy = "first"     // 保留 Sources 顺序中第一个出现的（默认）
	MergeMaxScore MergeStrategy = "max_score" // 保留分数最高的，分数相同时保留靠前的
	MergeUnion    MergeStrategy = "union"     // 不去重
)

// Fanout 是一个 Recall Node：并发执行多个召回源，并合并结果。
// 合并结果按 Sources 顺序拼接，与各召回源的完成顺序无关。
// 单个召回源出错或超时只记录日志，不中断其他召回源；超过 Timeout 的召回源不再等待。
type Fanout struct {
	Sources       []Source
	Dedup         bool
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	MergeStrategy MergeStrategy
	Logger        zerolog.Logger
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	results := make([][]*core.Item, len(n.Sources))
	var eg errgroup.Group
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		i, src := i, src
		eg.Go(func() error {
			recallCtx := ctx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(ctx, n.Timeout)
				defer cancel()
			}

			items, err := recallWithin(recallCtx, src, rctx)
			if err != nil {
				n.Logger.Warn().Err(err).Str("source", src.Name()).Msg("recall source failed")
				return nil
			}

			// 记录召回来源 label，方便 explain / 观测
			for _, it := range items {
				it.PutLabel(utils.LabelRecallSource, utils.Label{Value: src.Name(), Source: "recall"})
				it.PutLabel(utils.LabelRecallRank, utils.Label{Value: strconv.Itoa(i), Source: "recall"})
			}
			results[i] = items
			return nil
		})
	}
	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []*core.Item
	for _, items := range results {
		all = append(all, items...)
	}

	switch n.MergeStrategy {
	case MergeUnion:
		return all, nil
	case MergeMaxScore:
		return n.mergeMaxScore(all), nil
	default:
		return n.mergeFirst(all), nil
	}
}

type recallResult struct {
	items []*core.Item
	err   error
}

// recallWithin 在 ctx 结束时立即返回 ctx.Err()，不等待不响应 ctx 的召回源；
// 迟到的结果被丢弃。
func recallWithin(ctx context.Context, src Source, rctx *core.RecommendContext) ([]*core.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done := make(chan recallResult, 1)
	go func() {
		items, err := src.Recall(ctx, rctx)
		done <- recallResult{items: items, err: err}
	}()
	select {
	case res := <-done:
		if res.err == nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return res.items, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// mergeFirst 按 ID 去重，保留第一个出现的，后出现的 Label 合并进来。
func (n *Fanout) mergeFirst(all []*core.Item) []*core.Item {
	if !n.Dedup {
		return all
	}
	seen := make(map[int]*core.Item, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		if old, ok := seen[it.ID]; ok {
			mergeLabels(old, it)
			continue
		}
		seen[it.ID] = it
		out = append(out, it)
	}
	return out
}

// mergeMaxScore 按 ID 去重，保留分数最高的；输出位置为该 ID 首次出现的位置。
func (n *Fanout) mergeMaxScore(all []*core.Item) []*core.Item {
	if !n.Dedup {
		return all
	}
	pos := make(map[int]int, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		i, ok := pos[it.ID]
		if !ok {
			pos[it.ID] = len(out)
			out = append(out, it)
			continue
		}
		if it.Score > out[i].Score {
			mergeLabels(it, out[i])
			out[i] = it
		} else {
			mergeLabels(out[i], it)
		}
	}
	return out
}

func mergeLabels(dst, src *core.Item) {
	for k, v := range src.Labels {
		dst.PutLabel(k, v)
	}
}
