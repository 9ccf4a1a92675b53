// Package builders 在 init 中注册无运行时依赖的内置 Node：
// rerank.sort、rerank.diversity、rerank.topn、filter.expr。
package builders

import (
	"github.com/rushteam/cinerec/config"
	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/filter"
	"github.com/rushteam/cinerec/pipeline"
	"github.com/rushteam/cinerec/pkg/conv"
	"github.com/rushteam/cinerec/pkg/utils"
	"github.com/rushteam/cinerec/rerank"
)

func init() {
	config.Register("rerank.sort", BuildScoreSortNode)
	config.Register("rerank.diversity", BuildDiversityNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("filter.expr", BuildExprFilterNode)
}

func BuildScoreSortNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.ScoreSort{Ascending: conv.ConfigGet(cfg, "ascending", false)}, nil
}

func BuildDiversityNode(cfg map[string]any) (pipeline.Node, error) {
	labelKey := conv.ConfigGet(cfg, "label_key", utils.LabelGenre)
	if labelKey == "" {
		labelKey = utils.LabelGenre
	}
	return &rerank.Diversity{
		LabelKey:       labelKey,
		MaxPerCategory: conv.ConfigGetInt(cfg, "max_per_category", 1),
	}, nil
}

func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	n := conv.ConfigGetInt(cfg, "n", 0)
	if n <= 0 {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput, "rerank.topn: n must be positive")
	}
	return &rerank.TopNNode{N: n}, nil
}

func BuildExprFilterNode(cfg map[string]any) (pipeline.Node, error) {
	f, err := filter.NewExprFilter(conv.ConfigGet(cfg, "expr", ""), conv.ConfigGet(cfg, "keep", false))
	if err != nil {
		return nil, err
	}
	return &filter.FilterNode{Filters: []filter.Filter{f}}, nil
}
