package rerank

import (
	"context"

	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，通常放在 ScoreSort / Diversity 之后，限制返回数量。
//
//	p := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        fanout,
//	        &rerank.ScoreSort{},
//	        &rerank.Diversity{},
//	        &rerank.TopNNode{N: 10},
//	    },
//	}
type TopNNode struct {
	// N <= 0 时不截断
	N int
}

func (n *TopNNode) Name() string        { return "rerank.topn" }
func (n *TopNNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 || len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
