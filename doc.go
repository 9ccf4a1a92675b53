// Package cinerec 是一个电影推荐工具包。
//
// 设计要点：
//   - 内容相似：电影类型特征矩阵 F，相似度 S = F·Fᵀ（catalog）
//   - 行为相似：编码评分表 E，用户相似度 U = Eᵀ·E（user）
//   - 推荐与评估：内容推荐、协同候选池、基于相似用户证据的打分（engine）
//   - Pipeline-first: 召回 → 过滤 → 重排通过 Node 串联，Labels 全链路透传
package cinerec

import "github.com/rushteam/cinerec/pipeline"

// 轻量 facade：便于直接 import "github.com/rushteam/cinerec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindReRank = pipeline.KindReRank
)
