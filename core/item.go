package core

import "github.com/rushteam/cinerec/pkg/utils"

// Item 是推荐链路中的统一承载结构：分数、元信息、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
type Item struct {
	ID     int
	Score  float64
	Meta   map[string]any
	Labels map[string]utils.Label
}

func NewItem(id int) *Item {
	return &Item{
		ID:     id,
		Score:  0,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Name 返回 Meta 中的展示名（若有）。
func (it *Item) Name() string {
	if it.Meta == nil {
		return ""
	}
	s, _ := it.Meta["name"].(string)
	return s
}
