package core

// Movie 是电影目录中的一行：稠密整数 ID、展示名、年份与类型特征向量。
//
// Features 的每一维对应一个类型（genre），取值非负；同一目录内所有行的维度一致。
// Filled 标记该行是构建目录时为补齐 ID 空洞而填充的默认行（名称为空、年份为 0、特征全 0）。
type Movie struct {
	ID       int
	Name     string
	Year     int
	Features []float64
	Filled   bool
}

// Recommendation 是基于内容推荐的输出记录：物品 ID、名称与相似度分数。
type Recommendation struct {
	ItemID int     `json:"item_id"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
}

// ToItem 将推荐记录转换为 Pipeline 中流转的 Item。
func (r Recommendation) ToItem() *Item {
	it := NewItem(r.ItemID)
	it.Score = r.Score
	it.Meta["name"] = r.Name
	return it
}
