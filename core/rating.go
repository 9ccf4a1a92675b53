package core

// Rating 是一条原始评分观测：(用户, 物品, 评分)。
// 同一 (UserID, ItemID) 至多一条由调用方保证，这里不做校验。
type Rating struct {
	UserID int     `json:"user_id"`
	ItemID int     `json:"item_id"`
	Value  float64 `json:"rating"`
}

// Neighbor 是相似用户查询的结果：用户 ID 与相似度分数。
type Neighbor struct {
	UserID int     `json:"user_id"`
	Score  float64 `json:"score"`
}

// Demographic 是一行人口属性数据。核心逻辑只消费 UserID，Attributes 原样透传。
type Demographic struct {
	UserID     int
	Attributes map[string]any
}
