package user

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/cinerec/core"
)

// SimilarityMatrix 是用户×用户相似度矩阵，行列按 userIDs（升序）排列。
type SimilarityMatrix struct {
	userIDs []int
	index   map[int]int
	m       *mat.Dense
}

func newSimilarityMatrix(userIDs []int, m *mat.Dense) *SimilarityMatrix {
	index := make(map[int]int, len(userIDs))
	for i, id := range userIDs {
		index[id] = i
	}
	return &SimilarityMatrix{userIDs: userIDs, index: index, m: m}
}

// Len 返回用户数。
func (s *SimilarityMatrix) Len() int { return len(s.userIDs) }

// UserIDs 返回行/列对应的用户 ID。
func (s *SimilarityMatrix) UserIDs() []int { return append([]int(nil), s.userIDs...) }

// Matrix 返回底层矩阵（只读）。
func (s *SimilarityMatrix) Matrix() mat.Matrix { return s.m }

// Row 返回 userID 所在行下标。
func (s *SimilarityMatrix) Row(userID int) (int, bool) {
	i, ok := s.index[userID]
	return i, ok
}

// At 返回两个用户之间的相似度。
func (s *SimilarityMatrix) At(u, v int) (float64, error) {
	i, ok := s.index[u]
	if !ok {
		return 0, notInMatrix(u)
	}
	j, ok := s.index[v]
	if !ok {
		return 0, notInMatrix(v)
	}
	return s.m.At(i, j), nil
}

// MostSimilar 返回与 userID 最相似的 topK 个其他用户，按相似度降序。
// 分数相同的用户保持矩阵顺序（用户 ID 升序）。
func (s *SimilarityMatrix) MostSimilar(userID, topK int) ([]core.Neighbor, error) {
	row, ok := s.index[userID]
	if !ok {
		return nil, notInMatrix(userID)
	}
	if topK <= 0 {
		return []core.Neighbor{}, nil
	}

	out := make([]core.Neighbor, 0, len(s.userIDs)-1)
	for j, other := range s.userIDs {
		if j == row {
			continue
		}
		out = append(out, core.Neighbor{UserID: other, Score: s.m.At(row, j)})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score > out[b].Score
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func notInMatrix(userID int) error {
	return core.Errorf(core.ModuleUser, core.ErrorCodeNotFound, "user: user %d not in similarity matrix", userID)
}
