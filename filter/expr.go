package filter

import (
	"context"

	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式过滤，例如：
//
//	item.score < 0.5                        // 过滤低分
//	label.genre == "Horror"                 // 过滤某个类型
//	rctx.scene == "kids" && label.genre != "Children"
//
// 默认表达式为 true 时过滤；Keep 为 true 时表达式为 true 的物品保留，其余过滤。
type ExprFilter struct {
	program *dsl.Program
	keep    bool
}

// NewExprFilter 编译表达式，语法错误返回 INVALID_INPUT。
func NewExprFilter(expr string, keep bool) (*ExprFilter, error) {
	p, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{program: p, keep: keep}, nil
}

func (f *ExprFilter) Name() string { return "filter.expr" }

// Expr 返回原始表达式。
func (f *ExprFilter) Expr() string { return f.program.String() }

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	ok, err := f.program.Eval(item, rctx)
	if err != nil {
		return false, err
	}
	return ok != f.keep, nil
}
