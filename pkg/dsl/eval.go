// Package dsl 提供基于 CEL (Common Expression Language) 的 Label 表达式，
// 供 filter.ExprFilter 等节点按物品分数、元数据与 Label 判定。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/cinerec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译好的布尔表达式，可在多个 goroutine 中复用。
//
// 可用变量：
//   - item.id / item.score / item.meta.name / item.labels
//   - label.<key>：Label 的 Value，如 label.genre == "Comedy"
//   - rctx.user_id / rctx.scene / rctx.params
//
// 存在性判断用 has(label.genre)；直接访问不存在的 key 会返回错误。
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式。结果类型必须是 bool。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("dsl: create CEL env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, core.Errorf(core.ModulePipeline, core.ErrorCodeInvalidInput, "dsl: compile %q: %v", expr, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, core.Errorf(core.ModulePipeline, core.ErrorCodeInvalidInput, "dsl: %q must evaluate to bool, got %v", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("dsl: program %q: %w", expr, err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Eval 对单个物品求值。
func (p *Program) Eval(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("dsl: eval %q: %w", p.expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("dsl: %q returned %T, want bool", p.expr, out.Value())
	}
	return b, nil
}

func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	itemMap := map[string]any{}
	labelMap := map[string]any{}
	if item != nil {
		labels := make(map[string]any, len(item.Labels))
		for k, v := range item.Labels {
			labels[k] = map[string]any{"value": v.Value, "source": v.Source}
			labelMap[k] = v.Value
		}
		meta := item.Meta
		if meta == nil {
			meta = map[string]any{}
		}
		itemMap = map[string]any{
			"id":     item.ID,
			"score":  item.Score,
			"meta":   meta,
			"labels": labels,
		}
	}

	rctxMap := map[string]any{}
	if rctx != nil {
		params := rctx.Params
		if params == nil {
			params = map[string]any{}
		}
		rctxMap = map[string]any{
			"user_id": rctx.UserID,
			"scene":   rctx.Scene,
			"params":  params,
		}
	}

	return map[string]any{
		"item":  itemMap,
		"label": labelMap,
		"rctx":  rctxMap,
	}
}
