package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/pipeline"
)

// 使用配置驱动时，需在入口处 import _ "github.com/rushteam/cinerec/config/builders"
// 以触发无运行时依赖的 Node（rerank.sort、rerank.diversity、rerank.topn、filter.expr）的 init 注册。
// 依赖引擎与存储的 Node 由 NewFactory(Env) 注册。

// NodeBuilder 与 pipeline.NodeBuilder 一致：根据 config 构建 Node。
type NodeBuilder = pipeline.NodeBuilder

var (
	defaultBuilders   = make(map[string]NodeBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑，NewFactory 创建的工厂都会包含它。
// 建议在各组件的 init 中调用，例如：func init() { config.Register("rerank.topn", BuildTopNNode) }
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回当前已注册的 Node 类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	return sortedKeys(defaultBuilders)
}

// ValidatePipelineConfig 校验 pipeline 配置中所有 node 类型均在 supported 中；
// supported 为空时使用全局注册表。
func ValidatePipelineConfig(cfg *pipeline.Config, supported ...string) error {
	if cfg == nil {
		return nil
	}
	if len(supported) == 0 {
		supported = SupportedTypes()
	}
	known := make(map[string]struct{}, len(supported))
	for _, t := range supported {
		known[t] = struct{}{}
	}
	for i, nc := range cfg.Pipeline.Nodes {
		if nc.Type == "" {
			return core.Errorf(core.ModulePipeline, core.ErrorCodeInvalidInput, "node #%d: missing type", i)
		}
		if _, ok := known[nc.Type]; !ok {
			return core.NewDomainError(core.ModulePipeline, core.ErrorCodeNotSupported,
				fmt.Sprintf("unsupported node type %q (supported: %v)", nc.Type, supported))
		}
	}
	return nil
}

func sortedKeys(m map[string]NodeBuilder) []string {
	types := make([]string, 0, len(m))
	for t := range m {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
