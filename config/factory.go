package config

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/engine"
	"github.com/rushteam/cinerec/filter"
	"github.com/rushteam/cinerec/pipeline"
	"github.com/rushteam/cinerec/pkg/conv"
	"github.com/rushteam/cinerec/recall"
)

// Env 是构建依赖运行时对象的 Node 所需的环境。
type Env struct {
	Engine *engine.Engine
	Store  core.Store // 可选：召回缓存、黑名单、用户拉黑列表
	Logger zerolog.Logger
}

// Factory 是绑定了 Env 的 NodeFactory。
type Factory struct {
	*pipeline.NodeFactory
	env   Env
	types []string
}

// NewFactory 在全局注册表之上注册依赖 Env 的 Node：
// recall.content、recall.collaborative、recall.fanout、filter.seen、filter。
func NewFactory(env Env) *Factory {
	defaultBuildersMu.RLock()
	all := make(map[string]NodeBuilder, len(defaultBuilders)+5)
	for k, v := range defaultBuilders {
		all[k] = v
	}
	defaultBuildersMu.RUnlock()

	f := &Factory{NodeFactory: pipeline.NewNodeFactory(), env: env}
	all["recall.content"] = f.buildSourceNode("content")
	all["recall.collaborative"] = f.buildSourceNode("collaborative")
	all["recall.fanout"] = f.buildFanoutNode
	all["filter.seen"] = f.buildSeenNode
	all["filter"] = f.buildFilterNode

	for typeName, builder := range all {
		f.Register(typeName, builder)
	}
	f.types = sortedKeys(all)
	return f
}

// SupportedTypes 返回该工厂支持的 Node 类型（排序）。
func (f *Factory) SupportedTypes() []string { return append([]string(nil), f.types...) }

// BuildPipeline 校验并构建 Pipeline，Pipeline 使用 Env.Logger。
func (f *Factory) BuildPipeline(cfg *pipeline.Config) (*pipeline.Pipeline, error) {
	if err := ValidatePipelineConfig(cfg, f.types...); err != nil {
		return nil, err
	}
	p, err := cfg.BuildPipeline(f.NodeFactory)
	if err != nil {
		return nil, err
	}
	p.Logger = f.env.Logger
	return p, nil
}

func (f *Factory) requireEngine(nodeType string) error {
	if f.env.Engine == nil {
		return core.Errorf(core.ModulePipeline, core.ErrorCodeInvalidInput, "%s requires an engine", nodeType)
	}
	return nil
}

func (f *Factory) source(kind string, cfg map[string]any) (recall.Source, error) {
	if kind != "content" && kind != "collaborative" {
		return nil, core.Errorf(core.ModulePipeline, core.ErrorCodeNotSupported, "unknown source type: %s", kind)
	}
	if err := f.requireEngine("recall." + kind); err != nil {
		return nil, err
	}
	var src recall.Source = &recall.ContentRecall{Engine: f.env.Engine}
	if kind == "collaborative" {
		src = &recall.CollaborativeRecall{Engine: f.env.Engine}
	}
	if ttl := conv.ConfigGetInt(cfg, "cache_ttl", 0); ttl > 0 && f.env.Store != nil {
		src = &recall.Cached{
			Source:    src,
			Store:     f.env.Store,
			KeyPrefix: conv.ConfigGet(cfg, "cache_prefix", ""),
			TTL:       ttl,
			Logger:    f.env.Logger,
		}
	}
	return src, nil
}

// buildSourceNode 把单个召回源包装成只有一个 Source 的 Fanout。
func (f *Factory) buildSourceNode(kind string) NodeBuilder {
	return func(cfg map[string]any) (pipeline.Node, error) {
		src, err := f.source(kind, cfg)
		if err != nil {
			return nil, err
		}
		return &recall.Fanout{Sources: []recall.Source{src}, Dedup: true, Logger: f.env.Logger}, nil
	}
}

func (f *Factory) buildFanoutNode(cfg map[string]any) (pipeline.Node, error) {
	sourcesConfig, ok := cfg["sources"].([]any)
	if !ok || len(sourcesConfig) == 0 {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput, "recall.fanout: sources not found or invalid")
	}
	sources := make([]recall.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceMap, ok := sc.(map[string]any)
		if !ok {
			continue
		}
		src, err := f.source(conv.ConfigGet(sourceMap, "type", ""), sourceMap)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	fanout := &recall.Fanout{
		Sources:       sources,
		Dedup:         conv.ConfigGet(cfg, "dedup", true),
		MaxConcurrent: conv.ConfigGetInt(cfg, "max_concurrent", 0),
		MergeStrategy: recall.MergeStrategy(conv.ConfigGet(cfg, "merge_strategy", string(recall.MergeFirst))),
		Logger:        f.env.Logger,
	}
	if ms := conv.ConfigGetInt(cfg, "timeout_ms", 0); ms > 0 {
		fanout.Timeout = time.Duration(ms) * time.Millisecond
	}
	switch fanout.MergeStrategy {
	case recall.MergeFirst, recall.MergeMaxScore, recall.MergeUnion:
	default:
		return nil, core.Errorf(core.ModulePipeline, core.ErrorCodeInvalidInput, "recall.fanout: unknown merge_strategy %q", fanout.MergeStrategy)
	}
	return fanout, nil
}

func (f *Factory) buildSeenNode(cfg map[string]any) (pipeline.Node, error) {
	if err := f.requireEngine("filter.seen"); err != nil {
		return nil, err
	}
	return &filter.FilterNode{
		Filters: []filter.Filter{&filter.SeenFilter{Users: f.env.Engine.Users()}},
		Strict:  conv.ConfigGet(cfg, "strict", false),
		Logger:  f.env.Logger,
	}, nil
}

func (f *Factory) buildFilterNode(cfg map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]any)
	if !ok {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput, "filter: filters not found or invalid")
	}

	var adapter *filter.StoreAdapter
	if f.env.Store != nil {
		adapter = filter.NewStoreAdapter(f.env.Store)
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		filterType := conv.ConfigGet(filterMap, "type", "")
		switch filterType {
		case "seen":
			if err := f.requireEngine("filter seen"); err != nil {
				return nil, err
			}
			filters = append(filters, &filter.SeenFilter{Users: f.env.Engine.Users()})
		case "blacklist":
			filters = append(filters, filter.NewBlacklistFilter(
				conv.SliceAnyToInt(filterMap["item_ids"]),
				adapter,
				conv.ConfigGet(filterMap, "key", ""),
			))
		case "user_block":
			filters = append(filters, filter.NewUserBlockFilter(adapter, conv.ConfigGet(filterMap, "key_prefix", "")))
		case "expr":
			ef, err := filter.NewExprFilter(conv.ConfigGet(filterMap, "expr", ""), conv.ConfigGet(filterMap, "keep", false))
			if err != nil {
				return nil, err
			}
			filters = append(filters, ef)
		default:
			return nil, core.Errorf(core.ModulePipeline, core.ErrorCodeNotSupported, "unknown filter type: %s", filterType)
		}
	}

	return &filter.FilterNode{
		Filters: filters,
		Strict:  conv.ConfigGet(cfg, "strict", false),
		Logger:  f.env.Logger,
	}, nil
}
