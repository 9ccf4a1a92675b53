package pipeline

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/cinerec/core"
)

// Config 是 Pipeline 的配置结构（支持 YAML/JSON）。
type Config struct {
	Pipeline struct {
		Name  string       `yaml:"name" json:"name"`
		Nodes []NodeConfig `yaml:"nodes" json:"nodes"`
	} `yaml:"pipeline" json:"pipeline"`
}

// NodeConfig 是单个 Node 的配置。
type NodeConfig struct {
	Type   string         `yaml:"type" json:"type"`     // recall.fanout / filter.seen / rerank.diversity 等
	Config map[string]any `yaml:"config" json:"config"` // Node 特定配置
}

// ParseYAML 解析 YAML 配置。
func ParseYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// ParseJSON 解析 JSON 配置。
func ParseJSON(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &cfg, nil
}

// LoadFromYAML 从 YAML 文件加载 Pipeline 配置。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseYAML(data)
}

// LoadFromJSON 从 JSON 文件加载 Pipeline 配置。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseJSON(data)
}

// BuildPipeline 根据配置构建 Pipeline。factory 由 config 包提供，避免循环依赖。
func (c *Config) BuildPipeline(factory *NodeFactory) (*Pipeline, error) {
	nodes := make([]Node, 0, len(c.Pipeline.Nodes))
	for i, nc := range c.Pipeline.Nodes {
		node, err := factory.Build(nc.Type, nc.Config)
		if err != nil {
			return nil, fmt.Errorf("build node #%d %s: %w", i, nc.Type, err)
		}
		nodes = append(nodes, node)
	}
	return &Pipeline{Name: c.Pipeline.Name, Nodes: nodes}, nil
}

// NodeFactory 用于根据配置构建 Node 实例。
type NodeFactory struct {
	builders map[string]NodeBuilder
}

func NewNodeFactory() *NodeFactory {
	return &NodeFactory{builders: make(map[string]NodeBuilder)}
}

// Register 注册 Node 构建器，同名覆盖。
func (f *NodeFactory) Register(nodeType string, builder NodeBuilder) {
	f.builders[nodeType] = builder
}

// Build 根据类型和配置构建 Node。
func (f *NodeFactory) Build(nodeType string, config map[string]any) (Node, error) {
	builder, ok := f.builders[nodeType]
	if !ok {
		return nil, core.Errorf(core.ModulePipeline, core.ErrorCodeNotSupported, "unknown node type: %s", nodeType)
	}
	return builder(config)
}
