package engine

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/user"
)

// Config 是推荐引擎的配置（支持 YAML/JSON/环境变量）。
type Config struct {
	// TopN 每个用户内容推荐的返回数量
	TopN int `yaml:"top_n" json:"top_n" koanf:"top_n"`

	// SeedCount 内容推荐使用的最高评分种子数量
	SeedCount int `yaml:"seed_count" json:"seed_count" koanf:"seed_count"`

	// SimilarPerSeed 每个种子取多少个相似物品
	SimilarPerSeed int `yaml:"similar_per_seed" json:"similar_per_seed" koanf:"similar_per_seed"`

	// SimilarUserCount 协同候选池与打分使用的相似用户数量
	SimilarUserCount int `yaml:"similar_user_count" json:"similar_user_count" koanf:"similar_user_count"`

	// PerUserTop 每个相似用户取多少个最高评分物品
	PerUserTop int `yaml:"per_user_top" json:"per_user_top" koanf:"per_user_top"`

	// PoolSize 协同候选池大小
	PoolSize int `yaml:"pool_size" json:"pool_size" koanf:"pool_size"`

	// Workers RecommendAll / Evaluate 的并发度（1 表示串行）
	Workers int `yaml:"workers" json:"workers" koanf:"workers"`

	// Alignment 编码评分表的对齐策略：intersection / union
	Alignment user.Alignment `yaml:"alignment" json:"alignment" koanf:"alignment"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{
		TopN:             5,
		SeedCount:        3,
		SimilarPerSeed:   10,
		SimilarUserCount: 5,
		PerUserTop:       5,
		PoolSize:         5,
		Workers:          4,
		Alignment:        user.AlignIntersection,
	}
}

// Validate 校验配置，所有数量必须为正数。
func (c Config) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"top_n", c.TopN},
		{"seed_count", c.SeedCount},
		{"similar_per_seed", c.SimilarPerSeed},
		{"similar_user_count", c.SimilarUserCount},
		{"per_user_top", c.PerUserTop},
		{"pool_size", c.PoolSize},
		{"workers", c.Workers},
	}
	for _, f := range fields {
		if f.value <= 0 {
			return core.Errorf(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: %s must be positive, got %d", f.name, f.value)
		}
	}
	if !c.Alignment.Valid() {
		return core.Errorf(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: unknown alignment %q", c.Alignment)
	}
	return nil
}

func (c Config) recommendOptions() user.RecommendOptions {
	return user.RecommendOptions{
		TopN:           c.TopN,
		SeedCount:      c.SeedCount,
		SimilarPerSeed: c.SimilarPerSeed,
	}
}

// EnvPrefix 是覆盖引擎配置的环境变量前缀，例如 CINEREC_TOP_N=10。
const EnvPrefix = "CINEREC_"

// LoadConfig 按 默认值 < YAML 文件 < 环境变量 的优先级加载配置并校验。
// path 为空时只使用默认值与环境变量。
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// envKey: CINEREC_POOL_SIZE -> pool_size
func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}
