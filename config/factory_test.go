package config_test

import (
	"context"
	"testing"

	"github.com/rushteam/cinerec/catalog"
	"github.com/rushteam/cinerec/config"
	_ "github.com/rushteam/cinerec/config/builders"
	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/engine"
	"github.com/rushteam/cinerec/pipeline"
	"github.com/rushteam/cinerec/rating"
	"github.com/rushteam/cinerec/store"
	"github.com/rushteam/cinerec/user"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	items, err := catalog.New([]core.Movie{
		{ID: 0, Name: "Toy Story", Year: 1995, Features: []float64{1, 1, 0}},
		{ID: 1, Name: "Heat", Year: 1995, Features: []float64{0, 0, 1}},
		{ID: 2, Name: "Jumanji", Year: 1995, Features: []float64{1, 0, 0}},
		{ID: 3, Name: "Casino", Year: 1995, Features: []float64{0, 1, 1}},
		{ID: 6, Name: "Sabrina", Year: 1995, Features: []float64{0, 1, 0}},
	}, catalog.WithGenres("Children", "Comedy", "Crime"))
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	evidence, err := rating.NewEvidence([]core.Rating{
		{UserID: 1, ItemID: 0, Value: 5},
		{UserID: 2, ItemID: 0, Value: 5},
		{UserID: 2, ItemID: 6, Value: 4},
		{UserID: 2, ItemID: 3, Value: 5},
		{UserID: 3, ItemID: 0, Value: 1},
		{UserID: 3, ItemID: 3, Value: 2},
		{UserID: 3, ItemID: 1, Value: 3},
		{UserID: 3, ItemID: 2, Value: 1},
	})
	if err != nil {
		t.Fatalf("rating.NewEvidence() error = %v", err)
	}
	users, err := user.NewCatalog([]int{1, 2, 3}, nil, evidence)
	if err != nil {
		t.Fatalf("user.NewCatalog() error = %v", err)
	}
	cfg := engine.DefaultConfig()
	cfg.PoolSize = 3
	e, err := engine.New(items, users, cfg)
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	return e
}

const fusionYAML = `
pipeline:
  name: fusion
  nodes:
    - type: recall.fanout
      config:
        merge_strategy: max_score
        max_concurrent: 2
        timeout_ms: 1000
        sources:
          - type: content
          - type: collaborative
            cache_ttl: 60
    - type: filter
      config:
        filters:
          - type: seen
          - type: expr
            expr: item.score < 0.5
    - type: rerank.sort
    - type: rerank.diversity
    - type: rerank.topn
      config:
        n: 4
`

func TestFactory_FusionPipeline(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()

	cfg, err := pipeline.ParseYAML([]byte(fusionYAML))
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	f := config.NewFactory(config.Env{Engine: newEngine(t), Store: s})
	p, err := f.BuildPipeline(cfg)
	if err != nil {
		t.Fatalf("BuildPipeline() error = %v", err)
	}

	// 内容：2 3 6 1 4（分数 1 1 1 0 0）；协同：0 1 2（分数 5 3 1）
	// 合并取最高分 -> 去掉已看的 0 和低分的 4 -> 排序 1 2 3 6 -> 类型去重丢掉 6
	for run := 0; run < 2; run++ {
		items, err := p.Run(context.Background(), &core.RecommendContext{UserID: 1}, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		recs := pipeline.Recommendations(items)
		wantIDs := []int{1, 2, 3}
		wantScores := []float64{3, 1, 1}
		if len(recs) != len(wantIDs) {
			t.Fatalf("run %d: Run() = %+v, want ids %v", run, recs, wantIDs)
		}
		for i := range wantIDs {
			if recs[i].ItemID != wantIDs[i] || recs[i].Score != wantScores[i] {
				t.Fatalf("run %d: Run() = %+v, want ids %v scores %v", run, recs, wantIDs, wantScores)
			}
		}
	}
	if s.Len() != 1 {
		t.Errorf("cached entries = %d, want 1", s.Len())
	}
}

func TestFactory_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     config.Env
		yaml    string
		checkFn func(error) bool
	}{
		{
			name:    "unknown node",
			env:     config.Env{Engine: newEngine(t)},
			yaml:    "pipeline:\n  nodes:\n    - type: rank.lr\n",
			checkFn: core.IsNotSupported,
		},
		{
			name:    "missing engine",
			yaml:    "pipeline:\n  nodes:\n    - type: recall.content\n",
			checkFn: core.IsInvalidInput,
		},
		{
			name:    "bad merge strategy",
			env:     config.Env{Engine: newEngine(t)},
			yaml:    "pipeline:\n  nodes:\n    - type: recall.fanout\n      config:\n        merge_strategy: random\n        sources:\n          - type: content\n",
			checkFn: core.IsInvalidInput,
		},
		{
			name:    "bad expr",
			yaml:    "pipeline:\n  nodes:\n    - type: filter.expr\n      config:\n        expr: 'item.score >'\n",
			checkFn: core.IsInvalidInput,
		},
		{
			name:    "topn without n",
			yaml:    "pipeline:\n  nodes:\n    - type: rerank.topn\n",
			checkFn: core.IsInvalidInput,
		},
		{
			name:    "unknown filter",
			yaml:    "pipeline:\n  nodes:\n    - type: filter\n      config:\n        filters:\n          - type: exposed\n",
			checkFn: core.IsNotSupported,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := pipeline.ParseYAML([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("ParseYAML() error = %v", err)
			}
			_, err = config.NewFactory(tt.env).BuildPipeline(cfg)
			if !tt.checkFn(err) {
				t.Errorf("BuildPipeline() error = %v", err)
			}
		})
	}
}

func TestSupportedTypes(t *testing.T) {
	global := config.SupportedTypes()
	for _, want := range []string{"filter.expr", "rerank.diversity", "rerank.sort", "rerank.topn"} {
		if !contains(global, want) {
			t.Errorf("SupportedTypes() = %v, missing %s", global, want)
		}
	}
	local := config.NewFactory(config.Env{}).SupportedTypes()
	for _, want := range []string{"filter", "filter.seen", "recall.collaborative", "recall.content", "recall.fanout", "rerank.topn"} {
		if !contains(local, want) {
			t.Errorf("Factory.SupportedTypes() = %v, missing %s", local, want)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
