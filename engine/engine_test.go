package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/rushteam/cinerec/catalog"
	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/rating"
	"github.com/rushteam/cinerec/user"
)

type fixture struct {
	items *catalog.Catalog
	users *user.Catalog
}

func newFixture(t *testing.T, obs []core.Rating, userIDs []int) fixture {
	t.Helper()
	items, err := catalog.New([]core.Movie{
		{ID: 0, Name: "Toy Story", Year: 1995, Features: []float64{1, 1, 0}},
		{ID: 1, Name: "Heat", Year: 1995, Features: []float64{0, 0, 1}},
		{ID: 2, Name: "Jumanji", Year: 1995, Features: []float64{1, 0, 0}},
		{ID: 3, Name: "Casino", Year: 1995, Features: []float64{0, 1, 1}},
		{ID: 4, Name: "Babe", Year: 1995, Features: []float64{1, 1, 0}},
		{ID: 6, Name: "Sabrina", Year: 1995, Features: []float64{0, 1, 0}},
	}, catalog.WithGenres("Children", "Comedy", "Crime"))
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	evidence, err := rating.NewEvidence(obs)
	if err != nil {
		t.Fatalf("rating.NewEvidence() error = %v", err)
	}
	users, err := user.NewCatalog(userIDs, nil, evidence)
	if err != nil {
		t.Fatalf("user.NewCatalog() error = %v", err)
	}
	return fixture{items: items, users: users}
}

func newEngine(t *testing.T, f fixture, cfg Config, opts ...Option) *Engine {
	t.Helper()
	e, err := New(f.items, f.users, cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func defaultFixture(t *testing.T) fixture {
	return newFixture(t, []core.Rating{
		{UserID: 1, ItemID: 0, Value: 5},
		{UserID: 1, ItemID: 1, Value: 2},
		{UserID: 2, ItemID: 0, Value: 4},
		{UserID: 2, ItemID: 3, Value: 5},
		{UserID: 2, ItemID: 6, Value: 3},
		{UserID: 3, ItemID: 1, Value: 4},
		{UserID: 3, ItemID: 4, Value: 2},
		{UserID: 4, ItemID: 2, Value: 1},
	}, []int{1, 2, 3, 4, 5})
}

func TestNew_Invalid(t *testing.T) {
	f := defaultFixture(t)
	cfg := DefaultConfig()
	cfg.PoolSize = 0
	if _, err := New(f.items, f.users, cfg); !core.IsInvalidInput(err) {
		t.Fatalf("New() error = %v, want INVALID_INPUT", err)
	}
	if _, err := New(nil, f.users, DefaultConfig()); !core.IsInvalidInput(err) {
		t.Fatalf("New(nil) error = %v, want INVALID_INPUT", err)
	}
}

func TestRecommendAll(t *testing.T) {
	f := defaultFixture(t)
	serial := DefaultConfig()
	serial.Workers = 1
	parallel := DefaultConfig()
	parallel.Workers = 8

	a, err := newEngine(t, f, serial).RecommendAll(context.Background())
	if err != nil {
		t.Fatalf("RecommendAll() error = %v", err)
	}
	b, err := newEngine(t, f, parallel).RecommendAll(context.Background())
	if err != nil {
		t.Fatalf("RecommendAll() error = %v", err)
	}

	if len(a) != 5 {
		t.Fatalf("len(RecommendAll()) = %d, want 5", len(a))
	}
	for id, recs := range a {
		if len(recs) != len(b[id]) {
			t.Fatalf("user %d: serial %+v vs parallel %+v", id, recs, b[id])
		}
		for i := range recs {
			if recs[i] != b[id][i] {
				t.Fatalf("user %d: serial %+v vs parallel %+v", id, recs, b[id])
			}
		}
	}

	// 用户 5 没有评分
	if len(a[5]) != 0 {
		t.Errorf("user 5 recommendations = %+v, want empty", a[5])
	}

	one, err := newEngine(t, f, serial).RecommendOne(1)
	if err != nil {
		t.Fatalf("RecommendOne() error = %v", err)
	}
	if len(one) != len(a[1]) || (len(one) > 0 && one[0] != a[1][0]) {
		t.Errorf("RecommendOne(1) = %+v, RecommendAll[1] = %+v", one, a[1])
	}
	if len(one) > DefaultConfig().TopN {
		t.Errorf("len(RecommendOne(1)) = %d, exceeds TopN", len(one))
	}
}

func TestRecommendOne_UnknownUser(t *testing.T) {
	e := newEngine(t, defaultFixture(t), DefaultConfig())
	if _, err := e.RecommendOne(99); !core.IsNotFound(err) {
		t.Fatalf("RecommendOne(99) error = %v, want NOT_FOUND", err)
	}
}

func TestRecommendAll_Cancelled(t *testing.T) {
	e := newEngine(t, defaultFixture(t), DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.RecommendAll(ctx); err == nil {
		t.Fatal("RecommendAll() with cancelled context returned nil error")
	}
}

func TestCollaborativePool(t *testing.T) {
	f := newFixture(t, []core.Rating{
		{UserID: 1, ItemID: 0, Value: 5},
		{UserID: 2, ItemID: 0, Value: 5},
		{UserID: 2, ItemID: 6, Value: 4},
		{UserID: 2, ItemID: 3, Value: 5},
		{UserID: 3, ItemID: 0, Value: 1},
		{UserID: 3, ItemID: 3, Value: 2},
		{UserID: 3, ItemID: 1, Value: 3},
		{UserID: 3, ItemID: 2, Value: 1},
	}, []int{1, 2, 3})
	cfg := DefaultConfig()
	cfg.PoolSize = 3
	e := newEngine(t, f, cfg)

	sim, err := e.UserSimilarity()
	if err != nil {
		t.Fatalf("UserSimilarity() error = %v", err)
	}
	p, _ := f.users.Profile(1)
	pool, err := e.CollaborativePool(p, sim)
	if err != nil {
		t.Fatalf("CollaborativePool() error = %v", err)
	}

	// 相似用户：2（25）、3（5）。合并后保留首次出现：0(u2) 3(u2) 6(u2) 1(u3) 2(u3)
	// 按物品 ID 升序取前 3：0 1 2
	wantItems := []int{0, 1, 2}
	wantUsers := []int{2, 3, 3}
	if len(pool) != len(wantItems) {
		t.Fatalf("CollaborativePool() = %+v", pool)
	}
	for i := range wantItems {
		if pool[i].ItemID != wantItems[i] || pool[i].UserID != wantUsers[i] {
			t.Fatalf("CollaborativePool() = %+v, want items %v from users %v", pool, wantItems, wantUsers)
		}
	}
}

func TestScore_ScenarioD(t *testing.T) {
	f := newFixture(t, []core.Rating{
		{UserID: 1, ItemID: 0, Value: 5},
		{UserID: 2, ItemID: 0, Value: 1},
		{UserID: 2, ItemID: 1, Value: 3},
		{UserID: 3, ItemID: 0, Value: 1},
		{UserID: 3, ItemID: 1, Value: 5},
	}, []int{1, 2, 3})
	e := newEngine(t, f, DefaultConfig())

	sim, err := e.UserSimilarity()
	if err != nil {
		t.Fatalf("UserSimilarity() error = %v", err)
	}
	p, _ := f.users.Profile(1)

	predicted := []core.Recommendation{
		{ItemID: 2, Name: "Jumanji", Score: 1},
		{ItemID: 1, Name: "Heat", Score: 0},
	}
	got, err := e.Score(sim, predicted, p)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if got != 4.0 {
		t.Fatalf("Score() = %v, want 4.0", got)
	}

	none, err := e.Score(sim, []core.Recommendation{{ItemID: 6}}, p)
	if err != nil || none != 0 {
		t.Fatalf("Score(no evidence) = %v, %v; want 0", none, err)
	}
}

func TestPeerMeans_ExcludesNonRaters(t *testing.T) {
	f := newFixture(t, []core.Rating{
		{UserID: 1, ItemID: 0, Value: 5},
		{UserID: 2, ItemID: 0, Value: 2},
		{UserID: 2, ItemID: 4, Value: 4},
		{UserID: 3, ItemID: 0, Value: 4},
	}, []int{1, 2, 3})
	e := newEngine(t, f, DefaultConfig())
	sim, _ := e.UserSimilarity()
	p, _ := f.users.Profile(1)

	means, err := e.PeerMeans(p, sim)
	if err != nil {
		t.Fatalf("PeerMeans() error = %v", err)
	}
	if means[0] != 3 {
		t.Errorf("mean[0] = %v, want 3", means[0])
	}
	// 只有用户 2 评过物品 4，用户 3 不按 0 计入
	if means[4] != 4 {
		t.Errorf("mean[4] = %v, want 4", means[4])
	}
}

func TestEvaluate(t *testing.T) {
	f := defaultFixture(t)
	e := newEngine(t, f, DefaultConfig())
	sim, err := e.UserSimilarity()
	if err != nil {
		t.Fatalf("UserSimilarity() error = %v", err)
	}
	scores, err := e.Evaluate(context.Background(), sim)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(scores) != f.users.Len() {
		t.Fatalf("len(Evaluate()) = %d, want %d", len(scores), f.users.Len())
	}

	recs, _ := e.RecommendOne(2)
	p, _ := f.users.Profile(2)
	want, _ := e.Score(sim, recs, p)
	if scores[2] != want {
		t.Errorf("Evaluate()[2] = %v, want %v", scores[2], want)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	e := newEngine(t, defaultFixture(t), DefaultConfig(), WithMetrics(m), WithLogger(zerolog.Nop()))

	if _, err := e.RecommendOne(1); err != nil {
		t.Fatalf("RecommendOne() error = %v", err)
	}
	if got := testutil.ToFloat64(m.recommendations.WithLabelValues("content")); got != 1 {
		t.Errorf("content counter = %v, want 1", got)
	}
	if _, err := e.UserSimilarity(); err != nil {
		t.Fatalf("UserSimilarity() error = %v", err)
	}
	if n := testutil.CollectAndCount(m.buildDuration); n != 1 {
		t.Errorf("build duration metric count = %d, want 1", n)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	data := []byte("top_n: 10\npool_size: 7\nalignment: union\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.TopN != 10 || cfg.PoolSize != 7 || cfg.Alignment != user.AlignUnion {
		t.Errorf("LoadConfig() = %+v", cfg)
	}
	if cfg.SeedCount != DefaultConfig().SeedCount {
		t.Errorf("SeedCount = %d, want default %d", cfg.SeedCount, DefaultConfig().SeedCount)
	}

	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("workers: -1\n"), 0o600)
	if _, err := LoadConfig(bad); !core.IsInvalidInput(err) {
		t.Errorf("LoadConfig(bad) error = %v, want INVALID_INPUT", err)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadConfig(missing) returned nil error")
	}
}

func TestLoadConfig_Env(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	if err := os.WriteFile(path, []byte("top_n: 10\npool_size: 7\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("CINEREC_POOL_SIZE", "9")
	t.Setenv("CINEREC_ALIGNMENT", "union")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.TopN != 10 || cfg.PoolSize != 9 || cfg.Alignment != user.AlignUnion {
		t.Errorf("LoadConfig() = %+v, want top_n 10 from file, pool_size 9 and union from env", cfg)
	}

	defaults, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") error = %v", err)
	}
	if defaults.TopN != DefaultConfig().TopN || defaults.PoolSize != 9 {
		t.Errorf("LoadConfig(\"\") = %+v", defaults)
	}
}
