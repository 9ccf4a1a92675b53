package recall

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rushteam/cinerec/catalog"
	"github.com/rushteam/cinerec/core"
	"github.com/rushteam/cinerec/engine"
	"github.com/rushteam/cinerec/pkg/utils"
	"github.com/rushteam/cinerec/rating"
	"github.com/rushteam/cinerec/rerank"
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

func TestContentRecall(t *testing.T) {
	e := newEngine(t)
	r := &ContentRecall{Engine: e}
	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: 1})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	want, _ := e.RecommendOne(1)
	if len(items) != len(want) || len(items) == 0 {
		t.Fatalf("Recall() = %d items, want %d", len(items), len(want))
	}
	for i, it := range items {
		if it.ID != want[i].ItemID || it.Score != want[i].Score || it.Name() != want[i].Name {
			t.Errorf("item %d = %+v, want %+v", i, it, want[i])
		}
		if _, ok := it.Labels[utils.LabelSeedScore]; !ok {
			t.Errorf("item %d missing seed score label", it.ID)
		}
		if g := it.Labels[utils.LabelGenre].Value; g != e.Items().DominantGenre(it.ID) {
			t.Errorf("item %d genre = %q", it.ID, g)
		}
	}

	if _, err := r.Recall(context.Background(), nil); !core.IsInvalidInput(err) {
		t.Errorf("Recall(nil) error = %v, want INVALID_INPUT", err)
	}
	if _, err := r.Recall(context.Background(), &core.RecommendContext{UserID: 42}); !core.IsNotFound(err) {
		t.Errorf("Recall(unknown) error = %v, want NOT_FOUND", err)
	}
}

func TestCollaborativeRecall(t *testing.T) {
	r := &CollaborativeRecall{Engine: newEngine(t)}
	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: 1})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}

	wantIDs := []int{0, 1, 2}
	wantScores := []float64{5, 3, 1}
	wantPeers := []string{"2", "3", "3"}
	wantGenres := []string{"Children", "Crime", "Children"}
	if len(items) != len(wantIDs) {
		t.Fatalf("Recall() = %d items, want %d", len(items), len(wantIDs))
	}
	for i, it := range items {
		if it.ID != wantIDs[i] || it.Score != wantScores[i] {
			t.Errorf("item %d = (%d, %v), want (%d, %v)", i, it.ID, it.Score, wantIDs[i], wantScores[i])
		}
		if got := it.Labels[utils.LabelPeerUser].Value; got != wantPeers[i] {
			t.Errorf("item %d peer = %q, want %q", it.ID, got, wantPeers[i])
		}
		if got := it.Labels[utils.LabelGenre].Value; got != wantGenres[i] {
			t.Errorf("item %d genre = %q, want %q", it.ID, got, wantGenres[i])
		}
	}
}

type stubSource struct {
	name  string
	items []*core.Item
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Recall(ctx context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*core.Item, len(s.items))
	for i, it := range s.items {
		c := core.NewItem(it.ID)
		c.Score = it.Score
		out[i] = c
	}
	return out, nil
}

func scored(id int, score float64) *core.Item {
	it := core.NewItem(id)
	it.Score = score
	return it
}

func ids(items []*core.Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFanout(t *testing.T) {
	slow := &stubSource{name: "slow", items: []*core.Item{scored(1, 1), scored(2, 9)}, delay: 20 * time.Millisecond}
	fast := &stubSource{name: "fast", items: []*core.Item{scored(2, 3), scored(3, 4)}}
	broken := &stubSource{name: "broken", err: errors.New("down")}

	tests := []struct {
		name     string
		strategy MergeStrategy
		dedup    bool
		want     []int
		score2   float64
	}{
		{"first", MergeFirst, true, []int{1, 2, 3}, 9},
		{"max_score", MergeMaxScore, true, []int{1, 2, 3}, 9},
		{"union", MergeUnion, true, []int{1, 2, 2, 3}, 9},
		{"no dedup", MergeFirst, false, []int{1, 2, 2, 3}, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Fanout{
				Sources:       []Source{slow, broken, fast},
				Dedup:         tt.dedup,
				MaxConcurrent: 2,
				MergeStrategy: tt.strategy,
			}
			items, err := n.Process(context.Background(), &core.RecommendContext{UserID: 1}, nil)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if got := ids(items); !equalInts(got, tt.want) {
				t.Fatalf("Process() ids = %v, want %v", got, tt.want)
			}
			if items[1].Score != tt.score2 {
				t.Errorf("item 2 score = %v, want %v", items[1].Score, tt.score2)
			}
			if src := items[0].Labels[utils.LabelRecallSource]; src.Value != "slow" {
				t.Errorf("recall_source = %+v, want slow", src)
			}
		})
	}
}

func TestFanout_MaxScoreKeepsBest(t *testing.T) {
	low := &stubSource{name: "low", items: []*core.Item{scored(5, 1)}}
	high := &stubSource{name: "high", items: []*core.Item{scored(5, 7)}}
	n := &Fanout{Sources: []Source{low, high}, Dedup: true, MergeStrategy: MergeMaxScore}
	items, err := n.Process(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(items) != 1 || items[0].Score != 7 {
		t.Fatalf("Process() = %+v, want single item with score 7", items)
	}
	if got := items[0].Labels[utils.LabelRecallSource].Value; got != "high|low" {
		t.Errorf("merged recall_source = %q, want high|low", got)
	}
}

func TestFanout_Timeout(t *testing.T) {
	slow := &stubSource{name: "slow", items: []*core.Item{scored(1, 1)}, delay: time.Second}
	fast := &stubSource{name: "fast", items: []*core.Item{scored(2, 1)}}
	n := &Fanout{Sources: []Source{slow, fast}, Dedup: true, Timeout: 10 * time.Millisecond}
	items, err := n.Process(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got := ids(items); !equalInts(got, []int{2}) {
		t.Errorf("Process() ids = %v, want [2]", got)
	}
}

func TestFanout_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n := &Fanout{Sources: []Source{&stubSource{name: "a"}}}
	if _, err := n.Process(ctx, nil, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("Process() error = %v, want context.Canceled", err)
	}
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()

	src := &stubSource{name: "stub", items: []*core.Item{scored(4, 2.5)}}
	c := &Cached{Source: src, Store: s, TTL: 60}
	rctx := &core.RecommendContext{UserID: 9}

	if c.Key(9) != "cinerec:recall:stub:9" {
		t.Errorf("Key() = %q", c.Key(9))
	}

	first, err := c.Recall(ctx, rctx)
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	second, err := c.Recall(ctx, rctx)
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if src.calls.Load() != 1 {
		t.Errorf("source calls = %d, want 1", src.calls.Load())
	}
	if len(second) != 1 || second[0].ID != first[0].ID || second[0].Score != 2.5 {
		t.Errorf("cached Recall() = %+v", second)
	}

	if err := c.Invalidate(ctx, 9); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if _, err := c.Recall(ctx, rctx); err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if src.calls.Load() != 2 {
		t.Errorf("source calls after invalidate = %d, want 2", src.calls.Load())
	}

	_ = s.Set(ctx, c.Key(10), []byte("{"))
	items, err := c.Recall(ctx, &core.RecommendContext{UserID: 10})
	if err != nil || len(items) != 1 {
		t.Errorf("Recall(corrupt cache) = %+v, %v", items, err)
	}
}

func TestCached_PreservesLabels(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()

	c := &Cached{Source: &CollaborativeRecall{Engine: newEngine(t)}, Store: s}
	rctx := &core.RecommendContext{UserID: 1}
	if _, err := c.Recall(ctx, rctx); err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	items, err := c.Recall(ctx, rctx)
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) == 0 || items[0].Labels[utils.LabelGenre].Value != "Children" || items[0].Name() != "Toy Story" {
		t.Errorf("cached item = %+v", items[0])
	}
}

type downStore struct{ *store.MemoryStore }

func (downStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func (downStore) Set(context.Context, string, []byte, ...int) error {
	return errors.New("dial tcp: connection refused")
}

func TestCached_BreakerOpenFallsBack(t *testing.T) {
	ctx := context.Background()
	inner := downStore{store.NewMemoryStore()}
	defer inner.Close()
	guarded := store.NewBreakerStore(inner, store.BreakerConfig{FailureThreshold: 1, Timeout: time.Hour})

	src := &stubSource{name: "stub", items: []*core.Item{scored(4, 2.5)}}
	c := &Cached{Source: src, Store: guarded}
	for i := 0; i < 3; i++ {
		items, err := c.Recall(ctx, &core.RecommendContext{UserID: 1})
		if err != nil || len(items) != 1 || items[0].ID != 4 {
			t.Fatalf("Recall() = %+v, %v", items, err)
		}
	}
	if guarded.State() != "open" {
		t.Errorf("State() = %s, want open", guarded.State())
	}
	if src.calls.Load() != 3 {
		t.Errorf("source calls = %d, want 3", src.calls.Load())
	}
}

func TestFanout_DiversityOnOverlappingItems(t *testing.T) {
	e := newEngine(t)
	for _, strategy := range []MergeStrategy{MergeFirst, MergeMaxScore} {
		t.Run(string(strategy), func(t *testing.T) {
			n := &Fanout{
				Sources:       []Source{&ContentRecall{Engine: e}, &CollaborativeRecall{Engine: e}},
				Dedup:         true,
				MergeStrategy: strategy,
			}
			rctx := &core.RecommendContext{UserID: 1}
			items, err := n.Process(context.Background(), rctx, nil)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			for _, it := range items {
				// item 2 is returned by both sources
				if it.ID == 2 {
					if g := it.Labels[utils.LabelGenre].Value; g != "Children" {
						t.Errorf("item 2 genre = %q, want Children", g)
					}
					if src := it.Labels[utils.LabelRecallSource].Value; src != "recall.content|recall.collaborative" && src != "recall.collaborative|recall.content" {
						t.Errorf("item 2 recall_source = %q", src)
					}
				}
			}

			out, err := (&rerank.Diversity{MaxPerCategory: 1}).Process(context.Background(), rctx, items)
			if err != nil {
				t.Fatalf("Diversity.Process() error = %v", err)
			}
			counts := make(map[string]int)
			for _, it := range out {
				if g := it.Labels[utils.LabelGenre].Value; g != "" {
					counts[g]++
				}
			}
			for g, c := range counts {
				if c > 1 {
					t.Errorf("genre %q kept %d times, want at most 1", g, c)
				}
			}
			if counts["Children"] != 1 {
				t.Errorf("Children kept %d times, want 1", counts["Children"])
			}
		})
	}
}

// deafSource 不读取 ctx，模拟耗时的同步计算。
type deafSource struct {
	delay time.Duration
}

func (s *deafSource) Name() string { return "deaf" }
func (s *deafSource) Recall(_ context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	time.Sleep(s.delay)
	return []*core.Item{scored(7, 1)}, nil
}

func TestFanout_TimeoutIgnoredContext(t *testing.T) {
	fast := &stubSource{name: "fast", items: []*core.Item{scored(2, 1)}}
	n := &Fanout{
		Sources: []Source{&deafSource{delay: 500 * time.Millisecond}, fast},
		Dedup:   true,
		Timeout: 20 * time.Millisecond,
	}
	start := time.Now()
	items, err := n.Process(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if took := time.Since(start); took >= 400*time.Millisecond {
		t.Errorf("Process() took %v, want it bounded by the source timeout", took)
	}
	if got := ids(items); !equalInts(got, []int{2}) {
		t.Errorf("Process() ids = %v, want [2]", got)
	}
}

func TestEngineSources_CancelledContext(t *testing.T) {
	e := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rctx := &core.RecommendContext{UserID: 1}
	for _, src := range []Source{&ContentRecall{Engine: e}, &CollaborativeRecall{Engine: e}} {
		if _, err := src.Recall(ctx, rctx); !errors.Is(err, context.Canceled) {
			t.Errorf("%s.Recall() error = %v, want context.Canceled", src.Name(), err)
		}
	}
}
