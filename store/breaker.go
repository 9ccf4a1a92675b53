package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/cinerec/core"
)

var _ core.Store = (*BreakerStore)(nil)

// BreakerConfig 是熔断器配置，零值字段使用默认值。
type BreakerConfig struct {
	FailureThreshold uint32        // 连续失败多少次后打开，默认 5
	Timeout          time.Duration // 打开后多久进入半开，默认 30s
	MaxRequests      uint32        // 半开状态允许的请求数，默认 1
	Logger           zerolog.Logger
}

// BreakerStore 用熔断器包装一个 Store。key 不存在不计为失败；
// 熔断打开时直接返回 gobreaker.ErrOpenState，调用方（如 recall.Cached）据此降级。
type BreakerStore struct {
	inner core.Store
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerStore 创建熔断包装。
func NewBreakerStore(inner core.Store, cfg BreakerConfig) *BreakerStore {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	logger := cfg.Logger
	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || core.IsStoreNotFound(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("store", name).Str("from", from.String()).Str("to", to.String()).Msg("store circuit breaker state changed")
		},
	}
	return &BreakerStore{inner: inner, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// State 返回熔断器状态：closed / half-open / open。
func (b *BreakerStore) State() string { return b.cb.State().String() }

func (b *BreakerStore) Name() string { return b.inner.Name() }

func (b *BreakerStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.inner.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	data, _ := v.([]byte)
	return data, nil
}

func (b *BreakerStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.Set(ctx, key, value, ttl...)
	})
	return err
}

func (b *BreakerStore) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.Delete(ctx, key)
	})
	return err
}

func (b *BreakerStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.inner.BatchGet(ctx, keys)
	})
	if err != nil {
		return nil, err
	}
	m, _ := v.(map[string][]byte)
	return m, nil
}

func (b *BreakerStore) BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.BatchSet(ctx, kvs, ttl...)
	})
	return err
}

func (b *BreakerStore) Close() error { return b.inner.Close() }
