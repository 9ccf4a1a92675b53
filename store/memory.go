package store

import (
	"context"
	"sync"
	"time"

	"github.com/rushteam/cinerec/core"
)

var _ core.Store = (*MemoryStore)(nil)

// MemoryStore 是内存实现的 Store，用于测试/开发/单机离线任务。
// 支持 TTL（秒），进程重启后数据丢失。
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]entry
	now   func() time.Time
	clean *time.Ticker
	done  chan struct{}
	once  sync.Once
}

type entry struct {
	value  []byte
	expire time.Time // 零值表示不过期
}

func (e entry) expired(now time.Time) bool {
	return !e.expire.IsZero() && now.After(e.expire)
}

// NewMemoryStore 创建内存存储，后台每 10 秒清理一次过期 key。
func NewMemoryStore() *MemoryStore {
	ms := &MemoryStore{
		data:  make(map[string]entry),
		now:   time.Now,
		clean: time.NewTicker(10 * time.Second),
		done:  make(chan struct{}),
	}
	go ms.cleanup()
	return ms
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[key]
	if !ok || e.expired(m.now()) {
		return nil, core.ErrStoreNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = entry{value: append([]byte(nil), value...), expire: m.expireAt(ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *MemoryStore) BatchGet(_ context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string][]byte, len(keys))
	now := m.now()
	for _, k := range keys {
		e, ok := m.data[k]
		if !ok || e.expired(now) {
			continue
		}
		result[k] = append([]byte(nil), e.value...)
	}
	return result, nil
}

func (m *MemoryStore) BatchSet(_ context.Context, kvs map[string][]byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expire := m.expireAt(ttl)
	for k, v := range kvs {
		m.data[k] = entry{value: append([]byte(nil), v...), expire: expire}
	}
	return nil
}

// Len 返回未过期的 key 数量。
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	now := m.now()
	for _, e := range m.data {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

func (m *MemoryStore) Close() error {
	m.once.Do(func() {
		m.clean.Stop()
		close(m.done)
	})
	return nil
}

func (m *MemoryStore) expireAt(ttl []int) time.Time {
	if len(ttl) > 0 && ttl[0] > 0 {
		return m.now().Add(time.Duration(ttl[0]) * time.Second)
	}
	return time.Time{}
}

func (m *MemoryStore) cleanup() {
	for {
		select {
		case <-m.done:
			return
		case <-m.clean.C:
			m.evict()
		}
	}
}

func (m *MemoryStore) evict() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.data {
		if e.expired(now) {
			delete(m.data, k)
		}
	}
}
