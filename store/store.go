// Package store 提供 core.Store 的实现（内存、Redis），以及按用户存取推荐列表的 Results。
//
// 示例：
//
//	var s core.Store = store.NewMemoryStore()
//	results := store.NewResults(s, "cinerec:content")
//	_ = results.PutAll(ctx, recsByUser, 3600)
package store
